package p2p

import (
	"context"
	"errors"
	"testing"

	"github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
)

type rejectingDialer struct {
	reject map[string]bool
	calls  int
}

func (d *rejectingDialer) Dial(ctx context.Context, target multiaddr.Multiaddr) (*DialIntent, error) {
	d.calls++
	if d.reject[target.String()] {
		return nil, errors.New("gated address")
	}
	intent := newDialIntent(target)
	intent.resolve(DialSucceeded, nil)
	return intent, nil
}

func TestBootstrapSetOrdering(t *testing.T) {
	a := mustAddr(t, "/ip4/10.1.0.1/tcp/9000")
	b := mustAddr(t, "/ip4/10.1.0.2/tcp/9000")
	set := NewBootstrapSet(a)
	set.AddPeer(b)
	set.AddPeer(a) // duplicates are redundant but harmless

	peers := set.Peers()
	assert.Len(t, peers, 3)
	assert.Equal(t, a.String(), peers[0].String())
	assert.Equal(t, b.String(), peers[1].String())
	assert.Equal(t, a.String(), peers[2].String())
}

func TestBootstrapDialAllSkipsConnectedPeers(t *testing.T) {
	a := mustAddr(t, "/ip4/10.1.0.1/tcp/9000")
	b := mustAddr(t, "/ip4/10.1.0.2/tcp/9000")
	set := NewBootstrapSet(a, b)
	session := newFakeSession()
	session.failTargets[b.String()] = true

	assert.Equal(t, 2, set.DialAll(context.Background(), session))

	// promotion-time redial: a succeeded, only b goes out again
	assert.Equal(t, 1, set.DialAll(context.Background(), session))
	assert.Equal(t, 1, session.dialCount(a))
	assert.Equal(t, 2, session.dialCount(b))
}

func TestBootstrapDialAllSurvivesBadPeer(t *testing.T) {
	bad := mustAddr(t, "/ip4/10.1.0.1/tcp/9000")
	good := mustAddr(t, "/ip4/10.1.0.2/tcp/9000")
	set := NewBootstrapSet(bad, good)
	dialer := &rejectingDialer{reject: map[string]bool{bad.String(): true}}

	dialed := set.DialAll(context.Background(), dialer)
	assert.Equal(t, 1, dialed, "one bad bootstrap peer must not block the others")
	assert.Equal(t, 2, dialer.calls)
}

func TestParseBootstrapPeers(t *testing.T) {
	peers, err := ParseBootstrapPeers([]string{"/ip4/10.1.0.1/tcp/9000"})
	assert.NoError(t, err)
	assert.Len(t, peers, 1)

	_, err = ParseBootstrapPeers([]string{"not a multiaddr"})
	assert.Error(t, err)
}
