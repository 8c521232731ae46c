package p2p

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	priv, _, err := GenerateKey(0)
	require.NoError(t, err)
	s, err := NewSession(context.Background(), priv, false, false)
	require.NoError(t, err)
	t.Cleanup(func() { s.Stop() })
	return s
}

func TestSessionListenAndDial(t *testing.T) {
	ctx := context.Background()
	listener := newTestSession(t)
	dialer := newTestSession(t)

	addr := mustAddr(t, "/ip4/127.0.0.1/tcp/0")
	require.NoError(t, listener.Listen(addr))

	// binding the same address again on the same session must not silently
	// double-bind
	err := listener.Listen(addr)
	assert.ErrorIs(t, err, ErrAlreadyListening)

	targets := listener.AnnounceAddrs()
	require.NotEmpty(t, targets)

	intent, err := dialer.Dial(ctx, targets[0])
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	require.NoError(t, intent.Wait(waitCtx))

	status, _ := intent.Status()
	assert.Equal(t, DialSucceeded, status)
	assert.NotEmpty(t, listener.Host().Network().ConnsToPeer(dialer.PeerID()),
		"listener must observe one inbound connection")
}

func TestSessionDialDeduplication(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	// a raw TCP listener accepts but never completes the security handshake,
	// keeping the dial pending
	raw, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer raw.Close()
	go func() {
		for {
			conn, err := raw.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	_, pub, err := GenerateKey(42)
	require.NoError(t, err)
	id, err := peer.IDFromPublicKey(pub)
	require.NoError(t, err)

	port := raw.Addr().(*net.TCPAddr).Port
	target := mustAddr(t, fmt.Sprintf("/ip4/127.0.0.1/tcp/%d/p2p/%s", port, id.String()))

	first, err := s.Dial(ctx, target)
	require.NoError(t, err)
	second, err := s.Dial(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "a dial to a target already in flight returns the existing intent")

	status, _ := first.Status()
	assert.Equal(t, DialPending, status)

	require.NoError(t, s.Stop())
	status, reason := first.Status()
	assert.Equal(t, DialCancelled, status)
	assert.ErrorIs(t, reason, ErrSessionStopped)
}

func TestSessionDialRequiresPeerIdentity(t *testing.T) {
	s := newTestSession(t)
	intent, err := s.Dial(context.Background(), mustAddr(t, "/ip4/127.0.0.1/tcp/41001"))
	assert.ErrorIs(t, err, ErrMissingPeerID)
	assert.Nil(t, intent)
}

func TestSessionStartIsAllOrNothing(t *testing.T) {
	s := newTestSession(t)

	good := mustAddr(t, "/ip4/127.0.0.1/tcp/0")
	// binding a non-local address fails
	bad := mustAddr(t, "/ip4/192.0.2.1/tcp/0")

	err := s.Start([]multiaddr.Multiaddr{good, bad})
	assert.Error(t, err)
	assert.Empty(t, s.ListenAddrs(), "a failed start must release already-bound addresses")
}

func TestSessionStopReleasesEverything(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Listen(mustAddr(t, "/ip4/127.0.0.1/tcp/0")))
	require.NotEmpty(t, s.ListenAddrs())

	require.NoError(t, s.Stop())
	assert.Empty(t, s.ListenAddrs(), "no dangling listen addresses after stop")

	assert.NoError(t, s.Stop(), "stopping twice is safe")
	assert.ErrorIs(t, s.Listen(mustAddr(t, "/ip4/127.0.0.1/tcp/0")), ErrStopped)
}

func TestSessionEnableRelayHopIdempotent(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Listen(mustAddr(t, "/ip4/127.0.0.1/tcp/0")))

	require.NoError(t, s.EnableRelayHop())
	assert.True(t, s.RelayHopEnabled())

	// second call is a no-op success, not a duplicate reconfiguration
	assert.NoError(t, s.EnableRelayHop())
	assert.True(t, s.RelayHopEnabled())
}

func TestSessionQuicTransport(t *testing.T) {
	priv, _, err := GenerateKey(0)
	require.NoError(t, err)
	s, err := NewSession(context.Background(), priv, true, false)
	require.NoError(t, err)
	defer s.Stop()

	require.NoError(t, s.Listen(mustAddr(t, "/ip4/127.0.0.1/udp/0/quic-v1")))
	assert.NotEmpty(t, s.AnnounceAddrs())
}
