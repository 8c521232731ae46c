package p2p

import (
	"context"
	"testing"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mafilt "github.com/whyrusleeping/multiaddr-filter"
)

func newServerGater(t *testing.T) *filtersConnectionGater {
	t.Helper()
	filter := multiaddr.NewFilters()
	for _, s := range defaultServerFilters {
		f, err := mafilt.NewMask(s)
		require.NoError(t, err)
		filter.AddFilter(*f, multiaddr.ActionDeny)
	}
	return (*filtersConnectionGater)(filter)
}

func TestServerGaterBlocksPrivateRanges(t *testing.T) {
	gater := newServerGater(t)

	assert.False(t, gater.InterceptAddrDial(peer.ID(""), mustAddr(t, "/ip4/10.1.2.3/tcp/4001")))
	assert.False(t, gater.InterceptAddrDial(peer.ID(""), mustAddr(t, "/ip4/192.168.1.5/tcp/4001")))
	assert.False(t, gater.InterceptAddrDial(peer.ID(""), mustAddr(t, "/ip6/fe80::1/tcp/4001")))

	assert.True(t, gater.InterceptAddrDial(peer.ID(""), mustAddr(t, "/ip4/1.2.3.4/tcp/4001")))
	// loopback stays dialable so local deployments keep working in server mode
	assert.True(t, gater.InterceptAddrDial(peer.ID(""), mustAddr(t, "/ip4/127.0.0.1/tcp/4001")))
	assert.True(t, gater.InterceptPeerDial(peer.ID("")))
}

func TestServerAddrsFactoryHidesPrivateRanges(t *testing.T) {
	factory := makeAddrsFactory([]string{}, []string{}, defaultServerFilters)
	require.NotNil(t, factory)

	out := factory([]multiaddr.Multiaddr{
		mustAddr(t, "/ip4/192.168.1.5/tcp/9000"),
		mustAddr(t, "/ip4/1.2.3.4/tcp/9000"),
		mustAddr(t, "/ip4/10.0.0.7/udp/9000/quic-v1"),
	})

	require.Len(t, out, 1)
	assert.Equal(t, "/ip4/1.2.3.4/tcp/9000", out[0].String())
}

func TestServerModeSession(t *testing.T) {
	priv, _, err := GenerateKey(0)
	require.NoError(t, err)
	s, err := NewSession(context.Background(), priv, false, true)
	require.NoError(t, err)
	defer s.Stop()

	require.NoError(t, s.Listen(mustAddr(t, "/ip4/127.0.0.1/tcp/0")))
	assert.NotEmpty(t, s.AnnounceAddrs())
}
