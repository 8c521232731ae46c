package p2p

import (
	"context"
	"crypto/rand"
	"io"
	mrand "math/rand"
	"time"

	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/routing"
	"github.com/libp2p/go-libp2p/p2p/net/connmgr"
	"github.com/libp2p/go-libp2p/p2p/security/noise"
	libp2ptls "github.com/libp2p/go-libp2p/p2p/security/tls"
	libp2pquic "github.com/libp2p/go-libp2p/p2p/transport/quic"
	"github.com/libp2p/go-libp2p/p2p/transport/tcp"
	"github.com/multiformats/go-multiaddr"
	mafilt "github.com/whyrusleeping/multiaddr-filter"
)

// NewHost builds the underlying libp2p host with the node's transport and
// security stack. The host starts with no listen addresses; the session binds
// them afterwards. When useQuic is set the QUIC transport is offered alongside
// TCP, mirroring the transport fallback of the wire protocol.
func NewHost(ctx context.Context, priv crypto.PrivKey, useQuic bool, server bool) (host.Host, *dht.IpfsDHT, error) {
	var idht *dht.IpfsDHT

	connmgr, err := connmgr.NewConnManager(
		100, // LowWater
		400, // HighWater
		connmgr.WithGracePeriod(time.Minute),
	)
	if err != nil {
		zlog.Sugar().Errorf("Error Creating Connection Manager: %v", err)
		return nil, nil, err
	}

	filter := multiaddr.NewFilters()
	for _, s := range defaultServerFilters {
		f, err := mafilt.NewMask(s)
		if err != nil {
			zlog.Sugar().Errorf("incorrectly formatted address filter in config: %s - %v", s, err)
		}
		filter.AddFilter(*f, multiaddr.ActionDeny)
	}

	baseOpts := []dht.Option{
		dht.ProtocolPrefix("/fidonext"),
		dht.Mode(dht.ModeServer),
	}

	libp2pOpts := []libp2p.Option{
		libp2p.NoListenAddrs,
		libp2p.ProtocolVersion(IdentifyProtocolVersion),
		libp2p.Identity(priv),
		libp2p.Routing(func(h host.Host) (routing.PeerRouting, error) {
			idht, err = dht.New(ctx, h, baseOpts...)
			return idht, err
		}),
		libp2p.DefaultPeerstore,
		libp2p.Security(libp2ptls.ID, libp2ptls.New),
		libp2p.Security(noise.ID, noise.New),
		libp2p.ConnectionManager(connmgr),
		libp2p.EnableNATService(),
		libp2p.EnableRelay(),
		libp2p.EnableHolePunching(),
		libp2p.Ping(true),
	}

	if useQuic {
		libp2pOpts = append(libp2pOpts,
			libp2p.Transport(libp2pquic.NewTransport),
			libp2p.Transport(tcp.NewTCPTransport),
		)
	} else {
		libp2pOpts = append(libp2pOpts, libp2p.Transport(tcp.NewTCPTransport))
	}

	if server {
		libp2pOpts = append(libp2pOpts, libp2p.AddrsFactory(makeAddrsFactory([]string{}, []string{}, defaultServerFilters)))
		libp2pOpts = append(libp2pOpts, libp2p.ConnectionGater((*filtersConnectionGater)(filter)))
	} else {
		libp2pOpts = append(libp2pOpts, libp2p.NATPortMap())
	}

	host, err := libp2p.New(libp2pOpts...)
	if err != nil {
		zlog.Sugar().Errorf("Couldn't Create Host: %v", err)
		return nil, nil, err
	}

	zlog.Sugar().Infof("Self Peer Info %s -> %s", host.ID().String(), host.Addrs())

	return host, idht, nil
}

// GenerateKey returns a fresh Ed25519 identity; a non-zero seed makes the key
// deterministic for tests.
func GenerateKey(seed int64) (crypto.PrivKey, crypto.PubKey, error) {
	var r io.Reader
	if seed == 0 {
		r = rand.Reader
	} else {
		r = mrand.New(mrand.NewSource(seed))
	}
	priv, pub, err := crypto.GenerateEd25519Key(r)
	if err != nil {
		return nil, nil, err
	}
	return priv, pub, nil
}

func makeAddrsFactory(announce []string, appendAnnouce []string, noAnnounce []string) func([]multiaddr.Multiaddr) []multiaddr.Multiaddr {
	var err error                     // To assign to the slice in the for loop
	existing := make(map[string]bool) // To avoid duplicates

	annAddrs := make([]multiaddr.Multiaddr, len(announce))
	for i, addr := range announce {
		annAddrs[i], err = multiaddr.NewMultiaddr(addr)
		if err != nil {
			return nil
		}
		existing[addr] = true
	}

	var appendAnnAddrs []multiaddr.Multiaddr
	for _, addr := range appendAnnouce {
		if existing[addr] {
			// skip AppendAnnounce that is on the Announce list already
			continue
		}
		appendAddr, err := multiaddr.NewMultiaddr(addr)
		if err != nil {
			return nil
		}
		appendAnnAddrs = append(appendAnnAddrs, appendAddr)
	}

	filters := multiaddr.NewFilters()
	noAnnAddrs := map[string]bool{}
	for _, addr := range noAnnounce {
		f, err := mafilt.NewMask(addr)
		if err == nil {
			filters.AddFilter(*f, multiaddr.ActionDeny)
			continue
		}
		maddr, err := multiaddr.NewMultiaddr(addr)
		if err != nil {
			return nil
		}
		noAnnAddrs[string(maddr.Bytes())] = true
	}

	return func(allAddrs []multiaddr.Multiaddr) []multiaddr.Multiaddr {
		var addrs []multiaddr.Multiaddr
		if len(annAddrs) > 0 {
			addrs = annAddrs
		} else {
			addrs = allAddrs
		}
		addrs = append(addrs, appendAnnAddrs...)

		var out []multiaddr.Multiaddr
		for _, maddr := range addrs {
			// check for exact matches
			ok := noAnnAddrs[string(maddr.Bytes())]
			// check for /ipcidr matches
			if !ok && !filters.AddrBlocked(maddr) {
				out = append(out, maddr)
			}
		}
		return out
	}
}
