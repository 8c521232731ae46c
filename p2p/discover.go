package p2p

import (
	"context"
	"fmt"
	"time"

	"github.com/libp2p/go-libp2p/core/discovery"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	drouting "github.com/libp2p/go-libp2p/p2p/discovery/routing"
	dutil "github.com/libp2p/go-libp2p/p2p/discovery/util"
)

// DiscoverPeers advertises this node at the rendezvous point and returns the
// peers found there, excluding itself and peers without addresses. The DHT
// algorithm itself is the routing layer's concern; this is only the
// capability the node invokes.
func (s *Session) DiscoverPeers(ctx context.Context, rendezvous string) []peer.AddrInfo {
	routingDiscovery := drouting.NewRoutingDiscovery(s.dht)
	dutil.Advertise(ctx, routingDiscovery, rendezvous)

	zlog.Debug("Discover - searching for peers")
	peers, err := dutil.FindPeers(
		ctx,
		routingDiscovery,
		rendezvous,
		discovery.Limit(40),
	)
	if err != nil {
		zlog.Sugar().Errorf("failed to discover peers: %v", err)
	}

	var filtered []peer.AddrInfo
	for _, p := range peers {
		if p.ID == s.host.ID() {
			continue
		}
		if len(p.Addrs) == 0 {
			continue
		}
		filtered = append(filtered, p)
	}
	zlog.Sugar().Debugf("Discover - found peers: %v", filtered)
	return filtered
}

// FindPeer resolves a peer's addresses through the DHT and connects to it if
// not already connected.
func (s *Session) FindPeer(ctx context.Context, id peer.ID) (peer.AddrInfo, error) {
	info, err := s.dht.FindPeer(ctx, id)
	if err != nil {
		return peer.AddrInfo{}, fmt.Errorf("couldn't find peer: %w", err)
	}
	if s.host.Network().Connectedness(id) != network.Connected {
		if _, err := s.host.Network().DialPeer(ctx, info.ID); err != nil {
			return info, fmt.Errorf("couldn't dial peer: %w", err)
		}
	}
	return info, nil
}

// startDiscovery periodically re-advertises and connects to newly found
// peers until the context ends.
func (s *Session) startDiscovery(ctx context.Context, rendezvous string) {
	ticker := time.NewTicker(time.Minute * 5)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			zlog.Debug("Discovery - context done")
			return
		case <-ticker.C:
			for _, p := range s.DiscoverPeers(ctx, rendezvous) {
				if s.host.Network().Connectedness(p.ID) == network.Connected {
					continue
				}
				if err := s.host.Connect(ctx, p); err != nil {
					zlog.Sugar().Debugf("couldn't establish connection with: %s - error: %v", p.ID.String(), err)
				}
			}
		}
	}
}
