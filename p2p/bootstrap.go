package p2p

import (
	"context"
	"sync"

	"github.com/multiformats/go-multiaddr"
)

// Dialer issues non-blocking dials; satisfied by *Session.
type Dialer interface {
	Dial(ctx context.Context, target multiaddr.Multiaddr) (*DialIntent, error)
}

// BootstrapSet holds the ordered list of known-good peers used to (re)join
// the mesh. Append-only; duplicates are redundant but harmless.
type BootstrapSet struct {
	mu      sync.Mutex
	peers   []multiaddr.Multiaddr
	intents map[string]*DialIntent
}

func NewBootstrapSet(peers ...multiaddr.Multiaddr) *BootstrapSet {
	return &BootstrapSet{
		peers:   append([]multiaddr.Multiaddr{}, peers...),
		intents: make(map[string]*DialIntent),
	}
}

// ParseBootstrapPeers validates the configured address strings.
func ParseBootstrapPeers(addrs []string) ([]multiaddr.Multiaddr, error) {
	return parseMultiaddrs(addrs)
}

func parseMultiaddrs(addrs []string) ([]multiaddr.Multiaddr, error) {
	var out []multiaddr.Multiaddr
	for _, s := range addrs {
		ma, err := multiaddr.NewMultiaddr(s)
		if err != nil {
			return nil, err
		}
		out = append(out, ma)
	}
	return out, nil
}

func (b *BootstrapSet) AddPeer(addr multiaddr.Multiaddr) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.peers = append(b.peers, addr)
}

func (b *BootstrapSet) Peers() []multiaddr.Multiaddr {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]multiaddr.Multiaddr{}, b.peers...)
}

// DialAll dials every peer that does not already have a succeeded intent, in
// insertion order, and returns the number of dials issued. One bad peer never
// blocks the others. Called once at startup and once more per promotion
// event.
func (b *BootstrapSet) DialAll(ctx context.Context, d Dialer) int {
	b.mu.Lock()
	peers := append([]multiaddr.Multiaddr{}, b.peers...)
	b.mu.Unlock()

	dialed := 0
	for _, p := range peers {
		key := p.String()

		b.mu.Lock()
		prior, ok := b.intents[key]
		b.mu.Unlock()
		if ok {
			if status, _ := prior.Status(); status == DialSucceeded {
				zlog.Sugar().Debugf("bootstrap peer %s already connected, skipping", key)
				continue
			}
		}

		intent, err := d.Dial(ctx, p)
		if err != nil {
			zlog.Sugar().Errorf("failed to dial bootstrap peer %s - %v", key, err)
			continue
		}

		b.mu.Lock()
		b.intents[key] = intent
		b.mu.Unlock()
		dialed++
	}

	if dialed > 0 {
		zlog.Sugar().Infof("dialing %d bootstrap peers", dialed)
	}
	return dialed
}
