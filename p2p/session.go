package p2p

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/protocol/circuitv2/relay"
	"github.com/multiformats/go-multiaddr"
	"go.uber.org/multierr"
)

var (
	// ErrAlreadyListening signals a second bind of an address this session
	// already holds.
	ErrAlreadyListening = errors.New("address already bound on this session")

	// ErrMissingPeerID rejects dial targets without a /p2p identity segment.
	// The dialer authenticates the security handshake against the expected
	// peer, so an identity-less target cannot be dialed.
	ErrMissingPeerID = errors.New("dial target is missing a /p2p peer identity segment")

	// ErrStopped rejects operations on a stopped session.
	ErrStopped = errors.New("session stopped")
)

// Session owns the node's network-facing resources: the set of bound listen
// addresses and the outstanding dial intents. All acquisition is scoped; a
// failed Start releases whatever it had already bound.
type Session struct {
	host host.Host
	dht  *dht.IpfsDHT

	mu       sync.Mutex
	listen   map[string]multiaddr.Multiaddr
	intents  map[string]*DialIntent
	relaySvc *relay.Relay
	stopped  bool
}

// NewSession builds the host and wraps it in a session with no bound
// addresses yet.
func NewSession(ctx context.Context, priv crypto.PrivKey, useQuic bool, server bool) (*Session, error) {
	h, idht, err := NewHost(ctx, priv, useQuic, server)
	if err != nil {
		return nil, err
	}
	return &Session{
		host:    h,
		dht:     idht,
		listen:  make(map[string]multiaddr.Multiaddr),
		intents: make(map[string]*DialIntent),
	}, nil
}

func (s *Session) Host() host.Host   { return s.host }
func (s *Session) DHT() *dht.IpfsDHT { return s.dht }
func (s *Session) PeerID() peer.ID   { return s.host.ID() }

// Start binds every address or none: the first failure unbinds the addresses
// bound so far and propagates the error.
func (s *Session) Start(addrs []multiaddr.Multiaddr) error {
	for i, addr := range addrs {
		if err := s.Listen(addr); err != nil {
			for _, bound := range addrs[:i] {
				s.unlisten(bound)
			}
			return fmt.Errorf("session start: %w", err)
		}
	}
	return nil
}

// Listen binds one additional listen address. Binding an address the session
// already holds fails rather than silently double-binding.
func (s *Session) Listen(addr multiaddr.Multiaddr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	key := addr.String()
	if _, ok := s.listen[key]; ok {
		return fmt.Errorf("listen %s: %w", addr, ErrAlreadyListening)
	}
	if err := s.host.Network().Listen(addr); err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listen[key] = addr
	zlog.Sugar().Infof("started listening on %s", addr)
	return nil
}

func (s *Session) unlisten(addr multiaddr.Multiaddr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listen[addr.String()]; !ok {
		return
	}
	// ListenClose is only available on the concrete swarm, not the
	// network.Network interface.
	if nw, ok := s.host.Network().(interface {
		ListenClose(...multiaddr.Multiaddr)
	}); ok {
		nw.ListenClose(addr)
	}
	delete(s.listen, addr.String())
}

// ListenAddrs returns the addresses the session currently holds, in no
// particular order.
func (s *Session) ListenAddrs() []multiaddr.Multiaddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	addrs := make([]multiaddr.Multiaddr, 0, len(s.listen))
	for _, a := range s.listen {
		addrs = append(addrs, a)
	}
	return addrs
}

// AnnounceAddrs returns the host's fully qualified addresses, each carrying
// the /p2p identity segment, suitable as dial targets for other nodes.
func (s *Session) AnnounceAddrs() []multiaddr.Multiaddr {
	id, err := multiaddr.NewMultiaddr("/p2p/" + s.host.ID().String())
	if err != nil {
		return nil
	}
	var out []multiaddr.Multiaddr
	for _, a := range s.host.Addrs() {
		out = append(out, a.Encapsulate(id))
	}
	return out
}

// Dial starts a non-blocking connection attempt to target and returns its
// intent. A target with an intent still pending returns that intent instead
// of opening a duplicate attempt.
func (s *Session) Dial(ctx context.Context, target multiaddr.Multiaddr) (*DialIntent, error) {
	info, err := peer.AddrInfoFromP2pAddr(target)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, ErrMissingPeerID)
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, ErrStopped
	}
	key := target.String()
	if existing, ok := s.intents[key]; ok {
		if status, _ := existing.Status(); status == DialPending {
			s.mu.Unlock()
			return existing, nil
		}
	}
	intent := newDialIntent(target)
	s.intents[key] = intent
	s.mu.Unlock()

	go s.runDial(ctx, intent, *info)
	return intent, nil
}

func (s *Session) runDial(ctx context.Context, intent *DialIntent, info peer.AddrInfo) {
	if err := s.host.Connect(ctx, info); err != nil {
		zlog.Sugar().Warnf("failed to dial %s: %v", intent.Target, err)
		intent.resolve(DialFailed, err)
		return
	}
	zlog.Sugar().Infof("connected to %s", info.ID.String())
	intent.resolve(DialSucceeded, nil)
}

// EnableRelayHop reconfigures the session to accept relay-assisted circuits
// and re-advertises its addresses. Calling it on a session that already runs
// the relay service is a no-op success. Pending dial intents are untouched.
func (s *Session) EnableRelayHop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.relaySvc != nil {
		zlog.Debug("relay hop already enabled")
		return nil
	}

	svc, err := relay.New(s.host,
		relay.WithResources(
			relay.Resources{
				MaxReservations:        256,
				MaxCircuits:            32,
				BufferSize:             4096,
				MaxReservationsPerPeer: 8,
				MaxReservationsPerIP:   16,
			},
		),
		relay.WithLimit(&relay.RelayLimit{
			Duration: 5 * time.Minute,
			Data:     1 << 21, // 2 MiB
		}),
	)
	if err != nil {
		return fmt.Errorf("enable relay hop: %w", err)
	}
	s.relaySvc = svc

	// nudge identify into pushing the updated capability to connected peers
	if bh, ok := s.host.(interface{ SignalAddressChange() }); ok {
		bh.SignalAddressChange()
	}

	zlog.Sugar().Infof("relay hop enabled, re-advertising %d listen addresses", len(s.listen))
	return nil
}

// RelayHopEnabled reports whether the relay service is running.
func (s *Session) RelayHopEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relaySvc != nil
}

// Stop releases all listen addresses and cancels pending dials, each pending
// intent resolving as cancelled. Safe to call more than once.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	pending := make([]*DialIntent, 0, len(s.intents))
	for _, intent := range s.intents {
		pending = append(pending, intent)
	}
	relaySvc := s.relaySvc
	s.relaySvc = nil
	s.listen = make(map[string]multiaddr.Multiaddr)
	s.mu.Unlock()

	for _, intent := range pending {
		intent.resolve(DialCancelled, ErrSessionStopped)
	}

	var result error
	if relaySvc != nil {
		result = multierr.Append(result, relaySvc.Close())
	}
	if s.dht != nil {
		result = multierr.Append(result, s.dht.Close())
	}
	result = multierr.Append(result, s.host.Close())
	return result
}
