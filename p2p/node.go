package p2p

import (
	"context"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"

	"gitlab.com/fidonext/connectivity-service/internal/config"
)

// Options configure one node. The zero value is usable: TCP transport, fresh
// identity, defaults for probing and promotion.
type Options struct {
	UseQuic          bool
	Server           bool
	Identity         crypto.PrivKey
	ListenAddrs      []multiaddr.Multiaddr
	BootstrapPeers   []multiaddr.Multiaddr
	ProbeWindow      time.Duration
	PromotionBackoff time.Duration
	GossipTopic      string // empty disables the messaging capability
	Rendezvous       string // empty disables periodic discovery
}

// OptionsFromConfig builds Options from the loaded configuration file.
func OptionsFromConfig() (Options, error) {
	cfg := config.GetConfig()
	listen, err := parseMultiaddrs(cfg.P2P.ListenAddress)
	if err != nil {
		return Options{}, err
	}
	bootstrap, err := ParseBootstrapPeers(cfg.P2P.BootstrapPeers)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Server:           cfg.P2P.ServerMode,
		ListenAddrs:      listen,
		BootstrapPeers:   bootstrap,
		ProbeWindow:      time.Duration(cfg.P2P.ProbeWindowSecs) * time.Second,
		PromotionBackoff: time.Duration(cfg.P2P.PromotionBackoffSecs) * time.Second,
		GossipTopic:      cfg.P2P.GossipTopic,
		Rendezvous:       cfg.P2P.Rendezvous,
	}, nil
}

// Node is one running peer: a session, its relay promotion controller, the
// bootstrap set and the optional messaging capability. A node is either fully
// wired or not constructed at all.
type Node struct {
	session    *Session
	controller *Controller
	bootstrap  *BootstrapSet
	messaging  *Messaging

	cancel   context.CancelFunc
	stopOnce sync.Once
	stopErr  error
}

func New(ctx context.Context, opts Options) (*Node, error) {
	priv := opts.Identity
	if priv == nil {
		var err error
		priv, _, err = GenerateKey(0)
		if err != nil {
			return nil, err
		}
	}

	nodeCtx, cancel := context.WithCancel(ctx)

	session, err := NewSession(nodeCtx, priv, opts.UseQuic, opts.Server)
	if err != nil {
		cancel()
		return nil, err
	}

	// every failure past this point releases the session so the caller never
	// sees a partially constructed node
	if len(opts.ListenAddrs) > 0 {
		if err := session.Start(opts.ListenAddrs); err != nil {
			session.Stop()
			cancel()
			return nil, err
		}
	}

	var messaging *Messaging
	if opts.GossipTopic != "" {
		messaging, err = NewMessaging(nodeCtx, session.Host(), opts.GossipTopic)
		if err != nil {
			session.Stop()
			cancel()
			return nil, err
		}
	}

	bootstrap := NewBootstrapSet(opts.BootstrapPeers...)
	prober := NewProber(session.Host().EventBus())
	controller := NewController(session, prober, bootstrap, opts.ProbeWindow, opts.PromotionBackoff)

	if opts.Rendezvous != "" {
		go session.startDiscovery(nodeCtx, opts.Rendezvous)
	}

	controller.Start(nodeCtx)

	return &Node{
		session:    session,
		controller: controller,
		bootstrap:  bootstrap,
		messaging:  messaging,
		cancel:     cancel,
	}, nil
}

func (n *Node) Session() *Session       { return n.session }
func (n *Node) Controller() *Controller { return n.controller }
func (n *Node) Bootstrap() *BootstrapSet {
	return n.bootstrap
}
func (n *Node) Messaging() *Messaging { return n.messaging }
func (n *Node) PeerID() peer.ID       { return n.session.PeerID() }

// Listen binds an additional listen address on the node's session.
func (n *Node) Listen(addr multiaddr.Multiaddr) error {
	return n.session.Listen(addr)
}

// Dial starts a non-blocking dial to the target.
func (n *Node) Dial(ctx context.Context, target multiaddr.Multiaddr) (*DialIntent, error) {
	return n.session.Dial(ctx, target)
}

// Shutdown stops the controller, the messaging capability and the session,
// exactly once. Pending dials and an in-progress probe window are cancelled.
func (n *Node) Shutdown() error {
	n.stopOnce.Do(func() {
		n.cancel()
		n.controller.Stop()
		if n.messaging != nil {
			n.messaging.Close()
		}
		n.stopErr = n.session.Stop()
	})
	return n.stopErr
}
