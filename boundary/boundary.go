// Package boundary exposes node lifecycle operations to a calling process
// across a language boundary. Results travel as status codes, never as
// errors or panics; handles are opaque indexes into a process-wide registry
// so that a freed handle is detectable instead of dangling.
//
// The adapter does not serialize calls on one handle; a caller mixing
// FreeNode with in-flight operations on the same handle must synchronize
// externally.
package boundary

import (
	"context"
	"errors"
	"sync"

	"github.com/multiformats/go-multiaddr"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"

	"gitlab.com/fidonext/connectivity-service/internal/logger"
	"gitlab.com/fidonext/connectivity-service/internal/tracing"
	"gitlab.com/fidonext/connectivity-service/p2p"
)

var zlog otelzap.Logger

func init() {
	zlog = logger.OtelZapLogger("boundary")
}

// Handle identifies one live node. The zero handle is never valid.
type Handle uintptr

var (
	mu    sync.Mutex
	nodes = make(map[Handle]*p2p.Node)
	next  Handle = 1
)

func lookup(h Handle) (*p2p.Node, bool) {
	mu.Lock()
	defer mu.Unlock()
	node, ok := nodes[h]
	return node, ok
}

// InitTracing sets up the OTLP trace exporter. Idempotent.
func InitTracing() Status {
	if err := tracing.Init(); err != nil {
		zlog.Sugar().Errorf("failed to initialize tracing: %v", err)
		return InternalError
	}
	return Success
}

// NewNode creates a fully wired node and registers it. Returns the zero
// handle on failure; a node is never partially constructed.
func NewNode(useQuic bool) Handle {
	opts, err := p2p.OptionsFromConfig()
	if err != nil {
		zlog.Sugar().Errorf("invalid node configuration: %v", err)
		return 0
	}
	opts.UseQuic = useQuic

	node, err := p2p.New(context.Background(), opts)
	if err != nil {
		zlog.Sugar().Errorf("failed to create node: %v", err)
		return 0
	}

	mu.Lock()
	h := next
	next++
	nodes[h] = node
	mu.Unlock()

	zlog.Sugar().Infof("created node %s", node.PeerID().String())
	return h
}

// Listen binds an additional listen address on the node. Returns immediately.
func Listen(h Handle, addr string) Status {
	node, ok := lookup(h)
	if !ok {
		return NullPointer
	}
	ma, err := multiaddr.NewMultiaddr(addr)
	if err != nil {
		zlog.Sugar().Errorf("malformed listen multiaddr %q: %v", addr, err)
		return InvalidArgument
	}
	if err := node.Listen(ma); err != nil {
		zlog.Sugar().Errorf("listen failed on %s: %v", addr, err)
		return InternalError
	}
	return Success
}

// Dial starts a non-blocking dial; the outcome resolves asynchronously and is
// observable through the logs and the intent's state.
func Dial(h Handle, addr string) Status {
	node, ok := lookup(h)
	if !ok {
		return NullPointer
	}
	ma, err := multiaddr.NewMultiaddr(addr)
	if err != nil {
		zlog.Sugar().Errorf("malformed dial multiaddr %q: %v", addr, err)
		return InvalidArgument
	}
	if _, err := node.Dial(context.Background(), ma); err != nil {
		if errors.Is(err, p2p.ErrMissingPeerID) {
			zlog.Sugar().Errorf("dial target %q has no /p2p segment", addr)
			return InvalidArgument
		}
		zlog.Sugar().Errorf("dial failed on %s: %v", addr, err)
		return InternalError
	}
	return Success
}

// FreeNode shuts the node down and removes it from the registry. Freeing an
// unknown or already freed handle is a logged no-op, not undefined behavior.
func FreeNode(h Handle) {
	mu.Lock()
	node, ok := nodes[h]
	if ok {
		delete(nodes, h)
	}
	mu.Unlock()

	if !ok {
		zlog.Sugar().Warnf("freeing unknown or already freed handle %d", h)
		return
	}
	if err := node.Shutdown(); err != nil {
		zlog.Sugar().Errorf("error shutting down node: %v", err)
	}
}
