package p2p

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// State of the relay promotion lifecycle. PrivateRelayed is reached through
// the intermediate Promoting step; Public and PrivateRelayed are terminal.
type State int

const (
	StateInitializing State = iota
	StateProbing
	StatePromoting
	StatePublic
	StatePrivateRelayed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "Initializing"
	case StateProbing:
		return "Probing"
	case StatePromoting:
		return "Promoting"
	case StatePublic:
		return "Public"
	case StatePrivateRelayed:
		return "PrivateRelayed"
	default:
		return "Invalid"
	}
}

const (
	DefaultProbeWindow      = 10 * time.Second
	DefaultPromotionBackoff = 5 * time.Second
)

type promotableSession interface {
	Dialer
	EnableRelayHop() error
}

type reachabilityProber interface {
	Probe(ctx context.Context, window time.Duration) ReachabilityVerdict
}

// Controller watches the prober's verdict and, on a negative one, promotes
// the session into relay-assisted mode and redrives bootstrap dialing. All
// state transitions happen on the controller's own goroutine; there is a
// single writer for its state.
type Controller struct {
	session   promotableSession
	prober    reachabilityProber
	bootstrap *BootstrapSet

	window         time.Duration
	initialBackoff time.Duration

	mu      sync.Mutex
	state   State
	verdict ReachabilityVerdict
	started bool
	stopped bool

	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewController(session promotableSession, prober reachabilityProber, bootstrap *BootstrapSet, window, initialBackoff time.Duration) *Controller {
	if window <= 0 {
		window = DefaultProbeWindow
	}
	if initialBackoff <= 0 {
		initialBackoff = DefaultPromotionBackoff
	}
	return &Controller{
		session:        session,
		prober:         prober,
		bootstrap:      bootstrap,
		window:         window,
		initialBackoff: initialBackoff,
		state:          StateInitializing,
		done:           make(chan struct{}),
	}
}

// Start launches the lifecycle. Subsequent calls are no-ops, as is a call on
// a controller that was already stopped.
func (c *Controller) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.mu.Lock()
		if c.stopped {
			c.mu.Unlock()
			return
		}
		runCtx, cancel := context.WithCancel(ctx)
		c.cancel = cancel
		c.started = true
		c.mu.Unlock()
		go c.run(runCtx)
	})
}

func (c *Controller) run(ctx context.Context) {
	defer close(c.done)

	// first contact with the mesh is not blocked on self-diagnosis
	c.setState(StateInitializing)
	c.bootstrap.DialAll(ctx, c.session)

	c.setState(StateProbing)
	verdict := c.prober.Probe(ctx, c.window)
	c.setVerdict(verdict)
	if ctx.Err() != nil {
		return
	}

	if verdict == VerdictPublic {
		c.setState(StatePublic)
		return
	}

	// Private and Unknown both promote; Unknown is only kept distinct for
	// telemetry. A late Public observation after the window committed does
	// not cancel the promotion in progress.
	c.promote(ctx)
}

func (c *Controller) promote(ctx context.Context) {
	c.setState(StatePromoting)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialBackoff
	bo.MaxElapsedTime = 0 // keep retrying until stopped; promotion must never crash the node

	err := backoff.Retry(func() error {
		if err := c.session.EnableRelayHop(); err != nil {
			zlog.Sugar().Warnf("relay promotion failed, retrying with backoff: %v", err)
			return err
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		// only on cancellation; the verdict from probing stands
		return
	}

	c.bootstrap.DialAll(ctx, c.session)
	c.setState(StatePrivateRelayed)
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		zlog.Sugar().Infof("connectivity state %s -> %s", prev, s)
	}
}

func (c *Controller) setVerdict(v ReachabilityVerdict) {
	c.mu.Lock()
	c.verdict = v
	c.mu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Verdict returns the reachability classification committed by the last
// probe.
func (c *Controller) Verdict() ReachabilityVerdict {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verdict
}

// Done is closed once the lifecycle reaches a terminal state or is stopped.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Stop cancels the lifecycle, including an in-progress probe window, and
// waits for the controller goroutine to exit.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.stopped = true
		started := c.started
		cancel := c.cancel
		c.mu.Unlock()
		if !started {
			close(c.done)
			return
		}
		cancel()
		<-c.done
	})
}
