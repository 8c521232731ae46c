package p2p

import (
	"context"
	"time"

	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/network"
)

// ReachabilityVerdict classifies whether the node is publicly dialable
// without relay assistance.
type ReachabilityVerdict int

const (
	VerdictUnknown ReachabilityVerdict = iota
	VerdictPublic
	VerdictPrivate
)

func (v ReachabilityVerdict) String() string {
	switch v {
	case VerdictPublic:
		return "Public"
	case VerdictPrivate:
		return "Private"
	default:
		return "Unknown"
	}
}

// Prober classifies reachability from AutoNAT observations surfaced on the
// host event bus. It is re-entrant: a probe can be run again after a topology
// change, but callers probe once per lifecycle transition rather than on a
// timer.
type Prober struct {
	bus event.Bus
}

func NewProber(bus event.Bus) *Prober {
	return &Prober{bus: bus}
}

// Probe collects reachability observations for at most one window and never
// waits past its ceiling:
//   - a Public observation returns Public immediately
//   - the window elapsing after only non-Public observations returns Private
//   - the window elapsing with zero observations returns Unknown
//   - cancellation returns Unknown without waiting out the window
func (p *Prober) Probe(ctx context.Context, window time.Duration) ReachabilityVerdict {
	sub, err := p.bus.Subscribe(new(event.EvtLocalReachabilityChanged))
	if err != nil {
		zlog.Sugar().Errorf("reachability probe could not subscribe to event bus: %v", err)
		return VerdictUnknown
	}
	defer sub.Close()

	timer := time.NewTimer(window)
	defer timer.Stop()

	observed := false
	for {
		select {
		case <-ctx.Done():
			zlog.Debug("reachability probe cancelled")
			return VerdictUnknown
		case <-timer.C:
			if !observed {
				zlog.Sugar().Infof("no reachability observations within %s", window)
				return VerdictUnknown
			}
			zlog.Sugar().Infof("probe window of %s elapsed without a public verdict", window)
			return VerdictPrivate
		case ev, ok := <-sub.Out():
			if !ok {
				return VerdictUnknown
			}
			observed = true
			switch ev.(event.EvtLocalReachabilityChanged).Reachability {
			case network.ReachabilityPublic:
				zlog.Info("peers observe this node as publicly dialable")
				return VerdictPublic
			case network.ReachabilityPrivate:
				// AutoNAT already aggregates a quorum before reporting
				// Private, so the verdict is committed without waiting out
				// the window.
				zlog.Info("peers observe this node as private")
				return VerdictPrivate
			default:
				// inconclusive, keep collecting until the ceiling
			}
		}
	}
}
