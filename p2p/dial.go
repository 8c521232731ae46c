package p2p

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/multiformats/go-multiaddr"
)

// DialStatus describes the lifecycle of one dial attempt.
type DialStatus int

const (
	DialPending DialStatus = iota
	DialSucceeded
	DialFailed
	DialCancelled
)

func (s DialStatus) String() string {
	switch s {
	case DialPending:
		return "Pending"
	case DialSucceeded:
		return "Succeeded"
	case DialFailed:
		return "Failed"
	case DialCancelled:
		return "Cancelled"
	default:
		return "Invalid"
	}
}

// ErrSessionStopped resolves every dial still pending when the session shuts
// down.
var ErrSessionStopped = errors.New("cancelled - session stopped")

// DialIntent is an in-flight, asynchronously resolving connection attempt to
// one target address. A dial to a target that already has a pending intent
// returns the existing intent instead of opening a second attempt.
type DialIntent struct {
	ID        uuid.UUID
	Target    multiaddr.Multiaddr
	CreatedAt time.Time

	mu     sync.Mutex
	status DialStatus
	reason error
	done   chan struct{}
}

func newDialIntent(target multiaddr.Multiaddr) *DialIntent {
	return &DialIntent{
		ID:        uuid.New(),
		Target:    target,
		CreatedAt: time.Now(),
		status:    DialPending,
		done:      make(chan struct{}),
	}
}

// resolve records the outcome exactly once; later calls are ignored.
func (i *DialIntent) resolve(status DialStatus, reason error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status != DialPending {
		return
	}
	i.status = status
	i.reason = reason
	close(i.done)
}

// Status returns the current outcome and, for failed or cancelled intents,
// the reason.
func (i *DialIntent) Status() (DialStatus, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status, i.reason
}

// Done is closed once the intent has resolved.
func (i *DialIntent) Done() <-chan struct{} {
	return i.done
}

// Wait blocks until the intent resolves or the context expires, returning the
// failure reason, if any.
func (i *DialIntent) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.done:
	}
	_, reason := i.Status()
	return reason
}
