package p2p

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
)

func TestDialIntentResolvesOnce(t *testing.T) {
	target, _ := multiaddr.NewMultiaddr("/ip4/127.0.0.1/tcp/4001")
	intent := newDialIntent(target)

	status, reason := intent.Status()
	assert.Equal(t, DialPending, status)
	assert.Nil(t, reason)

	intent.resolve(DialSucceeded, nil)
	intent.resolve(DialFailed, errors.New("too late"))

	status, reason = intent.Status()
	assert.Equal(t, DialSucceeded, status)
	assert.Nil(t, reason)

	select {
	case <-intent.Done():
	default:
		t.Fatal("Done channel not closed after resolution")
	}
}

func TestDialIntentWait(t *testing.T) {
	target, _ := multiaddr.NewMultiaddr("/ip4/127.0.0.1/tcp/4001")
	intent := newDialIntent(target)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := intent.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	failure := errors.New("handshake refused")
	intent.resolve(DialFailed, failure)
	err = intent.Wait(context.Background())
	assert.ErrorIs(t, err, failure)
}

func TestDialStatusString(t *testing.T) {
	assert.Equal(t, "Pending", DialPending.String())
	assert.Equal(t, "Succeeded", DialSucceeded.String())
	assert.Equal(t, "Failed", DialFailed.String())
	assert.Equal(t, "Cancelled", DialCancelled.String())
}
