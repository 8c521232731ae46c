package p2p

import (
	"context"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/p2p/host/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeNoObservationsYieldsUnknown(t *testing.T) {
	prober := NewProber(eventbus.NewBus())

	start := time.Now()
	verdict := prober.Probe(context.Background(), 150*time.Millisecond)
	elapsed := time.Since(start)

	assert.Equal(t, VerdictUnknown, verdict)
	assert.Less(t, elapsed, 2*time.Second, "probe must never wait past the window ceiling")
}

func TestProbePublicObservation(t *testing.T) {
	bus := eventbus.NewBus()
	emitter, err := bus.Emitter(new(event.EvtLocalReachabilityChanged))
	require.NoError(t, err)
	defer emitter.Close()

	prober := NewProber(bus)

	go func() {
		time.Sleep(50 * time.Millisecond)
		emitter.Emit(event.EvtLocalReachabilityChanged{Reachability: network.ReachabilityPublic})
	}()

	start := time.Now()
	verdict := prober.Probe(context.Background(), 10*time.Second)
	assert.Equal(t, VerdictPublic, verdict)
	assert.Less(t, time.Since(start), 5*time.Second, "a public observation must short-circuit the window")
}

func TestProbePrivateObservation(t *testing.T) {
	bus := eventbus.NewBus()
	emitter, err := bus.Emitter(new(event.EvtLocalReachabilityChanged))
	require.NoError(t, err)
	defer emitter.Close()

	prober := NewProber(bus)

	go func() {
		time.Sleep(50 * time.Millisecond)
		emitter.Emit(event.EvtLocalReachabilityChanged{Reachability: network.ReachabilityPrivate})
	}()

	verdict := prober.Probe(context.Background(), 10*time.Second)
	assert.Equal(t, VerdictPrivate, verdict)
}

func TestProbeInconclusiveObservationsYieldPrivate(t *testing.T) {
	bus := eventbus.NewBus()
	emitter, err := bus.Emitter(new(event.EvtLocalReachabilityChanged))
	require.NoError(t, err)
	defer emitter.Close()

	prober := NewProber(bus)

	go func() {
		time.Sleep(30 * time.Millisecond)
		emitter.Emit(event.EvtLocalReachabilityChanged{Reachability: network.ReachabilityUnknown})
	}()

	verdict := prober.Probe(context.Background(), 300*time.Millisecond)
	assert.Equal(t, VerdictPrivate, verdict, "observations without a public verdict default to Private at the ceiling")
}

func TestProbeCancellation(t *testing.T) {
	prober := NewProber(eventbus.NewBus())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	verdict := prober.Probe(ctx, 10*time.Second)
	assert.Equal(t, VerdictUnknown, verdict, "a cancelled probe defaults to Unknown rather than hanging")
	assert.Less(t, time.Since(start), 5*time.Second)
}
