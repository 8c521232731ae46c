package p2p

import (
	"context"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
)

const inboundQueueSize = 64

// Messaging is the gossipsub capability the application layer consumes: one
// topic, fire-and-forget publishing, and a bounded inbound queue. Messages
// arriving while the queue is full are dropped with a log line rather than
// blocking the event loop.
type Messaging struct {
	ps      *pubsub.PubSub
	topic   *pubsub.Topic
	sub     *pubsub.Subscription
	inbound chan []byte
	cancel  context.CancelFunc
}

func NewMessaging(ctx context.Context, h host.Host, topicName string) (*Messaging, error) {
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		zlog.Sugar().Errorf("Failed to create gossipsub: %v", err)
		return nil, err
	}
	topic, err := ps.Join(topicName)
	if err != nil {
		zlog.Sugar().Errorf("Failed to join topic: %v", err)
		return nil, err
	}
	sub, err := topic.Subscribe()
	if err != nil {
		topic.Close()
		zlog.Sugar().Errorf("Failed to subscribe to topic: %v", err)
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m := &Messaging{
		ps:      ps,
		topic:   topic,
		sub:     sub,
		inbound: make(chan []byte, inboundQueueSize),
		cancel:  cancel,
	}
	go m.readLoop(loopCtx, h)
	return m, nil
}

func (m *Messaging) readLoop(ctx context.Context, h host.Host) {
	for {
		msg, err := m.sub.Next(ctx)
		if err != nil {
			return
		}
		if msg.ReceivedFrom == h.ID() {
			continue
		}
		select {
		case m.inbound <- msg.Data:
		default:
			zlog.Sugar().Warnf("inbound message queue full, dropping message from %s", msg.ReceivedFrom)
		}
	}
}

// Publish sends the payload to all peers subscribed to the topic.
func (m *Messaging) Publish(ctx context.Context, payload []byte) error {
	if err := m.topic.Publish(ctx, payload); err != nil {
		zlog.Sugar().Errorf("Failed to publish message: %v", err)
		return err
	}
	return nil
}

// Inbound yields payloads received on the topic.
func (m *Messaging) Inbound() <-chan []byte {
	return m.inbound
}

func (m *Messaging) Close() {
	m.cancel()
	m.sub.Cancel()
	m.topic.Close()
}
