package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/yashrajoria/distributor-backend/services/common/logger"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"go.uber.org/zap"
)

// Broker fans committed shipment batches out to live subscribers.
type Broker interface {
	EventPublisher
	// Subscribe returns a channel of events and a cancel func that must be
	// called once the subscriber goes away.
	Subscribe(ctx context.Context) (<-chan models.ShipmentEvent, func())
}

const subscriberBuffer = 16

// InProcessBroker delivers events to subscribers of this replica only.
type InProcessBroker struct {
	mu   sync.RWMutex
	subs map[chan models.ShipmentEvent]struct{}
}

func NewInProcessBroker() *InProcessBroker {
	return &InProcessBroker{subs: make(map[chan models.ShipmentEvent]struct{})}
}

func (b *InProcessBroker) Name() string { return "stream" }

// Publish never blocks: a subscriber with a full buffer misses the event.
func (b *InProcessBroker) Publish(ctx context.Context, event models.ShipmentEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
			logger.Warn(ctx, "Dropping shipment event for slow subscriber", zap.String("batch_id", event.BatchID))
		}
	}
	return nil
}

func (b *InProcessBroker) Subscribe(ctx context.Context) (<-chan models.ShipmentEvent, func()) {
	ch := make(chan models.ShipmentEvent, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the current number of live subscriptions.
func (b *InProcessBroker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// RedisBroker relays events through a Redis pub/sub channel so every replica
// sees every batch. Local delivery goes through an InProcessBroker.
type RedisBroker struct {
	client  redis.UniversalClient
	channel string
	local   *InProcessBroker
	pubsub  *redis.PubSub
	done    chan struct{}
}

// NewRedisBroker subscribes to channel and starts relaying to local
// subscribers until Close.
func NewRedisBroker(ctx context.Context, client redis.UniversalClient, channel string) *RedisBroker {
	b := &RedisBroker{
		client:  client,
		channel: channel,
		local:   NewInProcessBroker(),
		pubsub:  client.Subscribe(ctx, channel),
		done:    make(chan struct{}),
	}
	go b.relay()
	return b
}

func (b *RedisBroker) relay() {
	defer close(b.done)
	for msg := range b.pubsub.Channel() {
		var event models.ShipmentEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			logger.Log.Warn("Discarding malformed shipment event", zap.Error(err))
			continue
		}
		_ = b.local.Publish(context.Background(), event)
	}
}

func (b *RedisBroker) Name() string { return "redis-stream" }

func (b *RedisBroker) Publish(ctx context.Context, event models.ShipmentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context) (<-chan models.ShipmentEvent, func()) {
	return b.local.Subscribe(ctx)
}

// Close stops the relay.
func (b *RedisBroker) Close() error {
	err := b.pubsub.Close()
	<-b.done
	return err
}
