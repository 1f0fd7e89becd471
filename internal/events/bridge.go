package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultChannel = "site_events"

type envelope struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// Bridge carries events between processes over redis pub/sub and replays
// them into a local Registry.
type Bridge struct {
	rdb      *redis.Client
	channel  string
	registry *Registry
	logger   *zap.Logger

	readyOnce sync.Once
	ready     chan struct{}

	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewBridge(rdb *redis.Client, registry *Registry, logger *zap.Logger) *Bridge {
	return &Bridge{
		rdb:      rdb,
		channel:  DefaultChannel,
		registry: registry,
		logger:   logger.Named("bridge"),
		ready:    make(chan struct{}),

		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// Publish sends an event to every process running the bridge.
func (b *Bridge) Publish(ctx context.Context, name string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", name, err)
	}
	data, err := json.Marshal(envelope{Name: name, Payload: raw})
	if err != nil {
		return err
	}
	n, err := b.rdb.Publish(ctx, b.channel, data).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		b.logger.Warn("event published with no subscribers", zap.String("event", name))
	}
	return nil
}

// Ready is closed once Run holds an active subscription.
func (b *Bridge) Ready() <-chan struct{} {
	return b.ready
}

// Serve keeps Run alive until ctx is cancelled, waiting between restarts
// with exponential backoff.
func (b *Bridge) Serve(ctx context.Context) {
	backoff := b.minBackoff
	for {
		start := time.Now()
		err := b.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if time.Since(start) > b.maxBackoff {
			backoff = b.minBackoff
		}
		b.logger.Warn("event bridge stopped, restarting",
			zap.Error(err),
			zap.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff *= 2
		if backoff > b.maxBackoff {
			backoff = b.maxBackoff
		}
	}
}

// Run subscribes and dispatches until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.readyOnce.Do(func() { close(b.ready) })
	b.logger.Info("event bridge subscribed", zap.String("channel", b.channel))

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("drop malformed event", zap.Error(err))
				continue
			}
			b.registry.Emit(ctx, Event{Name: env.Name, Payload: env.Payload})
		case <-ctx.Done():
			return nil
		}
	}
}
