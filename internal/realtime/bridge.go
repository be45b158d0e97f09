package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/angelmondragon/rosterhub-backend/internal/notifications"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
)

const (
	defaultRetryBase = 500 * time.Millisecond
	defaultRetryMax  = 10 * time.Second
)

// Broker is the cross-instance pub/sub transport, satisfied by pkg/redis.Client.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	PSubscribe(ctx context.Context, pattern string, handle func(channel string, payload []byte)) error
	NotificationChannel(ownerID string) string
}

// Bridge publishes inserts through the broker so every API instance can deliver them to
// its own hub.
type Bridge struct {
	broker Broker
	hub    *Hub
	logg   *logger.Logger

	retryBase time.Duration
	retryMax  time.Duration
}

// NewBridge wires the hub to the broker.
func NewBridge(broker Broker, hub *Hub, logg *logger.Logger) (*Bridge, error) {
	if broker == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "realtime broker required")
	}
	if hub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "realtime hub required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Bridge{
		broker:    broker,
		hub:       hub,
		logg:      logg,
		retryBase: defaultRetryBase,
		retryMax:  defaultRetryMax,
	}, nil
}

// Publish sends the item to every instance. When the broker is unavailable the item is
// still delivered to this process's subscribers and the error is returned.
func (b *Bridge) Publish(ctx context.Context, item notifications.Item) error {
	payload, err := json.Marshal(Event{Type: EventInserted, Data: item})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode realtime event")
	}
	if err := b.broker.Publish(ctx, b.broker.NotificationChannel(item.OwnerID), payload); err != nil {
		b.hub.deliver(item, sourceLocal)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish realtime event")
	}
	return nil
}

// Run relays broker messages into the hub until ctx is done. A lost or failed
// subscription is retried with capped exponential backoff.
func (b *Bridge) Run(ctx context.Context) error {
	pattern := b.broker.NotificationChannel("*")
	delay := b.retryBase
	for {
		started := time.Now()
		err := b.broker.PSubscribe(ctx, pattern, func(channel string, payload []byte) {
			b.handle(ctx, channel, payload)
		})
		if ctx.Err() != nil {
			return nil
		}
		// a subscription that stayed up past the cap starts the backoff over
		if time.Since(started) >= b.retryMax {
			delay = b.retryBase
		}
		b.logg.Error(b.logg.WithFields(ctx, map[string]any{
			"pattern":     pattern,
			"retry_in_ms": delay.Milliseconds(),
		}), "realtime relay subscription lost", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		delay = nextBackoff(delay, b.retryMax)
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func (b *Bridge) handle(ctx context.Context, channel string, payload []byte) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		b.logg.Error(b.logg.WithField(ctx, "channel", channel), "discarding malformed realtime event", err)
		return
	}
	if event.Type != EventInserted || event.Data.OwnerID == "" {
		b.logg.Warn(b.logg.WithFields(ctx, map[string]any{"channel": channel, "type": event.Type}), "ignoring realtime event")
		return
	}
	b.hub.deliver(event.Data, sourceRedis)
}
