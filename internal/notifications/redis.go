package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"confide/internal/models"
	"confide/internal/observability"
)

// RedisBus is a Bus over Redis pub/sub, shared by every API node.
type RedisBus struct {
	rdb *redis.Client
}

// NewRedisBus creates a bus on the given client. A nil client makes every
// call a no-op.
func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

// Publish sends the JSON-encoded event on its topic channel.
func (b *RedisBus) Publish(ctx context.Context, event models.Event) error {
	if b.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	span, ctx := observability.StartRedisSpan(ctx, "publish")
	defer span.End()
	if err := b.rdb.Publish(ctx, event.Topic, payload).Err(); err != nil {
		span.SetError(err)
		return fmt.Errorf("publish %s: %w", event.Topic, err)
	}
	return nil
}

// Subscribe pattern-subscribes and delivers decoded events until ctx is
// done. It returns once Redis has confirmed the subscription.
func (b *RedisBus) Subscribe(ctx context.Context, handler Handler, patterns ...string) error {
	if b.rdb == nil {
		return nil
	}
	sub := b.rdb.PSubscribe(ctx, patterns...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("psubscribe %v: %w", patterns, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev models.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					observability.GlobalLogger.WarnContext(ctx, "dropping undecodable event",
						"channel", msg.Channel,
						"error", err,
					)
					continue
				}
				deliver(ctx, "redis", handler, ev)
			}
		}
	}()
	return nil
}
