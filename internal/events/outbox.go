package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Outbox forwards events to an external feed.
type Outbox interface {
	Push(ctx context.Context, event Event) error
}

// DefaultPushTimeout bounds one LPUSH so an unreachable Redis cannot hold up the
// request that produced the event.
const DefaultPushTimeout = 500 * time.Millisecond

// RedisOutbox appends JSON-encoded events to a Redis list with LPUSH. Consumers
// read the oldest entry with BRPOP.
type RedisOutbox struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

// NewRedisOutbox builds an outbox writing to key.
func NewRedisOutbox(client *redis.Client, key string) *RedisOutbox {
	return &RedisOutbox{client: client, key: key, timeout: DefaultPushTimeout}
}

// Push enqueues the event. A nil client or empty key disables the outbox.
func (o *RedisOutbox) Push(ctx context.Context, event Event) error {
	if o == nil || o.client == nil || o.key == "" {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	return o.client.LPush(ctx, o.key, body).Err()
}

// NopOutbox discards events; used in memory mode without Redis.
type NopOutbox struct{}

func (NopOutbox) Push(context.Context, Event) error { return nil }
