// ABOUTME: Redis pub/sub relay for live-feed messages
// ABOUTME: Publishes each envelope on a configured channel via go-redis

package relay

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/2389/wadash/internal/store"
)

// RedisRelay publishes envelopes to a Redis channel.
type RedisRelay struct {
	rdb     *redis.Client
	channel string
}

func NewRedisRelay(rdb *redis.Client, channel string) *RedisRelay {
	return &RedisRelay{rdb: rdb, channel: channel}
}

func (r *RedisRelay) Relay(ctx context.Context, msg *store.Message) error {
	b, err := encode(msg)
	if err != nil {
		return err
	}
	if err := r.rdb.Publish(ctx, r.channel, b).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", r.channel, err)
	}
	return nil
}

func (r *RedisRelay) Close() error {
	return r.rdb.Close()
}

var _ Relay = (*RedisRelay)(nil)
