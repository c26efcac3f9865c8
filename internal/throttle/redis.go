package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "contracts:cooldown:"

// RedisStore shares cooldowns between daemon replicas. A paused credential is a
// key with a TTL equal to the cooldown.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(k string) string {
	return fmt.Sprintf("%s%s", r.prefix, k)
}

// Pause sets the cooldown key. SET with an expiry overwrites, so a second pause restarts the window.
func (r *RedisStore) Pause(ctx context.Context, key string, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.key(key), "1", d).Err()
}

// Paused reports whether the cooldown key still exists.
func (r *RedisStore) Paused(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Ping checks connectivity at startup.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
