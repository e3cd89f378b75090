package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss reports an absent key. It is a distinct condition, never a
// transport failure; callers fall through to the database on it.
var ErrMiss = errors.New("cache miss")

// Cache is the key/value surface the services program against: Redis in
// production, Memory in tests.
type Cache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string, out any) error
	Delete(ctx context.Context, keys ...string) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

type Redis struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Redis { return &Redis{rdb: rdb} }

// hexKey turns a logical key into the stored key. Everything on the wire to
// the cache is hex so logical keys never collide with pub/sub topic names or
// fight over separator characters.
func hexKey(key string) string {
	return hex.EncodeToString([]byte(key))
}

func (c *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	buf, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return c.rdb.Set(ctx, hexKey(key), buf, ttl).Err()
}

func (c *Redis) Get(ctx context.Context, key string, out any) error {
	buf, err := c.rdb.Get(ctx, hexKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return err
	}
	return json.Unmarshal(buf, out)
}

func (c *Redis) Delete(ctx context.Context, keys ...string) error {
	stored := make([]string, len(keys))
	for i, k := range keys {
		stored[i] = hexKey(k)
	}
	return c.rdb.Del(ctx, stored...).Err()
}

// TTL reports the remaining lifetime of a key; ErrMiss if absent.
func (c *Redis) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := c.rdb.TTL(ctx, hexKey(key)).Result()
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, ErrMiss
	}
	return d, nil
}
