package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/seedotp/internal/pkg/goerror"
)

// DefaultRedisKey is the key used by the redis driver unless configured.
const DefaultRedisKey = "seedotp:seed"

// Redis stores the seed under a single key without expiry.
type Redis struct {
	client redis.UniversalClient
	key    string
}

// NewRedis wraps client. The store owns client and closes it on Close.
func NewRedis(client redis.UniversalClient, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key}
}

// Write implements Store.
func (r *Redis) Write(ctx context.Context, seed string) error {
	if err := r.client.Set(ctx, r.key, seed, 0).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %w", ErrStorage, err)
	}
	return nil
}

// Read implements Store.
func (r *Redis) Read(ctx context.Context) (string, error) {
	val, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", goerror.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: redis get: %w", ErrStorage, err)
	}

	return normalize(val)
}

// Close closes the redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
