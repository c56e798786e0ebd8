// Package cache wraps the Redis client with a small JSON object cache used for
// per-request user lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// New creates a new Redis client and verifies connectivity.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("platform/cache: ping: %w", err)
	}

	return client, nil
}

// ErrMiss indicates the key is absent from the cache.
var ErrMiss = errors.New("platform/cache: miss")

// Store is a TTL-bound JSON cache. A nil Store is a valid no-op so callers can
// run without Redis (tests, degraded mode).
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore constructs the cache helper.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Get unmarshals the cached value for key into target.
func (s *Store) Get(ctx context.Context, key string, target any) error {
	if s == nil || s.client == nil {
		return ErrMiss
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}

// Set stores value under key for the configured TTL.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	if s == nil || s.client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, s.ttl).Err()
}

// Delete drops the key, used on writes that invalidate cached reads.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if s == nil || s.client == nil || len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
