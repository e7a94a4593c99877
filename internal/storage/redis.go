package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-based implementation of ShareStore
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a new Redis-based share store
func NewRedisStore(address, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisStore(client, ttl), nil
}

func newRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		prefix: "betabet:",
	}
}

func (r *RedisStore) idKey(id string) string {
	return r.prefix + "id:" + id
}

func (r *RedisStore) textKey(text string) string {
	return r.prefix + "text:" + text
}

// Put saves text under id, with the reverse index in the same transaction
func (r *RedisStore) Put(id, text string) error {
	ctx := context.Background()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.idKey(id), text, r.ttl)
		pipe.Set(ctx, r.textKey(text), id, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store share %s: %w", id, err)
	}

	return nil
}

// Get retrieves the text stored under id
func (r *RedisStore) Get(id string) (string, bool) {
	ctx := context.Background()
	key := r.idKey(id)

	text, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}

	// Refresh TTL on access, for both directions
	r.expire(ctx, key, r.textKey(text))

	return text, true
}

// LookupByText retrieves the id of an already stored text
func (r *RedisStore) LookupByText(text string) (string, bool) {
	ctx := context.Background()
	key := r.textKey(text)

	id, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		return "", false
	}

	r.expire(ctx, key, r.idKey(id))

	return id, true
}

// Touch updates the TTL for a share and its reverse index
func (r *RedisStore) Touch(id string) error {
	if r.ttl <= 0 {
		return nil
	}
	ctx := context.Background()

	text, err := r.client.Get(ctx, r.idKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to touch share %s: %w", id, err)
	}

	r.expire(ctx, r.idKey(id), r.textKey(text))
	return nil
}

func (r *RedisStore) expire(ctx context.Context, keys ...string) {
	if r.ttl <= 0 {
		return
	}
	for _, key := range keys {
		r.client.Expire(ctx, key, r.ttl)
	}
}

// Cleanup is a no-op for Redis as TTL handles expiration
func (r *RedisStore) Cleanup() error {
	return nil
}

// Size returns the approximate number of stored shares
func (r *RedisStore) Size() int {
	ctx := context.Background()

	count := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"id:*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if iter.Err() != nil {
		return 0
	}
	return count
}

// Ping checks the Redis connection
func (r *RedisStore) Ping() error {
	return r.client.Ping(context.Background()).Err()
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}
