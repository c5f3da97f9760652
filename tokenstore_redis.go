package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const refreshKeyPrefix = "refresh:"

// RedisTokenStore keeps live refresh tokens in Redis instead of the primary
// database. Selected with TOKEN_STORE=redis.
type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(url string) (*RedisTokenStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisTokenStore{client: client}, nil
}

// SaveToken stores the token with no TTL: refresh tokens are revoked by
// deletion, never by expiry.
func (r *RedisTokenStore) SaveToken(ctx context.Context, token string) error {
	return r.client.Set(ctx, refreshKeyPrefix+token, time.Now().UTC().Format(time.RFC3339), 0).Err()
}

func (r *RedisTokenStore) TokenExists(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, refreshKeyPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisTokenStore) DeleteToken(ctx context.Context, token string) error {
	return r.client.Del(ctx, refreshKeyPrefix+token).Err()
}

func (r *RedisTokenStore) Close() error { return r.client.Close() }

func (r *RedisTokenStore) ping() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return r.client.Ping(ctx).Err() == nil
}
