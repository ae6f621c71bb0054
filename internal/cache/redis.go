package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "printstore:"
	redisDialTimeout = 5 * time.Second
)

// RedisProvider shares cached values and webhook claims across instances.
type RedisProvider struct {
	client *redis.Client
	prefix string
}

func NewRedisProvider(connectionString string) (*RedisProvider, error) {
	opts, err := redis.ParseURL(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis connection string: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = redisDialTimeout
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisProvider{client: client, prefix: redisKeyPrefix}, nil
}

func (p *RedisProvider) Get(ctx context.Context, key string) (string, error) {
	val, err := p.client.Get(ctx, p.key(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", ErrNotFound
	case err != nil:
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// Set stores value; a non-positive ttl keeps it until deleted.
func (p *RedisProvider) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := p.client.Set(ctx, p.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// SetIfAbsent claims key atomically with SET NX.
func (p *RedisProvider) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	ok, err := p.client.SetNX(ctx, p.key(key), value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

func (p *RedisProvider) Delete(ctx context.Context, key string) error {
	return p.client.Del(ctx, p.key(key)).Err()
}

func (p *RedisProvider) Close() error {
	return p.client.Close()
}

func (p *RedisProvider) key(key string) string {
	return p.prefix + key
}
