// Package cache provides caching for webhook idempotency and catalog lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var ErrNotFound = errors.New("key not found")

// Provider is the key/value store behind webhook deduplication and the
// category discount cache.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// SetIfAbsent stores value only when key is missing and reports whether
	// it did.
	SetIfAbsent(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
	MemorySize            int
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider(cfg.MemorySize)
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

func WebhookKey(source, eventID string) string {
	return fmt.Sprintf("webhook:%s:%s", source, eventID)
}

// CategoryDiscountsKey builds an order-independent key for a set of slugs.
func CategoryDiscountsKey(slugs []string) string {
	sorted := append([]string(nil), slugs...)
	sort.Strings(sorted)
	return "category-discounts:" + strings.Join(sorted, ",")
}

// GetJSON loads and decodes a cached value. A missing key returns ErrNotFound.
func GetJSON[T any](ctx context.Context, p Provider, key string) (T, error) {
	var out T
	raw, err := p.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("failed to decode cached value for %s: %w", key, err)
	}
	return out, nil
}

func SetJSON(ctx context.Context, p Provider, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value for %s: %w", key, err)
	}
	return p.Set(ctx, key, string(raw), ttl)
}
