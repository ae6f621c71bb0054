package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/printstore/printstore/internal/cache"
	"github.com/printstore/printstore/internal/catalog"
	"github.com/printstore/printstore/internal/logging"
)

const defaultDiscountCacheTTL = 5 * time.Minute

// CachedDiscountLookup serves category discounts from the cache provider and
// falls back to the wrapped lookup on a miss. Cache failures never fail the
// lookup.
type CachedDiscountLookup struct {
	lookup   catalog.CategoryDiscountLookup
	provider cache.Provider
	ttl      time.Duration
	logger   *slog.Logger
}

func NewCachedDiscountLookup(lookup catalog.CategoryDiscountLookup, provider cache.Provider, ttl time.Duration, logger *slog.Logger) *CachedDiscountLookup {
	if ttl <= 0 {
		ttl = defaultDiscountCacheTTL
	}
	return &CachedDiscountLookup{lookup: lookup, provider: provider, ttl: ttl, logger: logger}
}

func (c *CachedDiscountLookup) DiscountsBySlugs(ctx context.Context, slugs []string) (map[string]float64, error) {
	if c.provider == nil || len(slugs) == 0 {
		return c.lookup.DiscountsBySlugs(ctx, slugs)
	}

	logger := logging.FromContext(ctx, c.logger)
	key := cache.CategoryDiscountsKey(slugs)

	cached, err := cache.GetJSON[map[string]float64](ctx, c.provider, key)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		logger.Warn("category discount cache read failed", "error", err)
	}

	discounts, err := c.lookup.DiscountsBySlugs(ctx, slugs)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, c.provider, key, discounts, c.ttl); err != nil {
		logger.Warn("category discount cache write failed", "error", err)
	}
	return discounts, nil
}
