package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"TokenTracker/internal/model"
)

// Cache stores raw API responses between runs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedFetcher serves market charts and snapshots from a Cache when possible
// and falls through to the wrapped Fetcher otherwise. Cache failures are
// logged and never fail a fetch.
type CachedFetcher struct {
	Fetcher Fetcher
	Cache   Cache
	TTL     time.Duration
}

// NewCachedFetcher wraps f with cache c.
func NewCachedFetcher(f Fetcher, c Cache, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{Fetcher: f, Cache: c, TTL: ttl}
}

func (c *CachedFetcher) Name() string { return c.Fetcher.Name() + "+cache" }

func (c *CachedFetcher) Ping(ctx context.Context) error { return c.Fetcher.Ping(ctx) }

func (c *CachedFetcher) FetchMarketChart(ctx context.Context, coinID, vsCurrency string, days int) (*model.MarketChart, error) {
	key := fmt.Sprintf("tracker:chart:%s:%s:%d", coinID, vsCurrency, days)
	var chart model.MarketChart
	if c.load(ctx, key, &chart) {
		return &chart, nil
	}
	fresh, err := c.Fetcher.FetchMarketChart(ctx, coinID, vsCurrency, days)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, fresh)
	return fresh, nil
}

func (c *CachedFetcher) FetchSnapshot(ctx context.Context, coinID, vsCurrency string) (*model.LiveSnapshot, error) {
	key := fmt.Sprintf("tracker:snapshot:%s:%s", coinID, vsCurrency)
	var snap model.LiveSnapshot
	if c.load(ctx, key, &snap) {
		return &snap, nil
	}
	fresh, err := c.Fetcher.FetchSnapshot(ctx, coinID, vsCurrency)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, fresh)
	return fresh, nil
}

func (c *CachedFetcher) load(ctx context.Context, key string, out any) bool {
	data, ok, err := c.Cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache entry undecodable, refetching")
		return false
	}
	log.Debug().Str("key", key).Msg("cache hit")
	return true
}

func (c *CachedFetcher) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := c.Cache.Set(ctx, key, data, c.TTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
