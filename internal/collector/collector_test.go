package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TokenTracker/internal/model"
)

func TestCollector_Collect(t *testing.T) {
	now := time.Date(2025, 4, 10, 15, 0, 0, 0, time.UTC)
	col := NewCollector(&MockFetcher{Now: now}, "kaito", "usd")

	data, err := col.Collect(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, "kaito", data.CoinID)
	require.NotNil(t, data.Chart)
	require.Len(t, data.Chart.Prices, 30)
	assert.Equal(t, time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC).UnixMilli(), data.Chart.Prices[29].Timestamp)
	assert.NotNil(t, data.Snapshot)
	assert.False(t, data.FetchedAt.IsZero())
}

func TestCollector_SnapshotFailureIsTolerated(t *testing.T) {
	col := NewCollector(&MockFetcher{SnapshotErr: errors.New("rate limited")}, "kaito", "usd")

	data, err := col.Collect(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, data.Snapshot)
	assert.Len(t, data.Chart.Prices, 5)
}

func TestCollector_ChartFailureFails(t *testing.T) {
	col := NewCollector(&MockFetcher{ChartErr: errors.New("boom")}, "kaito", "usd")

	_, err := col.Collect(context.Background(), 5)
	assert.EqualError(t, err, "boom")
}

func TestCollector_TestConnection(t *testing.T) {
	assert.NoError(t, NewCollector(&MockFetcher{}, "kaito", "usd").TestConnection(context.Background()))

	err := NewCollector(&MockFetcher{PingErr: errors.New("offline")}, "kaito", "usd").TestConnection(context.Background())
	assert.EqualError(t, err, "mock: offline")
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = value
	return nil
}

type countingFetcher struct {
	MockFetcher
	chartCalls int
}

func (c *countingFetcher) FetchMarketChart(ctx context.Context, coinID, vs string, days int) (*model.MarketChart, error) {
	c.chartCalls++
	return c.MockFetcher.FetchMarketChart(ctx, coinID, vs, days)
}

func TestCachedFetcher_ServesSecondCallFromCache(t *testing.T) {
	inner := &countingFetcher{MockFetcher: MockFetcher{Now: time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)}}
	cache := &memoryCache{}
	f := NewCachedFetcher(inner, cache, time.Minute)

	first, err := f.FetchMarketChart(context.Background(), "kaito", "usd", 7)
	require.NoError(t, err)
	second, err := f.FetchMarketChart(context.Background(), "kaito", "usd", 7)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.chartCalls)
	assert.Equal(t, first, second, "cached chart must round-trip exactly")
	assert.Contains(t, cache.entries, "tracker:chart:kaito:usd:7")
	assert.Equal(t, "mock+cache", f.Name())
}

func TestCachedFetcher_CacheErrorFallsThrough(t *testing.T) {
	inner := &countingFetcher{}
	f := NewCachedFetcher(inner, &memoryCache{getErr: errors.New("redis down")}, time.Minute)

	_, err := f.FetchMarketChart(context.Background(), "kaito", "usd", 3)
	require.NoError(t, err)
	_, err = f.FetchMarketChart(context.Background(), "kaito", "usd", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.chartCalls)
}

func TestCachedFetcher_Snapshot(t *testing.T) {
	cache := &memoryCache{}
	f := NewCachedFetcher(&MockFetcher{Snapshot: &model.LiveSnapshot{MarketCap: 7}}, cache, time.Minute)

	snap, err := f.FetchSnapshot(context.Background(), "kaito", "usd")
	require.NoError(t, err)
	assert.Equal(t, 7.0, snap.MarketCap)

	f.Fetcher = &MockFetcher{SnapshotErr: errors.New("should not be called")}
	snap, err = f.FetchSnapshot(context.Background(), "kaito", "usd")
	require.NoError(t, err)
	assert.Equal(t, 7.0, snap.MarketCap)
}
