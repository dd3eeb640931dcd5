package collector

import (
	"context"
	"math"
	"time"

	"TokenTracker/internal/model"
)

// MockFetcher returns controllable fixed data for development, demos and tests.
type MockFetcher struct {
	Price    float64
	Chart    *model.MarketChart
	Snapshot *model.LiveSnapshot
	Now      time.Time

	ChartErr    error
	SnapshotErr error
	PingErr     error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchMarketChart(_ context.Context, _, _ string, days int) (*model.MarketChart, error) {
	if m.ChartErr != nil {
		return nil, m.ChartErr
	}
	if m.Chart != nil {
		return m.Chart, nil
	}
	return generateMockChart(m.basePrice(), days, m.now()), nil
}

func (m *MockFetcher) FetchSnapshot(_ context.Context, _, _ string) (*model.LiveSnapshot, error) {
	if m.SnapshotErr != nil {
		return nil, m.SnapshotErr
	}
	if m.Snapshot != nil {
		return m.Snapshot, nil
	}
	return &model.LiveSnapshot{
		CurrentPrice:          m.basePrice(),
		MarketCap:             m.basePrice() * 241_388_889,
		FullyDilutedValuation: m.basePrice() * 1_000_000_000,
		CirculatingSupply:     241_388_889,
		TotalSupply:           1_000_000_000,
		MaxSupply:             1_000_000_000,
		Change24h:             2.4,
		Change7d:              -6.1,
		Change14d:             11.8,
		Change30d:             23.5,
	}, nil
}

func (m *MockFetcher) Ping(_ context.Context) error { return m.PingErr }

func (m *MockFetcher) basePrice() float64 {
	if m.Price > 0 {
		return m.Price
	}
	return 1.5
}

func (m *MockFetcher) now() time.Time {
	if !m.Now.IsZero() {
		return m.Now
	}
	return time.Now()
}

// generateMockChart builds a deterministic daily series ending at midnight UTC
// of now. A price jump every tenth day and a volume surge every seventh day
// give the demo something to detect.
func generateMockChart(basePrice float64, days int, now time.Time) *model.MarketChart {
	if days <= 0 {
		return &model.MarketChart{}
	}
	end := now.UTC().Truncate(24 * time.Hour)
	chart := &model.MarketChart{
		Prices:       make([]model.RawPoint, days),
		TotalVolumes: make([]model.RawPoint, days),
		MarketCaps:   make([]model.RawPoint, days),
	}
	price := basePrice
	for i := 0; i < days; i++ {
		ts := end.AddDate(0, 0, i-days+1).UnixMilli()
		price *= 1 + 0.02*math.Sin(float64(i))
		if i > 0 && i%10 == 0 {
			price *= 1.15
		}
		volume := 40_000_000 * (1 + 0.1*math.Cos(float64(i)))
		if i > 0 && i%7 == 0 {
			volume *= 1.8
		}
		chart.Prices[i] = model.RawPoint{Timestamp: ts, Value: price}
		chart.TotalVolumes[i] = model.RawPoint{Timestamp: ts, Value: volume}
		chart.MarketCaps[i] = model.RawPoint{Timestamp: ts, Value: price * 241_388_889}
	}
	return chart
}
