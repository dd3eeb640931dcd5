package collector

import (
	"context"

	"TokenTracker/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	FetchMarketChart(ctx context.Context, coinID, vsCurrency string, days int) (*model.MarketChart, error)
	FetchSnapshot(ctx context.Context, coinID, vsCurrency string) (*model.LiveSnapshot, error)
	Ping(ctx context.Context) error
	Name() string
}
