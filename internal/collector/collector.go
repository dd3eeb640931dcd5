package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"TokenTracker/internal/model"
)

// Collector fetches everything one analysis run needs for a single token.
type Collector struct {
	Fetcher    Fetcher
	CoinID     string
	VsCurrency string
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, coinID, vsCurrency string) *Collector {
	return &Collector{Fetcher: fetcher, CoinID: coinID, VsCurrency: vsCurrency}
}

// TestConnection pings the data source.
func (c *Collector) TestConnection(ctx context.Context) error {
	if err := c.Fetcher.Ping(ctx); err != nil {
		return fmt.Errorf("%s: %w", c.Fetcher.Name(), err)
	}
	return nil
}

// Collect fetches the historical chart and the live snapshot concurrently.
// A chart failure fails the collection; a snapshot failure is logged and
// leaves MarketData.Snapshot nil.
func (c *Collector) Collect(ctx context.Context, days int) (*model.MarketData, error) {
	data := &model.MarketData{CoinID: c.CoinID, VsCurrency: c.VsCurrency}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		chart, err := c.Fetcher.FetchMarketChart(gctx, c.CoinID, c.VsCurrency, days)
		if err != nil {
			return err
		}
		data.Chart = chart
		log.Info().Str("coin", c.CoinID).Int("points", len(chart.Prices)).Msg("fetched market chart")
		return nil
	})
	g.Go(func() error {
		snap, err := c.Fetcher.FetchSnapshot(gctx, c.CoinID, c.VsCurrency)
		if err != nil {
			log.Warn().Err(err).Str("coin", c.CoinID).Msg("live snapshot unavailable, continuing without it")
			return nil
		}
		data.Snapshot = snap
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data.FetchedAt = time.Now()
	return data, nil
}
