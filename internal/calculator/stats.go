package calculator

import (
	"errors"

	"TokenTracker/internal/model"
)

// ErrEmptySeries is returned by Summarize when called without records.
// Callers must skip aggregation when ProcessSeries produced nothing.
var ErrEmptySeries = errors.New("calculator: statistics require at least one record")

// Summarize derives the statistics summary of records, which must be non-empty
// and ascending. A non-nil snapshot is copied into the CurrentMarket block.
func Summarize(records []model.DailyRecord, snapshot *model.LiveSnapshot) (*model.StatisticsSummary, error) {
	if len(records) == 0 {
		return nil, ErrEmptySeries
	}

	first, last := records[0], records[len(records)-1]
	prices := make([]float64, len(records))
	var volumes []float64
	var volumeIdx []int
	for i, rec := range records {
		prices[i] = rec.Price
		if rec.Volume.Valid {
			volumes = append(volumes, rec.Volume.Float64)
			volumeIdx = append(volumeIdx, i)
		}
	}

	s := &model.StatisticsSummary{
		Period: model.PeriodStats{
			StartDate: first.Date(),
			EndDate:   last.Date(),
			Days:      len(records),
		},
	}

	high, low, _ := extremes(prices)
	avg := mean(prices)
	std := sampleStdDev(prices)
	s.Price = model.PriceStats{
		Current:   last.Price,
		High:      high,
		Low:       low,
		Average:   avg,
		Median:    median(prices),
		StdDev:    std,
		ChangeAbs: last.Price - first.Price,
	}
	if avg != 0 {
		s.Price.Volatility = std / avg * 100
	}
	if pct, ok := percentChange(first.Price, last.Price); ok {
		s.Price.ChangePct = pct
	}

	if len(volumes) > 0 {
		vHigh, vLow, hi := extremes(volumes)
		s.Volume = model.VolumeStats{
			Total:        sum(volumes),
			AverageDaily: mean(volumes),
			MedianDaily:  median(volumes),
			Highest:      vHigh,
			Lowest:       vLow,
			HighestDate:  records[volumeIdx[hi]].Date(),
		}
	}

	if snapshot != nil {
		snap := *snapshot
		s.CurrentMarket = &snap
	}
	return s, nil
}
