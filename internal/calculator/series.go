package calculator

import (
	"sort"
	"time"

	"github.com/guregu/null/v5"

	"TokenTracker/internal/model"
)

// ProcessSeries aligns the raw chart into one DailyRecord per price point,
// ascending by timestamp, and fills in the change and moving-average columns.
//
// Volume and market cap are joined on exact timestamp equality; a price point
// without a matching timestamp gets an absent value. An empty price series
// yields nil, which callers treat as "no data".
func ProcessSeries(chart model.MarketChart) []model.DailyRecord {
	if len(chart.Prices) == 0 {
		return nil
	}

	prices := append([]model.RawPoint(nil), chart.Prices...)
	sort.SliceStable(prices, func(i, j int) bool { return prices[i].Timestamp < prices[j].Timestamp })

	volumes := indexByTimestamp(chart.TotalVolumes)
	caps := indexByTimestamp(chart.MarketCaps)

	records := make([]model.DailyRecord, len(prices))
	for i, p := range prices {
		rec := model.DailyRecord{
			Timestamp: time.UnixMilli(p.Timestamp).UTC(),
			Price:     p.Value,
		}
		if v, ok := volumes[p.Timestamp]; ok {
			rec.Volume = null.FloatFrom(v)
		}
		if v, ok := caps[p.Timestamp]; ok {
			rec.MarketCap = null.FloatFrom(v)
		}
		records[i] = rec
	}

	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], &records[i]
		cur.PriceChange = null.FloatFrom(cur.Price - prev.Price)
		if pct, ok := percentChange(prev.Price, cur.Price); ok {
			cur.PriceChangePct = null.FloatFrom(pct)
		}
		if prev.Volume.Valid && cur.Volume.Valid {
			if pct, ok := percentChange(prev.Volume.Float64, cur.Volume.Float64); ok {
				cur.VolumeChangePct = null.FloatFrom(pct)
			}
		}
	}

	priceCol := make([]null.Float, len(records))
	volumeCol := make([]null.Float, len(records))
	for i, rec := range records {
		priceCol[i] = null.FloatFrom(rec.Price)
		volumeCol[i] = rec.Volume
	}
	priceMA := TrailingMean(priceCol, MAWindow)
	volumeMA := TrailingMean(volumeCol, MAWindow)
	for i := range records {
		records[i].PriceMA7 = priceMA[i]
		records[i].VolumeMA7 = volumeMA[i]
	}

	return records
}

// indexByTimestamp builds the join lookup for a series. A repeated timestamp
// keeps its last value.
func indexByTimestamp(points []model.RawPoint) map[int64]float64 {
	idx := make(map[int64]float64, len(points))
	for _, p := range points {
		idx[p.Timestamp] = p.Value
	}
	return idx
}
