package calculator

import (
	"math"
	"sort"

	"github.com/guregu/null/v5"

	"TokenTracker/internal/model"
)

// Thresholds are the percentage changes a day must strictly exceed to spike.
type Thresholds struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

// DetectSpikes scans records for price moves with |change| > t.Price and
// volume surges with change > t.Volume.
//
// A volume surge on the calendar day of a not yet merged price spike upgrades
// that event to price_and_volume instead of creating a second event. Records
// with absent change fields never spike. The result is ascending by timestamp.
func DetectSpikes(records []model.DailyRecord, t Thresholds) []model.SpikeEvent {
	var spikes []model.SpikeEvent
	priceByDate := make(map[string][]int)

	for _, rec := range records {
		if !rec.PriceChangePct.Valid {
			continue
		}
		pct := rec.PriceChangePct.Float64
		if math.Abs(pct) <= t.Price {
			continue
		}
		dir := model.DirectionDown
		if pct > 0 {
			dir = model.DirectionUp
		}
		date := rec.Date()
		spikes = append(spikes, model.SpikeEvent{
			Timestamp:      rec.Timestamp,
			Date:           date,
			Kind:           model.KindPrice,
			Metric:         model.MetricPrice,
			Direction:      dir,
			ChangePct:      pct,
			AbsoluteChange: rec.PriceChange.ValueOrZero(),
			Value:          rec.Price,
			Price:          null.FloatFrom(rec.Price),
			Volume:         rec.Volume,
		})
		priceByDate[date] = append(priceByDate[date], len(spikes)-1)
	}

	for i, rec := range records {
		if !rec.VolumeChangePct.Valid {
			continue
		}
		pct := rec.VolumeChangePct.Float64
		if pct <= t.Volume {
			continue
		}
		date := rec.Date()
		if idx, ok := unmergedPriceSpike(spikes, priceByDate[date]); ok {
			spikes[idx].Kind = model.KindPriceAndVolume
			spikes[idx].VolumeChangePct = null.FloatFrom(pct)
			continue
		}
		// Zero when the previous volume is unknown.
		absChange := 0.0
		if i > 0 && records[i-1].Volume.Valid && rec.Volume.Valid {
			absChange = rec.Volume.Float64 - records[i-1].Volume.Float64
		}
		spikes = append(spikes, model.SpikeEvent{
			Timestamp:      rec.Timestamp,
			Date:           date,
			Kind:           model.KindVolume,
			Metric:         model.MetricVolume,
			Direction:      model.DirectionUp,
			ChangePct:      pct,
			AbsoluteChange: absChange,
			Value:          rec.Volume.Float64,
			Price:          null.FloatFrom(rec.Price),
			Volume:         rec.Volume,
		})
	}

	sort.SliceStable(spikes, func(i, j int) bool {
		return spikes[i].Timestamp.Before(spikes[j].Timestamp)
	})
	return spikes
}

func unmergedPriceSpike(spikes []model.SpikeEvent, candidates []int) (int, bool) {
	for _, idx := range candidates {
		if spikes[idx].Kind == model.KindPrice {
			return idx, true
		}
	}
	return 0, false
}

// CountByMetric returns how many events each metric created.
func CountByMetric(spikes []model.SpikeEvent) (price, volume int) {
	for _, s := range spikes {
		switch s.Metric {
		case model.MetricPrice:
			price++
		case model.MetricVolume:
			volume++
		}
	}
	return price, volume
}
