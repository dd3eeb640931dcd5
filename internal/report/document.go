package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"TokenTracker/internal/calculator"
	"TokenTracker/internal/model"
)

// ErrNoReport is returned by LoadDocument when no report has been written yet.
var ErrNoReport = errors.New("report: no analysis report found")

// Metadata identifies the run that produced a Document.
type Metadata struct {
	GeneratedAt  time.Time `json:"generated_at"`
	Token        string    `json:"token"`
	Currency     string    `json:"currency"`
	AnalysisDays int       `json:"analysis_days"`
	RunID        string    `json:"run_id"`
}

// SpikeSummary condenses the detected events.
// The largest increase and decrease consider price events only.
type SpikeSummary struct {
	TotalSpikes          int     `json:"total_spikes"`
	PriceSpikes          int     `json:"price_spikes"`
	VolumeSpikes         int     `json:"volume_spikes"`
	LargestPriceIncrease float64 `json:"largest_price_increase"`
	LargestPriceDecrease float64 `json:"largest_price_decrease"`
}

// Document is the JSON analysis report.
type Document struct {
	Metadata     Metadata                 `json:"metadata"`
	Statistics   *model.StatisticsSummary `json:"statistics"`
	SpikeSummary SpikeSummary             `json:"spike_summary"`
	Spikes       []model.SpikeEvent       `json:"spikes,omitempty"`
}

// BuildDocument assembles the report for one completed analysis.
func BuildDocument(meta Metadata, stats *model.StatisticsSummary, spikes []model.SpikeEvent) *Document {
	if meta.AnalysisDays == 0 && stats != nil {
		meta.AnalysisDays = stats.Period.Days
	}
	return &Document{
		Metadata:     meta,
		Statistics:   stats,
		SpikeSummary: Summarize(spikes),
		Spikes:       spikes,
	}
}

// Summarize counts spikes per metric and finds the extreme price moves.
func Summarize(spikes []model.SpikeEvent) SpikeSummary {
	price, volume := calculator.CountByMetric(spikes)
	sum := SpikeSummary{TotalSpikes: len(spikes), PriceSpikes: price, VolumeSpikes: volume}
	for _, s := range spikes {
		if s.Metric != model.MetricPrice {
			continue
		}
		if s.Direction == model.DirectionUp && s.ChangePct > sum.LargestPriceIncrease {
			sum.LargestPriceIncrease = s.ChangePct
		}
		if s.Direction == model.DirectionDown && s.ChangePct < sum.LargestPriceDecrease {
			sum.LargestPriceDecrease = s.ChangePct
		}
	}
	return sum
}

// LoadDocument reads a JSON report written by Writer.SaveJSONReport.
// Returns ErrNoReport if the file doesn't exist.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoReport
		}
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	return &doc, nil
}
