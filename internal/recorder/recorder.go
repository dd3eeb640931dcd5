package recorder

import (
	"time"

	"TokenTracker/internal/model"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusNoData = "no_data"
	StatusFailed = "failed"
)

// RunRecord summarises one analysis run.
type RunRecord struct {
	RunID           string    `json:"run_id"`
	StartedAt       time.Time `json:"started_at"`
	Token           string    `json:"token"`
	Currency        string    `json:"currency"`
	Days            int       `json:"days"`
	PriceThreshold  float64   `json:"price_threshold"`
	VolumeThreshold float64   `json:"volume_threshold"`
	Records         int       `json:"records"`
	Spikes          int       `json:"spikes"`
	CurrentPrice    float64   `json:"current_price"`
	ChangePct       float64   `json:"change_pct"`
	Volatility      float64   `json:"volatility"`
	Status          string    `json:"status"`
	Error           string    `json:"error,omitempty"`
}

// Recorder persists run history and detected spikes.
type Recorder interface {
	RecordRun(run *RunRecord) error
	RecordSpikes(runID string, spikes []model.SpikeEvent) error
	RecentRuns(limit int) ([]RunRecord, error)
	Close() error
}
