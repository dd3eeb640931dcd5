package model

import (
	"time"

	"github.com/guregu/null/v5"
)

// SpikeKind tells which thresholds a spike event crossed.
type SpikeKind string

const (
	KindPrice          SpikeKind = "price"
	KindVolume         SpikeKind = "volume"
	KindPriceAndVolume SpikeKind = "price_and_volume"
)

// Label is the display title of the kind, e.g. "Price & Volume".
func (k SpikeKind) Label() string {
	switch k {
	case KindPrice:
		return "Price"
	case KindVolume:
		return "Volume"
	case KindPriceAndVolume:
		return "Price & Volume"
	}
	return string(k)
}

// Metric names the series that created a spike event.
type Metric string

const (
	MetricPrice  Metric = "price"
	MetricVolume Metric = "volume"
)

// Direction of the move. Volume spikes are always up.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// SpikeEvent is a day whose price or volume change exceeded a threshold.
//
// Price events carry the day's price as Value and the volume as context.
// Volume events carry the volume as Value and the price as context.
// A merged price_and_volume event keeps the price fields and records the
// volume change in VolumeChangePct.
type SpikeEvent struct {
	Timestamp       time.Time  `json:"timestamp"`
	Date            string     `json:"date"`
	Kind            SpikeKind  `json:"type"`
	Metric          Metric     `json:"metric"`
	Direction       Direction  `json:"direction"`
	ChangePct       float64    `json:"change_pct"`
	AbsoluteChange  float64    `json:"absolute_change"`
	Value           float64    `json:"value"`
	Price           null.Float `json:"price"`
	Volume          null.Float `json:"volume"`
	VolumeChangePct null.Float `json:"volume_change_pct"`
}
