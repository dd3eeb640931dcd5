package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// RawPoint is one [timestamp_ms, value] pair of a market chart series.
type RawPoint struct {
	Timestamp int64
	Value     float64
}

// UnmarshalJSON decodes the two-element array form used by the market chart API.
func (p *RawPoint) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode point: %w", err)
	}
	if len(pair) < 2 {
		return fmt.Errorf("decode point: expected [timestamp, value], got %d elements", len(pair))
	}
	p.Timestamp = int64(pair[0])
	p.Value = pair[1]
	return nil
}

// MarshalJSON encodes the point back into its array form.
func (p RawPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{float64(p.Timestamp), p.Value})
}

// MarketChart holds the three independent historical series of one token.
// The series are not guaranteed to share timestamps or length.
type MarketChart struct {
	Prices       []RawPoint `json:"prices"`
	TotalVolumes []RawPoint `json:"total_volumes"`
	MarketCaps   []RawPoint `json:"market_caps"`
}

// LiveSnapshot is a point-in-time view of the token's market data.
// Fields missing upstream are left at zero.
type LiveSnapshot struct {
	CurrentPrice          float64 `json:"current_price"`
	MarketCap             float64 `json:"market_cap"`
	FullyDilutedValuation float64 `json:"fully_diluted_valuation"`
	CirculatingSupply     float64 `json:"circulating_supply"`
	TotalSupply           float64 `json:"total_supply"`
	MaxSupply             float64 `json:"max_supply"`
	Change24h             float64 `json:"change_24h"`
	Change7d              float64 `json:"change_7d"`
	Change14d             float64 `json:"change_14d"`
	Change30d             float64 `json:"change_30d"`
	Change1y              float64 `json:"change_1y"`
}

// MarketData bundles everything fetched for one analysis run.
type MarketData struct {
	CoinID     string
	VsCurrency string
	Chart      *MarketChart
	Snapshot   *LiveSnapshot // nil when the snapshot fetch failed
	FetchedAt  time.Time
}
