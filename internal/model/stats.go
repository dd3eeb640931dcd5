package model

// StatisticsSummary is the aggregate view over one completed analysis.
type StatisticsSummary struct {
	Period        PeriodStats   `json:"period"`
	Price         PriceStats    `json:"price"`
	Volume        VolumeStats   `json:"volume"`
	CurrentMarket *LiveSnapshot `json:"current_market,omitempty"`
}

// PeriodStats describes the analysed time span.
type PeriodStats struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Days      int    `json:"days"`
}

// PriceStats holds price extremes, central tendency and dispersion.
type PriceStats struct {
	Current    float64 `json:"current"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Average    float64 `json:"average"`
	Median     float64 `json:"median"`
	StdDev     float64 `json:"std_dev"`
	Volatility float64 `json:"volatility"` // StdDev / Average * 100
	ChangePct  float64 `json:"change_pct"`
	ChangeAbs  float64 `json:"change_abs"`
}

// VolumeStats holds traded volume aggregates.
type VolumeStats struct {
	Total        float64 `json:"total"`
	AverageDaily float64 `json:"average_daily"`
	MedianDaily  float64 `json:"median_daily"`
	Highest      float64 `json:"highest"`
	Lowest       float64 `json:"lowest"`
	HighestDate  string  `json:"highest_date"`
}
