package model

import (
	"time"

	"github.com/guregu/null/v5"
)

// DateLayout is the calendar-day format used for dates in records, events and reports.
const DateLayout = "2006-01-02"

// DailyRecord is one aligned row of the processed market series.
// Optional values are null.Float; an invalid value means "absent", never zero.
type DailyRecord struct {
	Timestamp       time.Time  `json:"timestamp"`
	Price           float64    `json:"price"`
	Volume          null.Float `json:"volume"`
	MarketCap       null.Float `json:"market_cap"`
	PriceChange     null.Float `json:"price_change"`
	PriceChangePct  null.Float `json:"price_change_pct"`
	VolumeChangePct null.Float `json:"volume_change_pct"`
	PriceMA7        null.Float `json:"price_ma7"`
	VolumeMA7       null.Float `json:"volume_ma7"`
}

// Date returns the UTC calendar day of the record.
func (r DailyRecord) Date() string {
	return r.Timestamp.UTC().Format(DateLayout)
}
