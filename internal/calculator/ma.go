package calculator

import (
	"github.com/guregu/null/v5"
)

// MAWindow is the trailing window, in records, of the price and volume moving averages.
const MAWindow = 7

// TrailingMean computes, for every index i, the mean of the valid values among
// the window records ending at i. The window shrinks near the start of the
// series, so the first result equals the first value. An index whose window
// holds no valid value yields an absent result.
func TrailingMean(values []null.Float, window int) []null.Float {
	if window <= 0 {
		window = 1
	}
	out := make([]null.Float, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		sum := 0.0
		n := 0
		for j := start; j <= i; j++ {
			if values[j].Valid {
				sum += values[j].Float64
				n++
			}
		}
		if n > 0 {
			out[i] = null.FloatFrom(sum / float64(n))
		}
	}
	return out
}
