package calculator

import (
	"math"
	"sort"
)

// extremes returns the highest and lowest value and the index of the first highest.
// values must be non-empty.
func extremes(values []float64) (high, low float64, highIdx int) {
	high = math.Inf(-1)
	low = math.Inf(1)
	for i, v := range values {
		if v > high {
			high = v
			highIdx = i
		}
		if v < low {
			low = v
		}
	}
	return high, low, highIdx
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// sampleStdDev is the standard deviation with Bessel's correction (n-1).
// Fewer than two values have no spread and yield 0.
func sampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	m := mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// percentChange returns (cur-prev)/prev*100, or false when prev is zero.
func percentChange(prev, cur float64) (float64, bool) {
	if prev == 0 {
		return 0, false
	}
	return (cur - prev) / prev * 100, true
}
