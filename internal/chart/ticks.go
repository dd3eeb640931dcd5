package chart

import (
	"fmt"

	"gonum.org/v1/plot"
)

// dateTicks labels an index axis with the dates of the plotted records.
type dateTicks struct {
	dates []string
}

func (t dateTicks) Ticks(min, max float64) []plot.Tick {
	n := len(t.dates)
	if n == 0 {
		return nil
	}
	step := n / 8
	if step < 1 {
		step = 1
	}
	var ticks []plot.Tick
	for i := 0; i < n; i++ {
		v := float64(i)
		if v < min || v > max {
			continue
		}
		label := ""
		if i%step == 0 {
			label = t.dates[i]
		}
		ticks = append(ticks, plot.Tick{Value: v, Label: label})
	}
	return ticks
}

// millionsTicks formats a currency axis as $1.5M.
type millionsTicks struct{}

func (millionsTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = fmt.Sprintf("$%.1fM", ticks[i].Value/1e6)
		}
	}
	return ticks
}
