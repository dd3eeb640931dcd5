package chart

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"TokenTracker/internal/model"
)

const maxHistogramBins = 10

var spikeKinds = []model.SpikeKind{model.KindPrice, model.KindVolume, model.KindPriceAndVolume}

// RenderSpikeDistribution draws event counts per kind next to a histogram of
// change percentages. Nothing is written and "" is returned without spikes.
func (r *Renderer) RenderSpikeDistribution(spikes []model.SpikeEvent) (string, error) {
	if len(spikes) == 0 {
		return "", nil
	}

	kinds, err := kindPanel(spikes)
	if err != nil {
		return "", fmt.Errorf("kind panel: %w", err)
	}
	kinds.Title.Text = fmt.Sprintf("%s Spike Types", strings.ToUpper(r.Token))
	intensity, err := intensityPanel(spikes)
	if err != nil {
		return "", fmt.Errorf("intensity panel: %w", err)
	}

	path := r.DistributionChartPath()
	if err := r.savePNG(path, [][]*plot.Plot{{kinds, intensity}}, 12*vg.Inch, 5*vg.Inch); err != nil {
		return "", fmt.Errorf("save spike distribution: %w", err)
	}
	return path, nil
}

func kindPanel(spikes []model.SpikeEvent) (*plot.Plot, error) {
	counts := make(map[model.SpikeKind]int)
	for _, s := range spikes {
		counts[s.Kind]++
	}
	values := make(plotter.Values, len(spikeKinds))
	names := make([]string, len(spikeKinds))
	for i, k := range spikeKinds {
		values[i] = float64(counts[k])
		names[i] = k.Label()
	}

	p := plot.New()
	p.Y.Label.Text = "Events"
	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return nil, err
	}
	bars.Color = colorPrice
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(names...)
	return p, nil
}

func intensityPanel(spikes []model.SpikeEvent) (*plot.Plot, error) {
	changes := make([]float64, len(spikes))
	for i, s := range spikes {
		changes[i] = s.ChangePct
	}
	counts, labels := histogram(changes, maxHistogramBins)

	p := plot.New()
	p.Title.Text = "Spike Intensity Distribution"
	p.X.Label.Text = "Change Percentage (%)"
	p.Y.Label.Text = "Frequency"
	bars, err := plotter.NewBarChart(counts, vg.Points(20))
	if err != nil {
		return nil, err
	}
	bars.Color = colorVolMA
	p.Add(bars)
	p.NominalX(labels...)
	return p, nil
}

// histogram buckets values into at most n equal-width bins and labels each
// bin with its center.
func histogram(values []float64, n int) (plotter.Values, []string) {
	if len(values) < n {
		n = len(values)
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	width := (hi - lo) / float64(n)
	if width == 0 {
		width = 1
		n = 1
	}
	counts := make(plotter.Values, n)
	for _, v := range values {
		bin := int((v - lo) / width)
		if bin >= n {
			bin = n - 1
		}
		counts[bin]++
	}
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("%.0f", lo+width*(float64(i)+0.5))
	}
	return counts, labels
}
