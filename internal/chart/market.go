package chart

import (
	"fmt"
	"image/color"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"TokenTracker/internal/calculator"
	"TokenTracker/internal/model"
)

// RenderMarketChart draws the three-panel market chart: price with its 7-day
// average and spike markers, daily volume with volume spike lines, and the
// min-max normalised price and volume side by side.
func (r *Renderer) RenderMarketChart(records []model.DailyRecord, spikes []model.SpikeEvent, stats *model.StatisticsSummary) (string, error) {
	if len(records) == 0 {
		return "", ErrNoRecords
	}
	dates := make([]string, len(records))
	indexByDate := make(map[string]int, len(records))
	for i, rec := range records {
		dates[i] = rec.Timestamp.UTC().Format("01-02")
		indexByDate[rec.Date()] = i
	}
	ticker := dateTicks{dates: dates}

	pricePlot, err := r.pricePanel(records, spikes, indexByDate, stats)
	if err != nil {
		return "", fmt.Errorf("price panel: %w", err)
	}
	volumePlot, err := r.volumePanel(records, spikes, indexByDate)
	if err != nil {
		return "", fmt.Errorf("volume panel: %w", err)
	}
	normPlot, err := r.normalizedPanel(records)
	if err != nil {
		return "", fmt.Errorf("normalized panel: %w", err)
	}
	for _, p := range []*plot.Plot{pricePlot, volumePlot, normPlot} {
		p.X.Tick.Marker = ticker
		p.X.Min = -0.5
		p.X.Max = float64(len(records)) - 0.5
	}
	normPlot.X.Label.Text = "Date"

	path := r.MarketChartPath()
	plots := [][]*plot.Plot{{pricePlot}, {volumePlot}, {normPlot}}
	if err := r.savePNG(path, plots, r.Width, r.Height); err != nil {
		return "", fmt.Errorf("save market chart: %w", err)
	}
	return path, nil
}

func (r *Renderer) pricePanel(records []model.DailyRecord, spikes []model.SpikeEvent, indexByDate map[string]int, stats *model.StatisticsSummary) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s Price Movement", strings.ToUpper(r.Token))
	if stats != nil {
		p.Title.Text += fmt.Sprintf(" (Current: $%.4f)", stats.Price.Current)
	}
	p.Y.Label.Text = "Price (USD)"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	prices := make(plotter.XYs, len(records))
	var ma plotter.XYs
	for i, rec := range records {
		prices[i].X, prices[i].Y = float64(i), rec.Price
		if rec.PriceMA7.Valid {
			ma = append(ma, plotter.XY{X: float64(i), Y: rec.PriceMA7.Float64})
		}
	}
	priceLine, err := plotter.NewLine(prices)
	if err != nil {
		return nil, err
	}
	priceLine.LineStyle.Color = colorPrice
	priceLine.LineStyle.Width = vg.Points(2)
	p.Add(priceLine)
	p.Legend.Add("Price", priceLine)

	if len(ma) > 0 {
		maLine, err := plotter.NewLine(ma)
		if err != nil {
			return nil, err
		}
		maLine.LineStyle.Color = colorMA
		maLine.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
		p.Add(maLine)
		p.Legend.Add("7-day MA", maLine)
	}

	var up, down plotter.XYs
	var labels plotter.XYLabels
	for _, s := range spikes {
		if s.Metric != model.MetricPrice {
			continue
		}
		i, ok := indexByDate[s.Date]
		if !ok {
			continue
		}
		pt := plotter.XY{X: float64(i), Y: records[i].Price}
		if s.Direction == model.DirectionUp {
			up = append(up, pt)
		} else {
			down = append(down, pt)
		}
		labels.XYs = append(labels.XYs, pt)
		labels.Labels = append(labels.Labels, fmt.Sprintf("%+.1f%%", s.ChangePct))
	}
	for _, group := range []struct {
		pts   plotter.XYs
		color color.RGBA
	}{{up, colorUp}, {down, colorDown}} {
		if len(group.pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(group.pts)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = group.color
		sc.GlyphStyle.Radius = vg.Points(5)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
	}
	if len(labels.XYs) > 0 {
		l, err := plotter.NewLabels(labels)
		if err != nil {
			return nil, err
		}
		l.Offset = vg.Point{X: vg.Points(4), Y: vg.Points(6)}
		p.Add(l)
	}
	return p, nil
}

func (r *Renderer) volumePanel(records []model.DailyRecord, spikes []model.SpikeEvent, indexByDate map[string]int) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Trading Volume"
	p.Y.Label.Text = "Volume (USD)"
	p.Y.Tick.Marker = millionsTicks{}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	// One bar series per color; each bar appears in exactly one of them.
	rising := make(plotter.Values, len(records))
	falling := make(plotter.Values, len(records))
	first := make(plotter.Values, len(records))
	var ma plotter.XYs
	maxVolume := 0.0
	for i, rec := range records {
		if rec.VolumeMA7.Valid {
			ma = append(ma, plotter.XY{X: float64(i), Y: rec.VolumeMA7.Float64})
		}
		if !rec.Volume.Valid {
			continue
		}
		v := rec.Volume.Float64
		if v > maxVolume {
			maxVolume = v
		}
		switch {
		case i == 0 || !records[i-1].Volume.Valid:
			first[i] = v
		case v > records[i-1].Volume.Float64:
			rising[i] = v
		default:
			falling[i] = v
		}
	}
	barWidth := r.Width / vg.Length(2*len(records)+2)
	for _, series := range []struct {
		values plotter.Values
		color  color.RGBA
	}{{first, colorNeutral}, {rising, colorUp}, {falling, colorDown}} {
		bars, err := plotter.NewBarChart(series.values, barWidth)
		if err != nil {
			return nil, err
		}
		bars.Color = series.color
		bars.LineStyle.Width = 0
		p.Add(bars)
	}

	if len(ma) > 0 {
		maLine, err := plotter.NewLine(ma)
		if err != nil {
			return nil, err
		}
		maLine.LineStyle.Color = colorVolMA
		maLine.LineStyle.Width = vg.Points(2)
		p.Add(maLine)
		p.Legend.Add("7-day MA", maLine)
	}

	for _, s := range spikes {
		if s.Metric != model.MetricVolume && s.Kind != model.KindPriceAndVolume {
			continue
		}
		i, ok := indexByDate[s.Date]
		if !ok {
			continue
		}
		marker, err := plotter.NewLine(plotter.XYs{{X: float64(i), Y: 0}, {X: float64(i), Y: maxVolume}})
		if err != nil {
			return nil, err
		}
		marker.LineStyle.Color = colorDown
		marker.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(marker)
	}
	return p, nil
}

func (r *Renderer) normalizedPanel(records []model.DailyRecord) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Price-Volume Correlation Analysis"
	if corr, ok := calculator.PriceVolumeCorrelation(records); ok {
		p.Title.Text += fmt.Sprintf(" (Correlation: %.3f)", corr)
	}
	p.Y.Label.Text = "Normalized Value"
	p.Y.Min, p.Y.Max = -0.05, 1.05
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	prices := make([]float64, len(records))
	var volumes []float64
	var volumeIdx []int
	for i, rec := range records {
		prices[i] = rec.Price
		if rec.Volume.Valid {
			volumes = append(volumes, rec.Volume.Float64)
			volumeIdx = append(volumeIdx, i)
		}
	}
	allIdx := make([]int, len(records))
	for i := range allIdx {
		allIdx[i] = i
	}

	for _, series := range []struct {
		name   string
		values []float64
		idx    []int
		color  color.RGBA
	}{
		{"Price (normalized)", prices, allIdx, colorPrice},
		{"Volume (normalized)", volumes, volumeIdx, colorVolMA},
	} {
		if len(series.values) == 0 {
			continue
		}
		line, err := plotter.NewLine(normalize(series.values, series.idx))
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = series.color
		line.LineStyle.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add(series.name, line)
	}
	return p, nil
}

// normalize scales values into [0, 1]. A constant series maps to 0.5.
func normalize(values []float64, idx []int) plotter.XYs {
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	xys := make(plotter.XYs, len(values))
	for i, v := range values {
		xys[i].X = float64(idx[i])
		if hi == lo {
			xys[i].Y = 0.5
			continue
		}
		xys[i].Y = (v - lo) / (hi - lo)
	}
	return xys
}
