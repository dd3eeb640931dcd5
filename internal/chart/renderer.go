// Package chart renders the market analysis and spike distribution charts as
// PNG files using gonum/plot.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// ErrNoRecords is returned when a market chart is requested for an empty series.
var ErrNoRecords = errors.New("chart: no records to plot")

var (
	colorPrice   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	colorMA      = color.RGBA{R: 214, G: 39, B: 40, A: 200}
	colorVolMA   = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	colorUp      = color.RGBA{R: 44, G: 160, B: 44, A: 190}
	colorDown    = color.RGBA{R: 214, G: 39, B: 40, A: 190}
	colorNeutral = color.RGBA{R: 127, G: 127, B: 127, A: 190}
)

// Renderer writes charts for one token into Dir.
type Renderer struct {
	Dir    string
	Token  string
	Width  vg.Length
	Height vg.Length
	DPI    int
}

// NewRenderer creates dir and returns a Renderer. Width and height are inches.
func NewRenderer(dir, token string, widthInch, heightInch float64, dpi int) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	return &Renderer{
		Dir:    dir,
		Token:  token,
		Width:  vg.Length(widthInch) * vg.Inch,
		Height: vg.Length(heightInch) * vg.Inch,
		DPI:    dpi,
	}, nil
}

func (r *Renderer) MarketChartPath() string {
	return filepath.Join(r.Dir, r.Token+"_market_analysis.png")
}

func (r *Renderer) DistributionChartPath() string {
	return filepath.Join(r.Dir, r.Token+"_spike_distribution.png")
}

// savePNG lays plots out as a rows x cols grid on one canvas and writes it.
func (r *Renderer) savePNG(path string, plots [][]*plot.Plot, width, height vg.Length) error {
	img := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(r.DPI))
	dc := draw.New(img)

	rows, cols := len(plots), len(plots[0])
	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter * 6,
		PadY:      vg.Millimeter * 8,
		PadTop:    vg.Millimeter * 4,
		PadBottom: vg.Millimeter * 4,
		PadLeft:   vg.Millimeter * 4,
		PadRight:  vg.Millimeter * 4,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		for j := range plots[i] {
			if plots[i][j] != nil {
				plots[i][j].Draw(canvases[i][j])
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("chart saved")
	return nil
}
