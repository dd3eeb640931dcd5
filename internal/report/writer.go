// Package report writes the artifacts of an analysis run: CSV tables, the
// JSON report and the human-readable text report.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/guregu/null/v5"
	"github.com/rs/zerolog/log"

	"TokenTracker/internal/model"
)

var marketHeader = []string{
	"timestamp", "date", "price", "volume", "market_cap", "price_change",
	"price_change_pct", "volume_change_pct", "price_ma7", "volume_ma7",
}

var spikeHeader = []string{
	"timestamp", "date", "type", "metric", "direction", "change_pct",
	"absolute_change", "value", "price", "volume", "volume_change_pct",
}

// Writer places report files under DataDir and ReportsDir, named after Token.
type Writer struct {
	DataDir    string
	ReportsDir string
	Token      string
	Currency   string
}

// NewWriter creates the output directories and returns a Writer.
func NewWriter(dataDir, reportsDir, token, currency string) (*Writer, error) {
	for _, dir := range []string{dataDir, reportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Writer{DataDir: dataDir, ReportsDir: reportsDir, Token: token, Currency: currency}, nil
}

func (w *Writer) MarketDataPath() string {
	return filepath.Join(w.DataDir, w.Token+"_market_data.csv")
}

func (w *Writer) SpikesPath() string {
	return filepath.Join(w.DataDir, w.Token+"_spikes.csv")
}

func (w *Writer) JSONReportPath() string {
	return filepath.Join(w.ReportsDir, w.Token+"_analysis.json")
}

func (w *Writer) TextReportPath() string {
	return filepath.Join(w.ReportsDir, w.Token+"_analysis_report.txt")
}

// SaveMarketData writes the processed daily records as CSV. Absent values are
// written as empty cells.
func (w *Writer) SaveMarketData(records []model.DailyRecord) (string, error) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Timestamp.UTC().Format(time.RFC3339Nano),
			r.Date(),
			formatFloat(r.Price),
			formatNull(r.Volume),
			formatNull(r.MarketCap),
			formatNull(r.PriceChange),
			formatNull(r.PriceChangePct),
			formatNull(r.VolumeChangePct),
			formatNull(r.PriceMA7),
			formatNull(r.VolumeMA7),
		})
	}
	path := w.MarketDataPath()
	if err := writeCSV(path, marketHeader, rows); err != nil {
		return "", fmt.Errorf("save market data: %w", err)
	}
	log.Info().Str("path", path).Int("rows", len(rows)).Msg("market data saved")
	return path, nil
}

// SaveSpikes writes spike events as CSV. Nothing is written and "" is
// returned when there are no events.
func (w *Writer) SaveSpikes(spikes []model.SpikeEvent) (string, error) {
	if len(spikes) == 0 {
		log.Info().Msg("no spike data to save")
		return "", nil
	}
	rows := make([][]string, 0, len(spikes))
	for _, s := range spikes {
		rows = append(rows, []string{
			s.Timestamp.UTC().Format(time.RFC3339Nano),
			s.Date,
			string(s.Kind),
			string(s.Metric),
			string(s.Direction),
			formatFloat(s.ChangePct),
			formatFloat(s.AbsoluteChange),
			formatFloat(s.Value),
			formatNull(s.Price),
			formatNull(s.Volume),
			formatNull(s.VolumeChangePct),
		})
	}
	path := w.SpikesPath()
	if err := writeCSV(path, spikeHeader, rows); err != nil {
		return "", fmt.Errorf("save spikes: %w", err)
	}
	log.Info().Str("path", path).Int("rows", len(rows)).Msg("spike data saved")
	return path, nil
}

// SaveJSONReport writes doc as indented JSON.
func (w *Writer) SaveJSONReport(doc *Document) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	path := w.JSONReportPath()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save json report: %w", err)
	}
	log.Info().Str("path", path).Msg("json report saved")
	return path, nil
}

// SaveTextReport renders doc with FormatTextReport and writes it.
func (w *Writer) SaveTextReport(doc *Document) (string, error) {
	path := w.TextReportPath()
	if err := os.WriteFile(path, []byte(FormatTextReport(doc)), 0o644); err != nil {
		return "", fmt.Errorf("save text report: %w", err)
	}
	log.Info().Str("path", path).Msg("text report saved")
	return path, nil
}

// LoadMarketData reads back a CSV written by SaveMarketData.
func LoadMarketData(path string) ([]model.DailyRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoReport
		}
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	records := make([]model.DailyRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(marketHeader) {
			return nil, fmt.Errorf("%s line %d: expected %d columns, got %d", path, i+2, len(marketHeader), len(row))
		}
		ts, err := time.Parse(time.RFC3339Nano, row[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+2, err)
		}
		price, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: price: %w", path, i+2, err)
		}
		rec := model.DailyRecord{Timestamp: ts, Price: price}
		optional := []*null.Float{
			&rec.Volume, &rec.MarketCap, &rec.PriceChange, &rec.PriceChangePct,
			&rec.VolumeChangePct, &rec.PriceMA7, &rec.VolumeMA7,
		}
		for j, dst := range optional {
			if *dst, err = parseNull(row[3+j]); err != nil {
				return nil, fmt.Errorf("%s line %d: %s: %w", path, i+2, marketHeader[3+j], err)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNull(v null.Float) string {
	if !v.Valid {
		return ""
	}
	return formatFloat(v.Float64)
}

func parseNull(s string) (null.Float, error) {
	if s == "" {
		return null.Float{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}, err
	}
	return null.FloatFrom(v), nil
}
