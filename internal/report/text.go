package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"TokenTracker/internal/model"
)

const (
	wideRule   = "================================================================================"
	narrowRule = "----------------------------------------"
)

// FormatTextReport renders the human-readable analysis report.
func FormatTextReport(doc *Document) string {
	var b strings.Builder
	token := strings.ToUpper(doc.Metadata.Token)
	st := doc.Statistics

	b.WriteString(wideRule + "\n")
	b.WriteString(fmt.Sprintf("%20s%s TOKEN MARKET ANALYSIS REPORT\n", "", token))
	b.WriteString(wideRule + "\n\n")

	b.WriteString(fmt.Sprintf("Generated: %s\n", doc.Metadata.GeneratedAt.Format("2006-01-02 15:04:05")))
	if doc.Metadata.RunID != "" {
		b.WriteString(fmt.Sprintf("Run ID: %s\n", doc.Metadata.RunID))
	}
	if st == nil {
		b.WriteString("\nNo market data was available for this run.\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Analysis Period: %s to %s\n", st.Period.StartDate, st.Period.EndDate))
	b.WriteString(fmt.Sprintf("Duration: %d days\n\n", st.Period.Days))

	b.WriteString("EXECUTIVE SUMMARY\n")
	b.WriteString(narrowRule + "\n")
	b.WriteString(fmt.Sprintf("• Current Price: $%.4f\n", st.Price.Current))
	b.WriteString(fmt.Sprintf("• Period Change: %+.2f%% ($%+.4f)\n", st.Price.ChangePct, st.Price.ChangeAbs))
	b.WriteString(fmt.Sprintf("• Total Volume: $%s\n", money(st.Volume.Total)))
	b.WriteString(fmt.Sprintf("• Volatility: %.2f%%\n", st.Price.Volatility))
	b.WriteString(fmt.Sprintf("• Spike Events: %d\n\n", doc.SpikeSummary.TotalSpikes))

	b.WriteString("PRICE ANALYSIS\n")
	b.WriteString(narrowRule + "\n")
	b.WriteString(fmt.Sprintf("• Current: $%.4f\n", st.Price.Current))
	b.WriteString(fmt.Sprintf("• High: $%.4f\n", st.Price.High))
	b.WriteString(fmt.Sprintf("• Low: $%.4f\n", st.Price.Low))
	b.WriteString(fmt.Sprintf("• Average: $%.4f\n", st.Price.Average))
	b.WriteString(fmt.Sprintf("• Median: $%.4f\n", st.Price.Median))
	b.WriteString(fmt.Sprintf("• Standard Deviation: $%.4f\n", st.Price.StdDev))
	b.WriteString(fmt.Sprintf("• Volatility: %.2f%%\n\n", st.Price.Volatility))

	b.WriteString("VOLUME ANALYSIS\n")
	b.WriteString(narrowRule + "\n")
	b.WriteString(fmt.Sprintf("• Total: $%s\n", money(st.Volume.Total)))
	b.WriteString(fmt.Sprintf("• Daily Average: $%s\n", money(st.Volume.AverageDaily)))
	b.WriteString(fmt.Sprintf("• Daily Median: $%s\n", money(st.Volume.MedianDaily)))
	highestOn := ""
	if st.Volume.HighestDate != "" {
		highestOn = " on " + st.Volume.HighestDate
	}
	b.WriteString(fmt.Sprintf("• Highest: $%s%s\n", money(st.Volume.Highest), highestOn))
	b.WriteString(fmt.Sprintf("• Lowest: $%s\n\n", money(st.Volume.Lowest)))

	if cm := st.CurrentMarket; cm != nil {
		b.WriteString("CURRENT MARKET DATA\n")
		b.WriteString(narrowRule + "\n")
		b.WriteString(fmt.Sprintf("• Market Cap: $%s\n", money(cm.MarketCap)))
		b.WriteString(fmt.Sprintf("• FDV: $%s\n", money(cm.FullyDilutedValuation)))
		b.WriteString(fmt.Sprintf("• Circulating Supply: %s %s\n", money(cm.CirculatingSupply), token))
		b.WriteString(fmt.Sprintf("• Total Supply: %s %s\n", money(cm.TotalSupply), token))
		b.WriteString(fmt.Sprintf("• 24h Change: %+.2f%%\n", cm.Change24h))
		b.WriteString(fmt.Sprintf("• 7d Change: %+.2f%%\n", cm.Change7d))
		b.WriteString(fmt.Sprintf("• 30d Change: %+.2f%%\n\n", cm.Change30d))
	}

	if len(doc.Spikes) == 0 {
		b.WriteString("SPIKE EVENTS\n")
		b.WriteString(narrowRule + "\n")
		b.WriteString("No significant spikes detected with current thresholds.\n\n")
	} else {
		b.WriteString("SPIKE EVENTS TIMELINE\n")
		b.WriteString(narrowRule + "\n")
		b.WriteString(fmt.Sprintf("Total Events: %d\n\n", len(doc.Spikes)))
		for _, s := range doc.Spikes {
			b.WriteString(fmt.Sprintf("📍 %s\n", s.Timestamp.UTC().Format("2006-01-02 15:04")))
			b.WriteString(fmt.Sprintf("   Type: %s\n", s.Kind.Label()))
			b.WriteString(fmt.Sprintf("   Change: %+.2f%%\n", s.ChangePct))
			if s.VolumeChangePct.Valid {
				b.WriteString(fmt.Sprintf("   Volume Change: %+.2f%%\n", s.VolumeChangePct.Float64))
			}
			b.WriteString(fmt.Sprintf("   Price: $%.4f\n", s.Price.ValueOrZero()))
			b.WriteString(fmt.Sprintf("   Volume: $%s\n\n", money(s.Volume.ValueOrZero())))
		}
	}

	b.WriteString(wideRule + "\n")
	b.WriteString("END OF REPORT\n")
	b.WriteString(wideRule + "\n")
	return b.String()
}

// PrintSummary writes the short console summary of doc to w.
func PrintSummary(w io.Writer, doc *Document) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\n%15s%s\n%s\n", rule, "", "ANALYSIS SUMMARY", rule)
	fmt.Fprintf(w, "Token: %s\n", strings.ToUpper(doc.Metadata.Token))
	if st := doc.Statistics; st != nil {
		fmt.Fprintf(w, "Period: %d days\n", st.Period.Days)
		fmt.Fprintf(w, "Current Price: $%.4f\n", st.Price.Current)
		fmt.Fprintf(w, "Period Change: %+.2f%%\n", st.Price.ChangePct)
		fmt.Fprintf(w, "Volatility: %.2f%%\n", st.Price.Volatility)
		fmt.Fprintf(w, "Total Volume: $%s\n", money(st.Volume.Total))
	}
	fmt.Fprintf(w, "Spike Events: %d\n", doc.SpikeSummary.TotalSpikes)
	if largest, ok := largestChange(doc.Spikes); ok {
		fmt.Fprintf(w, "Largest Spike: %+.2f%%\n", largest)
	}
	fmt.Fprintf(w, "%s\n\n", rule)
}

func largestChange(spikes []model.SpikeEvent) (float64, bool) {
	if len(spikes) == 0 {
		return 0, false
	}
	best := spikes[0].ChangePct
	for _, s := range spikes[1:] {
		if s.ChangePct > best {
			best = s.ChangePct
		}
	}
	return best, true
}

func money(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}
