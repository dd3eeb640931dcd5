package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"TokenTracker/internal/model"
)

// FormatRunSummary formats the statistics of a completed run.
func FormatRunSummary(token string, stats *model.StatisticsSummary, spikeCount int) string {
	var b strings.Builder
	name := html.EscapeString(strings.ToUpper(token))

	b.WriteString(fmt.Sprintf("📊 <b>%s Market Summary</b> | %s\n\n", name, time.Now().Format("2006-01-02")))
	if stats == nil {
		b.WriteString("No market data available.\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Period: %s → %s (%d days)\n", stats.Period.StartDate, stats.Period.EndDate, stats.Period.Days))
	b.WriteString(fmt.Sprintf("Price: $%.4f (%+.2f%%)\n", stats.Price.Current, stats.Price.ChangePct))
	b.WriteString(fmt.Sprintf("High/Low: $%.4f / $%.4f\n", stats.Price.High, stats.Price.Low))
	b.WriteString(fmt.Sprintf("Volatility: %.2f%%\n", stats.Price.Volatility))
	b.WriteString(fmt.Sprintf("Avg daily volume: $%.0f\n", stats.Volume.AverageDaily))
	if cm := stats.CurrentMarket; cm != nil {
		b.WriteString(fmt.Sprintf("Market cap: $%.0f | 24h %+.2f%%\n", cm.MarketCap, cm.Change24h))
	}
	b.WriteString(fmt.Sprintf("\nSpike events: %d\n", spikeCount))
	return b.String()
}

// FormatSpikeAlert lists spike events, newest last. Empty input yields "".
func FormatSpikeAlert(token string, spikes []model.SpikeEvent) string {
	if len(spikes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🚨 <b>%s spike alert</b>\n\n", html.EscapeString(strings.ToUpper(token))))
	for _, s := range spikes {
		icon := "📈"
		if s.Direction == model.DirectionDown {
			icon = "📉"
		}
		b.WriteString(fmt.Sprintf("%s %s <b>%s</b> %+.2f%%", icon, s.Date, html.EscapeString(s.Kind.Label()), s.ChangePct))
		if s.VolumeChangePct.Valid {
			b.WriteString(fmt.Sprintf(" (vol %+.2f%%)", s.VolumeChangePct.Float64))
		}
		if s.Metric == model.MetricPrice {
			b.WriteString(fmt.Sprintf(" @ $%.4f", s.Value))
		} else {
			b.WriteString(fmt.Sprintf(" vol $%.0f", s.Value))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatError formats a failed run.
func FormatError(token string, err error) string {
	return fmt.Sprintf("⚠️ <b>%s analysis failed</b>\n%s", html.EscapeString(strings.ToUpper(token)), html.EscapeString(err.Error()))
}

// HelpText lists the bot commands.
func HelpText() string {
	return "<b>Commands</b>\n/summary - latest statistics\n/spikes - latest spike events\n/run - run an analysis now\n/help - this message"
}
