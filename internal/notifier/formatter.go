package notifier

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"SpreadSentinel/internal/model"
)

const timeLayout = "2006-01-02 15:04 MST"

// FormatReport renders a pipeline result as a Telegram HTML message.
func FormatReport(res model.Result) string {
	if !res.Success || res.Report == nil {
		return FormatFailure(res)
	}
	r := res.Report
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>SpreadSentinel</b> | %s\n\n", res.GeneratedAt.UTC().Format(timeLayout)))
	b.WriteString(StatusLine(r))
	b.WriteString("\n\n")

	b.WriteString("💱 <b>Prices:</b>\n")
	b.WriteString(fmt.Sprintf("  %s (actual): %s\n", r.Pairs.Actual, price(r.ActualPrice, 2)))
	b.WriteString(fmt.Sprintf("  %s (implied): %s\n", r.Pairs.Actual, price(r.ImpliedPrice, 2)))
	b.WriteString(fmt.Sprintf("  %s: %s\n", r.Pairs.LegA, price(r.LegAPrice, 2)))
	b.WriteString(fmt.Sprintf("  %s: %s\n\n", r.Pairs.LegB, price(r.LegBPrice, 4)))

	b.WriteString("📈 <b>Difference analysis:</b>\n")
	if !r.StatisticsDefined {
		b.WriteString("  no comparable history\n")
		return b.String()
	}
	s := r.Summary
	b.WriteString(fmt.Sprintf("  Current: %+.2f%%\n", s.Current))
	b.WriteString(fmt.Sprintf("  Min: %+.2f%%\n", s.Min))
	b.WriteString(fmt.Sprintf("  5th pct: %+.2f%%\n", s.P5))
	b.WriteString(fmt.Sprintf("  25th pct: %+.2f%%\n", s.P25))
	b.WriteString(fmt.Sprintf("  Median: %+.2f%%\n", s.Median))
	b.WriteString(fmt.Sprintf("  75th pct: %+.2f%%\n", s.P75))
	b.WriteString(fmt.Sprintf("  90th pct: %+.2f%%\n", s.P90))
	b.WriteString(fmt.Sprintf("  Max: %+.2f%%\n", s.Max))
	b.WriteString(fmt.Sprintf("  Samples: %d\n", s.Count))
	if !r.WindowStart.IsZero() {
		b.WriteString(fmt.Sprintf("  Window: %s → %s\n",
			r.WindowStart.UTC().Format(timeLayout), r.WindowEnd.UTC().Format(timeLayout)))
	}
	return b.String()
}

// StatusLine summarizes the direction and magnitude of the current deviation.
func StatusLine(r *model.DeviationReport) string {
	if !r.StatisticsDefined {
		return fmt.Sprintf("⚪ No comparable %s samples in the window", html.EscapeString(r.Pairs.Actual))
	}
	icon, dir := "🔺", "higher"
	if r.Classification == model.ClassLower {
		icon, dir = "🔻", "lower"
	}
	line := fmt.Sprintf("%s Actual %s is <b>%s</b> than implied", icon, r.Pairs.Actual, dir)
	line += fmt.Sprintf(" (difference of %.2f%% is %s than usual %.2f%%)",
		r.Summary.Current, usualWord(r.UsualClassification), r.Summary.Median)
	return line
}

// FormatFailure renders a failed run.
func FormatFailure(res model.Result) string {
	var b strings.Builder
	b.WriteString("❌ <b>SpreadSentinel run failed</b>\n\n")
	msg := res.Error
	if msg == "" {
		msg = "unknown error"
	}
	b.WriteString(html.EscapeString(msg))
	b.WriteString("\n")
	if len(res.SourceErrors) > 0 {
		keys := make([]string, 0, len(res.SourceErrors))
		for k := range res.SourceErrors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\n")
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("  • %s: %s\n", html.EscapeString(k), html.EscapeString(res.SourceErrors[k])))
		}
	}
	return b.String()
}

func usualWord(u model.UsualClassification) string {
	if u == model.UsualLarger {
		return "larger"
	}
	return "smaller"
}

func price(p model.Price, decimals int) string {
	v, ok := p.Get()
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	format := "#,###.##"
	if decimals == 4 {
		format = "#,###.####"
	}
	return humanize.FormatFloat(format, v)
}
