package report

import (
	"fmt"
	"io"

	"github.com/torutils/relaycharts/analyze"
)

// ============================================================================
// TEXT SUMMARIES
// ============================================================================

// formatPct renders a signed percentage, e.g. "+12.3%".
func formatPct(v float64) string {
	return fmt.Sprintf("%+.1f%%", v)
}

// AllocatorSummary writes an aligned per-group summary table with a
// "vs control" column. labelFor maps group letters to display names.
func AllocatorSummary(w io.Writer, summaries []analyze.Summary, control string, labelFor func(string) string) error {
	if labelFor == nil {
		labelFor = func(letter string) string { return "Group " + letter }
	}
	vs := analyze.VsControl(summaries, control)

	fmt.Fprintf(w, "%-28s %7s %9s %9s %9s %11s %-10s\n",
		"GROUP", "RELAYS", "START GB", "END GB", "CHANGE", "VS CONTROL", "STATUS")
	for _, s := range summaries {
		vsText := "-"
		if vs != nil && s.Group != control {
			vsText = formatPct(vs[s.Group])
		}
		name := labelFor(s.Group)
		if s.Group == control {
			name += " *"
		}
		fmt.Fprintf(w, "%-28s %7d %9.2f %9.2f %9s %11s %-10s\n",
			name, s.RelayCount, s.StartGB, s.EndGB,
			formatPct(s.ChangePct), vsText, s.Status)
	}
	if control != "" {
		fmt.Fprintln(w, "\n* control group")
	}
	return nil
}

// DistributionSummary writes per-group descriptive statistics over the
// latest per-relay values. Groups with no values are skipped.
func DistributionSummary(w io.Writer, letters []string, values map[string][]float64, labelFor func(string) string) error {
	if labelFor == nil {
		labelFor = func(letter string) string { return "Group " + letter }
	}

	fmt.Fprintf(w, "%-28s %7s %8s %8s %8s %8s %8s\n",
		"GROUP", "RELAYS", "MEAN", "MEDIAN", "STDDEV", "MIN", "MAX")
	for _, letter := range letters {
		vals := values[letter]
		if len(vals) == 0 {
			continue
		}
		d, err := analyze.Describe(vals)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-28s %7d %8.2f %8.2f %8.2f %8.2f %8.2f\n",
			labelFor(letter), len(vals), d.Mean, d.Median, d.StdDev, d.Min, d.Max)
	}
	return nil
}

// MonitorSummary writes the monitor-stats text summary.
func MonitorSummary(w io.Writer, s analyze.MonitorSummary) error {
	fmt.Fprintf(w, "Period:      %s to %s (%d days)\n",
		s.Start.Format("2006-01-02"), s.End.Format("2006-01-02"), s.Days)
	fmt.Fprintf(w, "Relays:      %d\n", s.Relays)
	fmt.Fprintf(w, "Fleet total: %.1f GB -> %.1f GB (%s)\n",
		s.StartTotalGB, s.EndTotalGB, formatPct(s.GrowthPct))
	fmt.Fprintf(w, "Per relay:   avg %.2f GB, min %.2f GB, max %.2f GB\n",
		s.CurrentAvgGB, s.CurrentMinGB, s.CurrentMaxGB)
	return nil
}

// BandwidthSummary writes an aligned per-group bandwidth table.
func BandwidthSummary(w io.Writer, averages []analyze.BandwidthAverage, control string, labelFor func(string) string) error {
	if labelFor == nil {
		labelFor = func(letter string) string { return "Group " + letter }
	}

	var base float64
	for _, avg := range averages {
		if avg.Group == control {
			base = avg.Mbps
		}
	}

	fmt.Fprintf(w, "%-28s %7s %12s %11s\n", "GROUP", "RELAYS", "AVG MBPS", "VS CONTROL")
	for _, avg := range averages {
		vsText := "-"
		if base > 0 && avg.Group != control {
			vsText = formatPct(analyze.PercentChange(base, avg.Mbps))
		}
		name := labelFor(avg.Group)
		if avg.Group == control {
			name += " *"
		}
		fmt.Fprintf(w, "%-28s %7d %12.1f %11s\n", name, avg.N, avg.Mbps, vsText)
	}
	return nil
}
