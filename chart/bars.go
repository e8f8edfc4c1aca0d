package chart

import (
	"fmt"
	"sort"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"github.com/torutils/relaycharts/analyze"
)

// GroupComparisonBars renders horizontal bars of each group's latest
// average GB, sorted ascending, with min-max whiskers and a dashed
// baseline at the control group's value.
func GroupComparisonBars(path, title string, summaries []analyze.Summary, control string, labelFor func(string) string) error {
	if len(summaries) == 0 {
		return fmt.Errorf("group comparison: no data")
	}
	if labelFor == nil {
		labelFor = func(letter string) string { return "Group " + letter }
	}

	sorted := make([]analyze.Summary, len(summaries))
	copy(sorted, summaries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EndGB < sorted[j].EndGB })

	p := newPlot(title, "Average RSS (GB)", "")

	names := make([]string, len(sorted))
	for i, s := range sorted {
		names[i] = labelFor(s.Group)

		// One bar chart per group so each keeps its own color; the
		// other category slots stay zero.
		values := make(plotter.Values, len(sorted))
		values[i] = s.EndGB
		bars, err := plotter.NewBarChart(values, vg.Points(18))
		if err != nil {
			return err
		}
		bars.Horizontal = true
		bars.Color = GroupColor(s.Group, i)
		bars.LineStyle.Width = 0
		p.Add(bars)

		// Min-max whisker.
		whisker, err := plotter.NewLine(plotter.XYs{
			{X: s.LatestMin, Y: float64(i)},
			{X: s.LatestMax, Y: float64(i)},
		})
		if err != nil {
			return err
		}
		whisker.Color = textColor
		whisker.Width = vg.Points(1)
		p.Add(whisker)
	}
	p.NominalY(names...)

	for _, s := range sorted {
		if s.Group != control {
			continue
		}
		base, err := plotter.NewLine(plotter.XYs{
			{X: s.EndGB, Y: -0.5},
			{X: s.EndGB, Y: float64(len(sorted)) - 0.5},
		})
		if err != nil {
			return err
		}
		base.Color = controlColor
		base.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(base)
		p.Legend.Add(fmt.Sprintf("control (%.2f GB)", s.EndGB), base)
	}

	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

// WeeklyTrend renders bars of weekly average fleet totals, labeled with
// the week's average relay count.
func WeeklyTrend(path, title string, buckets []analyze.WeeklyBucket) error {
	if len(buckets) == 0 {
		return fmt.Errorf("weekly trend: no data")
	}

	p := newPlot(title, "ISO week", "Average total (GB)")

	values := make(plotter.Values, len(buckets))
	names := make([]string, len(buckets))
	labelXYs := make([]plotter.XY, len(buckets))
	labelTexts := make([]string, len(buckets))
	for i, b := range buckets {
		values[i] = b.AvgTotalGB
		names[i] = b.Label()
		labelXYs[i] = plotter.XY{X: float64(i), Y: b.AvgTotalGB}
		labelTexts[i] = fmt.Sprintf("%d relays", b.AvgRelays)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return err
	}
	bars.Color = groupPalette["B"]
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(names...)

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: labelXYs, Labels: labelTexts})
	if err != nil {
		return err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Color = textColor
		labels.TextStyle[i].YAlign = text.YBottom
		labels.TextStyle[i].XAlign = text.XCenter
	}
	p.Add(labels)

	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

// BandwidthBars renders per-group average Mbps bars with a dashed line
// at the control group's average.
func BandwidthBars(path, title string, averages []analyze.BandwidthAverage, control string, labelFor func(string) string) error {
	if len(averages) == 0 {
		return fmt.Errorf("bandwidth bars: no data")
	}
	if labelFor == nil {
		labelFor = func(letter string) string { return "Group " + letter }
	}

	p := newPlot(title, "", "Average bandwidth (Mbps)")

	names := make([]string, len(averages))
	for i, avg := range averages {
		names[i] = labelFor(avg.Group)

		values := make(plotter.Values, len(averages))
		values[i] = avg.Mbps
		bars, err := plotter.NewBarChart(values, vg.Points(24))
		if err != nil {
			return err
		}
		bars.Color = GroupColor(avg.Group, i)
		bars.LineStyle.Width = 0
		p.Add(bars)
	}
	p.NominalX(names...)

	for _, avg := range averages {
		if avg.Group != control {
			continue
		}
		base, err := plotter.NewLine(plotter.XYs{
			{X: -0.5, Y: avg.Mbps},
			{X: float64(len(averages)) - 0.5, Y: avg.Mbps},
		})
		if err != nil {
			return err
		}
		base.Color = controlColor
		base.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(base)
		p.Legend.Add(fmt.Sprintf("control (%.1f Mbps)", avg.Mbps), base)
	}

	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}
