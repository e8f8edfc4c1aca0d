package chart

import (
	"fmt"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"github.com/torutils/relaycharts/analyze"
)

// Event marks a timestamped operator event drawn as a dashed vertical
// line with a label.
type Event struct {
	Time  time.Time
	Label string
}

const timeFormat = "01-02\n15:04"

// GroupTimeSeries renders one line per group (average GB over time) with
// optional event overlays. labelFor maps a group letter to its legend
// label; nil uses "Group <letter>".
func GroupTimeSeries(path, title string, series []analyze.Series, events []Event, labelFor func(string) string) error {
	if len(series) == 0 {
		return fmt.Errorf("group time series: no data")
	}
	if labelFor == nil {
		labelFor = func(letter string) string { return "Group " + letter }
	}

	p := newPlot(title, "Time", "Average RSS (GB)")
	p.X.Tick.Marker = plot.TimeTicks{Format: timeFormat}

	lo, hi := series[0].Points[0].Avg, series[0].Points[0].Avg
	for i, s := range series {
		pts := make(plotter.XYs, len(s.Points))
		for j, pt := range s.Points {
			pts[j].X = float64(pt.Time.Unix())
			pts[j].Y = pt.Avg
			if pt.Avg < lo {
				lo = pt.Avg
			}
			if pt.Avg > hi {
				hi = pt.Avg
			}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = GroupColor(s.Group, i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s (%.2f GB)", labelFor(s.Group), s.Latest().Avg), line)
	}

	if err := addEventLines(p, events, lo, hi); err != nil {
		return err
	}
	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

// BandwidthTimeSeries renders per-group bandwidth averages over time.
func BandwidthTimeSeries(path, title string, series []analyze.BandwidthSeries, labelFor func(string) string) error {
	if len(series) == 0 {
		return fmt.Errorf("bandwidth time series: no data")
	}
	if labelFor == nil {
		labelFor = func(letter string) string { return "Group " + letter }
	}

	p := newPlot(title, "Time", "Write bandwidth (Mbps)")
	p.X.Tick.Marker = plot.TimeTicks{Format: timeFormat}

	for i, s := range series {
		pts := make(plotter.XYs, len(s.Points))
		for j, pt := range s.Points {
			pts[j].X = float64(pt.Time.Unix())
			pts[j].Y = pt.Mbps
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = GroupColor(s.Group, i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s (%.1f Mbps)", labelFor(s.Group), s.Latest().Mbps), line)
	}
	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

// addEventLines draws dashed vertical lines with labels for each event.
// lo/hi bound the y extent of the lines.
func addEventLines(p *plot.Plot, events []Event, lo, hi float64) error {
	for _, ev := range events {
		x := float64(ev.Time.Unix())
		line, err := plotter.NewLine(plotter.XYs{{X: x, Y: lo}, {X: x, Y: hi}})
		if err != nil {
			return err
		}
		line.Color = gridColor
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(line)

		labels, err := plotter.NewLabels(plotter.XYLabels{
			XYs:    []plotter.XY{{X: x, Y: hi}},
			Labels: []string{ev.Label},
		})
		if err != nil {
			return err
		}
		labels.TextStyle[0].Color = textColor
		labels.TextStyle[0].YAlign = text.YBottom
		labels.TextStyle[0].XAlign = text.XCenter
		p.Add(labels)
	}
	return nil
}
