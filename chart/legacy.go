package chart

import (
	"fmt"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/torutils/relaycharts/analyze"
)

// LegacyDaySeries renders per-group average GB across legacy day columns,
// one line per group with the day number on the x axis.
func LegacyDaySeries(path, title string, series []analyze.DaySeries, labelFor func(string) string) error {
	if len(series) == 0 {
		return fmt.Errorf("legacy day series: no data")
	}
	if labelFor == nil {
		labelFor = func(letter string) string { return "Group " + letter }
	}

	p := newPlot(title, "Day", "Average RSS (GB)")

	for i, s := range series {
		pts := make(plotter.XYs, len(s.Days))
		for j, day := range s.Days {
			pts[j].X = float64(day)
			pts[j].Y = s.Avg[j]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = GroupColor(s.Group, i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s (%.2f GB)", labelFor(s.Group), s.Avg[len(s.Avg)-1]), line)
	}
	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}
