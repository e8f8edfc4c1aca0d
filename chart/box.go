package chart

import (
	"fmt"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// DistributionBox renders per-group box plots of the latest per-relay
// RSS values. groups fixes the plotting order; values maps group letter
// to its relay values in GB.
func DistributionBox(path, title string, groups []string, values map[string][]float64, labelFor func(string) string) error {
	if labelFor == nil {
		labelFor = func(letter string) string { return "Group " + letter }
	}

	p := newPlot(title, "", "RSS per relay (GB)")

	w := vg.Points(40)
	names := make([]string, 0, len(groups))
	pos := 0
	for i, g := range groups {
		vals := values[g]
		if len(vals) == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(w, float64(pos), plotter.Values(vals))
		if err != nil {
			return err
		}
		box.FillColor = GroupColor(g, i)
		box.BoxStyle.Color = textColor
		box.MedianStyle.Color = textColor
		box.WhiskerStyle.Color = textColor
		p.Add(box)
		names = append(names, labelFor(g))
		pos++
	}
	if pos == 0 {
		return fmt.Errorf("distribution box: no data")
	}
	p.NominalX(names...)

	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}
