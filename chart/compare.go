package chart

import (
	"fmt"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/torutils/relaycharts/analyze"
)

// ExperimentComparison renders grouped bars of each group's final
// average GB, one cluster per experiment.
func ExperimentComparison(path, title string, results []analyze.ExperimentResult) error {
	if len(results) == 0 {
		return fmt.Errorf("experiment comparison: no data")
	}

	letters := analyze.GroupLetters(results)
	p := newPlot(title, "Experiment", "Final average RSS (GB)")

	bw := vg.Points(14)
	for gi, letter := range letters {
		values := make(plotter.Values, len(results))
		for ei, r := range results {
			for _, s := range r.Summaries {
				if s.Group == letter {
					values[ei] = s.EndGB
				}
			}
		}
		bars, err := plotter.NewBarChart(values, bw)
		if err != nil {
			return err
		}
		bars.Color = GroupColor(letter, gi)
		bars.LineStyle.Width = 0
		bars.Offset = bw * vg.Length(gi-len(letters)/2)
		p.Add(bars)
		p.Legend.Add("Group "+letter, bars)
	}

	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.ID
	}
	p.NominalX(names...)

	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

// BestConfigurations renders horizontal bars of the top-ranked
// configurations across experiments, best (lowest GB) first.
func BestConfigurations(path, title string, ranked []analyze.RankedConfig) error {
	if len(ranked) == 0 {
		return fmt.Errorf("best configurations: no data")
	}

	p := newPlot(title, "Final average RSS (GB)", "")

	names := make([]string, len(ranked))
	for i, rc := range ranked {
		// Best at the top of the chart.
		row := len(ranked) - 1 - i
		names[row] = fmt.Sprintf("%s: %s", rc.ExperimentID, rc.Label)

		values := make(plotter.Values, len(ranked))
		values[row] = rc.EndGB
		bars, err := plotter.NewBarChart(values, vg.Points(14))
		if err != nil {
			return err
		}
		bars.Horizontal = true
		bars.Color = GroupColor(rc.Group, i)
		bars.LineStyle.Width = 0
		p.Add(bars)
	}
	p.NominalY(names...)

	return p.Save(10*vg.Inch, 7*vg.Inch, path)
}
