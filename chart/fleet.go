package chart

import (
	"fmt"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/torutils/relaycharts/analyze"
)

// FleetUsage renders a two-panel chart: fleet total GB over time on top,
// per-relay min/avg/max on the bottom. Relay-count changes show as
// dashed vertical markers in the top panel.
func FleetUsage(path, title string, totals, perRelay []analyze.Point, changes []analyze.CountChange) error {
	if len(totals) == 0 {
		return fmt.Errorf("fleet usage: no data")
	}

	top := newPlot(title, "", "Total RSS (GB)")
	top.X.Tick.Marker = plot.TimeTicks{Format: timeFormat}

	totalPts := make(plotter.XYs, len(totals))
	lo, hi := totals[0].Avg, totals[0].Avg
	for i, pt := range totals {
		totalPts[i].X = float64(pt.Time.Unix())
		totalPts[i].Y = pt.Avg
		if pt.Avg < lo {
			lo = pt.Avg
		}
		if pt.Avg > hi {
			hi = pt.Avg
		}
	}
	totalLine, err := plotter.NewLine(totalPts)
	if err != nil {
		return err
	}
	totalLine.Color = groupPalette["B"]
	totalLine.Width = vg.Points(1.5)
	top.Add(totalLine)
	top.Legend.Add(fmt.Sprintf("total (%.1f GB, %d relays)", totals[len(totals)-1].Avg, totals[len(totals)-1].N), totalLine)

	for _, ch := range changes {
		x := float64(ch.Time.Unix())
		marker, err := plotter.NewLine(plotter.XYs{{X: x, Y: lo}, {X: x, Y: hi}})
		if err != nil {
			return err
		}
		marker.Color = controlColor
		marker.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
		top.Add(marker)
	}
	if len(changes) > 0 {
		last := changes[len(changes)-1]
		dummy, err := plotter.NewLine(plotter.XYs{{X: float64(last.Time.Unix()), Y: lo}, {X: float64(last.Time.Unix()), Y: lo}})
		if err != nil {
			return err
		}
		dummy.Color = controlColor
		dummy.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
		top.Legend.Add(fmt.Sprintf("relay count changes (%d)", len(changes)), dummy)
	}

	bottom := newPlot("", "Time", "Per-relay RSS (GB)")
	bottom.X.Tick.Marker = plot.TimeTicks{Format: timeFormat}

	for _, band := range []struct {
		name  string
		pick  func(analyze.Point) float64
		color string
	}{
		{"max", func(p analyze.Point) float64 { return p.Max }, "E"},
		{"avg", func(p analyze.Point) float64 { return p.Avg }, "B"},
		{"min", func(p analyze.Point) float64 { return p.Min }, "A"},
	} {
		pts := make(plotter.XYs, len(perRelay))
		for i, pt := range perRelay {
			pts[i].X = float64(pt.Time.Unix())
			pts[i].Y = band.pick(pt)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = groupPalette[band.color]
		line.Width = vg.Points(1.5)
		bottom.Add(line)
		bottom.Legend.Add(band.name, line)
	}

	return saveStacked(path, top, bottom)
}

// saveStacked draws two plots stacked vertically into a single PNG.
func saveStacked(path string, top, bottom *plot.Plot) error {
	img := vgimg.New(10*vg.Inch, 8*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 2,
		Cols: 1,
		PadY: vg.Millimeter * 2,
	}

	canvases := plot.Align([][]*plot.Plot{{top}, {bottom}}, tiles, dc)
	top.Draw(canvases[0][0])
	bottom.Draw(canvases[1][0])

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
