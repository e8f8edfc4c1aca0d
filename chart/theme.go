// Package chart renders the fleet's PNG charts with gonum/plot. Every
// chart shares the dark theme and group color palette used across the
// experiment tooling.
package chart

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ============================================================================
// THEME
// ============================================================================

var (
	backgroundColor = color.RGBA{R: 0x0d, G: 0x11, B: 0x17, A: 0xff}
	gridColor       = color.RGBA{R: 0x44, G: 0x44, B: 0x44, A: 0xff}
	textColor       = color.RGBA{R: 0xc9, G: 0xd1, B: 0xd9, A: 0xff}
	controlColor    = color.RGBA{R: 0xe7, G: 0x4c, B: 0x3c, A: 0xff}
)

// groupPalette maps group letters to the fleet's standard colors.
var groupPalette = map[string]color.RGBA{
	"A": {R: 0x2e, G: 0xcc, B: 0x71, A: 0xff},
	"B": {R: 0x34, G: 0x98, B: 0xdb, A: 0xff},
	"C": {R: 0x9b, G: 0x59, B: 0xb6, A: 0xff},
	"D": {R: 0xf3, G: 0x9c, B: 0x12, A: 0xff},
	"E": {R: 0xe7, G: 0x4c, B: 0x3c, A: 0xff},
	"F": {R: 0x1a, G: 0xbc, B: 0x9c, A: 0xff},
	"G": {R: 0x16, G: 0xa0, B: 0x85, A: 0xff},
	"H": {R: 0x27, G: 0xae, B: 0x60, A: 0xff},
	"I": {R: 0x00, G: 0xbc, B: 0xd4, A: 0xff},
	"Z": {R: 0xe7, G: 0x4c, B: 0x3c, A: 0xff},
}

// fallbackPalette colors groups outside the standard letters.
var fallbackPalette = []color.RGBA{
	{R: 0xe6, G: 0x7e, B: 0x22, A: 0xff},
	{R: 0x95, G: 0xa5, B: 0xa6, A: 0xff},
	{R: 0xd3, G: 0x54, B: 0x00, A: 0xff},
	{R: 0x8e, G: 0x44, B: 0xad, A: 0xff},
}

// GroupColor returns the standard color for a group letter. Unknown
// letters cycle through the fallback palette by index.
func GroupColor(letter string, index int) color.RGBA {
	if c, ok := groupPalette[letter]; ok {
		return c
	}
	return fallbackPalette[index%len(fallbackPalette)]
}

// applyTheme sets the dark background and axis colors on p.
func applyTheme(p *plot.Plot) {
	p.BackgroundColor = backgroundColor

	p.Title.TextStyle.Color = textColor
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.Title.Padding = vg.Points(8)

	for _, ax := range []*plot.Axis{&p.X, &p.Y} {
		ax.LineStyle.Color = gridColor
		ax.Label.TextStyle.Color = textColor
		ax.Tick.LineStyle.Color = gridColor
		ax.Tick.Label.Color = textColor
	}

	p.Legend.TextStyle.Color = textColor
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.Padding = vg.Points(4)

	grid := plotter.NewGrid()
	grid.Vertical.Color = gridColor
	grid.Horizontal.Color = gridColor
	p.Add(grid)
}

// newPlot builds a themed plot with title and axis labels.
func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	applyTheme(p)
	return p
}
