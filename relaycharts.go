// Package relaycharts turns CSV-logged memory and bandwidth measurements
// of a relay fleet into charts and markdown reports.
//
// Usage:
//
//	import "github.com/torutils/relaycharts/analyze"
//	import "github.com/torutils/relaycharts/chart"
//
//	series := analyze.GroupSeries(rows, nil)
//	err := chart.GroupTimeSeries("memory_by_group.png", "Memory by group", series, nil, nil)
//
// The analyze package takes parsed measurements (the measure package reads
// the four CSV schemas the fleet tooling produces) and reduces them to
// per-group time series and summaries. The chart and report packages turn
// those into PNG charts and markdown reports.
//
// All computation is local. Only the onionoo package talks to the network,
// and only when asked to collect bandwidth data.
package relaycharts
