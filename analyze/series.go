// Package analyze turns raw measurement rows into per-group time series,
// summaries and comparisons. All derived values are in GB.
package analyze

import (
	"sort"
	"time"

	"github.com/torutils/relaycharts/measure"
)

// ============================================================================
// GROUP TIME SERIES
// ============================================================================

// Point is one timestamp of a group series: avg/min/max RSS in GB over
// the N relays measured at that timestamp.
type Point struct {
	Time time.Time
	Avg  float64
	Min  float64
	Max  float64
	N    int
}

// Series is one group's chronological sequence of points.
type Series struct {
	Group  string
	Points []Point
}

// First returns the series' earliest point.
func (s Series) First() Point { return s.Points[0] }

// Latest returns the series' most recent point.
func (s Series) Latest() Point { return s.Points[len(s.Points)-1] }

// RelayCount returns the relay count at the latest point.
func (s Series) RelayCount() int { return s.Latest().N }

// GroupSeries buckets relay rows by group and timestamp and reduces each
// bucket to avg/min/max GB. groupOf overrides the row's own group column
// (pass nil to use it directly); rows resolving to an empty group are
// dropped. Series come back in group letter order, points chronological.
func GroupSeries(rows []measure.Measurement, groupOf func(measure.Measurement) string) []Series {
	if groupOf == nil {
		groupOf = func(m measure.Measurement) string { return m.Group }
	}

	type bucket map[time.Time][]float64
	byGroup := make(map[string]bucket)
	for _, m := range rows {
		if m.Type != measure.RowRelay {
			continue
		}
		group := groupOf(m)
		if group == "" {
			continue
		}
		b, ok := byGroup[group]
		if !ok {
			b = make(bucket)
			byGroup[group] = b
		}
		b[m.Timestamp] = append(b[m.Timestamp], m.RSSGB())
	}

	groups := make([]string, 0, len(byGroup))
	for g := range byGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	out := make([]Series, 0, len(groups))
	for _, g := range groups {
		b := byGroup[g]
		times := make([]time.Time, 0, len(b))
		for ts := range b {
			times = append(times, ts)
		}
		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

		s := Series{Group: g, Points: make([]Point, 0, len(times))}
		for _, ts := range times {
			s.Points = append(s.Points, reducePoint(ts, b[ts]))
		}
		out = append(out, s)
	}
	return out
}

func reducePoint(ts time.Time, values []float64) Point {
	p := Point{Time: ts, N: len(values), Min: values[0], Max: values[0]}
	sum := 0.0
	for _, v := range values {
		sum += v
		if v < p.Min {
			p.Min = v
		}
		if v > p.Max {
			p.Max = v
		}
	}
	p.Avg = sum / float64(len(values))
	return p
}

// AggregateSeries extracts the fleet-wide series from type=aggregate rows:
// avg/min/max GB per timestamp with the recorded relay count. The Avg
// field holds total GB divided by count; use TotalSeries for raw totals.
func AggregateSeries(rows []measure.Measurement) []Point {
	var points []Point
	for _, m := range rows {
		if m.Type != measure.RowAggregate {
			continue
		}
		points = append(points, Point{
			Time: m.Timestamp,
			Avg:  float64(m.AvgKB) / measure.KBPerGB,
			Min:  float64(m.MinKB) / measure.KBPerGB,
			Max:  float64(m.MaxKB) / measure.KBPerGB,
			N:    m.Count,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points
}

// TotalSeries extracts fleet total GB per timestamp from aggregate rows.
func TotalSeries(rows []measure.Measurement) []Point {
	var points []Point
	for _, m := range rows {
		if m.Type != measure.RowAggregate {
			continue
		}
		points = append(points, Point{Time: m.Timestamp, Avg: m.TotalGB(), N: m.Count})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points
}

// LatestPerRelay returns each relay's most recent RSS in GB, keyed by
// nickname, restricted to one group ("" for all).
func LatestPerRelay(rows []measure.Measurement, group string) map[string]float64 {
	latest := make(map[string]time.Time)
	values := make(map[string]float64)
	for _, m := range rows {
		if m.Type != measure.RowRelay || m.Nickname == "" {
			continue
		}
		if group != "" && m.Group != group {
			continue
		}
		if ts, ok := latest[m.Nickname]; !ok || m.Timestamp.After(ts) {
			latest[m.Nickname] = m.Timestamp
			values[m.Nickname] = m.RSSGB()
		}
	}
	return values
}

// ============================================================================
// LEGACY DAY SERIES
// ============================================================================

// DaySeries is a per-group average over legacy day columns.
type DaySeries struct {
	Group string
	Days  []int
	Avg   []float64
}

// LegacyGroupSeries reduces a legacy table to per-group day averages.
// Days where a group has no values are skipped for that group.
func LegacyGroupSeries(table *measure.LegacyTable) []DaySeries {
	var out []DaySeries
	for _, letter := range table.GroupLetters() {
		ds := DaySeries{Group: letter}
		for _, day := range table.Days {
			sum, n := 0.0, 0
			for _, row := range table.Rows {
				if row.Group != letter {
					continue
				}
				if v, ok := row.Days[day]; ok {
					sum += v
					n++
				}
			}
			if n > 0 {
				ds.Days = append(ds.Days, day)
				ds.Avg = append(ds.Avg, sum/float64(n))
			}
		}
		if len(ds.Days) > 0 {
			out = append(out, ds)
		}
	}
	return out
}
