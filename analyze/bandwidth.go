package analyze

import (
	"sort"
	"time"

	"github.com/torutils/relaycharts/measure"
)

// ============================================================================
// BANDWIDTH REDUCTIONS
// ============================================================================

// BandwidthPoint is one timestamp of a group bandwidth series: the mean
// Mbps over the N relays measured then.
type BandwidthPoint struct {
	Time time.Time
	Mbps float64
	N    int
}

// BandwidthSeries is one group's chronological bandwidth points.
type BandwidthSeries struct {
	Group  string
	Points []BandwidthPoint
}

// Latest returns the series' most recent point.
func (s BandwidthSeries) Latest() BandwidthPoint { return s.Points[len(s.Points)-1] }

// bandwidthValue picks the Mbps column matching the row kind.
func bandwidthValue(row measure.BandwidthRow) float64 {
	if row.Kind == measure.BandwidthHistory {
		return row.WriteMbps
	}
	return row.ObservedMbps
}

// GroupBandwidthSeries buckets bandwidth rows of one kind by group and
// timestamp, averaging Mbps per bucket. Rows without a group are dropped.
func GroupBandwidthSeries(rows []measure.BandwidthRow, kind measure.BandwidthKind) []BandwidthSeries {
	type bucket map[time.Time][]float64
	byGroup := make(map[string]bucket)
	for _, row := range rows {
		if row.Kind != kind || row.Group == "" {
			continue
		}
		b, ok := byGroup[row.Group]
		if !ok {
			b = make(bucket)
			byGroup[row.Group] = b
		}
		b[row.Timestamp] = append(b[row.Timestamp], bandwidthValue(row))
	}

	groups := make([]string, 0, len(byGroup))
	for g := range byGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	out := make([]BandwidthSeries, 0, len(groups))
	for _, g := range groups {
		b := byGroup[g]
		times := make([]time.Time, 0, len(b))
		for ts := range b {
			times = append(times, ts)
		}
		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

		s := BandwidthSeries{Group: g, Points: make([]BandwidthPoint, 0, len(times))}
		for _, ts := range times {
			values := b[ts]
			sum := 0.0
			for _, v := range values {
				sum += v
			}
			s.Points = append(s.Points, BandwidthPoint{
				Time: ts,
				Mbps: sum / float64(len(values)),
				N:    len(values),
			})
		}
		out = append(out, s)
	}
	return out
}

// BandwidthAverage is one group's mean Mbps over every row of one kind.
type BandwidthAverage struct {
	Group string
	Mbps  float64
	N     int
}

// GroupBandwidthAverages averages Mbps per group over all rows of one
// kind, in group letter order.
func GroupBandwidthAverages(rows []measure.BandwidthRow, kind measure.BandwidthKind) []BandwidthAverage {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, row := range rows {
		if row.Kind != kind || row.Group == "" {
			continue
		}
		sums[row.Group] += bandwidthValue(row)
		counts[row.Group]++
	}

	groups := make([]string, 0, len(sums))
	for g := range sums {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	out := make([]BandwidthAverage, 0, len(groups))
	for _, g := range groups {
		out = append(out, BandwidthAverage{
			Group: g,
			Mbps:  sums[g] / float64(counts[g]),
			N:     counts[g],
		})
	}
	return out
}
