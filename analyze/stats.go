package analyze

import (
	"fmt"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/torutils/relaycharts/measure"
)

// ============================================================================
// CLASSIFICATION
// ============================================================================

// Status classifies a relay's memory behavior from its latest average RSS.
type Status string

const (
	StatusStable     Status = "STABLE"
	StatusModerate   Status = "MODERATE"
	StatusFragmented Status = "FRAGMENTED"

	stableBelowGB     = 1.0
	fragmentedAboveGB = 3.0
)

// Classify maps an average RSS in GB onto a status.
func Classify(avgGB float64) Status {
	switch {
	case avgGB < stableBelowGB:
		return StatusStable
	case avgGB > fragmentedAboveGB:
		return StatusFragmented
	default:
		return StatusModerate
	}
}

// ============================================================================
// SERIES SUMMARY
// ============================================================================

// Summary condenses one group series for tables and reports.
type Summary struct {
	Group      string
	RelayCount int
	StartGB    float64
	EndGB      float64
	LatestMin  float64
	LatestMax  float64
	ChangePct  float64
	Status     Status
}

// Growing reports whether the series ended above where it started.
func (s Summary) Growing() bool { return s.EndGB > s.StartGB }

// Summarize reduces a series to its summary. Panics on an empty series;
// GroupSeries never produces one.
func Summarize(s Series) Summary {
	first, last := s.First(), s.Latest()
	return Summary{
		Group:      s.Group,
		RelayCount: last.N,
		StartGB:    first.Avg,
		EndGB:      last.Avg,
		LatestMin:  last.Min,
		LatestMax:  last.Max,
		ChangePct:  PercentChange(first.Avg, last.Avg),
		Status:     Classify(last.Avg),
	}
}

// SummarizeAll summarizes every series, preserving order.
func SummarizeAll(series []Series) []Summary {
	out := make([]Summary, 0, len(series))
	for _, s := range series {
		out = append(out, Summarize(s))
	}
	return out
}

// PercentChange returns (end-start)/start as a percentage, 0 when start
// is 0.
func PercentChange(start, end float64) float64 {
	if start == 0 {
		return 0
	}
	return (end - start) / start * 100
}

// VsControl returns each group's latest average as a percent difference
// from the control group's. The control group itself maps to 0; when the
// control letter is absent the map is nil.
func VsControl(summaries []Summary, control string) map[string]float64 {
	var base float64
	found := false
	for _, s := range summaries {
		if s.Group == control {
			base = s.EndGB
			found = true
		}
	}
	if !found || base == 0 {
		return nil
	}
	out := make(map[string]float64, len(summaries))
	for _, s := range summaries {
		out[s.Group] = PercentChange(base, s.EndGB)
	}
	return out
}

// ============================================================================
// DESCRIPTIVE STATISTICS
// ============================================================================

// Descriptive holds the standard five descriptive statistics.
type Descriptive struct {
	Mean   float64
	Min    float64
	Max    float64
	StdDev float64
	Median float64
}

// Describe computes descriptive statistics over values.
func Describe(values []float64) (Descriptive, error) {
	if len(values) == 0 {
		return Descriptive{}, fmt.Errorf("describe: no values")
	}
	min, err := stats.Min(values)
	if err != nil {
		return Descriptive{}, err
	}
	max, err := stats.Max(values)
	if err != nil {
		return Descriptive{}, err
	}
	median, err := stats.Median(values)
	if err != nil {
		return Descriptive{}, err
	}
	return Descriptive{
		Mean:   stat.Mean(values, nil),
		Min:    min,
		Max:    max,
		StdDev: stat.StdDev(values, nil),
		Median: median,
	}, nil
}

// ============================================================================
// MONITOR STATS REDUCTIONS
// ============================================================================

// WeeklyBucket is one ISO week of monitor stats.
type WeeklyBucket struct {
	Year       int
	Week       int
	Start      time.Time
	AvgTotalGB float64
	MaxTotalGB float64
	AvgRelays  int
	N          int
}

// Label formats the bucket as e.g. "2025-W40".
func (b WeeklyBucket) Label() string { return fmt.Sprintf("%d-W%02d", b.Year, b.Week) }

// WeeklyTotals buckets monitor stats by ISO week and reduces each bucket
// to average and max total GB plus the average relay count.
func WeeklyTotals(rows []measure.MonitorStat) []WeeklyBucket {
	type key struct{ year, week int }
	buckets := make(map[key]*WeeklyBucket)
	for _, r := range rows {
		year, week := r.Timestamp.ISOWeek()
		k := key{year, week}
		b, ok := buckets[k]
		if !ok {
			b = &WeeklyBucket{Year: year, Week: week, Start: r.Timestamp, MaxTotalGB: r.TotalGB()}
			buckets[k] = b
		}
		if r.Timestamp.Before(b.Start) {
			b.Start = r.Timestamp
		}
		total := r.TotalGB()
		b.AvgTotalGB += total
		if total > b.MaxTotalGB {
			b.MaxTotalGB = total
		}
		b.AvgRelays += r.NumRelays
		b.N++
	}

	out := make([]WeeklyBucket, 0, len(buckets))
	for _, b := range buckets {
		b.AvgTotalGB /= float64(b.N)
		b.AvgRelays = (b.AvgRelays + b.N/2) / b.N
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Week < out[j].Week
	})
	return out
}

// CountChange marks a point where the monitored relay count changed.
type CountChange struct {
	Time time.Time
	From int
	To   int
}

// CountChanges finds the points where num_relays changes between
// consecutive monitor stats rows.
func CountChanges(rows []measure.MonitorStat) []CountChange {
	var out []CountChange
	for i := 1; i < len(rows); i++ {
		if rows[i].NumRelays != rows[i-1].NumRelays {
			out = append(out, CountChange{
				Time: rows[i].Timestamp,
				From: rows[i-1].NumRelays,
				To:   rows[i].NumRelays,
			})
		}
	}
	return out
}

// PointCountChanges finds the relay-count changes between consecutive
// series points, for series built from aggregate measurement rows.
func PointCountChanges(points []Point) []CountChange {
	var out []CountChange
	for i := 1; i < len(points); i++ {
		if points[i].N != points[i-1].N {
			out = append(out, CountChange{
				Time: points[i].Time,
				From: points[i-1].N,
				To:   points[i].N,
			})
		}
	}
	return out
}

// MonitorPoints converts monitor stats into the fleet-usage chart's two
// series: total GB over time, and per-relay min/avg/max over time.
func MonitorPoints(rows []measure.MonitorStat) (totals, perRelay []Point) {
	sorted := make([]measure.MonitorStat, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	for _, r := range sorted {
		totals = append(totals, Point{Time: r.Timestamp, Avg: r.TotalGB(), N: r.NumRelays})
		perRelay = append(perRelay, Point{
			Time: r.Timestamp,
			Avg:  r.AvgGB(),
			Min:  r.MinGB(),
			Max:  r.MaxGB(),
			N:    r.NumRelays,
		})
	}
	return totals, perRelay
}

// MonitorSummary condenses a monitor stats series for the text summary.
type MonitorSummary struct {
	Start        time.Time
	End          time.Time
	Days         int
	StartTotalGB float64
	EndTotalGB   float64
	GrowthPct    float64
	CurrentAvgGB float64
	CurrentMinGB float64
	CurrentMaxGB float64
	Relays       int
}

// SummarizeMonitor reduces monitor stats to a summary over their full span.
func SummarizeMonitor(rows []measure.MonitorStat) (MonitorSummary, error) {
	if len(rows) == 0 {
		return MonitorSummary{}, fmt.Errorf("summarize monitor: no rows")
	}
	sorted := make([]measure.MonitorStat, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	first, last := sorted[0], sorted[len(sorted)-1]
	return MonitorSummary{
		Start:        first.Timestamp,
		End:          last.Timestamp,
		Days:         int(last.Timestamp.Sub(first.Timestamp).Hours() / 24),
		StartTotalGB: first.TotalGB(),
		EndTotalGB:   last.TotalGB(),
		GrowthPct:    PercentChange(first.TotalGB(), last.TotalGB()),
		CurrentAvgGB: last.AvgGB(),
		CurrentMinGB: last.MinGB(),
		CurrentMaxGB: last.MaxGB(),
		Relays:       last.NumRelays,
	}, nil
}
