package analyze

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/torutils/relaycharts/measure"
)

func ts(day, hour int) time.Time {
	return time.Date(2025, 12, day, hour, 0, 0, 0, time.UTC)
}

func relayRow(t time.Time, nick, group string, gb float64) measure.Measurement {
	return measure.Measurement{
		Timestamp: t,
		Type:      measure.RowRelay,
		Nickname:  nick,
		Group:     group,
		RSSKB:     int64(gb * measure.KBPerGB),
	}
}

func aggRow(t time.Time, count int, totalGB float64) measure.Measurement {
	total := int64(totalGB * measure.KBPerGB)
	return measure.Measurement{
		Timestamp: t,
		Type:      measure.RowAggregate,
		Count:     count,
		TotalKB:   total,
		AvgKB:     total / int64(count),
		MinKB:     total / int64(count) / 2,
		MaxKB:     total / int64(count) * 2,
	}
}

func almostEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestGroupSeries(t *testing.T) {
	rows := []measure.Measurement{
		// Out of order on purpose: later timestamp first.
		relayRow(ts(27, 0), "a1", "A", 2.0),
		relayRow(ts(26, 0), "a1", "A", 1.0),
		relayRow(ts(26, 0), "a2", "A", 3.0),
		relayRow(ts(26, 0), "z1", "Z", 4.0),
		aggRow(ts(26, 0), 3, 8.0),
		relayRow(ts(26, 0), "x1", "", 9.0),
	}

	series := GroupSeries(rows, nil)
	if len(series) != 2 {
		t.Fatalf("len(series) = %d, want 2 (aggregate and ungrouped rows dropped)", len(series))
	}
	if series[0].Group != "A" || series[1].Group != "Z" {
		t.Fatalf("group order = %s,%s", series[0].Group, series[1].Group)
	}

	a := series[0]
	if len(a.Points) != 2 {
		t.Fatalf("group A points = %d, want 2", len(a.Points))
	}
	if !a.Points[0].Time.Before(a.Points[1].Time) {
		t.Error("points not chronological")
	}
	almostEqual(t, "A day1 avg", a.Points[0].Avg, 2.0)
	almostEqual(t, "A day1 min", a.Points[0].Min, 1.0)
	almostEqual(t, "A day1 max", a.Points[0].Max, 3.0)
	if a.Points[0].N != 2 {
		t.Errorf("A day1 N = %d, want 2", a.Points[0].N)
	}
	if a.RelayCount() != 1 {
		t.Errorf("A latest relay count = %d, want 1", a.RelayCount())
	}
}

func TestGroupSeriesResolver(t *testing.T) {
	rows := []measure.Measurement{
		relayRow(ts(26, 0), "fast1", "", 1.0),
		relayRow(ts(26, 0), "other", "", 1.0),
	}
	groupOf := func(m measure.Measurement) string {
		if strings.HasPrefix(m.Nickname, "fast") {
			return "A"
		}
		return ""
	}

	series := GroupSeries(rows, groupOf)
	if len(series) != 1 || series[0].Group != "A" {
		t.Fatalf("series = %+v, want single group A", series)
	}
}

func TestAggregateAndTotalSeries(t *testing.T) {
	rows := []measure.Measurement{
		aggRow(ts(27, 0), 2, 6.0),
		aggRow(ts(26, 0), 2, 4.0),
		relayRow(ts(26, 0), "a1", "A", 2.0),
	}

	agg := AggregateSeries(rows)
	if len(agg) != 2 {
		t.Fatalf("len(agg) = %d, want 2", len(agg))
	}
	if !agg[0].Time.Equal(ts(26, 0)) {
		t.Error("aggregate series not sorted")
	}
	almostEqual(t, "avg", agg[0].Avg, 2.0)
	if agg[0].N != 2 {
		t.Errorf("N = %d, want 2", agg[0].N)
	}

	totals := TotalSeries(rows)
	almostEqual(t, "total day1", totals[0].Avg, 4.0)
	almostEqual(t, "total day2", totals[1].Avg, 6.0)
}

func TestLatestPerRelay(t *testing.T) {
	rows := []measure.Measurement{
		relayRow(ts(26, 0), "a1", "A", 1.0),
		relayRow(ts(27, 0), "a1", "A", 2.5),
		relayRow(ts(27, 0), "z1", "Z", 4.0),
	}

	all := LatestPerRelay(rows, "")
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}
	almostEqual(t, "a1 latest", all["a1"], 2.5)

	onlyA := LatestPerRelay(rows, "A")
	if len(onlyA) != 1 {
		t.Errorf("len(onlyA) = %d, want 1", len(onlyA))
	}
}

func TestLegacyGroupSeries(t *testing.T) {
	table, err := measure.ReadLegacy(strings.NewReader(`# A,r1,cfg,0,2GB
group,relay,day0,day1,day2
A,r1,1.0,2.0,
A,r2,3.0,,
B,c1,2.0,2.0,2.0
`))
	if err != nil {
		t.Fatalf("ReadLegacy failed: %v", err)
	}

	series := LegacyGroupSeries(table)
	if len(series) != 2 {
		t.Fatalf("len(series) = %d, want 2", len(series))
	}

	a := series[0]
	if a.Group != "A" {
		t.Fatalf("first group = %s", a.Group)
	}
	// Group A has no day2 values at all, so only day0/day1 appear.
	if len(a.Days) != 2 || a.Days[0] != 0 || a.Days[1] != 1 {
		t.Fatalf("A days = %v, want [0 1]", a.Days)
	}
	almostEqual(t, "A day0 avg", a.Avg[0], 2.0)
	almostEqual(t, "A day1 avg", a.Avg[1], 2.0)

	b := series[1]
	if len(b.Days) != 3 {
		t.Errorf("B days = %v, want 3 entries", b.Days)
	}
}
