package analyze

import (
	"testing"
	"time"

	"github.com/torutils/relaycharts/measure"
)

func bwRow(t time.Time, nick, group string, kind measure.BandwidthKind, mbps float64) measure.BandwidthRow {
	row := measure.BandwidthRow{
		Timestamp: t,
		Nickname:  nick,
		Group:     group,
		Kind:      kind,
	}
	if kind == measure.BandwidthHistory {
		row.WriteMbps = mbps
	} else {
		row.ObservedMbps = mbps
	}
	return row
}

func TestGroupBandwidthSeries(t *testing.T) {
	rows := []measure.BandwidthRow{
		bwRow(ts(26, 12), "a1", "A", measure.BandwidthHistory, 80),
		bwRow(ts(26, 12), "a2", "A", measure.BandwidthHistory, 120),
		bwRow(ts(27, 12), "a1", "A", measure.BandwidthHistory, 90),
		// Wrong kind and ungrouped rows are dropped.
		bwRow(ts(26, 12), "a1", "A", measure.BandwidthSnapshot, 100),
		bwRow(ts(26, 12), "x1", "", measure.BandwidthHistory, 50),
	}

	series := GroupBandwidthSeries(rows, measure.BandwidthHistory)
	if len(series) != 1 {
		t.Fatalf("len(series) = %d, want 1", len(series))
	}
	s := series[0]
	if s.Group != "A" || len(s.Points) != 2 {
		t.Fatalf("series = %+v", s)
	}
	almostEqual(t, "first avg", s.Points[0].Mbps, 100)
	if s.Points[0].N != 2 {
		t.Errorf("N = %d, want 2", s.Points[0].N)
	}
	almostEqual(t, "latest", s.Latest().Mbps, 90)
}

func TestGroupBandwidthAverages(t *testing.T) {
	rows := []measure.BandwidthRow{
		bwRow(ts(26, 12), "a1", "A", measure.BandwidthSnapshot, 90),
		bwRow(ts(26, 12), "a2", "A", measure.BandwidthSnapshot, 110),
		bwRow(ts(26, 12), "z1", "Z", measure.BandwidthSnapshot, 80),
	}

	averages := GroupBandwidthAverages(rows, measure.BandwidthSnapshot)
	if len(averages) != 2 {
		t.Fatalf("len(averages) = %d, want 2", len(averages))
	}
	if averages[0].Group != "A" || averages[0].N != 2 {
		t.Errorf("first = %+v", averages[0])
	}
	almostEqual(t, "A avg", averages[0].Mbps, 100)
	almostEqual(t, "Z avg", averages[1].Mbps, 80)
}

func TestRankConfigurations(t *testing.T) {
	results := []ExperimentResult{
		{ID: "e1", Labels: map[string]string{"A": "jemalloc"}, Summaries: []Summary{
			{Group: "A", EndGB: 1.2},
			{Group: "Z", EndGB: 3.5},
		}},
		{ID: "e2", Summaries: []Summary{
			{Group: "A", EndGB: 0.9},
		}},
	}

	ranked := RankConfigurations(results, 2)
	if len(ranked) != 2 {
		t.Fatalf("len(ranked) = %d, want 2", len(ranked))
	}
	if ranked[0].ExperimentID != "e2" {
		t.Errorf("best = %+v, want e2's group A", ranked[0])
	}
	if ranked[1].Label != "jemalloc" {
		t.Errorf("second label = %q, want jemalloc", ranked[1].Label)
	}

	letters := GroupLetters(results)
	if len(letters) != 2 || letters[0] != "A" || letters[1] != "Z" {
		t.Errorf("GroupLetters = %v", letters)
	}
}
