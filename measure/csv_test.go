package measure

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ============================================================================
// FIXTURES
// ============================================================================

var measurementsCSV = `timestamp,server,type,fingerprint,nickname,group,rss_kb,vmsize_kb,hwm_kb,frag_ratio,count,total_kb,avg_kb,min_kb,max_kb
2025-12-26T00:00:00,co,aggregate,,,,,,,,3,3145728,1048576,524288,2097152
2025-12-26T00:00:00,co,relay,ABCD1234,fast1,A,524288,1048576,600000,1.2,,,,,
2025-12-26T00:00:00,co,relay,EF567890,fast2,Z,2097152,4194304,2200000,2.1,,,,,
not-a-timestamp,co,relay,XX,bad,A,1,,,,,,,,
2025-12-27T00:00:00,co,relay,ABCD1234,fast1,A,550000,,,,,,,,
`

var monitorCSV = `date,time,num_relays,total_mb,avg_mb,min_mb,max_mb
2025-10-01,06:00:00,20,40960,2048,512,5120
2025-10-02,06:00:00,20,43008,2150,520,5300
2025-10-03,06:00:00,22,51200,2327,480,6100
`

var bandwidthCSV = `timestamp,fingerprint,nickname,group,observed_bps,advertised_bps,observed_mbps,advertised_mbps,write_bps,write_mbps,flags,running
2025-12-26T12:00:00,ABCD1234,fast1,A,12500000,15000000,100.000000,120.000000,,,"Fast,Guard,Running",true
2025-12-26T12:00:00,EF567890,fast2,Z,6250000,6250000,50.000000,50.000000,,,"Fast,Running",true
2025-12-25T08:00:00,ABCD1234,fast1,A,,,,,11000000,88.000000,,
`

var legacyCSV = `# Relay memory experiment, started 2025-09-09
# A,22gz,DirCache 0 + MaxMem 2GB,0,2GB
# A,23gz,DirCache 0 + MaxMem 2GB,0,2GB
# B,ctrl1,Control (default),default,default

group,relay,day0,day1,day2,day5,day9
A,22gz,5.03,0.28,0.32,0.31,0.30
A,23gz,4.80,0.30,,0.35,0.33
B,ctrl1,0.57,2.10,4.20,5.10,5.35
`

// ============================================================================
// CURRENT SCHEMA
// ============================================================================

func TestReadMeasurements(t *testing.T) {
	rows, skipped, err := ReadMeasurements(strings.NewReader(measurementsCSV))
	if err != nil {
		t.Fatalf("ReadMeasurements failed: %v", err)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1 (the bad-timestamp row)", skipped)
	}
	if len(rows) != 4 {
		t.Fatalf("len(rows) = %d, want 4", len(rows))
	}

	agg := rows[0]
	if agg.Type != RowAggregate {
		t.Errorf("first row type = %q, want aggregate", agg.Type)
	}
	if agg.Count != 3 || agg.TotalKB != 3145728 || agg.AvgKB != 1048576 {
		t.Errorf("aggregate columns wrong: %+v", agg)
	}
	if got := agg.TotalGB(); math.Abs(got-3.0) > 1e-9 {
		t.Errorf("TotalGB = %v, want 3.0", got)
	}

	relay := rows[1]
	if relay.Nickname != "fast1" || relay.Group != "A" {
		t.Errorf("relay row wrong: %+v", relay)
	}
	if got := relay.RSSGB(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("RSSGB = %v, want 0.5", got)
	}
	if relay.FragRatio != 1.2 {
		t.Errorf("FragRatio = %v, want 1.2", relay.FragRatio)
	}
}

func TestWriteMeasurementsRoundTrip(t *testing.T) {
	ts := time.Date(2026, 1, 8, 22, 0, 0, 0, time.UTC)
	in := []Measurement{
		{Timestamp: ts, Server: "co", Type: RowAggregate, Count: 2, TotalKB: 2097152, AvgKB: 1048576, MinKB: 524288, MaxKB: 1572864},
		{Timestamp: ts, Server: "co", Type: RowRelay, Nickname: "22gz", Group: "A", RSSKB: 524288},
	}

	var buf bytes.Buffer
	if err := WriteMeasurements(&buf, in); err != nil {
		t.Fatalf("WriteMeasurements failed: %v", err)
	}

	out, skipped, err := ReadMeasurements(&buf)
	if err != nil {
		t.Fatalf("ReadMeasurements failed: %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if !out[0].Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", out[0].Timestamp, ts)
	}
	if out[0].Count != 2 || out[0].MaxKB != 1572864 {
		t.Errorf("aggregate row mangled: %+v", out[0])
	}
	if out[1].RSSKB != 524288 || out[1].Group != "A" {
		t.Errorf("relay row mangled: %+v", out[1])
	}
}

func TestParseTimestampZoneVariants(t *testing.T) {
	for _, s := range []string{"2025-12-26T00:00:00", "2025-12-26T00:00:00Z", "2025-12-26T00:00:00+01:00"} {
		if _, err := ParseTimestamp(s); err != nil {
			t.Errorf("ParseTimestamp(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseTimestamp("26/12/2025"); err == nil {
		t.Error("ParseTimestamp should reject non-ISO dates")
	}
}

// ============================================================================
// MONITOR STATS
// ============================================================================

func TestReadMonitorStats(t *testing.T) {
	rows, skipped, err := ReadMonitorStats(strings.NewReader(monitorCSV))
	if err != nil {
		t.Fatalf("ReadMonitorStats failed: %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if rows[0].NumRelays != 20 {
		t.Errorf("NumRelays = %d, want 20", rows[0].NumRelays)
	}
	if got := rows[0].TotalGB(); math.Abs(got-40.0) > 1e-9 {
		t.Errorf("TotalGB = %v, want 40.0", got)
	}
	want := time.Date(2025, 10, 1, 6, 0, 0, 0, time.UTC)
	if !rows[0].Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", rows[0].Timestamp, want)
	}
}

// ============================================================================
// BANDWIDTH
// ============================================================================

func TestReadBandwidth(t *testing.T) {
	rows, skipped, err := ReadBandwidth(strings.NewReader(bandwidthCSV))
	if err != nil {
		t.Fatalf("ReadBandwidth failed: %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}

	snap := rows[0]
	if snap.Kind != BandwidthSnapshot {
		t.Errorf("row 0 kind = %v, want snapshot", snap.Kind)
	}
	if snap.ObservedMbps != 100 || !snap.Running {
		t.Errorf("snapshot row wrong: %+v", snap)
	}
	if snap.Flags != "Fast,Guard,Running" {
		t.Errorf("Flags = %q", snap.Flags)
	}

	hist := rows[2]
	if hist.Kind != BandwidthHistory {
		t.Errorf("row 2 kind = %v, want history", hist.Kind)
	}
	if hist.WriteMbps != 88 {
		t.Errorf("WriteMbps = %v, want 88", hist.WriteMbps)
	}
}

func TestAppendBandwidthCreatesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bandwidth_measurements.csv")
	row := BandwidthRow{
		Timestamp:    time.Date(2025, 12, 26, 12, 0, 0, 0, time.UTC),
		Fingerprint:  "ABCD1234",
		Nickname:     "fast1",
		Group:        "A",
		Kind:         BandwidthSnapshot,
		ObservedBps:  12500000,
		ObservedMbps: 100,
		Running:      true,
	}

	if err := AppendBandwidth(path, []BandwidthRow{row}); err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	if err := AppendBandwidth(path, []BandwidthRow{row}); err != nil {
		t.Fatalf("second append failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if n := strings.Count(string(data), "observed_bps"); n != 1 {
		t.Errorf("header written %d times, want 1", n)
	}

	rows, _, err := ReadBandwidth(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadBandwidth failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("len(rows) = %d, want 2", len(rows))
	}
}

func TestBpsToMbps(t *testing.T) {
	if got := BpsToMbps(12500000); math.Abs(got-100) > 1e-9 {
		t.Errorf("BpsToMbps(12500000) = %v, want 100", got)
	}
}

// ============================================================================
// LEGACY SCHEMA
// ============================================================================

func TestReadLegacy(t *testing.T) {
	table, err := ReadLegacy(strings.NewReader(legacyCSV))
	if err != nil {
		t.Fatalf("ReadLegacy failed: %v", err)
	}

	wantDays := []int{0, 1, 2, 5, 9}
	if len(table.Days) != len(wantDays) {
		t.Fatalf("Days = %v, want %v", table.Days, wantDays)
	}
	for i, d := range wantDays {
		if table.Days[i] != d {
			t.Errorf("Days[%d] = %d, want %d", i, table.Days[i], d)
		}
	}

	if len(table.Rows) != 3 {
		t.Fatalf("len(Rows) = %d, want 3", len(table.Rows))
	}

	// Empty day2 cell for 23gz must be absent, not zero.
	var row23 *LegacyRow
	for i := range table.Rows {
		if table.Rows[i].Relay == "23gz" {
			row23 = &table.Rows[i]
		}
	}
	if row23 == nil {
		t.Fatal("relay 23gz not found")
	}
	if _, ok := row23.Days[2]; ok {
		t.Error("empty day2 cell should be absent from Days map")
	}
	if v := row23.Days[9]; v != 0.33 {
		t.Errorf("day9 = %v, want 0.33", v)
	}

	// Group definitions from comments.
	groupA, ok := table.Groups["A"]
	if !ok {
		t.Fatal("group A not parsed from comments")
	}
	if groupA.Name != "DirCache 0 + MaxMem 2GB" {
		t.Errorf("group A name = %q", groupA.Name)
	}
	if len(groupA.Relays) != 2 {
		t.Errorf("group A relays = %v, want 2 entries", groupA.Relays)
	}
	if groupA.DirCache != "0" || groupA.MaxMem != "2GB" {
		t.Errorf("group A config = %q/%q", groupA.DirCache, groupA.MaxMem)
	}

	letters := table.GroupLetters()
	if len(letters) != 2 || letters[0] != "A" || letters[1] != "B" {
		t.Errorf("GroupLetters = %v, want [A B]", letters)
	}
}

func TestReadLegacyNoHeader(t *testing.T) {
	if _, err := ReadLegacy(strings.NewReader("# just a comment\n")); err == nil {
		t.Error("expected error for legacy data with no header")
	}
}
