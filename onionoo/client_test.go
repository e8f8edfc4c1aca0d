package onionoo

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/torutils/relaycharts/measure"
)

// newTestClient points a client at a test server with pauses disabled.
func newTestClient(srv *httptest.Server) *Client {
	c := NewClient()
	c.BaseURL = srv.URL
	c.HTTPClient = srv.Client()
	c.BatchPause = 0
	c.RelayPause = 0
	return c
}

func TestDetailsBatching(t *testing.T) {
	var lookups []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/details" {
			t.Errorf("path = %q", r.URL.Path)
		}
		lookup := r.URL.Query().Get("lookup")
		lookups = append(lookups, lookup)

		fps := strings.Split(lookup, ",")
		var relays []string
		for _, fp := range fps {
			relays = append(relays, fmt.Sprintf(
				`{"fingerprint":%q,"nickname":"r%s","observed_bandwidth":12500000,"advertised_bandwidth":15000000,"flags":["Fast","Running"],"running":true}`,
				fp, fp))
		}
		fmt.Fprintf(w, `{"relays":[%s]}`, strings.Join(relays, ","))
	}))
	defer srv.Close()

	fingerprints := make([]string, 120)
	for i := range fingerprints {
		fingerprints[i] = fmt.Sprintf("FP%03d", i)
	}

	relays, err := newTestClient(srv).Details(context.Background(), fingerprints)
	if err != nil {
		t.Fatalf("Details failed: %v", err)
	}
	if len(relays) != 120 {
		t.Errorf("len(relays) = %d, want 120", len(relays))
	}

	// 120 fingerprints split into batches of 50.
	if len(lookups) != 3 {
		t.Fatalf("batches = %d, want 3", len(lookups))
	}
	if n := len(strings.Split(lookups[0], ",")); n != 50 {
		t.Errorf("first batch size = %d, want 50", n)
	}
	if n := len(strings.Split(lookups[2], ",")); n != 20 {
		t.Errorf("last batch size = %d, want 20", n)
	}

	if relays[0].ObservedBps != 12500000 || !relays[0].Running {
		t.Errorf("relay = %+v", relays[0])
	}
}

func TestDetailsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv).Details(context.Background(), []string{"FP"}); err == nil {
		t.Error("expected error on non-200 status")
	}
}

func TestWriteHistoryPeriodPreference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bandwidth" {
			t.Errorf("path = %q", r.URL.Path)
		}
		// Both periods present: 3_days must win. Values include a null
		// gap that gets skipped.
		fmt.Fprint(w, `{"relays":[{"fingerprint":"FP001","write_history":{
			"1_month":{"first":"2025-11-01 00:00:00","interval":86400,"factor":1000,"values":[1,2,3]},
			"3_days":{"first":"2025-12-23 00:30:00","interval":14400,"factor":125,"values":[800,null,1600]}
		}}]}`)
	}))
	defer srv.Close()

	points, err := newTestClient(srv).WriteHistory(context.Background(), "FP001")
	if err != nil {
		t.Fatalf("WriteHistory failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2 (null skipped)", len(points))
	}

	// 00:30 truncates to the hour.
	want := time.Date(2025, 12, 23, 0, 0, 0, 0, time.UTC)
	if !points[0].Time.Equal(want) {
		t.Errorf("first point time = %v, want %v", points[0].Time, want)
	}
	if math.Abs(points[0].BytesPerSec-100000) > 1e-9 {
		t.Errorf("first point = %v, want 800*125", points[0].BytesPerSec)
	}

	// Second surviving value is index 2: first + 2*interval.
	want2 := time.Date(2025, 12, 23, 8, 0, 0, 0, time.UTC)
	if !points[1].Time.Equal(want2) {
		t.Errorf("second point time = %v, want %v", points[1].Time, want2)
	}
}

func TestWriteHistoryUnknownRelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"relays":[]}`)
	}))
	defer srv.Close()

	points, err := newTestClient(srv).WriteHistory(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("WriteHistory failed: %v", err)
	}
	if points != nil {
		t.Errorf("points = %v, want nil", points)
	}
}

func TestSnapshotRows(t *testing.T) {
	relays := []Relay{{
		Fingerprint:   "FP001",
		Nickname:      "fast1",
		ObservedBps:   12500000,
		AdvertisedBps: 15000000,
		Flags:         []string{"Fast", "Guard"},
		Running:       true,
	}}
	now := time.Date(2025, 12, 26, 12, 0, 0, 0, time.UTC)
	groupOf := func(relay string) string {
		if relay == "fast1" {
			return "A"
		}
		return ""
	}

	rows := SnapshotRows(relays, now, groupOf)
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d", len(rows))
	}
	row := rows[0]
	if row.Kind != measure.BandwidthSnapshot || row.Group != "A" {
		t.Errorf("row = %+v", row)
	}
	if math.Abs(row.ObservedMbps-100) > 1e-9 {
		t.Errorf("ObservedMbps = %v, want 100", row.ObservedMbps)
	}
	if row.Flags != "Fast,Guard" {
		t.Errorf("Flags = %q", row.Flags)
	}
}

func TestHistoryRows(t *testing.T) {
	points := []HistoryPoint{
		{Time: time.Date(2025, 12, 23, 0, 0, 0, 0, time.UTC), BytesPerSec: 11000000},
	}
	rows := HistoryRows("FP001", "fast1", "A", points)
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d", len(rows))
	}
	if rows[0].Kind != measure.BandwidthHistory {
		t.Errorf("Kind = %v", rows[0].Kind)
	}
	if math.Abs(rows[0].WriteMbps-88) > 1e-9 {
		t.Errorf("WriteMbps = %v, want 88", rows[0].WriteMbps)
	}
}
