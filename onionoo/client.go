// Package onionoo fetches relay bandwidth data from an Onionoo-style
// metrics API: batched detail lookups and per-relay write histories.
package onionoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/torutils/relaycharts/measure"
)

// DefaultBaseURL is the public Onionoo instance.
const DefaultBaseURL = "https://onionoo.torproject.org"

const (
	detailsBatchSize = 50
	detailsPause     = time.Second
	historyPause     = 200 * time.Millisecond
)

// historyPeriods in preference order: the finest-grained period wins.
var historyPeriods = []string{"3_days", "1_week", "1_month"}

// Doer is the subset of http.Client the API client needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to an Onionoo-style API. The zero value is not usable;
// call NewClient.
type Client struct {
	BaseURL    string
	HTTPClient Doer
	UserAgent  string
	// BatchPause and RelayPause space out requests so bulk collection
	// stays polite to the public instance.
	BatchPause time.Duration
	RelayPause time.Duration
}

// NewClient builds a client against the public instance with default
// pauses.
func NewClient() *Client {
	return &Client{
		BaseURL:    DefaultBaseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		UserAgent:  "torutils-relaycharts/1.0",
		BatchPause: detailsPause,
		RelayPause: historyPause,
	}
}

// Relay is one relay's bandwidth snapshot from the details endpoint.
type Relay struct {
	Fingerprint   string   `json:"fingerprint"`
	Nickname      string   `json:"nickname"`
	ObservedBps   float64  `json:"observed_bandwidth"`
	AdvertisedBps float64  `json:"advertised_bandwidth"`
	Flags         []string `json:"flags"`
	Running       bool     `json:"running"`
}

type detailsDoc struct {
	Relays []Relay `json:"relays"`
}

// Details looks up relays by fingerprint in batches, pausing between
// batches.
func (c *Client) Details(ctx context.Context, fingerprints []string) ([]Relay, error) {
	var relays []Relay
	for start := 0; start < len(fingerprints); start += detailsBatchSize {
		if start > 0 {
			if err := sleep(ctx, c.BatchPause); err != nil {
				return relays, err
			}
		}
		end := start + detailsBatchSize
		if end > len(fingerprints) {
			end = len(fingerprints)
		}

		q := url.Values{}
		q.Set("lookup", strings.Join(fingerprints[start:end], ","))
		q.Set("fields", "fingerprint,nickname,observed_bandwidth,advertised_bandwidth,flags,running")

		var doc detailsDoc
		if err := c.get(ctx, "/details", q, &doc); err != nil {
			return relays, err
		}
		relays = append(relays, doc.Relays...)
	}
	return relays, nil
}

// HistoryPoint is one hour-bucketed write-history sample in bytes/sec.
type HistoryPoint struct {
	Time        time.Time
	BytesPerSec float64
}

type historySeries struct {
	First    string     `json:"first"`
	Interval int64      `json:"interval"`
	Factor   float64    `json:"factor"`
	Values   []*float64 `json:"values"`
}

type bandwidthDoc struct {
	Relays []struct {
		Fingerprint  string                   `json:"fingerprint"`
		WriteHistory map[string]historySeries `json:"write_history"`
	} `json:"relays"`
}

// WriteHistory fetches one relay's write history, preferring the
// finest-grained period available. Sleeps RelayPause first so callers
// can loop over a fleet without extra pacing.
func (c *Client) WriteHistory(ctx context.Context, fingerprint string) ([]HistoryPoint, error) {
	if err := sleep(ctx, c.RelayPause); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("lookup", fingerprint)

	var doc bandwidthDoc
	if err := c.get(ctx, "/bandwidth", q, &doc); err != nil {
		return nil, err
	}
	if len(doc.Relays) == 0 {
		return nil, nil
	}

	for _, period := range historyPeriods {
		series, ok := doc.Relays[0].WriteHistory[period]
		if !ok {
			continue
		}
		return expandHistory(series)
	}
	return nil, nil
}

// expandHistory steps first+interval through values, skipping nulls and
// bucketing to the hour. value*factor yields bytes/sec.
func expandHistory(series historySeries) ([]HistoryPoint, error) {
	first, err := time.Parse("2006-01-02 15:04:05", series.First)
	if err != nil {
		return nil, fmt.Errorf("parse history first timestamp: %w", err)
	}

	var points []HistoryPoint
	for i, v := range series.Values {
		if v == nil {
			continue
		}
		ts := first.Add(time.Duration(int64(i)*series.Interval) * time.Second)
		points = append(points, HistoryPoint{
			Time:        ts.Truncate(time.Hour),
			BytesPerSec: *v * series.Factor,
		})
	}
	return points, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := strings.TrimRight(c.BaseURL, "/") + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("onionoo %s: unexpected status %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("onionoo %s: decode: %w", path, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ============================================================================
// CSV CONVERSION
// ============================================================================

// SnapshotRows converts detail lookups to snapshot CSV rows. groupOf
// resolves a relay (nickname or fingerprint) to its group letter.
func SnapshotRows(relays []Relay, now time.Time, groupOf func(string) string) []measure.BandwidthRow {
	rows := make([]measure.BandwidthRow, 0, len(relays))
	for _, r := range relays {
		group := ""
		if groupOf != nil {
			if group = groupOf(r.Nickname); group == "" {
				group = groupOf(r.Fingerprint)
			}
		}
		rows = append(rows, measure.BandwidthRow{
			Timestamp:      now,
			Fingerprint:    r.Fingerprint,
			Nickname:       r.Nickname,
			Group:          group,
			Kind:           measure.BandwidthSnapshot,
			ObservedBps:    r.ObservedBps,
			AdvertisedBps:  r.AdvertisedBps,
			ObservedMbps:   measure.BpsToMbps(r.ObservedBps),
			AdvertisedMbps: measure.BpsToMbps(r.AdvertisedBps),
			Flags:          strings.Join(r.Flags, ","),
			Running:        r.Running,
		})
	}
	return rows
}

// HistoryRows converts write-history points to history CSV rows.
func HistoryRows(fingerprint, nickname, group string, points []HistoryPoint) []measure.BandwidthRow {
	rows := make([]measure.BandwidthRow, 0, len(points))
	for _, pt := range points {
		rows = append(rows, measure.BandwidthRow{
			Timestamp:   pt.Time,
			Fingerprint: fingerprint,
			Nickname:    nickname,
			Group:       group,
			Kind:        measure.BandwidthHistory,
			WriteBps:    pt.BytesPerSec,
			WriteMbps:   measure.BpsToMbps(pt.BytesPerSec),
		})
	}
	return rows
}
