package measure

import (
	"time"
)

// ============================================================================
// MEASUREMENT TYPES — The four CSV schemas the fleet tooling produces
// ============================================================================
// Current schema:   timestamp,server,type,fingerprint,nickname,group,rss_kb,
//                   vmsize_kb,hwm_kb,frag_ratio,count,total_kb,avg_kb,min_kb,max_kb
// Legacy schema:    group,relay,day0,day1,...,dayN (RSS in GB)
// Monitor schema:   date,time,num_relays,total_mb,avg_mb,min_mb,max_mb
// Bandwidth schema: timestamp,fingerprint,nickname,group,observed_bps,
//                   advertised_bps,observed_mbps,advertised_mbps,
//                   write_bps,write_mbps,flags,running
// ============================================================================

// Row types within the current measurement schema. Relay rows and aggregate
// rows share one file, distinguished by the type column.
const (
	RowRelay     = "relay"
	RowAggregate = "aggregate"
)

// KBPerGB converts between KB and GB columns (1024 * 1024).
const KBPerGB = 1048576

// Measurement is one row of the current schema. Zero means the cell was
// empty: relay rows leave the aggregate columns blank and vice versa.
type Measurement struct {
	Timestamp   time.Time
	Server      string
	Type        string
	Fingerprint string
	Nickname    string
	Group       string

	// Relay rows
	RSSKB     int64
	VMSizeKB  int64
	HWMKB     int64
	FragRatio float64

	// Aggregate rows
	Count   int
	TotalKB int64
	AvgKB   int64
	MinKB   int64
	MaxKB   int64
}

// RSSGB returns the relay RSS in GB.
func (m Measurement) RSSGB() float64 { return float64(m.RSSKB) / KBPerGB }

// TotalGB returns the aggregate total in GB.
func (m Measurement) TotalGB() float64 { return float64(m.TotalKB) / KBPerGB }

// MonitorStat is one row of the monitor stats schema (fleet-wide snapshot
// written by the monitoring cron).
type MonitorStat struct {
	Timestamp time.Time
	NumRelays int
	TotalMB   int64
	AvgMB     int64
	MinMB     int64
	MaxMB     int64
}

func (s MonitorStat) TotalGB() float64 { return float64(s.TotalMB) / 1024 }
func (s MonitorStat) AvgGB() float64   { return float64(s.AvgMB) / 1024 }
func (s MonitorStat) MinGB() float64   { return float64(s.MinMB) / 1024 }
func (s MonitorStat) MaxGB() float64   { return float64(s.MaxMB) / 1024 }

// BandwidthKind distinguishes snapshot rows (observed/advertised columns)
// from history rows (write columns) within the unified bandwidth file.
type BandwidthKind int

const (
	BandwidthSnapshot BandwidthKind = iota
	BandwidthHistory
)

// BandwidthRow is one row of the bandwidth schema.
type BandwidthRow struct {
	Timestamp   time.Time
	Fingerprint string
	Nickname    string
	Group       string
	Kind        BandwidthKind

	// Snapshot rows
	ObservedBps    float64
	AdvertisedBps  float64
	ObservedMbps   float64
	AdvertisedMbps float64
	Flags          string
	Running        bool

	// History rows
	WriteBps  float64
	WriteMbps float64
}

// BpsToMbps converts bytes per second to megabits per second.
func BpsToMbps(bps float64) float64 { return bps * 8 / 1e6 }

// LegacyGroup is a group definition parsed from legacy '#' comment lines:
//
//	# A,22gz,DirCache 0 + MaxMem 2GB,0,2GB
type LegacyGroup struct {
	Name     string
	DirCache string
	MaxMem   string
	Relays   []string
}

// LegacyRow is one relay's day-column series, RSS in GB keyed by day number.
// Missing or empty cells are absent from the map.
type LegacyRow struct {
	Group string
	Relay string
	Days  map[int]float64
}

// LegacyTable is a fully parsed legacy data.csv.
type LegacyTable struct {
	Days   []int // day numbers in header order, e.g. [0 1 2 3 4 5 9]
	Rows   []LegacyRow
	Groups map[string]LegacyGroup // keyed by group letter; from comments
}

// Timestamp layouts. Files written by the fleet tooling use isoLayout;
// readers also accept RFC3339 for data collected with zone info.
const isoLayout = "2006-01-02T15:04:05"

// ParseTimestamp parses an ISO-8601 timestamp, with or without zone.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(isoLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// FormatTimestamp renders a timestamp the way the fleet tooling writes it.
func FormatTimestamp(t time.Time) string { return t.Format(isoLayout) }
