package measure

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ============================================================================
// CSV READERS / WRITERS
// ============================================================================
// All readers are lenient: malformed rows are skipped and counted, never
// fatal. The files are appended to by shell cron jobs, so partial last
// lines and stray comments are a fact of life.
// ============================================================================

// measurementHeader is the column order of the current schema.
var measurementHeader = []string{
	"timestamp", "server", "type", "fingerprint", "nickname", "group",
	"rss_kb", "vmsize_kb", "hwm_kb", "frag_ratio",
	"count", "total_kb", "avg_kb", "min_kb", "max_kb",
}

// bandwidthHeader is the column order of the unified bandwidth schema.
var bandwidthHeader = []string{
	"timestamp", "fingerprint", "nickname", "group",
	"observed_bps", "advertised_bps", "observed_mbps", "advertised_mbps",
	"write_bps", "write_mbps", "flags", "running",
}

// ReadMeasurements parses the current measurement schema. Comment and blank
// lines are skipped; rows missing a parseable timestamp are dropped.
// Returns the rows and the number of rows skipped.
func ReadMeasurements(r io.Reader) ([]Measurement, int, error) {
	cr := newCommentStrippingReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read measurements header: %w", err)
	}
	col := indexColumns(header)

	var rows []Measurement
	skipped := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		ts, err := ParseTimestamp(field(rec, col, "timestamp"))
		if err != nil {
			skipped++
			continue
		}

		m := Measurement{
			Timestamp:   ts,
			Server:      field(rec, col, "server"),
			Type:        field(rec, col, "type"),
			Fingerprint: field(rec, col, "fingerprint"),
			Nickname:    field(rec, col, "nickname"),
			Group:       field(rec, col, "group"),
			RSSKB:       parseInt(field(rec, col, "rss_kb")),
			VMSizeKB:    parseInt(field(rec, col, "vmsize_kb")),
			HWMKB:       parseInt(field(rec, col, "hwm_kb")),
			FragRatio:   parseFloat(field(rec, col, "frag_ratio")),
			Count:       int(parseInt(field(rec, col, "count"))),
			TotalKB:     parseInt(field(rec, col, "total_kb")),
			AvgKB:       parseInt(field(rec, col, "avg_kb")),
			MinKB:       parseInt(field(rec, col, "min_kb")),
			MaxKB:       parseInt(field(rec, col, "max_kb")),
		}
		rows = append(rows, m)
	}
	return rows, skipped, nil
}

// WriteMeasurements writes header plus rows in the current schema.
// Columns not meaningful for a row's type are left blank.
func WriteMeasurements(w io.Writer, rows []Measurement) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(measurementHeader); err != nil {
		return err
	}
	for _, m := range rows {
		rec := []string{
			FormatTimestamp(m.Timestamp),
			m.Server,
			m.Type,
			m.Fingerprint,
			m.Nickname,
			m.Group,
			blankZeroInt(m.RSSKB),
			blankZeroInt(m.VMSizeKB),
			blankZeroInt(m.HWMKB),
			blankZeroFloat(m.FragRatio),
			"", "", "", "", "",
		}
		if m.Type == RowAggregate {
			rec[6], rec[7], rec[8], rec[9] = "", "", "", ""
			rec[10] = strconv.Itoa(m.Count)
			rec[11] = strconv.FormatInt(m.TotalKB, 10)
			rec[12] = strconv.FormatInt(m.AvgKB, 10)
			rec[13] = strconv.FormatInt(m.MinKB, 10)
			rec[14] = strconv.FormatInt(m.MaxKB, 10)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadMonitorStats parses the monitor stats schema
// (date,time,num_relays,total_mb,avg_mb,min_mb,max_mb).
func ReadMonitorStats(r io.Reader) ([]MonitorStat, int, error) {
	cr := newCommentStrippingReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read monitor stats header: %w", err)
	}
	col := indexColumns(header)

	var rows []MonitorStat
	skipped := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		ts, err := ParseTimestamp(field(rec, col, "date") + "T" + field(rec, col, "time"))
		if err != nil {
			skipped++
			continue
		}
		rows = append(rows, MonitorStat{
			Timestamp: ts,
			NumRelays: int(parseInt(field(rec, col, "num_relays"))),
			TotalMB:   parseInt(field(rec, col, "total_mb")),
			AvgMB:     parseInt(field(rec, col, "avg_mb")),
			MinMB:     parseInt(field(rec, col, "min_mb")),
			MaxMB:     parseInt(field(rec, col, "max_mb")),
		})
	}
	return rows, skipped, nil
}

// ReadBandwidth parses the unified bandwidth schema. Row kind is inferred
// from which columns are populated: write_* present → history.
func ReadBandwidth(r io.Reader) ([]BandwidthRow, int, error) {
	cr := newCommentStrippingReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read bandwidth header: %w", err)
	}
	col := indexColumns(header)

	var rows []BandwidthRow
	skipped := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		ts, err := ParseTimestamp(field(rec, col, "timestamp"))
		if err != nil {
			skipped++
			continue
		}

		row := BandwidthRow{
			Timestamp:      ts,
			Fingerprint:    field(rec, col, "fingerprint"),
			Nickname:       field(rec, col, "nickname"),
			Group:          field(rec, col, "group"),
			ObservedBps:    parseFloat(field(rec, col, "observed_bps")),
			AdvertisedBps:  parseFloat(field(rec, col, "advertised_bps")),
			ObservedMbps:   parseFloat(field(rec, col, "observed_mbps")),
			AdvertisedMbps: parseFloat(field(rec, col, "advertised_mbps")),
			WriteBps:       parseFloat(field(rec, col, "write_bps")),
			WriteMbps:      parseFloat(field(rec, col, "write_mbps")),
			Flags:          field(rec, col, "flags"),
			Running:        field(rec, col, "running") == "true",
		}
		if field(rec, col, "write_mbps") != "" {
			row.Kind = BandwidthHistory
		}
		rows = append(rows, row)
	}
	return rows, skipped, nil
}

// AppendBandwidth appends rows to path, writing the header first if the
// file does not exist yet. This matches the collector's append-only flow.
func AppendBandwidth(path string, rows []BandwidthRow) error {
	needHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needHeader {
		if err := cw.Write(bandwidthHeader); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := cw.Write(bandwidthRecord(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBandwidth writes header plus rows to w.
func WriteBandwidth(w io.Writer, rows []BandwidthRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(bandwidthHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(bandwidthRecord(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func bandwidthRecord(row BandwidthRow) []string {
	rec := []string{
		FormatTimestamp(row.Timestamp),
		row.Fingerprint,
		row.Nickname,
		row.Group,
		"", "", "", "", "", "", "", "",
	}
	switch row.Kind {
	case BandwidthSnapshot:
		rec[4] = strconv.FormatFloat(row.ObservedBps, 'f', -1, 64)
		rec[5] = strconv.FormatFloat(row.AdvertisedBps, 'f', -1, 64)
		rec[6] = strconv.FormatFloat(row.ObservedMbps, 'f', 6, 64)
		rec[7] = strconv.FormatFloat(row.AdvertisedMbps, 'f', 6, 64)
		rec[10] = row.Flags
		rec[11] = strconv.FormatBool(row.Running)
	case BandwidthHistory:
		rec[8] = strconv.FormatFloat(row.WriteBps, 'f', -1, 64)
		rec[9] = strconv.FormatFloat(row.WriteMbps, 'f', 6, 64)
	}
	return rec
}

// ============================================================================
// LEGACY READER
// ============================================================================

// legacyGroupRe matches group definition comments:
// "# A,22gz,DirCache 0 + MaxMem 2GB,0,2GB"
var legacyGroupRe = regexp.MustCompile(`^#\s*([A-Z]),([^,]+),([^,]+),([^,]+),(.+)$`)

var dayColRe = regexp.MustCompile(`^day(\d+)$`)

// ReadLegacy parses a legacy day-column data.csv: group definitions from
// '#' comments, then a group,relay,day0,...,dayN table with RSS in GB.
func ReadLegacy(r io.Reader) (*LegacyTable, error) {
	table := &LegacyTable{Groups: make(map[string]LegacyGroup)}

	sc := bufio.NewScanner(r)
	var dataLines []string
	headerSeen := false

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if m := legacyGroupRe.FindStringSubmatch(line); m != nil {
				letter := m[1]
				g := table.Groups[letter]
				if g.Name == "" {
					g.Name = strings.TrimSpace(m[3])
					g.DirCache = strings.TrimSpace(m[4])
					g.MaxMem = strings.TrimSpace(m[5])
				}
				g.Relays = append(g.Relays, strings.TrimSpace(m[2]))
				table.Groups[letter] = g
			}
			continue
		}
		if !headerSeen && strings.HasPrefix(line, "group,relay") {
			headerSeen = true
			for _, c := range strings.Split(line, ",")[2:] {
				if m := dayColRe.FindStringSubmatch(strings.TrimSpace(c)); m != nil {
					day, _ := strconv.Atoi(m[1])
					table.Days = append(table.Days, day)
				}
			}
			continue
		}
		if headerSeen && strings.Contains(line, ",") {
			dataLines = append(dataLines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !headerSeen {
		return nil, fmt.Errorf("legacy data: no group,relay header found")
	}

	for _, line := range dataLines {
		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			continue
		}
		row := LegacyRow{
			Group: strings.TrimSpace(parts[0]),
			Relay: strings.TrimSpace(parts[1]),
			Days:  make(map[int]float64),
		}
		for i, day := range table.Days {
			idx := i + 2
			if idx >= len(parts) {
				break
			}
			cell := strings.TrimSpace(parts[idx])
			if cell == "" {
				continue
			}
			if v, err := strconv.ParseFloat(cell, 64); err == nil {
				row.Days[day] = v
			}
		}
		table.Rows = append(table.Rows, row)
	}

	sort.Ints(table.Days)
	return table, nil
}

// GroupLetters returns the table's group letters in sorted order, taking
// both comment definitions and data rows into account.
func (t *LegacyTable) GroupLetters() []string {
	seen := make(map[string]bool)
	for letter := range t.Groups {
		seen[letter] = true
	}
	for _, row := range t.Rows {
		if row.Group != "" {
			seen[row.Group] = true
		}
	}
	letters := make([]string, 0, len(seen))
	for letter := range seen {
		letters = append(letters, letter)
	}
	sort.Strings(letters)
	return letters
}

// ============================================================================
// SHARED PARSING HELPERS
// ============================================================================

// commentStrippingReader wraps csv.Reader so '#' comments and blank lines
// never reach the parser. FieldsPerRecord is disabled: appended files drift.
func newCommentStrippingReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(&commentFilter{sc: bufio.NewScanner(r)})
	cr.FieldsPerRecord = -1
	return cr
}

type commentFilter struct {
	sc  *bufio.Scanner
	buf []byte
}

func (f *commentFilter) Read(p []byte) (int, error) {
	for len(f.buf) == 0 {
		if !f.sc.Scan() {
			if err := f.sc.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		line := strings.TrimSpace(f.sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f.buf = append([]byte(line), '\n')
	}
	n := copy(p, f.buf)
	f.buf = f.buf[n:]
	return n, nil
}

func indexColumns(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.ToLower(h))] = i
	}
	return col
}

func field(rec []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseInt(s string) int64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Aggregate columns occasionally hold floats from older collectors.
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return int64(f)
		}
		return 0
	}
	return v
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func blankZeroInt(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

func blankZeroFloat(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
