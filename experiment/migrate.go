package experiment

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/torutils/relaycharts/measure"
)

// ============================================================================
// LEGACY MIGRATION
// ============================================================================
// Converts a legacy day-column data.csv into a full experiment directory:
// memory_measurements.csv in the current schema, plus experiment.json and
// relay_config.csv synthesized from the legacy group comments.
// ============================================================================

// MigrateTable converts a legacy table into current-schema measurements.
// Day N becomes start+N days at midnight; each timestamp gets one
// aggregate row (placed before its relay rows) computed over the relay
// rows present for that day.
func MigrateTable(table *measure.LegacyTable, server string, start time.Time) []measure.Measurement {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())

	byDay := make(map[int][]measure.Measurement)
	for _, row := range table.Rows {
		for day, gb := range row.Days {
			byDay[day] = append(byDay[day], measure.Measurement{
				Timestamp: start.AddDate(0, 0, day),
				Server:    server,
				Type:      measure.RowRelay,
				Nickname:  row.Relay,
				Group:     row.Group,
				RSSKB:     int64(gb * measure.KBPerGB),
			})
		}
	}

	days := make([]int, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Ints(days)

	var out []measure.Measurement
	for _, day := range days {
		relays := byDay[day]
		sort.Slice(relays, func(i, j int) bool {
			if relays[i].Group != relays[j].Group {
				return relays[i].Group < relays[j].Group
			}
			return relays[i].Nickname < relays[j].Nickname
		})

		agg := measure.Measurement{
			Timestamp: start.AddDate(0, 0, day),
			Server:    server,
			Type:      measure.RowAggregate,
			Count:     len(relays),
			MinKB:     relays[0].RSSKB,
			MaxKB:     relays[0].RSSKB,
		}
		for _, r := range relays {
			agg.TotalKB += r.RSSKB
			if r.RSSKB < agg.MinKB {
				agg.MinKB = r.RSSKB
			}
			if r.RSSKB > agg.MaxKB {
				agg.MaxKB = r.RSSKB
			}
		}
		agg.AvgKB = agg.TotalKB / int64(len(relays))

		out = append(out, agg)
		out = append(out, relays...)
	}
	return out
}

// BuildMetadata synthesizes an experiment.json document from a legacy
// table's group definitions.
func BuildMetadata(table *measure.LegacyTable, id, server string, start time.Time) *Metadata {
	meta := &Metadata{
		ID:          id,
		Name:        "Migrated experiment " + id,
		Server:      server,
		StartDate:   start.Format("2006-01-02"),
		Description: "Migrated from legacy day-column data.",
		Allocator:   "glibc",
		Groups:      make(map[string]GroupMeta),
	}
	for _, letter := range table.GroupLetters() {
		g, ok := table.Groups[letter]
		if !ok {
			meta.Groups[letter] = GroupMeta{Name: "Group " + letter}
			continue
		}
		meta.Groups[letter] = GroupMeta{
			Name: g.Name,
			Config: map[string]string{
				"dircache": g.DirCache,
				"maxmem":   g.MaxMem,
			},
		}
	}
	return meta
}

// BuildRelayConfig synthesizes relay_config.csv rows from a legacy table.
// Legacy data never recorded fingerprints, so those stay blank.
func BuildRelayConfig(table *measure.LegacyTable) []RelayConfig {
	seen := make(map[string]bool)
	var rows []RelayConfig
	add := func(nick, group, dircache, maxmem string) {
		if nick == "" || seen[nick] {
			return
		}
		seen[nick] = true
		rows = append(rows, RelayConfig{
			Nickname: nick,
			Group:    group,
			DirCache: dircache,
			MaxMem:   maxmem,
			Notes:    "migrated",
		})
	}
	for _, letter := range table.GroupLetters() {
		g := table.Groups[letter]
		for _, nick := range g.Relays {
			add(nick, letter, g.DirCache, g.MaxMem)
		}
	}
	for _, row := range table.Rows {
		g := table.Groups[row.Group]
		add(row.Relay, row.Group, g.DirCache, g.MaxMem)
	}
	return rows
}

// WriteMetadata writes an experiment.json document.
func WriteMetadata(path string, meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// WriteRelayConfig writes relay_config.csv rows.
func WriteRelayConfig(w io.Writer, rows []RelayConfig) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"fingerprint", "nickname", "group", "dircache", "maxmem", "notes"}); err != nil {
		return err
	}
	for _, rc := range rows {
		rec := []string{rc.Fingerprint, rc.Nickname, rc.Group, rc.DirCache, rc.MaxMem, rc.Notes}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// MigrateDir migrates a legacy data.csv into outDir as a complete
// experiment directory. Returns the number of measurement rows written.
func MigrateDir(input, outDir, id, server string, start time.Time) (int, error) {
	f, err := os.Open(input)
	if err != nil {
		return 0, err
	}
	table, err := measure.ReadLegacy(f)
	f.Close()
	if err != nil {
		return 0, fmt.Errorf("parse legacy %s: %w", input, err)
	}
	if len(table.Rows) == 0 {
		return 0, fmt.Errorf("legacy %s: no data rows", input)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, err
	}

	rows := MigrateTable(table, server, start)
	mf, err := os.Create(filepath.Join(outDir, MeasurementsFile))
	if err != nil {
		return 0, err
	}
	err = measure.WriteMeasurements(mf, rows)
	if cerr := mf.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}

	if err := WriteMetadata(filepath.Join(outDir, MetadataFile), BuildMetadata(table, id, server, start)); err != nil {
		return 0, err
	}

	rcf, err := os.Create(filepath.Join(outDir, RelayConfigFile))
	if err != nil {
		return 0, err
	}
	err = WriteRelayConfig(rcf, BuildRelayConfig(table))
	if cerr := rcf.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// DefaultID derives an experiment id from a start date, matching the
// fleet's exp-YYYYMMDD naming.
func DefaultID(start time.Time) string {
	return "exp-" + start.Format("20060102")
}
