// Package experiment loads experiment directories: the experiment.json
// metadata, relay group assignments, measurement CSVs and operator event
// logs that together describe one fleet experiment.
package experiment

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/torutils/relaycharts/measure"
)

// ============================================================================
// TYPES
// ============================================================================

// GroupMeta describes one experiment group from experiment.json.
type GroupMeta struct {
	Name   string            `json:"name"`
	Config map[string]string `json:"config,omitempty"`
}

// Metadata is the experiment.json document.
type Metadata struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Server      string               `json:"server"`
	StartDate   string               `json:"start_date"`
	EndDate     string               `json:"end_date,omitempty"`
	Hypothesis  string               `json:"hypothesis,omitempty"`
	Description string               `json:"description,omitempty"`
	Groups      map[string]GroupMeta `json:"groups"`
	TorVersion  string               `json:"tor_version,omitempty"`
	Allocator   string               `json:"allocator,omitempty"`
}

// StartTime parses StartDate (date-only or full timestamp).
func (m *Metadata) StartTime() (time.Time, error) {
	if t, err := time.Parse("2006-01-02", m.StartDate); err == nil {
		return t, nil
	}
	return measure.ParseTimestamp(m.StartDate)
}

// RelayConfig is one row of relay_config.csv.
type RelayConfig struct {
	Fingerprint string
	Nickname    string
	Group       string
	DirCache    string
	MaxMem      string
	Notes       string
}

// Event is one row of events.csv. Group is empty for fleet-wide events.
type Event struct {
	Timestamp   time.Time
	EventType   string
	Description string
	Group       string
}

// GroupFile is a group_<letter>_<name>.txt membership list. Start, when
// set, is a cutoff before which the group's measurements are ignored
// (relays restarted mid-experiment join late).
type GroupFile struct {
	Letter string
	Name   string
	Relays []string
	Start  time.Time
}

// Experiment is a fully loaded experiment directory.
type Experiment struct {
	Dir          string
	Meta         *Metadata
	Relays       []RelayConfig
	GroupFiles   []GroupFile
	Measurements []measure.Measurement
	Bandwidth    []measure.BandwidthRow
	Events       []Event
}

// ============================================================================
// LOADING
// ============================================================================

// Well-known file names inside an experiment directory.
const (
	MetadataFile     = "experiment.json"
	RelayConfigFile  = "relay_config.csv"
	MeasurementsFile = "memory_measurements.csv"
	BandwidthFile    = "bandwidth_measurements.csv"
	EventsFile       = "events.csv"
)

// Load reads an experiment directory. experiment.json and the measurement
// CSV are required; relay config, bandwidth, events and group files are
// loaded when present.
func Load(dir string) (*Experiment, error) {
	meta, err := LoadMetadata(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, err
	}

	exp := &Experiment{Dir: dir, Meta: meta}

	f, err := os.Open(filepath.Join(dir, MeasurementsFile))
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", meta.ID, err)
	}
	exp.Measurements, _, err = measure.ReadMeasurements(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", meta.ID, err)
	}

	if f, err := os.Open(filepath.Join(dir, RelayConfigFile)); err == nil {
		exp.Relays, err = ReadRelayConfig(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("experiment %s: %w", meta.ID, err)
		}
	}
	if f, err := os.Open(filepath.Join(dir, BandwidthFile)); err == nil {
		exp.Bandwidth, _, err = measure.ReadBandwidth(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("experiment %s: %w", meta.ID, err)
		}
	}
	if f, err := os.Open(filepath.Join(dir, EventsFile)); err == nil {
		exp.Events, err = ReadEvents(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("experiment %s: %w", meta.ID, err)
		}
	}

	exp.GroupFiles, err = LoadGroupFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", meta.ID, err)
	}
	return exp, nil
}

// LoadMetadata reads and validates an experiment.json file.
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if meta.ID == "" {
		return nil, fmt.Errorf("parse %s: missing experiment id", path)
	}
	if len(meta.Groups) == 0 {
		return nil, fmt.Errorf("parse %s: no groups defined", path)
	}
	return &meta, nil
}

// ReadRelayConfig parses relay_config.csv
// (fingerprint,nickname,group,dircache,maxmem,notes).
func ReadRelayConfig(r io.Reader) ([]RelayConfig, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read relay config header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.ToLower(h))] = i
	}
	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []RelayConfig
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		rows = append(rows, RelayConfig{
			Fingerprint: get(rec, "fingerprint"),
			Nickname:    get(rec, "nickname"),
			Group:       get(rec, "group"),
			DirCache:    get(rec, "dircache"),
			MaxMem:      get(rec, "maxmem"),
			Notes:       get(rec, "notes"),
		})
	}
	return rows, nil
}

// ReadEvents parses events.csv (timestamp,event_type,description,group).
func ReadEvents(r io.Reader) ([]Event, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("read events header: %w", err)
	}

	var events []Event
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(rec) < 3 {
			continue
		}
		ts, err := measure.ParseTimestamp(strings.TrimSpace(rec[0]))
		if err != nil {
			continue
		}
		ev := Event{
			Timestamp:   ts,
			EventType:   strings.TrimSpace(rec[1]),
			Description: strings.TrimSpace(rec[2]),
		}
		if len(rec) > 3 {
			ev.Group = strings.TrimSpace(rec[3])
		}
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events, nil
}

// groupFileRe matches group membership file names: group_A_jemalloc.txt.
var groupFileRe = regexp.MustCompile(`^group_([A-Z])_(.+)\.txt$`)

// LoadGroupFiles reads group_<letter>_<name>.txt files from dir. Each file
// holds one relay nickname per line; a leading "# start <timestamp>"
// comment sets the group's cutoff. Underscores in <name> become spaces.
func LoadGroupFiles(dir string) ([]GroupFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []GroupFile
	for _, e := range entries {
		m := groupFileRe.FindStringSubmatch(e.Name())
		if m == nil || e.IsDir() {
			continue
		}
		gf := GroupFile{
			Letter: m[1],
			Name:   strings.ReplaceAll(m[2], "_", " "),
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "#") {
				rest := strings.TrimSpace(strings.TrimPrefix(line, "#"))
				if s, ok := strings.CutPrefix(rest, "start "); ok {
					if t, err := measure.ParseTimestamp(strings.TrimSpace(s)); err == nil {
						gf.Start = t
					}
				}
				continue
			}
			gf.Relays = append(gf.Relays, line)
		}
		files = append(files, gf)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Letter < files[j].Letter })
	return files, nil
}

// ApplyCutoffs drops relay rows recorded before their group file's start
// cutoff. Rows are matched by nickname membership first, then by their
// own group column; rows in groups without a cutoff pass through.
func ApplyCutoffs(rows []measure.Measurement, files []GroupFile) []measure.Measurement {
	starts := make(map[string]time.Time)
	members := make(map[string]string)
	for _, gf := range files {
		if !gf.Start.IsZero() {
			starts[gf.Letter] = gf.Start
		}
		for _, nick := range gf.Relays {
			members[nick] = gf.Letter
		}
	}
	if len(starts) == 0 {
		return rows
	}

	out := rows[:0:0]
	for _, m := range rows {
		letter, ok := members[m.Nickname]
		if !ok {
			letter = m.Group
		}
		if start, ok := starts[letter]; ok && m.Timestamp.Before(start) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// ============================================================================
// GROUP RESOLUTION
// ============================================================================

// GroupFor resolves a relay's group letter by nickname or fingerprint,
// checking relay_config first and group files second. Empty when unknown.
func (e *Experiment) GroupFor(relay string) string {
	for _, rc := range e.Relays {
		if rc.Nickname == relay || (rc.Fingerprint != "" && rc.Fingerprint == relay) {
			return rc.Group
		}
	}
	for _, gf := range e.GroupFiles {
		for _, nick := range gf.Relays {
			if nick == relay {
				return gf.Letter
			}
		}
	}
	return ""
}

// GroupLetters returns the experiment's group letters in sorted order.
func (e *Experiment) GroupLetters() []string {
	letters := make([]string, 0, len(e.Meta.Groups))
	for letter := range e.Meta.Groups {
		letters = append(letters, letter)
	}
	sort.Strings(letters)
	return letters
}

// GroupLabel returns a display label like "Group A (jemalloc)".
func (e *Experiment) GroupLabel(letter string) string {
	if g, ok := e.Meta.Groups[letter]; ok && g.Name != "" {
		return fmt.Sprintf("Group %s (%s)", letter, g.Name)
	}
	return "Group " + letter
}

// ControlLetter returns the experiment's control group letter. The fleet
// convention uses Z, older experiments used B or E; failing those, any
// group whose name mentions control or glibc counts.
func (e *Experiment) ControlLetter() string {
	return ControlLetter(e.Meta.Groups)
}

// ControlLetter picks the control group from a letter→meta map.
func ControlLetter(groups map[string]GroupMeta) string {
	for _, letter := range []string{"Z", "B", "E"} {
		if _, ok := groups[letter]; ok {
			return letter
		}
	}
	letters := make([]string, 0, len(groups))
	for letter := range groups {
		letters = append(letters, letter)
	}
	sort.Strings(letters)
	for _, letter := range letters {
		name := strings.ToLower(groups[letter].Name)
		if strings.Contains(name, "control") || strings.Contains(name, "glibc") {
			return letter
		}
	}
	return ""
}
