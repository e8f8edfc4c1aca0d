// Package report renders markdown reports and text summary tables from
// analyzed experiment data.
package report

import (
	"io"
	"sort"
	"text/template"
	"time"

	"github.com/torutils/relaycharts/analyze"
	"github.com/torutils/relaycharts/experiment"
)

// ============================================================================
// REPORT.md
// ============================================================================

// reportTemplate is the built-in experiment report layout.
const reportTemplate = `# {{.Name}}

**Experiment:** {{.ID}}
**Server:** {{.Server}}
**Period:** {{.StartDate}}{{if .EndDate}} to {{.EndDate}}{{end}}
{{- if .TorVersion}}
**Tor version:** {{.TorVersion}}
{{- end}}
{{- if .Allocator}}
**Allocator:** {{.Allocator}}
{{- end}}
**Relays:** {{.RelayCount}}
**Generated:** {{.Generated}}

{{if .Hypothesis}}## Hypothesis

{{.Hypothesis}}

{{end -}}
{{if .Description}}## Description

{{.Description}}

{{end -}}
## Groups

| Group | Name | Relays |
|-------|------|--------|
{{range .Groups -}}
| {{.Letter}} | {{.Name}}{{if .Control}} (control){{end}} | {{.RelayCount}} |
{{end}}
## Results

| Group | Start (GB) | End (GB) | Change | vs Control | Status |
|-------|-----------|----------|--------|------------|--------|
{{range .Rows -}}
| {{.Group}} | {{printf "%.2f" .StartGB}} | {{printf "%.2f" .EndGB}} | {{printf "%+.1f%%" .ChangePct}} | {{.VsControl}} | {{.Status}} |
{{end}}
{{- if .Events}}
## Events

| Time | Type | Description | Group |
|------|------|-------------|-------|
{{range .Events -}}
| {{.Time}} | {{.Type}} | {{.Description}} | {{.Group}} |
{{end}}
{{- end}}
## Charts

![Memory by group](memory_by_group.png)
![Group comparison](group_comparison.png)
![Distribution](group_distribution.png)
`

// GroupRow is one line of the report's groups table.
type GroupRow struct {
	Letter     string
	Name       string
	Control    bool
	RelayCount int
}

// ResultRow is one line of the report's results table.
type ResultRow struct {
	Group     string
	StartGB   float64
	EndGB     float64
	ChangePct float64
	VsControl string
	Status    analyze.Status
}

// EventRow is one line of the report's events table.
type EventRow struct {
	Time        string
	Type        string
	Description string
	Group       string
}

// Data is everything the report template consumes.
type Data struct {
	ID          string
	Name        string
	Server      string
	StartDate   string
	EndDate     string
	TorVersion  string
	Allocator   string
	Hypothesis  string
	Description string
	RelayCount  int
	Generated   string
	Groups      []GroupRow
	Rows        []ResultRow
	Events      []EventRow
}

// Build assembles report data from a loaded experiment and its summaries.
func Build(exp *experiment.Experiment, summaries []analyze.Summary, generated time.Time) Data {
	control := exp.ControlLetter()
	vs := analyze.VsControl(summaries, control)

	d := Data{
		ID:          exp.Meta.ID,
		Name:        exp.Meta.Name,
		Server:      exp.Meta.Server,
		StartDate:   exp.Meta.StartDate,
		EndDate:     exp.Meta.EndDate,
		TorVersion:  exp.Meta.TorVersion,
		Allocator:   exp.Meta.Allocator,
		Hypothesis:  exp.Meta.Hypothesis,
		Description: exp.Meta.Description,
		Generated:   generated.Format("2006-01-02 15:04"),
	}

	counts := make(map[string]int)
	for _, s := range summaries {
		counts[s.Group] = s.RelayCount
		d.RelayCount += s.RelayCount
	}

	for _, letter := range exp.GroupLetters() {
		d.Groups = append(d.Groups, GroupRow{
			Letter:     letter,
			Name:       exp.Meta.Groups[letter].Name,
			Control:    letter == control,
			RelayCount: counts[letter],
		})
	}

	ordered := make([]analyze.Summary, len(summaries))
	copy(ordered, summaries)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Group < ordered[j].Group })
	for _, s := range ordered {
		row := ResultRow{
			Group:     s.Group,
			StartGB:   s.StartGB,
			EndGB:     s.EndGB,
			ChangePct: s.ChangePct,
			VsControl: "-",
			Status:    s.Status,
		}
		if vs != nil && s.Group != control {
			row.VsControl = formatPct(vs[s.Group])
		}
		d.Rows = append(d.Rows, row)
	}

	for _, ev := range exp.Events {
		d.Events = append(d.Events, EventRow{
			Time:        ev.Timestamp.Format("2006-01-02 15:04"),
			Type:        ev.EventType,
			Description: ev.Description,
			Group:       ev.Group,
		})
	}
	return d
}

var reportTmpl = template.Must(template.New("report").Parse(reportTemplate))

// Render writes the markdown report for d to w.
func Render(w io.Writer, d Data) error {
	return reportTmpl.Execute(w, d)
}
