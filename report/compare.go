package report

import (
	"io"
	"text/template"
	"time"

	"github.com/torutils/relaycharts/analyze"
)

// ============================================================================
// COMPARISON.md
// ============================================================================

const comparisonTemplate = `# Experiment comparison

**Experiments:** {{len .Experiments}}
**Generated:** {{.Generated}}

## Experiments

| ID | Name | Server | Start | Allocator | Groups |
|----|------|--------|-------|-----------|--------|
{{range .Experiments -}}
| {{.ID}} | {{.Name}} | {{.Server}} | {{.StartDate}} | {{.Allocator}} | {{len .Summaries}} |
{{end}}
## Per-group results

| Experiment | Group | Configuration | End (GB) | Change |
|------------|-------|---------------|----------|--------|
{{range .Results -}}
| {{.ExperimentID}} | {{.Group}} | {{.Label}} | {{printf "%.2f" .EndGB}} | {{printf "%+.1f%%" .ChangePct}} |
{{end}}
## Best configurations

Ranked by final average RSS, lowest first.

| Rank | Experiment | Configuration | End (GB) | Change |
|------|------------|---------------|----------|--------|
{{range $i, $r := .Ranked -}}
| {{inc $i}} | {{$r.ExperimentID}} | {{$r.Label}} | {{printf "%.2f" $r.EndGB}} | {{printf "%+.1f%%" $r.ChangePct}} |
{{end}}
## Charts

![Experiment comparison](experiment_comparison.png)
![Best configurations](best_configurations.png)
`

var comparisonTmpl = template.Must(template.New("comparison").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	Parse(comparisonTemplate))

// ComparisonData is everything the comparison template consumes.
type ComparisonData struct {
	Generated   string
	Experiments []analyze.ExperimentResult
	Results     []analyze.RankedConfig
	Ranked      []analyze.RankedConfig
}

// BuildComparison assembles comparison data. Results lists every
// (experiment, group) pair in input order; Ranked holds the top 10.
func BuildComparison(results []analyze.ExperimentResult, generated time.Time) ComparisonData {
	return ComparisonData{
		Generated:   generated.Format("2006-01-02 15:04"),
		Experiments: results,
		Results:     RankInOrder(results),
		Ranked:      analyze.RankConfigurations(results, 10),
	}
}

// RankInOrder flattens results to ranked-config rows without reordering.
func RankInOrder(results []analyze.ExperimentResult) []analyze.RankedConfig {
	var rows []analyze.RankedConfig
	for _, r := range results {
		for _, s := range r.Summaries {
			rows = append(rows, analyze.RankedConfig{
				ExperimentID: r.ID,
				Group:        s.Group,
				Label:        r.Label(s.Group),
				EndGB:        s.EndGB,
				ChangePct:    s.ChangePct,
			})
		}
	}
	return rows
}

// RenderComparison writes the markdown comparison for d to w.
func RenderComparison(w io.Writer, d ComparisonData) error {
	return comparisonTmpl.Execute(w, d)
}
