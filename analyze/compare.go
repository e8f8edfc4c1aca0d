package analyze

import "sort"

// ============================================================================
// CROSS-EXPERIMENT COMPARISON
// ============================================================================

// ExperimentResult is one experiment's reduced outcome, carried across
// experiment boundaries for comparison charts and reports.
type ExperimentResult struct {
	ID        string
	Name      string
	Server    string
	StartDate string
	Allocator string
	Control   string
	Summaries []Summary
	// Labels maps group letters to display names.
	Labels map[string]string
}

// Label returns the display name for a group letter, falling back to
// "Group <letter>".
func (r ExperimentResult) Label(letter string) string {
	if name, ok := r.Labels[letter]; ok && name != "" {
		return name
	}
	return "Group " + letter
}

// GroupLetters returns the union of group letters across results, sorted.
func GroupLetters(results []ExperimentResult) []string {
	seen := make(map[string]bool)
	for _, r := range results {
		for _, s := range r.Summaries {
			seen[s.Group] = true
		}
	}
	letters := make([]string, 0, len(seen))
	for l := range seen {
		letters = append(letters, l)
	}
	sort.Strings(letters)
	return letters
}

// RankedConfig is one (experiment, group) cell of the cross-experiment
// ranking.
type RankedConfig struct {
	ExperimentID string
	Group        string
	Label        string
	EndGB        float64
	ChangePct    float64
}

// RankConfigurations orders every (experiment, group) pair by final
// average ascending and returns at most topN entries. Lower is better:
// the winning configuration holds the least memory.
func RankConfigurations(results []ExperimentResult, topN int) []RankedConfig {
	var ranked []RankedConfig
	for _, r := range results {
		for _, s := range r.Summaries {
			ranked = append(ranked, RankedConfig{
				ExperimentID: r.ID,
				Group:        s.Group,
				Label:        r.Label(s.Group),
				EndGB:        s.EndGB,
				ChangePct:    s.ChangePct,
			})
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].EndGB < ranked[j].EndGB })
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}
