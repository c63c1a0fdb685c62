// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders a finished search run for people and tools:
// a ranked table, JSON, a reloadable YAML run file, and CSL-YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/litsearch/pkg/types"
)

// FormatTable writes the final results as a ranked table followed by a
// one-line run summary.
func FormatTable(state *types.SearchState, w io.Writer) {
	if len(state.FinalResults) == 0 {
		fmt.Fprintln(w, "No results found.")
		writeFooter(state, w)
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-4s  %-5s  %s\n",
		"Rank", "Title", "Authors", "Year", "Score", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, a := range state.FinalResults {
		year := ""
		if a.Year != nil {
			year = fmt.Sprint(*a.Year)
		}
		score := "-"
		if a.RelevanceScore != nil {
			score = fmt.Sprintf("%.1f", *a.RelevanceScore)
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-4s  %-5s  %s\n",
			i+1, truncate(a.Title, 60), formatAuthors(a.Authors), year, score, a.Source)
	}
	writeFooter(state, w)
}

func writeFooter(state *types.SearchState, w io.Writer) {
	fmt.Fprintf(w, "\n%d kept of %d unique", len(state.Filtered), len(state.Deduplicated))
	if dups := RawCount(state) - len(state.Deduplicated); dups > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", dups)
	}
	if state.RefinementCount > 0 {
		fmt.Fprintf(w, ", %d refinement(s)", state.RefinementCount)
	}
	fmt.Fprintf(w, ", quality %.2f\n", state.QualityScore)
}

// FormatJSON writes the whole run state as indented JSON.
func FormatJSON(state *types.SearchState, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}

// FormatSynthesis writes the synthesis text, then any warnings raised
// while the run degraded.
func FormatSynthesis(state *types.SearchState, w io.Writer) {
	if state.Synthesis != "" {
		fmt.Fprintln(w, state.Synthesis)
	}
	var warned bool
	for _, m := range state.Messages {
		if m.Level != types.LevelWarn {
			continue
		}
		if !warned {
			fmt.Fprintln(w, "\nWarnings:")
			warned = true
		}
		fmt.Fprintf(w, "  [%s] %s\n", m.Step, m.Text)
	}
}

// RawCount returns the number of records fetched before deduplication.
func RawCount(state *types.SearchState) int {
	n := 0
	for _, recs := range state.SearchResults {
		n += len(recs)
	}
	return n
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 13) + " et al."
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
