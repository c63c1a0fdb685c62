// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litsearch/pkg/types"
)

// RunFile is the on-disk representation of a finished search. It can be
// reloaded to re-render results or repeat the query with the same
// preferences without re-querying the sources.
type RunFile struct {
	RunID       string                `yaml:"run_id"`
	Query       string                `yaml:"query"`
	Preferences types.Preferences     `yaml:"preferences"`
	Strategy    *types.SearchStrategy `yaml:"strategy,omitempty"`
	Results     []types.ArticleRecord `yaml:"results"`
	Synthesis   string                `yaml:"synthesis,omitempty"`
	Summary     RunSummary            `yaml:"summary"`
}

// RunSummary stores run statistics and a timestamp.
type RunSummary struct {
	Fetched           int                   `yaml:"fetched"`
	Unique            int                   `yaml:"unique"`
	DuplicatesRemoved int                   `yaml:"duplicates_removed"`
	Kept              int                   `yaml:"kept"`
	Discarded         int                   `yaml:"discarded"`
	Refinements       int                   `yaml:"refinements"`
	QualityScore      float64               `yaml:"quality_score"`
	SynthesisStatus   types.SynthesisStatus `yaml:"synthesis_status"`
	Warnings          []string              `yaml:"warnings,omitempty"`
	Timestamp         time.Time             `yaml:"timestamp"`
}

// NewRunFile captures state as a RunFile stamped with now.
func NewRunFile(state *types.SearchState, now time.Time) RunFile {
	rf := RunFile{
		RunID:       state.RunID,
		Query:       state.UserQuery,
		Preferences: state.Preferences,
		Strategy:    state.Strategy,
		Results:     state.FinalResults,
		Synthesis:   state.Synthesis,
		Summary: RunSummary{
			Fetched:         RawCount(state),
			Unique:          len(state.Deduplicated),
			Kept:            len(state.Filtered),
			Discarded:       len(state.Discarded),
			Refinements:     state.RefinementCount,
			QualityScore:    state.QualityScore,
			SynthesisStatus: state.SynthesisMeta.Status,
			Timestamp:       now,
		},
	}
	rf.Summary.DuplicatesRemoved = max(0, rf.Summary.Fetched-rf.Summary.Unique)
	for _, m := range state.Messages {
		if m.Level == types.LevelWarn {
			rf.Summary.Warnings = append(rf.Summary.Warnings, m.Step+": "+m.Text)
		}
	}
	return rf
}

// WriteRunFile saves state to a YAML file.
func WriteRunFile(path string, state *types.SearchState) error {
	rf := NewRunFile(state, time.Now())
	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("marshaling run file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadRunFile loads a previously saved run file from disk.
func ReadRunFile(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run file: %w", err)
	}
	var rf RunFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing run file: %w", err)
	}
	if rf.Query == "" {
		return nil, fmt.Errorf("run file %s has no query", path)
	}
	return &rf, nil
}

// State rebuilds a search state from the file, enough to render it again.
func (rf RunFile) State() *types.SearchState {
	st := types.NewSearchState(rf.RunID, rf.Query, rf.Preferences)
	st.Strategy = rf.Strategy
	st.FinalResults = rf.Results
	st.Filtered = rf.Results
	st.Synthesis = rf.Synthesis
	st.RefinementCount = rf.Summary.Refinements
	st.QualityScore = rf.Summary.QualityScore
	st.SynthesisMeta.Status = rf.Summary.SynthesisStatus
	return st
}
