// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DefaultMaxResults is used when the caller does not request a result count.
const DefaultMaxResults = 10

// YearRange bounds publication years. A zero Start or End means unbounded.
type YearRange struct {
	Start int `json:"start,omitempty" yaml:"start,omitempty"`
	End   int `json:"end,omitempty" yaml:"end,omitempty"`
}

// IsZero reports whether neither bound is set.
func (y YearRange) IsZero() bool { return y.Start == 0 && y.End == 0 }

// Preferences are the caller's constraints for one search run.
type Preferences struct {
	MaxResults int      `json:"max_results" yaml:"max_results"`
	YearStart  int      `json:"year_start,omitempty" yaml:"year_start,omitempty"`
	YearEnd    int      `json:"year_end,omitempty" yaml:"year_end,omitempty"`
	Sources    []string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// RequestedMax returns MaxResults, or DefaultMaxResults when unset.
func (p Preferences) RequestedMax() int {
	if p.MaxResults <= 0 {
		return DefaultMaxResults
	}
	return p.MaxResults
}

// QueryAnalysis is the analyzer's reading of the user query.
type QueryAnalysis struct {
	Topic      string   `json:"topic" yaml:"topic"`
	Intent     string   `json:"intent" yaml:"intent"`
	Language   string   `json:"language" yaml:"language"`
	Complexity string   `json:"complexity" yaml:"complexity"`
	Keywords   []string `json:"keywords" yaml:"keywords"`
	MeshTerms  []string `json:"mesh_terms" yaml:"mesh_terms"`
}

// SearchFilters are the execution parameters shared by all sources.
type SearchFilters struct {
	YearStart    int `json:"year_start,omitempty" yaml:"year_start,omitempty"`
	YearEnd      int `json:"year_end,omitempty" yaml:"year_end,omitempty"`
	MaxPerSource int `json:"max_results_per_source" yaml:"max_results_per_source"`
}

// Years returns the filter's year bounds as a YearRange.
func (f SearchFilters) Years() YearRange {
	return YearRange{Start: f.YearStart, End: f.YearEnd}
}

// SearchStrategy is the plan for which sources to query and how.
type SearchStrategy struct {
	Sources  []string `json:"sources" yaml:"sources"`
	Priority string   `json:"source_priority,omitempty" yaml:"source_priority,omitempty"`
	Reason   string   `json:"reason,omitempty" yaml:"reason,omitempty"`

	// OptimizedQueries holds the per-source query used by the last Execute.
	OptimizedQueries map[string]string `json:"optimized_queries,omitempty" yaml:"optimized_queries,omitempty"`

	// RefinedQueries holds queries rewritten by a refinement pass. They take
	// precedence over fresh optimization on the next Optimize step.
	RefinedQueries map[string]string `json:"refined_queries,omitempty" yaml:"refined_queries,omitempty"`

	Filters SearchFilters `json:"filters" yaml:"filters"`
}

// FilterStatistics summarizes one relevance filtering pass.
type FilterStatistics struct {
	TotalFound   int     `json:"total_found" yaml:"total_found"`
	Kept         int     `json:"kept" yaml:"kept"`
	Discarded    int     `json:"discarded" yaml:"discarded"`
	AverageScore float64 `json:"avg_score" yaml:"avg_score"`
	PassRate     float64 `json:"pass_rate" yaml:"pass_rate"`
}

// SynthesisStatus records which branch produced the synthesis text.
type SynthesisStatus string

const (
	SynthesisNoPapers    SynthesisStatus = "no_papers"
	SynthesisLimitedData SynthesisStatus = "limited_data"
	SynthesisSuccess     SynthesisStatus = "success"
	SynthesisFallback    SynthesisStatus = "fallback"
)

// SynthesisMetadata describes the synthesis output.
type SynthesisMetadata struct {
	PapersCount int             `json:"papers_count" yaml:"papers_count"`
	AverageYear *float64        `json:"avg_year,omitempty" yaml:"avg_year,omitempty"`
	Status      SynthesisStatus `json:"status" yaml:"status"`
	GeneratedAt time.Time       `json:"generated_at" yaml:"generated_at"`
	Error       string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// MessageLevel marks whether a step ran normally or degraded to a fallback.
type MessageLevel string

const (
	LevelInfo MessageLevel = "info"
	LevelWarn MessageLevel = "warn"
)

// Message is one entry in the ordered step log of a run.
type Message struct {
	Step  string       `json:"step" yaml:"step"`
	Level MessageLevel `json:"level" yaml:"level"`
	Text  string       `json:"text" yaml:"text"`
	Time  time.Time    `json:"time" yaml:"time"`
}

// SearchState is the mutable record threaded through every workflow step.
// Filtered and Discarded partition Deduplicated; FinalResults is a subset
// of Deduplicated.
type SearchState struct {
	RunID       string      `json:"run_id" yaml:"run_id"`
	UserQuery   string      `json:"user_query" yaml:"user_query"`
	Preferences Preferences `json:"preferences" yaml:"preferences"`

	Analysis *QueryAnalysis  `json:"query_analysis,omitempty" yaml:"query_analysis,omitempty"`
	Strategy *SearchStrategy `json:"search_strategy,omitempty" yaml:"search_strategy,omitempty"`

	SearchResults map[string][]ArticleRecord `json:"search_results,omitempty" yaml:"search_results,omitempty"`
	Deduplicated  []ArticleRecord            `json:"deduplicated" yaml:"deduplicated"`
	Filtered      []ArticleRecord            `json:"filtered" yaml:"filtered"`
	Discarded     []ArticleRecord            `json:"discarded" yaml:"discarded"`

	RelevanceScores map[string]float64 `json:"relevance_scores,omitempty" yaml:"relevance_scores,omitempty"`
	FilterStats     FilterStatistics   `json:"filter_statistics" yaml:"filter_statistics"`
	QualityScore    float64            `json:"quality_score" yaml:"quality_score"`

	NeedsRefinement  bool   `json:"needs_refinement" yaml:"needs_refinement"`
	RefinementReason string `json:"refinement_reason,omitempty" yaml:"refinement_reason,omitempty"`
	RefinementCount  int    `json:"refinement_count" yaml:"refinement_count"`

	FinalResults  []ArticleRecord   `json:"final_results" yaml:"final_results"`
	Synthesis     string            `json:"synthesis,omitempty" yaml:"synthesis,omitempty"`
	SynthesisMeta SynthesisMetadata `json:"synthesis_metadata" yaml:"synthesis_metadata"`

	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Messages []Message      `json:"messages" yaml:"messages"`
}

// NewSearchState returns an initialized state for one run.
func NewSearchState(runID, query string, prefs Preferences) *SearchState {
	return &SearchState{
		RunID:           runID,
		UserQuery:       query,
		Preferences:     prefs,
		SearchResults:   map[string][]ArticleRecord{},
		RelevanceScores: map[string]float64{},
		Metadata:        map[string]any{},
	}
}

// Log appends a step message.
func (s *SearchState) Log(step string, level MessageLevel, text string) {
	s.Messages = append(s.Messages, Message{Step: step, Level: level, Text: text, Time: time.Now()})
}

// Degraded reports whether any step fell back to a default.
func (s *SearchState) Degraded() bool {
	for _, m := range s.Messages {
		if m.Level == LevelWarn {
			return true
		}
	}
	return false
}

// KeptCount returns the number of articles that passed relevance filtering.
func (s *SearchState) KeptCount() int { return len(s.Filtered) }
