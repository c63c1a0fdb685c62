// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/litsearch/internal/filter"
	"github.com/pdiddy/litsearch/internal/synthesis"
	"github.com/pdiddy/litsearch/internal/workflow"
	"github.com/pdiddy/litsearch/pkg/types"
)

var (
	_ workflow.Analyzer     = (*LLM)(nil)
	_ workflow.Planner      = (*LLM)(nil)
	_ workflow.Optimizer    = (*LLM)(nil)
	_ workflow.Advisor      = (*LLM)(nil)
	_ filter.Scorer         = (*LLM)(nil)
	_ synthesis.Synthesizer = (*LLM)(nil)
)

// Analyze classifies the query and extracts keywords.
func (l *LLM) Analyze(ctx context.Context, userQuery string) (types.QueryAnalysis, error) {
	prompt, err := render(analyzeTmpl, struct{ Query string }{userQuery})
	if err != nil {
		return types.QueryAnalysis{}, err
	}
	text, err := l.generate(ctx, prompt, callOpts{json: true, temperature: 0.3})
	if err != nil {
		return types.QueryAnalysis{}, fmt.Errorf("analyzing query: %w", err)
	}
	var a types.QueryAnalysis
	if err := decodeJSON(text, &a); err != nil {
		return types.QueryAnalysis{}, fmt.Errorf("analyzing query: %w", err)
	}
	return a, nil
}

type planResponse struct {
	Sources  []string `json:"sources"`
	Priority string   `json:"source_priority"`
	Filters  struct {
		YearRange    []int `json:"year_range"`
		MaxPerSource int   `json:"max_results_per_source"`
	} `json:"filters"`
	Reason string `json:"reason"`
}

// Plan picks sources and filters for the query.
func (l *LLM) Plan(ctx context.Context, userQuery string, analysis types.QueryAnalysis, prefs types.Preferences) (types.SearchStrategy, error) {
	prompt, err := render(planTmpl, struct {
		Query    string
		Analysis types.QueryAnalysis
		Prefs    types.Preferences
	}{userQuery, analysis, prefs})
	if err != nil {
		return types.SearchStrategy{}, err
	}
	text, err := l.generate(ctx, prompt, callOpts{json: true, temperature: 0.3})
	if err != nil {
		return types.SearchStrategy{}, fmt.Errorf("planning strategy: %w", err)
	}
	var r planResponse
	if err := decodeJSON(text, &r); err != nil {
		return types.SearchStrategy{}, fmt.Errorf("planning strategy: %w", err)
	}

	st := types.SearchStrategy{
		Sources:  r.Sources,
		Priority: r.Priority,
		Reason:   r.Reason,
		Filters:  types.SearchFilters{MaxPerSource: r.Filters.MaxPerSource},
	}
	if len(r.Filters.YearRange) == 2 {
		st.Filters.YearStart, st.Filters.YearEnd = r.Filters.YearRange[0], r.Filters.YearRange[1]
	}
	return st, nil
}

// Optimize rewrites the query in the syntax of source. PubMed and Scopus
// get Boolean field syntax; other sources get natural language.
func (l *LLM) Optimize(ctx context.Context, userQuery string, analysis types.QueryAnalysis, source string) (string, error) {
	tmpl, ok := optimizeTmpls[source]
	if !ok {
		tmpl = optimizeTmpls["natural"]
	}
	prompt, err := render(tmpl, struct {
		Query    string
		Analysis types.QueryAnalysis
	}{userQuery, analysis})
	if err != nil {
		return "", err
	}
	text, err := l.generate(ctx, prompt, callOpts{temperature: 0.2})
	if err != nil {
		return "", fmt.Errorf("optimizing %s query: %w", source, err)
	}
	return strings.Trim(strings.TrimSpace(stripFences(text)), "\"'`"), nil
}

type scoreResponse struct {
	Score      *float64 `json:"relevance_score"`
	Keep       *bool    `json:"keep"`
	Reasoning  string   `json:"reasoning"`
	KeyFinding string   `json:"key_finding"`
}

// Score rates one article against the query. A response without a score
// is unparsable; a missing keep flag is derived from the score.
func (l *LLM) Score(ctx context.Context, article types.ArticleRecord, userQuery string, analysis types.QueryAnalysis) (filter.Verdict, error) {
	prompt, err := render(scoreTmpl, struct {
		Query    string
		Analysis types.QueryAnalysis
		Article  types.ArticleRecord
	}{userQuery, analysis, article})
	if err != nil {
		return filter.Verdict{}, err
	}
	text, err := l.generate(ctx, prompt, callOpts{json: true, temperature: 0.1})
	if err != nil {
		return filter.Verdict{}, fmt.Errorf("scoring article: %w", err)
	}
	var r scoreResponse
	if err := decodeJSON(text, &r); err != nil {
		return filter.Verdict{}, fmt.Errorf("scoring article: %w", err)
	}
	if r.Score == nil {
		return filter.Verdict{}, fmt.Errorf("scoring article: %w: missing relevance_score", types.ErrUnparsable)
	}

	v := filter.Verdict{Score: *r.Score, Reasoning: r.Reasoning, KeyFinding: r.KeyFinding}
	if r.Keep != nil {
		v.Keep = *r.Keep
	} else {
		v.Keep = v.Score >= filter.DefaultThreshold
	}
	if strings.EqualFold(strings.TrimSpace(v.KeyFinding), "n/a") {
		v.KeyFinding = ""
	}
	return v, nil
}

type adviseResponse struct {
	NewQueries    map[string]string `json:"new_queries"`
	AdjustFilters struct {
		YearRange    []int `json:"year_range"`
		MaxPerSource int   `json:"max_results_per_source"`
	} `json:"adjust_filters"`
	Explanation string `json:"explanation"`
}

// Advise suggests new queries and filters after an insufficient pass.
func (l *LLM) Advise(ctx context.Context, req workflow.RefineRequest) (workflow.Refinement, error) {
	prompt, err := render(adviseTmpl, struct{ Req workflow.RefineRequest }{req})
	if err != nil {
		return workflow.Refinement{}, err
	}
	text, err := l.generate(ctx, prompt, callOpts{json: true, temperature: 0.4})
	if err != nil {
		return workflow.Refinement{}, fmt.Errorf("refining strategy: %w", err)
	}
	var r adviseResponse
	if err := decodeJSON(text, &r); err != nil {
		return workflow.Refinement{}, fmt.Errorf("refining strategy: %w", err)
	}

	out := workflow.Refinement{
		Queries:      r.NewQueries,
		MaxPerSource: r.AdjustFilters.MaxPerSource,
		Explanation:  r.Explanation,
	}
	if len(r.AdjustFilters.YearRange) == 2 {
		out.YearStart, out.YearEnd = r.AdjustFilters.YearRange[0], r.AdjustFilters.YearRange[1]
	}
	return out, nil
}

// Summarize writes a markdown literature review of the kept articles.
func (l *LLM) Summarize(ctx context.Context, userQuery string, kept []types.ArticleRecord, analysis types.QueryAnalysis) (string, error) {
	prompt, err := render(synthesizeTmpl, struct {
		Query    string
		Analysis types.QueryAnalysis
		Papers   []types.ArticleRecord
	}{userQuery, analysis, kept})
	if err != nil {
		return "", err
	}
	text, err := l.generate(ctx, prompt, callOpts{temperature: 0.4, maxTokens: 2000})
	if err != nil {
		return "", fmt.Errorf("synthesizing review: %w", err)
	}
	return strings.TrimSpace(text), nil
}
