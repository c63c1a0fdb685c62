// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/litsearch/internal/dedup"
	"github.com/pdiddy/litsearch/internal/filter"
	"github.com/pdiddy/litsearch/internal/synthesis"
	"github.com/pdiddy/litsearch/pkg/types"
)

const (
	// DefaultYearStart is the planned year start when neither the caller nor
	// the planner gives one.
	DefaultYearStart = 2020

	// MinPerSource is the floor on per-source result counts.
	MinPerSource = 5

	// RefineYearFloor bounds how far the fallback refinement widens years.
	RefineYearFloor = 2000

	// RefineYearStep is how many years the fallback refinement adds.
	RefineYearStep = 5

	analysisKeywords = 5
	fallbackTerms    = 3
)

// DefaultSources are queried when neither caller nor planner picks any.
var DefaultSources = []string{types.SourcePubMed, types.SourceSemanticScholar}

// --- Analyze ---

func (e *Engine) analyze(ctx context.Context, state *types.SearchState) {
	if e.Analyzer == nil {
		a := DefaultAnalysis(state.UserQuery)
		state.Analysis = &a
		e.note(state, StepAnalyze, types.LevelInfo, "no analyzer configured, using default analysis")
		return
	}

	a, err := e.Analyzer.Analyze(ctx, state.UserQuery)
	if err != nil {
		a = DefaultAnalysis(state.UserQuery)
		state.Analysis = &a
		e.note(state, StepAnalyze, types.LevelWarn, "analysis failed, using defaults: %v", err)
		return
	}
	a = completeAnalysis(a, state.UserQuery)
	state.Analysis = &a
	e.note(state, StepAnalyze, types.LevelInfo, "analyzed query: topic=%s language=%s keywords=%d", a.Topic, a.Language, len(a.Keywords))
}

// DefaultAnalysis is the analysis used when the analyzer is unavailable.
func DefaultAnalysis(userQuery string) types.QueryAnalysis {
	return types.QueryAnalysis{
		Topic:      "general",
		Intent:     "general_research",
		Language:   "en",
		Complexity: "medium",
		Keywords:   leadingTokens(userQuery, analysisKeywords),
		MeshTerms:  []string{},
	}
}

// completeAnalysis fills fields a successful analyzer left empty.
func completeAnalysis(a types.QueryAnalysis, userQuery string) types.QueryAnalysis {
	def := DefaultAnalysis(userQuery)
	if a.Topic == "" {
		a.Topic = def.Topic
	}
	if a.Intent == "" {
		a.Intent = def.Intent
	}
	if a.Language == "" {
		a.Language = def.Language
	}
	if a.Complexity == "" {
		a.Complexity = def.Complexity
	}
	if len(a.Keywords) == 0 {
		a.Keywords = def.Keywords
	}
	if a.MeshTerms == nil {
		a.MeshTerms = []string{}
	}
	return a
}

func leadingTokens(s string, n int) []string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return append([]string{}, fields...)
}

// --- Plan ---

func (e *Engine) plan(ctx context.Context, state *types.SearchState) {
	prefs := state.Preferences
	analysis := analysisOf(state)
	year := e.now().Year()

	var planned *types.SearchStrategy
	switch {
	case e.Planner == nil:
		e.note(state, StepPlan, types.LevelInfo, "no planner configured, using fallback strategy")
	default:
		st, err := e.Planner.Plan(ctx, state.UserQuery, analysis, prefs)
		switch {
		case err != nil:
			e.note(state, StepPlan, types.LevelWarn, "planning failed, using fallback strategy: %v", err)
		case len(normalizeSources(st.Sources)) == 0 && len(prefs.Sources) == 0:
			e.note(state, StepPlan, types.LevelWarn, "planner chose no sources, using fallback strategy")
		default:
			planned = &st
		}
	}

	var st types.SearchStrategy
	if planned == nil {
		st = FallbackStrategy(prefs, year)
	} else {
		st = applyPreferences(*planned, prefs, year)
	}
	state.Strategy = &st
	e.note(state, StepPlan, types.LevelInfo, "strategy: %s, years %d-%d, %d per source",
		strings.Join(st.Sources, ", "), st.Filters.YearStart, st.Filters.YearEnd, st.Filters.MaxPerSource)
}

// FallbackStrategy is the plan used when the planner is unavailable.
func FallbackStrategy(prefs types.Preferences, currentYear int) types.SearchStrategy {
	st := types.SearchStrategy{Reason: "fallback strategy"}
	return applyPreferences(st, prefs, currentYear)
}

// applyPreferences overlays the caller's preferences on a planned strategy
// and fills anything still missing with defaults.
func applyPreferences(st types.SearchStrategy, prefs types.Preferences, currentYear int) types.SearchStrategy {
	sources := normalizeSources(prefs.Sources)
	if len(sources) == 0 {
		sources = normalizeSources(st.Sources)
	}
	if len(sources) == 0 {
		sources = append([]string{}, DefaultSources...)
	}
	st.Sources = sources
	if st.Priority == "" || len(prefs.Sources) > 0 {
		st.Priority = strings.Join(sources, " > ")
	}

	f := st.Filters
	switch {
	case prefs.YearStart > 0:
		f.YearStart = prefs.YearStart
	case f.YearStart <= 0:
		f.YearStart = DefaultYearStart
	}
	switch {
	case prefs.YearEnd > 0:
		f.YearEnd = prefs.YearEnd
	case f.YearEnd <= 0:
		f.YearEnd = currentYear
	}
	if f.YearStart > f.YearEnd {
		f.YearStart, f.YearEnd = f.YearEnd, f.YearStart
	}
	f.MaxPerSource = max(MinPerSource, prefs.RequestedMax()/len(sources))
	st.Filters = f

	st.OptimizedQueries = nil
	st.RefinedQueries = nil
	return st
}

// normalizeSources maps display names to identifiers and drops blanks and
// repeats, keeping first-seen order.
func normalizeSources(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		id := types.NormalizeSource(s)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// --- Optimize ---

func (e *Engine) optimize(ctx context.Context, state *types.SearchState) {
	st := state.Strategy
	analysis := analysisOf(state)
	queries := make(map[string]string, len(st.Sources))

	var refined, fallbacks int
	var failures []string
	for _, src := range st.Sources {
		if q := strings.TrimSpace(st.RefinedQueries[src]); q != "" {
			queries[src] = q
			refined++
			continue
		}
		if e.Optimizer != nil {
			q, err := e.Optimizer.Optimize(ctx, state.UserQuery, analysis, src)
			q = cleanQuery(q)
			if err == nil && q != "" {
				queries[src] = q
				continue
			}
			if err == nil {
				err = fmt.Errorf("empty query")
			}
			failures = append(failures, fmt.Sprintf("%s: %v", src, err))
		}
		queries[src] = FallbackQuery(src, state.UserQuery, analysis.Keywords)
		fallbacks++
	}
	st.OptimizedQueries = queries

	switch {
	case len(failures) > 0:
		e.note(state, StepOptimize, types.LevelWarn, "optimization failed for %s, using fallback queries", strings.Join(failures, "; "))
	case e.Optimizer == nil && fallbacks > 0:
		e.note(state, StepOptimize, types.LevelInfo, "no optimizer configured, using fallback queries")
	}
	e.note(state, StepOptimize, types.LevelInfo, "prepared %d queries (%d refined)", len(queries), refined)
}

// FallbackQuery builds a source query from the analyzed keywords without
// an optimizer: a Boolean conjunction for PubMed, a TITLE-ABS-KEY clause for
// Scopus, and the original query for everything else.
func FallbackQuery(source, userQuery string, keywords []string) string {
	terms := make([]string, 0, fallbackTerms)
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			terms = append(terms, k)
		}
		if len(terms) == fallbackTerms {
			break
		}
	}
	if len(terms) == 0 {
		return userQuery
	}
	switch source {
	case types.SourcePubMed:
		return strings.Join(terms, " AND ")
	case types.SourceScopus:
		return `TITLE-ABS-KEY("` + strings.Join(terms, `" AND "`) + `")`
	default:
		return userQuery
	}
}

// cleanQuery strips whitespace and the quotes or backticks models wrap
// around a bare query string.
func cleanQuery(q string) string {
	return strings.Trim(strings.TrimSpace(q), "\"'`")
}

// --- Execute ---

func (e *Engine) execute(ctx context.Context, state *types.SearchState) {
	st := state.Strategy
	if e.Fetcher == nil {
		state.SearchResults = map[string][]types.ArticleRecord{}
		e.note(state, StepExecute, types.LevelWarn, "no fetcher configured, no sources searched")
		return
	}

	results, report := e.Fetcher.FetchAllWithReport(ctx, st.OptimizedQueries, st.Filters.MaxPerSource, st.Filters.Years())
	if results == nil {
		results = map[string][]types.ArticleRecord{}
	}
	state.SearchResults = results
	state.Metadata["fetch_report"] = report

	total := 0
	for _, arts := range results {
		total += len(arts)
	}
	if failed := report.Failed(); len(failed) > 0 {
		e.note(state, StepExecute, types.LevelWarn, "sources returned no results due to errors: %s", strings.Join(failed, ", "))
	}
	e.note(state, StepExecute, types.LevelInfo, "fetched %d articles from %d sources", total, len(results))
}

// --- Evaluate ---

func (e *Engine) evaluate(ctx context.Context, state *types.SearchState) {
	total := 0
	perSource := make(map[string]int, len(state.SearchResults))
	for src, arts := range state.SearchResults {
		total += len(arts)
		perSource[src] = len(arts)
	}
	state.Metadata["total_found"] = total
	state.Metadata["per_source_counts"] = perSource
	state.Metadata["sources_used"] = sortedKeys(state.SearchResults)
	state.Metadata["refinement_count"] = state.RefinementCount

	if total == 0 {
		state.Deduplicated = []types.ArticleRecord{}
		state.Filtered = []types.ArticleRecord{}
		state.Discarded = []types.ArticleRecord{}
		state.FinalResults = []types.ArticleRecord{}
		state.RelevanceScores = map[string]float64{}
		state.FilterStats = types.FilterStatistics{}
		state.QualityScore = 0
		state.NeedsRefinement = true
		state.RefinementReason = "no results found"
		state.Metadata["unique_count"] = 0
		state.Metadata["quality_score"] = 0.0
		e.note(state, StepEvaluate, types.LevelInfo, "no results found")
		return
	}

	unique, stats := dedup.Merge(state.SearchResults, e.Priority)
	state.Deduplicated = unique
	state.Metadata["unique_count"] = len(unique)
	state.Metadata["dedup"] = stats

	flt := e.Filter
	if flt == nil {
		flt = &filter.Filter{Logger: e.Logger}
	}
	res := flt.Run(ctx, unique, state.UserQuery, analysisOf(state))
	state.Filtered = res.Kept
	state.Discarded = res.Discarded
	state.FinalResults = types.CloneArticles(res.Kept)
	state.RelevanceScores = res.Scores
	state.FilterStats = res.Stats
	state.QualityScore = res.Stats.PassRate
	state.Metadata["quality_score"] = state.QualityScore

	decision, reason := ShouldRefine(state)
	state.NeedsRefinement = decision == StepRefine
	state.RefinementReason = reason

	switch {
	case flt.Scorer == nil:
		e.note(state, StepEvaluate, types.LevelInfo, "no scorer configured, kept all %d articles", len(unique))
	case res.Fallbacks > 0:
		e.note(state, StepEvaluate, types.LevelWarn, "%d of %d articles scored by fallback", res.Fallbacks, len(unique))
	}
	e.note(state, StepEvaluate, types.LevelInfo, "%d unique of %d found (%d duplicates), kept %d, pass rate %.2f: %s",
		len(unique), total, stats.Removed(), res.Stats.Kept, res.Stats.PassRate, reason)
}

func sortedKeys(m map[string][]types.ArticleRecord) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// --- Refine ---

func (e *Engine) refine(ctx context.Context, state *types.SearchState) {
	state.RefinementCount++
	st := state.Strategy

	if e.Advisor == nil {
		WidenFilters(&st.Filters)
		e.note(state, StepRefine, types.LevelInfo, "refinement #%d: no advisor configured, widened years to %d-%d and %d per source",
			state.RefinementCount, st.Filters.YearStart, st.Filters.YearEnd, st.Filters.MaxPerSource)
		return
	}

	r, err := e.Advisor.Advise(ctx, RefineRequest{
		UserQuery: state.UserQuery,
		Reason:    state.RefinementReason,
		Analysis:  analysisOf(state),
		Strategy:  *st,
		Kept:      state.KeptCount(),
		Requested: state.Preferences.RequestedMax(),
	})
	if err == nil && applyRefinement(st, r) {
		explanation := r.Explanation
		if explanation == "" {
			explanation = "strategy refined"
		}
		e.note(state, StepRefine, types.LevelInfo, "refinement #%d: %s", state.RefinementCount, explanation)
		return
	}

	if err == nil {
		err = fmt.Errorf("suggestion changes nothing")
	}
	WidenFilters(&st.Filters)
	e.note(state, StepRefine, types.LevelWarn, "refinement #%d: advisor unusable (%v), widened years to %d-%d and %d per source",
		state.RefinementCount, err, st.Filters.YearStart, st.Filters.YearEnd, st.Filters.MaxPerSource)
}

// applyRefinement merges an advisor suggestion into the strategy and
// reports whether anything changed. Queries for sources outside the strategy
// and year ranges that would invert are ignored.
func applyRefinement(st *types.SearchStrategy, r Refinement) bool {
	changed := false

	inPlan := make(map[string]bool, len(st.Sources))
	for _, s := range st.Sources {
		inPlan[s] = true
	}
	for src, q := range r.Queries {
		id := types.NormalizeSource(src)
		q = cleanQuery(q)
		if !inPlan[id] || q == "" || q == st.OptimizedQueries[id] {
			continue
		}
		if st.RefinedQueries == nil {
			st.RefinedQueries = map[string]string{}
		}
		st.RefinedQueries[id] = q
		changed = true
	}

	start, end := st.Filters.YearStart, st.Filters.YearEnd
	if r.YearStart > 0 {
		start = r.YearStart
	}
	if r.YearEnd > 0 {
		end = r.YearEnd
	}
	if (start != st.Filters.YearStart || end != st.Filters.YearEnd) && (end == 0 || start <= end) {
		st.Filters.YearStart, st.Filters.YearEnd = start, end
		changed = true
	}

	if r.MaxPerSource > 0 && r.MaxPerSource != st.Filters.MaxPerSource {
		st.Filters.MaxPerSource = r.MaxPerSource
		changed = true
	}
	return changed
}

// WidenFilters is the deterministic refinement: move the year start back
// RefineYearStep years, not past RefineYearFloor and never narrowing, and
// raise the per-source maximum by half, by at least one.
func WidenFilters(f *types.SearchFilters) {
	if f.YearStart > 0 {
		f.YearStart = min(f.YearStart, max(RefineYearFloor, f.YearStart-RefineYearStep))
	}
	raised := f.MaxPerSource * 3 / 2
	if raised <= f.MaxPerSource {
		raised = f.MaxPerSource + 1
	}
	f.MaxPerSource = raised
}

// --- Synthesize ---

func (e *Engine) synthesize(ctx context.Context, state *types.SearchState) {
	gate := e.Gate
	if gate == nil {
		gate = &synthesis.Gate{Logger: e.Logger, Now: e.Now}
		if e.Filter != nil {
			gate.Threshold = e.Filter.Threshold
		}
	}
	out := gate.Run(ctx, state.UserQuery, state.FinalResults, analysisOf(state))
	state.Synthesis = out.Text
	state.SynthesisMeta = out.Meta
	state.Metadata["refinement_count"] = state.RefinementCount

	if out.Meta.Status == types.SynthesisFallback && gate.Synthesizer == nil {
		e.note(state, StepSynthesize, types.LevelInfo, "no synthesizer configured, using fallback listing")
		return
	}
	if out.Meta.Status == types.SynthesisFallback {
		e.note(state, StepSynthesize, types.LevelWarn, "synthesis unavailable (%s), using fallback listing", out.Meta.Error)
		return
	}
	e.note(state, StepSynthesize, types.LevelInfo, "synthesis %s from %d papers", out.Meta.Status, out.Meta.PapersCount)
}

func analysisOf(state *types.SearchState) types.QueryAnalysis {
	if state.Analysis == nil {
		return DefaultAnalysis(state.UserQuery)
	}
	return *state.Analysis
}
