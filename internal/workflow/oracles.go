// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"

	"github.com/pdiddy/litsearch/internal/fetch"
	"github.com/pdiddy/litsearch/pkg/types"
)

// Analyzer reads the user query into topic, intent, and keywords.
type Analyzer interface {
	Analyze(ctx context.Context, userQuery string) (types.QueryAnalysis, error)
}

// Planner proposes which sources to query and with what filters.
type Planner interface {
	Plan(ctx context.Context, userQuery string, analysis types.QueryAnalysis, prefs types.Preferences) (types.SearchStrategy, error)
}

// Optimizer rewrites the user query into the syntax one source expects.
type Optimizer interface {
	Optimize(ctx context.Context, userQuery string, analysis types.QueryAnalysis, source string) (string, error)
}

// Advisor suggests how to change the strategy after an insufficient pass.
type Advisor interface {
	Advise(ctx context.Context, req RefineRequest) (Refinement, error)
}

// RefineRequest is what the advisor sees.
type RefineRequest struct {
	UserQuery string
	Reason    string
	Analysis  types.QueryAnalysis
	Strategy  types.SearchStrategy
	Kept      int
	Requested int
}

// Refinement is an advisor suggestion. Zero fields mean "leave unchanged".
type Refinement struct {
	Queries      map[string]string `json:"new_queries"`
	YearStart    int               `json:"year_start"`
	YearEnd      int               `json:"year_end"`
	MaxPerSource int               `json:"max_results_per_source"`
	Explanation  string            `json:"explanation"`
}

// Fetcher runs the per-source queries. *fetch.Orchestrator implements it.
type Fetcher interface {
	FetchAllWithReport(ctx context.Context, sourceQueries map[string]string, maxPerSource int, years types.YearRange) (map[string][]types.ArticleRecord, fetch.Report)
}
