// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/litsearch/internal/filter"
	"github.com/pdiddy/litsearch/internal/synthesis"
	"github.com/pdiddy/litsearch/pkg/types"
)

// Engine holds the collaborators of a search run. Any oracle may be nil, in
// which case its step always uses the fallback.
type Engine struct {
	Analyzer  Analyzer
	Planner   Planner
	Optimizer Optimizer
	Advisor   Advisor
	Fetcher   Fetcher

	// Filter scores articles during Evaluate. Nil keeps everything.
	Filter *filter.Filter

	// Gate produces the synthesis. Nil uses a gate without a synthesizer.
	Gate *synthesis.Gate

	// Priority orders sources for deduplication. Nil uses dedup.DefaultPriority.
	Priority []string

	Logger *slog.Logger

	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

// ProgressFunc is called after each step with the step that just ran.
type ProgressFunc func(step Step, state *types.SearchState)

// RunOption configures one RunSearch call.
type RunOption func(*runConfig)

type runConfig struct {
	progress ProgressFunc
}

// WithProgress registers a callback invoked once per state transition.
func WithProgress(fn ProgressFunc) RunOption {
	return func(c *runConfig) { c.progress = fn }
}

// RunSearch drives the state machine from Analyze to End and returns the
// terminal state. Collaborator failures degrade individual steps and are
// recorded in the state's message log; they never abort the run.
func (e *Engine) RunSearch(ctx context.Context, userQuery string, prefs types.Preferences, opts ...RunOption) *types.SearchState {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	state := types.NewSearchState(e.newID(), userQuery, prefs)
	logger := e.logger().With("run_id", state.RunID)
	logger.Info("search started", "query", userQuery, "max_results", prefs.RequestedMax())

	for step := StepAnalyze; step != StepEnd; {
		e.run(ctx, step, state)
		next := Next(step, state)
		logger.Debug("transition", "from", step, "to", next)
		if cfg.progress != nil {
			cfg.progress(step, state)
		}
		step = next
	}

	logger.Info("search finished",
		"kept", state.KeptCount(),
		"refinements", state.RefinementCount,
		"degraded", state.Degraded())
	return state
}

func (e *Engine) run(ctx context.Context, step Step, state *types.SearchState) {
	switch step {
	case StepAnalyze:
		e.analyze(ctx, state)
	case StepPlan:
		e.plan(ctx, state)
	case StepOptimize:
		e.optimize(ctx, state)
	case StepExecute:
		e.execute(ctx, state)
	case StepEvaluate:
		e.evaluate(ctx, state)
	case StepRefine:
		e.refine(ctx, state)
	case StepSynthesize:
		e.synthesize(ctx, state)
	}
}

// note appends a step message and mirrors it to the logger.
func (e *Engine) note(state *types.SearchState, step Step, level types.MessageLevel, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	state.Log(step.String(), level, text)
	logger := e.logger().With("run_id", state.RunID, "step", step.String())
	if level == types.LevelWarn {
		logger.Warn(text)
		return
	}
	logger.Info(text)
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
