// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workflow drives one literature search through the
// Analyze, Plan, Optimize, Execute, Evaluate, Refine, and Synthesize steps.
// The control loop is an explicit state machine: Next is a pure transition
// function and Engine.RunSearch is a loop over it.
package workflow

import (
	"math"

	"github.com/pdiddy/litsearch/pkg/types"
)

// MaxRefinements caps the Refine loop.
const MaxRefinements = 2

// MinKeptRatio is the fraction of the requested result count that must
// pass the relevance filter before the run stops refining.
const MinKeptRatio = 0.5

// Step is one node of the search state machine.
type Step int

const (
	StepAnalyze Step = iota
	StepPlan
	StepOptimize
	StepExecute
	StepEvaluate
	StepRefine
	StepSynthesize
	StepEnd
)

var stepNames = [...]string{
	StepAnalyze:    "analyze",
	StepPlan:       "plan",
	StepOptimize:   "optimize",
	StepExecute:    "execute",
	StepEvaluate:   "evaluate",
	StepRefine:     "refine",
	StepSynthesize: "synthesize",
	StepEnd:        "end",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return "unknown"
	}
	return stepNames[s]
}

// Refinement decision reasons.
const (
	ReasonMaxRefinements = "max refinement attempts reached"
	ReasonNoRelevant     = "no relevant results"
	ReasonInsufficient   = "insufficient quality results"
	ReasonSufficient     = "sufficient quality results"
)

// Next returns the step that follows step. Only Evaluate depends on the
// state; every other edge is fixed. End is absorbing.
func Next(step Step, state *types.SearchState) Step {
	switch step {
	case StepAnalyze:
		return StepPlan
	case StepPlan:
		return StepOptimize
	case StepOptimize:
		return StepExecute
	case StepExecute:
		return StepEvaluate
	case StepEvaluate:
		next, _ := ShouldRefine(state)
		return next
	case StepRefine:
		return StepOptimize
	default:
		return StepEnd
	}
}

// ShouldRefine decides between another refinement pass and synthesis.
// The refinement cap is checked first, so it holds for any kept count.
func ShouldRefine(state *types.SearchState) (Step, string) {
	if state.RefinementCount >= MaxRefinements {
		return StepSynthesize, ReasonMaxRefinements
	}
	kept := state.KeptCount()
	if kept == 0 {
		return StepRefine, ReasonNoRelevant
	}
	if kept < MinKept(state.Preferences.RequestedMax()) {
		return StepRefine, ReasonInsufficient
	}
	return StepSynthesize, ReasonSufficient
}

// MinKept is ceil(MinKeptRatio * requested).
func MinKept(requested int) int {
	return int(math.Ceil(MinKeptRatio * float64(requested)))
}
