// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filter scores each deduplicated article against the user query
// and partitions the set into kept and discarded articles.
package filter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/pdiddy/litsearch/pkg/types"
)

const (
	// DefaultThreshold is the minimum score for an article to be kept.
	DefaultThreshold = 7.0

	// NeutralScore is assigned when the scorer's answer cannot be parsed.
	// It sits below the threshold, so the article is discarded.
	NeutralScore = 5.0

	// BenefitOfDoubtScore is assigned when the scorer call itself fails.
	// It meets the threshold, so the article is kept.
	BenefitOfDoubtScore = 7.0
)

// Verdict is the scorer's judgment of one article.
type Verdict struct {
	Score      float64 `json:"relevance_score"`
	Keep       bool    `json:"keep"`
	Reasoning  string  `json:"reasoning"`
	KeyFinding string  `json:"key_finding,omitempty"`
}

// Scorer judges how relevant one article is to the query.
type Scorer interface {
	Score(ctx context.Context, article types.ArticleRecord, userQuery string, analysis types.QueryAnalysis) (Verdict, error)
}

// Filter applies the keep/discard rule. A nil Scorer gives every article
// the benefit-of-doubt score.
type Filter struct {
	Scorer    Scorer
	Threshold float64
	Logger    *slog.Logger
}

// Result is the outcome of one filtering pass.
type Result struct {
	Kept      []types.ArticleRecord
	Discarded []types.ArticleRecord
	Scores    map[string]float64
	Stats     types.FilterStatistics

	// Fallbacks counts articles whose score came from a fallback.
	Fallbacks int
}

// Run scores every article once and partitions them. Kept articles are
// ordered by score, highest first; ties keep input order. Discarded
// articles keep input order and carry a DiscardReason.
func (f *Filter) Run(ctx context.Context, articles []types.ArticleRecord, userQuery string, analysis types.QueryAnalysis) Result {
	threshold := f.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	logger := f.logger()

	res := Result{
		Kept:      []types.ArticleRecord{},
		Discarded: []types.ArticleRecord{},
		Scores:    make(map[string]float64, len(articles)),
	}

	for i, in := range articles {
		a := in.Clone()
		v, fellBack := f.score(ctx, a, userQuery, analysis, logger)
		if fellBack {
			res.Fallbacks++
		}

		a.RelevanceScore = types.FloatPtr(v.Score)
		a.Reasoning = v.Reasoning
		a.KeyFinding = v.KeyFinding
		res.Scores[identity(a, i, res.Scores)] = v.Score

		if v.Keep && v.Score >= threshold {
			a.DiscardReason = ""
			res.Kept = append(res.Kept, a)
			continue
		}
		a.DiscardReason = discardReason(v, threshold)
		res.Discarded = append(res.Discarded, a)
	}

	sort.SliceStable(res.Kept, func(i, j int) bool {
		return res.Kept[i].Score() > res.Kept[j].Score()
	})

	res.Stats = Statistics(len(res.Kept), len(res.Discarded), res.Scores)
	return res
}

// score calls the scorer and substitutes a fallback verdict on failure.
// The second return is true when a fallback was used.
func (f *Filter) score(ctx context.Context, a types.ArticleRecord, query string, analysis types.QueryAnalysis, logger *slog.Logger) (Verdict, bool) {
	if f.Scorer == nil {
		return Verdict{Score: BenefitOfDoubtScore, Keep: true, Reasoning: "no scorer configured; kept by default"}, true
	}

	v, err := f.Scorer.Score(ctx, a, query, analysis)
	if err == nil && (v.Score < 1 || v.Score > 10) {
		err = fmt.Errorf("%w: score %.1f outside 1-10", types.ErrUnparsable, v.Score)
	}
	if err == nil {
		return v, false
	}

	if errors.Is(err, types.ErrUnparsable) {
		logger.Warn("scorer output unparsable, using neutral score", "title", a.Title, "error", err)
		return Verdict{Score: NeutralScore, Keep: false, Reasoning: "scorer output could not be parsed"}, true
	}
	logger.Warn("scorer call failed, keeping article", "title", a.Title, "error", err)
	return Verdict{Score: BenefitOfDoubtScore, Keep: true, Reasoning: "scorer unavailable; kept by benefit of doubt"}, true
}

// Statistics aggregates a filtering pass. PassRate is 0 for an empty set.
func Statistics(kept, discarded int, scores map[string]float64) types.FilterStatistics {
	total := kept + discarded
	st := types.FilterStatistics{TotalFound: total, Kept: kept, Discarded: discarded}
	if total > 0 {
		st.PassRate = float64(kept) / float64(total)
	}
	if len(scores) > 0 {
		var sum float64
		for _, s := range scores {
			sum += s
		}
		st.AverageScore = sum / float64(len(scores))
	}
	return st
}

func discardReason(v Verdict, threshold float64) string {
	switch {
	case v.Score < threshold && !v.Keep:
		return fmt.Sprintf("score %.1f below %.1f and scorer recommended discard", v.Score, threshold)
	case v.Score < threshold:
		return fmt.Sprintf("score %.1f below %.1f", v.Score, threshold)
	default:
		return "scorer recommended discard"
	}
}

// identity keys the score map. Records without DOI, PMID, or title, and
// records whose key is already taken, fall back to their position so every
// article gets its own entry.
func identity(a types.ArticleRecord, i int, taken map[string]float64) string {
	k := a.Key()
	if k == "" {
		return fmt.Sprintf("idx:%d", i)
	}
	if _, dup := taken[k]; dup {
		return fmt.Sprintf("%s#%d", k, i)
	}
	return k
}

func (f *Filter) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
