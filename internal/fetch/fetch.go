// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch fans a set of per-source queries out to source adapters
// concurrently and collects the results under one aggregate deadline. A
// failing, panicking, or slow source yields an empty list for that source
// only; it never fails the whole fetch.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/pdiddy/litsearch/internal/cache"
	"github.com/pdiddy/litsearch/pkg/types"
)

// DefaultTimeout is the aggregate deadline for one FetchAll call.
const DefaultTimeout = 60 * time.Second

// Adapter searches a single bibliographic source. Implementations live in
// internal/sources; tests supply fakes.
type Adapter interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int, years types.YearRange) ([]types.ArticleRecord, error)
}

// Outcome classifies how one source's fetch ended.
type Outcome string

const (
	OutcomeCached  Outcome = "cached"
	OutcomeOK      Outcome = "ok"
	OutcomeFailed  Outcome = "failed"
	OutcomeTimeout Outcome = "timeout"
	OutcomeUnknown Outcome = "unknown_source"
)

// SourceReport describes the fetch of one source.
type SourceReport struct {
	Source   string        `json:"source" yaml:"source"`
	Query    string        `json:"query" yaml:"query"`
	Outcome  Outcome       `json:"outcome" yaml:"outcome"`
	Count    int           `json:"count" yaml:"count"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Report lists per-source outcomes in source-name order.
type Report []SourceReport

// Failed returns the names of sources that failed or timed out.
func (r Report) Failed() []string {
	var names []string
	for _, sr := range r {
		if sr.Outcome == OutcomeFailed || sr.Outcome == OutcomeTimeout || sr.Outcome == OutcomeUnknown {
			names = append(names, sr.Source)
		}
	}
	return names
}

// Orchestrator runs the parallel fetch. Cache may be nil to disable caching.
type Orchestrator struct {
	Adapters map[string]Adapter
	Cache    *cache.Cache
	Timeout  time.Duration
	Logger   *slog.Logger
}

// New returns an orchestrator over the given adapters, keyed by Name().
func New(c *cache.Cache, timeout time.Duration, logger *slog.Logger, adapters ...Adapter) *Orchestrator {
	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Orchestrator{Adapters: m, Cache: c, Timeout: timeout, Logger: logger}
}

// FetchAll returns one entry per source with a non-empty query.
func (o *Orchestrator) FetchAll(ctx context.Context, sourceQueries map[string]string, maxPerSource int, years types.YearRange) map[string][]types.ArticleRecord {
	results, _ := o.FetchAllWithReport(ctx, sourceQueries, maxPerSource, years)
	return results
}

type taskResult struct {
	source   string
	articles []types.ArticleRecord
	err      error
	duration time.Duration
}

// FetchAllWithReport is FetchAll plus a per-source outcome report.
func (o *Orchestrator) FetchAllWithReport(ctx context.Context, sourceQueries map[string]string, maxPerSource int, years types.YearRange) (map[string][]types.ArticleRecord, Report) {
	logger := o.logger()
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	params := cache.Params(maxPerSource, years)

	results := make(map[string][]types.ArticleRecord, len(sourceQueries))
	reports := make(map[string]SourceReport, len(sourceQueries))
	pending := make(map[string]string)

	for src, q := range sourceQueries {
		if q == "" {
			continue
		}
		if _, ok := o.Adapters[src]; !ok {
			logger.Warn("no adapter for source", "source", src)
			results[src] = []types.ArticleRecord{}
			reports[src] = SourceReport{Source: src, Query: q, Outcome: OutcomeUnknown, Error: "no adapter configured"}
			continue
		}
		if o.Cache != nil {
			if cached, hit := o.Cache.Get(src, q, params); hit {
				logger.Debug("cache hit", "source", src, "count", len(cached))
				results[src] = cached
				reports[src] = SourceReport{Source: src, Query: q, Outcome: OutcomeCached, Count: len(cached)}
				continue
			}
		}
		pending[src] = q
	}

	if len(pending) > 0 {
		fetchCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		// Buffered so tasks finishing after the deadline never block.
		ch := make(chan taskResult, len(pending))
		for src, q := range pending {
			go runTask(fetchCtx, o.Adapters[src], src, q, maxPerSource, years, ch)
		}

	collect:
		for remaining := len(pending); remaining > 0; remaining-- {
			select {
			case tr := <-ch:
				delete(pending, tr.source)
				q := sourceQueries[tr.source]
				if tr.err != nil {
					logger.Warn("source fetch failed", "source", tr.source, "error", tr.err)
					results[tr.source] = []types.ArticleRecord{}
					reports[tr.source] = SourceReport{Source: tr.source, Query: q, Outcome: OutcomeFailed, Error: tr.err.Error(), Duration: tr.duration}
					continue
				}
				if tr.articles == nil {
					tr.articles = []types.ArticleRecord{}
				}
				if o.Cache != nil {
					o.Cache.Set(tr.source, q, params, tr.articles)
				}
				results[tr.source] = tr.articles
				reports[tr.source] = SourceReport{Source: tr.source, Query: q, Outcome: OutcomeOK, Count: len(tr.articles), Duration: tr.duration}
			case <-fetchCtx.Done():
				break collect
			}
		}

		for src, q := range pending {
			logger.Warn("source fetch timed out", "source", src, "timeout", timeout)
			results[src] = []types.ArticleRecord{}
			reports[src] = SourceReport{Source: src, Query: q, Outcome: OutcomeTimeout, Error: fmt.Sprintf("no response within %v", timeout), Duration: timeout}
		}
	}

	return results, sortedReport(reports)
}

// runTask calls one adapter and always sends exactly one result, even when
// the adapter panics.
func runTask(ctx context.Context, a Adapter, src, query string, maxResults int, years types.YearRange, ch chan<- taskResult) {
	start := time.Now()
	tr := taskResult{source: src}
	defer func() {
		if r := recover(); r != nil {
			tr.articles = nil
			tr.err = fmt.Errorf("adapter panic: %v", r)
		}
		tr.duration = time.Since(start)
		ch <- tr
	}()

	articles, err := a.Search(ctx, query, maxResults, years)
	if err == nil && ctx.Err() != nil {
		// Results that arrive after cancellation are not trusted.
		err = ctx.Err()
	}
	tr.articles, tr.err = tagSource(types.CloneArticles(articles), src), err
}

// tagSource fills in a missing Source field so dedup priority and history
// attribution work for adapters that leave it blank.
func tagSource(articles []types.ArticleRecord, src string) []types.ArticleRecord {
	for i := range articles {
		if articles[i].Source == "" {
			articles[i].Source = src
		}
	}
	return articles
}

func sortedReport(m map[string]SourceReport) Report {
	out := make(Report, 0, len(m))
	for _, sr := range m {
		out = append(out, sr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
