// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litsearch/internal/cache"
	"github.com/pdiddy/litsearch/pkg/types"
)

// --- mock adapter ---

type mockAdapter struct {
	name    string
	results []types.ArticleRecord
	err     error
	delay   time.Duration
	panics  bool
	calls   int32
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) Search(ctx context.Context, _ string, _ int, _ types.YearRange) ([]types.ArticleRecord, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.panics {
		panic("boom")
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.results, m.err
}

func articles(src string, n int) []types.ArticleRecord {
	out := make([]types.ArticleRecord, n)
	for i := range out {
		out[i] = types.ArticleRecord{Title: fmt.Sprintf("%s paper %d", src, i), DOI: fmt.Sprintf("10.1/%s.%d", src, i), Source: src}
	}
	return out
}

func TestFetchAllPartialFailure(t *testing.T) {
	a := &mockAdapter{name: "a", results: articles("a", 3)}
	b := &mockAdapter{name: "b", err: fmt.Errorf("network error")}
	c := &mockAdapter{name: "c", results: articles("c", 2)}
	o := New(cache.New(time.Minute), time.Second, nil, a, b, c)

	got, report := o.FetchAllWithReport(context.Background(), map[string]string{"a": "q", "b": "q", "c": "q"}, 10, types.YearRange{})

	require.Len(t, got, 3, "one entry per requested source")
	assert.Len(t, got["a"], 3)
	assert.Len(t, got["c"], 2)
	assert.NotNil(t, got["b"])
	assert.Empty(t, got["b"])
	assert.Equal(t, []string{"b"}, report.Failed())
}

func TestFetchAllIsolatesPanics(t *testing.T) {
	ok := &mockAdapter{name: "ok", results: articles("ok", 1)}
	bad := &mockAdapter{name: "bad", panics: true}
	o := New(nil, time.Second, nil, ok, bad)

	got, report := o.FetchAllWithReport(context.Background(), map[string]string{"ok": "q", "bad": "q"}, 5, types.YearRange{})
	assert.Len(t, got["ok"], 1)
	assert.Empty(t, got["bad"])
	require.Len(t, report, 2)
	assert.Equal(t, OutcomeFailed, report[0].Outcome)
	assert.Contains(t, report[0].Error, "panic")
}

func TestFetchAllTimeoutYieldsEmpty(t *testing.T) {
	fast := &mockAdapter{name: "fast", results: articles("fast", 2)}
	slow := &mockAdapter{name: "slow", results: articles("slow", 2), delay: 5 * time.Second}
	c := cache.New(time.Minute)
	o := New(c, 50*time.Millisecond, nil, fast, slow)

	start := time.Now()
	got, report := o.FetchAllWithReport(context.Background(), map[string]string{"fast": "q", "slow": "q"}, 5, types.YearRange{})
	assert.Less(t, time.Since(start), 2*time.Second, "should not wait for the slow source")

	assert.Len(t, got["fast"], 2)
	assert.Empty(t, got["slow"])
	assert.Equal(t, []string{"slow"}, report.Failed())

	_, hit := c.Get("slow", "q", cache.Params(5, types.YearRange{}))
	assert.False(t, hit, "timed-out results must not be cached")
}

func TestFetchAllUsesCache(t *testing.T) {
	a := &mockAdapter{name: "a", results: articles("a", 2)}
	c := cache.New(time.Minute)
	o := New(c, time.Second, nil, a)
	queries := map[string]string{"a": "hypertension"}
	years := types.YearRange{Start: 2020, End: 2025}

	first := o.FetchAll(context.Background(), queries, 10, years)
	second, report := o.FetchAllWithReport(context.Background(), queries, 10, years)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&a.calls), "second fetch should be served from cache")
	assert.Equal(t, OutcomeCached, report[0].Outcome)

	o.FetchAll(context.Background(), queries, 20, years)
	assert.Equal(t, int32(2), atomic.LoadInt32(&a.calls), "different params miss the cache")
}

func TestFetchAllDoesNotCacheFailures(t *testing.T) {
	a := &mockAdapter{name: "a", err: fmt.Errorf("HTTP 500")}
	c := cache.New(time.Minute)
	o := New(c, time.Second, nil, a)

	o.FetchAll(context.Background(), map[string]string{"a": "q"}, 10, types.YearRange{})
	o.FetchAll(context.Background(), map[string]string{"a": "q"}, 10, types.YearRange{})

	assert.Equal(t, int32(2), atomic.LoadInt32(&a.calls))
	assert.Equal(t, 0, c.Len())
}

func TestFetchAllSkipsEmptyQueriesAndUnknownSources(t *testing.T) {
	a := &mockAdapter{name: "a", results: articles("a", 1)}
	o := New(nil, time.Second, nil, a)

	got, report := o.FetchAllWithReport(context.Background(), map[string]string{"a": "", "ghost": "q"}, 10, types.YearRange{})

	_, present := got["a"]
	assert.False(t, present, "source with empty query is not requested")
	assert.Empty(t, got["ghost"])
	assert.Equal(t, int32(0), atomic.LoadInt32(&a.calls))
	require.Len(t, report, 1)
	assert.Equal(t, OutcomeUnknown, report[0].Outcome)
}

func TestFetchAllTagsMissingSource(t *testing.T) {
	a := &mockAdapter{name: "a", results: []types.ArticleRecord{{Title: "untagged"}}}
	o := New(nil, time.Second, nil, a)

	got := o.FetchAll(context.Background(), map[string]string{"a": "q"}, 10, types.YearRange{})
	assert.Equal(t, "a", got["a"][0].Source)
	assert.Equal(t, "", a.results[0].Source, "adapter-owned slice is not mutated")
}

func TestFetchAllNoQueries(t *testing.T) {
	o := New(nil, time.Second, nil)
	got, report := o.FetchAllWithReport(context.Background(), nil, 10, types.YearRange{})
	assert.Empty(t, got)
	assert.Empty(t, report)
}
