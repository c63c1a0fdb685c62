// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litsearch/pkg/types"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestCache(ttl time.Duration) (*Cache, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := New(ttl)
	c.now = clk.Now
	return c, clk
}

func sampleArticles() []types.ArticleRecord {
	return []types.ArticleRecord{
		{Title: "Hypertension in the elderly", DOI: "10.1/a", Source: types.SourcePubMed, Authors: []string{"Smith J"}},
		{Title: "ACE inhibitors revisited", PMID: "123456", Source: types.SourcePubMed},
	}
}

func TestSetThenGetHits(t *testing.T) {
	c, _ := newTestCache(30 * time.Minute)
	params := Params(10, types.YearRange{Start: 2020, End: 2025})

	c.Set("pubmed", "hypertension AND elderly", params, sampleArticles())

	got, ok := c.Get("pubmed", "hypertension AND elderly", params)
	require.True(t, ok)
	assert.Equal(t, sampleArticles(), got)
}

func TestGetMisses(t *testing.T) {
	c, _ := newTestCache(30 * time.Minute)
	params := Params(10, types.YearRange{Start: 2020, End: 2025})
	c.Set("pubmed", "hypertension", params, sampleArticles())

	tests := []struct {
		name   string
		source string
		query  string
		params map[string]any
	}{
		{"different query", "pubmed", "diabetes", params},
		{"different source", "scopus", "hypertension", params},
		{"different params", "pubmed", "hypertension", Params(20, types.YearRange{Start: 2020, End: 2025})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := c.Get(tt.source, tt.query, tt.params)
			assert.False(t, ok)
		})
	}
}

func TestExpiredEntryIsEvicted(t *testing.T) {
	c, clk := newTestCache(30 * time.Minute)
	params := Params(10, types.YearRange{})
	c.Set("scopus", "q", params, sampleArticles())

	clk.Advance(29 * time.Minute)
	_, ok := c.Get("scopus", "q", params)
	assert.True(t, ok, "entry should be usable before TTL")

	clk.Advance(time.Minute)
	_, ok = c.Get("scopus", "q", params)
	assert.False(t, ok, "entry should expire at TTL")
	assert.Equal(t, 0, c.Len(), "expired entry should be removed on lookup")
}

func TestKeyIgnoresParamOrderAndWhitespace(t *testing.T) {
	a := map[string]any{"year_start": 2020, "max_results": 10, "year_end": 2025}
	b := map[string]any{"max_results": 10, "year_end": 2025, "year_start": 2020}

	assert.Equal(t, Key("pubmed", "hypertension  AND elderly", a), Key("pubmed", " hypertension AND elderly ", b))
	assert.NotEqual(t, Key("pubmed", "x AND y", a), Key("pubmed", "x and y", a), "case is significant")
}

func TestCachedPayloadIsIsolated(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	params := Params(5, types.YearRange{})
	in := sampleArticles()
	c.Set("pubmed", "q", params, in)

	in[0].Title = "mutated after Set"
	got, ok := c.Get("pubmed", "q", params)
	require.True(t, ok)
	assert.Equal(t, "Hypertension in the elderly", got[0].Title)

	got[0].Authors[0] = "mutated after Get"
	again, _ := c.Get("pubmed", "q", params)
	assert.Equal(t, "Smith J", again[0].Authors[0])
}

func TestEmptyPayloadIsAHit(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	c.Set("openalex", "rare topic", nil, nil)

	got, ok := c.Get("openalex", "rare topic", nil)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestPurge(t *testing.T) {
	c, clk := newTestCache(10 * time.Minute)
	c.Set("pubmed", "old", nil, sampleArticles())
	clk.Advance(11 * time.Minute)
	c.Set("pubmed", "fresh", nil, sampleArticles())

	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 1, c.Len())
}

func TestDefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultTTL, New(0).TTL())
	assert.Equal(t, 5*time.Second, New(5*time.Second).TTL())
}

func TestConcurrentAccess(t *testing.T) {
	c := New(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := fmt.Sprintf("q%d", i%4)
			c.Set("pubmed", q, nil, sampleArticles())
			_, _ = c.Get("pubmed", q, nil)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 4, c.Len())
}
