// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache holds fetched source results in memory for a bounded time
// so identical requests within one session skip the network.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/litsearch/pkg/types"
)

// DefaultTTL is used when New is given a non-positive TTL.
const DefaultTTL = 30 * time.Minute

type entry struct {
	payload    []types.ArticleRecord
	insertedAt time.Time
}

// Cache is a TTL key-value store keyed by (source, query, params). It is
// safe for concurrent use; concurrent writes to one key are last-write-wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration

	// now returns the current time. Tests replace it to simulate expiry.
	now func() time.Time
}

// New returns an empty cache whose entries expire after ttl.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns a copy of the cached payload for the request. An expired
// entry is removed and reported as a miss.
func (c *Cache) Get(source, query string, params map[string]any) ([]types.ArticleRecord, bool) {
	key := Key(source, query, params)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.now().Sub(e.insertedAt) >= c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if cur, still := c.entries[key]; still && c.now().Sub(cur.insertedAt) >= c.ttl {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return types.CloneArticles(e.payload), true
}

// Set stores a copy of payload for the request, replacing any prior entry.
func (c *Cache) Set(source, query string, params map[string]any, payload []types.ArticleRecord) {
	key := Key(source, query, params)
	stored := types.CloneArticles(payload)
	if stored == nil {
		stored = []types.ArticleRecord{}
	}

	c.mu.Lock()
	c.entries[key] = entry{payload: stored, insertedAt: c.now()}
	c.mu.Unlock()
}

// Len returns the number of entries, including expired ones not yet evicted.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge evicts every expired entry and returns how many were removed.
func (c *Cache) Purge() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.insertedAt) >= c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Key derives the deterministic cache key for a request. Params are
// serialized as JSON, which orders map keys, so logically identical
// parameter sets produce the same key.
func Key(source, query string, params map[string]any) string {
	p, err := json.Marshal(params)
	if err != nil {
		// Unserializable values still need a stable key.
		p = []byte(fmt.Sprintf("%v", params))
	}
	sum := sha256.Sum256([]byte(source + ":" + NormalizeQuery(query) + ":" + string(p)))
	return hex.EncodeToString(sum[:])
}

// NormalizeQuery trims and collapses whitespace. Case is kept because
// provider boolean syntax (AND, OR, [MeSH]) is case-sensitive.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

// Params builds the standard parameter set used by the fetch orchestrator.
func Params(maxResults int, years types.YearRange) map[string]any {
	return map[string]any{
		"max_results": maxResults,
		"year_start":  years.Start,
		"year_end":    years.End,
	}
}
