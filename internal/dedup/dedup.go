// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup merges per-source results into one list with duplicates
// removed. Authoritative identifiers (DOI, then PMID) decide first; title
// similarity is consulted only for records that carry neither.
package dedup

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/pdiddy/litsearch/pkg/types"
)

// TitleThreshold is the minimum similarity ratio at which two bare-title
// records are considered the same work.
const TitleThreshold = 0.85

// DefaultPriority is the merge order: earlier sources win ties.
var DefaultPriority = []string{
	types.SourcePubMed,
	types.SourceScopus,
	types.SourceSemanticScholar,
	types.SourceOpenAlex,
}

// Stats counts the records removed by each rule.
type Stats struct {
	Input   int `json:"input" yaml:"input"`
	Unique  int `json:"unique" yaml:"unique"`
	ByDOI   int `json:"by_doi" yaml:"by_doi"`
	ByPMID  int `json:"by_pmid" yaml:"by_pmid"`
	ByTitle int `json:"by_title" yaml:"by_title"`
}

// Removed returns the total number of duplicates dropped.
func (s Stats) Removed() int { return s.ByDOI + s.ByPMID + s.ByTitle }

// Deduplicate returns the unique records in first-accepted order.
func Deduplicate(articles []types.ArticleRecord) []types.ArticleRecord {
	unique, _ := DeduplicateWithStats(articles)
	return unique
}

// DeduplicateWithStats is Deduplicate plus per-rule removal counts.
func DeduplicateWithStats(articles []types.ArticleRecord) ([]types.ArticleRecord, Stats) {
	seenDOI := make(map[string]bool)
	seenPMID := make(map[string]bool)
	var seenTitles []string
	unique := make([]types.ArticleRecord, 0, len(articles))
	stats := Stats{Input: len(articles)}

	for _, a := range articles {
		if doi := types.NormalizeID(a.DOI); doi != "" {
			key := strings.ToLower(doi)
			if seenDOI[key] {
				stats.ByDOI++
				continue
			}
			seenDOI[key] = true
			unique = append(unique, a)
			continue
		}

		if pmid := types.NormalizeID(a.PMID); pmid != "" {
			if seenPMID[pmid] {
				stats.ByPMID++
				continue
			}
			seenPMID[pmid] = true
			unique = append(unique, a)
			continue
		}

		title := types.NormalizeTitle(a.Title)
		if title == "" {
			unique = append(unique, a)
			continue
		}

		duplicate := false
		for _, prior := range seenTitles {
			if ratio(title, prior) >= TitleThreshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			stats.ByTitle++
			continue
		}
		seenTitles = append(seenTitles, title)
		unique = append(unique, a)
	}

	stats.Unique = len(unique)
	return unique, stats
}

// Merge flattens per-source results in priority order and deduplicates
// them. Sources named in priority come first, in that order; any other
// source follows in alphabetical order so the result never depends on map
// iteration or fetch completion order.
func Merge(results map[string][]types.ArticleRecord, priority []string) ([]types.ArticleRecord, Stats) {
	return DeduplicateWithStats(Flatten(results, priority))
}

// Flatten concatenates per-source buckets in priority order.
func Flatten(results map[string][]types.ArticleRecord, priority []string) []types.ArticleRecord {
	var all []types.ArticleRecord
	for _, src := range Order(results, priority) {
		all = append(all, results[src]...)
	}
	return all
}

// Order returns the sources present in results, sorted by priority.
func Order(results map[string][]types.ArticleRecord, priority []string) []string {
	if priority == nil {
		priority = DefaultPriority
	}
	var ordered []string
	used := make(map[string]bool)
	for _, src := range priority {
		if _, ok := results[src]; ok && !used[src] {
			ordered = append(ordered, src)
			used[src] = true
		}
	}
	var rest []string
	for src := range results {
		if !used[src] {
			rest = append(rest, src)
		}
	}
	sort.Strings(rest)
	return append(ordered, rest...)
}

// Similarity returns the sequence-similarity ratio of two titles after
// normalization, in [0,1].
func Similarity(a, b string) float64 {
	return ratio(types.NormalizeTitle(a), types.NormalizeTitle(b))
}

// ratio computes the Ratcliff/Obershelp ratio over the characters of two
// already-normalized strings.
func ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}
