// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the litsearch pipeline:
// article records, the search state threaded through the workflow, and the
// configuration consumed by the CLI.
package types

import (
	"strings"
	"unicode"
)

// Source identifiers used as keys in per-source result maps and cache keys.
const (
	SourcePubMed          = "pubmed"
	SourceScopus          = "scopus"
	SourceSemanticScholar = "semantic_scholar"
	SourceOpenAlex        = "openalex"
)

// sourceAliases maps the display names users type to source identifiers.
var sourceAliases = map[string]string{
	"pubmed":           SourcePubMed,
	"scopus":           SourceScopus,
	"semantic scholar": SourceSemanticScholar,
	"semantic_scholar": SourceSemanticScholar,
	"semanticscholar":  SourceSemanticScholar,
	"semantic":         SourceSemanticScholar,
	"s2":               SourceSemanticScholar,
	"openalex":         SourceOpenAlex,
}

// NormalizeSource maps a user-facing source name ("PubMed", "Semantic
// Scholar") to its identifier. Unknown names are lowercased and returned
// with spaces replaced by underscores.
func NormalizeSource(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if id, ok := sourceAliases[key]; ok {
		return id
	}
	return strings.ReplaceAll(key, " ", "_")
}

// ArticleRecord is one bibliographic record returned by a source adapter.
// Empty strings stand for absent values; Year and CitationCount are
// pointers because zero is a meaningful value for neither.
type ArticleRecord struct {
	// Title is the article title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Authors lists the authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Journal is the journal or venue name.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// Year is the publication year.
	Year *int `json:"year,omitempty" yaml:"year,omitempty"`

	DOI      string `json:"doi,omitempty" yaml:"doi,omitempty"`
	PMID     string `json:"pmid,omitempty" yaml:"pmid,omitempty"`
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Link is the landing page URL at the source.
	Link string `json:"link,omitempty" yaml:"link,omitempty"`

	CitationCount *int `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`

	// Source identifies which adapter produced this record (e.g. "pubmed").
	Source string `json:"source" yaml:"source"`

	// Annotations added by the relevance filter.
	RelevanceScore *float64 `json:"relevance_score,omitempty" yaml:"relevance_score,omitempty"`
	Reasoning      string   `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	KeyFinding     string   `json:"key_finding,omitempty" yaml:"key_finding,omitempty"`
	DiscardReason  string   `json:"discard_reason,omitempty" yaml:"discard_reason,omitempty"`
}

// Key returns the dedup identity of the record: the DOI if present, else
// the PMID, else the normalized title. Records with none of the three
// return "".
func (a ArticleRecord) Key() string {
	if doi := NormalizeID(a.DOI); doi != "" {
		return "doi:" + strings.ToLower(doi)
	}
	if pmid := NormalizeID(a.PMID); pmid != "" {
		return "pmid:" + pmid
	}
	if t := NormalizeTitle(a.Title); t != "" {
		return "title:" + t
	}
	return ""
}

// NormalizeID trims an identifier and maps the "N/A" placeholder to "".
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if strings.EqualFold(id, "n/a") {
		return ""
	}
	return id
}

// Score returns the relevance score, or 0 when the record is unscored.
func (a ArticleRecord) Score() float64 {
	if a.RelevanceScore == nil {
		return 0
	}
	return *a.RelevanceScore
}

// FirstAuthor returns the first listed author or "Unknown".
func (a ArticleRecord) FirstAuthor() string {
	if len(a.Authors) == 0 || strings.TrimSpace(a.Authors[0]) == "" {
		return "Unknown"
	}
	return a.Authors[0]
}

// Clone returns a deep copy so callers can annotate without aliasing the
// original slices and pointers.
func (a ArticleRecord) Clone() ArticleRecord {
	c := a
	if a.Authors != nil {
		c.Authors = append([]string(nil), a.Authors...)
	}
	if a.Year != nil {
		y := *a.Year
		c.Year = &y
	}
	if a.CitationCount != nil {
		n := *a.CitationCount
		c.CitationCount = &n
	}
	if a.RelevanceScore != nil {
		s := *a.RelevanceScore
		c.RelevanceScore = &s
	}
	return c
}

// CloneArticles deep-copies a slice of records. A nil input yields nil.
func CloneArticles(in []ArticleRecord) []ArticleRecord {
	if in == nil {
		return nil
	}
	out := make([]ArticleRecord, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}

// NormalizeTitle lowercases the title, strips punctuation, and collapses
// whitespace.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }
