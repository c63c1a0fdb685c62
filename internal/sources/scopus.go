// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/litsearch/pkg/types"
)

// scopusSearchBase is the Elsevier Scopus Search API endpoint. Tests
// override it.
var scopusSearchBase = "https://api.elsevier.com/content/search/scopus"

const scopusMaxResults = 25

// ErrNoAPIKey is returned by adapters that cannot run without credentials.
var ErrNoAPIKey = errors.New("no API key configured")

// Scopus searches Elsevier Scopus. It requires an API key.
type Scopus struct {
	Client Client
	APIKey string
}

// Name implements fetch.Adapter.
func (s *Scopus) Name() string { return types.SourceScopus }

// Search implements fetch.Adapter.
func (s *Scopus) Search(ctx context.Context, query string, maxResults int, years types.YearRange) ([]types.ArticleRecord, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("scopus: %w", ErrNoAPIKey)
	}

	params := url.Values{
		"query": {scopusQuery(query, years)},
		"count": {strconv.Itoa(limit(maxResults, scopusMaxResults))},
		"view":  {"COMPLETE"},
	}
	body, err := s.Client.get(ctx, "scopus", scopusSearchBase+"?"+params.Encode(), map[string]string{
		"X-ELS-APIKey": s.APIKey,
		"Accept":       "application/json",
	})
	if err != nil {
		return nil, err
	}

	var r scopusResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("parsing scopus response: %w", err)
	}

	records := make([]types.ArticleRecord, 0, len(r.Results.Entries))
	for _, e := range r.Results.Entries {
		// An empty result set comes back as a single entry with an error field.
		if e.Error != "" {
			continue
		}
		records = append(records, e.record())
	}
	return records, nil
}

// scopusQuery appends PUBYEAR bounds to query.
func scopusQuery(query string, years types.YearRange) string {
	if years.Start > 0 {
		query += fmt.Sprintf(" AND PUBYEAR > %d", years.Start-1)
	}
	if years.End > 0 {
		query += fmt.Sprintf(" AND PUBYEAR < %d", years.End+1)
	}
	return query
}

type scopusResponse struct {
	Results struct {
		Entries []scopusEntry `json:"entry"`
	} `json:"search-results"`
}

type scopusEntry struct {
	Error       string `json:"error"`
	Title       string `json:"dc:title"`
	Creator     string `json:"dc:creator"`
	Identifier  string `json:"dc:identifier"`
	Description string `json:"dc:description"`
	Publication string `json:"prism:publicationName"`
	CoverDate   string `json:"prism:coverDate"`
	DOI         string `json:"prism:doi"`
	PubMedID    string `json:"pubmed-id"`
	CitedBy     string `json:"citedby-count"`
	Authors     []struct {
		Name string `json:"authname"`
	} `json:"author"`
	Links []struct {
		Ref  string `json:"@ref"`
		Href string `json:"@href"`
	} `json:"link"`
}

func (e scopusEntry) record() types.ArticleRecord {
	r := types.ArticleRecord{
		Title:    clean(e.Title),
		Authors:  []string{},
		Journal:  clean(e.Publication),
		Year:     yearOf(e.CoverDate),
		DOI:      clean(e.DOI),
		PMID:     clean(e.PubMedID),
		Abstract: clean(e.Description),
		Source:   types.SourceScopus,
	}
	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			r.Authors = append(r.Authors, name)
		}
	}
	if len(r.Authors) == 0 {
		if c := clean(e.Creator); c != "" {
			r.Authors = append(r.Authors, c)
		}
	}
	if n, err := strconv.Atoi(strings.TrimSpace(e.CitedBy)); err == nil {
		r.CitationCount = intPtr(n)
	}
	for _, l := range e.Links {
		if l.Ref == "scopus" {
			r.Link = l.Href
			break
		}
	}
	if r.Link == "" {
		if id := strings.TrimPrefix(e.Identifier, "SCOPUS_ID:"); id != "" {
			r.Link = "https://www.scopus.com/record/display.uri?eid=2-s2.0-" + id
		}
	}
	return r
}
