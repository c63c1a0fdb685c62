// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/litsearch/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const (
	semanticFields     = "paperId,title,authors,venue,year,abstract,externalIds,url,citationCount"
	semanticMaxResults = 100
)

// SemanticScholar queries the Semantic Scholar Graph API. The API key is
// optional; without one requests share the public rate limit.
type SemanticScholar struct {
	Client Client
	APIKey string
}

// Name implements fetch.Adapter.
func (s *SemanticScholar) Name() string { return types.SourceSemanticScholar }

// Search implements fetch.Adapter.
func (s *SemanticScholar) Search(ctx context.Context, query string, maxResults int, years types.YearRange) ([]types.ArticleRecord, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}

	params := url.Values{
		"query":  {q},
		"limit":  {strconv.Itoa(limit(maxResults, semanticMaxResults))},
		"fields": {semanticFields},
	}
	if yr := semanticYears(years); yr != "" {
		params.Set("year", yr)
	}

	var header map[string]string
	if s.APIKey != "" {
		header = map[string]string{"x-api-key": s.APIKey}
	}
	body, err := s.Client.get(ctx, "semantic scholar", semanticAPIBase+"?"+params.Encode(), header)
	if err != nil {
		return nil, err
	}

	var sr semanticResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	records := make([]types.ArticleRecord, 0, len(sr.Data))
	for _, p := range sr.Data {
		records = append(records, p.record())
	}
	return records, nil
}

// semanticYears returns a year filter such as "2020-2023", "2020-" or "-2023".
func semanticYears(y types.YearRange) string {
	switch {
	case y.Start > 0 && y.End > 0:
		return fmt.Sprintf("%d-%d", y.Start, y.End)
	case y.Start > 0:
		return fmt.Sprintf("%d-", y.Start)
	case y.End > 0:
		return fmt.Sprintf("-%d", y.End)
	}
	return ""
}

type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string `json:"paperId"`
	Title         string `json:"title"`
	Abstract      string `json:"abstract"`
	Venue         string `json:"venue"`
	Year          int    `json:"year"`
	URL           string `json:"url"`
	CitationCount *int   `json:"citationCount"`
	Authors       []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ExternalIDs struct {
		DOI    string `json:"DOI"`
		PubMed string `json:"PubMed"`
	} `json:"externalIds"`
}

func (p semanticPaper) record() types.ArticleRecord {
	r := types.ArticleRecord{
		Title:         clean(p.Title),
		Authors:       []string{},
		Journal:       clean(p.Venue),
		DOI:           clean(p.ExternalIDs.DOI),
		PMID:          clean(p.ExternalIDs.PubMed),
		Abstract:      clean(p.Abstract),
		Link:          p.URL,
		CitationCount: p.CitationCount,
		Source:        types.SourceSemanticScholar,
	}
	for _, a := range p.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			r.Authors = append(r.Authors, name)
		}
	}
	if p.Year > 0 {
		r.Year = intPtr(p.Year)
	}
	if r.Link == "" && p.PaperID != "" {
		r.Link = "https://www.semanticscholar.org/paper/" + p.PaperID
	}
	return r
}
