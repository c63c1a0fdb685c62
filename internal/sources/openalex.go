// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/litsearch/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

const openAlexMaxResults = 200

// OpenAlex queries the OpenAlex works index.
type OpenAlex struct {
	Client Client
	// Email is sent as mailto parameter for polite pool access.
	Email string
}

// Name implements fetch.Adapter.
func (o *OpenAlex) Name() string { return types.SourceOpenAlex }

// Search implements fetch.Adapter.
func (o *OpenAlex) Search(ctx context.Context, query string, maxResults int, years types.YearRange) ([]types.ArticleRecord, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}

	params := url.Values{
		"search":   {q},
		"per_page": {strconv.Itoa(limit(maxResults, openAlexMaxResults))},
		"page":     {"1"},
	}
	var filters []string
	if years.Start > 0 {
		filters = append(filters, fmt.Sprintf("from_publication_date:%04d-01-01", years.Start))
	}
	if years.End > 0 {
		filters = append(filters, fmt.Sprintf("to_publication_date:%04d-12-31", years.End))
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}
	if o.Email != "" {
		params.Set("mailto", o.Email)
	}

	body, err := o.Client.get(ctx, "openalex", openAlexSearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var oar openAlexResponse
	if err := json.Unmarshal(body, &oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	records := make([]types.ArticleRecord, 0, len(oar.Results))
	for _, w := range oar.Results {
		records = append(records, w.record())
	}
	return records, nil
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The index maps each word to the positions it occupies.
func reconstructAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range index {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

type openAlexResponse struct {
	Meta struct {
		Count int `json:"count"`
	} `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string           `json:"id"`
	Title                 string           `json:"title"`
	DOI                   string           `json:"doi"`
	PublicationYear       int              `json:"publication_year"`
	CitedByCount          *int             `json:"cited_by_count"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
	Authorships           []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
	PrimaryLocation *struct {
		LandingPageURL string `json:"landing_page_url"`
		Source         *struct {
			DisplayName string `json:"display_name"`
		} `json:"source"`
	} `json:"primary_location"`
	IDs struct {
		PMID string `json:"pmid"`
	} `json:"ids"`
}

func (w openAlexWork) record() types.ArticleRecord {
	r := types.ArticleRecord{
		Title:         clean(w.Title),
		Authors:       []string{},
		DOI:           strings.TrimPrefix(w.DOI, "https://doi.org/"),
		PMID:          strings.TrimPrefix(w.IDs.PMID, "https://pubmed.ncbi.nlm.nih.gov/"),
		Abstract:      clean(reconstructAbstract(w.AbstractInvertedIndex)),
		CitationCount: w.CitedByCount,
		Link:          w.ID,
		Source:        types.SourceOpenAlex,
	}
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			r.Authors = append(r.Authors, a.Author.DisplayName)
		}
	}
	if w.PublicationYear > 0 {
		r.Year = intPtr(w.PublicationYear)
	}
	if loc := w.PrimaryLocation; loc != nil {
		if loc.Source != nil {
			r.Journal = clean(loc.Source.DisplayName)
		}
		if loc.LandingPageURL != "" {
			r.Link = loc.LandingPageURL
		}
	}
	return r
}
