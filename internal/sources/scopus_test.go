// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litsearch/pkg/types"
)

const scopusJSON = `{"search-results": {"opensearch:totalResults": "2", "entry": [
  {
    "dc:identifier": "SCOPUS_ID:8500",
    "dc:title": "Deep learning for bridges",
    "dc:creator": "Nguyen A.",
    "dc:description": "We study bridges.",
    "prism:publicationName": "Engineering Structures",
    "prism:coverDate": "2022-03-01",
    "prism:doi": "10.1016/j.eng.1",
    "citedby-count": "14",
    "author": [{"authname": "Nguyen A."}, {"authname": "Tran B."}],
    "link": [{"@ref": "self", "@href": "https://api.elsevier.com/x"}, {"@ref": "scopus", "@href": "https://www.scopus.com/inward/record.uri?eid=1"}]
  },
  {
    "dc:identifier": "SCOPUS_ID:8501",
    "dc:title": "Second",
    "dc:creator": "Le C.",
    "prism:coverDate": "2019-01-01",
    "citedby-count": "N/A"
  }
]}}`

func TestScopusSearch(t *testing.T) {
	var got *http.Request
	ts := serve(t, &scopusSearchBase, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(scopusJSON))
	})

	s := &Scopus{Client: testClient(ts), APIKey: "els"}
	records, err := s.Search(context.Background(), `TITLE-ABS-KEY("bridge")`, 50, types.YearRange{Start: 2018, End: 2023})
	require.NoError(t, err)
	require.Len(t, records, 2)

	q := got.URL.Query()
	assert.Equal(t, `TITLE-ABS-KEY("bridge") AND PUBYEAR > 2017 AND PUBYEAR < 2024`, q.Get("query"))
	assert.Equal(t, "25", q.Get("count"), "count is capped")
	assert.Equal(t, "COMPLETE", q.Get("view"))
	assert.Equal(t, "els", got.Header.Get("X-ELS-APIKey"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))

	r := records[0]
	assert.Equal(t, "Deep learning for bridges", r.Title)
	assert.Equal(t, []string{"Nguyen A.", "Tran B."}, r.Authors)
	assert.Equal(t, "Engineering Structures", r.Journal)
	require.NotNil(t, r.Year)
	assert.Equal(t, 2022, *r.Year)
	assert.Equal(t, "10.1016/j.eng.1", r.DOI)
	assert.Equal(t, "We study bridges.", r.Abstract)
	require.NotNil(t, r.CitationCount)
	assert.Equal(t, 14, *r.CitationCount)
	assert.Equal(t, "https://www.scopus.com/inward/record.uri?eid=1", r.Link)
	assert.Equal(t, types.SourceScopus, r.Source)

	second := records[1]
	assert.Equal(t, []string{"Le C."}, second.Authors, "falls back to dc:creator")
	assert.Nil(t, second.CitationCount)
	assert.Contains(t, second.Link, "8501")
}

func TestScopusEmptyResultEntry(t *testing.T) {
	ts := serve(t, &scopusSearchBase, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"search-results":{"entry":[{"@_fa":"true","error":"Result set was empty"}]}}`))
	})

	records, err := (&Scopus{Client: testClient(ts), APIKey: "k"}).Search(context.Background(), "q", 10, types.YearRange{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestScopusRequiresKey(t *testing.T) {
	_, err := (&Scopus{}).Search(context.Background(), "q", 10, types.YearRange{})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestScopusUnauthorized(t *testing.T) {
	ts := serve(t, &scopusSearchBase, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := (&Scopus{Client: testClient(ts), APIKey: "bad"}).Search(context.Background(), "q", 10, types.YearRange{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestScopusQuery(t *testing.T) {
	assert.Equal(t, "q", scopusQuery("q", types.YearRange{}))
	assert.Equal(t, "q AND PUBYEAR > 2019", scopusQuery("q", types.YearRange{Start: 2020}))
	assert.Equal(t, "q AND PUBYEAR < 2011", scopusQuery("q", types.YearRange{End: 2010}))
}
