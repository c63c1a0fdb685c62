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

func TestSemanticScholarSearch(t *testing.T) {
	var got *http.Request
	ts := serve(t, &semanticAPIBase, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(`{"total": 2, "offset": 0, "data": [
		  {"paperId": "abc", "title": "Attention Is All You Need", "venue": "NeurIPS", "year": 2017,
		   "abstract": "Transformers.", "url": "https://www.semanticscholar.org/paper/abc",
		   "citationCount": 90000, "authors": [{"authorId": "1", "name": "Ashish Vaswani"}],
		   "externalIds": {"DOI": "10.5555/3295222", "PubMed": "", "CorpusId": 13756489}},
		  {"paperId": "def", "title": "No venue", "year": null, "abstract": null, "authors": [], "externalIds": {}}
		]}`))
	})

	s := &SemanticScholar{Client: testClient(ts), APIKey: "s2"}
	records, err := s.Search(context.Background(), " attention ", 500, types.YearRange{Start: 2015, End: 2020})
	require.NoError(t, err)
	require.Len(t, records, 2)

	q := got.URL.Query()
	assert.Equal(t, "attention", q.Get("query"))
	assert.Equal(t, "100", q.Get("limit"))
	assert.Equal(t, "2015-2020", q.Get("year"))
	assert.Equal(t, semanticFields, q.Get("fields"))
	assert.Equal(t, "s2", got.Header.Get("x-api-key"))

	r := records[0]
	assert.Equal(t, "Attention Is All You Need", r.Title)
	assert.Equal(t, []string{"Ashish Vaswani"}, r.Authors)
	assert.Equal(t, "NeurIPS", r.Journal)
	require.NotNil(t, r.Year)
	assert.Equal(t, 2017, *r.Year)
	assert.Equal(t, "10.5555/3295222", r.DOI)
	require.NotNil(t, r.CitationCount)
	assert.Equal(t, 90000, *r.CitationCount)
	assert.Equal(t, types.SourceSemanticScholar, r.Source)

	bare := records[1]
	assert.Nil(t, bare.Year)
	assert.Nil(t, bare.CitationCount)
	assert.Equal(t, "https://www.semanticscholar.org/paper/def", bare.Link)
}

func TestSemanticScholarWithoutKey(t *testing.T) {
	var hasKey bool
	ts := serve(t, &semanticAPIBase, func(w http.ResponseWriter, r *http.Request) {
		_, hasKey = r.Header["X-Api-Key"]
		w.Write([]byte(`{"total":0,"data":[]}`))
	})

	records, err := (&SemanticScholar{Client: testClient(ts)}).Search(context.Background(), "q", 10, types.YearRange{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.False(t, hasKey)
}

func TestSemanticScholarEmptyQuery(t *testing.T) {
	_, err := (&SemanticScholar{}).Search(context.Background(), "  ", 10, types.YearRange{})
	assert.Error(t, err)
}

func TestSemanticYears(t *testing.T) {
	tests := []struct {
		years types.YearRange
		want  string
	}{
		{types.YearRange{}, ""},
		{types.YearRange{Start: 2020, End: 2023}, "2020-2023"},
		{types.YearRange{Start: 2020}, "2020-"},
		{types.YearRange{End: 2023}, "-2023"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, semanticYears(tt.years))
	}
}
