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

func TestOpenAlexSearch(t *testing.T) {
	var got *http.Request
	ts := serve(t, &openAlexSearchBase, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(`{"meta": {"count": 1}, "results": [{
		  "id": "https://openalex.org/W1",
		  "title": "Graph neural networks",
		  "doi": "https://doi.org/10.1/gnn",
		  "publication_year": 2021,
		  "cited_by_count": 42,
		  "abstract_inverted_index": {"Graphs": [0], "are": [1], "everywhere": [2]},
		  "authorships": [{"author": {"display_name": "Ada Lovelace"}}, {"author": {"display_name": ""}}],
		  "primary_location": {"landing_page_url": "https://example.org/gnn", "source": {"display_name": "JMLR"}},
		  "ids": {"openalex": "https://openalex.org/W1", "pmid": "https://pubmed.ncbi.nlm.nih.gov/999"}
		}]}`))
	})

	o := &OpenAlex{Client: testClient(ts), Email: "me@example.org"}
	records, err := o.Search(context.Background(), "graph neural networks", 20, types.YearRange{Start: 2019, End: 2022})
	require.NoError(t, err)
	require.Len(t, records, 1)

	q := got.URL.Query()
	assert.Equal(t, "graph neural networks", q.Get("search"))
	assert.Equal(t, "20", q.Get("per_page"))
	assert.Equal(t, "from_publication_date:2019-01-01,to_publication_date:2022-12-31", q.Get("filter"))
	assert.Equal(t, "me@example.org", q.Get("mailto"))

	r := records[0]
	assert.Equal(t, "Graph neural networks", r.Title)
	assert.Equal(t, []string{"Ada Lovelace"}, r.Authors)
	assert.Equal(t, "10.1/gnn", r.DOI)
	assert.Equal(t, "999", r.PMID)
	assert.Equal(t, "Graphs are everywhere", r.Abstract)
	assert.Equal(t, "JMLR", r.Journal)
	assert.Equal(t, "https://example.org/gnn", r.Link)
	require.NotNil(t, r.Year)
	assert.Equal(t, 2021, *r.Year)
	require.NotNil(t, r.CitationCount)
	assert.Equal(t, 42, *r.CitationCount)
	assert.Equal(t, types.SourceOpenAlex, r.Source)
}

func TestOpenAlexNoFilterWithoutYears(t *testing.T) {
	var got *http.Request
	ts := serve(t, &openAlexSearchBase, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(`{"results":[{"id":"https://openalex.org/W2","title":"Bare"}]}`))
	})

	records, err := (&OpenAlex{Client: testClient(ts)}).Search(context.Background(), "q", 10, types.YearRange{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, got.URL.Query().Get("filter"))
	assert.Empty(t, got.URL.Query().Get("mailto"))
	assert.Equal(t, "https://openalex.org/W2", records[0].Link)
	assert.Empty(t, records[0].Journal)
}

func TestReconstructAbstract(t *testing.T) {
	tests := []struct {
		name  string
		index map[string][]int
		want  string
	}{
		{"nil map", nil, ""},
		{"single word", map[string][]int{"hello": {0}}, "hello"},
		{"repeated word", map[string][]int{"the": {0, 3}, "cat": {1}, "saw": {2}, "dog": {4}}, "the cat saw the dog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reconstructAbstract(tt.index))
		})
	}
}
