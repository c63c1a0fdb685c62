// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litsearch/internal/httputil"
	"github.com/pdiddy/litsearch/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

// serve points *base at a test server running h for the duration of the test.
func serve(t *testing.T, base *string, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := *base
	*base = ts.URL
	t.Cleanup(func() {
		*base = old
		ts.Close()
	})
	return ts
}

func testClient(ts *httptest.Server) Client {
	return Client{HTTP: ts.Client(), UserAgent: "litsearch-test/1.0", MaxRetries: 1}
}

func TestNewBuildsEveryAdapter(t *testing.T) {
	adapters := New(NewClient(types.DefaultConfig().HTTP), map[string]string{
		KeyScopus:        "sc",
		KeyOpenAlexEmail: "me@example.org",
	})

	names := make([]string, 0, len(adapters))
	for _, a := range adapters {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{
		types.SourcePubMed, types.SourceScopus, types.SourceSemanticScholar, types.SourceOpenAlex,
	}, names)
	assert.Equal(t, "sc", adapters[1].(*Scopus).APIKey)
	assert.Equal(t, "me@example.org", adapters[3].(*OpenAlex).Email)
	assert.Empty(t, adapters[0].(*PubMed).APIKey)
}

func TestGetReportsHTTPErrors(t *testing.T) {
	var base string
	ts := serve(t, &base, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"bad query"}`))
	})

	_, err := testClient(ts).get(context.Background(), "demo", base, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "demo returned HTTP 400")
	assert.Contains(t, err.Error(), "bad query")
}

func TestGetSendsHeaders(t *testing.T) {
	var got http.Header
	var base string
	ts := serve(t, &base, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte("ok"))
	})

	body, err := testClient(ts).get(context.Background(), "demo", base, map[string]string{"X-Key": "k"})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, "litsearch-test/1.0", got.Get("User-Agent"))
	assert.Equal(t, "k", got.Get("X-Key"))
}

func TestGetRetriesThrottling(t *testing.T) {
	calls := 0
	var base string
	ts := serve(t, &base, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	})

	_, err := testClient(ts).get(context.Background(), "demo", base, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "", clean("  N/A "))
	assert.Equal(t, "x", clean(" x "))

	require.NotNil(t, yearOf("2019 Jan-Feb"))
	assert.Equal(t, 2019, *yearOf("2019-05-01"))
	assert.Nil(t, yearOf("19"))
	assert.Nil(t, yearOf("Spring"))

	assert.Equal(t, 1, limit(0, 10))
	assert.Equal(t, 10, limit(50, 10))
	assert.Equal(t, 7, limit(7, 10))
}
