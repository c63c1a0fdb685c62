// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources implements the bibliographic database adapters: PubMed,
// Scopus, Semantic Scholar, and OpenAlex. Each adapter runs one query and
// maps the response into types.ArticleRecord values.
package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pdiddy/litsearch/internal/fetch"
	"github.com/pdiddy/litsearch/internal/httputil"
	"github.com/pdiddy/litsearch/pkg/types"
)

// Secret file names read by New.
const (
	KeyPubMed          = "ncbi-api-key"
	KeyScopus          = "scopus-api-key"
	KeySemanticScholar = "semantic-scholar-api-key"
	KeyOpenAlexEmail   = "openalex-email"
)

// maxBody bounds how much of a response we read.
const maxBody = 32 << 20

// Client carries the HTTP settings shared by every adapter.
type Client struct {
	HTTP       *http.Client
	UserAgent  string
	MaxRetries int
}

// NewClient builds a Client from the HTTP configuration.
func NewClient(cfg types.HTTPConfig) Client {
	return Client{
		HTTP:      &http.Client{Timeout: cfg.Timeout},
		UserAgent: cfg.UserAgent,
	}
}

// get performs a GET with retry on throttling and returns the body of a
// 200 response. Any other status is an error carrying a body excerpt.
func (c Client) get(ctx context.Context, source, rawURL string, header map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", source, err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, c.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", source, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", source, err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, fmt.Errorf("%s returned HTTP %d: %s", source, resp.StatusCode, snippet)
	}
	return body, nil
}

// New returns one adapter per known source. keys holds optional API
// credentials by secret file name.
func New(c Client, keys map[string]string) []fetch.Adapter {
	return []fetch.Adapter{
		&PubMed{Client: c, APIKey: keys[KeyPubMed]},
		&Scopus{Client: c, APIKey: keys[KeyScopus]},
		&SemanticScholar{Client: c, APIKey: keys[KeySemanticScholar]},
		&OpenAlex{Client: c, Email: keys[KeyOpenAlexEmail]},
	}
}

// clean trims s and maps placeholder values to empty.
func clean(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "n/a") {
		return ""
	}
	return s
}

// yearOf parses the leading four digits of s as a year.
func yearOf(s string) *int {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return nil
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil || y <= 0 {
		return nil
	}
	return &y
}

func intPtr(n int) *int { return &n }

// limit clamps n into [1, ceiling].
func limit(n, ceiling int) int {
	return max(1, min(n, ceiling))
}
