// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesis turns the kept article set into the run's summary text.
// Below three articles no synthesizer is called; above that the synthesizer
// is tried and a templated listing replaces it on failure.
package synthesis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"text/template"
	"time"

	"github.com/pdiddy/litsearch/internal/filter"
	"github.com/pdiddy/litsearch/pkg/types"
)

const (
	// MinForSynthesis is the smallest kept set handed to the synthesizer.
	MinForSynthesis = 3

	// FallbackListing is the number of articles listed when the synthesizer fails.
	FallbackListing = 5
)

// Synthesizer writes a literature review of the kept articles.
type Synthesizer interface {
	Summarize(ctx context.Context, userQuery string, kept []types.ArticleRecord, analysis types.QueryAnalysis) (string, error)
}

// Output is the gate's result.
type Output struct {
	Text string
	Meta types.SynthesisMetadata
}

// Gate routes the kept set to the right synthesis branch.
type Gate struct {
	Synthesizer Synthesizer
	Logger      *slog.Logger

	// Threshold is the keep score quoted in the no-results text. Zero uses
	// filter.DefaultThreshold.
	Threshold float64

	// Now defaults to time.Now.
	Now func() time.Time
}

var noResultsTmpl = template.Must(template.New("no-results").Funcs(funcs).Parse(`### No High-Quality Papers Found

No papers met the relevance threshold (score >= {{printf "%g" .}}/10) for this query.

**Suggestions:**
- Broaden the search terms
- Expand the year range
- Try related or alternative keywords
- Check whether the topic is too narrow

The search completed, but adjusting the query is recommended.
`))

var limitedTmpl = template.Must(template.New("limited").Funcs(funcs).Parse(`### Limited Results Found

Only {{len .}} high-quality paper(s) met the relevance criteria for this query.

**Papers:**
{{range $i, $a := .}}
{{inc $i}}. {{$a.FirstAuthor}} ({{year $a}}): {{title $a}}
{{- if $a.KeyFinding}}
   - {{$a.KeyFinding}}
{{- end}}
{{end}}
**For more comprehensive results:**
- Broaden the search terms
- Expand the date range
- Adjust query specificity
`))

var fallbackTmpl = template.Must(template.New("fallback").Funcs(funcs).Parse(`### Literature Review Summary

**Query:** "{{.Query}}"

**Papers Analyzed:** {{len .Kept}}

The synthesis could not be generated. {{len .Kept}} relevant papers were found for this query.

**Key Papers:**
{{range $i, $a := .Top}}
{{inc $i}}. {{title $a}} ({{year $a}}) - Relevance: {{score $a}}/10
{{end}}
{{- if gt .More 0}}
... and {{.More}} more papers.
{{end}}
Review the individual papers for details.
`))

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"year": func(a types.ArticleRecord) string {
		if a.Year == nil {
			return "n.d."
		}
		return fmt.Sprint(*a.Year)
	},
	"title": func(a types.ArticleRecord) string {
		if a.Title == "" {
			return "Untitled"
		}
		return a.Title
	},
	"score": func(a types.ArticleRecord) string {
		if a.RelevanceScore == nil {
			return "N/A"
		}
		return fmt.Sprintf("%.1f", *a.RelevanceScore)
	},
}

// Run produces the synthesis for the kept set. It never fails.
func (g *Gate) Run(ctx context.Context, userQuery string, kept []types.ArticleRecord, analysis types.QueryAnalysis) Output {
	logger := g.logger()
	meta := types.SynthesisMetadata{
		PapersCount: len(kept),
		AverageYear: AverageYear(kept),
		GeneratedAt: g.now(),
	}

	switch {
	case len(kept) == 0:
		meta.Status = types.SynthesisNoPapers
		return Output{Text: render(noResultsTmpl, g.threshold()), Meta: meta}

	case len(kept) < MinForSynthesis:
		meta.Status = types.SynthesisLimitedData
		return Output{Text: render(limitedTmpl, kept), Meta: meta}
	}

	if g.Synthesizer != nil {
		text, err := g.Synthesizer.Summarize(ctx, userQuery, kept, analysis)
		if err == nil && text != "" {
			meta.Status = types.SynthesisSuccess
			return Output{Text: text, Meta: meta}
		}
		if err == nil {
			err = fmt.Errorf("synthesizer returned empty text")
		}
		logger.Warn("synthesis failed, using fallback listing", "error", err, "papers", len(kept))
		meta.Error = err.Error()
	} else {
		meta.Error = "no synthesizer configured"
	}

	meta.Status = types.SynthesisFallback
	return Output{Text: Fallback(userQuery, kept), Meta: meta}
}

// Fallback renders the templated top-five listing used when the
// synthesizer is unavailable.
func Fallback(userQuery string, kept []types.ArticleRecord) string {
	top := kept
	if len(top) > FallbackListing {
		top = top[:FallbackListing]
	}
	return render(fallbackTmpl, struct {
		Query string
		Kept  []types.ArticleRecord
		Top   []types.ArticleRecord
		More  int
	}{userQuery, kept, top, len(kept) - len(top)})
}

// AverageYear returns the mean publication year of the articles that have
// one, rounded to one decimal, or nil when none do.
func AverageYear(articles []types.ArticleRecord) *float64 {
	var sum, n int
	for _, a := range articles {
		if a.Year != nil {
			sum += *a.Year
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := math.Round(float64(sum)/float64(n)*10) / 10
	return &avg
}

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		// Templates are fixed at init; an error here is a programming bug.
		panic(fmt.Sprintf("synthesis: rendering %s: %v", t.Name(), err))
	}
	return buf.String()
}

func (g *Gate) threshold() float64 {
	if g.Threshold > 0 {
		return g.Threshold
	}
	return filter.DefaultThreshold
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *Gate) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
