// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oracle

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/litsearch/pkg/types"
)

var promptFuncs = template.FuncMap{
	"join": strings.Join,
	"truncate": func(n int, s string) string {
		r := []rune(s)
		if len(r) <= n {
			return s
		}
		return string(r[:n]) + "..."
	},
	"inc": func(i int) int { return i + 1 },
	"year": func(y *int) string {
		if y == nil {
			return "N/A"
		}
		return fmt.Sprint(*y)
	},
	"authors": func(a []string) string {
		switch {
		case len(a) == 0:
			return "Unknown"
		case len(a) > 2:
			return a[0] + " et al."
		default:
			return strings.Join(a, ", ")
		}
	},
	"orNA": func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "N/A"
		}
		return s
	},
}

func mustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(promptFuncs).Parse(text))
}

var analyzeTmpl = mustParse("analyze", `Analyze the following academic search request and return JSON.

Query: "{{.Query}}"

Determine:
1. topic: main subject (medical, engineering, computer_science, social_science, biology, physics, other)
2. intent: search purpose (review, clinical_trial, case_study, meta_analysis, general_research)
3. language: language of the query (vi, en, mixed)
4. complexity: simple, medium, or complex
5. keywords: the 3-7 most important search terms
6. mesh_terms: MeSH terms if the topic is medical, otherwise []

Return exactly this JSON shape with no markdown:
{"topic": "medical", "intent": "review", "language": "en", "complexity": "medium", "keywords": ["keyword1", "keyword2"], "mesh_terms": ["MeSH term1"]}
`)

var planTmpl = mustParse("plan", `Propose the best search strategy for this query.

Query analysis:
- Topic: {{.Analysis.Topic}}
- Intent: {{.Analysis.Intent}}
- Language: {{.Analysis.Language}}
- Keywords: {{join .Analysis.Keywords ", "}}

User preferences:
- Max results: {{.Prefs.RequestedMax}}
- Year range: {{if .Prefs.YearStart}}{{.Prefs.YearStart}}{{else}}any{{end}}-{{if .Prefs.YearEnd}}{{.Prefs.YearEnd}}{{else}}now{{end}}
- Preferred sources: {{if .Prefs.Sources}}{{join .Prefs.Sources ", "}}{{else}}auto-select{{end}}

Available sources: PubMed, Scopus, Semantic Scholar, OpenAlex.

Rules:
1. topic "medical" prioritizes PubMed
2. topic "engineering" or "computer_science" prioritizes Scopus
3. language "vi" must include Semantic Scholar
4. intent "review" or "meta_analysis" uses several sources and recent years
5. sources chosen by the user are always respected

Return JSON with no markdown:
{"sources": ["PubMed", "Scopus"], "source_priority": "PubMed > Scopus", "filters": {"year_range": [2020, 2025], "max_results_per_source": 15}, "reason": "short explanation"}
`)

var optimizeTmpls = map[string]*template.Template{
	types.SourcePubMed: mustParse("optimize-pubmed", `Write an optimized PubMed query.
- Original query: "{{.Query}}"
- Keywords: {{join .Analysis.Keywords ", "}}
- MeSH terms: {{if .Analysis.MeshTerms}}{{join .Analysis.MeshTerms ", "}}{{else}}N/A{{end}}

Requirements:
- Use Boolean operators (AND, OR, NOT)
- Tag MeSH terms as [MeSH] when available
- Shape: term1[MeSH] AND (term2 OR term3)
- Short and precise

Return ONLY the query string, no explanation and no JSON.
`),
	types.SourceScopus: mustParse("optimize-scopus", `Write an optimized Scopus query.
- Original query: "{{.Query}}"
- Keywords: {{join .Analysis.Keywords ", "}}

Requirements:
- Use Scopus syntax: TITLE-ABS-KEY()
- Boolean operators: AND, OR, AND NOT
- Shape: TITLE-ABS-KEY("keyword1" AND "keyword2")

Return ONLY the query string, no explanation and no JSON.
`),
	"natural": mustParse("optimize-natural", `{{if eq .Analysis.Language "vi"}}Improve this Vietnamese query for an academic search engine:
"{{.Query}}"

Requirements:
- Keep it in Vietnamese
- Short and natural language
{{else}}Write an academic search engine query.
- Original: "{{.Query}}"
- Keywords: {{join .Analysis.Keywords ", "}}

Requirements:
- Short natural language, in English
- No complex Boolean operators
{{end}}
Return ONLY the query string, no explanation.
`),
}

var scoreTmpl = mustParse("score", `You are an expert reviewer of academic literature.

TASK: Evaluate how relevant this paper is to the user's query.

USER QUERY: "{{.Query}}"
{{- if .Analysis.Topic}}
Research Topic: {{.Analysis.Topic}}{{end}}
{{- if .Analysis.Intent}}
User Intent: {{.Analysis.Intent}}{{end}}

PAPER DETAILS:
- Title: {{orNA .Article.Title}}
{{- if .Article.Abstract}}
- Abstract: {{truncate 500 .Article.Abstract}}
{{- else}}
- Abstract: NOT AVAILABLE (evaluate based on title only)
{{- end}}
- Journal: {{orNA .Article.Journal}}
- Year: {{year .Article.Year}}
{{if not .Article.Abstract}}
NOTE: The abstract is missing, so score from the title and apply more lenient criteria.
{{end}}
EVALUATION CRITERIA (score 1-10):
1. Direct relevance (0-4 points): does the paper address the query topic?
2. Methodological appropriateness (0-3 points): are the methods suitable for the query?
3. Quality and impact (0-3 points): recency and venue quality.

SCORING GUIDELINES:
- 8-10: highly relevant, directly addresses the query
- 6-7: moderately relevant
- 4-5: somewhat relevant, tangential
- 1-3: low relevance or off-topic

DECISION RULE: keep papers with score >= 7, discard the rest.

OUTPUT FORMAT (valid JSON only):
{"relevance_score": <integer 1-10>, "keep": <true or false>, "reasoning": "<1-2 sentence explanation>", "key_finding": "<1 sentence summary, or N/A>"}
`)

var adviseTmpl = mustParse("advise", `The search results were not good enough. Improve the strategy.

Reason: {{.Req.Reason}}
Kept {{.Req.Kept}} of the {{.Req.Requested}} requested articles.

Original query: "{{.Req.UserQuery}}"
Keywords: {{join .Req.Analysis.Keywords ", "}}

Current strategy:
- Sources: {{join .Req.Strategy.Sources ", "}}
{{- range $src, $q := .Req.Strategy.OptimizedQueries}}
- Query for {{$src}}: {{$q}}{{end}}
- Year range: {{.Req.Strategy.Filters.YearStart}}-{{.Req.Strategy.Filters.YearEnd}}
- Max results per source: {{.Req.Strategy.Filters.MaxPerSource}}

Suggest:
1. new_queries: new queries per source (broaden keywords, add synonyms)
2. adjust_filters: if there were no results, widen the year range and raise max results; if quality was poor, narrow the query

Return JSON with no markdown:
{"new_queries": {"pubmed": "improved query", "scopus": "improved query", "semantic_scholar": "improved query"}, "adjust_filters": {"year_range": [2015, 2025], "max_results_per_source": 20}, "explanation": "short explanation"}
`)

var synthesizeTmpl = mustParse("synthesize", `You are an expert research synthesizer writing an academic literature review.

TASK: Write a literature review summary based on the following {{len .Papers}} research papers.

USER QUERY: "{{.Query}}"
{{- if .Analysis.Topic}}
Research Domain: {{.Analysis.Topic}}{{end}}

RESEARCH PAPERS:
{{range $i, $p := .Papers}}
[{{inc $i}}] {{authors $p.Authors}} ({{year $p.Year}}): {{$p.Title}}
{{- if $p.Abstract}}
    Summary: {{truncate 400 $p.Abstract}}{{end}}
{{end}}
INSTRUCTIONS:
1. Answer the query directly; this is the primary goal
2. Summarize the main findings across the papers
3. Note common research approaches
4. Highlight agreements and disagreements between studies
5. Identify research gaps
6. Cite papers as [1], [2], and so on

FORMAT: markdown, 300-500 words, professional and accessible, starting with a direct answer.

STRUCTURE:
### Key Findings
### Research Trends
### Notable Results
### Knowledge Gaps
`)

// render executes a prompt template.
func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}
