// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/litsearch/pkg/types"
)

// pubmedBase is the NCBI E-utilities root. Tests override it.
var pubmedBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

const pubmedMaxResults = 200

// PubMed searches NCBI PubMed in two steps: esearch returns PMIDs, efetch
// returns the article XML for them.
type PubMed struct {
	Client Client
	APIKey string
}

// Name implements fetch.Adapter.
func (p *PubMed) Name() string { return types.SourcePubMed }

// Search implements fetch.Adapter.
func (p *PubMed) Search(ctx context.Context, query string, maxResults int, years types.YearRange) ([]types.ArticleRecord, error) {
	ids, err := p.searchIDs(ctx, pubmedTerm(query, years), limit(maxResults, pubmedMaxResults))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []types.ArticleRecord{}, nil
	}
	return p.fetchArticles(ctx, ids)
}

// pubmedTerm appends a publication date clause to query.
func pubmedTerm(query string, years types.YearRange) string {
	switch {
	case years.Start > 0 && years.End > 0:
		return fmt.Sprintf("%s AND %d:%d[pdat]", query, years.Start, years.End)
	case years.Start > 0:
		return fmt.Sprintf("%s AND %d:3000[pdat]", query, years.Start)
	case years.End > 0:
		return fmt.Sprintf("%s AND 1800:%d[pdat]", query, years.End)
	}
	return query
}

type esearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

func (p *PubMed) searchIDs(ctx context.Context, term string, retmax int) ([]string, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {term},
		"retmax":  {strconv.Itoa(retmax)},
		"retmode": {"json"},
	}
	if p.APIKey != "" {
		params.Set("api_key", p.APIKey)
	}

	body, err := p.Client.get(ctx, "pubmed esearch", pubmedBase+"/esearch.fcgi?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var r esearchResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("parsing pubmed esearch response: %w", err)
	}
	return r.Result.IDList, nil
}

func (p *PubMed) fetchArticles(ctx context.Context, ids []string) ([]types.ArticleRecord, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"retmode": {"xml"},
	}
	if p.APIKey != "" {
		params.Set("api_key", p.APIKey)
	}

	body, err := p.Client.get(ctx, "pubmed efetch", pubmedBase+"/efetch.fcgi?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("parsing pubmed efetch response: %w", err)
	}

	records := make([]types.ArticleRecord, 0, len(set.Articles))
	for _, a := range set.Articles {
		records = append(records, a.record())
	}
	return records, nil
}

// PubMed efetch XML, reduced to the fields we read.
type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Journal struct {
				Title   string `xml:"Title"`
				PubDate struct {
					Year        string `xml:"Year"`
					MedlineDate string `xml:"MedlineDate"`
				} `xml:"JournalIssue>PubDate"`
			} `xml:"Journal"`
			Title    xmlText        `xml:"ArticleTitle"`
			Abstract []abstractText `xml:"Abstract>AbstractText"`
			Authors  []pubmedAuthor `xml:"AuthorList>Author"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
	IDs []struct {
		Type  string `xml:"IdType,attr"`
		Value string `xml:",chardata"`
	} `xml:"PubmedData>ArticleIdList>ArticleId"`
}

type pubmedAuthor struct {
	LastName       string `xml:"LastName"`
	ForeName       string `xml:"ForeName"`
	CollectiveName string `xml:"CollectiveName"`
}

func (a pubmedArticle) record() types.ArticleRecord {
	c := a.Citation
	r := types.ArticleRecord{
		Title:   clean(string(c.Article.Title)),
		Authors: []string{},
		Journal: clean(c.Article.Journal.Title),
		PMID:    strings.TrimSpace(c.PMID),
		Source:  types.SourcePubMed,
	}

	for _, au := range c.Article.Authors {
		name := strings.TrimSpace(strings.TrimSpace(au.ForeName) + " " + strings.TrimSpace(au.LastName))
		if name == "" {
			name = strings.TrimSpace(au.CollectiveName)
		}
		if name != "" {
			r.Authors = append(r.Authors, name)
		}
	}

	var parts []string
	for _, s := range c.Article.Abstract {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		if s.Label != "" {
			text = s.Label + ": " + text
		}
		parts = append(parts, text)
	}
	r.Abstract = clean(strings.Join(parts, " "))

	date := c.Article.Journal.PubDate
	if r.Year = yearOf(date.Year); r.Year == nil {
		r.Year = yearOf(date.MedlineDate)
	}

	for _, id := range a.IDs {
		if id.Type == "doi" {
			r.DOI = strings.TrimSpace(id.Value)
			break
		}
	}
	if r.PMID != "" {
		r.Link = "https://pubmed.ncbi.nlm.nih.gov/" + r.PMID + "/"
	}
	return r
}

// xmlText collects all character data inside an element, including text
// nested in inline markup such as <i> or <sup>.
type xmlText string

func (t *xmlText) UnmarshalXML(d *xml.Decoder, _ xml.StartElement) error {
	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				*t = xmlText(strings.Join(strings.Fields(b.String()), " "))
				return nil
			}
			depth--
		case xml.CharData:
			b.Write(v)
		}
	}
}

// abstractText is one structured abstract section.
type abstractText struct {
	Label string
	Text  string
}

func (a *abstractText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "Label" {
			a.Label = attr.Value
		}
	}
	var t xmlText
	if err := t.UnmarshalXML(d, start); err != nil {
		return err
	}
	a.Text = string(t)
	return nil
}
