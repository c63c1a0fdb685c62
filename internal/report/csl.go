package report

import (
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litsearch/pkg/types"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-YAML schema so that
// output is consumable by Pandoc and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	PMID           string    `yaml:"PMID,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// FormatCSL writes articles as a CSL-YAML list to w.
func FormatCSL(articles []types.ArticleRecord, w io.Writer) error {
	items := make([]CSLItem, len(articles))
	for i, a := range articles {
		items[i] = toCSLItem(a, i)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(a types.ArticleRecord, i int) CSLItem {
	item := CSLItem{
		ID:             citationKey(a, i),
		Type:           "article-journal",
		Title:          a.Title,
		ContainerTitle: a.Journal,
		Abstract:       a.Abstract,
		DOI:            a.DOI,
		PMID:           a.PMID,
		URL:            a.Link,
	}
	for _, name := range a.Authors {
		item.Author = append(item.Author, parseAuthorName(name))
	}
	if a.Year != nil {
		item.Issued = &CSLDate{DateParts: [][]int{{*a.Year}}}
	}
	return item
}

// citationKey builds an id like "smith2021" from the first author's family
// name and the year, suffixed with the position to stay unique.
func citationKey(a types.ArticleRecord, i int) string {
	family := "anon"
	if len(a.Authors) > 0 {
		n := parseAuthorName(a.Authors[0])
		family = n.Family
		if family == "" {
			family = n.Literal
		}
	}
	var b strings.Builder
	for _, r := range strings.ToLower(family) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	key := b.String()
	if key == "" {
		key = "anon"
	}
	if a.Year != nil {
		key += fmt.Sprint(*a.Year)
	}
	return fmt.Sprintf("%s-%d", key, i+1)
}

// parseAuthorName splits a full name string into CSL family/given parts.
// It splits on the last space: everything before is given, the last token
// is family. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}
