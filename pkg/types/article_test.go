// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		a    ArticleRecord
		want string
	}{
		{"doi lowercased", ArticleRecord{DOI: " 10.1/ABC ", PMID: "1"}, "doi:10.1/abc"},
		{"pmid when doi missing", ArticleRecord{PMID: "123", Title: "T"}, "pmid:123"},
		{"placeholder doi falls through to pmid", ArticleRecord{DOI: "N/A", PMID: "123"}, "pmid:123"},
		{"placeholders fall through to title", ArticleRecord{DOI: "n/a", PMID: " N/A ", Title: "Deep Learning: A Review"}, "title:deep learning a review"},
		{"no identity", ArticleRecord{DOI: "N/A", Title: "!!"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Key())
		})
	}
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "10.1/x", NormalizeID("  10.1/x\n"))
	assert.Equal(t, "", NormalizeID("N/A"))
	assert.Equal(t, "", NormalizeID(" n/a "))
	assert.Equal(t, "", NormalizeID(""))
}
