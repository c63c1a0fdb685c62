// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litsearch/pkg/types"
)

func TestNewRunFileSummary(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	rf := NewRunFile(finishedState(), now)

	assert.Equal(t, "run-9", rf.RunID)
	assert.Equal(t, "metformin ageing", rf.Query)
	assert.Len(t, rf.Results, 2)
	assert.Equal(t, RunSummary{
		Fetched:           4,
		Unique:            3,
		DuplicatesRemoved: 1,
		Kept:              2,
		Discarded:         1,
		Refinements:       1,
		QualityScore:      0.4,
		SynthesisStatus:   types.SynthesisLimitedData,
		Warnings:          []string{"execute: scopus failed: no API key configured"},
		Timestamp:         now,
	}, rf.Summary)
}

func TestWriteAndReadRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, WriteRunFile(path, finishedState()))

	rf, err := ReadRunFile(path)
	require.NoError(t, err)
	assert.Equal(t, "metformin ageing", rf.Query)
	assert.Equal(t, 5, rf.Preferences.MaxResults)
	require.Len(t, rf.Results, 2)
	require.NotNil(t, rf.Results[0].Year)
	assert.Equal(t, 2021, *rf.Results[0].Year)
	assert.Equal(t, []string{"Jane Smith", "Bo Li"}, rf.Results[0].Authors)

	st := rf.State()
	assert.Equal(t, "run-9", st.RunID)
	assert.Len(t, st.FinalResults, 2)
	assert.Equal(t, 1, st.RefinementCount)
	assert.Equal(t, types.SynthesisLimitedData, st.SynthesisMeta.Status)
}

func TestReadRunFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadRunFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("query: [unclosed"), 0o644))
	_, err = ReadRunFile(bad)
	assert.ErrorContains(t, err, "parsing run file")

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("results: []\n"), 0o644))
	_, err = ReadRunFile(empty)
	assert.ErrorContains(t, err, "has no query")
}
