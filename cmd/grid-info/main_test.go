package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solar_yield/internal/ingest"
)

const sampleGrid = "../../testdata/grid_small.json"

func TestSummarize(t *testing.T) {
	g, err := ingest.LoadGrid(sampleGrid)
	require.NoError(t, err)

	s := summarize(g)
	assert.Equal(t, 3, s.Lons)
	assert.Equal(t, 2, s.Lats)
	assert.Equal(t, 10.0, s.LonStep)
	assert.Equal(t, 10.0, s.LatStep)
	assert.Zero(t, s.NaNCells)

	// January: 4.1, 3.8, 4.3, 4.0, 4.5, 4.2
	jan := s.Months[0]
	assert.InDelta(t, 4.15, jan.Mean, 1e-9)
	assert.InDelta(t, 3.8, jan.Min, 1e-9)
	assert.InDelta(t, 4.5, jan.Max, 1e-9)

	// every month is 0.1 above the previous one
	for m := 1; m < len(s.Months); m++ {
		assert.InDelta(t, s.Months[m-1].Mean+0.1, s.Months[m].Mean, 1e-9)
	}
}

func TestAxisStep(t *testing.T) {
	assert.Zero(t, axisStep([]float64{5}))
	assert.Equal(t, 0.5, axisStep([]float64{0, 0.5, 1}))
}

func TestPrintSummary(t *testing.T) {
	g, err := ingest.LoadGrid(sampleGrid)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printSummary(&buf, "grid_small.json", summarize(g)))

	out := buf.String()
	assert.Contains(t, out, "Dataset: grid_small.json")
	assert.Contains(t, out, "70.0000 .. 90.0000")
	assert.Contains(t, out, "4.150")
	assert.Contains(t, out, "Dec")
}

func TestExportJSON_RoundTrip(t *testing.T) {
	g, err := ingest.LoadGrid(sampleGrid)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, exportJSON(path, g))

	back, err := ingest.LoadGrid(path)
	require.NoError(t, err)
	assert.Equal(t, g.Lons(), back.Lons())
	assert.Equal(t, summarize(g), summarize(back))
}
