package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/openscore-go/openscore"
	"github.com/LdDl/openscore-go/playeval"
	"github.com/LdDl/openscore-go/result"
)

func scoredResult() *result.Result {
	samples := []openscore.Sample{
		{FrameID: 0, TrackID: 1, Score: 40},
		{FrameID: 0, TrackID: 4, Score: 70},
		{FrameID: 1, TrackID: 1, Score: 92},
		{FrameID: 3, TrackID: 4, Score: 65},
	}
	return &result.Result{
		SchemaVersion: result.SchemaVersion,
		Samples:       samples,
		Summary:       playeval.Aggregate(playeval.DefaultConfig(), samples, playeval.Meta{TracksDetected: 3, FramesProcessed: 4}),
		Enrichment:    &result.Enrichment{Provider: "http", Text: "Receiver 1 came open late."},
	}
}

func TestOpenSeriesLeavesHoles(t *testing.T) {
	frameIDs, series := openSeries(scoredResult())
	assert.Equal(t, []int{0, 1, 3}, frameIDs)
	require.Len(t, series, 2)
	assert.Equal(t, 40.0, series[1][0].Value)
	assert.Equal(t, 92.0, series[1][1].Value)
	assert.Nil(t, series[1][2].Value)
	assert.Nil(t, series[4][1].Value)
	assert.Equal(t, 65.0, series[4][2].Value)
}

func TestChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Chart(&buf, scoredResult(), ChartOptions{Threshold: 75}))
	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "Receiver 1")
	assert.Contains(t, html, "Receiver 4")
	assert.Contains(t, html, "clearly open")
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, scoredResult()))
	out := buf.String()
	assert.Contains(t, out, "Overall:")
	assert.Contains(t, out, "Best options")
	assert.Contains(t, out, "Receiver 1")
	assert.Contains(t, out, "Commentary (http)")
}

func TestTextWithoutReceivers(t *testing.T) {
	res := &result.Result{
		SchemaVersion: result.SchemaVersion,
		Summary:       playeval.Aggregate(playeval.DefaultConfig(), nil, playeval.Meta{}),
	}
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, res))
	out := buf.String()
	assert.Contains(t, out, playeval.GradeNotAvailable)
	assert.NotContains(t, out, "Best options")
	assert.Contains(t, out, "Insufficient data for analysis")
}

func TestRenderTablePadsRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"only"}}, nil)
	assert.Contains(t, out, "only")
	assert.Empty(t, renderTable(nil, nil, nil))
}

func TestTextShowsDetectorFailure(t *testing.T) {
	res := scoredResult()
	res.Diagnostics = result.Diagnostics{
		Gaps:          []result.Gap{{FrameID: 4, LastFrameID: 9, Reason: "detector failed"}},
		DetectorError: "detector process failed: exit status 137",
	}
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, res))
	assert.Contains(t, buf.String(), "Detector stopped early: detector process failed: exit status 137")
}
