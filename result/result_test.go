package result

import (
	"bytes"
	"strings"
	"testing"

	"github.com/LdDl/openscore-go/mot"
	"github.com/LdDl/openscore-go/openscore"
	"github.com/LdDl/openscore-go/playeval"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	snapshots := []mot.TrackSnapshot{
		{TrackID: 1, Class: mot.ClassReceiver, State: mot.TrackConfirmed, Matched: true, Confidence: 0.9, BBox: mot.NewRectXYXY(10, 20, 30, 60)},
		{TrackID: 2, Class: mot.ClassDefender, State: mot.TrackConfirmed, Matched: true, Confidence: 0.8, BBox: mot.NewRectXYXY(40, 20, 60, 60)},
		{TrackID: 3, Class: mot.ClassReceiver, State: mot.TrackLost},
	}
	samples := []openscore.Sample{{
		FrameID:           4,
		TrackID:           1,
		Score:             71.5,
		Components:        openscore.Components{Distance: 0.8, Velocity: 0.5, Separation: 1, Coverage: 0.6},
		NearestDefenderID: 2,
		NearestDistance:   1.5,
		DefendersNearby:   1,
		Coverage:          openscore.CoverageZone,
	}}
	return &Result{
		SchemaVersion: SchemaVersion,
		Video:         Video{Width: 1920, Height: 1080, FPS: 30, YardsPerPixel: 0.05, TotalFrames: 6},
		Frames:        []Frame{GapFrame(2, 3, "detector timeout"), NewFrame(4, snapshots, samples)},
		Samples:       samples,
		Tracks: []Track{
			{TrackID: 1, Class: mot.ClassReceiver, State: mot.TrackConfirmed, FirstFrame: 0, LastFrame: 4, HistoryLen: 4},
		},
		TrackingSummary: TrackingSummary{FramesProcessed: 5, TracksCreated: 3, ByClass: map[string]int{"receiver": 1}},
		Summary:         playeval.Aggregate(playeval.DefaultConfig(), samples, playeval.Meta{TracksDetected: 3}),
		Diagnostics: Diagnostics{
			Gaps:             []Gap{{FrameID: 2, LastFrameID: 3, Reason: "detector timeout"}},
			MalformedRecords: 1,
			DetectorError:    "detector process failed: exit status 1",
		},
		Enrichment: &Enrichment{Provider: "http", Text: "Nice throw"},
	}
}

func TestNewFrame(t *testing.T) {
	frame := sampleResult().Frames[1]
	require.Len(t, frame.Players, 2, "lost tracks are not drawn")
	receiver := frame.Players[0]
	require.NotNil(t, receiver.OpenScore)
	assert.Equal(t, 71.5, *receiver.OpenScore)
	assert.Equal(t, [4]float64{10, 20, 30, 60}, receiver.BBox)
	assert.Nil(t, frame.Players[1].OpenScore, "defenders have no openness")
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := sampleResult()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, original))
	assert.Contains(t, buf.String(), `"class": "receiver"`)
	assert.Contains(t, buf.String(), `"state": "confirmed"`)

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(original, decoded); diff != "" {
		t.Errorf("round trip changed result (-want +got):\n%s", diff)
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"schema_version": 2}`))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = Decode(strings.NewReader(`{"schema_version": 1, "frames": [{"players": [{"class": "umpire"}]}]}`))
	assert.ErrorIs(t, err, mot.ErrUnknownClass)
}

func TestNewTrackingSummary(t *testing.T) {
	summary := NewTrackingSummary(mot.TrackingSummary{
		TracksCreated: 4,
		ByClass:       map[mot.ObjectClass]int{mot.ClassDefender: 2, mot.ClassReceiver: 1},
	})
	assert.Equal(t, map[string]int{"defender": 2, "receiver": 1}, summary.ByClass)
	assert.Equal(t, 4, summary.TracksCreated)
}

func TestGapFrames(t *testing.T) {
	d := Diagnostics{Gaps: []Gap{
		{FrameID: 0, LastFrameID: 0, Reason: "no detector record"},
		{FrameID: 10, LastFrameID: 999_999, Reason: "no detector record"},
	}}
	assert.Equal(t, 1, d.Gaps[0].Len())
	assert.Equal(t, 1_000_000-10+1, d.GapFrames())

	frame := GapFrame(10, 999_999, "no detector record")
	assert.Equal(t, 999_999, frame.LastFrameID)
	assert.Empty(t, frame.Players)
}
