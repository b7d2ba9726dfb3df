package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/LdDl/openscore-go/internal/config"
	"github.com/LdDl/openscore-go/internal/detections"
	"github.com/LdDl/openscore-go/internal/enrich"
	"github.com/LdDl/openscore-go/mot"
	"github.com/LdDl/openscore-go/playeval"
	"github.com/LdDl/openscore-go/result"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSource replays prepared frames, then returns tail or io.EOF
type sliceSource struct {
	meta   detections.Meta
	frames []detections.Frame
	tail   error
	pos    int
	stats  detections.Stats
}

func (s *sliceSource) Meta() detections.Meta   { return s.meta }
func (s *sliceSource) Stats() detections.Stats { return s.stats }
func (s *sliceSource) Close() error            { return nil }

func (s *sliceSource) Next(ctx context.Context) (detections.Frame, error) {
	if err := ctx.Err(); err != nil {
		return detections.Frame{}, err
	}
	if s.pos >= len(s.frames) {
		if s.tail != nil {
			return detections.Frame{}, s.tail
		}
		return detections.Frame{}, io.EOF
	}
	frame := s.frames[s.pos]
	s.pos++
	return frame, nil
}

func det(frameID int, class mot.ObjectClass, x float64) mot.Detection {
	return mot.Detection{
		FrameID:    frameID,
		BBox:       mot.NewRect(x, 300, 40, 80),
		Class:      class,
		Confidence: 0.9,
	}
}

// play builds n frames with a receiver drifting right and, optionally, a static defender
func play(n int, withDefender bool) []detections.Frame {
	frames := make([]detections.Frame, 0, n)
	for i := 0; i < n; i++ {
		dets := []mot.Detection{det(i, mot.ClassReceiver, 100+float64(i))}
		if withDefender {
			dets = append(dets, det(i, mot.ClassDefender, 220))
		}
		frames = append(frames, detections.Frame{FrameID: i, Detections: dets})
	}
	return frames
}

func newRunner(t *testing.T, opts ...Option) *Runner {
	t.Helper()
	runner, err := NewRunner(config.Default(), opts...)
	require.NoError(t, err)
	return runner
}

func TestRunScoresReceivers(t *testing.T) {
	src := &sliceSource{meta: detections.Meta{Width: 1280, Height: 720, FPS: 30, FrameCount: 20}, frames: play(20, true)}
	res, err := newRunner(t).Run(context.Background(), src, nil)
	require.NoError(t, err)

	assert.Equal(t, result.SchemaVersion, res.SchemaVersion)
	assert.Equal(t, 20, res.Video.TotalFrames)
	assert.Equal(t, 1280, res.Video.Width)
	require.Len(t, res.Frames, 20)
	require.NotEmpty(t, res.Samples)

	prev := -1
	for _, sample := range res.Samples {
		assert.Greater(t, sample.FrameID, prev, "samples are in frame order")
		prev = sample.FrameID
		assert.GreaterOrEqual(t, sample.Score, 0.0)
		assert.LessOrEqual(t, sample.Score, 100.0)
		assert.Equal(t, res.Samples[0].TrackID, sample.TrackID)
	}
	require.Len(t, res.Summary.ReceiverStats, 1)
	assert.Equal(t, len(res.Samples), res.Summary.ReceiverStats[0].Samples)
	assert.Equal(t, 2, res.TrackingSummary.TracksConfirmed)
	assert.Len(t, res.Tracks, 2)
	assert.Empty(t, res.Diagnostics.Gaps)
}

func TestRunWithoutDefendersCompletes(t *testing.T) {
	src := &sliceSource{frames: play(10, false)}
	res, err := newRunner(t).Run(context.Background(), src, nil)
	require.NoError(t, err)

	assert.Empty(t, res.Samples)
	assert.NotNil(t, res.Summary.ReceiverStats)
	assert.Empty(t, res.Summary.ReceiverStats)
	assert.Equal(t, playeval.GradeNotAvailable, res.Summary.OverallGrade)
	assert.Equal(t, 1, res.TrackingSummary.TracksConfirmed)
	assert.Equal(t, 10, res.Summary.Statistics.FramesProcessed)
}

func TestRunRecordsGaps(t *testing.T) {
	frames := play(5, true)
	frames[2] = detections.Frame{FrameID: 2, Err: "inference timeout"}
	// Frame 3 never arrives
	frames = append(frames[:3], frames[4])
	src := &sliceSource{frames: frames, stats: detections.Stats{Records: 5, Malformed: 1, InvalidDetections: 2}}

	res, err := newRunner(t).Run(context.Background(), src, nil)
	require.NoError(t, err)

	want := []result.Gap{
		{FrameID: 2, LastFrameID: 2, Reason: "inference timeout"},
		{FrameID: 3, LastFrameID: 3, Reason: ReasonMissing},
	}
	if diff := cmp.Diff(want, res.Diagnostics.Gaps); diff != "" {
		t.Errorf("gaps mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, res.Frames, 5)
	for i, frame := range res.Frames {
		assert.Equal(t, i, frame.FrameID)
	}
	assert.Equal(t, "inference timeout", res.Frames[2].Gap)
	assert.Empty(t, res.Frames[2].Players)
	assert.NotEmpty(t, res.Frames[4].Players, "tracks survive short gaps")
	assert.Equal(t, 1, res.Diagnostics.MalformedRecords)
	assert.Equal(t, 2, res.Diagnostics.InvalidDetections)
	for _, sample := range res.Samples {
		assert.NotContains(t, []int{2, 3}, sample.FrameID)
	}
}

func TestRunDetectorFailure(t *testing.T) {
	src := &sliceSource{
		meta:   detections.Meta{FrameCount: 5},
		frames: play(2, true),
		tail:   fmt.Errorf("%w: exit status 1", detections.ErrDetectorFailed),
	}
	res, err := newRunner(t).Run(context.Background(), src, nil)
	require.NoError(t, err)
	require.Len(t, res.Frames, 3)
	want := []result.Gap{{FrameID: 2, LastFrameID: 4, Reason: ReasonDetectorFailed}}
	if diff := cmp.Diff(want, res.Diagnostics.Gaps); diff != "" {
		t.Errorf("gaps mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, res.Frames[2].LastFrameID)
	assert.Equal(t, 5, res.Video.TotalFrames)
	assert.Contains(t, res.Diagnostics.DetectorError, "exit status 1")
}

func TestRunDetectorFailureAfterLastFrame(t *testing.T) {
	cases := []struct {
		name string
		meta detections.Meta
	}{
		{"no frame count", detections.Meta{}},
		{"all frames delivered", detections.Meta{FrameCount: 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := &sliceSource{
				meta:   tc.meta,
				frames: play(5, true),
				tail:   fmt.Errorf("%w: signal: killed: CUDA out of memory", detections.ErrDetectorFailed),
			}
			res, err := newRunner(t).Run(context.Background(), src, nil)
			require.NoError(t, err)
			want := []result.Gap{{FrameID: 5, LastFrameID: 5, Reason: ReasonDetectorFailed}}
			if diff := cmp.Diff(want, res.Diagnostics.Gaps); diff != "" {
				t.Errorf("gaps mismatch (-want +got):\n%s", diff)
			}
			assert.Contains(t, res.Diagnostics.DetectorError, "CUDA out of memory")
			require.Len(t, res.Frames, 6)
			assert.Equal(t, ReasonDetectorFailed, res.Frames[5].Gap)
		})
	}
}

func TestRunLongFrameJump(t *testing.T) {
	frames := append(play(3, true), detections.Frame{
		FrameID:    5_000_000,
		Detections: []mot.Detection{det(5_000_000, mot.ClassReceiver, 100)},
	})

	_, err := newRunner(t).Run(context.Background(), &sliceSource{frames: frames}, nil)
	assert.ErrorIs(t, err, ErrFrameGap)

	cfg := config.Default()
	cfg.Pipeline.MaxFrameGap = 10_000_000
	runner, err := NewRunner(cfg)
	require.NoError(t, err)
	res, err := runner.Run(context.Background(), &sliceSource{frames: frames}, nil)
	require.NoError(t, err)

	want := []result.Gap{{FrameID: 3, LastFrameID: 4_999_999, Reason: ReasonMissing}}
	if diff := cmp.Diff(want, res.Diagnostics.Gaps); diff != "" {
		t.Errorf("gaps mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, res.Frames, 5, "missing run is one entry")
	assert.Equal(t, 5_000_000, res.Frames[4].FrameID)
	assert.Equal(t, 5_000_001, res.Video.TotalFrames)
	assert.Equal(t, 5_000_001, res.TrackingSummary.FramesProcessed)
}

func TestRunFrameOrder(t *testing.T) {
	frames := play(3, true)
	frames[1], frames[2] = frames[2], frames[1]
	_, err := newRunner(t).Run(context.Background(), &sliceSource{frames: frames}, nil)
	assert.ErrorIs(t, err, mot.ErrFrameOrder)

	frames = play(2, true)
	frames = append(frames, frames[1])
	_, err = newRunner(t).Run(context.Background(), &sliceSource{frames: frames}, nil)
	assert.ErrorIs(t, err, mot.ErrFrameOrder, "duplicate frame id")
}

func TestRunSourceError(t *testing.T) {
	src := &sliceSource{frames: play(2, true), tail: errors.New("disk on fire")}
	_, err := newRunner(t).Run(context.Background(), src, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read detections")
}

func TestRunProgressIsMonotonic(t *testing.T) {
	frames := play(6, true)
	// Frame 2 is missing, progress jumps over it
	frames = append(frames[:2], frames[3:]...)
	src := &sliceSource{meta: detections.Meta{FrameCount: 6}, frames: frames}

	var done []int
	_, err := newRunner(t).Run(context.Background(), src, func(d, total int) {
		assert.Equal(t, 6, total)
		done = append(done, d)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 4, 5, 6}, done)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &sliceSource{frames: play(10, true)}
	calls := 0
	_, err := newRunner(t).Run(ctx, src, func(int, int) {
		calls++
		if calls == 3 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, calls, "cancellation is observed at the next frame boundary")
}

func TestRunIsDeterministic(t *testing.T) {
	first, err := newRunner(t).Run(context.Background(), &sliceSource{frames: play(30, true)}, nil)
	require.NoError(t, err)
	second, err := newRunner(t).Run(context.Background(), &sliceSource{frames: play(30, true)}, nil)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("results differ (-first +second):\n%s", diff)
	}
}

func TestRunFromJSONLines(t *testing.T) {
	var buf bytes.Buffer
	w := detections.NewWriter(&buf)
	require.NoError(t, w.WriteMeta(detections.Meta{Width: 640, Height: 360, FPS: 25, FrameCount: 8}))
	for _, frame := range play(8, true) {
		require.NoError(t, w.WriteFrame(frame))
	}
	buf.WriteString("{broken\n")

	reader, err := detections.NewReader(&buf)
	require.NoError(t, err)
	res, err := newRunner(t).Run(context.Background(), reader, nil)
	require.NoError(t, err)
	assert.Equal(t, 25.0, res.Video.FPS)
	assert.Equal(t, 640, res.Video.Width)
	assert.Equal(t, 1, res.Diagnostics.MalformedRecords)
	assert.Len(t, res.Frames, 8)
}

type failingEnricher struct{}

func (failingEnricher) Name() string { return "failing" }

func (failingEnricher) Enrich(context.Context, playeval.PlaySummary) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestRunEnrichmentFailureKeepsSummary(t *testing.T) {
	plain, err := newRunner(t).Run(context.Background(), &sliceSource{frames: play(12, true)}, nil)
	require.NoError(t, err)
	assert.Nil(t, plain.Enrichment)

	enricher := enrich.NewBounded(failingEnricher{}, 0, nil)
	enriched, err := newRunner(t, WithEnricher(enricher)).Run(context.Background(), &sliceSource{frames: play(12, true)}, nil)
	require.NoError(t, err)
	require.NotNil(t, enriched.Enrichment)
	assert.Equal(t, "failing", enriched.Enrichment.Provider)
	assert.Equal(t, "quota exceeded", enriched.Enrichment.Error)
	if diff := cmp.Diff(plain.Summary, enriched.Summary); diff != "" {
		t.Errorf("enrichment changed summary (-want +got):\n%s", diff)
	}
}

func TestNewRunnerRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.OpenScore.Weights.Distance = -1
	_, err := NewRunner(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
