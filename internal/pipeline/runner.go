package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/LdDl/openscore-go/internal/config"
	"github.com/LdDl/openscore-go/internal/detections"
	"github.com/LdDl/openscore-go/internal/enrich"
	"github.com/LdDl/openscore-go/internal/logging"
	"github.com/LdDl/openscore-go/kinematics"
	"github.com/LdDl/openscore-go/mot"
	"github.com/LdDl/openscore-go/openscore"
	"github.com/LdDl/openscore-go/playeval"
	"github.com/LdDl/openscore-go/result"
	"golang.org/x/sync/errgroup"
)

// Gap reasons recorded by the runner itself
const (
	ReasonMissing        = "no detector record"
	ReasonDetectorFailed = "detector failed"
)

// ErrInvalidConfig is returned by NewRunner for configuration it can't run with
var ErrInvalidConfig = errors.New("invalid pipeline configuration")

// ErrFrameGap is returned when frame id jumps further than pipeline.max_frame_gap
var ErrFrameGap = errors.New("frame id jumps too far")

// preallocFrames bounds capacity reserved from the frame count header
const preallocFrames = 1 << 14

// ProgressFunc receives number of frames consumed so far and expected total.
// Total is zero when stream has no frame count. Calls are monotonic in done.
type ProgressFunc func(done, total int)

// Runner analyses detection streams. Runner itself is immutable, every Run
// owns its tracker and estimator so one Runner may serve concurrent videos.
type Runner struct {
	cfg         config.Config
	trackerOpts mot.ByteTrackerOptions
	scoring     openscore.Config
	feedback    playeval.Config
	policy      openscore.Policy
	enricher    *enrich.Bounded
	logger      *slog.Logger
}

// Option customizes Runner
type Option func(*Runner)

// WithLogger sets base logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logging.NewComponentLogger(logger, "pipeline")
	}
}

// WithPolicy replaces default openness policy
func WithPolicy(policy openscore.Policy) Option {
	return func(r *Runner) {
		r.policy = policy
	}
}

// WithEnricher attaches best-effort summary enrichment
func WithEnricher(enricher *enrich.Bounded) Option {
	return func(r *Runner) {
		r.enricher = enricher
	}
}

// NewRunner validates configuration and prepares runner
func NewRunner(cfg config.Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	trackerOpts, err := cfg.TrackerOptions()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	scoring, err := cfg.OpenScoreConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	r := &Runner{
		cfg:         cfg,
		trackerOpts: trackerOpts,
		scoring:     scoring,
		feedback:    cfg.FeedbackConfig(),
		logger:      logging.NewComponentLogger(nil, "pipeline"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// frameEntry is one frame of the output, or a gap covering frameID..lastFrameID
type frameEntry struct {
	frameID     int
	lastFrameID int
	gap         string
	snapshots   []mot.TrackSnapshot
	velocities  map[int]kinematics.Vector
}

// run holds state of a single video
type run struct {
	tracker       *mot.ByteTracker
	estimator     *kinematics.Estimator
	live          map[int]struct{}
	entries       []frameEntry
	gaps          []result.Gap
	frames        int // every frame id covered by entries
	detectorError string
}

// addGap records frames first..last as not processed
func (st *run) addGap(first, last int, reason string) {
	if last < first {
		return
	}
	st.entries = append(st.entries, frameEntry{frameID: first, lastFrameID: last, gap: reason})
	st.gaps = append(st.gaps, result.Gap{FrameID: first, LastFrameID: last, Reason: reason})
	st.frames += last - first + 1
}

// Run consumes the whole source and returns the assembled result.
// Source is not closed. Nil progress is allowed.
func (r *Runner) Run(ctx context.Context, src detections.Source, progress ProgressFunc) (*result.Result, error) {
	if progress == nil {
		progress = func(int, int) {}
	}
	meta := src.Meta()
	kin := r.cfg.KinematicsConfig(meta.FPS)
	total := meta.FrameCount

	st := &run{
		tracker:   mot.NewByteTracker(r.trackerOpts),
		estimator: kinematics.NewEstimator(kin),
		live:      make(map[int]struct{}),
		entries:   make([]frameEntry, 0, min(max(total, 0), preallocFrames)),
		gaps:      make([]result.Gap, 0),
	}
	r.logger.Info("analysis started", logging.Int("frame_count", total), logging.Float64("fps", kin.FPS))

	next := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("cancelled at frame %d: %w", next, err)
		}
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("cancelled at frame %d: %w", next, ctx.Err())
		}
		if errors.Is(err, detections.ErrDetectorFailed) {
			// At least the frame after the last delivered one is marked, so the failure is
			// visible even without a frame count or after the last expected frame
			last := max(next, total-1)
			r.logger.Warn("detector stopped, remaining frames recorded as gaps",
				logging.Int(logging.FieldFrameID, next), logging.Int("last_frame_id", last), logging.Error(err))
			st.addGap(next, last, ReasonDetectorFailed)
			st.detectorError = err.Error()
			next = last + 1
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read detections: %w", err)
		}
		if frame.FrameID < next {
			return nil, fmt.Errorf("frame %d after %d: %w", frame.FrameID, next-1, mot.ErrFrameOrder)
		}
		if jump := frame.FrameID - next; jump > r.cfg.Pipeline.MaxFrameGap {
			return nil, fmt.Errorf("frame %d after %d skips %d frames, limit %d: %w",
				frame.FrameID, next-1, jump, r.cfg.Pipeline.MaxFrameGap, ErrFrameGap)
		}
		st.addGap(next, frame.FrameID-1, ReasonMissing)
		if frame.Err != "" {
			r.logger.Warn("detector failed on frame", logging.Int(logging.FieldFrameID, frame.FrameID), logging.String("reason", frame.Err))
			st.addGap(frame.FrameID, frame.FrameID, frame.Err)
		} else if err := r.track(st, frame); err != nil {
			return nil, err
		}
		next = frame.FrameID + 1
		if total > 0 {
			progress(min(next, total), total)
		} else {
			progress(next, 0)
		}
	}

	samples, err := r.score(ctx, kin, st.entries)
	if err != nil {
		return nil, err
	}
	return r.assemble(ctx, meta, kin, src.Stats(), st, samples), nil
}

// track feeds one frame to tracker and estimator
func (r *Runner) track(st *run, frame detections.Frame) error {
	snapshots, err := st.tracker.Update(frame.FrameID, frame.Detections)
	if err != nil {
		return fmt.Errorf("track frame %d: %w", frame.FrameID, err)
	}
	current := make(map[int]struct{}, len(snapshots))
	velocities := make(map[int]kinematics.Vector)
	for _, snapshot := range snapshots {
		current[snapshot.TrackID] = struct{}{}
		if !snapshot.Matched {
			continue
		}
		track, ok := st.tracker.GetTrack(snapshot.TrackID)
		if !ok {
			continue
		}
		sample := st.estimator.Update(snapshot.TrackID, track.GetRecentHistory(2))
		if snapshot.Visible() {
			velocities[snapshot.TrackID] = sample.Velocity
		}
	}
	// Tracks which left the live set will never be updated again
	for id := range st.live {
		if _, ok := current[id]; !ok {
			st.estimator.Forget(id)
		}
	}
	st.live = current
	st.entries = append(st.entries, frameEntry{
		frameID:     frame.FrameID,
		lastFrameID: frame.FrameID,
		snapshots:   snapshots,
		velocities:  velocities,
	})
	st.frames++
	return nil
}

// score runs openness engine over tracked frames. Output is in frame order,
// within a frame in track id order.
func (r *Runner) score(ctx context.Context, kin kinematics.Config, entries []frameEntry) ([][]openscore.Sample, error) {
	engine := openscore.NewEngine(r.scoring, r.policy)
	perFrame := make([][]openscore.Sample, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Pipeline.ScoreWorkers)
	for i := range entries {
		if entries[i].gap != "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry := entries[i]
			scene := r.scoring.BuildScene(entry.frameID, entry.snapshots, kin, entry.velocities)
			perFrame[i] = engine.ScoreFrame(scene)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("cancelled while scoring: %w", err)
	}
	return perFrame, nil
}

func (r *Runner) assemble(ctx context.Context, meta detections.Meta, kin kinematics.Config, stats detections.Stats, st *run, perFrame [][]openscore.Sample) *result.Result {
	width, height := meta.Width, meta.Height
	if width <= 0 || height <= 0 {
		width, height = r.cfg.Video.Width, r.cfg.Video.Height
	}
	frames := make([]result.Frame, 0, len(st.entries))
	samples := make([]openscore.Sample, 0)
	for i, entry := range st.entries {
		if entry.gap != "" {
			frames = append(frames, result.GapFrame(entry.frameID, entry.lastFrameID, entry.gap))
			continue
		}
		frames = append(frames, result.NewFrame(entry.frameID, entry.snapshots, perFrame[i]))
		samples = append(samples, perFrame[i]...)
	}

	tracking := st.tracker.Summary()
	summary := playeval.Aggregate(r.feedback, samples, playeval.Meta{
		TracksDetected:  tracking.TracksConfirmed,
		FramesProcessed: st.frames,
	})

	res := &result.Result{
		SchemaVersion: result.SchemaVersion,
		Video: result.Video{
			Width:         width,
			Height:        height,
			FPS:           kin.FPS,
			YardsPerPixel: kin.YardsPerPixel,
			TotalFrames:   st.frames,
		},
		Frames:          frames,
		Samples:         samples,
		Tracks:          result.NewTracks(st.tracker.Tracks()),
		TrackingSummary: result.NewTrackingSummary(tracking),
		Summary:         summary,
		Diagnostics: result.Diagnostics{
			Gaps:              st.gaps,
			MalformedRecords:  stats.Malformed,
			InvalidDetections: stats.InvalidDetections,
			DetectorError:     st.detectorError,
		},
	}
	if r.enricher != nil {
		res.Enrichment = r.enricher.Enrich(ctx, summary)
	}
	r.logger.Info("analysis finished",
		logging.Int("frames", st.frames),
		logging.Int("gaps", len(st.gaps)),
		logging.Int("receivers", summary.Statistics.ReceiversTracked),
		logging.Float64("overall_score", summary.OverallScore),
		logging.String("grade", summary.OverallGrade),
	)
	return res
}
