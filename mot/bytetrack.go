package mot

import (
	"sort"

	"github.com/pkg/errors"
)

// MatchingAlgorithm is for algorithm type for matching detections to tracks
type MatchingAlgorithm uint16

const (
	// MatchingAlgorithmHungarian uses the Hungarian algorithm (Kuhn-Munkres) for optimal assignment
	MatchingAlgorithmHungarian MatchingAlgorithm = iota
	// MatchingAlgorithmGreedy uses a greedy algorithm for faster but potentially suboptimal assignment
	MatchingAlgorithmGreedy
)

func (m MatchingAlgorithm) String() string {
	switch m {
	case MatchingAlgorithmHungarian:
		return "hungarian"
	case MatchingAlgorithmGreedy:
		return "greedy"
	default:
		return "unknown"
	}
}

// ParseMatchingAlgorithm converts name to MatchingAlgorithm
func ParseMatchingAlgorithm(name string) (MatchingAlgorithm, error) {
	switch name {
	case "hungarian", "":
		return MatchingAlgorithmHungarian, nil
	case "greedy":
		return MatchingAlgorithmGreedy, nil
	default:
		return 0, errors.Errorf("unknown matching algorithm %q", name)
	}
}

// ErrFrameOrder is returned when frames are not supplied in strictly increasing order
var ErrFrameOrder = errors.New("frame id is not increasing")

// ByteTrackerOptions holds tuning parameters of ByteTracker
type ByteTrackerOptions struct {
	// Detections with confidence >= HighThresh go to the first association pass and may spawn tracks
	HighThresh float64
	// Detections with confidence in [LowThresh, HighThresh) go to the second pass. Lower ones are ignored
	LowThresh float64
	// Minimum IoU for the first association pass
	MatchIoU float64
	// Minimum IoU for the second (low confidence) association pass
	LowMatchIoU float64
	// Lost track is removed once it was unmatched for more than MaxLost consecutive frames
	MaxLost int
	// Number of consecutive matched frames (including the first one) to confirm tentative track
	MinHits int
	// Maximum retained observations per track. Zero keeps everything
	MaxHistoryLen int
	// Algorithm to use for matching
	Algorithm MatchingAlgorithm
}

// DefaultByteTrackerOptions returns default parameters
func DefaultByteTrackerOptions() ByteTrackerOptions {
	return ByteTrackerOptions{
		HighThresh:    0.5,
		LowThresh:     0.1,
		MatchIoU:      0.3,
		LowMatchIoU:   0.2,
		MaxLost:       30,
		MinHits:       3,
		MaxHistoryLen: 0,
		Algorithm:     MatchingAlgorithmHungarian,
	}
}

// ByteTracker is implementation of Multi-object tracker (MOT) called ByteTrack
// with Tentative -> Confirmed <-> Lost -> Removed lifecycle.
// It is not safe for concurrent use: frames must be fed sequentially.
type ByteTracker struct {
	opts ByteTrackerOptions
	// Live tracks (Tentative, Confirmed, Lost) sorted by ID
	live []*Track
	// Removed tracks kept for output
	removed []*Track
	nextID  int
	// Last processed frame, -1 before the first one
	lastFrame int
	stats     trackerCounters
}

type trackerCounters struct {
	created   int
	confirmed int
	discarded int
	frames    int
}

// DefaultByteTracker creates a ByteTracker with default parameters.
func DefaultByteTracker() *ByteTracker {
	return NewByteTracker(DefaultByteTrackerOptions())
}

// NewByteTracker creates a new instance of ByteTracker with specified parameters.
func NewByteTracker(opts ByteTrackerOptions) *ByteTracker {
	if opts.MinHits < 1 {
		opts.MinHits = 1
	}
	return &ByteTracker{
		opts:      opts,
		live:      make([]*Track, 0),
		removed:   make([]*Track, 0),
		nextID:    1,
		lastFrame: -1,
	}
}

// Options returns tracker parameters
func (bt *ByteTracker) Options() ByteTrackerOptions {
	return bt.opts
}

// LastFrame returns last processed frame id, -1 if nothing was processed
func (bt *ByteTracker) LastFrame() int {
	return bt.lastFrame
}

// Update matches detections of the frame with existing tracks and returns snapshots of
// every live track sorted by track ID. Frames must come in strictly increasing order;
// skipped frame ids are processed as frames without detections.
func (bt *ByteTracker) Update(frameID int, detections []Detection) ([]TrackSnapshot, error) {
	if frameID <= bt.lastFrame {
		return nil, errors.Wrapf(ErrFrameOrder, "got %d after %d", frameID, bt.lastFrame)
	}
	if bt.lastFrame >= 0 {
		for skipped := bt.lastFrame + 1; skipped < frameID; skipped++ {
			// Every track is gone after at most MaxLost+1 empty frames, the rest change nothing
			if len(bt.live) == 0 {
				bt.stats.frames += frameID - skipped
				break
			}
			if err := bt.step(skipped, nil); err != nil {
				return nil, err
			}
		}
	}
	if err := bt.step(frameID, detections); err != nil {
		return nil, err
	}
	snapshots := make([]TrackSnapshot, 0, len(bt.live))
	for _, track := range bt.live {
		snapshots = append(snapshots, track.Snapshot(frameID))
	}
	return snapshots, nil
}

// step runs one frame of association
func (bt *ByteTracker) step(frameID int, detections []Detection) error {
	bt.lastFrame = frameID
	bt.stats.frames++

	// Predict next positions for all live tracks via Kalman filter
	for _, track := range bt.live {
		track.PredictNextPosition()
	}

	// Normalize frame id of detections: the caller's frame wins
	dets := make([]Detection, len(detections))
	copy(dets, detections)
	for i := range dets {
		dets[i].FrameID = frameID
	}

	highDetectionIndices := make([]int, 0, len(dets))
	lowDetectionIndices := make([]int, 0)
	for i, det := range dets {
		switch {
		case det.Confidence >= bt.opts.HighThresh:
			highDetectionIndices = append(highDetectionIndices, i)
		case det.Confidence >= bt.opts.LowThresh:
			lowDetectionIndices = append(lowDetectionIndices, i)
		}
	}

	matchedTracks := make(map[int]struct{})
	matchedDetections := make(map[int]struct{})

	// 1. First stage: high confidence detections against every live track
	if len(bt.live) > 0 && len(highDetectionIndices) > 0 {
		err := bt.associate(bt.live, highDetectionIndices, dets, bt.opts.MatchIoU, matchedTracks, matchedDetections)
		if err != nil {
			return errors.Wrap(err, "first association stage")
		}
	}

	// 2. Second stage: low confidence detections against remaining tracks
	unmatched := make([]*Track, 0)
	for _, track := range bt.live {
		if _, found := matchedTracks[track.id]; !found {
			unmatched = append(unmatched, track)
		}
	}
	if len(unmatched) > 0 && len(lowDetectionIndices) > 0 {
		err := bt.associate(unmatched, lowDetectionIndices, dets, bt.opts.LowMatchIoU, matchedTracks, matchedDetections)
		if err != nil {
			return errors.Wrap(err, "second association stage")
		}
	}

	// 3. Lifecycle of existing tracks
	keep := bt.live[:0]
	for _, track := range bt.live {
		if _, found := matchedTracks[track.id]; found {
			switch track.state {
			case TrackTentative:
				if track.hits >= bt.opts.MinHits {
					track.state = TrackConfirmed
					bt.stats.confirmed++
				}
			case TrackLost:
				track.state = TrackConfirmed
			}
			keep = append(keep, track)
			continue
		}
		track.markMissed()
		switch track.state {
		case TrackTentative:
			// Not confirmed in time: noise
			bt.stats.discarded++
			continue
		case TrackConfirmed:
			track.state = TrackLost
		}
		if track.state == TrackLost && track.noMatchTimes > bt.opts.MaxLost {
			track.state = TrackRemoved
			bt.removed = append(bt.removed, track)
			continue
		}
		keep = append(keep, track)
	}
	bt.live = keep

	// 4. Spawn new tracks for unmatched high confidence detections in detection order
	for _, detIdx := range highDetectionIndices {
		if _, found := matchedDetections[detIdx]; found {
			continue
		}
		track := newTrack(bt.nextID, dets[detIdx], bt.opts.MaxHistoryLen)
		bt.nextID++
		bt.stats.created++
		if track.hits >= bt.opts.MinHits {
			track.state = TrackConfirmed
			bt.stats.confirmed++
		}
		bt.live = append(bt.live, track)
	}
	// IDs are monotonic, new tracks are appended at the end so order holds
	return nil
}

// associate matches given tracks against subset of detections and updates matched tracks.
func (bt *ByteTracker) associate(
	tracks []*Track,
	detectionIndices []int,
	allDetections []Detection,
	minIoU float64,
	matchedTracks map[int]struct{},
	matchedDetections map[int]struct{},
) error {
	iouMatrix := createIoUMatrix(tracks, detectionIndices, allDetections)
	matches := bt.performMatching(iouMatrix, detectionIndices, allDetections, minIoU)
	for _, match := range matches {
		track := tracks[match[0]]
		originalDetIdx := detectionIndices[match[1]]
		if err := track.update(allDetections[originalDetIdx]); err != nil {
			return err
		}
		matchedTracks[track.id] = struct{}{}
		matchedDetections[originalDetIdx] = struct{}{}
	}
	return nil
}

// GetTrack returns live or removed track by ID
func (bt *ByteTracker) GetTrack(id int) (*Track, bool) {
	for _, track := range bt.live {
		if track.id == id {
			return track, true
		}
	}
	for _, track := range bt.removed {
		if track.id == id {
			return track, true
		}
	}
	return nil, false
}

// Tracks returns every track that was not discarded as noise (live and removed), sorted by ID.
// Tentative tracks are included only while they are alive.
func (bt *ByteTracker) Tracks() []*Track {
	all := make([]*Track, 0, len(bt.live)+len(bt.removed))
	all = append(all, bt.live...)
	all = append(all, bt.removed...)
	sort.Slice(all, func(i, j int) bool {
		return all[i].id < all[j].id
	})
	return all
}
