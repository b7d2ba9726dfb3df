package mot

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// TrackState is lifecycle state of a track
type TrackState uint8

const (
	// TrackTentative is a freshly spawned track waiting for confirmation
	TrackTentative TrackState = iota
	// TrackConfirmed is a track matched in enough consecutive frames
	TrackConfirmed
	// TrackLost is a confirmed track which was not matched in the latest frame(s)
	TrackLost
	// TrackRemoved is a track evicted from matching. Its history is kept for output
	TrackRemoved
)

func (s TrackState) String() string {
	switch s {
	case TrackTentative:
		return "tentative"
	case TrackConfirmed:
		return "confirmed"
	case TrackLost:
		return "lost"
	case TrackRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

func (s TrackState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *TrackState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "tentative":
		*s = TrackTentative
	case "confirmed":
		*s = TrackConfirmed
	case "lost":
		*s = TrackLost
	case "removed":
		*s = TrackRemoved
	default:
		return errors.Errorf("unknown track state %q", string(text))
	}
	return nil
}

// HistoryPoint is one observation of a track
type HistoryPoint struct {
	FrameID    int
	BBox       Rectangle
	Confidence float64
}

// Track is a tracked object using 8-D Kalman filter for full bounding box dynamics.
// State vector: [cx, cy, w, h, vx, vy, vw, vh] - center position, size, and velocities.
type Track struct {
	id            int
	class         ObjectClass
	classVotes    map[ObjectClass]float64
	state         TrackState
	history       []HistoryPoint
	maxHistoryLen int
	predictedBBox Rectangle
	hits          int
	noMatchTimes  int
	tracker       *kalman_filter.KalmanBBox
}

// newTrack creates a new tentative track from a detection. Time step is one frame.
func newTrack(id int, det Detection, maxHistoryLen int) *Track {
	bbox := det.BBox
	center := bbox.Center()

	// Kalman filter props. Zero control input gives constant velocity model
	uCx := 0.0
	uCy := 0.0
	uW := 0.0
	uH := 0.0
	stdDevA := 2.0
	stdDevMCx := 0.1
	stdDevMCy := 0.1
	stdDevMW := 0.1
	stdDevMH := 0.1
	kf := kalman_filter.NewKalmanBBox(
		1.0, uCx, uCy, uW, uH,
		stdDevA, stdDevMCx, stdDevMCy, stdDevMW, stdDevMH,
		kalman_filter.WithStateBBox(center.X, center.Y, bbox.Width, bbox.Height),
	)

	track := Track{
		id:            id,
		class:         det.Class,
		classVotes:    map[ObjectClass]float64{det.Class: det.Confidence},
		state:         TrackTentative,
		history:       make([]HistoryPoint, 0, 64),
		maxHistoryLen: maxHistoryLen,
		predictedBBox: bbox,
		hits:          1,
		noMatchTimes:  0,
		tracker:       kf,
	}
	track.history = append(track.history, HistoryPoint{FrameID: det.FrameID, BBox: bbox, Confidence: det.Confidence})
	return &track
}

// ID returns track's identifier
func (track *Track) ID() int {
	return track.id
}

// Class returns current class label. It does not change after confirmation
func (track *Track) Class() ObjectClass {
	return track.class
}

// State returns lifecycle state
func (track *Track) State() TrackState {
	return track.state
}

// GetBBox returns last observed bounding box
func (track *Track) GetBBox() Rectangle {
	return track.history[len(track.history)-1].BBox
}

// GetPredictedBBox returns predicted bounding box from Kalman filter
func (track *Track) GetPredictedBBox() Rectangle {
	return track.predictedBBox
}

// LastSeen returns last observation
func (track *Track) LastSeen() HistoryPoint {
	return track.history[len(track.history)-1]
}

// FirstSeen returns first retained observation
func (track *Track) FirstSeen() HistoryPoint {
	return track.history[0]
}

// GetHistory returns copy of track's observations in frame order
func (track *Track) GetHistory() []HistoryPoint {
	cp := make([]HistoryPoint, len(track.history))
	copy(cp, track.history)
	return cp
}

// GetRecentHistory returns copy of at most n latest observations
func (track *Track) GetRecentHistory(n int) []HistoryPoint {
	if n > len(track.history) || n < 0 {
		n = len(track.history)
	}
	cp := make([]HistoryPoint, n)
	copy(cp, track.history[len(track.history)-n:])
	return cp
}

// PredictNextPosition executes Kalman filter prediction step
func (track *Track) PredictNextPosition() {
	track.tracker.Predict()
	cx, cy, w, h := track.tracker.GetState()
	track.predictedBBox = Rectangle{
		X:      cx - w/2.0,
		Y:      cy - h/2.0,
		Width:  w,
		Height: h,
	}
}

// update applies matched detection: Kalman correction, history append and class voting.
// Raw detection bbox goes into history, smoothing happens in the filter only.
func (track *Track) update(det Detection) error {
	center := det.BBox.Center()
	err := track.tracker.Update(center.X, center.Y, det.BBox.Width, det.BBox.Height)
	if err != nil {
		return errors.Wrapf(err, "can't update kalman filter of track %d", track.id)
	}
	track.history = append(track.history, HistoryPoint{FrameID: det.FrameID, BBox: det.BBox, Confidence: det.Confidence})
	if track.maxHistoryLen > 0 && len(track.history) > track.maxHistoryLen {
		track.history = track.history[len(track.history)-track.maxHistoryLen:]
	}
	if track.state == TrackTentative {
		track.classVotes[det.Class] += det.Confidence
		track.class = track.leadingClass()
	}
	track.hits++
	track.noMatchTimes = 0
	return nil
}

// leadingClass returns class with the highest accumulated confidence. Ties go to lower class value
func (track *Track) leadingClass() ObjectClass {
	best := track.class
	bestVote := -1.0
	for _, class := range AllClasses() {
		vote, ok := track.classVotes[class]
		if ok && vote > bestVote {
			best = class
			bestVote = vote
		}
	}
	return best
}

// markMissed registers frame without match
func (track *Track) markMissed() {
	track.noMatchTimes++
	track.hits = 0
}

// Snapshot returns immutable view of track for given frame
func (track *Track) Snapshot(frameID int) TrackSnapshot {
	last := track.LastSeen()
	return TrackSnapshot{
		TrackID:      track.id,
		Class:        track.class,
		State:        track.state,
		BBox:         last.BBox,
		Confidence:   last.Confidence,
		LastFrameID:  last.FrameID,
		Matched:      last.FrameID == frameID,
		Hits:         track.hits,
		NoMatchTimes: track.noMatchTimes,
	}
}

// TrackSnapshot is a copy of track state after processing one frame
type TrackSnapshot struct {
	TrackID     int
	Class       ObjectClass
	State       TrackState
	BBox        Rectangle
	Confidence  float64
	LastFrameID int
	// Matched is true when track received detection in the snapshot frame
	Matched      bool
	Hits         int
	NoMatchTimes int
}

// Visible reports whether snapshot is a confirmed track observed in its frame
func (s TrackSnapshot) Visible() bool {
	return s.Matched && s.State == TrackConfirmed
}
