package result

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/LdDl/openscore-go/mot"
	"github.com/LdDl/openscore-go/openscore"
	"github.com/LdDl/openscore-go/playeval"
	"github.com/pkg/errors"
)

// SchemaVersion is version of the result layout written by this package
const SchemaVersion = 1

// ErrUnsupportedVersion is returned when decoding result of unknown schema version
var ErrUnsupportedVersion = errors.New("unsupported result schema version")

// Video is field-of-play scale metadata
type Video struct {
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	FPS           float64 `json:"fps"`
	YardsPerPixel float64 `json:"yards_per_pixel"`
	TotalFrames   int     `json:"total_frames"`
}

// Player is a confirmed track observed in the frame
type Player struct {
	TrackID    int                   `json:"track_id"`
	BBox       [4]float64            `json:"bbox"`
	Class      mot.ObjectClass       `json:"class"`
	Confidence float64               `json:"confidence"`
	OpenScore  *float64              `json:"openscore,omitempty"`
	Components *openscore.Components `json:"components,omitempty"`
}

// Frame is one processed video frame. Gap holds reason when frames FrameID..LastFrameID
// were not processed.
type Frame struct {
	FrameID     int      `json:"frame_id"`
	LastFrameID int      `json:"last_frame_id,omitempty"`
	Gap         string   `json:"gap,omitempty"`
	Players     []Player `json:"players"`
}

// Track is lifetime information of one track
type Track struct {
	TrackID    int             `json:"track_id"`
	Class      mot.ObjectClass `json:"class"`
	State      mot.TrackState  `json:"state"`
	FirstFrame int             `json:"first_frame"`
	LastFrame  int             `json:"last_frame"`
	HistoryLen int             `json:"history_len"`
}

// TrackingSummary is tracker statistics
type TrackingSummary struct {
	FramesProcessed  int            `json:"frames_processed"`
	TracksCreated    int            `json:"tracks_created"`
	TracksConfirmed  int            `json:"tracks_confirmed"`
	TracksDiscarded  int            `json:"tracks_discarded"`
	TracksRemoved    int            `json:"tracks_removed"`
	TracksLive       int            `json:"tracks_live"`
	ByClass          map[string]int `json:"by_class"`
	AvgHistoryLength float64        `json:"avg_history_length"`
}

// Gap is run of skipped frames FrameID..LastFrameID (inclusive) sharing one reason
type Gap struct {
	FrameID     int    `json:"frame_id"`
	LastFrameID int    `json:"last_frame_id"`
	Reason      string `json:"reason"`
}

// Len returns number of frames in the gap
func (g Gap) Len() int {
	return g.LastFrameID - g.FrameID + 1
}

// Diagnostics counts input problems which did not stop processing
type Diagnostics struct {
	Gaps              []Gap `json:"gaps"`
	MalformedRecords  int   `json:"malformed_records"`
	InvalidDetections int   `json:"invalid_detections"`
	// DetectorError is the failure of the detector process which ended the stream
	DetectorError string `json:"detector_error,omitempty"`
}

// GapFrames returns number of frames covered by gaps
func (d Diagnostics) GapFrames() int {
	n := 0
	for _, g := range d.Gaps {
		n += g.Len()
	}
	return n
}

// Enrichment is optional free-text addition to the play summary
type Enrichment struct {
	Provider string `json:"provider"`
	Text     string `json:"text,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Result is complete output of one analyzed video
type Result struct {
	SchemaVersion   int                  `json:"schema_version"`
	Video           Video                `json:"video"`
	Frames          []Frame              `json:"frames"`
	Samples         []openscore.Sample   `json:"samples"`
	Tracks          []Track              `json:"tracks"`
	TrackingSummary TrackingSummary      `json:"tracking_summary"`
	Summary         playeval.PlaySummary `json:"summary"`
	Diagnostics     Diagnostics          `json:"diagnostics"`
	Enrichment      *Enrichment          `json:"enrichment,omitempty"`
}

// NewFrame assembles frame payload from track snapshots and openness samples of that frame
func NewFrame(frameID int, snapshots []mot.TrackSnapshot, samples []openscore.Sample) Frame {
	byTrack := make(map[int]openscore.Sample, len(samples))
	for _, s := range samples {
		byTrack[s.TrackID] = s
	}
	frame := Frame{
		FrameID: frameID,
		Players: make([]Player, 0, len(snapshots)),
	}
	for _, snap := range snapshots {
		if !snap.Visible() {
			continue
		}
		player := Player{
			TrackID:    snap.TrackID,
			BBox:       snap.BBox.XYXY(),
			Class:      snap.Class,
			Confidence: snap.Confidence,
		}
		if s, ok := byTrack[snap.TrackID]; ok {
			score := s.Score
			components := s.Components
			player.OpenScore = &score
			player.Components = &components
		}
		frame.Players = append(frame.Players, player)
	}
	return frame
}

// GapFrame is placeholder of frames first..last which were not processed
func GapFrame(first, last int, reason string) Frame {
	return Frame{
		FrameID:     first,
		LastFrameID: last,
		Gap:         reason,
		Players:     make([]Player, 0),
	}
}

// NewTracks describes every retained track
func NewTracks(tracks []*mot.Track) []Track {
	out := make([]Track, 0, len(tracks))
	for _, track := range tracks {
		out = append(out, Track{
			TrackID:    track.ID(),
			Class:      track.Class(),
			State:      track.State(),
			FirstFrame: track.FirstSeen().FrameID,
			LastFrame:  track.LastSeen().FrameID,
			HistoryLen: len(track.GetHistory()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackID < out[j].TrackID })
	return out
}

// NewTrackingSummary converts tracker statistics
func NewTrackingSummary(s mot.TrackingSummary) TrackingSummary {
	byClass := make(map[string]int, len(s.ByClass))
	for class, n := range s.ByClass {
		byClass[class.String()] = n
	}
	return TrackingSummary{
		FramesProcessed:  s.FramesProcessed,
		TracksCreated:    s.TracksCreated,
		TracksConfirmed:  s.TracksConfirmed,
		TracksDiscarded:  s.TracksDiscarded,
		TracksRemoved:    s.TracksRemoved,
		TracksLive:       s.TracksLive,
		ByClass:          byClass,
		AvgHistoryLength: s.AvgHistoryLength,
	}
}

// Encode writes result as indented JSON
func Encode(w io.Writer, r *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return errors.Wrap(err, "can't encode result")
	}
	return nil
}

// Decode reads result and checks its schema version
func Decode(rd io.Reader) (*Result, error) {
	var r Result
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, errors.Wrap(err, "can't decode result")
	}
	if r.SchemaVersion != SchemaVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "got %d, want %d", r.SchemaVersion, SchemaVersion)
	}
	return &r, nil
}
