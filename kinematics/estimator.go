package kinematics

import (
	"math"

	"github.com/LdDl/openscore-go/mot"
	"github.com/pkg/errors"
)

// Config holds scale and smoothing parameters
type Config struct {
	// Frames per second of the source video
	FPS float64
	// Pixel to yard conversion factor
	YardsPerPixel float64
	// EMA factor in (0, 1]. 1 disables smoothing
	Smoothing float64
}

// DefaultConfig returns parameters for 30 fps broadcast footage
func DefaultConfig() Config {
	return Config{
		FPS:           30.0,
		YardsPerPixel: 0.05,
		Smoothing:     0.5,
	}
}

// ErrInvalidConfig is returned for unusable scale or smoothing parameters
var ErrInvalidConfig = errors.New("invalid kinematics config")

// Validate checks that parameters are finite and in range
func (c Config) Validate() error {
	if math.IsNaN(c.FPS) || math.IsInf(c.FPS, 0) || c.FPS <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "fps must be positive, got %v", c.FPS)
	}
	if math.IsNaN(c.YardsPerPixel) || math.IsInf(c.YardsPerPixel, 0) || c.YardsPerPixel <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "yards_per_pixel must be positive, got %v", c.YardsPerPixel)
	}
	if math.IsNaN(c.Smoothing) || c.Smoothing <= 0 || c.Smoothing > 1 {
		return errors.Wrapf(ErrInvalidConfig, "smoothing must be in (0, 1], got %v", c.Smoothing)
	}
	return nil
}

// FieldPosition converts center of bounding box into field coordinates (yards)
func (c Config) FieldPosition(bbox mot.Rectangle) Vector {
	center := bbox.Center()
	return Vector{X: center.X * c.YardsPerPixel, Y: center.Y * c.YardsPerPixel}
}

// Sample is velocity estimate of a track at given frame
type Sample struct {
	TrackID  int     `json:"track_id"`
	FrameID  int     `json:"frame_id"`
	Velocity Vector  `json:"velocity"`
	Speed    float64 `json:"speed"`
}

// Estimator derives per-track velocity from track history.
// The only state it owns is the smoothed velocity of every track.
// It is not safe for concurrent use.
type Estimator struct {
	cfg      Config
	smoothed map[int]Vector
}

// NewEstimator creates estimator. Config is expected to be validated already
func NewEstimator(cfg Config) *Estimator {
	return &Estimator{
		cfg:      cfg,
		smoothed: make(map[int]Vector),
	}
}

// Config returns estimator parameters
func (e *Estimator) Config() Config {
	return e.cfg
}

// RawVelocity returns displacement between two most recent observations divided by elapsed time.
// Less than two observations gives zero vector.
func RawVelocity(cfg Config, history []mot.HistoryPoint) Vector {
	if len(history) < 2 {
		return Vector{}
	}
	prev := history[len(history)-2]
	last := history[len(history)-1]
	frames := last.FrameID - prev.FrameID
	if frames <= 0 {
		return Vector{}
	}
	elapsed := float64(frames) / cfg.FPS
	displacement := cfg.FieldPosition(last.BBox).Sub(cfg.FieldPosition(prev.BBox))
	return displacement.Scale(1.0 / elapsed)
}

// Update recomputes velocity of the track from its history and folds it into the moving average.
// Frame of the sample is the frame of the latest observation.
func (e *Estimator) Update(trackID int, history []mot.HistoryPoint) Sample {
	sample := Sample{TrackID: trackID}
	if len(history) > 0 {
		sample.FrameID = history[len(history)-1].FrameID
	}
	raw := RawVelocity(e.cfg, history)
	prev, seeded := e.smoothed[trackID]
	var current Vector
	switch {
	case seeded:
		current = raw.Scale(e.cfg.Smoothing).Add(prev.Scale(1 - e.cfg.Smoothing))
	case !raw.IsZero():
		// First non-zero estimate seeds the average
		current = raw
	}
	if seeded || !raw.IsZero() {
		e.smoothed[trackID] = current
	}
	sample.Velocity = current
	sample.Speed = current.Norm()
	return sample
}

// Velocity returns smoothed velocity of the track. Unknown track has zero velocity
func (e *Estimator) Velocity(trackID int) Vector {
	return e.smoothed[trackID]
}

// Forget drops smoothing state of the track
func (e *Estimator) Forget(trackID int) {
	delete(e.smoothed, trackID)
}

// Len returns number of tracks with smoothing state
func (e *Estimator) Len() int {
	return len(e.smoothed)
}
