package openscore

import (
	"math"
)

// Components of the score, each in [0, 1]
type Components struct {
	Distance   float64 `json:"distance"`
	Velocity   float64 `json:"velocity"`
	Separation float64 `json:"separation"`
	Coverage   float64 `json:"coverage"`
}

// Sample is openness of one receiver in one frame
type Sample struct {
	FrameID    int        `json:"frame_id"`
	TrackID    int        `json:"track_id"`
	Score      float64    `json:"score"`
	Components Components `json:"components"`
	// Diagnostics
	NearestDefenderID int            `json:"nearest_defender_id"`
	NearestDistance   float64        `json:"nearest_distance"`
	ClosingSpeed      float64        `json:"closing_speed"`
	DefendersNearby   int            `json:"defenders_nearby"`
	Coverage          CoverageScheme `json:"coverage_scheme"`
}

// Engine scores receivers against defenders. It holds no per-frame state
// and is safe for concurrent use.
type Engine struct {
	cfg    Config
	policy Policy
}

// NewEngine creates engine. Nil policy means DefaultPolicy
func NewEngine(cfg Config, policy Policy) *Engine {
	if policy == nil {
		policy = NewDefaultPolicy(cfg)
	}
	return &Engine{
		cfg:    cfg,
		policy: policy,
	}
}

// Config returns engine parameters
func (e *Engine) Config() Config {
	return e.cfg
}

// ScoreFrame scores every receiver of the scene in scene order.
// Frame without defenders gives no samples.
func (e *Engine) ScoreFrame(scene Scene) []Sample {
	if len(scene.Defenders) == 0 || len(scene.Receivers) == 0 {
		return nil
	}
	samples := make([]Sample, 0, len(scene.Receivers))
	for _, receiver := range scene.Receivers {
		samples = append(samples, e.scoreReceiver(scene, receiver))
	}
	return samples
}

func (e *Engine) scoreReceiver(scene Scene, receiver Player) Sample {
	near := neighbors(receiver, scene.Defenders)
	nearest := near[0]

	closing := ClosingSpeed(receiver, nearest.Player)
	second, hasSecond := 0.0, len(near) > 1
	if hasSecond {
		second = near[1].Distance
	}
	nearby := make([]Neighbor, 0, len(near))
	for _, n := range near {
		if n.Distance < e.cfg.CoverageRadius {
			nearby = append(nearby, n)
		}
	}
	ctx := CoverageContext{
		Receiver:      receiver,
		Nearby:        nearby,
		MutualNearest: nearestReceiver(nearest.Player, scene.Receivers) == receiver.TrackID,
	}

	components := Components{
		Distance:   clamp01(e.policy.Distance(nearest.Distance)),
		Velocity:   clamp01(e.policy.Velocity(closing)),
		Separation: clamp01(e.policy.Separation(second, hasSecond)),
	}
	coverage, scheme := e.policy.Coverage(ctx)
	components.Coverage = clamp01(coverage)

	return Sample{
		FrameID:           scene.FrameID,
		TrackID:           receiver.TrackID,
		Score:             Combine(e.cfg.Weights, components),
		Components:        components,
		NearestDefenderID: nearest.TrackID,
		NearestDistance:   nearest.Distance,
		ClosingSpeed:      closing,
		DefendersNearby:   len(nearby),
		Coverage:          scheme,
	}
}

// Combine returns 100 x weighted sum of components clamped to [0, 100]
func Combine(w Weights, c Components) float64 {
	score := 100 * (w.Distance*c.Distance + w.Velocity*c.Velocity + w.Separation*c.Separation + w.Coverage*c.Coverage)
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(100, score))
}
