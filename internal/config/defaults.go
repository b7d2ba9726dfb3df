package config

import (
	"github.com/LdDl/openscore-go/kinematics"
	"github.com/LdDl/openscore-go/mot"
	"github.com/LdDl/openscore-go/openscore"
	"github.com/LdDl/openscore-go/playeval"
)

// Default returns the configuration used when no file overrides it.
func Default() Config {
	tracker := mot.DefaultByteTrackerOptions()
	kin := kinematics.DefaultConfig()
	score := openscore.DefaultConfig()
	feedback := playeval.DefaultConfig()

	return Config{
		Video: Video{
			FPS:           kin.FPS,
			YardsPerPixel: kin.YardsPerPixel,
			Width:         1920,
			Height:        1080,
		},
		Tracker: Tracker{
			HighThreshold: tracker.HighThresh,
			LowThreshold:  tracker.LowThresh,
			MatchIoU:      tracker.MatchIoU,
			LowMatchIoU:   tracker.LowMatchIoU,
			MaxLost:       tracker.MaxLost,
			MinHits:       tracker.MinHits,
			MaxHistory:    tracker.MaxHistoryLen,
			Algorithm:     tracker.Algorithm.String(),
		},
		Kinematics: Kinematics{
			Smoothing: kin.Smoothing,
		},
		OpenScore: OpenScore{
			Weights: Weights{
				Distance:   score.Weights.Distance,
				Velocity:   score.Weights.Velocity,
				Separation: score.Weights.Separation,
				Coverage:   score.Weights.Coverage,
			},
			MaxDistance:        score.MaxDistance,
			MaxClosingSpeed:    score.MaxClosingSpeed,
			SeparationDistance: score.SeparationDistance,
			CoverageRadius:     score.CoverageRadius,
			ManPenalty:         score.ManPenalty,
			ZoneBonus:          score.ZoneBonus,
			ManAlignment:       score.ManAlignment,
			MinHeadingSpeed:    score.MinHeadingSpeed,
			ReceiverClasses:    classNames(score.ReceiverClasses),
			DefenderClasses:    classNames(score.DefenderClasses),
		},
		Feedback: Feedback{
			ClearlyOpen:      feedback.ClearlyOpen,
			MissedMargin:     feedback.MissedMargin,
			Notable:          feedback.Notable,
			KeyMomentMinGap:  feedback.KeyMomentMinGap,
			MaxKeyMoments:    feedback.MaxKeyMoments,
			BestOptions:      feedback.BestOptions,
			BestOptionWeight: feedback.BestOptionWeight,
			Grades: Grades{
				A: feedback.Grades.A,
				B: feedback.Grades.B,
				C: feedback.Grades.C,
				D: feedback.Grades.D,
			},
		},
		Pipeline: Pipeline{
			ScoreWorkers:    4,
			MaxFrameGap:     900,
			DetectorCommand: []string{},
		},
		Server: Server{
			Bind:             "127.0.0.1:8080",
			Workers:          2,
			QueueSize:        16,
			MaxUploadMB:      64,
			RetentionMinutes: 60,
			SweepSeconds:     60,
		},
		Store: Store{
			Driver: "memory",
			Path:   "",
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
		Enrichment: Enrichment{
			Enabled:        false,
			TimeoutSeconds: 10,
		},
	}
}

func classNames(classes []mot.ObjectClass) []string {
	names := make([]string, 0, len(classes))
	for _, class := range classes {
		names = append(names, class.String())
	}
	return names
}
