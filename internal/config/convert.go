package config

import (
	"fmt"

	"github.com/LdDl/openscore-go/kinematics"
	"github.com/LdDl/openscore-go/mot"
	"github.com/LdDl/openscore-go/openscore"
	"github.com/LdDl/openscore-go/playeval"
)

// TrackerOptions converts [tracker] section into tracker parameters.
func (c Config) TrackerOptions() (mot.ByteTrackerOptions, error) {
	algorithm, err := mot.ParseMatchingAlgorithm(c.Tracker.Algorithm)
	if err != nil {
		return mot.ByteTrackerOptions{}, fmt.Errorf("tracker.algorithm: %w", err)
	}
	return mot.ByteTrackerOptions{
		HighThresh:    c.Tracker.HighThreshold,
		LowThresh:     c.Tracker.LowThreshold,
		MatchIoU:      c.Tracker.MatchIoU,
		LowMatchIoU:   c.Tracker.LowMatchIoU,
		MaxLost:       c.Tracker.MaxLost,
		MinHits:       c.Tracker.MinHits,
		MaxHistoryLen: c.Tracker.MaxHistory,
		Algorithm:     algorithm,
	}, nil
}

// KinematicsConfig combines [kinematics] with scale of the video. Non-positive fps
// falls back to [video] fps.
func (c Config) KinematicsConfig(fps float64) kinematics.Config {
	if fps <= 0 {
		fps = c.Video.FPS
	}
	return kinematics.Config{
		FPS:           fps,
		YardsPerPixel: c.Video.YardsPerPixel,
		Smoothing:     c.Kinematics.Smoothing,
	}
}

// OpenScoreConfig converts [openscore] section into engine parameters.
func (c Config) OpenScoreConfig() (openscore.Config, error) {
	receivers, err := parseClasses(c.OpenScore.ReceiverClasses)
	if err != nil {
		return openscore.Config{}, fmt.Errorf("openscore.receiver_classes: %w", err)
	}
	defenders, err := parseClasses(c.OpenScore.DefenderClasses)
	if err != nil {
		return openscore.Config{}, fmt.Errorf("openscore.defender_classes: %w", err)
	}
	return openscore.Config{
		Weights: openscore.Weights{
			Distance:   c.OpenScore.Weights.Distance,
			Velocity:   c.OpenScore.Weights.Velocity,
			Separation: c.OpenScore.Weights.Separation,
			Coverage:   c.OpenScore.Weights.Coverage,
		},
		MaxDistance:        c.OpenScore.MaxDistance,
		MaxClosingSpeed:    c.OpenScore.MaxClosingSpeed,
		SeparationDistance: c.OpenScore.SeparationDistance,
		CoverageRadius:     c.OpenScore.CoverageRadius,
		ManPenalty:         c.OpenScore.ManPenalty,
		ZoneBonus:          c.OpenScore.ZoneBonus,
		ManAlignment:       c.OpenScore.ManAlignment,
		MinHeadingSpeed:    c.OpenScore.MinHeadingSpeed,
		ReceiverClasses:    receivers,
		DefenderClasses:    defenders,
	}, nil
}

// FeedbackConfig converts [feedback] section into aggregation thresholds.
func (c Config) FeedbackConfig() playeval.Config {
	return playeval.Config{
		ClearlyOpen:      c.Feedback.ClearlyOpen,
		MissedMargin:     c.Feedback.MissedMargin,
		Notable:          c.Feedback.Notable,
		KeyMomentMinGap:  c.Feedback.KeyMomentMinGap,
		MaxKeyMoments:    c.Feedback.MaxKeyMoments,
		BestOptions:      c.Feedback.BestOptions,
		BestOptionWeight: c.Feedback.BestOptionWeight,
		Grades: playeval.GradeThresholds{
			A: c.Feedback.Grades.A,
			B: c.Feedback.Grades.B,
			C: c.Feedback.Grades.C,
			D: c.Feedback.Grades.D,
		},
	}
}

func parseClasses(names []string) ([]mot.ObjectClass, error) {
	classes := make([]mot.ObjectClass, 0, len(names))
	for _, name := range names {
		class, err := mot.ParseObjectClass(name)
		if err != nil {
			return nil, err
		}
		classes = append(classes, class)
	}
	return classes, nil
}
