package openscore

import (
	"math"

	"github.com/LdDl/openscore-go/mot"
	"github.com/pkg/errors"
)

// Weights of the score components. They must be non-negative and need not sum to 1
type Weights struct {
	Distance   float64 `json:"distance"`
	Velocity   float64 `json:"velocity"`
	Separation float64 `json:"separation"`
	Coverage   float64 `json:"coverage"`
}

// DefaultWeights returns 0.4/0.25/0.25/0.1
func DefaultWeights() Weights {
	return Weights{
		Distance:   0.4,
		Velocity:   0.25,
		Separation: 0.25,
		Coverage:   0.1,
	}
}

// Config holds engine parameters. Distances are in yards, speeds in yards per second
type Config struct {
	Weights Weights
	// Distance to nearest defender at which distance component saturates
	MaxDistance float64
	// Closing speed which drives velocity component to zero
	MaxClosingSpeed float64
	// Distance to second nearest defender at which separation component saturates
	SeparationDistance float64
	// Defenders closer than this radius count as covering the receiver
	CoverageRadius float64
	// Subtracted from coverage component in man coverage
	ManPenalty float64
	// Added to coverage component in zone coverage
	ZoneBonus float64
	// Minimal cosine between defender and receiver headings to call it man coverage
	ManAlignment float64
	// Minimal speed of both players for heading to be meaningful
	MinHeadingSpeed float64
	ReceiverClasses []mot.ObjectClass
	DefenderClasses []mot.ObjectClass
}

// DefaultConfig returns default engine parameters
func DefaultConfig() Config {
	return Config{
		Weights:            DefaultWeights(),
		MaxDistance:        10.0,
		MaxClosingSpeed:    8.0,
		SeparationDistance: 10.0,
		CoverageRadius:     5.0,
		ManPenalty:         0.1,
		ZoneBonus:          0.1,
		ManAlignment:       0.7,
		MinHeadingSpeed:    0.5,
		ReceiverClasses:    []mot.ObjectClass{mot.ClassReceiver},
		DefenderClasses:    []mot.ObjectClass{mot.ClassDefender},
	}
}

// ErrInvalidConfig is returned for negative, NaN or inconsistent parameters
var ErrInvalidConfig = errors.New("invalid openscore config")

func validNonNegative(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return errors.Wrapf(ErrInvalidConfig, "%s must be a non-negative number, got %v", name, value)
	}
	return nil
}

func validPositive(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "%s must be positive, got %v", name, value)
	}
	return nil
}

// Validate rejects unusable parameters
func (c Config) Validate() error {
	checks := []struct {
		name     string
		value    float64
		positive bool
	}{
		{"weights.distance", c.Weights.Distance, false},
		{"weights.velocity", c.Weights.Velocity, false},
		{"weights.separation", c.Weights.Separation, false},
		{"weights.coverage", c.Weights.Coverage, false},
		{"max_distance", c.MaxDistance, true},
		{"max_closing_speed", c.MaxClosingSpeed, true},
		{"separation_distance", c.SeparationDistance, true},
		{"coverage_radius", c.CoverageRadius, true},
		{"man_penalty", c.ManPenalty, false},
		{"zone_bonus", c.ZoneBonus, false},
		{"min_heading_speed", c.MinHeadingSpeed, false},
	}
	for _, check := range checks {
		var err error
		if check.positive {
			err = validPositive(check.name, check.value)
		} else {
			err = validNonNegative(check.name, check.value)
		}
		if err != nil {
			return err
		}
	}
	if c.ManPenalty > 1 || c.ZoneBonus > 1 {
		return errors.Wrap(ErrInvalidConfig, "man_penalty and zone_bonus must not exceed 1")
	}
	if math.IsNaN(c.ManAlignment) || c.ManAlignment < -1 || c.ManAlignment > 1 {
		return errors.Wrapf(ErrInvalidConfig, "man_alignment must be in [-1, 1], got %v", c.ManAlignment)
	}
	if len(c.ReceiverClasses) == 0 {
		return errors.Wrap(ErrInvalidConfig, "receiver_classes must not be empty")
	}
	if len(c.DefenderClasses) == 0 {
		return errors.Wrap(ErrInvalidConfig, "defender_classes must not be empty")
	}
	for _, rc := range c.ReceiverClasses {
		for _, dc := range c.DefenderClasses {
			if rc == dc {
				return errors.Wrapf(ErrInvalidConfig, "class %s can't be both receiver and defender", rc)
			}
		}
	}
	return nil
}

// IsReceiver reports whether tracks of the class are scored
func (c Config) IsReceiver(class mot.ObjectClass) bool {
	return containsClass(c.ReceiverClasses, class)
}

// IsDefender reports whether tracks of the class act as defenders
func (c Config) IsDefender(class mot.ObjectClass) bool {
	return containsClass(c.DefenderClasses, class)
}

func containsClass(classes []mot.ObjectClass, class mot.ObjectClass) bool {
	for _, c := range classes {
		if c == class {
			return true
		}
	}
	return false
}
