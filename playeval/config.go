package playeval

import (
	"math"

	"github.com/pkg/errors"
)

// GradeThresholds are minimal overall scores for letter grades. Anything below D is F
type GradeThresholds struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
	D float64 `json:"d"`
}

// Grade maps overall score to letter
func (g GradeThresholds) Grade(score float64) string {
	switch {
	case score >= g.A:
		return "A"
	case score >= g.B:
		return "B"
	case score >= g.C:
		return "C"
	case score >= g.D:
		return "D"
	default:
		return "F"
	}
}

// GradeNotAvailable is reported when no receiver was scored
const GradeNotAvailable = "N/A"

// Config holds aggregation thresholds
type Config struct {
	// Peak score at which receiver counts as clearly open
	ClearlyOpen float64
	// Receiver is a missed opportunity when its mean is below ClearlyOpen - MissedMargin
	MissedMargin float64
	// Minimal score of a key moment
	Notable float64
	// Minimal distance in frames between accepted key moments
	KeyMomentMinGap int
	// Maximum number of reported key moments, zero means unlimited
	MaxKeyMoments int
	// Number of reported best options
	BestOptions int
	// Share of best option mean in overall score, the rest is decision quality
	BestOptionWeight float64
	Grades           GradeThresholds
}

// DefaultConfig returns default thresholds
func DefaultConfig() Config {
	return Config{
		ClearlyOpen:      75,
		MissedMargin:     20,
		Notable:          80,
		KeyMomentMinGap:  15,
		MaxKeyMoments:    5,
		BestOptions:      3,
		BestOptionWeight: 0.5,
		Grades: GradeThresholds{
			A: 90,
			B: 75,
			C: 60,
			D: 40,
		},
	}
}

// ErrInvalidConfig is returned for negative, NaN or inconsistent thresholds
var ErrInvalidConfig = errors.New("invalid aggregation config")

func validScore(name string, value float64) error {
	if math.IsNaN(value) || value < 0 || value > 100 {
		return errors.Wrapf(ErrInvalidConfig, "%s must be in [0, 100], got %v", name, value)
	}
	return nil
}

// Validate rejects unusable thresholds
func (c Config) Validate() error {
	scores := []struct {
		name  string
		value float64
	}{
		{"clearly_open", c.ClearlyOpen},
		{"missed_margin", c.MissedMargin},
		{"notable", c.Notable},
		{"grades.a", c.Grades.A},
		{"grades.b", c.Grades.B},
		{"grades.c", c.Grades.C},
		{"grades.d", c.Grades.D},
	}
	for _, s := range scores {
		if err := validScore(s.name, s.value); err != nil {
			return err
		}
	}
	if !(c.Grades.A > c.Grades.B && c.Grades.B > c.Grades.C && c.Grades.C > c.Grades.D) {
		return errors.Wrapf(ErrInvalidConfig, "grade thresholds must be strictly decreasing, got %+v", c.Grades)
	}
	if c.KeyMomentMinGap < 0 {
		return errors.Wrapf(ErrInvalidConfig, "key_moment_min_gap must be non-negative, got %d", c.KeyMomentMinGap)
	}
	if c.MaxKeyMoments < 0 {
		return errors.Wrapf(ErrInvalidConfig, "max_key_moments must be non-negative, got %d", c.MaxKeyMoments)
	}
	if c.BestOptions < 1 {
		return errors.Wrapf(ErrInvalidConfig, "best_options must be positive, got %d", c.BestOptions)
	}
	if math.IsNaN(c.BestOptionWeight) || c.BestOptionWeight < 0 || c.BestOptionWeight > 1 {
		return errors.Wrapf(ErrInvalidConfig, "best_option_weight must be in [0, 1], got %v", c.BestOptionWeight)
	}
	return nil
}
