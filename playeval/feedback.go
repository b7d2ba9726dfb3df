package playeval

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	noDataSummary      = "No receiver data available for analysis"
	noDataImprovement  = "Insufficient data for analysis"
	missedNoteTemplate = "Had moments of excellent separation (frame %d) but was covered most of the time"
	keyMomentTemplate  = "Receiver %d wide open (OpenScore: %.1f)"
)

var gradeSummaries = map[string]string{
	"A": "Excellent decision-making with consistently open receivers",
	"B": "Good decision-making with several quality passing options",
	"C": "Average decision-making with moderate passing opportunities",
	"D": "Below average decision-making, receivers often covered",
	"F": "Poor decision-making, limited open passing options",
}

// Thresholds of feedback texts, applied to receiver means
const (
	veryOpenMean       = 70.0
	coveredMean        = 40.0
	eliteMean          = 85.0
	consistentSpread   = 15.0
	inconsistentSpread = 30.0
	jumpyReceiverStd   = 25.0
	meanRangeWarning   = 40.0
	lowAverage         = 50.0
	goodAverage        = 60.0
	excellentAverage   = 80.0
)

// writeFeedback fills templated texts from statistics of a non-empty summary
func writeFeedback(summary *PlaySummary, means []float64) {
	summary.Summary = gradeSummaries[summary.OverallGrade]

	avg := summary.Statistics.AvgOpenScore
	spread := stat.PopStdDev(means, nil)
	maxMean := floats.Max(means)
	minMean := floats.Min(means)
	half := float64(len(means)) * 0.5

	veryOpen, covered := 0, 0
	for _, m := range means {
		if m >= veryOpenMean {
			veryOpen++
		}
		if m < coveredMean {
			covered++
		}
	}

	if float64(veryOpen) > half {
		summary.Strengths = append(summary.Strengths, "Multiple receivers getting separation from defenders")
	}
	if len(means) > 1 && spread < consistentSpread {
		summary.Strengths = append(summary.Strengths, "Consistent receiver performance across all options")
	}
	if maxMean >= eliteMean {
		summary.Strengths = append(summary.Strengths, fmt.Sprintf("At least one receiver consistently wide open (OpenScore: %.1f)", maxMean))
	}

	if float64(covered) > half {
		summary.Improvements = append(summary.Improvements, "Majority of receivers struggling to get open")
	}
	if spread > inconsistentSpread {
		summary.Improvements = append(summary.Improvements, "High variance in receiver openness - need better read progression")
	}
	if n := len(summary.MissedOpportunities); n > 0 {
		summary.Improvements = append(summary.Improvements, fmt.Sprintf("%d receiver(s) had open windows that were not exploited", n))
	}

	if avg < lowAverage {
		summary.Recommendations = append(summary.Recommendations,
			"Focus on reading defensive coverage pre-snap to identify potential openings",
			"Work with receivers on creating separation earlier in routes",
		)
	}
	if maxMean-minMean > meanRangeWarning {
		summary.Recommendations = append(summary.Recommendations, "Large variance in receiver openness detected - prioritize reads to most open receivers")
	}
	for _, rs := range summary.ReceiverStats {
		if rs.StdDev > jumpyReceiverStd {
			summary.Recommendations = append(summary.Recommendations,
				fmt.Sprintf("Receiver %d shows inconsistent separation - timing and route adjustments may help", rs.TrackID))
			break
		}
	}
	switch {
	case avg >= excellentAverage:
		summary.Recommendations = append(summary.Recommendations, "Excellent receiver separation - maintain timing and trust your reads")
	case avg >= goodAverage:
		summary.Recommendations = append(summary.Recommendations, "Good foundation - focus on exploiting highest OpenScore options earlier in progressions")
	}
	summary.Recommendations = append(summary.Recommendations, "Continue analyzing game film to recognize coverage schemes faster")
}
