package playeval

import (
	"fmt"
	"math"
	"sort"

	"github.com/LdDl/openscore-go/openscore"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// receiverSeries is score series of one receiver in frame order
type receiverSeries struct {
	trackID int
	frames  []int
	scores  []float64
}

// Aggregate builds play summary from openness samples.
// It is a pure function: same samples and meta always give the same summary.
func Aggregate(cfg Config, samples []openscore.Sample, meta Meta) PlaySummary {
	series := groupSeries(samples)
	summary := PlaySummary{
		ReceiverStats:       make([]ReceiverStats, 0, len(series)),
		BestOptions:         make([]BestOption, 0),
		MissedOpportunities: make([]MissedOpportunity, 0),
		KeyMoments:          make([]KeyMoment, 0),
		Strengths:           make([]string, 0),
		Improvements:        make([]string, 0),
		Recommendations:     make([]string, 0),
		Statistics: Statistics{
			ReceiversTracked: len(series),
			SamplesScored:    len(samples),
			TracksDetected:   meta.TracksDetected,
			FramesProcessed:  meta.FramesProcessed,
		},
	}
	if len(series) == 0 {
		summary.OverallGrade = GradeNotAvailable
		summary.Summary = noDataSummary
		summary.Improvements = append(summary.Improvements, noDataImprovement)
		return summary
	}

	for _, s := range series {
		summary.ReceiverStats = append(summary.ReceiverStats, receiverStats(s))
	}
	summary.BestOptions = bestOptions(summary.ReceiverStats, cfg.BestOptions)
	summary.MissedOpportunities = missedOpportunities(cfg, summary.ReceiverStats)
	summary.KeyMoments = keyMoments(cfg, series)

	means := make([]float64, len(summary.ReceiverStats))
	for i, rs := range summary.ReceiverStats {
		means[i] = rs.Mean
	}
	stats := &summary.Statistics
	stats.AvgOpenScore = stat.Mean(means, nil)
	stats.BestOptionMean = summary.BestOptions[0].Mean
	stats.MissedFraction = float64(len(summary.MissedOpportunities)) / float64(len(summary.ReceiverStats))
	stats.DecisionQuality = 0.5*stats.AvgOpenScore + 0.5*100*(1-stats.MissedFraction)

	overall := cfg.BestOptionWeight*stats.BestOptionMean + (1-cfg.BestOptionWeight)*stats.DecisionQuality
	summary.OverallScore = math.Max(0, math.Min(100, overall))
	summary.OverallGrade = cfg.Grades.Grade(summary.OverallScore)

	writeFeedback(&summary, means)
	return summary
}

// groupSeries splits samples per receiver. Receivers are ordered by track id, samples by frame
func groupSeries(samples []openscore.Sample) []receiverSeries {
	ordered := make([]openscore.Sample, len(samples))
	copy(ordered, samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].TrackID != ordered[j].TrackID {
			return ordered[i].TrackID < ordered[j].TrackID
		}
		return ordered[i].FrameID < ordered[j].FrameID
	})
	series := make([]receiverSeries, 0)
	for _, s := range ordered {
		if len(series) == 0 || series[len(series)-1].trackID != s.TrackID {
			series = append(series, receiverSeries{trackID: s.TrackID})
		}
		last := &series[len(series)-1]
		last.frames = append(last.frames, s.FrameID)
		last.scores = append(last.scores, s.Score)
	}
	return series
}

func receiverStats(s receiverSeries) ReceiverStats {
	mean, std := stat.PopMeanStdDev(s.scores, nil)
	variance := std * std
	peakIdx := floats.MaxIdx(s.scores)
	return ReceiverStats{
		TrackID:          s.trackID,
		Samples:          len(s.scores),
		FirstFrame:       s.frames[0],
		LastFrame:        s.frames[len(s.frames)-1],
		Mean:             mean,
		Peak:             s.scores[peakIdx],
		PeakFrame:        s.frames[peakIdx],
		Min:              floats.Min(s.scores),
		StdDev:           std,
		Consistency:      1 / (1 + variance/100),
		ConsistencyLabel: consistencyLabel(std),
	}
}

func consistencyLabel(std float64) string {
	switch {
	case std < 15:
		return "High"
	case std < 25:
		return "Moderate"
	default:
		return "Low"
	}
}

func receiverName(trackID int) string {
	return fmt.Sprintf("Receiver %d", trackID)
}

// bestOptions ranks receivers by mean desc, then peak desc, then track id asc
func bestOptions(stats []ReceiverStats, limit int) []BestOption {
	ranked := make([]ReceiverStats, len(stats))
	copy(ranked, stats)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Mean != ranked[j].Mean {
			return ranked[i].Mean > ranked[j].Mean
		}
		if ranked[i].Peak != ranked[j].Peak {
			return ranked[i].Peak > ranked[j].Peak
		}
		return ranked[i].TrackID < ranked[j].TrackID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	options := make([]BestOption, 0, len(ranked))
	for i, rs := range ranked {
		options = append(options, BestOption{
			Rank:        i + 1,
			TrackID:     rs.TrackID,
			Receiver:    receiverName(rs.TrackID),
			Mean:        rs.Mean,
			Peak:        rs.Peak,
			Consistency: rs.ConsistencyLabel,
		})
	}
	return options
}

func missedOpportunities(cfg Config, stats []ReceiverStats) []MissedOpportunity {
	missed := make([]MissedOpportunity, 0)
	for _, rs := range stats {
		if rs.Peak >= cfg.ClearlyOpen && rs.Mean < cfg.ClearlyOpen-cfg.MissedMargin {
			missed = append(missed, MissedOpportunity{
				TrackID:   rs.TrackID,
				Receiver:  receiverName(rs.TrackID),
				Peak:      rs.Peak,
				PeakFrame: rs.PeakFrame,
				Mean:      rs.Mean,
				Note:      fmt.Sprintf(missedNoteTemplate, rs.PeakFrame),
			})
		}
	}
	return missed
}

// localMaxima returns indices of peaks: strictly above previous sample and not below next one.
// Series ends compare against negative infinity.
func localMaxima(scores []float64) []int {
	peaks := make([]int, 0)
	for i, v := range scores {
		if i > 0 && !(v > scores[i-1]) {
			continue
		}
		if i < len(scores)-1 && v < scores[i+1] {
			continue
		}
		peaks = append(peaks, i)
	}
	return peaks
}

// keyMoments collects notable peaks of all receivers and thins them out by frame gap
func keyMoments(cfg Config, series []receiverSeries) []KeyMoment {
	candidates := make([]KeyMoment, 0)
	for _, s := range series {
		for _, idx := range localMaxima(s.scores) {
			if s.scores[idx] < cfg.Notable {
				continue
			}
			candidates = append(candidates, KeyMoment{
				FrameID:     s.frames[idx],
				TrackID:     s.trackID,
				Score:       s.scores[idx],
				Type:        "excellent_opportunity",
				Description: fmt.Sprintf(keyMomentTemplate, s.trackID, s.scores[idx]),
			})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].FrameID != candidates[j].FrameID {
			return candidates[i].FrameID < candidates[j].FrameID
		}
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].TrackID < candidates[j].TrackID
	})

	accepted := make([]KeyMoment, 0)
	for _, c := range candidates {
		if len(accepted) > 0 && c.FrameID-accepted[len(accepted)-1].FrameID < cfg.KeyMomentMinGap {
			continue
		}
		if len(accepted) > 0 && c.FrameID == accepted[len(accepted)-1].FrameID {
			continue
		}
		accepted = append(accepted, c)
	}
	if cfg.MaxKeyMoments > 0 && len(accepted) > cfg.MaxKeyMoments {
		// Keep the strongest moments, then restore frame order
		sort.SliceStable(accepted, func(i, j int) bool {
			return accepted[i].Score > accepted[j].Score
		})
		accepted = accepted[:cfg.MaxKeyMoments]
		sort.SliceStable(accepted, func(i, j int) bool {
			if accepted[i].FrameID != accepted[j].FrameID {
				return accepted[i].FrameID < accepted[j].FrameID
			}
			return accepted[i].TrackID < accepted[j].TrackID
		})
	}
	return accepted
}
