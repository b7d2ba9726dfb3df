package mot

import (
	"math"
	"sort"

	"github.com/arthurkushman/go-hungarian"
)

// SCALE_FACTOR quantizes IoU values before assignment so that equal overlaps compare exactly
const SCALE_FACTOR = 1_000_000.0

// createIoUMatrix is helper function to create IoU matrix: rows = tracks (predicted bbox), columns = detections.
func createIoUMatrix(tracks []*Track, detectionIndices []int, allDetections []Detection) [][]float64 {
	iouMatrix := make([][]float64, len(tracks))
	for i, track := range tracks {
		row := make([]float64, len(detectionIndices))
		predicted := track.GetPredictedBBox()
		for j, detIdx := range detectionIndices {
			row[j] = IoU(predicted, allDetections[detIdx].BBox)
		}
		iouMatrix[i] = row
	}
	return iouMatrix
}

// tieRanks ranks detections of the stage by confidence (desc) and then by original index (asc).
// Rank 0 is the preferred detection when overlaps are equal.
func tieRanks(detectionIndices []int, allDetections []Detection) []int {
	order := make([]int, len(detectionIndices))
	for j := range order {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool {
		da := allDetections[detectionIndices[order[a]]]
		db := allDetections[detectionIndices[order[b]]]
		if da.Confidence != db.Confidence {
			return da.Confidence > db.Confidence
		}
		return detectionIndices[order[a]] < detectionIndices[order[b]]
	})
	ranks := make([]int, len(detectionIndices))
	for rank, j := range order {
		ranks[j] = rank
	}
	return ranks
}

// performMatching is helper function to perform matching using Hungarian or Greedy algorithm.
// Returns: a slice of [2]int, where each element is {trackIndex, detectionIndexInDetectionIndices}.
// Every returned pair has IoU strictly above minIoU.
func (bt *ByteTracker) performMatching(
	iouMatrix [][]float64,
	detectionIndices []int,
	allDetections []Detection,
	minIoU float64,
) [][2]int {
	numTracks := len(iouMatrix)
	numDetections := len(detectionIndices)
	if numTracks == 0 || numDetections == 0 {
		return [][2]int{}
	}
	ranks := tieRanks(detectionIndices, allDetections)
	switch bt.opts.Algorithm {
	case MatchingAlgorithmGreedy:
		return performGreedyMatching(iouMatrix, ranks, minIoU)
	default:
		return performHungarianMatching(iouMatrix, ranks, minIoU)
	}
}

// overlapAccepted reports whether overlap exceeds the floor. Zero overlap is never a match
func overlapAccepted(iouVal, minIoU float64) bool {
	return iouVal > minIoU && iouVal > 0
}

// performHungarianMatching solves maximum weight assignment.
// Overlap dominates the weight; detection rank only separates exact ties.
func performHungarianMatching(iouMatrix [][]float64, ranks []int, minIoU float64) [][2]int {
	numTracks := len(iouMatrix)
	numDetections := len(ranks)

	// Each IoU quantum is worth more than the sum of all rank bonuses
	tieSlots := float64((numDetections + 1) * (numTracks + 1))

	// Rectangular matrix - pad to make it square. Padding is done with 0.0 values
	paddedSize := maxInt(numTracks, numDetections)
	paddedMatrix := make([][]float64, paddedSize)
	for i := 0; i < paddedSize; i++ {
		paddedMatrix[i] = make([]float64, paddedSize)
	}
	candidates := 0
	for i := 0; i < numTracks; i++ {
		for j := 0; j < numDetections; j++ {
			iouVal := iouMatrix[i][j]
			if !overlapAccepted(iouVal, minIoU) {
				continue
			}
			quantized := math.Round(iouVal * SCALE_FACTOR)
			paddedMatrix[i][j] = quantized*tieSlots + float64(numDetections-ranks[j])
			candidates++
		}
	}
	if candidates == 0 {
		return [][2]int{}
	}

	assignmentsMap := hungarian.SolveMax(paddedMatrix)

	matches := make([][2]int, 0, numTracks)
	for trackIndex := 0; trackIndex < numTracks; trackIndex++ {
		rowMap, ok := assignmentsMap[trackIndex]
		if !ok {
			continue
		}
		for detectionIndex := range rowMap {
			if detectionIndex >= numDetections {
				continue
			}
			iouVal := iouMatrix[trackIndex][detectionIndex]
			if overlapAccepted(iouVal, minIoU) {
				matches = append(matches, [2]int{trackIndex, detectionIndex})
			}
		}
	}
	return matches
}

type candidatePair struct {
	track     int
	detection int
	iou       float64
	rank      int
}

// performGreedyMatching is helper function for greedy matching: pairs are taken by
// descending IoU, ties broken by detection rank and then by track order.
func performGreedyMatching(iouMatrix [][]float64, ranks []int, minIoU float64) [][2]int {
	candidates := make([]candidatePair, 0)
	for i, row := range iouMatrix {
		for j, iouVal := range row {
			if overlapAccepted(iouVal, minIoU) {
				candidates = append(candidates, candidatePair{track: i, detection: j, iou: iouVal, rank: ranks[j]})
			}
		}
	}
	sort.Slice(candidates, func(a, b int) bool {
		ca, cb := candidates[a], candidates[b]
		if ca.iou != cb.iou {
			return ca.iou > cb.iou
		}
		if ca.rank != cb.rank {
			return ca.rank < cb.rank
		}
		return ca.track < cb.track
	})
	matches := make([][2]int, 0)
	usedTracks := make(map[int]struct{})
	usedDetections := make(map[int]struct{})
	for _, c := range candidates {
		if _, used := usedTracks[c.track]; used {
			continue
		}
		if _, used := usedDetections[c.detection]; used {
			continue
		}
		usedTracks[c.track] = struct{}{}
		usedDetections[c.detection] = struct{}{}
		matches = append(matches, [2]int{c.track, c.detection})
	}
	sort.Slice(matches, func(a, b int) bool {
		return matches[a][0] < matches[b][0]
	})
	return matches
}
