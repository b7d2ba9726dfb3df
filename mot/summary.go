package mot

// TrackingSummary describes what tracker did over the whole video
type TrackingSummary struct {
	FramesProcessed  int
	TracksCreated    int
	TracksConfirmed  int
	TracksDiscarded  int
	TracksRemoved    int
	TracksLive       int
	ByClass          map[ObjectClass]int
	AvgHistoryLength float64
}

// Summary returns tracking statistics. Only tracks which reached confirmation are counted per class
func (bt *ByteTracker) Summary() TrackingSummary {
	summary := TrackingSummary{
		FramesProcessed: bt.stats.frames,
		TracksCreated:   bt.stats.created,
		TracksConfirmed: bt.stats.confirmed,
		TracksDiscarded: bt.stats.discarded,
		TracksRemoved:   len(bt.removed),
		TracksLive:      len(bt.live),
		ByClass:         make(map[ObjectClass]int),
	}
	historyTotal := 0
	counted := 0
	for _, track := range bt.Tracks() {
		if track.state == TrackTentative {
			continue
		}
		summary.ByClass[track.class]++
		historyTotal += len(track.history)
		counted++
	}
	if counted > 0 {
		summary.AvgHistoryLength = float64(historyTotal) / float64(counted)
	}
	return summary
}
