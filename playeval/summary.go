package playeval

// ReceiverStats describes openness of one receiver over the play
type ReceiverStats struct {
	TrackID    int     `json:"track_id"`
	Samples    int     `json:"samples"`
	FirstFrame int     `json:"first_frame"`
	LastFrame  int     `json:"last_frame"`
	Mean       float64 `json:"mean"`
	Peak       float64 `json:"peak"`
	PeakFrame  int     `json:"peak_frame"`
	Min        float64 `json:"min"`
	StdDev     float64 `json:"std_dev"`
	// 1 / (1 + variance/100): 1 for constant series, towards 0 for jumpy ones
	Consistency      float64 `json:"consistency"`
	ConsistencyLabel string  `json:"consistency_label"`
}

// BestOption is a ranked passing option
type BestOption struct {
	Rank        int     `json:"rank"`
	TrackID     int     `json:"track_id"`
	Receiver    string  `json:"receiver"`
	Mean        float64 `json:"mean"`
	Peak        float64 `json:"peak"`
	Consistency string  `json:"consistency"`
}

// MissedOpportunity is a receiver which was open at some point but covered most of the time
type MissedOpportunity struct {
	TrackID   int     `json:"track_id"`
	Receiver  string  `json:"receiver"`
	Peak      float64 `json:"peak"`
	PeakFrame int     `json:"peak_frame"`
	Mean      float64 `json:"mean"`
	Note      string  `json:"note"`
}

// KeyMoment is a notable peak of receiver openness
type KeyMoment struct {
	FrameID     int     `json:"frame_id"`
	TrackID     int     `json:"track_id"`
	Score       float64 `json:"score"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
}

// Statistics are the numbers feedback texts are derived from
type Statistics struct {
	ReceiversTracked int     `json:"receivers_tracked"`
	SamplesScored    int     `json:"samples_scored"`
	AvgOpenScore     float64 `json:"avg_openscore"`
	BestOptionMean   float64 `json:"best_option_mean"`
	DecisionQuality  float64 `json:"decision_quality"`
	MissedFraction   float64 `json:"missed_fraction"`
	TracksDetected   int     `json:"tracks_detected"`
	FramesProcessed  int     `json:"frames_processed"`
}

// PlaySummary is play-level evaluation derived from openness samples
type PlaySummary struct {
	OverallScore        float64             `json:"overall_score"`
	OverallGrade        string              `json:"overall_grade"`
	Summary             string              `json:"summary"`
	ReceiverStats       []ReceiverStats     `json:"per_receiver_stats"`
	BestOptions         []BestOption        `json:"best_options"`
	MissedOpportunities []MissedOpportunity `json:"missed_opportunities"`
	KeyMoments          []KeyMoment         `json:"key_moments"`
	Strengths           []string            `json:"strengths"`
	Improvements        []string            `json:"improvements"`
	Recommendations     []string            `json:"recommendations"`
	Statistics          Statistics          `json:"statistics"`
}

// Meta is track metadata which is not part of the samples
type Meta struct {
	TracksDetected  int
	FramesProcessed int
}
