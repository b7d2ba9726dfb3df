// Package pipeline drives analysis of one video: it reads detection frames,
// tracks players, estimates their velocities, scores receiver openness in
// parallel and assembles the versioned result.
//
// Tracking is sequential. Scoring of frames fans out over a bounded errgroup
// once the whole stream is consumed, aggregation runs last. Cancellation is
// observed between frames.
package pipeline
