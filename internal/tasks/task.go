package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LdDl/openscore-go/result"
)

// Status is lifecycle state of a task
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are possible
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether status may change from s to next.
// Staying in the same non-terminal status is allowed for progress updates.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusQueued:
		return next == StatusQueued || next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusProcessing || next == StatusCompleted || next == StatusFailed
	}
	return false
}

var (
	ErrNotFound          = errors.New("task not found")
	ErrExists            = errors.New("task already exists")
	ErrInvalidTransition = errors.New("invalid task transition")
	ErrQueueFull         = errors.New("task queue is full")
	ErrNotReady          = errors.New("task result is not ready")
)

// ReasonCancelled is failure reason of cancelled tasks
const ReasonCancelled = "cancelled"

// Task is one analysis request
type Task struct {
	ID        string    `json:"task_id"`
	Status    Status    `json:"status"`
	Progress  float64   `json:"progress"`
	Error     string    `json:"error,omitempty"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Result is set once task is completed
	Result *result.Result `json:"-"`
}

// clone returns shallow copy. Result is immutable once stored and is shared
func (t *Task) clone() *Task {
	cp := *t
	return &cp
}

// checkUpdate validates replacement of prev by next
func checkUpdate(prev, next *Task) error {
	if !next.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next.Status)
	}
	if !prev.Status.CanTransition(next.Status) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, prev.Status, next.Status)
	}
	if next.Progress < prev.Progress {
		return fmt.Errorf("%w: progress %.3f → %.3f", ErrInvalidTransition, prev.Progress, next.Progress)
	}
	if next.Progress > 1 {
		return fmt.Errorf("%w: progress %.3f above 1", ErrInvalidTransition, next.Progress)
	}
	return nil
}

// failureReason converts run error into human-readable reason
func failureReason(err error) string {
	if errors.Is(err, context.Canceled) {
		return ReasonCancelled
	}
	return err.Error()
}
