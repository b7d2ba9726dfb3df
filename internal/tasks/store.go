package tasks

import (
	"context"
	"time"
)

// Store persists tasks. Implementations must be safe for concurrent use and
// reject updates that break the status or progress contract.
type Store interface {
	Create(ctx context.Context, task *Task) error
	Update(ctx context.Context, task *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Task, error)
	Close() error
}

// Sweep deletes terminal tasks last updated before cutoff and returns how many were removed
func Sweep(ctx context.Context, store Store, cutoff time.Time) (int, error) {
	all, err := store.List(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, task := range all {
		if !task.Status.Terminal() || !task.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := store.Delete(ctx, task.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
