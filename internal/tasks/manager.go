package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LdDl/openscore-go/internal/detections"
	"github.com/LdDl/openscore-go/internal/logging"
	"github.com/LdDl/openscore-go/internal/pipeline"
	"github.com/LdDl/openscore-go/result"
)

// Analyzer runs one video. *pipeline.Runner implements it
type Analyzer interface {
	Run(ctx context.Context, src detections.Source, progress pipeline.ProgressFunc) (*result.Result, error)
}

// Options of Manager
type Options struct {
	Workers   int
	QueueSize int
	// Retention is how long terminal tasks are kept. Zero disables sweeping
	Retention     time.Duration
	SweepInterval time.Duration
}

// progressStep is minimal progress change persisted while processing
const progressStep = 0.01

type job struct {
	id      string
	payload []byte
}

// Manager accepts detection streams and analyses them on a bounded worker pool
type Manager struct {
	store    Store
	analyzer Analyzer
	opts     Options
	logger   *slog.Logger
	now      func() time.Time

	queue chan job

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// NewManager creates manager. Workers and queue size below one are raised to one
func NewManager(store Store, analyzer Analyzer, opts Options, logger *slog.Logger) *Manager {
	opts.Workers = max(opts.Workers, 1)
	opts.QueueSize = max(opts.QueueSize, 1)
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	return &Manager{
		store:    store,
		analyzer: analyzer,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "tasks"),
		now:      time.Now,
		queue:    make(chan job, opts.QueueSize),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Start launches workers and retention sweeper. They stop when ctx is done
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	for i := 0; i < m.opts.Workers; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.worker(ctx)
		}()
	}
	if m.opts.Retention > 0 {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.sweepLoop(ctx)
		}()
	}
	m.logger.Info("task manager started", logging.Int("workers", m.opts.Workers), logging.Int("queue_size", m.opts.QueueSize))
}

// Wait blocks until workers exit after Start context is done
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Submit registers task for the detection stream and queues it
func (m *Manager) Submit(ctx context.Context, source string, payload []byte) (*Task, error) {
	now := m.now().UTC()
	task := &Task{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Create(ctx, task); err != nil {
		return nil, err
	}
	select {
	case m.queue <- job{id: task.ID, payload: payload}:
	default:
		_ = m.store.Delete(ctx, task.ID)
		return nil, ErrQueueFull
	}
	m.logger.Info("task queued", logging.TaskID(task.ID), logging.String("source", source), logging.Int("bytes", len(payload)))
	return task, nil
}

// Get returns task by id
func (m *Manager) Get(ctx context.Context, id string) (*Task, error) {
	return m.store.Get(ctx, id)
}

// Result returns result of completed task, ErrNotReady otherwise
func (m *Manager) Result(ctx context.Context, id string) (*result.Result, error) {
	task, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status != StatusCompleted || task.Result == nil {
		return nil, fmt.Errorf("%w: task %s is %s", ErrNotReady, id, task.Status)
	}
	return task.Result, nil
}

// List returns every known task
func (m *Manager) List(ctx context.Context) ([]*Task, error) {
	return m.store.List(ctx)
}

// Delete cancels task if it is running and removes it
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	cancel, running := m.cancels[id]
	m.mu.Unlock()
	if running {
		cancel()
		m.logger.Info("task cancelled", logging.TaskID(id))
	}
	return m.store.Delete(ctx, id)
}

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-m.queue:
			m.process(ctx, j)
		}
	}
}

func (m *Manager) process(parent context.Context, j job) {
	logger := m.logger.With(logging.TaskID(j.id))
	task, err := m.store.Get(parent, j.id)
	if err != nil {
		// Deleted while queued
		logger.Debug("skipping task", logging.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(parent)
	m.mu.Lock()
	m.cancels[j.id] = cancel
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.cancels, j.id)
		m.mu.Unlock()
		cancel()
	}()

	task.Status = StatusProcessing
	task.UpdatedAt = m.now().UTC()
	if err := m.store.Update(parent, task); err != nil {
		logger.Warn("can't mark task processing", logging.Error(err))
		return
	}
	logger.Info("task processing")

	res, runErr := m.run(ctx, task, j.payload)

	// Terminal update must land even if run was cancelled
	final, err := m.store.Get(context.WithoutCancel(parent), j.id)
	if err != nil {
		logger.Debug("task vanished before completion", logging.Error(err))
		return
	}
	final.UpdatedAt = m.now().UTC()
	if runErr != nil {
		final.Status = StatusFailed
		final.Error = failureReason(runErr)
		logger.Warn("task failed", logging.String("reason", final.Error))
	} else {
		final.Status = StatusCompleted
		final.Progress = 1
		final.Result = res
		logger.Info("task completed",
			logging.Float64("overall_score", res.Summary.OverallScore),
			logging.String("grade", res.Summary.OverallGrade),
		)
	}
	if err := m.store.Update(context.WithoutCancel(parent), final); err != nil && !errors.Is(err, ErrNotFound) {
		logger.Warn("can't store task outcome", logging.Error(err))
	}
}

func (m *Manager) run(ctx context.Context, task *Task, payload []byte) (*result.Result, error) {
	src, err := detections.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer src.Close()

	persisted := 0.0
	progress := func(done, total int) {
		if total <= 0 {
			return
		}
		fraction := min(float64(done)/float64(total), 1)
		if fraction-persisted < progressStep {
			return
		}
		task.Progress = fraction
		task.UpdatedAt = m.now().UTC()
		if err := m.store.Update(ctx, task); err != nil {
			m.logger.Debug("progress not stored", logging.TaskID(task.ID), logging.Error(err))
			return
		}
		persisted = fraction
	}
	return m.analyzer.Run(ctx, src, progress)
}

func (m *Manager) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepExpired(ctx)
		}
	}
}

// SweepExpired removes terminal tasks older than retention
func (m *Manager) SweepExpired(ctx context.Context) int {
	removed, err := Sweep(ctx, m.store, m.now().Add(-m.opts.Retention))
	if err != nil {
		m.logger.Warn("retention sweep failed", logging.Error(err))
	}
	if removed > 0 {
		m.logger.Info("expired tasks removed", logging.Int("count", removed))
	}
	return removed
}
