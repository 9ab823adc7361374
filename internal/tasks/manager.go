// Package tasks runs long searches in the background and tracks their state.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ReadingRoom/internal/domain"
)

// State is the lifecycle stage of a task.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCanceled  State = "canceled"
)

// ErrNotFound is returned for unknown task ids.
var ErrNotFound = errors.New("task not found")

// Task is a snapshot of one submitted search.
type Task struct {
	ID        string                 `json:"task_id"`
	State     State                  `json:"state"`
	Query     domain.SearchQuery     `json:"query"`
	Results   []domain.ProcessResult `json:"results,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Submitted time.Time              `json:"submitted_at"`
	Started   time.Time              `json:"started_at,omitzero"`
	Finished  time.Time              `json:"finished_at,omitzero"`
}

// Done reports whether the task reached a terminal state.
func (t Task) Done() bool {
	switch t.State {
	case StateSucceeded, StateFailed, StateCanceled:
		return true
	}
	return false
}

// Runner executes one search.
type Runner func(ctx context.Context, query domain.SearchQuery) ([]domain.ProcessResult, error)

type entry struct {
	task   Task
	cancel context.CancelFunc
}

// Manager owns the background searches. At most workers searches run at
// once; the rest wait in submission order.
type Manager struct {
	run     Runner
	timeout time.Duration
	logger  *slog.Logger
	slots   chan struct{}

	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	tasks  map[string]*entry
	closed bool
}

// NewManager builds a manager; timeout <= 0 means no per-task deadline.
func NewManager(run Runner, workers int, timeout time.Duration, logger *slog.Logger) *Manager {
	if workers <= 0 {
		workers = 1
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Manager{
		run:     run,
		timeout: timeout,
		logger:  logger,
		slots:   make(chan struct{}, workers),
		ctx:     ctx,
		stop:    stop,
		tasks:   map[string]*entry{},
	}
}

// Submit queues query and returns the new task id.
func (m *Manager) Submit(query domain.SearchQuery) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", fmt.Errorf("task manager is shut down")
	}

	ctx, cancel := context.WithCancel(m.ctx)
	if m.timeout > 0 {
		ctx, cancel = withTimeout(ctx, cancel, m.timeout)
	}

	e := &entry{
		task: Task{
			ID:        id.String(),
			State:     StateQueued,
			Query:     query,
			Submitted: time.Now().UTC(),
		},
		cancel: cancel,
	}
	m.tasks[e.task.ID] = e

	m.wg.Add(1)
	go m.execute(ctx, e)

	return e.task.ID, nil
}

// Get returns a snapshot of the task.
func (m *Manager) Get(id string) (Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	task := e.task
	task.Results = append([]domain.ProcessResult(nil), e.task.Results...)
	return task, nil
}

// Cancel stops a queued or running task. Finished tasks are left unchanged.
func (m *Manager) Cancel(id string) (Task, error) {
	m.mu.Lock()
	e, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return Task{}, ErrNotFound
	}
	if e.task.State == StateQueued {
		e.task.State = StateCanceled
		e.task.Finished = time.Now().UTC()
	}
	m.mu.Unlock()

	e.cancel()
	return m.Get(id)
}

// Shutdown cancels every task and waits for the workers to return.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.stop()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) execute(ctx context.Context, e *entry) {
	defer m.wg.Done()
	defer e.cancel()

	select {
	case m.slots <- struct{}{}:
	case <-ctx.Done():
		m.finish(e, nil, ctx.Err())
		return
	}
	defer func() { <-m.slots }()

	m.mu.Lock()
	if e.task.State != StateQueued {
		m.mu.Unlock()
		return
	}
	e.task.State = StateRunning
	e.task.Started = time.Now().UTC()
	query := e.task.Query
	m.mu.Unlock()

	m.debug("task started", "task_id", e.task.ID)
	results, err := m.run(ctx, query)
	m.finish(e, results, err)
}

func (m *Manager) finish(e *entry, results []domain.ProcessResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.task.Done() {
		return
	}
	e.task.Results = results
	e.task.Finished = time.Now().UTC()

	switch {
	case err == nil:
		e.task.State = StateSucceeded
	case errors.Is(err, context.Canceled):
		e.task.State = StateCanceled
		e.task.Error = err.Error()
	default:
		e.task.State = StateFailed
		e.task.Error = err.Error()
	}

	if m.logger != nil {
		m.logger.Info("task finished", "task_id", e.task.ID, "state", e.task.State, "results", len(results))
	}
}

func (m *Manager) debug(msg string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

func withTimeout(parent context.Context, cancelParent context.CancelFunc, d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		cancel()
		cancelParent()
	}
}
