// Package worker runs exports as observable, cancellable tasks and consumes
// export requests from AMQP.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/metrics"
)

// HistoryStore persists task state transitions.
type HistoryStore interface {
	RecordExport(ctx context.Context, rec core.ExportRecord) error
}

type RunnerOption func(*Runner)

func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

func WithLogger(l *log.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l.WithComponent(log.ComponentWorker)
		}
	}
}

func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// Runner executes jobs with bounded concurrency and records every state
// change in the history store.
type Runner struct {
	sem     *semaphore.Weighted
	history HistoryStore
	logger  *log.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu    sync.Mutex
	tasks map[string]*Task
}

func NewRunner(history HistoryStore, opts ...RunnerOption) *Runner {
	base, stop := context.WithCancel(context.Background())
	r := &Runner{
		sem:     semaphore.NewWeighted(2),
		history: history,
		logger:  log.Discard(),
		now:     time.Now,
		base:    base,
		stop:    stop,
		tasks:   make(map[string]*Task),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit queues job and returns its task immediately. A blank record ID
// gets a fresh one.
func (r *Runner) Submit(rec core.ExportRecord, job Job) *Task {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = r.now().UTC()
	}
	rec.Status = core.StatusPending
	rec.Error = ""

	t := newTask(r.base, rec)
	r.mu.Lock()
	r.tasks[t.id] = t
	r.mu.Unlock()

	r.persist(rec)
	r.metrics.TaskStarted()

	r.wg.Add(1)
	go r.run(t, job)
	return t
}

func (r *Runner) run(t *Task, job Job) {
	defer r.wg.Done()
	defer close(t.done)
	defer r.metrics.TaskFinished()
	defer t.cancel()

	if err := r.sem.Acquire(t.ctx, 1); err != nil {
		r.complete(t, core.StatusCancelled, Outcome{}, err)
		return
	}
	defer r.sem.Release(1)

	if err := t.ctx.Err(); err != nil {
		r.complete(t, core.StatusCancelled, Outcome{}, err)
		return
	}

	rec := t.update(func(rec *core.ExportRecord) { rec.Status = core.StatusProcessing })
	r.persist(rec)

	out, err := job(t.ctx)
	switch {
	case t.ctx.Err() != nil:
		if err == nil {
			err = t.ctx.Err()
		}
		r.complete(t, core.StatusCancelled, Outcome{}, err)
	case err != nil:
		r.complete(t, core.StatusFailed, Outcome{}, err)
	default:
		r.complete(t, core.StatusCompleted, out, nil)
	}
}

func (r *Runner) complete(t *Task, status core.ExportStatus, out Outcome, err error) {
	rec := t.resolve(status, out, err)
	r.persist(rec)
	t.settle(rec, err)

	// Finished tasks live on in the history store only.
	r.mu.Lock()
	delete(r.tasks, t.id)
	r.mu.Unlock()
	r.metrics.ObserveExport(rec.Format, rec.Template, string(status), rec.FileSize)

	args := []any{
		log.FieldTaskID, rec.ID,
		log.FieldFormat, rec.Format,
		log.FieldDestination, rec.Destination,
		"status", status,
	}
	switch status {
	case core.StatusCompleted:
		r.logger.Info("Export task completed", append(args,
			log.FieldRef, rec.Ref,
			log.FieldRecords, rec.Records,
			log.FieldBytes, rec.FileSize)...)
	case core.StatusCancelled:
		r.logger.Warn("Export task cancelled", args...)
	default:
		r.logger.Error("Export task failed", append(args, log.FieldError, err)...)
	}
}

func (r *Runner) persist(rec core.ExportRecord) {
	if r.history == nil {
		return
	}
	// The runner context may already be cancelled during shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.history.RecordExport(ctx, rec); err != nil {
		r.logger.Error("Failed to record export state",
			log.FieldTaskID, rec.ID,
			"status", rec.Status,
			log.FieldError, err)
	}
}

// Get returns a pending or processing task submitted to this runner.
func (r *Runner) Get(id string) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	return t, ok
}

// Cancel cancels a running or pending task. It reports false for unknown
// or already finished tasks.
func (r *Runner) Cancel(id string) bool {
	t, ok := r.Get(id)
	if !ok || t.Status().Terminal() {
		return false
	}
	t.Cancel()
	return true
}

// Active counts tasks that have not finished yet.
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Shutdown waits for in-flight tasks. When ctx expires first the remaining
// tasks are cancelled and ctx's error is returned.
func (r *Runner) Shutdown(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		r.stop()
		return nil
	case <-ctx.Done():
		r.stop()
		<-finished
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			r.logger.Warn("Export tasks cancelled at shutdown")
		}
		return ctx.Err()
	}
}
