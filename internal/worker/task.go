package worker

import (
	"context"
	"sync"

	"expensetracker/internal/core"
)

// Outcome is what a successful job reports back.
type Outcome struct {
	Ref      string
	FileName string
	FileSize int
	Records  int
}

// Job does the work of a task. It must return promptly once ctx is done.
type Job func(ctx context.Context) (Outcome, error)

// Task is a handle on one submitted export. Its status moves from pending
// to processing and ends in completed, failed or cancelled.
type Task struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	rec core.ExportRecord
	err error
}

func newTask(parent context.Context, rec core.ExportRecord) *Task {
	ctx, cancel := context.WithCancel(parent)
	return &Task{
		id:     rec.ID,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		rec:    rec,
	}
}

func (t *Task) ID() string {
	return t.id
}

func (t *Task) Status() core.ExportStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rec.Status
}

// Record returns a snapshot of the history entry.
func (t *Task) Record() core.ExportRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rec
}

// Cancel asks the task to stop. It is a no-op once the task is finished.
func (t *Task) Cancel() {
	t.cancel()
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Result returns the destination reference and the job error. It is only
// meaningful after Done is closed.
func (t *Task) Result() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rec.Ref, t.err
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) (core.ExportRecord, error) {
	select {
	case <-t.done:
		return t.Record(), nil
	case <-ctx.Done():
		return core.ExportRecord{}, ctx.Err()
	}
}

func (t *Task) update(fn func(rec *core.ExportRecord)) core.ExportRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.rec)
	return t.rec
}

// resolve computes the final record without publishing it.
func (t *Task) resolve(status core.ExportStatus, out Outcome, err error) core.ExportRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec := t.rec
	rec.Status = status
	rec.Error = ""
	if err != nil {
		rec.Error = err.Error()
	}
	if status == core.StatusCompleted {
		rec.Ref = out.Ref
		rec.FileName = out.FileName
		rec.FileSize = out.FileSize
		rec.Records = out.Records
	}
	return rec
}

func (t *Task) settle(rec core.ExportRecord, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rec = rec
	t.err = err
}
