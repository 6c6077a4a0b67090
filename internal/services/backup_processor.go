package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/log"
	"expensetracker/internal/worker"
)

// ScheduleStore persists backup schedules.
type ScheduleStore interface {
	LoadSchedules(ctx context.Context) ([]core.BackupSchedule, error)
	SaveSchedules(ctx context.Context, items []core.BackupSchedule) error
}

// ScheduleRunner starts the export of one schedule.
type ScheduleRunner interface {
	RunSchedule(ctx context.Context, sched core.BackupSchedule) (*worker.Task, error)
	DefaultDestination() string
}

// ScheduleInput carries the raw fields of a new schedule.
type ScheduleInput struct {
	Template    string `json:"template"`
	Format      string `json:"format"`
	Frequency   string `json:"frequency"`
	Destination string `json:"destination"`
	Enabled     *bool  `json:"enabled"`
}

// BackupProcessor manages backup schedules and runs the due ones.
type BackupProcessor struct {
	store  ScheduleStore
	runner ScheduleRunner
	logger *log.Logger
	now    func() time.Time

	mu sync.Mutex
}

func NewBackupProcessor(store ScheduleStore, runner ScheduleRunner, logger *log.Logger) *BackupProcessor {
	if logger == nil {
		logger = log.Discard()
	}
	return &BackupProcessor{
		store:  store,
		runner: runner,
		logger: logger.WithComponent(log.ComponentBackup),
		now:    time.Now,
	}
}

func (p *BackupProcessor) ListSchedules(ctx context.Context) ([]core.BackupSchedule, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.LoadSchedules(ctx)
}

// CreateSchedule validates and stores a schedule. A new schedule is due
// right away.
func (p *BackupProcessor) CreateSchedule(ctx context.Context, in ScheduleInput) (core.BackupSchedule, error) {
	tmpl, err := export.ParseTemplate(in.Template)
	if err != nil {
		return core.BackupSchedule{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	format, err := export.ParseFormat(in.Format)
	if err != nil {
		return core.BackupSchedule{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	dest := strings.TrimSpace(in.Destination)
	if dest == "" {
		dest = p.runner.DefaultDestination()
	}
	now := p.now().UTC()
	sched := core.BackupSchedule{
		ID:          uuid.NewString(),
		Template:    string(tmpl),
		Format:      string(format),
		Frequency:   core.Frequency(strings.ToLower(strings.TrimSpace(in.Frequency))),
		Destination: dest,
		Enabled:     in.Enabled == nil || *in.Enabled,
		StartDate:   core.DateOf(now),
		NextRun:     now,
	}
	if sched.Frequency == core.Never {
		sched.NextRun = time.Time{}
	}
	if err := sched.Validate(); err != nil {
		return core.BackupSchedule{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	items, err := p.store.LoadSchedules(ctx)
	if err != nil {
		return core.BackupSchedule{}, err
	}
	if err := p.store.SaveSchedules(ctx, append(items, sched)); err != nil {
		return core.BackupSchedule{}, err
	}
	p.logger.InfoContext(ctx, "Backup schedule created",
		log.FieldScheduleID, sched.ID,
		"frequency", sched.Frequency,
		log.FieldFormat, sched.Format)
	return sched, nil
}

func (p *BackupProcessor) DeleteSchedule(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	items, err := p.store.LoadSchedules(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(items, func(s core.BackupSchedule) bool { return s.ID == id })
	if i < 0 {
		return fmt.Errorf("schedule %s: %w", id, core.ErrNotFound)
	}
	return p.store.SaveSchedules(ctx, slices.Delete(items, i, i+1))
}

// ProcessDue runs every enabled schedule that is due at now, one at a time,
// and returns how many completed. A schedule advances when its export
// completes or fails; a cancelled run is retried on the next pass.
func (p *BackupProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil || p.runner == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	items, err := p.store.LoadSchedules(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load schedules: %w", err)
	}

	processed := 0
	changed := false
	for i := range items {
		sched := items[i]
		if !sched.Enabled {
			continue
		}
		checker, err := GetDuenessChecker(sched.Frequency)
		if err != nil {
			p.logger.ErrorContext(ctx, "Skipping schedule", log.FieldScheduleID, sched.ID, log.FieldError, err)
			continue
		}
		var last time.Time
		if sched.LastRun != nil {
			last = *sched.LastRun
		}
		if !checker.IsDue(last, now, sched.StartDate) {
			continue
		}

		task, err := p.runner.RunSchedule(ctx, sched)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to start backup", log.FieldScheduleID, sched.ID, log.FieldError, err)
			continue
		}
		rec, err := task.Wait(ctx)
		if err != nil {
			task.Cancel()
			<-task.Done()
			break
		}
		if rec.Status == core.StatusCancelled {
			continue
		}

		ran := now
		items[i].LastRun = &ran
		items[i].NextRun = sched.Frequency.Next(now)
		changed = true
		if rec.Status == core.StatusCompleted {
			processed++
		}
		p.logger.InfoContext(ctx, "Backup run finished",
			log.FieldScheduleID, sched.ID,
			log.FieldTaskID, rec.ID,
			"status", rec.Status,
			"next_run", items[i].NextRun)
	}

	if changed {
		// ctx may be cancelled mid-pass; the finished runs must still be stored
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := p.store.SaveSchedules(saveCtx, items); err != nil {
			return processed, fmt.Errorf("failed to save schedules: %w", err)
		}
	}

	p.logger.InfoContext(ctx, "Backup processing complete",
		"processed", processed,
		"total_checked", len(items),
		"processing_date", now.Format(core.DateLayout))
	return processed, ctx.Err()
}
