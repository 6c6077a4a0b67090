package worker

import (
	"context"
	"fmt"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// ExportSubmitter starts an export under a caller-chosen task ID.
type ExportSubmitter interface {
	SubmitWithID(ctx context.Context, id string, req core.ExportRequest) (*Task, error)
}

// ExportWorker runs export requests received over AMQP.
type ExportWorker struct {
	submitter ExportSubmitter
	logger    *log.Logger
}

func NewExportWorker(submitter ExportSubmitter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{submitter: submitter, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleExportRequest submits the request and waits for it to finish. A
// failed export is final and recorded in the history; only submission
// errors and shutdown are reported so the message is requeued.
func (w *ExportWorker) HandleExportRequest(ctx context.Context, msg *amqp.ExportRequestMessage) error {
	w.logger.InfoContext(ctx, "Processing export request",
		log.FieldTaskID, msg.TaskID,
		log.FieldFormat, msg.Request.Format,
		log.FieldDestination, msg.Request.Destination)

	task, err := w.submitter.SubmitWithID(ctx, msg.TaskID, msg.Request)
	if err != nil {
		return fmt.Errorf("submit export %s: %w", msg.TaskID, err)
	}

	rec, err := task.Wait(ctx)
	if err != nil {
		task.Cancel()
		<-task.Done()
		return fmt.Errorf("wait for export %s: %w", msg.TaskID, err)
	}

	if rec.Status != core.StatusCompleted {
		w.logger.WarnContext(ctx, "Export request did not complete",
			log.FieldTaskID, rec.ID,
			"status", rec.Status,
			log.FieldError, rec.Error)
	}
	return nil
}
