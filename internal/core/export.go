package core

import (
	"errors"
	"time"
)

type (
	ExportStatus string
	Frequency    string

	// ExportRecord is one entry of the export history.
	ExportRecord struct {
		ID          string         `json:"id"`
		Timestamp   time.Time      `json:"timestamp"`
		Template    string         `json:"template"`
		Format      string         `json:"format"`
		Status      ExportStatus   `json:"status"`
		Destination string         `json:"destination"`
		FileName    string         `json:"fileName"`
		FileSize    int            `json:"fileSize"`
		Records     int            `json:"records"`
		Ref         string         `json:"ref,omitempty"`
		Error       string         `json:"error,omitempty"`
		ScheduleID  string         `json:"scheduleId,omitempty"`
		Request     *ExportRequest `json:"request,omitempty"`
	}

	// ExportRequest describes one export run. Dates are YYYY-MM-DD and empty
	// bounds are open. Nil categories select every category; an empty,
	// non-nil list selects none.
	ExportRequest struct {
		Template    string     `json:"template,omitempty"`
		Format      string     `json:"format"`
		Filename    string     `json:"filename,omitempty"`
		Start       string     `json:"start,omitempty"`
		End         string     `json:"end,omitempty"`
		Categories  []Category `json:"categories"`
		Destination string     `json:"destination,omitempty"`
	}

	// BackupSchedule is a recurring full export.
	BackupSchedule struct {
		ID          string     `json:"id"`
		Template    string     `json:"template"`
		Format      string     `json:"format"`
		Frequency   Frequency  `json:"frequency"`
		Destination string     `json:"destination"`
		Enabled     bool       `json:"enabled"`
		StartDate   Date       `json:"startDate"`
		LastRun     *time.Time `json:"lastRun,omitempty"`
		NextRun     time.Time  `json:"nextRun"`
	}
)

const (
	StatusPending    ExportStatus = "pending"
	StatusProcessing ExportStatus = "processing"
	StatusCompleted  ExportStatus = "completed"
	StatusFailed     ExportStatus = "failed"
	StatusCancelled  ExportStatus = "cancelled"
	StatusScheduled  ExportStatus = "scheduled"
)

const (
	Daily     Frequency = "daily"
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Never     Frequency = "never"
)

var ErrInvalidFrequency = errors.New("invalid frequency")

// Terminal reports whether no further transitions can happen.
func (s ExportStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

func (f Frequency) Validate() error {
	switch f {
	case Daily, Weekly, Monthly, Quarterly, Never:
		return nil
	}
	return ErrInvalidFrequency
}

// Next returns the run after from. Never yields the zero time.
func (f Frequency) Next(from time.Time) time.Time {
	switch f {
	case Daily:
		return from.AddDate(0, 0, 1)
	case Weekly:
		return from.AddDate(0, 0, 7)
	case Monthly:
		return from.AddDate(0, 1, 0)
	case Quarterly:
		return from.AddDate(0, 3, 0)
	}
	return time.Time{}
}

func (s BackupSchedule) Validate() error {
	if err := s.Frequency.Validate(); err != nil {
		return err
	}
	if s.Format == "" {
		return errors.New("format is required")
	}
	if s.Destination == "" {
		return errors.New("destination is required")
	}
	return nil
}
