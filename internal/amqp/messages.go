package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"expensetracker/internal/core"
)

// ExportRequestMessage asks a worker to run one export. The task ID is
// assigned by the publisher so the history entry can be tracked across
// processes.
type ExportRequestMessage struct {
	TaskID     string             `json:"taskId"`
	ScheduleID string             `json:"scheduleId,omitempty"`
	Request    core.ExportRequest `json:"request"`
	Timestamp  time.Time          `json:"timestamp"`
}

func NewExportRequestMessage(taskID string, req core.ExportRequest) *ExportRequestMessage {
	return &ExportRequestMessage{
		TaskID:    taskID,
		Request:   req,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportRequestMessageFromJSON decodes and checks a message body.
func ExportRequestMessageFromJSON(data []byte) (*ExportRequestMessage, error) {
	var msg ExportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.TaskID == "" {
		return nil, errors.New("missing task id")
	}
	if msg.Request.Format == "" {
		return nil, errors.New("missing export format")
	}
	return &msg, nil
}
