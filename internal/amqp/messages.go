package amqp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"timeledger/internal/core"
)

// JobCompletedMessage is published after every job run.
type JobCompletedMessage struct {
	RunID      string    `json:"run_id"`
	Job        string    `json:"job"`
	Status     string    `json:"status"`
	Written    int       `json:"written"`
	Skipped    int       `json:"skipped"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func NewJobCompletedMessage(run core.JobRun) *JobCompletedMessage {
	return &JobCompletedMessage{
		RunID:      run.ID,
		Job:        run.Job,
		Status:     string(run.Status),
		Written:    run.Stats.Written,
		Skipped:    run.Stats.Skipped,
		Error:      run.Error,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
}

func (m *JobCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RunRequestMessage asks the worker to run a job now.
type RunRequestMessage struct {
	Job         string    `json:"job"`
	RequestedBy string    `json:"requested_by,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewRunRequestMessage(job, requestedBy string) *RunRequestMessage {
	return &RunRequestMessage{Job: job, RequestedBy: requestedBy, Timestamp: time.Now()}
}

func (m *RunRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RunRequestMessageFromJSON decodes a run request; the job name is required.
func RunRequestMessageFromJSON(data []byte) (*RunRequestMessage, error) {
	var msg RunRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	msg.Job = strings.TrimSpace(msg.Job)
	if msg.Job == "" {
		return nil, fmt.Errorf("run request without job")
	}
	return &msg, nil
}
