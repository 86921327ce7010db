package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskMiningRun is the task type for processing one queued mining run.
	TaskMiningRun = "mining:run"
	// TaskMiningScheduled is the task type for the recurring mining trigger.
	TaskMiningScheduled = "mining:scheduled"
)

// MiningRunPayload identifies the run a worker should process.
type MiningRunPayload struct {
	RunID string `json:"run_id"`
}

// NewMiningRunTask constructs an Asynq task for one run.
func NewMiningRunTask(payload MiningRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMiningRun, data), nil
}

// MiningScheduledPayload configures the recurring mining trigger.
type MiningScheduledPayload struct {
	Algorithm   string `json:"algorithm"`
	RequestedBy string `json:"requested_by"`
}

// NewMiningScheduledTask constructs the recurring trigger task.
func NewMiningScheduledTask(payload MiningScheduledPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMiningScheduled, data), nil
}
