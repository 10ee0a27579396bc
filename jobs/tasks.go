package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDraftSweep purges stale draft journal entries.
	TaskDraftSweep = "ledger:draft_sweep"
	// TaskGLIntegrity scans the ledger for imbalances and broken links.
	TaskGLIntegrity = "ledger:gl_integrity"
)

// DraftSweepPayload parameterises a draft sweep run.
type DraftSweepPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewDraftSweepTask constructs the Asynq task for a draft sweep.
func NewDraftSweepTask(payload DraftSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDraftSweep, data), nil
}

// NewGLIntegrityTask constructs the Asynq task for an integrity scan.
func NewGLIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskGLIntegrity, nil)
}
