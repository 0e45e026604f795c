package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOverdueScan is the task type for the nightly overdue receivables scan.
	TaskOverdueScan = "receivables:overdue_scan"
	// TaskAgingWarmup pre-populates the aging report cache.
	TaskAgingWarmup = "receivables:aging_warmup"
)

// OverdueScanPayload tunes the overdue scan.
type OverdueScanPayload struct {
	// GraceDays shifts the cutoff: accounts are only reported once they are
	// more than GraceDays past due.
	GraceDays int `json:"grace_days"`
	// DueSoonDays controls the upcoming-due window included in the summary.
	DueSoonDays int `json:"due_soon_days"`
}

// NewOverdueScanTask constructs an Asynq task.
func NewOverdueScanTask(payload OverdueScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueScan, data), nil
}

// NewAgingWarmupTask constructs an Asynq task with no payload.
func NewAgingWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskAgingWarmup, nil)
}
