package progress

import (
	"time"

	"overseer/internal/store"
)

// ItemSnapshot captures the latest resolved work item for a task.
type ItemSnapshot struct {
	ItemID      int64    `json:"item_id"`
	AccountCode string   `json:"account_code"`
	Status      string   `json:"status"`
	Balance     *float64 `json:"balance,omitempty"`
	Message     string   `json:"message,omitempty"`
	Screenshot  string   `json:"screenshot,omitempty"`
}

// TaskSnapshot is one point-in-time view of a task's progress.
type TaskSnapshot struct {
	TaskID          int64         `json:"task_id"`
	TaskCode        string        `json:"task_code"`
	Name            string        `json:"name"`
	Status          string        `json:"status"`
	TotalAccounts   int           `json:"total_accounts"`
	SuccessCount    int           `json:"success_count"`
	FailedCount     int           `json:"failed_count"`
	PendingCount    int           `json:"pending_count"`
	ProgressPercent float64       `json:"progress_percent"`
	TotalBalance    float64       `json:"total_balance"`
	LatestItem      *ItemSnapshot `json:"latest_item,omitempty"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Terminal reports whether no further snapshots will follow for this task.
func (s TaskSnapshot) Terminal() bool {
	return s.Status == string(store.TaskCompleted) || s.Status == string(store.TaskFailed)
}

// SnapshotTask renders a snapshot from a task row and an optional latest
// resolved item.
func SnapshotTask(task *store.Task, latest *store.WorkItem) TaskSnapshot {
	snap := TaskSnapshot{
		TaskID:          task.ID,
		TaskCode:        task.TaskCode,
		Name:            task.Name,
		Status:          string(task.Status),
		TotalAccounts:   task.TotalAccounts,
		SuccessCount:    task.SuccessCount,
		FailedCount:     task.FailedCount,
		PendingCount:    task.PendingCount(),
		ProgressPercent: task.ProgressPercent(),
		TotalBalance:    task.TotalBalance,
		UpdatedAt:       task.UpdatedAt,
	}
	if latest != nil {
		snap.LatestItem = &ItemSnapshot{
			ItemID:      latest.ID,
			AccountCode: latest.AccountCode,
			Status:      string(latest.Status),
			Balance:     latest.Balance,
			Message:     latest.Message,
			Screenshot:  latest.Screenshot,
		}
	}
	return snap
}
