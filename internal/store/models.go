package store

import (
	"strings"
	"time"
)

// TaskStatus represents the lifecycle of a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// ItemStatus represents the lifecycle of a single work item within a task.
type ItemStatus string

const (
	ItemPending ItemStatus = "pending"
	ItemRunning ItemStatus = "running"
	ItemSuccess ItemStatus = "success"
	ItemFailed  ItemStatus = "failed"
)

// InterruptedMessage is the failure message recorded for items that were
// in flight when the daemon stopped.
const InterruptedMessage = "interrupted by restart"

var allTaskStatuses = []TaskStatus{
	TaskPending,
	TaskRunning,
	TaskCompleted,
	TaskFailed,
}

var taskStatusSet = func() map[TaskStatus]struct{} {
	set := make(map[TaskStatus]struct{}, len(allTaskStatuses))
	for _, status := range allTaskStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var allItemStatuses = []ItemStatus{
	ItemPending,
	ItemRunning,
	ItemSuccess,
	ItemFailed,
}

var itemStatusSet = func() map[ItemStatus]struct{} {
	set := make(map[ItemStatus]struct{}, len(allItemStatuses))
	for _, status := range allItemStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseTaskStatus converts a string into a known TaskStatus.
func ParseTaskStatus(value string) (TaskStatus, bool) {
	normalized := TaskStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := taskStatusSet[normalized]
	return normalized, ok
}

// ParseItemStatus converts a string into a known ItemStatus.
func ParseItemStatus(value string) (ItemStatus, bool) {
	normalized := ItemStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := itemStatusSet[normalized]
	return normalized, ok
}

// Task represents a batch of account runs persisted in SQLite.
type Task struct {
	ID            int64
	TaskCode      string
	Name          string
	Status        TaskStatus
	TotalAccounts int
	SuccessCount  int
	FailedCount   int
	TotalBalance  float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsTerminal reports whether the task has reached a final state.
func (t Task) IsTerminal() bool {
	return t.Status == TaskCompleted || t.Status == TaskFailed
}

// PendingCount derives the number of unresolved items from the counters.
func (t Task) PendingCount() int {
	pending := t.TotalAccounts - t.SuccessCount - t.FailedCount
	if pending < 0 {
		return 0
	}
	return pending
}

// ProgressPercent reports resolved items as a percentage of the total.
func (t Task) ProgressPercent() float64 {
	if t.TotalAccounts <= 0 {
		return 0
	}
	resolved := t.SuccessCount + t.FailedCount
	return float64(resolved) / float64(t.TotalAccounts) * 100
}

// WorkItem represents a single account run within a task.
type WorkItem struct {
	ID          int64
	TaskID      int64
	AccountCode string
	Email       string
	Password    string
	Status      ItemStatus
	Balance     *float64
	Message     string
	Screenshot  string
	// AttemptCount tracks how many times the item was dispatched to the
	// executor. It survives retry resets; it exists for observability only.
	AttemptCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsResolved reports whether the item has a final outcome for the current run.
func (w WorkItem) IsResolved() bool {
	return w.Status == ItemSuccess || w.Status == ItemFailed
}

// Account represents a credential record in the account pool.
type Account struct {
	ID          int64
	AccountCode string
	Email       string
	Password    string
	CreatedAt   time.Time
}

// IncompleteTask describes a task whose work items fall short of its
// declared account total, usually because creation was interrupted.
type IncompleteTask struct {
	ID            int64
	TaskCode      string
	Name          string
	Status        TaskStatus
	TotalAccounts int
	ActualItems   int
	Missing       int
}

// Statistics aggregates outcomes across all tasks.
type Statistics struct {
	TotalTasks    int
	TotalAccounts int
	SuccessCount  int
	FailedCount   int
	SuccessRate   float64
	TotalBalance  float64
}
