package orchestrator

import "errors"

var (
	// ErrTaskNotFound indicates the task does not exist.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskRunning indicates the operation requires an idle task.
	ErrTaskRunning = errors.New("task is already running")
	// ErrTaskNotRunning indicates a cancel was requested for an idle task.
	ErrTaskNotRunning = errors.New("task is not running")
	// ErrTaskNotStartable indicates the task is not in a startable state.
	ErrTaskNotStartable = errors.New("task is not pending")
	// ErrItemNotFound indicates the work item does not exist within the task.
	ErrItemNotFound = errors.New("work item not found")
	// ErrItemNotRetryable indicates the work item has no retryable outcome.
	ErrItemNotRetryable = errors.New("work item is not retryable")
	// ErrNothingToRetry indicates the task has no failed or pending items.
	ErrNothingToRetry = errors.New("no items to retry")
)
