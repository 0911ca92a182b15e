package orchestrator

import (
	"context"
	"errors"
	"log/slog"

	"overseer/internal/executor"
	"overseer/internal/logging"
	"overseer/internal/store"
)

// CancelledMessage is the failure message recorded for items cut short by a
// cancel request.
const CancelledMessage = "cancelled by user"

// AccountNotFoundMessage is the failure message recorded for items whose
// account can no longer be resolved. Such items are never retried
// automatically.
const AccountNotFoundMessage = "account not found"

// applyResult records one account outcome on the item and the task counters.
// The balance of a successful run is added to the task exactly once.
func (s *Supervisor) applyResult(ctx context.Context, run *taskRun, task *store.Task, item *store.WorkItem, result executor.Result, runErr error) {
	run.mu.Lock()
	defer run.mu.Unlock()

	switch {
	case runErr != nil:
		item.Status = store.ItemFailed
		if errors.Is(runErr, context.Canceled) {
			item.Message = CancelledMessage
		} else {
			item.Message = runErr.Error()
		}
		task.FailedCount++
	case result.Success:
		item.Status = store.ItemSuccess
		item.Balance = result.Balance
		item.Message = result.Message
		item.Screenshot = result.Screenshot
		task.SuccessCount++
		if result.Balance != nil {
			task.TotalBalance += *result.Balance
		}
	default:
		item.Status = store.ItemFailed
		item.Message = executor.FailureMessage(result.FailedStep, result.Message)
		item.Screenshot = result.Screenshot
		task.FailedCount++
	}

	if err := s.store.UpdateItem(ctx, item); err != nil {
		s.logger.Error("persist item outcome",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.Error(err))
	}
	if err := s.store.UpdateTask(ctx, task); err != nil {
		s.logger.Error("persist task counters",
			logging.Int64(logging.FieldTaskID, task.ID),
			logging.Error(err))
	}
	s.publish(task, item)
}

// failPending force-fails every item still pending when a cancelled run
// stops at a batch boundary. Items already in flight keep their real
// outcome; finalize persists the updated counters.
func (s *Supervisor) failPending(ctx context.Context, run *taskRun, task *store.Task, scope []*store.WorkItem) {
	run.mu.Lock()
	defer run.mu.Unlock()

	for _, item := range scope {
		if item.Status != store.ItemPending {
			continue
		}
		item.Status = store.ItemFailed
		item.Message = CancelledMessage
		task.FailedCount++
		if err := s.store.UpdateItem(ctx, item); err != nil {
			s.logger.Error("persist cancelled item",
				logging.Int64(logging.FieldItemID, item.ID),
				logging.Error(err))
		}
	}
}

// finalize moves the task to its terminal state once all rounds are done.
// A run that exhausts its retry rounds still completes; only an explicit
// cancel or shutdown marks the task failed.
func (s *Supervisor) finalize(ctx context.Context, run *taskRun, task *store.Task, cancelled bool, logger *slog.Logger) {
	run.mu.Lock()
	defer run.mu.Unlock()

	if cancelled {
		task.Status = store.TaskFailed
		if err := s.notifier.NotifyTaskCancelled(ctx, task.Name); err != nil {
			logger.Warn("notify task cancelled", logging.Error(err))
		}
	} else {
		task.Status = store.TaskCompleted
		if err := s.notifier.NotifyTaskCompleted(ctx, task.Name, task.SuccessCount, task.FailedCount, task.TotalBalance); err != nil {
			logger.Warn("notify task completed", logging.Error(err))
		}
	}

	if err := s.store.UpdateTask(ctx, task); err != nil {
		logger.Error("persist terminal task state", logging.Error(err))
	}
	s.publish(task, nil)
	logger.Info("task run finished",
		logging.String("status", string(task.Status)),
		logging.Int("success", task.SuccessCount),
		logging.Int("failed", task.FailedCount),
		logging.Float64("balance", task.TotalBalance))
}

func filterStatus(items []*store.WorkItem, status store.ItemStatus) []*store.WorkItem {
	var filtered []*store.WorkItem
	for _, item := range items {
		if item.Status == status {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
