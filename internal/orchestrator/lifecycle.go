package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"overseer/internal/logging"
	"overseer/internal/store"
)

// CreateTask registers a new task with one pending work item per credential.
// The run does not start until StartTask is called.
func (s *Supervisor) CreateTask(ctx context.Context, name string, inputs []store.NewTaskInput) (*store.Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("task name is required")
	}
	if len(inputs) == 0 {
		return nil, errors.New("task requires at least one account")
	}

	taskCode := "task-" + uuid.NewString()[:8]
	task, err := s.store.CreateTask(ctx, taskCode, name, inputs)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.logger.Info("task created",
		logging.Int64(logging.FieldTaskID, task.ID),
		logging.String(logging.FieldTaskCode, task.TaskCode),
		logging.Int("accounts", task.TotalAccounts))
	s.publish(task, nil)
	return task, nil
}

// StartTask launches the run for a pending task.
func (s *Supervisor) StartTask(ctx context.Context, taskID int64) error {
	task, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNotFound
	}
	if s.Running(taskID) || task.Status == store.TaskRunning {
		return ErrTaskRunning
	}
	if task.Status != store.TaskPending {
		return ErrTaskNotStartable
	}
	return s.launch(taskID, nil)
}

// CancelTask requests cooperative cancellation of a live run. When no live
// run exists but the store still says running (a stale row), the task is
// failed directly.
func (s *Supervisor) CancelTask(ctx context.Context, taskID int64) error {
	s.mu.Lock()
	if run, ok := s.runs[taskID]; ok {
		s.cancelled[taskID] = struct{}{}
		run.cancel()
		s.mu.Unlock()
		s.logger.Info("task cancel requested", logging.Int64(logging.FieldTaskID, taskID))
		return nil
	}
	s.mu.Unlock()

	task, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNotFound
	}
	if task.Status != store.TaskRunning {
		return ErrTaskNotRunning
	}

	// Stale running row without a live run: fail it the way recovery would.
	items, err := s.store.ItemsByTaskAndStatus(ctx, taskID, store.ItemRunning)
	if err != nil {
		return err
	}
	for _, item := range items {
		item.Status = store.ItemFailed
		item.Message = CancelledMessage
		if err := s.store.UpdateItem(ctx, item); err != nil {
			return err
		}
		task.FailedCount++
	}
	task.Status = store.TaskFailed
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return err
	}
	s.publish(task, nil)
	return nil
}

// ResumeTask restarts an interrupted task: failed items return to pending
// alongside any untouched pending items, and the run picks up from there.
func (s *Supervisor) ResumeTask(ctx context.Context, taskID int64) error {
	return s.restartTask(ctx, taskID, true)
}

// RetryAllFailed re-runs only the failed items of a finished task.
func (s *Supervisor) RetryAllFailed(ctx context.Context, taskID int64) error {
	return s.restartTask(ctx, taskID, false)
}

// restartTask resets failed items to pending and launches a fresh run. When
// includePending is true, untouched pending items also count toward the
// decision that there is work to do.
func (s *Supervisor) restartTask(ctx context.Context, taskID int64, includePending bool) error {
	task, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNotFound
	}
	if s.Running(taskID) || task.Status == store.TaskRunning {
		return ErrTaskRunning
	}

	failed, err := s.store.ItemsByTaskAndStatus(ctx, taskID, store.ItemFailed)
	if err != nil {
		return err
	}
	pendingWork := len(failed)
	if includePending {
		pending, err := s.store.ItemsByTaskAndStatus(ctx, taskID, store.ItemPending)
		if err != nil {
			return err
		}
		pendingWork += len(pending)
	}
	if pendingWork == 0 {
		return ErrNothingToRetry
	}

	if len(failed) > 0 {
		ids := make([]int64, 0, len(failed))
		for _, item := range failed {
			ids = append(ids, item.ID)
		}
		if _, err := s.store.ResetItemsForRetry(ctx, ids...); err != nil {
			return err
		}
		task.FailedCount -= len(ids)
		if task.FailedCount < 0 {
			task.FailedCount = 0
		}
	}

	task.Status = store.TaskPending
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return err
	}
	s.publish(task, nil)
	return s.launch(taskID, nil)
}

// RetrySingleItem re-runs one failed or never-run item of an idle task. A
// previously counted failure is uncounted, and any stale balance the item
// carried is removed from the task total before the fresh run reports.
func (s *Supervisor) RetrySingleItem(ctx context.Context, taskID, itemID int64) error {
	task, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNotFound
	}
	if s.Running(taskID) || task.Status == store.TaskRunning {
		return ErrTaskRunning
	}

	item, err := s.store.ItemByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil || item.TaskID != taskID {
		return ErrItemNotFound
	}
	if item.Status != store.ItemFailed && item.Status != store.ItemPending {
		return ErrItemNotRetryable
	}

	if item.Status == store.ItemFailed {
		task.FailedCount--
		if task.FailedCount < 0 {
			task.FailedCount = 0
		}
	}
	if item.Balance != nil {
		task.TotalBalance -= *item.Balance
		if task.TotalBalance < 0 {
			task.TotalBalance = 0
		}
	}
	if _, err := s.store.ResetItemsForRetry(ctx, item.ID); err != nil {
		return err
	}
	task.Status = store.TaskPending
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return err
	}
	s.publish(task, nil)
	return s.launch(taskID, []int64{itemID})
}

// RepairTask tops an undersized task back up to its declared account total
// by enrolling pooled accounts the task does not use yet. Returns how many
// items were added. Calling it on a complete task is a no-op.
func (s *Supervisor) RepairTask(ctx context.Context, taskID int64) (int, error) {
	task, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return 0, err
	}
	if task == nil {
		return 0, ErrTaskNotFound
	}
	if s.Running(taskID) || task.Status == store.TaskRunning {
		return 0, ErrTaskRunning
	}

	items, err := s.store.ItemsByTask(ctx, taskID)
	if err != nil {
		return 0, err
	}
	missing := task.TotalAccounts - len(items)
	if missing <= 0 {
		return 0, nil
	}

	used := make(map[string]struct{}, len(items))
	for _, item := range items {
		used[item.AccountCode] = struct{}{}
	}
	pool, err := s.store.ListAccounts(ctx)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, account := range pool {
		if added >= missing {
			break
		}
		if _, ok := used[account.AccountCode]; ok {
			continue
		}
		if _, err := s.store.AddItem(ctx, taskID, store.NewTaskInput{
			AccountCode: account.AccountCode,
			Email:       account.Email,
			Password:    account.Password,
		}); err != nil {
			return added, err
		}
		added++
	}
	if added > 0 {
		s.logger.Info("task repaired",
			logging.Int64(logging.FieldTaskID, taskID),
			logging.Int("added", added))
		s.publish(task, nil)
	}
	return added, nil
}

// ForceDeleteTask cancels any live run and removes the task with its items.
func (s *Supervisor) ForceDeleteTask(ctx context.Context, taskID int64) error {
	s.mu.Lock()
	run, live := s.runs[taskID]
	if live {
		s.cancelled[taskID] = struct{}{}
		run.cancel()
	}
	s.mu.Unlock()

	if live {
		select {
		case <-run.done:
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(30 * time.Second):
			return errors.New("timed out waiting for run to stop")
		}
	}

	removed, err := s.store.DeleteTask(ctx, taskID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrTaskNotFound
	}
	if s.hub != nil {
		s.hub.Forget(taskID)
	}
	s.logger.Info("task deleted", logging.Int64(logging.FieldTaskID, taskID))
	return nil
}
