package orchestrator

import (
	"context"
	"sync"
	"time"

	"overseer/internal/executor"
	"overseer/internal/logging"
	"overseer/internal/store"
)

// runTask drives one task execution from start to its terminal state. When
// itemIDs is non-nil only those items are in scope; otherwise every pending
// item of the task is.
func (s *Supervisor) runTask(ctx context.Context, run *taskRun, taskID int64, itemIDs []int64) {
	defer s.finishRun(taskID, run)

	// Store writes must survive run cancellation so outcomes are not lost.
	persist := context.WithoutCancel(ctx)

	logger := s.logger.With(logging.Int64(logging.FieldTaskID, taskID))

	task, err := s.store.TaskByID(persist, taskID)
	if err != nil || task == nil {
		logger.Error("load task for run", logging.Error(err))
		return
	}

	// A scope that cannot be loaded aborts the run before anything is
	// marked running, leaving the task startable again.
	scope, err := s.scopeItems(persist, taskID, itemIDs)
	if err != nil {
		logger.Error("load run scope", logging.Error(err))
		return
	}

	task.Status = store.TaskRunning
	if err := s.store.UpdateTask(persist, task); err != nil {
		logger.Error("mark task running", logging.Error(err))
		return
	}
	s.publish(task, nil)

	if err := s.notifier.NotifyTaskStarted(persist, task.Name, len(scope)); err != nil {
		logger.Warn("notify task started", logging.Error(err))
	}
	logger.Info("task run started",
		logging.String(logging.FieldTaskCode, task.TaskCode),
		logging.Int("items", len(scope)),
		logging.Int("batch_size", s.cfg.Scheduler.BatchSize))

	maxRounds := s.cfg.Scheduler.MaxRetryRounds
	for round := 0; ; round++ {
		pending := filterStatus(scope, store.ItemPending)
		if len(pending) == 0 {
			break
		}
		if round > 0 {
			logger.Info("retry round started",
				logging.Int(logging.FieldRound, round),
				logging.Int("items", len(pending)))
		}
		s.runBatches(ctx, run, task, pending)
		if ctx.Err() != nil {
			break
		}
		if round >= maxRounds {
			break
		}
		if !s.resetFailedForRetry(persist, run, task, scope, maxRounds) {
			break
		}
	}

	cancelled := ctx.Err() != nil || s.isCancelled(taskID)
	if cancelled {
		s.failPending(persist, run, task, scope)
	}
	s.finalize(persist, run, task, cancelled, logger)
}

// scopeItems loads the work items a run operates on.
func (s *Supervisor) scopeItems(ctx context.Context, taskID int64, itemIDs []int64) ([]*store.WorkItem, error) {
	if itemIDs == nil {
		return s.store.ItemsByTaskAndStatus(ctx, taskID, store.ItemPending)
	}
	wanted := make(map[int64]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = struct{}{}
	}
	all, err := s.store.ItemsByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	scoped := make([]*store.WorkItem, 0, len(itemIDs))
	for _, item := range all {
		if _, ok := wanted[item.ID]; ok {
			scoped = append(scoped, item)
		}
	}
	return scoped, nil
}

// runBatches processes items in fixed-width batches with a join barrier
// between batches and a throttle delay between consecutive batches.
func (s *Supervisor) runBatches(ctx context.Context, run *taskRun, task *store.Task, items []*store.WorkItem) {
	batchSize := s.cfg.Scheduler.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	delay := s.batchDelay()

	for start := 0; start < len(items); start += batchSize {
		if ctx.Err() != nil {
			return
		}
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		batchNum := start/batchSize + 1
		for _, item := range items[start:end] {
			wg.Add(1)
			go func(item *store.WorkItem) {
				defer wg.Done()
				s.runItem(ctx, run, task, item, batchNum)
			}(item)
		}
		wg.Wait()

		if end < len(items) && delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
	}
}

// runItem executes one account through the browser runner and records the
// outcome.
func (s *Supervisor) runItem(ctx context.Context, run *taskRun, task *store.Task, item *store.WorkItem, batch int) {
	persist := context.WithoutCancel(ctx)
	logger := s.logger.With(
		logging.Int64(logging.FieldTaskID, task.ID),
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldAccount, item.AccountCode),
		logging.Int(logging.FieldBatch, batch))

	email, password, ok := s.resolveCredentials(persist, item)
	if !ok {
		logger.Warn("account not found, item not dispatched")
		s.applyResult(persist, run, task, item, executor.Result{Message: AccountNotFoundMessage}, nil)
		return
	}

	run.mu.Lock()
	item.Status = store.ItemRunning
	item.AttemptCount++
	if err := s.store.UpdateItem(persist, item); err != nil {
		logger.Error("mark item running", logging.Error(err))
	}
	run.mu.Unlock()

	result, err := s.exec.Run(ctx, executor.Params{
		TaskCode:    task.TaskCode,
		AccountCode: item.AccountCode,
		Email:       email,
		Password:    password,
		Headless:    s.cfg.Executor.Headless,
	})
	if err != nil {
		logger.Warn("account run errored", logging.Error(err))
	} else if result.Success {
		logger.Info("account run succeeded")
	} else {
		logger.Info("account run failed",
			logging.String("failed_step", result.FailedStep),
			logging.String("message", result.Message))
	}

	s.applyResult(persist, run, task, item, result, err)
}

// resolveCredentials picks the credentials an item runs with. The account
// pool wins so a password update there takes effect on the next dispatch;
// items created from an explicit list fall back to their embedded
// credentials. Reports false when neither source resolves.
func (s *Supervisor) resolveCredentials(ctx context.Context, item *store.WorkItem) (string, string, bool) {
	account, err := s.store.AccountByCode(ctx, item.AccountCode)
	if err != nil {
		s.logger.Error("resolve account",
			logging.String(logging.FieldAccount, item.AccountCode),
			logging.Error(err))
	}
	if account != nil {
		return account.Email, account.Password, true
	}
	if item.Email != "" && item.Password != "" {
		return item.Email, item.Password, true
	}
	return "", "", false
}

// resetFailedForRetry moves failed items in scope back to pending for the
// next round, honoring the per-item retry budget. Reports whether anything
// was reset.
func (s *Supervisor) resetFailedForRetry(ctx context.Context, run *taskRun, task *store.Task, scope []*store.WorkItem, maxRounds int) bool {
	run.mu.Lock()
	defer run.mu.Unlock()

	var ids []int64
	for _, item := range scope {
		if item.Status != store.ItemFailed {
			continue
		}
		// A missing account fails the same way every round; leave it alone.
		if item.Message == AccountNotFoundMessage {
			continue
		}
		if run.retries[item.ID] >= maxRounds {
			continue
		}
		run.retries[item.ID]++
		ids = append(ids, item.ID)
	}
	if len(ids) == 0 {
		return false
	}

	if _, err := s.store.ResetItemsForRetry(ctx, ids...); err != nil {
		s.logger.Error("reset items for retry", logging.Error(err))
		return false
	}
	reset := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		reset[id] = struct{}{}
	}
	for _, item := range scope {
		if _, ok := reset[item.ID]; ok {
			item.Status = store.ItemPending
			item.Balance = nil
			item.Message = ""
			item.Screenshot = ""
		}
	}

	task.FailedCount -= len(ids)
	if task.FailedCount < 0 {
		task.FailedCount = 0
	}
	if err := s.store.UpdateTask(ctx, task); err != nil {
		s.logger.Error("update task after retry reset", logging.Error(err))
	}
	s.publish(task, nil)
	return true
}
