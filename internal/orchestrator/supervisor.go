package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"overseer/internal/config"
	"overseer/internal/executor"
	"overseer/internal/logging"
	"overseer/internal/notifications"
	"overseer/internal/progress"
	"overseer/internal/store"
)

// Supervisor owns task execution: it schedules batches, coordinates retries,
// and keeps per-run state that never leaves process memory.
type Supervisor struct {
	cfg      *config.Config
	store    *store.Store
	exec     executor.Executor
	notifier notifications.Service
	hub      *progress.Hub
	logger   *slog.Logger

	mu        sync.Mutex
	runs      map[int64]*taskRun
	cancelled map[int64]struct{}
	wg        sync.WaitGroup
}

// taskRun tracks one in-flight task execution.
type taskRun struct {
	cancel context.CancelFunc
	done   chan struct{}

	// mu guards the shared task row while batch goroutines apply results.
	mu sync.Mutex
	// retries counts automatic retry resets per work item for this run only.
	retries map[int64]int
}

// New constructs a supervisor.
func New(cfg *config.Config, st *store.Store, exec executor.Executor, notifier notifications.Service, hub *progress.Hub, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		cfg:       cfg,
		store:     st,
		exec:      exec,
		notifier:  notifier,
		hub:       hub,
		logger:    logging.NewComponentLogger(logger, "orchestrator"),
		runs:      make(map[int64]*taskRun),
		cancelled: make(map[int64]struct{}),
	}
}

// Running reports whether a task currently has a live run.
func (s *Supervisor) Running(taskID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.runs[taskID]
	return ok
}

// Stop cancels every live run and waits for them to wind down or the context
// to expire.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	for _, run := range s.runs {
		run.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecoverInterrupted sweeps tasks that were running when the daemon stopped.
// It must run before the API starts accepting requests.
func (s *Supervisor) RecoverInterrupted(ctx context.Context) error {
	summary, err := s.store.RecoverInterrupted(ctx)
	if err != nil {
		return err
	}
	if summary.TasksFailed > 0 || summary.ItemsFailed > 0 {
		s.logger.Warn("recovered interrupted work",
			logging.Int64("tasks_failed", summary.TasksFailed),
			logging.Int64("items_failed", summary.ItemsFailed))
	}
	return nil
}

func (s *Supervisor) isCancelled(taskID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cancelled[taskID]
	return ok
}

// launch registers a run and starts its goroutine. Callers must hold no locks.
func (s *Supervisor) launch(taskID int64, itemIDs []int64) error {
	s.mu.Lock()
	if _, ok := s.runs[taskID]; ok {
		s.mu.Unlock()
		return ErrTaskRunning
	}
	runCtx, cancel := context.WithCancel(context.Background())
	run := &taskRun{
		cancel:  cancel,
		done:    make(chan struct{}),
		retries: make(map[int64]int),
	}
	s.runs[taskID] = run
	delete(s.cancelled, taskID)
	s.wg.Add(1)
	s.mu.Unlock()

	go s.runTask(runCtx, run, taskID, itemIDs)
	return nil
}

func (s *Supervisor) finishRun(taskID int64, run *taskRun) {
	s.mu.Lock()
	delete(s.runs, taskID)
	delete(s.cancelled, taskID)
	s.mu.Unlock()
	run.cancel()
	close(run.done)
	s.wg.Done()
}

func (s *Supervisor) publish(task *store.Task, latest *store.WorkItem) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(progress.SnapshotTask(task, latest))
}

func (s *Supervisor) batchDelay() time.Duration {
	return time.Duration(s.cfg.Scheduler.BatchDelaySeconds) * time.Second
}
