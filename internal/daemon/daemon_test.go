package daemon_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"overseer/internal/config"
	"overseer/internal/daemon"
	"overseer/internal/executor"
	"overseer/internal/logging"
	"overseer/internal/notifications"
	"overseer/internal/orchestrator"
	"overseer/internal/progress"
	"overseer/internal/server"
	"overseer/internal/store"
	"overseer/internal/testsupport"
)

type idleExecutor struct{}

func (idleExecutor) Run(ctx context.Context, params executor.Params) (executor.Result, error) {
	return executor.Result{Success: true}, nil
}

func newDaemon(t *testing.T, cfg *config.Config, st *store.Store) *daemon.Daemon {
	t.Helper()
	logger := logging.NewNop()
	hub := progress.NewHub()
	notifier := notifications.NewService(cfg)
	sup := orchestrator.New(cfg, st, idleExecutor{}, notifier, hub, logger)
	api := server.New(cfg, st, sup, hub, notifier, logger)

	d, err := daemon.New(cfg, st, sup, api, notifier, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func TestDaemonStartStopServesAPI(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if !d.Running() {
		t.Fatal("daemon not running after Start")
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + d.APIAddr() + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health = %d", resp.StatusCode)
	}

	d.Stop()
	if d.Running() {
		t.Fatal("daemon still running after Stop")
	}
}

func TestDaemonStartRunsRecoverySweep(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	task := testsupport.NewTask(t, st, "crashed", 2)
	items, err := st.ItemsByTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("ItemsByTask: %v", err)
	}
	task.Status = store.TaskRunning
	if err := st.UpdateTask(ctx, task); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	items[0].Status = store.ItemRunning
	if err := st.UpdateItem(ctx, items[0]); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	d := newDaemon(t, cfg, st)
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(runCtx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	recovered, err := st.TaskByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("TaskByID: %v", err)
	}
	if recovered.Status != store.TaskFailed || recovered.FailedCount != 1 {
		t.Fatalf("recovered task = %+v", recovered)
	}
}

func TestDaemonRefusesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	first := newDaemon(t, cfg, st)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer first.Stop()

	second := newDaemon(t, cfg, st)
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock")
	}
}
