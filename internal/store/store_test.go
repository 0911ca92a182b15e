package store_test

import (
	"context"
	"testing"

	"overseer/internal/store"
	"overseer/internal/testsupport"
)

func TestCreateTaskSeedsPendingItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	task := testsupport.NewTask(t, st, "create", 3)
	if task.Status != store.TaskPending {
		t.Fatalf("task status = %s, want pending", task.Status)
	}
	if task.TotalAccounts != 3 {
		t.Fatalf("total accounts = %d, want 3", task.TotalAccounts)
	}

	items, err := st.ItemsByTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("ItemsByTask: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	for _, item := range items {
		if item.Status != store.ItemPending {
			t.Errorf("item %d status = %s, want pending", item.ID, item.Status)
		}
		if item.Balance != nil {
			t.Errorf("item %d balance set before any run", item.ID)
		}
	}
}

func TestTaskByCodeAndUpdate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	created := testsupport.NewTask(t, st, "lookup", 2)

	task, err := st.TaskByCode(ctx, created.TaskCode)
	if err != nil {
		t.Fatalf("TaskByCode: %v", err)
	}
	if task == nil || task.ID != created.ID {
		t.Fatalf("TaskByCode returned %+v", task)
	}

	task.Status = store.TaskRunning
	task.SuccessCount = 1
	task.TotalBalance = 42.5
	if err := st.UpdateTask(ctx, task); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	reloaded, err := st.TaskByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("TaskByID: %v", err)
	}
	if reloaded.Status != store.TaskRunning || reloaded.SuccessCount != 1 || reloaded.TotalBalance != 42.5 {
		t.Fatalf("reloaded = %+v", reloaded)
	}

	missing, err := st.TaskByID(ctx, 9999)
	if err != nil {
		t.Fatalf("TaskByID missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing task, got %+v", missing)
	}
}

func TestListTasksPaginatesNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for _, name := range []string{"one", "two", "three", "four", "five"} {
		testsupport.NewTask(t, st, name, 1)
	}

	tasks, total, err := st.ListTasks(ctx, 1, 2, "")
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(tasks) != 2 {
		t.Fatalf("page size = %d, want 2", len(tasks))
	}
	if tasks[0].Name != "five" || tasks[1].Name != "four" {
		t.Fatalf("page 1 order = %s, %s", tasks[0].Name, tasks[1].Name)
	}

	tasks, _, err = st.ListTasks(ctx, 3, 2, "")
	if err != nil {
		t.Fatalf("ListTasks page 3: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Name != "one" {
		t.Fatalf("page 3 = %+v", tasks)
	}
}

func TestListTasksFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	running := testsupport.NewTask(t, st, "active", 1)
	testsupport.NewTask(t, st, "idle", 1)

	running.Status = store.TaskRunning
	if err := st.UpdateTask(ctx, running); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	tasks, total, err := st.ListTasks(ctx, 1, 10, store.TaskRunning)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if total != 1 || len(tasks) != 1 || tasks[0].ID != running.ID {
		t.Fatalf("filtered = %+v (total %d)", tasks, total)
	}
}

func TestDeleteTaskCascadesItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	task := testsupport.NewTask(t, st, "doomed", 2)

	removed, err := st.DeleteTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if !removed {
		t.Fatal("DeleteTask reported no rows")
	}

	items, err := st.ItemsByTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("ItemsByTask: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("items survived delete: %d", len(items))
	}

	removed, err = st.DeleteTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("DeleteTask again: %v", err)
	}
	if removed {
		t.Fatal("second delete reported rows")
	}
}

func TestResetItemsForRetryClearsOutcome(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	task := testsupport.NewTask(t, st, "retry", 1)
	items, err := st.ItemsByTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("ItemsByTask: %v", err)
	}
	item := items[0]
	balance := 12.3
	item.Status = store.ItemFailed
	item.Balance = &balance
	item.Message = "login failed"
	item.Screenshot = "shot.png"
	item.AttemptCount = 2
	if err := st.UpdateItem(ctx, item); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	affected, err := st.ResetItemsForRetry(ctx, item.ID)
	if err != nil {
		t.Fatalf("ResetItemsForRetry: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected = %d, want 1", affected)
	}

	reloaded, err := st.ItemByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("ItemByID: %v", err)
	}
	if reloaded.Status != store.ItemPending {
		t.Errorf("status = %s, want pending", reloaded.Status)
	}
	if reloaded.Balance != nil || reloaded.Message != "" || reloaded.Screenshot != "" {
		t.Errorf("outcome fields not cleared: %+v", reloaded)
	}
	// The dispatch tally is observability, not outcome; a reset keeps it.
	if reloaded.AttemptCount != 2 {
		t.Errorf("attempt count = %d, want 2", reloaded.AttemptCount)
	}
}

func TestIncompleteTasksReportsShortfall(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewTask(t, st, "full", 2)
	short := testsupport.NewTask(t, st, "short", 2)
	short.TotalAccounts = 5
	if err := st.UpdateTask(ctx, short); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	incomplete, err := st.IncompleteTasks(ctx)
	if err != nil {
		t.Fatalf("IncompleteTasks: %v", err)
	}
	if len(incomplete) != 1 {
		t.Fatalf("incomplete = %d, want 1", len(incomplete))
	}
	got := incomplete[0]
	if got.ID != short.ID || got.ActualItems != 2 || got.Missing != 3 {
		t.Fatalf("incomplete task = %+v", got)
	}
}

func TestRecoverInterruptedFailsRunningWork(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	task := testsupport.NewTask(t, st, "crash", 3)
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
	items[1].Status = store.ItemSuccess
	if err := st.UpdateItem(ctx, items[1]); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	summary, err := st.RecoverInterrupted(ctx)
	if err != nil {
		t.Fatalf("RecoverInterrupted: %v", err)
	}
	if summary.TasksFailed != 1 || summary.ItemsFailed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	reloaded, err := st.TaskByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("TaskByID: %v", err)
	}
	if reloaded.Status != store.TaskFailed {
		t.Errorf("task status = %s, want failed", reloaded.Status)
	}
	if reloaded.FailedCount != 1 {
		t.Errorf("failed count = %d, want 1", reloaded.FailedCount)
	}

	interrupted, err := st.ItemByID(ctx, items[0].ID)
	if err != nil {
		t.Fatalf("ItemByID: %v", err)
	}
	if interrupted.Status != store.ItemFailed {
		t.Errorf("interrupted item status = %s, want failed", interrupted.Status)
	}
	if interrupted.Message != store.InterruptedMessage {
		t.Errorf("interrupted message = %q", interrupted.Message)
	}

	pending, err := st.ItemByID(ctx, items[2].ID)
	if err != nil {
		t.Fatalf("ItemByID: %v", err)
	}
	if pending.Status != store.ItemPending {
		t.Errorf("pending item touched by recovery: %s", pending.Status)
	}
}

func TestUpsertAccountRefreshesCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first, err := st.UpsertAccount(ctx, "acct-001", "old@example.com", "old-pass")
	if err != nil {
		t.Fatalf("UpsertAccount: %v", err)
	}

	second, err := st.UpsertAccount(ctx, "acct-001", "new@example.com", "new-pass")
	if err != nil {
		t.Fatalf("UpsertAccount update: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert created new row: %d vs %d", second.ID, first.ID)
	}
	if second.Email != "new@example.com" || second.Password != "new-pass" {
		t.Fatalf("credentials not refreshed: %+v", second)
	}

	accounts, err := st.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("accounts = %d, want 1", len(accounts))
	}
}

func TestStatsAggregatesAcrossTasks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.NewTask(t, st, "alpha", 4)
	a.SuccessCount = 3
	a.FailedCount = 1
	a.TotalBalance = 100
	if err := st.UpdateTask(ctx, a); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	b := testsupport.NewTask(t, st, "beta", 2)
	b.SuccessCount = 1
	b.TotalBalance = 250
	if err := st.UpdateTask(ctx, b); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalTasks != 2 || stats.TotalAccounts != 6 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.SuccessCount != 4 || stats.FailedCount != 1 {
		t.Fatalf("counts = %+v", stats)
	}
	if stats.TotalBalance != 250 {
		t.Fatalf("total balance = %v, want 250", stats.TotalBalance)
	}
	if want := float64(4) / 5 * 100; stats.SuccessRate != want {
		t.Fatalf("success rate = %v, want %v", stats.SuccessRate, want)
	}
}
