package testsupport

import (
	"context"
	"fmt"
	"testing"

	"overseer/internal/config"
	"overseer/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewTask creates a task with n generated accounts for tests.
func NewTask(t testing.TB, st *store.Store, name string, n int) *store.Task {
	t.Helper()

	inputs := make([]store.NewTaskInput, 0, n)
	for i := 0; i < n; i++ {
		inputs = append(inputs, store.NewTaskInput{
			AccountCode: fmt.Sprintf("acct-%s-%03d", name, i),
			Email:       fmt.Sprintf("%s-%03d@example.com", name, i),
			Password:    "secret",
		})
	}
	task, err := st.CreateTask(context.Background(), "task-"+name, name, inputs)
	if err != nil {
		t.Fatalf("store.CreateTask: %v", err)
	}
	return task
}
