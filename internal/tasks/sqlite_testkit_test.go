package tasks

import (
	"context"
	"path/filepath"
	"testing"
)

type sqliteTestHarness struct {
	Ctx     context.Context
	Store   *SQLiteStore
	Manager *Manager
}

func newSQLiteTestHarness(t *testing.T) *sqliteTestHarness {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	return &sqliteTestHarness{
		Ctx:     context.Background(),
		Store:   store,
		Manager: NewManager(store, nil),
	}
}

// createTasks allocates n codes through the manager and returns them in order.
func (h *sqliteTestHarness) createTasks(t *testing.T, n int) []string {
	t.Helper()

	codes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		task, err := h.Manager.CreateTask(h.Ctx)
		if err != nil {
			t.Fatalf("CreateTask #%d: %v", i+1, err)
		}
		codes = append(codes, task.Code)
	}
	return codes
}
