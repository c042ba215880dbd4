package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// Manager is the task-facing API used by the CLI, the UI and the
// reconciliation engine. Reads always go back to the store.
type Manager struct {
	store Store
	ids   *IDGenerator
}

func NewManager(store Store, logger *slog.Logger) *Manager {
	return &Manager{
		store: store,
		ids:   NewIDGenerator(store, logger),
	}
}

func (m *Manager) CreateTask(ctx context.Context) (Task, error) {
	_, task, err := m.ids.CreateTaskWithID(ctx)
	if err != nil {
		return Task{}, err
	}
	return task, nil
}

// ImportTask creates a task at an externally chosen code, e.g. one found in a
// pull request branch. It fails with ErrDuplicateKey when the code exists.
func (m *Manager) ImportTask(ctx context.Context, code string) (Task, error) {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return Task{}, err
	}
	return m.store.CreateTask(ctx, normalized)
}

func (m *Manager) GetAllTasks(ctx context.Context) ([]TaskRow, error) {
	return m.store.ListTasks(ctx)
}

func (m *Manager) GetTask(ctx context.Context, code string) (Task, error) {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return Task{}, err
	}

	task, found, err := m.store.GetTask(ctx, normalized)
	if err != nil {
		return Task{}, err
	}
	if !found {
		return Task{}, fmt.Errorf("%w: %s", ErrNotFound, normalized)
	}
	return task, nil
}

func (m *Manager) LinkPRToTask(ctx context.Context, code, repo string, prNumber int, title, body string) (PullRequestLink, error) {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return PullRequestLink{}, err
	}
	return m.store.CreatePRLink(ctx, normalized, repo, prNumber, title, body)
}

func (m *Manager) GetPRsForTask(ctx context.Context, code string) ([]PullRequestLink, error) {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	return m.store.ListPRLinks(ctx, normalized)
}

func (m *Manager) DeleteTask(ctx context.Context, code string) (bool, error) {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return false, err
	}
	return m.store.DeleteTask(ctx, normalized)
}

// NextCode previews the code the next CreateTask would try first.
func (m *Manager) NextCode(ctx context.Context) (string, error) {
	return m.ids.GenerateNextID(ctx)
}

func (m *Manager) StatusCounts(ctx context.Context) ([]GroupCount, error) {
	return m.store.CountByStatus(ctx)
}
