package tasks

import (
	"context"
	"errors"
)

var (
	ErrNotFound       = errors.New("task not found")
	ErrDuplicateKey   = errors.New("task code already exists")
	ErrUnknownTask    = errors.New("cannot link pull request to unknown task")
	ErrInvalidCode    = errors.New("invalid task code")
	ErrCodesExhausted = errors.New("task code space exhausted")
)

// Store persists tasks and their pull request links. Every method is a
// self-contained unit of work; implementations must not hold a transaction
// open across calls.
type Store interface {
	CreateTask(ctx context.Context, code string) (Task, error)
	NextTaskNumber(ctx context.Context) (int64, error)
	ListTasks(ctx context.Context) ([]TaskRow, error)
	GetTask(ctx context.Context, code string) (Task, bool, error)
	CreatePRLink(ctx context.Context, code, repo string, prNumber int, title, body string) (PullRequestLink, error)
	ListPRLinks(ctx context.Context, code string) ([]PullRequestLink, error)
	DeleteTask(ctx context.Context, code string) (bool, error)
	CountByStatus(ctx context.Context) ([]GroupCount, error)
}
