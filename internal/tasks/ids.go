package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

const defaultCreateAttempts = 5

// IDGenerator hands out monotonic task codes. The read-max-then-insert
// sequence is not atomic, so a collision with a concurrent writer surfaces as
// ErrDuplicateKey from the store and is retried with a fresh number.
type IDGenerator struct {
	store       Store
	logger      *slog.Logger
	maxAttempts int
}

func NewIDGenerator(store Store, logger *slog.Logger) *IDGenerator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &IDGenerator{
		store:       store,
		logger:      logger,
		maxAttempts: defaultCreateAttempts,
	}
}

func (g *IDGenerator) GenerateNextID(ctx context.Context) (string, error) {
	next, err := g.store.NextTaskNumber(ctx)
	if err != nil {
		return "", fmt.Errorf("compute next task number: %w", err)
	}
	return FormatCode(next), nil
}

func (g *IDGenerator) CreateTaskWithID(ctx context.Context) (string, Task, error) {
	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		code, err := g.GenerateNextID(ctx)
		if err != nil {
			return "", Task{}, err
		}

		task, err := g.store.CreateTask(ctx, code)
		if err == nil {
			return task.Code, task, nil
		}
		if !errors.Is(err, ErrDuplicateKey) {
			return "", Task{}, fmt.Errorf("create task %s: %w", code, err)
		}

		lastErr = err
		g.logger.Warn("task code collision, retrying", "code", code, "attempt", attempt)
	}
	return "", Task{}, fmt.Errorf("create task after %d attempts: %w", g.maxAttempts, lastErr)
}
