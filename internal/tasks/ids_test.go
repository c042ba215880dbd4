package tasks

import (
	"context"
	"errors"
	"testing"
)

func TestCreateTaskWithIDIsStrictlyIncreasingWithoutGaps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gen := NewIDGenerator(NewMemoryStore(), nil)

	for want := int64(1); want <= 25; want++ {
		code, task, err := gen.CreateTaskWithID(ctx)
		if err != nil {
			t.Fatalf("CreateTaskWithID #%d: %v", want, err)
		}
		if code != FormatCode(want) {
			t.Fatalf("expected code %q, got %q", FormatCode(want), code)
		}
		if task.Code != code || task.Status != StatusOpen {
			t.Fatalf("unexpected task record: %#v", task)
		}
	}
}

func TestGenerateNextIDStartsAtOne(t *testing.T) {
	t.Parallel()

	code, err := NewIDGenerator(NewMemoryStore(), nil).GenerateNextID(context.Background())
	if err != nil {
		t.Fatalf("GenerateNextID: %v", err)
	}
	if code != "tt-1" {
		t.Fatalf("expected tt-1, got %q", code)
	}
}

// staleStore reports an outdated next number a fixed number of times, the
// way a concurrent writer would make it look.
type staleStore struct {
	*MemoryStore
	staleReads int
}

func (s *staleStore) NextTaskNumber(ctx context.Context) (int64, error) {
	if s.staleReads > 0 {
		s.staleReads--
		return 1, nil
	}
	return s.MemoryStore.NextTaskNumber(ctx)
}

func TestCreateTaskWithIDRetriesOnCollision(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &staleStore{MemoryStore: NewMemoryStore()}
	if _, err := store.CreateTask(ctx, "tt-1"); err != nil {
		t.Fatalf("seed CreateTask: %v", err)
	}
	store.staleReads = 2

	code, _, err := NewIDGenerator(store, nil).CreateTaskWithID(ctx)
	if err != nil {
		t.Fatalf("CreateTaskWithID: %v", err)
	}
	if code != "tt-2" {
		t.Fatalf("expected retry to land on tt-2, got %q", code)
	}
}

func TestCreateTaskWithIDGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &staleStore{MemoryStore: NewMemoryStore()}
	if _, err := store.CreateTask(ctx, "tt-1"); err != nil {
		t.Fatalf("seed CreateTask: %v", err)
	}
	store.staleReads = defaultCreateAttempts + 1

	_, _, err := NewIDGenerator(store, nil).CreateTaskWithID(ctx)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey after exhausting retries, got %v", err)
	}

	task, found, err := store.GetTask(ctx, "tt-1")
	if err != nil || !found {
		t.Fatalf("expected seeded task to survive, found=%v err=%v", found, err)
	}
	if task.Status != StatusOpen {
		t.Fatalf("expected seeded task to be untouched, got %q", task.Status)
	}
}
