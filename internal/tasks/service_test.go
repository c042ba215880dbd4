package tasks

import (
	"context"
	"errors"
	"testing"
)

func TestManagerLinkPRMarksTaskLinked(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager := NewManager(NewMemoryStore(), nil)

	task, err := manager.CreateTask(ctx)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Status != StatusOpen {
		t.Fatalf("expected new task to be open, got %q", task.Status)
	}

	link, err := manager.LinkPRToTask(ctx, task.Code, "owner/repo", 12, "Fix bug", "")
	if err != nil {
		t.Fatalf("LinkPRToTask: %v", err)
	}
	if link.TaskCode != task.Code || link.PRNumber != 12 {
		t.Fatalf("unexpected link: %#v", link)
	}

	fresh, err := manager.GetTask(ctx, task.Code)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if fresh.Status != StatusLinked {
		t.Fatalf("expected linked status on fresh read, got %q", fresh.Status)
	}
}

func TestManagerLinkPRToUnknownTask(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	manager := NewManager(store, nil)

	_, err := manager.LinkPRToTask(ctx, "tt-99", "owner/repo", 1, "Ghost", "")
	if !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("expected ErrUnknownTask, got %v", err)
	}

	links, err := manager.GetPRsForTask(ctx, "tt-99")
	if err != nil {
		t.Fatalf("GetPRsForTask: %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("expected no orphaned links, got %#v", links)
	}
}

func TestManagerGetTaskNotFound(t *testing.T) {
	t.Parallel()

	_, err := NewManager(NewMemoryStore(), nil).GetTask(context.Background(), "tt-4")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestManagerNormalizesUserTypedCodes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager := NewManager(NewMemoryStore(), nil)

	if _, err := manager.ImportTask(ctx, "TT-0012"); err != nil {
		t.Fatalf("ImportTask: %v", err)
	}
	task, err := manager.GetTask(ctx, "tt-12")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.Code != "tt-12" {
		t.Fatalf("expected canonical code tt-12, got %q", task.Code)
	}

	if _, err := manager.GetTask(ctx, "twelve"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
}

func TestManagerImportDuplicateFailsDistinctly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager := NewManager(NewMemoryStore(), nil)

	if _, err := manager.ImportTask(ctx, "tt-7"); err != nil {
		t.Fatalf("ImportTask: %v", err)
	}
	if _, err := manager.ImportTask(ctx, "tt-7"); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestManagerImportAdvancesNextNumber(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager := NewManager(NewMemoryStore(), nil)

	if _, err := manager.ImportTask(ctx, "tt-40"); err != nil {
		t.Fatalf("ImportTask: %v", err)
	}
	task, err := manager.CreateTask(ctx)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Code != "tt-41" {
		t.Fatalf("expected tt-41 after importing tt-40, got %q", task.Code)
	}
}

func TestManagerImportRejectsOutOfRangeCode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager := NewManager(NewMemoryStore(), nil)

	if _, err := manager.ImportTask(ctx, "tt-9223372036854775807"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	if _, err := manager.ImportTask(ctx, FormatCode(MaxCodeNumber)); err != nil {
		t.Fatalf("ImportTask at max: %v", err)
	}
	if _, err := manager.NextCode(ctx); !errors.Is(err, ErrCodesExhausted) {
		t.Fatalf("expected ErrCodesExhausted from NextCode, got %v", err)
	}
	if _, err := manager.CreateTask(ctx); !errors.Is(err, ErrCodesExhausted) {
		t.Fatalf("expected ErrCodesExhausted from CreateTask, got %v", err)
	}
}

func TestManagerDeleteTaskRemovesLinks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager := NewManager(NewMemoryStore(), nil)

	task, err := manager.CreateTask(ctx)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := manager.LinkPRToTask(ctx, task.Code, "owner/repo", 3, "One", ""); err != nil {
		t.Fatalf("LinkPRToTask: %v", err)
	}

	deleted, err := manager.DeleteTask(ctx, task.Code)
	if err != nil || !deleted {
		t.Fatalf("DeleteTask deleted=%v err=%v", deleted, err)
	}

	deletedAgain, err := manager.DeleteTask(ctx, task.Code)
	if err != nil {
		t.Fatalf("second DeleteTask: %v", err)
	}
	if deletedAgain {
		t.Fatalf("expected second delete to report false")
	}

	links, err := manager.GetPRsForTask(ctx, task.Code)
	if err != nil {
		t.Fatalf("GetPRsForTask: %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("expected links to be gone, got %#v", links)
	}
}
