package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sumanthaka/TerminalTask/internal/github"
	"github.com/sumanthaka/TerminalTask/internal/tasks"
)

type Status string

const (
	StatusUnavailable  Status = "unavailable"
	StatusSynced       Status = "synced"
	StatusActionNeeded Status = "action_needed"
)

type Kind string

const (
	// KindLink attaches a PR to an existing open task.
	KindLink Kind = "link"
	// KindImport creates a task at a code found remotely, then links the PR.
	KindImport Kind = "import"
)

type Item struct {
	Kind     Kind             `json:"kind"`
	TaskCode string           `json:"task_code"`
	PR       github.Reference `json:"pr"`
}

// Key identifies an item across passes.
func (i Item) Key() string {
	return fmt.Sprintf("%s:%s:%s#%d", i.Kind, i.TaskCode, i.PR.Repo, i.PR.Number)
}

// WithCode returns a copy of an import item that will be created at code.
func (i Item) WithCode(code string) Item {
	i.TaskCode = code
	return i
}

type Result struct {
	PassID         string    `json:"pass_id"`
	Status         Status    `json:"status"`
	Repo           string    `json:"repo,omitempty"`
	OpenTasks      int       `json:"open_tasks"`
	LinkedTasks    int       `json:"linked_tasks"`
	UnlinkedPRs    []Item    `json:"unlinked_prs"`
	UnimportedRefs []Item    `json:"unimported_refs"`
	ScannedAt      time.Time `json:"scanned_at"`
}

// Items returns link items followed by import items.
func (r Result) Items() []Item {
	items := make([]Item, 0, len(r.UnlinkedPRs)+len(r.UnimportedRefs))
	items = append(items, r.UnlinkedPRs...)
	return append(items, r.UnimportedRefs...)
}

type Outcome struct {
	Item           Item                  `json:"item"`
	Created        bool                  `json:"created"`
	AlreadyExisted bool                  `json:"already_existed"`
	AlreadyLinked  bool                  `json:"already_linked"`
	Link           tasks.PullRequestLink `json:"link"`
}

// TaskService is the slice of tasks.Manager the engine depends on.
type TaskService interface {
	GetAllTasks(ctx context.Context) ([]tasks.TaskRow, error)
	ImportTask(ctx context.Context, code string) (tasks.Task, error)
	LinkPRToTask(ctx context.Context, code, repo string, prNumber int, title, body string) (tasks.PullRequestLink, error)
}

// RemoteScanner is satisfied by *github.Scanner.
type RemoteScanner interface {
	IsAvailable(ctx context.Context) bool
	CurrentRepo(ctx context.Context) string
	FindUnlinked(ctx context.Context, codes []string, repo string) []github.Reference
	FindAllTaskReferences(ctx context.Context, repo string) []github.Reference
}

type Engine struct {
	tasks   TaskService
	scanner RemoteScanner
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

func NewEngine(taskService TaskService, scanner RemoteScanner, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		tasks:   taskService,
		scanner: scanner,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Reconcile runs one full pass from scratch. Only local store failures are
// returned as errors; remote problems yield StatusUnavailable or fewer items.
func (e *Engine) Reconcile(ctx context.Context) (Result, error) {
	result := Result{
		PassID:         e.newID(),
		UnlinkedPRs:    []Item{},
		UnimportedRefs: []Item{},
		ScannedAt:      e.now().UTC(),
	}
	logger := e.logger.With("pass_id", result.PassID)

	if !e.scanner.IsAvailable(ctx) {
		result.Status = StatusUnavailable
		logger.Info("reconcile skipped", "reason", "github unavailable")
		return result, nil
	}
	result.Repo = e.scanner.CurrentRepo(ctx)
	if result.Repo == "" {
		result.Status = StatusUnavailable
		logger.Info("reconcile skipped", "reason", "no repository")
		return result, nil
	}

	rows, err := e.tasks.GetAllTasks(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load local tasks: %w", err)
	}

	known := make(map[string]bool, len(rows))
	openCodes := make([]string, 0, len(rows))
	for _, row := range rows {
		known[row.Code] = true
		switch row.Status {
		case tasks.StatusOpen:
			openCodes = append(openCodes, row.Code)
		case tasks.StatusLinked:
			result.LinkedTasks++
		}
	}
	result.OpenTasks = len(openCodes)

	var unlinked, references []github.Reference
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		unlinked = e.scanner.FindUnlinked(groupCtx, openCodes, result.Repo)
		return nil
	})
	group.Go(func() error {
		references = e.scanner.FindAllTaskReferences(groupCtx, result.Repo)
		return nil
	})
	if err := group.Wait(); err != nil {
		return Result{}, err
	}

	for _, ref := range unlinked {
		result.UnlinkedPRs = append(result.UnlinkedPRs, Item{Kind: KindLink, TaskCode: ref.TaskCode, PR: ref})
	}
	for _, ref := range references {
		if known[ref.TaskCode] {
			continue
		}
		result.UnimportedRefs = append(result.UnimportedRefs, Item{Kind: KindImport, TaskCode: ref.TaskCode, PR: ref})
	}

	result.Status = StatusSynced
	if len(result.UnlinkedPRs) > 0 || len(result.UnimportedRefs) > 0 {
		result.Status = StatusActionNeeded
	}
	logger.Info("reconcile pass complete",
		"repo", result.Repo,
		"status", result.Status,
		"open_tasks", result.OpenTasks,
		"unlinked", len(result.UnlinkedPRs),
		"unimported", len(result.UnimportedRefs),
	)
	return result, nil
}

// Apply performs the action an item calls for. Importing a code that already
// exists is reported through Outcome.AlreadyExisted and the link still runs.
func (e *Engine) Apply(ctx context.Context, item Item) (Outcome, error) {
	outcome := Outcome{Item: item}

	switch item.Kind {
	case KindImport:
		_, err := e.tasks.ImportTask(ctx, item.TaskCode)
		switch {
		case err == nil:
			outcome.Created = true
		case errors.Is(err, tasks.ErrDuplicateKey):
			outcome.AlreadyExisted = true
			e.logger.Info("import target already exists", "code", item.TaskCode)
		default:
			return outcome, fmt.Errorf("import %s: %w", item.TaskCode, err)
		}
		if item.PR.Number <= 0 {
			return outcome, nil
		}
	case KindLink:
	default:
		return outcome, fmt.Errorf("unknown item kind %q", item.Kind)
	}

	link, err := e.tasks.LinkPRToTask(ctx, item.TaskCode, item.PR.Repo, item.PR.Number, item.PR.Title, item.PR.Body)
	switch {
	case err == nil:
		outcome.Link = link
	case errors.Is(err, tasks.ErrDuplicateKey):
		outcome.AlreadyLinked = true
	default:
		return outcome, fmt.Errorf("link %s to %s#%d: %w", item.TaskCode, item.PR.Repo, item.PR.Number, err)
	}

	e.logger.Info("reconcile item applied",
		"kind", item.Kind,
		"code", item.TaskCode,
		"repo", item.PR.Repo,
		"pr", item.PR.Number,
		"created", outcome.Created,
	)
	return outcome, nil
}

// Resolve applies item and then recomputes the classification from storage.
func (e *Engine) Resolve(ctx context.Context, item Item) (Outcome, Result, error) {
	outcome, err := e.Apply(ctx, item)
	if err != nil {
		return outcome, Result{}, err
	}
	result, err := e.Reconcile(ctx)
	if err != nil {
		return outcome, Result{}, err
	}
	return outcome, result, nil
}
