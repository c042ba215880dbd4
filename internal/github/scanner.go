package github

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/sumanthaka/TerminalTask/internal/tasks"
)

// Reference is a pull request seen during a scan, tagged with the task code
// it was matched against. It is never persisted.
type Reference struct {
	TaskCode string `json:"task_code,omitempty"`
	Number   int    `json:"pr_number"`
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
	Branch   string `json:"branch"`
	Repo     string `json:"repo"`
}

type ScannerConfig struct {
	// Repo overrides the repository detected from the current directory.
	Repo  string
	Limit int
}

// Scanner answers reconciliation queries against a Provider. Provider
// failures are logged and reported as empty results.
type Scanner struct {
	provider Provider
	repo     string
	limit    int
	logger   *slog.Logger
}

func NewScanner(provider Provider, cfg ScannerConfig, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Scanner{
		provider: provider,
		repo:     strings.TrimSpace(cfg.Repo),
		limit:    limit,
		logger:   logger,
	}
}

func (s *Scanner) IsAvailable(ctx context.Context) bool {
	if err := s.provider.Available(ctx); err != nil {
		s.logger.Info("github integration unavailable", "error", err)
		return false
	}
	return true
}

// CurrentRepo returns the configured repository, else the one gh detects, else
// an empty string.
func (s *Scanner) CurrentRepo(ctx context.Context) string {
	if s.repo != "" {
		return s.repo
	}
	repo, err := s.provider.CurrentRepo(ctx)
	if err != nil {
		s.logger.Warn("resolve current repository", "error", err)
		return ""
	}
	return repo
}

func (s *Scanner) FindPRsReferencing(ctx context.Context, code, repo string) []Reference {
	return s.FindUnlinked(ctx, []string{code}, repo)
}

func (s *Scanner) GetPRDetails(ctx context.Context, number int, repo string) (Reference, bool) {
	repo = s.resolveRepo(ctx, repo)
	if repo == "" {
		return Reference{}, false
	}
	pr, err := s.provider.ViewPR(ctx, repo, number)
	if err != nil {
		s.logger.Warn("fetch pull request details", "repo", repo, "number", number, "error", err)
		return Reference{}, false
	}
	return newReference("", repo, pr), true
}

// FindUnlinked lists open pull requests once and returns, for every code, each
// PR whose branch or title contains it.
func (s *Scanner) FindUnlinked(ctx context.Context, codes []string, repo string) []Reference {
	result := make([]Reference, 0)
	if len(codes) == 0 {
		return result
	}

	repo = s.resolveRepo(ctx, repo)
	if repo == "" {
		return result
	}
	prs, err := s.provider.ListPRs(ctx, repo, StateOpen, s.limit)
	if err != nil {
		s.logger.Warn("list open pull requests", "repo", repo, "error", err)
		return result
	}

	for _, code := range codes {
		for _, pr := range prs {
			if ContainsCode(pr, code) {
				result = append(result, newReference(code, repo, pr))
			}
		}
	}
	return result
}

// FindAllTaskReferences scans pull requests in every state for whole-word task
// codes. The first PR to mention a code wins, branch before title.
func (s *Scanner) FindAllTaskReferences(ctx context.Context, repo string) []Reference {
	result := make([]Reference, 0)

	repo = s.resolveRepo(ctx, repo)
	if repo == "" {
		return result
	}
	prs, err := s.provider.ListPRs(ctx, repo, StateAll, s.limit)
	if err != nil {
		s.logger.Warn("list all pull requests", "repo", repo, "error", err)
		return result
	}

	seen := make(map[string]bool)
	for _, pr := range prs {
		codes := append(ExtractCodes(pr.HeadRefName), ExtractCodes(pr.Title)...)
		for _, code := range codes {
			if seen[code] {
				continue
			}
			seen[code] = true
			result = append(result, newReference(code, repo, pr))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		left, _ := tasks.ParseCode(result[i].TaskCode)
		right, _ := tasks.ParseCode(result[j].TaskCode)
		return left < right
	})
	return result
}

func (s *Scanner) resolveRepo(ctx context.Context, repo string) string {
	if repo = strings.TrimSpace(repo); repo != "" {
		return repo
	}
	return s.CurrentRepo(ctx)
}

func newReference(code, repo string, pr PullRequest) Reference {
	return Reference{
		TaskCode: code,
		Number:   pr.Number,
		Title:    pr.Title,
		Body:     pr.Body,
		Branch:   pr.HeadRefName,
		Repo:     repo,
	}
}
