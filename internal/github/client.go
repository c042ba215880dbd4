package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBinary  = "gh"
	DefaultTimeout = 20 * time.Second
	DefaultLimit   = 100

	prFields = "number,title,body,headRefName"
)

var (
	ErrUnavailable     = errors.New("github cli unavailable")
	ErrMalformedOutput = errors.New("malformed github cli output")
	ErrTimeout         = errors.New("github cli timed out")
)

// PullRequest mirrors the fields requested from gh's JSON output.
type PullRequest struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	HeadRefName string `json:"headRefName"`
}

type State string

const (
	StateOpen State = "open"
	StateAll  State = "all"
)

// Provider is the hosting-provider capability the scanner depends on.
type Provider interface {
	Available(ctx context.Context) error
	CurrentRepo(ctx context.Context) (string, error)
	ListPRs(ctx context.Context, repo string, state State, limit int) ([]PullRequest, error)
	ViewPR(ctx context.Context, repo string, number int) (PullRequest, error)
}

type ExecFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

type CLIClient struct {
	binary  string
	timeout time.Duration
	exec    ExecFunc
	goos    string
}

type Option func(*CLIClient)

func WithBinary(binary string) Option {
	return func(c *CLIClient) {
		if strings.TrimSpace(binary) != "" {
			c.binary = binary
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *CLIClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithExec(execFn ExecFunc) Option {
	return func(c *CLIClient) {
		if execFn != nil {
			c.exec = execFn
		}
	}
}

func NewCLIClient(opts ...Option) *CLIClient {
	client := &CLIClient{
		binary:  DefaultBinary,
		timeout: DefaultTimeout,
		exec:    defaultExec,
		goos:    runtimeGOOS,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *CLIClient) Available(ctx context.Context) error {
	if _, err := c.run(ctx, "auth", "status"); err != nil {
		if errors.Is(err, ErrUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (c *CLIClient) CurrentRepo(ctx context.Context) (string, error) {
	output, err := c.run(ctx, "repo", "view", "--json", "nameWithOwner", "-q", ".nameWithOwner")
	if err != nil {
		return "", fmt.Errorf("gh repo view: %w", err)
	}
	repo := strings.TrimSpace(string(output))
	if repo == "" {
		return "", fmt.Errorf("gh repo view: %w: empty repository name", ErrMalformedOutput)
	}
	return repo, nil
}

func (c *CLIClient) ListPRs(ctx context.Context, repo string, state State, limit int) ([]PullRequest, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	args := []string{"pr", "list"}
	args = appendRepo(args, repo)
	args = append(args, "--json", prFields)
	if state == StateAll {
		args = append(args, "--state", "all")
	}
	args = append(args, "--limit", strconv.Itoa(limit))

	output, err := c.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("gh pr list: %w", err)
	}
	return parsePullRequests(output)
}

func (c *CLIClient) ViewPR(ctx context.Context, repo string, number int) (PullRequest, error) {
	args := []string{"pr", "view", strconv.Itoa(number)}
	args = appendRepo(args, repo)
	args = append(args, "--json", prFields)

	output, err := c.run(ctx, args...)
	if err != nil {
		return PullRequest{}, fmt.Errorf("gh pr view %d: %w", number, err)
	}

	var pr PullRequest
	if err := json.Unmarshal(output, &pr); err != nil {
		return PullRequest{}, fmt.Errorf("%w: decode pr view json: %v", ErrMalformedOutput, err)
	}
	if pr.Number <= 0 {
		return PullRequest{}, fmt.Errorf("%w: pr view returned no number", ErrMalformedOutput)
	}
	return pr, nil
}

func (c *CLIClient) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	output, err := c.exec(ctx, c.binary, args...)
	switch {
	case err == nil:
		return output, nil
	case errors.Is(err, exec.ErrNotFound):
		return nil, fmt.Errorf("%w: %s not found on PATH", ErrUnavailable, c.binary)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, fmt.Errorf("%w after %s: %v", ErrTimeout, c.timeout, err)
	default:
		return nil, err
	}
}

func appendRepo(args []string, repo string) []string {
	if repo = strings.TrimSpace(repo); repo != "" {
		return append(args, "--repo", repo)
	}
	return args
}

func parsePullRequests(raw []byte) ([]PullRequest, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return []PullRequest{}, nil
	}

	var prs []PullRequest
	if err := json.Unmarshal([]byte(trimmed), &prs); err != nil {
		return nil, fmt.Errorf("%w: decode pr list json: %v", ErrMalformedOutput, err)
	}
	return prs, nil
}
