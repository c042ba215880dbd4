package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sumanthaka/TerminalTask/internal/config"
	"github.com/sumanthaka/TerminalTask/internal/github"
	"github.com/sumanthaka/TerminalTask/internal/tasks"
)

type fakeRemote struct {
	available bool
	repo      string
	open      []github.PullRequest
	all       []github.PullRequest
	opened    []string
}

func (f *fakeRemote) Available(context.Context) error {
	if !f.available {
		return github.ErrUnavailable
	}
	return nil
}

func (f *fakeRemote) CurrentRepo(context.Context) (string, error) {
	if f.repo == "" {
		return "", errors.New("not a git repository")
	}
	return f.repo, nil
}

func (f *fakeRemote) ListPRs(_ context.Context, _ string, state github.State, _ int) ([]github.PullRequest, error) {
	if state == github.StateAll {
		return f.all, nil
	}
	return f.open, nil
}

func (f *fakeRemote) ViewPR(_ context.Context, _ string, number int) (github.PullRequest, error) {
	for _, pr := range append(append([]github.PullRequest(nil), f.open...), f.all...) {
		if pr.Number == number {
			return pr, nil
		}
	}
	return github.PullRequest{}, fmt.Errorf("no pull request %d", number)
}

func (f *fakeRemote) OpenPR(_ context.Context, repo string, number int) error {
	f.opened = append(f.opened, fmt.Sprintf("%s#%d", repo, number))
	return nil
}

type cliEnv struct {
	dbPath string
	home   string
	remote *fakeRemote
	copied []string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("EDITOR", "")

	env := &cliEnv{
		dbPath: filepath.Join(t.TempDir(), "tasks.db"),
		home:   home,
		remote: &fakeRemote{available: true, repo: "owner/repo"},
	}

	originalRemote := newRemote
	originalClipboard := copyToClipboard
	originalInteractive := isInteractive
	newRemote = func(config.GitHub) remote { return env.remote }
	copyToClipboard = func(value string) error {
		env.copied = append(env.copied, value)
		return nil
	}
	isInteractive = func() bool { return false }
	t.Cleanup(func() {
		newRemote = originalRemote
		copyToClipboard = originalClipboard
		isInteractive = originalInteractive
	})
	return env
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	full := append([]string{"--db", e.dbPath}, args...)
	err := run(context.Background(), full, strings.NewReader(""), &stdout, &stderr)
	return strings.TrimSpace(stdout.String()), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()

	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("tt %s failed: %v", strings.Join(args, " "), err)
	}
	return out
}

func parseKVLine(t *testing.T, line string) map[string]string {
	t.Helper()

	values := map[string]string{}
	for _, part := range strings.Fields(line) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		values[key] = value
	}

	if values["code"] == "" {
		t.Fatalf("missing code in output: %q", line)
	}
	return values
}

func TestRunNewHandsOutSequentialCodes(t *testing.T) {
	env := newCLIEnv(t)

	first := parseKVLine(t, env.mustRun(t, "new"))
	second := parseKVLine(t, env.mustRun(t, "new", "--copy"))

	if first["code"] != "tt-1" || second["code"] != "tt-2" {
		t.Fatalf("expected tt-1 then tt-2, got %q and %q", first["code"], second["code"])
	}
	if first["status"] != "open" {
		t.Fatalf("expected open status, got %q", first["status"])
	}
	if len(env.copied) != 1 || env.copied[0] != "tt-2" {
		t.Fatalf("expected only tt-2 copied, got %#v", env.copied)
	}
}

func TestRunDeleteNeverReusesCode(t *testing.T) {
	env := newCLIEnv(t)

	for i := 0; i < 2; i++ {
		env.mustRun(t, "new")
	}
	deleted := parseKVLine(t, env.mustRun(t, "delete", "TT-2"))
	if deleted["code"] != "tt-2" || deleted["status"] != "deleted" {
		t.Fatalf("unexpected delete output: %#v", deleted)
	}

	next := parseKVLine(t, env.mustRun(t, "new"))
	if next["code"] != "tt-3" {
		t.Fatalf("expected tt-3 after deleting tt-2, got %q", next["code"])
	}

	if _, err := env.run(t, "delete", "tt-2"); !errors.Is(err, tasks.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestRunLinkFetchesPRDetails(t *testing.T) {
	env := newCLIEnv(t)
	env.remote.open = []github.PullRequest{{Number: 12, Title: "Fix bug", Body: "details", HeadRefName: "feature/tt-1-foo"}}

	env.mustRun(t, "new")
	linked := parseKVLine(t, env.mustRun(t, "link", "tt-1", "#12"))
	if linked["status"] != "linked" || linked["pr"] != "owner/repo#12" {
		t.Fatalf("unexpected link output: %#v", linked)
	}

	out := env.mustRun(t, "show", "tt-1", "--json")
	var detail struct {
		Status string `json:"status"`
		Links  []struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		} `json:"links"`
	}
	if err := json.Unmarshal([]byte(out), &detail); err != nil {
		t.Fatalf("decode show json: %v (%s)", err, out)
	}
	if detail.Status != "linked" || len(detail.Links) != 1 || detail.Links[0].Title != "Fix bug" || detail.Links[0].Body != "details" {
		t.Fatalf("unexpected task detail: %#v", detail)
	}
}

func TestRunLinkWithoutGitHubNeedsTitle(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "new")

	if _, err := env.run(t, "link", "tt-1", "40"); err == nil {
		t.Fatalf("expected link to fail without PR details or --title")
	}
	out := env.mustRun(t, "link", "tt-1", "40", "--repo", "other/repo", "--title", "Manual")
	if parseKVLine(t, out)["pr"] != "other/repo#40" {
		t.Fatalf("unexpected link output: %q", out)
	}
}

func TestRunLinkUnknownTask(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "link", "tt-9", "1", "--title", "Ghost")
	if !errors.Is(err, tasks.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunImportThenCreate(t *testing.T) {
	env := newCLIEnv(t)
	env.remote.all = []github.PullRequest{{Number: 30, Title: "Remote tt-7", HeadRefName: "work"}}

	imported := parseKVLine(t, env.mustRun(t, "import", "tt-7", "--pr", "30"))
	if imported["status"] != "created" || imported["pr"] != "owner/repo#30" {
		t.Fatalf("unexpected import output: %#v", imported)
	}

	again := parseKVLine(t, env.mustRun(t, "import", "tt-7"))
	if again["status"] != "existing" {
		t.Fatalf("expected second import to report existing, got %#v", again)
	}

	next := parseKVLine(t, env.mustRun(t, "new"))
	if next["code"] != "tt-8" {
		t.Fatalf("expected tt-8 after importing tt-7, got %q", next["code"])
	}
}

func TestRunSyncClassifiesAndApplies(t *testing.T) {
	env := newCLIEnv(t)
	linkPR := github.PullRequest{Number: 3, Title: "Fix bug", HeadRefName: "feature/tt-1-foo"}
	env.remote.open = []github.PullRequest{linkPR}
	env.remote.all = []github.PullRequest{linkPR, {Number: 4, Title: "Port tt-9", HeadRefName: "port"}}

	env.mustRun(t, "new")

	out := env.mustRun(t, "sync")
	if !strings.Contains(out, "status=action_needed") {
		t.Fatalf("expected action needed, got:\n%s", out)
	}
	if !strings.Contains(out, "link tt-1 owner/repo#3 feature/tt-1-foo") {
		t.Fatalf("expected link item for tt-1, got:\n%s", out)
	}
	if !strings.Contains(out, "import tt-9 owner/repo#4") {
		t.Fatalf("expected import item for tt-9, got:\n%s", out)
	}

	applied := env.mustRun(t, "sync", "--apply")
	if !strings.Contains(applied, "status=synced") {
		t.Fatalf("expected synced after apply, got:\n%s", applied)
	}

	var report struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal([]byte(env.mustRun(t, "sync", "--json")), &report); err != nil {
		t.Fatalf("decode sync json: %v", err)
	}
	if report.Status != "synced" {
		t.Fatalf("expected synced json status, got %q", report.Status)
	}

	status := env.mustRun(t, "status")
	if status != "open=0 linked=2 total=2 next=tt-10" {
		t.Fatalf("unexpected status output %q", status)
	}
}

func TestRunSyncUnavailable(t *testing.T) {
	env := newCLIEnv(t)
	env.remote.available = false

	out := env.mustRun(t, "sync")
	if !strings.HasPrefix(out, "status=unavailable") {
		t.Fatalf("expected unavailable status, got %q", out)
	}
}

func TestRunOpenUsesLatestLink(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "new")
	env.mustRun(t, "link", "tt-1", "5", "--title", "First")
	env.mustRun(t, "link", "tt-1", "6", "--title", "Second")

	out := env.mustRun(t, "open", "tt-1")
	if len(env.remote.opened) != 1 || env.remote.opened[0] != "owner/repo#6" {
		t.Fatalf("expected latest PR opened, got %#v", env.remote.opened)
	}
	if !strings.Contains(out, "https://github.com/owner/repo/pull/6") {
		t.Fatalf("unexpected open output %q", out)
	}
}

func TestRunNoteCreatesThenReuses(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "new")

	first := parseKVLine(t, env.mustRun(t, "note", "tt-1", "--print"))
	second := parseKVLine(t, env.mustRun(t, "note", "tt-1", "--print"))
	if first["status"] != "created" || second["status"] != "existing" {
		t.Fatalf("unexpected note statuses %q then %q", first["status"], second["status"])
	}
	if first["note_path"] != filepath.Join(env.home, ".tt", "notes", "tt-1.md") {
		t.Fatalf("unexpected note path %q", first["note_path"])
	}
}

func TestRunNoteDryRunUsesEditorEnv(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("EDITOR", "vim -u NONE")
	env.mustRun(t, "new")

	out := env.mustRun(t, "note", "tt-1", "--dry-run")
	fields := parseKVLine(t, out)
	if fields["editor"] != "vim" {
		t.Fatalf("expected editor=vim in output, got %q (%q)", fields["editor"], out)
	}
	if !strings.Contains(out, "NONE") {
		t.Fatalf("expected editor args in output: %q", out)
	}
}

func TestRunListAndRootFallback(t *testing.T) {
	env := newCLIEnv(t)

	if out := env.mustRun(t); !strings.Contains(out, "no tasks yet") {
		t.Fatalf("expected empty-state message, got %q", out)
	}

	env.mustRun(t, "new")
	env.mustRun(t, "link", "tt-1", "8", "--title", "Docs")
	env.mustRun(t, "new")

	out := env.mustRun(t)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "CODE") {
		t.Fatalf("unexpected list output:\n%s", out)
	}
	if !strings.HasPrefix(lines[1], "tt-2") || !strings.Contains(lines[2], "owner/repo#8") {
		t.Fatalf("expected newest first with PR summary:\n%s", out)
	}

	var rows []tasks.TaskRow
	if err := json.Unmarshal([]byte(env.mustRun(t, "list", "--json")), &rows); err != nil {
		t.Fatalf("decode list json: %v", err)
	}
	if len(rows) != 2 || rows[1].PRNumber != 8 {
		t.Fatalf("unexpected json rows: %#v", rows)
	}
}

func TestRunConfigShowReflectsDBFlag(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "config", "show")
	if !strings.Contains(out, "db_path: "+env.dbPath) {
		t.Fatalf("expected db flag override in config output:\n%s", out)
	}
	if !strings.Contains(out, "binary: gh") {
		t.Fatalf("expected github defaults in config output:\n%s", out)
	}
}

func TestRunUIPreview(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "ui", "--preview")
	if !strings.Contains(out, "tt UI (preview)") || !strings.Contains(out, "PR Inbox") {
		t.Fatalf("unexpected preview output:\n%s", out)
	}
}
