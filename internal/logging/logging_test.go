package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q)=%v, want %v", raw, got, want)
		}
	}
}

func TestNewWritesToFileAtLevel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "tt.log")
	logger, closeFn, err := New(Options{File: path, Level: "warn"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("hidden message")
	logger.Warn("visible message", "code", "tt-3")
	if err := closeFn(); err != nil {
		t.Fatalf("close log file: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(raw)
	if strings.Contains(content, "hidden message") {
		t.Fatalf("expected info record to be filtered: %q", content)
	}
	if !strings.Contains(content, "visible message") || !strings.Contains(content, "code=tt-3") {
		t.Fatalf("expected warn record in log: %q", content)
	}
}

func TestNewVerboseMirrorsToStderr(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	logger, closeFn, err := New(Options{Verbose: true, Stderr: &stderr})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer func() {
		_ = closeFn()
	}()

	logger.Debug("scan detail")
	if !strings.Contains(stderr.String(), "scan detail") {
		t.Fatalf("expected debug record on stderr: %q", stderr.String())
	}
}
