package tasks

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const noteTemplate = `# %s

## Objective

## Pull Requests

## Next Actions

## Notes
`

func NotePath(notesDir, code string) string {
	return filepath.Join(notesDir, code+".md")
}

// EnsureTaskNote writes the note template for code on first use and returns
// its path. An existing note is never rewritten.
func EnsureTaskNote(notesDir, code string) (string, bool, error) {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return "", false, fmt.Errorf("note for %q: %w", code, err)
	}
	if err := os.MkdirAll(notesDir, 0o750); err != nil {
		return "", false, fmt.Errorf("create notes dir: %w", err)
	}

	path := NotePath(notesDir, normalized)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return path, false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("create note file: %w", err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, noteTemplate, normalized); err != nil {
		return "", false, fmt.Errorf("write note template: %w", err)
	}
	return path, true, nil
}
