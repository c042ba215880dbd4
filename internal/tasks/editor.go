package tasks

import (
	"runtime"
	"strings"
)

// ResolveEditorCommand splits $EDITOR into a command and its arguments. With
// no editor set it falls back to TextEdit on macOS and vi elsewhere.
func ResolveEditorCommand(editorEnv, notePath string) (string, []string) {
	return resolveEditorCommand(runtime.GOOS, editorEnv, notePath)
}

func resolveEditorCommand(goos, editorEnv, notePath string) (string, []string) {
	fields := strings.Fields(strings.TrimSpace(editorEnv))
	if len(fields) == 0 {
		if goos == "darwin" {
			return "open", []string{"-e", notePath}
		}
		return "vi", []string{notePath}
	}

	name := fields[0]
	args := append(fields[1:], notePath)
	return name, args
}
