package github

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

func defaultExec(ctx context.Context, name string, args ...string) ([]byte, error) {
	// #nosec G204 -- callers pass the configured gh binary + fixed arguments.
	command := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	command.Stderr = &stderr
	output, err := command.Output()
	if err != nil {
		return nil, fmt.Errorf("%s %v failed: %w (%s)", name, args, err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}
