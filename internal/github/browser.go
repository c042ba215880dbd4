package github

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

var runtimeGOOS = runtime.GOOS

func PRURL(repo string, number int) string {
	repo = strings.Trim(strings.TrimSpace(repo), "/")
	if repo == "" || number <= 0 {
		return ""
	}
	return fmt.Sprintf("https://github.com/%s/pull/%d", repo, number)
}

// OpenPR opens a pull request in the browser through gh, falling back to the
// platform URL opener when gh cannot do it.
func (c *CLIClient) OpenPR(ctx context.Context, repo string, number int) error {
	if number <= 0 {
		return fmt.Errorf("invalid pull request number %d", number)
	}

	args := []string{"pr", "view", strconv.Itoa(number)}
	args = appendRepo(args, repo)
	args = append(args, "--web")
	_, ghErr := c.run(ctx, args...)
	if ghErr == nil {
		return nil
	}

	url := PRURL(repo, number)
	if url == "" {
		return fmt.Errorf("open pr %d: %w", number, ghErr)
	}

	name, openArgs := openURLCommand(c.goos, url)
	if _, err := c.exec(ctx, name, openArgs...); err != nil {
		return fmt.Errorf("open %s: %w", url, errors.Join(ghErr, err))
	}
	return nil
}

func openURLCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}
