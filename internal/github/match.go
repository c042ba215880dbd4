package github

import (
	"regexp"
	"strings"

	"github.com/sumanthaka/TerminalTask/internal/tasks"
)

var taskTokenPattern = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(tasks.CodePrefix) + `(\d+)\b`)

// ContainsCode reports whether code appears anywhere in the branch or title,
// ignoring case. It is a plain substring test: tt-1 matches tt-10.
func ContainsCode(pr PullRequest, code string) bool {
	needle := strings.ToLower(strings.TrimSpace(code))
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(pr.HeadRefName), needle) ||
		strings.Contains(strings.ToLower(pr.Title), needle)
}

// ExtractCodes returns every whole-word tt-<digits> token in text, in order of
// appearance, normalized to lower case without leading zeros. Suffixes of
// zero or above tasks.MaxCodeNumber are not task codes.
func ExtractCodes(text string) []string {
	matches := taskTokenPattern.FindAllStringSubmatch(text, -1)
	codes := make([]string, 0, len(matches))
	for _, match := range matches {
		code, err := tasks.NormalizeCode(tasks.CodePrefix + match[1])
		if err != nil {
			continue
		}
		codes = append(codes, code)
	}
	return codes
}
