package tasks

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusLinked Status = "linked"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusLinked:
		return true
	default:
		return false
	}
}

// CodePrefix is the fixed textual prefix of every task code.
const CodePrefix = "tt-"

// MaxCodeNumber bounds code suffixes so the next number always fits an int64
// row id, even after an import at the very top of the range.
const MaxCodeNumber int64 = 999_999_999_999

type Task struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type PullRequestLink struct {
	ID        int64     `json:"id"`
	TaskCode  string    `json:"task_code"`
	Repo      string    `json:"repo"`
	PRNumber  int       `json:"pr_number"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func FormatCode(number int64) string {
	return CodePrefix + strconv.FormatInt(number, 10)
}

// ParseCode returns the numeric suffix of a task code. The prefix is matched
// case-insensitively and the suffix must be a positive integer.
func ParseCode(code string) (int64, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) <= len(CodePrefix) || !strings.EqualFold(trimmed[:len(CodePrefix)], CodePrefix) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}

	digits := trimmed[len(CodePrefix):]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidCode, code)
		}
	}

	number, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || number <= 0 || number > MaxCodeNumber {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	return number, nil
}

// nextAfter returns the number following highWater. Databases written before
// codes were bounded may already hold a larger id; they fail loudly here.
func nextAfter(highWater int64) (int64, error) {
	if highWater >= MaxCodeNumber {
		return 0, fmt.Errorf("%w: highest assigned number is %d", ErrCodesExhausted, highWater)
	}
	return highWater + 1, nil
}

// NormalizeCode maps user input such as "TT-007" to the canonical "tt-7".
func NormalizeCode(code string) (string, error) {
	number, err := ParseCode(code)
	if err != nil {
		return "", err
	}
	return FormatCode(number), nil
}

func NormalizeRepo(repo string) string {
	return strings.TrimSpace(repo)
}
