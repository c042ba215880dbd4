package tasks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type MemoryStore struct {
	mu        sync.RWMutex
	tasks     map[string]Task
	links     map[string][]PullRequestLink
	highWater int64
	linkSeq   int64
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]Task),
		links: make(map[string][]PullRequestLink),
		now:   time.Now,
	}
}

func (s *MemoryStore) CreateTask(_ context.Context, code string) (Task, error) {
	number, err := ParseCode(code)
	if err != nil {
		return Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task := Task{
		ID:        number,
		Code:      FormatCode(number),
		Status:    StatusOpen,
		CreatedAt: s.now().UTC(),
	}
	if _, exists := s.tasks[task.Code]; exists {
		return Task{}, fmt.Errorf("%w: %s", ErrDuplicateKey, task.Code)
	}

	s.tasks[task.Code] = task
	if number > s.highWater {
		s.highWater = number
	}
	return task, nil
}

func (s *MemoryStore) NextTaskNumber(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return nextAfter(s.highWater)
}

func (s *MemoryStore) ListTasks(_ context.Context) ([]TaskRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]TaskRow, 0, len(s.tasks))
	for code, task := range s.tasks {
		row := TaskRow{Task: task, LinkCount: len(s.links[code])}
		if n := len(s.links[code]); n > 0 {
			latest := s.links[code][n-1]
			row.PRRepo = latest.Repo
			row.PRNumber = latest.PRNumber
			row.PRTitle = latest.Title
			row.PRBody = latest.Body
		}
		result = append(result, row)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (s *MemoryStore) GetTask(_ context.Context, code string) (Task, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[code]
	return task, ok, nil
}

func (s *MemoryStore) CreatePRLink(_ context.Context, code, repo string, prNumber int, title, body string) (PullRequestLink, error) {
	if prNumber <= 0 {
		return PullRequestLink{}, fmt.Errorf("invalid pull request number %d", prNumber)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[code]
	if !ok {
		return PullRequestLink{}, fmt.Errorf("%w: %s", ErrUnknownTask, code)
	}

	repo = NormalizeRepo(repo)
	for _, existing := range s.links[code] {
		if existing.Repo == repo && existing.PRNumber == prNumber {
			return PullRequestLink{}, fmt.Errorf("%w: %s already linked to %s#%d", ErrDuplicateKey, code, repo, prNumber)
		}
	}

	s.linkSeq++
	link := PullRequestLink{
		ID:        s.linkSeq,
		TaskCode:  code,
		Repo:      repo,
		PRNumber:  prNumber,
		Title:     title,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}
	s.links[code] = append(s.links[code], link)

	task.Status = StatusLinked
	s.tasks[code] = task
	return link, nil
}

func (s *MemoryStore) ListPRLinks(_ context.Context, code string) ([]PullRequestLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]PullRequestLink, len(s.links[code]))
	copy(result, s.links[code])
	return result, nil
}

func (s *MemoryStore) DeleteTask(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[code]; !ok {
		return false, nil
	}
	delete(s.links, code)
	delete(s.tasks, code)
	return true, nil
}

func (s *MemoryStore) CountByStatus(_ context.Context) ([]GroupCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int{}
	for _, task := range s.tasks {
		counts[string(task.Status)]++
	}

	result := make([]GroupCount, 0, len(counts))
	for key, count := range counts {
		result = append(result, GroupCount{Key: key, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Key < result[j].Key
	})
	return result, nil
}
