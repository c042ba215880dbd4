package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// timeLayout is fixed width so that created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("sqlite db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite parent dir: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection serializes writers inside this process; busy_timeout
	// covers other processes holding the file lock.
	db.SetMaxOpenConns(1)

	store, err := NewSQLiteStoreFromDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func NewSQLiteStoreFromDB(db *sql.DB) (*SQLiteStore, error) {
	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.migrate(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	statements := []string{
		"PRAGMA foreign_keys = ON;",
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT UNIQUE NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('open', 'linked')),
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS prs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_code TEXT NOT NULL,
			repo TEXT NOT NULL,
			pr_number INTEGER NOT NULL CHECK (pr_number > 0),
			title TEXT NOT NULL,
			body TEXT,
			created_at TEXT NOT NULL,
			UNIQUE (task_code, repo, pr_number),
			FOREIGN KEY(task_code) REFERENCES tasks(code) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_prs_task_code ON prs(task_code);`,
	}

	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("migrate sqlite schema: %w", err)
		}
	}

	return nil
}

// CreateTask inserts the task with its numeric suffix as the row id, so the
// AUTOINCREMENT sequence doubles as the code high-water mark.
func (s *SQLiteStore) CreateTask(ctx context.Context, code string) (Task, error) {
	number, err := ParseCode(code)
	if err != nil {
		return Task{}, err
	}

	task := Task{
		ID:        number,
		Code:      FormatCode(number),
		Status:    StatusOpen,
		CreatedAt: s.now().UTC(),
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO tasks(id, code, status, created_at) VALUES (?, ?, ?, ?)`,
		task.ID,
		task.Code,
		string(task.Status),
		formatTime(task.CreatedAt),
	)
	if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY) {
		return Task{}, fmt.Errorf("%w: %s", ErrDuplicateKey, task.Code)
	}
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

func (s *SQLiteStore) NextTaskNumber(ctx context.Context) (int64, error) {
	// sqlite_sequence only exists after the first AUTOINCREMENT insert, and it
	// keeps the largest id ever assigned even when that row is deleted.
	var hasSequence int
	if err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = 'sqlite_sequence'`,
	).Scan(&hasSequence); err != nil {
		return 0, fmt.Errorf("inspect sqlite sequence: %w", err)
	}

	query := `SELECT COALESCE(MAX(id), 0) FROM tasks`
	if hasSequence > 0 {
		query = `SELECT MAX(
			COALESCE((SELECT seq FROM sqlite_sequence WHERE name = 'tasks'), 0),
			COALESCE((SELECT MAX(id) FROM tasks), 0)
		)`
	}

	var highWater int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&highWater); err != nil {
		return 0, fmt.Errorf("query task high-water mark: %w", err)
	}
	return nextAfter(highWater)
}

func (s *SQLiteStore) ListTasks(ctx context.Context) ([]TaskRow, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT t.id, t.code, t.status, t.created_at,
		        p.repo, p.pr_number, p.title, p.body,
		        (SELECT COUNT(1) FROM prs c WHERE c.task_code = t.code)
		 FROM tasks t
		 LEFT JOIN prs p ON p.id = (SELECT MAX(l.id) FROM prs l WHERE l.task_code = t.code)
		 ORDER BY t.created_at DESC, t.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query task rows: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]TaskRow, 0)
	for rows.Next() {
		var (
			row          TaskRow
			status       string
			createdAtRaw string
			repo, title  sql.NullString
			body         sql.NullString
			prNumber     sql.NullInt64
		)

		if err := rows.Scan(
			&row.ID,
			&row.Code,
			&status,
			&createdAtRaw,
			&repo,
			&prNumber,
			&title,
			&body,
			&row.LinkCount,
		); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}

		row.Status = Status(status)
		row.PRRepo = repo.String
		row.PRTitle = title.String
		row.PRBody = body.String
		if prNumber.Valid {
			row.PRNumber = int(prNumber.Int64)
		}

		createdAt, err := parseTime(createdAtRaw)
		if err != nil {
			return nil, fmt.Errorf("parse task created_at: %w", err)
		}
		row.CreatedAt = createdAt

		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task rows: %w", err)
	}
	return result, nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, code string) (Task, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, code, status, created_at FROM tasks WHERE code = ?`,
		code,
	)

	return scanTask(row)
}

func (s *SQLiteStore) CreatePRLink(ctx context.Context, code, repo string, prNumber int, title, body string) (PullRequestLink, error) {
	if prNumber <= 0 {
		return PullRequestLink{}, fmt.Errorf("invalid pull request number %d", prNumber)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return PullRequestLink{}, fmt.Errorf("start pr link tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var taskExists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM tasks WHERE code = ?`, code).Scan(&taskExists); err != nil {
		return PullRequestLink{}, fmt.Errorf("verify task for pr link: %w", err)
	}
	if taskExists == 0 {
		return PullRequestLink{}, fmt.Errorf("%w: %s", ErrUnknownTask, code)
	}

	link := PullRequestLink{
		TaskCode:  code,
		Repo:      NormalizeRepo(repo),
		PRNumber:  prNumber,
		Title:     title,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}

	result, err := tx.ExecContext(
		ctx,
		`INSERT INTO prs(task_code, repo, pr_number, title, body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		link.TaskCode,
		link.Repo,
		link.PRNumber,
		link.Title,
		nullIfEmpty(link.Body),
		formatTime(link.CreatedAt),
	)
	switch {
	case isConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY):
		return PullRequestLink{}, fmt.Errorf("%w: %s", ErrUnknownTask, code)
	case isConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE):
		return PullRequestLink{}, fmt.Errorf("%w: %s already linked to %s#%d", ErrDuplicateKey, code, link.Repo, prNumber)
	case err != nil:
		return PullRequestLink{}, fmt.Errorf("insert pr link: %w", err)
	}

	link.ID, err = result.LastInsertId()
	if err != nil {
		return PullRequestLink{}, fmt.Errorf("read pr link id: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE tasks SET status = ? WHERE code = ?`,
		string(StatusLinked),
		code,
	); err != nil {
		return PullRequestLink{}, fmt.Errorf("mark task linked: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return PullRequestLink{}, fmt.Errorf("commit pr link tx: %w", err)
	}
	return link, nil
}

func (s *SQLiteStore) ListPRLinks(ctx context.Context, code string) ([]PullRequestLink, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, task_code, repo, pr_number, title, body, created_at
		 FROM prs
		 WHERE task_code = ?
		 ORDER BY id ASC`,
		code,
	)
	if err != nil {
		return nil, fmt.Errorf("query pr links: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]PullRequestLink, 0)
	for rows.Next() {
		var (
			link         PullRequestLink
			body         sql.NullString
			createdAtRaw string
		)
		if err := rows.Scan(
			&link.ID,
			&link.TaskCode,
			&link.Repo,
			&link.PRNumber,
			&link.Title,
			&body,
			&createdAtRaw,
		); err != nil {
			return nil, fmt.Errorf("scan pr link: %w", err)
		}

		link.Body = body.String
		createdAt, err := parseTime(createdAtRaw)
		if err != nil {
			return nil, fmt.Errorf("parse pr link created_at: %w", err)
		}
		link.CreatedAt = createdAt

		result = append(result, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pr links: %w", err)
	}
	return result, nil
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, code string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("start task delete tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var taskExists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM tasks WHERE code = ?`, code).Scan(&taskExists); err != nil {
		return false, fmt.Errorf("verify task for delete: %w", err)
	}
	if taskExists == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM prs WHERE task_code = ?`, code); err != nil {
		return false, fmt.Errorf("delete pr links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE code = ?`, code); err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit task delete tx: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) CountByStatus(ctx context.Context) ([]GroupCount, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT status, COUNT(1)
		 FROM tasks
		 GROUP BY status
		 ORDER BY COUNT(1) DESC, status ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query task status counts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]GroupCount, 0)
	for rows.Next() {
		var entry GroupCount
		if err := rows.Scan(&entry.Key, &entry.Count); err != nil {
			return nil, fmt.Errorf("scan task status count: %w", err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task status counts: %w", err)
	}
	return result, nil
}

func scanTask(row *sql.Row) (Task, bool, error) {
	var (
		task      Task
		status    string
		createdAt string
	)

	err := row.Scan(&task.ID, &task.Code, &status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, false, nil
	}
	if err != nil {
		return Task{}, false, fmt.Errorf("scan task: %w", err)
	}

	parsedCreated, err := parseTime(createdAt)
	if err != nil {
		return Task{}, false, fmt.Errorf("parse task created_at: %w", err)
	}

	task.Status = Status(status)
	task.CreatedAt = parsedCreated

	return task, true, nil
}

func isConstraint(err error, codes ...int) bool {
	if err == nil {
		return false
	}
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	for _, code := range codes {
		if sqliteErr.Code() == code {
			return true
		}
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, raw)
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
