package tasks

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/LdDl/openscore-go/result"
)

// timeLayout is fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

//go:embed migrations/*.sql
var migrationFS embed.FS

// SQLiteStore persists tasks in a SQLite database
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates database at path and applies migrations
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single writer keeps transitions serialized
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.migrateUp(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) migrateUp() error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(s.db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// m is not closed: closing it would close the shared connection
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Path returns database file location
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const taskColumns = `id, status, progress, error_message, source, created_at, updated_at, result_json`

func (s *SQLiteStore) Create(ctx context.Context, task *Task) error {
	resultJSON, err := encodeResult(task.Result)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		string(task.Status),
		task.Progress,
		nullableString(task.Error),
		task.Source,
		formatTime(task.CreatedAt),
		formatTime(task.UpdatedAt),
		resultJSON,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrExists, task.ID)
		}
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, task *Task) error {
	resultJSON, err := encodeResult(task.Result)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var prev Task
	row := tx.QueryRowContext(ctx, `SELECT status, progress FROM tasks WHERE id = ?`, task.ID)
	if err := row.Scan(&prev.Status, &prev.Progress); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrNotFound, task.ID)
		}
		return fmt.Errorf("read task: %w", err)
	}
	if err := checkUpdate(&prev, task); err != nil {
		return err
	}
	_, err = tx.ExecContext(
		ctx,
		`UPDATE tasks
         SET status = ?, progress = ?, error_message = ?, source = ?, updated_at = ?, result_json = ?
         WHERE id = ?`,
		string(task.Status),
		task.Progress,
		nullableString(task.Error),
		task.Source,
		formatTime(task.UpdatedAt),
		resultJSON,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// List returns tasks ordered by creation time. Results are not loaded
func (s *SQLiteStore) List(ctx context.Context) ([]*Task, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, status, progress, error_message, source, created_at, updated_at, NULL
         FROM tasks ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := make([]*Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var (
		task       Task
		status     string
		errMessage sql.NullString
		createdAt  string
		updatedAt  string
		resultJSON sql.NullString
	)
	if err := row.Scan(&task.ID, &status, &task.Progress, &errMessage, &task.Source, &createdAt, &updatedAt, &resultJSON); err != nil {
		return nil, err
	}
	task.Status = Status(status)
	task.Error = errMessage.String
	var err error
	if task.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if task.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if resultJSON.Valid && resultJSON.String != "" {
		res, err := result.Decode(strings.NewReader(resultJSON.String))
		if err != nil {
			return nil, fmt.Errorf("decode result of %s: %w", task.ID, err)
		}
		task.Result = res
	}
	return &task, nil
}

func encodeResult(res *result.Result) (any, error) {
	if res == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := result.Encode(&buf, res); err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return buf.String(), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
