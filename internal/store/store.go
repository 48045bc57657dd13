package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a keyed lookup has no match.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicateAttempt is returned when a student already has the mock.
	ErrDuplicateAttempt = errors.New("store: attempt already exists")

	// ErrDuplicateExam is returned when an exam config id is taken.
	ErrDuplicateExam = errors.New("store: exam config already exists")
)

// Store is the SQLite-backed repository of students, exam configs, mock
// attempts and the LLM audit log.
type Store struct {
	db *sql.DB
}

var _ Repo = (*Store)(nil)

// Open connects to the SQLite database at dsn, applies pragmas, creates the
// schema and seeds the default exam configs.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := s.seedExamConfigs(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed exam configs: %w", err)
	}
	return s, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// EventRepo returns the LLM audit log backed by this store.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{db: s.db}
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		courses TEXT NOT NULL DEFAULT '[]',
		avatar TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS exam_configs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		important_topics TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		mock_id TEXT NOT NULL,
		exam_id TEXT NOT NULL,
		exam_type TEXT NOT NULL DEFAULT '',
		taken_on DATETIME NOT NULL,
		score INTEGER NOT NULL DEFAULT 0,
		accuracy REAL NOT NULL DEFAULT 0,
		avg_time REAL NOT NULL DEFAULT 0,
		UNIQUE (student_id, mock_id)
	);

	CREATE TABLE IF NOT EXISTS responses (
		attempt_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		student_id TEXT NOT NULL,
		mock_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		section TEXT NOT NULL,
		topic TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		attempted INTEGER NOT NULL,
		student_answer TEXT,
		correct_answer TEXT NOT NULL DEFAULT '',
		is_correct INTEGER NOT NULL,
		time_taken REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (attempt_id, seq),
		FOREIGN KEY (attempt_id) REFERENCES attempts(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS llm_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		mock_id TEXT NOT NULL DEFAULT '',
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// DefaultDBPath resolves the database file path in priority order:
// 1. MOCKSCOPE_DB environment variable
// 2. $XDG_DATA_HOME/mockscope/mockscope.db
// 3. ~/.local/share/mockscope/mockscope.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("MOCKSCOPE_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "mockscope", "mockscope.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
