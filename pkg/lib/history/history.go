// Package history persists broker start attempts and exits in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/SanjoDeundiak/broker-shell/pkg/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	attempt_id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	pid INTEGER NOT NULL DEFAULT 0,
	started_at INTEGER NOT NULL,
	ended_at INTEGER,
	exit_code INTEGER,
	state TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Run is one start attempt of the broker.
type Run struct {
	AttemptID string
	Path      string
	PID       int
	StartedAt time.Time
	EndedAt   *time.Time
	ExitCode  *int
	State     lib.BrokerState
	Error     string
}

type runRow struct {
	AttemptID string        `db:"attempt_id"`
	Path      string        `db:"path"`
	PID       int           `db:"pid"`
	StartedAt int64         `db:"started_at"`
	EndedAt   sql.NullInt64 `db:"ended_at"`
	ExitCode  sql.NullInt64 `db:"exit_code"`
	State     string        `db:"state"`
	Error     string        `db:"error"`
}

func (r runRow) toRun() Run {
	run := Run{
		AttemptID: r.AttemptID,
		Path:      r.Path,
		PID:       r.PID,
		StartedAt: time.UnixMilli(r.StartedAt),
		Error:     r.Error,
	}
	if state, err := lib.ParseBrokerState(r.State); err == nil {
		run.State = state
	}
	if r.EndedAt.Valid {
		t := time.UnixMilli(r.EndedAt.Int64)
		run.EndedAt = &t
	}
	if r.ExitCode.Valid {
		code := int(r.ExitCode.Int64)
		run.ExitCode = &code
	}
	return run
}

// Duration is the run time, or zero while the run is still open.
func (r Run) Duration() time.Duration {
	if r.EndedAt == nil {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Store records runs. Its Record methods satisfy supervisor.Recorder and only
// log write failures, so a broken history never affects the broker.
type Store struct {
	db     *sqlx.DB
	path   string
	logger zerolog.Logger
	// timeout bounds each write issued from a Record method.
	timeout time.Duration
}

type Option func(*Store)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open creates or opens the history database at path.
func Open(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure history directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps the per-connection pragmas in effect.
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

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	s := &Store{db: db, path: path, logger: zerolog.Nop(), timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) RecordStart(attemptID, path string, pid int, at time.Time) {
	s.exec("record start", attemptID,
		`INSERT INTO runs (attempt_id, path, pid, started_at, state) VALUES (?, ?, ?, ?, ?)`,
		attemptID, path, pid, at.UnixMilli(), lib.BrokerStateRunning.String())
}

func (s *Store) RecordFailure(attemptID, path string, cause error, at time.Time) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	s.exec("record failure", attemptID,
		`INSERT INTO runs (attempt_id, path, started_at, ended_at, state, error) VALUES (?, ?, ?, ?, ?, ?)`,
		attemptID, path, at.UnixMilli(), at.UnixMilli(), lib.BrokerStateStoppedWithError.String(), msg)
}

func (s *Store) RecordExit(attemptID string, exitCode *int, state lib.BrokerState, at time.Time) {
	var code sql.NullInt64
	if exitCode != nil {
		code = sql.NullInt64{Int64: int64(*exitCode), Valid: true}
	}
	s.exec("record exit", attemptID,
		`UPDATE runs SET ended_at = ?, exit_code = ?, state = ? WHERE attempt_id = ?`,
		at.UnixMilli(), code, state.String(), attemptID)
}

func (s *Store) exec(op, attemptID, query string, args ...any) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Warn().Err(err).Str("attempt", attemptID).Msgf("History: %s failed", op)
	}
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []runRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT attempt_id, path, pid, started_at, ended_at, exit_code, state, error
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	runs := make([]Run, 0, len(rows))
	for _, r := range rows {
		runs = append(runs, r.toRun())
	}
	return runs, nil
}

// Get returns the run for attemptID, or sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, attemptID string) (Run, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row,
		`SELECT attempt_id, path, pid, started_at, ended_at, exit_code, state, error
		FROM runs WHERE attempt_id = ?`, attemptID)
	if err != nil {
		return Run{}, err
	}
	return row.toRun(), nil
}
