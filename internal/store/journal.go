// Package store persists the execution journal: one row per handled
// utterance, whether it ran, was only previewed or was run in test mode.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"saysh/internal/logging"
)

// Mode says what happened to a journaled utterance.
type Mode string

const (
	ModeExecuted Mode = "executed"
	ModePreview  Mode = "preview"
	ModeTest     Mode = "test"
)

// maxStderr bounds the stderr kept per entry.
const maxStderr = 4096

// Entry is one journaled utterance.
type Entry struct {
	ID             string        `json:"id"`
	RunID          string        `json:"run_id,omitempty"`
	SessionID      string        `json:"session_id"`
	Utterance      string        `json:"utterance"`
	Stages         []string      `json:"stages"`
	Mode           Mode          `json:"mode"`
	Success        bool          `json:"success"`
	ExitCode       int           `json:"exit_code"`
	StagesExecuted int           `json:"stages_executed"`
	FailedStage    *int          `json:"failed_stage,omitempty"`
	Stderr         string        `json:"stderr,omitempty"`
	Duration       time.Duration `json:"duration"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Stats summarizes the journal.
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
	Previewed int
}

// Journal is the SQLite-backed execution history.
type Journal struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// Open creates or opens the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	j := &Journal{db: db, dbPath: path}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Store("Journal opened at %s", path)
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.dbPath
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS executions (
		id TEXT PRIMARY KEY,
		run_id TEXT,
		session_id TEXT NOT NULL,
		utterance TEXT NOT NULL,
		stages TEXT NOT NULL,
		mode TEXT NOT NULL,
		success BOOLEAN NOT NULL,
		exit_code INTEGER NOT NULL,
		stages_executed INTEGER NOT NULL,
		failed_stage INTEGER,
		stderr TEXT,
		duration_ms INTEGER,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_executions_created ON executions(created_at);
	CREATE INDEX IF NOT EXISTS idx_executions_session ON executions(session_id);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record stores e, assigning an ID and timestamp when unset, and returns
// the ID.
func (j *Journal) Record(ctx context.Context, e Entry) (string, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Journal.Record")
	defer timer.Stop()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if len(e.Stderr) > maxStderr {
		e.Stderr = e.Stderr[:maxStderr]
	}

	stages, err := json.Marshal(e.Stages)
	if err != nil {
		return "", fmt.Errorf("failed to encode stages: %w", err)
	}

	var failed sql.NullInt64
	if e.FailedStage != nil {
		failed = sql.NullInt64{Int64: int64(*e.FailedStage), Valid: true}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO executions
		(id, run_id, session_id, utterance, stages, mode, success, exit_code,
		 stages_executed, failed_stage, stderr, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RunID, e.SessionID, e.Utterance, string(stages), string(e.Mode), e.Success, e.ExitCode,
		e.StagesExecuted, failed, e.Stderr, e.Duration.Milliseconds(), e.CreatedAt.UTC(),
	)
	if err != nil {
		logging.StoreWarn("Failed to journal %q: %v", e.Utterance, err)
		return "", fmt.Errorf("failed to record execution: %w", err)
	}
	return e.ID, nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, run_id, session_id, utterance, stages, mode, success, exit_code,
		       stages_executed, failed_stage, stderr, duration_ms, created_at
		FROM executions
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			runID   sql.NullString
			stages  string
			mode    string
			failed  sql.NullInt64
			stderr  sql.NullString
			elapsed sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &runID, &e.SessionID, &e.Utterance, &stages, &mode, &e.Success,
			&e.ExitCode, &e.StagesExecuted, &failed, &stderr, &elapsed, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		if err := json.Unmarshal([]byte(stages), &e.Stages); err != nil {
			return nil, fmt.Errorf("failed to decode stages of %s: %w", e.ID, err)
		}
		e.RunID = runID.String
		e.Mode = Mode(mode)
		e.Stderr = stderr.String
		e.Duration = time.Duration(elapsed.Int64) * time.Millisecond
		if failed.Valid {
			idx := int(failed.Int64)
			e.FailedStage = &idx
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats counts entries by outcome.
func (j *Journal) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := j.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN mode = 'executed' AND success THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN mode = 'executed' AND NOT success THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN mode != 'executed' THEN 1 ELSE 0 END), 0)
		FROM executions`).Scan(&s.Total, &s.Succeeded, &s.Failed, &s.Previewed)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to summarize journal: %w", err)
	}
	return s, nil
}
