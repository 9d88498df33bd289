// Package history persists one row per completed analysis run in a local
// SQLite database, so scheduled runs leave an inspectable trail.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL let overlapping scheduled runs queue instead of fail.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open run history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping run history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize run history schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) SaveRun(record RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(record.RunID) == "" {
		return fmt.Errorf("run id must not be empty")
	}
	if record.SchemaVersion == 0 {
		record.SchemaVersion = SchemaVersion
	}
	if record.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported run schema version %d", record.SchemaVersion)
	}
	if record.StartedAt.IsZero() {
		record.StartedAt = time.Now().UTC()
	}
	if record.FinishedAt.IsZero() {
		record.FinishedAt = record.StartedAt
	}

	query := `
INSERT INTO runs (
  run_id, schema_version, mode, direction, started_utc, finished_utc,
  months_analyzed, months_failed, total_issues, total_changes
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
  schema_version=excluded.schema_version,
  mode=excluded.mode,
  direction=excluded.direction,
  started_utc=excluded.started_utc,
  finished_utc=excluded.finished_utc,
  months_analyzed=excluded.months_analyzed,
  months_failed=excluded.months_failed,
  total_issues=excluded.total_issues,
  total_changes=excluded.total_changes
`
	return s.withRetry("save run", func() error {
		_, err := s.db.Exec(
			query,
			record.RunID,
			record.SchemaVersion,
			record.Mode,
			record.Direction,
			record.StartedAt.UTC().Format(time.RFC3339Nano),
			record.FinishedAt.UTC().Format(time.RFC3339Nano),
			record.MonthsAnalyzed,
			record.MonthsFailed,
			record.TotalIssues,
			record.TotalChanges,
		)
		return err
	})
}

// LoadRuns returns runs for a mode ordered oldest first, optionally bounded
// below by since. An empty mode returns every run.
func (s *Store) LoadRuns(modeID string, since time.Time) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := `
SELECT
  run_id, schema_version, mode, direction, started_utc, finished_utc,
  months_analyzed, months_failed, total_issues, total_changes
FROM runs
WHERE 1=1
`
	args := make([]any, 0, 2)
	if strings.TrimSpace(modeID) != "" {
		base += " AND mode = ?"
		args = append(args, modeID)
	}
	if !since.IsZero() {
		base += " AND started_utc >= ?"
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	base += " ORDER BY started_utc ASC, run_id ASC"

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(base, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]RunRecord, 0)
	for rows.Next() {
		var (
			startedRaw  string
			finishedRaw string
			record      RunRecord
		)
		if err := rows.Scan(
			&record.RunID,
			&record.SchemaVersion,
			&record.Mode,
			&record.Direction,
			&startedRaw,
			&finishedRaw,
			&record.MonthsAnalyzed,
			&record.MonthsFailed,
			&record.TotalIssues,
			&record.TotalChanges,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}

		started, err := time.Parse(time.RFC3339Nano, startedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run start %q: %w", startedRaw, err)
		}
		record.StartedAt = started.UTC()

		finished, err := time.Parse(time.RFC3339Nano, finishedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run finish %q: %w", finishedRaw, err)
		}
		record.FinishedAt = finished.UTC()

		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}

	return records, nil
}

// LastRun returns the most recent run for a mode and direction, or false when
// none has been recorded.
func (s *Store) LastRun(modeID, direction string) (RunRecord, bool, error) {
	runs, err := s.LoadRuns(modeID, time.Time{})
	if err != nil {
		return RunRecord{}, false, err
	}
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i].Direction == direction {
			return runs[i], true, nil
		}
	}
	return RunRecord{}, false, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}
