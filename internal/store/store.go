// Package store handles SQLite persistence of logged trials.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/tuigrid/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

const recordTimeLayout = "2006-01-02T15:04:05.000Z"

// Store wraps SQLite access for trial data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Trials arrive from concurrent requests; a single connection keeps SQLite
	// from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trials (
			id INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL,
			trial_number INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			target_name TEXT NOT NULL,
			image_file_name TEXT NOT NULL,
			time_taken_ms INTEGER NOT NULL,
			prompt_used TEXT NOT NULL,
			correct TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trials_session ON trials(session_id, id);`,
		`CREATE INDEX IF NOT EXISTS idx_trials_timestamp ON trials(timestamp);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertTrial appends one trial record. Parseable timestamps are stored in
// UTC so session filters and ordering compare like with like.
func (s *Store) InsertTrial(ctx context.Context, rec model.TrialRecord) (int64, error) {
	if ts, err := ParseTimestamp(rec.Timestamp); err == nil {
		rec.Timestamp = FormatTimestamp(ts)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO trials (session_id, trial_number, timestamp, target_name, image_file_name, time_taken_ms, prompt_used, correct)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID,
		rec.TrialNumber,
		rec.Timestamp,
		rec.TargetName,
		rec.ImageFileName,
		rec.TimeTakenMs,
		rec.PromptUsed,
		rec.Correct,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListTrials returns a session's records in arrival order.
func (s *Store) ListTrials(ctx context.Context, sessionID string) ([]model.TrialRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, trial_number, timestamp, target_name, image_file_name, time_taken_ms, prompt_used, correct
		 FROM trials
		 WHERE session_id = ?
		 ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.TrialRecord
	for rows.Next() {
		var rec model.TrialRecord
		if err := rows.Scan(&rec.SessionID, &rec.TrialNumber, &rec.Timestamp, &rec.TargetName,
			&rec.ImageFileName, &rec.TimeTakenMs, &rec.PromptUsed, &rec.Correct); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListSessions returns per-session counts ordered by first trial.
func (s *Store) ListSessions(ctx context.Context, filter model.SessionFilter) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	having := ""
	if filter.Since != nil {
		having = "HAVING MIN(timestamp) >= ?"
		args = append(args, filter.Since.UTC().Format(recordTimeLayout))
	}
	query := fmt.Sprintf(`SELECT session_id, MIN(timestamp), MAX(timestamp), COUNT(*),
		SUM(CASE WHEN correct = ? THEN 1 ELSE 0 END)
		FROM trials
		WHERE %s
		GROUP BY session_id
		%s
		ORDER BY MIN(timestamp) ASC`, strings.Join(clauses, " AND "), having)
	args = append([]any{model.Correct}, args...)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var firstAt, lastAt string
		if err := rows.Scan(&agg.SessionID, &firstAt, &lastAt, &agg.Trials, &agg.Correct); err != nil {
			return nil, err
		}
		if agg.FirstAt, err = ParseTimestamp(firstAt); err != nil {
			return nil, err
		}
		if agg.LastAt, err = ParseTimestamp(lastAt); err != nil {
			return nil, err
		}
		agg.Incorrect = agg.Trials - agg.Correct
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if filter.Last > 0 && len(sessions) > filter.Last {
		sessions = sessions[len(sessions)-filter.Last:]
	}
	return sessions, nil
}

// FormatTimestamp renders t the way trial timestamps are stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(recordTimeLayout)
}

// ParseTimestamp parses a trial record timestamp.
func ParseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(recordTimeLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid trial timestamp %q: %w", value, err)
	}
	return t, nil
}
