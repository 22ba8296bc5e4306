// Package store persists posture session history in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

// SessionRecord is one finished monitoring session
type SessionRecord struct {
	ID                int64
	SessionID         string
	InstanceID        string
	StartedAt         time.Time
	EndedAt           time.Time
	GoodSeconds       float64
	PoorSeconds       float64
	Alerts            int
	ShoulderThreshold *float64 // nil when the session never calibrated
	NeckThreshold     *float64
}

// Duration returns the wall-clock length of the session
func (r SessionRecord) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// GoodPercent returns the good share of tracked time and whether any was tracked
func (r SessionRecord) GoodPercent() (float64, bool) {
	tracked := r.GoodSeconds + r.PoorSeconds
	if tracked <= 0 {
		return 0, false
	}
	return r.GoodSeconds / tracked * 100, true
}

// Store wraps SQLite access for session history
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies migrations
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL,
			instance_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			good_s REAL NOT NULL,
			poor_s REAL NOT NULL,
			alerts INTEGER NOT NULL,
			shoulder_threshold REAL,
			neck_threshold REAL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a finished session and returns its row id
func (s *Store) InsertSession(ctx context.Context, r SessionRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, instance_id, started_at, ended_at, good_s, poor_s, alerts, shoulder_threshold, neck_threshold)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID,
		r.InstanceID,
		r.StartedAt.UTC().Format(time.RFC3339Nano),
		r.EndedAt.UTC().Format(time.RFC3339Nano),
		r.GoodSeconds,
		r.PoorSeconds,
		r.Alerts,
		nullFloat(r.ShoulderThreshold),
		nullFloat(r.NeckThreshold),
	)
	if err != nil {
		return 0, fmt.Errorf("store: insert session: %w", err)
	}
	return res.LastInsertId()
}

// RecentSessions returns up to limit sessions, most recently ended first
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, instance_id, started_at, ended_at, good_s, poor_s, alerts, shoulder_threshold, neck_threshold
		 FROM sessions ORDER BY ended_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query sessions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []SessionRecord
	for rows.Next() {
		var (
			r              SessionRecord
			started, ended string
			shoulder, neck sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.InstanceID, &started, &ended,
			&r.GoodSeconds, &r.PoorSeconds, &r.Alerts, &shoulder, &neck); err != nil {
			return nil, err
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("store: bad started_at %q: %w", started, err)
		}
		if r.EndedAt, err = time.Parse(time.RFC3339Nano, ended); err != nil {
			return nil, fmt.Errorf("store: bad ended_at %q: %w", ended, err)
		}
		if shoulder.Valid {
			v := shoulder.Float64
			r.ShoulderThreshold = &v
		}
		if neck.Valid {
			v := neck.Float64
			r.NeckThreshold = &v
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
