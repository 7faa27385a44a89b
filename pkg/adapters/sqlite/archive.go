// Package sqlite implements ports.Archive on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/concierge/pkg/domain"
	_ "modernc.org/sqlite"
)

// Archive records finished dispatches in SQLite.
type Archive struct {
	db *sql.DB
}

// Open opens (or creates) the archive at path. Use ":memory:" for a throwaway database.
func Open(path string) (*Archive, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Each ":memory:" connection is its own database, so the pool holds one.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	a := &Archive{db: db}
	if err := a.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return a, nil
}

func (a *Archive) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS dispatches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at INTEGER NOT NULL,
		session_id TEXT NOT NULL,
		generation INTEGER NOT NULL,
		domain TEXT NOT NULL,
		kind TEXT NOT NULL,
		fields_json TEXT NOT NULL,
		text TEXT,
		duration_ms INTEGER NOT NULL,
		is_error INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		stale INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_dispatches_session ON dispatches(session_id);
	`
	if _, err := a.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Record stores one finished dispatch.
func (a *Archive) Record(ctx context.Context, e *domain.DispatchEvent) error {
	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	at := e.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	query := `
	INSERT INTO dispatches (at, session_id, generation, domain, kind, fields_json, text, duration_ms, is_error, error, stale)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = a.db.ExecContext(ctx, query,
		at.UnixMilli(), e.SessionID, int64(e.Generation),
		string(e.Domain), string(e.Kind), string(fields),
		nullable(e.Text), e.Duration.Milliseconds(),
		e.IsError, nullable(e.Error), e.Stale,
	)
	if err != nil {
		return fmt.Errorf("insert dispatch: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]domain.DispatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, at, session_id, generation, domain, kind, fields_json,
		       text, duration_ms, is_error, error, stale
		FROM dispatches ORDER BY id DESC LIMIT ?`

	rows, err := a.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	var records []domain.DispatchRecord
	for rows.Next() {
		var (
			r          domain.DispatchRecord
			at, durMs  int64
			generation int64
			d, kind    string
			text, msg  sql.NullString
		)
		if err := rows.Scan(&r.ID, &at, &r.SessionID, &generation, &d, &kind, &r.Fields,
			&text, &durMs, &r.IsError, &msg, &r.Stale); err != nil {
			return nil, fmt.Errorf("scan dispatch row: %w", err)
		}
		r.At = time.UnixMilli(at)
		r.Generation = uint64(generation)
		r.Domain = domain.Domain(d)
		r.Kind = domain.DispatchKind(kind)
		r.Text = text.String
		r.Duration = time.Duration(durMs) * time.Millisecond
		r.Error = msg.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}
	return records, nil
}

// Ping verifies database connectivity.
func (a *Archive) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
