package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrClosed is returned when recording to a closed SQLiteSink.
var ErrClosed = errors.New("audit store closed")

const schema = `
CREATE TABLE IF NOT EXISTS audit_records (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL,
	ts          TEXT NOT NULL,
	type        TEXT NOT NULL,
	op          TEXT NOT NULL DEFAULT '',
	stage       TEXT NOT NULL DEFAULT '',
	cmd         TEXT NOT NULL DEFAULT '',
	workdir     TEXT NOT NULL DEFAULT '',
	timeout_ms  INTEGER NOT NULL DEFAULT 0,
	violation   TEXT NOT NULL DEFAULT '',
	reason      TEXT NOT NULL DEFAULT '',
	exit_code   INTEGER NOT NULL DEFAULT 0,
	success     INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS audit_records_id ON audit_records(id);
CREATE TRIGGER IF NOT EXISTS audit_records_no_update BEFORE UPDATE ON audit_records
BEGIN
	SELECT RAISE(ABORT, 'audit records are append-only');
END;
CREATE TRIGGER IF NOT EXISTS audit_records_no_delete BEFORE DELETE ON audit_records
BEGIN
	SELECT RAISE(ABORT, 'audit records are append-only');
END;
`

// SQLiteSink appends audit records to a SQLite database. Rows can be
// inserted but never updated or deleted.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the audit database at path.
func OpenSQLite(path string) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create audit database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("configure audit database: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}

	if err := os.Chmod(path, 0o600); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("restrict audit database permissions: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

// Record implements Sink.
func (s *SQLiteSink) Record(r *Record) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	_, err := s.db.Exec(
		`INSERT INTO audit_records
			(id, ts, type, op, stage, cmd, workdir, timeout_ms, violation, reason, exit_code, success, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		string(r.Type),
		r.Op,
		r.Stage,
		r.Cmd,
		r.Workdir,
		r.Timeout.Milliseconds(),
		r.Violation,
		r.Reason,
		r.ExitCode,
		boolToInt(r.Success),
		r.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, type, op, stage, cmd, workdir, timeout_ms, violation, reason, exit_code, success, duration_ms
		FROM audit_records ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var (
			r                     Record
			ts, typ               string
			timeoutMs, durationMs int64
		)
		if err := rows.Scan(&r.ID, &ts, &typ, &r.Op, &r.Stage, &r.Cmd, &r.Workdir, &timeoutMs,
			&r.Violation, &r.Reason, &r.ExitCode, &r.Success, &durationMs); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		r.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse audit timestamp %q: %w", ts, err)
		}
		r.Type = EventType(typ)
		r.Timeout = time.Duration(timeoutMs) * time.Millisecond
		r.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read audit records: %w", err)
	}
	return records, nil
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
