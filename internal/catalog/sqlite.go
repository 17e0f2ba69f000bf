package catalog

/*
 * sqlite.go
 * Embedded, file-backed catalog store
 */

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // pure-Go sqlite3 driver, registers "sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS ssh_keys (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	fingerprint TEXT UNIQUE NOT NULL,
	username TEXT NOT NULL,
	target_host TEXT NOT NULL,
	target_port INTEGER NOT NULL DEFAULT 22,
	target_user TEXT NOT NULL,
	enabled BOOLEAN NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_ssh_keys_fingerprint ON ssh_keys(fingerprint);

CREATE TABLE IF NOT EXISTS connection_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	fingerprint TEXT NOT NULL,
	source_ip TEXT NOT NULL,
	target_host TEXT NOT NULL,
	target_user TEXT NOT NULL,
	username TEXT NOT NULL,
	status TEXT NOT NULL,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
	error_message TEXT
);
CREATE INDEX IF NOT EXISTS idx_connection_logs_timestamp ON connection_logs(timestamp);
`

// SQLiteStore is the default catalog.Store backend: a single file-backed
// SQLite database reached through database/sql and the pure-Go
// modernc.org/sqlite driver (no cgo). SQLite's single-writer semantics and
// sql.DB's own connection pool give the "single-row read/write atomicity"
// and safe concurrent reads without any additional locking here.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if necessary) the SQLite file at path and
// idempotently applies the schema.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if nil != err {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite tolerates one writer; keep it simple

	if _, err := db.Exec(schema); nil != err {
		db.Close()
		return nil, fmt.Errorf("applying catalog schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Find implements Store.
func (s *SQLiteStore) Find(ctx context.Context, fingerprint string) (*KeyBinding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, fingerprint, username, target_host, target_port, target_user, enabled
		FROM ssh_keys
		WHERE fingerprint = ? AND enabled = 1
	`, fingerprint)

	var b KeyBinding
	err := row.Scan(
		&b.ID, &b.Fingerprint, &b.Username, &b.TargetHost, &b.TargetPort,
		&b.TargetUser, &b.Enabled,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if nil != err {
		return nil, fmt.Errorf("finding key %s: %w", fingerprint, err)
	}
	return &b, nil
}

// Insert implements Store.
func (s *SQLiteStore) Insert(ctx context.Context, b KeyBinding) error {
	if err := b.Validate(); nil != err {
		return fmt.Errorf("invalid binding: %w", err)
	}

	existing, err := s.Find(ctx, b.Fingerprint)
	if nil != err {
		return err
	}
	if nil != existing {
		return ErrConflict
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ssh_keys
			(fingerprint, username, target_host, target_port, target_user, enabled)
		VALUES (?, ?, ?, ?, ?, ?)
	`, b.Fingerprint, b.Username, b.TargetHost, b.TargetPort, b.TargetUser, b.Enabled)
	if nil != err {
		return fmt.Errorf("inserting key %s: %w", b.Fingerprint, err)
	}
	return nil
}

// RecordEvent implements Store.
func (s *SQLiteStore) RecordEvent(ctx context.Context, e ConnectionEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO connection_logs
			(fingerprint, source_ip, target_host, target_user, username, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.Fingerprint, e.SourceIP, e.TargetHost, e.TargetUser, e.PresentedUsername,
		string(e.Status), nullIfEmpty(e.ErrorMessage))
	if nil != err {
		return fmt.Errorf("recording connection event: %w", err)
	}
	return nil
}

// RouteFor implements Store.
func (s *SQLiteStore) RouteFor(ctx context.Context, fingerprint string) (*Target, error) {
	b, err := s.Find(ctx, fingerprint)
	if nil != err {
		return nil, err
	}
	if nil == b || !b.Enabled {
		return nil, nil
	}
	return &Target{Host: b.TargetHost, Port: b.TargetPort, User: b.TargetUser}, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]KeyBinding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fingerprint, username, target_host, target_port, target_user, enabled
		FROM ssh_keys
		ORDER BY id
	`)
	if nil != err {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	var out []KeyBinding
	for rows.Next() {
		var b KeyBinding
		if err := rows.Scan(
			&b.ID, &b.Fingerprint, &b.Username, &b.TargetHost, &b.TargetPort,
			&b.TargetUser, &b.Enabled,
		); nil != err {
			return nil, fmt.Errorf("scanning key row: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if "" == s {
		return nil
	}
	return s
}
