// Package sqlite implements engine.Repository using pure-Go SQLite, no
// CGO required. A single shared connection (SetMaxOpenConns(1))
// serializes every goroutine through one connection, eliminating
// SQLITE_BUSY from concurrent writers opening independent connections;
// Init creates the single key/doc/version table if missing.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Repo is a SQLite-backed engine.Repository, suitable for embedding a
// case store directly inside a host process with no external database.
type Repo struct {
	db *sql.DB
}

// New opens (creating if necessary) a SQLite database file at path.
func New(path string) (*Repo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return &Repo{db: db}, nil
}

// Init creates the backing table if it does not already exist.
func (r *Repo) Init(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS journey_documents (
		key TEXT PRIMARY KEY,
		doc BLOB,
		version INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		return fmt.Errorf("sqlite: create table: %w", err)
	}
	return nil
}

func (r *Repo) Close() error { return r.db.Close() }

// SaveOrUpdate upserts doc under key in a single atomic statement,
// relying on SQLite's UPSERT clause rather than a read-then-write round
// trip.
func (r *Repo) SaveOrUpdate(ctx context.Context, key string, doc []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO journey_documents(key, doc, version) VALUES (?, ?, 0)
		ON CONFLICT(key) DO UPDATE SET doc = excluded.doc
	`, key, doc)
	if err != nil {
		return fmt.Errorf("sqlite: saveOrUpdate %q: %w", key, err)
	}
	return nil
}

// Save inserts a brand new key; it fails if the key already exists.
func (r *Repo) Save(ctx context.Context, key string, doc []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO journey_documents(key, doc, version) VALUES (?, ?, 0)`, key, doc)
	if err != nil {
		return fmt.Errorf("sqlite: save %q: %w", key, err)
	}
	return nil
}

// Update overwrites an existing key's document; it fails if the key does
// not already exist.
func (r *Repo) Update(ctx context.Context, key string, doc []byte) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE journey_documents SET doc = ? WHERE key = ?`, doc, key)
	if err != nil {
		return fmt.Errorf("sqlite: update %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: update %q: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("sqlite: update %q: key not found", key)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM journey_documents WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite: delete %q: %w", key, err)
	}
	return nil
}

// Get returns (nil, nil) for a missing key, matching the contract's
// "doc | null" return rather than a sentinel not-found error.
func (r *Repo) Get(ctx context.Context, key string) ([]byte, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx, `SELECT doc FROM journey_documents WHERE key = ?`, key).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get %q: %w", key, err)
	}
	return doc, nil
}

// GetAll lists every document whose key is prefixed by typ, matching the
// namespacing convention internal/engine uses
// (workflow_process_info+SEP+caseId, etc.).
func (r *Repo) GetAll(ctx context.Context, typ string) ([][]byte, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT doc FROM journey_documents WHERE key LIKE ? || '%'`, typ)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getAll %q: %w", typ, err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("sqlite: getAll %q: %w", typ, err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// GetLocked reads key inside a transaction opened with default options
// (SQLite's deferred mode, which takes no write lock for a read). With
// SetMaxOpenConns(1) this repo never has more than one statement in
// flight at all, so GetLocked behaves as a plain Get.
func (r *Repo) GetLocked(ctx context.Context, key string) ([]byte, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getLocked %q: %w", key, err)
	}
	defer tx.Rollback()

	var doc []byte
	err = tx.QueryRowContext(ctx, `SELECT doc FROM journey_documents WHERE key = ?`, key).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, tx.Commit()
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getLocked %q: %w", key, err)
	}
	return doc, tx.Commit()
}

// IncrCounter atomically bumps key's version column and returns the new
// value, upserting a zero-doc row on first use.
func (r *Repo) IncrCounter(ctx context.Context, key string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: incrCounter %q: %w", key, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO journey_documents(key, doc, version) VALUES (?, '{}', 0) ON CONFLICT(key) DO NOTHING`,
		key); err != nil {
		return 0, fmt.Errorf("sqlite: incrCounter %q: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE journey_documents SET version = version + 1 WHERE key = ?`, key); err != nil {
		return 0, fmt.Errorf("sqlite: incrCounter %q: %w", key, err)
	}
	var version int64
	if err := tx.QueryRowContext(ctx,
		`SELECT version FROM journey_documents WHERE key = ?`, key).Scan(&version); err != nil {
		return 0, fmt.Errorf("sqlite: incrCounter %q: %w", key, err)
	}
	return version, tx.Commit()
}
