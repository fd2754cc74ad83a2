package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/sclaw-console/internal/history"
)

// Compile-time interface guard.
var _ history.Store = (*Store)(nil)

// Store is a history.Store backed by SQLite.
type Store struct {
	db *sql.DB
}

// Record appends an entry.
func (s *Store) Record(ctx context.Context, e history.Entry) (int64, error) {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (op, hash, path, raw, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.Op, e.Hash, e.Path, e.Raw, createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: record snapshot: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: record snapshot id: %w", err)
	}
	return id, nil
}

// List returns at most limit entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]history.Entry, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, op, hash, path, raw, created_at
		FROM snapshots
		ORDER BY id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []history.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list snapshots rows: %w", err)
	}
	return entries, nil
}

// Get returns the entry with the given id.
func (s *Store) Get(ctx context.Context, id int64) (history.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, op, hash, path, raw, created_at
		FROM snapshots
		WHERE id = ?`,
		id,
	)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return history.Entry{}, history.ErrNotFound
	}
	return e, err
}

// Prune keeps the newest keep entries.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune snapshots: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune rows affected: %w", err)
	}
	return int(n), nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (history.Entry, error) {
	var (
		e         history.Entry
		createdAt string
	)
	if err := s.Scan(&e.ID, &e.Op, &e.Hash, &e.Path, &e.Raw, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("sqlite: scan snapshot: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return e, fmt.Errorf("sqlite: parse created_at %q: %w", createdAt, err)
	}
	e.CreatedAt = t
	return e, nil
}
