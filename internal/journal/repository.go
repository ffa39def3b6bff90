package journal

import (
	"context"
	"database/sql"
	"errors"

	"voicejournal/pkg/utils"
)

// Page is one slice of a user's entries, newest first. NextCursor is empty
// on the final page.
type Page struct {
	Entries    []Entry `json:"entries"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

// Repository is the persistence contract for journal entries.
//
// Create must be idempotent per call: inserting a second entry for a call
// that already has one returns the existing entry id instead. That is what
// keeps redelivered transcription webhooks from duplicating entries.
type Repository interface {
	Create(ctx context.Context, e Entry) (entryID string, err error)
	Get(ctx context.Context, entryID string) (Entry, error)
	ListByUser(ctx context.Context, userID string, limit int, cursor string) (Page, error)
}

// PostgresRepo stores entries in the journal_entries table.
//
// Expected schema:
//
//	journal_entries (
//	  entry_id TEXT PRIMARY KEY,
//	  user_id TEXT NOT NULL,
//	  call_id TEXT NOT NULL UNIQUE,
//	  transcription TEXT NOT NULL,
//	  duration_seconds INT NOT NULL DEFAULT 0,
//	  created_at TIMESTAMPTZ NOT NULL
//	)
//	INDEX ON (user_id, created_at DESC, entry_id)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, e Entry) (string, error) {
	if e.EntryID == "" || e.UserID == "" || e.CallID == "" {
		return "", ErrInvalidArgument
	}
	const q = `
INSERT INTO journal_entries (
  entry_id, user_id, call_id, transcription, duration_seconds, created_at
) VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (call_id) DO NOTHING
RETURNING entry_id
`
	// Insert and conflict lookup run in one transaction so the id read on
	// conflict is the one that won the insert race.
	var id string
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, q,
			e.EntryID,
			e.UserID,
			e.CallID,
			e.Transcription,
			e.DurationSeconds,
			e.CreatedAt,
		).Scan(&id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		// Conflict: an entry for this call already exists.
		const lookup = `SELECT entry_id FROM journal_entries WHERE call_id = $1`
		return tx.QueryRowContext(ctx, lookup, e.CallID).Scan(&id)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *PostgresRepo) Get(ctx context.Context, entryID string) (Entry, error) {
	const q = `
SELECT entry_id, user_id, call_id, transcription, duration_seconds, created_at
FROM journal_entries
WHERE entry_id = $1
`
	var e Entry
	err := r.db.QueryRowContext(ctx, q, entryID).Scan(
		&e.EntryID,
		&e.UserID,
		&e.CallID,
		&e.Transcription,
		&e.DurationSeconds,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string, limit int, cursor string) (Page, error) {
	if limit <= 0 {
		limit = 20
	}

	// Keyset pagination on (created_at, entry_id) descending. Fetch one
	// extra row to learn whether another page exists.
	var (
		rows *sql.Rows
		err  error
	)
	if cursor == "" {
		const q = `
SELECT entry_id, user_id, call_id, transcription, duration_seconds, created_at
FROM journal_entries
WHERE user_id = $1
ORDER BY created_at DESC, entry_id DESC
LIMIT $2
`
		rows, err = r.db.QueryContext(ctx, q, userID, limit+1)
	} else {
		k, derr := decodeCursor(cursor)
		if derr != nil {
			return Page{}, derr
		}
		const q = `
SELECT entry_id, user_id, call_id, transcription, duration_seconds, created_at
FROM journal_entries
WHERE user_id = $1
  AND (created_at, entry_id) < ($2, $3)
ORDER BY created_at DESC, entry_id DESC
LIMIT $4
`
		rows, err = r.db.QueryContext(ctx, q, userID, k.CreatedAt, k.EntryID, limit+1)
	}
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.EntryID,
			&e.UserID,
			&e.CallID,
			&e.Transcription,
			&e.DurationSeconds,
			&e.CreatedAt,
		); err != nil {
			return Page{}, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}
	return buildPage(entries, limit), nil
}

// buildPage trims the lookahead row and derives the continuation cursor.
func buildPage(entries []Entry, limit int) Page {
	page := Page{}
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		page.NextCursor = encodeCursor(cursorKey{CreatedAt: last.CreatedAt, EntryID: last.EntryID})
	}
	page.Entries = entries
	return page
}
