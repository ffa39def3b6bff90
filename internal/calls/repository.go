package calls

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Repository is the persistence contract for call records.
//
// ApplyIfNotTerminal is the only mutation path. There is deliberately no
// unconditional update: the terminal-state guard is part of the store's
// contract, not an inline expression in each caller.
type Repository interface {
	Create(ctx context.Context, r Record) error
	Get(ctx context.Context, callID string) (Record, error)

	// ApplyIfNotTerminal applies u to the record iff it exists and its
	// current status is not terminal. It returns (false, nil) when the
	// guard rejected the write, and ErrNotFound when no record exists.
	ApplyIfNotTerminal(ctx context.Context, callID string, u Update) (bool, error)

	// SetRecording attaches recording metadata without touching status.
	// Recording fields are independently settable even after a terminal
	// transition; duration may only be written at or after terminal, which
	// holds because recordings finish no earlier than the call does.
	SetRecording(ctx context.Context, callID, recordingID, recordingURL string, durationSeconds int) error

	// ListByUser returns the user's most recent calls, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]Record, error)
}

// PostgresRepo stores call records in the call_records table.
//
// Expected schema:
//
//	call_records (
//	  call_id TEXT PRIMARY KEY,
//	  user_id TEXT NOT NULL,
//	  direction TEXT NOT NULL,
//	  status TEXT NOT NULL,
//	  from_number TEXT NOT NULL,
//	  to_number TEXT NOT NULL,
//	  duration_seconds INT NOT NULL DEFAULT 0,
//	  recording_id TEXT NOT NULL DEFAULT '',
//	  recording_url TEXT NOT NULL DEFAULT '',
//	  created_at TIMESTAMPTZ NOT NULL
//	)
//	INDEX ON (user_id, created_at DESC)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, rec Record) error {
	if rec.CallID == "" || rec.UserID == "" {
		return ErrInvalidArgument
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	const q = `
INSERT INTO call_records (
  call_id, user_id, direction, status, from_number, to_number,
  duration_seconds, recording_id, recording_url, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (call_id) DO NOTHING
`
	res, err := r.db.ExecContext(ctx, q,
		rec.CallID,
		rec.UserID,
		rec.Direction,
		rec.Status,
		rec.FromNumber,
		rec.ToNumber,
		rec.DurationSeconds,
		rec.RecordingID,
		rec.RecordingURL,
		rec.CreatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, callID string) (Record, error) {
	const q = `
SELECT call_id, user_id, direction, status, from_number, to_number,
       duration_seconds, recording_id, recording_url, created_at
FROM call_records
WHERE call_id = $1
`
	var rec Record
	err := r.db.QueryRowContext(ctx, q, callID).Scan(
		&rec.CallID,
		&rec.UserID,
		&rec.Direction,
		&rec.Status,
		&rec.FromNumber,
		&rec.ToNumber,
		&rec.DurationSeconds,
		&rec.RecordingID,
		&rec.RecordingURL,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (r *PostgresRepo) ApplyIfNotTerminal(ctx context.Context, callID string, u Update) (bool, error) {
	if callID == "" {
		return false, ErrInvalidArgument
	}
	if u.isEmpty() {
		// Nothing to write; treat as an applied no-op if the record exists.
		_, err := r.Get(ctx, callID)
		if err != nil {
			return false, err
		}
		return true, nil
	}

	set := make([]string, 0, 4)
	args := make([]any, 0, 5)
	args = append(args, callID)
	next := func() int { return len(args) + 1 }

	if u.Status != nil {
		set = append(set, "status = $"+strconv.Itoa(next()))
		args = append(args, *u.Status)
	}
	if u.DurationSeconds != nil {
		set = append(set, "duration_seconds = $"+strconv.Itoa(next()))
		args = append(args, *u.DurationSeconds)
	}
	if u.RecordingID != nil {
		set = append(set, "recording_id = $"+strconv.Itoa(next()))
		args = append(args, *u.RecordingID)
	}
	if u.RecordingURL != nil {
		set = append(set, "recording_url = $"+strconv.Itoa(next()))
		args = append(args, *u.RecordingURL)
	}

	// The status guard rides in the WHERE clause so concurrent webhooks for
	// the same call race at the row level, not in application code.
	q := `
UPDATE call_records
SET ` + strings.Join(set, ", ") + `
WHERE call_id = $1
  AND status NOT IN ('completed','failed','busy','no-answer')
`
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}

	// Guard rejected or record missing; disambiguate for the caller.
	if _, err := r.Get(ctx, callID); err != nil {
		return false, err
	}
	return false, nil
}

func (r *PostgresRepo) SetRecording(ctx context.Context, callID, recordingID, recordingURL string, durationSeconds int) error {
	if callID == "" {
		return ErrInvalidArgument
	}
	const q = `
UPDATE call_records
SET recording_id = $2, recording_url = $3, duration_seconds = $4
WHERE call_id = $1
`
	res, err := r.db.ExecContext(ctx, q, callID, recordingID, recordingURL, durationSeconds)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT call_id, user_id, direction, status, from_number, to_number,
       duration_seconds, recording_id, recording_url, created_at
FROM call_records
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.CallID,
			&rec.UserID,
			&rec.Direction,
			&rec.Status,
			&rec.FromNumber,
			&rec.ToNumber,
			&rec.DurationSeconds,
			&rec.RecordingID,
			&rec.RecordingURL,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
