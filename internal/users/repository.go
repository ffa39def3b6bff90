package users

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository is the persistence contract for user preferences.
type Repository interface {
	Get(ctx context.Context, userID string) (Preferences, error)

	// Save merges the user-settable fields (phone, time, timezone, active)
	// into the stored record, creating it when absent. ScheduleRef is
	// never written by Save.
	Save(ctx context.Context, p Preferences) (Preferences, error)

	// SetScheduleRef writes the trigger handle (nil clears it). The
	// schedule reconciler is the only legitimate caller.
	SetScheduleRef(ctx context.Context, userID string, ref *string) error

	// FindByPhone resolves a phone number to its owner by exact match.
	FindByPhone(ctx context.Context, phoneNumber string) (Preferences, error)
}

// PostgresRepo stores preferences in the user_preferences table.
//
// Expected schema:
//
//	user_preferences (
//	  user_id TEXT PRIMARY KEY,
//	  phone_number TEXT NOT NULL DEFAULT '',
//	  preferred_call_time TEXT NOT NULL DEFAULT '',
//	  timezone TEXT NOT NULL DEFAULT 'America/New_York',
//	  is_active BOOLEAN NOT NULL DEFAULT FALSE,
//	  schedule_ref TEXT NULL,
//	  created_at TIMESTAMPTZ NOT NULL,
//	  updated_at TIMESTAMPTZ NOT NULL
//	)
//	INDEX ON (phone_number)  -- inbound caller resolution
type PostgresRepo struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, clock: time.Now}
}

const prefColumns = `user_id, phone_number, preferred_call_time, timezone, is_active, schedule_ref, created_at, updated_at`

func scanPref(row *sql.Row) (Preferences, error) {
	var p Preferences
	err := row.Scan(
		&p.UserID,
		&p.PhoneNumber,
		&p.PreferredCallTime,
		&p.Timezone,
		&p.IsActive,
		&p.ScheduleRef,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Preferences{}, ErrNotFound
		}
		return Preferences{}, err
	}
	return p, nil
}

func (r *PostgresRepo) Get(ctx context.Context, userID string) (Preferences, error) {
	const q = `SELECT ` + prefColumns + ` FROM user_preferences WHERE user_id = $1`
	return scanPref(r.db.QueryRowContext(ctx, q, userID))
}

func (r *PostgresRepo) Save(ctx context.Context, p Preferences) (Preferences, error) {
	if p.UserID == "" {
		return Preferences{}, ErrValidation
	}
	now := r.clock().UTC()
	// Merge semantics: empty incoming fields keep the stored value.
	// schedule_ref is deliberately absent from the update set.
	const q = `
INSERT INTO user_preferences (
  user_id, phone_number, preferred_call_time, timezone, is_active, created_at, updated_at
) VALUES ($1,$2,$3,COALESCE(NULLIF($4,''),'America/New_York'),$5,$6,$6)
ON CONFLICT (user_id) DO UPDATE SET
  phone_number        = COALESCE(NULLIF(EXCLUDED.phone_number,''), user_preferences.phone_number),
  preferred_call_time = COALESCE(NULLIF(EXCLUDED.preferred_call_time,''), user_preferences.preferred_call_time),
  timezone            = COALESCE(NULLIF($4,''), user_preferences.timezone),
  is_active           = EXCLUDED.is_active,
  updated_at          = EXCLUDED.updated_at
RETURNING ` + prefColumns
	return scanPref(r.db.QueryRowContext(ctx, q,
		p.UserID,
		p.PhoneNumber,
		p.PreferredCallTime,
		p.Timezone,
		p.IsActive,
		now,
	))
}

func (r *PostgresRepo) SetScheduleRef(ctx context.Context, userID string, ref *string) error {
	const q = `
UPDATE user_preferences
SET schedule_ref = $2, updated_at = $3
WHERE user_id = $1
`
	res, err := r.db.ExecContext(ctx, q, userID, ref, r.clock().UTC())
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

func (r *PostgresRepo) FindByPhone(ctx context.Context, phoneNumber string) (Preferences, error) {
	const q = `SELECT ` + prefColumns + ` FROM user_preferences WHERE phone_number = $1 LIMIT 1`
	return scanPref(r.db.QueryRowContext(ctx, q, phoneNumber))
}
