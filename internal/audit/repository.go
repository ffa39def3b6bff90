package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends audit events to Postgres.
//
// Expected schema:
//
//	CREATE TABLE audit_events (
//	    id         UUID PRIMARY KEY,
//	    type       TEXT NOT NULL,
//	    provider   TEXT NOT NULL DEFAULT '',
//	    call_id    TEXT NOT NULL DEFAULT '',
//	    user_id    TEXT NOT NULL DEFAULT '',
//	    outcome    TEXT NOT NULL DEFAULT '',
//	    message    TEXT NOT NULL DEFAULT '',
//	    metadata   JSONB,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	var metadata any
	if e.Metadata != "" {
		metadata = e.Metadata
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, type, provider, call_id, user_id, outcome, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, string(e.Type), e.Provider, e.CallID, e.UserID, e.Outcome, e.Message, metadata, e.CreatedAt,
	)
	return err
}
