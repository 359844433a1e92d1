package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS dashboard_sessions (
	id                UUID PRIMARY KEY,
	principal         JSONB NOT NULL,
	sealed_tokens     BYTEA NOT NULL,
	access_expires_at TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS dashboard_sessions_updated_at_idx ON dashboard_sessions (updated_at);`

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a Repository backed by the given connection pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the sessions table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating dashboard_sessions: %w", err)
	}
	return nil
}

// Save upserts a session record.
func (r *PostgresRepository) Save(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO dashboard_sessions (id, principal, sealed_tokens, access_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			principal = EXCLUDED.principal,
			sealed_tokens = EXCLUDED.sealed_tokens,
			access_expires_at = EXCLUDED.access_expires_at,
			updated_at = EXCLUDED.updated_at`

	var expires *time.Time
	if !rec.AccessExpiresAt.IsZero() {
		expires = &rec.AccessExpiresAt
	}

	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.Principal,
		rec.SealedTokens,
		expires,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Get retrieves a session record by id.
func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	query := `
		SELECT id, principal, sealed_tokens, access_expires_at, created_at, updated_at
		FROM dashboard_sessions
		WHERE id = $1`

	var rec Record
	var expires *time.Time
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.Principal, &rec.SealedTokens, &expires,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying session: %w", err)
	}
	if expires != nil {
		rec.AccessExpiresAt = *expires
	}
	return &rec, nil
}

// Delete removes a session record.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM dashboard_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteIdle removes sessions not touched since before and returns their ids.
func (r *PostgresRepository) DeleteIdle(ctx context.Context, before time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `DELETE FROM dashboard_sessions WHERE updated_at < $1 RETURNING id`, before)
	if err != nil {
		return nil, fmt.Errorf("deleting idle sessions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating idle sessions: %w", err)
	}
	return ids, nil
}
