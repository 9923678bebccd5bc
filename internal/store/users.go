package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	swaperr "github.com/gustavo/swapdesk/internal/errors"
)

// Users stores account identities keyed by an external id (the collaborator's
// user reference).
type Users struct {
	pool *pgxpool.Pool
}

// Ensure returns the user for an external id, creating it on first sight.
func (r *Users) Ensure(ctx context.Context, externalID string) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, external_id)
		VALUES ($1, $2)
		ON CONFLICT (external_id) DO UPDATE SET external_id = EXCLUDED.external_id
		RETURNING id, external_id, created_at`,
		uuid.New(), externalID,
	).Scan(&u.ID, &u.ExternalID, &u.CreatedAt)
	if err != nil {
		return User{}, swaperr.Wrap(swaperr.CodeUnavailable, "ensure user", err)
	}
	return u, nil
}

// ByExternalID looks a user up without creating one.
func (r *Users) ByExternalID(ctx context.Context, externalID string) (User, bool, error) {
	var u User
	err := r.pool.QueryRow(ctx, `
		SELECT id, external_id, created_at FROM users WHERE external_id = $1`,
		externalID,
	).Scan(&u.ID, &u.ExternalID, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, swaperr.Wrap(swaperr.CodeUnavailable, "load user", err)
	}
	return u, true, nil
}
