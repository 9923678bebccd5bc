package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	swaperr "github.com/gustavo/swapdesk/internal/errors"
)

// Wallets stores one EVM and one TON wallet per user. Secrets are encrypted
// before they reach this layer; the repository never sees plaintext.
type Wallets struct {
	pool *pgxpool.Pool
}

// Create inserts a wallet. A second wallet of the same kind for the same user
// violates the unique constraint and is surfaced as a usage error.
func (r *Wallets) Create(ctx context.Context, w Wallet) (Wallet, error) {
	w.ID = uuid.New()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO wallets (id, user_id, kind, address, encrypted_secret)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		w.ID, w.UserID, w.Kind, w.Address, w.EncryptedSecret,
	).Scan(&w.CreatedAt)
	if err != nil {
		return Wallet{}, swaperr.Wrap(swaperr.CodeUsage, "create wallet", err)
	}
	return w, nil
}

// ByUser returns the user's wallet of the given kind.
func (r *Wallets) ByUser(ctx context.Context, userID uuid.UUID, kind WalletKind) (Wallet, bool, error) {
	var w Wallet
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, kind, address, encrypted_secret, created_at
		FROM wallets WHERE user_id = $1 AND kind = $2`,
		userID, kind,
	).Scan(&w.ID, &w.UserID, &w.Kind, &w.Address, &w.EncryptedSecret, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, false, nil
	}
	if err != nil {
		return Wallet{}, false, swaperr.Wrap(swaperr.CodeUnavailable, "load wallet", err)
	}
	return w, true, nil
}
