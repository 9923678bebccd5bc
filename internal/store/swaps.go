package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	swaperr "github.com/gustavo/swapdesk/internal/errors"
)

// Swaps is the append-only record of executed same-chain swaps. A row exists
// only for transactions that were actually broadcast.
type Swaps struct {
	pool *pgxpool.Pool
}

func (r *Swaps) Insert(ctx context.Context, rec SwapRecord) (SwapRecord, error) {
	rec.ID = uuid.New()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO swaps (id, user_id, chain_id, from_token, to_token, amount, tx_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		rec.ID, rec.UserID, rec.ChainID, rec.FromToken, rec.ToToken, rec.Amount, rec.TxHash,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return SwapRecord{}, swaperr.Wrap(swaperr.CodeUnavailable, "record swap", err)
	}
	return rec, nil
}

func (r *Swaps) ByUser(ctx context.Context, userID uuid.UUID, limit int) ([]SwapRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, chain_id, from_token, to_token, amount, tx_hash, created_at
		FROM swaps WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, swaperr.Wrap(swaperr.CodeUnavailable, "list swaps", err)
	}
	defer rows.Close()

	var out []SwapRecord
	for rows.Next() {
		var rec SwapRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ChainID, &rec.FromToken, &rec.ToToken, &rec.Amount, &rec.TxHash, &rec.CreatedAt); err != nil {
			return nil, swaperr.Wrap(swaperr.CodeUnavailable, "scan swap", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
