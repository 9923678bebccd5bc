package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	swaperr "github.com/gustavo/swapdesk/internal/errors"
)

// CrosschainSwaps stores bridge swaps. Rows start pending and move to exactly
// one terminal state; the guarded UPDATE makes a late or duplicate status
// poll a no-op instead of a corruption.
type CrosschainSwaps struct {
	pool *pgxpool.Pool
}

func (r *CrosschainSwaps) Insert(ctx context.Context, rec CrosschainSwapRecord) (CrosschainSwapRecord, error) {
	rec.ID = uuid.New()
	rec.Status = BridgePending
	err := r.pool.QueryRow(ctx, `
		INSERT INTO crosschain_swaps
			(id, user_id, from_chain_id, to_chain_id, wallet, from_token, to_token,
			 amount, slippage, price_impact, bridge_id, source_tx_hash, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`,
		rec.ID, rec.UserID, rec.FromChainID, rec.ToChainID, rec.Wallet,
		rec.FromToken, rec.ToToken, rec.Amount, rec.Slippage, rec.PriceImpact,
		rec.BridgeID, rec.SourceTxHash, rec.Status,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return CrosschainSwapRecord{}, swaperr.Wrap(swaperr.CodeUnavailable, "record bridge swap", err)
	}
	return rec, nil
}

// Settle moves a pending record to a terminal state. Records already settled
// are left untouched and reported as not updated.
func (r *CrosschainSwaps) Settle(ctx context.Context, sourceTxHash string, status BridgeState, destTxHash *string) (bool, error) {
	if !CanTransition(BridgePending, status) {
		return false, swaperr.New(swaperr.CodeUsage, "invalid bridge status transition")
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE crosschain_swaps
		SET status = $2, dest_tx_hash = COALESCE($3, dest_tx_hash), updated_at = now()
		WHERE source_tx_hash = $1 AND status = 'pending'`,
		sourceTxHash, status, destTxHash,
	)
	if err != nil {
		return false, swaperr.Wrap(swaperr.CodeUnavailable, "settle bridge swap", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CrosschainSwaps) BySourceTx(ctx context.Context, sourceTxHash string) (CrosschainSwapRecord, bool, error) {
	var rec CrosschainSwapRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, from_chain_id, to_chain_id, wallet, from_token, to_token,
		       amount, slippage, price_impact, bridge_id,
		       source_tx_hash, dest_tx_hash, status, created_at, updated_at
		FROM crosschain_swaps WHERE source_tx_hash = $1`,
		sourceTxHash,
	).Scan(&rec.ID, &rec.UserID, &rec.FromChainID, &rec.ToChainID, &rec.Wallet,
		&rec.FromToken, &rec.ToToken, &rec.Amount, &rec.Slippage, &rec.PriceImpact,
		&rec.BridgeID, &rec.SourceTxHash, &rec.DestTxHash,
		&rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return CrosschainSwapRecord{}, false, nil
	}
	if err != nil {
		return CrosschainSwapRecord{}, false, swaperr.Wrap(swaperr.CodeUnavailable, "load bridge swap", err)
	}
	return rec, true, nil
}

// Pending returns records still waiting on the bridge, oldest first.
func (r *CrosschainSwaps) Pending(ctx context.Context, limit int) ([]CrosschainSwapRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, from_chain_id, to_chain_id, wallet, from_token, to_token,
		       amount, slippage, price_impact, bridge_id,
		       source_tx_hash, dest_tx_hash, status, created_at, updated_at
		FROM crosschain_swaps WHERE status = 'pending'
		ORDER BY created_at ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, swaperr.Wrap(swaperr.CodeUnavailable, "list pending bridge swaps", err)
	}
	defer rows.Close()

	var out []CrosschainSwapRecord
	for rows.Next() {
		var rec CrosschainSwapRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.FromChainID, &rec.ToChainID, &rec.Wallet,
			&rec.FromToken, &rec.ToToken, &rec.Amount, &rec.Slippage, &rec.PriceImpact,
			&rec.BridgeID, &rec.SourceTxHash,
			&rec.DestTxHash, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, swaperr.Wrap(swaperr.CodeUnavailable, "scan bridge swap", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
