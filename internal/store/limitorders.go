package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	swaperr "github.com/gustavo/swapdesk/internal/errors"
)

// LimitOrders stores submitted orders. Rows are written only after the order
// book accepted the submission; cancellation mutates the row instead of
// deleting it.
type LimitOrders struct {
	pool *pgxpool.Pool
}

func (r *LimitOrders) Insert(ctx context.Context, rec LimitOrderRecord) (LimitOrderRecord, error) {
	rec.ID = uuid.New()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO limit_orders
			(id, user_id, chain_id, order_hash, salt, maker, maker_token, taker_token,
			 making_amount, taking_amount, min_return, partially_able, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at`,
		rec.ID, rec.UserID, rec.ChainID, rec.OrderHash, rec.Salt, rec.Maker,
		rec.MakerToken, rec.TakerToken, rec.MakingAmount, rec.TakingAmount,
		rec.MinReturn, rec.PartiallyAble, rec.Deadline,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return LimitOrderRecord{}, swaperr.Wrap(swaperr.CodeUnavailable, "record limit order", err)
	}
	return rec, nil
}

// Cancel marks an order canceled and stores the cancellation transaction.
func (r *LimitOrders) Cancel(ctx context.Context, orderHash, cancelTxHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE limit_orders SET canceled = TRUE, cancel_tx_hash = $2
		WHERE order_hash = $1 AND NOT canceled`,
		orderHash, cancelTxHash,
	)
	if err != nil {
		return swaperr.Wrap(swaperr.CodeUnavailable, "cancel limit order", err)
	}
	if tag.RowsAffected() == 0 {
		return swaperr.New(swaperr.CodeUsage, "order not found or already canceled")
	}
	return nil
}

func (r *LimitOrders) ByHash(ctx context.Context, orderHash string) (LimitOrderRecord, bool, error) {
	var rec LimitOrderRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, chain_id, order_hash, salt, maker, maker_token, taker_token,
		       making_amount, taking_amount, min_return, partially_able,
		       deadline, canceled, cancel_tx_hash, created_at
		FROM limit_orders WHERE order_hash = $1`,
		orderHash,
	).Scan(&rec.ID, &rec.UserID, &rec.ChainID, &rec.OrderHash, &rec.Salt, &rec.Maker,
		&rec.MakerToken, &rec.TakerToken, &rec.MakingAmount, &rec.TakingAmount,
		&rec.MinReturn, &rec.PartiallyAble,
		&rec.Deadline, &rec.Canceled, &rec.CancelTxHash, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return LimitOrderRecord{}, false, nil
	}
	if err != nil {
		return LimitOrderRecord{}, false, swaperr.Wrap(swaperr.CodeUnavailable, "load limit order", err)
	}
	return rec, true, nil
}

func (r *LimitOrders) OpenByUser(ctx context.Context, userID uuid.UUID) ([]LimitOrderRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, chain_id, order_hash, salt, maker, maker_token, taker_token,
		       making_amount, taking_amount, min_return, partially_able,
		       deadline, canceled, cancel_tx_hash, created_at
		FROM limit_orders
		WHERE user_id = $1 AND NOT canceled AND deadline > now()
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, swaperr.Wrap(swaperr.CodeUnavailable, "list limit orders", err)
	}
	defer rows.Close()

	var out []LimitOrderRecord
	for rows.Next() {
		var rec LimitOrderRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ChainID, &rec.OrderHash, &rec.Salt, &rec.Maker,
			&rec.MakerToken, &rec.TakerToken, &rec.MakingAmount, &rec.TakingAmount,
			&rec.MinReturn, &rec.PartiallyAble,
			&rec.Deadline, &rec.Canceled, &rec.CancelTxHash, &rec.CreatedAt); err != nil {
			return nil, swaperr.Wrap(swaperr.CodeUnavailable, "scan limit order", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
