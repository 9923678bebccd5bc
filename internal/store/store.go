package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	swaperr "github.com/gustavo/swapdesk/internal/errors"
)

// Store owns the Postgres pool and hands out repositories. Every write that
// records money movement happens after the corresponding broadcast or
// submission succeeded; failure paths write nothing.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, swaperr.Wrap(swaperr.CodeUsage, "parse database url", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, swaperr.Wrap(swaperr.CodeUnavailable, "connect database", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, swaperr.Wrap(swaperr.CodeUnavailable, "ping database", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Users() *Users                     { return &Users{pool: s.pool} }
func (s *Store) Wallets() *Wallets                 { return &Wallets{pool: s.pool} }
func (s *Store) Swaps() *Swaps                     { return &Swaps{pool: s.pool} }
func (s *Store) LimitOrders() *LimitOrders         { return &LimitOrders{pool: s.pool} }
func (s *Store) CrosschainSwaps() *CrosschainSwaps { return &CrosschainSwaps{pool: s.pool} }

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id          UUID PRIMARY KEY,
	external_id TEXT NOT NULL UNIQUE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS wallets (
	id               UUID PRIMARY KEY,
	user_id          UUID NOT NULL REFERENCES users(id),
	kind             TEXT NOT NULL CHECK (kind IN ('evm', 'ton')),
	address          TEXT NOT NULL,
	encrypted_secret TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, kind)
);

CREATE TABLE IF NOT EXISTS swaps (
	id          UUID PRIMARY KEY,
	user_id     UUID NOT NULL REFERENCES users(id),
	chain_id    BIGINT NOT NULL,
	from_token  TEXT NOT NULL,
	to_token    TEXT NOT NULL,
	amount      NUMERIC(100, 0) NOT NULL,
	tx_hash     TEXT NOT NULL UNIQUE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS limit_orders (
	id             UUID PRIMARY KEY,
	user_id        UUID NOT NULL REFERENCES users(id),
	chain_id       BIGINT NOT NULL,
	order_hash     TEXT NOT NULL UNIQUE,
	salt           TEXT NOT NULL UNIQUE,
	maker          TEXT NOT NULL,
	maker_token    TEXT NOT NULL,
	taker_token    TEXT NOT NULL,
	making_amount  NUMERIC(100, 0) NOT NULL,
	taking_amount  NUMERIC(100, 0) NOT NULL,
	min_return     NUMERIC(100, 0) NOT NULL,
	partially_able BOOLEAN NOT NULL DEFAULT FALSE,
	deadline       TIMESTAMPTZ NOT NULL,
	canceled       BOOLEAN NOT NULL DEFAULT FALSE,
	cancel_tx_hash TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS crosschain_swaps (
	id             UUID PRIMARY KEY,
	user_id        UUID NOT NULL REFERENCES users(id),
	from_chain_id  BIGINT NOT NULL,
	to_chain_id    BIGINT NOT NULL,
	wallet         TEXT NOT NULL,
	from_token     TEXT NOT NULL,
	to_token       TEXT NOT NULL,
	amount         NUMERIC(100, 0) NOT NULL,
	slippage       NUMERIC(8, 3) NOT NULL,
	price_impact   INTEGER NOT NULL,
	bridge_id      BIGINT NOT NULL,
	source_tx_hash TEXT NOT NULL UNIQUE,
	dest_tx_hash   TEXT,
	status         TEXT NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending', 'completed', 'failed')),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Bootstrap creates the schema when missing. Safe to run on every start.
func (s *Store) Bootstrap(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return swaperr.Wrap(swaperr.CodeUnavailable, "bootstrap schema", err)
	}
	return nil
}
