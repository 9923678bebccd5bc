package orchestrate

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/gustavo/swapdesk/internal/aggregator"
	"github.com/gustavo/swapdesk/internal/chains"
	"github.com/gustavo/swapdesk/internal/logger"
	"github.com/gustavo/swapdesk/internal/store"
	"github.com/gustavo/swapdesk/internal/vault"
	"github.com/gustavo/swapdesk/internal/wallet"
)

// ChainPool is the read and broadcast surface of the chain client pool.
type ChainPool interface {
	Backend(ctx context.Context, chainID int64) (chains.Backend, error)
	TokenBalance(ctx context.Context, chainID int64, wallet, token string) (*big.Int, error)
	TokenDecimals(ctx context.Context, chainID int64, token string) (int, error)
}

// Quotes is the aggregator surface the orchestrators consume.
type Quotes interface {
	SwapTransaction(ctx context.Context, req aggregator.SwapRequest) (aggregator.TxPayload, error)
	SupportedChain(ctx context.Context, fromChain, toChain int64) (aggregator.SupportedChain, bool, error)
	CrosschainQuote(ctx context.Context, req aggregator.CrosschainQuoteRequest) (int64, error)
	BuildCrosschainTx(ctx context.Context, req aggregator.CrosschainQuoteRequest, wallet string, bridgeID int64) (aggregator.TxPayload, error)
	Status(ctx context.Context, txHash string) (aggregator.BridgeStatus, error)
	SaveLimitOrder(ctx context.Context, order aggregator.LimitOrderSubmission) error
}

// Approver grants allowances ahead of token movements.
type Approver interface {
	EnsureApproved(ctx context.Context, chainID int64, token, owner, spender string, amount *big.Int, key *ecdsa.PrivateKey) (*uint64, error)
}

// NonceSource resolves usable nonces.
type NonceSource interface {
	Pending(ctx context.Context, chainID int64, wallet string) (uint64, error)
	After(ctx context.Context, chainID int64, wallet string, consumed uint64) (uint64, error)
}

// SwapStore records broadcast swaps.
type SwapStore interface {
	Insert(ctx context.Context, rec store.SwapRecord) (store.SwapRecord, error)
}

// LimitOrderStore records accepted limit orders.
type LimitOrderStore interface {
	Insert(ctx context.Context, rec store.LimitOrderRecord) (store.LimitOrderRecord, error)
}

// BridgeStore records cross-chain swaps and their settlement.
type BridgeStore interface {
	Insert(ctx context.Context, rec store.CrosschainSwapRecord) (store.CrosschainSwapRecord, error)
	Settle(ctx context.Context, sourceTxHash string, status store.BridgeState, destTxHash *string) (bool, error)
}

// Deps carries every collaborator an orchestrator needs. Construction is
// explicit wiring at startup; nothing here is global.
type Deps struct {
	Vault       *vault.Vault
	Pool        ChainPool
	Quotes      Quotes
	Approver    Approver
	Nonces      NonceSource
	Locker      *wallet.Locker
	Swaps       SwapStore
	LimitOrders LimitOrderStore
	Bridges     BridgeStore
	Log         *logger.Logger
	Now         func() time.Time
}

// Orchestrator runs the trading pipelines against a fixed dependency set.
type Orchestrator struct {
	deps Deps
}

func New(deps Deps) *Orchestrator {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Locker == nil {
		deps.Locker = wallet.NewLocker()
	}
	return &Orchestrator{deps: deps}
}
