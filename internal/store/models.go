package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletKind distinguishes the two custody flavors a user holds.
type WalletKind string

const (
	WalletEVM WalletKind = "evm"
	WalletTON WalletKind = "ton"
)

// BridgeState is the settlement status of a cross-chain swap. Pending is the
// only non-terminal state.
type BridgeState string

const (
	BridgePending   BridgeState = "pending"
	BridgeCompleted BridgeState = "completed"
	BridgeFailed    BridgeState = "failed"
)

// CanTransition reports whether a bridge record may move from one state to
// another. Terminal states never change again.
func CanTransition(from, to BridgeState) bool {
	if from != BridgePending {
		return false
	}
	return to == BridgeCompleted || to == BridgeFailed
}

type User struct {
	ID         uuid.UUID
	ExternalID string
	CreatedAt  time.Time
}

type Wallet struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Kind            WalletKind
	Address         string
	EncryptedSecret string
	CreatedAt       time.Time
}

type SwapRecord struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ChainID   int64
	FromToken string
	ToToken   string
	Amount    decimal.Decimal
	TxHash    string
	CreatedAt time.Time
}

// LimitOrderRecord mirrors the signed order: amounts are integer minor units,
// never the human-entered decimals.
type LimitOrderRecord struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	ChainID       int64
	OrderHash     string
	Salt          string
	Maker         string
	MakerToken    string
	TakerToken    string
	MakingAmount  decimal.Decimal
	TakingAmount  decimal.Decimal
	MinReturn     decimal.Decimal
	PartiallyAble bool
	Deadline      time.Time
	Canceled      bool
	CancelTxHash  *string
	CreatedAt     time.Time
}

// CrosschainSwapRecord captures the full bridge request: the amount in minor
// units, the wallet that signed, the tolerances the quote was taken with and
// the bridge the aggregator chose.
type CrosschainSwapRecord struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	FromChainID  int64
	ToChainID    int64
	Wallet       string
	FromToken    string
	ToToken      string
	Amount       decimal.Decimal
	Slippage     decimal.Decimal
	PriceImpact  int
	BridgeID     int64
	SourceTxHash string
	DestTxHash   *string
	Status       BridgeState
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
