package orchestrate

import (
	"context"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gustavo/swapdesk/internal/aggregator"
	"github.com/gustavo/swapdesk/internal/amounts"
	swaperr "github.com/gustavo/swapdesk/internal/errors"
	"github.com/gustavo/swapdesk/internal/registry"
	"github.com/gustavo/swapdesk/internal/store"
	"github.com/gustavo/swapdesk/internal/txbuilder"
)

// SwapParams describes one same-chain swap.
type SwapParams struct {
	UserID          uuid.UUID
	ChainID         int64
	Wallet          string
	EncryptedKey    string
	FromToken       string
	ToToken         string
	Amount          string
	SlippagePercent float64
	PriceImpactPct  float64
}

// Swap executes the full pipeline: fresh balance check, approval if needed,
// nonce, route quote, broadcast, persist. The wallet lock is held from the
// approval through the broadcast so no concurrent flow can steal the nonce.
func (o *Orchestrator) Swap(ctx context.Context, p SwapParams) Result {
	profile, err := registry.Chain(p.ChainID)
	if err != nil {
		return fail(err)
	}

	decimals, err := o.deps.Pool.TokenDecimals(ctx, p.ChainID, p.FromToken)
	if err != nil {
		return fail(err)
	}
	amount, err := amounts.Scale(p.Amount, decimals)
	if err != nil {
		return fail(err)
	}

	balance, err := o.deps.Pool.TokenBalance(ctx, p.ChainID, p.Wallet, p.FromToken)
	if err != nil {
		return fail(err)
	}
	if balance.Cmp(amount) < 0 {
		return fail(swaperr.New(swaperr.CodeInsufficientBalance, "balance does not cover the swap amount"))
	}

	keyHex, err := o.deps.Vault.DecryptKeyHex(p.EncryptedKey)
	if err != nil {
		return fail(err)
	}
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return fail(swaperr.Wrap(swaperr.CodeSecretIntegrity, "restore signing key", err))
	}

	unlock := o.deps.Locker.Lock(p.Wallet)
	defer unlock()

	consumed, err := o.deps.Approver.EnsureApproved(ctx, p.ChainID, p.FromToken, p.Wallet, profile.SwapApprovalTarget, amount, key)
	if err != nil {
		return fail(err)
	}
	var n uint64
	if consumed != nil {
		n, err = o.deps.Nonces.After(ctx, p.ChainID, p.Wallet, *consumed)
	} else {
		n, err = o.deps.Nonces.Pending(ctx, p.ChainID, p.Wallet)
	}
	if err != nil {
		return fail(err)
	}

	payload, err := o.deps.Quotes.SwapTransaction(ctx, aggregator.SwapRequest{
		ChainID:     p.ChainID,
		Amount:      amount.String(),
		FromToken:   p.FromToken,
		ToToken:     p.ToToken,
		Slippage:    amounts.PercentToFraction(p.SlippagePercent),
		Wallet:      p.Wallet,
		PriceImpact: amounts.PercentToFraction(p.PriceImpactPct),
	})
	if err != nil {
		return fail(err)
	}

	tx, err := txbuilder.FromPayload(n, payload)
	if err != nil {
		return fail(err)
	}
	signed, err := txbuilder.Sign(tx, p.ChainID, key)
	if err != nil {
		return fail(err)
	}
	backend, err := o.deps.Pool.Backend(ctx, p.ChainID)
	if err != nil {
		return fail(err)
	}
	hash, err := txbuilder.Send(ctx, backend, signed)
	if err != nil {
		return fail(err)
	}

	o.deps.Log.WithFields(map[string]interface{}{
		"chain_id": p.ChainID,
		"wallet":   p.Wallet,
		"tx_hash":  hash,
	}).Infof("swap broadcast")

	if _, err := o.deps.Swaps.Insert(ctx, store.SwapRecord{
		UserID:    p.UserID,
		ChainID:   p.ChainID,
		FromToken: p.FromToken,
		ToToken:   p.ToToken,
		Amount:    decimal.NewFromBigInt(amount, 0),
		TxHash:    hash,
	}); err != nil {
		o.deps.Log.WithField("tx_hash", hash).Errorf("swap broadcast but not recorded: %v", err)
	}

	return success(hash, profile.ExplorerTx(hash))
}
