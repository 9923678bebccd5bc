package orchestrate

import (
	"context"
	"fmt"
	"math"

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

// CrosschainParams describes one bridge swap.
type CrosschainParams struct {
	UserID          uuid.UUID
	FromChainID     int64
	ToChainID       int64
	Wallet          string
	EncryptedKey    string
	FromToken       string
	ToToken         string
	Amount          string
	SlippagePercent float64
	PriceImpactPct  float64
}

// Crosschain bridges tokens between chains: quote resolves the bridge id,
// build-tx is called with that exact id, the source transaction is broadcast
// and the record lands in the store as pending until the bridge settles.
func (o *Orchestrator) Crosschain(ctx context.Context, p CrosschainParams) Result {
	profile, err := registry.Chain(p.FromChainID)
	if err != nil {
		return fail(err)
	}
	if _, ok, err := o.deps.Quotes.SupportedChain(ctx, p.FromChainID, p.ToChainID); err != nil {
		return fail(err)
	} else if !ok {
		return fail(swaperr.New(swaperr.CodeQuoteUnavailable,
			fmt.Sprintf("no bridge route from chain %d to chain %d", p.FromChainID, p.ToChainID)))
	}

	decimals, err := o.deps.Pool.TokenDecimals(ctx, p.FromChainID, p.FromToken)
	if err != nil {
		return fail(err)
	}
	amount, err := amounts.Scale(p.Amount, decimals)
	if err != nil {
		return fail(err)
	}
	balance, err := o.deps.Pool.TokenBalance(ctx, p.FromChainID, p.Wallet, p.FromToken)
	if err != nil {
		return fail(err)
	}
	if balance.Cmp(amount) < 0 {
		return fail(swaperr.New(swaperr.CodeInsufficientBalance, "balance does not cover the bridge amount"))
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

	consumed, err := o.deps.Approver.EnsureApproved(ctx, p.FromChainID, p.FromToken, p.Wallet, profile.CrosschainApproval, amount, key)
	if err != nil {
		return fail(err)
	}
	var n uint64
	if consumed != nil {
		n, err = o.deps.Nonces.After(ctx, p.FromChainID, p.Wallet, *consumed)
	} else {
		n, err = o.deps.Nonces.Pending(ctx, p.FromChainID, p.Wallet)
	}
	if err != nil {
		return fail(err)
	}

	quoteReq := aggregator.CrosschainQuoteRequest{
		FromChainID: p.FromChainID,
		ToChainID:   p.ToChainID,
		FromToken:   p.FromToken,
		ToToken:     p.ToToken,
		Amount:      amount.String(),
		Slippage:    amounts.PercentToFraction(p.SlippagePercent),
		PriceImpact: amounts.PercentToFraction(p.PriceImpactPct),
	}
	bridgeID, err := o.deps.Quotes.CrosschainQuote(ctx, quoteReq)
	if err != nil {
		return fail(err)
	}
	payload, err := o.deps.Quotes.BuildCrosschainTx(ctx, quoteReq, p.Wallet, bridgeID)
	if err != nil {
		return fail(err)
	}

	tx, err := txbuilder.FromPayload(n, payload)
	if err != nil {
		return fail(err)
	}
	signed, err := txbuilder.Sign(tx, p.FromChainID, key)
	if err != nil {
		return fail(err)
	}
	backend, err := o.deps.Pool.Backend(ctx, p.FromChainID)
	if err != nil {
		return fail(err)
	}
	hash, err := txbuilder.Send(ctx, backend, signed)
	if err != nil {
		return fail(err)
	}

	o.deps.Log.WithFields(map[string]interface{}{
		"from_chain": p.FromChainID,
		"to_chain":   p.ToChainID,
		"bridge_id":  bridgeID,
		"tx_hash":    hash,
	}).Infof("bridge swap broadcast")

	if _, err := o.deps.Bridges.Insert(ctx, store.CrosschainSwapRecord{
		UserID:       p.UserID,
		FromChainID:  p.FromChainID,
		ToChainID:    p.ToChainID,
		Wallet:       p.Wallet,
		FromToken:    p.FromToken,
		ToToken:      p.ToToken,
		Amount:       decimal.NewFromBigInt(amount, 0),
		Slippage:     decimal.NewFromFloat(p.SlippagePercent).Round(3),
		PriceImpact:  int(math.Round(p.PriceImpactPct)),
		BridgeID:     bridgeID,
		SourceTxHash: hash,
	}); err != nil {
		o.deps.Log.WithField("tx_hash", hash).Errorf("bridge swap broadcast but not recorded: %v", err)
	}

	return success(hash, profile.ExplorerTx(hash))
}

// SettleBridge polls the bridge status for a source transaction and moves the
// stored record forward when the bridge reached a terminal state. Pending
// statuses leave the record untouched.
func (o *Orchestrator) SettleBridge(ctx context.Context, sourceTxHash string) (store.BridgeState, error) {
	status, err := o.deps.Quotes.Status(ctx, sourceTxHash)
	if err != nil {
		return store.BridgePending, err
	}

	state := classifyBridgeStatus(status)
	if state == store.BridgePending {
		return store.BridgePending, nil
	}

	var dest *string
	if status.ToTxHash != "" {
		dest = &status.ToTxHash
	}
	updated, err := o.deps.Bridges.Settle(ctx, sourceTxHash, state, dest)
	if err != nil {
		return store.BridgePending, err
	}
	if !updated {
		o.deps.Log.WithField("tx_hash", sourceTxHash).Debugf("bridge record already settled")
	}
	return state, nil
}

func classifyBridgeStatus(status aggregator.BridgeStatus) store.BridgeState {
	switch status.DetailStatus {
	case "SUCCESS":
		return store.BridgeCompleted
	case "FAILURE", "REFUND":
		return store.BridgeFailed
	}
	switch status.Status {
	case "SUCCESS":
		return store.BridgeCompleted
	case "FAILURE", "REFUND":
		return store.BridgeFailed
	}
	return store.BridgePending
}
