package orchestrate

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/gustavo/swapdesk/internal/amounts"
	swaperr "github.com/gustavo/swapdesk/internal/errors"
	"github.com/gustavo/swapdesk/internal/registry"
	"github.com/gustavo/swapdesk/internal/txbuilder"
)

// WithdrawParams describes one transfer out of a custodial wallet.
type WithdrawParams struct {
	UserID       uuid.UUID
	ChainID      int64
	Wallet       string
	EncryptedKey string
	Token        string
	To           string
	Amount       string
}

// Withdraw sends native coin or an ERC-20 out of the wallet with the node's
// suggested gas price and an estimated limit.
func (o *Orchestrator) Withdraw(ctx context.Context, p WithdrawParams) Result {
	profile, err := registry.Chain(p.ChainID)
	if err != nil {
		return fail(err)
	}
	if !common.IsHexAddress(p.To) {
		return fail(swaperr.New(swaperr.CodeUsage, "recipient is not a valid address"))
	}

	decimals, err := o.deps.Pool.TokenDecimals(ctx, p.ChainID, p.Token)
	if err != nil {
		return fail(err)
	}
	amount, err := amounts.Scale(p.Amount, decimals)
	if err != nil {
		return fail(err)
	}
	balance, err := o.deps.Pool.TokenBalance(ctx, p.ChainID, p.Wallet, p.Token)
	if err != nil {
		return fail(err)
	}
	if balance.Cmp(amount) < 0 {
		return fail(swaperr.New(swaperr.CodeInsufficientBalance, "balance does not cover the withdrawal"))
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

	backend, err := o.deps.Pool.Backend(ctx, p.ChainID)
	if err != nil {
		return fail(err)
	}
	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return fail(swaperr.Wrap(swaperr.CodeChainUnavailable, "suggest gas price", err))
	}
	n, err := o.deps.Nonces.Pending(ctx, p.ChainID, p.Wallet)
	if err != nil {
		return fail(err)
	}

	var tx *types.Transaction
	if registry.IsNativeCoin(p.Token) {
		tx, err = txbuilder.NativeTransfer(n, p.To, amount, gasPrice)
		if err != nil {
			return fail(err)
		}
	} else {
		data, perr := registry.ERC20.Pack("transfer", common.HexToAddress(p.To), amount)
		if perr != nil {
			return fail(swaperr.Wrap(swaperr.CodeInternal, "pack transfer", perr))
		}
		from := common.HexToAddress(p.Wallet)
		token := common.HexToAddress(p.Token)
		gasLimit, eerr := backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &token, Data: data})
		if eerr != nil {
			return fail(swaperr.Wrap(swaperr.CodeChainUnavailable, "estimate transfer gas", eerr))
		}
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    n,
			To:       &token,
			Value:    big.NewInt(0),
			Gas:      gasLimit * 2,
			GasPrice: gasPrice,
			Data:     data,
		})
	}

	signed, err := txbuilder.Sign(tx, p.ChainID, key)
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
		"to":       p.To,
		"tx_hash":  hash,
	}).Infof("withdrawal broadcast")

	return success(hash, profile.ExplorerTx(hash))
}
