package txbuilder

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/gustavo/swapdesk/internal/aggregator"
	"github.com/gustavo/swapdesk/internal/chains"
	swaperr "github.com/gustavo/swapdesk/internal/errors"
)

// ScaleGas multiplies a provider-suggested gas value by the 2.5 safety ratio.
// Aggregator estimates run tight and underpriced transactions strand the
// wallet's nonce, so every broadcast pays the padded value.
func ScaleGas(v *big.Int) *big.Int {
	scaled := new(big.Int).Mul(v, big.NewInt(5))
	return scaled.Div(scaled, big.NewInt(2))
}

// DoubleGas doubles a suggested gas limit. Used for approvals, whose
// calldata-derived estimates are the least reliable.
func DoubleGas(v *big.Int) *big.Int {
	return new(big.Int).Mul(v, big.NewInt(2))
}

// FromPayload builds an unsigned legacy transaction from an aggregator route
// payload. The payload value passes through untouched; both gas fields carry
// the safety ratio.
func FromPayload(nonce uint64, p aggregator.TxPayload) (*types.Transaction, error) {
	if !common.IsHexAddress(p.To) {
		return nil, swaperr.New(swaperr.CodeMalformedResponse, "route target is not a valid address")
	}
	gasLimit := ScaleGas(p.GasLimit)
	if !gasLimit.IsUint64() {
		return nil, swaperr.New(swaperr.CodeMalformedResponse, "route gas limit out of range")
	}
	to := common.HexToAddress(p.To)
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    new(big.Int).Set(p.Value),
		Gas:      gasLimit.Uint64(),
		GasPrice: ScaleGas(p.GasPrice),
		Data:     common.FromHex(p.Data),
	}), nil
}

// FromApproval builds an unsigned ERC-20 approval transaction targeting the
// token contract, with the gas limit doubled and the gas price padded.
func FromApproval(nonce uint64, token string, p aggregator.ApprovePayload) (*types.Transaction, error) {
	if !common.IsHexAddress(token) {
		return nil, swaperr.New(swaperr.CodeUsage, "token is not a valid address")
	}
	gasLimit := DoubleGas(p.GasLimit)
	if !gasLimit.IsUint64() {
		return nil, swaperr.New(swaperr.CodeMalformedResponse, "approval gas limit out of range")
	}
	to := common.HexToAddress(token)
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      gasLimit.Uint64(),
		GasPrice: ScaleGas(p.GasPrice),
		Data:     common.FromHex(p.Data),
	}), nil
}

// NativeTransfer builds an unsigned plain value transfer.
func NativeTransfer(nonce uint64, to string, amount, gasPrice *big.Int) (*types.Transaction, error) {
	if !common.IsHexAddress(to) {
		return nil, swaperr.New(swaperr.CodeUsage, "recipient is not a valid address")
	}
	dest := common.HexToAddress(to)
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &dest,
		Value:    new(big.Int).Set(amount),
		Gas:      21000,
		GasPrice: new(big.Int).Set(gasPrice),
	}), nil
}

// Sign signs with the chain's replay-protected signer.
func Sign(tx *types.Transaction, chainID int64, key *ecdsa.PrivateKey) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(chainID)), key)
	if err != nil {
		return nil, swaperr.Wrap(swaperr.CodeInternal, "sign transaction", err)
	}
	return signed, nil
}

// Send broadcasts a signed transaction exactly once and returns its hash.
// Broadcast is never retried; the node's rejection message is preserved so
// the caller can surface it.
func Send(ctx context.Context, b chains.Backend, signed *types.Transaction) (string, error) {
	if err := b.SendTransaction(ctx, signed); err != nil {
		return "", swaperr.Wrap(swaperr.CodeBroadcast, "broadcast transaction", err)
	}
	return signed.Hash().Hex(), nil
}
