package approvals

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/gustavo/swapdesk/internal/aggregator"
	"github.com/gustavo/swapdesk/internal/chains"
	swaperr "github.com/gustavo/swapdesk/internal/errors"
	"github.com/gustavo/swapdesk/internal/logger"
	"github.com/gustavo/swapdesk/internal/registry"
	"github.com/gustavo/swapdesk/internal/txbuilder"
)

type quoteClient interface {
	ApproveTransaction(ctx context.Context, chainID int64, token, amount string) (aggregator.ApprovePayload, error)
}

type backendSource interface {
	Backend(ctx context.Context, chainID int64) (chains.Backend, error)
}

type pendingReader interface {
	Pending(ctx context.Context, chainID int64, wallet string) (uint64, error)
}

// Manager grants ERC-20 allowances before swaps and limit orders. When the
// existing allowance already covers the amount it does nothing; otherwise it
// broadcasts an approval and waits for its receipt on a best-effort basis so
// the follow-up transaction does not race the approval into the same block.
type Manager struct {
	quotes quoteClient
	pool   backendSource
	seq    pendingReader
	log    *logger.Logger

	receiptWait time.Duration
	receiptPoll time.Duration
}

func NewManager(quotes quoteClient, pool backendSource, seq pendingReader, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		quotes:      quotes,
		pool:        pool,
		seq:         seq,
		log:         log,
		receiptWait: 60 * time.Second,
		receiptPoll: 2 * time.Second,
	}
}

// Allowance reads the owner's current allowance for a spender.
func (m *Manager) Allowance(ctx context.Context, chainID int64, token, owner, spender string) (*big.Int, error) {
	b, err := m.pool.Backend(ctx, chainID)
	if err != nil {
		return nil, err
	}
	data, err := registry.ERC20.Pack("allowance", common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return nil, swaperr.Wrap(swaperr.CodeInternal, "pack allowance call", err)
	}
	to := common.HexToAddress(token)
	raw, err := b.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, swaperr.Wrap(swaperr.CodeChainUnavailable, fmt.Sprintf("read allowance on chain %d", chainID), err)
	}
	out, err := registry.ERC20.Unpack("allowance", raw)
	if err != nil || len(out) == 0 {
		return nil, swaperr.Wrap(swaperr.CodeChainUnavailable, "decode allowance", err)
	}
	allowance, ok := out[0].(*big.Int)
	if !ok {
		return nil, swaperr.New(swaperr.CodeChainUnavailable, "allowance is not an integer")
	}
	return allowance, nil
}

// EnsureApproved makes sure spender may move amount of token from the owner.
// It returns the nonce consumed by the approval transaction, or nil when no
// transaction was needed. Native coins never need approval.
func (m *Manager) EnsureApproved(ctx context.Context, chainID int64, token, owner, spender string, amount *big.Int, key *ecdsa.PrivateKey) (*uint64, error) {
	if registry.IsNativeCoin(token) {
		return nil, nil
	}

	allowance, err := m.Allowance(ctx, chainID, token, owner, spender)
	if err != nil {
		return nil, err
	}
	if allowance.Cmp(amount) >= 0 {
		return nil, nil
	}

	payload, err := m.quotes.ApproveTransaction(ctx, chainID, token, amount.String())
	if err != nil {
		return nil, err
	}

	n, err := m.seq.Pending(ctx, chainID, owner)
	if err != nil {
		return nil, err
	}

	tx, err := txbuilder.FromApproval(n, token, payload)
	if err != nil {
		return nil, err
	}
	signed, err := txbuilder.Sign(tx, chainID, key)
	if err != nil {
		return nil, err
	}

	b, err := m.pool.Backend(ctx, chainID)
	if err != nil {
		return nil, err
	}
	hash, err := txbuilder.Send(ctx, b, signed)
	if err != nil {
		return nil, err
	}
	m.log.WithFields(map[string]any{"chain_id": chainID, "token": token, "tx_hash": hash}).
		Infof("approval broadcast")

	m.waitReceipt(ctx, b, signed.Hash(), hash)
	return &n, nil
}

// waitReceipt polls for the approval receipt. A timeout is not an error; the
// caller's follow-up transaction sequences after the approval via its nonce
// regardless.
func (m *Manager) waitReceipt(ctx context.Context, b chains.Backend, hash common.Hash, display string) {
	deadline := time.Now().Add(m.receiptWait)
	for {
		receipt, err := b.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				m.log.WithField("tx_hash", display).Warnf("approval reverted on chain")
			}
			return
		}
		if time.Now().After(deadline) {
			m.log.WithField("tx_hash", display).Warnf("approval receipt not seen before timeout")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.receiptPoll):
		}
	}
}
