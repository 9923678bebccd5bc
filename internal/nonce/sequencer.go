package nonce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gustavo/swapdesk/internal/chains"
	swaperr "github.com/gustavo/swapdesk/internal/errors"
	"github.com/gustavo/swapdesk/internal/httpx"
	"github.com/gustavo/swapdesk/internal/registry"
)

// backendSource hands out a pooled chain client for the fallback path.
type backendSource interface {
	Backend(ctx context.Context, chainID int64) (chains.Backend, error)
}

// Sequencer resolves the next usable nonce for a wallet. It asks the node for
// the pending transaction count over raw JSON-RPC first and falls back to the
// pooled client when the raw call fails. Callers hold the wallet lock across
// the whole fetch-sign-send window; the sequencer itself does no locking.
type Sequencer struct {
	http   *httpx.Client
	pool   backendSource
	rpcURL func(chainID int64) (string, error)
	reqID  atomic.Int64
}

func NewSequencer(httpClient *httpx.Client, pool backendSource) *Sequencer {
	return &Sequencer{
		http: httpClient,
		pool: pool,
		rpcURL: func(chainID int64) (string, error) {
			profile, err := registry.Chain(chainID)
			if err != nil {
				return "", err
			}
			return profile.RPCURL, nil
		},
	}
}

// Pending returns the wallet's pending transaction count.
func (s *Sequencer) Pending(ctx context.Context, chainID int64, wallet string) (uint64, error) {
	n, err := s.pendingRaw(ctx, chainID, wallet)
	if err == nil {
		return n, nil
	}

	b, berr := s.pool.Backend(ctx, chainID)
	if berr != nil {
		return 0, swaperr.Wrap(swaperr.CodeChainUnavailable, fmt.Sprintf("read pending nonce on chain %d", chainID), err)
	}
	n, berr = b.PendingNonceAt(ctx, common.HexToAddress(wallet))
	if berr != nil {
		return 0, swaperr.Wrap(swaperr.CodeChainUnavailable, fmt.Sprintf("read pending nonce on chain %d", chainID), berr)
	}
	return n, nil
}

// After returns the nonce to use for a transaction that must land after a
// just-broadcast one. Nodes can lag behind their own mempool right after a
// send, so a pending count at or below the consumed nonce bumps to the next
// slot instead of reusing it.
func (s *Sequencer) After(ctx context.Context, chainID int64, wallet string, consumed uint64) (uint64, error) {
	pending, err := s.Pending(ctx, chainID, wallet)
	if err != nil {
		return 0, err
	}
	if pending <= consumed {
		return consumed + 1, nil
	}
	return pending, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Sequencer) pendingRaw(ctx context.Context, chainID int64, wallet string) (uint64, error) {
	rpcURL, err := s.rpcURL(chainID)
	if err != nil {
		return 0, err
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      s.reqID.Add(1),
		Method:  "eth_getTransactionCount",
		Params:  []any{wallet, "pending"},
	})
	if err != nil {
		return 0, swaperr.Wrap(swaperr.CodeInternal, "encode nonce request", err)
	}

	var resp rpcResponse
	if _, err := httpx.DoBodyJSON(ctx, s.http, http.MethodPost, rpcURL, body, nil, &resp); err != nil {
		return 0, err
	}
	if resp.Error != nil {
		return 0, swaperr.New(swaperr.CodeChainUnavailable, fmt.Sprintf("nonce query rejected: %s", resp.Error.Message))
	}
	return parseHexUint(resp.Result)
}

func parseHexUint(raw string) (uint64, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if trimmed == "" {
		return 0, swaperr.New(swaperr.CodeMalformedResponse, "nonce response is not a hex quantity")
	}
	n, err := strconv.ParseUint(trimmed, 16, 64)
	if err != nil {
		return 0, swaperr.Wrap(swaperr.CodeMalformedResponse, "parse nonce response", err)
	}
	return n, nil
}
