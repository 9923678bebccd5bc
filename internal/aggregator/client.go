package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gustavo/swapdesk/internal/config"
	swaperr "github.com/gustavo/swapdesk/internal/errors"
	"github.com/gustavo/swapdesk/internal/httpx"
)

// Client talks to the DEX aggregator/bridge API. Quote and status lookups
// retry; order submission never does.
type Client struct {
	http    *httpx.Client
	baseURL string
	sign    *signer
}

func New(httpClient *httpx.Client, cfg config.AggregatorConfig) *Client {
	return &Client{
		http:    httpClient,
		baseURL: cfg.BaseURL,
		sign:    newSigner(cfg.APIKey, cfg.SecretKey, cfg.Passphrase, cfg.ProjectID),
	}
}

// SwapRequest asks for a ready-to-broadcast swap route.
type SwapRequest struct {
	ChainID     int64
	Amount      string
	FromToken   string
	ToToken     string
	Slippage    string
	Wallet      string
	PriceImpact string
}

func (r SwapRequest) values() url.Values {
	vals := url.Values{}
	vals.Set("chainId", strconv.FormatInt(r.ChainID, 10))
	vals.Set("amount", r.Amount)
	vals.Set("fromTokenAddress", r.FromToken)
	vals.Set("toTokenAddress", r.ToToken)
	vals.Set("slippage", r.Slippage)
	vals.Set("userWalletAddress", r.Wallet)
	vals.Set("priceImpactProtectionPercentage", r.PriceImpact)
	return vals
}

// SwapTransaction fetches the swap route and its transaction payload.
func (c *Client) SwapTransaction(ctx context.Context, req SwapRequest) (TxPayload, error) {
	var resp swapResponse
	if err := c.get(ctx, "aggregator", "/swap", req.values(), &resp); err != nil {
		return TxPayload{}, err
	}
	if !resp.ok() {
		return TxPayload{}, swaperr.New(swaperr.CodeQuoteUnavailable, providerMsg(resp.envelope))
	}
	if len(resp.Data) == 0 {
		return TxPayload{}, swaperr.New(swaperr.CodeMalformedResponse, "swap response has no route data")
	}
	return resp.Data[0].Tx.toPayload()
}

// ApproveTransaction fetches approval calldata and suggested gas for a token.
func (c *Client) ApproveTransaction(ctx context.Context, chainID int64, token, amount string) (ApprovePayload, error) {
	vals := url.Values{}
	vals.Set("chainId", strconv.FormatInt(chainID, 10))
	vals.Set("tokenContractAddress", token)
	vals.Set("approveAmount", amount)

	var resp approveResponse
	if err := c.get(ctx, "aggregator", "/approve-transaction", vals, &resp); err != nil {
		return ApprovePayload{}, err
	}
	if !resp.ok() {
		return ApprovePayload{}, swaperr.New(swaperr.CodeQuoteUnavailable, providerMsg(resp.envelope))
	}
	if len(resp.Data) == 0 {
		return ApprovePayload{}, swaperr.New(swaperr.CodeMalformedResponse, "approve response has no data")
	}
	entry := resp.Data[0]
	gasLimit, err := parseBig("gas limit", entry.GasLimit)
	if err != nil {
		return ApprovePayload{}, err
	}
	gasPrice, err := parseBig("gas price", entry.GasPrice)
	if err != nil {
		return ApprovePayload{}, err
	}
	if entry.Data == "" {
		return ApprovePayload{}, swaperr.New(swaperr.CodeMalformedResponse, "approve response missing calldata")
	}
	return ApprovePayload{
		Data:     entry.Data,
		Spender:  entry.DexContractAddress,
		GasLimit: gasLimit,
		GasPrice: gasPrice,
	}, nil
}

// SupportedChain reports whether the bridge can route from fromChain to
// toChain, returning the destination chain entry when it can.
func (c *Client) SupportedChain(ctx context.Context, fromChain, toChain int64) (SupportedChain, bool, error) {
	vals := url.Values{}
	vals.Set("chainId", strconv.FormatInt(fromChain, 10))

	var resp supportedChainResponse
	if err := c.get(ctx, "cross-chain", "/supported/chain", vals, &resp); err != nil {
		return SupportedChain{}, false, err
	}
	if !resp.ok() {
		return SupportedChain{}, false, swaperr.New(swaperr.CodeQuoteUnavailable, providerMsg(resp.envelope))
	}
	for _, chain := range resp.Data {
		if chain.ChainID == toChain {
			return chain, true, nil
		}
	}
	return SupportedChain{}, false, nil
}

// CrosschainQuoteRequest asks for a bridge route between two chains.
type CrosschainQuoteRequest struct {
	FromChainID int64
	ToChainID   int64
	FromToken   string
	ToToken     string
	Amount      string
	Slippage    string
	PriceImpact string
}

func (r CrosschainQuoteRequest) values() url.Values {
	vals := url.Values{}
	vals.Set("fromChainId", strconv.FormatInt(r.FromChainID, 10))
	vals.Set("toChainId", strconv.FormatInt(r.ToChainID, 10))
	vals.Set("fromTokenAddress", r.FromToken)
	vals.Set("toTokenAddress", r.ToToken)
	vals.Set("amount", r.Amount)
	vals.Set("slippage", r.Slippage)
	vals.Set("priceImpactProtectionPercentage", r.PriceImpact)
	return vals
}

// CrosschainQuote resolves the bridge id for the best route. The same id
// must be passed verbatim to BuildCrosschainTx; the two calls are not atomic
// against route changes and a mismatch is a user-visible failure.
func (c *Client) CrosschainQuote(ctx context.Context, req CrosschainQuoteRequest) (int64, error) {
	var resp crosschainQuoteResponse
	if err := c.get(ctx, "cross-chain", "/quote", req.values(), &resp); err != nil {
		return 0, err
	}
	if !resp.ok() {
		return 0, swaperr.New(swaperr.CodeQuoteUnavailable, providerMsg(resp.envelope))
	}
	if len(resp.Data) == 0 || len(resp.Data[0].RouterList) == 0 {
		return 0, swaperr.New(swaperr.CodeQuoteUnavailable, "no bridge route available")
	}
	return resp.Data[0].RouterList[0].Router.BridgeID, nil
}

// BuildCrosschainTx fetches the bridge transaction for a previously quoted
// bridge id.
func (c *Client) BuildCrosschainTx(ctx context.Context, req CrosschainQuoteRequest, wallet string, bridgeID int64) (TxPayload, error) {
	vals := url.Values{}
	vals.Set("fromChainId", strconv.FormatInt(req.FromChainID, 10))
	vals.Set("toChainId", strconv.FormatInt(req.ToChainID, 10))
	vals.Set("fromTokenAddress", req.FromToken)
	vals.Set("toTokenAddress", req.ToToken)
	vals.Set("amount", req.Amount)
	vals.Set("slippage", req.Slippage)
	vals.Set("userWalletAddress", wallet)
	vals.Set("bridgeId", strconv.FormatInt(bridgeID, 10))

	var resp swapResponse
	if err := c.get(ctx, "cross-chain", "/build-tx", vals, &resp); err != nil {
		return TxPayload{}, err
	}
	if !resp.ok() {
		return TxPayload{}, swaperr.New(swaperr.CodeQuoteUnavailable, providerMsg(resp.envelope))
	}
	if len(resp.Data) == 0 {
		return TxPayload{}, swaperr.New(swaperr.CodeMalformedResponse, "build-tx response has no data")
	}
	return resp.Data[0].Tx.toPayload()
}

// Status returns the bridge settlement state for a source transaction hash.
func (c *Client) Status(ctx context.Context, txHash string) (BridgeStatus, error) {
	vals := url.Values{}
	vals.Set("hash", txHash)

	var resp bridgeStatusResponse
	if err := c.get(ctx, "cross-chain", "/status", vals, &resp); err != nil {
		return BridgeStatus{}, err
	}
	if !resp.ok() {
		return BridgeStatus{}, swaperr.New(swaperr.CodeQuoteUnavailable, providerMsg(resp.envelope))
	}
	if len(resp.Data) == 0 {
		return BridgeStatus{}, swaperr.New(swaperr.CodeMalformedResponse, "status response has no data")
	}
	return BridgeStatus{
		Status:       resp.Data[0].Status,
		DetailStatus: resp.Data[0].DetailStatus,
		ToTxHash:     resp.Data[0].ToTxHash,
	}, nil
}

// SaveLimitOrder submits a signed order to the order book. Only an explicit
// success code persists anything upstream; every other outcome is a
// rejection and no retry happens here.
func (c *Client) SaveLimitOrder(ctx context.Context, order LimitOrderSubmission) error {
	body, err := json.Marshal(order)
	if err != nil {
		return swaperr.Wrap(swaperr.CodeInternal, "encode limit order", err)
	}

	endpoint := "/limit-order/save-order"
	headers := c.sign.headers(http.MethodPost, "aggregator", endpoint, "", body)
	fullURL := c.baseURL + "/aggregator" + endpoint

	var resp envelope
	if _, err := httpx.DoBodyJSON(ctx, c.http.NoRetry(), http.MethodPost, fullURL, body, headers, &resp); err != nil {
		return swaperr.Wrap(swaperr.CodeOrderRejected, "submit limit order", err)
	}
	if !resp.ok() {
		return swaperr.New(swaperr.CodeOrderRejected, providerMsg(resp))
	}
	return nil
}

func (c *Client) get(ctx context.Context, basePath, endpoint string, vals url.Values, out any) error {
	query := vals.Encode()
	headers := c.sign.headers(http.MethodGet, basePath, endpoint, query, nil)
	fullURL := fmt.Sprintf("%s/%s%s?%s", c.baseURL, basePath, endpoint, query)
	_, err := httpx.DoBodyJSON(ctx, c.http, http.MethodGet, fullURL, nil, headers, out)
	return err
}

func providerMsg(e envelope) string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("aggregator returned code %s", e.Code)
}
