package ton

import (
	"context"
	"math/big"
	"net/http"
	"net/url"

	swaperr "github.com/gustavo/swapdesk/internal/errors"
	"github.com/gustavo/swapdesk/internal/httpx"
)

// TonProxyAddress is the pseudo-token the DEX API uses for native TON on the
// offer or ask side of a simulation.
const TonProxyAddress = "EQCM3B12QK1e4yZSf8GtBRT0aLMNyEsBc_DhVfRRtOEffLez"

// SimulateResult is the routing decision for one swap: which router contract
// to send through and how much the pool quotes for the offered units.
type SimulateResult struct {
	RouterAddress string
	PoolAddress   string
	AskUnits      *big.Int
	OfferUnits    *big.Int
}

// StonfiClient asks the ston.fi simulation API for swap routes. The simulate
// call is read-only and safe to retry.
type StonfiClient struct {
	http    *httpx.Client
	baseURL string
}

func NewStonfiClient(httpClient *httpx.Client) *StonfiClient {
	return &StonfiClient{
		http:    httpClient,
		baseURL: "https://api.ston.fi/v1",
	}
}

type simulateResponse struct {
	RouterAddress string `json:"router_address"`
	PoolAddress   string `json:"pool_address"`
	AskUnits      string `json:"ask_units"`
	OfferUnits    string `json:"offer_units"`
}

// Simulate quotes offer→ask for the given units. Native TON is expressed with
// the proxy address on either side.
func (s *StonfiClient) Simulate(ctx context.Context, offer, ask string, units *big.Int) (SimulateResult, error) {
	vals := url.Values{}
	vals.Set("offer_address", offer)
	vals.Set("ask_address", ask)
	vals.Set("units", units.String())
	vals.Set("slippage_tolerance", "0.2")
	vals.Set("dex_v2", "true")

	var resp simulateResponse
	endpoint := s.baseURL + "/swap/simulate?" + vals.Encode()
	if _, err := httpx.DoBodyJSON(ctx, s.http, http.MethodPost, endpoint, nil, nil, &resp); err != nil {
		return SimulateResult{}, err
	}
	if resp.RouterAddress == "" {
		return SimulateResult{}, swaperr.New(swaperr.CodeQuoteUnavailable, "no route for this pair")
	}
	askUnits, ok := new(big.Int).SetString(resp.AskUnits, 10)
	if !ok {
		return SimulateResult{}, swaperr.New(swaperr.CodeMalformedResponse, "ask units are not an integer")
	}
	offerUnits, ok := new(big.Int).SetString(resp.OfferUnits, 10)
	if !ok {
		offerUnits = new(big.Int).Set(units)
	}
	return SimulateResult{
		RouterAddress: resp.RouterAddress,
		PoolAddress:   resp.PoolAddress,
		AskUnits:      askUnits,
		OfferUnits:    offerUnits,
	}, nil
}

// MinAskUnits is the execution floor: 90% of the quoted ask. The simulation's
// own tolerance is advisory; the payload enforces this bound on-chain.
func MinAskUnits(askUnits *big.Int) *big.Int {
	min := new(big.Int).Mul(askUnits, big.NewInt(9))
	return min.Div(min, big.NewInt(10))
}
