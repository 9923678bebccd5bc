package metadata

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/url"

	swaperr "github.com/gustavo/swapdesk/internal/errors"
	"github.com/gustavo/swapdesk/internal/httpx"
)

// TonAccount is the on-chain state of a TON wallet.
type TonAccount struct {
	Balance *big.Int
	Status  string
}

// Jetton is one jetton position held by a TON wallet.
type Jetton struct {
	MasterAddress string
	WalletAddress string
	Symbol        string
	Decimals      int
	Balance       *big.Int
}

// TonAPIClient reads account state, jetton holdings and NFT sale contracts
// through the tonapi REST surface.
type TonAPIClient struct {
	http    *httpx.Client
	baseURL string
	apiKey  string
}

func NewTonAPIClient(httpClient *httpx.Client, apiKey string) *TonAPIClient {
	return &TonAPIClient{
		http:    httpClient,
		baseURL: "https://tonapi.io/v2",
		apiKey:  apiKey,
	}
}

func (t *TonAPIClient) headers() map[string]string {
	if t.apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + t.apiKey}
}

// Account returns the wallet's native balance and activation status.
func (t *TonAPIClient) Account(ctx context.Context, address string) (TonAccount, error) {
	var raw struct {
		Balance int64  `json:"balance"`
		Status  string `json:"status"`
	}
	endpoint := fmt.Sprintf("%s/accounts/%s", t.baseURL, url.PathEscape(address))
	if _, err := httpx.DoBodyJSON(ctx, t.http, http.MethodGet, endpoint, nil, t.headers(), &raw); err != nil {
		return TonAccount{}, err
	}
	return TonAccount{Balance: big.NewInt(raw.Balance), Status: raw.Status}, nil
}

// Jettons enumerates the wallet's jetton positions. Entries whose balance
// does not parse are skipped.
func (t *TonAPIClient) Jettons(ctx context.Context, address string) ([]Jetton, error) {
	var raw struct {
		Balances []struct {
			Balance       string `json:"balance"`
			WalletAddress struct {
				Address string `json:"address"`
			} `json:"wallet_address"`
			Jetton struct {
				Address  string `json:"address"`
				Symbol   string `json:"symbol"`
				Decimals int    `json:"decimals"`
			} `json:"jetton"`
		} `json:"balances"`
	}
	endpoint := fmt.Sprintf("%s/accounts/%s/jettons", t.baseURL, url.PathEscape(address))
	if _, err := httpx.DoBodyJSON(ctx, t.http, http.MethodGet, endpoint, nil, t.headers(), &raw); err != nil {
		return nil, err
	}

	jettons := make([]Jetton, 0, len(raw.Balances))
	for _, entry := range raw.Balances {
		balance, ok := new(big.Int).SetString(entry.Balance, 10)
		if !ok {
			continue
		}
		jettons = append(jettons, Jetton{
			MasterAddress: entry.Jetton.Address,
			WalletAddress: entry.WalletAddress.Address,
			Symbol:        entry.Jetton.Symbol,
			Decimals:      entry.Jetton.Decimals,
			Balance:       balance,
		})
	}
	return jettons, nil
}

// SaleData describes an NFT sale contract. Complete means the sale already
// closed; money sent to it is lost.
type SaleData struct {
	FullPrice *big.Int
	Complete  bool
}

// SaleData inspects a sale contract via the get_sale_data getter. The sale is
// usable only when the getter executes successfully and the contract is not
// yet complete; the caller must check both before paying.
func (t *TonAPIClient) SaleData(ctx context.Context, saleAddress string) (SaleData, error) {
	var raw struct {
		Success bool `json:"success"`
		Decoded struct {
			FullPrice  string `json:"full_price"`
			IsComplete bool   `json:"is_complete"`
		} `json:"decoded"`
	}
	endpoint := fmt.Sprintf("%s/blockchain/accounts/%s/methods/get_sale_data", t.baseURL, url.PathEscape(saleAddress))
	if _, err := httpx.DoBodyJSON(ctx, t.http, http.MethodGet, endpoint, nil, t.headers(), &raw); err != nil {
		return SaleData{}, err
	}
	if !raw.Success {
		return SaleData{}, swaperr.New(swaperr.CodeQuoteUnavailable, "sale contract getter failed")
	}
	price, ok := new(big.Int).SetString(raw.Decoded.FullPrice, 10)
	if !ok {
		return SaleData{}, swaperr.New(swaperr.CodeMalformedResponse, "sale price is not an integer")
	}
	return SaleData{FullPrice: price, Complete: raw.Decoded.IsComplete}, nil
}
