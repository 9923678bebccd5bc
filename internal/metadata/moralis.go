package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"

	"github.com/gustavo/swapdesk/internal/cache"
	swaperr "github.com/gustavo/swapdesk/internal/errors"
	"github.com/gustavo/swapdesk/internal/httpx"
	"github.com/gustavo/swapdesk/internal/logger"
)

// Token is one ERC-20 position held by a wallet.
type Token struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	Balance  string `json:"balance"`
}

// chainSlugs maps chain ids to the indexer's chain query parameter.
var chainSlugs = map[int64]string{
	1:     "eth",
	10:    "optimism",
	56:    "bsc",
	137:   "polygon",
	8453:  "base",
	42161: "arbitrum",
	43114: "avalanche",
}

// MoralisClient enumerates a wallet's ERC-20 holdings through the Moralis
// indexer. Spam-flagged and malformed entries are dropped, not surfaced.
type MoralisClient struct {
	http    *httpx.Client
	baseURL string
	apiKey  string
	cache   cache.Cache
	log     *logger.Logger
}

func NewMoralisClient(httpClient *httpx.Client, apiKey string, c cache.Cache, log *logger.Logger) *MoralisClient {
	if c == nil {
		c = cache.NewMemory()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &MoralisClient{
		http:    httpClient,
		baseURL: "https://deep-index.moralis.io/api/v2.2",
		apiKey:  apiKey,
		cache:   c,
		log:     log,
	}
}

type moralisToken struct {
	TokenAddress string `json:"token_address"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Decimals     int    `json:"decimals"`
	Balance      string `json:"balance"`
	PossibleSpam bool   `json:"possible_spam"`
}

// Tokens returns the wallet's token positions on one chain, cached briefly so
// a burst of balance views does not hammer the indexer.
func (m *MoralisClient) Tokens(ctx context.Context, chainID int64, wallet string) ([]Token, error) {
	slug, ok := chainSlugs[chainID]
	if !ok {
		return nil, swaperr.New(swaperr.CodeUsage, fmt.Sprintf("chain %d has no token index", chainID))
	}

	key := fmt.Sprintf("tokens:%d:%s", chainID, strings.ToLower(wallet))
	if cached, ok, _ := m.cache.Get(ctx, key); ok {
		var tokens []Token
		if err := json.Unmarshal([]byte(cached), &tokens); err == nil {
			return tokens, nil
		}
	}

	endpoint := fmt.Sprintf("%s/%s/erc20?%s", m.baseURL, url.PathEscape(wallet), url.Values{"chain": {slug}}.Encode())
	var raw []moralisToken
	headers := map[string]string{"X-API-Key": m.apiKey}
	if _, err := httpx.DoBodyJSON(ctx, m.http, http.MethodGet, endpoint, nil, headers, &raw); err != nil {
		return nil, err
	}

	tokens := make([]Token, 0, len(raw))
	for _, entry := range raw {
		if entry.PossibleSpam {
			continue
		}
		if !validToken(entry) {
			m.log.WithField("token", entry.TokenAddress).Debugf("skipping malformed token entry")
			continue
		}
		tokens = append(tokens, Token{
			Address:  entry.TokenAddress,
			Name:     entry.Name,
			Symbol:   entry.Symbol,
			Decimals: entry.Decimals,
			Balance:  entry.Balance,
		})
	}

	if buf, err := json.Marshal(tokens); err == nil {
		_ = m.cache.Set(ctx, key, string(buf), cache.MetadataTTL)
	}
	return tokens, nil
}

func validToken(entry moralisToken) bool {
	if entry.TokenAddress == "" || entry.Symbol == "" {
		return false
	}
	if entry.Decimals < 0 || entry.Decimals > 36 {
		return false
	}
	if _, ok := new(big.Int).SetString(entry.Balance, 10); !ok {
		return false
	}
	return true
}
