package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gustavo/swapdesk/internal/cache"
	swaperr "github.com/gustavo/swapdesk/internal/errors"
	"github.com/gustavo/swapdesk/internal/httpx"
	"github.com/gustavo/swapdesk/internal/logger"
)

const testWallet = "0x1110000000000000000000000000000000000111"

func newMoralis(t *testing.T, handler http.Handler) (*MoralisClient, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	client := NewMoralisClient(httpx.New(5*time.Second, 0), "test-key", cache.NewMemory(), logger.Nop())
	client.baseURL = srv.URL
	return client, &calls
}

func TestTokensFiltersSpamAndMalformed(t *testing.T) {
	client, _ := newMoralis(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Error("missing API key header")
		}
		if r.URL.Query().Get("chain") != "bsc" {
			t.Errorf("unexpected chain slug %s", r.URL.Query().Get("chain"))
		}
		_, _ = w.Write([]byte(`[
			{"token_address":"0xaaa","name":"Good","symbol":"GOOD","decimals":18,"balance":"1000","possible_spam":false},
			{"token_address":"0xbbb","name":"Spam","symbol":"SPAM","decimals":18,"balance":"1000","possible_spam":true},
			{"token_address":"0xccc","name":"NoBalance","symbol":"NB","decimals":18,"balance":"not-a-number","possible_spam":false},
			{"token_address":"","name":"NoAddr","symbol":"NA","decimals":18,"balance":"5","possible_spam":false}
		]`))
	}))

	tokens, err := client.Tokens(context.Background(), 56, testWallet)
	if err != nil {
		t.Fatalf("Tokens failed: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("expected one valid token, got %d", len(tokens))
	}
	if tokens[0].Symbol != "GOOD" {
		t.Fatalf("unexpected token %+v", tokens[0])
	}
}

func TestTokensCachesResult(t *testing.T) {
	client, calls := newMoralis(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"token_address":"0xaaa","name":"Good","symbol":"GOOD","decimals":18,"balance":"1000","possible_spam":false}]`))
	}))

	for i := 0; i < 3; i++ {
		if _, err := client.Tokens(context.Background(), 1, testWallet); err != nil {
			t.Fatalf("Tokens failed: %v", err)
		}
	}
	if *calls != 1 {
		t.Fatalf("expected one upstream call, got %d", *calls)
	}
}

func TestTokensUnknownChain(t *testing.T) {
	client, calls := newMoralis(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	_, err := client.Tokens(context.Background(), 999, testWallet)
	if !swaperr.Is(err, swaperr.CodeUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if *calls != 0 {
		t.Fatal("unknown chain must not reach the indexer")
	}
}
