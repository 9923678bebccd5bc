package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	swaperr "github.com/gustavo/swapdesk/internal/errors"
)

func TestDoBodyJSONRetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := New(5*time.Second, 2)
	var out struct {
		OK bool `json:"ok"`
	}
	if _, err := DoBodyJSON(context.Background(), client, http.MethodGet, srv.URL, nil, nil, &out); err != nil {
		t.Fatalf("DoBodyJSON failed: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if !out.OK {
		t.Fatal("expected decoded response")
	}
}

func TestNoRetryDoesNotRetry(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(5*time.Second, 3).NoRetry()
	_, err := DoBodyJSON(context.Background(), client, http.MethodPost, srv.URL, []byte(`{}`), nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestDoBodyJSONMapsAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := New(5*time.Second, 0)
	_, err := DoBodyJSON(context.Background(), client, http.MethodGet, srv.URL, nil, nil, nil)
	if !swaperr.Is(err, swaperr.CodeAuth) {
		t.Fatalf("expected auth code, got %v", err)
	}
}

func TestDoBodyJSONMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"truncated":`))
	}))
	defer srv.Close()

	client := New(5*time.Second, 0)
	var out map[string]any
	_, err := DoBodyJSON(context.Background(), client, http.MethodGet, srv.URL, nil, nil, &out)
	if !swaperr.Is(err, swaperr.CodeMalformedResponse) {
		t.Fatalf("expected malformed response code, got %v", err)
	}
}
