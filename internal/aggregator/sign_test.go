package aggregator

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"
)

func TestTimestampFormat(t *testing.T) {
	s := newSigner("k", "s", "p", "proj")
	s.now = func() time.Time {
		return time.Date(2024, 3, 5, 9, 30, 15, 123_456_789, time.UTC)
	}
	got := s.timestamp()
	if got != "2024-03-05T09:30:15.123Z" {
		t.Fatalf("unexpected timestamp %s", got)
	}
}

func TestHeadersSignGetRequest(t *testing.T) {
	s := newSigner("api-key", "secret", "phrase", "project")
	fixed := time.Date(2024, 3, 5, 9, 30, 15, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	headers := s.headers("GET", "aggregator", "/swap", "amount=1&chainId=1", nil)

	ts := "2024-03-05T09:30:15.000Z"
	message := ts + "GET" + "/api/v5/dex/aggregator/swap?amount=1&chainId=1"
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte(message))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if headers["OK-ACCESS-SIGN"] != want {
		t.Fatalf("signature mismatch: got %s want %s", headers["OK-ACCESS-SIGN"], want)
	}
	if headers["OK-ACCESS-TIMESTAMP"] != ts {
		t.Fatalf("unexpected timestamp header %s", headers["OK-ACCESS-TIMESTAMP"])
	}
	if headers["OK-ACCESS-KEY"] != "api-key" || headers["OK-ACCESS-PASSPHRASE"] != "phrase" || headers["OK-ACCESS-PROJECT"] != "project" {
		t.Fatal("credential headers missing")
	}
}

func TestHeadersSignPostBody(t *testing.T) {
	s := newSigner("k", "secret", "p", "proj")
	fixed := time.Date(2024, 3, 5, 9, 30, 15, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	body := []byte(`{"orderHash":"0xabc"}`)
	headers := s.headers("POST", "aggregator", "/limit-order/save-order", "", body)

	message := "2024-03-05T09:30:15.000Z" + "POST" + "/api/v5/dex/aggregator/limit-order/save-order" + string(body)
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte(message))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if headers["OK-ACCESS-SIGN"] != want {
		t.Fatal("POST signature must cover the body instead of the query")
	}
}
