package aggregator

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"time"
)

// signedPathPrefix is the path the API verifies signatures against. It is
// fixed by the provider and independent of the configured base URL.
const signedPathPrefix = "/api/v5/dex/"

// signer produces the authentication headers for every aggregator request:
// an ISO-8601 UTC millisecond timestamp and an HMAC-SHA256 over
// timestamp+method+path+query (or body for POSTs), base64 encoded.
type signer struct {
	apiKey     string
	secretKey  string
	passphrase string
	projectID  string
	now        func() time.Time
}

func newSigner(apiKey, secretKey, passphrase, projectID string) *signer {
	return &signer{
		apiKey:     apiKey,
		secretKey:  secretKey,
		passphrase: passphrase,
		projectID:  projectID,
		now:        time.Now,
	}
}

func (s *signer) timestamp() string {
	return s.now().UTC().Format("2006-01-02T15:04:05.000") + "Z"
}

// headers signs one request. basePath is the API family ("aggregator" or
// "cross-chain"), endpoint starts with a slash, query is the encoded query
// string without the leading "?", body is the raw POST payload.
func (s *signer) headers(method, basePath, endpoint, query string, body []byte) map[string]string {
	ts := s.timestamp()
	path := signedPathPrefix + basePath + endpoint
	if query != "" {
		path += "?" + query
	}
	message := ts + method + path + string(body)

	mac := hmac.New(sha256.New, []byte(s.secretKey))
	mac.Write([]byte(message))
	sign := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return map[string]string{
		"Content-Type":         "application/json",
		"OK-ACCESS-PROJECT":    s.projectID,
		"OK-ACCESS-KEY":        s.apiKey,
		"OK-ACCESS-SIGN":       sign,
		"OK-ACCESS-TIMESTAMP":  ts,
		"OK-ACCESS-PASSPHRASE": s.passphrase,
	}
}
