package orchestrate

import (
	swaperr "github.com/gustavo/swapdesk/internal/errors"
)

// Result is the uniform outcome of every pipeline. Failures carry the typed
// error for exit-code mapping and a human-readable message; no pipeline
// returns a partial success.
type Result struct {
	OK          bool   `json:"ok"`
	Message     string `json:"message,omitempty"`
	TxHash      string `json:"tx_hash,omitempty"`
	ExplorerURL string `json:"explorer_url,omitempty"`
	OrderHash   string `json:"order_hash,omitempty"`
	Err         error  `json:"-"`
}

func success(txHash, explorerURL string) Result {
	return Result{OK: true, TxHash: txHash, ExplorerURL: explorerURL}
}

func fail(err error) Result {
	msg := "internal error"
	if typed, ok := swaperr.As(err); ok {
		msg = typed.Message
	} else if err != nil {
		msg = err.Error()
	}
	return Result{OK: false, Message: msg, Err: err}
}
