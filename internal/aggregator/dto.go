package aggregator

import (
	"math/big"
	"strings"

	swaperr "github.com/gustavo/swapdesk/internal/errors"
)

// envelope is the common wrapper on every aggregator response. code is a
// string; "0" means success, anything else carries a provider message.
type envelope struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (e envelope) ok() bool { return e.Code == "0" }

// TxPayload is a transaction the aggregator asks us to broadcast. Gas values
// arrive as decimal strings and are validated at this boundary; the builder
// applies the safety ratio afterwards.
type TxPayload struct {
	To       string
	Value    *big.Int
	Data     string
	GasLimit *big.Int
	GasPrice *big.Int
}

type rawTx struct {
	Data     string `json:"data"`
	Gas      string `json:"gas"`
	GasLimit string `json:"gasLimit"`
	GasPrice string `json:"gasPrice"`
	To       string `json:"to"`
	Value    string `json:"value"`
}

func (r rawTx) toPayload() (TxPayload, error) {
	gasField := r.Gas
	if gasField == "" {
		gasField = r.GasLimit
	}
	gasLimit, err := parseBig("gas limit", gasField)
	if err != nil {
		return TxPayload{}, err
	}
	gasPrice, err := parseBig("gas price", r.GasPrice)
	if err != nil {
		return TxPayload{}, err
	}
	value, err := parseBig("value", r.Value)
	if err != nil {
		return TxPayload{}, err
	}
	if strings.TrimSpace(r.To) == "" {
		return TxPayload{}, swaperr.New(swaperr.CodeMalformedResponse, "transaction payload missing target address")
	}
	return TxPayload{
		To:       r.To,
		Value:    value,
		Data:     r.Data,
		GasLimit: gasLimit,
		GasPrice: gasPrice,
	}, nil
}

func parseBig(field, raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || v.Sign() < 0 {
		return nil, swaperr.New(swaperr.CodeMalformedResponse, "transaction payload has invalid "+field)
	}
	return v, nil
}

type swapResponse struct {
	envelope
	Data []struct {
		Tx           rawTx `json:"tx"`
		RouterResult struct {
			ToTokenAmount string `json:"toTokenAmount"`
		} `json:"routerResult"`
	} `json:"data"`
}

type approveResponse struct {
	envelope
	Data []struct {
		Data               string `json:"data"`
		DexContractAddress string `json:"dexContractAddress"`
		GasLimit           string `json:"gasLimit"`
		GasPrice           string `json:"gasPrice"`
	} `json:"data"`
}

// ApprovePayload is the calldata and suggested gas for an ERC-20 approval.
type ApprovePayload struct {
	Data     string
	Spender  string
	GasLimit *big.Int
	GasPrice *big.Int
}

type crosschainQuoteResponse struct {
	envelope
	Data []struct {
		RouterList []struct {
			Router struct {
				BridgeID   int64  `json:"bridgeId"`
				BridgeName string `json:"bridgeName"`
			} `json:"router"`
		} `json:"routerList"`
	} `json:"data"`
}

type supportedChainResponse struct {
	envelope
	Data []SupportedChain `json:"data"`
}

// SupportedChain is one destination chain the bridge API can route to.
type SupportedChain struct {
	ChainID                int64  `json:"chainId"`
	ChainName              string `json:"chainName"`
	DexTokenApproveAddress string `json:"dexTokenApproveAddress"`
}

type bridgeStatusResponse struct {
	envelope
	Data []struct {
		DetailStatus string `json:"detailStatus"`
		Status       string `json:"status"`
		ToTxHash     string `json:"toTxHash"`
	} `json:"data"`
}

// BridgeStatus is the cross-chain settlement state for a source tx hash.
type BridgeStatus struct {
	Status       string
	DetailStatus string
	ToTxHash     string
}

// LimitOrderSubmission is the signed order posted to the order book.
type LimitOrderSubmission struct {
	OrderHash string         `json:"orderHash"`
	Signature string         `json:"signature"`
	ChainID   string         `json:"chainId"`
	Data      LimitOrderData `json:"data"`
}

// LimitOrderData mirrors the EIP-712 Order struct field for field.
type LimitOrderData struct {
	Salt          string `json:"salt"`
	MakerToken    string `json:"makerToken"`
	TakerToken    string `json:"takerToken"`
	Maker         string `json:"maker"`
	Receiver      string `json:"receiver"`
	AllowedSender string `json:"allowedSender"`
	MakingAmount  string `json:"makingAmount"`
	TakingAmount  string `json:"takingAmount"`
	MinReturn     string `json:"minReturn"`
	DeadLine      string `json:"deadLine"`
	PartiallyAble bool   `json:"partiallyAble"`
}
