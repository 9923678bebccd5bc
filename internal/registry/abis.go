package registry

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ERC20MinimalABI covers the calls the trading core makes against token
// contracts. Everything else goes through the aggregator.
const ERC20MinimalABI = `[
  {"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"payable":false,"stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
  {"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"},
  {"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

// ERC20 is the parsed minimal ABI, shared process-wide.
var ERC20 = mustABI(ERC20MinimalABI)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Limit-order EIP-712 domain constants. The order book verifies signatures
// against this exact name/version pair and the per-chain verifying contract.
const (
	LimitOrderDomainName    = "OKX LIMIT ORDER"
	LimitOrderDomainVersion = "2.0"
	LimitOrderPrimaryType   = "Order"
)
