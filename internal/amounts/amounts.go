package amounts

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	swaperr "github.com/gustavo/swapdesk/internal/errors"
)

// Scale converts a human-entered decimal amount into integer minor units.
// This is the only place floating-point style values cross into the trading
// core; everything past it is *big.Int.
func Scale(human string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > 77 {
		return nil, swaperr.New(swaperr.CodeUsage, fmt.Sprintf("invalid token decimals %d", decimals))
	}
	d, err := decimal.NewFromString(strings.TrimSpace(human))
	if err != nil {
		return nil, swaperr.Wrap(swaperr.CodeUsage, "parse amount", err)
	}
	if d.IsNegative() {
		return nil, swaperr.New(swaperr.CodeUsage, "amount must be non-negative")
	}
	shifted := d.Shift(int32(decimals))
	if shifted.Exponent() < 0 && !shifted.Equal(shifted.Truncate(0)) {
		return nil, swaperr.New(swaperr.CodeUsage, fmt.Sprintf("amount precision exceeds token decimals (%d)", decimals))
	}
	return shifted.Truncate(0).BigInt(), nil
}

// Descale renders minor units back as a human decimal string.
func Descale(minor *big.Int, decimals int) string {
	if minor == nil {
		return "0"
	}
	return decimal.NewFromBigInt(minor, -int32(decimals)).String()
}

// ParseMinor validates an already-scaled amount string.
func ParseMinor(raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, swaperr.New(swaperr.CodeUsage, "amount must be an integer in minor units")
	}
	if v.Sign() < 0 {
		return nil, swaperr.New(swaperr.CodeUsage, "amount must be non-negative")
	}
	return v, nil
}

// PercentToFraction converts a whole-percent bound (slippage, price impact)
// into the 3-decimal fraction string the aggregator expects: 1 -> "0.01".
func PercentToFraction(percent float64) string {
	return decimal.NewFromFloat(percent).Div(decimal.NewFromInt(100)).Round(3).String()
}
