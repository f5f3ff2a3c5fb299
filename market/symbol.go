package market

import (
	"fmt"
	"strings"
)

// ParseSymbol splits a "BASE/QUOTE" pair like "BTC/USDT" into its base and
// quote assets. Both parts must be non-empty; the result is uppercased.
func ParseSymbol(symbol string) (base, quote string, err error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	base, quote, ok := strings.Cut(s, "/")
	if !ok || base == "" || quote == "" {
		return "", "", fmt.Errorf("invalid symbol %q (expected format like BTC/USDT)", symbol)
	}
	return base, quote, nil
}

// BaseAsset returns the base asset of a BASE/QUOTE symbol, or "" if the
// symbol is malformed.
func BaseAsset(symbol string) string {
	base, _, err := ParseSymbol(symbol)
	if err != nil {
		return ""
	}
	return base
}

// QuoteAsset returns the quote asset of a BASE/QUOTE symbol, or "" if the
// symbol is malformed.
func QuoteAsset(symbol string) string {
	_, quote, err := ParseSymbol(symbol)
	if err != nil {
		return ""
	}
	return quote
}

// ExchangeSymbol converts "BTC/USDT" to the concatenated form "BTCUSDT"
// used by the exchange REST API.
func ExchangeSymbol(symbol string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(symbol)), "/", "")
}
