package util

import (
	"strconv"
	"strings"
)

// DefaultExchangeSuffix is appended to bare stock codes.
const DefaultExchangeSuffix = ".NS"

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// StockCode strips the exchange suffix: "TCS.NS" -> "TCS".
func StockCode(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.LastIndex(symbol, "."); i > 0 {
		return symbol[:i]
	}
	return symbol
}

// NormalizeSymbol upper-cases a ticker and adds the default exchange suffix
// when none is present: "tcs" -> "TCS.NS".
func NormalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + DefaultExchangeSuffix
}

// NormalizeSymbols applies NormalizeSymbol and drops blanks and duplicates.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		n := NormalizeSymbol(s)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
