package solana

import (
	"math"
	"strconv"
)

// DefaultDecimals is assumed for mints missing from a TokenMap. Most SPL
// tokens use 9; stablecoins commonly use 6 and should be listed explicitly.
const DefaultDecimals = 9

// NativeMint is the wrapped SOL mint address. Native lamport balances are
// reported under it.
const NativeMint = "So11111111111111111111111111111111111111112"

// TokenMap maps mint addresses to their decimal places.
type TokenMap map[string]int

// DecimalsFor returns the decimals for a mint, falling back to
// DefaultDecimals for unknown mints.
func (m TokenMap) DecimalsFor(mint string) int {
	if d, ok := m[mint]; ok {
		return d
	}
	return DefaultDecimals
}

// ToRaw converts a UI amount to raw base units.
func ToRaw(amount float64, decimals int) uint64 {
	return uint64(math.Round(amount * math.Pow10(decimals)))
}

// FromRaw converts raw base units to a UI amount.
func FromRaw(raw uint64, decimals int) float64 {
	return float64(raw) / math.Pow10(decimals)
}

// ParseRaw parses the decimal string amounts used by venue quote APIs.
func ParseRaw(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}
