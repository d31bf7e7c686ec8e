package catalog

import "strings"

// chainAliases maps known aggregator spellings to the internal chain name.
// Keys are stored pre-lowercased; lookups lowercase the input first, so an
// already-normalized name passes through the table unchanged.
var chainAliases = map[string]string{
	"arbitrum one":        "arbitrum",
	"arbitrum-one":        "arbitrum",
	"op mainnet":          "optimism",
	"op-mainnet":          "optimism",
	"bnb smart chain":     "bsc",
	"bnb-smart-chain":     "bsc",
	"binance smart chain": "bsc",
	"polygon pos":         "polygon",
	"polygon-pos":         "polygon",
	"matic":               "polygon",
	"zksync era":          "zksync",
	"zksync-era":          "zksync",
	"avalanche c-chain":   "avalanche",
	"avalanche-c-chain":   "avalanche",
	"ethereum mainnet":    "ethereum",
	"mainnet":             "ethereum",
	"forma mainnet":       "forma",
	"forma-mainnet":       "forma",
	"sketchpad testnet":   "sketchpad",
	"sketchpad-1":         "sketchpad",
}

// Normalize maps a chain name as spelled by either backend to the internal
// name used as the cross-backend join key. Total and idempotent: aliases
// resolve to a canonical lowercase token, anything else passes through
// lowercased.
func Normalize(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := chainAliases[lowered]; ok {
		return canonical
	}
	return lowered
}
