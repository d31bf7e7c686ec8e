package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var catalogLog zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	catalogLog = zerolog.New(out).With().Timestamp().Str("component", "catalog").Logger()
}

// Catalog merges the statically configured bridge chain set with the
// dynamically fetched aggregator snapshot. Bridge records are loaded once at
// construction; the aggregator subset is replaced wholesale by Refresh.
type Catalog struct {
	bridgeChains map[string]ChainRecord
	bridgeTokens map[string][]TokenRecord // internal chain name -> tokens
	source       AggregatorSource
	snapshot     atomic.Pointer[Snapshot]
}

// New builds a Catalog from the static bridge configuration. The aggregator
// snapshot starts empty; call Refresh to populate it.
func New(chains []ChainRecord, tokens []TokenRecord, source AggregatorSource) (*Catalog, error) {
	c := &Catalog{
		bridgeChains: make(map[string]ChainRecord, len(chains)),
		bridgeTokens: make(map[string][]TokenRecord),
		source:       source,
	}
	for _, chain := range chains {
		name := Normalize(chain.Name)
		if _, dup := c.bridgeChains[name]; dup {
			return nil, fmt.Errorf("duplicate chain %q in bridge config", name)
		}
		chain.Name = name
		chain.KnownToBridge = true
		c.bridgeChains[name] = chain
	}
	for _, token := range tokens {
		name := Normalize(token.Chain)
		if _, ok := c.bridgeChains[name]; !ok {
			return nil, fmt.Errorf("token %s references unknown chain %q", token.Symbol, token.Chain)
		}
		token.Chain = name
		c.bridgeTokens[name] = append(c.bridgeTokens[name], token)
	}
	c.snapshot.Store(EmptySnapshot())
	return c, nil
}

// IsBridgeChain reports whether the message-passing bridge knows the chain.
func (c *Catalog) IsBridgeChain(internalName string) bool {
	_, ok := c.bridgeChains[internalName]
	return ok
}

// BridgeChain returns the static record for a bridge chain.
func (c *Catalog) BridgeChain(internalName string) (ChainRecord, bool) {
	rec, ok := c.bridgeChains[internalName]
	return rec, ok
}

// BridgeChains returns every statically configured chain.
func (c *Catalog) BridgeChains() []ChainRecord {
	out := make([]ChainRecord, 0, len(c.bridgeChains))
	for _, rec := range c.bridgeChains {
		out = append(out, rec)
	}
	return out
}

// BridgeTokens returns the static tokens on a bridge chain.
func (c *Catalog) BridgeTokens(internalName string) []TokenRecord {
	return c.bridgeTokens[internalName]
}

// TokensForRoute returns the bridge tokens on origin that declare a
// connection to the destination chain.
func (c *Catalog) TokensForRoute(origin, destination string) []TokenRecord {
	var out []TokenRecord
	for _, token := range c.bridgeTokens[Normalize(origin)] {
		for _, conn := range token.Connections {
			if Normalize(conn.Chain) == Normalize(destination) {
				out = append(out, token)
				break
			}
		}
	}
	return out
}

// DisplayName resolves a human-readable name for a chain, preferring the
// static bridge record, then the aggregator snapshot, then a title-cased
// fallback of the internal name.
func (c *Catalog) DisplayName(internalName string) string {
	if rec, ok := c.bridgeChains[internalName]; ok && rec.DisplayName != "" {
		return rec.DisplayName
	}
	if rec, ok := c.AggregatorSnapshot().Chain(internalName); ok && rec.DisplayName != "" {
		return rec.DisplayName
	}
	if internalName == "" {
		return ""
	}
	return strings.ToUpper(internalName[:1]) + internalName[1:]
}

// AggregatorSnapshot returns the current aggregator snapshot. Never nil.
func (c *Catalog) AggregatorSnapshot() *Snapshot {
	return c.snapshot.Load()
}

// Refresh fetches the aggregator's chain list and, for each chain, its
// currency list, then swaps the in-memory snapshot in a single store. On any
// failure the previous snapshot is left untouched; callers holding an older
// snapshot are unaffected either way. The returned error carries the cause
// for logging; Refresh itself only warns.
func (c *Catalog) Refresh(ctx context.Context) error {
	if c.source == nil {
		return nil
	}
	next, err := c.buildSnapshot(ctx)
	if err != nil {
		catalogLog.Warn().Err(err).Msg("Aggregator catalog refresh failed, keeping previous snapshot")
		return err
	}
	c.snapshot.Store(next)
	catalogLog.Info().
		Int("chains", len(next.chains)).
		Time("fetchedAt", next.fetchedAt).
		Msg("Aggregator catalog refreshed")
	return nil
}

func (c *Catalog) buildSnapshot(ctx context.Context) (*Snapshot, error) {
	remote, err := c.source.Chains(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list aggregator chains: %w", err)
	}

	next := &Snapshot{
		chains:     make(map[string]ChainRecord, len(remote)),
		currencies: make(map[string][]TokenRecord),
		fetchedAt:  time.Now(),
	}
	for _, chain := range remote {
		name := Normalize(chain.Name)
		next.chains[name] = ChainRecord{
			Name:              name,
			DisplayName:       chain.DisplayName,
			ChainID:           fmt.Sprintf("%d", chain.ID),
			EVMChainID:        chain.ID,
			NativeSymbol:      chain.NativeSymbol,
			NativeDecimals:    chain.NativeDecimals,
			Family:            FamilyEVM,
			KnownToAggregator: true,
			DepositEnabled:    chain.DepositEnabled,
			Disabled:          chain.Disabled,
		}
		if chain.Disabled {
			continue
		}

		currencies, err := c.source.Currencies(ctx, chain.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list currencies for %s: %w", name, err)
		}
		tokens := make([]TokenRecord, 0, len(currencies))
		for _, cur := range currencies {
			tokens = append(tokens, TokenRecord{
				Chain:          name,
				AddressOrDenom: cur.Address,
				Symbol:         cur.Symbol,
				Name:           cur.Name,
				Decimals:       cur.Decimals,
				LogoURI:        cur.LogoURI,
				Featured:       cur.Featured,
			})
		}
		next.currencies[name] = tokens
	}
	return next, nil
}
