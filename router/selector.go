// Package router decides which transfer backend serves a route. The decision
// is a pure function over the origin, the destination and the current catalog
// state; absence of a valid path is never raised here, it surfaces later in
// quoting or orchestration.
package router

import (
	"os"
	"time"

	"github.com/forma-dev/bridge-core/catalog"
	"github.com/rs/zerolog"
)

var routerLog zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	routerLog = zerolog.New(out).With().Timestamp().Str("component", "router").Logger()
}

// Backend identifies which transfer service executes a route.
type Backend string

const (
	BackendBridge     Backend = "bridge"
	BackendAggregator Backend = "aggregator"
)

// BridgeMembership answers whether the bridge backend knows a chain.
// Implemented by catalog.Catalog.
type BridgeMembership interface {
	IsBridgeChain(internalName string) bool
}

// Selector picks a backend for a route. The home chains are the rollup and
// its testnet; routing is asymmetric around them: the rollup's own asset
// always prefers its native bridge route home.
type Selector struct {
	home   map[string]bool
	bridge BridgeMembership
}

// NewSelector builds a Selector. homeChains are internal chain names.
func NewSelector(homeChains []string, bridge BridgeMembership) *Selector {
	home := make(map[string]bool, len(homeChains))
	for _, name := range homeChains {
		home[catalog.Normalize(name)] = true
	}
	return &Selector{home: home, bridge: bridge}
}

// IsHome reports whether the chain is the rollup or its testnet.
func (s *Selector) IsHome(internalName string) bool {
	return s.home[internalName]
}

// Select maps a route to a backend. The rules are evaluated in order and the
// first match wins; the order is load-bearing, not arbitrary:
//
//  1. both endpoints bridge-known            -> bridge
//  2. outbound from home, destination bridge-known -> bridge
//     (never reroute the rollup's withdrawal path through the aggregator,
//     even if the destination is also aggregator-known)
//  3. home on one end, other end aggregator-only  -> aggregator
//  4. neither end home, either end aggregator-only -> aggregator
//     (skipped entirely for home-outbound transfers; rule 2 owns those)
//  5. default                                -> bridge
func (s *Selector) Select(origin, destination string, snap *catalog.Snapshot) Backend {
	originBridge := s.bridge.IsBridgeChain(origin)
	destBridge := s.bridge.IsBridgeChain(destination)
	homeOutbound := s.IsHome(origin)

	backend := s.selectOrdered(origin, destination, snap, originBridge, destBridge, homeOutbound)
	routerLog.Debug().
		Str("origin", origin).
		Str("destination", destination).
		Bool("homeOutbound", homeOutbound).
		Str("backend", string(backend)).
		Msg("Backend selected")
	return backend
}

func (s *Selector) selectOrdered(
	origin, destination string,
	snap *catalog.Snapshot,
	originBridge, destBridge, homeOutbound bool,
) Backend {
	aggregatorOnly := func(name string, bridgeKnown bool) bool {
		return snap.Knows(name) && !bridgeKnown
	}

	// Rule 1: both endpoints on the bridge.
	if originBridge && destBridge {
		return BackendBridge
	}

	// Rule 2: home-outbound with a bridge destination.
	if homeOutbound && destBridge {
		return BackendBridge
	}

	// Rule 3: home on one end, the other end only the aggregator knows.
	if homeOutbound || s.IsHome(destination) {
		other, otherBridge := destination, destBridge
		if s.IsHome(destination) {
			other, otherBridge = origin, originBridge
		}
		if aggregatorOnly(other, otherBridge) {
			return BackendAggregator
		}
		return BackendBridge
	}

	// Rule 4: no home involvement, aggregator-only endpoint on either side.
	if aggregatorOnly(origin, originBridge) || aggregatorOnly(destination, destBridge) {
		return BackendAggregator
	}

	// Rule 5: default.
	return BackendBridge
}
