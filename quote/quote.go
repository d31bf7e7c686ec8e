// Package quote obtains price/fee quotes for a route from whichever backend
// the router chose. It owns currency-address resolution (native sentinel vs
// explicit token address) and decimal-aware base-unit conversion; it performs
// no retries, backoff is the backend SDK's responsibility.
package quote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/forma-dev/bridge-core/backend"
	"github.com/forma-dev/bridge-core/catalog"
	"github.com/forma-dev/bridge-core/router"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var quoteLog zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	quoteLog = zerolog.New(out).With().Timestamp().Str("component", "quote").Logger()
}

// ErrUnsupportedRoute means a required endpoint or currency could not be
// resolved against the catalog; there is no transaction path to quote.
var ErrUnsupportedRoute = errors.New("unsupported route")

// Request describes the quote to obtain. Amount is in human decimal units of
// the origin currency.
type Request struct {
	Backend             router.Backend
	Origin              string // internal chain name
	Destination         string
	OriginCurrency      string // symbol or address; empty means native asset
	DestinationCurrency string
	Amount              decimal.Decimal
	TradeType           backend.TradeType
	Sender              string
	Recipient           string
}

// Quote is the backend-agnostic quote returned to the UI layer.
type Quote struct {
	Backend   router.Backend
	AmountOut decimal.Decimal
	Fees      backend.FeeBreakdown
	// Aggregator carries the verbatim aggregator quote for execution;
	// nil for bridge routes.
	Aggregator *backend.Quote
}

// Service acquires quotes. The backends are consulted, never mutated.
type Service struct {
	catalog    *catalog.Catalog
	bridge     backend.BridgeClient
	aggregator backend.AggregatorClient
}

// NewService creates a quote Service.
func NewService(cat *catalog.Catalog, bridge backend.BridgeClient, aggregator backend.AggregatorClient) *Service {
	return &Service{catalog: cat, bridge: bridge, aggregator: aggregator}
}

// GetQuote obtains a quote for the route from the backend named in the
// request.
func (s *Service) GetQuote(ctx context.Context, req Request) (*Quote, error) {
	if req.TradeType == "" {
		req.TradeType = backend.TradeExactInput
	}
	switch req.Backend {
	case router.BackendAggregator:
		return s.aggregatorQuote(ctx, req)
	default:
		return s.bridgeQuote(ctx, req)
	}
}

// bridgeQuote delegates to the bridge backend's fee-quoting primitive. Bridge
// transfers are 1:1 over a token connection, so the output amount equals the
// input amount and only the fees vary.
func (s *Service) bridgeQuote(ctx context.Context, req Request) (*Quote, error) {
	fees, err := s.bridge.QuoteTransferFees(ctx, backend.TransferRemoteRequest{
		Origin:       req.Origin,
		Destination:  req.Destination,
		TokenAddress: req.OriginCurrency,
		Amount:       req.Amount,
		Sender:       req.Sender,
		Recipient:    req.Recipient,
	})
	if err != nil {
		return nil, fmt.Errorf("bridge fee quote failed: %w", err)
	}
	return &Quote{
		Backend:   router.BackendBridge,
		AmountOut: req.Amount,
		Fees: backend.FeeBreakdown{
			Gas:     fees.LocalQuote,
			Relayer: fees.InterchainQuote,
		},
	}, nil
}

// aggregatorQuote resolves both endpoints against the current aggregator
// snapshot and calls out with base-unit amounts.
func (s *Service) aggregatorQuote(ctx context.Context, req Request) (*Quote, error) {
	snap := s.catalog.AggregatorSnapshot()

	originID, ok := snap.ChainID(req.Origin)
	if !ok {
		return nil, fmt.Errorf("%w: aggregator does not list origin %s", ErrUnsupportedRoute, req.Origin)
	}
	destID, ok := snap.ChainID(req.Destination)
	if !ok {
		return nil, fmt.Errorf("%w: aggregator does not list destination %s", ErrUnsupportedRoute, req.Destination)
	}

	originAddr, originDecimals, err := resolveCurrency(snap, req.Origin, req.OriginCurrency)
	if err != nil {
		return nil, err
	}
	destAddr, _, err := resolveCurrency(snap, req.Destination, req.DestinationCurrency)
	if err != nil {
		return nil, err
	}

	amountBase := req.Amount.Shift(originDecimals).Truncate(0).BigInt()

	quoteLog.Debug().
		Str("origin", req.Origin).
		Str("destination", req.Destination).
		Str("amount", amountBase.String()).
		Msg("Requesting aggregator quote")

	aggQuote, err := s.aggregator.GetQuote(ctx, backend.QuoteRequest{
		OriginChainID:       originID,
		DestinationChainID:  destID,
		OriginCurrency:      originAddr,
		DestinationCurrency: destAddr,
		Amount:              amountBase,
		TradeType:           req.TradeType,
		Sender:              req.Sender,
		Recipient:           req.Recipient,
	})
	if err != nil {
		return nil, fmt.Errorf("aggregator quote failed: %w", err)
	}

	amountOut, err := aggQuote.CurrencyOut.Decimal()
	if err != nil {
		return nil, fmt.Errorf("failed to parse quoted output amount: %w", err)
	}

	return &Quote{
		Backend:    router.BackendAggregator,
		AmountOut:  amountOut,
		Fees:       aggQuote.Fees,
		Aggregator: aggQuote,
	}, nil
}

// resolveCurrency maps a symbol-or-address to the address the aggregator
// expects, substituting the native sentinel when the currency names the
// chain's native asset.
func resolveCurrency(snap *catalog.Snapshot, chain, symbolOrAddress string) (string, int32, error) {
	rec, ok := snap.Chain(chain)
	if !ok {
		return "", 0, fmt.Errorf("%w: aggregator does not list %s", ErrUnsupportedRoute, chain)
	}
	if symbolOrAddress == "" || strings.EqualFold(symbolOrAddress, rec.NativeSymbol) {
		return backend.NativeTokenSentinel, rec.NativeDecimals, nil
	}
	cur, ok := snap.Currency(chain, symbolOrAddress)
	if !ok {
		return "", 0, fmt.Errorf("%w: currency %s not listed on %s", ErrUnsupportedRoute, symbolOrAddress, chain)
	}
	if cur.AddressOrDenom == "" {
		return backend.NativeTokenSentinel, cur.Decimals, nil
	}
	return cur.AddressOrDenom, cur.Decimals, nil
}
