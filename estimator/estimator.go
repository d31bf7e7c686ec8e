// Package estimator computes the maximum sendable amount for a route, net of
// estimated fees. The two backends get different algorithms with different
// safety margins; both round down so the displayed max is never optimistic
// relative to the actual spendable balance.
package estimator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/forma-dev/bridge-core/backend"
	"github.com/forma-dev/bridge-core/notify"
	"github.com/forma-dev/bridge-core/router"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var estimatorLog zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	estimatorLog = zerolog.New(out).With().Timestamp().Str("component", "estimator").Logger()
}

// displayPlaces is the precision shown to the user; amounts are floored to it.
const displayPlaces = 4

var (
	// bridgeFeeBuffer is the safety margin applied on top of the summed
	// bridge fee components.
	bridgeFeeBuffer = decimal.RequireFromString("1.20")
	// aggregatorFeeRate is the flat estimated-fee proxy for aggregator
	// routes; no live quote is requested for max-amount purposes.
	aggregatorFeeRate = decimal.RequireFromString("0.01")
)

// Request describes a max-amount computation.
type Request struct {
	Backend      router.Backend
	Origin       string // internal chain name
	Destination  string
	OriginName   string // display name, used in warning notifications
	TokenAddress string
	Sender       string
	Recipient    string
	Balance      decimal.Decimal
}

// Estimator computes max sendable amounts.
type Estimator struct {
	bridge   backend.BridgeClient
	notifier notify.Notifier
}

// New creates an Estimator.
func New(bridge backend.BridgeClient, notifier notify.Notifier) *Estimator {
	return &Estimator{bridge: bridge, notifier: notifier}
}

// MaxAmount returns the maximum sendable amount for the route, floored to
// four decimal places, or nil when no estimate could be produced. A nil
// result means "unavailable", never zero; callers must not conflate the two.
// Failures degrade to a warning notification naming the origin chain.
func (e *Estimator) MaxAmount(ctx context.Context, req Request) *decimal.Decimal {
	var (
		max decimal.Decimal
		err error
	)
	switch req.Backend {
	case router.BackendAggregator:
		max, err = e.aggregatorMax(req)
	default:
		max, err = e.bridgeMax(ctx, req)
	}
	if err != nil {
		estimatorLog.Warn().
			Err(err).
			Str("origin", req.Origin).
			Str("backend", string(req.Backend)).
			Msg("Max amount estimation failed")
		e.notifier.Warn(fmt.Sprintf("Could not estimate the max transferable amount on %s", req.OriginName))
		return nil
	}
	max = floorDisplay(max)
	return &max
}

// bridgeMax quotes fees for the full balance as a trial amount, buffers the
// summed fee by 20% and subtracts it from the balance. If quoting fails the
// bridge backend's own whole-balance max-amount query is used instead.
func (e *Estimator) bridgeMax(ctx context.Context, req Request) (decimal.Decimal, error) {
	quoteReq := backend.TransferRemoteRequest{
		Origin:       req.Origin,
		Destination:  req.Destination,
		TokenAddress: req.TokenAddress,
		Amount:       req.Balance,
		Sender:       req.Sender,
		Recipient:    req.Recipient,
	}

	fees, err := e.bridge.QuoteTransferFees(ctx, quoteReq)
	if err != nil {
		estimatorLog.Debug().Err(err).Msg("Fee quote failed, falling back to max transfer query")
		max, fbErr := e.bridge.MaxTransferAmount(ctx, quoteReq)
		if fbErr != nil {
			return decimal.Decimal{}, fmt.Errorf("fee quote failed (%w) and max transfer fallback failed: %w", err, fbErr)
		}
		return clampZero(max), nil
	}

	buffered := fees.Total().Mul(bridgeFeeBuffer)
	return clampZero(req.Balance.Sub(buffered)), nil
}

// aggregatorMax applies a flat 1% deduction as the estimated-fee proxy.
func (e *Estimator) aggregatorMax(req Request) (decimal.Decimal, error) {
	fee := req.Balance.Mul(aggregatorFeeRate)
	return clampZero(req.Balance.Sub(fee)), nil
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.Sign() <= 0 {
		return decimal.Zero
	}
	return d
}

func floorDisplay(d decimal.Decimal) decimal.Decimal {
	return d.RoundFloor(displayPlaces)
}
