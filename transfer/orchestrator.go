// Package transfer drives a single transfer from user confirmation through
// backend-specific transaction steps to a terminal status, recording every
// transition in the shared transfer log.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/forma-dev/bridge-core/backend"
	"github.com/forma-dev/bridge-core/catalog"
	"github.com/forma-dev/bridge-core/notify"
	"github.com/forma-dev/bridge-core/quote"
	"github.com/forma-dev/bridge-core/router"
	"github.com/forma-dev/bridge-core/wallet"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var orchLog zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	orchLog = zerolog.New(out).With().Timestamp().Str("component", "orchestrator").Logger()
}

// FormValues are the validated form inputs a transfer starts from. The route
// is expected to be pre-validated by the UI layer; the orchestrator still
// fails fast on anything it cannot resolve.
type FormValues struct {
	Origin       string // internal chain name
	Destination  string
	TokenAddress string // bridge origin token address/denom
	TokenSymbol  string // aggregator selected-token descriptor
	Amount       decimal.Decimal
	Sender       string
	Recipient    string
}

// Orchestrator executes transfers. Concurrent transfers proceed
// independently; each gets its own log id at creation time and the
// orchestrator never assumes only one is in flight.
type Orchestrator struct {
	catalog    *catalog.Catalog
	selector   *router.Selector
	bridge     backend.BridgeClient
	aggregator backend.AggregatorClient
	quotes     *quote.Service
	wallet     wallet.Provider
	notifier   notify.Notifier
	log        *Log
	metrics    *Metrics
}

// NewOrchestrator wires an Orchestrator. metrics may be nil.
func NewOrchestrator(
	cat *catalog.Catalog,
	selector *router.Selector,
	bridge backend.BridgeClient,
	aggregator backend.AggregatorClient,
	quotes *quote.Service,
	walletProvider wallet.Provider,
	notifier notify.Notifier,
	log *Log,
	metrics *Metrics,
) *Orchestrator {
	return &Orchestrator{
		catalog:    cat,
		selector:   selector,
		bridge:     bridge,
		aggregator: aggregator,
		quotes:     quotes,
		wallet:     walletProvider,
		notifier:   notifier,
		log:        log,
		metrics:    metrics,
	}
}

// Log exposes the transfer log for read access and subscriptions.
func (o *Orchestrator) Log() *Log {
	return o.log
}

// TriggerTransactions runs one transfer to a terminal or confirmed state and
// returns the id of its log record. Failures never propagate: they are
// caught here, classified, written to the log and notified.
func (o *Orchestrator) TriggerTransactions(ctx context.Context, v FormValues) int64 {
	snap := o.catalog.AggregatorSnapshot()
	selected := o.selector.Select(v.Origin, v.Destination, snap)

	id := o.log.Append(Record{
		Origin:       v.Origin,
		Destination:  v.Destination,
		TokenAddress: v.TokenAddress,
		TokenSymbol:  v.TokenSymbol,
		Sender:       v.Sender,
		Recipient:    v.Recipient,
		Amount:       v.Amount,
		Backend:      selected,
	})

	orchLog.Info().
		Int64("id", id).
		Str("origin", v.Origin).
		Str("destination", v.Destination).
		Str("amount", v.Amount.String()).
		Str("backend", string(selected)).
		Msg("Transfer started")

	var err error
	switch selected {
	case router.BackendAggregator:
		err = o.runAggregator(ctx, id, v, snap)
	default:
		err = o.runBridge(ctx, id, v)
	}
	if err != nil {
		o.fail(id, selected, err)
		return id
	}

	o.metrics.observeOutcome(string(selected), "confirmed")
	o.notifier.Success("Transfer confirmed on the origin chain")
	return id
}

// runBridge executes the bridge path: connection check, collateral
// pre-flight, then the ordered transaction list with sign/confirm per step.
func (o *Orchestrator) runBridge(ctx context.Context, id int64, v FormValues) error {
	routeTokens := o.bridge.TokensForRoute(v.Origin, v.Destination)
	if len(routeTokens) == 0 {
		return fmt.Errorf("%w: %s -> %s", ErrNoTokenConnection, v.Origin, v.Destination)
	}

	req := backend.TransferRemoteRequest{
		Origin:       v.Origin,
		Destination:  v.Destination,
		TokenAddress: v.TokenAddress,
		Amount:       v.Amount,
		Sender:       v.Sender,
		Recipient:    v.Recipient,
	}

	// Liquidity pre-flight. Failing here means the status never leaves
	// Preparing and the user gets an explicit message instead of a revert.
	sufficient, err := o.bridge.DestinationCollateralSufficient(ctx, req)
	if err != nil {
		return fmt.Errorf("collateral check failed: %w", err)
	}
	if !sufficient {
		return fmt.Errorf("%w: %s cannot release %s", ErrInsufficientCollateral, v.Destination, v.Amount)
	}

	if err := o.log.Advance(id, StatusCreatingTxs); err != nil {
		return err
	}
	txs, err := o.bridge.TransferRemoteTxs(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to build transactions: %w", err)
	}
	if len(txs) == 0 {
		return fmt.Errorf("bridge produced no transactions for %s -> %s", v.Origin, v.Destination)
	}

	originChain, ok := o.catalog.BridgeChain(v.Origin)
	if !ok {
		return fmt.Errorf("%w: origin %s is not a bridge chain", ErrUnsupportedRoute, v.Origin)
	}
	sender, err := o.bridge.Sender(originChain.Family)
	if err != nil {
		return fmt.Errorf("no transaction sender for %s: %w", originChain.Family, err)
	}

	var lastReceipt *backend.Receipt
	var lastHash string
	for _, tx := range txs {
		signing, confirming := StatusSigningTransfer, StatusConfirmingTransfer
		if tx.Category == backend.TxApproval {
			signing, confirming = StatusSigningApprove, StatusConfirmingApprove
		}

		if err := o.log.Advance(id, signing); err != nil {
			return err
		}
		pending, err := sender.Send(ctx, tx)
		if err != nil {
			return fmt.Errorf("failed to sign %s transaction: %w", tx.Category, err)
		}
		lastHash = pending.Hash()

		if err := o.log.Advance(id, confirming); err != nil {
			return err
		}
		receipt, err := pending.Confirm(ctx)
		if err != nil {
			return fmt.Errorf("failed to confirm %s transaction: %w", tx.Category, err)
		}
		lastReceipt = receipt
		orchLog.Debug().
			Int64("id", id).
			Str("category", string(tx.Category)).
			Str("hash", receipt.TxHash).
			Msg("Transaction confirmed")
	}

	messageID, _ := o.bridge.MessageIDFromReceipt(lastReceipt)
	if err := o.log.Update(id, func(r *Record) {
		r.OriginTxHash = lastHash
		r.MessageID = messageID
	}); err != nil {
		return err
	}
	return o.log.Advance(id, StatusConfirmedTransfer)
}

// runAggregator executes the aggregator path: snapshot resolution, quote,
// wallet chain check, execute, tracking-id decode.
func (o *Orchestrator) runAggregator(ctx context.Context, id int64, v FormValues, snap *catalog.Snapshot) error {
	originID, ok := snap.ChainID(v.Origin)
	if !ok {
		return fmt.Errorf("%w: aggregator does not list origin %s", ErrUnsupportedRoute, v.Origin)
	}
	if _, ok := snap.ChainID(v.Destination); !ok {
		return fmt.Errorf("%w: aggregator does not list destination %s", ErrUnsupportedRoute, v.Destination)
	}

	if err := o.log.Advance(id, StatusCreatingTxs); err != nil {
		return err
	}
	q, err := o.quotes.GetQuote(ctx, quote.Request{
		Backend:        router.BackendAggregator,
		Origin:         v.Origin,
		Destination:    v.Destination,
		OriginCurrency: v.TokenSymbol,
		Amount:         v.Amount,
		Sender:         v.Sender,
		Recipient:      v.Recipient,
	})
	if err != nil {
		return err
	}
	if err := o.log.Update(id, func(r *Record) {
		fees := q.Fees
		r.Fees = &fees
	}); err != nil {
		return err
	}

	// The wallet must sit on the origin chain before signing; switch it
	// over if it does not.
	if err := o.ensureWalletChain(ctx, originID); err != nil {
		return err
	}

	if err := o.log.Advance(id, StatusSigningTransfer); err != nil {
		return err
	}
	raw, err := o.aggregator.Execute(ctx, backend.ExecuteRequest{
		Quote:     q.Aggregator,
		Sender:    v.Sender,
		Recipient: v.Recipient,
	})
	if err != nil {
		return fmt.Errorf("aggregator execution failed: %w", err)
	}

	if err := o.log.Advance(id, StatusConfirmingTransfer); err != nil {
		return err
	}
	outcome := backend.DecodeExecutionResult(raw)
	if outcome.Kind == backend.TrackingUnknown {
		// Not a failure: the transfer confirms, it just cannot be tracked.
		orchLog.Warn().Int64("id", id).Msg("Aggregator result carried no trackable id")
	} else {
		if err := o.log.Update(id, func(r *Record) {
			r.TrackingID = outcome.TrackingID
			if outcome.Kind == backend.TrackingSteps || outcome.Kind == backend.TrackingFlat {
				r.OriginTxHash = outcome.TrackingID
			}
		}); err != nil {
			return err
		}
	}
	return o.log.Advance(id, StatusConfirmedTransfer)
}

func (o *Orchestrator) ensureWalletChain(ctx context.Context, want int64) error {
	if o.wallet == nil {
		return nil
	}
	active, err := o.wallet.ActiveChainID(ctx)
	if err != nil {
		return fmt.Errorf("%w: cannot read active network: %v", ErrChainMismatch, err)
	}
	if active == want {
		return nil
	}
	if err := o.wallet.SwitchChain(ctx, want); err != nil {
		return fmt.Errorf("%w: expected chain %d, switch failed: %v", ErrChainMismatch, want, err)
	}
	return nil
}

// fail records a terminal failure and notifies the user according to the
// error taxonomy. A wallet rejection is bookkept but stays silent.
func (o *Orchestrator) fail(id int64, selected router.Backend, cause error) {
	at := StatusPreparing
	if rec, ok := o.log.Get(id); ok {
		at = rec.Status
	}
	if err := o.log.Advance(id, StatusFailed); err != nil {
		orchLog.Error().Err(err).Int64("id", id).Msg("Could not mark transfer failed")
	}

	if IsUserRejection(cause) {
		orchLog.Info().Int64("id", id).Msg("Transfer cancelled at the wallet prompt")
		o.metrics.observeRejection()
		o.metrics.observeOutcome(string(selected), "rejected")
		return
	}

	orchLog.Error().Err(cause).Int64("id", id).Str("status", at.String()).Msg("Transfer failed")
	o.metrics.observeOutcome(string(selected), "failed")

	switch {
	case errors.Is(cause, ErrNoTokenConnection), errors.Is(cause, ErrUnsupportedRoute):
		o.notifier.Error("This route is not supported")
	case errors.Is(cause, ErrInsufficientCollateral):
		o.notifier.Error("Insufficient liquidity on the destination chain for this amount")
	case errors.Is(cause, ErrChainMismatch):
		o.notifier.Error("Your wallet is connected to the wrong network")
	default:
		o.notifier.Error(FailureMessage(at))
	}
}
