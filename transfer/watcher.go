package transfer

import (
	"context"
	"time"

	"github.com/forma-dev/bridge-core/backend"
	"github.com/forma-dev/bridge-core/router"
)

// DeliveryWatcher polls confirmed transfers until the destination chain
// reports delivery. It owns the ConfirmedTransfer to Delivered edge; the
// orchestrator never advances past ConfirmedTransfer itself.
type DeliveryWatcher struct {
	log        *Log
	bridge     backend.BridgeClient
	aggregator backend.AggregatorClient
	metrics    *Metrics
	interval   time.Duration
}

// NewDeliveryWatcher builds a watcher polling at the given interval. A zero
// interval defaults to 15 seconds.
func NewDeliveryWatcher(log *Log, bridge backend.BridgeClient, aggregator backend.AggregatorClient, metrics *Metrics, interval time.Duration) *DeliveryWatcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &DeliveryWatcher{
		log:        log,
		bridge:     bridge,
		aggregator: aggregator,
		metrics:    metrics,
		interval:   interval,
	}
}

// Run polls until ctx is cancelled. Intended to be started as a goroutine
// alongside the server.
func (w *DeliveryWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep checks every confirmed transfer once. Records without a trackable
// identifier are skipped; they stay in ConfirmedTransfer.
func (w *DeliveryWatcher) Sweep(ctx context.Context) {
	for _, rec := range w.log.List() {
		if rec.Status != StatusConfirmedTransfer {
			continue
		}
		delivered, err := w.check(ctx, rec)
		if err != nil {
			orchLog.Debug().Err(err).Int64("id", rec.ID).Msg("Delivery check failed, will retry")
			continue
		}
		if !delivered {
			continue
		}
		if err := w.log.Advance(rec.ID, StatusDelivered); err != nil {
			orchLog.Warn().Err(err).Int64("id", rec.ID).Msg("Could not mark transfer delivered")
			continue
		}
		w.metrics.observeDelivery(string(rec.Backend))
		orchLog.Info().Int64("id", rec.ID).Msg("Transfer delivered")
	}
}

func (w *DeliveryWatcher) check(ctx context.Context, rec Record) (bool, error) {
	switch rec.Backend {
	case router.BackendAggregator:
		if rec.TrackingID == "" {
			return false, nil
		}
		return w.aggregator.TrackingStatus(ctx, rec.TrackingID)
	default:
		if rec.MessageID == "" {
			return false, nil
		}
		return w.bridge.IsMessageDelivered(ctx, rec.MessageID)
	}
}
