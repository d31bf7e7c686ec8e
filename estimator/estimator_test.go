package estimator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/forma-dev/bridge-core/backend"
	"github.com/forma-dev/bridge-core/estimator"
	"github.com/forma-dev/bridge-core/notify"
	"github.com/forma-dev/bridge-core/router"
	"github.com/shopspring/decimal"
	"github.com/zeebo/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBridgeMaxAmount(t *testing.T) {
	bridge := &backend.FakeBridge{
		QuoteTransferFeesFunc: func(ctx context.Context, req backend.TransferRemoteRequest) (*backend.FeeQuote, error) {
			return &backend.FeeQuote{LocalQuote: dec("1"), InterchainQuote: dec("1")}, nil
		},
	}
	recorder := &notify.Recorder{}
	est := estimator.New(bridge, recorder)

	max := est.MaxAmount(context.Background(), estimator.Request{
		Backend: router.BackendBridge,
		Origin:  "celestia",
		Balance: dec("100"),
	})

	// 100 - (1+1)*1.20 = 97.6, shown with four places
	assert.NotNil(t, max)
	assert.True(t, max.Equal(dec("97.6")))
	assert.Equal(t, "97.6000", max.StringFixed(4))
	assert.Equal(t, 0, recorder.WarningCount())
}

func TestBridgeMaxAmountFallback(t *testing.T) {
	bridge := &backend.FakeBridge{
		QuoteTransferFeesFunc: func(ctx context.Context, req backend.TransferRemoteRequest) (*backend.FeeQuote, error) {
			return nil, errors.New("quote unavailable")
		},
		MaxTransferAmountFunc: func(ctx context.Context, req backend.TransferRemoteRequest) (decimal.Decimal, error) {
			return dec("42.12345"), nil
		},
	}
	est := estimator.New(bridge, &notify.Recorder{})

	max := est.MaxAmount(context.Background(), estimator.Request{
		Backend: router.BackendBridge,
		Balance: dec("100"),
	})

	assert.NotNil(t, max)
	// floored, never rounded up
	assert.True(t, max.Equal(dec("42.1234")))
}

func TestBridgeMaxAmountClampsAtZero(t *testing.T) {
	bridge := &backend.FakeBridge{
		QuoteTransferFeesFunc: func(ctx context.Context, req backend.TransferRemoteRequest) (*backend.FeeQuote, error) {
			return &backend.FeeQuote{LocalQuote: dec("90"), InterchainQuote: dec("20")}, nil
		},
	}
	est := estimator.New(bridge, &notify.Recorder{})

	max := est.MaxAmount(context.Background(), estimator.Request{
		Backend: router.BackendBridge,
		Balance: dec("100"),
	})

	assert.NotNil(t, max)
	assert.True(t, max.IsZero())
}

func TestAggregatorMaxAmount(t *testing.T) {
	est := estimator.New(&backend.FakeBridge{}, &notify.Recorder{})

	max := est.MaxAmount(context.Background(), estimator.Request{
		Backend: router.BackendAggregator,
		Balance: dec("50"),
	})

	// 50 - 50*0.01 = 49.5
	assert.NotNil(t, max)
	assert.True(t, max.Equal(dec("49.5")))
	assert.Equal(t, "49.5000", max.StringFixed(4))
}

func TestMaxAmountUnavailable(t *testing.T) {
	bridge := &backend.FakeBridge{
		QuoteTransferFeesFunc: func(ctx context.Context, req backend.TransferRemoteRequest) (*backend.FeeQuote, error) {
			return nil, errors.New("quote unavailable")
		},
		MaxTransferAmountFunc: func(ctx context.Context, req backend.TransferRemoteRequest) (decimal.Decimal, error) {
			return decimal.Decimal{}, errors.New("rpc down")
		},
	}
	recorder := &notify.Recorder{}
	est := estimator.New(bridge, recorder)

	max := est.MaxAmount(context.Background(), estimator.Request{
		Backend:    router.BackendBridge,
		Origin:     "celestia",
		OriginName: "Celestia",
		Balance:    dec("100"),
	})

	// nil means unavailable, and the user is warned with the chain name
	assert.Nil(t, max)
	assert.Equal(t, 1, recorder.WarningCount())
	assert.Equal(t, "Could not estimate the max transferable amount on Celestia", recorder.Warnings[0])
	assert.Equal(t, 0, recorder.ErrorCount())
}
