package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/forma-dev/bridge-core/catalog"
	"github.com/shopspring/decimal"
)

// FakeBridge is a BridgeClient with overridable behavior, used by tests and
// by local development wiring. Unset funcs fall back to benign defaults.
type FakeBridge struct {
	FindTokenFunc                       func(chain, addressOrDenom string) (*catalog.TokenRecord, error)
	TokenChainsFunc                     func() []string
	TokensForRouteFunc                  func(origin, destination string) []catalog.TokenRecord
	QuoteTransferFeesFunc               func(ctx context.Context, req TransferRemoteRequest) (*FeeQuote, error)
	MaxTransferAmountFunc               func(ctx context.Context, req TransferRemoteRequest) (decimal.Decimal, error)
	DestinationCollateralSufficientFunc func(ctx context.Context, req TransferRemoteRequest) (bool, error)
	TransferRemoteTxsFunc               func(ctx context.Context, req TransferRemoteRequest) ([]Tx, error)
	SenderFunc                          func(family catalog.Family) (TxSender, error)
	MessageIDFromReceiptFunc            func(receipt *Receipt) (string, bool)
	IsMessageDeliveredFunc              func(ctx context.Context, messageID string) (bool, error)
}

func (f *FakeBridge) FindToken(chain, addressOrDenom string) (*catalog.TokenRecord, error) {
	if f.FindTokenFunc != nil {
		return f.FindTokenFunc(chain, addressOrDenom)
	}
	return nil, fmt.Errorf("no token %s on %s", addressOrDenom, chain)
}

func (f *FakeBridge) TokenChains() []string {
	if f.TokenChainsFunc != nil {
		return f.TokenChainsFunc()
	}
	return nil
}

func (f *FakeBridge) TokensForRoute(origin, destination string) []catalog.TokenRecord {
	if f.TokensForRouteFunc != nil {
		return f.TokensForRouteFunc(origin, destination)
	}
	return nil
}

func (f *FakeBridge) QuoteTransferFees(ctx context.Context, req TransferRemoteRequest) (*FeeQuote, error) {
	if f.QuoteTransferFeesFunc != nil {
		return f.QuoteTransferFeesFunc(ctx, req)
	}
	return &FeeQuote{}, nil
}

func (f *FakeBridge) MaxTransferAmount(ctx context.Context, req TransferRemoteRequest) (decimal.Decimal, error) {
	if f.MaxTransferAmountFunc != nil {
		return f.MaxTransferAmountFunc(ctx, req)
	}
	return req.Amount, nil
}

func (f *FakeBridge) DestinationCollateralSufficient(ctx context.Context, req TransferRemoteRequest) (bool, error) {
	if f.DestinationCollateralSufficientFunc != nil {
		return f.DestinationCollateralSufficientFunc(ctx, req)
	}
	return true, nil
}

func (f *FakeBridge) TransferRemoteTxs(ctx context.Context, req TransferRemoteRequest) ([]Tx, error) {
	if f.TransferRemoteTxsFunc != nil {
		return f.TransferRemoteTxsFunc(ctx, req)
	}
	return []Tx{{Category: TxTransfer, Chain: req.Origin}}, nil
}

func (f *FakeBridge) Sender(family catalog.Family) (TxSender, error) {
	if f.SenderFunc != nil {
		return f.SenderFunc(family)
	}
	return &FakeSender{}, nil
}

func (f *FakeBridge) MessageIDFromReceipt(receipt *Receipt) (string, bool) {
	if f.MessageIDFromReceiptFunc != nil {
		return f.MessageIDFromReceiptFunc(receipt)
	}
	return "", false
}

func (f *FakeBridge) IsMessageDelivered(ctx context.Context, messageID string) (bool, error) {
	if f.IsMessageDeliveredFunc != nil {
		return f.IsMessageDeliveredFunc(ctx, messageID)
	}
	return false, nil
}

// FakeSender accepts every transaction and confirms it immediately.
type FakeSender struct {
	SendFunc func(ctx context.Context, tx Tx) (PendingTx, error)
	Sent     []Tx
}

func (f *FakeSender) Send(ctx context.Context, tx Tx) (PendingTx, error) {
	f.Sent = append(f.Sent, tx)
	if f.SendFunc != nil {
		return f.SendFunc(ctx, tx)
	}
	hash := fmt.Sprintf("0xfake%d", len(f.Sent))
	return &FakePendingTx{TxHash: hash}, nil
}

// FakePendingTx confirms with a successful receipt.
type FakePendingTx struct {
	TxHash      string
	ConfirmFunc func(ctx context.Context) (*Receipt, error)
}

func (f *FakePendingTx) Hash() string { return f.TxHash }

func (f *FakePendingTx) Confirm(ctx context.Context) (*Receipt, error) {
	if f.ConfirmFunc != nil {
		return f.ConfirmFunc(ctx)
	}
	return &Receipt{TxHash: f.TxHash, Success: true}, nil
}

// FakeAggregator is an AggregatorClient with overridable behavior.
type FakeAggregator struct {
	GetQuoteFunc       func(ctx context.Context, req QuoteRequest) (*Quote, error)
	ExecuteFunc        func(ctx context.Context, req ExecuteRequest) (json.RawMessage, error)
	TrackingStatusFunc func(ctx context.Context, trackingID string) (bool, error)
}

func (f *FakeAggregator) GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if f.GetQuoteFunc != nil {
		return f.GetQuoteFunc(ctx, req)
	}
	return nil, fmt.Errorf("no quote available")
}

func (f *FakeAggregator) Execute(ctx context.Context, req ExecuteRequest) (json.RawMessage, error) {
	if f.ExecuteFunc != nil {
		return f.ExecuteFunc(ctx, req)
	}
	return json.RawMessage(`{}`), nil
}

func (f *FakeAggregator) TrackingStatus(ctx context.Context, trackingID string) (bool, error) {
	if f.TrackingStatusFunc != nil {
		return f.TrackingStatusFunc(ctx, trackingID)
	}
	return false, nil
}
