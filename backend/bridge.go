// Package backend declares the boundary to the two transfer backends. Both
// SDKs are external collaborators; this package owns only the interfaces the
// core calls and the DTOs crossing them.
package backend

import (
	"context"
	"encoding/json"

	"github.com/forma-dev/bridge-core/catalog"
	"github.com/shopspring/decimal"
)

// TxCategory tags each transaction the bridge SDK asks the wallet to send.
type TxCategory string

const (
	TxApproval TxCategory = "approval"
	TxTransfer TxCategory = "transfer"
	TxRevoke   TxCategory = "revoke"
)

// Tx is one transaction in the ordered list the bridge SDK builds for a
// transfer. Data is an opaque payload handed verbatim to the wallet.
type Tx struct {
	Category TxCategory
	Chain    string
	Data     json.RawMessage
}

// Receipt is the chain confirmation of a sent transaction.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	Success     bool
	Logs        []json.RawMessage
}

// PendingTx is a transaction accepted by the wallet, not yet confirmed.
type PendingTx interface {
	Hash() string
	// Confirm blocks until the transaction is confirmed on chain.
	Confirm(ctx context.Context) (*Receipt, error)
}

// TxSender signs and submits transactions for one protocol family.
type TxSender interface {
	Send(ctx context.Context, tx Tx) (PendingTx, error)
}

// FeeQuote is the bridge backend's fee estimate for a transfer, in human
// decimal units of the origin chain's fee asset.
type FeeQuote struct {
	LocalQuote      decimal.Decimal // origin-chain gas
	InterchainQuote decimal.Decimal // interchain relay fee
}

// Total returns the summed fee components.
func (q FeeQuote) Total() decimal.Decimal {
	return q.LocalQuote.Add(q.InterchainQuote)
}

// TransferRemoteRequest describes the transfer the bridge SDK should build
// transactions for.
type TransferRemoteRequest struct {
	Origin       string
	Destination  string
	TokenAddress string
	Amount       decimal.Decimal
	Sender       string
	Recipient    string
}

// BridgeClient is the message-passing bridge SDK surface the core consumes.
type BridgeClient interface {
	// FindToken resolves a token by chain and address or denomination.
	FindToken(chain, addressOrDenom string) (*catalog.TokenRecord, error)

	// TokenChains lists the internal names of every chain the bridge has
	// route metadata for.
	TokenChains() []string

	// TokensForRoute lists origin tokens with a declared connection to the
	// destination chain. Empty means the route has no bridge path.
	TokensForRoute(origin, destination string) []catalog.TokenRecord

	// QuoteTransferFees estimates local and interchain fees for a transfer
	// of the given amount.
	QuoteTransferFees(ctx context.Context, req TransferRemoteRequest) (*FeeQuote, error)

	// MaxTransferAmount is the whole-balance max-amount query used as a
	// fallback when fee quoting fails.
	MaxTransferAmount(ctx context.Context, req TransferRemoteRequest) (decimal.Decimal, error)

	// DestinationCollateralSufficient reports whether the destination side
	// holds enough collateral to release the requested amount.
	DestinationCollateralSufficient(ctx context.Context, req TransferRemoteRequest) (bool, error)

	// TransferRemoteTxs builds the ordered transaction list for a transfer.
	// An approval precedes the transfer only when the token requires a prior
	// allowance grant.
	TransferRemoteTxs(ctx context.Context, req TransferRemoteRequest) ([]Tx, error)

	// Sender returns the transaction sender for a protocol family.
	Sender(family catalog.Family) (TxSender, error)

	// MessageIDFromReceipt derives the interchain message identifier from a
	// confirmed receipt, if the protocol embedded one.
	MessageIDFromReceipt(receipt *Receipt) (string, bool)

	// IsMessageDelivered reports whether the destination chain has processed
	// the message.
	IsMessageDelivered(ctx context.Context, messageID string) (bool, error)
}
