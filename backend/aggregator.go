package backend

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/shopspring/decimal"
)

// NativeTokenSentinel is the address aggregators use to denote a chain's
// native asset instead of a deployed token contract.
const NativeTokenSentinel = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

// TradeType selects which side of an aggregator quote is exact.
type TradeType string

const (
	TradeExactInput  TradeType = "EXACT_INPUT"
	TradeExactOutput TradeType = "EXACT_OUTPUT"
)

// QuoteRequest is the aggregator quote call. Amounts are base units.
type QuoteRequest struct {
	OriginChainID       int64
	DestinationChainID  int64
	OriginCurrency      string
	DestinationCurrency string
	Amount              *big.Int
	TradeType           TradeType
	Sender              string
	Recipient           string
}

// CurrencyAmount is one side of an aggregator quote: a base-unit amount plus
// the decimals needed to read it.
type CurrencyAmount struct {
	Amount   string `json:"amount"`
	Decimals int32  `json:"decimals"`
	Symbol   string `json:"symbol"`
}

// Decimal converts the base-unit amount to human decimal units.
func (c CurrencyAmount) Decimal() (decimal.Decimal, error) {
	raw, err := decimal.NewFromString(c.Amount)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return raw.Shift(-c.Decimals), nil
}

// FeeBreakdown is the fee detail attached to a quote, human decimal units.
type FeeBreakdown struct {
	Gas     decimal.Decimal `json:"gas"`
	Relayer decimal.Decimal `json:"relayer"`
}

// Quote is an aggregator price quote, held verbatim for later execution.
type Quote struct {
	CurrencyIn  CurrencyAmount  `json:"currencyIn"`
	CurrencyOut CurrencyAmount  `json:"currencyOut"`
	Fees        FeeBreakdown    `json:"fees"`
	Raw         json.RawMessage `json:"-"` // full response, passed back to Execute
}

// ExecuteRequest executes a previously obtained quote.
type ExecuteRequest struct {
	Quote     *Quote
	Sender    string
	Recipient string
}

// AggregatorClient is the liquidity-aggregator SDK surface the core consumes.
type AggregatorClient interface {
	// GetQuote obtains a price/fee quote for the route. No retries here;
	// backoff is the SDK's concern.
	GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error)

	// Execute runs the quoted swap. The result shape is implementation
	// defined; decode it with DecodeExecutionResult.
	Execute(ctx context.Context, req ExecuteRequest) (json.RawMessage, error)

	// TrackingStatus reports whether a tracked execution has settled on the
	// destination chain.
	TrackingStatus(ctx context.Context, trackingID string) (bool, error)
}
