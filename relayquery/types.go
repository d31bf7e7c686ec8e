package relayquery

import "encoding/json"

// chainsResponse is the aggregator's chain listing.
type chainsResponse struct {
	Chains []chainEntry `json:"chains"`
}

type chainEntry struct {
	ID             int64         `json:"id"`
	Name           string        `json:"name"`
	DisplayName    string        `json:"displayName"`
	Currency       chainCurrency `json:"currency"`
	Disabled       bool          `json:"disabled"`
	DepositEnabled bool          `json:"depositEnabled"`
}

type chainCurrency struct {
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}

// currenciesRequest is the body for the per-chain currency listing.
type currenciesRequest struct {
	ChainIDs []int64 `json:"chainIds"`
	Limit    int     `json:"limit,omitempty"`
	Verified bool    `json:"verified,omitempty"`
}

type currencyEntry struct {
	ChainID  int64            `json:"chainId"`
	Address  string           `json:"address"`
	Symbol   string           `json:"symbol"`
	Name     string           `json:"name"`
	Decimals int32            `json:"decimals"`
	Metadata currencyMetadata `json:"metadata"`
}

type currencyMetadata struct {
	LogoURI  string `json:"logoURI"`
	Verified bool   `json:"verified"`
}

// quoteRequest is the body for the quote endpoint.
type quoteRequest struct {
	User                 string `json:"user"`
	Recipient            string `json:"recipient"`
	OriginChainID        int64  `json:"originChainId"`
	DestinationChainID   int64  `json:"destinationChainId"`
	OriginCurrency       string `json:"originCurrency"`
	DestinationCurrency  string `json:"destinationCurrency"`
	Amount               string `json:"amount"`
	TradeType            string `json:"tradeType"`
	UseExternalLiquidity bool   `json:"useExternalLiquidity,omitempty"`
}

type quoteResponse struct {
	Details quoteDetails `json:"details"`
	Fees    quoteFees    `json:"fees"`
	Steps   []quoteStep  `json:"steps"`
}

type quoteDetails struct {
	CurrencyIn  currencyAmount `json:"currencyIn"`
	CurrencyOut currencyAmount `json:"currencyOut"`
}

type currencyAmount struct {
	Currency struct {
		Symbol   string `json:"symbol"`
		Decimals int32  `json:"decimals"`
	} `json:"currency"`
	Amount string `json:"amount"`
}

type quoteFees struct {
	Gas     *feeAmount `json:"gas"`
	Relayer *feeAmount `json:"relayer"`
}

type feeAmount struct {
	Amount          string `json:"amount"`
	AmountFormatted string `json:"amountFormatted"`
}

type quoteStep struct {
	ID    string          `json:"id"`
	Kind  string          `json:"kind"`
	Items json.RawMessage `json:"items"`
}

// statusResponse is the tracking endpoint's shape. The status field is one
// of: waiting, pending, success, failure, refund.
type statusResponse struct {
	Status string `json:"status"`
	TxHash string `json:"txHash"`
}
