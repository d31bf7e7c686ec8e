// Package warpquery implements the bridge backend against the warp route
// HTTP API and the local catalog. Route metadata (tokens, connections) is
// answered from the catalog; fee quotes, collateral checks and transaction
// construction go to the API.
package warpquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/forma-dev/bridge-core/backend"
	"github.com/forma-dev/bridge-core/catalog"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "warpquery").Logger()
}

// dispatchIDTopic is the log topic of the DispatchId event the mailbox emits
// on the origin chain; its payload carries the interchain message id.
var dispatchIDTopic = common.HexToHash("0x788dbc1b7152732178210e7f4d9d010ef016f9eafbe66786bd7169f56e0c353a")

// Config configures the warp API client.
type Config struct {
	// APIURL is the warp route API serving quotes and transaction building.
	APIURL string
	// ExplorerURL is the message explorer used for delivery checks.
	ExplorerURL string
	// Timeout is the HTTP request timeout. Zero means 10 seconds.
	Timeout time.Duration
}

// Client is the bridge backend. Senders are registered per protocol family
// by the wiring layer.
type Client struct {
	catalog     *catalog.Catalog
	httpClient  *http.Client
	apiURL      string
	explorerURL string
	senders     map[catalog.Family]backend.TxSender
}

// NewClient creates a bridge client over the given catalog.
func NewClient(cat *catalog.Catalog, cfg Config) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("warp API URL is required")
	}
	if _, err := url.Parse(cfg.APIURL); err != nil {
		return nil, fmt.Errorf("invalid warp API URL %q: %w", cfg.APIURL, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		catalog:     cat,
		httpClient:  &http.Client{Timeout: timeout},
		apiURL:      cfg.APIURL,
		explorerURL: cfg.ExplorerURL,
		senders:     make(map[catalog.Family]backend.TxSender),
	}, nil
}

// RegisterSender attaches the transaction sender for a protocol family.
func (c *Client) RegisterSender(family catalog.Family, sender backend.TxSender) {
	c.senders[family] = sender
}

// FindToken implements backend.BridgeClient.
func (c *Client) FindToken(chain, addressOrDenom string) (*catalog.TokenRecord, error) {
	name := catalog.Normalize(chain)
	for _, token := range c.catalog.BridgeTokens(name) {
		if token.AddressOrDenom == addressOrDenom {
			t := token
			return &t, nil
		}
	}
	return nil, fmt.Errorf("no token %s on chain %s", addressOrDenom, name)
}

// TokenChains implements backend.BridgeClient.
func (c *Client) TokenChains() []string {
	chains := c.catalog.BridgeChains()
	out := make([]string, 0, len(chains))
	for _, rec := range chains {
		out = append(out, rec.Name)
	}
	return out
}

// TokensForRoute implements backend.BridgeClient.
func (c *Client) TokensForRoute(origin, destination string) []catalog.TokenRecord {
	return c.catalog.TokensForRoute(origin, destination)
}

type feeQuoteResponse struct {
	LocalQuote      decimal.Decimal `json:"localQuote"`
	InterchainQuote decimal.Decimal `json:"interchainQuote"`
}

// QuoteTransferFees implements backend.BridgeClient.
func (c *Client) QuoteTransferFees(ctx context.Context, req backend.TransferRemoteRequest) (*backend.FeeQuote, error) {
	var resp feeQuoteResponse
	if err := c.post(ctx, "/v1/fees", transferBody(req), &resp); err != nil {
		return nil, fmt.Errorf("fee quote failed: %w", err)
	}
	return &backend.FeeQuote{
		LocalQuote:      resp.LocalQuote,
		InterchainQuote: resp.InterchainQuote,
	}, nil
}

// MaxTransferAmount implements backend.BridgeClient.
func (c *Client) MaxTransferAmount(ctx context.Context, req backend.TransferRemoteRequest) (decimal.Decimal, error) {
	var resp struct {
		MaxAmount decimal.Decimal `json:"maxAmount"`
	}
	if err := c.post(ctx, "/v1/max-amount", transferBody(req), &resp); err != nil {
		return decimal.Decimal{}, fmt.Errorf("max amount query failed: %w", err)
	}
	return resp.MaxAmount, nil
}

// DestinationCollateralSufficient implements backend.BridgeClient.
func (c *Client) DestinationCollateralSufficient(ctx context.Context, req backend.TransferRemoteRequest) (bool, error) {
	var resp struct {
		Collateral decimal.Decimal `json:"collateral"`
	}
	if err := c.post(ctx, "/v1/collateral", transferBody(req), &resp); err != nil {
		return false, fmt.Errorf("collateral query failed: %w", err)
	}
	return resp.Collateral.GreaterThanOrEqual(req.Amount), nil
}

type txsResponse struct {
	Txs []struct {
		Category string          `json:"category"`
		Chain    string          `json:"chain"`
		Data     json.RawMessage `json:"data"`
	} `json:"txs"`
}

// TransferRemoteTxs implements backend.BridgeClient.
func (c *Client) TransferRemoteTxs(ctx context.Context, req backend.TransferRemoteRequest) ([]backend.Tx, error) {
	var resp txsResponse
	if err := c.post(ctx, "/v1/transfer-txs", transferBody(req), &resp); err != nil {
		return nil, fmt.Errorf("transaction build failed: %w", err)
	}

	out := make([]backend.Tx, 0, len(resp.Txs))
	for _, tx := range resp.Txs {
		out = append(out, backend.Tx{
			Category: backend.TxCategory(tx.Category),
			Chain:    catalog.Normalize(tx.Chain),
			Data:     tx.Data,
		})
	}
	return out, nil
}

// Sender implements backend.BridgeClient.
func (c *Client) Sender(family catalog.Family) (backend.TxSender, error) {
	sender, ok := c.senders[family]
	if !ok {
		return nil, fmt.Errorf("no sender registered for family %q", family)
	}
	return sender, nil
}

// MessageIDFromReceipt implements backend.BridgeClient. It scans the receipt
// logs for the DispatchId event and returns its payload.
func (c *Client) MessageIDFromReceipt(receipt *backend.Receipt) (string, bool) {
	if receipt == nil {
		return "", false
	}
	for _, raw := range receipt.Logs {
		var entry types.Log
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if len(entry.Topics) == 0 || entry.Topics[0] != dispatchIDTopic {
			continue
		}
		if len(entry.Topics) > 1 {
			return entry.Topics[1].Hex(), true
		}
		if len(entry.Data) > 0 {
			return hexutil.Encode(entry.Data), true
		}
	}
	return "", false
}

// IsMessageDelivered implements backend.BridgeClient via the explorer API.
func (c *Client) IsMessageDelivered(ctx context.Context, messageID string) (bool, error) {
	if c.explorerURL == "" {
		return false, fmt.Errorf("no explorer configured for delivery checks")
	}
	fullURL := fmt.Sprintf("%s/v1/messages/%s", c.explorerURL, url.PathEscape(messageID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return false, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var msg struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return false, fmt.Errorf("failed to parse message status: %w", err)
	}
	return msg.Status == "delivered", nil
}

func transferBody(req backend.TransferRemoteRequest) map[string]any {
	return map[string]any{
		"origin":       req.Origin,
		"destination":  req.Destination,
		"tokenAddress": req.TokenAddress,
		"amount":       req.Amount,
		"sender":       req.Sender,
		"recipient":    req.Recipient,
	}
}

func (c *Client) post(ctx context.Context, path string, body any, dst any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	respBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, dst); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", path, err)
	}
	return nil
}
