// Package relayquery talks to the liquidity-aggregator HTTP API with
// endpoint failover. It feeds the catalog's chain and currency listings and
// serves quotes, executions and settlement tracking.
package relayquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/forma-dev/bridge-core/backend"
	"github.com/forma-dev/bridge-core/catalog"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "relayquery").Logger()
}

// Client queries the aggregator API. It maintains a primary endpoint and
// switches to backups when the primary stops answering.
type Client struct {
	httpClient     *http.Client
	primaryURL     string
	backupURLs     []string
	currentURL     string
	mu             sync.RWMutex
	healthChecker  *healthChecker
	failoverConfig FailoverConfig
}

// FailoverConfig controls retry and failover behavior.
type FailoverConfig struct {
	// MaxRetries is the number of times to retry a failed request on the current endpoint
	MaxRetries int
	// RetryDelay is the initial delay between retries (doubles with each retry)
	RetryDelay time.Duration
	// HealthCheckInterval is how often to check if the primary endpoint is back up
	HealthCheckInterval time.Duration
	// Timeout is the HTTP request timeout
	Timeout time.Duration
}

// DefaultFailoverConfig returns sensible defaults for failover behavior.
func DefaultFailoverConfig() FailoverConfig {
	return FailoverConfig{
		MaxRetries:          2,
		RetryDelay:          500 * time.Millisecond,
		HealthCheckInterval: 30 * time.Second,
		Timeout:             10 * time.Second,
	}
}

type healthChecker struct {
	client    *Client
	stopCh    chan struct{}
	stoppedCh chan struct{}
	isRunning bool
	mu        sync.Mutex
}

// NewClient creates a client with a single endpoint.
func NewClient(apiURL string) (*Client, error) {
	return NewClientWithFailover(apiURL, nil, DefaultFailoverConfig())
}

// NewClientWithFailover creates a client with failover support.
func NewClientWithFailover(primaryURL string, backupURLs []string, config FailoverConfig) (*Client, error) {
	if _, err := url.Parse(primaryURL); err != nil {
		return nil, fmt.Errorf("invalid primary API URL %q: %w", primaryURL, err)
	}

	validBackups := make([]string, 0, len(backupURLs))
	for _, u := range backupURLs {
		if _, err := url.Parse(u); err != nil {
			log.Warn().Err(err).Str("url", u).Msg("Invalid backup URL, skipping")
			continue
		}
		validBackups = append(validBackups, u)
	}

	client := &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		primaryURL:     primaryURL,
		backupURLs:     validBackups,
		currentURL:     primaryURL,
		failoverConfig: config,
	}

	if len(validBackups) > 0 {
		client.startHealthChecker()
	}

	log.Info().
		Str("primary", primaryURL).
		Int("backups", len(validBackups)).
		Msg("Aggregator client initialized")
	return client, nil
}

func (c *Client) startHealthChecker() {
	c.healthChecker = &healthChecker{
		client:    c,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	c.healthChecker.start()
}

func (h *healthChecker) start() {
	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		return
	}
	h.isRunning = true
	h.mu.Unlock()

	go func() {
		defer close(h.stoppedCh)
		ticker := time.NewTicker(h.client.failoverConfig.HealthCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-h.stopCh:
				return
			case <-ticker.C:
				h.checkAndRestore()
			}
		}
	}()
}

func (h *healthChecker) stop() {
	h.mu.Lock()
	if !h.isRunning {
		h.mu.Unlock()
		return
	}
	h.isRunning = false
	h.mu.Unlock()

	close(h.stopCh)
	<-h.stoppedCh
}

// checkAndRestore moves the client back to the primary once it answers again.
func (h *healthChecker) checkAndRestore() {
	h.client.mu.RLock()
	currentURL := h.client.currentURL
	primaryURL := h.client.primaryURL
	h.client.mu.RUnlock()

	if currentURL == primaryURL {
		return
	}

	if h.client.isEndpointHealthy(primaryURL) {
		h.client.mu.Lock()
		h.client.currentURL = primaryURL
		h.client.mu.Unlock()
		log.Info().Str("url", primaryURL).Msg("Restored primary endpoint")
	}
}

func (c *Client) isEndpointHealthy(endpoint string) bool {
	healthURL := fmt.Sprintf("%s/lives", endpoint)
	resp, err := c.httpClient.Get(healthURL)
	if err != nil {
		log.Debug().Err(err).Str("url", healthURL).Msg("Health check failed")
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	log.Debug().Str("url", healthURL).Int("status", resp.StatusCode).Msg("Health check response")
	return resp.StatusCode == http.StatusOK
}

func (c *Client) getCurrentURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentURL
}

// failover switches to the next healthy endpoint in the list. The health
// probes run without the lock held so concurrent requests keep reading the
// current URL while candidates are checked.
func (c *Client) failover() bool {
	c.mu.RLock()
	currentURL := c.currentURL
	allURLs := append([]string{c.primaryURL}, c.backupURLs...)
	c.mu.RUnlock()

	currentIdx := -1
	for i, u := range allURLs {
		if u == currentURL {
			currentIdx = i
			break
		}
	}

	for i := 1; i <= len(allURLs); i++ {
		nextIdx := (currentIdx + i) % len(allURLs)
		nextURL := allURLs[nextIdx]
		if nextURL == currentURL {
			continue
		}
		if c.isEndpointHealthy(nextURL) {
			c.mu.Lock()
			c.currentURL = nextURL
			c.mu.Unlock()
			log.Info().Str("url", nextURL).Msg("Failover to endpoint")
			return true
		}
	}

	log.Warn().Str("url", currentURL).Msg("All endpoints unhealthy, staying on current")
	return false
}

// Close stops the health checker.
func (c *Client) Close() {
	if c.healthChecker != nil {
		c.healthChecker.stop()
	}
}

// doRequest performs one HTTP call with retry on the current endpoint, then
// one attempt on a failover endpoint.
func (c *Client) doRequest(ctx context.Context, method, path string, reqBody []byte) ([]byte, error) {
	var lastErr error
	retryDelay := c.failoverConfig.RetryDelay

	for attempt := 0; attempt <= c.failoverConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
		}

		body, err := c.doOnce(ctx, method, c.getCurrentURL()+path, reqBody)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}

	if len(c.backupURLs) > 0 && c.failover() {
		body, err := c.doOnce(ctx, method, c.getCurrentURL()+path, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failover request failed: %w (original: %w)", err, lastErr)
		}
		return body, nil
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", c.failoverConfig.MaxRetries+1, lastErr)
}

func (c *Client) doOnce(ctx context.Context, method, fullURL string, reqBody []byte) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		bodyReader = bytes.NewReader(reqBody)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// Chains implements catalog.AggregatorSource.
func (c *Client) Chains(ctx context.Context) ([]catalog.AggregatorChain, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/chains", nil)
	if err != nil {
		return nil, err
	}

	var resp chainsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse chains response: %w", err)
	}

	out := make([]catalog.AggregatorChain, 0, len(resp.Chains))
	for _, entry := range resp.Chains {
		out = append(out, catalog.AggregatorChain{
			ID:             entry.ID,
			Name:           entry.Name,
			DisplayName:    entry.DisplayName,
			NativeSymbol:   entry.Currency.Symbol,
			NativeDecimals: entry.Currency.Decimals,
			Disabled:       entry.Disabled,
			DepositEnabled: entry.DepositEnabled,
		})
	}
	return out, nil
}

// Currencies implements catalog.AggregatorSource.
func (c *Client) Currencies(ctx context.Context, chainID int64) ([]catalog.AggregatorCurrency, error) {
	reqBody, err := json.Marshal(currenciesRequest{
		ChainIDs: []int64{chainID},
		Limit:    100,
		Verified: true,
	})
	if err != nil {
		return nil, err
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/currencies/v2", reqBody)
	if err != nil {
		return nil, err
	}

	var entries []currencyEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse currencies response: %w", err)
	}

	out := make([]catalog.AggregatorCurrency, 0, len(entries))
	for _, entry := range entries {
		out = append(out, catalog.AggregatorCurrency{
			Address:  entry.Address,
			Symbol:   entry.Symbol,
			Name:     entry.Name,
			Decimals: entry.Decimals,
			LogoURI:  entry.Metadata.LogoURI,
			Featured: entry.Metadata.Verified,
		})
	}
	return out, nil
}

// GetQuote implements backend.AggregatorClient.
func (c *Client) GetQuote(ctx context.Context, req backend.QuoteRequest) (*backend.Quote, error) {
	if req.Amount == nil {
		return nil, fmt.Errorf("quote amount is required")
	}
	tradeType := string(req.TradeType)
	if tradeType == "" {
		tradeType = string(backend.TradeExactInput)
	}

	reqBody, err := json.Marshal(quoteRequest{
		User:                req.Sender,
		Recipient:           req.Recipient,
		OriginChainID:       req.OriginChainID,
		DestinationChainID:  req.DestinationChainID,
		OriginCurrency:      req.OriginCurrency,
		DestinationCurrency: req.DestinationCurrency,
		Amount:              req.Amount.String(),
		TradeType:           tradeType,
	})
	if err != nil {
		return nil, err
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/quote", reqBody)
	if err != nil {
		return nil, err
	}

	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse quote response: %w", err)
	}

	quote := &backend.Quote{
		CurrencyIn: backend.CurrencyAmount{
			Amount:   resp.Details.CurrencyIn.Amount,
			Decimals: resp.Details.CurrencyIn.Currency.Decimals,
			Symbol:   resp.Details.CurrencyIn.Currency.Symbol,
		},
		CurrencyOut: backend.CurrencyAmount{
			Amount:   resp.Details.CurrencyOut.Amount,
			Decimals: resp.Details.CurrencyOut.Currency.Decimals,
			Symbol:   resp.Details.CurrencyOut.Currency.Symbol,
		},
		Raw: body,
	}
	if resp.Fees.Gas != nil {
		quote.Fees.Gas = parseFormattedFee(resp.Fees.Gas)
	}
	if resp.Fees.Relayer != nil {
		quote.Fees.Relayer = parseFormattedFee(resp.Fees.Relayer)
	}
	return quote, nil
}

func parseFormattedFee(fee *feeAmount) decimal.Decimal {
	if fee.AmountFormatted != "" {
		if d, err := decimal.NewFromString(fee.AmountFormatted); err == nil {
			return d
		}
	}
	if d, err := decimal.NewFromString(fee.Amount); err == nil {
		return d
	}
	return decimal.Zero
}

// Execute implements backend.AggregatorClient. The quote's raw response is
// submitted back; the API replies with the execution steps it performed.
func (c *Client) Execute(ctx context.Context, req backend.ExecuteRequest) (json.RawMessage, error) {
	if req.Quote == nil || len(req.Quote.Raw) == 0 {
		return nil, fmt.Errorf("execute requires a quote")
	}

	return c.doRequest(ctx, http.MethodPost, "/execute", req.Quote.Raw)
}

// TrackingStatus implements backend.AggregatorClient.
func (c *Client) TrackingStatus(ctx context.Context, trackingID string) (bool, error) {
	path := fmt.Sprintf("/intents/status?requestId=%s", url.QueryEscape(trackingID))
	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return false, err
	}

	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("failed to parse status response: %w", err)
	}
	return resp.Status == "success", nil
}
