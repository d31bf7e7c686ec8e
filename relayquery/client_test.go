package relayquery_test

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/forma-dev/bridge-core/backend"
	"github.com/forma-dev/bridge-core/relayquery"
	"github.com/shopspring/decimal"
	"github.com/zeebo/assert"
)

func fastConfig() relayquery.FailoverConfig {
	return relayquery.FailoverConfig{
		MaxRetries:          0,
		RetryDelay:          time.Millisecond,
		HealthCheckInterval: time.Hour,
		Timeout:             2 * time.Second,
	}
}

func newClient(t *testing.T, url string) *relayquery.Client {
	t.Helper()
	client, err := relayquery.NewClientWithFailover(url, nil, fastConfig())
	assert.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestChains(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/chains", r.URL.Path)
		_, _ = w.Write([]byte(`{"chains":[
			{"id":1,"name":"ethereum","displayName":"Ethereum","currency":{"symbol":"ETH","decimals":18},"depositEnabled":true},
			{"id":10,"name":"optimism","displayName":"Optimism","currency":{"symbol":"ETH","decimals":18},"disabled":true}
		]}`))
	}))
	defer srv.Close()

	chains, err := newClient(t, srv.URL).Chains(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, len(chains))
	assert.Equal(t, int64(1), chains[0].ID)
	assert.Equal(t, "Ethereum", chains[0].DisplayName)
	assert.Equal(t, "ETH", chains[0].NativeSymbol)
	assert.Equal(t, int32(18), chains[0].NativeDecimals)
	assert.True(t, chains[0].DepositEnabled)
	assert.True(t, chains[1].Disabled)
}

func TestCurrencies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/currencies/v2", r.URL.Path)

		var req map[string]any
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.DeepEqual(t, []any{float64(1)}, req["chainIds"])
		assert.Equal(t, float64(100), req["limit"])
		assert.Equal(t, true, req["verified"])

		_, _ = w.Write([]byte(`[
			{"chainId":1,"address":"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48","symbol":"USDC","name":"USD Coin","decimals":6,"metadata":{"logoURI":"https://logo/usdc.png","verified":true}}
		]`))
	}))
	defer srv.Close()

	currencies, err := newClient(t, srv.URL).Currencies(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(currencies))
	assert.Equal(t, "USDC", currencies[0].Symbol)
	assert.Equal(t, int32(6), currencies[0].Decimals)
	assert.Equal(t, "https://logo/usdc.png", currencies[0].LogoURI)
	assert.True(t, currencies[0].Featured)
}

func TestGetQuote(t *testing.T) {
	const response = `{
		"details":{
			"currencyIn":{"currency":{"symbol":"TIA","decimals":18},"amount":"1500000000000000000"},
			"currencyOut":{"currency":{"symbol":"ETH","decimals":18},"amount":"990000000000000000"}
		},
		"fees":{
			"gas":{"amount":"210000000000000","amountFormatted":"0.00021"},
			"relayer":{"amount":"10000000000000000","amountFormatted":"0.01"}
		},
		"steps":[{"id":"swap","kind":"transaction"}]
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)

		var req map[string]any
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, float64(984122), req["originChainId"])
		assert.Equal(t, float64(1), req["destinationChainId"])
		assert.Equal(t, "1500000000000000000", req["amount"])
		// trade type defaults when the caller leaves it empty
		assert.Equal(t, "EXACT_INPUT", req["tradeType"])

		_, _ = w.Write([]byte(response))
	}))
	defer srv.Close()

	quote, err := newClient(t, srv.URL).GetQuote(context.Background(), backend.QuoteRequest{
		OriginChainID:       984122,
		DestinationChainID:  1,
		OriginCurrency:      backend.NativeTokenSentinel,
		DestinationCurrency: backend.NativeTokenSentinel,
		Amount:              big.NewInt(1500000000000000000),
	})
	assert.NoError(t, err)

	assert.Equal(t, "990000000000000000", quote.CurrencyOut.Amount)
	assert.Equal(t, int32(18), quote.CurrencyOut.Decimals)
	// formatted amounts are preferred over base units
	assert.True(t, quote.Fees.Gas.Equal(decimal.RequireFromString("0.00021")))
	assert.True(t, quote.Fees.Relayer.Equal(decimal.RequireFromString("0.01")))
	// the verbatim response rides along for execution
	assert.Equal(t, response, string(quote.Raw))
}

func TestGetQuoteRequiresAmount(t *testing.T) {
	_, err := newClient(t, "http://unused.invalid").GetQuote(context.Background(), backend.QuoteRequest{})
	assert.Error(t, err)
}

func TestExecute(t *testing.T) {
	raw := json.RawMessage(`{"details":{},"steps":[]}`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/execute", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		// the quote is echoed back byte for byte
		assert.Equal(t, string(raw), string(body))
		_, _ = w.Write([]byte(`{"steps":[{"items":[{"txHashes":[{"txHash":"0xdone"}]}]}]}`))
	}))
	defer srv.Close()

	result, err := newClient(t, srv.URL).Execute(context.Background(), backend.ExecuteRequest{
		Quote: &backend.Quote{Raw: raw},
	})
	assert.NoError(t, err)

	outcome := backend.DecodeExecutionResult(result)
	assert.Equal(t, backend.TrackingSteps, outcome.Kind)
	assert.Equal(t, "0xdone", outcome.TrackingID)
}

func TestExecuteRequiresQuote(t *testing.T) {
	client := newClient(t, "http://unused.invalid")

	_, err := client.Execute(context.Background(), backend.ExecuteRequest{})
	assert.Error(t, err)

	_, err = client.Execute(context.Background(), backend.ExecuteRequest{Quote: &backend.Quote{}})
	assert.Error(t, err)
}

func TestTrackingStatus(t *testing.T) {
	status := "pending"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/intents/status", r.URL.Path)
		assert.Equal(t, "req-42", r.URL.Query().Get("requestId"))
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}))
	defer srv.Close()

	client := newClient(t, srv.URL)

	done, err := client.TrackingStatus(context.Background(), "req-42")
	assert.NoError(t, err)
	assert.False(t, done)

	status = "success"
	done, err = client.TrackingStatus(context.Background(), "req-42")
	assert.NoError(t, err)
	assert.True(t, done)
}

func TestFailoverToBackup(t *testing.T) {
	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lives":
			w.WriteHeader(http.StatusOK)
		case "/chains":
			_, _ = w.Write([]byte(`{"chains":[{"id":1,"name":"ethereum","currency":{"symbol":"ETH","decimals":18}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer backup.Close()

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	primaryURL := primary.URL
	primary.Close() // primary is down from the start

	client, err := relayquery.NewClientWithFailover(primaryURL, []string{backup.URL}, fastConfig())
	assert.NoError(t, err)
	defer client.Close()

	chains, err := client.Chains(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, len(chains))
	assert.Equal(t, "ethereum", chains[0].Name)
}

func TestCloseIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// a backup URL makes the client start its health checker
	client, err := relayquery.NewClientWithFailover(srv.URL, []string{srv.URL + "/backup"}, fastConfig())
	assert.NoError(t, err)

	client.Close()
	client.Close()
}

func TestErrorStatusSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"no routes found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Chains(context.Background())
	assert.Error(t, err)
}
