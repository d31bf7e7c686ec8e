package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/forma-dev/bridge-core/backend"
	"github.com/forma-dev/bridge-core/catalog"
	"github.com/forma-dev/bridge-core/estimator"
	"github.com/forma-dev/bridge-core/notify"
	"github.com/forma-dev/bridge-core/quote"
	"github.com/forma-dev/bridge-core/router"
	"github.com/forma-dev/bridge-core/transfer"
	"github.com/go-chi/chi/v5"
	"github.com/zeebo/assert"
)

type snapSource struct{}

func (snapSource) Chains(ctx context.Context) ([]catalog.AggregatorChain, error) {
	return []catalog.AggregatorChain{
		{ID: 984122, Name: "Forma", NativeSymbol: "TIA", NativeDecimals: 18},
		{ID: 1, Name: "Ethereum Mainnet", DisplayName: "Ethereum", NativeSymbol: "ETH", NativeDecimals: 18, DepositEnabled: true},
	}, nil
}

func (snapSource) Currencies(ctx context.Context, chainID int64) ([]catalog.AggregatorCurrency, error) {
	return nil, nil
}

func newHandlers(t *testing.T) (*Handlers, *transfer.Log, *backend.FakeBridge) {
	t.Helper()
	cat, err := catalog.New(
		[]catalog.ChainRecord{
			{Name: "forma", DisplayName: "Forma", EVMChainID: 984122, Family: catalog.FamilyEVM},
			{Name: "celestia", DisplayName: "Celestia", Family: catalog.FamilyCosmos, Bech32Prefix: "celestia"},
		},
		[]catalog.TokenRecord{
			{Chain: "celestia", AddressOrDenom: "utia", Symbol: "TIA", Decimals: 6,
				Connections: []catalog.Connection{{Chain: "forma"}}},
		},
		snapSource{},
	)
	assert.NoError(t, err)
	assert.NoError(t, cat.Refresh(context.Background()))

	bridge := &backend.FakeBridge{
		TokensForRouteFunc: func(origin, destination string) []catalog.TokenRecord {
			return cat.TokensForRoute(origin, destination)
		},
	}
	aggregator := &backend.FakeAggregator{}
	recorder := &notify.Recorder{}
	log := transfer.NewLog()
	selector := router.NewSelector([]string{"forma", "sketchpad"}, cat)
	quotes := quote.NewService(cat, bridge, aggregator)
	est := estimator.New(bridge, recorder)
	orchestrator := transfer.NewOrchestrator(cat, selector, bridge, aggregator, quotes, nil, recorder, log, nil)

	return NewHandlers(cat, selector, est, quotes, orchestrator, log, nil), log, bridge
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleChains(t *testing.T) {
	h, _, _ := newHandlers(t)

	rec := httptest.NewRecorder()
	h.handleChains(rec, httptest.NewRequest(http.MethodGet, "/v1/chains", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	chains := body["chains"].([]any)
	assert.Equal(t, 3, len(chains))

	byName := make(map[string]map[string]any)
	for _, raw := range chains {
		entry := raw.(map[string]any)
		byName[entry["name"].(string)] = entry
	}
	assert.Equal(t, true, byName["forma"]["bridge"])
	assert.Equal(t, true, byName["forma"]["aggregator"])
	assert.Equal(t, true, byName["celestia"]["bridge"])
	assert.Equal(t, false, byName["celestia"]["aggregator"])
	assert.Equal(t, false, byName["ethereum"]["bridge"])
	assert.Equal(t, "Ethereum", byName["ethereum"]["displayName"])
}

func TestHandleTokens(t *testing.T) {
	h, _, _ := newHandlers(t)

	rec := httptest.NewRecorder()
	h.handleTokens(rec, httptest.NewRequest(http.MethodGet, "/v1/tokens?origin=Celestia&destination=forma", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	tokens := decode(t, rec)["tokens"].([]any)
	assert.Equal(t, 1, len(tokens))

	rec = httptest.NewRecorder()
	h.handleTokens(rec, httptest.NewRequest(http.MethodGet, "/v1/tokens?origin=celestia", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRoute(t *testing.T) {
	h, _, _ := newHandlers(t)

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/route", strings.NewReader(body))
		h.handleRoute(rec, req)
		return rec
	}

	rec := post(`{"origin":"celestia","destination":"forma"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bridge", decode(t, rec)["backend"])

	rec = post(`{"origin":"forma","destination":"ethereum"}`)
	assert.Equal(t, "aggregator", decode(t, rec)["backend"])

	rec = post(`{"origin":"celestia"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(`not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMaxAmount(t *testing.T) {
	h, _, _ := newHandlers(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/max-amount",
		strings.NewReader(`{"origin":"forma","destination":"ethereum","balance":"50"}`))
	h.handleMaxAmount(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "aggregator", body["backend"])
	assert.Equal(t, "49.5", body["maxAmount"])
}

func TestHandleQuote(t *testing.T) {
	h, _, _ := newHandlers(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/quote",
		strings.NewReader(`{"origin":"celestia","destination":"forma","originCurrency":"utia","amount":"25"}`))
	h.handleQuote(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "bridge", body["backend"])
	assert.Equal(t, "25", body["amountOut"])

	// the fake aggregator has no quotes, so aggregator routes fail cleanly
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/quote",
		strings.NewReader(`{"origin":"forma","destination":"ethereum","amount":"1"}`))
	h.handleQuote(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/quote",
		strings.NewReader(`{"origin":"celestia","destination":"forma","amount":"0"}`))
	h.handleQuote(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransferLifecycleOverHTTP(t *testing.T) {
	h, log, _ := newHandlers(t)

	mux := chi.NewRouter()
	mux.Post("/v1/transfers", h.handleCreateTransfer)
	mux.Get("/v1/transfers", h.handleListTransfers)
	mux.Get("/v1/transfers/{id}", h.handleGetTransfer)
	mux.Delete("/v1/transfers", h.handleResetTransfers)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/transfers", "application/json",
		strings.NewReader(`{"origin":"celestia","destination":"forma","tokenAddress":"utia","amount":"5","recipient":"0xRecipient"}`))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]any
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	_ = resp.Body.Close()
	assert.Equal(t, "confirmed-transfer", created["status"])
	assert.Equal(t, "bridge", created["backend"])
	assert.Equal(t, 1, log.Len())

	resp, err = http.Get(srv.URL + "/v1/transfers/0")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = http.Get(srv.URL + "/v1/transfers/999")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/transfers", nil)
	resp, err = http.DefaultClient.Do(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()
	assert.Equal(t, 0, log.Len())
}

func TestCreateTransferSurvivesClientDisconnect(t *testing.T) {
	h, log, bridge := newHandlers(t)

	// Confirmation only succeeds when the context it receives is still live.
	bridge.SenderFunc = func(family catalog.Family) (backend.TxSender, error) {
		return &backend.FakeSender{
			SendFunc: func(ctx context.Context, tx backend.Tx) (backend.PendingTx, error) {
				return &backend.FakePendingTx{
					TxHash: "0xslow",
					ConfirmFunc: func(ctx context.Context) (*backend.Receipt, error) {
						if err := ctx.Err(); err != nil {
							return nil, err
						}
						return &backend.Receipt{TxHash: "0xslow", Success: true}, nil
					},
				}, nil
			},
		}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/transfers",
		strings.NewReader(`{"origin":"celestia","destination":"forma","tokenAddress":"utia","amount":"5","recipient":"0xRecipient"}`))
	h.handleCreateTransfer(rec, req.WithContext(ctx))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "confirmed-transfer", decode(t, rec)["status"])

	stored, ok := log.Get(0)
	assert.True(t, ok)
	assert.Equal(t, transfer.StatusConfirmedTransfer, stored.Status)
}

func TestCreateTransferValidation(t *testing.T) {
	h, _, _ := newHandlers(t)

	post := func(body string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/transfers", strings.NewReader(body))
		h.handleCreateTransfer(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusBadRequest, post(`{"origin":"celestia","destination":"forma","amount":"0","recipient":"0x1"}`))
	assert.Equal(t, http.StatusBadRequest, post(`{"origin":"celestia","destination":"forma","amount":"5"}`))
}
