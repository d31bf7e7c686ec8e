package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/forma-dev/bridge-core/backend"
	"github.com/forma-dev/bridge-core/catalog"
	"github.com/forma-dev/bridge-core/estimator"
	"github.com/forma-dev/bridge-core/quote"
	"github.com/forma-dev/bridge-core/router"
	"github.com/forma-dev/bridge-core/transfer"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Handlers bundles the API's collaborators.
type Handlers struct {
	catalog      *catalog.Catalog
	selector     *router.Selector
	estimator    *estimator.Estimator
	quotes       *quote.Service
	orchestrator *transfer.Orchestrator
	log          *transfer.Log
	metrics      *transfer.Metrics
}

// NewHandlers wires the API handlers. metrics may be nil.
func NewHandlers(
	cat *catalog.Catalog,
	selector *router.Selector,
	est *estimator.Estimator,
	quotes *quote.Service,
	orchestrator *transfer.Orchestrator,
	log *transfer.Log,
	metrics *transfer.Metrics,
) *Handlers {
	return &Handlers{
		catalog:      cat,
		selector:     selector,
		estimator:    est,
		quotes:       quotes,
		orchestrator: orchestrator,
		log:          log,
		metrics:      metrics,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		Logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

type chainView struct {
	Name           string `json:"name"`
	DisplayName    string `json:"displayName"`
	Family         string `json:"family,omitempty"`
	NativeSymbol   string `json:"nativeSymbol,omitempty"`
	Bridge         bool   `json:"bridge"`
	Aggregator     bool   `json:"aggregator"`
	DepositEnabled bool   `json:"depositEnabled"`
}

// handleChains lists every chain either backend can serve, bridge chains
// first, then aggregator-only chains from the current snapshot.
func (h *Handlers) handleChains(w http.ResponseWriter, r *http.Request) {
	snap := h.catalog.AggregatorSnapshot()

	seen := make(map[string]bool)
	var chains []chainView
	for _, rec := range h.catalog.BridgeChains() {
		seen[rec.Name] = true
		chains = append(chains, chainView{
			Name:           rec.Name,
			DisplayName:    h.catalog.DisplayName(rec.Name),
			Family:         string(rec.Family),
			NativeSymbol:   rec.NativeSymbol,
			Bridge:         true,
			Aggregator:     snap.Knows(rec.Name),
			DepositEnabled: true,
		})
	}
	for _, rec := range snap.Chains() {
		if seen[rec.Name] {
			continue
		}
		chains = append(chains, chainView{
			Name:           rec.Name,
			DisplayName:    h.catalog.DisplayName(rec.Name),
			NativeSymbol:   rec.NativeSymbol,
			Aggregator:     true,
			DepositEnabled: snap.DepositEnabled(rec.Name),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"chains": chains})
}

// handleTokens lists the bridge tokens available for a route.
func (h *Handlers) handleTokens(w http.ResponseWriter, r *http.Request) {
	origin := catalog.Normalize(r.URL.Query().Get("origin"))
	destination := catalog.Normalize(r.URL.Query().Get("destination"))
	if origin == "" || destination == "" {
		writeError(w, http.StatusBadRequest, "origin and destination query parameters are required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tokens": h.catalog.TokensForRoute(origin, destination),
	})
}

type routeRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

func (h *Handlers) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Origin == "" || req.Destination == "" {
		writeError(w, http.StatusBadRequest, "origin and destination are required")
		return
	}

	selected := h.selector.Select(req.Origin, req.Destination, h.catalog.AggregatorSnapshot())
	writeJSON(w, http.StatusOK, map[string]string{"backend": string(selected)})
}

type maxAmountRequest struct {
	Origin       string          `json:"origin"`
	Destination  string          `json:"destination"`
	TokenAddress string          `json:"tokenAddress"`
	Sender       string          `json:"sender"`
	Recipient    string          `json:"recipient"`
	Balance      decimal.Decimal `json:"balance"`
}

func (h *Handlers) handleMaxAmount(w http.ResponseWriter, r *http.Request) {
	var req maxAmountRequest
	if !decodeBody(w, r, &req) {
		return
	}

	origin := catalog.Normalize(req.Origin)
	destination := catalog.Normalize(req.Destination)
	selected := h.selector.Select(origin, destination, h.catalog.AggregatorSnapshot())

	max := h.estimator.MaxAmount(r.Context(), estimator.Request{
		Backend:      selected,
		Origin:       origin,
		Destination:  destination,
		OriginName:   h.catalog.DisplayName(origin),
		TokenAddress: req.TokenAddress,
		Sender:       req.Sender,
		Recipient:    req.Recipient,
		Balance:      req.Balance,
	})

	// A null maxAmount means no estimate is available; zero means the
	// balance cannot cover the fees.
	writeJSON(w, http.StatusOK, map[string]any{
		"backend":   string(selected),
		"maxAmount": max,
	})
}

type quoteHTTPRequest struct {
	Origin              string          `json:"origin"`
	Destination         string          `json:"destination"`
	OriginCurrency      string          `json:"originCurrency"`
	DestinationCurrency string          `json:"destinationCurrency"`
	Amount              decimal.Decimal `json:"amount"`
	TradeType           string          `json:"tradeType"`
	Sender              string          `json:"sender"`
	Recipient           string          `json:"recipient"`
}

func (h *Handlers) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Amount.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	origin := catalog.Normalize(req.Origin)
	destination := catalog.Normalize(req.Destination)
	selected := h.selector.Select(origin, destination, h.catalog.AggregatorSnapshot())

	q, err := h.quotes.GetQuote(r.Context(), quote.Request{
		Backend:             selected,
		Origin:              origin,
		Destination:         destination,
		OriginCurrency:      req.OriginCurrency,
		DestinationCurrency: req.DestinationCurrency,
		Amount:              req.Amount,
		TradeType:           tradeTypeFrom(req.TradeType),
		Sender:              req.Sender,
		Recipient:           req.Recipient,
	})
	if err != nil {
		Logger.Warn().Err(err).Str("origin", origin).Str("destination", destination).Msg("Quote failed")
		writeError(w, http.StatusUnprocessableEntity, "could not obtain a quote for this route")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"backend":   string(q.Backend),
		"amountOut": q.AmountOut,
		"fees":      q.Fees,
	})
}

type createTransferRequest struct {
	Origin       string          `json:"origin"`
	Destination  string          `json:"destination"`
	TokenAddress string          `json:"tokenAddress"`
	TokenSymbol  string          `json:"tokenSymbol"`
	Amount       decimal.Decimal `json:"amount"`
	Sender       string          `json:"sender"`
	Recipient    string          `json:"recipient"`
}

// handleCreateTransfer runs the transfer synchronously and returns its final
// log record. Clients wanting progress updates subscribe on the websocket
// before posting.
func (h *Handlers) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Amount.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if req.Recipient == "" {
		writeError(w, http.StatusBadRequest, "recipient is required")
		return
	}

	// A started transfer must run to a terminal state even if the client
	// disconnects or the request deadline fires; the signed transaction may
	// already be on its way to the chain.
	id := h.orchestrator.TriggerTransactions(context.WithoutCancel(r.Context()), transfer.FormValues{
		Origin:       catalog.Normalize(req.Origin),
		Destination:  catalog.Normalize(req.Destination),
		TokenAddress: req.TokenAddress,
		TokenSymbol:  req.TokenSymbol,
		Amount:       req.Amount,
		Sender:       req.Sender,
		Recipient:    req.Recipient,
	})

	rec, _ := h.log.Get(id)
	writeJSON(w, http.StatusCreated, transferView(rec))
}

func (h *Handlers) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	records := h.log.List()
	views := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		views = append(views, transferView(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": views})
}

func (h *Handlers) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}
	rec, ok := h.log.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no such transfer")
		return
	}
	writeJSON(w, http.StatusOK, transferView(rec))
}

func (h *Handlers) handleResetTransfers(w http.ResponseWriter, r *http.Request) {
	h.log.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func tradeTypeFrom(s string) backend.TradeType {
	switch s {
	case string(backend.TradeExactOutput):
		return backend.TradeExactOutput
	default:
		return backend.TradeExactInput
	}
}

func transferView(rec transfer.Record) map[string]any {
	view := map[string]any{
		"id":          rec.ID,
		"createdAt":   rec.CreatedAt,
		"origin":      rec.Origin,
		"destination": rec.Destination,
		"tokenSymbol": rec.TokenSymbol,
		"amount":      rec.Amount,
		"sender":      rec.Sender,
		"recipient":   rec.Recipient,
		"backend":     string(rec.Backend),
		"status":      rec.Status.String(),
	}
	if rec.OriginTxHash != "" {
		view["originTxHash"] = rec.OriginTxHash
	}
	if rec.MessageID != "" {
		view["messageId"] = rec.MessageID
	}
	if rec.TrackingID != "" {
		view["trackingId"] = rec.TrackingID
	}
	if rec.Fees != nil {
		view["fees"] = rec.Fees
	}
	return view
}
