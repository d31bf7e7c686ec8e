package transfer

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts transfer outcomes on a dedicated registry.
type Metrics struct {
	registry       *prometheus.Registry
	transfersTotal *prometheus.CounterVec
	rejections     prometheus.Counter
	deliveries     *prometheus.CounterVec
}

// NewMetrics builds the transfer metrics registry.
func NewMetrics() *Metrics {
	transfers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_transfers_total",
		Help: "Transfers by backend and outcome",
	}, []string{"backend", "outcome"})

	rejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bridge_wallet_rejections_total",
		Help: "Transfers abandoned at the wallet signing prompt",
	})

	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_deliveries_total",
		Help: "Transfers observed delivered on the destination chain",
	}, []string{"backend"})

	r := prometheus.NewRegistry()
	r.MustRegister(transfers, rejections, deliveries)

	return &Metrics{
		registry:       r,
		transfersTotal: transfers,
		rejections:     rejections,
		deliveries:     deliveries,
	}
}

// Handler serves the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeOutcome(backend, outcome string) {
	if m == nil {
		return
	}
	m.transfersTotal.WithLabelValues(backend, outcome).Inc()
}

func (m *Metrics) observeRejection() {
	if m == nil {
		return
	}
	m.rejections.Inc()
}

func (m *Metrics) observeDelivery(backend string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(backend).Inc()
}
