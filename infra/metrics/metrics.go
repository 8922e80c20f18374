// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the exchange updates. Each instance owns
// its registry, so tests and multiple exchanges never collide.
type Metrics struct {
	registry *prometheus.Registry

	OrdersAccepted *prometheus.CounterVec
	OrdersRejected *prometheus.CounterVec
	Cancels        *prometheus.CounterVec
	Modifies       *prometheus.CounterVec
	Trades         *prometheus.CounterVec
	TradedQty      *prometheus.CounterVec
	RestingOrders  *prometheus.GaugeVec
}

func New() *Metrics {
	symbol := []string{"symbol"}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		OrdersAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tickmatch", Name: "orders_accepted_total",
			Help: "Limit orders accepted into the book.",
		}, []string{"symbol", "side"}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tickmatch", Name: "orders_rejected_total",
			Help: "Orders rejected as invalid.",
		}, symbol),
		Cancels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tickmatch", Name: "cancels_total",
			Help: "Cancel requests by outcome.",
		}, []string{"symbol", "result"}),
		Modifies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tickmatch", Name: "modifies_total",
			Help: "Modify requests by outcome.",
		}, []string{"symbol", "result"}),
		Trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tickmatch", Name: "trades_total",
			Help: "Executed trades.",
		}, symbol),
		TradedQty: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tickmatch", Name: "traded_quantity_total",
			Help: "Executed quantity.",
		}, symbol),
		RestingOrders: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tickmatch", Name: "resting_orders",
			Help: "Orders currently resting in the book.",
		}, symbol),
	}
	m.registry.MustRegister(
		m.OrdersAccepted, m.OrdersRejected, m.Cancels, m.Modifies,
		m.Trades, m.TradedQty, m.RestingOrders,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
