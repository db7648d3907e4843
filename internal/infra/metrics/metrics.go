// Package metrics registers the Prometheus collectors exposed by the
// simulator on its admin-gated /metrics endpoint. The book, router and
// quoter packages do not update these collectors, so the domain metrics
// below report their zero values; only the Go and process collectors
// change.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	OrdersAddedTotal   = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "book_orders_added_total", Help: "Orders submitted to the book"}, []string{"side"})
	OrdersCancelledTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "book_orders_cancelled_total", Help: "Orders cancelled from the book"})
	TradesTotal        = prometheus.NewCounter(prometheus.CounterOpts{Name: "book_trades_total", Help: "Trades produced by the matching engine"})
	TradeQuantity      = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "book_trade_quantity", Help: "Quantity per trade", Buckets: prometheus.ExponentialBuckets(1, 2, 16)})

	RoutingDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "sor_routing_decisions_total", Help: "Routing decisions by venue and side"}, []string{"venue", "side"})
	RoutingFailuresTotal  = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "sor_routing_failures_total", Help: "Routing failures by reason"}, []string{"reason"})
	RoutingCostBps        = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "sor_routing_cost_bps", Help: "Fee- and latency-adjusted cost of routed orders in bps", Buckets: prometheus.LinearBuckets(0, 5, 40)})

	QuoteCyclesTotal   = prometheus.NewCounter(prometheus.CounterOpts{Name: "quoter_cycles_total", Help: "Quoting cycles completed"})
	QuoteSpreadBps     = prometheus.NewGauge(prometheus.GaugeOpts{Name: "quoter_spread_bps", Help: "Current quoted spread in bps"})
	QuoteEdgeTheoretical = prometheus.NewGauge(prometheus.GaugeOpts{Name: "quoter_theoretical_edge", Help: "Theoretical edge of the last quote pair"})
	InventoryBase      = prometheus.NewGauge(prometheus.GaugeOpts{Name: "quoter_inventory_base", Help: "Base asset inventory"})
	InventoryQuote     = prometheus.NewGauge(prometheus.GaugeOpts{Name: "quoter_inventory_quote", Help: "Quote asset inventory"})
	RealizedPnL        = prometheus.NewGauge(prometheus.GaugeOpts{Name: "quoter_realized_pnl", Help: "Realized profit and loss"})
	RiskBreachesTotal  = prometheus.NewCounter(prometheus.CounterOpts{Name: "quoter_risk_breaches_total", Help: "Times the quoter fell outside its risk envelope"})
)

// Init registers every collector on a fresh registry, so tests never
// collide on the global default registry.
func Init(logger zerolog.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		OrdersAddedTotal, OrdersCancelledTotal, TradesTotal, TradeQuantity,
		RoutingDecisionsTotal, RoutingFailuresTotal, RoutingCostBps,
		QuoteCyclesTotal, QuoteSpreadBps, QuoteEdgeTheoretical,
		InventoryBase, InventoryQuote, RealizedPnL, RiskBreachesTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	logger.Info().Msg("prometheus metrics initialized")
	return reg
}

// Handler exposes reg in the Prometheus text exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
