// Package metrics collects Prometheus counters, gauges, and histograms for
// the matching engine and its HTTP/websocket collaborators.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics is the full set of counters, gauges, and histograms this
// process exposes.
type Metrics struct {
	HTTPRequestsTotal   prometheus.Counter
	HTTPRequestDuration prometheus.Histogram

	OrdersSubmittedTotal prometheus.Counter
	OrdersRejectedTotal  prometheus.Counter
	OrdersCancelledTotal prometheus.Counter
	OrdersRestingGauge   prometheus.Gauge

	TradesTotal   prometheus.Counter
	TradeQtyTotal prometheus.Counter
	MatchDuration prometheus.Histogram

	StreamClientsGauge prometheus.Gauge
}

// New builds a Metrics instance whose metric names take the form
// "drakon_<serviceName>_<metric>".
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drakon",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests handled.",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "drakon",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		OrdersSubmittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drakon",
			Subsystem: serviceName,
			Name:      "orders_submitted_total",
			Help:      "Total orders submitted to the engine.",
		}),
		OrdersRejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drakon",
			Subsystem: serviceName,
			Name:      "orders_rejected_total",
			Help:      "Total orders rejected before admission.",
		}),
		OrdersCancelledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drakon",
			Subsystem: serviceName,
			Name:      "orders_cancelled_total",
			Help:      "Total orders that ended cancelled (IOC/FOK/MARKET residue or explicit cancel).",
		}),
		OrdersRestingGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "drakon",
			Subsystem: serviceName,
			Name:      "orders_resting",
			Help:      "Current count of resting orders across all books.",
		}),
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drakon",
			Subsystem: serviceName,
			Name:      "trades_total",
			Help:      "Total trades executed.",
		}),
		TradeQtyTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drakon",
			Subsystem: serviceName,
			Name:      "trade_quantity_total",
			Help:      "Total quantity traded across all symbols.",
		}),
		MatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "drakon",
			Subsystem: serviceName,
			Name:      "match_duration_seconds",
			Help:      "Wall time spent inside one SubmitOrder call.",
			Buckets:   prometheus.DefBuckets,
		}),
		StreamClientsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "drakon",
			Subsystem: serviceName,
			Name:      "stream_clients",
			Help:      "Current count of connected websocket subscribers.",
		}),
	}
}

// Register registers every collector with the default Prometheus
// registerer. logger is used to report a registration failure; Register
// still returns the error so the caller can decide whether it is fatal.
func (m *Metrics) Register(logger zerolog.Logger) error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.OrdersSubmittedTotal,
		m.OrdersRejectedTotal,
		m.OrdersCancelledTotal,
		m.OrdersRestingGauge,
		m.TradesTotal,
		m.TradeQtyTotal,
		m.MatchDuration,
		m.StreamClientsGauge,
	}
	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			logger.Error().Err(err).Msg("failed to register metric")
			return err
		}
	}
	return nil
}

// StartHTTPServer serves the Prometheus exposition format on path (default
// "/metrics") on its own listener, so scraping never contends with the
// order/cancel/stream gin router.
func StartHTTPServer(port int, path string, logger zerolog.Logger) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)

	go func() {
		logger.Info().Str("addr", addr).Str("path", path).Msg("starting metrics server")
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	return nil
}
