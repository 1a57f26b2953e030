package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/oneentry/currency-sync/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the sync daemon
type Metrics struct {
	registry prometheus.Gatherer

	PassesTotal          prometheus.Counter
	PassDuration         prometheus.Histogram
	ProductsUpdatedTotal prometheus.Counter
	ProductsFailedTotal  prometheus.Counter
	ProductsSkippedTotal *prometheus.CounterVec
	WritesInFlight       prometheus.Gauge
	ExchangeRate         prometheus.Gauge
	RateFetchErrorsTotal prometheus.Counter
	APIRequestsTotal     *prometheus.CounterVec
	APIRequestDuration   *prometheus.HistogramVec
}

// New registers all collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		PassesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "currency_sync_passes_total",
			Help: "Completed catalog passes.",
		}),
		PassDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "currency_sync_pass_duration_seconds",
			Help:    "Duration of a full catalog pass including the write drain.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		ProductsUpdatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "currency_sync_products_updated_total",
			Help: "Products whose sync-locale price was written.",
		}),
		ProductsFailedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "currency_sync_product_update_errors_total",
			Help: "Product writes rejected by the catalog API.",
		}),
		ProductsSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "currency_sync_products_skipped_total",
				Help: "Products left untouched, by reason.",
			},
			[]string{"reason"},
		),
		WritesInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "currency_sync_writes_in_flight",
			Help: "Product writes currently awaiting a response.",
		}),
		ExchangeRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "currency_sync_exchange_rate",
			Help: "Conversion factor applied in the current pass.",
		}),
		RateFetchErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "currency_sync_rate_fetch_errors_total",
			Help: "Failed exchange rate fetch attempts.",
		}),
		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "currency_sync_api_requests_total",
				Help: "Outbound HTTP requests by target, method and status class.",
			},
			[]string{"target", "method", "status"},
		),
		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "currency_sync_api_request_duration_seconds",
				Help:    "Histogram of outbound HTTP request durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"target", "method", "status"},
		),
	}
}

// RecordRequest records one outbound HTTP call. statusCode 0 means a transport error.
func (m *Metrics) RecordRequest(target, method string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	status := classifyStatus(statusCode)
	m.APIRequestsTotal.WithLabelValues(target, method, status).Inc()
	m.APIRequestDuration.WithLabelValues(target, method, status).Observe(duration.Seconds())
}

// ObservePass records a finished pass
func (m *Metrics) ObservePass(result domain.PassResult) {
	if m == nil {
		return
	}
	m.PassesTotal.Inc()
	m.PassDuration.Observe(result.Duration().Seconds())
}

// ProductSkipped counts a product left unchanged, labelled by reason
func (m *Metrics) ProductSkipped(reason string) {
	if m == nil {
		return
	}
	m.ProductsSkippedTotal.WithLabelValues(reason).Inc()
}

// ProductUpdated counts a successful product write
func (m *Metrics) ProductUpdated() {
	if m == nil {
		return
	}
	m.ProductsUpdatedTotal.Inc()
}

// ProductFailed counts a product write rejected by the API
func (m *Metrics) ProductFailed() {
	if m == nil {
		return
	}
	m.ProductsFailedTotal.Inc()
}

// WriteStarted marks a product write as in flight
func (m *Metrics) WriteStarted() {
	if m == nil {
		return
	}
	m.WritesInFlight.Inc()
}

// WriteFinished clears an in-flight product write
func (m *Metrics) WriteFinished() {
	if m == nil {
		return
	}
	m.WritesInFlight.Dec()
}

// RateUpdated publishes the conversion factor in use
func (m *Metrics) RateUpdated(rate float64) {
	if m == nil {
		return
	}
	m.ExchangeRate.Set(rate)
}

// RateFetchFailed counts a failed rate lookup
func (m *Metrics) RateFetchFailed() {
	if m == nil {
		return
	}
	m.RateFetchErrorsTotal.Inc()
}

// Handler returns the HTTP handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// classifyStatus collapses an HTTP status code to its class
func classifyStatus(statusCode int) string {
	switch {
	case statusCode == 0:
		return "error"
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return strconv.Itoa(statusCode)
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	}
	return "unknown"
}
