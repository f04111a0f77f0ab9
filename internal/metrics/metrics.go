// Package metrics экспортирует метрики сервиса в формате Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics содержит все метрики приложения
type Metrics struct {
	QuotesCalculated    *prometheus.CounterVec
	QuotesRejected      prometheus.Counter
	QuotesNonFinite     prometheus.Counter
	CalculationDuration prometheus.Histogram
	EventsProduced      *prometheus.CounterVec
	EventsConsumed      *prometheus.CounterVec
	CircuitBreakerState *prometheus.GaugeVec
	RateLimited         prometheus.Counter

	gatherer prometheus.Gatherer
}

// New создаёт метрики и регистрирует их в reg. Если reg == nil, используется отдельный реестр.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		QuotesCalculated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "refill_quotes_calculated_total",
			Help: "Total refill cost calculations",
		}, []string{"subscribed", "coupon"}),
		QuotesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "refill_quotes_rejected_total",
			Help: "Calculations rejected by input validation",
		}),
		QuotesNonFinite: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "refill_quotes_non_finite_total",
			Help: "Calculations that produced NaN or infinite cost",
		}),
		CalculationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "refill_quote_duration_seconds",
			Help:    "Quote creation duration including persistence",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		EventsProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_messages_produced_total",
			Help: "Kafka messages produced by result",
		}, []string{"result"}),
		EventsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_messages_consumed_total",
			Help: "Kafka messages consumed by event type",
		}, []string{"type"}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.QuotesCalculated,
		m.QuotesRejected,
		m.QuotesNonFinite,
		m.CalculationDuration,
		m.EventsProduced,
		m.EventsConsumed,
		m.CircuitBreakerState,
		m.RateLimited,
	)

	return m
}

// ObserveQuote учитывает успешный расчёт.
func (m *Metrics) ObserveQuote(subscribed, coupon, finite bool) {
	if m == nil {
		return
	}
	m.QuotesCalculated.WithLabelValues(strconv.FormatBool(subscribed), strconv.FormatBool(coupon)).Inc()
	if !finite {
		m.QuotesNonFinite.Inc()
	}
}

// ObserveRateLimited учитывает запрос, отклонённый rate limiter.
func (m *Metrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

// Handler возвращает HTTP обработчик для /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
