package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder collects signal engine metrics on its own registry
type Recorder struct {
	registry *prometheus.Registry

	signals   *prometheus.CounterVec
	errors    *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	orders    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		signals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forexbot_signals_total",
				Help: "Signals produced by symbol, strategy and direction",
			},
			[]string{"symbol", "strategy", "direction"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forexbot_errors_total",
				Help: "Evaluation and dispatch errors by kind",
			},
			[]string{"kind"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forexbot_provider_fallbacks_total",
				Help: "Market data requests a provider could not serve",
			},
			[]string{"provider"},
		),
		orders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forexbot_orders_total",
				Help: "Orders sent to the execution gateway by outcome",
			},
			[]string{"outcome"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forexbot_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// Registry exposes the registry for the /metrics handler
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) RecordSignal(symbol, strategy, direction string) {
	r.signals.WithLabelValues(symbol, strategy, direction).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordFallback(provider string) {
	r.fallbacks.WithLabelValues(provider).Inc()
}

func (r *Recorder) RecordOrder(outcome string) {
	r.orders.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordLatency(op string, d time.Duration) {
	r.latency.WithLabelValues(op).Observe(d.Seconds())
}
