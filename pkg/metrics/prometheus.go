package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Harry166/stro/internal/domain/models"
)

const namespace = "stro"

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	cacheLookups  *prometheus.CounterVec
	providerCalls *prometheus.CounterVec
	limiterDenied prometheus.Counter
	alerts        *prometheus.CounterVec
	rankingSize   prometheus.Gauge
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New registers the engine metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "TTL cache lookups by result",
			},
			[]string{"result"},
		),
		providerCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_calls_total",
				Help:      "External provider calls by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		limiterDenied: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "news_limiter_denied_total",
				Help:      "News lookups refused by the call budget",
			},
		),
		alerts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_total",
				Help:      "Alert conditions offered to the store by type and result",
			},
			[]string{"type", "result"},
		),
		rankingSize: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ranking_size",
				Help:      "Number of instruments in the current trending snapshot",
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordCacheLookup(result string) {
	r.cacheLookups.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordProviderCall(provider string, outcome models.Outcome) {
	r.providerCalls.WithLabelValues(provider, string(outcome)).Inc()
}

func (r *Recorder) RecordLimiterDenied() {
	r.limiterDenied.Inc()
}

func (r *Recorder) RecordAlert(alertType models.AlertType, result string) {
	r.alerts.WithLabelValues(string(alertType), result).Inc()
}

func (r *Recorder) RecordRankingSize(n int) {
	r.rankingSize.Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
