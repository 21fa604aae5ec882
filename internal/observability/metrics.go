package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// forecast engine.
type Metrics struct {
	ForecastsIssued  prometheus.Counter
	PredictionsMade  prometheus.Counter
	ValidationErrors prometheus.Counter

	// Provider and cache health.
	ProviderErrors  *prometheus.CounterVec // labels: provider={history,weather}
	CacheLookups    *prometheus.CounterVec // labels: kind={series,weather}, result={hit,miss,expired}
	StaleResults    prometheus.Counter
	IngestedReports prometheus.Counter

	// Evaluation cycle metrics.
	EvaluationDuration prometheus.Histogram
	ActiveAlerts       *prometheus.GaugeVec // labels: tier={24h,72h}
	EngineReady        prometheus.Gauge
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ForecastsIssued,
		m.PredictionsMade,
		m.ValidationErrors,
		m.ProviderErrors,
		m.CacheLookups,
		m.StaleResults,
		m.IngestedReports,
		m.EvaluationDuration,
		m.ActiveAlerts,
		m.EngineReady,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ForecastsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outbreak_engine",
			Name:      "forecasts_issued_total",
			Help:      "Total forecast calls served.",
		}),
		PredictionsMade: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outbreak_engine",
			Name:      "predictions_made_total",
			Help:      "Total per-day predictions produced.",
		}),
		ValidationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outbreak_engine",
			Name:      "validation_errors_total",
			Help:      "Total requests rejected for invalid input.",
		}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outbreak_engine",
			Name:      "provider_errors_total",
			Help:      "Upstream provider failures by provider.",
		}, []string{"provider"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outbreak_engine",
			Name:      "snapshot_cache_lookups_total",
			Help:      "Snapshot cache lookups by kind and result.",
		}, []string{"kind", "result"}),
		StaleResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outbreak_engine",
			Name:      "stale_results_total",
			Help:      "Results served from the last-known-good snapshot cache.",
		}),
		IngestedReports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outbreak_engine",
			Name:      "ingested_reports_total",
			Help:      "Case reports consumed from the ingest topic.",
		}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "outbreak_engine",
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of a full alert evaluation cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		ActiveAlerts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "outbreak_engine",
			Name:      "active_alerts",
			Help:      "Alerts produced by the most recent evaluation cycle, by tier.",
		}, []string{"tier"}),
		EngineReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "outbreak_engine",
			Name:      "engine_ready",
			Help:      "1 once the engine has served at least one evaluation.",
		}),
	}
}
