package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "livability_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // labels: status={success,failed}
	RunDuration     prometheus.Histogram
	PipelineRunning prometheus.Gauge

	CitiesProcessed   prometheus.Counter
	CitiesSkipped     prometheus.Counter
	AcquisitionErrors *prometheus.CounterVec // labels: country
	PersistenceErrors *prometheus.CounterVec // labels: collection
	CityScore         prometheus.Histogram
	MirrorErrors      prometheus.Counter

	// Acquisition source metrics.
	SourceRequests    *prometheus.CounterVec // labels: country, outcome={success,error}
	SourceCache       *prometheus.CounterVec // labels: result={hit,miss}
	SourceAPIDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.PipelineRunning,
		m.CitiesProcessed,
		m.CitiesSkipped,
		m.AcquisitionErrors,
		m.PersistenceErrors,
		m.CityScore,
		m.MirrorErrors,
		m.SourceRequests,
		m.SourceCache,
		m.SourceAPIDuration,
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
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed pipeline runs by final status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress, 0 otherwise.",
		}),
		CitiesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cities_processed_total",
			Help:      "Cities normalized, scored, and persisted.",
		}),
		CitiesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cities_skipped_total",
			Help:      "Cities dropped because they could not be scored.",
		}),
		AcquisitionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisition_errors_total",
			Help:      "Countries whose city records could not be acquired.",
		}, []string{"country"}),
		PersistenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_errors_total",
			Help:      "Rejected document writes by collection.",
		}, []string{"collection"}),
		CityScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "city_score",
			Help:      "Distribution of composite livability scores.",
			Buckets:   prometheus.LinearBuckets(10, 10, 9),
		}),
		MirrorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_publish_errors_total",
			Help:      "Documents that could not be mirrored to a secondary sink.",
		}),
		SourceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Remote acquisition requests by country and outcome.",
		}, []string{"country", "outcome"}),
		SourceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_cache_total",
			Help:      "Acquisition cache lookups by result.",
		}, []string{"result"}),
		SourceAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_api_duration_seconds",
			Help:      "Remote acquisition request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}
