package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flood_risk"

// Metrics holds the Prometheus counters, histograms, and gauges for the flood risk service.
type Metrics struct {
	// Assessment metrics.
	Assessments        *prometheus.CounterVec   // labels: provider={openweather,nws}, outcome={scored,fallback}
	AssessmentDuration *prometheus.HistogramVec // labels: provider
	RiskLevels         *prometheus.CounterVec   // labels: level={Low,Medium,High,Critical}

	// Provider metrics.
	ProviderRequests    *prometheus.CounterVec   // labels: provider, outcome={success,error}
	ProviderAPIDuration *prometheus.HistogramVec // labels: provider
	PointCache          *prometheus.CounterVec   // labels: result={hit,miss}

	// Community report metrics.
	ReportStoreErrors *prometheus.CounterVec // labels: collection
	NearbyReports     prometheus.Histogram

	// Weather cache metrics.
	CacheWrites *prometheus.CounterVec // labels: outcome={success,error}

	// Watch loop metrics.
	RequestsConsumed        prometheus.Counter
	ReportsPublished        prometheus.Counter
	RequestErrors           prometheus.Counter
	WatchRunning            prometheus.Gauge
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Total risk assessments by provider and outcome.",
		}, []string{"provider", "outcome"}),
		AssessmentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assessment_duration_seconds",
			Help:      "Duration of a complete assessment including provider and report store I/O.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		RiskLevels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_levels_total",
			Help:      "Assessments by resulting risk level.",
		}, []string{"level"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Weather provider API calls by outcome.",
		}, []string{"provider", "outcome"}),
		ProviderAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_api_duration_seconds",
			Help:      "Duration of weather provider API calls.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		PointCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nws_point_cache_total",
			Help:      "NWS point resolution cache lookups.",
		}, []string{"result"}),
		ReportStoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_store_errors_total",
			Help:      "Report store read failures absorbed by the aggregator.",
		}, []string{"collection"}),
		NearbyReports: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "nearby_reports",
			Help:      "Number of community reports within the assessment radius.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
		CacheWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_writes_total",
			Help:      "Writes of the latest weather report by outcome.",
		}, []string{"outcome"}),
		RequestsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_requests_consumed_total",
			Help:      "Total location requests read from the watch source.",
		}),
		ReportsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_reports_published_total",
			Help:      "Total weather reports written to the sink topic.",
		}),
		RequestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_request_errors_total",
			Help:      "Total location requests skipped as invalid.",
		}),
		WatchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watch_running",
			Help:      "1 when the watch loop is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of location requests per batch extracted from the watch source.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-assess-publish cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}

	prometheus.MustRegister(
		m.Assessments,
		m.AssessmentDuration,
		m.RiskLevels,
		m.ProviderRequests,
		m.ProviderAPIDuration,
		m.PointCache,
		m.ReportStoreErrors,
		m.NearbyReports,
		m.CacheWrites,
		m.RequestsConsumed,
		m.ReportsPublished,
		m.RequestErrors,
		m.WatchRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		Assessments:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "assessments_total"}, []string{"provider", "outcome"}),
		AssessmentDuration:      prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "assessment_duration_seconds"}, []string{"provider"}),
		RiskLevels:              prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "risk_levels_total"}, []string{"level"}),
		ProviderRequests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "provider_requests_total"}, []string{"provider", "outcome"}),
		ProviderAPIDuration:     prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "provider_api_duration_seconds"}, []string{"provider"}),
		PointCache:              prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "nws_point_cache_total"}, []string{"result"}),
		ReportStoreErrors:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "report_store_errors_total"}, []string{"collection"}),
		NearbyReports:           prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "nearby_reports"}),
		CacheWrites:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "weather_cache_writes_total"}, []string{"outcome"}),
		RequestsConsumed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "location_requests_consumed_total"}),
		ReportsPublished:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "weather_reports_published_total"}),
		RequestErrors:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "location_request_errors_total"}),
		WatchRunning:            prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "watch_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_processing_duration_seconds"}),
	}
}
