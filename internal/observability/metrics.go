package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "merra2_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the extraction service.
type Metrics struct {
	RequestsConsumed prometheus.Counter
	ProfilesProduced prometheus.Counter
	ExtractErrors    *prometheus.CounterVec // labels: reason={invalid_request,axis_lookup,missing_data,degenerate,source}
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Sampling metrics.
	Samples          *prometheus.CounterVec // labels: method={exact,bilinear,linear_lat,linear_lon}
	GridCache        *prometheus.CounterVec // labels: result={hit,miss}
	GridLoadDuration prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RequestsConsumed,
		m.ProfilesProduced,
		m.ExtractErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.Samples,
		m.GridCache,
		m.GridLoadDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RequestsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_consumed_total",
			Help:      "Total extraction requests read from the source topic.",
		}),
		ProfilesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profiles_produced_total",
			Help:      "Total profiles written to the sinks.",
		}),
		ExtractErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extract_errors_total",
			Help:      "Extraction failures by reason.",
		}, []string{"reason"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of requests per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		Samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Grid samples by method.",
		}, []string{"method"}),
		GridCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grid_cache_total",
			Help:      "Decoded grid cache lookups by result.",
		}, []string{"result"}),
		GridLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grid_load_duration_seconds",
			Help:      "Time to open and decode one daily MERRA-2 file.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}
