package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	metricPrefix = "campus_energy_"

	resultSuccess = "success"
	resultError   = "error"
	resultSkipped = "skipped"
)

var (
	registerOnce sync.Once

	ingestRows    *prometheus.CounterVec
	importTotal   *prometheus.CounterVec
	importLatency *prometheus.HistogramVec

	aggregationTotal   *prometheus.CounterVec
	aggregationLatency *prometheus.HistogramVec

	fetchTotal   *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec

	reportExportTotal *prometheus.CounterVec
)

// StatsFunc reports connection pool statistics.
type StatsFunc func() sql.DBStats

// Init registers the collectors once. A non-nil stats func adds pool gauges.
func Init(stats StatsFunc, logger *zap.Logger) {
	registerOnce.Do(func() {
		ingestRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_rows_total",
				Help: "Rows reconciled by source kind and result",
			},
			[]string{"kind", "result"},
		)
		importTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_total",
				Help: "File imports by source kind and result",
			},
			[]string{"kind", "result"},
		)
		importLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "import_latency_seconds",
				Help:    "Import latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "result"},
		)

		aggregationTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "aggregation_total",
				Help: "Aggregation queries by operation and result",
			},
			[]string{"operation", "result"},
		)
		aggregationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "aggregation_latency_seconds",
				Help:    "Aggregation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "result"},
		)

		fetchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "bloom_fetch_total",
				Help: "Scheduled fuel-cell fetch runs by result",
			},
			[]string{"result"},
		)
		fetchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "bloom_fetch_latency_seconds",
				Help:    "Fuel-cell fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		reportExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Summary report exports by format and result",
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			ingestRows,
			importTotal,
			importLatency,
			aggregationTotal,
			aggregationLatency,
			fetchTotal,
			fetchLatency,
			reportExportTotal,
		)

		if stats != nil {
			registerDBMetrics(stats, logger)
		}
	})
}

func registerDBMetrics(stats StatsFunc, logger *zap.Logger) {
	gauge := func(name, help string, read func(sql.DBStats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: metricPrefix + name,
			Help: help,
		}, func() float64 { return read(stats()) })
	}

	collectors := []prometheus.Collector{
		gauge("db_open_connections", "Open database connections", func(s sql.DBStats) float64 { return float64(s.OpenConnections) }),
		gauge("db_in_use_connections", "Database connections in use", func(s sql.DBStats) float64 { return float64(s.InUse) }),
		gauge("db_idle_connections", "Idle database connections", func(s sql.DBStats) float64 { return float64(s.Idle) }),
		gauge("db_wait_count", "Total waits for a database connection", func(s sql.DBStats) float64 { return float64(s.WaitCount) }),
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil && logger != nil {
			logger.Warn("db metric registration failed", zap.Error(err))
		}
	}
}

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}

// AddIngestRows counts reconciled rows.
func AddIngestRows(kind, result string, n int) {
	if n <= 0 {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	if ingestRows != nil {
		ingestRows.WithLabelValues(kind, result).Add(float64(n))
	}
}

// ObserveImport records import duration and result.
func ObserveImport(kind, result string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if importTotal != nil {
		importTotal.WithLabelValues(kind, result).Inc()
	}
	if importLatency != nil {
		importLatency.WithLabelValues(kind, result).Observe(duration.Seconds())
	}
}

// ObserveAggregation records aggregation latency and result.
func ObserveAggregation(operation, result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if aggregationTotal != nil {
		aggregationTotal.WithLabelValues(operation, result).Inc()
	}
	if aggregationLatency != nil {
		aggregationLatency.WithLabelValues(operation, result).Observe(duration.Seconds())
	}
}

// ObserveFetch records a scheduled fetch run.
func ObserveFetch(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if fetchTotal != nil {
		fetchTotal.WithLabelValues(result).Inc()
	}
	if fetchLatency != nil {
		fetchLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncReportExport counts a summary export.
func IncReportExport(format, result string) {
	if format == "" {
		format = "unknown"
	}
	if reportExportTotal != nil {
		reportExportTotal.WithLabelValues(format, result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultSkipped = resultSkipped
)
