package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "fleetledger_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	recordsCreated  *prometheus.CounterVec
	recordsRejected *prometheus.CounterVec

	statementsGenerated      *prometheus.CounterVec
	statementGenerateLatency *prometheus.HistogramVec
	statementExports         *prometheus.CounterVec
	statementExportLatency   *prometheus.HistogramVec

	cacheLookups *prometheus.CounterVec
)

// Init registers the process metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method and status class",
			},
			[]string{"method", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_latency_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		)

		recordsCreated = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "records_created_total",
				Help: "Total financial records stored by kind",
			},
			[]string{"kind"},
		)
		recordsRejected = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "records_rejected_total",
				Help: "Total records rejected at ingest by reason",
			},
			[]string{"reason"},
		)

		statementsGenerated = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statements_generated_total",
				Help: "Total statement generate operations by result",
			},
			[]string{"result"},
		)
		statementGenerateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statement_generate_latency_seconds",
				Help:    "Statement generate latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		statementExports = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_exports_total",
				Help: "Total statement export operations by format and result",
			},
			[]string{"format", "result"},
		)
		statementExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statement_export_latency_seconds",
				Help:    "Statement export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		cacheLookups = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cache_lookups_total",
				Help: "Total cache lookups by cache name and outcome",
			},
			[]string{"cache", "outcome"},
		)

		prometheus.MustRegister(
			httpRequests,
			httpLatency,
			recordsCreated,
			recordsRejected,
			statementsGenerated,
			statementGenerateLatency,
			statementExports,
			statementExportLatency,
			cacheLookups,
		)
	})
}

// ObserveHTTP records an HTTP request with its status class.
func ObserveHTTP(method string, statusCode int, duration time.Duration) {
	status := "2xx"
	switch {
	case statusCode >= 500:
		status = "5xx"
	case statusCode >= 400:
		status = "4xx"
	case statusCode >= 300:
		status = "3xx"
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, status).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method).Observe(duration.Seconds())
	}
}

// IncRecordCreated increments the stored-record counter.
func IncRecordCreated(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	if recordsCreated != nil {
		recordsCreated.WithLabelValues(kind).Inc()
	}
}

// AddRecordsRejected increments the ingest rejection counter by count.
func AddRecordsRejected(reason string, count int) {
	if count <= 0 {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	if recordsRejected != nil {
		recordsRejected.WithLabelValues(reason).Add(float64(count))
	}
}

// ObserveStatementGenerate records generate latency and result.
func ObserveStatementGenerate(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if statementsGenerated != nil {
		statementsGenerated.WithLabelValues(result).Inc()
	}
	if statementGenerateLatency != nil {
		statementGenerateLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveStatementExport records export latency and result.
func ObserveStatementExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if statementExports != nil {
		statementExports.WithLabelValues(format, result).Inc()
	}
	if statementExportLatency != nil {
		statementExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncCacheLookup records a cache hit or miss.
func IncCacheLookup(cache string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	if cacheLookups != nil {
		cacheLookups.WithLabelValues(cache, outcome).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
