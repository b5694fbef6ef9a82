package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan pipeline metrics
var (
	ScanRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photokeep_scan_runs_total",
			Help: "Total number of catalog scan runs",
		},
	)

	ScanErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photokeep_scan_errors_total",
			Help: "Total number of failed catalog scans",
		},
	)

	ScanIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photokeep_scan_running",
			Help: "Whether a catalog scan is currently running (1 = running, 0 = idle)",
		},
	)

	ScanLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photokeep_scan_last_run_timestamp",
			Help: "Timestamp of the last completed catalog scan",
		},
	)

	ScanLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photokeep_scan_last_run_duration_seconds",
			Help: "Duration of the last completed catalog scan in seconds",
		},
	)

	ScanPhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photokeep_scan_phase_duration_seconds",
			Help:    "Duration of each scan phase in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"phase"},
	)

	FilesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photokeep_scan_files_processed_total",
			Help: "Files processed by the scan pipeline, by change-detection outcome",
		},
		[]string{"outcome"}, // "new", "updated", "moved", "unchanged", "failed"
	)

	HashesComputed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photokeep_scan_hashes_computed_total",
			Help: "Content hashes computed during scans",
		},
	)

	DuplicatesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photokeep_scan_duplicates_removed_total",
			Help: "Duplicate catalog entries collapsed by the duplicate resolver",
		},
	)

	OrphansRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photokeep_scan_orphans_removed_total",
			Help: "Orphaned catalog entries removed, by kind",
		},
		[]string{"kind"}, // "asset", "folder"
	)
)

// Derived-data metrics
var (
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photokeep_extractions_total",
			Help: "Metadata extraction attempts, by status",
		},
		[]string{"status"},
	)

	ThumbnailsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photokeep_thumbnails_generated_total",
			Help: "Thumbnails generated, by size class and status",
		},
		[]string{"size", "status"},
	)

	ThumbnailDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photokeep_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"media_type"},
	)

	MlJobsQueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photokeep_ml_jobs_queued_total",
			Help: "ML jobs enqueued for newly discovered assets",
		},
	)
)

// Filesystem retry metrics (NFS-mounted library roots)
var (
	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photokeep_fs_stale_errors_total",
			Help: "Stale NFS file handle errors observed, by operation",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photokeep_fs_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying, by operation",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photokeep_fs_retry_failures_total",
			Help: "Filesystem operations that exhausted their retries, by operation",
		},
		[]string{"operation"},
	)
)

// Catalog store metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photokeep_db_queries_total",
			Help: "Total number of catalog store queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photokeep_db_query_duration_seconds",
			Help:    "Catalog store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photokeep_db_transaction_duration_seconds",
			Help:    "Catalog store transaction duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
		[]string{"result"}, // "commit", "rollback"
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photokeep_db_connections_open",
			Help: "Number of open catalog store connections",
		},
	)
)
