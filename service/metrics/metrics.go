// Package metrics 定义服务的 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultReady     = "ready"
	ResultError     = "error"
	ResultCancelled = "cancelled"
)

var (
	// 文档处理结果计数
	DocumentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docinsight_documents_processed_total",
			Help: "Number of document processing runs by result",
		},
		[]string{"result"},
	)

	// 各处理阶段耗时，stage 为 extracting 或 preparing
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docinsight_stage_duration_seconds",
			Help:    "Duration of document processing stages in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	FileCleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docinsight_file_cleanup_failures_total",
		Help: "Number of uploaded files that could not be removed after processing",
	})

	ArchiveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docinsight_archive_failures_total",
		Help: "Number of uploaded files that could not be archived to object storage",
	})

	QueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "docinsight_queue_length",
		Help: "Number of processing tasks waiting for a worker",
	})

	AnalysisCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docinsight_analysis_cache_hits_total",
		Help: "Number of analysis requests served from cache",
	})

	AnalysisCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docinsight_analysis_cache_misses_total",
		Help: "Number of analysis requests not found in cache",
	})

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docinsight_http_requests_total",
			Help: "Number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docinsight_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
