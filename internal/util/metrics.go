package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReturnsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "returns_processed_total",
		Help: "Total number of return requests processed",
	})

	ReturnsApprovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "returns_approved_total",
		Help: "Total number of returns approved and recorded",
	})

	ReturnsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "returns_rejected_total",
		Help: "Total number of rejected return requests",
	}, []string{"reason"})

	MatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "product_match_latency_seconds",
		Help:    "Latency of the full catalog matching scan",
		Buckets: prometheus.DefBuckets,
	})

	MatchBestScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "product_match_best_score",
		Help:    "Best similarity score per matching scan",
		Buckets: prometheus.LinearBuckets(-1, 0.2, 11),
	})

	CatalogImagesScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_images_scanned_total",
		Help: "Total number of catalog images scored during matching",
	})

	CatalogImagesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_images_skipped_total",
		Help: "Total number of catalog images skipped during matching",
	}, []string{"reason"})

	EmbeddingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "embedding_latency_seconds",
		Help:    "Latency of embedding backend calls",
		Buckets: prometheus.DefBuckets,
	})

	EmbeddingCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "embedding_cache_hits_total",
		Help: "Total number of catalog embedding cache hits",
	})

	VisionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vision_label_latency_seconds",
		Help:    "Latency of vision label-detection calls",
		Buckets: prometheus.DefBuckets,
	})

	VisionErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vision_label_errors_total",
		Help: "Total number of failed vision label-detection calls",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
