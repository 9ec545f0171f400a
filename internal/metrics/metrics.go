// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled requests by route, method and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration records request latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blog_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// ReactionsTotal counts single reaction changes by reaction and action.
	ReactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_reactions_total",
		Help: "Total number of reaction increments and decrements",
	}, []string{"reaction", "action"})

	// CommentOperationsTotal counts comment mutations by operation.
	CommentOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_comment_operations_total",
		Help: "Total number of comment mutations",
	}, []string{"operation"})

	// CommentRecountsTotal counts authoritative comment recounts by result.
	CommentRecountsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_comment_recounts_total",
		Help: "Total number of comment count recomputations",
	}, []string{"result"})

	// RoleResolutionsTotal counts role lookups by outcome: existing, created or fallback.
	RoleResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_role_resolutions_total",
		Help: "Total number of role resolutions by outcome",
	}, []string{"outcome"})

	// AccessDecisionsTotal counts guard decisions by decision.
	AccessDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_access_decisions_total",
		Help: "Total number of route guard decisions",
	}, []string{"decision"})

	// ImageUploadBytes records the size of uploaded images.
	ImageUploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "blog_image_upload_bytes",
		Help:    "Size of uploaded images in bytes",
		Buckets: prometheus.ExponentialBuckets(16*1024, 4, 7),
	})
)

// ObserveRequest records one finished HTTP request
func ObserveRequest(method, route string, status int, start time.Time) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
}
