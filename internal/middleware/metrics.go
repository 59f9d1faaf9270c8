package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Request metrics
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chorizo_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chorizo_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	// Chat metrics
	chatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chorizo_chat_requests_total",
		Help: "Total number of chat requests",
	}, []string{"mode", "status"})

	// Upstream metrics
	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chorizo_upstream_request_duration_seconds",
		Help:    "Duration of upstream completion requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model", "status"})

	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chorizo_upstream_requests_total",
		Help: "Total number of upstream completion requests",
	}, []string{"model", "status"})

	// Cache metrics
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chorizo_cache_hits_total",
		Help: "Total number of completion cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chorizo_cache_misses_total",
		Help: "Total number of completion cache misses",
	})

	// Rate limit metrics
	rateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chorizo_rate_limit_rejections_total",
		Help: "Total number of requests rejected by the rate limiter",
	})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordRequest records a completed HTTP request
func (m *Metrics) RecordRequest(path, status string, duration time.Duration) {
	requestsTotal.WithLabelValues(path, status).Inc()
	requestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// RecordChatRequest records a chat request outcome
func (m *Metrics) RecordChatRequest(mode, status string) {
	chatRequests.WithLabelValues(mode, status).Inc()
}

// RecordUpstreamRequest records an upstream completion request
func (m *Metrics) RecordUpstreamRequest(model, status string, duration time.Duration) {
	upstreamRequestDuration.WithLabelValues(model, status).Observe(duration.Seconds())
	upstreamRequestsTotal.WithLabelValues(model, status).Inc()
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit() {
	cacheHits.Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss() {
	cacheMisses.Inc()
}

// RecordRateLimitRejection records a rate limit rejection
func (m *Metrics) RecordRateLimitRejection() {
	rateLimitRejections.Inc()
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
