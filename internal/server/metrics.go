package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MeKo-Tech/barscan/internal/scanner"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barscan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "barscan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Scan request metrics
	scanRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barscan_scan_requests_total",
			Help: "Total number of scan requests",
		},
		[]string{"type", "status"}, // type: image, pdf, websocket
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "barscan_scan_duration_seconds",
			Help:    "Duration of one multi-strategy scan in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"outcome"},
	)

	strategyAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barscan_strategy_attempts_total",
			Help: "Decode attempts by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	decodedSymbolsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barscan_decoded_symbols_total",
			Help: "Decoded symbols by format",
		},
		[]string{"format"},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barscan_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour, requests, data
	)

	authFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "barscan_auth_failures_total",
			Help: "Requests rejected for a missing or unknown access token",
		},
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "barscan_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
		[]string{"type"},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "barscan_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barscan_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)

// scanMetrics feeds scanner attempts and outcomes into Prometheus.
type scanMetrics struct{}

var _ scanner.Observer = scanMetrics{}

func (scanMetrics) ObserveAttempt(st scanner.Strategy, err error, _ time.Duration) {
	strategyAttemptsTotal.WithLabelValues(st.String(), outcome(err)).Inc()
}

func (scanMetrics) ObserveScan(res scanner.Result, err error, d time.Duration) {
	scanDuration.WithLabelValues(outcome(err)).Observe(d.Seconds())
	if err == nil {
		decodedSymbolsTotal.WithLabelValues(res.Format.String()).Inc()
	}
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return string(scanner.KindOf(err))
}
