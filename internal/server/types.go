package server

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/barscan/internal/pdf"
	"github.com/MeKo-Tech/barscan/internal/scanner"
)

const (
	// rateLimitIdle is how long a silent client is kept by the rate limiter.
	rateLimitIdle = 24 * time.Hour
	pruneInterval = 10 * time.Minute
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	scanner        *scanner.Scanner
	pdf            *pdf.Processor
	logger         *slog.Logger
	corsOrigin     string
	maxUploadMB    int64
	tokens         []string
	rateLimiter    *RateLimiter
	trustedProxies trustedProxies
	wsEnabled      bool
	metrics        bool
	done           chan struct{}
	closeOnce      sync.Once
	pruneStopped   chan struct{}
}

// Config holds server configuration.
type Config struct {
	CORSOrigin       string
	MaxUploadMB      int64
	AccessTokens     []string
	WebSocketEnabled bool
	MetricsEnabled   bool
	RateLimit        RateLimitConfig
	// TrustedProxies lists the peers (IPs or CIDRs) whose X-Forwarded-For
	// and X-Real-IP headers identify the client. Empty means clients are
	// keyed by their connection address.
	TrustedProxies []string
	ScannerOptions []scanner.Option
	PDFOptions     []pdf.ProcessorOption
	Logger         *slog.Logger
}

// RateLimitConfig holds per-client limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64 // bytes
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

type FormatsResponse struct {
	Supported []string `json:"supported"`
	Enabled   []string `json:"enabled"`
	TryHarder bool     `json:"try_harder"`
}

// ScanResponse is the success body of /scan and of websocket replies.
type ScanResponse struct {
	QRCode string `json:"qrcode"`
	Format string `json:"format"`
}

// ErrorResponse is the failure body of every scan endpoint.
type ErrorResponse struct {
	ErrorMessage string `json:"errorMessage"`
}

type PDFScanResponse struct {
	Hits       []pdf.Hit          `json:"hits"`
	Images     int                `json:"images"`
	Processing pdf.ProcessingInfo `json:"processing"`
}

// NewServer creates a scan server. The scanner reports to the Prometheus
// collectors in addition to any observer in cfg.ScannerOptions.
func NewServer(cfg Config) (*Server, error) {
	if cfg.MaxUploadMB <= 0 {
		return nil, errors.New("max upload size must be positive")
	}
	proxies, err := parseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := append([]scanner.Option{scanner.WithLogger(logger)}, cfg.ScannerOptions...)
	opts = append(opts, scanner.WithObserver(scanMetrics{}))
	sc := scanner.New(opts...)

	pdfOpts := append([]pdf.ProcessorOption{pdf.WithLogger(logger)}, cfg.PDFOptions...)

	s := &Server{
		scanner:        sc,
		pdf:            pdf.NewProcessor(sc, pdfOpts...),
		logger:         logger,
		corsOrigin:     cfg.CORSOrigin,
		maxUploadMB:    cfg.MaxUploadMB,
		tokens:         append([]string(nil), cfg.AccessTokens...),
		trustedProxies: proxies,
		wsEnabled:      cfg.WebSocketEnabled,
		metrics:        cfg.MetricsEnabled,
		done:           make(chan struct{}),
	}

	if cfg.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMinute,
			cfg.RateLimit.RequestsPerHour,
			cfg.RateLimit.MaxRequestsPerDay,
			cfg.RateLimit.MaxDataPerDay,
		)
		s.pruneStopped = make(chan struct{})
		go s.pruneLoop()
	}

	return s, nil
}

func (s *Server) pruneLoop() {
	defer close(s.pruneStopped)
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.rateLimiter.Prune(rateLimitIdle); n > 0 {
				s.logger.Debug("pruned idle rate limit clients", "count", n)
			}
		case <-s.done:
			return
		}
	}
}

// Close releases server resources.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.pruneStopped != nil {
			<-s.pruneStopped
		}
	})
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/formats", s.corsMiddleware(s.formatsHandler))
	mux.HandleFunc("/scan", s.corsMiddleware(s.protected(s.scanImageHandler)))
	mux.HandleFunc("/scan/pdf", s.corsMiddleware(s.protected(s.scanPDFHandler)))
	if s.wsEnabled {
		mux.HandleFunc("/scan/ws", s.authMiddleware(s.rateLimitMiddleware(s.scanWebSocketHandler)))
	}
	if s.metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}
}

// Handler returns a mux with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

// protected applies token auth and rate limiting.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return s.authMiddleware(s.rateLimitMiddleware(next))
}
