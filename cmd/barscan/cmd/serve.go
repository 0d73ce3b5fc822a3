package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/MeKo-Tech/barscan/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP scanning API",
		Long: `Start an HTTP server that decodes uploaded images.

The server provides the following endpoints:
  POST /scan      - Decode the barcode in an uploaded image (field "file")
  POST /scan/pdf  - Decode barcodes in the images of an uploaded PDF
  GET  /scan/ws   - WebSocket; every binary frame is decoded as an image
  GET  /formats   - Supported and enabled symbologies
  GET  /health    - Health check endpoint
  GET  /metrics   - Prometheus metrics

Access tokens are read from the configuration file or from the
BARSCAN_SERVER_ACCESS_TOKENS / ACCESS_TOKENS environment variables.

Examples:
  barscan serve
  barscan serve --port 8080
  barscan serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.applyScanFlags(cmd)
			a.applyServerFlags(cmd)
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			srvCfg, err := a.serverConfig()
			if err != nil {
				return err
			}
			srv, err := server.NewServer(srvCfg)
			if err != nil {
				return fmt.Errorf("failed to initialize server: %w", err)
			}
			defer func() { _ = srv.Close() }()

			sc := a.cfg.Server
			ln, err := net.Listen("tcp", net.JoinHostPort(sc.Host, fmt.Sprint(sc.Port)))
			if err != nil {
				return fmt.Errorf("failed to listen: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, ln, srv.Handler(), sc, a.logger)
		},
	}

	addScanFlags(cmd)
	cmd.Flags().StringP("host", "H", "localhost", "server host")
	cmd.Flags().IntP("port", "p", 8080, "server port")
	cmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	cmd.Flags().StringSlice("trusted-proxy", nil, "proxy IP or CIDR whose X-Forwarded-For/X-Real-IP headers are trusted (repeatable)")
	cmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	cmd.Flags().Int("timeout", 30, "request timeout in seconds")
	cmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	cmd.Flags().Bool("websocket", true, "enable the /scan/ws endpoint")
	cmd.Flags().Bool("metrics", true, "enable the /metrics endpoint")
	// Rate limiting flags
	cmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	cmd.Flags().Int("requests-per-minute", 60, "maximum requests per minute per client")
	cmd.Flags().Int("requests-per-hour", 1000, "maximum requests per hour per client")
	cmd.Flags().Int("max-requests-per-day", 10000, "maximum requests per day per client")
	cmd.Flags().Int64("max-data-per-day", 1024, "maximum data processed per day per client (MB)")
	return cmd
}

// applyServerFlags overrides the server section with any flags set on cmd.
func (a *app) applyServerFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	sc := &a.cfg.Server
	if flags.Changed("host") {
		sc.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		sc.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("cors-origin") {
		sc.CORSOrigin, _ = flags.GetString("cors-origin")
	}
	if flags.Changed("trusted-proxy") {
		sc.TrustedProxies, _ = flags.GetStringSlice("trusted-proxy")
	}
	if flags.Changed("max-upload-size") {
		sc.MaxUploadMB, _ = flags.GetInt("max-upload-size")
	}
	if flags.Changed("timeout") {
		sc.TimeoutSec, _ = flags.GetInt("timeout")
	}
	if flags.Changed("shutdown-timeout") {
		sc.ShutdownTimeout, _ = flags.GetInt("shutdown-timeout")
	}
	if flags.Changed("websocket") {
		sc.WebSocketEnabled, _ = flags.GetBool("websocket")
	}
	if flags.Changed("metrics") {
		sc.MetricsEnabled, _ = flags.GetBool("metrics")
	}
	if flags.Changed("rate-limit-enabled") {
		sc.RateLimit.Enabled, _ = flags.GetBool("rate-limit-enabled")
	}
	if flags.Changed("requests-per-minute") {
		sc.RateLimit.RequestsPerMinute, _ = flags.GetInt("requests-per-minute")
	}
	if flags.Changed("requests-per-hour") {
		sc.RateLimit.RequestsPerHour, _ = flags.GetInt("requests-per-hour")
	}
	if flags.Changed("max-requests-per-day") {
		sc.RateLimit.MaxRequestsPerDay, _ = flags.GetInt("max-requests-per-day")
	}
	if flags.Changed("max-data-per-day") {
		sc.RateLimit.MaxDataPerDayMB, _ = flags.GetInt64("max-data-per-day")
	}
}

// serverConfig translates the loaded configuration into server.Config.
func (a *app) serverConfig() (server.Config, error) {
	sc := a.cfg.Server
	opts, err := a.cfg.ScannerOptions(a.logger)
	if err != nil {
		return server.Config{}, err
	}
	return server.Config{
		CORSOrigin:       sc.CORSOrigin,
		MaxUploadMB:      int64(sc.MaxUploadMB),
		AccessTokens:     sc.Tokens(),
		TrustedProxies:   sc.TrustedProxies,
		WebSocketEnabled: sc.WebSocketEnabled,
		MetricsEnabled:   sc.MetricsEnabled,
		RateLimit: server.RateLimitConfig{
			Enabled:           sc.RateLimit.Enabled,
			RequestsPerMinute: sc.RateLimit.RequestsPerMinute,
			RequestsPerHour:   sc.RateLimit.RequestsPerHour,
			MaxRequestsPerDay: sc.RateLimit.MaxRequestsPerDay,
			MaxDataPerDay:     sc.RateLimit.MaxDataPerDayMB * 1024 * 1024,
		},
		ScannerOptions: opts,
		Logger:         a.logger,
	}, nil
}

// runServer serves handler on ln until ctx is cancelled, then shuts down
// gracefully within the configured shutdown timeout.
func runServer(ctx context.Context, ln net.Listener, handler http.Handler, sc config.ServerConfig, logger *slog.Logger) error {
	timeout := time.Duration(sc.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting barscan server", "addr", ln.Addr().String(),
			"auth", len(sc.Tokens()) > 0, "rate_limit", sc.RateLimit.Enabled)
		serveErr <- httpServer.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	logger.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", sc.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(sc.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return err
	}
	logger.Info("Graceful shutdown completed")
	return nil
}
