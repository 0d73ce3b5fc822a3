package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/scanner"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Scan: ScanConfig{
			TryHarder:   true,
			Formats:     defaultFormats(),
			Diagnostics: false,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		Server: ServerConfig{
			Host:             "localhost",
			Port:             8080,
			CORSOrigin:       "*",
			MaxUploadMB:      50,
			TimeoutSec:       30,
			ShutdownTimeout:  10,
			AccessTokens:     nil,
			WebSocketEnabled: true,
			MetricsEnabled:   true,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
				MaxRequestsPerDay: 10000,
				MaxDataPerDayMB:   1024,
			},
		},
		Batch: BatchConfig{
			Workers:         4,
			Recursive:       false,
			ContinueOnError: true,
		},
		PDF: PDFConfig{
			Pages: "",
		},
	}
}

func defaultFormats() []string {
	h := barcode.DefaultHints()
	out := make([]string, len(h.PossibleFormats))
	for i, f := range h.PossibleFormats {
		out[i] = f.String()
	}
	return out
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "csv"}
	if c.Output.Format != "" && !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if _, err := barcode.ParseFormats(c.Scan.Formats); err != nil {
		return fmt.Errorf("invalid scan.formats: %w", err)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if err := validateNonNegative(c.Server.RateLimit.RequestsPerMinute, "rate_limit.requests_per_minute"); err != nil {
		return err
	}
	if err := validateNonNegative(c.Server.RateLimit.RequestsPerHour, "rate_limit.requests_per_hour"); err != nil {
		return err
	}
	if err := validateNonNegative(c.Server.RateLimit.MaxRequestsPerDay, "rate_limit.max_requests_per_day"); err != nil {
		return err
	}
	if c.Server.RateLimit.MaxDataPerDayMB < 0 {
		return fmt.Errorf("invalid rate_limit.max_data_per_day_mb: %d (must not be negative)", c.Server.RateLimit.MaxDataPerDayMB)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	return nil
}

// Hints converts the scan section into decode hints. An empty format list
// means every format the reader supports.
func (c *Config) Hints() (barcode.Hints, error) {
	formats, err := barcode.ParseFormats(c.Scan.Formats)
	if err != nil {
		return barcode.Hints{}, err
	}
	return barcode.Hints{TryHarder: c.Scan.TryHarder, PossibleFormats: formats}, nil
}

// ScannerOptions builds the scanner options described by the configuration.
func (c *Config) ScannerOptions(logger *slog.Logger) ([]scanner.Option, error) {
	hints, err := c.Hints()
	if err != nil {
		return nil, err
	}
	return []scanner.Option{
		scanner.WithHints(hints),
		scanner.WithLogger(logger),
		scanner.WithDiagnostics(c.Scan.Diagnostics),
	}, nil
}

// Tokens returns the access-token allow-list with blanks removed. Entries
// may themselves be comma separated, as when read from ACCESS_TOKENS.
func (s ServerConfig) Tokens() []string {
	var out []string
	for _, entry := range s.AccessTokens {
		for _, tok := range strings.Split(entry, ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				out = append(out, tok)
			}
		}
	}
	return out
}

// Redacted returns a copy safe for printing, with access tokens masked.
func (c Config) Redacted() Config {
	out := c
	if n := len(c.Server.Tokens()); n > 0 {
		out.Server.AccessTokens = []string{fmt.Sprintf("<%d redacted>", n)}
	}
	return out
}

// Helper functions

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func validateNonNegative(value int, name string) error {
	if value < 0 {
		return fmt.Errorf("invalid %s: %d (must not be negative)", name, value)
	}
	return nil
}
