//nolint:lll
package config

// Config represents the complete configuration for the barscan application.
// It includes settings for all commands (image, pdf, serve, batch) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Decode settings shared by every command
	Scan ScanConfig `mapstructure:"scan" yaml:"scan" json:"scan"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// PDF extraction configuration
	PDF PDFConfig `mapstructure:"pdf" yaml:"pdf" json:"pdf"`
}

// ScanConfig contains symbol decoding settings.
type ScanConfig struct {
	TryHarder   bool     `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
	Formats     []string `mapstructure:"formats" yaml:"formats" json:"formats"`
	Diagnostics bool     `mapstructure:"diagnostics" yaml:"diagnostics" json:"diagnostics"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
	Color  bool   `mapstructure:"color" yaml:"color" json:"color"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host             string          `mapstructure:"host" yaml:"host" json:"host"`
	Port             int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin       string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB      int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec       int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout  int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	AccessTokens     []string        `mapstructure:"access_tokens" yaml:"access_tokens" json:"-"`
	TrustedProxies   []string        `mapstructure:"trusted_proxies" yaml:"trusted_proxies" json:"trusted_proxies"`
	WebSocketEnabled bool            `mapstructure:"websocket_enabled" yaml:"websocket_enabled" json:"websocket_enabled"`
	MetricsEnabled   bool            `mapstructure:"metrics_enabled" yaml:"metrics_enabled" json:"metrics_enabled"`
	RateLimit        RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int64 `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
}

// PDFConfig contains PDF image extraction settings.
type PDFConfig struct {
	Pages string `mapstructure:"pages" yaml:"pages" json:"pages"`
}
