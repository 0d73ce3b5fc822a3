package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testValue = "test_value"

// isolate points HOME and XDG_CONFIG_HOME at empty directories, clears every
// BARSCAN_ variable and changes into a fresh working directory.
func isolate(t *testing.T) string {
	t.Helper()
	for _, env := range os.Environ() {
		key, _, _ := strings.Cut(env, "=")
		if strings.HasPrefix(key, EnvPrefix+"_") || key == AccessTokensEnv || key == LegacyAccessTokensEnv {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Chdir(dir)
	return dir
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	require.NotNil(t, loader)
	assert.NotNil(t, loader.v)
	assert.Same(t, loader.v, loader.GetViper())
}

func TestLoadWithNoConfigFile(t *testing.T) {
	isolate(t)

	cfg, err := NewIsolatedLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	def := DefaultConfig()
	assert.Equal(t, def.LogLevel, cfg.LogLevel)
	assert.Equal(t, def.Server.Port, cfg.Server.Port)
	assert.Equal(t, def.Scan.Formats, cfg.Scan.Formats)
	assert.True(t, cfg.Scan.TryHarder)
	assert.Empty(t, cfg.Server.AccessTokens)
}

func TestLoadFromSearchPath(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "log_level: warn\n")

	loader := NewIsolatedLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, ConfigFileName+".yaml", filepath.Base(loader.GetConfigFileUsed()))
}

func TestLoadWithValidYAMLFile(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `
log_level: debug
verbose: true
scan:
  try_harder: false
  formats: [qr, ean13]
  diagnostics: true
server:
  host: 0.0.0.0
  port: 9090
  access_tokens: [alpha, beta]
  trusted_proxies: [10.0.0.0/8]
  rate_limit:
    enabled: true
    requests_per_minute: 5
batch:
  workers: 2
  include: ["*.png"]
pdf:
  pages: "1-2"
`)

	loader := NewIsolatedLoader()
	cfg, err := loader.LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Verbose)
	assert.False(t, cfg.Scan.TryHarder)
	assert.Equal(t, []string{"qr", "ean13"}, cfg.Scan.Formats)
	assert.True(t, cfg.Scan.Diagnostics)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Server.AccessTokens)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Server.TrustedProxies)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, 5, cfg.Server.RateLimit.RequestsPerMinute)
	assert.Equal(t, 1000, cfg.Server.RateLimit.RequestsPerHour)
	assert.Equal(t, 2, cfg.Batch.Workers)
	assert.Equal(t, []string{"*.png"}, cfg.Batch.Include)
	assert.Equal(t, "1-2", cfg.PDF.Pages)
	assert.Equal(t, path, loader.GetConfigFileUsed())
}

func TestLoadWithInvalidYAMLFile(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "log_level: debug\n  invalid indentation\n    more\n")

	_, err := NewIsolatedLoader().LoadWithFile(path)
	assert.Error(t, err)
}

func TestLoadWithNonExistentFile(t *testing.T) {
	_, err := NewIsolatedLoader().LoadWithFile("/nonexistent/path/to/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadWithValidationFailure(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "log_level: invalid_level\nserver:\n  port: 0\n")

	_, err := NewIsolatedLoader().LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestLoadWithoutValidation(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "log_level: invalid_level\nserver:\n  port: -1\nscan:\n  formats: [nonsense]\n")

	cfg, err := NewIsolatedLoader().LoadWithFileWithoutValidation(path)
	require.NoError(t, err)
	assert.Equal(t, "invalid_level", cfg.LogLevel)
	assert.Equal(t, -1, cfg.Server.Port)
	assert.Equal(t, []string{"nonsense"}, cfg.Scan.Formats)

	cfg, err = NewIsolatedLoader().LoadWithoutValidation()
	require.NoError(t, err)
	assert.Equal(t, "invalid_level", cfg.LogLevel, "search path should find the same file")
}

func TestEnvironmentVariableOverride(t *testing.T) {
	isolate(t)
	t.Setenv("BARSCAN_LOG_LEVEL", "debug")
	t.Setenv("BARSCAN_SERVER_PORT", "9999")
	t.Setenv("BARSCAN_VERBOSE", "true")
	t.Setenv("BARSCAN_SCAN_DIAGNOSTICS", "true")
	t.Setenv("BARSCAN_SERVER_RATE_LIMIT_ENABLED", "true")

	cfg, err := NewIsolatedLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.True(t, cfg.Verbose)
	assert.True(t, cfg.Scan.Diagnostics)
	assert.True(t, cfg.Server.RateLimit.Enabled)
}

func TestAccessTokensFromEnvironment(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
		want []string
	}{
		{"bare variable", AccessTokensEnv, "tok1, tok2", []string{"tok1", "tok2"}},
		{"prefixed variable", "BARSCAN_SERVER_ACCESS_TOKENS", "only", []string{"only"}},
		{"blank entries dropped", AccessTokensEnv, ",,x,", []string{"x"}},
		{"legacy variable", LegacyAccessTokensEnv, "old", []string{"old"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.env, tt.val)

			cfg, err := NewIsolatedLoader().Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Server.AccessTokens)
		})
	}
}

func TestMultipleConfigSourcesPrecedence(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "log_level: warn\nserver:\n  port: 7000\n")
	t.Setenv("BARSCAN_LOG_LEVEL", "debug")

	cfg, err := NewIsolatedLoader().LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "env overrides file")
	assert.Equal(t, 7000, cfg.Server.Port, "file overrides default")
}

func TestLoadWithEmptyConfigFile(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "")

	cfg, err := NewIsolatedLoader().LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, infoLevel, cfg.LogLevel)
}

func TestLoadWithEmptyFilenameUsesSearchPaths(t *testing.T) {
	isolate(t)

	cfg, err := NewIsolatedLoader().LoadWithFile("")
	require.NoError(t, err)
	assert.Equal(t, infoLevel, cfg.LogLevel)

	cfg, err = NewIsolatedLoader().LoadWithFileWithoutValidation("")
	require.NoError(t, err)
	assert.Equal(t, infoLevel, cfg.LogLevel)
}

func TestGetSetConfigValues(t *testing.T) {
	loader := NewIsolatedLoader()
	loader.Set("test_key", testValue)

	assert.Equal(t, testValue, loader.GetString("test_key"))
	assert.Equal(t, testValue, loader.Get("test_key"))
	assert.Equal(t, testValue, loader.GetResolvedConfig()["test_key"])
}

func TestWriteConfigToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "output.yaml")

	loader := NewIsolatedLoader()
	loader.Set("log_level", "debug")
	require.NoError(t, loader.WriteConfigToFile(out))
	assert.FileExists(t, out)
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	isolate(t)
	out := filepath.Join(t.TempDir(), "default.yaml")

	require.NoError(t, GenerateDefaultConfigFile(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Contains(t, raw, "scan")
	assert.Contains(t, raw, "server")

	cfg, err := NewIsolatedLoader().LoadWithFile(out)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Scan.Formats, cfg.Scan.Formats)
}

func TestGenerateDefaultConfigFileWithEmptyFilename(t *testing.T) {
	dir := isolate(t)

	require.NoError(t, GenerateDefaultConfigFile(""))
	assert.FileExists(t, filepath.Join(dir, ConfigFileName+".yaml"))
}

func TestGetConfigSearchPaths(t *testing.T) {
	dir := isolate(t)

	paths := GetConfigSearchPaths()
	require.NotEmpty(t, paths)
	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, dir)
	assert.Contains(t, paths, filepath.Join(dir, "xdg", ConfigFileName))
	assert.Equal(t, "/etc/"+ConfigFileName, paths[len(paths)-1])
}
