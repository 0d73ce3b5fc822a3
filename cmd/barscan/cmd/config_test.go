package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/barscan/internal/config"
)

func TestConfigCommandDefaults(t *testing.T) {
	isolate(t)
	stdout, _, err := execute(t, "config")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &cfg))
	assert.Equal(t, config.DefaultConfig().Scan, cfg.Scan)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "text", cfg.Output.Format)
}

func TestConfigCommandFileAndEnv(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte("log_level: warn\nserver:\n  port: 9000\nscan:\n  formats: [qr]\n"), 0o600))
	t.Setenv("BARSCAN_BATCH_WORKERS", "9")
	t.Setenv(config.AccessTokensEnv, "secret-one,secret-two")

	stdout, _, err := execute(t, "config", "--config", file)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stdout, "# loaded from "+file+"\n"))
	assert.NotContains(t, stdout, "secret-one")
	assert.Contains(t, stdout, "<2 redacted>")

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &cfg))
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"qr"}, cfg.Scan.Formats)
	assert.Equal(t, 9, cfg.Batch.Workers)
}

func TestConfigCommandFlagsOverrideFile(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte("log_level: warn\n"), 0o600))

	stdout, _, err := execute(t, "config", "--config", file, "--log-level", "error", "-v")
	require.NoError(t, err)
	assert.Contains(t, stdout, "log_level: error")
	assert.Contains(t, stdout, "verbose: true")
}

func TestConfigInit(t *testing.T) {
	dir := isolate(t)

	stdout, _, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Equal(t, "wrote barscan.yaml\n", stdout)
	require.FileExists(t, filepath.Join(dir, "barscan.yaml"))

	_, _, err = execute(t, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, _, err = execute(t, "config", "init", "--force")
	require.NoError(t, err)

	custom := filepath.Join(dir, "conf", "other.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(custom), 0o755))
	_, _, err = execute(t, "config", "init", custom)
	require.NoError(t, err)

	stdout, _, err = execute(t, "config", "--config", custom)
	require.NoError(t, err)
	assert.Contains(t, stdout, "try_harder: true")
}

func TestConfigPath(t *testing.T) {
	dir := isolate(t)
	stdout, _, err := execute(t, "config", "path")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, ".", lines[0])
	assert.Contains(t, lines, filepath.Join(dir, "barscan"))
	assert.Equal(t, "/etc/barscan", lines[len(lines)-1])
}
