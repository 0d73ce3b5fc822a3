package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/MeKo-Tech/barscan/internal/version"
)

// isolate keeps configuration files and token variables of the host out of
// the command under test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, env := range []string{"BARSCAN_SERVER_ACCESS_TOKENS", config.AccessTokensEnv, config.LegacyAccessTokensEnv} {
		t.Setenv(env, "")
	}
	return dir
}

// execute runs a fresh command tree and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "barscan", root.Use)
	assert.NotEmpty(t, root.Short)
	assert.NotEmpty(t, root.Long)

	var names []string
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"image", "batch", "pdf", "serve", "config"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommandHelp(t *testing.T) {
	isolate(t)
	stdout, _, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Available Commands:")
	assert.Contains(t, stdout, "Usage:")
	assert.Contains(t, stdout, "photographic negative")
}

func TestRootCommandVersion(t *testing.T) {
	isolate(t)
	stdout, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "barscan version "+version.String()+"\n", stdout)
}

func TestRootCommandInvalidFlag(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "--no-such-flag")
	assert.ErrorContains(t, err, "unknown flag")
}

func TestRootCommandInvalidLogLevel(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "config", "--log-level", "loud")
	assert.ErrorContains(t, err, "configuration validation failed")
}

func TestRootCommandMissingConfigFile(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "config", "--config", "does-not-exist.yaml")
	assert.ErrorContains(t, err, "config file does not exist")
}

func TestNewRootCommandIndependent(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "config", "--log-level", "debug")
	require.NoError(t, err)

	stdout, _, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, stdout, "log_level: info")
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		debug   bool
		info    bool
		warning bool
	}{
		{"info", config.Config{LogLevel: "info"}, false, true, true},
		{"debug", config.Config{LogLevel: "debug"}, true, true, true},
		{"warn", config.Config{LogLevel: "warn"}, false, false, true},
		{"error", config.Config{LogLevel: "error"}, false, false, false},
		{"verbose wins", config.Config{LogLevel: "error", Verbose: true}, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, &tt.cfg)
			logger.Debug("d")
			logger.Info("i")
			logger.Warn("w")
			out := buf.String()
			assert.Equal(t, tt.debug, bytes.Contains([]byte(out), []byte(`"msg":"d"`)))
			assert.Equal(t, tt.info, bytes.Contains([]byte(out), []byte(`"msg":"i"`)))
			assert.Equal(t, tt.warning, bytes.Contains([]byte(out), []byte(`"msg":"w"`)))
		})
	}
}
