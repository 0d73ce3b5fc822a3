package support

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// isolatedEnv lists variables that would leak host configuration into a
// scenario. They are cleared for the duration of every command.
var isolatedEnv = []string{
	"BARSCAN_SERVER_ACCESS_TOKENS",
	"ACCESS_TOKENS",
	"BUN_ACCESS_TOKENS",
	"BARSCAN_LOG_LEVEL",
}

// TestContext holds the state for integration tests.
type TestContext struct {
	// Command execution state
	LastCommand   string
	LastOutput    string
	LastStderr    string
	LastError     error
	LastExitCode  int
	LastStartTime time.Time
	LastDuration  time.Duration

	// Test environment
	TempDir string
	EnvVars map[string]string

	// Server management
	HTTPTestServer *HTTPTestServerWrapper

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string
}

// NewTestContext creates a new test context rooted in a fresh temporary
// directory.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "barscan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	// Resolve symlinks so paths printed by the CLI match the ones we build.
	if resolved, err := filepath.EvalSymlinks(tempDir); err == nil {
		tempDir = resolved
	}

	return &TestContext{
		TempDir: tempDir,
		EnvVars: map[string]string{},
	}, nil
}

// Cleanup stops the server and removes the scenario directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []error

	if err := testCtx.StopServer(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop server: %w", err))
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// StopServer stops the running httptest server, if any.
func (testCtx *TestContext) StopServer() error {
	if testCtx.HTTPTestServer == nil {
		return nil
	}
	err := testCtx.HTTPTestServer.Close()
	testCtx.HTTPTestServer = nil
	return err
}

// AddEnvVar sets an environment variable for subsequent commands.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars[name] = value
}

// Path resolves name inside the scenario directory.
func (testCtx *TestContext) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.TempDir, name)
}

// substituteCommandVariables expands {dir} to the scenario directory.
func (testCtx *TestContext) substituteCommandVariables(command string) string {
	return strings.ReplaceAll(command, "{dir}", testCtx.TempDir)
}

// withEnvironment runs fn inside the scenario directory with the scenario
// environment applied, restoring the process state afterwards.
func (testCtx *TestContext) withEnvironment(fn func()) error {
	prevDir, err := os.Getwd()
	if err != nil {
		return err
	}
	if err := os.Chdir(testCtx.TempDir); err != nil {
		return err
	}
	defer func() { _ = os.Chdir(prevDir) }()

	vars := map[string]string{
		"HOME":            testCtx.TempDir,
		"XDG_CONFIG_HOME": filepath.Join(testCtx.TempDir, ".config"),
	}
	for _, name := range isolatedEnv {
		vars[name] = ""
	}
	for k, v := range testCtx.EnvVars {
		vars[k] = v
	}

	for k, v := range vars {
		prev, had := os.LookupEnv(k)
		if err := os.Setenv(k, v); err != nil {
			return err
		}
		defer func() {
			if had {
				_ = os.Setenv(k, prev)
			} else {
				_ = os.Unsetenv(k)
			}
		}()
	}

	fn()
	return nil
}
