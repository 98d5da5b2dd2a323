package support

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Command execution state
	LastCommand  string
	LastOutput   string
	LastStderr   string
	LastExitCode int

	// Test environment
	BinaryPath string
	TempDir    string
	EnvVars    []string

	// HTTP state
	Server             *HTTPTestServer
	LastHTTPStatusCode int
	LastHTTPResponse   string
}

// NewTestContext creates a scenario context that runs binaryPath inside a
// fresh temporary directory.
func NewTestContext(binaryPath string) (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "cardscan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TestContext{
		BinaryPath: binaryPath,
		TempDir:    tempDir,
	}, nil
}

// Cleanup stops the server and removes the temporary directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []error
	if testCtx.Server != nil {
		errs = append(errs, testCtx.Server.Close())
		testCtx.Server = nil
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}
	return errors.Join(errs...)
}

// AddEnvVar adds an environment variable for command execution.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars = append(testCtx.EnvVars, fmt.Sprintf("%s=%s", name, value))
}

// Path resolves name inside the scenario directory.
func (testCtx *TestContext) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.TempDir, filepath.FromSlash(name))
}

// expand replaces {tmp} with the scenario directory.
func (testCtx *TestContext) expand(s string) string {
	return strings.ReplaceAll(s, "{tmp}", testCtx.TempDir)
}
