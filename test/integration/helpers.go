//go:build integration

package integration

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/fivetwenty-io/couchdb-client/pkg/couch"
	"github.com/fivetwenty-io/couchdb-client/pkg/couchclient"
	"github.com/stretchr/testify/require"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	URL        string `env:"COUCHDB_URL"`
	Username   string `env:"COUCHDB_USERNAME"`
	Password   string `env:"COUCHDB_PASSWORD"`
	Timeout    int    `env:"COUCHDB_TIMEOUT_SECONDS,default=30"`
	BinaryPath string `env:"COUCH_BINARY_PATH"`
	Verbose    bool   `env:"COUCH_VERBOSE,default=false"`
}

// LoadTestConfig loads configuration from environment variables.
func LoadTestConfig(t *testing.T) *TestConfig {
	t.Helper()

	var config TestConfig

	_, err := env.UnmarshalFromEnviron(&config)
	require.NoError(t, err)

	if config.BinaryPath == "" {
		config.BinaryPath = findBinary()
	}

	return &config
}

// findBinary looks for a built couch binary next to the repository root.
func findBinary() string {
	for _, candidate := range []string{"../../couch", "./couch", "../couch"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "couch"
}

// SkipIfMissingConfig skips the test when no server is configured.
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.URL == "" {
		t.Skip("COUCHDB_URL not set, skipping integration test")
	}
}

// SkipIfMissingBinary skips the test when the couch binary is not built.
func (config *TestConfig) SkipIfMissingBinary(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath(config.BinaryPath); err != nil {
		t.Skipf("couch binary not found at %s, skipping integration test", config.BinaryPath)
	}
}

// NewClient connects to the configured server.
func (config *TestConfig) NewClient(t *testing.T) couch.Client {
	t.Helper()

	clientConfig := &couch.Config{
		URL:         config.URL,
		Username:    config.Username,
		Password:    config.Password,
		HTTPTimeout: config.timeout(),
	}

	if config.Verbose {
		clientConfig.Logger = &testLogger{t: t}
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.timeout())
	defer cancel()

	client, err := couchclient.Connect(ctx, clientConfig)
	require.NoError(t, err)

	return client
}

func (config *TestConfig) timeout() time.Duration {
	return time.Duration(config.Timeout) * time.Second
}

// CreateTestDB creates a uniquely named database and drops it when the test
// ends.
func (config *TestConfig) CreateTestDB(t *testing.T, client couch.Client, prefix string) couch.Database {
	t.Helper()

	name := GenerateTestName(prefix)

	db, err := client.CreateDB(context.Background(), name)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, err := client.DeleteDB(context.Background(), name)
		if err != nil {
			t.Logf("Cleanup warning for database %s: %v", name, err)
		}
	})

	return db
}

// CommandRunner runs the couch binary against the configured server.
type CommandRunner struct {
	config *TestConfig
	t      *testing.T
}

// NewCommandRunner creates a new command runner.
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	return &CommandRunner{
		config: config,
		t:      t,
	}
}

// Run executes a couch command and returns its output.
func (runner *CommandRunner) Run(args ...string) (string, string, error) {
	return runner.RunWithInput("", args...)
}

// RunWithInput executes a couch command with stdin input.
func (runner *CommandRunner) RunWithInput(input string, args ...string) (string, string, error) {
	args = append([]string{
		"--url", runner.config.URL,
		"--username", runner.config.Username,
		"--password", runner.config.Password,
	}, args...)

	cmd := exec.Command(runner.config.BinaryPath, args...)

	var stdoutBuf, stderrBuf bytes.Buffer

	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	cmd.Stdin = strings.NewReader(input)
	cmd.Env = append(os.Environ(), "HOME="+runner.t.TempDir())

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.BinaryPath, strings.Join(args[6:], " "))
	}

	err := cmd.Run()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdoutBuf.String(), stderrBuf.String())
	}

	return stdoutBuf.String(), stderrBuf.String(), err
}

// GenerateTestName creates a unique, valid database name.
func GenerateTestName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

type testLogger struct {
	t *testing.T
}

func (l *testLogger) Debug(msg string, fields map[string]interface{}) {
	l.t.Logf("DEBUG %s %v", msg, fields)
}

func (l *testLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO %s %v", msg, fields)
}

func (l *testLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN %s %v", msg, fields)
}

func (l *testLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR %s %v", msg, fields)
}
