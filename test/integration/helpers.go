//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	APIRoot    string
	Email      string
	Password   string
	SkellaPath string
	Verbose    bool
}

// LoadTestConfig loads configuration from environment variables.
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		APIRoot:    os.Getenv("SKELLA_TEST_API"),
		Email:      os.Getenv("SKELLA_TEST_EMAIL"),
		Password:   os.Getenv("SKELLA_TEST_PASSWORD"),
		SkellaPath: getSkellaPath(),
		Verbose:    os.Getenv("SKELLA_VERBOSE") == "true",
	}
}

// getSkellaPath determines the path to the skella binary.
func getSkellaPath() string {
	if path := os.Getenv("SKELLA_BINARY_PATH"); path != "" {
		return path
	}

	for _, candidate := range []string{"../../skella", "./skella", "../skella"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "skella"
}

// SkipIfMissingConfig skips test if required config is missing.
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.APIRoot == "" {
		t.Skip("SKELLA_TEST_API not set, skipping integration test")
	}

	if _, err := exec.LookPath(config.SkellaPath); err != nil {
		t.Skipf("skella binary not found at %s, skipping integration test", config.SkellaPath)
	}
}

// SkipIfMissingCredentials skips test if no account is configured.
func (config *TestConfig) SkipIfMissingCredentials(t *testing.T) {
	t.Helper()

	if config.Email == "" || config.Password == "" {
		t.Skip("SKELLA_TEST_EMAIL or SKELLA_TEST_PASSWORD not set, skipping")
	}
}

// CommandRunner runs the skella binary with an isolated config file.
type CommandRunner struct {
	config     *TestConfig
	configFile string
	t          *testing.T
}

// NewCommandRunner creates a new command runner.
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	t.Helper()

	return &CommandRunner{
		config:     config,
		configFile: filepath.Join(t.TempDir(), "config.yml"),
		t:          t,
	}
}

// Run executes a skella command and returns its output.
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	full := append([]string{"--config", runner.configFile, "--api", runner.config.APIRoot}, args...)

	//nolint:gosec // the binary path comes from the test environment
	cmd := exec.Command(runner.config.SkellaPath, full...)

	var stdoutBuf, stderrBuf bytes.Buffer

	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	cmd.Env = append(os.Environ(), "SKELLA_CACHE_DIR="+filepath.Join(filepath.Dir(runner.configFile), "cache"))

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.SkellaPath, strings.Join(full, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// AssertJSONOutput fails unless output is valid JSON and returns it decoded.
func AssertJSONOutput(t *testing.T, output string) interface{} {
	t.Helper()

	var decoded interface{}

	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, output)
	}

	return decoded
}
