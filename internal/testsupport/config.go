package testsupport

import (
	"path/filepath"
	"testing"

	"overseer/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(base, "data")
	cfg.LogDir = filepath.Join(base, "logs")
	cfg.ScreenshotDir = filepath.Join(base, "data", "screenshots")
	cfg.APIBind = "127.0.0.1:0"
	cfg.Executor.Endpoint = "http://127.0.0.1:0"
	cfg.Scheduler.BatchDelaySeconds = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithBatchSize overrides the scheduler batch width on the test config.
func WithBatchSize(size int) ConfigOption {
	return func(c *config.Config) {
		c.Scheduler.BatchSize = size
	}
}

// WithMaxRetryRounds overrides the automatic retry round limit.
func WithMaxRetryRounds(rounds int) ConfigOption {
	return func(c *config.Config) {
		c.Scheduler.MaxRetryRounds = rounds
	}
}

// WithExecutorEndpoint points the config at a test browser runner bridge.
func WithExecutorEndpoint(endpoint string) ConfigOption {
	return func(c *config.Config) {
		c.Executor.Endpoint = endpoint
	}
}
