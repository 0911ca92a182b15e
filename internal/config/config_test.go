package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"overseer/internal/config"
)

func TestLoadDefaultsExpandPathsUnderHome(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("OVERSEER_EXECUTOR_ENDPOINT", "http://127.0.0.1:9515")

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(tempHome); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	cfg, resolvedPath, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if exists {
		t.Fatalf("expected no config file at %s", resolvedPath)
	}

	wantData := filepath.Join(tempHome, ".local/share/overseer")
	if cfg.DataDir != wantData {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, wantData)
	}
	if cfg.LogDir != filepath.Join(wantData, "logs") {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, filepath.Join(wantData, "logs"))
	}
	if cfg.ScreenshotDir != filepath.Join(wantData, "screenshots") {
		t.Errorf("ScreenshotDir = %q, want %q", cfg.ScreenshotDir, filepath.Join(wantData, "screenshots"))
	}
	if cfg.Scheduler.BatchSize != 2 {
		t.Errorf("BatchSize = %d, want 2", cfg.Scheduler.BatchSize)
	}
	if cfg.Scheduler.MaxRetryRounds != 2 {
		t.Errorf("MaxRetryRounds = %d, want 2", cfg.Scheduler.MaxRetryRounds)
	}
	if cfg.Executor.Endpoint != "http://127.0.0.1:9515" {
		t.Errorf("Executor.Endpoint = %q, want env fallback", cfg.Executor.Endpoint)
	}
}

func TestLoadReadsTOMLFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	contents := `
[paths]
data_dir = "~/overseer-data"
log_dir = "~/overseer-data/logs"
api_bind = "0.0.0.0:9000"

[scheduler]
batch_size = 4
max_retry_rounds = 1
batch_delay_seconds = 0

[executor]
endpoint = "https://runner.internal:8443"
headless = false

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolvedPath, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !exists {
		t.Fatalf("expected config file to be found at %s", resolvedPath)
	}

	if cfg.DataDir != filepath.Join(tempHome, "overseer-data") {
		t.Errorf("DataDir = %q, want expansion under home", cfg.DataDir)
	}
	if cfg.APIBind != "0.0.0.0:9000" {
		t.Errorf("APIBind = %q", cfg.APIBind)
	}
	if cfg.Scheduler.BatchSize != 4 {
		t.Errorf("BatchSize = %d, want 4", cfg.Scheduler.BatchSize)
	}
	if cfg.Scheduler.MaxRetryRounds != 1 {
		t.Errorf("MaxRetryRounds = %d, want 1", cfg.Scheduler.MaxRetryRounds)
	}
	if cfg.Scheduler.BatchDelaySeconds != 0 {
		t.Errorf("BatchDelaySeconds = %d, want 0", cfg.Scheduler.BatchDelaySeconds)
	}
	if cfg.Executor.Endpoint != "https://runner.internal:8443" {
		t.Errorf("Executor.Endpoint = %q", cfg.Executor.Endpoint)
	}
	if cfg.Executor.Headless {
		t.Error("Headless = true, want false")
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "empty data dir",
			mutate:  func(c *config.Config) { c.DataDir = "  " },
			wantErr: "paths.data_dir",
		},
		{
			name:    "batch size too large",
			mutate:  func(c *config.Config) { c.Scheduler.BatchSize = 64 },
			wantErr: "scheduler.batch_size",
		},
		{
			name:    "executor endpoint wrong scheme",
			mutate:  func(c *config.Config) { c.Executor.Endpoint = "ftp://runner" },
			wantErr: "executor.endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.DataDir = "/tmp/overseer-test"
			cfg.LogDir = "/tmp/overseer-test/logs"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[scheduler]") {
		t.Error("sample config missing [scheduler] section")
	}
}

func TestEnsureDirectoriesCreatesAll(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(base, "data")
	cfg.LogDir = filepath.Join(base, "logs")
	cfg.ScreenshotDir = filepath.Join(base, "data", "screenshots")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories() error = %v", err)
	}
	for _, dir := range []string{cfg.DataDir, cfg.LogDir, cfg.ScreenshotDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}
