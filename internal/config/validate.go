package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateExecutor(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if c.Scheduler.BatchSize < 1 {
		return errors.New("scheduler.batch_size must be at least 1")
	}
	if c.Scheduler.BatchSize > 32 {
		return errors.New("scheduler.batch_size above 32 would overwhelm the browser runner")
	}
	return nil
}

func (c *Config) validateExecutor() error {
	if c.Executor.Endpoint == "" {
		return nil
	}
	parsed, err := url.Parse(c.Executor.Endpoint)
	if err != nil {
		return fmt.Errorf("executor.endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("executor.endpoint must be an http(s) URL, got %q", c.Executor.Endpoint)
	}
	return nil
}
