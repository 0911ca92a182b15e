package main

import (
	"fmt"
	"strings"

	"overseer/internal/config"
)

// commandContext resolves shared CLI state lazily: the config file and the
// daemon API base URL.
type commandContext struct {
	apiFlag    *string
	configFlag *string

	cfg         *config.Config
	configPath  string
	configFound bool
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{apiFlag: apiFlag, configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := ""
	if c.configFlag != nil {
		path = *c.configFlag
	}
	cfg, resolvedPath, found, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	c.configPath = resolvedPath
	c.configFound = found
	return cfg, nil
}

// apiBase returns the daemon API base URL, preferring the --api flag over
// the configured bind address.
func (c *commandContext) apiBase() (string, error) {
	if c.apiFlag != nil && strings.TrimSpace(*c.apiFlag) != "" {
		return strings.TrimRight(strings.TrimSpace(*c.apiFlag), "/"), nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	bind := strings.TrimSpace(cfg.APIBind)
	if bind == "" {
		return "", fmt.Errorf("no API address configured; pass --api or set paths.api_bind")
	}
	return "http://" + bind, nil
}

func (c *commandContext) client() (*apiClient, error) {
	base, err := c.apiBase()
	if err != nil {
		return nil, err
	}
	return newAPIClient(base), nil
}
