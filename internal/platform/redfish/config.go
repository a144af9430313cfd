// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

package redfish

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// BMCConfig holds the connection details of the BMC that exposes the
// machine's platform power readings over Redfish.
type BMCConfig struct {
	Endpoint string `yaml:"endpoint"` // BMC endpoint URL
	Username string `yaml:"username"` // BMC username
	Password string `yaml:"password"` // BMC password
	Insecure bool   `yaml:"insecure"` // Skip TLS verification
}

// LoadConfig loads and validates the BMC configuration file
func LoadConfig(configPath string) (*BMCConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read BMC config file %s: %w", configPath, err)
	}

	var cfg BMCConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse BMC config file %s: %w", configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid BMC configuration: %w", err)
	}
	return &cfg, nil
}

// Validate validates the BMC configuration
func (c *BMCConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("BMC endpoint is required")
	}
	if !strings.HasPrefix(c.Endpoint, "http://") && !strings.HasPrefix(c.Endpoint, "https://") {
		return fmt.Errorf("BMC endpoint must be an http(s) URL, got %q", c.Endpoint)
	}
	if c.Username == "" {
		return fmt.Errorf("BMC username is required")
	}
	if c.Password == "" {
		return fmt.Errorf("BMC password is required")
	}
	return nil
}
