// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for the collab service.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Service configures the socket server and storage.
	Service ServiceConfig `yaml:"service"`

	// Roles configures role-assignment loading.
	Roles RolesConfig `yaml:"roles"`

	// Loop configures defaults for agent work loops.
	Loop LoopConfig `yaml:"loop"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths   *PathsConfig   `yaml:"paths,omitempty"`
	Service *ServiceConfig `yaml:"service,omitempty"`
	Roles   *RolesConfig   `yaml:"roles,omitempty"`
	Loop    *LoopConfig    `yaml:"loop,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for collab data.
	Root string `yaml:"root"`

	// State is where the record database lives.
	State string `yaml:"state"`

	// Snapshots is where exported snapshot archives are written.
	Snapshots string `yaml:"snapshots"`
}

// ServiceConfig configures the socket server and record store.
type ServiceConfig struct {
	// SocketPath is the Unix socket path for the service.
	// Default: ${COLLAB_ROOT}/collab.sock
	SocketPath string `yaml:"socket_path"`

	// PoolSize is the SQLite connection pool size.
	// Default: 4
	PoolSize int `yaml:"pool_size"`
}

// RolesConfig configures role-assignment loading.
type RolesConfig struct {
	// File is the path to the JSONC roles file.
	// Default: ${COLLAB_ROOT}/roles.jsonc
	File string `yaml:"file"`
}

// LoopConfig configures defaults applied when a start_loop request
// omits the corresponding field.
type LoopConfig struct {
	// DefaultIntervalSeconds is the default check interval.
	// Default: 60
	DefaultIntervalSeconds int `yaml:"default_interval_seconds"`

	// DefaultMaxIterations is the default iteration bound.
	// Default: 100
	DefaultMaxIterations int `yaml:"default_max_iterations"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "collab")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:      defaultRoot,
			State:     filepath.Join(defaultRoot, "state"),
			Snapshots: filepath.Join(defaultRoot, "snapshots"),
		},
		Service: ServiceConfig{
			SocketPath: filepath.Join(defaultRoot, "collab.sock"),
			PoolSize:   4,
		},
		Roles: RolesConfig{
			File: filepath.Join(defaultRoot, "roles.jsonc"),
		},
		Loop: LoopConfig{
			DefaultIntervalSeconds: 60,
			DefaultMaxIterations:   100,
		},
	}
}

// Load loads configuration from the COLLAB_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if COLLAB_CONFIG is not set, this fails.
// This ensures deterministic, auditable configuration with no hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("COLLAB_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("COLLAB_CONFIG environment variable not set; " +
			"set it to the path of your collab.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do not
// override config values - this ensures deterministic, auditable configuration.
// The only expansion performed is ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/staging/production sections in the file).
	cfg.applyEnvironmentOverrides()

	// Expand ${HOME} and similar variables in paths for portability.
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.State != "" {
			c.Paths.State = overrides.Paths.State
		}
		if overrides.Paths.Snapshots != "" {
			c.Paths.Snapshots = overrides.Paths.Snapshots
		}
	}

	if overrides.Service != nil {
		if overrides.Service.SocketPath != "" {
			c.Service.SocketPath = overrides.Service.SocketPath
		}
		if overrides.Service.PoolSize > 0 {
			c.Service.PoolSize = overrides.Service.PoolSize
		}
	}

	if overrides.Roles != nil {
		if overrides.Roles.File != "" {
			c.Roles.File = overrides.Roles.File
		}
	}

	if overrides.Loop != nil {
		if overrides.Loop.DefaultIntervalSeconds > 0 {
			c.Loop.DefaultIntervalSeconds = overrides.Loop.DefaultIntervalSeconds
		}
		if overrides.Loop.DefaultMaxIterations > 0 {
			c.Loop.DefaultMaxIterations = overrides.Loop.DefaultMaxIterations
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"COLLAB_ROOT": c.Paths.Root,
		"HOME":        os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["COLLAB_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.State = expandVars(c.Paths.State, vars)
	c.Paths.Snapshots = expandVars(c.Paths.Snapshots, vars)
	c.Service.SocketPath = expandVars(c.Service.SocketPath, vars)
	c.Roles.File = expandVars(c.Roles.File, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}

	if c.Paths.State == "" {
		errs = append(errs, fmt.Errorf("paths.state is required"))
	}

	if c.Service.SocketPath == "" {
		errs = append(errs, fmt.Errorf("service.socket_path is required"))
	}

	if c.Service.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("service.pool_size must be at least 1"))
	}

	if c.Loop.DefaultIntervalSeconds < 0 {
		errs = append(errs, fmt.Errorf("loop.default_interval_seconds must not be negative"))
	}

	if c.Loop.DefaultMaxIterations < 1 {
		errs = append(errs, fmt.Errorf("loop.default_max_iterations must be at least 1"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// DatabasePath returns the path of the record database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.State, "collab.db")
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Paths.Root,
		c.Paths.State,
		c.Paths.Snapshots,
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}
