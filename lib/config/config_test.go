// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wyn0001/ai-collab-mcp/lib/schema"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}

	if cfg.Service.PoolSize != 4 {
		t.Errorf("expected pool_size=4, got %d", cfg.Service.PoolSize)
	}

	if cfg.Loop.DefaultIntervalSeconds != 60 {
		t.Errorf("expected default_interval_seconds=60, got %d", cfg.Loop.DefaultIntervalSeconds)
	}

	if cfg.Loop.DefaultMaxIterations != 100 {
		t.Errorf("expected default_max_iterations=100, got %d", cfg.Loop.DefaultMaxIterations)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad_RequiresCollabConfig(t *testing.T) {
	// Save and restore COLLAB_CONFIG.
	origConfig := os.Getenv("COLLAB_CONFIG")
	defer os.Setenv("COLLAB_CONFIG", origConfig)

	// Unset COLLAB_CONFIG - Load() should fail.
	os.Unsetenv("COLLAB_CONFIG")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when COLLAB_CONFIG not set, got nil")
	}

	expectedMsg := "COLLAB_CONFIG environment variable not set"
	if err.Error()[:len(expectedMsg)] != expectedMsg {
		t.Errorf("expected error message to start with %q, got %q", expectedMsg, err.Error())
	}
}

func TestLoad_WithCollabConfig(t *testing.T) {
	// Save and restore COLLAB_CONFIG.
	origConfig := os.Getenv("COLLAB_CONFIG")
	defer os.Setenv("COLLAB_CONFIG", origConfig)

	// Create temp config file.
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "collab.yaml")

	configContent := `
environment: staging
paths:
  root: /test/root
service:
  socket_path: /test/collab.sock
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	// Set COLLAB_CONFIG and load.
	os.Setenv("COLLAB_CONFIG", configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}

	if cfg.Paths.Root != "/test/root" {
		t.Errorf("expected root=/test/root, got %s", cfg.Paths.Root)
	}
}

func TestLoadFile(t *testing.T) {
	// Create temp config file.
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "collab.yaml")

	configContent := `
environment: staging

paths:
  root: /custom/root
  state: /custom/state

service:
  socket_path: /custom/collab.sock
  pool_size: 8

roles:
  file: /custom/roles.jsonc

loop:
  default_interval_seconds: 30
  default_max_iterations: 10
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}

	if cfg.Paths.Root != "/custom/root" {
		t.Errorf("expected root=/custom/root, got %s", cfg.Paths.Root)
	}

	if cfg.Service.SocketPath != "/custom/collab.sock" {
		t.Errorf("expected socket_path=/custom/collab.sock, got %s", cfg.Service.SocketPath)
	}

	if cfg.Service.PoolSize != 8 {
		t.Errorf("expected pool_size=8, got %d", cfg.Service.PoolSize)
	}

	if cfg.Roles.File != "/custom/roles.jsonc" {
		t.Errorf("expected roles file=/custom/roles.jsonc, got %s", cfg.Roles.File)
	}

	if cfg.Loop.DefaultIntervalSeconds != 30 {
		t.Errorf("expected default_interval_seconds=30, got %d", cfg.Loop.DefaultIntervalSeconds)
	}

	if cfg.Loop.DefaultMaxIterations != 10 {
		t.Errorf("expected default_max_iterations=10, got %d", cfg.Loop.DefaultMaxIterations)
	}

	if cfg.DatabasePath() != "/custom/state/collab.db" {
		t.Errorf("expected database path /custom/state/collab.db, got %s", cfg.DatabasePath())
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "collab.yaml")

	configContent := `
environment: production

paths:
  root: /default/root

loop:
  default_max_iterations: 100

production:
  paths:
    root: /prod/root
  service:
    pool_size: 16
  loop:
    default_max_iterations: 500
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	// Production overrides should be applied.
	if cfg.Paths.Root != "/prod/root" {
		t.Errorf("expected root=/prod/root, got %s", cfg.Paths.Root)
	}

	if cfg.Service.PoolSize != 16 {
		t.Errorf("expected pool_size=16 from production override, got %d", cfg.Service.PoolSize)
	}

	if cfg.Loop.DefaultMaxIterations != 500 {
		t.Errorf("expected default_max_iterations=500, got %d", cfg.Loop.DefaultMaxIterations)
	}
}

func TestInactiveEnvironmentOverridesIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "collab.yaml")

	configContent := `
environment: development

paths:
  root: /dev/root

production:
  paths:
    root: /prod/root
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Paths.Root != "/dev/root" {
		t.Errorf("expected root=/dev/root, got %s (production section should be ignored)", cfg.Paths.Root)
	}
}

func TestEnvVarsDoNotOverride(t *testing.T) {
	// Verify that environment variables do NOT override config file values.
	// The config file is the single source of truth for deterministic configuration.

	// Save and restore env vars.
	origRoot := os.Getenv("COLLAB_ROOT")
	origSocket := os.Getenv("COLLAB_SOCKET")
	origEnv := os.Getenv("COLLAB_ENVIRONMENT")
	defer func() {
		os.Setenv("COLLAB_ROOT", origRoot)
		os.Setenv("COLLAB_SOCKET", origSocket)
		os.Setenv("COLLAB_ENVIRONMENT", origEnv)
	}()

	// Set env vars that should be ignored.
	os.Setenv("COLLAB_ROOT", "/env/root")
	os.Setenv("COLLAB_SOCKET", "/env/collab.sock")
	os.Setenv("COLLAB_ENVIRONMENT", "staging")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "collab.yaml")

	configContent := `
environment: development
paths:
  root: /file/root
service:
  socket_path: /file/collab.sock
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	// File values should be used, NOT env vars.
	if cfg.Environment != Development {
		t.Errorf("expected environment=development from file, got %s (env vars should not override)", cfg.Environment)
	}

	if cfg.Paths.Root != "/file/root" {
		t.Errorf("expected root=/file/root from file, got %s (env vars should not override)", cfg.Paths.Root)
	}

	if cfg.Service.SocketPath != "/file/collab.sock" {
		t.Errorf("expected socket_path=/file/collab.sock from file, got %s (env vars should not override)", cfg.Service.SocketPath)
	}
}

func TestCollabRootExpansion(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "collab.yaml")

	configContent := `
environment: development
paths:
  root: /data/collab
  state: ${COLLAB_ROOT}/state
service:
  socket_path: ${COLLAB_ROOT}/collab.sock
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Paths.State != "/data/collab/state" {
		t.Errorf("expected state=/data/collab/state, got %s", cfg.Paths.State)
	}

	if cfg.Service.SocketPath != "/data/collab/collab.sock" {
		t.Errorf("expected socket_path=/data/collab/collab.sock, got %s", cfg.Service.SocketPath)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{
			input:    "${HOME}/collab",
			vars:     map[string]string{"HOME": "/home/user"},
			expected: "/home/user/collab",
		},
		{
			input:    "${MISSING:-default}",
			vars:     map[string]string{},
			expected: "default",
		},
		{
			input:    "${PRESENT:-default}",
			vars:     map[string]string{"PRESENT": "value"},
			expected: "value",
		},
		{
			input:    "${A}/${B}",
			vars:     map[string]string{"A": "first", "B": "second"},
			expected: "first/second",
		},
		{
			input:    "no variables here",
			vars:     map[string]string{},
			expected: "no variables here",
		},
	}

	for _, tt := range tests {
		result := expandVars(tt.input, tt.vars)
		if result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid environment",
			modify: func(c *Config) {
				c.Environment = "invalid"
			},
			wantErr: true,
		},
		{
			name: "empty root path",
			modify: func(c *Config) {
				c.Paths.Root = ""
			},
			wantErr: true,
		},
		{
			name: "empty socket path",
			modify: func(c *Config) {
				c.Service.SocketPath = ""
			},
			wantErr: true,
		},
		{
			name: "zero pool size",
			modify: func(c *Config) {
				c.Service.PoolSize = 0
			},
			wantErr: true,
		},
		{
			name: "negative interval",
			modify: func(c *Config) {
				c.Loop.DefaultIntervalSeconds = -1
			},
			wantErr: true,
		},
		{
			name: "zero max iterations",
			modify: func(c *Config) {
				c.Loop.DefaultMaxIterations = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnsurePaths(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := Default()
	cfg.Paths.Root = filepath.Join(tmpDir, "collab")
	cfg.Paths.State = filepath.Join(cfg.Paths.Root, "state")
	cfg.Paths.Snapshots = filepath.Join(cfg.Paths.Root, "snapshots")

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths failed: %v", err)
	}

	// Verify directories were created.
	for _, path := range []string{cfg.Paths.Root, cfg.Paths.State, cfg.Paths.Snapshots} {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("path %s not created: %v", path, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("path %s is not a directory", path)
		}
	}
}

// --- Roster loading ---

func writeRolesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roles.jsonc")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write roles file: %v", err)
	}
	return path
}

func TestLoadRoster(t *testing.T) {
	path := writeRolesFile(t, `
{
    // the collaboration pair for this workspace
    "agents": [
        {"agent_id": "agent-a", "role": "implementer"},
        {"agent_id": "agent-b", "role": "reviewer", "display_name": "Reviewer B"},
    ],
}
`)

	roster, err := LoadRoster(path)
	if err != nil {
		t.Fatalf("LoadRoster failed: %v", err)
	}

	if len(roster) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(roster))
	}

	a, ok := roster.Lookup("agent-a")
	if !ok {
		t.Fatal("agent-a not in roster")
	}
	if a.Role != schema.RoleImplementer {
		t.Errorf("agent-a role = %s, want implementer", a.Role)
	}
	if a.DisplayName != "agent-a" {
		t.Errorf("agent-a display name = %q, want agent ID default", a.DisplayName)
	}

	b, ok := roster.Lookup("agent-b")
	if !ok {
		t.Fatal("agent-b not in roster")
	}
	if b.DisplayName != "Reviewer B" {
		t.Errorf("agent-b display name = %q", b.DisplayName)
	}
}

func TestLoadRosterRejectsDuplicateAgent(t *testing.T) {
	path := writeRolesFile(t, `
{
    "agents": [
        {"agent_id": "agent-a", "role": "implementer"},
        {"agent_id": "agent-a", "role": "reviewer"},
    ],
}
`)

	if _, err := LoadRoster(path); err == nil {
		t.Fatal("expected error for duplicate agent, got nil")
	}
}

func TestLoadRosterRejectsUnknownRole(t *testing.T) {
	path := writeRolesFile(t, `
{"agents": [{"agent_id": "agent-a", "role": "manager"}]}
`)

	if _, err := LoadRoster(path); err == nil {
		t.Fatal("expected error for unknown role, got nil")
	}
}

func TestLoadRosterMissingFile(t *testing.T) {
	_, err := LoadRoster(filepath.Join(t.TempDir(), "absent.jsonc"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}
