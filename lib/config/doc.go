// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the collab
// service.
//
// Configuration is loaded from a single file specified by either the
// COLLAB_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. This ensures deterministic, auditable
// configuration with no hidden overrides.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${COLLAB_ROOT}, and ${VAR:-default} patterns are expanded.
// No other environment variables override config values.
//
// Role assignments live in a separate JSONC file (comments and
// trailing commas permitted) loaded with [LoadRoster]. The roster is
// passed into the service at construction; nothing looks roles up
// ambiently.
//
// Key exports:
//
//   - [Config] -- master struct with Paths, Service, Roles, Loop
//   - [Default] -- returns a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [LoadRoster] -- JSONC role-assignment loading
//
// This package depends only on lib/schema.
package config
