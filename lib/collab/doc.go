// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

// Package collab defines the seams between the coordination core and
// the collaborators it depends on but does not own: role lookup,
// the external ticket tracker, and status-text rendering.
//
// The core never reaches into ambient global state for any of these.
// A [RoleDirectory] is passed in at construction (a [schema.Roster]
// satisfies it), tickets are resolved read-only through a
// [TicketLinker], and human-readable output goes through a [Renderer]
// with [TextRenderer] as the default.
package collab
