// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

// Package fault defines the error taxonomy for the coordination core.
//
// Every failure surfaced across the tool-call boundary is one of five
// classes: NotFound (unknown entity ID), Validation (rejected before
// any mutation), InvalidTransition (operation not permitted from the
// entity's current status), Conflict (concurrent-write detection,
// retryable), and Corrupt (stored record present but unparseable —
// reported distinctly from NotFound, never treated as empty).
//
// Errors carry enough context (entity kind, ID, attempted operation,
// current status) for the caller to decide whether to retry. Use
// errors.Is with the package sentinels for class checks, or errors.As
// with *Error for the full structure.
package fault
