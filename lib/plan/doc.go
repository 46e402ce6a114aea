// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

// Package plan sequences phased work plans. A plan is an ordered list
// of phases, each holding task specifications; the sequencer advances
// a cursor through the phases and materializes the current phase's
// specs into the task graph when asked.
//
// At most one plan is active at a time. Activating a second plan
// requires pausing the current one first; the sequencer enforces
// this rather than trusting callers to coordinate.
//
// Materialization consults a similarity heuristic before creating
// tasks: candidates whose titles look equivalent to an
// already-completed task's title are dropped, so re-running a phase
// after a partial failure does not recreate finished work. The
// heuristic is best-effort string matching, not a guarantee — see
// TitlesEquivalent for its exact behavior.
//
// Like the other coordination indexes, the sequencer is in-memory
// only and not safe for concurrent use.
package plan
