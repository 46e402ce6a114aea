// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

// Package taskgraph owns task records, their dependency edges, and
// every status transition. It is the foundation the other
// coordination components read: missions aggregate its statuses, the
// plan sequencer feeds it task specs, and the loop controller consumes
// its selection results.
//
// The graph is a pure in-memory structure with no storage, no
// transport, and no concurrency control. The service hydrates it from
// the record store at startup, serializes mutating access, and
// persists the records the graph reports as dirty after each
// operation.
//
// # Availability
//
// A task is "available" when every ID in its depends_on list has
// status "completed" and its blocked_by list is empty. Missing
// dependencies (IDs not present in the graph) are treated as not
// completed — the task stays blocked. A dangling reference means
// something is wrong, not that the dependency is satisfied.
//
// The availability pass never touches tasks that are completed,
// in_review, in_progress, or needs_revision: the first two are
// terminal with respect to automatic transitions, the last two belong
// to an agent until the next submit or claim.
//
// # Concurrency
//
// Graph is not safe for concurrent use. The service wraps it with a
// single writer mutex.
package taskgraph
