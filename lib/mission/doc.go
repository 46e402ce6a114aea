// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

// Package mission tracks higher-level objectives decomposed into
// tasks. A mission references its member tasks by ID; the task records
// themselves belong to the task graph. Progress checks read the
// current status of every member task, bucket the counts, and decide
// whether the driving agent should keep iterating.
//
// Completion is never automatic. When every member task is completed
// the tracker consults a CriteriaEvaluator; the baseline
// PendingEvaluator reports every acceptance criterion as awaiting an
// external verdict, so the mission stays active with
// RequiresEvaluation raised until someone (or a smarter evaluator)
// confirms the criteria.
//
// Like the task graph, the tracker is a pure in-memory structure with
// no storage and no locking; the service serializes access and
// persists dirty records.
package mission
