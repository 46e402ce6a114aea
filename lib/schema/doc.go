// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the persisted record types for the
// coordination core: tasks, missions, plans, and per-agent loop
// states, plus the role assignment model.
//
// Each record type carries a schema version. Code that performs a
// read-modify-write cycle on a record must call CanModify() first; if
// the stored version exceeds the version this code understands, the
// modification is refused rather than silently dropping fields the
// newer version added.
//
// Status values are closed enums with an explicit transition table
// (see [CanTransition]); mutations that would move a record to a
// status its current status does not permit are rejected, never
// applied as arbitrary field overwrites.
//
// All timestamps are ISO 8601 strings in UTC. String comparison of
// two timestamps gives correct chronological ordering.
package schema
