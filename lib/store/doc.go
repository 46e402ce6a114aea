// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

// Package store persists coordination records in SQLite. There are
// four collections — tasks, missions, plans, loop_states — each a
// single table of (id, revision, CBOR content) rows with its own ID
// namespace.
//
// Writes are optimistic: every Put carries the revision the caller
// read, and a mismatch fails with fault.Conflict instead of silently
// overwriting a concurrent update. A fresh insert passes revision 0.
//
// Reads distinguish three outcomes: found, absent (fault.NotFound),
// and present-but-unparseable (fault.Corrupt). A corrupt record fails
// the operation; it is never treated as an empty record, because that
// would quietly discard state.
//
// ExportSnapshot streams every record of every collection as a
// zstd-compressed CBOR archive for backup or inspection.
package store
