// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the standard CBOR encoding configuration:
// Core Deterministic Encoding on the way out, permissive decoding on
// the way in. Stored record blobs and the socket protocol both go
// through this package so the whole system agrees on one wire format.
package codec
