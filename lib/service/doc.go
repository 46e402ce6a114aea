// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the CBOR-over-unix-socket protocol the
// collab service speaks. Each connection carries exactly one
// request-response cycle: the client writes one CBOR map with an
// "action" field, the server dispatches to the registered handler and
// writes one Response, and the connection closes.
//
// Error responses carry the fault code alongside the message, so a
// client can distinguish a retryable conflict from a validation
// failure without parsing error text.
package service
