// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

// Package loop manages per-agent polling cycles. An agent starts a
// loop with an iteration budget, polls it on every wake-up, and gets
// back a snapshot telling it when to poll next and whether the cycle
// is still alive.
//
// There is no timer anywhere in this package. NextCheckAt is advisory
// information; the agent (or whatever drives it) is responsible for
// calling Poll again no earlier than that time. Every state change
// happens inside an externally driven call, which keeps the loop's
// behavior observable and auditable from the outside.
//
// Decide maps the coordination queries' results onto the single
// instruction an agent acts on each cycle: work a task, review a
// task, check mission progress, or idle.
package loop
