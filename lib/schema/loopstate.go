// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"errors"
	"fmt"
)

// LoopStateContentVersion is the current schema version for loop-state
// records.
const LoopStateContentVersion = 1

// StopReasonMaxIterations is recorded when a loop deactivates because
// its iteration budget ran out.
const StopReasonMaxIterations = "max iterations reached"

// LoopStateContent is the persisted polling-loop state for one agent.
// One record per agent identity, created on the first start, never
// shared between agents.
//
// The loop is cooperative: there is no internal timer. NextCheckAt is
// advisory information returned to the agent, who is responsible for
// polling again no earlier than that time.
type LoopStateContent struct {
	// Version is the schema version (see LoopStateContentVersion).
	Version int `json:"version"`

	// AgentID identifies the agent this loop state belongs to.
	AgentID string `json:"agent_id"`

	// Active is true while the loop is running. Once false due to
	// stop or iteration exhaustion, it stays false; a new start
	// begins a fresh cycle.
	Active bool `json:"active"`

	// Mode tags what the loop is polling for (e.g., "task_work",
	// "review_queue", "mission_progress"). Informational.
	Mode string `json:"mode,omitempty"`

	// CheckIntervalSeconds is the advisory delay between polls.
	CheckIntervalSeconds int `json:"check_interval_seconds"`

	// CurrentIteration counts polls in this cycle. Never exceeds
	// MaxIterations.
	CurrentIteration int `json:"current_iteration"`

	// MaxIterations bounds the cycle. Reaching it deactivates the
	// loop with StopReasonMaxIterations.
	MaxIterations int `json:"max_iterations"`

	// ConsecutiveEmptyChecks counts polls in a row where the caller
	// reported no work found. Reset to zero whenever work is found.
	ConsecutiveEmptyChecks int `json:"consecutive_empty_checks"`

	// LastCheckAt is the ISO 8601 timestamp of the latest poll.
	LastCheckAt string `json:"last_check_at,omitempty"`

	// NextCheckAt is the advisory earliest time for the next poll.
	NextCheckAt string `json:"next_check_at,omitempty"`

	// StartedAt is when this cycle began.
	StartedAt string `json:"started_at,omitempty"`

	// StopReason records why the loop deactivated. An explicit stop
	// reason takes precedence over StopReasonMaxIterations when both
	// occur in the same call.
	StopReason string `json:"stop_reason,omitempty"`
}

// Validate checks that all required fields are present and well-formed.
func (l *LoopStateContent) Validate() error {
	if l.Version < 1 {
		return fmt.Errorf("loop state: version must be >= 1, got %d", l.Version)
	}
	if l.AgentID == "" {
		return errors.New("loop state: agent_id is required")
	}
	if l.CheckIntervalSeconds < 0 {
		return fmt.Errorf("loop state: check_interval_seconds must be >= 0, got %d", l.CheckIntervalSeconds)
	}
	if l.MaxIterations < 1 {
		return fmt.Errorf("loop state: max_iterations must be >= 1, got %d", l.MaxIterations)
	}
	if l.CurrentIteration < 0 || l.CurrentIteration > l.MaxIterations {
		return fmt.Errorf("loop state: current_iteration %d out of range [0, %d]",
			l.CurrentIteration, l.MaxIterations)
	}
	if l.Active && l.CurrentIteration == l.MaxIterations {
		return errors.New("loop state: active loop at max iterations")
	}
	return nil
}

// CanModify checks whether this code version can safely perform a
// read-modify-write cycle on this record. Same semantics as
// TaskContent.CanModify.
func (l *LoopStateContent) CanModify() error {
	if l.Version > LoopStateContentVersion {
		return fmt.Errorf(
			"loop state version %d exceeds supported version %d: modification would lose fields",
			l.Version, LoopStateContentVersion,
		)
	}
	return nil
}
