// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"errors"
	"fmt"
)

// MissionContentVersion is the current schema version for mission
// records.
const MissionContentVersion = 1

// MissionStatus is the lifecycle state of a mission.
type MissionStatus string

const (
	MissionActive    MissionStatus = "active"
	MissionPaused    MissionStatus = "paused"
	MissionCompleted MissionStatus = "completed"
	MissionStopped   MissionStatus = "stopped"
)

// Valid reports whether the status is a recognized value.
func (s MissionStatus) Valid() bool {
	switch s {
	case MissionActive, MissionPaused, MissionCompleted, MissionStopped:
		return true
	}
	return false
}

// Decision is an append-only entry in a mission's decision log.
// Decisions record why the mission took a turn — scope cuts, approach
// changes, deferrals — so a later reader can reconstruct the
// reasoning without replaying the conversation.
type Decision struct {
	// Author is the agent ID that recorded the decision.
	Author string `json:"author"`

	// Summary is the decision text.
	Summary string `json:"summary"`

	// Rationale explains why, if the summary alone is not enough.
	Rationale string `json:"rationale,omitempty"`

	// CreatedAt is an ISO 8601 timestamp.
	CreatedAt string `json:"created_at"`
}

// MissionContent is the persisted record for a mission: a higher-level
// objective decomposed into and tracked via a set of tasks. Missions
// reference tasks by ID only; the task records belong to the graph.
type MissionContent struct {
	// Version is the schema version (see MissionContentVersion).
	Version int `json:"version"`

	// Title is a short summary of the objective.
	Title string `json:"title"`

	// Objective is the full objective text.
	Objective string `json:"objective"`

	// AcceptanceCriteria lists the conditions an external evaluator
	// must confirm before the mission is considered complete.
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`

	// Constraints lists standing constraints on how the work is done.
	Constraints []string `json:"constraints,omitempty"`

	// Status is "active", "paused", "completed", or "stopped".
	Status MissionStatus `json:"status"`

	// TaskIDs is the ordered list of member task IDs. No duplicates.
	TaskIDs []string `json:"task_ids,omitempty"`

	// Iteration counts progress checks. Incremented unconditionally
	// on every CheckProgress call.
	Iteration int `json:"iteration"`

	// MaxIterations bounds total progress checks. Once Iteration
	// reaches it, progress checks report shouldContinue=false.
	MaxIterations int `json:"max_iterations"`

	// Decisions is the append-only decision log.
	Decisions []Decision `json:"decisions,omitempty"`

	// CreatedAt is an ISO 8601 timestamp.
	CreatedAt string `json:"created_at"`

	// CompletedAt is set when status transitions to "completed".
	CompletedAt string `json:"completed_at,omitempty"`
}

// Validate checks that all required fields are present and well-formed.
func (m *MissionContent) Validate() error {
	if m.Version < 1 {
		return fmt.Errorf("mission content: version must be >= 1, got %d", m.Version)
	}
	if m.Title == "" {
		return errors.New("mission content: title is required")
	}
	if m.Objective == "" {
		return errors.New("mission content: objective is required")
	}
	if !m.Status.Valid() {
		if m.Status == "" {
			return errors.New("mission content: status is required")
		}
		return fmt.Errorf("mission content: unknown status %q", m.Status)
	}
	if m.MaxIterations < 1 {
		return fmt.Errorf("mission content: max_iterations must be >= 1, got %d", m.MaxIterations)
	}
	if m.Iteration < 0 {
		return fmt.Errorf("mission content: iteration must be >= 0, got %d", m.Iteration)
	}
	if m.CreatedAt == "" {
		return errors.New("mission content: created_at is required")
	}
	seen := make(map[string]bool, len(m.TaskIDs))
	for i, id := range m.TaskIDs {
		if id == "" {
			return fmt.Errorf("mission content: task_ids[%d] is empty", i)
		}
		if seen[id] {
			return fmt.Errorf("mission content: duplicate task ID %q", id)
		}
		seen[id] = true
	}
	return nil
}

// CanModify checks whether this code version can safely perform a
// read-modify-write cycle on this record. Same semantics as
// TaskContent.CanModify.
func (m *MissionContent) CanModify() error {
	if m.Version > MissionContentVersion {
		return fmt.Errorf(
			"mission content version %d exceeds supported version %d: modification would lose fields",
			m.Version, MissionContentVersion,
		)
	}
	return nil
}
