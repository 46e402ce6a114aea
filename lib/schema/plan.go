// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

// PlanContentVersion is the current schema version for plan records.
const PlanContentVersion = 1

// PlanStatus is the lifecycle state of a plan.
type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanPaused    PlanStatus = "paused"
	PlanCompleted PlanStatus = "completed"
)

// Valid reports whether the status is a recognized value.
func (s PlanStatus) Valid() bool {
	switch s {
	case PlanActive, PlanPaused, PlanCompleted:
		return true
	}
	return false
}

// TaskSpec is a task specification inside a plan phase. When the
// sequencer materializes a phase, each spec becomes a task in the
// graph (unless the duplicate heuristic drops it).
type TaskSpec struct {
	// Title is the task title. Also the input to duplicate
	// detection against completed task titles.
	Title string `json:"title"`

	// Specification is the directive text.
	Specification string `json:"specification,omitempty"`

	// Requirements lists what the implementation must do.
	Requirements []string `json:"requirements,omitempty"`

	// AcceptanceCriteria lists what the reviewer checks.
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`

	// Priority is "high", "medium", or "low". Empty defaults to
	// "medium" at materialization.
	Priority TaskPriority `json:"priority,omitempty"`
}

// Validate checks the spec's required fields.
func (s *TaskSpec) Validate() error {
	if s.Title == "" {
		return errors.New("title is required")
	}
	if s.Priority != "" && !s.Priority.Valid() {
		return fmt.Errorf("unknown priority %q", s.Priority)
	}
	return nil
}

// Phase is an ordered grouping of task specifications within a plan,
// advanced as a unit.
type Phase struct {
	// Name identifies the phase (e.g., "schema groundwork").
	Name string `json:"name"`

	// Description explains the phase's goal.
	Description string `json:"description,omitempty"`

	// Tasks are the specs materialized into the graph when the
	// phase begins. A phase with no explicit tasks counts as one
	// task for totals.
	Tasks []TaskSpec `json:"tasks,omitempty"`

	// EstimatedDuration is freeform ("2d", "1 week"). Informational
	// only.
	EstimatedDuration string `json:"estimated_duration,omitempty"`
}

// Validate checks the phase's required fields and nested specs.
func (p *Phase) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	for i := range p.Tasks {
		if err := p.Tasks[i].Validate(); err != nil {
			return fmt.Errorf("tasks[%d]: %w", i, err)
		}
	}
	return nil
}

// CompletedPhase is an entry in a plan's completed-phase log.
type CompletedPhase struct {
	// Index is the phase's position at the time it was completed.
	Index int `json:"index"`

	// Name is the phase name, copied so the log survives later
	// reordering of remaining phases.
	Name string `json:"name"`

	// CompletedAt is an ISO 8601 timestamp.
	CompletedAt string `json:"completed_at"`
}

// AdjustmentType identifies a plan adjustment operation.
type AdjustmentType string

const (
	// AdjustInsertPhase splices a new phase after a given index.
	AdjustInsertPhase AdjustmentType = "insert_phase"

	// AdjustModifyPhase merges field updates into one phase.
	AdjustModifyPhase AdjustmentType = "modify_phase"

	// AdjustReorderPhases moves one phase to a new index.
	AdjustReorderPhases AdjustmentType = "reorder_phases"
)

// Valid reports whether the adjustment type is recognized.
func (t AdjustmentType) Valid() bool {
	switch t {
	case AdjustInsertPhase, AdjustModifyPhase, AdjustReorderPhases:
		return true
	}
	return false
}

// Adjustment is an audit-log entry for a plan change. The entry is
// appended before the adjustment is applied, so the log records the
// attempt even if a later entry supersedes it.
type Adjustment struct {
	// Type is the adjustment operation.
	Type AdjustmentType `json:"type"`

	// Payload is the operation's parameters as supplied by the
	// caller, preserved verbatim for audit.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Author is the agent ID that requested the adjustment.
	Author string `json:"author"`

	// CreatedAt is an ISO 8601 timestamp.
	CreatedAt string `json:"created_at"`
}

// PlanContent is the persisted record for a plan: ordered phases, a
// monotonically increasing cursor, and append-only completion and
// adjustment logs.
type PlanContent struct {
	// Version is the schema version (see PlanContentVersion).
	Version int `json:"version"`

	// Phases is the ordered phase list.
	Phases []Phase `json:"phases,omitempty"`

	// CurrentPhaseIndex is the cursor into Phases. Only increases.
	// The plan's status becomes "completed" exactly when the index
	// equals len(Phases).
	CurrentPhaseIndex int `json:"current_phase_index"`

	// Status is "active", "paused", or "completed". At most one
	// plan is active system-wide by convention.
	Status PlanStatus `json:"status"`

	// CompletedPhases is the append-only completed-phase log.
	CompletedPhases []CompletedPhase `json:"completed_phases,omitempty"`

	// Adjustments is the append-only adjustment audit log.
	Adjustments []Adjustment `json:"adjustments,omitempty"`

	// TotalTasks is the precomputed task total: the sum of each
	// phase's spec count, counting a phase with no explicit tasks
	// as one. Recomputed when an adjustment changes the phase list.
	TotalTasks int `json:"total_tasks"`

	// CreatedAt is an ISO 8601 timestamp.
	CreatedAt string `json:"created_at"`
}

// Validate checks that all required fields are present and well-formed.
func (p *PlanContent) Validate() error {
	if p.Version < 1 {
		return fmt.Errorf("plan content: version must be >= 1, got %d", p.Version)
	}
	if !p.Status.Valid() {
		if p.Status == "" {
			return errors.New("plan content: status is required")
		}
		return fmt.Errorf("plan content: unknown status %q", p.Status)
	}
	if p.CurrentPhaseIndex < 0 || p.CurrentPhaseIndex > len(p.Phases) {
		return fmt.Errorf("plan content: current_phase_index %d out of range [0, %d]",
			p.CurrentPhaseIndex, len(p.Phases))
	}
	if p.Status == PlanCompleted && p.CurrentPhaseIndex != len(p.Phases) {
		return fmt.Errorf("plan content: completed plan has current_phase_index %d, want %d",
			p.CurrentPhaseIndex, len(p.Phases))
	}
	if p.CreatedAt == "" {
		return errors.New("plan content: created_at is required")
	}
	for i := range p.Phases {
		if err := p.Phases[i].Validate(); err != nil {
			return fmt.Errorf("plan content: phases[%d]: %w", i, err)
		}
	}
	for i := range p.Adjustments {
		if !p.Adjustments[i].Type.Valid() {
			return fmt.Errorf("plan content: adjustments[%d]: unknown type %q",
				i, p.Adjustments[i].Type)
		}
	}
	return nil
}

// TotalTaskCount computes the task total from the phase list: each
// phase contributes its spec count, or 1 when it has no explicit
// specs.
func TotalTaskCount(phases []Phase) int {
	total := 0
	for i := range phases {
		if n := len(phases[i].Tasks); n > 0 {
			total += n
		} else {
			total++
		}
	}
	return total
}

// CanModify checks whether this code version can safely perform a
// read-modify-write cycle on this record. Same semantics as
// TaskContent.CanModify.
func (p *PlanContent) CanModify() error {
	if p.Version > PlanContentVersion {
		return fmt.Errorf(
			"plan content version %d exceeds supported version %d: modification would lose fields",
			p.Version, PlanContentVersion,
		)
	}
	return nil
}
