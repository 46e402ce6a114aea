// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"errors"
	"fmt"
)

// TaskContentVersion is the current schema version for task records.
// Increment when adding fields that existing code must not silently
// drop during read-modify-write.
const TaskContentVersion = 1

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	// TaskPending is the initial status at creation, before the
	// first availability pass has classified the task.
	TaskPending TaskStatus = "pending"

	// TaskAvailable means every dependency is completed and nothing
	// blocks the task: it is in the selectable pool.
	TaskAvailable TaskStatus = "available"

	// TaskBlocked means at least one dependency is not completed or
	// the blocked-by list is non-empty.
	TaskBlocked TaskStatus = "blocked"

	// TaskInProgress means an agent has claimed the task. The graph
	// maintains a single in-progress slot: selection returns the
	// in-progress task until it is submitted for review.
	TaskInProgress TaskStatus = "in_progress"

	// TaskInReview means work was submitted and awaits a reviewer
	// verdict. Not recomputed by the availability pass.
	TaskInReview TaskStatus = "in_review"

	// TaskCompleted is terminal: an approved review. Not recomputed
	// by the availability pass.
	TaskCompleted TaskStatus = "completed"

	// TaskNeedsRevision means a reviewer requested changes. The task
	// re-enters the selectable pool and is left untouched by the
	// availability pass.
	TaskNeedsRevision TaskStatus = "needs_revision"
)

// validTaskStatuses is the closed set of recognized task statuses.
var validTaskStatuses = map[TaskStatus]bool{
	TaskPending:       true,
	TaskAvailable:     true,
	TaskBlocked:       true,
	TaskInProgress:    true,
	TaskInReview:      true,
	TaskCompleted:     true,
	TaskNeedsRevision: true,
}

// Valid reports whether the status is a recognized value.
func (s TaskStatus) Valid() bool { return validTaskStatuses[s] }

// taskTransitions is the explicit transition table. Entries absent
// from the table are disallowed and rejected as InvalidTransition by
// the graph, never applied as arbitrary overwrites.
//
//	pending        → available | blocked     (availability pass)
//	available      ⇄ blocked                 (availability pass)
//	available      → in_progress | in_review (claim, or direct submit)
//	needs_revision → in_progress | in_review (rework, or direct resubmit)
//	in_progress    → in_review               (submit)
//	in_review      → completed | needs_revision (review verdict)
//	completed      → (terminal)
var taskTransitions = map[TaskStatus]map[TaskStatus]bool{
	TaskPending: {
		TaskAvailable: true,
		TaskBlocked:   true,
	},
	TaskAvailable: {
		TaskBlocked:    true,
		TaskInProgress: true,
		TaskInReview:   true,
	},
	TaskBlocked: {
		TaskAvailable: true,
	},
	TaskNeedsRevision: {
		TaskInProgress: true,
		TaskInReview:   true,
	},
	TaskInProgress: {
		TaskInReview: true,
	},
	TaskInReview: {
		TaskCompleted:     true,
		TaskNeedsRevision: true,
	},
	TaskCompleted: {},
}

// CanTransition reports whether the transition table permits moving a
// task from one status to another.
func CanTransition(from, to TaskStatus) bool {
	return taskTransitions[from][to]
}

// TaskPriority orders tasks within the selectable pool.
type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

// Valid reports whether the priority is a recognized value.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank returns the numeric selection rank: high=0, medium=1, low=2.
// Lower ranks are selected first. Unknown priorities rank last.
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Submission is a unit of completed work attached to a task, awaiting
// review. Submissions are append-only: the graph assigns IDs and
// timestamps.
type Submission struct {
	// ID uniquely identifies this submission within the task
	// (e.g., "s-1", "s-2").
	ID string `json:"id"`

	// Author is the agent ID of the submitter.
	Author string `json:"author"`

	// Summary describes the work performed.
	Summary string `json:"summary"`

	// Artifacts lists references to work products (branch names,
	// file paths, artifact refs). The task stores references, not
	// content.
	Artifacts []string `json:"artifacts,omitempty"`

	// CreatedAt is an ISO 8601 timestamp.
	CreatedAt string `json:"created_at"`
}

// Verdict is a reviewer's judgement on a submission.
type Verdict string

const (
	VerdictApproved      Verdict = "approved"
	VerdictNeedsRevision Verdict = "needs_revision"
)

// Valid reports whether the verdict is a recognized value.
func (v Verdict) Valid() bool {
	return v == VerdictApproved || v == VerdictNeedsRevision
}

// Review is a verdict plus feedback attached to a task. Reviews are
// append-only; each review responds to the latest submission.
type Review struct {
	// ID uniquely identifies this review within the task.
	ID string `json:"id"`

	// Reviewer is the agent ID of the reviewer.
	Reviewer string `json:"reviewer"`

	// Verdict is "approved" or "needs_revision".
	Verdict Verdict `json:"verdict"`

	// Feedback explains the verdict. Required for needs_revision so
	// the implementer knows what to change.
	Feedback string `json:"feedback,omitempty"`

	// CreatedAt is an ISO 8601 timestamp.
	CreatedAt string `json:"created_at"`
}

// Question is a clarification request attached to a task. Questions
// are append-only; answering fills the answer fields in place.
type Question struct {
	// ID uniquely identifies this question across the whole graph
	// (e.g., "q-task-1-1"), so answers can be routed without naming
	// the task.
	ID string `json:"id"`

	// Author is the agent ID that asked.
	Author string `json:"author"`

	// Body is the question text.
	Body string `json:"body"`

	// CreatedAt is an ISO 8601 timestamp.
	CreatedAt string `json:"created_at"`

	// Answer is empty until the question is answered.
	Answer string `json:"answer,omitempty"`

	// AnsweredBy is the agent ID that answered.
	AnsweredBy string `json:"answered_by,omitempty"`

	// AnsweredAt is set when the answer is recorded.
	AnsweredAt string `json:"answered_at,omitempty"`
}

// TaskContent is the persisted record for a task. The task graph owns
// these records exclusively; every mutation goes through its
// transition operations.
type TaskContent struct {
	// Version is the schema version (see TaskContentVersion).
	Version int `json:"version"`

	// Title is a short summary of the work item.
	Title string `json:"title"`

	// Specification is the full directive text.
	Specification string `json:"specification,omitempty"`

	// Requirements lists what the implementation must do.
	Requirements []string `json:"requirements,omitempty"`

	// AcceptanceCriteria lists what the reviewer checks.
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`

	// Priority is "high", "medium", or "low".
	Priority TaskPriority `json:"priority"`

	// DependsOn lists task IDs that must be completed before this
	// task becomes available.
	DependsOn []string `json:"depends_on,omitempty"`

	// BlockedBy lists task IDs blocking this task for reasons other
	// than dependency order (external holds). Independent of
	// DependsOn: a task with an empty DependsOn and a non-empty
	// BlockedBy is still blocked.
	BlockedBy []string `json:"blocked_by,omitempty"`

	// Tickets lists externally tracked ticket IDs cross-linked to
	// this task. References only; the external tracker owns the
	// tickets and this core never mutates them.
	Tickets []string `json:"tickets,omitempty"`

	// Status is the workflow state. A task's status is a pure
	// function of its own submission/review history plus the
	// completion of every DependsOn entry and the emptiness of
	// BlockedBy, except transiently between a dependency completing
	// and the next availability pass.
	Status TaskStatus `json:"status"`

	// Submissions is the ordered submission history.
	Submissions []Submission `json:"submissions,omitempty"`

	// Reviews is the ordered review history.
	Reviews []Review `json:"reviews,omitempty"`

	// Questions is the ordered question list.
	Questions []Question `json:"questions,omitempty"`

	// CreatedAt is an ISO 8601 timestamp. Used as the tiebreaker in
	// task selection (earliest first).
	CreatedAt string `json:"created_at"`

	// CompletedAt is set once, when an approved review completes the
	// task.
	CompletedAt string `json:"completed_at,omitempty"`
}

// Validate checks that all required fields are present and well-formed.
// Returns an error describing the first invalid field found.
func (t *TaskContent) Validate() error {
	if t.Version < 1 {
		return fmt.Errorf("task content: version must be >= 1, got %d", t.Version)
	}
	if t.Title == "" {
		return errors.New("task content: title is required")
	}
	if !t.Priority.Valid() {
		if t.Priority == "" {
			return errors.New("task content: priority is required")
		}
		return fmt.Errorf("task content: unknown priority %q", t.Priority)
	}
	if !t.Status.Valid() {
		if t.Status == "" {
			return errors.New("task content: status is required")
		}
		return fmt.Errorf("task content: unknown status %q", t.Status)
	}
	if t.CreatedAt == "" {
		return errors.New("task content: created_at is required")
	}
	for i, dep := range t.DependsOn {
		if dep == "" {
			return fmt.Errorf("task content: depends_on[%d] is empty", i)
		}
	}
	for i, blocker := range t.BlockedBy {
		if blocker == "" {
			return fmt.Errorf("task content: blocked_by[%d] is empty", i)
		}
	}
	for i, ticket := range t.Tickets {
		if ticket == "" {
			return fmt.Errorf("task content: tickets[%d] is empty", i)
		}
	}
	for i := range t.Reviews {
		if !t.Reviews[i].Verdict.Valid() {
			return fmt.Errorf("task content: reviews[%d]: unknown verdict %q", i, t.Reviews[i].Verdict)
		}
	}
	return nil
}

// CanModify checks whether this code version can safely perform a
// read-modify-write cycle on this record. If the record's Version
// exceeds TaskContentVersion, marshaling the modified struct back
// would silently drop fields added in newer versions, so modification
// is refused.
func (t *TaskContent) CanModify() error {
	if t.Version > TaskContentVersion {
		return fmt.Errorf(
			"task content version %d exceeds supported version %d: modification would lose fields",
			t.Version, TaskContentVersion,
		)
	}
	return nil
}
