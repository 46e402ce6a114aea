// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package mission

import (
	"sort"
	"time"

	"github.com/wyn0001/ai-collab-mcp/lib/clock"
	"github.com/wyn0001/ai-collab-mcp/lib/fault"
	"github.com/wyn0001/ai-collab-mcp/lib/schema"
)

// StatusReader is the view of the task graph the tracker needs: the
// current content of a task by ID. *taskgraph.Graph satisfies it.
type StatusReader interface {
	Get(taskID string) (schema.TaskContent, bool)
}

// CriterionStatus is an evaluator's verdict on one acceptance
// criterion.
type CriterionStatus string

const (
	CriterionMet     CriterionStatus = "met"
	CriterionUnmet   CriterionStatus = "unmet"
	CriterionPending CriterionStatus = "pending_evaluation"
)

// CriterionResult pairs an acceptance criterion with its evaluation.
type CriterionResult struct {
	Criterion string          `json:"criterion"`
	Status    CriterionStatus `json:"status"`
	Note      string          `json:"note,omitempty"`
}

// CriteriaEvaluator judges a mission's acceptance criteria once every
// member task has completed. Implementations must be pure: no
// mutation of the mission record.
type CriteriaEvaluator interface {
	Evaluate(content schema.MissionContent) []CriterionResult
}

// PendingEvaluator is the baseline evaluator: it reports every
// criterion as pending_evaluation and therefore never auto-completes
// a mission. Completion requires an external verdict.
type PendingEvaluator struct{}

func (PendingEvaluator) Evaluate(content schema.MissionContent) []CriterionResult {
	results := make([]CriterionResult, len(content.AcceptanceCriteria))
	for i, criterion := range content.AcceptanceCriteria {
		results[i] = CriterionResult{
			Criterion: criterion,
			Status:    CriterionPending,
			Note:      "awaiting external verdict",
		}
	}
	return results
}

// Entry pairs a mission ID with its content.
type Entry struct {
	ID      string
	Content schema.MissionContent
}

// Spec is the caller-supplied description of a new mission.
type Spec struct {
	ID                 string
	Title              string
	Objective          string
	AcceptanceCriteria []string
	Constraints        []string
	MaxIterations      int
}

// Progress is the result of a progress check.
type Progress struct {
	MissionID string               `json:"mission_id"`
	Status    schema.MissionStatus `json:"status"`
	Iteration int                  `json:"iteration"`

	Total     int `json:"total"`
	Completed int `json:"completed"`
	InReview  int `json:"in_review"`
	Pending   int `json:"pending"`
	Blocked   int `json:"blocked"`

	// PercentComplete is Completed/Total, or 0 for an empty mission.
	PercentComplete float64 `json:"percent_complete"`

	// RequiresEvaluation is raised when every task is completed but
	// the criteria evaluator did not confirm all criteria met.
	RequiresEvaluation bool              `json:"requires_evaluation"`
	Criteria           []CriterionResult `json:"criteria,omitempty"`

	// ShouldContinue tells the driving agent whether to keep
	// iterating: the mission is active and under its iteration bound.
	ShouldContinue bool `json:"should_continue"`
}

// Tracker is the in-memory mission index. Not safe for concurrent
// use; the service serializes access.
type Tracker struct {
	clock     clock.Clock
	tasks     StatusReader
	evaluator CriteriaEvaluator

	missions map[string]*schema.MissionContent
	dirty    map[string]struct{}
}

// New returns an empty tracker reading task statuses from tasks. A
// nil evaluator defaults to PendingEvaluator.
func New(clk clock.Clock, tasks StatusReader, evaluator CriteriaEvaluator) *Tracker {
	if evaluator == nil {
		evaluator = PendingEvaluator{}
	}
	return &Tracker{
		clock:     clk,
		tasks:     tasks,
		evaluator: evaluator,
		missions:  make(map[string]*schema.MissionContent),
		dirty:     make(map[string]struct{}),
	}
}

// Len returns the number of missions.
func (t *Tracker) Len() int { return len(t.missions) }

// Load hydrates one mission record from storage. Loaded records are
// not marked dirty.
func (t *Tracker) Load(id string, content schema.MissionContent) error {
	if id == "" {
		return fault.Validationf("mission", id, "load", "mission ID is empty")
	}
	if err := content.Validate(); err != nil {
		return fault.Corruptf("mission", id, "load", err)
	}
	t.missions[id] = &content
	return nil
}

// Create registers a new mission: status active, iteration 0, empty
// task list.
func (t *Tracker) Create(spec Spec) (Entry, error) {
	if spec.ID == "" {
		return Entry{}, fault.Validationf("mission", spec.ID, "create", "mission ID is required")
	}
	if _, exists := t.missions[spec.ID]; exists {
		return Entry{}, fault.Validationf("mission", spec.ID, "create", "mission already exists")
	}
	content := schema.MissionContent{
		Version:            schema.MissionContentVersion,
		Title:              spec.Title,
		Objective:          spec.Objective,
		AcceptanceCriteria: append([]string(nil), spec.AcceptanceCriteria...),
		Constraints:        append([]string(nil), spec.Constraints...),
		Status:             schema.MissionActive,
		MaxIterations:      spec.MaxIterations,
		CreatedAt:          t.timestamp(),
	}
	if err := content.Validate(); err != nil {
		return Entry{}, fault.Validationf("mission", spec.ID, "create", "%v", err)
	}
	t.missions[spec.ID] = &content
	t.markDirty(spec.ID)
	return t.entry(spec.ID), nil
}

// AddTask appends a task ID to the mission's member list. Idempotent:
// adding an already-listed task is a no-op, not an error.
func (t *Tracker) AddTask(missionID, taskID string) (Entry, error) {
	content, err := t.get(missionID, "add_task")
	if err != nil {
		return Entry{}, err
	}
	if taskID == "" {
		return Entry{}, fault.Validationf("mission", missionID, "add_task", "task ID is required")
	}
	if err := content.CanModify(); err != nil {
		return Entry{}, fault.Corruptf("mission", missionID, "add_task", err)
	}
	for _, existing := range content.TaskIDs {
		if existing == taskID {
			return t.entry(missionID), nil
		}
	}
	content.TaskIDs = append(content.TaskIDs, taskID)
	t.markDirty(missionID)
	return t.entry(missionID), nil
}

// CheckProgress reads the status of every member task, buckets the
// counts, and advances the iteration counter. The counter advances on
// every call regardless of outcome, so MaxIterations bounds the total
// number of checks, not the number of productive ones.
//
// A member task missing from the graph fails the check with NotFound;
// a mission that references a task the graph has never seen is
// inconsistent, not empty.
func (t *Tracker) CheckProgress(missionID string) (Progress, error) {
	content, err := t.get(missionID, "check_progress")
	if err != nil {
		return Progress{}, err
	}
	if err := content.CanModify(); err != nil {
		return Progress{}, fault.Corruptf("mission", missionID, "check_progress", err)
	}

	progress := Progress{MissionID: missionID}
	if err := t.countTasks(content, &progress, "check_progress"); err != nil {
		return Progress{}, err
	}

	if progress.Completed == progress.Total && progress.Total > 0 {
		results := t.evaluator.Evaluate(*content)
		progress.Criteria = results
		if allMet(results) {
			if content.Status == schema.MissionActive {
				content.Status = schema.MissionCompleted
				if content.CompletedAt == "" {
					content.CompletedAt = t.timestamp()
				}
			}
		} else {
			progress.RequiresEvaluation = true
		}
	}

	content.Iteration++
	t.markDirty(missionID)

	progress.Status = content.Status
	progress.Iteration = content.Iteration
	progress.ShouldContinue = content.Status == schema.MissionActive &&
		content.Iteration < content.MaxIterations
	return progress, nil
}

// PeekProgress computes the task buckets without consuming an
// iteration: no counter advance, no criteria evaluation, no
// completion transition, nothing marked dirty. The polling path uses
// it to tell an idle agent whether a real progress check is worth
// running; only CheckProgress spends the iteration budget.
func (t *Tracker) PeekProgress(missionID string) (Progress, error) {
	content, err := t.get(missionID, "peek_progress")
	if err != nil {
		return Progress{}, err
	}
	progress := Progress{
		MissionID: missionID,
		Status:    content.Status,
		Iteration: content.Iteration,
	}
	if err := t.countTasks(content, &progress, "peek_progress"); err != nil {
		return Progress{}, err
	}
	progress.ShouldContinue = content.Status == schema.MissionActive &&
		content.Iteration < content.MaxIterations
	return progress, nil
}

// countTasks buckets the mission's member tasks into progress. A
// member task missing from the graph fails with NotFound: a mission
// referencing a task the graph has never seen is inconsistent, not
// empty.
func (t *Tracker) countTasks(content *schema.MissionContent, progress *Progress, op string) error {
	progress.Total = len(content.TaskIDs)
	for _, taskID := range content.TaskIDs {
		task, exists := t.tasks.Get(taskID)
		if !exists {
			return fault.NotFoundf("task", taskID, op)
		}
		switch task.Status {
		case schema.TaskCompleted:
			progress.Completed++
		case schema.TaskInReview:
			progress.InReview++
		case schema.TaskBlocked:
			progress.Blocked++
		default:
			progress.Pending++
		}
	}
	if progress.Total > 0 {
		progress.PercentComplete = float64(progress.Completed) / float64(progress.Total)
	}
	return nil
}

// UpdateStatus writes the mission status directly. Used for pause and
// stop, where no task-derived condition drives the change. A
// non-empty reason is appended to the decision log.
func (t *Tracker) UpdateStatus(missionID string, status schema.MissionStatus, author, reason string) (Entry, error) {
	content, err := t.get(missionID, "update_status")
	if err != nil {
		return Entry{}, err
	}
	if !status.Valid() {
		return Entry{}, fault.Validationf("mission", missionID, "update_status", "unknown status %q", status)
	}
	if err := content.CanModify(); err != nil {
		return Entry{}, fault.Corruptf("mission", missionID, "update_status", err)
	}
	content.Status = status
	if status == schema.MissionCompleted && content.CompletedAt == "" {
		content.CompletedAt = t.timestamp()
	}
	if reason != "" {
		content.Decisions = append(content.Decisions, schema.Decision{
			Author:    author,
			Summary:   "status changed to " + string(status),
			Rationale: reason,
			CreatedAt: t.timestamp(),
		})
	}
	t.markDirty(missionID)
	return t.entry(missionID), nil
}

// RecordDecision appends an entry to the mission's decision log.
func (t *Tracker) RecordDecision(missionID, author, summary, rationale string) (Entry, error) {
	content, err := t.get(missionID, "record_decision")
	if err != nil {
		return Entry{}, err
	}
	if summary == "" {
		return Entry{}, fault.Validationf("mission", missionID, "record_decision", "summary is required")
	}
	if err := content.CanModify(); err != nil {
		return Entry{}, fault.Corruptf("mission", missionID, "record_decision", err)
	}
	content.Decisions = append(content.Decisions, schema.Decision{
		Author:    author,
		Summary:   summary,
		Rationale: rationale,
		CreatedAt: t.timestamp(),
	})
	t.markDirty(missionID)
	return t.entry(missionID), nil
}

// Get returns a copy of one mission's content.
func (t *Tracker) Get(missionID string) (schema.MissionContent, bool) {
	content, exists := t.missions[missionID]
	if !exists {
		return schema.MissionContent{}, false
	}
	return cloneMission(content), true
}

// List returns all missions sorted by ID.
func (t *Tracker) List() []Entry {
	ids := make([]string, 0, len(t.missions))
	for id := range t.missions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	entries := make([]Entry, len(ids))
	for i, id := range ids {
		entries[i] = t.entry(id)
	}
	return entries
}

// TakeDirty returns the missions mutated since the last call and
// resets the dirty set. Entries are sorted by ID.
func (t *Tracker) TakeDirty() []Entry {
	ids := make([]string, 0, len(t.dirty))
	for id := range t.dirty {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	entries := make([]Entry, len(ids))
	for i, id := range ids {
		entries[i] = t.entry(id)
	}
	t.dirty = make(map[string]struct{})
	return entries
}

func (t *Tracker) get(missionID, op string) (*schema.MissionContent, error) {
	content, exists := t.missions[missionID]
	if !exists {
		return nil, fault.NotFoundf("mission", missionID, op)
	}
	return content, nil
}

func (t *Tracker) entry(id string) Entry {
	return Entry{ID: id, Content: cloneMission(t.missions[id])}
}

func (t *Tracker) markDirty(id string) {
	t.dirty[id] = struct{}{}
}

func (t *Tracker) timestamp() string {
	return t.clock.Now().UTC().Format(time.RFC3339)
}

// allMet reports whether the evaluator confirmed every criterion. An
// empty result set is not confirmation: a mission with no criteria
// still needs an explicit UpdateStatus to complete.
func allMet(results []CriterionResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, result := range results {
		if result.Status != CriterionMet {
			return false
		}
	}
	return true
}

func cloneMission(content *schema.MissionContent) schema.MissionContent {
	clone := *content
	clone.AcceptanceCriteria = append([]string(nil), content.AcceptanceCriteria...)
	clone.Constraints = append([]string(nil), content.Constraints...)
	clone.TaskIDs = append([]string(nil), content.TaskIDs...)
	clone.Decisions = append([]schema.Decision(nil), content.Decisions...)
	return clone
}
