// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package mission

import (
	"errors"
	"testing"
	"time"

	"github.com/wyn0001/ai-collab-mcp/lib/clock"
	"github.com/wyn0001/ai-collab-mcp/lib/fault"
	"github.com/wyn0001/ai-collab-mcp/lib/schema"
)

// --- Test helpers ---

// stubReader serves canned task statuses.
type stubReader map[string]schema.TaskStatus

func (r stubReader) Get(taskID string) (schema.TaskContent, bool) {
	status, exists := r[taskID]
	if !exists {
		return schema.TaskContent{}, false
	}
	return schema.TaskContent{
		Version:   schema.TaskContentVersion,
		Title:     taskID,
		Priority:  schema.PriorityMedium,
		Status:    status,
		CreatedAt: "2026-03-01T09:00:00Z",
	}, true
}

// approveAll is an evaluator that confirms every criterion.
type approveAll struct{}

func (approveAll) Evaluate(content schema.MissionContent) []CriterionResult {
	results := make([]CriterionResult, len(content.AcceptanceCriteria))
	for i, criterion := range content.AcceptanceCriteria {
		results[i] = CriterionResult{Criterion: criterion, Status: CriterionMet}
	}
	return results
}

func newTracker(t *testing.T, tasks stubReader, evaluator CriteriaEvaluator) *Tracker {
	t.Helper()
	fake := clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	return New(fake, tasks, evaluator)
}

func createMission(t *testing.T, tracker *Tracker, id string, maxIterations int, criteria ...string) {
	t.Helper()
	_, err := tracker.Create(Spec{
		ID:                 id,
		Title:              "Mission " + id,
		Objective:          "Objective for " + id,
		AcceptanceCriteria: criteria,
		MaxIterations:      maxIterations,
	})
	if err != nil {
		t.Fatalf("Create(%s): %v", id, err)
	}
}

func addMember(t *testing.T, tracker *Tracker, missionID, taskID string) {
	t.Helper()
	if _, err := tracker.AddTask(missionID, taskID); err != nil {
		t.Fatalf("AddTask(%s, %s): %v", missionID, taskID, err)
	}
}

// --- Create and AddTask ---

func TestCreateStartsActiveAtIterationZero(t *testing.T) {
	tracker := newTracker(t, stubReader{}, nil)
	createMission(t, tracker, "m-1", 5)

	content, exists := tracker.Get("m-1")
	if !exists {
		t.Fatal("mission not found after create")
	}
	if content.Status != schema.MissionActive {
		t.Errorf("status = %q, want active", content.Status)
	}
	if content.Iteration != 0 {
		t.Errorf("iteration = %d, want 0", content.Iteration)
	}
	if len(content.TaskIDs) != 0 {
		t.Errorf("task list = %v, want empty", content.TaskIDs)
	}
}

func TestCreateDuplicateID(t *testing.T) {
	tracker := newTracker(t, stubReader{}, nil)
	createMission(t, tracker, "m-1", 5)

	_, err := tracker.Create(Spec{ID: "m-1", Title: "Again", Objective: "dup", MaxIterations: 1})
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("duplicate mission error = %v, want Validation", err)
	}
}

func TestCreateRequiresMaxIterations(t *testing.T) {
	tracker := newTracker(t, stubReader{}, nil)
	_, err := tracker.Create(Spec{ID: "m-1", Title: "M", Objective: "O"})
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("zero max_iterations error = %v, want Validation", err)
	}
}

func TestAddTaskIsIdempotent(t *testing.T) {
	tracker := newTracker(t, stubReader{}, nil)
	createMission(t, tracker, "m-1", 5)
	addMember(t, tracker, "m-1", "task-a")
	addMember(t, tracker, "m-1", "task-a")

	content, _ := tracker.Get("m-1")
	if len(content.TaskIDs) != 1 {
		t.Fatalf("task list = %v, want exactly one entry", content.TaskIDs)
	}
}

func TestAddTaskUnknownMission(t *testing.T) {
	tracker := newTracker(t, stubReader{}, nil)
	_, err := tracker.AddTask("m-missing", "task-a")
	if !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("unknown mission error = %v, want NotFound", err)
	}
}

// --- CheckProgress (spec scenario 4) ---

func TestCheckProgressIterationBound(t *testing.T) {
	tasks := stubReader{"task-a": schema.TaskAvailable}
	tracker := newTracker(t, tasks, nil)
	createMission(t, tracker, "m-1", 2)
	addMember(t, tracker, "m-1", "task-a")

	first, err := tracker.CheckProgress("m-1")
	if err != nil {
		t.Fatalf("CheckProgress: %v", err)
	}
	if first.Iteration != 1 || !first.ShouldContinue {
		t.Fatalf("call 1: iteration=%d shouldContinue=%v, want 1/true", first.Iteration, first.ShouldContinue)
	}

	second, err := tracker.CheckProgress("m-1")
	if err != nil {
		t.Fatalf("CheckProgress: %v", err)
	}
	if second.Iteration != 2 || second.ShouldContinue {
		t.Fatalf("call 2: iteration=%d shouldContinue=%v, want 2/false", second.Iteration, second.ShouldContinue)
	}
	// The mission itself stays active: the bound stops the loop, not
	// the mission.
	if second.Status != schema.MissionActive {
		t.Errorf("status = %q, want active", second.Status)
	}
}

func TestCheckProgressBuckets(t *testing.T) {
	tasks := stubReader{
		"task-a": schema.TaskCompleted,
		"task-b": schema.TaskInReview,
		"task-c": schema.TaskBlocked,
		"task-d": schema.TaskAvailable,
		"task-e": schema.TaskNeedsRevision,
	}
	tracker := newTracker(t, tasks, nil)
	createMission(t, tracker, "m-1", 10)
	for _, id := range []string{"task-a", "task-b", "task-c", "task-d", "task-e"} {
		addMember(t, tracker, "m-1", id)
	}

	progress, err := tracker.CheckProgress("m-1")
	if err != nil {
		t.Fatalf("CheckProgress: %v", err)
	}
	if progress.Total != 5 || progress.Completed != 1 || progress.InReview != 1 ||
		progress.Blocked != 1 || progress.Pending != 2 {
		t.Fatalf("buckets = %+v", progress)
	}
	if progress.PercentComplete != 0.2 {
		t.Errorf("percentComplete = %v, want 0.2", progress.PercentComplete)
	}
}

func TestCheckProgressEmptyMission(t *testing.T) {
	tracker := newTracker(t, stubReader{}, nil)
	createMission(t, tracker, "m-1", 10)

	progress, err := tracker.CheckProgress("m-1")
	if err != nil {
		t.Fatalf("CheckProgress: %v", err)
	}
	if progress.PercentComplete != 0 {
		t.Errorf("percentComplete = %v for empty mission, want 0", progress.PercentComplete)
	}
	// Zero tasks is not "all tasks completed": no evaluation runs.
	if progress.RequiresEvaluation || progress.Status != schema.MissionActive {
		t.Fatalf("empty mission progress = %+v", progress)
	}
}

func TestCheckProgressMissingMemberTask(t *testing.T) {
	tracker := newTracker(t, stubReader{}, nil)
	createMission(t, tracker, "m-1", 10)
	addMember(t, tracker, "m-1", "task-gone")

	_, err := tracker.CheckProgress("m-1")
	if !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("missing member error = %v, want NotFound", err)
	}
}

func TestCheckProgressAllCompletedAwaitsVerdict(t *testing.T) {
	tasks := stubReader{"task-a": schema.TaskCompleted}
	tracker := newTracker(t, tasks, nil)
	createMission(t, tracker, "m-1", 10, "all tests pass")
	addMember(t, tracker, "m-1", "task-a")

	progress, err := tracker.CheckProgress("m-1")
	if err != nil {
		t.Fatalf("CheckProgress: %v", err)
	}
	if !progress.RequiresEvaluation {
		t.Error("requiresEvaluation not raised with the baseline evaluator")
	}
	if progress.Status != schema.MissionActive {
		t.Errorf("status = %q, want active (no auto-completion)", progress.Status)
	}
	if len(progress.Criteria) != 1 || progress.Criteria[0].Status != CriterionPending {
		t.Fatalf("criteria = %+v, want one pending_evaluation entry", progress.Criteria)
	}
}

func TestCheckProgressEvaluatorConfirmsCompletion(t *testing.T) {
	tasks := stubReader{"task-a": schema.TaskCompleted}
	tracker := newTracker(t, tasks, approveAll{})
	createMission(t, tracker, "m-1", 10, "all tests pass")
	addMember(t, tracker, "m-1", "task-a")

	progress, err := tracker.CheckProgress("m-1")
	if err != nil {
		t.Fatalf("CheckProgress: %v", err)
	}
	if progress.Status != schema.MissionCompleted {
		t.Fatalf("status = %q, want completed", progress.Status)
	}
	if progress.ShouldContinue {
		t.Error("shouldContinue = true on a completed mission")
	}
	content, _ := tracker.Get("m-1")
	if content.CompletedAt == "" {
		t.Error("completedAt not set")
	}
}

func TestCheckProgressZeroCriteriaNeverAutoCompletes(t *testing.T) {
	tasks := stubReader{"task-a": schema.TaskCompleted}
	tracker := newTracker(t, tasks, approveAll{})
	createMission(t, tracker, "m-1", 10)
	addMember(t, tracker, "m-1", "task-a")

	progress, err := tracker.CheckProgress("m-1")
	if err != nil {
		t.Fatalf("CheckProgress: %v", err)
	}
	if progress.Status != schema.MissionActive || !progress.RequiresEvaluation {
		t.Fatalf("zero-criteria mission progress = %+v, want active with requiresEvaluation", progress)
	}
}

func TestCheckProgressUnknownMission(t *testing.T) {
	tracker := newTracker(t, stubReader{}, nil)
	_, err := tracker.CheckProgress("m-missing")
	if !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("unknown mission error = %v, want NotFound", err)
	}
}

// --- PeekProgress ---

func TestPeekProgressDoesNotConsumeIteration(t *testing.T) {
	tracker := newTracker(t, stubReader{
		"task-a": schema.TaskCompleted,
		"task-b": schema.TaskAvailable,
	}, nil)
	createMission(t, tracker, "mission-1", 3)
	addMember(t, tracker, "mission-1", "task-a")
	addMember(t, tracker, "mission-1", "task-b")
	tracker.TakeDirty()

	peeked, err := tracker.PeekProgress("mission-1")
	if err != nil {
		t.Fatalf("PeekProgress: %v", err)
	}
	if peeked.Completed != 1 || peeked.Pending != 1 || peeked.Total != 2 {
		t.Fatalf("buckets = %+v", peeked)
	}
	if peeked.Iteration != 0 {
		t.Errorf("Iteration = %d, want 0", peeked.Iteration)
	}
	if !peeked.ShouldContinue {
		t.Error("ShouldContinue = false for an active mission under its bound")
	}
	if dirty := tracker.TakeDirty(); len(dirty) != 0 {
		t.Fatalf("PeekProgress marked %d missions dirty", len(dirty))
	}

	// The real check still starts from iteration 1: nothing was spent.
	checked, err := tracker.CheckProgress("mission-1")
	if err != nil {
		t.Fatalf("CheckProgress: %v", err)
	}
	if checked.Iteration != 1 {
		t.Errorf("Iteration after first real check = %d, want 1", checked.Iteration)
	}
}

func TestPeekProgressNeverCompletesMission(t *testing.T) {
	tracker := newTracker(t, stubReader{"task-a": schema.TaskCompleted}, approveAll{})
	createMission(t, tracker, "mission-1", 3, "works end to end")
	addMember(t, tracker, "mission-1", "task-a")

	peeked, err := tracker.PeekProgress("mission-1")
	if err != nil {
		t.Fatalf("PeekProgress: %v", err)
	}
	if peeked.Status != schema.MissionActive {
		t.Fatalf("peeked status = %q, want active", peeked.Status)
	}
	if len(peeked.Criteria) != 0 {
		t.Errorf("peek ran the criteria evaluator: %+v", peeked.Criteria)
	}
	content, _ := tracker.Get("mission-1")
	if content.Status != schema.MissionActive {
		t.Fatalf("stored status = %q after peek, want active", content.Status)
	}
}

func TestPeekProgressUnknownMission(t *testing.T) {
	tracker := newTracker(t, stubReader{}, nil)
	_, err := tracker.PeekProgress("mission-missing")
	if !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

// --- UpdateStatus and RecordDecision ---

func TestUpdateStatusPauseAndComplete(t *testing.T) {
	tracker := newTracker(t, stubReader{}, nil)
	createMission(t, tracker, "m-1", 10)

	entry, err := tracker.UpdateStatus("m-1", schema.MissionPaused, "operator", "waiting on upstream")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if entry.Content.Status != schema.MissionPaused {
		t.Fatalf("status = %q, want paused", entry.Content.Status)
	}
	if len(entry.Content.Decisions) != 1 || entry.Content.Decisions[0].Rationale != "waiting on upstream" {
		t.Fatalf("decisions = %+v, want the pause reason recorded", entry.Content.Decisions)
	}

	entry, err = tracker.UpdateStatus("m-1", schema.MissionCompleted, "operator", "")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if entry.Content.CompletedAt == "" {
		t.Error("completedAt not set on completion")
	}
}

func TestUpdateStatusUnknownValue(t *testing.T) {
	tracker := newTracker(t, stubReader{}, nil)
	createMission(t, tracker, "m-1", 10)

	_, err := tracker.UpdateStatus("m-1", "archived", "operator", "")
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("unknown status error = %v, want Validation", err)
	}
}

func TestRecordDecisionAppends(t *testing.T) {
	tracker := newTracker(t, stubReader{}, nil)
	createMission(t, tracker, "m-1", 10)

	if _, err := tracker.RecordDecision("m-1", "implementer", "cut scope", "phase 3 deferred"); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}
	entry, err := tracker.RecordDecision("m-1", "reviewer", "switch storage", "")
	if err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}
	if len(entry.Content.Decisions) != 2 {
		t.Fatalf("decision log length = %d, want 2", len(entry.Content.Decisions))
	}
	if entry.Content.Decisions[0].Summary != "cut scope" {
		t.Errorf("decision order not preserved: %+v", entry.Content.Decisions)
	}
	if entry.Content.Decisions[0].CreatedAt == "" {
		t.Error("decision timestamp not set")
	}
}

func TestRecordDecisionRequiresSummary(t *testing.T) {
	tracker := newTracker(t, stubReader{}, nil)
	createMission(t, tracker, "m-1", 10)

	_, err := tracker.RecordDecision("m-1", "implementer", "", "rationale only")
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("empty summary error = %v, want Validation", err)
	}
}

// --- Dirty tracking and load ---

func TestTakeDirtyAfterProgressCheck(t *testing.T) {
	tasks := stubReader{"task-a": schema.TaskAvailable}
	tracker := newTracker(t, tasks, nil)
	createMission(t, tracker, "m-1", 10)
	addMember(t, tracker, "m-1", "task-a")
	tracker.TakeDirty()

	if _, err := tracker.CheckProgress("m-1"); err != nil {
		t.Fatalf("CheckProgress: %v", err)
	}
	dirty := tracker.TakeDirty()
	if len(dirty) != 1 || dirty[0].ID != "m-1" {
		t.Fatalf("TakeDirty = %v, want [m-1]", dirty)
	}
	if again := tracker.TakeDirty(); len(again) != 0 {
		t.Fatalf("second TakeDirty = %v, want empty", again)
	}
}

func TestLoadDoesNotMarkDirty(t *testing.T) {
	tracker := newTracker(t, stubReader{}, nil)
	err := tracker.Load("m-1", schema.MissionContent{
		Version:       schema.MissionContentVersion,
		Title:         "Hydrated",
		Objective:     "restored from storage",
		Status:        schema.MissionPaused,
		Iteration:     3,
		MaxIterations: 10,
		CreatedAt:     "2026-02-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if dirty := tracker.TakeDirty(); len(dirty) != 0 {
		t.Fatalf("Load marked records dirty: %v", dirty)
	}
	content, _ := tracker.Get("m-1")
	if content.Iteration != 3 || content.Status != schema.MissionPaused {
		t.Fatalf("loaded content = %+v", content)
	}
}

func TestLoadRejectsInvalidRecord(t *testing.T) {
	tracker := newTracker(t, stubReader{}, nil)
	err := tracker.Load("m-1", schema.MissionContent{Version: 1, Title: "no objective"})
	if !errors.Is(err, fault.ErrCorrupt) {
		t.Fatalf("invalid record error = %v, want Corrupt", err)
	}
}
