// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package taskgraph

import (
	"errors"
	"testing"
	"time"

	"github.com/wyn0001/ai-collab-mcp/lib/clock"
	"github.com/wyn0001/ai-collab-mcp/lib/fault"
	"github.com/wyn0001/ai-collab-mcp/lib/schema"
)

// --- Test helpers ---

// newGraph returns a graph on a fake clock so createdAt ordering is
// under test control.
func newGraph(t *testing.T) (*Graph, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	return New(fake), fake
}

// addTask creates a task and fails the test on error. The clock is
// advanced one second afterward so subsequent tasks sort later.
func addTask(t *testing.T, g *Graph, fake *clock.FakeClock, spec Spec) Entry {
	t.Helper()
	entry, err := g.AddTask(spec)
	if err != nil {
		t.Fatalf("AddTask(%s): %v", spec.ID, err)
	}
	fake.Advance(time.Second)
	return entry
}

// statusOf fails the test if the task is missing.
func statusOf(t *testing.T, g *Graph, id string) schema.TaskStatus {
	t.Helper()
	content, exists := g.Get(id)
	if !exists {
		t.Fatalf("task %s not found", id)
	}
	return content.Status
}

// complete pushes a task through submit and approve.
func complete(t *testing.T, g *Graph, id string) {
	t.Helper()
	if _, err := g.SubmitWork(id, "implementer", "done", nil); err != nil {
		t.Fatalf("SubmitWork(%s): %v", id, err)
	}
	if _, err := g.Review(id, "reviewer", schema.VerdictApproved, "ship it"); err != nil {
		t.Fatalf("Review(%s): %v", id, err)
	}
}

// --- AddTask and availability ---

func TestAddTaskNoDependenciesIsAvailable(t *testing.T) {
	g, fake := newGraph(t)
	entry := addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A", Priority: schema.PriorityHigh})

	if entry.Content.Status != schema.TaskAvailable {
		t.Fatalf("status = %q, want %q", entry.Content.Status, schema.TaskAvailable)
	}
}

func TestAddTaskWithOpenDependencyIsBlocked(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A", Priority: schema.PriorityHigh})
	entry := addTask(t, g, fake, Spec{
		ID: "task-b", Title: "Task B", Priority: schema.PriorityHigh,
		DependsOn: []string{"task-a"},
	})

	if entry.Content.Status != schema.TaskBlocked {
		t.Fatalf("status = %q, want %q", entry.Content.Status, schema.TaskBlocked)
	}
}

func TestAddTaskWithDanglingDependencyIsBlocked(t *testing.T) {
	g, fake := newGraph(t)
	entry := addTask(t, g, fake, Spec{
		ID: "task-b", Title: "Task B", DependsOn: []string{"task-never-created"},
	})

	if entry.Content.Status != schema.TaskBlocked {
		t.Fatalf("dangling dependency: status = %q, want %q", entry.Content.Status, schema.TaskBlocked)
	}
}

func TestAddTaskWithBlockerIsBlocked(t *testing.T) {
	g, fake := newGraph(t)
	entry := addTask(t, g, fake, Spec{
		ID: "task-a", Title: "Task A", BlockedBy: []string{"task-hold"},
	})

	if entry.Content.Status != schema.TaskBlocked {
		t.Fatalf("status = %q, want %q", entry.Content.Status, schema.TaskBlocked)
	}
}

func TestAddTaskDuplicateID(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A"})

	_, err := g.AddTask(Spec{ID: "task-a", Title: "Again"})
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("duplicate ID error = %v, want Validation", err)
	}
}

func TestAddTaskUnknownPriority(t *testing.T) {
	g, _ := newGraph(t)
	_, err := g.AddTask(Spec{ID: "task-a", Title: "Task A", Priority: "urgent"})
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("unknown priority error = %v, want Validation", err)
	}
}

func TestAddTaskRejectsDependencyCycle(t *testing.T) {
	g, fake := newGraph(t)
	// task-b is created first, depending on the not-yet-created
	// task-a. Creating task-a depending on task-b would close the
	// loop.
	addTask(t, g, fake, Spec{ID: "task-b", Title: "Task B", DependsOn: []string{"task-a"}})

	_, err := g.AddTask(Spec{ID: "task-a", Title: "Task A", DependsOn: []string{"task-b"}})
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("cycle error = %v, want Validation", err)
	}
}

func TestAddTaskSelfDependencyRejected(t *testing.T) {
	g, _ := newGraph(t)
	_, err := g.AddTask(Spec{ID: "task-a", Title: "Task A", DependsOn: []string{"task-a"}})
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("self dependency error = %v, want Validation", err)
	}
}

// --- AddBatch ---

func TestAddBatchDuplicateWithinBatchRejectedBeforeMutation(t *testing.T) {
	g, _ := newGraph(t)
	_, err := g.AddBatch([]Spec{
		{ID: "task-a", Title: "First"},
		{ID: "task-a", Title: "Second"},
	})
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("batch duplicate error = %v, want Validation", err)
	}
	if g.Len() != 0 {
		t.Fatalf("Len() = %d after rejected batch, want 0", g.Len())
	}
}

func TestAddBatchIntraBatchDependencies(t *testing.T) {
	g, _ := newGraph(t)
	entries, err := g.AddBatch([]Spec{
		{ID: "task-a", Title: "Task A"},
		{ID: "task-b", Title: "Task B", DependsOn: []string{"task-a"}},
	})
	if err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if statusOf(t, g, "task-a") != schema.TaskAvailable {
		t.Errorf("task-a status = %q, want available", statusOf(t, g, "task-a"))
	}
	if statusOf(t, g, "task-b") != schema.TaskBlocked {
		t.Errorf("task-b status = %q, want blocked", statusOf(t, g, "task-b"))
	}
}

func TestAddBatchRejectsIntraBatchCycle(t *testing.T) {
	g, _ := newGraph(t)
	_, err := g.AddBatch([]Spec{
		{ID: "task-a", Title: "Task A", DependsOn: []string{"task-b"}},
		{ID: "task-b", Title: "Task B", DependsOn: []string{"task-a"}},
	})
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("batch cycle error = %v, want Validation", err)
	}
	if g.Len() != 0 {
		t.Fatalf("Len() = %d after rejected batch, want 0", g.Len())
	}
}

func TestAddBatchRejectsLongerIntraBatchCycle(t *testing.T) {
	g, _ := newGraph(t)
	// The closing edge is in the last spec; each earlier spec is
	// acyclic on its own.
	_, err := g.AddBatch([]Spec{
		{ID: "task-a", Title: "Task A", DependsOn: []string{"task-b"}},
		{ID: "task-b", Title: "Task B", DependsOn: []string{"task-c"}},
		{ID: "task-c", Title: "Task C", DependsOn: []string{"task-a"}},
	})
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("batch cycle error = %v, want Validation", err)
	}
	if g.Len() != 0 {
		t.Fatalf("Len() = %d after rejected batch, want 0", g.Len())
	}
}

func TestAddBatchCycleAgainstExistingTask(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A", DependsOn: []string{"task-b"}})

	_, err := g.AddBatch([]Spec{
		{ID: "task-b", Title: "Task B", DependsOn: []string{"task-a"}},
	})
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("batch cycle error = %v, want Validation", err)
	}
}

// --- Submit and review (spec scenario 2) ---

func TestSubmitAndApproveUnblocksDependent(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A", Priority: schema.PriorityHigh})
	addTask(t, g, fake, Spec{
		ID: "task-b", Title: "Task B", Priority: schema.PriorityHigh,
		DependsOn: []string{"task-a"},
	})

	if _, err := g.SubmitWork("task-a", "implementer", "implemented", nil); err != nil {
		t.Fatalf("SubmitWork: %v", err)
	}
	if statusOf(t, g, "task-a") != schema.TaskInReview {
		t.Fatalf("after submit: status = %q, want in_review", statusOf(t, g, "task-a"))
	}

	entry, err := g.Review("task-a", "reviewer", schema.VerdictApproved, "looks right")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if entry.Content.Status != schema.TaskCompleted {
		t.Fatalf("after approve: status = %q, want completed", entry.Content.Status)
	}
	if entry.Content.CompletedAt == "" {
		t.Error("completedAt not set on approval")
	}
	if statusOf(t, g, "task-b") != schema.TaskAvailable {
		t.Fatalf("dependent status = %q, want available", statusOf(t, g, "task-b"))
	}
}

func TestReviewNeedsRevisionReturnsTaskToPool(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A"})
	addTask(t, g, fake, Spec{ID: "task-b", Title: "Task B", DependsOn: []string{"task-a"}})

	if _, err := g.SubmitWork("task-a", "implementer", "first cut", nil); err != nil {
		t.Fatalf("SubmitWork: %v", err)
	}
	entry, err := g.Review("task-a", "reviewer", schema.VerdictNeedsRevision, "missing tests")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if entry.Content.Status != schema.TaskNeedsRevision {
		t.Fatalf("status = %q, want needs_revision", entry.Content.Status)
	}
	// No cascade: the dependent stays blocked.
	if statusOf(t, g, "task-b") != schema.TaskBlocked {
		t.Fatalf("dependent status = %q, want blocked", statusOf(t, g, "task-b"))
	}
	// The task re-enters selection.
	selected, found := g.SelectNext()
	if !found || selected.ID != "task-a" {
		t.Fatalf("SelectNext = (%v, %v), want task-a", selected.ID, found)
	}
}

func TestReviewRequiresFeedbackForNeedsRevision(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A"})
	if _, err := g.SubmitWork("task-a", "implementer", "cut", nil); err != nil {
		t.Fatalf("SubmitWork: %v", err)
	}

	_, err := g.Review("task-a", "reviewer", schema.VerdictNeedsRevision, "")
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("empty feedback error = %v, want Validation", err)
	}
}

func TestReviewWithoutSubmissionIsInvalidTransition(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A"})

	_, err := g.Review("task-a", "reviewer", schema.VerdictApproved, "")
	if !errors.Is(err, fault.ErrInvalidTransition) {
		t.Fatalf("review of unsubmitted task error = %v, want InvalidTransition", err)
	}
	var coreErr *fault.Error
	if !errors.As(err, &coreErr) || coreErr.Status != string(schema.TaskAvailable) {
		t.Fatalf("error does not carry current status: %v", err)
	}
}

func TestSubmitFromBlockedIsInvalidTransition(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A", BlockedBy: []string{"hold"}})

	_, err := g.SubmitWork("task-a", "implementer", "work", nil)
	if !errors.Is(err, fault.ErrInvalidTransition) {
		t.Fatalf("submit from blocked error = %v, want InvalidTransition", err)
	}
}

func TestSubmitUnknownTaskIsNotFound(t *testing.T) {
	g, _ := newGraph(t)
	_, err := g.SubmitWork("task-missing", "implementer", "work", nil)
	if !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("unknown task error = %v, want NotFound", err)
	}
}

func TestApprovalNeverRegressesCompletedTasks(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A"})
	addTask(t, g, fake, Spec{ID: "task-b", Title: "Task B"})
	complete(t, g, "task-a")
	complete(t, g, "task-b")

	if statusOf(t, g, "task-a") != schema.TaskCompleted {
		t.Fatalf("task-a regressed to %q", statusOf(t, g, "task-a"))
	}
}

// --- Selection (spec scenarios 1 and 3) ---

func TestSelectNextPrefersHigherPriority(t *testing.T) {
	g, fake := newGraph(t)
	// task-c is low priority but older; task-d is high and newer.
	addTask(t, g, fake, Spec{ID: "task-c", Title: "Task C", Priority: schema.PriorityLow})
	addTask(t, g, fake, Spec{ID: "task-d", Title: "Task D", Priority: schema.PriorityHigh})

	entry, found := g.SelectNext()
	if !found || entry.ID != "task-d" {
		t.Fatalf("SelectNext = (%v, %v), want task-d", entry.ID, found)
	}
}

func TestSelectNextBreaksTiesByCreation(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-old", Title: "Older", Priority: schema.PriorityMedium})
	addTask(t, g, fake, Spec{ID: "task-new", Title: "Newer", Priority: schema.PriorityMedium})

	entry, found := g.SelectNext()
	if !found || entry.ID != "task-old" {
		t.Fatalf("SelectNext = (%v, %v), want task-old", entry.ID, found)
	}
}

func TestSelectNextReturnsInProgressTask(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A", Priority: schema.PriorityLow})
	addTask(t, g, fake, Spec{ID: "task-b", Title: "Task B", Priority: schema.PriorityHigh})

	if _, err := g.MarkInProgress("task-a"); err != nil {
		t.Fatalf("MarkInProgress: %v", err)
	}
	// The single active slot wins over the higher-priority pool.
	entry, found := g.SelectNext()
	if !found || entry.ID != "task-a" {
		t.Fatalf("SelectNext = (%v, %v), want in-progress task-a", entry.ID, found)
	}
}

func TestSelectNextEmptyPool(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A", DependsOn: []string{"task-x"}})

	if _, found := g.SelectNext(); found {
		t.Fatal("SelectNext returned a task from an all-blocked pool")
	}
}

func TestSelectNextIgnoresBlockedAndCompleted(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A", Priority: schema.PriorityHigh})
	addTask(t, g, fake, Spec{ID: "task-b", Title: "Task B", DependsOn: []string{"task-z"}})
	complete(t, g, "task-a")

	if _, found := g.SelectNext(); found {
		t.Fatal("SelectNext returned a task when pool holds only blocked/completed")
	}
}

// --- NextReview ---

func TestNextReviewReturnsOldestSubmission(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A"})
	addTask(t, g, fake, Spec{ID: "task-b", Title: "Task B"})

	if _, err := g.SubmitWork("task-a", "implementer", "first", nil); err != nil {
		t.Fatalf("SubmitWork: %v", err)
	}
	fake.Advance(time.Second)
	if _, err := g.SubmitWork("task-b", "implementer", "second", nil); err != nil {
		t.Fatalf("SubmitWork: %v", err)
	}

	entry, found := g.NextReview()
	if !found || entry.ID != "task-a" {
		t.Fatalf("NextReview = (%v, %v), want task-a", entry.ID, found)
	}
}

func TestNextReviewEmpty(t *testing.T) {
	g, _ := newGraph(t)
	if _, found := g.NextReview(); found {
		t.Fatal("NextReview returned a task from an empty review queue")
	}
}

// --- MarkInProgress ---

func TestMarkInProgressFromInvalidStatus(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A", DependsOn: []string{"task-x"}})

	_, err := g.MarkInProgress("task-a")
	if !errors.Is(err, fault.ErrInvalidTransition) {
		t.Fatalf("claim of blocked task error = %v, want InvalidTransition", err)
	}
}

func TestMarkInProgressFromNeedsRevision(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A"})
	if _, err := g.SubmitWork("task-a", "implementer", "cut", nil); err != nil {
		t.Fatalf("SubmitWork: %v", err)
	}
	if _, err := g.Review("task-a", "reviewer", schema.VerdictNeedsRevision, "redo"); err != nil {
		t.Fatalf("Review: %v", err)
	}

	entry, err := g.MarkInProgress("task-a")
	if err != nil {
		t.Fatalf("MarkInProgress: %v", err)
	}
	if entry.Content.Status != schema.TaskInProgress {
		t.Fatalf("status = %q, want in_progress", entry.Content.Status)
	}
}

// --- Questions ---

func TestAskAndAnswerQuestion(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A"})

	question, err := g.AskQuestion("task-a", "implementer", "Which API version?")
	if err != nil {
		t.Fatalf("AskQuestion: %v", err)
	}
	if question.ID == "" {
		t.Fatal("question ID not assigned")
	}

	entry, answered, err := g.AnswerQuestion(question.ID, "reviewer", "v2 only")
	if err != nil {
		t.Fatalf("AnswerQuestion: %v", err)
	}
	if entry.ID != "task-a" {
		t.Fatalf("answer routed to task %q, want task-a", entry.ID)
	}
	if answered.Answer != "v2 only" || answered.AnsweredBy != "reviewer" {
		t.Fatalf("answer = %+v", answered)
	}
}

func TestAnswerUnknownQuestionIsNotFound(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A"})

	_, _, err := g.AnswerQuestion("q-task-a-99", "reviewer", "answer")
	if !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("unknown question error = %v, want NotFound", err)
	}
}

func TestAnswerRequiresText(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A"})
	question, err := g.AskQuestion("task-a", "implementer", "Q?")
	if err != nil {
		t.Fatalf("AskQuestion: %v", err)
	}

	// An empty answer must not stamp attribution: the question stays
	// open and a real answer still lands with its own author.
	if _, _, err := g.AnswerQuestion(question.ID, "reviewer", ""); !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("empty answer error = %v, want Validation", err)
	}
	content, _ := g.Get("task-a")
	if got := content.Questions[0]; got.Answer != "" || got.AnsweredBy != "" || got.AnsweredAt != "" {
		t.Fatalf("question mutated by rejected answer: %+v", got)
	}

	_, answered, err := g.AnswerQuestion(question.ID, "coordinator", "use v2")
	if err != nil {
		t.Fatalf("AnswerQuestion after rejection: %v", err)
	}
	if answered.AnsweredBy != "coordinator" {
		t.Fatalf("answeredBy = %q, want coordinator", answered.AnsweredBy)
	}
}

func TestAnswerTwiceRejected(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "Task A"})
	question, err := g.AskQuestion("task-a", "implementer", "Q?")
	if err != nil {
		t.Fatalf("AskQuestion: %v", err)
	}
	if _, _, err := g.AnswerQuestion(question.ID, "reviewer", "first"); err != nil {
		t.Fatalf("AnswerQuestion: %v", err)
	}

	_, _, err = g.AnswerQuestion(question.ID, "reviewer", "second")
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("double answer error = %v, want Validation", err)
	}
}

// --- Availability invariant (spec §8 first property) ---

func TestAvailabilityIsPureFunctionOfDependencies(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "A"})
	addTask(t, g, fake, Spec{ID: "task-b", Title: "B"})
	addTask(t, g, fake, Spec{ID: "task-c", Title: "C", DependsOn: []string{"task-a", "task-b"}})

	if statusOf(t, g, "task-c") != schema.TaskBlocked {
		t.Fatal("task-c should be blocked with two open dependencies")
	}
	complete(t, g, "task-a")
	if statusOf(t, g, "task-c") != schema.TaskBlocked {
		t.Fatal("task-c should stay blocked with one open dependency")
	}
	complete(t, g, "task-b")
	if statusOf(t, g, "task-c") != schema.TaskAvailable {
		t.Fatal("task-c should be available once every dependency completed")
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "A"})
	addTask(t, g, fake, Spec{ID: "task-b", Title: "B", DependsOn: []string{"task-a"}})

	if changed := g.Recompute(nil); len(changed) != 0 {
		t.Fatalf("second recompute changed %v, want no changes", changed)
	}
}

// --- Dirty tracking ---

func TestTakeDirtyDrainsAndResets(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "A"})

	dirty := g.TakeDirty()
	if len(dirty) != 1 || dirty[0].ID != "task-a" {
		t.Fatalf("TakeDirty = %v, want [task-a]", dirty)
	}
	if again := g.TakeDirty(); len(again) != 0 {
		t.Fatalf("second TakeDirty = %v, want empty", again)
	}
}

func TestApprovalCascadeMarksDependentsDirty(t *testing.T) {
	g, fake := newGraph(t)
	addTask(t, g, fake, Spec{ID: "task-a", Title: "A"})
	addTask(t, g, fake, Spec{ID: "task-b", Title: "B", DependsOn: []string{"task-a"}})
	g.TakeDirty()

	complete(t, g, "task-a")
	dirty := g.TakeDirty()
	ids := make(map[string]bool, len(dirty))
	for _, entry := range dirty {
		ids[entry.ID] = true
	}
	if !ids["task-a"] || !ids["task-b"] {
		t.Fatalf("dirty after cascade = %v, want task-a and task-b", dirty)
	}
}

// --- Load ---

func TestLoadTrustsStoredStatus(t *testing.T) {
	g, _ := newGraph(t)
	err := g.Load("task-a", schema.TaskContent{
		Version:   schema.TaskContentVersion,
		Title:     "Hydrated",
		Priority:  schema.PriorityMedium,
		Status:    schema.TaskInProgress,
		CreatedAt: "2026-02-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if statusOf(t, g, "task-a") != schema.TaskInProgress {
		t.Fatal("Load changed the stored status")
	}
	if dirty := g.TakeDirty(); len(dirty) != 0 {
		t.Fatalf("Load marked records dirty: %v", dirty)
	}
}
