// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package taskgraph

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/wyn0001/ai-collab-mcp/lib/clock"
	"github.com/wyn0001/ai-collab-mcp/lib/fault"
	"github.com/wyn0001/ai-collab-mcp/lib/schema"
)

// Entry pairs a task ID with its content. Returned by query methods.
// The content is a copy; mutating it does not affect the graph.
type Entry struct {
	ID      string
	Content schema.TaskContent
}

// Spec is the input to AddTask: the externally assigned ID plus the
// descriptive fields of the task. Priority defaults to "medium" when
// empty.
type Spec struct {
	ID                 string
	Title              string
	Specification      string
	Requirements       []string
	AcceptanceCriteria []string
	Priority           schema.TaskPriority
	DependsOn          []string
	BlockedBy          []string
	Tickets            []string
}

// Filter controls which tasks [Graph.List] returns. Zero-value fields
// mean "no filter" for that dimension; all non-zero fields must match.
type Filter struct {
	// Status matches tasks with this exact status.
	Status schema.TaskStatus

	// Priority matches tasks with this exact priority.
	Priority schema.TaskPriority
}

// Stats holds aggregate counts across all tasks in the graph.
type Stats struct {
	Total      int                         `json:"total"`
	ByStatus   map[schema.TaskStatus]int   `json:"by_status"`
	ByPriority map[schema.TaskPriority]int `json:"by_priority"`
}

// Graph is the in-memory task store: records, dependency edges in both
// directions, and a per-status index. Construct with [New]. Not safe
// for concurrent use.
type Graph struct {
	clock clock.Clock

	tasks map[string]*schema.TaskContent

	// byStatus: status → set of task IDs.
	byStatus map[schema.TaskStatus]map[string]struct{}

	// dependents: taskID → set of task IDs whose depends_on lists
	// contain it (reverse edges). Includes dangling references so
	// cycle checks see edges to not-yet-created tasks.
	dependents map[string]map[string]struct{}

	// dirty is the set of task IDs mutated since the last TakeDirty.
	// The service drains it to know which records to persist.
	dirty map[string]struct{}
}

// New returns an empty graph. The clock stamps createdAt/completedAt
// and the sub-record timestamps.
func New(clk clock.Clock) *Graph {
	return &Graph{
		clock:      clk,
		tasks:      make(map[string]*schema.TaskContent),
		byStatus:   make(map[schema.TaskStatus]map[string]struct{}),
		dependents: make(map[string]map[string]struct{}),
		dirty:      make(map[string]struct{}),
	}
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int { return len(g.tasks) }

// Load inserts a record during startup hydration. The content is
// validated but no availability pass runs and the task is not marked
// dirty — the stored statuses are trusted as-is and reconciled by the
// first Recompute the service runs after hydration completes.
func (g *Graph) Load(id string, content schema.TaskContent) error {
	if id == "" {
		return fault.Validationf("task", id, "load", "task ID is required")
	}
	if err := content.Validate(); err != nil {
		return fault.Validationf("task", id, "load", "%v", err)
	}
	if _, exists := g.tasks[id]; exists {
		return fault.Validationf("task", id, "load", "task ID already exists")
	}
	g.insert(id, content)
	return nil
}

// AddTask creates a task from the spec. Fails with a Validation error
// if the ID already exists, is empty, the title is missing, the
// priority is unrecognized, or the depends_on edges would close a
// cycle. The task starts "pending" and is immediately classified by an
// availability pass restricted to it.
func (g *Graph) AddTask(spec Spec) (Entry, error) {
	if err := g.validateSpec(spec, nil); err != nil {
		return Entry{}, err
	}
	content := g.contentFromSpec(spec)
	g.insert(spec.ID, content)
	g.markDirty(spec.ID)
	g.Recompute([]string{spec.ID})
	return g.entry(spec.ID), nil
}

// AddBatch creates several tasks. Validation is all-or-nothing: every
// spec is checked (including for duplicate IDs and dependency cycles
// within the batch) before any task is created. Past that stage each
// task is inserted independently — this mirrors single AddTask calls
// in a row, not a transaction.
func (g *Graph) AddBatch(specs []Spec) ([]Entry, error) {
	pending := make(map[string]struct{}, len(specs))
	// overlay accumulates the batch's reverse edges so each spec is
	// cycle-checked as if the specs before it were already inserted.
	// Without it a batch could smuggle in a cycle the sequential
	// AddTask path rejects, leaving its tasks permanently blocked.
	overlay := make(map[string]map[string]struct{})
	for i, spec := range specs {
		if err := g.validateSpec(spec, overlay); err != nil {
			return nil, fmt.Errorf("batch[%d]: %w", i, err)
		}
		if _, dup := pending[spec.ID]; dup {
			return nil, fault.Validationf("task", spec.ID, "add_batch",
				"duplicate task ID within batch")
		}
		pending[spec.ID] = struct{}{}
		for _, dep := range spec.DependsOn {
			if overlay[dep] == nil {
				overlay[dep] = make(map[string]struct{})
			}
			overlay[dep][spec.ID] = struct{}{}
		}
	}

	entries := make([]Entry, 0, len(specs))
	for _, spec := range specs {
		content := g.contentFromSpec(spec)
		g.insert(spec.ID, content)
		g.markDirty(spec.ID)
		entries = append(entries, g.entry(spec.ID))
	}
	// One pass over the whole batch: intra-batch dependencies settle
	// in a single recompute instead of N scoped ones.
	ids := make([]string, 0, len(specs))
	for _, spec := range specs {
		ids = append(ids, spec.ID)
	}
	g.Recompute(ids)
	for i := range entries {
		entries[i] = g.entry(entries[i].ID)
	}
	return entries, nil
}

// Recompute runs the availability pass over the given task IDs, or
// over every task when scope is nil. For each task not in {completed,
// in_review, in_progress, needs_revision}: blocked when any depends_on
// entry is not completed or blocked_by is non-empty, available
// otherwise. Returns the IDs whose status changed.
//
// The pass is idempotent and re-runnable; it absorbs inconsistent
// intermediate states rather than reporting them as errors.
func (g *Graph) Recompute(scope []string) []string {
	var ids []string
	if scope == nil {
		ids = make([]string, 0, len(g.tasks))
		for id := range g.tasks {
			ids = append(ids, id)
		}
		slices.Sort(ids)
	} else {
		ids = scope
	}

	var changed []string
	for _, id := range ids {
		task, exists := g.tasks[id]
		if !exists {
			continue
		}
		switch task.Status {
		case schema.TaskCompleted, schema.TaskInReview, schema.TaskInProgress, schema.TaskNeedsRevision:
			continue
		}

		target := schema.TaskAvailable
		if !g.allDependenciesCompleted(task) || len(task.BlockedBy) > 0 {
			target = schema.TaskBlocked
		}
		if task.Status == target {
			continue
		}
		g.setStatus(id, task, target)
		g.markDirty(id)
		changed = append(changed, id)
	}
	return changed
}

// SubmitWork appends a submission and moves the task to in_review.
// Allowed from available, needs_revision, and in_progress. Fails with
// NotFound for an unknown task and InvalidTransition from any other
// status.
func (g *Graph) SubmitWork(taskID, author, summary string, artifacts []string) (Entry, error) {
	task, exists := g.tasks[taskID]
	if !exists {
		return Entry{}, fault.NotFoundf("task", taskID, "submit_work")
	}
	if !schema.CanTransition(task.Status, schema.TaskInReview) {
		return Entry{}, fault.Transitionf("task", taskID, "submit_work", string(task.Status),
			"cannot submit from status %q", task.Status)
	}
	task.Submissions = append(task.Submissions, schema.Submission{
		ID:        fmt.Sprintf("s-%d", len(task.Submissions)+1),
		Author:    author,
		Summary:   summary,
		Artifacts: slices.Clone(artifacts),
		CreatedAt: g.timestamp(),
	})
	g.setStatus(taskID, task, schema.TaskInReview)
	g.markDirty(taskID)
	return g.entry(taskID), nil
}

// Review appends a review to a task in in_review. An approved verdict
// completes the task, stamps completedAt, and runs the availability
// pass over the whole graph so dependents unblock. A needs_revision
// verdict returns the task to the selectable pool with no cascade;
// feedback is required so the implementer knows what to change.
func (g *Graph) Review(taskID, reviewer string, verdict schema.Verdict, feedback string) (Entry, error) {
	task, exists := g.tasks[taskID]
	if !exists {
		return Entry{}, fault.NotFoundf("task", taskID, "review")
	}
	if !verdict.Valid() {
		return Entry{}, fault.Validationf("task", taskID, "review", "unknown verdict %q", verdict)
	}
	if task.Status != schema.TaskInReview {
		return Entry{}, fault.Transitionf("task", taskID, "review", string(task.Status),
			"task has no submission awaiting review")
	}
	if verdict == schema.VerdictNeedsRevision && feedback == "" {
		return Entry{}, fault.Validationf("task", taskID, "review",
			"feedback is required for a needs_revision verdict")
	}

	task.Reviews = append(task.Reviews, schema.Review{
		ID:        fmt.Sprintf("r-%d", len(task.Reviews)+1),
		Reviewer:  reviewer,
		Verdict:   verdict,
		Feedback:  feedback,
		CreatedAt: g.timestamp(),
	})

	if verdict == schema.VerdictApproved {
		g.setStatus(taskID, task, schema.TaskCompleted)
		if task.CompletedAt == "" {
			task.CompletedAt = g.timestamp()
		}
		g.markDirty(taskID)
		g.Recompute(nil)
	} else {
		g.setStatus(taskID, task, schema.TaskNeedsRevision)
		g.markDirty(taskID)
	}
	return g.entry(taskID), nil
}

// SelectNext returns the task an implementer should work on. If any
// task is in_progress, that task is returned (single active slot);
// with several in_progress — a state the selection rule itself never
// produces — the earliest-created wins for determinism. Otherwise the
// available/needs_revision task with the lowest priority rank wins,
// ties broken by earliest createdAt. The second return value is false
// when the pool is empty.
func (g *Graph) SelectNext() (Entry, bool) {
	if id, found := g.earliestIn(schema.TaskInProgress); found {
		return g.entry(id), true
	}

	best := ""
	for _, status := range []schema.TaskStatus{schema.TaskAvailable, schema.TaskNeedsRevision} {
		for id := range g.byStatus[status] {
			if best == "" || g.selectionBefore(id, best) {
				best = id
			}
		}
	}
	if best == "" {
		return Entry{}, false
	}
	return g.entry(best), true
}

// NextReview returns the oldest task awaiting review, or false when
// nothing is in review. This is the reviewer-side counterpart of
// SelectNext; the service dispatches between them by the caller's
// role.
func (g *Graph) NextReview() (Entry, bool) {
	id, found := g.earliestIn(schema.TaskInReview)
	if !found {
		return Entry{}, false
	}
	return g.entry(id), true
}

// MarkInProgress claims a task: available or needs_revision becomes
// in_progress. Any other status is an InvalidTransition.
func (g *Graph) MarkInProgress(taskID string) (Entry, error) {
	task, exists := g.tasks[taskID]
	if !exists {
		return Entry{}, fault.NotFoundf("task", taskID, "mark_in_progress")
	}
	if task.Status != schema.TaskAvailable && task.Status != schema.TaskNeedsRevision {
		return Entry{}, fault.Transitionf("task", taskID, "mark_in_progress", string(task.Status),
			"only available or needs_revision tasks can be claimed")
	}
	g.setStatus(taskID, task, schema.TaskInProgress)
	g.markDirty(taskID)
	return g.entry(taskID), nil
}

// AskQuestion appends a question to a task. Question IDs embed the
// task ID so they are unique graph-wide and answers can be routed
// without naming the task.
func (g *Graph) AskQuestion(taskID, author, body string) (schema.Question, error) {
	task, exists := g.tasks[taskID]
	if !exists {
		return schema.Question{}, fault.NotFoundf("task", taskID, "ask_question")
	}
	if body == "" {
		return schema.Question{}, fault.Validationf("task", taskID, "ask_question", "question body is required")
	}
	question := schema.Question{
		ID:        fmt.Sprintf("q-%s-%d", taskID, len(task.Questions)+1),
		Author:    author,
		Body:      body,
		CreatedAt: g.timestamp(),
	}
	task.Questions = append(task.Questions, question)
	g.markDirty(taskID)
	return question, nil
}

// AnswerQuestion records the answer to a question, located by its ID
// anywhere in the graph. Fails with NotFound when no task carries the
// question, and with a Validation error for an empty answer or when
// the question was already answered (questions are single-answer; ask
// a follow-up instead).
func (g *Graph) AnswerQuestion(questionID, author, answer string) (Entry, schema.Question, error) {
	if answer == "" {
		return Entry{}, schema.Question{}, fault.Validationf(
			"question", questionID, "answer_question", "answer text is required")
	}
	for id, task := range g.tasks {
		for i := range task.Questions {
			if task.Questions[i].ID != questionID {
				continue
			}
			if task.Questions[i].Answer != "" {
				return Entry{}, schema.Question{}, fault.Validationf(
					"question", questionID, "answer_question", "question is already answered")
			}
			task.Questions[i].Answer = answer
			task.Questions[i].AnsweredBy = author
			task.Questions[i].AnsweredAt = g.timestamp()
			g.markDirty(id)
			return g.entry(id), task.Questions[i], nil
		}
	}
	return Entry{}, schema.Question{}, fault.NotFoundf("question", questionID, "answer_question")
}

// Get returns a copy of a single task's content. The second return
// value is false if the task does not exist.
func (g *Graph) Get(taskID string) (schema.TaskContent, bool) {
	task, exists := g.tasks[taskID]
	if !exists {
		return schema.TaskContent{}, false
	}
	return cloneContent(task), true
}

// List returns tasks matching the filter, sorted by priority rank then
// createdAt (the selection order).
func (g *Graph) List(filter Filter) []Entry {
	var result []Entry
	for id, task := range g.tasks {
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && task.Priority != filter.Priority {
			continue
		}
		result = append(result, Entry{ID: id, Content: cloneContent(task)})
	}
	slices.SortFunc(result, func(a, b Entry) int {
		if r := a.Content.Priority.Rank() - b.Content.Priority.Rank(); r != 0 {
			return r
		}
		if c := strings.Compare(a.Content.CreatedAt, b.Content.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result
}

// Stats returns aggregate counts across all tasks.
func (g *Graph) Stats() Stats {
	stats := Stats{
		Total:      len(g.tasks),
		ByStatus:   make(map[schema.TaskStatus]int),
		ByPriority: make(map[schema.TaskPriority]int),
	}
	for _, task := range g.tasks {
		stats.ByStatus[task.Status]++
		stats.ByPriority[task.Priority]++
	}
	return stats
}

// CompletedTitles returns the titles of all completed tasks. The plan
// sequencer's duplicate heuristic compares candidate titles against
// these.
func (g *Graph) CompletedTitles() []string {
	var titles []string
	for id := range g.byStatus[schema.TaskCompleted] {
		titles = append(titles, g.tasks[id].Title)
	}
	slices.Sort(titles)
	return titles
}

// WouldCycle reports whether adding the proposed depends_on edges to
// taskID would close a cycle. The check traverses existing reverse
// edges: if taskID can reach any proposed dependency by following
// dependents, the new edge closes a loop. Edges to dangling
// (not-yet-created) IDs participate, since a later AddTask can realize
// them.
func (g *Graph) WouldCycle(taskID string, proposedDependsOn []string) bool {
	return g.wouldCycle(taskID, proposedDependsOn, nil)
}

// wouldCycle is WouldCycle over the union of the graph's reverse edges
// and an overlay of not-yet-inserted ones (AddBatch validation).
func (g *Graph) wouldCycle(taskID string, proposedDependsOn []string, overlay map[string]map[string]struct{}) bool {
	proposed := make(map[string]struct{}, len(proposedDependsOn))
	for _, dep := range proposedDependsOn {
		if dep == taskID {
			return true
		}
		proposed[dep] = struct{}{}
	}

	// BFS from taskID along dependents edges (who depends on me,
	// transitively). Reaching a proposed dependency means that
	// dependency already depends on taskID.
	visited := map[string]struct{}{taskID: {}}
	queue := []string{taskID}
	visit := func(dependent string) bool {
		if _, isProposed := proposed[dependent]; isProposed {
			return true
		}
		if _, seen := visited[dependent]; !seen {
			visited[dependent] = struct{}{}
			queue = append(queue, dependent)
		}
		return false
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for dependent := range g.dependents[current] {
			if visit(dependent) {
				return true
			}
		}
		for dependent := range overlay[current] {
			if visit(dependent) {
				return true
			}
		}
	}
	return false
}

// TakeDirty returns entries for every task mutated since the previous
// call and resets the dirty set. Entries are sorted by ID for
// deterministic persistence order.
func (g *Graph) TakeDirty() []Entry {
	ids := make([]string, 0, len(g.dirty))
	for id := range g.dirty {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		if _, exists := g.tasks[id]; exists {
			entries = append(entries, g.entry(id))
		}
	}
	g.dirty = make(map[string]struct{})
	return entries
}

// --- Internal helpers ---

// validateSpec rejects a spec before any mutation. The overlay carries
// reverse edges of batch specs validated so far; nil for single adds.
func (g *Graph) validateSpec(spec Spec, overlay map[string]map[string]struct{}) error {
	if spec.ID == "" {
		return fault.Validationf("task", "", "add_task", "task ID is required")
	}
	if _, exists := g.tasks[spec.ID]; exists {
		return fault.Validationf("task", spec.ID, "add_task", "task ID already exists")
	}
	if spec.Title == "" {
		return fault.Validationf("task", spec.ID, "add_task", "title is required")
	}
	if spec.Priority != "" && !spec.Priority.Valid() {
		return fault.Validationf("task", spec.ID, "add_task", "unknown priority %q", spec.Priority)
	}
	for i, dep := range spec.DependsOn {
		if dep == "" {
			return fault.Validationf("task", spec.ID, "add_task", "depends_on[%d] is empty", i)
		}
	}
	if g.wouldCycle(spec.ID, spec.DependsOn, overlay) {
		return fault.Validationf("task", spec.ID, "add_task",
			"depends_on edges would create a dependency cycle")
	}
	return nil
}

// contentFromSpec builds the initial pending record for a spec.
func (g *Graph) contentFromSpec(spec Spec) schema.TaskContent {
	priority := spec.Priority
	if priority == "" {
		priority = schema.PriorityMedium
	}
	return schema.TaskContent{
		Version:            schema.TaskContentVersion,
		Title:              spec.Title,
		Specification:      spec.Specification,
		Requirements:       slices.Clone(spec.Requirements),
		AcceptanceCriteria: slices.Clone(spec.AcceptanceCriteria),
		Priority:           priority,
		DependsOn:          dedupe(spec.DependsOn),
		BlockedBy:          dedupe(spec.BlockedBy),
		Tickets:            dedupe(spec.Tickets),
		Status:             schema.TaskPending,
		CreatedAt:          g.timestamp(),
	}
}

// insert places a record into the primary map and all indexes.
func (g *Graph) insert(id string, content schema.TaskContent) {
	stored := cloneContent(&content)
	g.tasks[id] = &stored
	addToSet(g.byStatus, stored.Status, id)
	for _, dep := range stored.DependsOn {
		addToSet(g.dependents, dep, id)
	}
}

// setStatus moves a task between status index buckets.
func (g *Graph) setStatus(id string, task *schema.TaskContent, to schema.TaskStatus) {
	removeFromSet(g.byStatus, task.Status, id)
	task.Status = to
	addToSet(g.byStatus, to, id)
}

// allDependenciesCompleted reports whether every depends_on entry
// exists and is completed.
func (g *Graph) allDependenciesCompleted(task *schema.TaskContent) bool {
	for _, dep := range task.DependsOn {
		dependency, exists := g.tasks[dep]
		if !exists || dependency.Status != schema.TaskCompleted {
			return false
		}
	}
	return true
}

// earliestIn returns the earliest-created task ID in the given status
// bucket, ties broken by ID.
func (g *Graph) earliestIn(status schema.TaskStatus) (string, bool) {
	best := ""
	for id := range g.byStatus[status] {
		if best == "" || g.createdBefore(id, best) {
			best = id
		}
	}
	return best, best != ""
}

// selectionBefore reports whether task a precedes task b in selection
// order: lower priority rank first, then earlier createdAt, then ID.
func (g *Graph) selectionBefore(a, b string) bool {
	taskA, taskB := g.tasks[a], g.tasks[b]
	if taskA.Priority.Rank() != taskB.Priority.Rank() {
		return taskA.Priority.Rank() < taskB.Priority.Rank()
	}
	return g.createdBefore(a, b)
}

// createdBefore reports whether task a was created before task b,
// ties broken by ID for determinism.
func (g *Graph) createdBefore(a, b string) bool {
	taskA, taskB := g.tasks[a], g.tasks[b]
	if taskA.CreatedAt != taskB.CreatedAt {
		return taskA.CreatedAt < taskB.CreatedAt
	}
	return a < b
}

func (g *Graph) entry(id string) Entry {
	return Entry{ID: id, Content: cloneContent(g.tasks[id])}
}

func (g *Graph) markDirty(id string) {
	g.dirty[id] = struct{}{}
}

func (g *Graph) timestamp() string {
	return g.clock.Now().UTC().Format(time.RFC3339)
}

// cloneContent deep-copies a record so callers never alias the graph's
// backing slices.
func cloneContent(content *schema.TaskContent) schema.TaskContent {
	cloned := *content
	cloned.Requirements = slices.Clone(content.Requirements)
	cloned.AcceptanceCriteria = slices.Clone(content.AcceptanceCriteria)
	cloned.DependsOn = slices.Clone(content.DependsOn)
	cloned.BlockedBy = slices.Clone(content.BlockedBy)
	cloned.Submissions = cloneSubmissions(content.Submissions)
	cloned.Reviews = slices.Clone(content.Reviews)
	cloned.Questions = slices.Clone(content.Questions)
	return cloned
}

func cloneSubmissions(submissions []schema.Submission) []schema.Submission {
	if submissions == nil {
		return nil
	}
	cloned := make([]schema.Submission, len(submissions))
	for i, submission := range submissions {
		cloned[i] = submission
		cloned[i].Artifacts = slices.Clone(submission.Artifacts)
	}
	return cloned
}

// dedupe returns ids with duplicates removed, preserving first-seen
// order.
func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

func addToSet[K comparable](index map[K]map[string]struct{}, key K, value string) {
	set, exists := index[key]
	if !exists {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[value] = struct{}{}
}

func removeFromSet[K comparable](index map[K]map[string]struct{}, key K, value string) {
	set, exists := index[key]
	if !exists {
		return
	}
	delete(set, value)
	if len(set) == 0 {
		delete(index, key)
	}
}
