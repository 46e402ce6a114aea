// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/wyn0001/ai-collab-mcp/lib/clock"
	"github.com/wyn0001/ai-collab-mcp/lib/fault"
	"github.com/wyn0001/ai-collab-mcp/lib/schema"
	"github.com/wyn0001/ai-collab-mcp/lib/taskgraph"
)

// BatchAdder is the view of the task graph materialization needs:
// batch insertion plus the completed-title list the duplicate
// heuristic compares against. *taskgraph.Graph satisfies it.
type BatchAdder interface {
	AddBatch(specs []taskgraph.Spec) ([]taskgraph.Entry, error)
	CompletedTitles() []string
}

// Entry pairs a plan ID with its content.
type Entry struct {
	ID      string
	Content schema.PlanContent
}

// Spec is the caller-supplied description of a new plan.
type Spec struct {
	ID     string
	Phases []schema.Phase
}

// PhaseView is the answer to a next-phase query: the phase under the
// cursor plus the completed-phase log.
type PhaseView struct {
	Index     int                     `json:"index"`
	Phase     schema.Phase            `json:"phase"`
	Completed []schema.CompletedPhase `json:"completed"`
}

// AdjustRequest describes one plan adjustment. Exactly one of the
// operation fields must be set.
type AdjustRequest struct {
	Author string `json:"author"`

	InsertPhase   *InsertPhase   `json:"insert_phase,omitempty"`
	ModifyPhase   *ModifyPhase   `json:"modify_phase,omitempty"`
	ReorderPhases *ReorderPhases `json:"reorder_phases,omitempty"`
}

// InsertPhase splices a new phase after AfterIndex. AfterIndex -1
// inserts at the front of the remaining phases; the splice point must
// not fall inside the completed portion of the plan.
type InsertPhase struct {
	AfterIndex int          `json:"after_index"`
	Phase      schema.Phase `json:"phase"`
}

// ModifyPhase merges non-zero fields into the phase at Index. A
// non-nil Tasks slice replaces the phase's task specs wholesale.
type ModifyPhase struct {
	Index             int               `json:"index"`
	Name              string            `json:"name,omitempty"`
	Description       string            `json:"description,omitempty"`
	EstimatedDuration string            `json:"estimated_duration,omitempty"`
	Tasks             []schema.TaskSpec `json:"tasks,omitempty"`
}

// ReorderPhases moves the phase at FromIndex to ToIndex. Both
// indexes must point into the not-yet-completed portion of the plan.
type ReorderPhases struct {
	FromIndex int `json:"from_index"`
	ToIndex   int `json:"to_index"`
}

// SkippedTask records one materialization candidate dropped by the
// duplicate heuristic, with the completed title it matched.
type SkippedTask struct {
	Title        string `json:"title"`
	MatchedTitle string `json:"matched_title"`
}

// MaterializeResult reports what a phase materialization did.
type MaterializeResult struct {
	PlanID     string            `json:"plan_id"`
	PhaseIndex int               `json:"phase_index"`
	PhaseName  string            `json:"phase_name"`
	Added      []taskgraph.Entry `json:"-"`
	AddedIDs   []string          `json:"added_ids,omitempty"`
	Skipped    []SkippedTask     `json:"skipped,omitempty"`
}

// Sequencer is the in-memory plan index. Not safe for concurrent
// use; the service serializes access.
type Sequencer struct {
	clock      clock.Clock
	similarity SimilarityFunc

	plans map[string]*schema.PlanContent
	dirty map[string]struct{}
}

// New returns an empty sequencer. A nil similarity function defaults
// to TitlesEquivalent.
func New(clk clock.Clock, similarity SimilarityFunc) *Sequencer {
	if similarity == nil {
		similarity = TitlesEquivalent
	}
	return &Sequencer{
		clock:      clk,
		similarity: similarity,
		plans:      make(map[string]*schema.PlanContent),
		dirty:      make(map[string]struct{}),
	}
}

// Len returns the number of plans.
func (s *Sequencer) Len() int { return len(s.plans) }

// Load hydrates one plan record from storage. Loaded records are not
// marked dirty.
func (s *Sequencer) Load(id string, content schema.PlanContent) error {
	if id == "" {
		return fault.Validationf("plan", id, "load", "plan ID is empty")
	}
	if err := content.Validate(); err != nil {
		return fault.Corruptf("plan", id, "load", err)
	}
	s.plans[id] = &content
	return nil
}

// Create registers a new plan at phase index 0. The plan starts
// active when no other plan is active, paused otherwise.
func (s *Sequencer) Create(spec Spec) (Entry, error) {
	if spec.ID == "" {
		return Entry{}, fault.Validationf("plan", spec.ID, "create", "plan ID is required")
	}
	if _, exists := s.plans[spec.ID]; exists {
		return Entry{}, fault.Validationf("plan", spec.ID, "create", "plan already exists")
	}
	status := schema.PlanActive
	if _, active := s.activeID(); active {
		status = schema.PlanPaused
	}
	content := schema.PlanContent{
		Version:    schema.PlanContentVersion,
		Phases:     clonePhases(spec.Phases),
		Status:     status,
		TotalTasks: schema.TotalTaskCount(spec.Phases),
		CreatedAt:  s.timestamp(),
	}
	if err := content.Validate(); err != nil {
		return Entry{}, fault.Validationf("plan", spec.ID, "create", "%v", err)
	}
	s.plans[spec.ID] = &content
	s.markDirty(spec.ID)
	return s.entry(spec.ID), nil
}

// Active returns the single active plan, if any.
func (s *Sequencer) Active() (Entry, bool) {
	id, active := s.activeID()
	if !active {
		return Entry{}, false
	}
	return s.entry(id), true
}

// Activate makes a paused plan the active one. Fails with
// InvalidTransition if another plan is active (pause it first) or if
// the plan already ran to completion.
func (s *Sequencer) Activate(planID string) (Entry, error) {
	content, err := s.get(planID, "activate")
	if err != nil {
		return Entry{}, err
	}
	if content.Status == schema.PlanCompleted {
		return Entry{}, fault.Transitionf("plan", planID, "activate", string(content.Status),
			"completed plan cannot be reactivated")
	}
	if activeID, active := s.activeID(); active && activeID != planID {
		return Entry{}, fault.Transitionf("plan", planID, "activate", string(content.Status),
			"plan %s is active; pause it first", activeID)
	}
	if err := content.CanModify(); err != nil {
		return Entry{}, fault.Corruptf("plan", planID, "activate", err)
	}
	content.Status = schema.PlanActive
	s.markDirty(planID)
	return s.entry(planID), nil
}

// Pause suspends an active plan.
func (s *Sequencer) Pause(planID string) (Entry, error) {
	content, err := s.get(planID, "pause")
	if err != nil {
		return Entry{}, err
	}
	if content.Status != schema.PlanActive {
		return Entry{}, fault.Transitionf("plan", planID, "pause", string(content.Status),
			"only an active plan can be paused")
	}
	if err := content.CanModify(); err != nil {
		return Entry{}, fault.Corruptf("plan", planID, "pause", err)
	}
	content.Status = schema.PlanPaused
	s.markDirty(planID)
	return s.entry(planID), nil
}

// NextPhase returns the phase under the cursor plus the
// completed-phase log. The second return is false when the plan is
// not active or the cursor is past the last phase.
func (s *Sequencer) NextPhase(planID string) (PhaseView, bool, error) {
	content, err := s.get(planID, "next_phase")
	if err != nil {
		return PhaseView{}, false, err
	}
	if content.Status != schema.PlanActive || content.CurrentPhaseIndex >= len(content.Phases) {
		return PhaseView{}, false, nil
	}
	return PhaseView{
		Index:     content.CurrentPhaseIndex,
		Phase:     clonePhase(content.Phases[content.CurrentPhaseIndex]),
		Completed: append([]schema.CompletedPhase(nil), content.CompletedPhases...),
	}, true, nil
}

// Advance marks the phase under the cursor finished: appends it to
// the completed-phase log and moves the cursor forward. When the
// cursor reaches the end the plan becomes completed.
func (s *Sequencer) Advance(planID string) (Entry, error) {
	content, err := s.get(planID, "advance")
	if err != nil {
		return Entry{}, err
	}
	if content.Status != schema.PlanActive {
		return Entry{}, fault.Transitionf("plan", planID, "advance", string(content.Status),
			"only an active plan can advance")
	}
	if content.CurrentPhaseIndex >= len(content.Phases) {
		return Entry{}, fault.Transitionf("plan", planID, "advance", string(content.Status),
			"no phases remain")
	}
	if err := content.CanModify(); err != nil {
		return Entry{}, fault.Corruptf("plan", planID, "advance", err)
	}
	finished := content.Phases[content.CurrentPhaseIndex]
	content.CompletedPhases = append(content.CompletedPhases, schema.CompletedPhase{
		Index:       content.CurrentPhaseIndex,
		Name:        finished.Name,
		CompletedAt: s.timestamp(),
	})
	content.CurrentPhaseIndex++
	if content.CurrentPhaseIndex == len(content.Phases) {
		content.Status = schema.PlanCompleted
	}
	s.markDirty(planID)
	return s.entry(planID), nil
}

// Adjust applies one adjustment to a plan. The request is validated
// first, then recorded in the audit log, then applied, so every
// logged adjustment corresponds to an actual change.
func (s *Sequencer) Adjust(planID string, request AdjustRequest) (Entry, error) {
	content, err := s.get(planID, "adjust")
	if err != nil {
		return Entry{}, err
	}
	if content.Status == schema.PlanCompleted {
		return Entry{}, fault.Transitionf("plan", planID, "adjust", string(content.Status),
			"completed plan cannot be adjusted")
	}
	if err := content.CanModify(); err != nil {
		return Entry{}, fault.Corruptf("plan", planID, "adjust", err)
	}

	adjustmentType, apply, err := s.prepare(planID, content, request)
	if err != nil {
		return Entry{}, err
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return Entry{}, fault.Validationf("plan", planID, "adjust", "encoding payload: %v", err)
	}
	content.Adjustments = append(content.Adjustments, schema.Adjustment{
		Type:      adjustmentType,
		Payload:   payload,
		Author:    request.Author,
		CreatedAt: s.timestamp(),
	})
	apply()
	content.TotalTasks = schema.TotalTaskCount(content.Phases)
	s.markDirty(planID)
	return s.entry(planID), nil
}

// prepare validates an adjustment request against the plan and
// returns the mutation to run once the audit entry is in place.
func (s *Sequencer) prepare(planID string, content *schema.PlanContent, request AdjustRequest) (schema.AdjustmentType, func(), error) {
	operations := 0
	if request.InsertPhase != nil {
		operations++
	}
	if request.ModifyPhase != nil {
		operations++
	}
	if request.ReorderPhases != nil {
		operations++
	}
	if operations != 1 {
		return "", nil, fault.Validationf("plan", planID, "adjust",
			"exactly one adjustment operation required, got %d", operations)
	}

	switch {
	case request.InsertPhase != nil:
		insert := request.InsertPhase
		if err := insert.Phase.Validate(); err != nil {
			return "", nil, fault.Validationf("plan", planID, "adjust", "phase: %v", err)
		}
		at := insert.AfterIndex + 1
		if at < 0 || at > len(content.Phases) {
			return "", nil, fault.Validationf("plan", planID, "adjust",
				"after_index %d out of range [-1, %d]", insert.AfterIndex, len(content.Phases)-1)
		}
		if at < content.CurrentPhaseIndex {
			return "", nil, fault.Validationf("plan", planID, "adjust",
				"cannot insert into the completed portion (cursor at %d)", content.CurrentPhaseIndex)
		}
		phase := clonePhase(insert.Phase)
		return schema.AdjustInsertPhase, func() {
			content.Phases = append(content.Phases, schema.Phase{})
			copy(content.Phases[at+1:], content.Phases[at:])
			content.Phases[at] = phase
		}, nil

	case request.ModifyPhase != nil:
		modify := request.ModifyPhase
		if modify.Index < 0 || modify.Index >= len(content.Phases) {
			return "", nil, fault.Validationf("plan", planID, "adjust",
				"phase index %d out of range [0, %d]", modify.Index, len(content.Phases)-1)
		}
		for i := range modify.Tasks {
			if err := modify.Tasks[i].Validate(); err != nil {
				return "", nil, fault.Validationf("plan", planID, "adjust", "tasks[%d]: %v", i, err)
			}
		}
		return schema.AdjustModifyPhase, func() {
			phase := &content.Phases[modify.Index]
			if modify.Name != "" {
				phase.Name = modify.Name
			}
			if modify.Description != "" {
				phase.Description = modify.Description
			}
			if modify.EstimatedDuration != "" {
				phase.EstimatedDuration = modify.EstimatedDuration
			}
			if modify.Tasks != nil {
				phase.Tasks = append([]schema.TaskSpec(nil), modify.Tasks...)
			}
		}, nil

	default:
		reorder := request.ReorderPhases
		limit := len(content.Phases) - 1
		if reorder.FromIndex < 0 || reorder.FromIndex > limit ||
			reorder.ToIndex < 0 || reorder.ToIndex > limit {
			return "", nil, fault.Validationf("plan", planID, "adjust",
				"reorder indexes (%d, %d) out of range [0, %d]",
				reorder.FromIndex, reorder.ToIndex, limit)
		}
		if reorder.FromIndex < content.CurrentPhaseIndex || reorder.ToIndex < content.CurrentPhaseIndex {
			return "", nil, fault.Validationf("plan", planID, "adjust",
				"cannot reorder the completed portion (cursor at %d)", content.CurrentPhaseIndex)
		}
		return schema.AdjustReorderPhases, func() {
			phase := content.Phases[reorder.FromIndex]
			rest := append(content.Phases[:reorder.FromIndex], content.Phases[reorder.FromIndex+1:]...)
			rest = append(rest, schema.Phase{})
			copy(rest[reorder.ToIndex+1:], rest[reorder.ToIndex:])
			rest[reorder.ToIndex] = phase
			content.Phases = rest
		}, nil
	}
}

// MaterializePhase turns the current phase's task specs into graph
// tasks. The assign function supplies each spec's task ID. Candidates
// whose titles the similarity function judges equivalent to an
// already-completed task's title are skipped, not created.
func (s *Sequencer) MaterializePhase(planID string, assign func(schema.TaskSpec) string, graph BatchAdder) (MaterializeResult, error) {
	content, err := s.get(planID, "materialize_phase")
	if err != nil {
		return MaterializeResult{}, err
	}
	if content.Status != schema.PlanActive {
		return MaterializeResult{}, fault.Transitionf("plan", planID, "materialize_phase",
			string(content.Status), "only an active plan materializes tasks")
	}
	if content.CurrentPhaseIndex >= len(content.Phases) {
		return MaterializeResult{}, fault.Transitionf("plan", planID, "materialize_phase",
			string(content.Status), "no phases remain")
	}

	phase := content.Phases[content.CurrentPhaseIndex]
	result := MaterializeResult{
		PlanID:     planID,
		PhaseIndex: content.CurrentPhaseIndex,
		PhaseName:  phase.Name,
	}
	completed := graph.CompletedTitles()

	var specs []taskgraph.Spec
	for _, candidate := range phase.Tasks {
		if matched, duplicate := s.matchCompleted(candidate.Title, completed); duplicate {
			result.Skipped = append(result.Skipped, SkippedTask{
				Title:        candidate.Title,
				MatchedTitle: matched,
			})
			continue
		}
		specs = append(specs, taskgraph.Spec{
			ID:                 assign(candidate),
			Title:              candidate.Title,
			Specification:      candidate.Specification,
			Requirements:       candidate.Requirements,
			AcceptanceCriteria: candidate.AcceptanceCriteria,
			Priority:           candidate.Priority,
		})
	}
	if len(specs) > 0 {
		entries, err := graph.AddBatch(specs)
		if err != nil {
			return MaterializeResult{}, err
		}
		result.Added = entries
		for _, entry := range entries {
			result.AddedIDs = append(result.AddedIDs, entry.ID)
		}
	}
	return result, nil
}

// Get returns a copy of one plan's content.
func (s *Sequencer) Get(planID string) (schema.PlanContent, bool) {
	content, exists := s.plans[planID]
	if !exists {
		return schema.PlanContent{}, false
	}
	return clonePlan(content), true
}

// List returns all plans sorted by ID.
func (s *Sequencer) List() []Entry {
	ids := make([]string, 0, len(s.plans))
	for id := range s.plans {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	entries := make([]Entry, len(ids))
	for i, id := range ids {
		entries[i] = s.entry(id)
	}
	return entries
}

// TakeDirty returns the plans mutated since the last call and resets
// the dirty set. Entries are sorted by ID.
func (s *Sequencer) TakeDirty() []Entry {
	ids := make([]string, 0, len(s.dirty))
	for id := range s.dirty {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	entries := make([]Entry, len(ids))
	for i, id := range ids {
		entries[i] = s.entry(id)
	}
	s.dirty = make(map[string]struct{})
	return entries
}

func (s *Sequencer) matchCompleted(title string, completed []string) (string, bool) {
	for _, done := range completed {
		if s.similarity(title, done) {
			return done, true
		}
	}
	return "", false
}

func (s *Sequencer) activeID() (string, bool) {
	for id, content := range s.plans {
		if content.Status == schema.PlanActive {
			return id, true
		}
	}
	return "", false
}

func (s *Sequencer) get(planID, op string) (*schema.PlanContent, error) {
	content, exists := s.plans[planID]
	if !exists {
		return nil, fault.NotFoundf("plan", planID, op)
	}
	return content, nil
}

func (s *Sequencer) entry(id string) Entry {
	return Entry{ID: id, Content: clonePlan(s.plans[id])}
}

func (s *Sequencer) markDirty(id string) {
	s.dirty[id] = struct{}{}
}

func (s *Sequencer) timestamp() string {
	return s.clock.Now().UTC().Format(time.RFC3339)
}

func clonePlan(content *schema.PlanContent) schema.PlanContent {
	clone := *content
	clone.Phases = clonePhases(content.Phases)
	clone.CompletedPhases = append([]schema.CompletedPhase(nil), content.CompletedPhases...)
	clone.Adjustments = append([]schema.Adjustment(nil), content.Adjustments...)
	return clone
}

func clonePhases(phases []schema.Phase) []schema.Phase {
	if phases == nil {
		return nil
	}
	clones := make([]schema.Phase, len(phases))
	for i := range phases {
		clones[i] = clonePhase(phases[i])
	}
	return clones
}

func clonePhase(phase schema.Phase) schema.Phase {
	clone := phase
	clone.Tasks = append([]schema.TaskSpec(nil), phase.Tasks...)
	return clone
}
