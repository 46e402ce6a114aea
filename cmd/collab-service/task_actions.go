// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/wyn0001/ai-collab-mcp/lib/codec"
	"github.com/wyn0001/ai-collab-mcp/lib/fault"
	"github.com/wyn0001/ai-collab-mcp/lib/loop"
	"github.com/wyn0001/ai-collab-mcp/lib/schema"
	"github.com/wyn0001/ai-collab-mcp/lib/taskgraph"
)

// taskSpecRequest is the wire form of one task creation spec.
type taskSpecRequest struct {
	ID                 string              `cbor:"id"`
	Title              string              `cbor:"title"`
	Specification      string              `cbor:"specification"`
	Requirements       []string            `cbor:"requirements"`
	AcceptanceCriteria []string            `cbor:"acceptance_criteria"`
	Priority           schema.TaskPriority `cbor:"priority"`
	DependsOn          []string            `cbor:"depends_on"`
	BlockedBy          []string            `cbor:"blocked_by"`
	Tickets            []string            `cbor:"tickets"`
}

func (r taskSpecRequest) spec() taskgraph.Spec {
	return taskgraph.Spec{
		ID:                 r.ID,
		Title:              r.Title,
		Specification:      r.Specification,
		Requirements:       r.Requirements,
		AcceptanceCriteria: r.AcceptanceCriteria,
		Priority:           r.Priority,
		DependsOn:          r.DependsOn,
		BlockedBy:          r.BlockedBy,
		Tickets:            r.Tickets,
	}
}

// taskView is the wire form of one task record.
type taskView struct {
	ID   string             `cbor:"id"`
	Task schema.TaskContent `cbor:"task"`
}

func viewOf(entry taskgraph.Entry) taskView {
	return taskView{ID: entry.ID, Task: entry.Content}
}

// resolveTickets verifies every referenced ticket against the external
// tracker. Skipped when no ticket linker is configured.
func (s *CollabService) resolveTickets(ctx context.Context, ticketIDs []string) error {
	if s.tickets == nil {
		return nil
	}
	for _, ticketID := range ticketIDs {
		if _, err := s.tickets.Resolve(ctx, ticketID); err != nil {
			return fmt.Errorf("resolving ticket %s: %w", ticketID, err)
		}
	}
	return nil
}

func (s *CollabService) handleAddTask(ctx context.Context, raw []byte) (any, error) {
	var request taskSpecRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid add_task request: %w", err)
	}
	if err := s.resolveTickets(ctx, request.Tickets); err != nil {
		return nil, err
	}

	return s.mutate(ctx, "add_task", func() (any, error) {
		entry, err := s.graph.AddTask(request.spec())
		if err != nil {
			return nil, err
		}
		s.logger.Info("task added", "task", entry.ID, "status", string(entry.Content.Status))
		return viewOf(entry), nil
	})
}

func (s *CollabService) handleAddBatch(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		Tasks []taskSpecRequest `cbor:"tasks"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid add_batch request: %w", err)
	}
	specs := make([]taskgraph.Spec, 0, len(request.Tasks))
	for _, task := range request.Tasks {
		if err := s.resolveTickets(ctx, task.Tickets); err != nil {
			return nil, err
		}
		specs = append(specs, task.spec())
	}

	return s.mutate(ctx, "add_batch", func() (any, error) {
		entries, err := s.graph.AddBatch(specs)
		if err != nil {
			return nil, err
		}
		views := make([]taskView, 0, len(entries))
		for _, entry := range entries {
			views = append(views, viewOf(entry))
		}
		s.logger.Info("task batch added", "count", len(entries))
		return map[string]any{"tasks": views}, nil
	})
}

func (s *CollabService) handleGetTask(_ context.Context, raw []byte) (any, error) {
	var request struct {
		TaskID string `cbor:"task_id"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid get_task request: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	content, ok := s.graph.Get(request.TaskID)
	if !ok {
		return nil, fault.NotFoundf("task", request.TaskID, "get_task")
	}
	return taskView{ID: request.TaskID, Task: content}, nil
}

func (s *CollabService) handleListTasks(_ context.Context, raw []byte) (any, error) {
	var request struct {
		Status   schema.TaskStatus   `cbor:"status"`
		Priority schema.TaskPriority `cbor:"priority"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid list_tasks request: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.graph.List(taskgraph.Filter{
		Status:   request.Status,
		Priority: request.Priority,
	})
	views := make([]taskView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, viewOf(entry))
	}
	return map[string]any{"tasks": views, "stats": s.graph.Stats()}, nil
}

func (s *CollabService) handleSubmitWork(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		TaskID    string   `cbor:"task_id"`
		Author    string   `cbor:"author"`
		Summary   string   `cbor:"summary"`
		Artifacts []string `cbor:"artifacts"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid submit_work request: %w", err)
	}

	return s.mutate(ctx, "submit_work", func() (any, error) {
		entry, err := s.graph.SubmitWork(request.TaskID, request.Author, request.Summary, request.Artifacts)
		if err != nil {
			return nil, err
		}
		s.logger.Info("work submitted", "task", entry.ID, "author", request.Author)
		return viewOf(entry), nil
	})
}

func (s *CollabService) handleReview(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		TaskID   string         `cbor:"task_id"`
		Reviewer string         `cbor:"reviewer"`
		Verdict  schema.Verdict `cbor:"verdict"`
		Feedback string         `cbor:"feedback"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid review request: %w", err)
	}

	return s.mutate(ctx, "review", func() (any, error) {
		entry, err := s.graph.Review(request.TaskID, request.Reviewer, request.Verdict, request.Feedback)
		if err != nil {
			return nil, err
		}
		s.logger.Info("review recorded",
			"task", entry.ID,
			"reviewer", request.Reviewer,
			"verdict", string(request.Verdict),
		)
		return viewOf(entry), nil
	})
}

func (s *CollabService) handleMarkInProgress(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		TaskID string `cbor:"task_id"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid mark_in_progress request: %w", err)
	}

	return s.mutate(ctx, "mark_in_progress", func() (any, error) {
		entry, err := s.graph.MarkInProgress(request.TaskID)
		if err != nil {
			return nil, err
		}
		return viewOf(entry), nil
	})
}

func (s *CollabService) handleAskQuestion(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		TaskID string `cbor:"task_id"`
		Author string `cbor:"author"`
		Body   string `cbor:"body"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid ask_question request: %w", err)
	}

	return s.mutate(ctx, "ask_question", func() (any, error) {
		question, err := s.graph.AskQuestion(request.TaskID, request.Author, request.Body)
		if err != nil {
			return nil, err
		}
		return map[string]any{"question": question}, nil
	})
}

func (s *CollabService) handleAnswerQuestion(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		QuestionID string `cbor:"question_id"`
		Author     string `cbor:"author"`
		Answer     string `cbor:"answer"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid answer_question request: %w", err)
	}

	return s.mutate(ctx, "answer_question", func() (any, error) {
		entry, question, err := s.graph.AnswerQuestion(request.QuestionID, request.Author, request.Answer)
		if err != nil {
			return nil, err
		}
		return map[string]any{"task": viewOf(entry), "question": question}, nil
	})
}

// selectionResponse answers select_next_task: the chosen task when one
// exists, plus the instruction the agent should act on.
type selectionResponse struct {
	Found       bool             `cbor:"found"`
	Task        *taskView        `cbor:"task,omitempty"`
	Instruction loop.Instruction `cbor:"instruction"`
}

// selectForRole runs the role-appropriate selection query. Reviewers
// get the oldest task awaiting review; implementers get the next
// workable task. Must be called under mu.
func (s *CollabService) selectForRole(role schema.Role) (taskgraph.Entry, bool) {
	if role == schema.RoleReviewer {
		return s.graph.NextReview()
	}
	return s.graph.SelectNext()
}

func (s *CollabService) handleSelectNextTask(_ context.Context, raw []byte) (any, error) {
	var request struct {
		AgentID string `cbor:"agent_id"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid select_next_task request: %w", err)
	}
	assignment, ok := s.roster.Lookup(request.AgentID)
	if !ok {
		return nil, fault.NotFoundf("agent", request.AgentID, "select_next_task")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, found := s.selectForRole(assignment.Role)
	response := selectionResponse{Found: found}
	if found {
		view := viewOf(entry)
		response.Task = &view
		response.Instruction = loop.Decide(assignment.Role, &entry, nil)
	} else {
		response.Instruction = loop.Decide(assignment.Role, nil, s.activeMissionProgress())
	}
	return response, nil
}
