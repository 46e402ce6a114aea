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
)

// loopView is the wire form of one loop state.
type loopView struct {
	AgentID string                  `cbor:"agent_id"`
	State   schema.LoopStateContent `cbor:"state"`
}

func loopViewOf(entry loop.Entry) loopView {
	return loopView{AgentID: entry.ID, State: entry.Content}
}

func (s *CollabService) handleStartLoop(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		AgentID         string `cbor:"agent_id"`
		Mode            string `cbor:"mode"`
		IntervalSeconds *int   `cbor:"interval_seconds"`
		MaxIterations   *int   `cbor:"max_iterations"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid start_loop request: %w", err)
	}
	if _, ok := s.roster.Lookup(request.AgentID); !ok {
		return nil, fault.NotFoundf("agent", request.AgentID, "start_loop")
	}

	opts := loop.StartOptions{
		Mode:            request.Mode,
		IntervalSeconds: s.defaultLoopInterval,
		MaxIterations:   s.defaultLoopMaxIterations,
	}
	if request.IntervalSeconds != nil {
		opts.IntervalSeconds = *request.IntervalSeconds
	}
	if request.MaxIterations != nil {
		opts.MaxIterations = *request.MaxIterations
	}

	return s.mutate(ctx, "start_loop", func() (any, error) {
		entry, err := s.loops.Start(request.AgentID, opts)
		if err != nil {
			return nil, err
		}
		s.logger.Info("loop started",
			"agent", entry.ID,
			"interval_seconds", entry.Content.CheckIntervalSeconds,
			"max_iterations", entry.Content.MaxIterations,
		)
		return loopViewOf(entry), nil
	})
}

// pollResponse is one wake-up's answer: the loop state after the poll
// plus the instruction derived from the role-appropriate selection.
type pollResponse struct {
	State       schema.LoopStateContent `cbor:"state"`
	Instruction loop.Instruction        `cbor:"instruction"`
}

func (s *CollabService) handlePoll(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		AgentID string `cbor:"agent_id"`

		// WorkFound overrides the service's own selection-based
		// determination, for agents that track their cycle outcome
		// themselves. Omitted means "derive from the selection".
		WorkFound *bool `cbor:"work_found"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid poll request: %w", err)
	}
	assignment, ok := s.roster.Lookup(request.AgentID)
	if !ok {
		return nil, fault.NotFoundf("agent", request.AgentID, "poll")
	}

	return s.mutate(ctx, "poll", func() (any, error) {
		selection, found := s.selectForRole(assignment.Role)

		workFound := found
		if request.WorkFound != nil {
			workFound = *request.WorkFound
		}

		entry, err := s.loops.Poll(request.AgentID, workFound)
		if err != nil {
			return nil, err
		}

		var instruction loop.Instruction
		if found {
			instruction = loop.Decide(assignment.Role, &selection, nil)
		} else {
			// Nothing to work or review; an active mission still under
			// its iteration bound turns the idle cycle into a progress
			// check.
			instruction = loop.Decide(assignment.Role, nil, s.activeMissionProgress())
		}
		return pollResponse{
			State:       entry.Content,
			Instruction: instruction,
		}, nil
	})
}

func (s *CollabService) handleStopLoop(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		AgentID string `cbor:"agent_id"`
		Reason  string `cbor:"reason"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid stop_loop request: %w", err)
	}

	return s.mutate(ctx, "stop_loop", func() (any, error) {
		entry, err := s.loops.Stop(request.AgentID, request.Reason)
		if err != nil {
			return nil, err
		}
		s.logger.Info("loop stopped", "agent", entry.ID, "reason", entry.Content.StopReason)
		return loopViewOf(entry), nil
	})
}
