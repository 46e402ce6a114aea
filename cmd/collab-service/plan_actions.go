// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/wyn0001/ai-collab-mcp/lib/codec"
	"github.com/wyn0001/ai-collab-mcp/lib/plan"
	"github.com/wyn0001/ai-collab-mcp/lib/schema"
)

// planView is the wire form of one plan record.
type planView struct {
	ID   string             `cbor:"id"`
	Plan schema.PlanContent `cbor:"plan"`
}

func planViewOf(entry plan.Entry) planView {
	return planView{ID: entry.ID, Plan: entry.Content}
}

func (s *CollabService) handleCreatePlan(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		ID     string         `cbor:"id"`
		Phases []schema.Phase `cbor:"phases"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid create_plan request: %w", err)
	}

	return s.mutate(ctx, "create_plan", func() (any, error) {
		entry, err := s.plans.Create(plan.Spec{ID: request.ID, Phases: request.Phases})
		if err != nil {
			return nil, err
		}
		s.logger.Info("plan created",
			"plan", entry.ID,
			"phases", len(entry.Content.Phases),
			"status", string(entry.Content.Status),
		)
		return planViewOf(entry), nil
	})
}

func (s *CollabService) handleActivatePlan(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		PlanID string `cbor:"plan_id"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid activate_plan request: %w", err)
	}

	return s.mutate(ctx, "activate_plan", func() (any, error) {
		entry, err := s.plans.Activate(request.PlanID)
		if err != nil {
			return nil, err
		}
		return planViewOf(entry), nil
	})
}

func (s *CollabService) handlePausePlan(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		PlanID string `cbor:"plan_id"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid pause_plan request: %w", err)
	}

	return s.mutate(ctx, "pause_plan", func() (any, error) {
		entry, err := s.plans.Pause(request.PlanID)
		if err != nil {
			return nil, err
		}
		return planViewOf(entry), nil
	})
}

// nextPhaseResponse answers get_next_phase. Found is false when the
// plan is not active or every phase is complete.
type nextPhaseResponse struct {
	Found bool            `cbor:"found"`
	Phase *plan.PhaseView `cbor:"phase,omitempty"`
}

func (s *CollabService) handleGetNextPhase(_ context.Context, raw []byte) (any, error) {
	var request struct {
		PlanID string `cbor:"plan_id"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid get_next_phase request: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	view, found, err := s.plans.NextPhase(request.PlanID)
	if err != nil {
		return nil, err
	}
	response := nextPhaseResponse{Found: found}
	if found {
		response.Phase = &view
	}
	return response, nil
}

func (s *CollabService) handleAdvancePhase(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		PlanID string `cbor:"plan_id"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid advance_phase request: %w", err)
	}

	return s.mutate(ctx, "advance_phase", func() (any, error) {
		entry, err := s.plans.Advance(request.PlanID)
		if err != nil {
			return nil, err
		}
		s.logger.Info("phase advanced",
			"plan", entry.ID,
			"cursor", entry.Content.CurrentPhaseIndex,
			"status", string(entry.Content.Status),
		)
		return planViewOf(entry), nil
	})
}

func (s *CollabService) handleAdjustPlan(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		PlanID     string             `cbor:"plan_id"`
		Adjustment plan.AdjustRequest `cbor:"adjustment"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid adjust_plan request: %w", err)
	}

	return s.mutate(ctx, "adjust_plan", func() (any, error) {
		entry, err := s.plans.Adjust(request.PlanID, request.Adjustment)
		if err != nil {
			return nil, err
		}
		s.logger.Info("plan adjusted", "plan", entry.ID, "author", request.Adjustment.Author)
		return planViewOf(entry), nil
	})
}

func (s *CollabService) handleMaterializePhase(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		PlanID string `cbor:"plan_id"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid materialize_phase request: %w", err)
	}

	return s.mutate(ctx, "materialize_phase", func() (any, error) {
		// Track IDs assigned within this materialization so two specs
		// in the same phase cannot receive the same truncated hash.
		assigned := make(map[string]struct{})
		content, _ := s.plans.Get(request.PlanID)
		assign := func(spec schema.TaskSpec) string {
			id := s.generateTaskID(request.PlanID, content.CurrentPhaseIndex, spec, assigned)
			assigned[id] = struct{}{}
			return id
		}

		result, err := s.plans.MaterializePhase(request.PlanID, assign, s.graph)
		if err != nil {
			return nil, err
		}
		s.logger.Info("phase materialized",
			"plan", result.PlanID,
			"phase", result.PhaseName,
			"added", len(result.AddedIDs),
			"skipped", len(result.Skipped),
		)
		return result, nil
	})
}
