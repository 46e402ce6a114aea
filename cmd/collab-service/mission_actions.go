// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/wyn0001/ai-collab-mcp/lib/codec"
	"github.com/wyn0001/ai-collab-mcp/lib/mission"
	"github.com/wyn0001/ai-collab-mcp/lib/schema"
)

// missionView is the wire form of one mission record.
type missionView struct {
	ID      string                `cbor:"id"`
	Mission schema.MissionContent `cbor:"mission"`
}

func missionViewOf(entry mission.Entry) missionView {
	return missionView{ID: entry.ID, Mission: entry.Content}
}

func (s *CollabService) handleCreateMission(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		ID                 string   `cbor:"id"`
		Title              string   `cbor:"title"`
		Objective          string   `cbor:"objective"`
		AcceptanceCriteria []string `cbor:"acceptance_criteria"`
		Constraints        []string `cbor:"constraints"`
		MaxIterations      int      `cbor:"max_iterations"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid create_mission request: %w", err)
	}

	return s.mutate(ctx, "create_mission", func() (any, error) {
		entry, err := s.mission.Create(mission.Spec{
			ID:                 request.ID,
			Title:              request.Title,
			Objective:          request.Objective,
			AcceptanceCriteria: request.AcceptanceCriteria,
			Constraints:        request.Constraints,
			MaxIterations:      request.MaxIterations,
		})
		if err != nil {
			return nil, err
		}
		s.logger.Info("mission created", "mission", entry.ID, "title", request.Title)
		return missionViewOf(entry), nil
	})
}

func (s *CollabService) handleAddTaskToMission(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		MissionID string `cbor:"mission_id"`
		TaskID    string `cbor:"task_id"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid add_task_to_mission request: %w", err)
	}

	return s.mutate(ctx, "add_task_to_mission", func() (any, error) {
		entry, err := s.mission.AddTask(request.MissionID, request.TaskID)
		if err != nil {
			return nil, err
		}
		return missionViewOf(entry), nil
	})
}

// activeMissionProgress returns a read-only progress snapshot of the
// first active mission (by ID), or nil when none is active. Feeds the
// idle branch of instruction decisions without spending the mission's
// iteration budget. Must be called under mu.
func (s *CollabService) activeMissionProgress() *mission.Progress {
	for _, entry := range s.mission.List() {
		if entry.Content.Status != schema.MissionActive {
			continue
		}
		progress, err := s.mission.PeekProgress(entry.ID)
		if err != nil {
			s.logger.Warn("mission progress snapshot failed",
				"mission", entry.ID, "error", err)
			continue
		}
		return &progress
	}
	return nil
}

// progressResponse pairs the structured progress check with its
// rendered form.
type progressResponse struct {
	Progress mission.Progress `cbor:"progress"`
	Rendered string           `cbor:"rendered"`
}

func (s *CollabService) handleCheckProgress(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		MissionID string `cbor:"mission_id"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid check_progress request: %w", err)
	}

	return s.mutate(ctx, "check_progress", func() (any, error) {
		progress, err := s.mission.CheckProgress(request.MissionID)
		if err != nil {
			return nil, err
		}
		return progressResponse{
			Progress: progress,
			Rendered: s.renderer.RenderProgress(progress),
		}, nil
	})
}

func (s *CollabService) handleUpdateMissionStatus(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		MissionID string               `cbor:"mission_id"`
		Status    schema.MissionStatus `cbor:"status"`
		Author    string               `cbor:"author"`
		Reason    string               `cbor:"reason"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid update_mission_status request: %w", err)
	}

	return s.mutate(ctx, "update_mission_status", func() (any, error) {
		entry, err := s.mission.UpdateStatus(request.MissionID, request.Status, request.Author, request.Reason)
		if err != nil {
			return nil, err
		}
		s.logger.Info("mission status updated",
			"mission", entry.ID,
			"status", string(request.Status),
		)
		return missionViewOf(entry), nil
	})
}

func (s *CollabService) handleRecordDecision(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		MissionID string `cbor:"mission_id"`
		Author    string `cbor:"author"`
		Summary   string `cbor:"summary"`
		Rationale string `cbor:"rationale"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid record_decision request: %w", err)
	}

	return s.mutate(ctx, "record_decision", func() (any, error) {
		entry, err := s.mission.RecordDecision(request.MissionID, request.Author, request.Summary, request.Rationale)
		if err != nil {
			return nil, err
		}
		return missionViewOf(entry), nil
	})
}
