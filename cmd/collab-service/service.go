// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wyn0001/ai-collab-mcp/lib/clock"
	"github.com/wyn0001/ai-collab-mcp/lib/collab"
	"github.com/wyn0001/ai-collab-mcp/lib/loop"
	"github.com/wyn0001/ai-collab-mcp/lib/mission"
	"github.com/wyn0001/ai-collab-mcp/lib/plan"
	"github.com/wyn0001/ai-collab-mcp/lib/schema"
	"github.com/wyn0001/ai-collab-mcp/lib/service"
	"github.com/wyn0001/ai-collab-mcp/lib/store"
	"github.com/wyn0001/ai-collab-mcp/lib/taskgraph"
)

// CollabService holds the in-memory coordination state and its
// persistence plumbing. The component indexes are not safe for
// concurrent use; every action that touches them runs under mu.
type CollabService struct {
	clock     clock.Clock
	logger    *slog.Logger
	startedAt time.Time

	roster   schema.Roster
	tickets  collab.TicketLinker
	renderer collab.Renderer

	// snapshotDir receives export_snapshot archives when the request
	// does not name a path.
	snapshotDir string

	// Loop defaults applied when start_loop omits a field.
	defaultLoopInterval      int
	defaultLoopMaxIterations int

	// mu serializes the whole load-mutate-persist cycle of each
	// action. Reads take it too: the indexes have no internal
	// locking.
	mu      sync.Mutex
	graph   *taskgraph.Graph
	mission *mission.Tracker
	plans   *plan.Sequencer
	loops   *loop.Controller

	store *store.Store

	// revisions tracks the stored revision of every record the
	// service has read or written, keyed by collection then ID.
	// Drives the compare-and-swap on writes.
	revisions map[store.Collection]map[string]int64
}

// ServiceConfig carries the constructor dependencies for the service.
type ServiceConfig struct {
	Clock    clock.Clock
	Logger   *slog.Logger
	Store    *store.Store
	Roster   schema.Roster
	Tickets  collab.TicketLinker
	Renderer collab.Renderer

	// SnapshotDir is where export_snapshot writes archives when the
	// request omits a path.
	SnapshotDir string

	// DefaultLoopInterval and DefaultLoopMaxIterations fill in
	// start_loop requests that omit the corresponding field.
	DefaultLoopInterval      int
	DefaultLoopMaxIterations int
}

// NewCollabService builds the service and hydrates the in-memory
// indexes from the record store.
func NewCollabService(ctx context.Context, cfg ServiceConfig) (*CollabService, error) {
	if cfg.Renderer == nil {
		cfg.Renderer = collab.TextRenderer{}
	}

	s := &CollabService{
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		startedAt:   cfg.Clock.Now(),
		roster:      cfg.Roster,
		tickets:     cfg.Tickets,
		renderer:    cfg.Renderer,
		snapshotDir: cfg.SnapshotDir,

		defaultLoopInterval:      cfg.DefaultLoopInterval,
		defaultLoopMaxIterations: cfg.DefaultLoopMaxIterations,

		graph:     taskgraph.New(cfg.Clock),
		plans:     plan.New(cfg.Clock, plan.TitlesEquivalent),
		loops:     loop.New(cfg.Clock),
		store:     cfg.Store,
		revisions: make(map[store.Collection]map[string]int64, len(store.Collections)),
	}
	// The tracker reads task statuses straight from the graph; both
	// live under the same mutex.
	s.mission = mission.New(cfg.Clock, s.graph, nil)

	for _, collection := range store.Collections {
		s.revisions[collection] = make(map[string]int64)
	}

	if err := s.hydrate(ctx); err != nil {
		return nil, err
	}

	// Reconcile availability across the hydrated graph: records
	// written before a crash may predate the cascade that should have
	// followed them. Changed tasks land in the dirty set and persist
	// with the next mutation.
	if changed := s.graph.Recompute(nil); len(changed) > 0 {
		s.logger.Info("task availability reconciled after hydration", "changed", len(changed))
	}
	return s, nil
}

// hydrate loads every stored record into the in-memory indexes. A
// record that fails to decode or validate aborts startup: corrupt
// state must never be silently treated as empty.
func (s *CollabService) hydrate(ctx context.Context) error {
	for _, collection := range store.Collections {
		records, err := s.store.List(ctx, collection)
		if err != nil {
			return fmt.Errorf("hydrating %s: %w", collection, err)
		}
		for _, record := range records {
			if err := s.loadRecord(record); err != nil {
				return fmt.Errorf("hydrating %s/%s: %w", collection, record.ID, err)
			}
			s.revisions[collection][record.ID] = record.Revision
		}
		s.logger.Info("collection hydrated",
			"collection", string(collection),
			"records", len(records),
		)
	}
	return nil
}

// loadRecord decodes one stored record and loads it into the owning
// index.
func (s *CollabService) loadRecord(record store.Record) error {
	switch record.Collection {
	case store.CollectionTasks:
		var content schema.TaskContent
		if err := record.Decode(&content); err != nil {
			return err
		}
		return s.graph.Load(record.ID, content)
	case store.CollectionMissions:
		var content schema.MissionContent
		if err := record.Decode(&content); err != nil {
			return err
		}
		return s.mission.Load(record.ID, content)
	case store.CollectionPlans:
		var content schema.PlanContent
		if err := record.Decode(&content); err != nil {
			return err
		}
		return s.plans.Load(record.ID, content)
	case store.CollectionLoopStates:
		var content schema.LoopStateContent
		if err := record.Decode(&content); err != nil {
			return err
		}
		return s.loops.Load(record.ID, content)
	}
	return fmt.Errorf("unknown collection %q", record.Collection)
}

// persist writes every dirty record from every index. Called at the
// end of each mutating action, still under mu.
//
// The service is the database's only writer, so the revision check is
// a safety net rather than a contention mechanism: a Conflict here
// means another process wrote to the same database file, and the
// action fails loudly instead of overwriting.
func (s *CollabService) persist(ctx context.Context) error {
	for _, entry := range s.graph.TakeDirty() {
		if err := s.putRecord(ctx, store.CollectionTasks, entry.ID, entry.Content); err != nil {
			return err
		}
	}
	for _, entry := range s.mission.TakeDirty() {
		if err := s.putRecord(ctx, store.CollectionMissions, entry.ID, entry.Content); err != nil {
			return err
		}
	}
	for _, entry := range s.plans.TakeDirty() {
		if err := s.putRecord(ctx, store.CollectionPlans, entry.ID, entry.Content); err != nil {
			return err
		}
	}
	for _, entry := range s.loops.TakeDirty() {
		if err := s.putRecord(ctx, store.CollectionLoopStates, entry.ID, entry.Content); err != nil {
			return err
		}
	}
	return nil
}

// putRecord writes one record with the tracked revision and records
// the new revision on success.
func (s *CollabService) putRecord(ctx context.Context, collection store.Collection, id string, content any) error {
	revision, err := s.store.Put(ctx, collection, id, s.revisions[collection][id], content)
	if err != nil {
		return fmt.Errorf("persisting %s/%s: %w", collection, id, err)
	}
	s.revisions[collection][id] = revision
	return nil
}

// mutate runs fn under the writer mutex and persists the dirty set on
// success. The persist failure path logs before propagating: the
// in-memory state is already mutated, and the operator needs to know
// memory and disk have diverged.
func (s *CollabService) mutate(ctx context.Context, action string, fn func() (any, error)) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := fn()
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx); err != nil {
		s.logger.Error("persist failed after mutation",
			"action", action,
			"error", err,
		)
		return nil, err
	}
	return result, nil
}

// registerActions registers every socket action.
func (s *CollabService) registerActions(server *service.SocketServer) {
	// Liveness and rendered board.
	server.Handle("status", s.handleStatus)
	server.Handle("board", s.handleBoard)

	// Task graph.
	server.Handle("add_task", s.handleAddTask)
	server.Handle("add_batch", s.handleAddBatch)
	server.Handle("get_task", s.handleGetTask)
	server.Handle("list_tasks", s.handleListTasks)
	server.Handle("submit_work", s.handleSubmitWork)
	server.Handle("review", s.handleReview)
	server.Handle("mark_in_progress", s.handleMarkInProgress)
	server.Handle("ask_question", s.handleAskQuestion)
	server.Handle("answer_question", s.handleAnswerQuestion)
	server.Handle("select_next_task", s.handleSelectNextTask)

	// Missions.
	server.Handle("create_mission", s.handleCreateMission)
	server.Handle("add_task_to_mission", s.handleAddTaskToMission)
	server.Handle("check_progress", s.handleCheckProgress)
	server.Handle("update_mission_status", s.handleUpdateMissionStatus)
	server.Handle("record_decision", s.handleRecordDecision)

	// Plans.
	server.Handle("create_plan", s.handleCreatePlan)
	server.Handle("activate_plan", s.handleActivatePlan)
	server.Handle("pause_plan", s.handlePausePlan)
	server.Handle("get_next_phase", s.handleGetNextPhase)
	server.Handle("advance_phase", s.handleAdvancePhase)
	server.Handle("adjust_plan", s.handleAdjustPlan)
	server.Handle("materialize_phase", s.handleMaterializePhase)

	// Loops.
	server.Handle("start_loop", s.handleStartLoop)
	server.Handle("poll", s.handlePoll)
	server.Handle("stop_loop", s.handleStopLoop)

	// Snapshot export.
	server.Handle("export_snapshot", s.handleExportSnapshot)
}

// statusResponse is the response to the unauthenticated liveness
// check.
type statusResponse struct {
	UptimeSeconds float64 `cbor:"uptime_seconds"`
	Tasks         int     `cbor:"tasks"`
	Missions      int     `cbor:"missions"`
	Plans         int     `cbor:"plans"`
	Loops         int     `cbor:"loops"`
}

func (s *CollabService) handleStatus(_ context.Context, _ []byte) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return statusResponse{
		UptimeSeconds: s.clock.Now().Sub(s.startedAt).Seconds(),
		Tasks:         s.graph.Len(),
		Missions:      s.mission.Len(),
		Plans:         s.plans.Len(),
		Loops:         s.loops.Len(),
	}, nil
}

// boardResponse carries the rendered task board.
type boardResponse struct {
	Rendered string          `cbor:"rendered"`
	Stats    taskgraph.Stats `cbor:"stats"`
}

func (s *CollabService) handleBoard(_ context.Context, _ []byte) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.graph.Stats()
	return boardResponse{
		Rendered: s.renderer.RenderBoard(stats, s.graph.List(taskgraph.Filter{})),
		Stats:    stats,
	}, nil
}
