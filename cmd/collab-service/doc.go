// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

// Command collab-service runs the work-coordination service: a CBOR
// socket API over the task graph, mission tracker, plan sequencer,
// and loop controller, backed by a SQLite record store.
//
// All records are loaded into memory at startup. Every mutating
// action executes under a single writer mutex and persists the
// changed records with a revision compare-and-swap before responding;
// the in-memory indexes are the source of truth between writes.
//
// Action groups:
//
//   - tasks: add_task, add_batch, get_task, list_tasks, submit_work,
//     review, mark_in_progress, ask_question, answer_question,
//     select_next_task
//   - missions: create_mission, add_task_to_mission, check_progress,
//     update_mission_status, record_decision
//   - plans: create_plan, activate_plan, pause_plan, get_next_phase,
//     advance_phase, adjust_plan, materialize_phase
//   - loops: start_loop, poll, stop_loop
//   - service: status, board, export_snapshot
package main
