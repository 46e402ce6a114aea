// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package loop

import (
	"github.com/wyn0001/ai-collab-mcp/lib/mission"
	"github.com/wyn0001/ai-collab-mcp/lib/schema"
	"github.com/wyn0001/ai-collab-mcp/lib/taskgraph"
)

// InstructionKind is the action an agent should take this cycle.
type InstructionKind string

const (
	// InstructWork tells an implementer to work the named task.
	InstructWork InstructionKind = "work_on_task"

	// InstructReview tells a reviewer to review the named task.
	InstructReview InstructionKind = "review_task"

	// InstructCheckProgress tells the agent to run a mission progress
	// check: no task is workable but the mission is still going.
	InstructCheckProgress InstructionKind = "check_progress"

	// InstructIdle tells the agent nothing needs doing; poll again
	// after the advisory interval.
	InstructIdle InstructionKind = "idle"
)

// Instruction is one cycle's decision for an agent.
type Instruction struct {
	Kind   InstructionKind `json:"kind"`
	TaskID string          `json:"task_id,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

// Decide maps the coordination queries' results onto an instruction.
// The selection is role-dependent: implementers pass the next
// workable task, reviewers the oldest task awaiting review. Progress
// is the latest mission check, nil when no mission is being tracked.
func Decide(role schema.Role, selection *taskgraph.Entry, progress *mission.Progress) Instruction {
	if selection != nil {
		if role == schema.RoleReviewer {
			return Instruction{
				Kind:   InstructReview,
				TaskID: selection.ID,
				Reason: "submission awaiting review",
			}
		}
		return Instruction{
			Kind:   InstructWork,
			TaskID: selection.ID,
			Reason: "task selected from the pool",
		}
	}
	if progress != nil && progress.ShouldContinue {
		return Instruction{
			Kind:   InstructCheckProgress,
			Reason: "no workable task; mission still active",
		}
	}
	return Instruction{Kind: InstructIdle, Reason: "no work available"}
}
