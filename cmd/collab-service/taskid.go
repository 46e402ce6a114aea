// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/wyn0001/ai-collab-mcp/lib/schema"
)

// generateTaskID produces a content-derived ID for a plan-materialized
// task by hashing the plan ID, phase index, and task spec, then
// truncating to the shortest prefix that avoids collision with
// existing tasks and the exclusion set. The exclusion set handles
// intra-phase collisions when generating several IDs in one
// materialization; pass nil otherwise. Must be called under mu.
func (s *CollabService) generateTaskID(planID string, phaseIndex int, spec schema.TaskSpec, exclude map[string]struct{}) string {
	input := fmt.Sprintf("%s\n%d\n%s\n%s", planID, phaseIndex, spec.Title, spec.Specification)
	sum := blake3.Sum256([]byte(input))
	hexHash := hex.EncodeToString(sum[:])

	for length := 6; length <= len(hexHash); length++ {
		candidate := "task-" + hexHash[:length]
		if _, exists := s.graph.Get(candidate); exists {
			continue
		}
		if _, excluded := exclude[candidate]; excluded {
			continue
		}
		return candidate
	}
	// 64 hex chars of BLAKE3. Colliding at every prefix length would
	// take more tasks than the graph can hold.
	return "task-" + hexHash
}
