// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/wyn0001/ai-collab-mcp/lib/schema"
)

// rolesFile is the on-disk shape of the roles file.
type rolesFile struct {
	Agents []schema.RoleAssignment `json:"agents"`
}

// LoadRoster loads role assignments from a JSONC file. The file holds
// an "agents" array of assignments; comments and trailing commas are
// permitted:
//
//	{
//	    // implementers pick up tasks, reviewers issue verdicts
//	    "agents": [
//	        {"agent_id": "agent-a", "role": "implementer"},
//	        {"agent_id": "agent-b", "role": "reviewer", "display_name": "Reviewer B"},
//	    ],
//	}
//
// Duplicate agent IDs and invalid assignments are rejected.
func LoadRoster(path string) (schema.Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roles file: %w", err)
	}

	var file rolesFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return nil, fmt.Errorf("parsing roles file %s: %w", path, err)
	}

	roster := make(schema.Roster, len(file.Agents))
	for _, assignment := range file.Agents {
		if err := assignment.Validate(); err != nil {
			return nil, fmt.Errorf("roles file %s: %w", path, err)
		}
		if _, exists := roster[assignment.AgentID]; exists {
			return nil, fmt.Errorf("roles file %s: duplicate agent %q", path, assignment.AgentID)
		}
		if assignment.DisplayName == "" {
			assignment.DisplayName = assignment.AgentID
		}
		roster[assignment.AgentID] = assignment
	}
	return roster, nil
}
