// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"errors"
	"fmt"
)

// Role is the function an agent performs in the collaboration.
type Role string

const (
	// RoleImplementer picks up available tasks, works them, and
	// submits the results for review.
	RoleImplementer Role = "implementer"

	// RoleReviewer examines submitted work and issues verdicts.
	RoleReviewer Role = "reviewer"
)

// Valid reports whether the role is a recognized value.
func (r Role) Valid() bool {
	return r == RoleImplementer || r == RoleReviewer
}

// RoleAssignment binds one agent identity to a role. Assignments are
// loaded from configuration and passed into the service at
// construction — there is no ambient global lookup.
type RoleAssignment struct {
	// AgentID is the agent's identity string.
	AgentID string `json:"agent_id"`

	// Role is "implementer" or "reviewer".
	Role Role `json:"role"`

	// DisplayName is shown in rendered status text. Defaults to the
	// agent ID when empty.
	DisplayName string `json:"display_name,omitempty"`
}

// Validate checks the assignment's required fields.
func (a *RoleAssignment) Validate() error {
	if a.AgentID == "" {
		return errors.New("role assignment: agent_id is required")
	}
	if !a.Role.Valid() {
		if a.Role == "" {
			return errors.New("role assignment: role is required")
		}
		return fmt.Errorf("role assignment: unknown role %q", a.Role)
	}
	return nil
}

// Roster maps agent IDs to their role assignments.
type Roster map[string]RoleAssignment

// Lookup returns the assignment for an agent. The second return value
// is false when the agent is not in the roster.
func (r Roster) Lookup(agentID string) (RoleAssignment, bool) {
	assignment, ok := r[agentID]
	return assignment, ok
}

// Validate checks every assignment and that map keys match the
// embedded agent IDs.
func (r Roster) Validate() error {
	for agentID, assignment := range r {
		if err := assignment.Validate(); err != nil {
			return err
		}
		if assignment.AgentID != agentID {
			return fmt.Errorf("roster: key %q does not match agent_id %q", agentID, assignment.AgentID)
		}
	}
	return nil
}
