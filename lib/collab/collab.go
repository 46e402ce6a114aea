// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package collab

import (
	"context"

	"github.com/wyn0001/ai-collab-mcp/lib/fault"
	"github.com/wyn0001/ai-collab-mcp/lib/schema"
)

// RoleDirectory resolves an agent identity to its role assignment.
// The second return value is false when the agent is unknown.
//
// [schema.Roster] satisfies this interface directly; deployments with
// a dynamic agent population can substitute their own lookup.
type RoleDirectory interface {
	Lookup(agentID string) (schema.RoleAssignment, bool)
}

// Ticket is the read-only view of an externally tracked issue. The
// coordination core cross-links tickets by ID but never creates,
// mutates, or closes them.
type Ticket struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// TicketLinker resolves ticket IDs referenced from task and mission
// records. Implementations wrap whatever tracker the deployment uses.
type TicketLinker interface {
	// Resolve returns the ticket for an ID, or a NotFound fault when
	// the tracker has no such ticket.
	Resolve(ctx context.Context, ticketID string) (Ticket, error)
}

// StaticTickets is a TicketLinker over a fixed in-memory set. Useful
// for tests and for deployments that pin their ticket references at
// startup.
type StaticTickets map[string]Ticket

// Resolve implements [TicketLinker].
func (s StaticTickets) Resolve(_ context.Context, ticketID string) (Ticket, error) {
	ticket, ok := s[ticketID]
	if !ok {
		return Ticket{}, fault.NotFoundf("ticket", ticketID, "resolve")
	}
	return ticket, nil
}
