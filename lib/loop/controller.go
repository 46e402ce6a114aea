// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package loop

import (
	"sort"
	"time"

	"github.com/wyn0001/ai-collab-mcp/lib/clock"
	"github.com/wyn0001/ai-collab-mcp/lib/fault"
	"github.com/wyn0001/ai-collab-mcp/lib/schema"
)

// Entry pairs an agent ID with its loop state.
type Entry struct {
	ID      string
	Content schema.LoopStateContent
}

// StartOptions configures a new polling cycle.
type StartOptions struct {
	// Mode tags what the loop polls for. Informational.
	Mode string

	// IntervalSeconds is the advisory delay between polls.
	IntervalSeconds int

	// MaxIterations bounds the cycle. Required, at least 1.
	MaxIterations int
}

// Controller is the in-memory loop-state index, one record per agent.
// Not safe for concurrent use; the service serializes access.
type Controller struct {
	clock clock.Clock

	states map[string]*schema.LoopStateContent
	dirty  map[string]struct{}
}

// New returns an empty controller.
func New(clk clock.Clock) *Controller {
	return &Controller{
		clock:  clk,
		states: make(map[string]*schema.LoopStateContent),
		dirty:  make(map[string]struct{}),
	}
}

// Len returns the number of loop-state records.
func (c *Controller) Len() int { return len(c.states) }

// Load hydrates one loop-state record from storage. Loaded records
// are not marked dirty.
func (c *Controller) Load(agentID string, content schema.LoopStateContent) error {
	if agentID == "" {
		return fault.Validationf("loop", agentID, "load", "agent ID is empty")
	}
	if err := content.Validate(); err != nil {
		return fault.Corruptf("loop", agentID, "load", err)
	}
	c.states[agentID] = &content
	return nil
}

// Start begins a fresh polling cycle for an agent: iteration zero,
// active, next check due one interval from now. Starting over a
// still-active cycle is rejected; stop it first.
func (c *Controller) Start(agentID string, opts StartOptions) (Entry, error) {
	if agentID == "" {
		return Entry{}, fault.Validationf("loop", agentID, "start", "agent ID is required")
	}
	if opts.MaxIterations < 1 {
		return Entry{}, fault.Validationf("loop", agentID, "start",
			"max_iterations must be >= 1, got %d", opts.MaxIterations)
	}
	if opts.IntervalSeconds < 0 {
		return Entry{}, fault.Validationf("loop", agentID, "start",
			"interval_seconds must be >= 0, got %d", opts.IntervalSeconds)
	}
	if existing, exists := c.states[agentID]; exists {
		if existing.Active {
			return Entry{}, fault.Transitionf("loop", agentID, "start", "active",
				"loop is already running; stop it before starting a new cycle")
		}
		if err := existing.CanModify(); err != nil {
			return Entry{}, fault.Corruptf("loop", agentID, "start", err)
		}
	}

	now := c.clock.Now().UTC()
	content := schema.LoopStateContent{
		Version:              schema.LoopStateContentVersion,
		AgentID:              agentID,
		Active:               true,
		Mode:                 opts.Mode,
		CheckIntervalSeconds: opts.IntervalSeconds,
		MaxIterations:        opts.MaxIterations,
		StartedAt:            now.Format(time.RFC3339),
		NextCheckAt:          now.Add(time.Duration(opts.IntervalSeconds) * time.Second).Format(time.RFC3339),
	}
	c.states[agentID] = &content
	c.markDirty(agentID)
	return c.entry(agentID), nil
}

// Poll records one wake-up of the agent's loop. On an active cycle it
// advances the iteration counter, recomputes the advisory next-check
// time, and tracks how many polls in a row found nothing; when the
// iteration budget runs out the cycle deactivates with
// StopReasonMaxIterations. On an inactive cycle Poll is a no-op that
// returns the final snapshot unchanged, so a late or duplicate poll
// after the stop decision sees the same answer.
func (c *Controller) Poll(agentID string, workFound bool) (Entry, error) {
	content, err := c.get(agentID, "poll")
	if err != nil {
		return Entry{}, err
	}
	if !content.Active {
		return c.entry(agentID), nil
	}
	if err := content.CanModify(); err != nil {
		return Entry{}, fault.Corruptf("loop", agentID, "poll", err)
	}

	now := c.clock.Now().UTC()
	content.CurrentIteration++
	content.LastCheckAt = now.Format(time.RFC3339)
	content.NextCheckAt = now.Add(time.Duration(content.CheckIntervalSeconds) * time.Second).Format(time.RFC3339)
	if workFound {
		content.ConsecutiveEmptyChecks = 0
	} else {
		content.ConsecutiveEmptyChecks++
	}
	if content.CurrentIteration >= content.MaxIterations {
		content.Active = false
		if content.StopReason == "" {
			content.StopReason = schema.StopReasonMaxIterations
		}
	}
	c.markDirty(agentID)
	return c.entry(agentID), nil
}

// Stop deactivates an agent's cycle with an explicit reason. The
// explicit reason always wins: stopping a cycle that already ran out
// of iterations replaces StopReasonMaxIterations.
func (c *Controller) Stop(agentID, reason string) (Entry, error) {
	content, err := c.get(agentID, "stop")
	if err != nil {
		return Entry{}, err
	}
	if reason == "" {
		reason = "stopped by request"
	}
	if !content.Active && content.StopReason == reason {
		return c.entry(agentID), nil
	}
	if err := content.CanModify(); err != nil {
		return Entry{}, fault.Corruptf("loop", agentID, "stop", err)
	}
	content.Active = false
	content.StopReason = reason
	c.markDirty(agentID)
	return c.entry(agentID), nil
}

// Snapshot returns a copy of one agent's loop state.
func (c *Controller) Snapshot(agentID string) (schema.LoopStateContent, bool) {
	content, exists := c.states[agentID]
	if !exists {
		return schema.LoopStateContent{}, false
	}
	return *content, true
}

// List returns all loop states sorted by agent ID.
func (c *Controller) List() []Entry {
	ids := make([]string, 0, len(c.states))
	for id := range c.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	entries := make([]Entry, len(ids))
	for i, id := range ids {
		entries[i] = c.entry(id)
	}
	return entries
}

// TakeDirty returns the loop states mutated since the last call and
// resets the dirty set. Entries are sorted by agent ID.
func (c *Controller) TakeDirty() []Entry {
	ids := make([]string, 0, len(c.dirty))
	for id := range c.dirty {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	entries := make([]Entry, len(ids))
	for i, id := range ids {
		entries[i] = c.entry(id)
	}
	c.dirty = make(map[string]struct{})
	return entries
}

func (c *Controller) get(agentID, op string) (*schema.LoopStateContent, error) {
	content, exists := c.states[agentID]
	if !exists {
		return nil, fault.NotFoundf("loop", agentID, op)
	}
	return content, nil
}

func (c *Controller) entry(id string) Entry {
	return Entry{ID: id, Content: *c.states[id]}
}

func (c *Controller) markDirty(id string) {
	c.dirty[id] = struct{}{}
}
