// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package collab

import (
	"fmt"
	"strings"

	"github.com/wyn0001/ai-collab-mcp/lib/mission"
	"github.com/wyn0001/ai-collab-mcp/lib/schema"
	"github.com/wyn0001/ai-collab-mcp/lib/taskgraph"
)

// Renderer turns coordination snapshots into human-readable status
// text. The service exposes the rendered form alongside the structured
// data; agents consume the structured form, humans the text.
type Renderer interface {
	RenderBoard(stats taskgraph.Stats, tasks []taskgraph.Entry) string
	RenderProgress(progress mission.Progress) string
}

// boardOrder is the display order for task statuses: actionable work
// first, terminal states last.
var boardOrder = []schema.TaskStatus{
	schema.TaskInProgress,
	schema.TaskInReview,
	schema.TaskNeedsRevision,
	schema.TaskAvailable,
	schema.TaskBlocked,
	schema.TaskPending,
	schema.TaskCompleted,
}

// TextRenderer is the default plain-text Renderer.
type TextRenderer struct{}

// RenderBoard renders the task board grouped by status.
func (TextRenderer) RenderBoard(stats taskgraph.Stats, tasks []taskgraph.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d tasks", stats.Total)
	if stats.Total > 0 {
		fmt.Fprintf(&b, " (%d completed)", stats.ByStatus[schema.TaskCompleted])
	}
	b.WriteString("\n")

	byStatus := make(map[schema.TaskStatus][]taskgraph.Entry)
	for _, task := range tasks {
		byStatus[task.Content.Status] = append(byStatus[task.Content.Status], task)
	}

	for _, status := range boardOrder {
		group := byStatus[status]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%d):\n", strings.ReplaceAll(string(status), "_", " "), len(group))
		for _, task := range group {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", task.Content.Priority, task.ID, task.Content.Title)
		}
	}
	return b.String()
}

// RenderProgress renders a mission progress check.
func (TextRenderer) RenderProgress(progress mission.Progress) string {
	var b strings.Builder
	fmt.Fprintf(&b, "mission %s (%s): %d/%d tasks complete (%.0f%%), iteration %d\n",
		progress.MissionID, progress.Status,
		progress.Completed, progress.Total,
		progress.PercentComplete*100, progress.Iteration)

	if progress.InReview > 0 || progress.Blocked > 0 || progress.Pending > 0 {
		fmt.Fprintf(&b, "  in review %d, blocked %d, pending %d\n",
			progress.InReview, progress.Blocked, progress.Pending)
	}

	for _, criterion := range progress.Criteria {
		line := fmt.Sprintf("  criterion [%s]: %s", criterion.Status, criterion.Criterion)
		if criterion.Note != "" {
			line += ": " + criterion.Note
		}
		b.WriteString(line + "\n")
	}

	switch {
	case progress.RequiresEvaluation:
		b.WriteString("all tasks complete; awaiting criteria evaluation\n")
	case progress.ShouldContinue:
		b.WriteString("continue iterating\n")
	default:
		b.WriteString("stop: mission inactive or iteration bound reached\n")
	}
	return b.String()
}
