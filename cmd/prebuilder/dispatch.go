package main

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"

	"github.com/samirrijal/spatialtiles/internal/core/ports"
	"github.com/samirrijal/spatialtiles/internal/core/usecases"
	"github.com/samirrijal/spatialtiles/internal/workflows"
)

// workflowStarter is the part of client.Client the dispatcher uses.
type workflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// dispatcher turns barrier events into prebuild workflow runs.
type dispatcher struct {
	starter   workflowStarter
	taskQueue string
}

// contentURL is where the API serves a barrier's i3dm, so the cached
// manifest matches what viewers request.
func contentURL(barrierID string) string {
	return "/v1/barriers/" + barrierID + "/content.i3dm"
}

// HandleBarrierEvent starts a prebuild for upserted barriers and ignores
// everything else. A run already in progress for the barrier is reused.
func (d *dispatcher) HandleBarrierEvent(ctx context.Context, event ports.BarrierEvent) error {
	if event.Action != usecases.BarrierUpserted || event.BarrierID == "" {
		return nil
	}

	run, err := d.starter.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflows.WorkflowID(event.BarrierID),
		TaskQueue: d.taskQueue,
	}, workflows.PrebuildBarrierTilesetWorkflow, workflows.PrebuildInput{
		BarrierID:  event.BarrierID,
		ContentURL: contentURL(event.BarrierID),
	})
	if err != nil {
		return fmt.Errorf("start prebuild for %s: %w", event.BarrierID, err)
	}

	slog.Info("prebuild started", "barrier_id", event.BarrierID, "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}
