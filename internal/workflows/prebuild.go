package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// PrebuildInput is the input for the prebuild workflow.
type PrebuildInput struct {
	BarrierID string
	// ContentURL is written into the manifest; empty embeds the payload.
	ContentURL string
}

// PrebuildResult reports the sizes of the rendered payloads.
type PrebuildResult struct {
	I3DMBytes    int
	TilesetBytes int
}

// PrebuildBarrierTilesetWorkflow renders a barrier's i3dm and tileset so both
// are cached, then announces it. A failed announcement does not fail the run.
func PrebuildBarrierTilesetWorkflow(ctx workflow.Context, input PrebuildInput) (PrebuildResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting prebuild workflow", "barrierId", input.BarrierID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{"InvalidBarrier"},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var res PrebuildResult
	if err := workflow.ExecuteActivity(ctx, "RenderBarrierI3DM", input.BarrierID).Get(ctx, &res.I3DMBytes); err != nil {
		return res, err
	}
	if err := workflow.ExecuteActivity(ctx, "RenderBarrierTileset", input.BarrierID, input.ContentURL).Get(ctx, &res.TilesetBytes); err != nil {
		return res, err
	}

	if err := workflow.ExecuteActivity(ctx, "AnnouncePrebuilt", input.BarrierID).Get(ctx, nil); err != nil {
		logger.Warn("prebuilt announcement failed", "barrierId", input.BarrierID, "error", err)
	}

	logger.Info("Prebuild finished", "i3dmBytes", res.I3DMBytes, "tilesetBytes", res.TilesetBytes)
	return res, nil
}

// WorkflowID is the ID a barrier's prebuild runs under, so concurrent
// requests for one barrier collapse onto one execution.
func WorkflowID(barrierID string) string {
	return "prebuild-barrier-" + barrierID
}
