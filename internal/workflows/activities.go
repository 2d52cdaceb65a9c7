package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/spatialtiles/internal/core/domain"
	"github.com/samirrijal/spatialtiles/internal/core/usecases"
)

// PrebuildActivities renders stored barriers so their payloads land in the
// tileset cache before a viewer asks for them.
type PrebuildActivities struct {
	Barriers *usecases.BarrierService
}

// RenderBarrierI3DM renders the barrier's i3dm payload and returns its size.
func (a *PrebuildActivities) RenderBarrierI3DM(ctx context.Context, barrierID string) (int, error) {
	b, err := a.Barriers.RenderI3DM(ctx, barrierID)
	if err != nil {
		return 0, activityError(barrierID, "render i3dm", err)
	}
	a.logger(ctx).Info("prebuilt i3dm", "barrier_id", barrierID, "bytes", len(b))
	return len(b), nil
}

// RenderBarrierTileset renders the barrier's tileset.json and returns its size.
func (a *PrebuildActivities) RenderBarrierTileset(ctx context.Context, barrierID, contentURL string) (int, error) {
	b, err := a.Barriers.RenderTileset(ctx, barrierID, contentURL)
	if err != nil {
		return 0, activityError(barrierID, "render tileset", err)
	}
	a.logger(ctx).Info("prebuilt tileset", "barrier_id", barrierID, "bytes", len(b))
	return len(b), nil
}

// AnnouncePrebuilt publishes a prebuilt event for the barrier.
func (a *PrebuildActivities) AnnouncePrebuilt(ctx context.Context, barrierID string) error {
	if err := a.Barriers.AnnouncePrebuilt(ctx, barrierID); err != nil {
		return fmt.Errorf("announce %s: %w", barrierID, err)
	}
	return nil
}

func (a *PrebuildActivities) logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if activity.IsActivity(ctx) {
		l = l.With("activity_id", activity.GetInfo(ctx).ActivityID)
	}
	return l
}

// activityError marks failures that cannot succeed on retry: a missing
// barrier or one whose definitions do not parse.
func activityError(barrierID, op string, err error) error {
	var pe *domain.ParseError
	if errors.Is(err, domain.ErrNotFound) || errors.As(err, &pe) {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("%s %s: %v", op, barrierID, err), "InvalidBarrier", err)
	}
	return fmt.Errorf("%s %s: %w", op, barrierID, err)
}
