package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samirrijal/spatialtiles/internal/core/cuboid"
	"github.com/samirrijal/spatialtiles/internal/core/domain"
	"github.com/samirrijal/spatialtiles/internal/core/ports"
	"github.com/samirrijal/spatialtiles/internal/pkg/telemetry"
)

// Barrier event actions.
const (
	BarrierUpserted = "upserted"
	BarrierDeleted  = "deleted"
	BarrierPrebuilt = "prebuilt"
)

// ErrInvalidBarrier is returned for a barrier that cannot be stored.
var ErrInvalidBarrier = errors.New("invalid barrier")

// BarrierService manages stored barriers and renders them as tilesets.
type BarrierService struct {
	barriers  ports.BarrierRepository
	tilesets  *TilesetService
	publisher ports.EventPublisher
}

// NewBarrierService creates a BarrierService. publisher may be nil.
func NewBarrierService(barriers ports.BarrierRepository, tilesets *TilesetService, publisher ports.EventPublisher) *BarrierService {
	return &BarrierService{barriers: barriers, tilesets: tilesets, publisher: publisher}
}

// Upsert validates and stores b, then announces the change.
func (s *BarrierService) Upsert(ctx context.Context, b *domain.Barrier) error {
	if b.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidBarrier)
	}
	if len(b.Definitions) == 0 {
		return fmt.Errorf("%w: at least one definition is required", ErrInvalidBarrier)
	}
	if _, err := b.SpatialIDs(); err != nil {
		return err
	}
	switch b.Status {
	case "":
		b.Status = domain.BarrierStatusActive
	case domain.BarrierStatusActive, domain.BarrierStatusInactive:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidBarrier, b.Status)
	}

	if err := s.barriers.Upsert(ctx, b); err != nil {
		return fmt.Errorf("store barrier %s: %w", b.ID, err)
	}
	s.publish(ctx, b.ID, BarrierUpserted)
	return nil
}

// Get returns a stored barrier or domain.ErrNotFound.
func (s *BarrierService) Get(ctx context.Context, id string) (*domain.Barrier, error) {
	return s.barriers.GetByID(ctx, id)
}

// List returns a page of barriers. limit is clamped to 1..100 (default 20).
func (s *BarrierService) List(ctx context.Context, limit, offset int) ([]domain.Barrier, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.barriers.List(ctx, limit, offset)
}

// Delete removes a barrier and announces it.
func (s *BarrierService) Delete(ctx context.Context, id string) error {
	if err := s.barriers.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, id, BarrierDeleted)
	return nil
}

// Addresses loads a barrier and returns one address per definition.
func (s *BarrierService) Addresses(ctx context.Context, id string) ([]cuboid.Address, error) {
	b, err := s.barriers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ids, err := b.SpatialIDs()
	if err != nil {
		return nil, fmt.Errorf("barrier %s: %w", id, err)
	}
	addrs := make([]cuboid.Address, len(ids))
	for i, sid := range ids {
		addrs[i] = sid
	}
	return addrs, nil
}

// RenderTileset returns the tileset manifest of a stored barrier.
func (s *BarrierService) RenderTileset(ctx context.Context, id, contentURL string) (_ []byte, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanRenderBarrier, telemetry.AttrBarrierID.String(id))
	defer func() { telemetry.EndSpan(span, err) }()

	addrs, err := s.Addresses(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.tilesets.TilesetJSON(ctx, addrs, contentURL)
}

// RenderI3DM returns the i3dm payload of a stored barrier.
func (s *BarrierService) RenderI3DM(ctx context.Context, id string) (_ []byte, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanRenderBarrier, telemetry.AttrBarrierID.String(id))
	defer func() { telemetry.EndSpan(span, err) }()

	addrs, err := s.Addresses(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.tilesets.I3DM(ctx, addrs)
}

// AnnouncePrebuilt tells subscribers that a barrier's payloads are cached.
func (s *BarrierService) AnnouncePrebuilt(ctx context.Context, id string) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.PublishBarrierEvent(ctx, ports.BarrierEvent{BarrierID: id, Action: BarrierPrebuilt})
}

// publish is best-effort; the change is already stored.
func (s *BarrierService) publish(ctx context.Context, id, action string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishBarrierEvent(ctx, ports.BarrierEvent{BarrierID: id, Action: action}); err != nil {
		slog.Warn("publish barrier event failed", "barrier_id", id, "action", action, "error", err)
	}
}
