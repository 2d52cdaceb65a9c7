package ports

import (
	"context"

	"github.com/samirrijal/spatialtiles/internal/core/domain"
)

// BarrierRepository persists barriers and their cell definitions.
type BarrierRepository interface {
	Upsert(ctx context.Context, barrier *domain.Barrier) error
	GetByID(ctx context.Context, id string) (*domain.Barrier, error)
	List(ctx context.Context, limit, offset int) ([]domain.Barrier, error)
	Delete(ctx context.Context, id string) error
}

// GeoidRasterLoader decodes the geoid undulation raster. It is called at most
// once per successful load.
type GeoidRasterLoader interface {
	Load(ctx context.Context) (*domain.GeoidRaster, error)
}

// GeoidRasterLoaderFunc adapts a function to GeoidRasterLoader.
type GeoidRasterLoaderFunc func(ctx context.Context) (*domain.GeoidRaster, error)

func (f GeoidRasterLoaderFunc) Load(ctx context.Context) (*domain.GeoidRaster, error) {
	return f(ctx)
}
