// Package geoid samples geoid undulation from a preloaded raster.
package geoid

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/samirrijal/spatialtiles/internal/core/domain"
	"github.com/samirrijal/spatialtiles/internal/core/ports"
	"github.com/samirrijal/spatialtiles/internal/pkg/metrics"
	"github.com/samirrijal/spatialtiles/internal/pkg/telemetry"
)

// DefaultHeight is the geoid height at the Japanese vertical datum origin,
// returned for points the raster does not cover.
const DefaultHeight = 36.7071

// Sampler lazily loads the raster on first use. Concurrent first callers
// share a single in-flight load; a successful load is kept for the lifetime
// of the Sampler, a failed one is reported to every waiter and retried on
// the next call.
type Sampler struct {
	loader        ports.GeoidRasterLoader
	defaultHeight float64

	inflight singleflight.Group
	raster   atomic.Pointer[domain.GeoidRaster]
}

// NewSampler creates a Sampler backed by loader.
func NewSampler(loader ports.GeoidRasterLoader, defaultHeight float64) *Sampler {
	return &Sampler{loader: loader, defaultHeight: defaultHeight}
}

// Raster returns the loaded raster, loading it if needed.
func (s *Sampler) Raster(ctx context.Context) (*domain.GeoidRaster, error) {
	if r := s.raster.Load(); r != nil {
		return r, nil
	}

	v, err, _ := s.inflight.Do("raster", func() (_ any, err error) {
		if r := s.raster.Load(); r != nil {
			return r, nil
		}
		// The load outlives any single caller's cancellation.
		lctx, span := telemetry.StartSpan(context.WithoutCancel(ctx), telemetry.SpanLoadGeoid)
		defer func() { telemetry.EndSpan(span, err) }()

		r, err := s.loader.Load(lctx)
		if err != nil {
			metrics.GeoidLoads.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("load geoid raster: %w", err)
		}
		if r == nil {
			r = &domain.GeoidRaster{}
		}
		s.raster.Store(r)
		metrics.GeoidLoads.WithLabelValues("ok").Inc()
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.GeoidRaster), nil
}

// Height returns the geoid height at (lon, lat) in degrees, or the sampler's
// default outside the raster's coverage.
func (s *Sampler) Height(ctx context.Context, lon, lat float64) (float64, error) {
	return s.HeightOr(ctx, lon, lat, s.defaultHeight)
}

// HeightOr is Height with an explicit fallback value.
func (s *Sampler) HeightOr(ctx context.Context, lon, lat, defaultValue float64) (float64, error) {
	r, err := s.Raster(ctx)
	if err != nil {
		return 0, err
	}
	return Sample(r, lon, lat, defaultValue), nil
}

// Sample reads the nearest pixel of r at (lon, lat) in degrees. Points outside
// the bounding box and no-data pixels yield defaultValue. No interpolation is
// performed.
func Sample(r *domain.GeoidRaster, lon, lat, defaultValue float64) float64 {
	if r == nil || r.Width <= 0 || r.Height <= 0 || len(r.Buffer) < r.Width*r.Height {
		metrics.GeoidFallbacks.WithLabelValues("empty").Inc()
		return defaultValue
	}
	if math.IsNaN(lon) || math.IsNaN(lat) {
		metrics.GeoidFallbacks.WithLabelValues("outside").Inc()
		return defaultValue
	}

	west, south, east, north := r.BoundingBox[0], r.BoundingBox[1], r.BoundingBox[2], r.BoundingBox[3]
	if west > lon || east < lon || south > lat || north < lat {
		metrics.GeoidFallbacks.WithLabelValues("outside").Inc()
		return defaultValue
	}

	widthPct := (lon - west) / (east - west)
	heightPct := 1 - (lat-south)/(north-south)
	posX := clamp(int(math.Floor(float64(r.Width)*widthPct)), r.Width-1)
	posY := clamp(int(math.Floor(float64(r.Height)*heightPct)), r.Height-1)

	h := r.Buffer[posX+posY*r.Width]
	if h == domain.GeoidNoData {
		metrics.GeoidFallbacks.WithLabelValues("nodata").Inc()
		return defaultValue
	}
	return float64(h)
}

// clamp keeps points on the east and south edges inside the grid.
func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
