// Package cuboid turns tile addresses into geodetic cuboids.
package cuboid

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/spatialtiles/internal/core/domain"
	"github.com/samirrijal/spatialtiles/internal/core/ports"
	"github.com/samirrijal/spatialtiles/internal/pkg/geospatial"
	"github.com/samirrijal/spatialtiles/internal/pkg/metrics"
	"github.com/samirrijal/spatialtiles/internal/pkg/telemetry"
)

// Address is anything that names a horizontal tile and a vertical range.
// domain.SpatialID and domain.InternalBarrierID both satisfy it.
type Address interface {
	Tile() (z, x, y uint)
	Vertical() domain.VerticalRange
	Meta() map[string]any
}

// Request is a resolved address ready for geometry.
type Request struct {
	Z, X, Y  uint
	Vertical domain.VerticalRange
	Metadata map[string]any
}

// RequestFor flattens an address into a Request.
func RequestFor(a Address) Request {
	z, x, y := a.Tile()
	return Request{Z: z, X: x, Y: y, Vertical: a.Vertical(), Metadata: a.Meta()}
}

// Engine computes cuboids, correcting MSL altitudes to ellipsoidal heights
// with the geoid sampler.
type Engine struct {
	geoid   ports.GeoidSampler
	workers int
}

// NewEngine creates an Engine. workers bounds CreateAll's parallelism; zero
// or less means GOMAXPROCS.
func NewEngine(geoid ports.GeoidSampler, workers int) *Engine {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{geoid: geoid, workers: workers}
}

// Create builds the cuboid for one request. Tile coordinates outside the
// 2^z grid are not rejected.
func (e *Engine) Create(ctx context.Context, req Request) (domain.Cuboid, error) {
	rect := geospatial.TileRectangle(req.Z, req.X, req.Y)
	centerLon, centerLat := rect.Center()

	// straight-line extents through the centre
	width := geospatial.Distance(
		geospatial.FromRadians(rect.East, centerLat, 0),
		geospatial.FromRadians(rect.West, centerLat, 0),
	)
	height := geospatial.Distance(
		geospatial.FromRadians(centerLon, rect.North, 0),
		geospatial.FromRadians(centerLon, rect.South, 0),
	)

	g, err := e.geoid.Height(ctx, geospatial.ToDegrees(centerLon), geospatial.ToDegrees(centerLat))
	if err != nil {
		return domain.Cuboid{}, fmt.Errorf("geoid height: %w", err)
	}

	bottomMSL, topMSL := req.Vertical.MSLHeights()
	bottom := g + bottomMSL
	top := g + topMSL

	metrics.CuboidsBuilt.WithLabelValues(req.Vertical.Scheme.String()).Inc()

	return domain.Cuboid{
		Region:   domain.Region{rect.West, rect.South, rect.East, rect.North, bottom, top},
		Scale:    domain.Cartesian3{X: width, Y: height, Z: top - bottom},
		Location: geospatial.FromRadians(centerLon, centerLat, (bottom+top)/2),
		Metadata: req.Metadata,
	}, nil
}

// CreateFor builds the cuboid for an address.
func (e *Engine) CreateFor(ctx context.Context, a Address) (domain.Cuboid, error) {
	return e.Create(ctx, RequestFor(a))
}

// CreateAll builds cuboids for every request in parallel. The result keeps
// the request order; the first error cancels the remaining work.
func (e *Engine) CreateAll(ctx context.Context, reqs []Request) (_ []domain.Cuboid, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanBuildCuboids, telemetry.AttrAddressCount.Int(len(reqs)))
	defer func() { telemetry.EndSpan(span, err) }()

	out := make([]domain.Cuboid, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := e.Create(gctx, reqs[i])
			if err != nil {
				return err
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
