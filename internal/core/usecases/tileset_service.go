package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/spatialtiles/internal/core/cuboid"
	"github.com/samirrijal/spatialtiles/internal/core/domain"
	"github.com/samirrijal/spatialtiles/internal/core/tileset"
	"github.com/samirrijal/spatialtiles/internal/pkg/metrics"
	"github.com/samirrijal/spatialtiles/internal/pkg/telemetry"
)

// TilesetService turns addresses into cuboids and encodes them. Encoded
// payloads are cached by a digest of the addresses and their metadata.
type TilesetService struct {
	engine   *cuboid.Engine
	cache    CacheService
	cacheTTL int
	span     AltitudeSpan
}

// CacheService stores encoded payloads. Any Get error is treated as a miss.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
}

// NewTilesetService creates a TilesetService. cache may be nil.
func NewTilesetService(engine *cuboid.Engine, cache CacheService, cacheTTL int, span AltitudeSpan) *TilesetService {
	return &TilesetService{engine: engine, cache: cache, cacheTTL: cacheTTL, span: span}
}

// Addresses parses every address of req, spatial IDs first.
func (s *TilesetService) Addresses(req TilesetRequest) ([]cuboid.Address, error) {
	ids, err := ParseSpatialIDs(req.SpatialIDs)
	if err != nil {
		return nil, err
	}
	internal, err := ParseInternalBarriers(req.InternalBarriers, s.span)
	if err != nil {
		return nil, err
	}
	return append(ids, internal...), nil
}

// Cuboid builds the cuboid for one address.
func (s *TilesetService) Cuboid(ctx context.Context, a cuboid.Address) (domain.Cuboid, error) {
	return s.engine.CreateFor(ctx, a)
}

// Collection builds the cuboids for addrs, keeping their order.
func (s *TilesetService) Collection(ctx context.Context, addrs []cuboid.Address) (*tileset.Collection, error) {
	reqs := make([]cuboid.Request, len(addrs))
	for i, a := range addrs {
		reqs[i] = cuboid.RequestFor(a)
	}
	cuboids, err := s.engine.CreateAll(ctx, reqs)
	if err != nil {
		return nil, err
	}
	return tileset.New(cuboids), nil
}

// Region returns the bounding region of addrs.
func (s *TilesetService) Region(ctx context.Context, addrs []cuboid.Address) (domain.Region, error) {
	c, err := s.Collection(ctx, addrs)
	if err != nil {
		return domain.Region{}, err
	}
	return c.Region(), nil
}

// I3DM returns the i3dm payload for addrs.
func (s *TilesetService) I3DM(ctx context.Context, addrs []cuboid.Address) ([]byte, error) {
	return s.cached(ctx, "i3dm", addrs, "", func(ctx context.Context) (b []byte, err error) {
		ctx, span := telemetry.StartSpan(ctx, telemetry.SpanEncodeI3DM, telemetry.AttrAddressCount.Int(len(addrs)))
		defer func() {
			span.SetAttributes(telemetry.AttrPayloadBytes.Int(len(b)))
			telemetry.EndSpan(span, err)
		}()

		c, err := s.Collection(ctx, addrs)
		if err != nil {
			return nil, err
		}
		b, err = c.I3DM()
		if err != nil {
			return nil, err
		}
		metrics.I3DMBytes.Observe(float64(len(b)))
		return b, nil
	})
}

// TilesetJSON returns the encoded manifest for addrs. An empty contentURL
// embeds the i3dm payload as a data URI.
func (s *TilesetService) TilesetJSON(ctx context.Context, addrs []cuboid.Address, contentURL string) ([]byte, error) {
	return s.cached(ctx, "tileset", addrs, contentURL, func(ctx context.Context) (_ []byte, err error) {
		ctx, span := telemetry.StartSpan(ctx, telemetry.SpanEncodeTileset, telemetry.AttrAddressCount.Int(len(addrs)))
		defer func() { telemetry.EndSpan(span, err) }()

		c, err := s.Collection(ctx, addrs)
		if err != nil {
			return nil, err
		}
		return c.TilesetJSON(contentURL)
	})
}

// TilesetDataURL returns the manifest for addrs as a JSON data URI.
func (s *TilesetService) TilesetDataURL(ctx context.Context, addrs []cuboid.Address, contentURL string) (string, error) {
	b, err := s.TilesetJSON(ctx, addrs, contentURL)
	if err != nil {
		return "", err
	}
	return tileset.DataURL(b, "application/json"), nil
}

func (s *TilesetService) cached(ctx context.Context, kind string, addrs []cuboid.Address, extra string, build func(context.Context) ([]byte, error)) ([]byte, error) {
	key, ok := cacheKey(kind, addrs, extra)
	if s.cache == nil || !ok {
		return build(ctx)
	}

	span := trace.SpanFromContext(ctx)
	if data, err := s.cache.Get(ctx, key); err == nil {
		span.SetAttributes(telemetry.AttrCacheHit.Bool(true))
		metrics.CacheHits.WithLabelValues(kind).Inc()
		slog.Debug("tileset cache hit", "kind", kind, "key", key)
		return data, nil
	}
	span.SetAttributes(telemetry.AttrCacheHit.Bool(false))
	metrics.CacheMisses.WithLabelValues(kind).Inc()
	slog.Debug("tileset cache miss", "kind", kind, "key", key)

	data, err := build(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		slog.Warn("tileset cache write failed", "kind", kind, "error", err)
	}
	return data, nil
}

type keyEntry struct {
	Address  string         `json:"a"`
	Metadata map[string]any `json:"m,omitempty"`
}

// cacheKey digests the address strings, their metadata and extra. It reports
// false when the metadata cannot be encoded; the build then fails on its own.
func cacheKey(kind string, addrs []cuboid.Address, extra string) (string, bool) {
	entries := make([]keyEntry, len(addrs))
	for i, a := range addrs {
		entries[i] = keyEntry{Address: addressString(a), Metadata: a.Meta()}
	}
	b, err := json.Marshal(struct {
		Entries []keyEntry `json:"e"`
		Extra   string     `json:"x"`
	}{entries, extra})
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(b)
	return kind + ":" + hex.EncodeToString(sum[:]), true
}

func addressString(a cuboid.Address) string {
	z, x, y := a.Tile()
	return fmt.Sprintf("%d/%d/%d/%+v", z, x, y, a.Vertical())
}
