package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/samirrijal/spatialtiles/internal/core/cuboid"
	"github.com/samirrijal/spatialtiles/internal/core/domain"
	"github.com/samirrijal/spatialtiles/internal/core/tileset"
	"github.com/samirrijal/spatialtiles/internal/core/usecases"
)

var defaultSpan = usecases.AltitudeSpan{Bottom: 0, Top: 50}

func newTilesetService(geoid *mockGeoid, cache usecases.CacheService) *usecases.TilesetService {
	return usecases.NewTilesetService(cuboid.NewEngine(geoid, 2), cache, 60, defaultSpan)
}

func mustAddresses(t *testing.T, svc *usecases.TilesetService, req usecases.TilesetRequest) []cuboid.Address {
	t.Helper()
	addrs, err := svc.Addresses(req)
	if err != nil {
		t.Fatalf("addresses: %v", err)
	}
	return addrs
}

func TestParseInternalBarriers_DefaultsAndTagging(t *testing.T) {
	meta := map[string]any{"id": "m-1", "groupId": "g"}
	addrs, err := usecases.ParseInternalBarriers(&usecases.InternalBarrierRequest{
		Keys: []usecases.InternalBarrierKey{{ID: "23/3/5/7451975/3303287", Metadata: meta}},
	}, defaultSpan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(addrs) != 1 {
		t.Fatalf("expected 1 address, got %d", len(addrs))
	}

	id := addrs[0].(domain.InternalBarrierID)
	if id.BottomAltitude != 0 || id.TopAltitude != 50 {
		t.Errorf("expected default span 0..50, got %v..%v", id.BottomAltitude, id.TopAltitude)
	}
	want := map[string]any{"id": "m-1", "groupId": "g", "internalBarrierId": "23/3/5/7451975/3303287"}
	if diff := cmp.Diff(want, id.Meta()); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
	if _, ok := meta["internalBarrierId"]; ok {
		t.Error("caller's metadata was mutated")
	}
}

func TestParseInternalBarriers_BarrierInfo(t *testing.T) {
	addrs, err := usecases.ParseInternalBarriers(&usecases.InternalBarrierRequest{
		Keys: []usecases.InternalBarrierKey{{
			ID: "23/3/5/7451975/3303287",
			Barrier: &domain.InternalBarrierInfo{
				ID:        "m-2",
				StartTime: "2026-10-15T09:00:00Z",
				EndTime:   "2026-10-15T18:00:00Z",
				GroupID:   "g-7",
			},
			Metadata: map[string]any{"id": "stale", "note": "crane"},
		}},
	}, defaultSpan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]any{
		"id":                "m-2",
		"startTime":         "2026-10-15T09:00:00Z",
		"endTime":           "2026-10-15T18:00:00Z",
		"groupId":           "g-7",
		"note":              "crane",
		"internalBarrierId": "23/3/5/7451975/3303287",
	}
	if diff := cmp.Diff(want, addrs[0].Meta()); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestParseInternalBarriers_Overrides(t *testing.T) {
	bottom, top := 10.0, 90.0
	addrs, err := usecases.ParseInternalBarriers(&usecases.InternalBarrierRequest{
		BottomAltitude: &bottom,
		TopAltitude:    &top,
		Keys:           []usecases.InternalBarrierKey{{ID: "20/2/1/931542/412910"}},
	}, defaultSpan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, tp := addrs[0].Vertical().MSLHeights()
	if b != 30 || tp != 50 {
		t.Errorf("expected voxel 30..50, got %v..%v", b, tp)
	}
}

func TestParseInternalBarriers_Nil(t *testing.T) {
	addrs, err := usecases.ParseInternalBarriers(nil, defaultSpan)
	if err != nil || addrs != nil {
		t.Errorf("expected nil, nil; got %v, %v", addrs, err)
	}
}

func TestTilesetService_AddressesOrderAndErrors(t *testing.T) {
	svc := newTilesetService(&mockGeoid{}, nil)

	addrs := mustAddresses(t, svc, usecases.TilesetRequest{
		SpatialIDs: []usecases.AddressInput{{ID: "20/3/931542/412910"}, {ID: "20/4/931542/412910"}},
		InternalBarriers: &usecases.InternalBarrierRequest{
			Keys: []usecases.InternalBarrierKey{{ID: "20/2/1/931542/412910"}},
		},
	})
	if len(addrs) != 3 {
		t.Fatalf("expected 3 addresses, got %d", len(addrs))
	}
	if _, ok := addrs[2].(domain.InternalBarrierID); !ok {
		t.Errorf("expected internal barrier last, got %T", addrs[2])
	}

	_, err := svc.Addresses(usecases.TilesetRequest{
		SpatialIDs: []usecases.AddressInput{{ID: "20/3/931542/412910"}, {ID: "20/3/x/412910"}},
	})
	var pe *domain.ParseError
	if !errors.As(err, &pe) || pe.Input != "20/3/x/412910" {
		t.Errorf("expected parse error for second id, got %v", err)
	}
}

func TestTilesetService_RequestLen(t *testing.T) {
	req := usecases.TilesetRequest{
		SpatialIDs:       make([]usecases.AddressInput, 3),
		InternalBarriers: &usecases.InternalBarrierRequest{Keys: make([]usecases.InternalBarrierKey, 2)},
	}
	if req.Len() != 5 {
		t.Errorf("expected 5, got %d", req.Len())
	}
}

func TestTilesetService_I3DMCached(t *testing.T) {
	geoid := &mockGeoid{}
	cache := newMockCache()
	svc := newTilesetService(geoid, cache)
	addrs := mustAddresses(t, svc, usecases.TilesetRequest{
		SpatialIDs: []usecases.AddressInput{
			{ID: "20/3/931542/412910", Metadata: map[string]any{"risk": 2}},
			{ID: "20/3/931543/412910"},
		},
	})

	first, err := svc.I3DM(context.Background(), addrs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if geoid.calls.Load() != 2 {
		t.Fatalf("expected 2 geoid lookups, got %d", geoid.calls.Load())
	}

	second, err := svc.I3DM(context.Background(), addrs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if geoid.calls.Load() != 2 {
		t.Errorf("expected cache hit without geometry, got %d lookups", geoid.calls.Load())
	}
	if string(first) != string(second) {
		t.Error("cached payload differs")
	}

	h, err := tileset.ReadHeader(first)
	if err != nil || int(h.ByteLength) != len(first) {
		t.Errorf("bad i3dm header: %+v, %v", h, err)
	}
}

func TestTilesetService_CacheKeyCoversMetadata(t *testing.T) {
	cache := newMockCache()
	svc := newTilesetService(&mockGeoid{}, cache)

	for _, risk := range []int{1, 2} {
		addrs := mustAddresses(t, svc, usecases.TilesetRequest{
			SpatialIDs: []usecases.AddressInput{{ID: "20/3/931542/412910", Metadata: map[string]any{"risk": risk}}},
		})
		if _, err := svc.I3DM(context.Background(), addrs); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(cache.keys()); n != 2 {
		t.Errorf("expected 2 distinct cache entries, got %d", n)
	}
}

func TestTilesetService_CacheWriteFailureIgnored(t *testing.T) {
	cache := newMockCache()
	cache.setFn = func(ctx context.Context, key string, value []byte, ttl int) error {
		return errors.New("valkey down")
	}
	svc := newTilesetService(&mockGeoid{}, cache)
	addrs := mustAddresses(t, svc, usecases.TilesetRequest{
		SpatialIDs: []usecases.AddressInput{{ID: "20/3/931542/412910"}},
	})

	b, err := svc.TilesetJSON(context.Background(), addrs, "content.i3dm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b) == 0 || cache.sets != 1 {
		t.Errorf("expected payload and one write attempt, got %d bytes, %d sets", len(b), cache.sets)
	}
}

func TestTilesetService_TilesetJSON(t *testing.T) {
	svc := newTilesetService(&mockGeoid{}, nil)
	addrs := mustAddresses(t, svc, usecases.TilesetRequest{
		SpatialIDs: []usecases.AddressInput{{ID: "20/3/931542/412910"}},
	})

	b, err := svc.TilesetJSON(context.Background(), addrs, "https://tiles.example/c.i3dm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ts tileset.Tileset
	if err := json.Unmarshal(b, &ts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ts.Root.Refine != "ADD" || len(ts.Root.Children) != 1 {
		t.Fatalf("unexpected root %+v", ts.Root)
	}
	if ts.Root.Children[0].Content.URI != "https://tiles.example/c.i3dm" {
		t.Errorf("unexpected content uri %s", ts.Root.Children[0].Content.URI)
	}

	u, err := svc.TilesetDataURL(context.Background(), addrs, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(u, "data:application/json;base64,") {
		t.Errorf("unexpected data url prefix %.40s", u)
	}
}

func TestTilesetService_GeoidErrorPropagates(t *testing.T) {
	boom := errors.New("raster unavailable")
	geoid := &mockGeoid{heightFn: func(ctx context.Context, lon, lat float64) (float64, error) {
		return 0, boom
	}}
	cache := newMockCache()
	svc := newTilesetService(geoid, cache)
	addrs := mustAddresses(t, svc, usecases.TilesetRequest{
		SpatialIDs: []usecases.AddressInput{{ID: "20/3/931542/412910"}},
	})

	if _, err := svc.I3DM(context.Background(), addrs); !errors.Is(err, boom) {
		t.Errorf("expected geoid error, got %v", err)
	}
	if cache.sets != 0 {
		t.Error("failed build must not be cached")
	}
}

func TestTilesetService_Region(t *testing.T) {
	svc := newTilesetService(&mockGeoid{heightFn: func(ctx context.Context, lon, lat float64) (float64, error) {
		return 40, nil
	}}, nil)
	addrs := mustAddresses(t, svc, usecases.TilesetRequest{
		SpatialIDs: []usecases.AddressInput{{ID: "20/3/931542/412910"}, {ID: "20/4/931543/412910"}},
	})

	r, err := svc.Region(context.Background(), addrs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// slab 3 starts at 96 m, slab 4 ends at 160 m; both shifted by 40 m of geoid
	if r.MinHeight() != 136 || r.MaxHeight() != 200 {
		t.Errorf("expected heights 136..200, got %v..%v", r.MinHeight(), r.MaxHeight())
	}
	if r.West() >= r.East() || r.South() >= r.North() {
		t.Errorf("degenerate region %v", r)
	}
}
