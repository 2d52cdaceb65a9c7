package tileset_test

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/samirrijal/spatialtiles/internal/core/domain"
	"github.com/samirrijal/spatialtiles/internal/core/tileset"
)

func twoCuboids() []domain.Cuboid {
	return []domain.Cuboid{
		{
			Region:   domain.Region{1, 1, 2, 2, 10, 20},
			Scale:    domain.Cartesian3{X: 30, Y: 31, Z: 10},
			Location: domain.Cartesian3{X: -3955000, Y: 3345000, Z: 3699000},
			Metadata: map[string]any{"risk": 3},
		},
		{
			Region:   domain.Region{0, 0, 3, 3, 5, 25},
			Scale:    domain.Cartesian3{X: 60, Y: 62, Z: 20},
			Location: domain.Cartesian3{X: -3955100, Y: 3345100, Z: 3699100},
		},
	}
}

func TestCollection_RegionEmpty(t *testing.T) {
	if got := tileset.New(nil).Region(); got != (domain.Region{}) {
		t.Errorf("expected zero region, got %v", got)
	}
}

func TestCollection_RegionUnion(t *testing.T) {
	got := tileset.New(twoCuboids()).Region()
	want := domain.Region{0, 0, 3, 3, 5, 25}
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestCollection_RegionNegativeHeights(t *testing.T) {
	c := tileset.New([]domain.Cuboid{
		{Region: domain.Region{0, 0, 1, 1, -40, -20}},
		{Region: domain.Region{0, 0, 1, 1, -30, -10}},
	})
	if got := c.Region(); got.MinHeight() != -40 || got.MaxHeight() != -10 {
		t.Errorf("expected heights [-40, -10], got %v", got)
	}
}

func TestCollection_I3DMLayout(t *testing.T) {
	b, err := tileset.New(twoCuboids()).I3DM()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h, err := tileset.ReadHeader(b)
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if string(b[:4]) != "i3dm" {
		t.Errorf("expected magic i3dm, got %q", b[:4])
	}
	if h.Version != 1 || h.GLTFFormat != 1 || h.BatchTableBinaryByteLength != 0 {
		t.Errorf("unexpected header constants: %+v", h)
	}
	if int(h.ByteLength) != len(b) {
		t.Fatalf("header byteLength %d != actual %d", h.ByteLength, len(b))
	}

	ftJSONStart := 32
	ftBinStart := ftJSONStart + int(h.FeatureTableJSONByteLength)
	btJSONStart := ftBinStart + int(h.FeatureTableBinaryByteLength)
	glbStart := btJSONStart + int(h.BatchTableJSONByteLength)
	if string(b[glbStart:glbStart+4]) != "glTF" {
		t.Fatalf("expected glb to start at offset %d", glbStart)
	}
	glbLength := int(binary.LittleEndian.Uint32(b[glbStart+8:]))
	if 32+int(h.FeatureTableJSONByteLength)+int(h.FeatureTableBinaryByteLength)+int(h.BatchTableJSONByteLength)+glbLength != int(h.ByteLength) {
		t.Errorf("block lengths do not add up to byteLength %d", h.ByteLength)
	}

	for name, n := range map[string]uint32{
		"feature table json":   h.FeatureTableJSONByteLength,
		"feature table binary": h.FeatureTableBinaryByteLength,
		"batch table json":     h.BatchTableJSONByteLength,
	} {
		if n%8 != 0 {
			t.Errorf("%s length %d not 8-byte aligned", name, n)
		}
	}

	ftJSON := string(b[ftJSONStart:ftBinStart])
	wantFT := `{"INSTANCES_LENGTH":2,"EAST_NORTH_UP":true,"POSITION":{"byteOffset":0},"SCALE_NON_UNIFORM":{"byteOffset":24},"BATCH_ID":{"componentType":"UNSIGNED_INT","byteOffset":48}}`
	if strings.TrimRight(ftJSON, " ") != wantFT {
		t.Errorf("feature table json:\n got %s\nwant %s", ftJSON, wantFT)
	}
	if len(ftJSON) != 176 {
		t.Errorf("expected 169 bytes padded to 176, got %d", len(ftJSON))
	}

	bin := b[ftBinStart:btJSONStart]
	f32 := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(bin[off:]))
	}
	if f32(0) != float32(-3955000) || f32(12) != float32(-3955100) {
		t.Errorf("unexpected positions: %v %v", f32(0), f32(12))
	}
	if f32(24) != 30 || f32(28) != 31 || f32(32) != 10 || f32(44) != 20 {
		t.Errorf("unexpected scales")
	}
	if binary.LittleEndian.Uint32(bin[48:]) != 0 || binary.LittleEndian.Uint32(bin[52:]) != 1 {
		t.Errorf("unexpected batch ids")
	}
}

func TestCollection_BatchTableNullFill(t *testing.T) {
	b, err := tileset.New(twoCuboids()).I3DM()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h, _ := tileset.ReadHeader(b)
	start := 32 + int(h.FeatureTableJSONByteLength) + int(h.FeatureTableBinaryByteLength)
	bt := b[start : start+int(h.BatchTableJSONByteLength)]

	if got := strings.TrimRight(string(bt), " "); got != `{"risk":[3,null]}` {
		t.Errorf("expected risk column [3,null], got %s", got)
	}
	if len(bt) != 24 {
		t.Errorf("expected batch table padded to 24 bytes, got %d", len(bt))
	}
}

func TestCollection_I3DMEmpty(t *testing.T) {
	b, err := tileset.New(nil).I3DM()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h, err := tileset.ReadHeader(b)
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if int(h.ByteLength) != len(b) || h.FeatureTableBinaryByteLength != 0 {
		t.Errorf("unexpected header for empty collection: %+v", h)
	}
}

func TestCollection_UnencodableMetadata(t *testing.T) {
	cuboids := twoCuboids()
	cuboids[1].Metadata = map[string]any{"cb": func() {}}

	if _, err := tileset.New(cuboids).I3DM(); err == nil {
		t.Error("expected encoding error for function-valued metadata")
	}
	if _, err := tileset.New(cuboids).Tileset(""); err == nil {
		t.Error("expected manifest to propagate encoding error")
	}
}

func TestCollection_TilesetWithURL(t *testing.T) {
	raw, err := tileset.New(twoCuboids()).TilesetJSON("https://tiles.example/content.i3dm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	region := []any{0.0, 0.0, 3.0, 3.0, 5.0, 25.0}
	want := map[string]any{
		"asset":      map[string]any{"version": "1.0"},
		"properties": map[string]any{},
		"root": map[string]any{
			"boundingVolume": map[string]any{"region": region},
			"geometricError": 1000.0,
			"refine":         "ADD",
			"children": []any{
				map[string]any{
					"boundingVolume": map[string]any{"region": region},
					"geometricError": 0.0,
					"content":        map[string]any{"uri": "https://tiles.example/content.i3dm"},
				},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tileset mismatch (-want +got):\n%s", diff)
	}
}

func TestCollection_TilesetEmbedsDataURL(t *testing.T) {
	c := tileset.New(twoCuboids())
	ts, err := c.Tileset("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	uri := ts.Root.Children[0].Content.URI
	const prefix = "data:application/octet-stream;base64,"
	if !strings.HasPrefix(uri, prefix) {
		t.Fatalf("expected data URI, got %.60s", uri)
	}
	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	if err != nil {
		t.Fatalf("decode data URI: %v", err)
	}
	want, _ := c.I3DM()
	if string(payload) != string(want) {
		t.Error("embedded payload differs from I3DM()")
	}
}

func TestCollection_TilesetDataURL(t *testing.T) {
	u, err := tileset.New(twoCuboids()).TilesetDataURL("content.i3dm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(u, "data:application/json;base64,") {
		t.Errorf("unexpected prefix: %.40s", u)
	}
}

func TestDataURL(t *testing.T) {
	if got := tileset.DataURL([]byte("hi"), "text/plain"); got != "data:text/plain;base64,aGk=" {
		t.Errorf("unexpected data URL %s", got)
	}
}

func TestCollection_IsImmutable(t *testing.T) {
	cuboids := twoCuboids()
	c := tileset.New(cuboids)
	cuboids[0].Region = domain.Region{-9, -9, 9, 9, -9, 99}
	if c.Region() != (domain.Region{0, 0, 3, 3, 5, 25}) {
		t.Error("collection observed caller's mutation")
	}
}
