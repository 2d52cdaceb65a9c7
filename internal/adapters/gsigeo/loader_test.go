package gsigeo_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/samirrijal/spatialtiles/internal/adapters/gsigeo"
	"github.com/samirrijal/spatialtiles/internal/core/domain"
	"github.com/samirrijal/spatialtiles/internal/core/geoid"
)

// three rows of four columns, south row first, wrapped unevenly
const sample = `30.00000 130.00000 5.000000 2.500000 3 4 1 ver2.0
 1.0000 2.0000 3.0000
 4.0000
 5.0000 6.0000 999.0000 8.0000
 9.0000 10.0000 11.0000 12.0000
`

func TestParse(t *testing.T) {
	r, err := gsigeo.Parse(context.Background(), strings.NewReader(sample))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &domain.GeoidRaster{
		Buffer: []float32{
			9, 10, 11, 12,
			5, 6, domain.GeoidNoData, 8,
			1, 2, 3, 4,
		},
		Width:       4,
		Height:      3,
		BoundingBox: [4]float64{128.75, 27.5, 138.75, 42.5},
	}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("raster mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_SampleReadsNearestNode(t *testing.T) {
	r, err := gsigeo.Parse(context.Background(), strings.NewReader(sample))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		lon, lat float64
		want     float64
	}{
		{"south west node", 130, 30, 1},
		{"south east node", 137.5, 30, 4},
		{"middle row node", 132.5, 35, 6},
		{"north east node", 137.5, 40, 12},
		{"nearer the next node", 130 + 0.6*2.5, 30, 2},
		{"nearer the next row", 130, 30 + 0.6*5, 5},
		{"no-data node", 135, 35, -1},
		{"half a cell outside the west node", 129, 40, 9},
		{"beyond the half cell", 128, 40, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := geoid.Sample(r, tt.lon, tt.lat, -1); got != tt.want {
				t.Errorf("Sample(%v, %v) = %v, want %v", tt.lon, tt.lat, got, tt.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"short header":   "30 130 5 2.5 3",
		"bad number":     "30 130 x 2.5 3 4 1 ver2.0",
		"zero rows":      "30 130 5 2.5 0 4 1 ver2.0",
		"negative step":  "30 130 -5 2.5 1 1 1 ver2.0\n1.0",
		"truncated grid": "30 130 5 2.5 2 2 1 ver2.0\n1.0 2.0 3.0",
		"bad value":      "30 130 5 2.5 1 2 1 ver2.0\n1.0 abc",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := gsigeo.Parse(context.Background(), strings.NewReader(in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParse_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := gsigeo.Parse(ctx, strings.NewReader(sample)); err == nil {
		t.Error("expected cancellation error")
	}
}

func TestLoader_EmptyPath(t *testing.T) {
	r, err := gsigeo.NewLoader("").Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Width != 0 || r.Height != 0 || len(r.Buffer) != 0 {
		t.Errorf("expected empty raster, got %+v", r)
	}
}

func TestLoader_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geoid.asc")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}

	r, err := gsigeo.NewLoader(path).Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Width != 4 || r.Height != 3 {
		t.Errorf("expected 4x3 raster, got %dx%d", r.Width, r.Height)
	}
}

func TestLoader_MissingFile(t *testing.T) {
	if _, err := gsigeo.NewLoader(filepath.Join(t.TempDir(), "nope.asc")).Load(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}
