package geoid_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samirrijal/spatialtiles/internal/core/domain"
	"github.com/samirrijal/spatialtiles/internal/core/geoid"
	"github.com/samirrijal/spatialtiles/internal/core/ports"
)

// testRaster is a 4x2 grid over [130,30,140,40]; row 0 is the north edge.
func testRaster() *domain.GeoidRaster {
	return &domain.GeoidRaster{
		Buffer: []float32{
			10, 11, 12, 13,
			20, 21, domain.GeoidNoData, 23,
		},
		Width:       4,
		Height:      2,
		BoundingBox: [4]float64{130, 30, 140, 40},
	}
}

func staticLoader(r *domain.GeoidRaster) ports.GeoidRasterLoader {
	return ports.GeoidRasterLoaderFunc(func(ctx context.Context) (*domain.GeoidRaster, error) {
		return r, nil
	})
}

func TestSample_OutsideReturnsDefault(t *testing.T) {
	r := testRaster()
	if got := geoid.Sample(r, 0, 0, 99.5); got != 99.5 {
		t.Errorf("expected default 99.5, got %v", got)
	}
	if got := geoid.Sample(r, 141, 35, geoid.DefaultHeight); got != geoid.DefaultHeight {
		t.Errorf("expected DefaultHeight, got %v", got)
	}
}

func TestSample_NearestPixel(t *testing.T) {
	r := testRaster()
	cases := []struct {
		lon, lat float64
		want     float64
	}{
		{130.1, 39.9, 10}, // north-west pixel
		{132.6, 39.9, 11},
		{139.9, 39.9, 13},
		{130.1, 30.1, 20}, // south-west pixel
		{139.9, 30.1, 23},
		{130, 40, 10}, // north-west corner
		{140, 30, 23}, // south-east corner stays inside the grid
	}
	for _, tc := range cases {
		if got := geoid.Sample(r, tc.lon, tc.lat, -1); got != tc.want {
			t.Errorf("(%v, %v): expected %v, got %v", tc.lon, tc.lat, tc.want, got)
		}
	}
}

func TestSample_NoDataReturnsDefault(t *testing.T) {
	if got := geoid.Sample(testRaster(), 135.1, 30.1, 7); got != 7 {
		t.Errorf("expected default for no-data pixel, got %v", got)
	}
}

func TestSample_EmptyRaster(t *testing.T) {
	if got := geoid.Sample(&domain.GeoidRaster{}, 135, 35, 3); got != 3 {
		t.Errorf("expected default for empty raster, got %v", got)
	}
}

func TestSampler_Height(t *testing.T) {
	s := geoid.NewSampler(staticLoader(testRaster()), geoid.DefaultHeight)

	h, err := s.Height(context.Background(), 130.1, 39.9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h != 10 {
		t.Errorf("expected 10, got %v", h)
	}

	h, err = s.Height(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h != geoid.DefaultHeight {
		t.Errorf("expected default height, got %v", h)
	}
}

func TestSampler_ConcurrentFirstUseLoadsOnce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	loader := ports.GeoidRasterLoaderFunc(func(ctx context.Context) (*domain.GeoidRaster, error) {
		calls.Add(1)
		<-release
		return testRaster(), nil
	})
	s := geoid.NewSampler(loader, geoid.DefaultHeight)

	const callers = 32
	var wg sync.WaitGroup
	results := make([]float64, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Height(context.Background(), 130.1, 39.9)
		}(i)
	}

	// let the callers pile up on the pending load
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: unexpected error: %v", i, errs[i])
		}
		if results[i] != 10 {
			t.Errorf("caller %d: expected 10, got %v", i, results[i])
		}
	}

	// later callers reuse the loaded raster
	if _, err := s.Height(context.Background(), 131, 31); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected exactly 1 load, got %d", n)
	}
}

func TestSampler_FailedLoadIsRetried(t *testing.T) {
	var calls atomic.Int32
	loader := ports.GeoidRasterLoaderFunc(func(ctx context.Context) (*domain.GeoidRaster, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("disk on fire")
		}
		return testRaster(), nil
	})
	s := geoid.NewSampler(loader, geoid.DefaultHeight)

	if _, err := s.Height(context.Background(), 130.1, 39.9); err == nil {
		t.Fatal("expected first load to fail")
	}

	h, err := s.Height(context.Background(), 130.1, 39.9)
	if err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if h != 10 {
		t.Errorf("expected 10, got %v", h)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("expected 2 load attempts, got %d", n)
	}
}

func TestSampler_CancelledCallerDoesNotPoisonLoad(t *testing.T) {
	loader := ports.GeoidRasterLoaderFunc(func(ctx context.Context) (*domain.GeoidRaster, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return testRaster(), nil
	})
	s := geoid.NewSampler(loader, geoid.DefaultHeight)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Height(ctx, 130.1, 39.9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
