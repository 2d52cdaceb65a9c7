// Package gsigeo reads the ASCII geoid grid published by the Geospatial
// Information Authority of Japan (gsigeo2011_ver2.asc and friends).
//
// The file starts with a header line
//
//	lat0 lon0 dlat dlon nlat nlon ikind version
//
// followed by nlat rows of nlon undulations in metres, south row first and
// west column first, wrapped over as many lines as the producer liked.
// Cells without a value hold 999.0000.
package gsigeo

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/samirrijal/spatialtiles/internal/core/domain"
)

const noData = 999.0

// Loader implements ports.GeoidRasterLoader for a grid file on disk.
type Loader struct {
	path string
}

// NewLoader returns a loader for path. An empty path loads an empty raster.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads and decodes the grid file.
func (l *Loader) Load(ctx context.Context) (*domain.GeoidRaster, error) {
	if l.path == "" {
		slog.Info("no geoid grid configured, using default height everywhere")
		return &domain.GeoidRaster{}, nil
	}

	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open geoid grid: %w", err)
	}
	defer f.Close()

	r, err := Parse(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", l.path, err)
	}
	slog.Info("geoid grid loaded", "path", l.path, "width", r.Width, "height", r.Height)
	return r, nil
}

type header struct {
	lat0, lon0 float64
	dlat, dlon float64
	nlat, nlon int
}

// Parse decodes a grid from r. Rows are flipped so that row 0 of the raster
// is the northernmost; the bounding box is pixel-is-area around the nodes.
func Parse(ctx context.Context, r io.Reader) (*domain.GeoidRaster, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	next := func(what string) (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("unexpected end of file reading %s", what)
		}
		return sc.Text(), nil
	}

	h, err := readHeader(next)
	if err != nil {
		return nil, err
	}

	buf := make([]float32, h.nlat*h.nlon)
	for row := 0; row < h.nlat; row++ {
		if row%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		dst := (h.nlat - 1 - row) * h.nlon
		for col := 0; col < h.nlon; col++ {
			tok, err := next("grid value")
			if err != nil {
				return nil, err
			}
			v, err := strconv.ParseFloat(tok, 32)
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %w", row, col, err)
			}
			if v == noData {
				v = domain.GeoidNoData
			}
			buf[dst+col] = float32(v)
		}
	}

	return &domain.GeoidRaster{
		Buffer: buf,
		Width:  h.nlon,
		Height: h.nlat,
		// Each node is the centre of its pixel, so the box extends half a
		// cell beyond the outer nodes.
		BoundingBox: [4]float64{
			h.lon0 - h.dlon/2,
			h.lat0 - h.dlat/2,
			h.lon0 + (float64(h.nlon)-0.5)*h.dlon,
			h.lat0 + (float64(h.nlat)-0.5)*h.dlat,
		},
	}, nil
}

func readHeader(next func(string) (string, error)) (header, error) {
	var h header
	floats := []*float64{&h.lat0, &h.lon0, &h.dlat, &h.dlon}
	names := []string{"lat0", "lon0", "dlat", "dlon"}
	for i, p := range floats {
		tok, err := next(names[i])
		if err != nil {
			return h, err
		}
		if *p, err = strconv.ParseFloat(tok, 64); err != nil {
			return h, fmt.Errorf("header %s: %w", names[i], err)
		}
	}
	for _, f := range []struct {
		name string
		dst  *int
	}{{"nlat", &h.nlat}, {"nlon", &h.nlon}} {
		tok, err := next(f.name)
		if err != nil {
			return h, err
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			return h, fmt.Errorf("header %s: %w", f.name, err)
		}
		if n <= 0 {
			return h, fmt.Errorf("header %s must be positive, got %d", f.name, n)
		}
		*f.dst = n
	}
	// ikind and version are informational
	for _, name := range []string{"ikind", "version"} {
		if _, err := next(name); err != nil {
			return h, err
		}
	}
	if h.dlat <= 0 || h.dlon <= 0 {
		return h, fmt.Errorf("header spacing must be positive, got dlat=%g dlon=%g", h.dlat, h.dlon)
	}
	return h, nil
}
