package domain

import "math"

// VerticalScheme selects how a VerticalRange derives its altitude bounds.
type VerticalScheme int

const (
	// VerticalGlobal is the fixed power-of-two slab scheme of SpatialID.
	VerticalGlobal VerticalScheme = iota
	// VerticalSpan divides an explicit altitude span into equal voxels.
	VerticalSpan
)

func (s VerticalScheme) String() string {
	switch s {
	case VerticalGlobal:
		return "global"
	case VerticalSpan:
		return "span"
	default:
		return "unknown"
	}
}

// VerticalRange is a tagged variant describing the altitude extent of a cell.
// Only the fields belonging to Scheme are meaningful.
type VerticalRange struct {
	Scheme VerticalScheme

	// VerticalGlobal
	Zoom uint
	F    int

	// VerticalSpan
	Bottom    float64
	Top       float64
	ZoomLevel uint
	Key       int64
}

// GlobalVertical returns the slab f at horizontal zoom z.
func GlobalVertical(z uint, f int) VerticalRange {
	return VerticalRange{Scheme: VerticalGlobal, Zoom: z, F: f}
}

// SpanVertical returns voxel key of 2^zoomLevel voxels splitting [bottom, top].
func SpanVertical(bottom, top float64, zoomLevel uint, key int64) VerticalRange {
	return VerticalRange{Scheme: VerticalSpan, Bottom: bottom, Top: top, ZoomLevel: zoomLevel, Key: key}
}

// MSLHeights returns the bottom and top altitude in metres above mean sea level.
func (v VerticalRange) MSLHeights() (bottom, top float64) {
	switch v.Scheme {
	case VerticalSpan:
		voxel := (v.Top - v.Bottom) / math.Pow(2, float64(v.ZoomLevel))
		bottom = v.Bottom + voxel*float64(v.Key)
		return bottom, bottom + voxel
	default:
		h := slabHeight(v.Zoom)
		return float64(v.F) * h, float64(v.F+1) * h
	}
}
