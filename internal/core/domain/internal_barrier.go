package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var internalBarrierIDPattern = regexp.MustCompile(`^\d+/\d+/\d+/\d+/\d+$`)

// InternalBarrierID is the addressing scheme of the internal barrier backend.
// Horizontal and vertical zoom levels are independent, and the vertical cell
// is the AltitudeKey-th of 2^AltitudeKeyZoomLevel equal voxels that split
// [BottomAltitude, TopAltitude].
type InternalBarrierID struct {
	QuadKeyZoomLevel     uint
	AltitudeKeyZoomLevel uint
	X                    uint
	Y                    uint
	AltitudeKey          int64
	BottomAltitude       float64
	TopAltitude          float64
	Metadata             map[string]any
}

// ParseInternalBarrierID parses "quadKeyZoomLevel/altitudeKeyZoomLevel/altitudeKey/x/y".
// The altitude span is not part of the string and must be supplied.
func ParseInternalBarrierID(s string, bottomAltitude, topAltitude float64, metadata map[string]any) (InternalBarrierID, error) {
	if !internalBarrierIDPattern.MatchString(s) {
		return InternalBarrierID{}, &ParseError{Kind: "internal barrier id", Input: s}
	}

	var vals [5]uint64
	for i, p := range strings.Split(s, "/") {
		v, err := strconv.ParseUint(p, 10, 63)
		if err != nil {
			return InternalBarrierID{}, &ParseError{Kind: "internal barrier id", Input: s}
		}
		vals[i] = v
	}

	return InternalBarrierID{
		QuadKeyZoomLevel:     uint(vals[0]),
		AltitudeKeyZoomLevel: uint(vals[1]),
		AltitudeKey:          int64(vals[2]),
		X:                    uint(vals[3]),
		Y:                    uint(vals[4]),
		BottomAltitude:       bottomAltitude,
		TopAltitude:          topAltitude,
		Metadata:             metadata,
	}, nil
}

// String returns "quadKeyZoomLevel/altitudeKeyZoomLevel/altitudeKey/x/y".
func (b InternalBarrierID) String() string {
	return fmt.Sprintf("%d/%d/%d/%d/%d", b.QuadKeyZoomLevel, b.AltitudeKeyZoomLevel, b.AltitudeKey, b.X, b.Y)
}

// Vertical returns the explicit-span voxel scheme for this address.
func (b InternalBarrierID) Vertical() VerticalRange {
	return SpanVertical(b.BottomAltitude, b.TopAltitude, b.AltitudeKeyZoomLevel, b.AltitudeKey)
}

// MSLHeights returns the edges of the addressed voxel in metres above mean sea level.
func (b InternalBarrierID) MSLHeights() (bottom, top float64) {
	return b.Vertical().MSLHeights()
}

// Tile returns the horizontal tile coordinates.
func (b InternalBarrierID) Tile() (z, x, y uint) {
	return b.QuadKeyZoomLevel, b.X, b.Y
}

// Meta returns the caller-supplied metadata.
func (b InternalBarrierID) Meta() map[string]any {
	return b.Metadata
}
