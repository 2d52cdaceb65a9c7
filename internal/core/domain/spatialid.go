package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// spatialIDPattern accepts "z/f/x/y" where only f may carry a minus sign.
var spatialIDPattern = regexp.MustCompile(`^\d+/-?\d+/\d+/\d+$`)

// SpatialID addresses a 3-D cell: a Web-Mercator tile (Z, X, Y) plus the
// altitude slab F. At Z = 25 one slab is one metre tall; every lower zoom
// level doubles the slab height.
type SpatialID struct {
	Z        uint
	F        int
	X        uint
	Y        uint
	Metadata map[string]any
}

// NewSpatialID builds a SpatialID from explicit fields.
func NewSpatialID(z uint, f int, x, y uint, metadata map[string]any) SpatialID {
	return SpatialID{Z: z, F: f, X: x, Y: y, Metadata: metadata}
}

// ParseSpatialID parses the canonical "z/f/x/y" form. The metadata is
// attached as-is and never inspected.
func ParseSpatialID(s string, metadata map[string]any) (SpatialID, error) {
	if !spatialIDPattern.MatchString(s) {
		return SpatialID{}, &ParseError{Kind: "spatial id", Input: s}
	}

	parts := strings.Split(s, "/")
	z, errZ := strconv.ParseUint(parts[0], 10, 0)
	f, errF := strconv.ParseInt(parts[1], 10, 0)
	x, errX := strconv.ParseUint(parts[2], 10, 0)
	y, errY := strconv.ParseUint(parts[3], 10, 0)
	if errZ != nil || errF != nil || errX != nil || errY != nil {
		// digits matched but overflowed the native integer width
		return SpatialID{}, &ParseError{Kind: "spatial id", Input: s}
	}

	return SpatialID{Z: uint(z), F: int(f), X: uint(x), Y: uint(y), Metadata: metadata}, nil
}

// String returns the canonical "z/f/x/y" form.
func (s SpatialID) String() string {
	return fmt.Sprintf("%d/%d/%d/%d", s.Z, s.F, s.X, s.Y)
}

// Equal compares the address fields, ignoring metadata.
func (s SpatialID) Equal(o SpatialID) bool {
	return s.Z == o.Z && s.F == o.F && s.X == o.X && s.Y == o.Y
}

// Vertical returns the global power-of-two altitude scheme for this address.
func (s SpatialID) Vertical() VerticalRange {
	return GlobalVertical(s.Z, s.F)
}

// MSLHeights returns the bottom and top of the altitude slab in metres above mean sea level.
func (s SpatialID) MSLHeights() (bottom, top float64) {
	return s.Vertical().MSLHeights()
}

// Tile returns the horizontal tile coordinates.
func (s SpatialID) Tile() (z, x, y uint) {
	return s.Z, s.X, s.Y
}

// Meta returns the caller-supplied metadata.
func (s SpatialID) Meta() map[string]any {
	return s.Metadata
}

// slabHeight is the height in metres of one altitude slab at zoom z.
func slabHeight(z uint) float64 {
	return math.Pow(2, 25-float64(z))
}
