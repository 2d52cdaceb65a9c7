package geospatial

import (
	"math"

	"github.com/paulmach/orb/maptile"
)

// Rectangle is a geodetic rectangle in radians.
type Rectangle struct {
	West, South, East, North float64
}

// TileRectangle returns the geodetic rectangle of Web-Mercator tile (x, y) at
// zoom z. Tile (0, 0) is the north-west corner and each axis has 2^z tiles.
// Out-of-range coordinates are not rejected.
func TileRectangle(z, x, y uint) Rectangle {
	b := maptile.New(uint32(x), uint32(y), maptile.Zoom(z)).Bound()
	return Rectangle{
		West:  toRad(b.Min.Lon()),
		South: toRad(b.Min.Lat()),
		East:  toRad(b.Max.Lon()),
		North: toRad(b.Max.Lat()),
	}
}

// Center returns the centre longitude and latitude of the rectangle,
// accounting for rectangles that cross the antimeridian.
func (r Rectangle) Center() (lon, lat float64) {
	east := r.East
	if east < r.West {
		east += 2 * math.Pi
	}
	lon = negativePiToPi((r.West + east) * 0.5)
	lat = (r.South + r.North) * 0.5
	return lon, lat
}

func negativePiToPi(angle float64) float64 {
	if angle >= -math.Pi && angle <= math.Pi {
		return angle
	}
	m := math.Mod(angle+math.Pi, 2*math.Pi)
	if m < 0 {
		m += 2 * math.Pi
	}
	return m - math.Pi
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
