package geospatial

import (
	"math"

	"github.com/samirrijal/spatialtiles/internal/core/domain"
)

// WGS84 ellipsoid radii in metres.
const (
	WGS84SemiMajorAxis = 6378137.0
	WGS84SemiMinorAxis = 6356752.3142451793
)

var wgs84RadiiSquared = domain.Cartesian3{
	X: WGS84SemiMajorAxis * WGS84SemiMajorAxis,
	Y: WGS84SemiMajorAxis * WGS84SemiMajorAxis,
	Z: WGS84SemiMinorAxis * WGS84SemiMinorAxis,
}

// FromRadians converts a geodetic position (longitude and latitude in
// radians, height in metres above the WGS84 ellipsoid) to earth-centred
// cartesian coordinates.
func FromRadians(lon, lat, height float64) domain.Cartesian3 {
	cosLat := math.Cos(lat)
	n := normalize(domain.Cartesian3{
		X: cosLat * math.Cos(lon),
		Y: cosLat * math.Sin(lon),
		Z: math.Sin(lat),
	})

	k := domain.Cartesian3{
		X: wgs84RadiiSquared.X * n.X,
		Y: wgs84RadiiSquared.Y * n.Y,
		Z: wgs84RadiiSquared.Z * n.Z,
	}
	gamma := math.Sqrt(n.X*k.X + n.Y*k.Y + n.Z*k.Z)

	return domain.Cartesian3{
		X: k.X/gamma + n.X*height,
		Y: k.Y/gamma + n.Y*height,
		Z: k.Z/gamma + n.Z*height,
	}
}

// Distance returns the straight-line distance between two cartesian points.
func Distance(a, b domain.Cartesian3) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func normalize(v domain.Cartesian3) domain.Cartesian3 {
	m := math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
	return domain.Cartesian3{X: v.X / m, Y: v.Y / m, Z: v.Z / m}
}

// ToDegrees converts radians to degrees.
func ToDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
