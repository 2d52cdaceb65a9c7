package domain

// Cartesian3 is an earth-centred, earth-fixed point or extent in metres.
type Cartesian3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Region is [west, south, east, north, minHeight, maxHeight] with angles in
// radians and heights in metres above the ellipsoid.
type Region [6]float64

func (r Region) West() float64      { return r[0] }
func (r Region) South() float64     { return r[1] }
func (r Region) East() float64      { return r[2] }
func (r Region) North() float64     { return r[3] }
func (r Region) MinHeight() float64 { return r[4] }
func (r Region) MaxHeight() float64 { return r[5] }

// Cuboid is a tile-aligned box: a geodetic bounding region plus the
// cartesian centre and size used to place one instance of a unit box.
type Cuboid struct {
	Region   Region         `json:"region"`
	Scale    Cartesian3     `json:"scale"`
	Location Cartesian3     `json:"location"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// GeoidRaster is a decoded single-band geoid undulation grid. Row 0 is the
// north edge. BoundingBox is [west, south, east, north] in degrees.
type GeoidRaster struct {
	Buffer      []float32
	Width       int
	Height      int
	BoundingBox [4]float64
}

// GeoidNoData marks a raster cell without a value.
const GeoidNoData = -32768
