// Package geo provides the planar projection and distance math used by the
// coverage indexes.
package geo

import "math"

const (
	// Kilometers per degree of latitude, and per degree of longitude at the
	// equator. Longitude shrinks with cos(lat) and is baked into the
	// projection at construction.
	kmPerDegLat        = 110.574
	kmPerDegLonEquator = 111.320
)

// Projection maps geographic coordinates onto a local planar grid in
// kilometers, anchored at a fixed reference point. It is an equirectangular
// approximation: +x is east, +y is north, and Euclidean distance in the
// plane tracks geographic distance well within a few kilometers of the
// anchor. It is not geodesically exact and degrades with distance, which is
// fine for the single-city areas this system serves.
type Projection struct {
	lat0        float64
	lon0        float64
	kmPerDegLon float64
}

// NewProjection builds a Projection anchored at (lat0, lon0). The cos(lat0)
// longitude scale is computed once here, never per call.
func NewProjection(lat0, lon0 float64) Projection {
	return Projection{
		lat0:        lat0,
		lon0:        lon0,
		kmPerDegLon: kmPerDegLonEquator * math.Cos(lat0*math.Pi/180),
	}
}

// Anchor returns the projection's reference point.
func (p Projection) Anchor() (lat, lon float64) {
	return p.lat0, p.lon0
}

// Project converts a single coordinate pair to planar (x, y) kilometers
// relative to the anchor. Pure function, safe for concurrent use.
func (p Projection) Project(lat, lon float64) (x, y float64) {
	return (lon - p.lon0) * p.kmPerDegLon, (lat - p.lat0) * kmPerDegLat
}

// ProjectAll converts parallel lat/lon slices to parallel x/y slices.
// The inputs must be the same length.
func (p Projection) ProjectAll(lats, lons []float64) (xs, ys []float64) {
	xs = make([]float64, len(lats))
	ys = make([]float64, len(lats))
	for i := range lats {
		xs[i], ys[i] = p.Project(lats[i], lons[i])
	}
	return xs, ys
}
