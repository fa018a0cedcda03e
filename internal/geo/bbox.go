package geo

import "github.com/twpayne/go-geom"

// BBox is a geographic bounding box in the (south, west, north, east) order
// used by Overpass queries.
type BBox struct {
	South float64 `json:"south" yaml:"south" mapstructure:"south"`
	West  float64 `json:"west" yaml:"west" mapstructure:"west"`
	North float64 `json:"north" yaml:"north" mapstructure:"north"`
	East  float64 `json:"east" yaml:"east" mapstructure:"east"`
}

// Bounds converts the box to a go-geom Bounds in XY (lon, lat) order.
func (b BBox) Bounds() *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(b.West, b.South, b.East, b.North)
}

// Contains reports whether the point lies within the box, edges included.
func (b BBox) Contains(lat, lon float64) bool {
	return b.Bounds().OverlapsPoint(geom.XY, geom.Coord{lon, lat})
}

// IsZero reports whether the box is entirely unset.
func (b BBox) IsZero() bool {
	return b.South == 0 && b.West == 0 && b.North == 0 && b.East == 0
}
