package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Melbourne CBD anchor used throughout the tests.
const (
	testLat0 = -37.8136
	testLon0 = 144.9631
)

func TestProjection_AnchorIsOrigin(t *testing.T) {
	p := NewProjection(testLat0, testLon0)
	x, y := p.Project(testLat0, testLon0)
	assert.Zero(t, x)
	assert.Zero(t, y)
}

func TestProjection_Orientation(t *testing.T) {
	p := NewProjection(testLat0, testLon0)

	// North of the anchor: +y.
	_, y := p.Project(testLat0+0.01, testLon0)
	assert.Positive(t, y)

	// East of the anchor: +x.
	x, _ := p.Project(testLat0, testLon0+0.01)
	assert.Positive(t, x)

	// South-west: both negative.
	x, y = p.Project(testLat0-0.01, testLon0-0.01)
	assert.Negative(t, x)
	assert.Negative(t, y)
}

func TestProjection_KnownScale(t *testing.T) {
	p := NewProjection(testLat0, testLon0)

	// One degree of latitude is 110.574 km by construction.
	_, y := p.Project(testLat0+1, testLon0)
	assert.InDelta(t, 110.574, y, 1e-9)

	// One degree of longitude is 111.320*cos(lat0) km.
	x, _ := p.Project(testLat0, testLon0+1)
	assert.InDelta(t, 111.320*math.Cos(testLat0*math.Pi/180), x, 1e-9)
}

func TestProjection_Deterministic(t *testing.T) {
	p := NewProjection(testLat0, testLon0)

	x1, y1 := p.Project(-37.8201, 144.9512)
	x2, y2 := p.Project(-37.8201, 144.9512)
	assert.Equal(t, x1, x2) // bit-identical, not just close
	assert.Equal(t, y1, y2)
}

func TestProjection_ApproximatesHaversineNearAnchor(t *testing.T) {
	p := NewProjection(testLat0, testLon0)

	// ~1.5 km from the anchor: the planar distance should agree with the
	// great-circle distance to within a few meters.
	lat, lon := -37.8240, 144.9700
	x, y := p.Project(lat, lon)
	planar := math.Hypot(x, y)
	exact := HaversineKm(testLat0, testLon0, lat, lon)
	assert.InDelta(t, exact, planar, 0.005)
}

func TestProjectAll_ParallelArrays(t *testing.T) {
	p := NewProjection(testLat0, testLon0)

	lats := []float64{-37.81, -37.80, -37.82}
	lons := []float64{144.96, 144.95, 144.97}
	xs, ys := p.ProjectAll(lats, lons)
	require.Len(t, xs, 3)
	require.Len(t, ys, 3)

	for i := range lats {
		x, y := p.Project(lats[i], lons[i])
		assert.Equal(t, x, xs[i])
		assert.Equal(t, y, ys[i])
	}
}

func TestProjectAll_Empty(t *testing.T) {
	p := NewProjection(testLat0, testLon0)
	xs, ys := p.ProjectAll(nil, nil)
	assert.Empty(t, xs)
	assert.Empty(t, ys)
}
