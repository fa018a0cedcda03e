package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// cbdBox is the Melbourne CBD bounding box used as the default import area.
var cbdBox = BBox{South: -37.8265, West: 144.9475, North: -37.8060, East: 144.9835}

func TestBBox_Contains(t *testing.T) {
	assert.True(t, cbdBox.Contains(-37.8136, 144.9631)) // city center
	assert.False(t, cbdBox.Contains(-37.90, 144.9631))  // south of box
	assert.False(t, cbdBox.Contains(-37.8136, 145.10))  // east of box
}

func TestBBox_ContainsEdges(t *testing.T) {
	assert.True(t, cbdBox.Contains(cbdBox.South, cbdBox.West))
	assert.True(t, cbdBox.Contains(cbdBox.North, cbdBox.East))
}

func TestBBox_IsZero(t *testing.T) {
	assert.True(t, BBox{}.IsZero())
	assert.False(t, cbdBox.IsZero())
}
