package spatial

import (
	"github.com/airscope/coverage-cli/internal/geo"
	"github.com/airscope/coverage-cli/internal/model"
)

// InputIndex is a spatial index over the candidate address list (input.csv).
// It has no eligibility attribute and answers plain k-nearest queries, used
// for candidate generation.
type InputIndex struct {
	index
}

// NewInputIndex creates an empty, not-ready InputIndex using the given
// projection.
func NewInputIndex(proj geo.Projection) *InputIndex {
	return &InputIndex{index{proj: proj}}
}

// Nearest returns up to k rows ordered by ascending distance from
// (lat, lon), unconditionally across the whole dataset. A not-ready index
// returns an empty slice; a negative k returns ErrNegativeK.
func (ix *InputIndex) Nearest(lat, lon float64, k int) ([]model.MapPoint, error) {
	if k < 0 {
		return nil, ErrNegativeK
	}
	snap := ix.snapshot()
	if snap == nil || k == 0 {
		return []model.MapPoint{}, nil
	}
	if k > snap.len() {
		k = snap.len()
	}

	tx, ty := ix.proj.Project(lat, lon)
	sel := newSelector(k)
	for i := range snap.addr {
		dx, dy := snap.x[i]-tx, snap.y[i]-ty
		sel.offer(i, dx*dx+dy*dy)
	}

	chosen := sel.rows()
	out := make([]model.MapPoint, 0, len(chosen))
	for _, i := range chosen {
		out = append(out, model.MapPoint{
			Address: snap.addr[i],
			Lat:     snap.lat[i],
			Lon:     snap.lon[i],
		})
	}
	return out, nil
}
