package spatial

import (
	"math"

	"github.com/airscope/coverage-cli/internal/geo"
	"github.com/airscope/coverage-cli/internal/model"
)

// ResultsIndex is a spatial index over previously checked eligibility
// results (results.csv). It answers k-nearest-eligible queries.
type ResultsIndex struct {
	index
}

// NewResultsIndex creates an empty, not-ready ResultsIndex using the given
// projection.
func NewResultsIndex(proj geo.Projection) *ResultsIndex {
	return &ResultsIndex{index{proj: proj}}
}

// EligibleCount returns the number of rows flagged eligible in the current
// snapshot.
func (ix *ResultsIndex) EligibleCount() int {
	snap := ix.snapshot()
	if snap == nil {
		return 0
	}
	n := 0
	for _, e := range snap.elig {
		if e {
			n++
		}
	}
	return n
}

// NearestEligible returns up to k eligible rows ordered by ascending
// distance from (lat, lon). An index with no data, or no eligible rows,
// returns an empty slice; a negative k returns ErrNegativeK. The reported
// DistanceKm is the exact haversine distance rounded to 3 decimal places,
// even though ranking uses the planar approximation.
func (ix *ResultsIndex) NearestEligible(lat, lon float64, k int) ([]model.NearbyResult, error) {
	if k < 0 {
		return nil, ErrNegativeK
	}
	snap := ix.snapshot()
	if snap == nil || k == 0 {
		return []model.NearbyResult{}, nil
	}
	if k > snap.len() {
		k = snap.len()
	}

	tx, ty := ix.proj.Project(lat, lon)
	sel := newSelector(k)
	for i := range snap.addr {
		if !snap.elig[i] {
			continue
		}
		dx, dy := snap.x[i]-tx, snap.y[i]-ty
		sel.offer(i, dx*dx+dy*dy)
	}

	chosen := sel.rows()
	out := make([]model.NearbyResult, 0, len(chosen))
	for _, i := range chosen {
		d := geo.HaversineKm(lat, lon, snap.lat[i], snap.lon[i])
		out = append(out, model.NearbyResult{
			Address:    snap.addr[i],
			Lat:        snap.lat[i],
			Lon:        snap.lon[i],
			Eligible:   true,
			StatusText: snap.status[i],
			LatencySec: snap.latency[i],
			CheckedAt:  snap.checkedAt[i],
			DistanceKm: math.Round(d*1000) / 1000,
		})
	}
	return out, nil
}

// Rows returns up to limit rows from the current snapshot in load order, for
// map rendering. A not-ready index returns an empty slice.
func (ix *ResultsIndex) Rows(limit int) []model.ResultRow {
	snap := ix.snapshot()
	if snap == nil || limit <= 0 {
		return []model.ResultRow{}
	}
	n := snap.len()
	if limit < n {
		n = limit
	}
	out := make([]model.ResultRow, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.ResultRow{
			Address:    snap.addr[i],
			Lat:        snap.lat[i],
			Lon:        snap.lon[i],
			Eligible:   snap.elig[i],
			StatusText: snap.status[i],
			LatencySec: snap.latency[i],
			CheckedAt:  snap.checkedAt[i],
		})
	}
	return out
}
