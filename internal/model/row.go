// Package model holds the row and record types shared across the coverage
// indexes, the result store, and the HTTP layer.
package model

// InputRow is one candidate address from the input list (input.csv).
type InputRow struct {
	Address string  `csv:"address" json:"address"`
	Lat     float64 `csv:"lat" json:"lat"`
	Lon     float64 `csv:"lon" json:"lon"`
}

// ResultRow is one persisted eligibility check result. LatencySec and
// CheckedAt are opaque passthrough strings recorded by the external checker;
// the store and indexes never parse them.
type ResultRow struct {
	Address    string  `csv:"address" json:"address"`
	Lat        float64 `csv:"lat" json:"lat"`
	Lon        float64 `csv:"lon" json:"lon"`
	Eligible   bool    `csv:"eligible" json:"eligible"`
	StatusText string  `csv:"status_text" json:"status_text"`
	LatencySec string  `csv:"latency_sec" json:"latency_sec"`
	CheckedAt  string  `csv:"checked_at" json:"checked_at"`
}

// MapPoint is a bare address/coordinate pair returned by plain nearest
// queries.
type MapPoint struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// NearbyResult is one row returned by a nearest-eligible query. DistanceKm
// is the exact great-circle distance to the query point, rounded to 3
// decimal places for display.
type NearbyResult struct {
	Address    string  `json:"address"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Eligible   bool    `json:"eligible"`
	StatusText string  `json:"status_text"`
	LatencySec string  `json:"latency_sec"`
	CheckedAt  string  `json:"checked_at"`
	DistanceKm float64 `json:"distance_km"`
}
