// Package geocode talks to the external address collaborators: Nominatim
// for forward geocoding and Overpass for discovering addresses inside a
// bounding box. Both are consumed through the Client interface so the rest
// of the application never depends on a concrete backend.
package geocode

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/airscope/coverage-cli/internal/geo"
)

// Point is a geocoded coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Address is one candidate address with coordinates, as returned by the
// bounding-box fetch.
type Address struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Client is the geocoding contract consumed by the application.
type Client interface {
	// Geocode resolves a free-form address to coordinates. Returns
	// ErrNoMatch when the address cannot be resolved.
	Geocode(ctx context.Context, address string) (Point, error)

	// AddressesInBBox returns up to limit deduplicated addresses with
	// coordinates inside the box.
	AddressesInBBox(ctx context.Context, bbox geo.BBox, limit int) ([]Address, error)
}

// ErrNoMatch reports that an address could not be geocoded by any candidate
// query.
var ErrNoMatch = eris.New("geocode: address could not be geocoded")

// ErrDisabled reports that geocoding is turned off in configuration.
var ErrDisabled = eris.New("geocode: geocoding is disabled")

// Empty is the inert Client used when external geocoding is disabled. It is
// an explicit stub selected at construction time, not a silent fallback.
type Empty struct{}

// Geocode implements Client.
func (Empty) Geocode(context.Context, string) (Point, error) {
	return Point{}, ErrDisabled
}

// AddressesInBBox implements Client.
func (Empty) AddressesInBBox(context.Context, geo.BBox, int) ([]Address, error) {
	return []Address{}, nil
}

// OSM implements Client against the public OpenStreetMap services.
type OSM struct {
	nominatim *Nominatim
	overpass  *Overpass
}

// NewOSM combines a Nominatim geocoder and an Overpass address fetcher into
// a single Client.
func NewOSM(nominatim *Nominatim, overpass *Overpass) *OSM {
	return &OSM{nominatim: nominatim, overpass: overpass}
}

// Geocode implements Client.
func (o *OSM) Geocode(ctx context.Context, address string) (Point, error) {
	return o.nominatim.Geocode(ctx, address)
}

// AddressesInBBox implements Client.
func (o *OSM) AddressesInBBox(ctx context.Context, bbox geo.BBox, limit int) ([]Address, error) {
	return o.overpass.AddressesInBBox(ctx, bbox, limit)
}
