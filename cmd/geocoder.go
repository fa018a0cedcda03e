package main

import (
	"time"

	"github.com/airscope/coverage-cli/internal/store"
	"github.com/airscope/coverage-cli/pkg/geocode"
)

// buildGeocoder assembles the configured geocoding client. When geocoding is
// disabled it returns the inert stub; otherwise the OSM client, wrapped with
// the store-backed lookup cache when a store is available.
func buildGeocoder(st store.Store) geocode.Client {
	if !cfg.Geocode.Enabled {
		return geocode.Empty{}
	}

	minInterval := time.Duration(cfg.Geocode.MinIntervalMS) * time.Millisecond
	nominatim := geocode.NewNominatim(geocode.NominatimOptions{
		BaseURL:        cfg.Geocode.NominatimURL,
		UserAgent:      cfg.Geocode.UserAgent,
		CountryCodes:   cfg.Geocode.CountryCodes,
		RegionSuffixes: cfg.Geocode.RegionSuffixes,
		MinInterval:    minInterval,
	})
	overpass := geocode.NewOverpass(geocode.OverpassOptions{
		BaseURL:     cfg.Geocode.OverpassURL,
		UserAgent:   cfg.Geocode.UserAgent,
		Region:      cfg.Geocode.Region,
		MinInterval: minInterval,
	})

	var client geocode.Client = geocode.NewOSM(nominatim, overpass)
	if st != nil {
		ttl := time.Duration(cfg.Geocode.CacheTTLHours) * time.Hour
		client = geocode.NewCached(client, st, ttl)
	}
	return client
}
