package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airscope/coverage-cli/internal/geo"
	"github.com/airscope/coverage-cli/internal/model"
	"github.com/airscope/coverage-cli/pkg/geocode"
)

type fakeGeocoder struct {
	points map[string]geocode.Point
	err    error
}

func (f fakeGeocoder) Geocode(_ context.Context, address string) (geocode.Point, error) {
	if f.err != nil {
		return geocode.Point{}, f.err
	}
	pt, ok := f.points[address]
	if !ok {
		return geocode.Point{}, geocode.ErrNoMatch
	}
	return pt, nil
}

func (f fakeGeocoder) AddressesInBBox(context.Context, geo.BBox, int) ([]geocode.Address, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []geocode.Address{
		{Address: "100 Collins St", Lat: -37.81, Lon: 144.96},
		{Address: "100 COLLINS ST", Lat: -37.82, Lon: 144.97},
		{Address: "5 Bourke St", Lat: -37.80, Lon: 144.95},
	}, nil
}

func TestWriteInputCSV_RoundTrip(t *testing.T) {
	rows := []model.InputRow{
		{Address: "100 Collins St", Lat: -37.81, Lon: 144.96},
		{Address: "5 Bourke St", Lat: -37.80, Lon: 144.95},
	}

	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, WriteInputCSV(path, rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []model.InputRow
	require.NoError(t, csvutil.Unmarshal(data, &got))
	assert.Equal(t, rows, got)
}

func TestWriteInputCSV_OverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, WriteInputCSV(path, []model.InputRow{{Address: "old", Lat: 1, Lon: 2}}))
	require.NoError(t, WriteInputCSV(path, []model.InputRow{{Address: "new", Lat: 3, Lon: 4}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []model.InputRow
	require.NoError(t, csvutil.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Address)
}

func TestBackfillCoordinates(t *testing.T) {
	gc := fakeGeocoder{points: map[string]geocode.Point{
		"100 Collins St": {Lat: -37.81, Lon: 144.96},
	}}
	// First row needs geocoding, second already has coordinates, third is
	// not resolvable and keeps zero coordinates.
	rows := []model.InputRow{
		{Address: "100 Collins St"},
		{Address: "5 Bourke St", Lat: -37.80, Lon: 144.95},
		{Address: "nowhere at all"},
	}

	filled, err := BackfillCoordinates(context.Background(), gc, rows, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, filled)

	assert.InDelta(t, -37.81, rows[0].Lat, 1e-9)
	assert.InDelta(t, -37.80, rows[1].Lat, 1e-9)
	assert.Zero(t, rows[2].Lat)
}

func TestBackfillCoordinates_TransportErrorAborts(t *testing.T) {
	gc := fakeGeocoder{err: eris.New("nominatim: request")}
	rows := []model.InputRow{{Address: "100 Collins St"}}

	_, err := BackfillCoordinates(context.Background(), gc, rows, 2)
	require.Error(t, err)
}

func TestFromOverpass_Dedupes(t *testing.T) {
	rows, err := FromOverpass(context.Background(), fakeGeocoder{}, geo.BBox{}, 100)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "100 Collins St", rows[0].Address)
	assert.Equal(t, "5 Bourke St", rows[1].Address)
}

func TestDedupeRows(t *testing.T) {
	rows := dedupeRows([]model.InputRow{
		{Address: "100 Collins St"},
		{Address: " 100 collins st "},
		{Address: ""},
		{Address: "5 Bourke St"},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, "100 Collins St", rows[0].Address)
}
