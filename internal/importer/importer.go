// Package importer builds the candidate address list (input.csv) from
// external sources: shapefiles, xlsx workbooks, and Overpass bounding-box
// fetches.
package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/airscope/coverage-cli/internal/geo"
	"github.com/airscope/coverage-cli/internal/model"
	"github.com/airscope/coverage-cli/pkg/geocode"
)

// WriteInputCSV writes rows to a CSV file at path, via a temporary sibling
// and rename so a concurrent index reload never reads a partial file.
func WriteInputCSV(path string, rows []model.InputRow) error {
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return eris.Wrap(err, "importer: marshal csv")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return eris.Wrap(err, "importer: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrap(err, "importer: write csv")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrap(err, "importer: close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrap(err, "importer: rename into place")
	}
	return nil
}

// BackfillCoordinates geocodes rows that have no coordinates, mutating them
// in place with up to workers concurrent lookups. Rows whose address cannot
// be resolved keep zero coordinates; only transport-level failures abort.
func BackfillCoordinates(ctx context.Context, gc geocode.Client, rows []model.InputRow, workers int) (int, error) {
	if workers <= 0 {
		workers = 4
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	filled := 0

	for i := range rows {
		if rows[i].Lat != 0 || rows[i].Lon != 0 {
			continue
		}
		if strings.TrimSpace(rows[i].Address) == "" {
			continue
		}

		row := &rows[i]
		g.Go(func() error {
			pt, err := gc.Geocode(ctx, row.Address)
			if err != nil {
				if eris.Is(err, geocode.ErrNoMatch) {
					zap.L().Warn("importer: address not geocodable",
						zap.String("address", row.Address),
					)
					return nil
				}
				return eris.Wrapf(err, "importer: geocode %s", row.Address)
			}
			row.Lat, row.Lon = pt.Lat, pt.Lon
			mu.Lock()
			filled++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return filled, err
	}
	return filled, nil
}

// FromOverpass fetches up to limit addresses inside bbox from the geocoding
// client's bounding-box source.
func FromOverpass(ctx context.Context, gc geocode.Client, bbox geo.BBox, limit int) ([]model.InputRow, error) {
	addrs, err := gc.AddressesInBBox(ctx, bbox, limit)
	if err != nil {
		return nil, eris.Wrap(err, "importer: fetch addresses")
	}

	rows := make([]model.InputRow, 0, len(addrs))
	for _, a := range addrs {
		rows = append(rows, model.InputRow{Address: a.Address, Lat: a.Lat, Lon: a.Lon})
	}
	rows = dedupeRows(rows)

	zap.L().Info("importer: fetched overpass addresses", zap.Int("rows", len(rows)))
	return rows, nil
}

// dedupeRows removes duplicate addresses case-insensitively, keeping the
// first occurrence.
func dedupeRows(rows []model.InputRow) []model.InputRow {
	seen := make(map[string]bool, len(rows))
	out := rows[:0]
	for _, r := range rows {
		key := strings.ToLower(strings.TrimSpace(r.Address))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}
