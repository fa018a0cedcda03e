package importer

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/airscope/coverage-cli/internal/geo"
	"github.com/airscope/coverage-cli/internal/model"
)

// FromShapefile reads address records from a shapefile. addressField names
// the attribute carrying the display address (matched case-insensitively).
// Coordinates come from the shape's bounding-box center, which is the point
// itself for point shapes. When bbox is non-zero, records outside it are
// dropped.
func FromShapefile(path, addressField string, bbox geo.BBox) ([]model.InputRow, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	addrIdx := -1
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, addressField) {
			addrIdx = i
			break
		}
	}
	if addrIdx < 0 {
		return nil, eris.Errorf("importer: shapefile has no %q field", addressField)
	}

	var rows []model.InputRow
	skipped := 0
	for reader.Next() {
		_, shape := reader.Shape()
		if shape == nil {
			skipped++
			continue
		}

		addr := strings.TrimSpace(strings.TrimRight(reader.Attribute(addrIdx), "\x00"))
		if addr == "" {
			skipped++
			continue
		}

		box := shape.BBox()
		lon := (box.MinX + box.MaxX) / 2
		lat := (box.MinY + box.MaxY) / 2
		if !bbox.IsZero() && !bbox.Contains(lat, lon) {
			skipped++
			continue
		}

		rows = append(rows, model.InputRow{Address: addr, Lat: lat, Lon: lon})
	}

	rows = dedupeRows(rows)
	zap.L().Info("importer: parsed shapefile",
		zap.String("path", path),
		zap.Int("rows", len(rows)),
		zap.Int("skipped", skipped),
	)
	return rows, nil
}
