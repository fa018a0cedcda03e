package importer

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/airscope/coverage-cli/internal/model"
)

// FromXLSX reads address records from the first sheet of an xlsx workbook.
// The header row must contain an "address" column; "lat" and "lon" columns
// are optional and rows without them get zero coordinates for later geocode
// backfill.
func FromXLSX(path string) ([]model.InputRow, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 || len(f.Sheets[0].Rows) == 0 {
		return nil, eris.Errorf("importer: xlsx %s has no data", path)
	}

	sheet := f.Sheets[0]
	addrCol, latCol, lonCol := -1, -1, -1
	for i, cell := range sheet.Rows[0].Cells {
		switch strings.ToLower(strings.TrimSpace(cell.String())) {
		case "address":
			addrCol = i
		case "lat", "latitude":
			latCol = i
		case "lon", "lng", "longitude":
			lonCol = i
		}
	}
	if addrCol < 0 {
		return nil, eris.Errorf("importer: xlsx %s has no address column", path)
	}

	var rows []model.InputRow
	skipped := 0
	for _, row := range sheet.Rows[1:] {
		addr := strings.TrimSpace(cellAt(row, addrCol))
		if addr == "" {
			skipped++
			continue
		}

		var lat, lon float64
		if latCol >= 0 && lonCol >= 0 {
			var latErr, lonErr error
			lat, latErr = strconv.ParseFloat(strings.TrimSpace(cellAt(row, latCol)), 64)
			lon, lonErr = strconv.ParseFloat(strings.TrimSpace(cellAt(row, lonCol)), 64)
			if latErr != nil || lonErr != nil {
				lat, lon = 0, 0
			}
		}

		rows = append(rows, model.InputRow{Address: addr, Lat: lat, Lon: lon})
	}

	rows = dedupeRows(rows)
	zap.L().Info("importer: parsed xlsx",
		zap.String("path", path),
		zap.Int("rows", len(rows)),
		zap.Int("skipped", skipped),
	)
	return rows, nil
}

func cellAt(row *xlsx.Row, i int) string {
	if i < 0 || i >= len(row.Cells) {
		return ""
	}
	return row.Cells[i].String()
}
