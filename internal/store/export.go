package store

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// ExportResultsCSV writes the newest result per address to a CSV file at
// path. The file is written to a temporary sibling and renamed so readers
// never observe a partial file.
func ExportResultsCSV(ctx context.Context, st Store, path string) (int, error) {
	results, err := st.ListResults(ctx, 0)
	if err != nil {
		return 0, eris.Wrap(err, "export: list results")
	}

	data, err := csvutil.Marshal(results)
	if err != nil {
		return 0, eris.Wrap(err, "export: marshal csv")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return 0, eris.Wrap(err, "export: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck
		os.Remove(tmpName) //nolint:errcheck
		return 0, eris.Wrap(err, "export: write csv")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return 0, eris.Wrap(err, "export: close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return 0, eris.Wrap(err, "export: rename into place")
	}

	zap.L().Info("export: wrote results csv",
		zap.String("path", path),
		zap.Int("rows", len(results)),
	)
	return len(results), nil
}

// ExportResultsXLSX writes the newest result per address to an xlsx workbook
// with a single Results sheet.
func ExportResultsXLSX(ctx context.Context, st Store, path string) (int, error) {
	results, err := st.ListResults(ctx, 0)
	if err != nil {
		return 0, eris.Wrap(err, "export: list results")
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Results")
	if err != nil {
		return 0, eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"address", "lat", "lon", "eligible", "status_text", "latency_sec", "checked_at"} {
		header.AddCell().SetString(h)
	}
	for _, r := range results {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Address)
		row.AddCell().SetFloat(r.Lat)
		row.AddCell().SetFloat(r.Lon)
		row.AddCell().SetString(strconv.FormatBool(r.Eligible))
		row.AddCell().SetString(r.StatusText)
		row.AddCell().SetString(r.LatencySec)
		row.AddCell().SetString(r.CheckedAt)
	}

	if err := f.Save(path); err != nil {
		return 0, eris.Wrap(err, "export: save xlsx")
	}

	zap.L().Info("export: wrote results xlsx",
		zap.String("path", path),
		zap.Int("rows", len(results)),
	)
	return len(results), nil
}
