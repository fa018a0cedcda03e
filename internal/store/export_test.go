package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jszwec/csvutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/airscope/coverage-cli/internal/model"
)

func TestExportResultsCSV(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveResult(ctx, sampleResult("100 Collins St", true)))
	require.NoError(t, st.SaveResult(ctx, sampleResult("5 Bourke St", false)))

	path := filepath.Join(t.TempDir(), "results.csv")
	n, err := ExportResultsCSV(ctx, st, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rows []model.ResultRow
	require.NoError(t, csvutil.Unmarshal(data, &rows))
	require.Len(t, rows, 2)

	byAddr := map[string]model.ResultRow{}
	for _, r := range rows {
		byAddr[r.Address] = r
	}
	assert.True(t, byAddr["100 Collins St"].Eligible)
	assert.False(t, byAddr["5 Bourke St"].Eligible)
	assert.Equal(t, "1.52", byAddr["100 Collins St"].LatencySec)
}

func TestExportResultsCSV_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	path := filepath.Join(t.TempDir(), "results.csv")
	n, err := ExportResultsCSV(context.Background(), st, path)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// Header-only file is still written.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestExportResultsXLSX(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveResult(ctx, sampleResult("100 Collins St", true)))

	path := filepath.Join(t.TempDir(), "results.xlsx")
	n, err := ExportResultsXLSX(ctx, st, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	require.Len(t, f.Sheets[0].Rows, 2) // header + one result
	assert.Equal(t, "100 Collins St", f.Sheets[0].Rows[1].Cells[0].String())
	assert.Equal(t, "true", f.Sheets[0].Rows[1].Cells[3].String())
}
