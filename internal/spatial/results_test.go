package spatial

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airscope/coverage-cli/internal/geo"
)

// threeRows is the canonical fixture: A and C eligible, B closer than C but
// ineligible.
const threeRows = `address,lat,lon,eligible,status_text,latency_sec,checked_at
A,-37.81,144.96,true,ok,1.0,2025-08-01
B,-37.80,144.95,false,declined,1.1,2025-08-01
C,-37.82,144.97,true,ok,1.2,2025-08-01
`

func loadedResults(t *testing.T, csv string) *ResultsIndex {
	t.Helper()
	ix := NewResultsIndex(testProj)
	require.NoError(t, ix.Load(writeCSV(t, csv)))
	return ix
}

func TestNearestEligible_ScenarioOrdering(t *testing.T) {
	ix := loadedResults(t, threeRows)

	out, err := ix.NearestEligible(-37.81, 144.96, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Address) // distance 0
	assert.Equal(t, "C", out[1].Address) // only other eligible row
	assert.Zero(t, out[0].DistanceKm)
	assert.Positive(t, out[1].DistanceKm)
}

func TestNearestEligible_NeverReturnsIneligible(t *testing.T) {
	ix := loadedResults(t, threeRows)

	// Query from B's exact location: B is closest but ineligible.
	out, err := ix.NearestEligible(-37.80, 144.95, 3)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, r := range out {
		assert.NotEqual(t, "B", r.Address)
		assert.True(t, r.Eligible)
	}
}

func TestNearestEligible_KSemantics(t *testing.T) {
	ix := loadedResults(t, threeRows)

	// k = 0 returns empty.
	out, err := ix.NearestEligible(-37.81, 144.96, 0)
	require.NoError(t, err)
	assert.Empty(t, out)

	// k larger than eligible count returns all eligible rows, no padding.
	out, err = ix.NearestEligible(-37.81, 144.96, 100)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	// Negative k is caller misuse, not "no data".
	_, err = ix.NearestEligible(-37.81, 144.96, -1)
	require.ErrorIs(t, err, ErrNegativeK)
}

func TestNearestEligible_HugeKReturnsAllCandidates(t *testing.T) {
	ix := loadedResults(t, threeRows)

	// k far beyond any plausible dataset must not try to allocate k slots;
	// it degrades to "all eligible rows".
	out, err := ix.NearestEligible(-37.81, 144.96, math.MaxInt)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Address)
	assert.Equal(t, "C", out[1].Address)
}

func TestNearestEligible_ZeroEligibleRows(t *testing.T) {
	csv := `address,lat,lon,eligible
A,-37.81,144.96,false
B,-37.80,144.95,no
`
	ix := loadedResults(t, csv)
	require.True(t, ix.Ready())

	out, err := ix.NearestEligible(-37.81, 144.96, 5)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNearestEligible_SortedByDistance(t *testing.T) {
	var b strings.Builder
	b.WriteString("address,lat,lon,eligible\n")
	// Rows at increasing offsets north of the anchor, written out of order.
	offsets := []float64{0.009, 0.001, 0.007, 0.003, 0.005}
	for i, off := range offsets {
		fmt.Fprintf(&b, "P%d,%f,144.9631,true\n", i, -37.8136+off)
	}
	ix := loadedResults(t, b.String())

	out, err := ix.NearestEligible(-37.8136, 144.9631, 5)
	require.NoError(t, err)
	require.Len(t, out, 5)
	for i := 1; i < len(out); i++ {
		assert.LessOrEqual(t, out[i-1].DistanceKm, out[i].DistanceKm)
	}
	assert.Equal(t, "P1", out[0].Address) // smallest offset
	assert.Equal(t, "P0", out[4].Address) // largest offset
}

func TestNearestEligible_TieBreakByRowOrder(t *testing.T) {
	// Four rows at the exact same coordinates: ties resolve to load order,
	// deterministically, on every call.
	csv := `address,lat,lon,eligible
first,-37.8150,144.9700,true
second,-37.8150,144.9700,true
third,-37.8150,144.9700,true
fourth,-37.8150,144.9700,true
`
	ix := loadedResults(t, csv)

	for i := 0; i < 10; i++ {
		out, err := ix.NearestEligible(-37.8136, 144.9631, 2)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "first", out[0].Address)
		assert.Equal(t, "second", out[1].Address)
	}
}

func TestNearestEligible_DistanceIsHaversineRounded(t *testing.T) {
	ix := loadedResults(t, threeRows)

	out, err := ix.NearestEligible(-37.81, 144.96, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)

	exact := geo.HaversineKm(-37.81, 144.96, out[1].Lat, out[1].Lon)
	assert.InDelta(t, exact, out[1].DistanceKm, 0.0005) // 3 dp rounding
}

func TestRows_SnapshotInLoadOrder(t *testing.T) {
	ix := loadedResults(t, threeRows)

	rows := ix.Rows(10)
	require.Len(t, rows, 3)
	assert.Equal(t, "A", rows[0].Address)
	assert.Equal(t, "B", rows[1].Address)
	assert.False(t, rows[1].Eligible)

	rows = ix.Rows(2)
	assert.Len(t, rows, 2)

	assert.Empty(t, NewResultsIndex(testProj).Rows(10))
}

func TestNearestEligible_ConcurrentQueriesAndReloads(t *testing.T) {
	// Two complete datasets; every concurrent query must observe one or the
	// other, never a mixture. The datasets use disjoint address prefixes so
	// a torn snapshot would be visible in the results.
	oldCSV := `address,lat,lon,eligible
old-1,-37.810,144.960,true
old-2,-37.811,144.961,true
old-3,-37.812,144.962,true
`
	newCSV := `address,lat,lon,eligible
new-1,-37.810,144.960,true
new-2,-37.811,144.961,true
new-3,-37.812,144.962,true
new-4,-37.813,144.963,true
`
	oldPath := filepath.Join(t.TempDir(), "old.csv")
	newPath := filepath.Join(t.TempDir(), "new.csv")
	require.NoError(t, os.WriteFile(oldPath, []byte(oldCSV), 0o644))
	require.NoError(t, os.WriteFile(newPath, []byte(newCSV), 0o644))

	ix := NewResultsIndex(testProj)
	require.NoError(t, ix.Load(oldPath))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				out, err := ix.NearestEligible(-37.811, 144.961, 3)
				assert.NoError(t, err)
				if len(out) == 0 {
					continue
				}
				prefix := out[0].Address[:3]
				for _, r := range out {
					assert.Equal(t, prefix, r.Address[:3], "snapshot mixed old and new rows")
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		paths := []string{newPath, oldPath}
		for i := 0; i < 50; i++ {
			assert.NoError(t, ix.Load(paths[i%2]))
		}
	}()

	wg.Wait()

	// After the dust settles a fresh load is fully visible.
	require.NoError(t, ix.Load(newPath))
	assert.Equal(t, 4, ix.RowCount())
}
