// Package spatial implements the in-memory coverage indexes: columnar
// snapshots of address rows projected onto a local planar grid, answering
// k-nearest queries under concurrent reads and reloads.
package spatial

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/airscope/coverage-cli/internal/geo"
)

// ErrNegativeK reports caller misuse of a nearest query. It is deliberately
// distinct from the empty result returned when no data is loaded.
var ErrNegativeK = eris.New("spatial: k must be >= 0")

// snapshot is one complete, internally consistent dataset. All slices are
// parallel: index i across every column describes the same row. A snapshot
// is never mutated after publication; reloads build a replacement and swap
// the pointer.
type snapshot struct {
	addr      []string
	lat       []float64
	lon       []float64
	x         []float64
	y         []float64
	elig      []bool
	status    []string
	latency   []string
	checkedAt []string
}

func (s *snapshot) len() int { return len(s.addr) }

// csvRow mirrors the on-disk column layout. Every field is read as a string
// so that one malformed value drops a single row instead of failing the
// load; input.csv simply leaves the result-only columns empty.
type csvRow struct {
	Address   string `csv:"address"`
	Lat       string `csv:"lat"`
	Lon       string `csv:"lon"`
	Eligible  string `csv:"eligible"`
	Status    string `csv:"status_text"`
	Latency   string `csv:"latency_sec"`
	CheckedAt string `csv:"checked_at"`
}

// parseEligible is the lenient truthy matcher for the eligible column.
// Anything outside the known truthy set is false, including empty and
// missing values.
func parseEligible(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "y", "t":
		return true
	}
	return false
}

// finite reports whether f is a usable coordinate value.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// loadSnapshot parses the delimited source at path into a snapshot. A
// missing file, an empty file, or a file yielding zero valid rows all
// return (nil, nil): that is the normal not-ready state, not an error.
// Rows with an empty address or a non-finite lat/lon are dropped silently.
func loadSnapshot(proj geo.Projection, path string) (*snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "spatial: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	dec, err := csvutil.NewDecoder(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "spatial: read header %s", path)
	}

	snap := &snapshot{}
	dropped := 0
	for {
		var row csvRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// Malformed record: skip it like any other invalid row.
			dropped++
			continue
		}

		addr := strings.TrimSpace(row.Address)
		if addr == "" {
			dropped++
			continue
		}
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(row.Lat), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(row.Lon), 64)
		if latErr != nil || lonErr != nil || !finite(lat) || !finite(lon) {
			dropped++
			continue
		}

		snap.addr = append(snap.addr, addr)
		snap.lat = append(snap.lat, lat)
		snap.lon = append(snap.lon, lon)
		snap.elig = append(snap.elig, parseEligible(row.Eligible))
		snap.status = append(snap.status, strings.TrimSpace(row.Status))
		snap.latency = append(snap.latency, strings.TrimSpace(row.Latency))
		snap.checkedAt = append(snap.checkedAt, strings.TrimSpace(row.CheckedAt))
	}

	if snap.len() == 0 {
		return nil, nil
	}
	snap.x, snap.y = proj.ProjectAll(snap.lat, snap.lon)

	zap.L().Debug("spatial: snapshot loaded",
		zap.String("path", path),
		zap.Int("rows", snap.len()),
		zap.Int("dropped", dropped),
	)
	return snap, nil
}

// index is the shared machinery behind ResultsIndex and InputIndex: it owns
// the current snapshot pointer and the lock discipline. Readers take the
// pointer under RLock and then work on the immutable snapshot without
// holding the lock; Load swaps the pointer under the write lock. A query
// racing a reload sees either the old or the new complete snapshot, never a
// mix.
type index struct {
	proj geo.Projection
	mu   sync.RWMutex
	snap *snapshot
}

// Load replaces the index contents with rows parsed from path. A missing or
// empty source resets the index to not-ready and returns nil.
func (ix *index) Load(path string) error {
	snap, err := loadSnapshot(ix.proj, path)
	if err != nil {
		return err
	}
	ix.mu.Lock()
	ix.snap = snap
	ix.mu.Unlock()
	return nil
}

// Ready reports whether a load has succeeded with at least one valid row
// since the last reset.
func (ix *index) Ready() bool {
	return ix.snapshot() != nil
}

// RowCount returns the number of rows in the current snapshot.
func (ix *index) RowCount() int {
	snap := ix.snapshot()
	if snap == nil {
		return 0
	}
	return snap.len()
}

func (ix *index) snapshot() *snapshot {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.snap
}
