package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/airscope/coverage-cli/internal/model"
	"github.com/airscope/coverage-cli/pkg/geocode"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS results (
	id          TEXT PRIMARY KEY,
	address     TEXT NOT NULL,
	lat         REAL NOT NULL,
	lon         REAL NOT NULL,
	eligible    INTEGER NOT NULL,
	status_text TEXT NOT NULL DEFAULT '',
	latency_sec TEXT NOT NULL DEFAULT '',
	checked_at  TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash TEXT PRIMARY KEY,
	lat          REAL NOT NULL,
	lon          REAL NOT NULL,
	cached_at    DATETIME NOT NULL,
	expires_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_address ON results(address);
CREATE INDEX IF NOT EXISTS idx_results_created_at ON results(created_at);
CREATE INDEX IF NOT EXISTS idx_geocode_cache_expires_at ON geocode_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveResult(ctx context.Context, r model.ResultRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (id, address, lat, lon, eligible, status_text, latency_sec, checked_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), r.Address, r.Lat, r.Lon, r.Eligible,
		r.StatusText, r.LatencySec, r.CheckedAt, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save result for %s", r.Address)
}

func (s *SQLiteStore) FreshResult(ctx context.Context, address string, ttl time.Duration) (*model.ResultRow, error) {
	cutoff := time.Now().UTC().Add(-ttl)
	row := s.db.QueryRowContext(ctx,
		`SELECT address, lat, lon, eligible, status_text, latency_sec, checked_at
		 FROM results
		 WHERE address = ? AND created_at >= ?
		 ORDER BY created_at DESC LIMIT 1`,
		address, cutoff,
	)

	var r model.ResultRow
	err := row.Scan(&r.Address, &r.Lat, &r.Lon, &r.Eligible, &r.StatusText, &r.LatencySec, &r.CheckedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: fresh result for %s", address)
	}
	return &r, nil
}

func (s *SQLiteStore) ListResults(ctx context.Context, limit int) ([]model.ResultRow, error) {
	if limit <= 0 {
		limit = -1 // SQLite: LIMIT -1 means no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.address, r.lat, r.lon, r.eligible, r.status_text, r.latency_sec, r.checked_at
		 FROM results r
		 JOIN (SELECT address, MAX(created_at) AS newest FROM results GROUP BY address) m
		   ON r.address = m.address AND r.created_at = m.newest
		 ORDER BY r.created_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list results")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ResultRow
	for rows.Next() {
		var r model.ResultRow
		if err := rows.Scan(&r.Address, &r.Lat, &r.Lon, &r.Eligible, &r.StatusText, &r.LatencySec, &r.CheckedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list results iterate")
}

func (s *SQLiteStore) CountResults(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count results")
}

func (s *SQLiteStore) GetCachedGeocode(ctx context.Context, key string) (*geocode.Point, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT lat, lon FROM geocode_cache
		 WHERE address_hash = ? AND expires_at > ?`,
		key, time.Now().UTC(),
	)

	var pt geocode.Point
	err := row.Scan(&pt.Lat, &pt.Lon)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached geocode")
	}
	return &pt, nil
}

func (s *SQLiteStore) SetCachedGeocode(ctx context.Context, key string, pt geocode.Point, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO geocode_cache (address_hash, lat, lon, cached_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(address_hash) DO UPDATE SET
			lat=excluded.lat, lon=excluded.lon,
			cached_at=excluded.cached_at, expires_at=excluded.expires_at`,
		key, pt.Lat, pt.Lon, now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached geocode")
}
