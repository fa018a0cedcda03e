package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/airscope/coverage-cli/internal/model"
	"github.com/airscope/coverage-cli/pkg/geocode"
)

// Pool is the subset of pgxpool.Pool the store uses. Tests substitute a
// pgxmock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS results (
	id          TEXT PRIMARY KEY,
	address     TEXT NOT NULL,
	lat         DOUBLE PRECISION NOT NULL,
	lon         DOUBLE PRECISION NOT NULL,
	eligible    BOOLEAN NOT NULL,
	status_text TEXT NOT NULL DEFAULT '',
	latency_sec TEXT NOT NULL DEFAULT '',
	checked_at  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash TEXT PRIMARY KEY,
	lat          DOUBLE PRECISION NOT NULL,
	lon          DOUBLE PRECISION NOT NULL,
	cached_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_address ON results(address);
CREATE INDEX IF NOT EXISTS idx_results_created_at ON results(created_at);
CREATE INDEX IF NOT EXISTS idx_geocode_cache_expires_at ON geocode_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveResult(ctx context.Context, r model.ResultRow) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO results (id, address, lat, lon, eligible, status_text, latency_sec, checked_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
		uuid.New().String(), r.Address, r.Lat, r.Lon, r.Eligible,
		r.StatusText, r.LatencySec, r.CheckedAt,
	)
	return eris.Wrapf(err, "postgres: save result for %s", r.Address)
}

func (s *PostgresStore) FreshResult(ctx context.Context, address string, ttl time.Duration) (*model.ResultRow, error) {
	var r model.ResultRow
	err := s.pool.QueryRow(ctx,
		`SELECT address, lat, lon, eligible, status_text, latency_sec, checked_at
		 FROM results
		 WHERE address = $1 AND created_at >= now() - $2::interval
		 ORDER BY created_at DESC LIMIT 1`,
		address, ttl.String(),
	).Scan(&r.Address, &r.Lat, &r.Lon, &r.Eligible, &r.StatusText, &r.LatencySec, &r.CheckedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: fresh result for %s", address)
	}
	return &r, nil
}

func (s *PostgresStore) ListResults(ctx context.Context, limit int) ([]model.ResultRow, error) {
	query := `
		SELECT address, lat, lon, eligible, status_text, latency_sec, checked_at FROM (
			SELECT DISTINCT ON (address) address, lat, lon, eligible, status_text, latency_sec, checked_at, created_at
			FROM results
			ORDER BY address, created_at DESC
		) newest ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list results")
	}
	defer rows.Close()

	var out []model.ResultRow
	for rows.Next() {
		var r model.ResultRow
		if err := rows.Scan(&r.Address, &r.Lat, &r.Lon, &r.Eligible, &r.StatusText, &r.LatencySec, &r.CheckedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list results iterate")
}

func (s *PostgresStore) CountResults(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM results`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count results")
}

func (s *PostgresStore) GetCachedGeocode(ctx context.Context, key string) (*geocode.Point, error) {
	var pt geocode.Point
	err := s.pool.QueryRow(ctx,
		`SELECT lat, lon FROM geocode_cache
		 WHERE address_hash = $1 AND expires_at > now()`,
		key,
	).Scan(&pt.Lat, &pt.Lon)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached geocode")
	}
	return &pt, nil
}

func (s *PostgresStore) SetCachedGeocode(ctx context.Context, key string, pt geocode.Point, ttl time.Duration) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO geocode_cache (address_hash, lat, lon, cached_at, expires_at)
		 VALUES ($1, $2, $3, now(), now() + $4::interval)
		 ON CONFLICT (address_hash) DO UPDATE SET
			lat=EXCLUDED.lat, lon=EXCLUDED.lon,
			cached_at=EXCLUDED.cached_at, expires_at=EXCLUDED.expires_at`,
		key, pt.Lat, pt.Lon, ttl.String(),
	)
	return eris.Wrap(err, "postgres: set cached geocode")
}
