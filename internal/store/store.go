// Package store persists eligibility check results and the geocode lookup
// cache, with SQLite and Postgres backends selected by configuration.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/airscope/coverage-cli/internal/config"
	"github.com/airscope/coverage-cli/internal/model"
	"github.com/airscope/coverage-cli/pkg/geocode"
)

// Store defines the persistence interface for check results. It also
// satisfies geocode.CacheStore so the geocoder can share the same database.
type Store interface {
	// Results
	SaveResult(ctx context.Context, r model.ResultRow) error
	// FreshResult returns the newest result for address recorded within ttl,
	// or nil when there is none.
	FreshResult(ctx context.Context, address string, ttl time.Duration) (*model.ResultRow, error)
	// ListResults returns the newest result per address, most recent first.
	// limit <= 0 means no limit.
	ListResults(ctx context.Context, limit int) ([]model.ResultRow, error)
	CountResults(ctx context.Context) (int, error)

	// Geocode cache
	GetCachedGeocode(ctx context.Context, key string) (*geocode.Point, error)
	SetCachedGeocode(ctx context.Context, key string, pt geocode.Point, ttl time.Duration) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New creates the store backend named by cfg.Driver.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
