// Package store opens the storage backend named by configuration. The
// backends themselves live in the sqlite, postgres and hotel/store
// (memory) packages.
package store

import (
	"context"
	"fmt"

	"github.com/warp/booking-engine/config"
	"github.com/warp/booking-engine/hotel"
	memstore "github.com/warp/booking-engine/hotel/store"
	"github.com/warp/booking-engine/store/postgres"
	"github.com/warp/booking-engine/store/sqlite"
)

// Handle is an open store plus the lifecycle hooks the binaries need.
type Handle struct {
	hotel.TxStore

	// Reset empties every table. Used by scenario loading.
	Reset func(ctx context.Context) error
	Close func() error
}

// Open connects to the backend selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg config.Config) (*Handle, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		s, err := postgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return &Handle{TxStore: s, Reset: s.Reset, Close: s.Close}, nil

	case config.DriverMemory:
		s := memstore.NewMemory()
		return &Handle{
			TxStore: s,
			Reset: func(context.Context) error {
				s.Reset()
				return nil
			},
			Close: func() error { return nil },
		}, nil

	case config.DriverSQLite:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		return &Handle{
			TxStore: s,
			Reset:   func(context.Context) error { return s.Reset() },
			Close:   s.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
