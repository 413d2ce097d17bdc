/*
Package postgres provides a PostgreSQL-backed implementation of hotel.TxStore.

PURPOSE:
  Multi-instance persistence. Several API processes may share one
  database; together with the Redis room lock this keeps the calendar
  consistent across nodes.

OVERLAP ENFORCEMENT:
  An exclusion constraint rejects two blocking reservations on the same
  room whose [check_in, check_out) ranges intersect:

    EXCLUDE USING gist (room_id WITH =, tstzrange(check_in, check_out, '[)') WITH &&)
      WHERE (status IN ('confirmed', 'checked_in'))

  Violations surface as SQLSTATE 23P01 and are mapped to
  generic.ErrOverlap. Requires the btree_gist extension.

ERROR MAPPING:
  23P01 exclusion_violation   -> generic.ErrOverlap
  23505 unique_violation      -> generic.ErrDuplicateCode (code columns)
  40001 serialization_failure -> generic.ErrConcurrentModification

SEE ALSO:
  - store/sqldb/sqldb.go: queries
  - store/sqlite/sqlite.go: single-node equivalent
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/store/sqldb"
)

type Store struct {
	*sqldb.Store
}

// New connects to dsn, verifies the connection and migrates the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{Store: sqldb.New(db, sqldb.Dialect{Name: "postgres", MapError: mapError})}, nil
}

const schema = `
	CREATE EXTENSION IF NOT EXISTS btree_gist;

	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL,
		type TEXT NOT NULL,
		capacity INTEGER NOT NULL CHECK (capacity >= 1),
		base_price NUMERIC(12, 2) NOT NULL,
		currency TEXT NOT NULL,
		seasons JSONB NOT NULL DEFAULT '[]',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		status TEXT NOT NULL DEFAULT 'available',
		needs_cleaning BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		booking_number TEXT NOT NULL UNIQUE,
		confirmation_code TEXT NOT NULL UNIQUE,
		room_id TEXT NOT NULL REFERENCES rooms(id),
		room_type TEXT NOT NULL,
		guest_email TEXT NOT NULL,
		guest_name TEXT NOT NULL,
		guest_phone TEXT NOT NULL DEFAULT '',
		check_in TIMESTAMPTZ NOT NULL,
		check_out TIMESTAMPTZ NOT NULL,
		adults INTEGER NOT NULL,
		children INTEGER NOT NULL DEFAULT 0,
		special_requests TEXT NOT NULL DEFAULT '',
		pricing JSONB NOT NULL,
		total NUMERIC(12, 2) NOT NULL,
		status TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		payment_ref TEXT NOT NULL DEFAULT '',
		cancellation JSONB,
		checked_in_at TIMESTAMPTZ,
		checked_out_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		version INTEGER NOT NULL,
		CHECK (check_out > check_in)
	);

	DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'reservations_no_overlap') THEN
			ALTER TABLE reservations ADD CONSTRAINT reservations_no_overlap
				EXCLUDE USING gist (room_id WITH =, tstzrange(check_in, check_out, '[)') WITH &&)
				WHERE (status IN ('confirmed', 'checked_in'));
		END IF;
	END
	$$;

	CREATE INDEX IF NOT EXISTS idx_reservations_check_in ON reservations(check_in);
	CREATE INDEX IF NOT EXISTS idx_reservations_guest ON reservations(guest_email);

	CREATE TABLE IF NOT EXISTS guests (
		email TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		stays INTEGER NOT NULL DEFAULT 0,
		lifetime_spend NUMERIC(14, 2) NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT '',
		points BIGINT NOT NULL DEFAULT 0,
		tier TEXT NOT NULL DEFAULT 'bronze'
	);
`

// Reset deletes all data. Used by integration tests.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.DB().ExecContext(ctx, `TRUNCATE reservations, guests, rooms`)
	return err
}

func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23P01":
		return fmt.Errorf("%w: %s", generic.ErrOverlap, pqErr.Message)
	case "23505":
		if strings.Contains(pqErr.Constraint, "booking_number") || strings.Contains(pqErr.Constraint, "confirmation_code") {
			return fmt.Errorf("%w: %s", generic.ErrDuplicateCode, pqErr.Message)
		}
	case "40001":
		return fmt.Errorf("%w: %s", generic.ErrConcurrentModification, pqErr.Message)
	}
	return err
}
