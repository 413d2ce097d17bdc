/*
Package sqlite provides a SQLite-backed implementation of hotel.TxStore.

PURPOSE:
  Single-node persistence. Queries are shared with PostgreSQL through
  store/sqldb; this package owns the schema and error mapping.

OVERLAP ENFORCEMENT:
  BEFORE INSERT and BEFORE UPDATE triggers abort with 'reservation_overlap'
  when a blocking row (confirmed, checked_in) would share a night with
  another blocking row on the same room. The lifecycle manager's room
  lock normally prevents this; the trigger is the storage-level re-check.

KEY TABLES:
  rooms:        catalog (seasons as JSON text)
  reservations: unique booking_number and confirmation_code
  guests:       loyalty statistics

INDEXES:
  - idx_reservations_room_dates: overlap checks and the availability
    anti-join (hot path)
  - idx_reservations_check_in: listing and revenue reports
  - idx_reservations_guest: guest lookups

CONCURRENCY:
  The pool is limited to one connection, so every statement and
  transaction is serialized. This also keeps ":memory:" databases
  shared across calls.

COLUMN TYPES:
  Money is stored as TEXT so values round-trip exactly. Times use
  DATETIME so the driver parses them back into time.Time.

USAGE:
  store, err := sqlite.New("./data/booking.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool with versioned migrations.

SEE ALSO:
  - store/sqldb/sqldb.go: queries
  - hotel/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/store/sqldb"
)

const overlapMessage = "reservation_overlap"

// Store wraps the shared SQL store with the SQLite schema.
type Store struct {
	*sqldb.Store
}

// New opens (or creates) the database at dbPath and migrates it.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{Store: sqldb.New(db, sqldb.Dialect{Name: "sqlite", MapError: mapError})}, nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL,
		type TEXT NOT NULL,
		capacity INTEGER NOT NULL CHECK (capacity >= 1),
		base_price TEXT NOT NULL,
		currency TEXT NOT NULL,
		seasons TEXT NOT NULL DEFAULT '[]',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		status TEXT NOT NULL DEFAULT 'available',
		needs_cleaning BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at DATETIME NOT NULL
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
		check_in DATETIME NOT NULL,
		check_out DATETIME NOT NULL,
		adults INTEGER NOT NULL,
		children INTEGER NOT NULL DEFAULT 0,
		special_requests TEXT NOT NULL DEFAULT '',
		pricing TEXT NOT NULL,
		total TEXT NOT NULL,
		status TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		payment_ref TEXT NOT NULL DEFAULT '',
		cancellation TEXT,
		checked_in_at DATETIME,
		checked_out_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		version INTEGER NOT NULL,
		CHECK (check_out > check_in)
	);

	CREATE INDEX IF NOT EXISTS idx_reservations_room_dates
		ON reservations(room_id, check_in, check_out);
	CREATE INDEX IF NOT EXISTS idx_reservations_check_in
		ON reservations(check_in);
	CREATE INDEX IF NOT EXISTS idx_reservations_guest
		ON reservations(guest_email);

	-- CRITICAL: blocking reservations on one room never overlap
	CREATE TRIGGER IF NOT EXISTS reservations_no_overlap_insert
	BEFORE INSERT ON reservations
	WHEN NEW.status IN ('confirmed', 'checked_in')
	BEGIN
		SELECT RAISE(ABORT, 'reservation_overlap')
		WHERE EXISTS (
			SELECT 1 FROM reservations r
			WHERE r.room_id = NEW.room_id
			  AND r.id <> NEW.id
			  AND r.status IN ('confirmed', 'checked_in')
			  AND r.check_in < NEW.check_out
			  AND NEW.check_in < r.check_out
		);
	END;

	CREATE TRIGGER IF NOT EXISTS reservations_no_overlap_update
	BEFORE UPDATE ON reservations
	WHEN NEW.status IN ('confirmed', 'checked_in')
	BEGIN
		SELECT RAISE(ABORT, 'reservation_overlap')
		WHERE EXISTS (
			SELECT 1 FROM reservations r
			WHERE r.room_id = NEW.room_id
			  AND r.id <> NEW.id
			  AND r.status IN ('confirmed', 'checked_in')
			  AND r.check_in < NEW.check_out
			  AND NEW.check_in < r.check_out
		);
	END;

	CREATE TABLE IF NOT EXISTS guests (
		email TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		stays INTEGER NOT NULL DEFAULT 0,
		lifetime_spend TEXT NOT NULL DEFAULT '0',
		currency TEXT NOT NULL DEFAULT '',
		points INTEGER NOT NULL DEFAULT 0,
		tier TEXT NOT NULL DEFAULT 'bronze'
	);
`

// Reset deletes all data. Used by tests and the demo scenarios.
func (s *Store) Reset() error {
	_, err := s.DB().Exec(`DELETE FROM reservations; DELETE FROM guests; DELETE FROM rooms;`)
	return err
}

func mapError(err error) error {
	var sqlErr sqlite3.Error
	if !errors.As(err, &sqlErr) || sqlErr.Code != sqlite3.ErrConstraint {
		return err
	}
	msg := sqlErr.Error()
	switch {
	case strings.Contains(msg, overlapMessage):
		return fmt.Errorf("%w: %s", generic.ErrOverlap, msg)
	case sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique &&
		(strings.Contains(msg, "booking_number") || strings.Contains(msg, "confirmation_code")):
		return fmt.Errorf("%w: %s", generic.ErrDuplicateCode, msg)
	}
	return err
}
