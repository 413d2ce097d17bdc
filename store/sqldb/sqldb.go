/*
Package sqldb holds the SQL shared by the SQLite and PostgreSQL stores.

PURPOSE:
  Both databases speak the same queries once placeholders are rebound,
  so rows, scanning and query building live here. Each driver package
  supplies its schema, its constraint that rejects overlapping blocking
  reservations, and a Dialect that maps driver errors onto the generic
  store errors.

TABLES:
  rooms:        catalog, seasons as a JSON document
  reservations: one row per reservation, pricing and cancellation as JSON
  guests:       loyalty statistics keyed by normalized email

QUERIES:
  Written with '?' placeholders and rebound through sqlx for the driver.
  Money columns round-trip through decimal.Decimal's Scanner/Valuer.
  Times are written in UTC.

SEE ALSO:
  - store/sqlite/sqlite.go: triggers, single connection
  - store/postgres/postgres.go: exclusion constraint
  - hotel/store.go: the contract implemented here
*/
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/hotel"
	"github.com/warp/booking-engine/loyalty"
)

// Dialect captures what differs between drivers.
type Dialect struct {
	Name string
	// MapError translates constraint violations into generic.ErrOverlap,
	// generic.ErrDuplicateCode or generic.ErrConcurrentModification.
	// Other errors are returned unchanged.
	MapError func(error) error
}

func (d Dialect) mapError(err error) error {
	if err == nil || d.MapError == nil {
		return err
	}
	return d.MapError(err)
}

// =============================================================================
// STORE
// =============================================================================

// Store implements hotel.TxStore over any sqlx database.
type Store struct {
	*Queries
	db *sqlx.DB
}

func New(db *sqlx.DB, dialect Dialect) *Store {
	return &Store{Queries: &Queries{q: db, dialect: dialect}, db: db}
}

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// WithTx runs fn in one database transaction. Reads inside fn see the
// transaction's own writes.
func (s *Store) WithTx(ctx context.Context, fn func(hotel.Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Queries{q: tx, dialect: s.dialect}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return s.dialect.mapError(fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}

var _ hotel.TxStore = (*Store)(nil)

// Queries runs every statement against either the pool or a transaction.
type Queries struct {
	q       sqlx.ExtContext
	dialect Dialect
}

// =============================================================================
// ROWS
// =============================================================================

type roomRow struct {
	ID            string          `db:"id"`
	Number        string          `db:"number"`
	Type          string          `db:"type"`
	Capacity      int             `db:"capacity"`
	BasePrice     decimal.Decimal `db:"base_price"`
	Currency      string          `db:"currency"`
	Seasons       string          `db:"seasons"`
	Active        bool            `db:"active"`
	Status        string          `db:"status"`
	NeedsCleaning bool            `db:"needs_cleaning"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func newRoomRow(r hotel.Room) (roomRow, error) {
	seasons := r.Seasons
	if seasons == nil {
		seasons = []hotel.SeasonalRate{}
	}
	raw, err := json.Marshal(seasons)
	if err != nil {
		return roomRow{}, fmt.Errorf("failed to encode seasons: %w", err)
	}
	status := r.Status
	if status == "" {
		status = hotel.RoomAvailable
	}
	return roomRow{
		ID:            string(r.ID),
		Number:        r.Number,
		Type:          string(r.Type),
		Capacity:      r.Capacity,
		BasePrice:     r.BasePrice.Value,
		Currency:      string(r.BasePrice.Currency),
		Seasons:       string(raw),
		Active:        r.Active,
		Status:        string(status),
		NeedsCleaning: r.NeedsCleaning,
		UpdatedAt:     r.UpdatedAt.UTC(),
	}, nil
}

func (row roomRow) room() (hotel.Room, error) {
	var seasons []hotel.SeasonalRate
	if row.Seasons != "" {
		if err := json.Unmarshal([]byte(row.Seasons), &seasons); err != nil {
			return hotel.Room{}, fmt.Errorf("room %s: failed to decode seasons: %w", row.ID, err)
		}
	}
	if len(seasons) == 0 {
		seasons = nil
	}
	return hotel.Room{
		ID:            hotel.RoomID(row.ID),
		Number:        row.Number,
		Type:          hotel.RoomType(row.Type),
		Capacity:      row.Capacity,
		BasePrice:     generic.Money{Value: row.BasePrice, Currency: generic.Currency(row.Currency)},
		Seasons:       seasons,
		Active:        row.Active,
		Status:        hotel.RoomStatus(row.Status),
		NeedsCleaning: row.NeedsCleaning,
		UpdatedAt:     row.UpdatedAt.UTC(),
	}, nil
}

type reservationRow struct {
	ID               string         `db:"id"`
	BookingNumber    string         `db:"booking_number"`
	ConfirmationCode string         `db:"confirmation_code"`
	RoomID           string         `db:"room_id"`
	RoomType         string         `db:"room_type"`
	GuestEmail       string         `db:"guest_email"`
	GuestName        string         `db:"guest_name"`
	GuestPhone       string         `db:"guest_phone"`
	CheckIn          time.Time      `db:"check_in"`
	CheckOut         time.Time      `db:"check_out"`
	Adults           int            `db:"adults"`
	Children         int            `db:"children"`
	SpecialRequests  string         `db:"special_requests"`
	Pricing          string         `db:"pricing"`
	Total            string         `db:"total"`
	Status           string         `db:"status"`
	PaymentStatus    string         `db:"payment_status"`
	PaymentRef       string         `db:"payment_ref"`
	Cancellation     sql.NullString `db:"cancellation"`
	CheckedInAt      sql.NullTime   `db:"checked_in_at"`
	CheckedOutAt     sql.NullTime   `db:"checked_out_at"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
	Version          int            `db:"version"`
}

func newReservationRow(r hotel.Reservation) (reservationRow, error) {
	pricing, err := json.Marshal(r.Pricing)
	if err != nil {
		return reservationRow{}, fmt.Errorf("failed to encode pricing: %w", err)
	}
	row := reservationRow{
		ID:               string(r.ID),
		BookingNumber:    r.BookingNumber,
		ConfirmationCode: r.ConfirmationCode,
		RoomID:           string(r.RoomID),
		RoomType:         string(r.RoomType),
		GuestEmail:       r.Guest.Email,
		GuestName:        r.Guest.Name,
		GuestPhone:       r.Guest.Phone,
		CheckIn:          r.CheckIn.UTC(),
		CheckOut:         r.CheckOut.UTC(),
		Adults:           r.Occupancy.Adults,
		Children:         r.Occupancy.Children,
		SpecialRequests:  r.SpecialRequests,
		Pricing:          string(pricing),
		Total:            r.Pricing.Total.Value.String(),
		Status:           string(r.Status),
		PaymentStatus:    string(r.PaymentStatus),
		PaymentRef:       r.PaymentRef,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
		Version:          r.Version,
	}
	if r.Cancellation != nil {
		raw, err := json.Marshal(r.Cancellation)
		if err != nil {
			return reservationRow{}, fmt.Errorf("failed to encode cancellation: %w", err)
		}
		row.Cancellation = sql.NullString{String: string(raw), Valid: true}
	}
	if r.CheckedInAt != nil {
		row.CheckedInAt = sql.NullTime{Time: r.CheckedInAt.UTC(), Valid: true}
	}
	if r.CheckedOutAt != nil {
		row.CheckedOutAt = sql.NullTime{Time: r.CheckedOutAt.UTC(), Valid: true}
	}
	return row, nil
}

func (row reservationRow) reservation() (hotel.Reservation, error) {
	r := hotel.Reservation{
		ID:               hotel.ReservationID(row.ID),
		BookingNumber:    row.BookingNumber,
		ConfirmationCode: row.ConfirmationCode,
		RoomID:           hotel.RoomID(row.RoomID),
		RoomType:         hotel.RoomType(row.RoomType),
		Guest:            hotel.Guest{Email: row.GuestEmail, Name: row.GuestName, Phone: row.GuestPhone},
		CheckIn:          row.CheckIn.UTC(),
		CheckOut:         row.CheckOut.UTC(),
		Occupancy:        hotel.Occupancy{Adults: row.Adults, Children: row.Children},
		SpecialRequests:  row.SpecialRequests,
		Status:           hotel.Status(row.Status),
		PaymentStatus:    hotel.PaymentStatus(row.PaymentStatus),
		PaymentRef:       row.PaymentRef,
		CreatedAt:        row.CreatedAt.UTC(),
		UpdatedAt:        row.UpdatedAt.UTC(),
		Version:          row.Version,
	}
	if err := json.Unmarshal([]byte(row.Pricing), &r.Pricing); err != nil {
		return hotel.Reservation{}, fmt.Errorf("reservation %s: failed to decode pricing: %w", row.ID, err)
	}
	if row.Cancellation.Valid && row.Cancellation.String != "" {
		var c hotel.Cancellation
		if err := json.Unmarshal([]byte(row.Cancellation.String), &c); err != nil {
			return hotel.Reservation{}, fmt.Errorf("reservation %s: failed to decode cancellation: %w", row.ID, err)
		}
		r.Cancellation = &c
	}
	if row.CheckedInAt.Valid {
		t := row.CheckedInAt.Time.UTC()
		r.CheckedInAt = &t
	}
	if row.CheckedOutAt.Valid {
		t := row.CheckedOutAt.Time.UTC()
		r.CheckedOutAt = &t
	}
	return r, nil
}

type guestRow struct {
	Email         string          `db:"email"`
	Name          string          `db:"name"`
	Phone         string          `db:"phone"`
	Stays         int             `db:"stays"`
	LifetimeSpend decimal.Decimal `db:"lifetime_spend"`
	Currency      string          `db:"currency"`
	Points        int64           `db:"points"`
	Tier          string          `db:"tier"`
}

func (row guestRow) profile() hotel.GuestProfile {
	return hotel.GuestProfile{
		Guest: hotel.Guest{Email: row.Email, Name: row.Name, Phone: row.Phone},
		Stats: loyalty.Stats{
			Stays:         row.Stays,
			LifetimeSpend: generic.Money{Value: row.LifetimeSpend, Currency: generic.Currency(row.Currency)},
			Points:        row.Points,
			Tier:          loyalty.Tier(row.Tier),
		},
	}
}

// =============================================================================
// ROOMS
// =============================================================================

const roomColumns = `id, number, type, capacity, base_price, currency, seasons, active, status, needs_cleaning, updated_at`

func (s *Queries) SaveRoom(ctx context.Context, room hotel.Room) error {
	row, err := newRoomRow(room)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO rooms (` + roomColumns + `)
		VALUES (:id, :number, :type, :capacity, :base_price, :currency, :seasons, :active, :status, :needs_cleaning, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			number = excluded.number,
			type = excluded.type,
			capacity = excluded.capacity,
			base_price = excluded.base_price,
			currency = excluded.currency,
			seasons = excluded.seasons,
			active = excluded.active,
			status = excluded.status,
			needs_cleaning = excluded.needs_cleaning,
			updated_at = excluded.updated_at
	`
	if _, err := sqlx.NamedExecContext(ctx, s.q, query, row); err != nil {
		return fmt.Errorf("failed to save room %s: %w", room.ID, s.dialect.mapError(err))
	}
	return nil
}

func (s *Queries) GetRoom(ctx context.Context, id hotel.RoomID) (hotel.Room, error) {
	var row roomRow
	err := sqlx.GetContext(ctx, s.q, &row, s.q.Rebind(`SELECT `+roomColumns+` FROM rooms WHERE id = ?`), string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return hotel.Room{}, &hotel.NotFoundError{Kind: "room", ID: string(id)}
	}
	if err != nil {
		return hotel.Room{}, fmt.Errorf("failed to load room %s: %w", id, err)
	}
	return row.room()
}

func (s *Queries) ListRooms(ctx context.Context) ([]hotel.Room, error) {
	return s.selectRooms(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY id`)
}

func (s *Queries) UpdateRoomStatus(ctx context.Context, id hotel.RoomID, status hotel.RoomStatus, needsCleaning bool, at time.Time) error {
	res, err := s.q.ExecContext(ctx,
		s.q.Rebind(`UPDATE rooms SET status = ?, needs_cleaning = ?, updated_at = ? WHERE id = ?`),
		string(status), needsCleaning, at.UTC(), string(id))
	if err != nil {
		return fmt.Errorf("failed to update room %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &hotel.NotFoundError{Kind: "room", ID: string(id)}
	}
	return nil
}

// ListAvailableRooms is a single anti-join: sellable rooms with enough
// capacity and no blocking reservation overlapping the stay.
func (s *Queries) ListAvailableRooms(ctx context.Context, stay generic.Interval, minCapacity int) ([]hotel.Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM rooms r
		WHERE r.active AND r.status = ? AND r.capacity >= ?
		  AND NOT EXISTS (
			SELECT 1 FROM reservations b
			WHERE b.room_id = r.id
			  AND b.status IN (?, ?)
			  AND b.check_in < ? AND ? < b.check_out
		  )
		ORDER BY r.id
	`
	return s.selectRooms(ctx, query,
		string(hotel.RoomAvailable), minCapacity,
		string(hotel.StatusConfirmed), string(hotel.StatusCheckedIn),
		stay.End.UTC(), stay.Start.UTC())
}

func (s *Queries) selectRooms(ctx context.Context, query string, args ...any) ([]hotel.Room, error) {
	var rows []roomRow
	if err := sqlx.SelectContext(ctx, s.q, &rows, s.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	rooms := make([]hotel.Room, 0, len(rows))
	for _, row := range rows {
		room, err := row.room()
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// =============================================================================
// RESERVATIONS
// =============================================================================

const reservationColumns = `id, booking_number, confirmation_code, room_id, room_type,
	guest_email, guest_name, guest_phone, check_in, check_out, adults, children,
	special_requests, pricing, total, status, payment_status, payment_ref,
	cancellation, checked_in_at, checked_out_at, created_at, updated_at, version`

func (s *Queries) InsertReservation(ctx context.Context, r hotel.Reservation) error {
	row, err := newReservationRow(r)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO reservations (` + reservationColumns + `)
		VALUES (:id, :booking_number, :confirmation_code, :room_id, :room_type,
			:guest_email, :guest_name, :guest_phone, :check_in, :check_out, :adults, :children,
			:special_requests, :pricing, :total, :status, :payment_status, :payment_ref,
			:cancellation, :checked_in_at, :checked_out_at, :created_at, :updated_at, :version)
	`
	if _, err := sqlx.NamedExecContext(ctx, s.q, query, row); err != nil {
		return s.writeError("insert", r.BookingNumber, err)
	}
	return nil
}

type updateArgs struct {
	reservationRow
	Expected int `db:"expected_version"`
}

func (s *Queries) UpdateReservation(ctx context.Context, r hotel.Reservation, expectedVersion int) error {
	row, err := newReservationRow(r)
	if err != nil {
		return err
	}
	query := `
		UPDATE reservations SET
			guest_email = :guest_email,
			guest_name = :guest_name,
			guest_phone = :guest_phone,
			check_in = :check_in,
			check_out = :check_out,
			adults = :adults,
			children = :children,
			special_requests = :special_requests,
			pricing = :pricing,
			total = :total,
			status = :status,
			payment_status = :payment_status,
			payment_ref = :payment_ref,
			cancellation = :cancellation,
			checked_in_at = :checked_in_at,
			checked_out_at = :checked_out_at,
			updated_at = :updated_at,
			version = :version
		WHERE id = :id AND version = :expected_version
	`
	res, err := sqlx.NamedExecContext(ctx, s.q, query, updateArgs{reservationRow: row, Expected: expectedVersion})
	if err != nil {
		return s.writeError("update", r.BookingNumber, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update reservation %s: %w", r.BookingNumber, err)
	}
	if n == 0 {
		if _, err := s.GetReservation(ctx, r.ID); err != nil {
			return err
		}
		return generic.ErrConcurrentModification
	}
	return nil
}

// writeError names the booking while keeping the generic sentinel
// reachable with errors.Is.
func (s *Queries) writeError(op, bookingNumber string, err error) error {
	return fmt.Errorf("failed to %s reservation %s: %w", op, bookingNumber, s.dialect.mapError(err))
}

func (s *Queries) GetReservation(ctx context.Context, id hotel.ReservationID) (hotel.Reservation, error) {
	return s.getReservation(ctx, "id", string(id))
}

func (s *Queries) GetReservationByNumber(ctx context.Context, bookingNumber string) (hotel.Reservation, error) {
	return s.getReservation(ctx, "booking_number", bookingNumber)
}

func (s *Queries) getReservation(ctx context.Context, column, value string) (hotel.Reservation, error) {
	var row reservationRow
	query := s.q.Rebind(`SELECT ` + reservationColumns + ` FROM reservations WHERE ` + column + ` = ?`)
	err := sqlx.GetContext(ctx, s.q, &row, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return hotel.Reservation{}, &hotel.NotFoundError{Kind: "reservation", ID: value}
	}
	if err != nil {
		return hotel.Reservation{}, fmt.Errorf("failed to load reservation %s: %w", value, err)
	}
	return row.reservation()
}

func (s *Queries) CodesExist(ctx context.Context, bookingNumber, confirmationCode string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, s.q, &n,
		s.q.Rebind(`SELECT COUNT(*) FROM reservations WHERE booking_number = ? OR confirmation_code = ?`),
		bookingNumber, confirmationCode)
	if err != nil {
		return false, fmt.Errorf("failed to check codes: %w", err)
	}
	return n > 0, nil
}

func (s *Queries) ListBlocking(ctx context.Context, roomID hotel.RoomID, stay generic.Interval) ([]hotel.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + ` FROM reservations
		WHERE room_id = ? AND status IN (?, ?) AND check_in < ? AND ? < check_out
		ORDER BY check_in, id
	`
	return s.selectReservations(ctx, query,
		string(roomID), string(hotel.StatusConfirmed), string(hotel.StatusCheckedIn),
		stay.End.UTC(), stay.Start.UTC())
}

var sortClauses = map[hotel.SortOrder]string{
	"":                      "check_in ASC, id ASC",
	hotel.SortCheckInAsc:    "check_in ASC, id ASC",
	hotel.SortCheckInDesc:   "check_in DESC, id ASC",
	hotel.SortCreatedAtAsc:  "created_at ASC, id ASC",
	hotel.SortCreatedAtDesc: "created_at DESC, id ASC",
}

func (s *Queries) ListReservations(ctx context.Context, f hotel.ReservationFilter) ([]hotel.Reservation, int, error) {
	where, args, err := filterClause(f)
	if err != nil {
		return nil, 0, err
	}
	order, ok := sortClauses[f.Sort]
	if !ok {
		return nil, 0, &hotel.ValidationError{Field: "sort", Reason: fmt.Sprintf("unknown sort %q", f.Sort)}
	}

	var total int
	if err := sqlx.GetContext(ctx, s.q, &total, s.q.Rebind(`SELECT COUNT(*) FROM reservations`+where), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations` + where + ` ORDER BY ` + order
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	} else if f.Offset > 0 {
		// SQLite requires LIMIT before OFFSET; -1 and NULL both mean no limit
		query += ` LIMIT ` + s.noLimit() + ` OFFSET ?`
		args = append(args, f.Offset)
	}
	items, err := s.selectReservations(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Queries) noLimit() string {
	if s.q.DriverName() == "postgres" {
		return "ALL"
	}
	return "-1"
}

func filterClause(f hotel.ReservationFilter) (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		cond, inArgs, err := sqlx.In(`status IN (?)`, statuses)
		if err != nil {
			return "", nil, fmt.Errorf("failed to build status filter: %w", err)
		}
		conds = append(conds, cond)
		args = append(args, inArgs...)
	}
	if f.RoomID != "" {
		conds = append(conds, `room_id = ?`)
		args = append(args, string(f.RoomID))
	}
	if f.RoomType != "" {
		conds = append(conds, `room_type = ?`)
		args = append(args, string(f.RoomType))
	}
	if f.GuestEmail != "" {
		conds = append(conds, `guest_email = ?`)
		args = append(args, hotel.Guest{Email: f.GuestEmail}.NormalizedEmail())
	}
	if !f.CheckInFrom.IsZero() {
		conds = append(conds, `check_in >= ?`)
		args = append(args, f.CheckInFrom.UTC())
	}
	if !f.CheckInTo.IsZero() {
		conds = append(conds, `check_in <= ?`)
		args = append(args, f.CheckInTo.UTC())
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (s *Queries) selectReservations(ctx context.Context, query string, args ...any) ([]hotel.Reservation, error) {
	var rows []reservationRow
	if err := sqlx.SelectContext(ctx, s.q, &rows, s.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	out := make([]hotel.Reservation, 0, len(rows))
	for _, row := range rows {
		r, err := row.reservation()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// =============================================================================
// GUESTS
// =============================================================================

func (s *Queries) GetGuest(ctx context.Context, email string) (hotel.GuestProfile, error) {
	var row guestRow
	err := sqlx.GetContext(ctx, s.q, &row,
		s.q.Rebind(`SELECT email, name, phone, stays, lifetime_spend, currency, points, tier FROM guests WHERE email = ?`),
		email)
	if errors.Is(err, sql.ErrNoRows) {
		return hotel.GuestProfile{}, &hotel.NotFoundError{Kind: "guest", ID: email}
	}
	if err != nil {
		return hotel.GuestProfile{}, fmt.Errorf("failed to load guest %s: %w", email, err)
	}
	return row.profile(), nil
}

func (s *Queries) SaveGuest(ctx context.Context, g hotel.GuestProfile) error {
	tier := g.Stats.Tier
	if tier == "" {
		tier = loyalty.TierBronze
	}
	row := guestRow{
		Email:         g.NormalizedEmail(),
		Name:          g.Name,
		Phone:         g.Phone,
		Stays:         g.Stats.Stays,
		LifetimeSpend: g.Stats.LifetimeSpend.Value,
		Currency:      string(g.Stats.LifetimeSpend.Currency),
		Points:        g.Stats.Points,
		Tier:          string(tier),
	}
	query := `
		INSERT INTO guests (email, name, phone, stays, lifetime_spend, currency, points, tier)
		VALUES (:email, :name, :phone, :stays, :lifetime_spend, :currency, :points, :tier)
		ON CONFLICT (email) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			stays = excluded.stays,
			lifetime_spend = excluded.lifetime_spend,
			currency = excluded.currency,
			points = excluded.points,
			tier = excluded.tier
	`
	if _, err := sqlx.NamedExecContext(ctx, s.q, query, row); err != nil {
		return fmt.Errorf("failed to save guest %s: %w", row.Email, err)
	}
	return nil
}
