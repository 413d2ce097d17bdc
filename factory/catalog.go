package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/hotel"
)

// =============================================================================
// CATALOG JSON
// =============================================================================
//
//   {
//     "currency": "USD",
//     "rooms": [
//       {"id": "101", "number": "101", "type": "standard", "capacity": 2,
//        "base_price": "100.00",
//        "seasons": [{"name": "summer", "from": "2025-06-01", "to": "2025-08-31", "multiplier": "1.5"}]}
//     ]
//   }
//
// A room without "active" is active; without "status" it is available.
// A room without "currency" uses the catalog currency.

const dateLayout = "2006-01-02"

type CatalogJSON struct {
	Currency string     `json:"currency,omitempty"`
	Rooms    []RoomJSON `json:"rooms"`
}

// RoomJSON is one catalog entry. The validate tags cover the shape of a
// single room posted to the admin API; ToRoom checks the rest.
type RoomJSON struct {
	ID        string           `json:"id" validate:"required,max=32"`
	Number    string           `json:"number,omitempty" validate:"omitempty,max=32"`
	Type      string           `json:"type" validate:"omitempty,oneof=standard deluxe suite"`
	Capacity  int              `json:"capacity" validate:"gte=1,lte=20"`
	BasePrice decimal.Decimal  `json:"base_price"`
	Currency  string           `json:"currency,omitempty" validate:"omitempty,len=3,uppercase"`
	Active    *bool            `json:"active,omitempty"`
	Status    string           `json:"status,omitempty" validate:"omitempty,oneof=available occupied out_of_order maintenance"`
	Seasons   []SeasonRateJSON `json:"seasons,omitempty" validate:"dive"`
}

type SeasonRateJSON struct {
	Name       string          `json:"name" validate:"required"`
	From       string          `json:"from" validate:"required"`
	To         string          `json:"to" validate:"required"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

// ParseCatalog decodes and validates a room catalog. Room IDs must be
// unique within the document.
func ParseCatalog(data []byte, defaultCurrency generic.Currency) ([]hotel.Room, error) {
	var cj CatalogJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	currency := defaultCurrency
	if cj.Currency != "" {
		currency = generic.Currency(cj.Currency)
	}

	seen := make(map[string]bool, len(cj.Rooms))
	rooms := make([]hotel.Room, 0, len(cj.Rooms))
	for i, rj := range cj.Rooms {
		if seen[rj.ID] {
			return nil, fmt.Errorf("room %d: duplicate id %q", i, rj.ID)
		}
		seen[rj.ID] = true

		room, err := rj.ToRoom(currency)
		if err != nil {
			return nil, fmt.Errorf("room %d (%s): %w", i, rj.ID, err)
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// LoadCatalogFile reads a catalog from disk.
func LoadCatalogFile(path string, defaultCurrency generic.Currency) ([]hotel.Room, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data, defaultCurrency)
}

// ImportRooms saves every room, stopping at the first failure. Every room
// must be priced in currency, the hotel's booking currency; a mismatch is
// rejected before anything is saved.
func ImportRooms(ctx context.Context, store hotel.RoomStore, rooms []hotel.Room, currency generic.Currency) error {
	for _, room := range rooms {
		if room.BasePrice.Currency != currency {
			return &hotel.ValidationError{Field: "currency",
				Reason: fmt.Sprintf("room %s is priced in %s, the hotel books in %s", room.ID, room.BasePrice.Currency, currency)}
		}
	}
	for _, room := range rooms {
		if err := store.SaveRoom(ctx, room); err != nil {
			return fmt.Errorf("failed to import room %s: %w", room.ID, err)
		}
	}
	return nil
}

// ToRoom validates rj and converts it, defaulting the currency to currency.
func (rj RoomJSON) ToRoom(currency generic.Currency) (hotel.Room, error) {
	if rj.Currency != "" {
		currency = generic.Currency(rj.Currency)
	}
	room := hotel.Room{
		ID:        hotel.RoomID(rj.ID),
		Number:    rj.Number,
		Type:      hotel.RoomType(rj.Type),
		Capacity:  rj.Capacity,
		BasePrice: generic.Money{Value: rj.BasePrice, Currency: currency},
		Active:    rj.Active == nil || *rj.Active,
		Status:    hotel.RoomStatus(rj.Status),
	}
	if room.Number == "" {
		room.Number = rj.ID
	}
	if room.Type == "" {
		room.Type = hotel.RoomStandard
	}
	if room.Status == "" {
		room.Status = hotel.RoomAvailable
	}

	for _, sj := range rj.Seasons {
		from, err := time.Parse(dateLayout, sj.From)
		if err != nil {
			return hotel.Room{}, &hotel.ValidationError{Field: "seasons.from",
				Reason: fmt.Sprintf("season %q: %v", sj.Name, err)}
		}
		to, err := time.Parse(dateLayout, sj.To)
		if err != nil {
			return hotel.Room{}, &hotel.ValidationError{Field: "seasons.to",
				Reason: fmt.Sprintf("season %q: %v", sj.Name, err)}
		}
		room.Seasons = append(room.Seasons, hotel.SeasonalRate{
			Name:       sj.Name,
			From:       from,
			To:         to,
			Multiplier: generic.Rate{Value: sj.Multiplier},
		})
	}

	if err := room.Validate(); err != nil {
		return hotel.Room{}, err
	}
	return room, nil
}

// ToCatalogJSON renders rooms in the import format.
func ToCatalogJSON(rooms []hotel.Room) CatalogJSON {
	cj := CatalogJSON{Rooms: make([]RoomJSON, 0, len(rooms))}
	for _, r := range rooms {
		active := r.Active
		rj := RoomJSON{
			ID:        string(r.ID),
			Number:    r.Number,
			Type:      string(r.Type),
			Capacity:  r.Capacity,
			BasePrice: r.BasePrice.Value,
			Currency:  string(r.BasePrice.Currency),
			Active:    &active,
			Status:    string(r.Status),
		}
		for _, s := range r.Seasons {
			rj.Seasons = append(rj.Seasons, SeasonRateJSON{
				Name:       s.Name,
				From:       s.From.Format(dateLayout),
				To:         s.To.Format(dateLayout),
				Multiplier: s.Multiplier.Value,
			})
		}
		cj.Rooms = append(cj.Rooms, rj)
	}
	return cj
}
