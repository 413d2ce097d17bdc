/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Request types carry
  validator tags and are checked before any domain call. Responses reuse
  the hotel types directly where their JSON form is already the contract
  (Reservation, Room, RevenueReport).

NAMING CONVENTION:
  - *Request:  Request body types from clients
  - *Response: Response wrappers
  - *DTO:      Everything else returned to clients

DATES:
  check_in/check_out accept either a date ("2025-01-10", midnight UTC) or
  an RFC 3339 timestamp.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/catalog.go: RoomJSON, reused for room creation
*/
package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/warp/booking-engine/hotel"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

type GuestRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"omitempty,max=40"`
}

// BookingRequest is the body of both creation endpoints. PaymentToken is
// required only by POST /api/bookings.
type BookingRequest struct {
	RoomID          string       `json:"room_id" validate:"required,max=64"`
	CheckIn         string       `json:"check_in" validate:"required"`
	CheckOut        string       `json:"check_out" validate:"required"`
	Guest           GuestRequest `json:"guest"`
	Adults          int          `json:"adults" validate:"gte=1,lte=20"`
	Children        int          `json:"children" validate:"gte=0,lte=20"`
	SpecialRequests string       `json:"special_requests" validate:"max=1000"`
	PaymentToken    string       `json:"payment_token" validate:"max=128"`
}

func (r BookingRequest) toDomain() (hotel.BookingRequest, error) {
	checkIn, err := parseTime("check_in", r.CheckIn)
	if err != nil {
		return hotel.BookingRequest{}, err
	}
	checkOut, err := parseTime("check_out", r.CheckOut)
	if err != nil {
		return hotel.BookingRequest{}, err
	}
	return hotel.BookingRequest{
		Guest:           hotel.Guest{Name: r.Guest.Name, Email: r.Guest.Email, Phone: r.Guest.Phone},
		RoomID:          hotel.RoomID(r.RoomID),
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Occupancy:       hotel.Occupancy{Adults: r.Adults, Children: r.Children},
		SpecialRequests: r.SpecialRequests,
		PaymentToken:    r.PaymentToken,
	}, nil
}

type CancelRequest struct {
	ConfirmationCode string `json:"confirmation_code" validate:"required,max=32"`
	Reason           string `json:"reason" validate:"max=500"`
}

// ConfirmRequest optionally carries a payment token for a pending request.
type ConfirmRequest struct {
	PaymentToken string `json:"payment_token" validate:"max=128"`
}

type RoomStatusRequest struct {
	Status        string `json:"status" validate:"required,oneof=available occupied out_of_order maintenance"`
	NeedsCleaning bool   `json:"needs_cleaning"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ReservationListResponse is one page of reservations.
type ReservationListResponse struct {
	Reservations []hotel.Reservation `json:"reservations"`
	Total        int                 `json:"total"`
	Page         int                 `json:"page"`
	PageSize     int                 `json:"page_size"`
}

// AvailableRoomDTO pairs a free room with the price it would sell at.
type AvailableRoomDTO struct {
	Room  hotel.Room    `json:"room"`
	Quote hotel.Pricing `json:"quote"`
}

type AvailabilityResponse struct {
	CheckIn  time.Time          `json:"check_in"`
	CheckOut time.Time          `json:"check_out"`
	Guests   int                `json:"guests"`
	Rooms    []AvailableRoomDTO `json:"rooms"`
}

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type HousekeepingResultDTO struct {
	NoShows       int `json:"no_shows"`
	RoomsReleased int `json:"rooms_released"`
	RoomsOccupied int `json:"rooms_occupied"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error       string             `json:"error"`
	Kind        string             `json:"kind,omitempty"`
	Details     string             `json:"details,omitempty"`
	Retryable   bool               `json:"retryable,omitempty"`
	Reservation *hotel.Reservation `json:"reservation,omitempty"`
}

// =============================================================================
// VALIDATION
// =============================================================================

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON names, not Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError converts the first validator failure into a domain
// ValidationError so it maps to 400 like every other input error.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &hotel.ValidationError{Field: "body", Reason: err.Error()}
	}
	fe := fieldErrs[0]
	field := strings.TrimPrefix(fe.Namespace(), strings.Split(fe.Namespace(), ".")[0]+".")
	reason := fe.Tag()
	if fe.Param() != "" {
		reason = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
	}
	return &hotel.ValidationError{Field: field, Reason: "failed " + reason}
}

func parseTime(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &hotel.ValidationError{Field: field, Reason: "use YYYY-MM-DD or RFC 3339"}
	}
	return t.UTC(), nil
}
