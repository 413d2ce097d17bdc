package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/hotel"
)

// =============================================================================
// ERROR MAPPING - Domain error kinds to HTTP status
// =============================================================================
//
//   ErrValidation, ErrInvalidInterval   400
//   ErrUnauthorized                     401
//   ErrNotFound                         404
//   ErrConflict, ErrInvalidTransition   409
//   ErrCancellationWindowClosed         422
//   ErrPaymentFailed                    402 (reservation in body)
//   ErrRefundFailed                     502
//   anything else                       500

type errorKind struct {
	sentinel error
	status   int
	kind     string
}

var errorKinds = []errorKind{
	{generic.ErrValidation, http.StatusBadRequest, "validation"},
	{generic.ErrInvalidInterval, http.StatusBadRequest, "validation"},
	{generic.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{generic.ErrNotFound, http.StatusNotFound, "not_found"},
	{generic.ErrConflict, http.StatusConflict, "conflict"},
	{generic.ErrConcurrentModification, http.StatusConflict, "conflict"},
	{generic.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{generic.ErrCancellationWindowClosed, http.StatusUnprocessableEntity, "cancellation_window_closed"},
	{generic.ErrPaymentFailed, http.StatusPaymentRequired, "payment_failed"},
	{generic.ErrRefundFailed, http.StatusBadGateway, "refund_failed"},
}

// statusFor returns the HTTP status and a stable machine-readable kind.
func statusFor(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.sentinel) {
			return k.status, k.kind
		}
	}
	return http.StatusInternalServerError, "internal"
}

// writeDomainError renders err. res, when non-nil, is attached so a client
// whose payment failed still learns its pending booking number.
func writeDomainError(w http.ResponseWriter, err error, res *hotel.Reservation) {
	status, kind := statusFor(err)
	resp := ErrorResponse{Error: http.StatusText(status), Kind: kind, Details: err.Error()}
	if status == http.StatusInternalServerError {
		log.Printf("[API] internal error: %v", err)
		resp.Details = ""
	}
	if generic.IsRetryable(err) {
		resp.Retryable = true
	}
	if res != nil && res.ID != "" {
		resp.Reservation = res
	}
	writeJSON(w, status, resp)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[API] failed to encode response: %v", err)
	}
}
