/*
errors.go - Error kinds shared by the booking engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Domain packages return structured errors that Unwrap to one of these
  sentinels, so transports can map a kind to a status without knowing
  every concrete type.

ERROR CATEGORIES:
  1. Client errors - Validation, not found, guard failures
  2. Contention errors - Conflict (availability or uniqueness race), retryable
  3. Collaborator errors - Payment declined, refund failed
  4. Store errors - Duplicate keys, overlap constraint, stale versions

USAGE:
  if errors.Is(err, generic.ErrConflict) {
      // room taken, caller may retry with other dates
  }

SEE ALSO:
  - hotel/errors.go: Structured errors carrying booking context
  - api/errors.go: HTTP status mapping
*/
package generic

import (
	"errors"
)

// =============================================================================
// ERROR KINDS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed or missing input. Nothing has
	// been written when this is returned.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a room or reservation does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when the room is not available for the interval,
	// including when a concurrent booking won the race. Callers may retry.
	ErrConflict = errors.New("conflict")

	// ErrInvalidTransition is returned when a lifecycle guard fails.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrCancellationWindowClosed is returned when a confirmed booking is too
	// close to check-in to be cancelled.
	ErrCancellationWindowClosed = errors.New("cancellation window closed")

	// ErrPaymentFailed is returned when the processor declines or errors on capture.
	ErrPaymentFailed = errors.New("payment failed")

	// ErrRefundFailed is returned when the refund could not be executed; the
	// cancellation is not finalized.
	ErrRefundFailed = errors.New("refund failed")

	// ErrUnauthorized is returned when a lookup needs a credential that was not supplied.
	ErrUnauthorized = errors.New("unauthorized")
)

// =============================================================================
// STORE ERRORS - Returned by Store implementations
// =============================================================================

var (
	// ErrDuplicateCode is returned when a booking number or confirmation code
	// already exists. The lifecycle manager regenerates and retries.
	ErrDuplicateCode = errors.New("duplicate booking code")

	// ErrOverlap is returned when the storage-level exclusion rule rejects a
	// blocking reservation overlapping another on the same room.
	ErrOverlap = errors.New("overlapping reservation")

	// ErrConcurrentModification is returned when optimistic locking detects a
	// stale version.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrInvalidInterval is returned when an interval ends before it starts.
	ErrInvalidInterval = errors.New("invalid interval: end not after start")
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input or state.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrCancellationWindowClosed) ||
		errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrUnauthorized)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
