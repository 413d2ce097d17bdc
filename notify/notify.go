/*
Package notify delivers booking events to the outside world.

PURPOSE:
  The lifecycle manager calls a Notifier after a transition commits.
  Delivery is fire-and-forget: the manager logs failures and never rolls
  back. This package provides the notifiers the server wires together.

NOTIFIERS:
  AMQPPublisher: Persistent JSON messages on durable queues named after
                 the event type (booking.confirmed, booking.cancelled, ...)
  Log:           One log line per event
  Multi:         Fan-out to several notifiers, errors joined
  Recorder:      Keeps events in memory (tests, demo)

SEE ALSO:
  - hotel/collaborators.go: Notifier interface and Event
*/
package notify

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/warp/booking-engine/hotel"
)

// =============================================================================
// LOG
// =============================================================================

type Log struct{}

func (Log) Notify(_ context.Context, e hotel.Event) error {
	log.Printf("[Notify] %s %s room=%s guest=%s total=%s",
		e.Type, e.BookingNumber, e.RoomID, e.Guest.Email, e.Total)
	return nil
}

// =============================================================================
// MULTI - Fan-out
// =============================================================================

// Multi delivers to every notifier even if some fail.
type Multi []hotel.Notifier

func (m Multi) Notify(ctx context.Context, e hotel.Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// RECORDER
// =============================================================================

type Recorder struct {
	mu     sync.Mutex
	events []hotel.Event
}

func (r *Recorder) Notify(_ context.Context, e hotel.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []hotel.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]hotel.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []hotel.EventType {
	var out []hotel.EventType
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}
	return out
}

var (
	_ hotel.Notifier = Log{}
	_ hotel.Notifier = Multi{}
	_ hotel.Notifier = (*Recorder)(nil)
	_ hotel.Notifier = (*AMQPPublisher)(nil)
)
