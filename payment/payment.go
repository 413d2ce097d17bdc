/*
Package payment provides payment processor adapters for the booking engine.

PURPOSE:
  The engine treats payment as an external collaborator exposing
  capture(amount, token) and refund(ref, amount). This package holds a
  deterministic sandbox processor for development and tests.

SANDBOX TOKENS:
  tok_decline  - capture is declined (ErrDeclined)
  tok_error    - processor error (ErrUnavailable)
  tok_slow     - capture blocks until the context is done
  anything else - capture succeeds with a ref "pay_<n>"

  Refunds fail for unknown refs, for amounts exceeding what remains
  refundable, and when FailRefunds is set.

SEE ALSO:
  - hotel/collaborators.go: PaymentProcessor interface
*/
package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/warp/booking-engine/generic"
)

var (
	ErrDeclined    = errors.New("payment declined")
	ErrUnavailable = errors.New("payment processor unavailable")
	ErrUnknownRef  = errors.New("unknown payment reference")
	ErrOverRefund  = errors.New("refund exceeds captured amount")
)

const (
	TokenDecline = "tok_decline"
	TokenError   = "tok_error"
	TokenSlow    = "tok_slow"
)

// Capture is a recorded successful capture.
type Capture struct {
	Ref      string
	Token    string
	Amount   generic.Money
	Refunded generic.Money
}

// Sandbox is an in-memory processor. Safe for concurrent use.
type Sandbox struct {
	mu       sync.Mutex
	seq      int
	captures map[string]*Capture
	refunds  int

	// FailRefunds makes every refund fail with ErrUnavailable.
	FailRefunds bool
}

func NewSandbox() *Sandbox {
	return &Sandbox{captures: make(map[string]*Capture)}
}

func (s *Sandbox) Capture(ctx context.Context, amount generic.Money, token string) (string, error) {
	switch token {
	case TokenDecline:
		return "", ErrDeclined
	case TokenError:
		return "", ErrUnavailable
	case TokenSlow:
		<-ctx.Done()
		return "", fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !amount.IsPositive() {
		return "", fmt.Errorf("capture amount must be positive, got %s", amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	ref := fmt.Sprintf("pay_%06d", s.seq)
	s.captures[ref] = &Capture{Ref: ref, Token: token, Amount: amount, Refunded: generic.Zero(amount.Currency)}
	return ref, nil
}

func (s *Sandbox) Refund(ctx context.Context, ref string, amount generic.Money) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailRefunds {
		return ErrUnavailable
	}
	c, ok := s.captures[ref]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRef, ref)
	}
	if c.Refunded.Add(amount).GreaterThan(c.Amount) {
		return fmt.Errorf("%w: %s refunded of %s, %s requested", ErrOverRefund, c.Refunded, c.Amount, amount)
	}
	c.Refunded = c.Refunded.Add(amount)
	s.refunds++
	return nil
}

// Lookup returns a copy of the capture recorded under ref.
func (s *Sandbox) Lookup(ref string) (Capture, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.captures[ref]
	if !ok {
		return Capture{}, false
	}
	return *c, true
}

// Captures returns the number of successful captures.
func (s *Sandbox) Captures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.captures)
}

// Refunds returns the number of successful refund calls.
func (s *Sandbox) Refunds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refunds
}
