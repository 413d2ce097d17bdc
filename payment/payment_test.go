package payment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/payment"
)

func usd(s string) generic.Money { return generic.NewMoney(s, generic.USD) }

func TestSandbox_CaptureAndRefund(t *testing.T) {
	ctx := context.Background()
	p := payment.NewSandbox()

	ref, err := p.Capture(ctx, usd("336"), "tok_visa")
	require.NoError(t, err)
	assert.NotEmpty(t, ref)

	require.NoError(t, p.Refund(ctx, ref, usd("252")))
	c, ok := p.Lookup(ref)
	require.True(t, ok)
	assert.True(t, c.Refunded.Equal(usd("252")))

	// only 84 left to refund
	err = p.Refund(ctx, ref, usd("100"))
	assert.ErrorIs(t, err, payment.ErrOverRefund)
	assert.Equal(t, 1, p.Refunds())
}

func TestSandbox_Tokens(t *testing.T) {
	ctx := context.Background()
	p := payment.NewSandbox()

	_, err := p.Capture(ctx, usd("10"), payment.TokenDecline)
	assert.ErrorIs(t, err, payment.ErrDeclined)

	_, err = p.Capture(ctx, usd("10"), payment.TokenError)
	assert.ErrorIs(t, err, payment.ErrUnavailable)

	assert.Equal(t, 0, p.Captures())
}

func TestSandbox_SlowTokenHonoursTimeout(t *testing.T) {
	p := payment.NewSandbox()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Capture(ctx, usd("10"), payment.TokenSlow)

	assert.ErrorIs(t, err, payment.ErrUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSandbox_RefundFailures(t *testing.T) {
	ctx := context.Background()
	p := payment.NewSandbox()

	err := p.Refund(ctx, "pay_missing", usd("1"))
	assert.ErrorIs(t, err, payment.ErrUnknownRef)

	ref, err := p.Capture(ctx, usd("10"), "tok_visa")
	require.NoError(t, err)
	p.FailRefunds = true
	assert.ErrorIs(t, p.Refund(ctx, ref, usd("1")), payment.ErrUnavailable)
}
