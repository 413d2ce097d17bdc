package hotel

import (
	"crypto/rand"
	"fmt"
	"io"
)

// =============================================================================
// CODE GENERATION - Stateless, random, checked against storage
// =============================================================================

// Unambiguous alphabet: no I, L, O, U, 0 or 1.
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTVWXYZ"

// CodeGenerator produces a booking number and a confirmation code.
// Uniqueness is checked by the caller against the store.
type CodeGenerator interface {
	Generate() (bookingNumber, confirmationCode string, err error)
}

// RandomCodes draws codes from a cryptographic source.
// Booking numbers look like BK-7KQ3M9XA, confirmation codes like R4T8WZ2N.
type RandomCodes struct {
	Source io.Reader
}

func (g RandomCodes) Generate() (string, string, error) {
	number, err := g.random(8)
	if err != nil {
		return "", "", err
	}
	code, err := g.random(8)
	if err != nil {
		return "", "", err
	}
	return "BK-" + number, code, nil
}

func (g RandomCodes) random(n int) (string, error) {
	src := g.Source
	if src == nil {
		src = rand.Reader
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}
