package hotel_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/booking-engine/hotel"
)

func TestRandomCodes_Format(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		number, code, err := hotel.RandomCodes{}.Generate()
		require.NoError(t, err)
		assert.Regexp(t, `^BK-[2-9A-HJKMNP-TV-Z]{8}$`, number)
		assert.Regexp(t, `^[2-9A-HJKMNP-TV-Z]{8}$`, code)
		assert.False(t, seen[number], "duplicate booking number %s", number)
		seen[number] = true
	}
}

func TestRandomCodes_DeterministicSource(t *testing.T) {
	src := bytes.NewReader(bytes.Repeat([]byte{0}, 16))
	number, code, err := hotel.RandomCodes{Source: src}.Generate()
	require.NoError(t, err)
	assert.Equal(t, "BK-22222222", number)
	assert.Equal(t, "22222222", code)
}

func TestRandomCodes_ShortSource(t *testing.T) {
	_, _, err := hotel.RandomCodes{Source: strings.NewReader("abc")}.Generate()
	assert.Error(t, err)
}
