package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "price-monitor/internal/errors"
	"price-monitor/internal/models"
)

func TestValidateSymbol(t *testing.T) {
	valid := map[string]string{
		" aapl ":   "AAPL",
		"brk.b":    "BRK.B",
		"^GSPC":    "^GSPC",
		"eurusd=x": "EURUSD=X",
		"M&M":      "M&M",
	}
	for in, want := range valid {
		got, err := ValidateSymbol(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, in := range []string{"", "   ", "AA PL", "DROP;TABLE", "ABCDEFGHIJKLMNOPQRSTU"} {
		_, err := ValidateSymbol(in)
		assert.ErrorIs(t, err, apperrors.ErrInvalidSymbol, in)
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(" 101.5 ")
	require.NoError(t, err)
	assert.Equal(t, 101.5, v)

	v, err = ParseValue("-5%")
	require.NoError(t, err)
	assert.Equal(t, -5.0, v)

	for _, in := range []string{"", "abc", "1,000", "NaN", "inf", "-Inf", "%"} {
		_, err := ParseValue(in)
		assert.ErrorIs(t, err, apperrors.ErrMalformedInput, in)
	}
}

func TestParseThreshold(t *testing.T) {
	k, v, err := ParseThreshold("PABOVE", "2.5")
	require.NoError(t, err)
	assert.Equal(t, models.PercentAbove, k)
	assert.Equal(t, 2.5, v)

	_, _, err = ParseThreshold("sideways", "1")
	assert.ErrorIs(t, err, apperrors.ErrUnknownKind)

	_, _, err = ParseThreshold("below", "ten")
	assert.ErrorIs(t, err, apperrors.ErrMalformedInput)
}

func TestMaskCredential(t *testing.T) {
	assert.Equal(t, "", MaskCredential(""))
	assert.Equal(t, "*****", MaskCredential("short"))
	assert.Equal(t, "abcd****wxyz", MaskCredential("abcd1234wxyz"))
}
