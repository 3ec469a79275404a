// Package security validates and sanitises user input before it reaches the
// watch-list, and masks credentials for display.
package security

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	apperrors "price-monitor/internal/errors"
	"price-monitor/internal/models"
)

// Tickers: letters, digits and the separators used by US share classes,
// indices and FX pairs (BRK.B, BRK-B, ^GSPC, EURUSD=X, M&M).
var symbolPattern = regexp.MustCompile(`^[A-Z0-9&.^=-]{1,20}$`)

// ValidateSymbol normalises symbol and checks its format. The returned error
// wraps ErrInvalidSymbol.
func ValidateSymbol(symbol string) (string, error) {
	symbol = models.NormalizeSymbol(symbol)

	if symbol == "" {
		return "", apperrors.NewValidationError("symbol", symbol, "symbol cannot be empty", apperrors.ErrInvalidSymbol)
	}
	if len(symbol) > 20 {
		return "", apperrors.NewValidationError("symbol", symbol, "symbol too long (max 20 characters)", apperrors.ErrInvalidSymbol)
	}
	if !symbolPattern.MatchString(symbol) {
		return "", apperrors.NewValidationError("symbol", symbol, "invalid symbol format", apperrors.ErrInvalidSymbol)
	}
	return symbol, nil
}

// ParseValue parses a threshold entry. A trailing % is accepted. NaN and
// infinities are rejected. The error wraps ErrMalformedInput.
func ParseValue(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return 0, apperrors.NewValidationError("value", raw, "value cannot be empty", apperrors.ErrMalformedInput)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, apperrors.NewValidationError("value", raw, "not a number", apperrors.ErrMalformedInput)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperrors.NewValidationError("value", raw, "value must be finite", apperrors.ErrMalformedInput)
	}
	return v, nil
}

// ParseKind parses a threshold kind name or alias. The error wraps ErrUnknownKind.
func ParseKind(raw string) (models.ThresholdKind, error) {
	k, err := models.ParseThresholdKind(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return "", apperrors.NewValidationError("kind", raw, err.Error(), apperrors.ErrUnknownKind)
	}
	return k, nil
}

// ParseThreshold parses a kind and a value together.
func ParseThreshold(kind, value string) (models.ThresholdKind, float64, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return "", 0, err
	}
	v, err := ParseValue(value)
	if err != nil {
		return "", 0, err
	}
	return k, v, nil
}

// MaskCredential keeps the first and last four characters of a secret.
func MaskCredential(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}
