package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits stored for every balance and amount.
const Scale = 2

// Max is the largest value a NUMERIC(19,2) column holds.
var Max = decimal.RequireFromString("99999999999999999.99")

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
	ErrOutOfRange      = errors.New("amount out of range")
)

// Parse reads a decimal amount with at most two fractional digits.
// Exponent-notation and empty input are rejected.
func Parse(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" || strings.ContainsAny(trimmed, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if value.Exponent() < -Scale && !HasScale(value) {
		return decimal.Zero, ErrTooManyDecimals
	}
	value = value.Round(Scale)
	if !InRange(value) {
		return decimal.Zero, ErrOutOfRange
	}
	return value, nil
}

// InRange reports whether the absolute value fits the storage bound.
func InRange(value decimal.Decimal) bool {
	return value.Abs().LessThanOrEqual(Max)
}

// HasScale reports whether value needs no more than Scale fractional digits.
func HasScale(value decimal.Decimal) bool {
	return value.Equal(value.Round(Scale))
}

// ParsePositive is Parse restricted to amounts strictly greater than zero.
func ParsePositive(input string) (decimal.Decimal, error) {
	value, err := Parse(input)
	if err != nil {
		return decimal.Zero, err
	}
	if !value.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return value, nil
}

func Format(value decimal.Decimal) string {
	return value.StringFixed(Scale)
}
