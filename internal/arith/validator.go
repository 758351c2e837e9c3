package arith

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// nonFinite are tokens some decimal parsers accept as special values.
var nonFinite = map[string]struct{}{
	"nan":      {},
	"snan":     {},
	"qnan":     {},
	"inf":      {},
	"infinity": {},
}

// Validator converts operand text into bounded decimals.
type Validator struct {
	// Max bounds the absolute value of parsed operands. Zero disables the check.
	Max decimal.Decimal
}

// NewValidator returns a Validator rejecting operands whose absolute value
// exceeds max.
func NewValidator(max decimal.Decimal) Validator {
	return Validator{Max: max}
}

// Parse accepts integer, decimal and exponent literals such as "42", "-0.5"
// and "1.2e3".
func (v Validator) Parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", ErrInvalidInput)
	}

	token := strings.ToLower(strings.TrimLeft(s, "+-"))
	if _, bad := nonFinite[token]; bad {
		return decimal.Zero, fmt.Errorf("%w: %q is not a finite number", ErrInvalidInput, raw)
	}

	if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid number format: %q", ErrInvalidInput, raw)
	}

	if !v.Max.IsZero() && d.Abs().GreaterThan(v.Max) {
		return decimal.Zero, fmt.Errorf("%w: value exceeds maximum allowed: %s", ErrOutOfRange, v.Max)
	}
	return d, nil
}
