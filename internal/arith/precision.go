package arith

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// guardDigits are carried by inexact operations beyond the configured
// precision so the final rounding is the only one that matters.
const guardDigits = 5

// Precision rounds results to a fixed number of significant digits using
// round-half-even.
type Precision struct {
	Digits int
}

// Round returns d rounded to p.Digits significant digits.
func (p Precision) Round(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() || p.Digits <= 0 {
		return d
	}
	places := int32(p.Digits) - 1 - adjustedExponent(d)
	return d.RoundBank(places)
}

// working is the digit budget handed to inexact operations.
func (p Precision) working() int32 {
	return int32(p.Digits) + guardDigits
}

// adjustedExponent is the power of ten of the most significant digit of d,
// e.g. 2 for 123.4 and -3 for 0.00123.
func adjustedExponent(d decimal.Decimal) int32 {
	coef := new(big.Int).Abs(d.Coefficient())
	return d.Exponent() + int32(len(coef.String())) - 1
}
