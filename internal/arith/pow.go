package arith

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

var ten = decimal.NewFromInt(10)

// log10Abs estimates log10|d| for non-zero d. The mantissa's distance from
// one goes through Log1p so values next to 1 keep their magnitude.
func log10Abs(d decimal.Decimal) float64 {
	adj := adjustedExponent(d)
	m := d.Abs().Shift(-adj)
	return float64(adj) + math.Log1p(m.Sub(one).InexactFloat64())/math.Ln10
}

// checkMagnitude rejects results whose log10 magnitude falls outside
// [-maxResultExponent, maxResultExponent].
func checkMagnitude(mag float64) error {
	switch {
	case math.IsNaN(mag), mag > maxResultExponent:
		return fmt.Errorf("%w: result magnitude exceeds 1e%d", ErrDomain, maxResultExponent)
	case mag < -maxResultExponent:
		return fmt.Errorf("%w: result magnitude below 1e-%d", ErrDomain, maxResultExponent)
	}
	return nil
}

// pow returns x**y for x > 0 and y >= 0 to about digits significant digits.
// Callers bound the result's magnitude first.
func pow(x, y decimal.Decimal, digits int32) (decimal.Decimal, error) {
	ip, fp := y.QuoRem(one, 0)

	// Squaring doubles the relative error, so each bit of the integer
	// exponent costs precision.
	w := digits + int32(len(ip.String()))
	result := powInt(x, ip.BigInt(), w)
	if fp.IsZero() {
		return result, nil
	}

	f, err := powFrac(x, fp, w)
	if err != nil {
		return decimal.Zero, err
	}
	return Precision{Digits: int(w)}.Round(result.Mul(f)), nil
}

// powInt raises x to n by squaring, rounding to w significant digits after
// every product.
func powInt(x decimal.Decimal, n *big.Int, w int32) decimal.Decimal {
	p := Precision{Digits: int(w)}
	e := new(big.Int).Set(n)
	base, result := p.Round(x), one

	for e.Sign() > 0 {
		if e.Bit(0) == 1 {
			result = p.Round(result.Mul(base))
		}
		e.Rsh(e, 1)
		if e.Sign() > 0 {
			base = p.Round(base.Mul(base))
		}
	}
	return result
}

// powFrac returns x**f for 0 < f < 1. x is split into m * 10**k with m in
// [1, 10) so the series behind PowWithPrecision only sees small arguments:
// x**f = m**f * 10**r * 10**q where k*f = q + r and 0 <= r < 1.
func powFrac(x, f decimal.Decimal, w int32) (decimal.Decimal, error) {
	k := adjustedExponent(x)
	m := x.Shift(-k)

	kf := decimal.NewFromInt32(k).Mul(f)
	q := kf.Floor()
	r := kf.Sub(q)

	result, err := m.PowWithPrecision(f, w+2)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrDomain, err)
	}
	if !r.IsZero() {
		tr, err := ten.PowWithPrecision(r, w+2)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %w", ErrDomain, err)
		}
		result = result.Mul(tr)
	}
	return result.Shift(int32(q.IntPart())), nil
}
