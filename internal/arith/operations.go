package arith

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// maxResultExponent bounds the magnitude power and root results may reach.
const maxResultExponent = 100_000

var (
	one     = decimal.NewFromInt(1)
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// Builtins returns the operations every Registry starts with.
func Builtins() []Operation {
	return []Operation{
		{
			Name:        "add",
			Symbol:      "+",
			Description: "sum of a and b",
			Apply: func(a, b decimal.Decimal, _ int32) (decimal.Decimal, error) {
				return a.Add(b), nil
			},
		},
		{
			Name:        "subtract",
			Symbol:      "-",
			Description: "a minus b",
			Apply: func(a, b decimal.Decimal, _ int32) (decimal.Decimal, error) {
				return a.Sub(b), nil
			},
		},
		{
			Name:        "multiply",
			Symbol:      "*",
			Description: "product of a and b",
			Apply: func(a, b decimal.Decimal, _ int32) (decimal.Decimal, error) {
				return a.Mul(b), nil
			},
		},
		{
			Name:        "divide",
			Symbol:      "/",
			Description: "a divided by b",
			Validate:    nonZeroDivisor("cannot divide by zero"),
			Apply: func(a, b decimal.Decimal, digits int32) (decimal.Decimal, error) {
				return quotient(a, b, digits), nil
			},
		},
		{
			Name:        "power",
			Symbol:      "^",
			Description: "a raised to the power b",
			Validate:    validatePower,
			Apply:       power,
		},
		{
			Name:        "root",
			Symbol:      "√",
			Description: "b-th root of a",
			Validate:    validateRoot,
			Apply:       root,
		},
		{
			Name:        "modulus",
			Symbol:      "%",
			Description: "remainder of a divided by b",
			Validate:    nonZeroDivisor("cannot take modulus by zero"),
			Apply: func(a, b decimal.Decimal, _ int32) (decimal.Decimal, error) {
				return a.Mod(b), nil
			},
		},
		{
			Name:        "integer-division",
			Symbol:      "//",
			Description: "a divided by b, truncated toward zero",
			Validate:    nonZeroDivisor("cannot perform integer division by zero"),
			Apply: func(a, b decimal.Decimal, _ int32) (decimal.Decimal, error) {
				q, _ := a.QuoRem(b, 0)
				return q, nil
			},
		},
		{
			Name:        "percent",
			Symbol:      "%of",
			Description: "a as a percentage of b",
			Validate:    nonZeroDivisor("cannot calculate percentage with a base of zero"),
			Apply: func(a, b decimal.Decimal, digits int32) (decimal.Decimal, error) {
				return quotient(a, b, digits+2).Mul(hundred), nil
			},
		},
		{
			Name:        "absolute-difference",
			Symbol:      "|-|",
			Description: "absolute value of a minus b",
			Apply: func(a, b decimal.Decimal, _ int32) (decimal.Decimal, error) {
				return a.Sub(b).Abs(), nil
			},
		},
	}
}

func nonZeroDivisor(msg string) func(a, b decimal.Decimal) error {
	return func(_, b decimal.Decimal) error {
		if b.IsZero() {
			return fmt.Errorf("%w: %s", ErrDomain, msg)
		}
		return nil
	}
}

// quotient divides with enough decimal places to keep digits significant
// digits of the result.
func quotient(a, b decimal.Decimal, digits int32) decimal.Decimal {
	if a.IsZero() {
		return decimal.Zero
	}
	places := digits - (adjustedExponent(a) - adjustedExponent(b)) + 1
	if places < 0 {
		places = 0
	}
	return a.DivRound(b, places)
}

func validatePower(a, b decimal.Decimal) error {
	switch {
	case b.IsNegative():
		return fmt.Errorf("%w: exponent must be non-negative", ErrDomain)
	case a.IsZero() && b.IsZero():
		return fmt.Errorf("%w: zero to the power of zero", ErrDomain)
	case a.IsNegative() && !b.IsInteger():
		return fmt.Errorf("%w: fractional power of a negative number", ErrDomain)
	}
	return nil
}

func power(a, b decimal.Decimal, digits int32) (decimal.Decimal, error) {
	if a.IsZero() {
		return decimal.Zero, nil
	}

	// Negative bases only reach here with integer exponents.
	x := a.Abs()
	neg := a.IsNegative() && b.BigInt().Bit(0) == 1
	result := one
	if !x.Equal(one) {
		if err := checkMagnitude(b.InexactFloat64() * log10Abs(x)); err != nil {
			return decimal.Zero, err
		}
		var err error
		if result, err = pow(x, b, digits); err != nil {
			return decimal.Zero, err
		}
	}

	if neg {
		result = result.Neg()
	}
	return result, nil
}

func validateRoot(a, b decimal.Decimal) error {
	if !b.IsPositive() {
		return fmt.Errorf("%w: root degree must be positive and non-zero", ErrDomain)
	}
	if !a.IsNegative() {
		return nil
	}
	if !b.IsInteger() {
		return fmt.Errorf("%w: fractional root of a negative number", ErrDomain)
	}
	if b.Mod(two).IsZero() {
		return fmt.Errorf("%w: even root of a negative number", ErrDomain)
	}
	return nil
}

func root(a, b decimal.Decimal, digits int32) (decimal.Decimal, error) {
	if a.IsZero() {
		return decimal.Zero, nil
	}
	if b.Equal(one) {
		return a, nil
	}

	x := a.Abs()
	result := one
	if !x.Equal(one) {
		if err := checkMagnitude(log10Abs(x) / b.InexactFloat64()); err != nil {
			return decimal.Zero, err
		}

		// An error in 1/b is scaled by ln|a| in the result.
		adj := math.Abs(float64(adjustedExponent(x)))
		places := digits + 2 + int32(math.Ceil(math.Log10(adj+2)))

		var err error
		if result, err = pow(x, one.DivRound(b, places), digits); err != nil {
			return decimal.Zero, err
		}
	}

	if a.IsNegative() {
		result = result.Neg()
	}
	return result, nil
}
