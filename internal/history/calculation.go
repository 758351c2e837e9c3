// Package history records executed calculations in a bounded, chronological
// log with linear undo and redo.
package history

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Calculation is one executed operation. Values are never mutated once built;
// compare them with Equal.
type Calculation struct {
	Operator  string          `json:"operator"`
	OperandA  decimal.Decimal `json:"operand_a"`
	OperandB  decimal.Decimal `json:"operand_b"`
	Result    decimal.Decimal `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewCalculation builds a Calculation stamped with createdAt.
func NewCalculation(operator string, a, b, result decimal.Decimal, createdAt time.Time) Calculation {
	return Calculation{
		Operator:  operator,
		OperandA:  a,
		OperandB:  b,
		Result:    result,
		CreatedAt: createdAt,
	}
}

// Equal reports whether c and o hold the same values.
func (c Calculation) Equal(o Calculation) bool {
	return c.Operator == o.Operator &&
		c.OperandA.Equal(o.OperandA) &&
		c.OperandB.Equal(o.OperandB) &&
		c.Result.Equal(o.Result) &&
		c.CreatedAt.Equal(o.CreatedAt)
}

// String renders the calculation as "add(10, 5) = 15".
func (c Calculation) String() string {
	return fmt.Sprintf("%s(%s, %s) = %s", c.Operator, c.OperandA, c.OperandB, c.Result)
}
