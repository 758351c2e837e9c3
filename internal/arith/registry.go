// Package arith holds the arithmetic core of the calculator: the registry of
// named two-operand operations, fixed-precision rounding, and operand parsing.
package arith

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultPrecision is the number of significant digits results keep when
// nothing else is configured.
const DefaultPrecision = 10

// Operation is a named, stateless function of two decimals.
//
// Validate rejects operands the operation is undefined for and may be nil.
// Apply receives the working digit budget for operations that cannot be
// computed exactly; its result is rounded by the Registry afterwards.
type Operation struct {
	Name        string
	Symbol      string
	Description string
	Validate    func(a, b decimal.Decimal) error
	Apply       func(a, b decimal.Decimal, digits int32) (decimal.Decimal, error)
}

// Registry maps operation names to operations. It is populated at startup
// and read-only afterwards.
type Registry struct {
	ops       map[string]Operation
	precision Precision
}

// NewRegistry returns a Registry holding the builtin operations and rounding
// results to precision significant digits.
func NewRegistry(precision int) *Registry {
	if precision <= 0 {
		precision = DefaultPrecision
	}

	r := &Registry{
		ops:       make(map[string]Operation),
		precision: Precision{Digits: precision},
	}
	for _, op := range Builtins() {
		if err := r.Register(op); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds op under its name. Names are case-insensitive and must be
// unique.
func (r *Registry) Register(op Operation) error {
	name := normalizeName(op.Name)
	if name == "" {
		return fmt.Errorf("operation name is required")
	}
	if op.Apply == nil {
		return fmt.Errorf("operation %q has no apply function", name)
	}
	if _, exists := r.ops[name]; exists {
		return fmt.Errorf("operation %q already registered", name)
	}

	op.Name = name
	r.ops[name] = op
	return nil
}

// Resolve returns the operation registered under name.
func (r *Registry) Resolve(name string) (Operation, error) {
	op, ok := r.ops[normalizeName(name)]
	if !ok {
		return Operation{}, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	return op, nil
}

// Execute validates the operands, applies op, and rounds the result once to
// the registry precision.
func (r *Registry) Execute(op Operation, a, b decimal.Decimal) (decimal.Decimal, error) {
	if op.Validate != nil {
		if err := op.Validate(a, b); err != nil {
			return decimal.Zero, err
		}
	}

	result, err := op.Apply(a, b, r.precision.working())
	if err != nil {
		return decimal.Zero, err
	}
	return r.precision.Round(result), nil
}

// Names returns the registered operation names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Precision returns the rounding applied to every result.
func (r *Registry) Precision() Precision {
	return r.precision
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
