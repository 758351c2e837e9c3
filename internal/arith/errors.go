package arith

import "errors"

var (
	// ErrInvalidInput is returned when operand text is not a decimal literal.
	ErrInvalidInput = errors.New("invalid input")

	// ErrOutOfRange is returned when an operand exceeds the configured bound.
	ErrOutOfRange = errors.New("value out of range")

	// ErrUnknownOperation is returned when no operation is registered under a name.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrDomain is returned when an operation is undefined for its operands.
	ErrDomain = errors.New("undefined for operands")
)
