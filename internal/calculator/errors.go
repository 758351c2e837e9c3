package calculator

import (
	"errors"

	"go-chi-calculator/internal/arith"
	"go-chi-calculator/internal/history"
)

// Kind classifies errors returned by the Calculator. Every kind except
// KindInternal is recoverable: the session reports it and carries on.
type Kind string

const (
	KindInvalidInput     Kind = "invalid_input"
	KindOutOfRange       Kind = "out_of_range"
	KindUnknownOperation Kind = "unknown_operation"
	KindDomain           Kind = "domain"
	KindNothingToUndo    Kind = "nothing_to_undo"
	KindNothingToRedo    Kind = "nothing_to_redo"
	KindPersistence      Kind = "persistence"
	KindCorruptHistory   Kind = "corrupt_history"
	KindInternal         Kind = "internal"
)

// Error is the user-facing error returned by Calculator methods.
type Error struct {
	Kind Kind
	// Op is the calculator command that failed, e.g. "compute" or "load".
	Op  string
	Err error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or KindInternal when err did not come from
// a Calculator.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: classify(err), Op: op, Err: err}
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, arith.ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, arith.ErrOutOfRange):
		return KindOutOfRange
	case errors.Is(err, arith.ErrUnknownOperation):
		return KindUnknownOperation
	case errors.Is(err, arith.ErrDomain):
		return KindDomain
	case errors.Is(err, history.ErrNothingToUndo):
		return KindNothingToUndo
	case errors.Is(err, history.ErrNothingToRedo):
		return KindNothingToRedo
	case errors.Is(err, history.ErrCorruptHistory):
		return KindCorruptHistory
	case errors.Is(err, history.ErrPersistence):
		return KindPersistence
	default:
		return KindInternal
	}
}
