package history

import (
	"errors"
	"fmt"
)

var (
	ErrNothingToUndo  = errors.New("nothing to undo")
	ErrNothingToRedo  = errors.New("nothing to redo")
	ErrPersistence    = errors.New("history persistence failed")
	ErrCorruptHistory = errors.New("corrupt history")
)

// InvariantError reports a broken internal invariant of the Manager. It is
// raised with panic: it signals a bug, not bad input.
type InvariantError struct {
	Reason string
}

func (e InvariantError) Error() string {
	return fmt.Sprintf("history invariant violated: %s", e.Reason)
}
