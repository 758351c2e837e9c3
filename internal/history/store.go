package history

import "context"

// Store persists the entries of a history. Save replaces whatever was stored
// before; Load returns the stored entries in chronological order and must not
// return a partial result when the stored data is malformed.
type Store interface {
	Save(ctx context.Context, entries []Calculation) error
	Load(ctx context.Context) ([]Calculation, error)
}
