package history

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"go.uber.org/zap"
)

// DefaultMaxSize is the capacity used when Options.MaxSize is not positive.
const DefaultMaxSize = 1000

// Options configures a Manager.
type Options struct {
	// MaxSize caps the number of entries. Appending beyond it evicts the
	// oldest entry.
	MaxSize int
	// MaxUndo caps the undo stack, dropping the oldest action beyond it.
	// Zero leaves it unbounded.
	MaxUndo int
	// PersistOnClear saves the emptied history as part of Clear.
	PersistOnClear bool
	Logger         *zap.Logger
}

// Manager owns the history state: the entries plus the undo and redo stacks.
// It is not safe for concurrent use.
type Manager struct {
	store          Store
	maxSize        int
	maxUndo        int
	persistOnClear bool
	logger         *zap.Logger

	entries []Calculation
	undo    []*Snapshot
	redo    []*Snapshot
	seq     uint64
}

// NewManager returns an empty Manager persisting through store. store may be
// nil, in which case Save and Load fail with ErrPersistence.
func NewManager(store Store, opts Options) *Manager {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Manager{
		store:          store,
		maxSize:        opts.MaxSize,
		maxUndo:        max(opts.MaxUndo, 0),
		persistOnClear: opts.PersistOnClear,
		logger:         opts.Logger,
	}
}

// Record appends c. At capacity the oldest entry is evicted first; the
// eviction is part of the same undoable action.
func (m *Manager) Record(c Calculation) {
	snap := &Snapshot{Kind: SnapshotAppend, Appended: c}
	if len(m.entries) >= m.maxSize {
		evicted := m.entries[0]
		snap.Evicted = &evicted
	}

	m.forward(snap)
	m.push(snap)

	m.logger.Debug("calculation recorded",
		zap.String("operator", c.Operator),
		zap.Int("entries", len(m.entries)),
		zap.Bool("evicted", snap.Evicted != nil),
	)
}

// Clear removes every entry. The removal can be undone. When PersistOnClear
// is set the empty history is saved immediately; a failed save is returned
// but the entries stay cleared.
func (m *Manager) Clear(ctx context.Context) error {
	snap := &Snapshot{Kind: SnapshotClear, Prior: slices.Clone(m.entries)}

	m.forward(snap)
	m.push(snap)

	m.logger.Debug("history cleared", zap.Int("removed", len(snap.Prior)))

	if m.persistOnClear {
		return m.Save(ctx)
	}
	return nil
}

// Undo reverses the most recent action and makes it available to Redo.
func (m *Manager) Undo() (Snapshot, error) {
	if len(m.undo) == 0 {
		return Snapshot{}, ErrNothingToUndo
	}

	snap := m.undo[len(m.undo)-1]
	m.undo[len(m.undo)-1] = nil
	m.undo = m.undo[:len(m.undo)-1]

	m.inverse(snap)
	move(snap, onUndo, onRedo)
	m.redo = append(m.redo, snap)
	m.verify()

	m.logger.Debug("history undo", zap.Stringer("kind", snap.Kind), zap.Int("entries", len(m.entries)))
	return snap.copy(), nil
}

// Redo replays the most recently undone action.
func (m *Manager) Redo() (Snapshot, error) {
	if len(m.redo) == 0 {
		return Snapshot{}, ErrNothingToRedo
	}

	snap := m.redo[len(m.redo)-1]
	m.redo[len(m.redo)-1] = nil
	m.redo = m.redo[:len(m.redo)-1]

	m.forward(snap)
	move(snap, onRedo, onUndo)
	m.undo = append(m.undo, snap)
	m.verify()

	m.logger.Debug("history redo", zap.Stringer("kind", snap.Kind), zap.Int("entries", len(m.entries)))
	return snap.copy(), nil
}

// All yields the entries in chronological order as of the call. The
// sequence can be ranged over any number of times.
func (m *Manager) All() iter.Seq[Calculation] {
	return slices.Values(slices.Clone(m.entries))
}

// Entries returns a copy of the entries in chronological order.
func (m *Manager) Entries() []Calculation {
	return slices.Clone(m.entries)
}

// Last returns the most recent entry.
func (m *Manager) Last() (Calculation, bool) {
	if len(m.entries) == 0 {
		return Calculation{}, false
	}
	return m.entries[len(m.entries)-1], true
}

// Len returns the number of entries.
func (m *Manager) Len() int { return len(m.entries) }

func (m *Manager) MaxSize() int { return m.maxSize }

// UndoDepth and RedoDepth report the number of actions available to Undo and Redo.
func (m *Manager) UndoDepth() int { return len(m.undo) }
func (m *Manager) RedoDepth() int { return len(m.redo) }

// Save writes the entries to the store. The undo and redo stacks are not
// persisted.
func (m *Manager) Save(ctx context.Context) error {
	if m.store == nil {
		return fmt.Errorf("%w: no store configured", ErrPersistence)
	}

	if err := m.store.Save(ctx, slices.Clone(m.entries)); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	m.logger.Debug("history saved", zap.Int("entries", len(m.entries)))
	return nil
}

// Load replaces the entries with the stored ones and empties both stacks.
// Loading is a new baseline and cannot be undone. If the store holds more
// than MaxSize entries only the newest are kept. On error the current state
// is left untouched.
func (m *Manager) Load(ctx context.Context) error {
	if m.store == nil {
		return fmt.Errorf("%w: no store configured", ErrPersistence)
	}

	loaded, err := m.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrCorruptHistory) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if extra := len(loaded) - m.maxSize; extra > 0 {
		m.logger.Warn("stored history exceeds capacity, dropping oldest entries",
			zap.Int("stored", len(loaded)),
			zap.Int("dropped", extra),
		)
		loaded = loaded[extra:]
	}

	m.entries = slices.Clone(loaded)
	m.undo = drop(m.undo, onUndo)
	m.redo = drop(m.redo, onRedo)

	m.logger.Debug("history loaded", zap.Int("entries", len(m.entries)))
	return nil
}

// push records snap as the newest undoable action. Any redo history is
// invalidated, and beyond maxUndo the oldest action is forgotten.
func (m *Manager) push(snap *Snapshot) {
	m.seq++
	snap.seq = m.seq
	move(snap, onNeither, onUndo)
	m.undo = append(m.undo, snap)

	if m.maxUndo > 0 && len(m.undo) > m.maxUndo {
		n := len(m.undo) - m.maxUndo
		drop(m.undo[:n], onUndo)
		m.undo = slices.Delete(m.undo, 0, n)
	}
	m.redo = drop(m.redo, onRedo)

	m.verify()
}

// move transfers snap between stacks. Finding it anywhere but from means
// the stacks have diverged.
func move(snap *Snapshot, from, to stack) {
	if snap.on != from {
		panic(InvariantError{Reason: fmt.Sprintf("snapshot %d is on the %s stack, expected %s", snap.seq, snap.on, from)})
	}
	snap.on = to
}

// drop detaches every snapshot in snaps from stack s and returns snaps
// emptied.
func drop(snaps []*Snapshot, s stack) []*Snapshot {
	for i, snap := range snaps {
		move(snap, s, onNeither)
		snaps[i] = nil
	}
	return snaps[:0]
}

// forward applies the action snap describes.
func (m *Manager) forward(snap *Snapshot) {
	switch snap.Kind {
	case SnapshotAppend:
		if snap.Evicted != nil {
			if len(m.entries) == 0 || !m.entries[0].Equal(*snap.Evicted) {
				panic(InvariantError{Reason: "evicted entry is not the oldest entry"})
			}
			m.entries = slices.Delete(m.entries, 0, 1)
		}
		m.entries = append(m.entries, snap.Appended)
	case SnapshotClear:
		m.entries = nil
	default:
		panic(InvariantError{Reason: fmt.Sprintf("unknown snapshot kind %d", snap.Kind)})
	}
}

// inverse reverts the action snap describes.
func (m *Manager) inverse(snap *Snapshot) {
	switch snap.Kind {
	case SnapshotAppend:
		last := len(m.entries) - 1
		if last < 0 || !m.entries[last].Equal(snap.Appended) {
			panic(InvariantError{Reason: "appended entry is not the newest entry"})
		}
		m.entries = m.entries[:last]
		if snap.Evicted != nil {
			m.entries = slices.Insert(m.entries, 0, *snap.Evicted)
		}
	case SnapshotClear:
		m.entries = slices.Clone(snap.Prior)
	default:
		panic(InvariantError{Reason: fmt.Sprintf("unknown snapshot kind %d", snap.Kind)})
	}
}

func (m *Manager) verify() {
	if len(m.entries) > m.maxSize {
		panic(InvariantError{Reason: fmt.Sprintf("%d entries exceed capacity %d", len(m.entries), m.maxSize)})
	}
}
