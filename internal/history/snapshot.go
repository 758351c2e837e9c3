package history

import "slices"

// SnapshotKind identifies which mutating action a Snapshot reverses.
type SnapshotKind int

const (
	// SnapshotAppend records that an entry was appended, possibly evicting
	// the oldest entry to stay within capacity.
	SnapshotAppend SnapshotKind = iota + 1
	// SnapshotClear records that all entries were removed.
	SnapshotClear
)

func (k SnapshotKind) String() string {
	switch k {
	case SnapshotAppend:
		return "append"
	case SnapshotClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Snapshot is the minimal information needed to reverse or replay one
// mutating action on the history.
type Snapshot struct {
	Kind SnapshotKind

	// Appended and Evicted are set for SnapshotAppend. Evicted is nil when
	// the append did not hit capacity.
	Appended Calculation
	Evicted  *Calculation

	// Prior holds the entries a SnapshotClear removed.
	Prior []Calculation

	seq uint64
	on  stack
}

// stack is where a Snapshot currently lives. A Snapshot is on at most one
// stack at a time.
type stack int

const (
	onNeither stack = iota
	onUndo
	onRedo
)

func (s stack) String() string {
	switch s {
	case onUndo:
		return "undo"
	case onRedo:
		return "redo"
	default:
		return "neither"
	}
}

// copy returns a Snapshot that shares no memory with s.
func (s *Snapshot) copy() Snapshot {
	out := Snapshot{
		Kind:     s.Kind,
		Appended: s.Appended,
		Prior:    slices.Clone(s.Prior),
		seq:      s.seq,
	}
	if s.Evicted != nil {
		evicted := *s.Evicted
		out.Evicted = &evicted
	}
	return out
}
