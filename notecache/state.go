package notecache

import (
	"time"

	"github.com/dododo1295/notetree/model"
)

// State is the autosave state of one note.
type State int

const (
	// Clean means the local record matches the last known server record.
	Clean State = iota
	// Dirty means local edits are waiting for the debounce timer.
	Dirty
	// Saving means a save is in flight. Newer edits wait behind it.
	Saving
	// Reconciled means the last save succeeded and its response was applied.
	Reconciled
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Saving:
		return "saving"
	case Reconciled:
		return "reconciled"
	default:
		return "unknown"
	}
}

// entry tracks the autosave cycle of a single note.
type entry struct {
	state State

	// pending holds edits not yet sent; inflight is the patch of the
	// current save.
	pending  model.NoteUpdate
	inflight *model.NoteUpdate

	timer *time.Timer
	gen   int
	// queued is set when the timer fires while a save is in flight.
	queued bool

	done chan struct{}
	err  error

	// deleted is set when the note is removed while a save is in flight.
	deleted bool
}

func (e *entry) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
}

// idle reports whether the entry carries nothing worth keeping.
func (e *entry) idle() bool {
	return e.state != Saving && e.pending.IsEmpty() && e.timer == nil && e.err == nil
}
