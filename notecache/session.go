// Package notecache keeps a client-side mirror of one owner's notes and
// persists local edits through a debounced, per-note autosave cycle.
//
// A Session is created once the caller holds a verified token and is torn
// down with Close at sign-out. Edits apply to the mirror immediately; the
// server only ever sees the coalesced patch once a note has been quiet for
// the debounce period, and at most one save per note is in flight.
package notecache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dododo1295/notetree/client"
	"github.com/dododo1295/notetree/model"
	"github.com/dododo1295/notetree/tree"
	"github.com/dododo1295/notetree/utils"

	"go.uber.org/zap"
)

const (
	DefaultDebounce    = time.Second
	DefaultSaveTimeout = 30 * time.Second
)

var ErrClosed = errors.New("notecache: session closed")

// API is the remote note repository. *client.Client satisfies it.
type API interface {
	List(ctx context.Context) ([]*model.Note, error)
	Create(ctx context.Context, req client.CreateRequest) (*model.Note, error)
	Update(ctx context.Context, id string, update model.NoteUpdate) (*model.Note, error)
	Delete(ctx context.Context, id string) error
}

// Snapshot is a consistent copy of the mirror handed to change listeners.
type Snapshot struct {
	Notes  []*model.Note
	Forest []*tree.Node
}

type Option func(*Session)

// WithDebounce sets the quiet period before an edited note is saved.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithSaveTimeout bounds each background save.
func WithSaveTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.saveTimeout = d
		}
	}
}

// WithErrorHandler is called, outside the session lock, whenever a
// background save or follow-up refresh fails.
func WithErrorHandler(fn func(id string, err error)) Option {
	return func(s *Session) {
		s.onError = fn
	}
}

// WithOnChange is called, outside the session lock, after every change to
// the mirror.
func WithOnChange(fn func(Snapshot)) Option {
	return func(s *Session) {
		s.onChange = fn
	}
}

type Session struct {
	api         API
	debounce    time.Duration
	saveTimeout time.Duration
	onError     func(id string, err error)
	onChange    func(Snapshot)

	mu      sync.Mutex
	notes   map[string]*model.Note
	forest  []*tree.Node
	entries map[string]*entry
	closed  bool

	// seq counts changes the server has confirmed. While a Refresh is
	// waiting on List, recent maps each note changed in the meantime to the
	// seq of that change, so the older list cannot overwrite it.
	seq        uint64
	refreshing int
	recent     map[string]uint64
}

// New returns an empty session. Call Refresh to load the owner's notes.
func New(api API, opts ...Option) *Session {
	s := &Session{
		api:         api,
		debounce:    DefaultDebounce,
		saveTimeout: DefaultSaveTimeout,
		notes:       make(map[string]*model.Note),
		entries:     make(map[string]*entry),
		recent:      make(map[string]uint64),
		forest:      []*tree.Node{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns a session already loaded from api.
func Open(ctx context.Context, api API, opts ...Option) (*Session, error) {
	s := New(api, opts...)
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Notes returns copies of the mirrored notes, most recently updated first.
func (s *Session) Notes() []*model.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notesLocked()
}

// Forest returns the current forest. Callers must not modify it.
func (s *Session) Forest() []*tree.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forest
}

func (s *Session) Note(id string) (*model.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// State reports the autosave state of a note. Untracked notes are Clean.
func (s *Session) State(id string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		return e.state
	}
	return Clean
}

// Err returns the error of the note's last failed save, if it has not
// been saved successfully since.
func (s *Session) Err(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		return e.err
	}
	return nil
}

// Edit applies patch to the mirror at once and schedules it for saving
// after the debounce period. Patches to the same note coalesce, newer
// fields winning. Editing a note that is not in the mirror returns
// model.ErrNoteNotFound without contacting the server.
func (s *Session) Edit(id string, patch model.NoteUpdate) error {
	if patch.IsEmpty() {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	n, ok := s.notes[id]
	if !ok {
		s.mu.Unlock()
		return model.ErrNoteNotFound
	}
	patch.ApplyTo(n)
	s.rebuildLocked()
	e := s.entryLocked(id)
	e.pending.Merge(patch)
	if e.state != Saving {
		e.state = Dirty
	}
	s.armLocked(id, e)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(snap)
	return nil
}

// ApplyLocal shallow-merges patch into the mirrored note, or removes the
// note when patch is nil. Unknown ids are ignored. Nothing is sent to the
// server. A save still in flight for a removed note is discarded when it
// completes.
func (s *Session) ApplyLocal(id string, patch *model.NoteUpdate) {
	s.mu.Lock()
	if patch == nil {
		delete(s.notes, id)
		s.markLocked(id)
		if e, ok := s.entries[id]; ok {
			e.stopTimer()
			e.pending = model.NoteUpdate{}
			e.err = nil
			if e.state == Saving {
				e.deleted = true
			} else {
				delete(s.entries, id)
			}
		}
	} else if n, ok := s.notes[id]; ok {
		patch.ApplyTo(n)
	}
	s.rebuildLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(snap)
}

// Refresh reloads the owner's notes and rebuilds the forest. Edits that
// have not been confirmed yet are laid over the fetched records, and notes
// saved, created or removed while the list was in transit keep their local
// record.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	start := s.seq
	s.refreshing++
	s.mu.Unlock()

	fetched, err := s.api.List(ctx)

	s.mu.Lock()
	s.refreshing--
	if err != nil {
		if s.refreshing == 0 {
			clear(s.recent)
		}
		s.mu.Unlock()
		return fmt.Errorf("refresh notes: %w", err)
	}

	notes := make(map[string]*model.Note, len(fetched))
	for _, n := range fetched {
		if n == nil || n.ID == "" {
			continue
		}
		notes[n.ID] = n.Clone()
	}
	for id, e := range s.entries {
		if n, ok := notes[id]; ok {
			if e.inflight != nil {
				e.inflight.ApplyTo(n)
			}
			e.pending.ApplyTo(n)
		}
		if e.state == Reconciled {
			e.state = Clean
		}
		if e.state == Clean && e.idle() {
			delete(s.entries, id)
		}
	}
	for id, seq := range s.recent {
		if seq <= start {
			continue
		}
		if n, ok := s.notes[id]; ok {
			notes[id] = n
		} else {
			delete(notes, id)
		}
	}
	if s.refreshing == 0 {
		clear(s.recent)
	}
	s.notes = notes
	s.rebuildLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(snap)
	return nil
}

// Create persists a new note, adds it to the mirror and refreshes.
func (s *Session) Create(ctx context.Context, req client.CreateRequest) (*model.Note, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	note, err := s.api.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.notes[note.ID] = note.Clone()
	s.markLocked(note.ID)
	s.rebuildLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.emit(snap)

	if err := s.Refresh(ctx); err != nil {
		s.reportError(note.ID, err)
	}
	return note, nil
}

// Delete removes the note on the server, drops it and any unsaved edits
// from the mirror, and refreshes. Children keep their parent id.
func (s *Session) Delete(ctx context.Context, id string) error {
	if s.isClosed() {
		return ErrClosed
	}

	s.mu.Lock()
	if e, ok := s.entries[id]; ok {
		e.stopTimer()
	}
	s.mu.Unlock()

	if err := s.api.Delete(ctx, id); err != nil {
		s.mu.Lock()
		if e, ok := s.entries[id]; ok && e.state == Dirty && !e.pending.IsEmpty() {
			s.armLocked(id, e)
		}
		s.mu.Unlock()
		return err
	}

	s.ApplyLocal(id, nil)
	if err := s.Refresh(ctx); err != nil {
		s.reportError(id, err)
	}
	return nil
}

// Move reparents the note (nil parentID for the root) and optionally sets
// its sibling order, saving at once instead of waiting for the debounce.
// A rejected move is dropped from the pending edits and the mirror is
// reloaded; any other failure leaves it pending like a failed autosave.
func (s *Session) Move(ctx context.Context, id string, parentID *string, order *float64) error {
	patch := model.NoteUpdate{Order: order, ParentID: model.ClearID()}
	if parentID != nil && *parentID != "" {
		patch.ParentID = model.SetID(*parentID)
	}
	if err := s.Edit(id, patch); err != nil {
		return err
	}

	if err := s.saveNow(ctx, id); err != nil {
		if model.IsValidation(err) || errors.Is(err, model.ErrNoteNotFound) {
			s.mu.Lock()
			if e, ok := s.entries[id]; ok {
				e.pending.ParentID = model.OptionalID{}
				e.pending.Order = nil
				if e.pending.IsEmpty() && e.state == Dirty {
					e.stopTimer()
					e.err = nil
					e.state = Clean
				}
			}
			s.mu.Unlock()
			if rerr := s.Refresh(ctx); rerr != nil {
				s.reportError(id, rerr)
			}
		}
		return err
	}
	return s.Refresh(ctx)
}

// Retry saves the note's pending edits now, after any in-flight save.
func (s *Session) Retry(ctx context.Context, id string) error {
	return s.saveNow(ctx, id)
}

// Flush saves every note with pending edits and waits for all saves to
// finish. Each failing note is attempted once per call; the failures are
// returned joined.
func (s *Session) Flush(ctx context.Context) error {
	failed := make(map[string]error)
	for {
		s.mu.Lock()
		var (
			ids   []string
			waits []chan struct{}
		)
		for id, e := range s.entries {
			if e.deleted {
				continue
			}
			if e.state != Saving && !e.pending.IsEmpty() {
				if _, ok := failed[id]; ok {
					continue
				}
				s.startSaveLocked(id, e)
			}
			if e.state == Saving {
				ids = append(ids, id)
				waits = append(waits, e.done)
			}
		}
		s.mu.Unlock()

		if len(waits) == 0 {
			break
		}
		for _, done := range waits {
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		s.mu.Lock()
		for _, id := range ids {
			if e, ok := s.entries[id]; ok && e.state != Saving && e.err != nil {
				failed[id] = e.err
			}
		}
		s.mu.Unlock()
	}

	if len(failed) == 0 {
		return nil
	}
	ids := make([]string, 0, len(failed))
	for id := range failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	errs := make([]error, 0, len(ids))
	for _, id := range ids {
		errs = append(errs, fmt.Errorf("save note %s: %w", id, failed[id]))
	}
	return errors.Join(errs...)
}

// Close stops all timers, saves pending edits and waits for in-flight
// saves. Later edits fail with ErrClosed.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for _, e := range s.entries {
		e.stopTimer()
	}
	s.mu.Unlock()

	return s.Flush(ctx)
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) entryLocked(id string) *entry {
	e, ok := s.entries[id]
	if !ok {
		e = &entry{state: Clean}
		s.entries[id] = e
	}
	return e
}

// armLocked restarts the note's debounce timer. A timer replaced before it
// fires is recognised as stale by its generation.
func (s *Session) armLocked(id string, e *entry) {
	e.stopTimer()
	gen := e.gen
	e.timer = time.AfterFunc(s.debounce, func() {
		s.fire(id, gen)
	})
}

func (s *Session) fire(id string, gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.gen != gen {
		return
	}
	e.timer = nil
	if e.state == Saving {
		e.queued = true
		return
	}
	if e.pending.IsEmpty() {
		return
	}
	s.startSaveLocked(id, e)
}

func (s *Session) startSaveLocked(id string, e *entry) {
	e.stopTimer()
	patch := e.pending
	e.pending = model.NoteUpdate{}
	e.inflight = &patch
	e.state = Saving
	e.queued = false
	e.done = make(chan struct{})
	go s.save(id, e, patch, e.done)
}

func (s *Session) save(id string, e *entry, patch model.NoteUpdate, done chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	saved, err := s.api.Update(ctx, id, patch)
	cancel()

	s.mu.Lock()
	e.inflight = nil
	if e.deleted {
		if s.entries[id] == e {
			delete(s.entries, id)
		}
		e.state = Clean
		e.queued = false
		close(done)
		s.mu.Unlock()
		return
	}
	newer := !e.pending.IsEmpty()
	if err != nil {
		restored := patch
		restored.Merge(e.pending)
		e.pending = restored
		e.err = err
		e.state = Dirty
	} else {
		e.err = nil
		s.markLocked(id)
		s.reconcileLocked(id, saved, e)
		e.state = Reconciled
		if newer {
			e.state = Dirty
		}
	}
	if newer && e.queued {
		s.startSaveLocked(id, e)
	}
	e.queued = false
	close(done)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err != nil {
		utils.Logger.Warn("note save failed", zap.String("note_id", id), zap.Error(err))
		s.reportError(id, err)
	}
	s.emit(snap)
}

// reconcileLocked copies only server-owned fields from a save response.
// derivedText is skipped while a newer content edit is pending.
func (s *Session) reconcileLocked(id string, saved *model.Note, e *entry) {
	n, ok := s.notes[id]
	if !ok || saved == nil {
		return
	}
	n.UpdatedAt = saved.UpdatedAt
	n.CreatedAt = saved.CreatedAt
	if e.pending.Content == nil {
		n.Markdown = saved.Markdown
	}
	s.rebuildLocked()
}

// saveNow starts a save of the note's pending edits, waiting out any save
// already in flight, and returns the outcome.
func (s *Session) saveNow(ctx context.Context, id string) error {
	for {
		s.mu.Lock()
		e, ok := s.entries[id]
		if !ok {
			s.mu.Unlock()
			return nil
		}
		if e.state == Saving {
			done := e.done
			s.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		if e.pending.IsEmpty() {
			err := e.err
			s.mu.Unlock()
			return err
		}
		s.startSaveLocked(id, e)
		done := e.done
		s.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}

		s.mu.Lock()
		err := e.err
		s.mu.Unlock()
		return err
	}
}

// markLocked records a change to the note that a List already in transit
// cannot know about.
func (s *Session) markLocked(id string) {
	s.seq++
	if s.refreshing > 0 {
		s.recent[id] = s.seq
	}
}

func (s *Session) rebuildLocked() {
	list := make([]*model.Note, 0, len(s.notes))
	for _, n := range s.notes {
		list = append(list, n)
	}
	s.forest = tree.BuildForest(list, nil)
}

func (s *Session) notesLocked() []*model.Note {
	list := make([]*model.Note, 0, len(s.notes))
	for _, n := range s.notes {
		list = append(list, n.Clone())
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].UpdatedAt.After(list[j].UpdatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func (s *Session) snapshotLocked() *Snapshot {
	if s.onChange == nil {
		return nil
	}
	return &Snapshot{Notes: s.notesLocked(), Forest: s.forest}
}

func (s *Session) emit(snap *Snapshot) {
	if snap != nil && s.onChange != nil {
		s.onChange(*snap)
	}
}

func (s *Session) reportError(id string, err error) {
	if s.onError != nil {
		s.onError(id, err)
	}
}
