package rnrform

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rnr/backend/internal/domain/rnrform"
)

// DraftLine wraps a line with its session-local save state
type DraftLine struct {
	Line    rnrform.RnRFormLine
	IsDirty bool
	Error   string

	// seq counts edits to this line. A flush captures it with its
	// snapshot and only clears the dirty flag if no further edit
	// arrived while the save was in flight.
	seq uint64
}

// ChangeListener is notified after a line has been mutated in the store.
// Listeners run outside the store lock and must not call back into it
// synchronously from the same goroutine expecting a consistent snapshot.
type ChangeListener func(lineID uuid.UUID)

// DraftLineStore is the single source of truth for all lines of one
// form-editing session. It tracks which lines carry unsaved edits,
// independent of the transport that will eventually persist them.
//
// The store is an explicitly-owned instance, one per session, injected
// into the autosave and finalise services. All operations are single
// synchronous critical sections; derived fields are recomputed inside
// Patch so they are never stale relative to the entered fields.
type DraftLineStore struct {
	mu        sync.Mutex
	formID    uuid.UUID
	calc      rnrform.CalculationContext
	lines     map[uuid.UUID]*DraftLine
	order     []uuid.UUID
	listeners []ChangeListener
	seeded    bool
	closed    bool
}

// NewDraftLineStore creates an empty store for one editing session
func NewDraftLineStore() *DraftLineStore {
	return &DraftLineStore{
		lines: make(map[uuid.UUID]*DraftLine),
	}
}

// SetInitial seeds the store with the form's lines. It is idempotent per
// form id: a second call for the same form is a no-op, so a re-load can
// never clobber edits made since the first seed.
func (s *DraftLineStore) SetInitial(formID uuid.UUID, calc rnrform.CalculationContext, lines []rnrform.RnRFormLine) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.seeded && s.formID == formID {
		return
	}

	s.formID = formID
	s.calc = calc
	s.seeded = true
	s.lines = make(map[uuid.UUID]*DraftLine, len(lines))
	s.order = make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		s.lines[line.ID] = &DraftLine{Line: line}
		s.order = append(s.order, line.ID)
	}
}

// FormID returns the id of the form this store was seeded with
func (s *DraftLineStore) FormID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formID
}

// Patch applies a partial update to one line, recomputing all derived
// fields before the patch is considered applied, and marks the line
// dirty. Any previous save error on the line is cleared. An unknown line
// id is silently ignored: it can legitimately arrive from a stale
// callback after a data reload.
//
// A patch whose result would be a confirmed line with a negative
// closing balance is refused whole; the line keeps its previous state.
// The guard runs against the recalculated line, so a patch that edits
// data and confirms in one step is checked against the balance it
// produces.
func (s *DraftLineStore) Patch(lineID uuid.UUID, patch rnrform.LinePatch) error {
	s.mu.Lock()
	draft, ok := s.lines[lineID]
	if s.closed || !ok {
		s.mu.Unlock()
		return nil
	}

	merged := rnrform.Recalculate(draft.Line, patch, s.calc)
	if merged.Confirmed {
		if err := merged.CanConfirm(); err != nil {
			s.mu.Unlock()
			return err
		}
	}

	draft.Line = merged
	draft.IsDirty = true
	draft.Error = ""
	draft.seq++
	listeners := s.listeners
	s.mu.Unlock()

	for _, notify := range listeners {
		notify(lineID)
	}
	return nil
}

// Line returns a copy of one draft line
func (s *DraftLineStore) Line(lineID uuid.UUID) (DraftLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.lines[lineID]
	if !ok {
		return DraftLine{}, false
	}
	return *draft, true
}

// Lines returns copies of all draft lines in form order
func (s *DraftLineStore) Lines() []DraftLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]DraftLine, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, *s.lines[id])
	}
	return result
}

// DirtyLines returns a snapshot of all lines currently marked dirty.
// Flags are not cleared here: clearing is a separate explicit step so a
// failed save can be retried with the flags intact.
func (s *DraftLineStore) DirtyLines() []rnrform.RnRFormLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirty := make([]rnrform.RnRFormLine, 0)
	for _, id := range s.order {
		if s.lines[id].IsDirty {
			dirty = append(dirty, s.lines[id].Line)
		}
	}
	return dirty
}

// dirtySnapshot returns the dirty lines together with their edit
// sequence numbers, for use with clearDirtyUnchanged.
func (s *DraftLineStore) dirtySnapshot() ([]rnrform.RnRFormLine, map[uuid.UUID]uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]rnrform.RnRFormLine, 0)
	seqs := make(map[uuid.UUID]uint64)
	for _, id := range s.order {
		if s.lines[id].IsDirty {
			lines = append(lines, s.lines[id].Line)
			seqs[id] = s.lines[id].seq
		}
	}
	return lines, seqs
}

// clearDirtyUnchanged clears dirty flags for the snapshot lines whose
// edit sequence is unchanged. A line edited while the save was in
// flight keeps its dirty flag so the newer edit is flushed next time.
func (s *DraftLineStore) clearDirtyUnchanged(seqs map[uuid.UUID]uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, seq := range seqs {
		if draft, ok := s.lines[id]; ok && draft.seq == seq {
			draft.IsDirty = false
			draft.Error = ""
		}
	}
}

// HasDirty reports whether any line carries unsaved edits
func (s *DraftLineStore) HasDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, draft := range s.lines {
		if draft.IsDirty {
			return true
		}
	}
	return false
}

// UnconfirmedLineIDs returns the ids of lines not yet confirmed, in form order
func (s *DraftLineStore) UnconfirmedLineIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uuid.UUID, 0)
	for _, id := range s.order {
		if !s.lines[id].Line.Confirmed {
			ids = append(ids, id)
		}
	}
	return ids
}

// ClearDirty clears the dirty flag on exactly the given lines. Callers
// pass the snapshot they actually saved, so an edit that arrived while
// the save was in flight keeps its (newer) dirty flag.
func (s *DraftLineStore) ClearDirty(lineIDs []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range lineIDs {
		if draft, ok := s.lines[id]; ok {
			draft.IsDirty = false
		}
	}
}

// SetError attaches a human-readable save error to one line. The dirty
// flag is left untouched so the next autosave tick retries the line.
func (s *DraftLineStore) SetError(lineID uuid.UUID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if draft, ok := s.lines[lineID]; ok {
		draft.Error = message
	}
}

// Subscribe registers a listener invoked after every line mutation
func (s *DraftLineStore) Subscribe(listener ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// Close marks the store as torn down. Later mutations become no-ops, so
// an in-flight flush completing after session teardown is harmless.
func (s *DraftLineStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
