package rnrform

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rnr/backend/internal/domain/rnrform"
	"github.com/rnr/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// FlushScheduler drives periodic flushing for one editing session. The
// concrete implementation lives in infrastructure; it is handed the
// session's flush operation at construction time.
type FlushScheduler interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// SchedulerFactory builds a FlushScheduler around a flush operation
type SchedulerFactory func(flush func(ctx context.Context) error) FlushScheduler

// EditSession is one form-editing session: the draft store plus the
// autosave and finalise services bound to it, and the recurring flush
// timer. Sessions are created by the SessionManager and torn down
// exactly once.
type EditSession struct {
	Form *rnrform.RnRForm

	store     *DraftLineStore
	autosave  *AutosaveService
	finalise  *FinaliseService
	scheduler FlushScheduler
	logger    *zap.Logger
	closeOnce sync.Once
}

// Store returns the session's draft line store
func (s *EditSession) Store() *DraftLineStore {
	return s.store
}

// PatchLine applies a partial line update to the draft store. Editing a
// finalised form is refused; the store refuses a patch that would leave
// a confirmed line with a negative closing balance.
func (s *EditSession) PatchLine(lineID uuid.UUID, patch rnrform.LinePatch) error {
	if s.Form.IsFinalised() {
		return shared.ErrAlreadyFinalised
	}
	return s.store.Patch(lineID, patch)
}

// Flush persists all dirty lines now
func (s *EditSession) Flush(ctx context.Context) error {
	return s.autosave.Flush(ctx)
}

// FlushOnNavigation initiates a best-effort flush for a navigation or
// refresh attempt. The flush is started synchronously with the
// navigation but the navigation never waits on its result.
func (s *EditSession) FlushOnNavigation(reason string) {
	if !s.store.HasDirty() {
		return
	}
	s.logger.Debug("navigation flush initiated",
		zap.String("form_id", s.Form.ID.String()),
		zap.String("reason", reason),
	)
	go func() {
		// Detached from the request context: the caller is leaving.
		if err := s.autosave.Flush(context.Background()); err != nil {
			s.logger.Warn("navigation flush failed",
				zap.String("form_id", s.Form.ID.String()),
				zap.String("reason", reason),
				zap.Error(err),
			)
		}
	}()
}

// Finalise runs the finalisation workflow for the session's form
func (s *EditSession) Finalise(ctx context.Context, userConfirmed bool) error {
	return s.finalise.Finalise(ctx, userConfirmed)
}

// close tears the session down: stop the timer exactly once, attempt a
// last flush, and mark the store closed so late results are ignored.
func (s *EditSession) close(ctx context.Context) {
	s.closeOnce.Do(func() {
		if err := s.scheduler.Stop(ctx); err != nil {
			s.logger.Warn("failed to stop autosave scheduler", zap.Error(err))
		}
		if err := s.autosave.Flush(ctx); err != nil {
			s.logger.Warn("final flush on session close failed",
				zap.String("form_id", s.Form.ID.String()),
				zap.Error(err),
			)
		}
		s.store.Close()
	})
}

// SessionManager opens and tracks editing sessions, one per form. A
// form is loaded once per session; opening an already-open form returns
// the existing session so re-renders never reset in-progress edits.
type SessionManager struct {
	repo         rnrform.RnRFormRepository
	events       shared.EventPublisher
	notifier     Notifier
	newScheduler SchedulerFactory
	logger       *zap.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*EditSession
}

// NewSessionManager creates a new SessionManager
func NewSessionManager(
	repo rnrform.RnRFormRepository,
	events shared.EventPublisher,
	notifier Notifier,
	newScheduler SchedulerFactory,
	logger *zap.Logger,
) *SessionManager {
	return &SessionManager{
		repo:         repo,
		events:       events,
		notifier:     notifier,
		newScheduler: newScheduler,
		logger:       logger,
		sessions:     make(map[uuid.UUID]*EditSession),
	}
}

// Open loads a form and starts an editing session for it. Idempotent
// per form id while the session is alive.
func (m *SessionManager) Open(ctx context.Context, formID uuid.UUID) (*EditSession, error) {
	m.mu.Lock()
	if session, ok := m.sessions[formID]; ok {
		m.mu.Unlock()
		return session, nil
	}
	m.mu.Unlock()

	form, err := m.repo.FindByID(ctx, formID)
	if err != nil {
		return nil, err
	}

	store := NewDraftLineStore()
	store.SetInitial(form.ID, form.CalculationContext(), form.Lines)

	autosave := NewAutosaveService(store, form, m.repo, m.events, m.notifier, m.logger)
	finalise := NewFinaliseService(store, form, m.repo, autosave, m.events, m.notifier, m.logger)

	session := &EditSession{
		Form:      form,
		store:     store,
		autosave:  autosave,
		finalise:  finalise,
		scheduler: m.newScheduler(autosave.Flush),
		logger:    m.logger,
	}

	m.mu.Lock()
	if existing, ok := m.sessions[formID]; ok {
		// Lost the race to another opener; use theirs.
		m.mu.Unlock()
		return existing, nil
	}
	m.sessions[formID] = session
	m.mu.Unlock()

	if err := session.scheduler.Start(ctx); err != nil {
		m.logger.Warn("failed to start autosave scheduler",
			zap.String("form_id", formID.String()),
			zap.Error(err),
		)
	}

	m.logger.Info("editing session opened",
		zap.String("form_id", formID.String()),
		zap.String("status", form.Status.String()),
		zap.Int("lines", len(form.Lines)),
	)

	return session, nil
}

// Get returns the open session for a form, if any
func (m *SessionManager) Get(formID uuid.UUID) (*EditSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[formID]
	return session, ok
}

// Close ends the session for a form: the timer is cancelled, a final
// flush is attempted, and the session is forgotten.
func (m *SessionManager) Close(ctx context.Context, formID uuid.UUID) error {
	m.mu.Lock()
	session, ok := m.sessions[formID]
	delete(m.sessions, formID)
	m.mu.Unlock()

	if !ok {
		return shared.ErrNotFound
	}

	session.close(ctx)
	m.logger.Info("editing session closed", zap.String("form_id", formID.String()))
	return nil
}

// CloseAll ends every open session, for server shutdown
func (m *SessionManager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*EditSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[uuid.UUID]*EditSession)
	m.mu.Unlock()

	for _, s := range sessions {
		s.close(ctx)
	}
}
