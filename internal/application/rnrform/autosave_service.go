package rnrform

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rnr/backend/internal/domain/rnrform"
	"github.com/rnr/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AutosaveService persists dirty lines through the data source. The
// repeating timer, navigation intercepts and the finalise workflow are
// all equivalent callers of the one idempotent Flush operation.
type AutosaveService struct {
	store    *DraftLineStore
	form     *rnrform.RnRForm
	repo     rnrform.RnRFormRepository
	events   shared.EventPublisher
	notifier Notifier
	logger   *zap.Logger

	// Serializes overlapping flush triggers (timer tick racing a
	// navigation beacon); edits are never blocked by this.
	flushMu sync.Mutex
}

// NewAutosaveService creates a new AutosaveService for one session
func NewAutosaveService(
	store *DraftLineStore,
	form *rnrform.RnRForm,
	repo rnrform.RnRFormRepository,
	events shared.EventPublisher,
	notifier Notifier,
	logger *zap.Logger,
) *AutosaveService {
	return &AutosaveService{
		store:    store,
		form:     form,
		repo:     repo,
		events:   events,
		notifier: notifier,
		logger:   logger,
	}
}

// Flush sends all currently dirty lines to the data source in a single
// bulk call. With nothing dirty it returns immediately without a network
// call. On success the dirty flags of exactly the sent snapshot are
// cleared; an edit that landed mid-flight keeps its flag and is picked
// up by the next flush. On failure the flags stay set, the error is
// recorded per line, and the user is notified; the next tick retries.
func (s *AutosaveService) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	dirty, seqs := s.store.dirtySnapshot()
	if len(dirty) == 0 {
		return nil
	}

	lineIDs := make([]uuid.UUID, len(dirty))
	for i := range dirty {
		lineIDs[i] = dirty[i].ID
	}

	s.logger.Debug("flushing dirty lines",
		zap.String("form_id", s.form.ID.String()),
		zap.Int("count", len(dirty)),
	)

	if err := s.repo.UpdateLines(ctx, s.form.ID, dirty); err != nil {
		for _, id := range lineIDs {
			s.store.SetError(id, err.Error())
		}
		s.notifier.Error("Failed to save changes: " + err.Error())
		s.logger.Warn("autosave flush failed",
			zap.String("form_id", s.form.ID.String()),
			zap.Int("count", len(dirty)),
			zap.Error(err),
		)
		return err
	}

	s.store.clearDirtyUnchanged(seqs)

	if err := s.events.Publish(ctx, rnrform.NewLinesSavedEvent(s.form, lineIDs)); err != nil {
		s.logger.Warn("failed to publish lines saved event", zap.Error(err))
	}

	s.logger.Debug("autosave flush completed",
		zap.String("form_id", s.form.ID.String()),
		zap.Int("count", len(dirty)),
	)

	return nil
}
