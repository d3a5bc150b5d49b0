package rnrform

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rnr/backend/internal/domain/rnrform"
	"github.com/rnr/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// FinaliseService gates the DRAFT -> FINALISED transition of a form.
// The transition is irreversible, so unlike navigation it never
// auto-flushes: the user must have acknowledged every pending change
// before the form can be closed out.
type FinaliseService struct {
	store    *DraftLineStore
	form     *rnrform.RnRForm
	repo     rnrform.RnRFormRepository
	autosave *AutosaveService
	events   shared.EventPublisher
	notifier Notifier
	logger   *zap.Logger
}

// NewFinaliseService creates a new FinaliseService for one session
func NewFinaliseService(
	store *DraftLineStore,
	form *rnrform.RnRForm,
	repo rnrform.RnRFormRepository,
	autosave *AutosaveService,
	events shared.EventPublisher,
	notifier Notifier,
	logger *zap.Logger,
) *FinaliseService {
	return &FinaliseService{
		store:    store,
		form:     form,
		repo:     repo,
		autosave: autosave,
		events:   events,
		notifier: notifier,
		logger:   logger,
	}
}

// Finalise runs the finalisation workflow:
//
//  1. Refuse while any line has unsaved edits; no data source call is
//     made and nothing is auto-flushed.
//  2. Without userConfirmed, report the confirmation the user must give.
//     The message differs depending on whether unconfirmed lines would
//     be auto-confirmed.
//  3. With userConfirmed and unconfirmed lines present, bulk-confirm
//     them through the normal save path; this must be durably saved
//     before finalise is attempted.
//  4. Invoke the data source finalise. On failure the form stays in
//     DRAFT and the error is surfaced as a notification.
func (s *FinaliseService) Finalise(ctx context.Context, userConfirmed bool) error {
	if s.form.IsFinalised() {
		return shared.ErrAlreadyFinalised
	}

	if s.store.HasDirty() {
		s.notifier.Error("All changes must be saved before finalising")
		return shared.ErrUnsavedChanges
	}

	unconfirmed := s.store.UnconfirmedLineIDs()

	if !userConfirmed {
		if len(unconfirmed) > 0 {
			return shared.NewDomainError("CONFIRMATION_REQUIRED",
				fmt.Sprintf("%d unconfirmed lines will be confirmed automatically. Finalise this form?", len(unconfirmed)))
		}
		return shared.NewDomainError("CONFIRMATION_REQUIRED",
			"Are you sure you want to finalise this form? It cannot be edited afterwards.")
	}

	if len(unconfirmed) > 0 {
		if err := s.confirmRemainingLines(ctx, unconfirmed); err != nil {
			// Don't finalise when confirming the remaining lines
			// failed; the form stays exactly as it was.
			return err
		}
	}

	if err := s.repo.Finalise(ctx, s.form.ID); err != nil {
		s.notifier.Error("Failed to finalise form: " + err.Error())
		s.logger.Warn("finalise failed",
			zap.String("form_id", s.form.ID.String()),
			zap.Error(err),
		)
		return err
	}

	s.syncFormLines()
	if err := s.form.Finalise(); err != nil {
		// Local state disagreed with the data source; log and carry on
		// with the durable status.
		s.logger.Warn("local finalise state mismatch",
			zap.String("form_id", s.form.ID.String()),
			zap.Error(err),
		)
	}

	if err := s.events.Publish(ctx, s.form.GetDomainEvents()...); err != nil {
		s.logger.Warn("failed to publish finalise events", zap.Error(err))
	}
	s.form.ClearDomainEvents()

	s.notifier.Success("Form finalised")
	s.logger.Info("form finalised", zap.String("form_id", s.form.ID.String()))

	return nil
}

// syncFormLines copies the saved draft state back onto the aggregate so
// its line set matches what the data source now holds.
func (s *FinaliseService) syncFormLines() {
	for i := range s.form.Lines {
		if draft, ok := s.store.Line(s.form.Lines[i].ID); ok {
			s.form.Lines[i] = draft.Line
		}
	}
}

// confirmRemainingLines marks every unconfirmed line confirmed and
// saves the batch through the same update path as a normal autosave.
// Every line is checked before any is touched: a line that cannot be
// confirmed refuses the whole batch and the store is left as it was.
func (s *FinaliseService) confirmRemainingLines(ctx context.Context, unconfirmed []uuid.UUID) error {
	for _, id := range unconfirmed {
		draft, ok := s.store.Line(id)
		if !ok {
			continue
		}
		if err := draft.Line.CanConfirm(); err != nil {
			s.notifier.Error(fmt.Sprintf("Line %s cannot be confirmed: %s", draft.Line.ItemCode, err.Error()))
			return err
		}
	}

	confirmed := true
	for _, id := range unconfirmed {
		if err := s.store.Patch(id, rnrform.LinePatch{Confirmed: &confirmed}); err != nil {
			return err
		}
	}

	if err := s.autosave.Flush(ctx); err != nil {
		s.notifier.Error("Failed to confirm remaining lines: " + err.Error())
		return err
	}

	if err := s.events.Publish(ctx, rnrform.NewLinesConfirmedEvent(s.form, unconfirmed)); err != nil {
		s.logger.Warn("failed to publish lines confirmed event", zap.Error(err))
	}

	return nil
}
