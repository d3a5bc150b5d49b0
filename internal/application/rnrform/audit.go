package rnrform

import (
	"context"

	"github.com/rnr/backend/internal/domain/rnrform"
	"github.com/rnr/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditLogHandler records form lifecycle events in the application log.
// It subscribes to all form events and never fails the dispatch.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger}
}

// Handle logs the event
func (h *AuditLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.logger.Info("form event",
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("store_id", event.StoreID().String()),
	)
	return nil
}

// EventTypes returns the form event types this handler listens to
func (h *AuditLogHandler) EventTypes() []string {
	return []string{
		rnrform.EventTypeLinesSaved,
		rnrform.EventTypeLinesConfirmed,
		rnrform.EventTypeFormFinalised,
	}
}
