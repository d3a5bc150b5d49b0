package rnrform

import (
	"github.com/google/uuid"
	"github.com/rnr/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeRnRForm = "RnRForm"

// Event type constants
const (
	EventTypeLinesSaved     = "RnRFormLinesSaved"
	EventTypeLinesConfirmed = "RnRFormLinesConfirmed"
	EventTypeFormFinalised  = "RnRFormFinalised"
)

// LinesSavedEvent is raised after a batch of dirty lines has been
// durably saved through the data source
type LinesSavedEvent struct {
	shared.BaseDomainEvent
	FormID  uuid.UUID   `json:"form_id"`
	LineIDs []uuid.UUID `json:"line_ids"`
}

// NewLinesSavedEvent creates a new LinesSavedEvent
func NewLinesSavedEvent(form *RnRForm, lineIDs []uuid.UUID) *LinesSavedEvent {
	return &LinesSavedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLinesSaved, AggregateTypeRnRForm, form.ID, form.StoreID),
		FormID:          form.ID,
		LineIDs:         lineIDs,
	}
}

// EventType returns the event type name
func (e *LinesSavedEvent) EventType() string {
	return EventTypeLinesSaved
}

// LinesConfirmedEvent is raised when remaining unconfirmed lines are
// bulk-confirmed as part of finalisation
type LinesConfirmedEvent struct {
	shared.BaseDomainEvent
	FormID  uuid.UUID   `json:"form_id"`
	LineIDs []uuid.UUID `json:"line_ids"`
}

// NewLinesConfirmedEvent creates a new LinesConfirmedEvent
func NewLinesConfirmedEvent(form *RnRForm, lineIDs []uuid.UUID) *LinesConfirmedEvent {
	return &LinesConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLinesConfirmed, AggregateTypeRnRForm, form.ID, form.StoreID),
		FormID:          form.ID,
		LineIDs:         lineIDs,
	}
}

// EventType returns the event type name
func (e *LinesConfirmedEvent) EventType() string {
	return EventTypeLinesConfirmed
}

// FormFinalisedEvent is raised when a form transitions DRAFT -> FINALISED
type FormFinalisedEvent struct {
	shared.BaseDomainEvent
	FormID    uuid.UUID `json:"form_id"`
	ProgramID uuid.UUID `json:"program_id"`
	PeriodID  uuid.UUID `json:"period_id"`
}

// NewFormFinalisedEvent creates a new FormFinalisedEvent
func NewFormFinalisedEvent(form *RnRForm) *FormFinalisedEvent {
	return &FormFinalisedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFormFinalised, AggregateTypeRnRForm, form.ID, form.StoreID),
		FormID:          form.ID,
		ProgramID:       form.ProgramID,
		PeriodID:        form.PeriodID,
	}
}

// EventType returns the event type name
func (e *FormFinalisedEvent) EventType() string {
	return EventTypeFormFinalised
}
