package rnrform

import (
	"time"

	"github.com/google/uuid"
	"github.com/rnr/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RnRFormStatus represents the status of an R&R form
type RnRFormStatus string

const (
	RnRFormStatusDraft     RnRFormStatus = "DRAFT"
	RnRFormStatusFinalised RnRFormStatus = "FINALISED"
)

// IsValid checks if the status is a valid RnRFormStatus
func (s RnRFormStatus) IsValid() bool {
	switch s {
	case RnRFormStatusDraft, RnRFormStatusFinalised:
		return true
	}
	return false
}

// String returns the string representation of RnRFormStatus
func (s RnRFormStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// The status is monotonic: FINALISED is terminal.
func (s RnRFormStatus) CanTransitionTo(target RnRFormStatus) bool {
	switch s {
	case RnRFormStatusDraft:
		return target == RnRFormStatusFinalised
	case RnRFormStatusFinalised:
		return false
	}
	return false
}

// RnRForm is one replenishment period instance for a program at a store.
// It is the aggregate root for the form editing flow. Lines are seeded in
// bulk when the form is created and never added or removed afterwards.
type RnRForm struct {
	shared.StoreAggregateRoot
	ProgramID    uuid.UUID     `gorm:"type:uuid;not null;index"`
	PeriodID     uuid.UUID     `gorm:"type:uuid;not null"`
	PeriodName   string        `gorm:"type:varchar(100);not null"`
	PeriodLength int           `gorm:"not null"` // days
	Status       RnRFormStatus `gorm:"type:varchar(20);not null;default:'DRAFT'"`

	// Stock level preferences, in months of average monthly consumption.
	// Copied from the store preferences when the form is created so a
	// preference change mid-period does not shift an open form.
	MonthsOverstock  decimal.Decimal `gorm:"type:decimal(8,4);not null;default:2"`
	MonthsUnderstock decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0"`

	TheirReference string `gorm:"type:varchar(100)"`
	Comment        string `gorm:"type:varchar(500)"`

	FinalisedAt *time.Time

	Lines []RnRFormLine `gorm:"foreignKey:FormID;references:ID"`
}

// TableName returns the table name for GORM
func (RnRForm) TableName() string {
	return "rnr_forms"
}

// NewRnRForm creates a new draft form for a store, program and period
func NewRnRForm(storeID, programID, periodID uuid.UUID, periodName string, periodLength int) (*RnRForm, error) {
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store ID cannot be empty")
	}
	if programID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROGRAM", "Program ID cannot be empty")
	}
	if periodLength <= 0 {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period length must be positive")
	}

	form := &RnRForm{
		StoreAggregateRoot: shared.NewStoreAggregateRoot(storeID),
		ProgramID:          programID,
		PeriodID:           periodID,
		PeriodName:         periodName,
		PeriodLength:       periodLength,
		Status:             RnRFormStatusDraft,
		MonthsOverstock:    decimal.NewFromInt(2),
		MonthsUnderstock:   decimal.Zero,
		Lines:              make([]RnRFormLine, 0),
	}

	return form, nil
}

// CalculationContext returns the form-level inputs for the line calculation
func (f *RnRForm) CalculationContext() CalculationContext {
	return CalculationContext{
		PeriodLength:     f.PeriodLength,
		MonthsOverstock:  f.MonthsOverstock,
		MonthsUnderstock: f.MonthsUnderstock,
	}
}

// IsFinalised returns true once the form has been closed out
func (f *RnRForm) IsFinalised() bool {
	return f.Status == RnRFormStatusFinalised
}

// LineByID returns the line with the given id, or nil
func (f *RnRForm) LineByID(id uuid.UUID) *RnRFormLine {
	for i := range f.Lines {
		if f.Lines[i].ID == id {
			return &f.Lines[i]
		}
	}
	return nil
}

// LineIDs returns the ids of all lines in form order
func (f *RnRForm) LineIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(f.Lines))
	for i := range f.Lines {
		ids[i] = f.Lines[i].ID
	}
	return ids
}

// UnconfirmedLines returns the lines not yet signed off, in form order
func (f *RnRForm) UnconfirmedLines() []RnRFormLine {
	unconfirmed := make([]RnRFormLine, 0)
	for _, line := range f.Lines {
		if !line.Confirmed {
			unconfirmed = append(unconfirmed, line)
		}
	}
	return unconfirmed
}

// Finalise transitions the form from DRAFT to FINALISED. Every line must
// already be confirmed and durably saved; the transition is irreversible.
func (f *RnRForm) Finalise() error {
	if !f.Status.CanTransitionTo(RnRFormStatusFinalised) {
		return shared.ErrAlreadyFinalised
	}
	if len(f.UnconfirmedLines()) > 0 {
		return shared.ErrLinesUnconfirmed
	}

	now := time.Now()
	f.Status = RnRFormStatusFinalised
	f.FinalisedAt = &now
	f.UpdatedAt = now
	f.IncrementVersion()

	f.AddDomainEvent(NewFormFinalisedEvent(f))

	return nil
}
