package rnrform

import (
	"context"

	"github.com/google/uuid"
)

// RnRFormRepository is the data source for the form editing flow. The
// transport behind it is opaque; both mutations are idempotent at the
// line-id level so a flush retry may safely resend the same lines.
type RnRFormRepository interface {
	// FindByID loads a form with all of its lines, in form order
	FindByID(ctx context.Context, id uuid.UUID) (*RnRForm, error)

	// UpdateLines bulk-upserts the given lines of a draft form in a
	// single call. A failure is recoverable: the caller keeps its dirty
	// flags and retries later.
	UpdateLines(ctx context.Context, formID uuid.UUID, lines []RnRFormLine) error

	// Finalise transitions the form DRAFT -> FINALISED. Fails without
	// state change when the form is already finalised or has
	// unconfirmed lines.
	Finalise(ctx context.Context, formID uuid.UUID) error
}
