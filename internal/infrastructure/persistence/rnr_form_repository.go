package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rnr/backend/internal/domain/rnrform"
	"github.com/rnr/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormRnRFormRepository implements RnRFormRepository using GORM
type GormRnRFormRepository struct {
	db *gorm.DB
}

// NewGormRnRFormRepository creates a new GormRnRFormRepository
func NewGormRnRFormRepository(db *gorm.DB) *GormRnRFormRepository {
	return &GormRnRFormRepository{db: db}
}

// FindByID loads a form with all of its lines in item code order
func (r *GormRnRFormRepository) FindByID(ctx context.Context, id uuid.UUID) (*rnrform.RnRForm, error) {
	var form rnrform.RnRForm
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("item_code ASC")
		}).
		First(&form, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &form, nil
}

// UpdateLines bulk-upserts the given lines of a draft form. All lines
// are validated against the stored form before any row is written, and
// the batch is applied in a single transaction: either every line lands
// or none does.
func (r *GormRnRFormRepository) UpdateLines(ctx context.Context, formID uuid.UUID, lines []rnrform.RnRFormLine) error {
	if len(lines) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var form rnrform.RnRForm
		if err := tx.First(&form, "id = ?", formID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		if form.Status == rnrform.RnRFormStatusFinalised {
			return shared.ErrAlreadyFinalised
		}

		ownedIDs, err := r.lineIDsOfForm(tx, formID)
		if err != nil {
			return err
		}

		for i := range lines {
			if err := validateLine(&lines[i], ownedIDs, form.PeriodLength); err != nil {
				return err
			}
		}

		now := time.Now()
		for i := range lines {
			line := lines[i]
			line.UpdatedAt = now
			if err := tx.Model(&rnrform.RnRFormLine{}).
				Where("id = ? AND form_id = ?", line.ID, formID).
				Updates(lineColumns(&line)).Error; err != nil {
				return err
			}
		}

		return tx.Model(&rnrform.RnRForm{}).
			Where("id = ?", formID).
			Update("updated_at", now).Error
	})
}

// Finalise transitions the form DRAFT -> FINALISED. The stored line set
// is re-checked inside the transaction so a finalise never races past a
// line left unconfirmed by another writer.
func (r *GormRnRFormRepository) Finalise(ctx context.Context, formID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var form rnrform.RnRForm
		if err := tx.First(&form, "id = ?", formID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		if form.Status == rnrform.RnRFormStatusFinalised {
			return shared.ErrAlreadyFinalised
		}

		var unconfirmed int64
		if err := tx.Model(&rnrform.RnRFormLine{}).
			Where("form_id = ? AND confirmed = ?", formID, false).
			Count(&unconfirmed).Error; err != nil {
			return err
		}
		if unconfirmed > 0 {
			return shared.ErrLinesUnconfirmed
		}

		now := time.Now()
		return tx.Model(&rnrform.RnRForm{}).
			Where("id = ? AND status = ?", formID, rnrform.RnRFormStatusDraft).
			Updates(map[string]any{
				"status":       rnrform.RnRFormStatusFinalised,
				"finalised_at": now,
				"updated_at":   now,
				"version":      gorm.Expr("version + 1"),
			}).Error
	})
}

// lineIDsOfForm returns the set of line ids belonging to a form
func (r *GormRnRFormRepository) lineIDsOfForm(tx *gorm.DB, formID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	var ids []uuid.UUID
	if err := tx.Model(&rnrform.RnRFormLine{}).
		Where("form_id = ?", formID).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	owned := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		owned[id] = struct{}{}
	}
	return owned, nil
}

// validateLine rejects rows that do not belong to the form or whose
// figures are internally inconsistent.
func validateLine(line *rnrform.RnRFormLine, ownedIDs map[uuid.UUID]struct{}, periodLength int) error {
	if _, ok := ownedIDs[line.ID]; !ok {
		return shared.NewDomainError("LINE_NOT_FOUND",
			fmt.Sprintf("Line %s does not belong to the form", line.ID))
	}

	expected := line.InitialBalance.
		Add(line.QuantityReceived).
		Sub(line.QuantityConsumed).
		Add(line.Adjustments).
		Sub(line.Losses)
	if !line.FinalBalance.Equal(expected) {
		return shared.ErrValuesDoNotBalance
	}

	if line.StockOutDuration < 0 || line.StockOutDuration > periodLength {
		return shared.NewDomainError("STOCK_OUT_EXCEEDS_PERIOD",
			fmt.Sprintf("Stock out duration must be between 0 and %d days", periodLength))
	}

	if line.EnteredRequestedQuantity != nil && line.EnteredRequestedQuantity.IsNegative() {
		return shared.NewDomainError("REQUESTED_QUANTITY_NEGATIVE",
			"Requested quantity cannot be negative")
	}

	// A confirmed line must also satisfy the confirm guard here; the
	// session-level check cannot be trusted across retried batches.
	if line.Confirmed {
		if err := line.CanConfirm(); err != nil {
			return err
		}
	}

	return nil
}

// lineColumns maps the editable and derived fields to their columns.
// Identity and provenance columns are never overwritten by a save.
func lineColumns(line *rnrform.RnRFormLine) map[string]any {
	return map[string]any{
		"initial_balance":               line.InitialBalance,
		"quantity_received":             line.QuantityReceived,
		"quantity_consumed":             line.QuantityConsumed,
		"adjustments":                   line.Adjustments,
		"losses":                        line.Losses,
		"stock_out_duration":            line.StockOutDuration,
		"expiry_date":                   line.ExpiryDate,
		"comment":                       line.Comment,
		"entered_requested_quantity":    line.EnteredRequestedQuantity,
		"confirmed":                     line.Confirmed,
		"adjusted_quantity_consumed":    line.AdjustedQuantityConsumed,
		"final_balance":                 line.FinalBalance,
		"average_monthly_consumption":   line.AverageMonthlyConsumption,
		"minimum_quantity":              line.MinimumQuantity,
		"maximum_quantity":              line.MaximumQuantity,
		"calculated_requested_quantity": line.CalculatedRequestedQuantity,
		"low_stock":                     line.LowStock,
		"updated_at":                    line.UpdatedAt,
	}
}

var _ rnrform.RnRFormRepository = (*GormRnRFormRepository)(nil)
