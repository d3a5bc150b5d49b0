package rnrform

import (
	"time"

	"github.com/google/uuid"
	"github.com/rnr/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LowStockStatus flags how far the closing balance has fallen below the
// maximum stock level for the period.
type LowStockStatus string

const (
	LowStockOk           LowStockStatus = "OK"
	LowStockBelowHalf    LowStockStatus = "BELOW_HALF"
	LowStockBelowQuarter LowStockStatus = "BELOW_QUARTER"
)

// IsValid checks if the status is a valid LowStockStatus
func (s LowStockStatus) IsValid() bool {
	switch s {
	case LowStockOk, LowStockBelowHalf, LowStockBelowQuarter:
		return true
	}
	return false
}

// String returns the string representation of LowStockStatus
func (s LowStockStatus) String() string {
	return string(s)
}

// RnRFormLine is one item's consumption/request record for the period.
// Entered fields are editable during the session; derived fields are
// recomputed by the calculation engine on every patch and never edited
// directly. The row set for a form is fixed once the form is created.
type RnRFormLine struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	FormID   uuid.UUID `gorm:"type:uuid;not null;index"`
	ItemID   uuid.UUID `gorm:"type:uuid;not null"`
	ItemCode string    `gorm:"type:varchar(50);not null"`
	ItemName string    `gorm:"type:varchar(200);not null"`

	// Historical monthly consumption figures from prior periods,
	// comma separated, oldest first. Written once when the form is
	// generated from the item ledger.
	PreviousMonthlyConsumptionValues string `gorm:"type:varchar(500);not null;default:''"`

	// Entered
	InitialBalance           decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	QuantityReceived         decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	QuantityConsumed         decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	Adjustments              decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"` // signed
	Losses                   decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	StockOutDuration         int              `gorm:"not null;default:0"` // days, 0..periodLength
	ExpiryDate               *time.Time       `gorm:"type:date"`
	Comment                  string           `gorm:"type:varchar(500)"`
	EnteredRequestedQuantity *decimal.Decimal `gorm:"type:decimal(18,4)"` // overrides the calculated value
	Confirmed                bool             `gorm:"not null;default:false"`

	// Derived
	AdjustedQuantityConsumed    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	FinalBalance                decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AverageMonthlyConsumption   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MinimumQuantity             decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MaximumQuantity             decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CalculatedRequestedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LowStock                    LowStockStatus  `gorm:"type:varchar(20);not null;default:'OK'"`

	// Populated from the upstream approval process, read only here
	ApprovedQuantity *decimal.Decimal `gorm:"type:decimal(18,4)"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RnRFormLine) TableName() string {
	return "rnr_form_lines"
}

// RequestedQuantity returns the quantity that will actually be requested:
// the entered override when present, otherwise the calculated value.
func (l *RnRFormLine) RequestedQuantity() decimal.Decimal {
	if l.EnteredRequestedQuantity != nil {
		return *l.EnteredRequestedQuantity
	}
	return l.CalculatedRequestedQuantity
}

// CanConfirm reports whether the line may be marked confirmed.
// A negative closing balance indicates a data entry problem and must be
// resolved before the line is signed off.
func (l *RnRFormLine) CanConfirm() error {
	if l.FinalBalance.IsNegative() {
		return shared.NewDomainError("NEGATIVE_FINAL_BALANCE", "Final balance should not be below 0")
	}
	return nil
}

// LinePatch is a partial update of the editable line fields. Nil fields
// keep their current values when the patch is applied.
type LinePatch struct {
	InitialBalance           *decimal.Decimal
	QuantityReceived         *decimal.Decimal
	QuantityConsumed         *decimal.Decimal
	Adjustments              *decimal.Decimal
	Losses                   *decimal.Decimal
	StockOutDuration         *int
	ExpiryDate               *time.Time
	Comment                  *string
	EnteredRequestedQuantity *decimal.Decimal
	Confirmed                *bool
}

// TouchesData reports whether the patch edits anything other than the
// confirm flag. Such edits invalidate a previous confirmation.
func (p LinePatch) TouchesData() bool {
	return p.InitialBalance != nil ||
		p.QuantityReceived != nil ||
		p.QuantityConsumed != nil ||
		p.Adjustments != nil ||
		p.Losses != nil ||
		p.StockOutDuration != nil ||
		p.ExpiryDate != nil ||
		p.Comment != nil ||
		p.EnteredRequestedQuantity != nil
}
