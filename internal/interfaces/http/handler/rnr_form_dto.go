package handler

import (
	"time"

	"github.com/rnr/backend/internal/application/rnrform"
	domain "github.com/rnr/backend/internal/domain/rnrform"
	"github.com/shopspring/decimal"
)

// PatchLineRequest is a partial update of the editable line fields.
// Absent fields keep their current values.
type PatchLineRequest struct {
	InitialBalance           *decimal.Decimal `json:"initial_balance"`
	QuantityReceived         *decimal.Decimal `json:"quantity_received"`
	QuantityConsumed         *decimal.Decimal `json:"quantity_consumed"`
	Adjustments              *decimal.Decimal `json:"adjustments"`
	Losses                   *decimal.Decimal `json:"losses"`
	StockOutDuration         *int             `json:"stock_out_duration"`
	ExpiryDate               *time.Time       `json:"expiry_date"`
	Comment                  *string          `json:"comment"`
	EnteredRequestedQuantity *decimal.Decimal `json:"entered_requested_quantity"`
	Confirmed                *bool            `json:"confirmed"`
}

// ToPatch converts the request to a domain line patch
func (r *PatchLineRequest) ToPatch() domain.LinePatch {
	return domain.LinePatch{
		InitialBalance:           r.InitialBalance,
		QuantityReceived:         r.QuantityReceived,
		QuantityConsumed:         r.QuantityConsumed,
		Adjustments:              r.Adjustments,
		Losses:                   r.Losses,
		StockOutDuration:         r.StockOutDuration,
		ExpiryDate:               r.ExpiryDate,
		Comment:                  r.Comment,
		EnteredRequestedQuantity: r.EnteredRequestedQuantity,
		Confirmed:                r.Confirmed,
	}
}

// FinaliseRequest carries the user's acknowledgement of the finalise
// confirmation dialog
type FinaliseRequest struct {
	Confirmed bool `json:"confirmed"`
}

// LineResponse is one line with its session save state
type LineResponse struct {
	ID                               string           `json:"id"`
	ItemID                           string           `json:"item_id"`
	ItemCode                         string           `json:"item_code"`
	ItemName                         string           `json:"item_name"`
	PreviousMonthlyConsumptionValues string           `json:"previous_monthly_consumption_values"`
	InitialBalance                   decimal.Decimal  `json:"initial_balance"`
	QuantityReceived                 decimal.Decimal  `json:"quantity_received"`
	QuantityConsumed                 decimal.Decimal  `json:"quantity_consumed"`
	Adjustments                      decimal.Decimal  `json:"adjustments"`
	Losses                           decimal.Decimal  `json:"losses"`
	StockOutDuration                 int              `json:"stock_out_duration"`
	ExpiryDate                       *time.Time       `json:"expiry_date,omitempty"`
	Comment                          string           `json:"comment,omitempty"`
	EnteredRequestedQuantity         *decimal.Decimal `json:"entered_requested_quantity,omitempty"`
	Confirmed                        bool             `json:"confirmed"`
	AdjustedQuantityConsumed         decimal.Decimal  `json:"adjusted_quantity_consumed"`
	FinalBalance                     decimal.Decimal  `json:"final_balance"`
	AverageMonthlyConsumption        decimal.Decimal  `json:"average_monthly_consumption"`
	MinimumQuantity                  decimal.Decimal  `json:"minimum_quantity"`
	MaximumQuantity                  decimal.Decimal  `json:"maximum_quantity"`
	CalculatedRequestedQuantity      decimal.Decimal  `json:"calculated_requested_quantity"`
	RequestedQuantity                decimal.Decimal  `json:"requested_quantity"`
	LowStock                         string           `json:"low_stock"`
	ApprovedQuantity                 *decimal.Decimal `json:"approved_quantity,omitempty"`
	IsDirty                          bool             `json:"is_dirty"`
	Error                            string           `json:"error,omitempty"`
}

// FormResponse is a form with its draft lines
type FormResponse struct {
	ID               string          `json:"id"`
	StoreID          string          `json:"store_id"`
	ProgramID        string          `json:"program_id"`
	PeriodID         string          `json:"period_id"`
	PeriodName       string          `json:"period_name"`
	PeriodLength     int             `json:"period_length"`
	Status           string          `json:"status"`
	MonthsOverstock  decimal.Decimal `json:"months_overstock"`
	MonthsUnderstock decimal.Decimal `json:"months_understock"`
	TheirReference   string          `json:"their_reference,omitempty"`
	Comment          string          `json:"comment,omitempty"`
	FinalisedAt      *time.Time      `json:"finalised_at,omitempty"`
	HasUnsaved       bool            `json:"has_unsaved"`
	Lines            []LineResponse  `json:"lines"`
}

// NewLineResponse maps a draft line to its response shape
func NewLineResponse(draft rnrform.DraftLine) LineResponse {
	line := draft.Line
	return LineResponse{
		ID:                               line.ID.String(),
		ItemID:                           line.ItemID.String(),
		ItemCode:                         line.ItemCode,
		ItemName:                         line.ItemName,
		PreviousMonthlyConsumptionValues: line.PreviousMonthlyConsumptionValues,
		InitialBalance:                   line.InitialBalance,
		QuantityReceived:                 line.QuantityReceived,
		QuantityConsumed:                 line.QuantityConsumed,
		Adjustments:                      line.Adjustments,
		Losses:                           line.Losses,
		StockOutDuration:                 line.StockOutDuration,
		ExpiryDate:                       line.ExpiryDate,
		Comment:                          line.Comment,
		EnteredRequestedQuantity:         line.EnteredRequestedQuantity,
		Confirmed:                        line.Confirmed,
		AdjustedQuantityConsumed:         line.AdjustedQuantityConsumed,
		FinalBalance:                     line.FinalBalance,
		AverageMonthlyConsumption:        line.AverageMonthlyConsumption,
		MinimumQuantity:                  line.MinimumQuantity,
		MaximumQuantity:                  line.MaximumQuantity,
		CalculatedRequestedQuantity:      line.CalculatedRequestedQuantity,
		RequestedQuantity:                line.RequestedQuantity(),
		LowStock:                         line.LowStock.String(),
		ApprovedQuantity:                 line.ApprovedQuantity,
		IsDirty:                          draft.IsDirty,
		Error:                            draft.Error,
	}
}

// NewFormResponse maps a session's form and draft lines to the response shape
func NewFormResponse(session *rnrform.EditSession) FormResponse {
	form := session.Form
	drafts := session.Store().Lines()

	lines := make([]LineResponse, 0, len(drafts))
	for _, draft := range drafts {
		lines = append(lines, NewLineResponse(draft))
	}

	return FormResponse{
		ID:               form.ID.String(),
		StoreID:          form.StoreID.String(),
		ProgramID:        form.ProgramID.String(),
		PeriodID:         form.PeriodID.String(),
		PeriodName:       form.PeriodName,
		PeriodLength:     form.PeriodLength,
		Status:           form.Status.String(),
		MonthsOverstock:  form.MonthsOverstock,
		MonthsUnderstock: form.MonthsUnderstock,
		TheirReference:   form.TheirReference,
		Comment:          form.Comment,
		FinalisedAt:      form.FinalisedAt,
		HasUnsaved:       session.Store().HasDirty(),
		Lines:            lines,
	}
}
