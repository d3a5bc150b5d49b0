package rnrform

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// daysPerMonth is the normalization constant used when converting a
// period's consumption into a monthly figure.
var daysPerMonth = decimal.NewFromInt(30)

// CalculationContext carries the form-level inputs the per-line
// calculation needs. Lines never store the period length themselves.
type CalculationContext struct {
	PeriodLength     int
	MonthsOverstock  decimal.Decimal // maximum stock level in months of AMC
	MonthsUnderstock decimal.Decimal // minimum stock level in months of AMC
}

// Recalculate merges a patch into the line and recomputes every derived
// field. It is pure: the input line is not modified and no error paths
// exist, division by zero is guarded explicitly.
//
// Editing any field other than the confirm flag implicitly withdraws a
// previous confirmation unless the patch sets Confirmed explicitly.
func Recalculate(line RnRFormLine, patch LinePatch, calc CalculationContext) RnRFormLine {
	merged := applyPatch(line, patch)

	merged.FinalBalance = merged.InitialBalance.
		Add(merged.QuantityReceived).
		Sub(merged.QuantityConsumed).
		Add(merged.Adjustments).
		Sub(merged.Losses)

	stockAvailableDays := calc.PeriodLength - merged.StockOutDuration
	if stockAvailableDays == 0 {
		// Out of stock for the whole period, no correction possible.
		merged.AdjustedQuantityConsumed = merged.QuantityConsumed
	} else {
		merged.AdjustedQuantityConsumed = merged.QuantityConsumed.
			Mul(decimal.NewFromInt(int64(calc.PeriodLength))).
			Div(decimal.NewFromInt(int64(stockAvailableDays)))
	}

	merged.AverageMonthlyConsumption = AverageMonthlyConsumption(
		merged.PreviousMonthlyConsumptionValues,
		merged.AdjustedQuantityConsumed,
		calc.PeriodLength,
	)

	merged.MaximumQuantity = merged.AverageMonthlyConsumption.Mul(calc.MonthsOverstock)
	merged.MinimumQuantity = merged.AverageMonthlyConsumption.Mul(calc.MonthsUnderstock)

	needed := merged.MaximumQuantity.Sub(merged.FinalBalance)
	if needed.IsPositive() {
		merged.CalculatedRequestedQuantity = needed
	} else {
		merged.CalculatedRequestedQuantity = decimal.Zero
	}

	merged.LowStock = LowStockStatusFor(merged.FinalBalance, merged.MaximumQuantity)

	merged.UpdatedAt = time.Now()
	return merged
}

// applyPatch copies the line and overlays the patch. Absent patch fields
// keep the line's current values.
func applyPatch(line RnRFormLine, patch LinePatch) RnRFormLine {
	if patch.InitialBalance != nil {
		line.InitialBalance = *patch.InitialBalance
	}
	if patch.QuantityReceived != nil {
		line.QuantityReceived = *patch.QuantityReceived
	}
	if patch.QuantityConsumed != nil {
		line.QuantityConsumed = *patch.QuantityConsumed
	}
	if patch.Adjustments != nil {
		line.Adjustments = *patch.Adjustments
	}
	if patch.Losses != nil {
		line.Losses = *patch.Losses
	}
	if patch.StockOutDuration != nil {
		line.StockOutDuration = *patch.StockOutDuration
	}
	if patch.ExpiryDate != nil {
		expiry := *patch.ExpiryDate
		line.ExpiryDate = &expiry
	}
	if patch.Comment != nil {
		line.Comment = *patch.Comment
	}
	if patch.EnteredRequestedQuantity != nil {
		entered := *patch.EnteredRequestedQuantity
		line.EnteredRequestedQuantity = &entered
	}

	switch {
	case patch.Confirmed != nil:
		line.Confirmed = *patch.Confirmed
	case patch.TouchesData():
		line.Confirmed = false
	}

	return line
}

// AverageMonthlyConsumption computes the AMC for a line: the arithmetic
// mean of the prior periods' monthly consumption figures plus this
// period's consumption normalized to a 30 day month. With no usable
// history it degenerates to the current period's value alone.
func AverageMonthlyConsumption(previousValues string, adjustedQuantityConsumed decimal.Decimal, periodLength int) decimal.Decimal {
	previous := ParseMonthlyConsumption(previousValues)

	monthlyThisPeriod := adjustedQuantityConsumed
	if periodLength > 0 {
		// consumed / (periodLength / 30)
		monthlyThisPeriod = adjustedQuantityConsumed.
			Mul(daysPerMonth).
			Div(decimal.NewFromInt(int64(periodLength)))
	}

	sum := monthlyThisPeriod
	for _, v := range previous {
		sum = sum.Add(v)
	}

	return sum.Div(decimal.NewFromInt(int64(len(previous) + 1)))
}

// ParseMonthlyConsumption parses the comma separated history string,
// discarding empty and malformed entries.
func ParseMonthlyConsumption(values string) []decimal.Decimal {
	parts := strings.Split(values, ",")
	parsed := make([]decimal.Decimal, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := decimal.NewFromString(part)
		if err != nil {
			continue
		}
		parsed = append(parsed, v)
	}
	return parsed
}

// LowStockStatusFor grades the closing balance against the maximum
// stock level.
func LowStockStatusFor(finalBalance, maximumQuantity decimal.Decimal) LowStockStatus {
	four := decimal.NewFromInt(4)
	two := decimal.NewFromInt(2)

	switch {
	case finalBalance.LessThan(maximumQuantity.Div(four)):
		return LowStockBelowQuarter
	case finalBalance.LessThan(maximumQuantity.Div(two)):
		return LowStockBelowHalf
	default:
		return LowStockOk
	}
}
