package rnrform

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rnr/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestForm(t *testing.T) *RnRForm {
	t.Helper()
	form, err := NewRnRForm(uuid.New(), uuid.New(), uuid.New(), "2026-Q3", 30)
	require.NoError(t, err)
	return form
}

func addLine(form *RnRForm, confirmed bool) *RnRFormLine {
	line := RnRFormLine{
		ID:        uuid.New(),
		FormID:    form.ID,
		ItemID:    uuid.New(),
		Confirmed: confirmed,
	}
	form.Lines = append(form.Lines, line)
	return &form.Lines[len(form.Lines)-1]
}

func TestNewRnRForm(t *testing.T) {
	t.Run("creates draft form with default preferences", func(t *testing.T) {
		storeID := uuid.New()
		form, err := NewRnRForm(storeID, uuid.New(), uuid.New(), "2026-08", 31)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, form.ID)
		assert.Equal(t, storeID, form.StoreID)
		assert.Equal(t, RnRFormStatusDraft, form.Status)
		assert.Equal(t, 31, form.PeriodLength)
		assert.Equal(t, "2", form.MonthsOverstock.String())
		assert.True(t, form.MonthsUnderstock.IsZero())
		assert.Nil(t, form.FinalisedAt)
	})

	t.Run("fails with nil store ID", func(t *testing.T) {
		form, err := NewRnRForm(uuid.Nil, uuid.New(), uuid.New(), "2026-08", 30)

		require.Error(t, err)
		assert.Nil(t, form)
	})

	t.Run("fails with non-positive period length", func(t *testing.T) {
		form, err := NewRnRForm(uuid.New(), uuid.New(), uuid.New(), "2026-08", 0)

		require.Error(t, err)
		assert.Nil(t, form)
	})
}

func TestRnRFormStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, RnRFormStatusDraft.CanTransitionTo(RnRFormStatusFinalised))
	assert.False(t, RnRFormStatusFinalised.CanTransitionTo(RnRFormStatusDraft))
	assert.False(t, RnRFormStatusFinalised.CanTransitionTo(RnRFormStatusFinalised))
}

func TestRnRForm_Finalise(t *testing.T) {
	t.Run("finalises when all lines confirmed", func(t *testing.T) {
		form := createTestForm(t)
		addLine(form, true)
		addLine(form, true)

		err := form.Finalise()

		require.NoError(t, err)
		assert.Equal(t, RnRFormStatusFinalised, form.Status)
		assert.NotNil(t, form.FinalisedAt)
	})

	t.Run("refuses with unconfirmed lines", func(t *testing.T) {
		form := createTestForm(t)
		addLine(form, true)
		addLine(form, false)

		err := form.Finalise()

		require.Error(t, err)
		assert.Equal(t, shared.ErrLinesUnconfirmed, err)
		assert.Equal(t, RnRFormStatusDraft, form.Status)
	})

	t.Run("refuses a second finalise", func(t *testing.T) {
		form := createTestForm(t)
		addLine(form, true)
		require.NoError(t, form.Finalise())

		err := form.Finalise()

		require.Error(t, err)
		assert.Equal(t, shared.ErrAlreadyFinalised, err)
	})

	t.Run("emits FormFinalised event", func(t *testing.T) {
		form := createTestForm(t)
		addLine(form, true)

		require.NoError(t, form.Finalise())

		events := form.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeFormFinalised, events[0].EventType())
	})
}

func TestRnRForm_UnconfirmedLines(t *testing.T) {
	form := createTestForm(t)
	addLine(form, true)
	unconfirmed := addLine(form, false)
	addLine(form, false)

	result := form.UnconfirmedLines()

	require.Len(t, result, 2)
	assert.Equal(t, unconfirmed.ID, result[0].ID)
}

func TestRnRForm_LineByID(t *testing.T) {
	form := createTestForm(t)
	line := addLine(form, false)

	assert.Equal(t, line.ID, form.LineByID(line.ID).ID)
	assert.Nil(t, form.LineByID(uuid.New()))
}

func TestRnRFormLine_RequestedQuantity(t *testing.T) {
	line := RnRFormLine{CalculatedRequestedQuantity: decimal.NewFromInt(80)}

	assert.Equal(t, "80", line.RequestedQuantity().String())

	entered := decimal.NewFromInt(100)
	line.EnteredRequestedQuantity = &entered

	assert.Equal(t, "100", line.RequestedQuantity().String())
}

func TestRnRFormLine_CanConfirm(t *testing.T) {
	line := RnRFormLine{FinalBalance: decimal.NewFromInt(5)}
	assert.NoError(t, line.CanConfirm())

	line.FinalBalance = decimal.NewFromInt(-1)
	assert.Error(t, line.CanConfirm())
}
