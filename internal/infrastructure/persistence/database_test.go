package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rnr/backend/internal/domain/rnrform"
	"github.com/rnr/backend/internal/domain/shared"
	"github.com/rnr/backend/internal/infrastructure/config"
)

// newSqliteDatabase opens an in-memory database with the schema applied,
// for integration-style tests of the repository against real SQL.
func newSqliteDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   ":memory:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.DB.AutoMigrate(&rnrform.RnRForm{}, &rnrform.RnRFormLine{}))
	return db
}

func seedForm(t *testing.T, db *Database) *rnrform.RnRForm {
	t.Helper()
	form, err := rnrform.NewRnRForm(uuid.New(), uuid.New(), uuid.New(), "2026-Q1", 30)
	require.NoError(t, err)

	codes := []string{"para500", "amox250"}
	for _, code := range codes {
		form.Lines = append(form.Lines, rnrform.RnRFormLine{
			ID:                               uuid.New(),
			FormID:                           form.ID,
			ItemID:                           uuid.New(),
			ItemCode:                         code,
			ItemName:                         code,
			PreviousMonthlyConsumptionValues: "40,60",
			InitialBalance:                   decimal.NewFromInt(100),
			QuantityConsumed:                 decimal.NewFromInt(50),
			FinalBalance:                     decimal.NewFromInt(50),
		})
	}

	require.NoError(t, db.DB.Create(form).Error)
	return form
}

func TestDatabase_Sqlite(t *testing.T) {
	db := newSqliteDatabase(t)
	assert.NoError(t, db.Ping())
}

func TestGormRnRFormRepository_SqliteRoundTrip(t *testing.T) {
	ctx := context.Background()

	t.Run("find returns lines in item code order", func(t *testing.T) {
		db := newSqliteDatabase(t)
		form := seedForm(t, db)
		repo := NewGormRnRFormRepository(db.DB)

		loaded, err := repo.FindByID(ctx, form.ID)
		require.NoError(t, err)
		require.Len(t, loaded.Lines, 2)
		assert.Equal(t, "amox250", loaded.Lines[0].ItemCode)
		assert.Equal(t, "para500", loaded.Lines[1].ItemCode)
		assert.Equal(t, rnrform.RnRFormStatusDraft, loaded.Status)
	})

	t.Run("update persists edited values", func(t *testing.T) {
		db := newSqliteDatabase(t)
		form := seedForm(t, db)
		repo := NewGormRnRFormRepository(db.DB)

		line := form.Lines[0]
		line.QuantityConsumed = decimal.NewFromInt(80)
		line.FinalBalance = decimal.NewFromInt(20)
		line.Confirmed = true
		require.NoError(t, repo.UpdateLines(ctx, form.ID, []rnrform.RnRFormLine{line}))

		loaded, err := repo.FindByID(ctx, form.ID)
		require.NoError(t, err)
		saved := loaded.LineByID(line.ID)
		require.NotNil(t, saved)
		assert.True(t, saved.QuantityConsumed.Equal(decimal.NewFromInt(80)))
		assert.True(t, saved.FinalBalance.Equal(decimal.NewFromInt(20)))
		assert.True(t, saved.Confirmed)
	})

	t.Run("unbalanced line is rejected without partial write", func(t *testing.T) {
		db := newSqliteDatabase(t)
		form := seedForm(t, db)
		repo := NewGormRnRFormRepository(db.DB)

		good := form.Lines[0]
		good.QuantityConsumed = decimal.NewFromInt(80)
		good.FinalBalance = decimal.NewFromInt(20)
		bad := form.Lines[1]
		bad.FinalBalance = decimal.NewFromInt(999)

		err := repo.UpdateLines(ctx, form.ID, []rnrform.RnRFormLine{good, bad})
		assert.ErrorIs(t, err, shared.ErrValuesDoNotBalance)

		loaded, findErr := repo.FindByID(ctx, form.ID)
		require.NoError(t, findErr)
		unchanged := loaded.LineByID(form.Lines[0].ID)
		require.NotNil(t, unchanged)
		assert.True(t, unchanged.QuantityConsumed.Equal(decimal.NewFromInt(50)))
	})

	t.Run("finalise lifecycle", func(t *testing.T) {
		db := newSqliteDatabase(t)
		form := seedForm(t, db)
		repo := NewGormRnRFormRepository(db.DB)

		err := repo.Finalise(ctx, form.ID)
		assert.ErrorIs(t, err, shared.ErrLinesUnconfirmed)

		for _, line := range form.Lines {
			line.Confirmed = true
			require.NoError(t, repo.UpdateLines(ctx, form.ID, []rnrform.RnRFormLine{line}))
		}
		require.NoError(t, repo.Finalise(ctx, form.ID))

		loaded, err := repo.FindByID(ctx, form.ID)
		require.NoError(t, err)
		assert.Equal(t, rnrform.RnRFormStatusFinalised, loaded.Status)
		assert.NotNil(t, loaded.FinalisedAt)

		err = repo.Finalise(ctx, form.ID)
		assert.ErrorIs(t, err, shared.ErrAlreadyFinalised)

		err = repo.UpdateLines(ctx, form.ID, []rnrform.RnRFormLine{form.Lines[0]})
		assert.ErrorIs(t, err, shared.ErrAlreadyFinalised)
	})
}
