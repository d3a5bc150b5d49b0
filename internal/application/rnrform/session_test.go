package rnrform

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rnr/backend/internal/domain/rnrform"
	"github.com/rnr/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// schedulerRecorder hands out mock schedulers and remembers them
type schedulerRecorder struct {
	mu         sync.Mutex
	schedulers []*mockScheduler
}

func (r *schedulerRecorder) factory(flush func(ctx context.Context) error) FlushScheduler {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &mockScheduler{flush: flush}
	r.schedulers = append(r.schedulers, s)
	return s
}

func (r *schedulerRecorder) last() *mockScheduler {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.schedulers) == 0 {
		return nil
	}
	return r.schedulers[len(r.schedulers)-1]
}

func newManagerFixture(t *testing.T, lineCount int) (*SessionManager, *rnrform.RnRForm, *mockRepository, *schedulerRecorder) {
	t.Helper()
	form := newTestForm(lineCount)
	repo := &mockRepository{form: form}
	recorder := &schedulerRecorder{}
	manager := NewSessionManager(repo, &mockPublisher{}, &mockNotifier{}, recorder.factory, zap.NewNop())
	return manager, form, repo, recorder
}

func TestSessionManager_Open(t *testing.T) {
	t.Run("loads form, seeds store, starts timer", func(t *testing.T) {
		manager, form, repo, recorder := newManagerFixture(t, 2)

		session, err := manager.Open(context.Background(), form.ID)

		require.NoError(t, err)
		assert.Equal(t, form.ID, session.Form.ID)
		assert.Len(t, session.Store().Lines(), 2)
		assert.Equal(t, 1, repo.findCalls)
		require.NotNil(t, recorder.last())
		assert.Equal(t, 1, recorder.last().started)
	})

	t.Run("second open returns the existing session", func(t *testing.T) {
		manager, form, repo, _ := newManagerFixture(t, 1)

		first, err := manager.Open(context.Background(), form.ID)
		require.NoError(t, err)
		first.Store().Patch(form.Lines[0].ID, rnrform.LinePatch{Losses: decPtr(3)})

		second, err := manager.Open(context.Background(), form.ID)
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, 1, repo.findCalls, "form is loaded once per session")
		assert.True(t, second.Store().HasDirty(), "reopening must not reset edits")
	})

	t.Run("load failure surfaces and opens nothing", func(t *testing.T) {
		manager, form, repo, _ := newManagerFixture(t, 1)
		repo.findErr = shared.ErrNotFound

		_, err := manager.Open(context.Background(), form.ID)

		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, ok := manager.Get(form.ID)
		assert.False(t, ok)
	})
}

func TestEditSession_PatchLine(t *testing.T) {
	t.Run("applies patch and marks dirty", func(t *testing.T) {
		manager, form, _, _ := newManagerFixture(t, 1)
		session, err := manager.Open(context.Background(), form.ID)
		require.NoError(t, err)

		err = session.PatchLine(form.Lines[0].ID, rnrform.LinePatch{QuantityConsumed: decPtr(70)})

		require.NoError(t, err)
		assert.True(t, session.Store().HasDirty())
	})

	t.Run("refused on a finalised form", func(t *testing.T) {
		manager, form, _, _ := newManagerFixture(t, 1)
		form.Status = rnrform.RnRFormStatusFinalised
		session, err := manager.Open(context.Background(), form.ID)
		require.NoError(t, err)

		err = session.PatchLine(form.Lines[0].ID, rnrform.LinePatch{QuantityConsumed: decPtr(70)})

		assert.ErrorIs(t, err, shared.ErrAlreadyFinalised)
		assert.False(t, session.Store().HasDirty())
	})

	t.Run("refuses confirming a negative closing balance", func(t *testing.T) {
		manager, form, _, _ := newManagerFixture(t, 1)
		form.Lines[0].QuantityConsumed = decimal.NewFromInt(150)
		form.Lines[0].FinalBalance = decimal.NewFromInt(-50)
		session, err := manager.Open(context.Background(), form.ID)
		require.NoError(t, err)

		err = session.PatchLine(form.Lines[0].ID, rnrform.LinePatch{Confirmed: boolPtr(true)})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NEGATIVE_FINAL_BALANCE", domainErr.Code)
		assert.False(t, session.Store().HasDirty())
	})

	t.Run("refuses an edit that confirms while driving the balance negative", func(t *testing.T) {
		manager, form, _, _ := newManagerFixture(t, 1)
		session, err := manager.Open(context.Background(), form.ID)
		require.NoError(t, err)

		err = session.PatchLine(form.Lines[0].ID, rnrform.LinePatch{
			QuantityConsumed: decPtr(500),
			Confirmed:        boolPtr(true),
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NEGATIVE_FINAL_BALANCE", domainErr.Code)

		draft, ok := session.Store().Line(form.Lines[0].ID)
		require.True(t, ok)
		assert.False(t, draft.Line.Confirmed)
		assert.True(t, draft.Line.QuantityConsumed.Equal(decimal.NewFromInt(50)))
		assert.False(t, session.Store().HasDirty())
	})
}

func TestEditSession_FlushOnNavigation(t *testing.T) {
	t.Run("flushes dirty lines without blocking", func(t *testing.T) {
		manager, form, repo, _ := newManagerFixture(t, 1)
		session, err := manager.Open(context.Background(), form.ID)
		require.NoError(t, err)
		require.NoError(t, session.PatchLine(form.Lines[0].ID, rnrform.LinePatch{Losses: decPtr(2)}))

		session.FlushOnNavigation("leave")

		assert.Eventually(t, func() bool {
			return repo.updateCallCount() == 1
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("nothing dirty sends nothing", func(t *testing.T) {
		manager, form, repo, _ := newManagerFixture(t, 1)
		session, err := manager.Open(context.Background(), form.ID)
		require.NoError(t, err)

		session.FlushOnNavigation("refresh")

		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, 0, repo.updateCallCount())
	})
}

func TestSessionManager_Close(t *testing.T) {
	t.Run("stops timer, flushes, forgets session", func(t *testing.T) {
		manager, form, repo, recorder := newManagerFixture(t, 1)
		session, err := manager.Open(context.Background(), form.ID)
		require.NoError(t, err)
		require.NoError(t, session.PatchLine(form.Lines[0].ID, rnrform.LinePatch{Losses: decPtr(2)}))

		err = manager.Close(context.Background(), form.ID)

		require.NoError(t, err)
		assert.Equal(t, 1, recorder.last().stopped)
		assert.Equal(t, 1, repo.updateCallCount(), "pending edits are flushed on close")
		_, ok := manager.Get(form.ID)
		assert.False(t, ok)
	})

	t.Run("closing an unknown session fails", func(t *testing.T) {
		manager, _, _, _ := newManagerFixture(t, 1)

		err := manager.Close(context.Background(), uuid.New())

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("CloseAll tears down every session", func(t *testing.T) {
		manager, form, _, recorder := newManagerFixture(t, 1)
		_, err := manager.Open(context.Background(), form.ID)
		require.NoError(t, err)

		manager.CloseAll(context.Background())

		assert.Equal(t, 1, recorder.last().stopped)
		_, ok := manager.Get(form.ID)
		assert.False(t, ok)
	})
}
