package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rnr/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	mu       sync.Mutex
	types    []string
	received []shared.DomainEvent
	err      error
	panics   bool
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("handler exploded")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

func newTestEvent(eventType string) shared.DomainEvent {
	e := shared.NewBaseDomainEvent(eventType, "RnRForm", uuid.New(), uuid.New())
	return &e
}

func newRunningBus(t *testing.T) *InMemoryEventBus {
	t.Helper()
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	return bus
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	t.Run("delivers to matching handlers", func(t *testing.T) {
		bus := newRunningBus(t)
		saved := &recordingHandler{types: []string{"RnRFormLinesSaved"}}
		finalised := &recordingHandler{types: []string{"RnRFormFinalised"}}
		bus.Subscribe(saved)
		bus.Subscribe(finalised)

		err := bus.Publish(context.Background(), newTestEvent("RnRFormLinesSaved"))

		require.NoError(t, err)
		assert.Equal(t, 1, saved.count())
		assert.Equal(t, 0, finalised.count())
	})

	t.Run("wildcard handler receives everything", func(t *testing.T) {
		bus := newRunningBus(t)
		all := &recordingHandler{}
		bus.Subscribe(all)

		require.NoError(t, bus.Publish(context.Background(),
			newTestEvent("RnRFormLinesSaved"),
			newTestEvent("RnRFormFinalised"),
		))

		assert.Equal(t, 2, all.count())
	})

	t.Run("handler error does not fail publish or skip others", func(t *testing.T) {
		bus := newRunningBus(t)
		failing := &recordingHandler{types: []string{"RnRFormLinesSaved"}, err: errors.New("nope")}
		healthy := &recordingHandler{types: []string{"RnRFormLinesSaved"}}
		bus.Subscribe(failing)
		bus.Subscribe(healthy)

		err := bus.Publish(context.Background(), newTestEvent("RnRFormLinesSaved"))

		require.NoError(t, err)
		assert.Equal(t, 1, healthy.count())
	})

	t.Run("handler panic is contained", func(t *testing.T) {
		bus := newRunningBus(t)
		panicking := &recordingHandler{types: []string{"RnRFormLinesSaved"}, panics: true}
		healthy := &recordingHandler{types: []string{"RnRFormLinesSaved"}}
		bus.Subscribe(panicking)
		bus.Subscribe(healthy)

		assert.NotPanics(t, func() {
			_ = bus.Publish(context.Background(), newTestEvent("RnRFormLinesSaved"))
		})
		assert.Equal(t, 1, healthy.count())
	})

	t.Run("unsubscribed handler receives nothing", func(t *testing.T) {
		bus := newRunningBus(t)
		h := &recordingHandler{types: []string{"RnRFormLinesSaved"}}
		bus.Subscribe(h)
		bus.Unsubscribe(h)

		require.NoError(t, bus.Publish(context.Background(), newTestEvent("RnRFormLinesSaved")))

		assert.Equal(t, 0, h.count())
	})

	t.Run("events are dropped before start", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := &recordingHandler{types: []string{"RnRFormLinesSaved"}}
		bus.Subscribe(h)

		require.NoError(t, bus.Publish(context.Background(), newTestEvent("RnRFormLinesSaved")))

		assert.Equal(t, 0, h.count())
	})

	t.Run("events are dropped after stop", func(t *testing.T) {
		bus := newRunningBus(t)
		h := &recordingHandler{types: []string{"RnRFormLinesSaved"}}
		bus.Subscribe(h)
		require.NoError(t, bus.Stop(context.Background()))

		require.NoError(t, bus.Publish(context.Background(), newTestEvent("RnRFormLinesSaved")))

		assert.Equal(t, 0, h.count())
	})
}

func TestHandlerRegistry(t *testing.T) {
	t.Run("combines specific and wildcard handlers", func(t *testing.T) {
		registry := NewHandlerRegistry()
		specific := &recordingHandler{}
		wildcard := &recordingHandler{}
		registry.Register(specific, "RnRFormLinesSaved")
		registry.Register(wildcard)

		assert.Len(t, registry.HandlersFor("RnRFormLinesSaved"), 2)
		assert.Len(t, registry.HandlersFor("RnRFormFinalised"), 1)
	})

	t.Run("unregister removes everywhere", func(t *testing.T) {
		registry := NewHandlerRegistry()
		h := &recordingHandler{}
		registry.Register(h, "RnRFormLinesSaved", "RnRFormFinalised")

		registry.Unregister(h)

		assert.Empty(t, registry.HandlersFor("RnRFormLinesSaved"))
		assert.Empty(t, registry.HandlersFor("RnRFormFinalised"))
	})
}
