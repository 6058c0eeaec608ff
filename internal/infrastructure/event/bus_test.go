package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openbooks/backend/internal/domain/shared"
)

type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	seen   []shared.DomainEvent
	err    error
	panics bool
}

func (h *recordingHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	if h.panics {
		panic("handler exploded")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, evt)
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func testEvent(eventType string) shared.DomainEvent {
	evt := shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New())
	return &evt
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to type-specific handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		applied := &recordingHandler{types: []string{"TransactionApplied"}}
		reversed := &recordingHandler{types: []string{"TransactionReversed"}}
		bus.Subscribe(applied)
		bus.Subscribe(reversed)

		require.NoError(t, bus.Publish(ctx, testEvent("TransactionApplied")))

		assert.Equal(t, 1, applied.count())
		assert.Equal(t, 0, reversed.count())
	})

	t.Run("wildcard handler receives all events", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		all := &recordingHandler{}
		bus.Subscribe(all)

		require.NoError(t, bus.Publish(ctx,
			testEvent("TransactionApplied"),
			testEvent("StockMovementPosted"),
		))

		assert.Equal(t, 2, all.count())
	})

	t.Run("handler error does not stop other handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := &recordingHandler{types: []string{"TransactionApplied"}, err: errors.New("downstream unavailable")}
		healthy := &recordingHandler{types: []string{"TransactionApplied"}}
		bus.Subscribe(failing)
		bus.Subscribe(healthy)

		require.NoError(t, bus.Publish(ctx, testEvent("TransactionApplied")))

		assert.Equal(t, 1, healthy.count())
	})

	t.Run("handler panic is recovered", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		panicking := &recordingHandler{types: []string{"TransactionApplied"}, panics: true}
		healthy := &recordingHandler{types: []string{"TransactionApplied"}}
		bus.Subscribe(panicking)
		bus.Subscribe(healthy)

		require.NotPanics(t, func() {
			_ = bus.Publish(ctx, testEvent("TransactionApplied"))
		})
		assert.Equal(t, 1, healthy.count())
	})
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{types: []string{"TransactionApplied"}}
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(ctx, testEvent("TransactionApplied")))
	bus.Unsubscribe(handler)
	require.NoError(t, bus.Publish(ctx, testEvent("TransactionApplied")))

	assert.Equal(t, 1, handler.count())
}

func TestInMemoryEventBus_SubscribeExplicitTypes(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(zap.NewNop())

	// Explicit types override the handler's own EventTypes.
	handler := &recordingHandler{types: []string{"TransactionApplied"}}
	bus.Subscribe(handler, "StockMovementPosted")

	require.NoError(t, bus.Publish(ctx, testEvent("TransactionApplied")))
	assert.Equal(t, 0, handler.count())

	require.NoError(t, bus.Publish(ctx, testEvent("StockMovementPosted")))
	assert.Equal(t, 1, handler.count())
}
