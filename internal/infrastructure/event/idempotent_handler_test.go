package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ims/engine/internal/domain/shared"
)

// fakeIdempotencyStore is an in-test IdempotencyStore with fault injection
type fakeIdempotencyStore struct {
	mu     sync.Mutex
	seen   map[string]bool
	failOn error
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{seen: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != nil {
		return false, s.failOn
	}
	if s.seen[eventID] {
		return false, nil
	}
	s.seen[eventID] = true
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[eventID], nil
}

func (s *fakeIdempotencyStore) Close() error { return nil }

func TestIdempotentHandler_ProcessesFirstDelivery(t *testing.T) {
	inner := newTestHandler("TestEvent")
	handler := NewIdempotentHandler(inner, newFakeIdempotencyStore(), zap.NewNop())

	event := newTestEvent("TestEvent", uuid.New())
	require.NoError(t, handler.Handle(context.Background(), event))

	assert.Len(t, inner.getHandled(), 1)
	assert.Equal(t, int64(1), handler.GetMetrics().EventsProcessed.Load())
}

func TestIdempotentHandler_SkipsDuplicateDelivery(t *testing.T) {
	inner := newTestHandler("TestEvent")
	handler := NewIdempotentHandler(inner, newFakeIdempotencyStore(), zap.NewNop())

	event := newTestEvent("TestEvent", uuid.New())
	require.NoError(t, handler.Handle(context.Background(), event))
	require.NoError(t, handler.Handle(context.Background(), event))

	assert.Len(t, inner.getHandled(), 1)

	stats := handler.GetMetrics().Stats()
	assert.Equal(t, int64(1), stats.EventsProcessed)
	assert.Equal(t, int64(1), stats.EventsDuplicate)
}

func TestIdempotentHandler_DistinctEventsBothProcessed(t *testing.T) {
	inner := newTestHandler("TestEvent")
	handler := NewIdempotentHandler(inner, newFakeIdempotencyStore(), zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(), newTestEvent("TestEvent", uuid.New())))
	require.NoError(t, handler.Handle(context.Background(), newTestEvent("TestEvent", uuid.New())))

	assert.Len(t, inner.getHandled(), 2)
}

func TestIdempotentHandler_StoreFailureProcessesAnyway(t *testing.T) {
	inner := newTestHandler("TestEvent")
	store := newFakeIdempotencyStore()
	store.failOn = errors.New("store down")
	handler := NewIdempotentHandler(inner, store, zap.NewNop())

	event := newTestEvent("TestEvent", uuid.New())
	require.NoError(t, handler.Handle(context.Background(), event))

	assert.Len(t, inner.getHandled(), 1, "events must not be dropped when the store is unavailable")
}

func TestIdempotentHandler_HandlerErrorPropagates(t *testing.T) {
	inner := newTestHandler("TestEvent")
	inner.setError(errors.New("handler failed"))
	handler := NewIdempotentHandler(inner, newFakeIdempotencyStore(), zap.NewNop())

	err := handler.Handle(context.Background(), newTestEvent("TestEvent", uuid.New()))
	require.Error(t, err)
	assert.Equal(t, int64(1), handler.GetMetrics().EventsFailed.Load())
}

func TestIdempotentHandler_Disabled(t *testing.T) {
	inner := newTestHandler("TestEvent")
	store := newFakeIdempotencyStore()
	handler := NewIdempotentHandler(inner, store, zap.NewNop(),
		WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}),
	)

	event := newTestEvent("TestEvent", uuid.New())
	require.NoError(t, handler.Handle(context.Background(), event))
	require.NoError(t, handler.Handle(context.Background(), event))

	assert.Len(t, inner.getHandled(), 2, "disabled idempotency processes every delivery")
}

func TestIdempotentHandler_EventTypesDelegates(t *testing.T) {
	inner := newTestHandler("A", "B")
	handler := NewIdempotentHandler(inner, newFakeIdempotencyStore(), zap.NewNop())

	assert.Equal(t, []string{"A", "B"}, handler.EventTypes())
	assert.Equal(t, inner, handler.GetWrappedHandler())
}

func TestWrapHandlersWithIdempotency(t *testing.T) {
	store := newFakeIdempotencyStore()
	handlers := []shared.EventHandler{
		newTestHandler("A"),
		newTestHandler("B"),
	}

	wrapped := WrapHandlersWithIdempotency(handlers, store, zap.NewNop())
	require.Len(t, wrapped, 2)
	for _, h := range wrapped {
		assert.IsType(t, &IdempotentHandler{}, h)
	}
}
