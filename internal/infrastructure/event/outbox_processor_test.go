package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ims/engine/internal/domain/shared"
)

func newProcessorFixture(t *testing.T) (*OutboxProcessor, *GormOutboxRepository, *testHandler) {
	t.Helper()

	db := setupOutboxDB(t)
	repo := NewGormOutboxRepository(db)

	serializer := NewEventSerializer()
	serializer.Register("TestEvent", &testEvent{})

	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("TestEvent")
	bus.Subscribe(handler, "TestEvent")

	processor := NewOutboxProcessor(repo, bus, serializer, DefaultOutboxProcessorConfig(), zap.NewNop())
	return processor, repo, handler
}

func TestOutboxProcessor_RelaysPendingEntries(t *testing.T) {
	processor, repo, handler := newProcessorFixture(t)
	ctx := context.Background()

	event := newTestEvent("TestEvent", uuid.New())
	payload, err := processor.serializer.Serialize(event)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, shared.NewOutboxEntry(event, payload)))

	processor.ProcessBatch(ctx)

	handled := handler.getHandled()
	require.Len(t, handled, 1)
	assert.Equal(t, event.EventID(), handled[0].EventID())

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusSent])
}

func TestOutboxProcessor_UnknownEventTypeFails(t *testing.T) {
	processor, repo, handler := newProcessorFixture(t)
	ctx := context.Background()

	event := newTestEvent("UnregisteredEvent", uuid.New())
	payload, err := processor.serializer.Serialize(event)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, shared.NewOutboxEntry(event, payload)))

	processor.ProcessBatch(ctx)

	assert.Empty(t, handler.getHandled())

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusFailed])
}

func TestOutboxProcessor_FailedEntryRetriesAfterBackoff(t *testing.T) {
	processor, repo, handler := newProcessorFixture(t)
	ctx := context.Background()

	event := newTestEvent("UnregisteredEvent", uuid.New())
	payload, err := processor.serializer.Serialize(event)
	require.NoError(t, err)
	entry := shared.NewOutboxEntry(event, payload)
	require.NoError(t, repo.Save(ctx, entry))

	processor.ProcessBatch(ctx)

	// Not yet due for retry: the next batch skips it
	processor.ProcessBatch(ctx)
	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusFailed])

	// Registering the type and forcing the retry due lets it go through
	processor.serializer.Register("UnregisteredEvent", &testEvent{})
	entry.Status = shared.OutboxStatusFailed
	entry.RetryCount = 1
	past := time.Now().Add(-time.Minute)
	entry.NextRetryAt = &past
	require.NoError(t, repo.Update(ctx, entry))

	processor.ProcessBatch(ctx)

	assert.Len(t, handler.getHandled(), 0, "handler is typed to TestEvent only")
	counts, err = repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusSent])
}

func TestOutboxProcessor_StartStop(t *testing.T) {
	processor, repo, handler := newProcessorFixture(t)
	processor.config.PollInterval = 10 * time.Millisecond

	ctx := context.Background()
	event := newTestEvent("TestEvent", uuid.New())
	payload, err := processor.serializer.Serialize(event)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, shared.NewOutboxEntry(event, payload)))

	require.NoError(t, processor.Start(ctx))

	require.Eventually(t, func() bool {
		return len(handler.getHandled()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, processor.Stop(stopCtx))
}
