package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
)

func startHub(t *testing.T, config HubConfig) *Hub {
	t.Helper()

	hub := NewHub(config, zap.NewNop())
	require.NoError(t, hub.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = hub.Stop(ctx)
	})
	return hub
}

func newStockEvent(t *testing.T) *inventory.StockLevelChangedEvent {
	t.Helper()

	item, err := inventory.NewInventoryItem(shared.NewTenantID(), shared.NewVariantID(), shared.NewWarehouseID())
	require.NoError(t, err)
	return inventory.NewStockLevelChangedEvent(item, nil)
}

func receiveEnvelope(t *testing.T, sub *Subscription) *Envelope {
	t.Helper()

	select {
	case env := <-sub.Events():
		require.NotNil(t, env)
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return nil
	}
}

func TestHub_RoutesStockEventToWarehouseAndVariantGroups(t *testing.T) {
	hub := startHub(t, DefaultHubConfig())

	event := newStockEvent(t)
	warehouseSub := hub.Subscribe(WarehouseGroup(event.TenantID(), event.WarehouseID))
	variantSub := hub.Subscribe(VariantGroup(event.TenantID(), event.VariantID))

	require.NoError(t, hub.Handle(context.Background(), event))

	whEnv := receiveEnvelope(t, warehouseSub)
	assert.Equal(t, inventory.EventTypeStockLevelChanged, whEnv.EventType)
	assert.Equal(t, WarehouseGroup(event.TenantID(), event.WarehouseID), whEnv.Group)
	assert.Equal(t, event.TenantID(), whEnv.TenantID)

	var decoded inventory.StockLevelChangedEvent
	require.NoError(t, json.Unmarshal(whEnv.Payload, &decoded))
	assert.Equal(t, event.InventoryItemID, decoded.InventoryItemID)

	varEnv := receiveEnvelope(t, variantSub)
	assert.Equal(t, VariantGroup(event.TenantID(), event.VariantID), varEnv.Group)
}

func TestHub_OtherTenantsGroupsStaySilent(t *testing.T) {
	hub := startHub(t, DefaultHubConfig())

	event := newStockEvent(t)
	otherSub := hub.Subscribe(WarehouseGroup(shared.NewTenantID().UUID, event.WarehouseID))

	require.NoError(t, hub.Handle(context.Background(), event))

	select {
	case env := <-otherSub.Events():
		t.Fatalf("unexpected delivery: %+v", env)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_RoutesAlertToKindGroup(t *testing.T) {
	hub := startHub(t, DefaultHubConfig())

	tenantID := shared.NewTenantID()
	variantID := shared.NewVariantID()
	alert, err := inventory.NewAlert(tenantID, inventory.AlertKindLowStock, inventory.AlertSeverityWarning, &variantID, nil, nil)
	require.NoError(t, err)
	event := inventory.NewAlertRaisedEvent(alert)

	lowStockSub := hub.Subscribe(AlertGroup(tenantID.UUID, inventory.AlertKindLowStock))
	outOfStockSub := hub.Subscribe(AlertGroup(tenantID.UUID, inventory.AlertKindOutOfStock))

	require.NoError(t, hub.Handle(context.Background(), event))

	env := receiveEnvelope(t, lowStockSub)
	assert.Equal(t, inventory.EventTypeAlertRaised, env.EventType)

	select {
	case <-outOfStockSub.Events():
		t.Fatal("alert delivered to the wrong kind group")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_CoalescesDashboardUpdates(t *testing.T) {
	config := DefaultHubConfig()
	config.DashboardWindow = 20 * time.Millisecond
	hub := startHub(t, config)

	tenantID := shared.NewTenantID()
	sub := hub.Subscribe(DashboardGroup(tenantID.UUID))

	// A burst inside one window collapses to a single delivery
	for i := 0; i < 5; i++ {
		event := inventory.NewDashboardMetricsUpdatedEvent(tenantID, inventory.MetricsScopeGlobal, inventory.MetricsPeriodDay, nil)
		require.NoError(t, hub.Handle(context.Background(), event))
	}

	env := receiveEnvelope(t, sub)
	assert.Equal(t, inventory.EventTypeDashboardMetricsUpdated, env.EventType)

	select {
	case extra := <-sub.Events():
		t.Fatalf("burst was not coalesced, got extra %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_DistinctScopesAreNotCoalescedTogether(t *testing.T) {
	config := DefaultHubConfig()
	config.DashboardWindow = 20 * time.Millisecond
	hub := startHub(t, config)

	tenantID := shared.NewTenantID()
	sub := hub.Subscribe(DashboardGroup(tenantID.UUID))

	global := inventory.NewDashboardMetricsUpdatedEvent(tenantID, inventory.MetricsScopeGlobal, inventory.MetricsPeriodDay, nil)
	warehouse := inventory.NewDashboardMetricsUpdatedEvent(tenantID, inventory.WarehouseMetricsScope(shared.NewWarehouseID()), inventory.MetricsPeriodDay, nil)
	require.NoError(t, hub.Handle(context.Background(), global))
	require.NoError(t, hub.Handle(context.Background(), warehouse))

	receiveEnvelope(t, sub)
	receiveEnvelope(t, sub)
}

func TestHub_SlowSubscriberShedsOldest(t *testing.T) {
	config := DefaultHubConfig()
	config.SubscriberBuffer = 1
	config.Workers = 1
	hub := startHub(t, config)

	event := newStockEvent(t)
	group := WarehouseGroup(event.TenantID(), event.WarehouseID)
	sub := hub.Subscribe(group)

	// Subscriber never reads; each delivery evicts the previous one
	for i := 0; i < 3; i++ {
		require.NoError(t, hub.Handle(context.Background(), newStockEventFor(t, event)))
	}

	require.Eventually(t, func() bool {
		return hub.Dropped() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.Len(t, sub.Events(), 1, "buffer keeps only the newest message")
}

// newStockEventFor builds another event for the same item coordinates so it
// routes to the same groups.
func newStockEventFor(t *testing.T, like *inventory.StockLevelChangedEvent) *inventory.StockLevelChangedEvent {
	t.Helper()

	event := *like
	event.BaseDomainEvent = shared.NewBaseDomainEvent(
		inventory.EventTypeStockLevelChanged,
		inventory.AggregateTypeInventoryItem,
		like.AggregateID(),
		like.TenantID(),
	)
	return &event
}

func TestHub_CloseDetachesSubscriber(t *testing.T) {
	hub := startHub(t, DefaultHubConfig())

	event := newStockEvent(t)
	sub := hub.Subscribe(WarehouseGroup(event.TenantID(), event.WarehouseID))
	require.Equal(t, 1, hub.SubscriberCount())

	sub.Close()
	assert.Equal(t, 0, hub.SubscriberCount())

	_, open := <-sub.Events()
	assert.False(t, open, "closed subscription channel must be closed")

	// Publishing after close must not panic or deliver
	require.NoError(t, hub.Handle(context.Background(), event))
}

func TestHub_IgnoresUnroutedEvents(t *testing.T) {
	hub := startHub(t, DefaultHubConfig())

	event := struct{ shared.DomainEvent }{}
	// A nil-group event is dropped silently
	assert.NotPanics(t, func() {
		_ = hub.Handle(context.Background(), event)
	})
}
