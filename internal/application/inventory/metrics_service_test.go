package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubMetricsReader serves canned aggregates and counts compute passes.
type stubMetricsReader struct {
	mu         sync.Mutex
	stats      inventory.StockLevelStats
	warehouses []inventory.WarehouseMetrics
	rate       inventory.MovementRate
	statsCalls int
	lastScope  *shared.WarehouseID
}

func (r *stubMetricsReader) StockLevelStats(_ context.Context, _ shared.TenantID, warehouseID *shared.WarehouseID, _ time.Time, _ time.Duration) (inventory.StockLevelStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statsCalls++
	r.lastScope = warehouseID
	return r.stats, nil
}

func (r *stubMetricsReader) StockLevelStatsByWarehouse(_ context.Context, _ shared.TenantID, _ time.Time, _ time.Duration) ([]inventory.WarehouseMetrics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.warehouses, nil
}

func (r *stubMetricsReader) SumMovementFlows(_ context.Context, _ shared.TenantID, _ *shared.WarehouseID, _, _ time.Time) (inventory.MovementRate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rate, nil
}

func (r *stubMetricsReader) computePasses() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statsCalls
}

// memMetricsStore is an in-memory DashboardMetricsCacheRepository.
type memMetricsStore struct {
	mu      sync.Mutex
	entries map[string]*inventory.DashboardMetricsCacheEntry
	nextID  uint
}

func newMemMetricsStore() *memMetricsStore {
	return &memMetricsStore{entries: make(map[string]*inventory.DashboardMetricsCacheEntry)}
}

func metricsEntryKey(tenantID shared.TenantID, scope inventory.MetricsScope, period inventory.MetricsPeriod) string {
	return inventory.MetricsCacheKey(tenantID, scope, period)
}

func (s *memMetricsStore) Get(_ context.Context, tenantID shared.TenantID, scope inventory.MetricsScope, period inventory.MetricsPeriod) (*inventory.DashboardMetricsCacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[metricsEntryKey(tenantID, scope, period)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *entry
	return &clone, nil
}

func (s *memMetricsStore) Upsert(_ context.Context, entry *inventory.DashboardMetricsCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	period := inventory.MetricsPeriod{Type: entry.PeriodType, Start: entry.PeriodStart, End: entry.PeriodEnd}
	key := metricsEntryKey(entry.TenantID, entry.Scope, period)
	if existing, ok := s.entries[key]; ok {
		entry.ID = existing.ID
	} else {
		s.nextID++
		entry.ID = s.nextID
	}
	clone := *entry
	s.entries[key] = &clone
	return nil
}

func (s *memMetricsStore) MarkStale(_ context.Context, tenantID shared.TenantID, scopes []inventory.MetricsScope) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, entry := range s.entries {
		if entry.TenantID != tenantID || entry.IsStale {
			continue
		}
		for _, scope := range scopes {
			if entry.Scope == scope {
				entry.IsStale = true
				n++
				break
			}
		}
	}
	return n, nil
}

func (s *memMetricsStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, entry := range s.entries {
		if entry.ExpiresAtUTC.Before(before) {
			delete(s.entries, key)
			n++
		}
	}
	return n, nil
}

func (s *memMetricsStore) staleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, entry := range s.entries {
		if entry.IsStale {
			n++
		}
	}
	return n
}

// fakeHotCache is an in-memory MetricsCache with per-scope key tracking.
type fakeHotCache struct {
	mu      sync.Mutex
	values  map[string][]byte
	byScope map[string][]string
	hits    int
	sets    int
}

func newFakeHotCache() *fakeHotCache {
	return &fakeHotCache{
		values:  make(map[string][]byte),
		byScope: make(map[string][]string),
	}
}

func hotScopeKey(tenantID shared.TenantID, scope inventory.MetricsScope) string {
	return tenantID.String() + "|" + scope.String()
}

func (c *fakeHotCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.values[key]
	if ok {
		c.hits++
	}
	return payload, ok, nil
}

func (c *fakeHotCache) Set(_ context.Context, tenantID shared.TenantID, scope inventory.MetricsScope, key string, payload []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = payload
	c.byScope[hotScopeKey(tenantID, scope)] = append(c.byScope[hotScopeKey(tenantID, scope)], key)
	c.sets++
	return nil
}

func (c *fakeHotCache) Evict(_ context.Context, tenantID shared.TenantID, scopes []inventory.MetricsScope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, scope := range scopes {
		sk := hotScopeKey(tenantID, scope)
		for _, key := range c.byScope[sk] {
			delete(c.values, key)
		}
		delete(c.byScope, sk)
	}
	return nil
}

func (c *fakeHotCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}

// recordRunner runs submitted jobs inline and records their names.
type recordRunner struct {
	mu    sync.Mutex
	names []string
}

func (r *recordRunner) Submit(name string, task func(ctx context.Context)) error {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	task(ctx)
	return nil
}

func (r *recordRunner) submitted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.names)
}

type stubPriceProvider struct {
	value valueobject.Money
}

func (p *stubPriceProvider) TotalStockValue(_ context.Context, _ shared.TenantID, _ *shared.WarehouseID) (*valueobject.Money, error) {
	v := p.value
	return &v, nil
}

func defaultReaderStats() inventory.StockLevelStats {
	return inventory.StockLevelStats{
		TotalStock:             qty("1500"),
		TotalAvailableStock:    qty("1200"),
		TotalReservedStock:     qty("300"),
		LowStockVariantCount:   3,
		OutOfStockVariantCount: 1,
		ExpiredVariantCount:    2,
		ExpiringVariantCount:   4,
	}
}

type metricsHarness struct {
	reader  *stubMetricsReader
	store   *memMetricsStore
	cache   *fakeHotCache
	service *MetricsService
}

func newMetricsHarness() *metricsHarness {
	h := &metricsHarness{
		reader: &stubMetricsReader{
			stats: defaultReaderStats(),
			rate:  inventory.MovementRate{Inbound: qty("40"), Outbound: qty("25")},
		},
		store: newMemMetricsStore(),
		cache: newFakeHotCache(),
	}
	h.service = NewMetricsService(h.reader, h.store, zap.NewNop())
	h.service.SetHotCache(h.cache)
	return h
}

func TestMetricsService_GetDashboard(t *testing.T) {
	ctx := context.Background()
	tctx := testTenantContext()

	t.Run("computes the payload from the ledger aggregates", func(t *testing.T) {
		h := newMetricsHarness()
		h.reader.warehouses = []inventory.WarehouseMetrics{
			{WarehouseID: shared.NewWarehouseID(), TotalStock: qty("900")},
			{WarehouseID: shared.NewWarehouseID(), TotalStock: qty("600")},
		}

		metrics, err := h.service.GetDashboard(ctx, tctx, inventory.MetricsScopeGlobal, inventory.MetricsPeriodDay)
		require.NoError(t, err)

		assert.True(t, metrics.TotalAvailableStock.Equal(qty("1200")))
		assert.True(t, metrics.TotalReservedStock.Equal(qty("300")))
		assert.Equal(t, 3, metrics.LowStockVariantCount)
		assert.Equal(t, 1, metrics.OutOfStockVariantCount)
		assert.Equal(t, 2, metrics.ExpiredVariantCount)
		assert.Equal(t, 4, metrics.ExpiringVariantCount)
		assert.Len(t, metrics.Warehouses, 2)
		assert.True(t, metrics.MovementRates.Daily.Inbound.Equal(qty("40")))
		assert.True(t, metrics.MovementRates.Weekly.Outbound.Equal(qty("25")))
		assert.Equal(t, inventory.MetricsPeriodDay, metrics.Period.Type)
		assert.Nil(t, metrics.TotalStockValue)
	})

	t.Run("serves repeat reads from cache without recompute", func(t *testing.T) {
		h := newMetricsHarness()

		_, err := h.service.GetDashboard(ctx, tctx, inventory.MetricsScopeGlobal, inventory.MetricsPeriodDay)
		require.NoError(t, err)
		require.Equal(t, 1, h.reader.computePasses())

		again, err := h.service.GetDashboard(ctx, tctx, inventory.MetricsScopeGlobal, inventory.MetricsPeriodDay)
		require.NoError(t, err)
		assert.Equal(t, 1, h.reader.computePasses())
		assert.True(t, again.TotalAvailableStock.Equal(qty("1200")))
		assert.Positive(t, h.cache.hits)
	})

	t.Run("falls back to the persisted entry when the hot cache is cold", func(t *testing.T) {
		h := newMetricsHarness()

		_, err := h.service.GetDashboard(ctx, tctx, inventory.MetricsScopeGlobal, inventory.MetricsPeriodDay)
		require.NoError(t, err)

		// Hot layer lost its copy, the table still has a fresh one.
		h.cache.values = map[string][]byte{}

		_, err = h.service.GetDashboard(ctx, tctx, inventory.MetricsScopeGlobal, inventory.MetricsPeriodDay)
		require.NoError(t, err)
		assert.Equal(t, 1, h.reader.computePasses())
	})

	t.Run("warehouse scope skips the per-warehouse breakdown", func(t *testing.T) {
		h := newMetricsHarness()
		warehouseID := shared.NewWarehouseID()

		metrics, err := h.service.GetDashboard(ctx, tctx, inventory.WarehouseMetricsScope(warehouseID), inventory.MetricsPeriodHour)
		require.NoError(t, err)

		assert.Empty(t, metrics.Warehouses)
		require.NotNil(t, h.reader.lastScope)
		assert.Equal(t, warehouseID, *h.reader.lastScope)
	})

	t.Run("rejects malformed scopes and period types", func(t *testing.T) {
		h := newMetricsHarness()

		_, err := h.service.GetDashboard(ctx, tctx, inventory.MetricsScope("continent:EU"), inventory.MetricsPeriodDay)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		_, err = h.service.GetDashboard(ctx, tctx, inventory.MetricsScopeGlobal, inventory.MetricsPeriodType("fortnight"))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("custom period bounds are validated", func(t *testing.T) {
		h := newMetricsHarness()
		now := time.Now().UTC()

		_, err := h.service.GetDashboardForPeriod(ctx, tctx, inventory.MetricsScopeGlobal, now, now.Add(-time.Hour))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		metrics, err := h.service.GetDashboardForPeriod(ctx, tctx, inventory.MetricsScopeGlobal, now.Add(-2*time.Hour), now)
		require.NoError(t, err)
		assert.Equal(t, inventory.MetricsPeriodCustom, metrics.Period.Type)
	})

	t.Run("price provider adds stock valuation", func(t *testing.T) {
		h := newMetricsHarness()
		h.service.SetPriceProvider(&stubPriceProvider{value: valueobject.MustMoney("12345.67", valueobject.USD)})

		metrics, err := h.service.GetDashboard(ctx, tctx, inventory.MetricsScopeGlobal, inventory.MetricsPeriodDay)
		require.NoError(t, err)
		require.NotNil(t, metrics.TotalStockValue)
	})

	t.Run("tenants never share cache entries", func(t *testing.T) {
		h := newMetricsHarness()
		other := testTenantContext()

		_, err := h.service.GetDashboard(ctx, tctx, inventory.MetricsScopeGlobal, inventory.MetricsPeriodDay)
		require.NoError(t, err)
		_, err = h.service.GetDashboard(ctx, other, inventory.MetricsScopeGlobal, inventory.MetricsPeriodDay)
		require.NoError(t, err)

		assert.Equal(t, 2, h.reader.computePasses())
	})
}

func TestMetricsService_Invalidation(t *testing.T) {
	ctx := context.Background()
	tctx := testTenantContext()

	t.Run("stale entries force a recompute", func(t *testing.T) {
		h := newMetricsHarness()
		require.NoError(t, h.service.Start(context.Background()))
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			require.NoError(t, h.service.Stop(stopCtx))
		}()

		warehouseID := shared.NewWarehouseID()
		_, err := h.service.GetDashboard(ctx, tctx, inventory.MetricsScopeGlobal, inventory.MetricsPeriodDay)
		require.NoError(t, err)
		_, err = h.service.GetDashboard(ctx, tctx, inventory.WarehouseMetricsScope(warehouseID), inventory.MetricsPeriodDay)
		require.NoError(t, err)
		require.Equal(t, 2, h.reader.computePasses())

		h.service.InvalidateScopes(tctx.TenantID, warehouseID)

		require.Eventually(t, func() bool {
			return h.store.staleCount() == 2 && h.cache.size() == 0
		}, 3*time.Second, 10*time.Millisecond)

		_, err = h.service.GetDashboard(ctx, tctx, inventory.MetricsScopeGlobal, inventory.MetricsPeriodDay)
		require.NoError(t, err)
		assert.Equal(t, 3, h.reader.computePasses())
	})

	t.Run("invalidation touches only the named scopes", func(t *testing.T) {
		h := newMetricsHarness()
		require.NoError(t, h.service.Start(context.Background()))
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			require.NoError(t, h.service.Stop(stopCtx))
		}()

		touched := shared.NewWarehouseID()
		untouched := shared.NewWarehouseID()
		_, err := h.service.GetDashboard(ctx, tctx, inventory.WarehouseMetricsScope(touched), inventory.MetricsPeriodDay)
		require.NoError(t, err)
		_, err = h.service.GetDashboard(ctx, tctx, inventory.WarehouseMetricsScope(untouched), inventory.MetricsPeriodDay)
		require.NoError(t, err)

		h.service.InvalidateScopes(tctx.TenantID, touched)

		require.Eventually(t, func() bool {
			return h.store.staleCount() == 1
		}, 3*time.Second, 10*time.Millisecond)

		_, err = h.service.GetDashboard(ctx, tctx, inventory.WarehouseMetricsScope(untouched), inventory.MetricsPeriodDay)
		require.NoError(t, err)
		assert.Equal(t, 2, h.reader.computePasses(), "the untouched scope still serves from cache")
	})
}

func TestMetricsService_Refresh(t *testing.T) {
	ctx := context.Background()
	tctx := testTenantContext()

	t.Run("refresh bypasses both cache levels", func(t *testing.T) {
		h := newMetricsHarness()

		_, err := h.service.GetDashboard(ctx, tctx, inventory.MetricsScopeGlobal, inventory.MetricsPeriodDay)
		require.NoError(t, err)
		require.Equal(t, 1, h.reader.computePasses())

		require.NoError(t, h.service.Refresh(ctx, tctx.TenantID, inventory.MetricsScopeGlobal, inventory.MetricsPeriodDay))
		assert.Equal(t, 2, h.reader.computePasses())
	})

	t.Run("publishes an update per recompute", func(t *testing.T) {
		h := newMetricsHarness()
		publisher := newCapturePublisher()
		h.service.SetEventPublisher(publisher)

		require.NoError(t, h.service.Refresh(ctx, tctx.TenantID, inventory.MetricsScopeGlobal, inventory.MetricsPeriodHour))

		events := publisher.GetEventsByType(inventory.EventTypeDashboardMetricsUpdated)
		require.Len(t, events, 1)
	})

	t.Run("background refresher precomputes active scopes", func(t *testing.T) {
		h := newMetricsHarness()
		runner := &recordRunner{}
		h.service.SetTaskRunner(runner)
		h.service.SetRefreshInterval(20 * time.Millisecond)
		require.NoError(t, h.service.Start(context.Background()))
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			require.NoError(t, h.service.Stop(stopCtx))
		}()

		h.service.InvalidateScopes(tctx.TenantID)

		require.Eventually(t, func() bool {
			return runner.submitted() >= 2
		}, 3*time.Second, 10*time.Millisecond, "hour and day periods are precomputed")
	})
}
