package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMetricsCacheTTL bounds how long a computed entry is served.
	DefaultMetricsCacheTTL = 5 * time.Minute
	// DefaultExpiringWindow classifies items as expiring within this span.
	DefaultExpiringWindow = 30 * 24 * time.Hour
	// DefaultMetricsRefreshInterval paces the background pre-computation.
	DefaultMetricsRefreshInterval = 5 * time.Minute
	// metricsEndQuantum aligns rolling period ends so concurrent readers
	// share cache keys.
	metricsEndQuantum = 5 * time.Minute
	// metricsActivityRetention is how long an invalidated (tenant, scope)
	// stays on the refresher's worklist.
	metricsActivityRetention = 30 * time.Minute
	// invalidationQueueSize buffers invalidation hints from commands.
	invalidationQueueSize = 1024
)

// MetricsCache is the hot cache in front of the persisted metrics table.
// Implementations track stored keys per (tenant, scope) so Evict can drop
// everything an invalidation touches.
type MetricsCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, tenantID shared.TenantID, scope inventory.MetricsScope, key string, payload []byte, ttl time.Duration) error
	Evict(ctx context.Context, tenantID shared.TenantID, scopes []inventory.MetricsScope) error
}

// PriceProvider values the stock in scope. Optional; without one the
// dashboard omits TotalStockValue.
type PriceProvider interface {
	TotalStockValue(ctx context.Context, tenantID shared.TenantID, warehouseID *shared.WarehouseID) (*valueobject.Money, error)
}

// TaskRunner hands background refresh jobs to a worker pool.
type TaskRunner interface {
	Submit(name string, task func(ctx context.Context)) error
}

// MetricsService serves dashboard metrics through a two-level cache: Redis
// in front, the dashboard_metrics_cache table behind it, recomputation from
// the ledger aggregates behind singleflight. Stock and reservation commands
// report invalidations which mark intersecting entries stale; a background
// refresher pre-computes recently active combinations.
type MetricsService struct {
	reader    inventory.MetricsReader
	store     inventory.DashboardMetricsCacheRepository
	cache     MetricsCache
	prices    PriceProvider
	runner    TaskRunner
	publisher shared.EventPublisher
	logger    *zap.Logger

	group singleflight.Group

	ttl             time.Duration
	expiringWindow  time.Duration
	refreshInterval time.Duration

	invalidations chan invalidation

	activeMu sync.Mutex
	active   map[shared.TenantID]map[inventory.MetricsScope]time.Time

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

type invalidation struct {
	tenantID shared.TenantID
	scopes   []inventory.MetricsScope
}

// NewMetricsService creates a new MetricsService.
func NewMetricsService(reader inventory.MetricsReader, store inventory.DashboardMetricsCacheRepository, logger *zap.Logger) *MetricsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsService{
		reader:          reader,
		store:           store,
		logger:          logger,
		ttl:             DefaultMetricsCacheTTL,
		expiringWindow:  DefaultExpiringWindow,
		refreshInterval: DefaultMetricsRefreshInterval,
		invalidations:   make(chan invalidation, invalidationQueueSize),
		active:          make(map[shared.TenantID]map[inventory.MetricsScope]time.Time),
	}
}

// SetHotCache sets the Redis layer. Without one the service runs on the
// persisted table alone.
func (s *MetricsService) SetHotCache(cache MetricsCache) {
	s.cache = cache
}

// SetPriceProvider enables stock valuation in the dashboard payload.
func (s *MetricsService) SetPriceProvider(prices PriceProvider) {
	s.prices = prices
}

// SetTaskRunner routes background refreshes through the given worker pool
// instead of the refresher goroutine.
func (s *MetricsService) SetTaskRunner(runner TaskRunner) {
	s.runner = runner
}

// SetEventPublisher sets the publisher for DashboardMetricsUpdated events.
func (s *MetricsService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetCacheTTL overrides the serve-without-recompute window.
func (s *MetricsService) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		s.ttl = ttl
	}
}

// SetExpiringWindow overrides the expiring-items classification window.
func (s *MetricsService) SetExpiringWindow(window time.Duration) {
	if window > 0 {
		s.expiringWindow = window
	}
}

// SetRefreshInterval overrides the background refresh pace. Ignored once
// started.
func (s *MetricsService) SetRefreshInterval(interval time.Duration) {
	if interval > 0 {
		s.refreshInterval = interval
	}
}

// GetDashboard returns metrics for a rolling period of the given type
// ending now. Period ends are aligned to a coarse step so concurrent
// readers hit the same cache entry.
func (s *MetricsService) GetDashboard(ctx context.Context, tctx shared.TenantContext, scope inventory.MetricsScope, periodType inventory.MetricsPeriodType) (*inventory.DashboardMetrics, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	if _, err := inventory.ParseMetricsScope(scope.String()); err != nil {
		return nil, err
	}
	end := time.Now().UTC().Truncate(metricsEndQuantum)
	period, err := inventory.PeriodEndingAt(periodType, end)
	if err != nil {
		return nil, err
	}
	return s.getForPeriod(ctx, tctx.TenantID, scope, period, false)
}

// GetDashboardForPeriod returns metrics for an explicit custom window.
func (s *MetricsService) GetDashboardForPeriod(ctx context.Context, tctx shared.TenantContext, scope inventory.MetricsScope, start, end time.Time) (*inventory.DashboardMetrics, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	if _, err := inventory.ParseMetricsScope(scope.String()); err != nil {
		return nil, err
	}
	period, err := inventory.NewCustomPeriod(start, end)
	if err != nil {
		return nil, err
	}
	return s.getForPeriod(ctx, tctx.TenantID, scope, period, false)
}

// Refresh recomputes one combination unconditionally and rewrites both cache
// levels.
func (s *MetricsService) Refresh(ctx context.Context, tenantID shared.TenantID, scope inventory.MetricsScope, periodType inventory.MetricsPeriodType) error {
	end := time.Now().UTC().Truncate(metricsEndQuantum)
	period, err := inventory.PeriodEndingAt(periodType, end)
	if err != nil {
		return err
	}
	_, err = s.getForPeriod(ctx, tenantID, scope, period, true)
	return err
}

// InvalidateScopes marks the tenant's global scope and the given warehouse
// scopes stale. Hints queue to a background worker; a full queue applies
// inline so staleness is never dropped.
func (s *MetricsService) InvalidateScopes(tenantID shared.TenantID, warehouseIDs ...shared.WarehouseID) {
	scopes := make([]inventory.MetricsScope, 0, len(warehouseIDs)+1)
	scopes = append(scopes, inventory.MetricsScopeGlobal)
	for _, id := range warehouseIDs {
		if !id.IsZero() {
			scopes = append(scopes, inventory.WarehouseMetricsScope(id))
		}
	}
	s.noteActivity(tenantID, scopes)

	req := invalidation{tenantID: tenantID, scopes: scopes}
	select {
	case s.invalidations <- req:
	default:
		s.applyInvalidation(req)
	}
}

// Start launches the invalidation worker and the background refresher.
func (s *MetricsService) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run()
	s.logger.Info("Metrics service started",
		zap.Duration("cache_ttl", s.ttl),
		zap.Duration("refresh_interval", s.refreshInterval),
	)
	return nil
}

// Stop drains the invalidation queue and halts the refresher.
func (s *MetricsService) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
		s.logger.Info("Metrics service stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MetricsService) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			// Drain queued invalidations before exiting.
			for {
				select {
				case req := <-s.invalidations:
					s.applyInvalidation(req)
				default:
					return
				}
			}
		case req := <-s.invalidations:
			s.applyInvalidation(req)
		case <-ticker.C:
			s.refreshActive()
		}
	}
}

func (s *MetricsService) applyInvalidation(req invalidation) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.store.MarkStale(ctx, req.tenantID, req.scopes); err != nil {
		s.logger.Warn("Failed to mark metrics entries stale",
			zap.String("tenant_id", req.tenantID.String()),
			zap.Error(err),
		)
	}
	if s.cache != nil {
		if err := s.cache.Evict(ctx, req.tenantID, req.scopes); err != nil {
			s.logger.Warn("Failed to evict hot metrics entries",
				zap.String("tenant_id", req.tenantID.String()),
				zap.Error(err),
			)
		}
	}
}

// refreshActive pre-computes the hour and day periods of every (tenant,
// scope) invalidated recently, then prunes the worklist and expired rows.
func (s *MetricsService) refreshActive() {
	now := time.Now().UTC()
	work := s.snapshotActivity(now)

	for tenantID, scopes := range work {
		for _, scope := range scopes {
			for _, periodType := range []inventory.MetricsPeriodType{inventory.MetricsPeriodHour, inventory.MetricsPeriodDay} {
				s.submitRefresh(tenantID, scope, periodType)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.store.DeleteExpired(ctx, now.Add(-time.Hour)); err != nil {
		s.logger.Warn("Failed to prune expired metrics entries", zap.Error(err))
	}
}

func (s *MetricsService) submitRefresh(tenantID shared.TenantID, scope inventory.MetricsScope, periodType inventory.MetricsPeriodType) {
	job := func(ctx context.Context) {
		if err := s.Refresh(ctx, tenantID, scope, periodType); err != nil {
			s.logger.Warn("Background metrics refresh failed",
				zap.String("tenant_id", tenantID.String()),
				zap.String("scope", scope.String()),
				zap.String("period_type", string(periodType)),
				zap.Error(err),
			)
		}
	}
	if s.runner != nil {
		if err := s.runner.Submit("metrics-refresh", job); err == nil {
			return
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	job(ctx)
}

func (s *MetricsService) noteActivity(tenantID shared.TenantID, scopes []inventory.MetricsScope) {
	now := time.Now().UTC()
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	byScope, ok := s.active[tenantID]
	if !ok {
		byScope = make(map[inventory.MetricsScope]time.Time)
		s.active[tenantID] = byScope
	}
	for _, scope := range scopes {
		byScope[scope] = now
	}
}

func (s *MetricsService) snapshotActivity(now time.Time) map[shared.TenantID][]inventory.MetricsScope {
	cutoff := now.Add(-metricsActivityRetention)
	work := make(map[shared.TenantID][]inventory.MetricsScope)

	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	for tenantID, byScope := range s.active {
		for scope, last := range byScope {
			if last.Before(cutoff) {
				delete(byScope, scope)
				continue
			}
			work[tenantID] = append(work[tenantID], scope)
		}
		if len(byScope) == 0 {
			delete(s.active, tenantID)
		}
	}
	return work
}

// getForPeriod is the read path: hot cache, then the persisted entry, then a
// recompute collapsed behind singleflight. force skips both cache levels.
func (s *MetricsService) getForPeriod(ctx context.Context, tenantID shared.TenantID, scope inventory.MetricsScope, period inventory.MetricsPeriod, force bool) (*inventory.DashboardMetrics, error) {
	key := inventory.MetricsCacheKey(tenantID, scope, period)

	if !force && s.cache != nil {
		payload, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("Hot metrics cache read failed", zap.Error(err))
		} else if ok {
			var metrics inventory.DashboardMetrics
			if err := json.Unmarshal(payload, &metrics); err == nil {
				return &metrics, nil
			}
		}
	}

	value, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.loadOrCompute(ctx, tenantID, scope, period, key, force)
	})
	if err != nil {
		return nil, err
	}
	return value.(*inventory.DashboardMetrics), nil
}

func (s *MetricsService) loadOrCompute(ctx context.Context, tenantID shared.TenantID, scope inventory.MetricsScope, period inventory.MetricsPeriod, key string, force bool) (*inventory.DashboardMetrics, error) {
	now := time.Now().UTC()

	if !force {
		entry, err := s.store.Get(ctx, tenantID, scope, period)
		switch {
		case err == nil && entry.IsUsable(now):
			var metrics inventory.DashboardMetrics
			if err := json.Unmarshal(entry.Payload, &metrics); err == nil {
				s.storeHot(ctx, tenantID, scope, key, entry.Payload, entry.ExpiresAtUTC.Sub(now))
				return &metrics, nil
			}
		case err != nil && !errors.Is(err, shared.ErrNotFound):
			s.logger.Warn("Metrics cache table read failed", zap.Error(err))
		}
	}

	metrics, err := s.compute(ctx, tenantID, scope, period, now)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(metrics)
	if err != nil {
		return nil, shared.WrapInfrastructure(err)
	}

	entry := &inventory.DashboardMetricsCacheEntry{
		TenantID:     tenantID,
		Scope:        scope,
		PeriodStart:  period.Start,
		PeriodEnd:    period.End,
		PeriodType:   period.Type,
		Payload:      payload,
		ExpiresAtUTC: now.Add(s.ttl),
		ComputedAt:   now,
	}
	if err := s.store.Upsert(ctx, entry); err != nil {
		s.logger.Warn("Failed to persist metrics entry", zap.Error(err))
	}
	s.storeHot(ctx, tenantID, scope, key, payload, s.ttl)

	if s.publisher != nil {
		event := inventory.NewDashboardMetricsUpdatedEvent(tenantID, scope, period.Type, metrics)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish metrics update", zap.Error(err))
		}
	}
	return metrics, nil
}

func (s *MetricsService) storeHot(ctx context.Context, tenantID shared.TenantID, scope inventory.MetricsScope, key string, payload []byte, ttl time.Duration) {
	if s.cache == nil || ttl <= 0 {
		return
	}
	if err := s.cache.Set(ctx, tenantID, scope, key, payload, ttl); err != nil {
		s.logger.Warn("Hot cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// compute builds the payload from the ledger aggregates. The per-warehouse
// breakdown is computed for the global scope only.
func (s *MetricsService) compute(ctx context.Context, tenantID shared.TenantID, scope inventory.MetricsScope, period inventory.MetricsPeriod, now time.Time) (*inventory.DashboardMetrics, error) {
	var warehouseID *shared.WarehouseID
	if id, ok := scope.WarehouseID(); ok {
		warehouseID = &id
	}

	stats, err := s.reader.StockLevelStats(ctx, tenantID, warehouseID, now, s.expiringWindow)
	if err != nil {
		return nil, shared.WrapInfrastructure(err)
	}

	metrics := &inventory.DashboardMetrics{
		Scope:                  scope,
		Period:                 period,
		TotalAvailableStock:    stats.TotalAvailableStock,
		TotalReservedStock:     stats.TotalReservedStock,
		LowStockVariantCount:   stats.LowStockVariantCount,
		OutOfStockVariantCount: stats.OutOfStockVariantCount,
		ExpiredVariantCount:    stats.ExpiredVariantCount,
		ExpiringVariantCount:   stats.ExpiringVariantCount,
		GeneratedAt:            now,
	}

	if scope.IsGlobal() {
		warehouses, err := s.reader.StockLevelStatsByWarehouse(ctx, tenantID, now, s.expiringWindow)
		if err != nil {
			s.logger.Warn("Failed to compute warehouse breakdown", zap.Error(err))
		} else {
			metrics.Warehouses = warehouses
		}
	}

	rates, err := s.movementRates(ctx, tenantID, warehouseID, now)
	if err != nil {
		return nil, err
	}
	metrics.MovementRates = rates

	if s.prices != nil {
		value, err := s.prices.TotalStockValue(ctx, tenantID, warehouseID)
		if err != nil {
			s.logger.Warn("Failed to value stock", zap.Error(err))
		} else {
			metrics.TotalStockValue = value
		}
	}
	return metrics, nil
}

func (s *MetricsService) movementRates(ctx context.Context, tenantID shared.TenantID, warehouseID *shared.WarehouseID, now time.Time) (inventory.StockMovementRates, error) {
	var rates inventory.StockMovementRates
	windows := []struct {
		span time.Duration
		dst  *inventory.MovementRate
	}{
		{24 * time.Hour, &rates.Daily},
		{7 * 24 * time.Hour, &rates.Weekly},
		{30 * 24 * time.Hour, &rates.Monthly},
	}
	for _, w := range windows {
		rate, err := s.reader.SumMovementFlows(ctx, tenantID, warehouseID, now.Add(-w.span), now)
		if err != nil {
			return rates, shared.WrapInfrastructure(err)
		}
		*w.dst = rate
	}
	return rates, nil
}

var _ MetricsInvalidator = (*MetricsService)(nil)
