package inventory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	// DefaultSweepInterval is the pause between background sweeps.
	DefaultSweepInterval = 30 * time.Second
	// DefaultSweepBatchSize caps the reservations processed per sweep.
	DefaultSweepBatchSize = 500
	// DefaultExpiryWarnWindow is how far ahead of the expiry instant a
	// reservation counts as near expiry for alerting.
	DefaultExpiryWarnWindow = 15 * time.Minute
)

// ReservationAlertEvaluator raises near-expiry alerts for reservations the
// sweeper finds approaching their deadline. Failures are handled by the
// implementation.
type ReservationAlertEvaluator interface {
	EvaluateReservationExpiry(ctx context.Context, res *inventory.Reservation)
}

// SweepStats summarizes one sweep pass.
type SweepStats struct {
	Due         int       `json:"due"`
	Expired     int       `json:"expired"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	Warned      int       `json:"warned"`
	ProcessedAt time.Time `json:"processed_at"`
}

// ExpirySweeper walks overdue reservations in the background, transitions
// them to Expired and releases their remainder back to available stock. Each
// reservation is re-checked under the item's per-key lock, so concurrent
// sweepers and foreground Expire calls converge on a single transition.
type ExpirySweeper struct {
	reservations inventory.ReservationRepository
	items        inventory.InventoryItemRepository
	scope        TransactionScope
	locks        ItemLocker
	logger       *zap.Logger
	publisher    shared.EventPublisher
	outbox       shared.OutboxEventSaver
	alerts       ReservationAlertEvaluator
	invalidator  MetricsInvalidator

	interval   time.Duration
	batchSize  int
	warnWindow time.Duration

	wake chan time.Time

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewExpirySweeper creates a sweeper with the default interval, batch size
// and warn window.
func NewExpirySweeper(
	reservations inventory.ReservationRepository,
	items inventory.InventoryItemRepository,
	scope TransactionScope,
	locks ItemLocker,
	logger *zap.Logger,
) *ExpirySweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpirySweeper{
		reservations: reservations,
		items:        items,
		scope:        scope,
		locks:        locks,
		logger:       logger,
		interval:     DefaultSweepInterval,
		batchSize:    DefaultSweepBatchSize,
		warnWindow:   DefaultExpiryWarnWindow,
		wake:         make(chan time.Time, 1),
	}
}

// SetEventPublisher sets the publisher for post-commit in-process delivery.
func (s *ExpirySweeper) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetOutboxSaver sets the outbox saver recording expiry events in the sweep
// transaction.
func (s *ExpirySweeper) SetOutboxSaver(outbox shared.OutboxEventSaver) {
	s.outbox = outbox
}

// SetAlertEvaluator sets the near-expiry alert detector.
func (s *ExpirySweeper) SetAlertEvaluator(alerts ReservationAlertEvaluator) {
	s.alerts = alerts
}

// SetMetricsInvalidator sets the dashboard cache invalidation hook.
func (s *ExpirySweeper) SetMetricsInvalidator(invalidator MetricsInvalidator) {
	s.invalidator = invalidator
}

// SetInterval overrides the sweep interval. Ignored once started.
func (s *ExpirySweeper) SetInterval(interval time.Duration) {
	if interval > 0 {
		s.interval = interval
	}
}

// SetBatchSize overrides the per-sweep reservation cap. Ignored once started.
func (s *ExpirySweeper) SetBatchSize(size int) {
	if size > 0 {
		s.batchSize = size
	}
}

// SetWarnWindow overrides the near-expiry alert window. Ignored once started.
func (s *ExpirySweeper) SetWarnWindow(window time.Duration) {
	if window >= 0 {
		s.warnWindow = window
	}
}

// Start launches the background loop. Starting a running sweeper is a no-op.
func (s *ExpirySweeper) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run()
	s.logger.Info("Reservation expiry sweeper started",
		zap.Duration("interval", s.interval),
		zap.Int("batch_size", s.batchSize),
	)
	return nil
}

// Stop signals the loop and waits for the in-flight sweep to drain or ctx to
// expire.
func (s *ExpirySweeper) Stop(ctx context.Context) error {
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
		s.logger.Info("Reservation expiry sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WakeUp asks the sweeper to run no later than the given instant, for
// reservations expiring before the next scheduled tick. Calls never block;
// concurrent nudges coalesce to the earliest instant.
func (s *ExpirySweeper) WakeUp(before time.Time) {
	select {
	case s.wake <- before:
	default:
		select {
		case queued := <-s.wake:
			if queued.Before(before) {
				before = queued
			}
			select {
			case s.wake <- before:
			default:
			}
		default:
		}
	}
}

func (s *ExpirySweeper) run() {
	defer close(s.done)

	next := time.Now().Add(s.interval)
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-s.stop:
			return
		case at := <-s.wake:
			if at.Before(next) {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				delay := time.Until(at)
				if delay < 0 {
					delay = 0
				}
				timer.Reset(delay)
				next = at
			}
		case <-timer.C:
			if _, err := s.Sweep(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Reservation sweep failed", zap.Error(err))
			}
			next = time.Now().Add(s.interval)
			timer.Reset(s.interval)
		}
	}
}

// Sweep performs one pass: load reservations due before now plus the warn
// window, expire the overdue ones and hand the rest to the alert detector.
// Cancellation is honored between reservations; the pass reports what it
// completed.
func (s *ExpirySweeper) Sweep(ctx context.Context) (*SweepStats, error) {
	now := time.Now().UTC()
	stats := &SweepStats{ProcessedAt: now}

	due, err := s.reservations.FindDue(ctx, now.Add(s.warnWindow), s.batchSize)
	if err != nil {
		return nil, shared.WrapInfrastructure(err)
	}

	for _, probe := range due {
		select {
		case <-ctx.Done():
			s.logSweep(stats)
			return stats, ctx.Err()
		default:
		}

		if !probe.IsOverdue(now) {
			if s.alerts != nil {
				s.alerts.EvaluateReservationExpiry(ctx, probe)
				stats.Warned++
			}
			continue
		}

		stats.Due++
		switch err := s.expireOne(ctx, probe); {
		case err == nil:
			stats.Expired++
		case errors.Is(err, shared.ErrReservationAlreadyUsed),
			errors.Is(err, shared.ErrReservationNotFound),
			errors.Is(err, shared.ErrInvalidState):
			// Another worker or a foreground call already moved it on.
			stats.Skipped++
		default:
			stats.Failed++
			s.logger.Error("Failed to expire reservation",
				zap.String("reservation_id", probe.ID.String()),
				zap.String("tenant_id", probe.TenantID.String()),
				zap.Error(err),
			)
		}
	}

	s.logSweep(stats)
	return stats, nil
}

// expireOne reloads the reservation under its item lock and applies the
// expiry transition with the remainder release in one transaction.
func (s *ExpirySweeper) expireOne(ctx context.Context, probe *inventory.Reservation) error {
	key := inventory.LockKey(probe.TenantID, probe.VariantID, probe.WarehouseID)
	release, err := s.locks.Acquire(ctx, key)
	if err != nil {
		return err
	}

	var (
		res  *inventory.Reservation
		item *inventory.InventoryItem
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		res, err = repos.Reservations().FindByID(ctx, probe.TenantID, probe.ID)
		if err != nil {
			return err
		}
		released, err := res.Expire(time.Now().UTC())
		if err != nil {
			return err
		}
		item = nil
		if !released.IsZero() {
			item, err = repos.Items().FindByVariantAndWarehouse(ctx, probe.TenantID, res.VariantID, res.WarehouseID)
			if err != nil {
				return err
			}
			if err := item.ReleaseReserved(released); err != nil {
				return err
			}
			item.AddDomainEvent(inventory.NewStockLevelChangedEvent(item, nil))
		}

		if err := repos.Reservations().SaveWithLock(ctx, res); err != nil {
			return err
		}
		events := res.GetDomainEvents()
		if item != nil {
			if err := repos.Items().SaveWithLock(ctx, item); err != nil {
				return err
			}
			events = append(events, item.GetDomainEvents()...)
		}
		if s.outbox == nil || len(events) == 0 {
			return nil
		}
		return s.outbox.SaveEvents(ctx, repos.TxHandle(), events...)
	})
	release()
	if err != nil {
		return err
	}

	events := res.GetDomainEvents()
	res.ClearDomainEvents()
	if item != nil {
		events = append(events, item.GetDomainEvents()...)
		item.ClearDomainEvents()
	}
	if s.publisher != nil && len(events) > 0 {
		if err := s.publisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("Failed to publish expiry events",
				zap.String("reservation_id", res.ID.String()),
				zap.Error(err),
			)
		}
	}
	if item != nil && s.invalidator != nil {
		s.invalidator.InvalidateScopes(probe.TenantID, res.WarehouseID)
	}
	return nil
}

func (s *ExpirySweeper) logSweep(stats *SweepStats) {
	if stats.Due == 0 && stats.Warned == 0 {
		return
	}
	s.logger.Info("Reservation sweep completed",
		zap.Int("due", stats.Due),
		zap.Int("expired", stats.Expired),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Int("warned", stats.Warned),
	)
}
