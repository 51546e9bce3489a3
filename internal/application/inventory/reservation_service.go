package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
	"github.com/ims/engine/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ExpiryWaker nudges the expiry sweeper when a reservation is created with
// an expiry earlier than the next scheduled sweep. Never blocks.
type ExpiryWaker interface {
	WakeUp(before time.Time)
}

// ReservationService manages the reservation lifecycle. Reservations claim
// available stock through the item's reserved counter and never touch the
// movement ledger; every mutation runs under the item's per-key lock so the
// reserved counter stays equal to the sum of open reservation remainders.
type ReservationService struct {
	reservations inventory.ReservationRepository
	items        inventory.InventoryItemRepository
	scope        TransactionScope
	locks        ItemLocker
	logger       *zap.Logger
	publisher    shared.EventPublisher
	outbox       shared.OutboxEventSaver
	alerts       AlertEvaluator
	invalidator  MetricsInvalidator
	waker        ExpiryWaker
	results      shared.CommandResultStore
	resultTTL    time.Duration
}

// NewReservationService creates a new ReservationService.
func NewReservationService(
	reservations inventory.ReservationRepository,
	items inventory.InventoryItemRepository,
	scope TransactionScope,
	locks ItemLocker,
	logger *zap.Logger,
) *ReservationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationService{
		reservations: reservations,
		items:        items,
		scope:        scope,
		locks:        locks,
		logger:       logger,
		resultTTL:    shared.DefaultIdempotencyConfig().TTL,
	}
}

// SetEventPublisher sets the publisher for post-commit in-process delivery.
func (s *ReservationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetOutboxSaver sets the outbox saver recording events in the command
// transaction for durable external delivery.
func (s *ReservationService) SetOutboxSaver(outbox shared.OutboxEventSaver) {
	s.outbox = outbox
}

// SetAlertEvaluator sets the post-commit alert detector.
func (s *ReservationService) SetAlertEvaluator(alerts AlertEvaluator) {
	s.alerts = alerts
}

// SetMetricsInvalidator sets the dashboard cache invalidation hook.
func (s *ReservationService) SetMetricsInvalidator(invalidator MetricsInvalidator) {
	s.invalidator = invalidator
}

// SetExpiryWaker sets the sweeper nudge for short-lived reservations.
func (s *ReservationService) SetExpiryWaker(waker ExpiryWaker) {
	s.waker = waker
}

// SetResultStore enables correlation-ID idempotency for reservation
// commands. ttl <= 0 keeps the default retention.
func (s *ReservationService) SetResultStore(store shared.CommandResultStore, ttl time.Duration) {
	s.results = store
	if ttl > 0 {
		s.resultTTL = ttl
	}
}

// Create places a claim of req.Quantity against the item's available stock.
// The reservation ID is caller-supplied; reusing one fails with
// ALREADY_EXISTS. Insufficient availability fails with INSUFFICIENT_STOCK
// and a missing item with INVENTORY_NOT_FOUND.
func (s *ReservationService) Create(ctx context.Context, tctx shared.TenantContext, req CreateReservationRequest) (*ReservationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reservation", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrReservationID, req.ReservationID.String(),
		telemetry.SpanAttrVariantID, req.VariantID.String(),
		telemetry.SpanAttrQuantity, req.Quantity.String(),
	)

	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	if err := validateItemKey(req.VariantID, req.WarehouseID); err != nil {
		return nil, err
	}

	var cached ReservationResponse
	if s.replayResult(ctx, tctx, &cached) {
		return &cached, nil
	}

	key := inventory.LockKey(tctx.TenantID, req.VariantID, req.WarehouseID)
	release, err := s.locks.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}

	var (
		res  *inventory.Reservation
		item *inventory.InventoryItem
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.Reservations().FindByID(ctx, tctx.TenantID, req.ReservationID); err == nil {
			return shared.NewDomainError(shared.ErrAlreadyExists.Code, "Reservation already exists")
		} else if !errors.Is(err, shared.ErrReservationNotFound) {
			return err
		}

		var err error
		item, err = repos.Items().FindByVariantAndWarehouse(ctx, tctx.TenantID, req.VariantID, req.WarehouseID)
		if err != nil {
			return err
		}
		res, err = inventory.NewReservation(req.ReservationID, tctx.TenantID, req.VariantID, req.WarehouseID, req.Quantity, req.ExpiresAtUTC, req.ReferenceNumber, req.Notes, tctx.ActorID)
		if err != nil {
			return err
		}
		if err := item.Reserve(res.CurrentQuantity); err != nil {
			return err
		}
		item.AddDomainEvent(inventory.NewStockLevelChangedEvent(item, nil))

		if err := repos.Reservations().Save(ctx, res); err != nil {
			return err
		}
		if err := repos.Items().SaveWithLock(ctx, item); err != nil {
			return err
		}
		return s.saveOutbox(ctx, repos, append(res.GetDomainEvents(), item.GetDomainEvents()...))
	})
	release()
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, tctx, res, item)
	if s.waker != nil {
		s.waker.WakeUp(res.ExpiresAtUTC)
	}

	response := ToReservationResponse(res)
	s.storeResult(ctx, tctx, &response)
	return &response, nil
}

// ModifyQuantity changes the reserved quantity of an open reservation. A
// positive delta re-checks availability under the item lock; a negative one
// releases the difference.
func (s *ReservationService) ModifyQuantity(ctx context.Context, tctx shared.TenantContext, id shared.ReservationID, newQuantity valueobject.Quantity) (*ReservationResponse, error) {
	return s.mutateReservation(ctx, tctx, id, true, func(res *inventory.Reservation, item *inventory.InventoryItem) error {
		delta, err := res.ModifyQuantity(newQuantity)
		if err != nil {
			return err
		}
		switch {
		case delta.IsPositive():
			if err := item.Reserve(delta); err != nil {
				return err
			}
		case delta.IsNegative():
			if err := item.ReleaseReserved(delta.Abs()); err != nil {
				return err
			}
		default:
			return nil
		}
		item.AddDomainEvent(inventory.NewStockLevelChangedEvent(item, nil))
		return nil
	})
}

// ExtendExpiry pushes the reservation expiry further into the future. The
// reserved counter is untouched.
func (s *ReservationService) ExtendExpiry(ctx context.Context, tctx shared.TenantContext, id shared.ReservationID, newExpiry time.Time) (*ReservationResponse, error) {
	return s.mutateReservation(ctx, tctx, id, false, func(res *inventory.Reservation, _ *inventory.InventoryItem) error {
		return res.ExtendExpiry(newExpiry)
	})
}

// Fulfill consumes quantity of the claim and releases that slice from the
// reserved counter. Stock itself does not move; the caller records the
// matching Sale through the stock service.
func (s *ReservationService) Fulfill(ctx context.Context, tctx shared.TenantContext, id shared.ReservationID, quantity valueobject.Quantity) (*ReservationResponse, error) {
	return s.mutateReservation(ctx, tctx, id, true, func(res *inventory.Reservation, item *inventory.InventoryItem) error {
		released, err := res.Fulfill(quantity)
		if err != nil {
			return err
		}
		if err := item.ReleaseReserved(released); err != nil {
			return err
		}
		item.AddDomainEvent(inventory.NewStockLevelChangedEvent(item, nil))
		return nil
	})
}

// Cancel terminates an open reservation and releases its remainder.
func (s *ReservationService) Cancel(ctx context.Context, tctx shared.TenantContext, id shared.ReservationID, reason string) (*ReservationResponse, error) {
	return s.mutateReservation(ctx, tctx, id, true, func(res *inventory.Reservation, item *inventory.InventoryItem) error {
		released, err := res.Cancel(reason)
		if err != nil {
			return err
		}
		if released.IsZero() {
			return nil
		}
		if err := item.ReleaseReserved(released); err != nil {
			return err
		}
		item.AddDomainEvent(inventory.NewStockLevelChangedEvent(item, nil))
		return nil
	})
}

// Expire transitions an overdue reservation to Expired and releases its
// remainder. The sweeper performs the same transition in the background;
// whichever caller wins, the other observes RESERVATION_ALREADY_USED.
func (s *ReservationService) Expire(ctx context.Context, tctx shared.TenantContext, id shared.ReservationID) (*ReservationResponse, error) {
	return s.mutateReservation(ctx, tctx, id, true, func(res *inventory.Reservation, item *inventory.InventoryItem) error {
		released, err := res.Expire(time.Now().UTC())
		if err != nil {
			return err
		}
		if released.IsZero() {
			return nil
		}
		if err := item.ReleaseReserved(released); err != nil {
			return err
		}
		item.AddDomainEvent(inventory.NewStockLevelChangedEvent(item, nil))
		return nil
	})
}

// GetReservation returns a single reservation.
func (s *ReservationService) GetReservation(ctx context.Context, tctx shared.TenantContext, id shared.ReservationID) (*ReservationResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	res, err := s.reservations.FindByID(ctx, tctx.TenantID, id)
	if err != nil {
		return nil, err
	}
	response := ToReservationResponse(res)
	return &response, nil
}

// ListOpenByItem returns the non-terminal reservations holding stock of one
// (variant, warehouse) combination.
func (s *ReservationService) ListOpenByItem(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID, warehouseID shared.WarehouseID) ([]ReservationResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	if err := validateItemKey(variantID, warehouseID); err != nil {
		return nil, err
	}
	open, err := s.reservations.FindOpenByItem(ctx, tctx.TenantID, variantID, warehouseID)
	if err != nil {
		return nil, err
	}
	return ToReservationResponses(open), nil
}

// ListByReference returns all reservations created under a reference number.
func (s *ReservationService) ListByReference(ctx context.Context, tctx shared.TenantContext, referenceNumber string) ([]ReservationResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	if referenceNumber == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Reference number is required")
	}
	found, err := s.reservations.FindByReference(ctx, tctx.TenantID, referenceNumber)
	if err != nil {
		return nil, err
	}
	return ToReservationResponses(found), nil
}

// mutateReservation runs one lifecycle mutation under the item's per-key
// lock: reload the reservation (and item when touchItem) inside the
// transaction, apply the mutation, persist with optimistic locking. The
// mutation signals a reserved-counter change by enqueueing the item's
// StockLevelChanged event; the item is only saved when that happened.
func (s *ReservationService) mutateReservation(ctx context.Context, tctx shared.TenantContext, id shared.ReservationID, touchItem bool, mutate func(res *inventory.Reservation, item *inventory.InventoryItem) error) (*ReservationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reservation", "mutate")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrReservationID, id.String())

	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	if id.IsZero() {
		return nil, shared.ErrReservationNotFound
	}

	var cached ReservationResponse
	if s.replayResult(ctx, tctx, &cached) {
		return &cached, nil
	}

	// Read once outside the lock to learn the item key, then reload inside
	// the transaction.
	probe, err := s.reservations.FindByID(ctx, tctx.TenantID, id)
	if err != nil {
		return nil, err
	}
	key := inventory.LockKey(tctx.TenantID, probe.VariantID, probe.WarehouseID)
	release, err := s.locks.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}

	var (
		res  *inventory.Reservation
		item *inventory.InventoryItem
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		res, err = repos.Reservations().FindByID(ctx, tctx.TenantID, id)
		if err != nil {
			return err
		}
		item = nil
		if touchItem {
			item, err = repos.Items().FindByVariantAndWarehouse(ctx, tctx.TenantID, res.VariantID, res.WarehouseID)
			if err != nil {
				return err
			}
		}
		if err := mutate(res, item); err != nil {
			return err
		}
		if err := repos.Reservations().SaveWithLock(ctx, res); err != nil {
			return err
		}
		events := res.GetDomainEvents()
		if item != nil && len(item.GetDomainEvents()) > 0 {
			if err := repos.Items().SaveWithLock(ctx, item); err != nil {
				return err
			}
			events = append(events, item.GetDomainEvents()...)
		}
		return s.saveOutbox(ctx, repos, events)
	})
	release()
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, tctx, res, item)

	response := ToReservationResponse(res)
	s.storeResult(ctx, tctx, &response)
	return &response, nil
}

// afterCommit publishes the pending events and fans out alert evaluation and
// metrics invalidation once the lock is released. item may be nil when the
// reserved counter was untouched.
func (s *ReservationService) afterCommit(ctx context.Context, tctx shared.TenantContext, res *inventory.Reservation, item *inventory.InventoryItem) {
	events := res.GetDomainEvents()
	res.ClearDomainEvents()
	reservedChanged := item != nil && len(item.GetDomainEvents()) > 0
	if reservedChanged {
		events = append(events, item.GetDomainEvents()...)
		item.ClearDomainEvents()
	}

	if s.publisher != nil && len(events) > 0 {
		if err := s.publisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("Failed to publish domain events",
				zap.Int("count", len(events)),
				zap.Error(err),
			)
		}
	}
	if reservedChanged {
		if s.alerts != nil {
			s.alerts.EvaluateStockChange(ctx, item, nil)
		}
		if s.invalidator != nil {
			s.invalidator.InvalidateScopes(tctx.TenantID, res.WarehouseID)
		}
	}
}

func (s *ReservationService) saveOutbox(ctx context.Context, repos TransactionalRepositories, events []shared.DomainEvent) error {
	if s.outbox == nil || len(events) == 0 {
		return nil
	}
	return s.outbox.SaveEvents(ctx, repos.TxHandle(), events...)
}

func (s *ReservationService) replayResult(ctx context.Context, tctx shared.TenantContext, out any) bool {
	if s.results == nil || tctx.CorrelationID == "" {
		return false
	}
	payload, ok, err := s.results.Get(ctx, tctx.TenantID, tctx.CorrelationID)
	if err != nil {
		s.logger.Warn("Failed to read command result store",
			zap.String("correlation_id", tctx.CorrelationID),
			zap.Error(err),
		)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		s.logger.Warn("Stored command result is not decodable",
			zap.String("correlation_id", tctx.CorrelationID),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (s *ReservationService) storeResult(ctx context.Context, tctx shared.TenantContext, result any) {
	if s.results == nil || tctx.CorrelationID == "" {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("Failed to encode command result",
			zap.String("correlation_id", tctx.CorrelationID),
			zap.Error(err),
		)
		return
	}
	if err := s.results.Save(ctx, tctx.TenantID, tctx.CorrelationID, payload, s.resultTTL); err != nil {
		s.logger.Warn("Failed to store command result",
			zap.String("correlation_id", tctx.CorrelationID),
			zap.Error(err),
		)
	}
}
