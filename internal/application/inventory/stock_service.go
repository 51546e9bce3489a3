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

const (
	// transientAttempts bounds retries of the transactional section for
	// conflicts and transport failures.
	transientAttempts = 3
	// transientBackoff is the base delay between retry attempts.
	transientBackoff = 25 * time.Millisecond
)

// ItemLocker serializes writers on inventory item keys. Acquire blocks until
// every key is held or ctx is done; the returned release frees them all.
// Multi-key acquisition is ordered internally so concurrent callers cannot
// deadlock.
type ItemLocker interface {
	Acquire(ctx context.Context, keys ...string) (release func(), err error)
}

// MetricsInvalidator receives cache invalidation hints after committed stock
// or reservation operations. Implementations must not block the caller.
type MetricsInvalidator interface {
	InvalidateScopes(tenantID shared.TenantID, warehouseIDs ...shared.WarehouseID)
}

// AlertEvaluator inspects the post-state of a committed operation and raises
// derived alerts. Called outside the item lock; failures are logged by the
// implementation, never propagated into the command result.
type AlertEvaluator interface {
	EvaluateStockChange(ctx context.Context, item *inventory.InventoryItem, movement *inventory.StockMovement)
}

// StockService executes the ledger operations: every successful command
// appends one immutable movement (two for transfers) and updates the stock
// projection in the same transaction, under the item's per-key lock.
type StockService struct {
	items       inventory.InventoryItemRepository
	movements   inventory.StockMovementRepository
	scope       TransactionScope
	locks       ItemLocker
	logger      *zap.Logger
	publisher   shared.EventPublisher
	outbox      shared.OutboxEventSaver
	alerts      AlertEvaluator
	invalidator MetricsInvalidator
	results     shared.CommandResultStore
	resultTTL   time.Duration
}

// NewStockService creates a new StockService.
func NewStockService(
	items inventory.InventoryItemRepository,
	movements inventory.StockMovementRepository,
	scope TransactionScope,
	locks ItemLocker,
	logger *zap.Logger,
) *StockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockService{
		items:     items,
		movements: movements,
		scope:     scope,
		locks:     locks,
		logger:    logger,
		resultTTL: shared.DefaultIdempotencyConfig().TTL,
	}
}

// SetEventPublisher sets the publisher for post-commit in-process delivery.
func (s *StockService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetOutboxSaver sets the outbox saver recording events in the command
// transaction for durable external delivery.
func (s *StockService) SetOutboxSaver(outbox shared.OutboxEventSaver) {
	s.outbox = outbox
}

// SetAlertEvaluator sets the post-commit alert detector.
func (s *StockService) SetAlertEvaluator(alerts AlertEvaluator) {
	s.alerts = alerts
}

// SetMetricsInvalidator sets the dashboard cache invalidation hook.
func (s *StockService) SetMetricsInvalidator(invalidator MetricsInvalidator) {
	s.invalidator = invalidator
}

// SetResultStore enables correlation-ID idempotency. A repeated command with
// the same (tenant, correlation ID) returns the stored result without side
// effects. ttl <= 0 keeps the default retention.
func (s *StockService) SetResultStore(store shared.CommandResultStore, ttl time.Duration) {
	s.results = store
	if ttl > 0 {
		s.resultTTL = ttl
	}
}

// OpeningBalance records the first ledger entry of an item. The item row is
// created when absent; any pre-existing movement rejects the command with
// OPENING_BALANCE_EXISTS. Quantity must be non-negative.
func (s *StockService) OpeningBalance(ctx context.Context, tctx shared.TenantContext, req StockOperationRequest) (*StockOperationResult, error) {
	if req.Quantity.IsNegative() {
		return nil, shared.ErrInvalidQuantity
	}
	return s.executeLedger(ctx, tctx, req.VariantID, req.WarehouseID, ledgerCommand{
		kind:            inventory.MovementKindOpeningBalance,
		quantity:        req.Quantity,
		reason:          req.Reason,
		referenceNumber: req.ReferenceNumber,
		metadata:        req.Metadata,
		createIfMissing: true,
		guard: func(ctx context.Context, repos TransactionalRepositories, item *inventory.InventoryItem) error {
			count, err := repos.Movements().CountByItem(ctx, tctx.TenantID, item.ID)
			if err != nil {
				return err
			}
			if count > 0 {
				return shared.ErrOpeningBalanceExists
			}
			return nil
		},
	})
}

// Purchase records inbound stock from a supplier.
func (s *StockService) Purchase(ctx context.Context, tctx shared.TenantContext, req StockOperationRequest) (*StockOperationResult, error) {
	if !req.Quantity.IsPositive() {
		return nil, shared.ErrInvalidQuantity
	}
	return s.executeLedger(ctx, tctx, req.VariantID, req.WarehouseID, ledgerCommand{
		kind:            inventory.MovementKindPurchase,
		quantity:        req.Quantity,
		reason:          req.Reason,
		referenceNumber: req.ReferenceNumber,
		metadata:        req.Metadata,
	})
}

// Sale records outbound stock. Unless the item allows negative stock, the
// available balance must cover the quantity or the command fails with
// INSUFFICIENT_STOCK.
func (s *StockService) Sale(ctx context.Context, tctx shared.TenantContext, req StockOperationRequest) (*StockOperationResult, error) {
	if !req.Quantity.IsPositive() {
		return nil, shared.ErrInvalidQuantity
	}
	return s.executeLedger(ctx, tctx, req.VariantID, req.WarehouseID, ledgerCommand{
		kind:            inventory.MovementKindSale,
		quantity:        req.Quantity.Neg(),
		reason:          req.Reason,
		referenceNumber: req.ReferenceNumber,
		metadata:        req.Metadata,
		guard: func(_ context.Context, _ TransactionalRepositories, item *inventory.InventoryItem) error {
			if !item.CanFulfill(req.Quantity) {
				return shared.ErrInsufficientStock
			}
			return nil
		},
	})
}

// Refund returns previously sold stock. The refunded total recorded under
// the original sale reference, including this command, must not exceed the
// quantity sold under that reference.
func (s *StockService) Refund(ctx context.Context, tctx shared.TenantContext, req RefundRequest) (*StockOperationResult, error) {
	if !req.Quantity.IsPositive() {
		return nil, shared.ErrInvalidQuantity
	}
	if req.OriginalSaleReference == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Original sale reference is required")
	}
	metadata := shared.RefundMetadata(req.OriginalSaleReference)
	if req.Metadata != nil {
		metadata = req.Metadata.Merge(metadata)
	}
	return s.executeLedger(ctx, tctx, req.VariantID, req.WarehouseID, ledgerCommand{
		kind:            inventory.MovementKindRefund,
		quantity:        req.Quantity,
		reason:          req.Reason,
		referenceNumber: req.OriginalSaleReference,
		metadata:        metadata,
		guard: func(ctx context.Context, repos TransactionalRepositories, item *inventory.InventoryItem) error {
			sold, err := repos.Movements().SumByKindAndReference(ctx, tctx.TenantID, inventory.MovementKindSale, req.OriginalSaleReference)
			if err != nil {
				return err
			}
			refunded, err := repos.Movements().SumByKindAndReference(ctx, tctx.TenantID, inventory.MovementKindRefund, req.OriginalSaleReference)
			if err != nil {
				return err
			}
			// Sale quantities are stored negative; refunds positive.
			if refunded.Add(req.Quantity).GreaterThan(sold.Abs()) {
				return shared.ErrRefundExceedsSale
			}
			return nil
		},
	})
}

// Adjustment records a signed correction. The quantity must be non-zero and,
// unless negative stock is allowed, must not drive the balance negative.
func (s *StockService) Adjustment(ctx context.Context, tctx shared.TenantContext, req AdjustmentRequest) (*StockOperationResult, error) {
	if req.Quantity.IsZero() {
		return nil, shared.ErrInvalidQuantity
	}
	return s.executeLedger(ctx, tctx, req.VariantID, req.WarehouseID, ledgerCommand{
		kind:            inventory.MovementKindAdjustment,
		quantity:        req.Quantity,
		reason:          req.Reason,
		referenceNumber: req.ReferenceNumber,
		metadata:        req.Metadata,
	})
}

// WriteOff removes damaged or lost stock.
func (s *StockService) WriteOff(ctx context.Context, tctx shared.TenantContext, req StockOperationRequest) (*StockOperationResult, error) {
	if !req.Quantity.IsPositive() {
		return nil, shared.ErrInvalidQuantity
	}
	return s.executeLedger(ctx, tctx, req.VariantID, req.WarehouseID, ledgerCommand{
		kind:            inventory.MovementKindWriteOff,
		quantity:        req.Quantity.Neg(),
		reason:          req.Reason,
		referenceNumber: req.ReferenceNumber,
		metadata:        req.Metadata,
	})
}

// Transfer moves stock between two warehouses atomically: a TransferOut leg
// at the source and a TransferIn leg at the destination commit in one
// transaction, sharing the given reference number. The destination item is
// auto-created when absent, copying the source's negative-stock policy and
// expiry date. Both item keys are locked for the duration.
func (s *StockService) Transfer(ctx context.Context, tctx shared.TenantContext, req TransferRequest) (*TransferResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock", "transfer")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrVariantID, req.VariantID.String(),
		telemetry.SpanAttrQuantity, req.Quantity.String(),
	)

	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	if req.VariantID.IsZero() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Variant ID is required")
	}
	if req.SourceWarehouseID.IsZero() || req.DestinationWarehouseID.IsZero() {
		return nil, shared.ErrInvalidWarehouseTransfer
	}
	if req.SourceWarehouseID == req.DestinationWarehouseID {
		return nil, shared.ErrInvalidWarehouseTransfer
	}
	if !req.Quantity.IsPositive() {
		return nil, shared.ErrInvalidQuantity
	}
	if req.ReferenceNumber == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Transfer reference number is required")
	}

	var cached TransferResult
	if s.replayResult(ctx, tctx, &cached) {
		return &cached, nil
	}

	sourceKey := inventory.LockKey(tctx.TenantID, req.VariantID, req.SourceWarehouseID)
	destKey := inventory.LockKey(tctx.TenantID, req.VariantID, req.DestinationWarehouseID)
	release, err := s.locks.Acquire(ctx, sourceKey, destKey)
	if err != nil {
		return nil, err
	}

	var (
		source, dest *inventory.InventoryItem
		out, in      *inventory.StockMovement
		destCreated  bool
	)
	err = s.runTx(ctx, tctx, func(repos TransactionalRepositories) error {
		destCreated = false
		var err error
		source, err = repos.Items().FindByVariantAndWarehouse(ctx, tctx.TenantID, req.VariantID, req.SourceWarehouseID)
		if err != nil {
			return err
		}
		if !source.CanFulfill(req.Quantity) {
			return shared.ErrInsufficientStock
		}

		dest, err = repos.Items().FindByVariantAndWarehouse(ctx, tctx.TenantID, req.VariantID, req.DestinationWarehouseID)
		if err != nil {
			if !errors.Is(err, shared.ErrInventoryNotFound) {
				return err
			}
			dest, err = inventory.NewInventoryItem(tctx.TenantID, req.VariantID, req.DestinationWarehouseID)
			if err != nil {
				return err
			}
			dest.AllowNegativeStock = source.AllowNegativeStock
			dest.ExpiryDate = source.ExpiryDate
			destCreated = true
		}

		if err := source.ApplyDelta(req.Quantity.Neg()); err != nil {
			return err
		}
		if err := dest.ApplyDelta(req.Quantity); err != nil {
			return err
		}

		metadata := shared.TransferMetadata(req.SourceWarehouseID, req.DestinationWarehouseID, req.ReferenceNumber)
		out, err = inventory.NewStockMovement(source, inventory.MovementKindTransferOut, req.Quantity.Neg(), source.TotalStock, tctx.ActorID, req.Reason, req.ReferenceNumber, metadata, 0)
		if err != nil {
			return err
		}
		in, err = inventory.NewStockMovement(dest, inventory.MovementKindTransferIn, req.Quantity, dest.TotalStock, tctx.ActorID, req.Reason, req.ReferenceNumber, metadata, 1)
		if err != nil {
			return err
		}
		source.AddDomainEvent(inventory.NewStockLevelChangedEvent(source, out))
		dest.AddDomainEvent(inventory.NewStockLevelChangedEvent(dest, in))

		if err := repos.Items().SaveWithLock(ctx, source); err != nil {
			return err
		}
		if destCreated {
			if err := repos.Items().Save(ctx, dest); err != nil {
				return err
			}
		} else {
			if err := repos.Items().SaveWithLock(ctx, dest); err != nil {
				return err
			}
		}
		if err := repos.Movements().Append(ctx, out, in); err != nil {
			return err
		}
		return s.saveOutbox(ctx, repos, append(source.GetDomainEvents(), dest.GetDomainEvents()...))
	})
	release()
	if err != nil {
		return nil, err
	}

	events := append(source.GetDomainEvents(), dest.GetDomainEvents()...)
	source.ClearDomainEvents()
	dest.ClearDomainEvents()
	s.afterCommit(ctx, tctx, events, []alertProbe{{source, out}, {dest, in}}, req.SourceWarehouseID, req.DestinationWarehouseID)

	result := &TransferResult{
		Source:             ToInventoryItemResponse(source),
		Destination:        ToInventoryItemResponse(dest),
		OutboundMovement:   ToStockMovementResponse(out),
		InboundMovement:    ToStockMovementResponse(in),
		DestinationCreated: destCreated,
	}
	s.storeResult(ctx, tctx, result)
	return result, nil
}

// CheckAvailability reports whether available stock covers the requested
// quantity. Reads the committed snapshot without taking the item lock.
func (s *StockService) CheckAvailability(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID, warehouseID shared.WarehouseID, quantity valueobject.Quantity) (*AvailabilityResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	if err := validateItemKey(variantID, warehouseID); err != nil {
		return nil, err
	}

	item, err := s.items.FindByVariantAndWarehouse(ctx, tctx.TenantID, variantID, warehouseID)
	if err != nil {
		return nil, err
	}
	return &AvailabilityResponse{
		VariantID:      variantID,
		WarehouseID:    warehouseID,
		TotalStock:     item.TotalStock,
		ReservedStock:  item.ReservedStock,
		AvailableStock: item.Available(),
		Requested:      quantity,
		CanFulfill:     item.CanFulfill(quantity),
	}, nil
}

// SetNegativeStockPolicy toggles whether the item may carry negative stock.
func (s *StockService) SetNegativeStockPolicy(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID, warehouseID shared.WarehouseID, allow bool) (*InventoryItemResponse, error) {
	return s.mutateItem(ctx, tctx, variantID, warehouseID, func(item *inventory.InventoryItem) error {
		return item.SetNegativeStockPolicy(allow)
	})
}

// SetExpiryDate sets or clears the item's stock expiry date.
func (s *StockService) SetExpiryDate(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID, warehouseID shared.WarehouseID, expiry *time.Time) (*InventoryItemResponse, error) {
	return s.mutateItem(ctx, tctx, variantID, warehouseID, func(item *inventory.InventoryItem) error {
		return item.SetExpiryDate(expiry)
	})
}

// ledgerCommand is the prepared form of a single-item ledger operation: a
// signed quantity plus the optional in-transaction guard the operation runs
// after loading the item.
type ledgerCommand struct {
	kind            inventory.MovementKind
	quantity        valueobject.Quantity
	reason          string
	referenceNumber string
	metadata        shared.Metadata
	createIfMissing bool
	guard           func(ctx context.Context, repos TransactionalRepositories, item *inventory.InventoryItem) error
}

// executeLedger runs one single-item ledger operation end to end: lock the
// item key, load (or create) the projection inside a transaction, run the
// guard, apply the delta, append the movement, record the outbox entries,
// commit, then publish and fan out post-commit effects after the lock is
// released.
func (s *StockService) executeLedger(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID, warehouseID shared.WarehouseID, cmd ledgerCommand) (*StockOperationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock", string(cmd.kind))
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrVariantID, variantID.String(),
		telemetry.SpanAttrWarehouseID, warehouseID.String(),
		telemetry.SpanAttrQuantity, cmd.quantity.String(),
	)

	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	if err := validateItemKey(variantID, warehouseID); err != nil {
		return nil, err
	}

	var cached StockOperationResult
	if s.replayResult(ctx, tctx, &cached) {
		return &cached, nil
	}

	key := inventory.LockKey(tctx.TenantID, variantID, warehouseID)
	release, err := s.locks.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}

	var (
		item     *inventory.InventoryItem
		movement *inventory.StockMovement
	)
	err = s.runTx(ctx, tctx, func(repos TransactionalRepositories) error {
		var err error
		created := false
		item, err = repos.Items().FindByVariantAndWarehouse(ctx, tctx.TenantID, variantID, warehouseID)
		if err != nil {
			if !cmd.createIfMissing || !errors.Is(err, shared.ErrInventoryNotFound) {
				return err
			}
			item, err = inventory.NewInventoryItem(tctx.TenantID, variantID, warehouseID)
			if err != nil {
				return err
			}
			created = true
		}
		if cmd.guard != nil {
			if err := cmd.guard(ctx, repos, item); err != nil {
				return err
			}
		}
		if err := item.ApplyDelta(cmd.quantity); err != nil {
			return err
		}
		movement, err = inventory.NewStockMovement(item, cmd.kind, cmd.quantity, item.TotalStock, tctx.ActorID, cmd.reason, cmd.referenceNumber, cmd.metadata, 0)
		if err != nil {
			return err
		}
		item.AddDomainEvent(inventory.NewStockLevelChangedEvent(item, movement))

		if created {
			if err := repos.Items().Save(ctx, item); err != nil {
				return err
			}
		} else {
			if err := repos.Items().SaveWithLock(ctx, item); err != nil {
				return err
			}
		}
		if err := repos.Movements().Append(ctx, movement); err != nil {
			return err
		}
		return s.saveOutbox(ctx, repos, item.GetDomainEvents())
	})
	release()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)

	events := item.GetDomainEvents()
	item.ClearDomainEvents()
	s.afterCommit(ctx, tctx, events, []alertProbe{{item, movement}}, warehouseID)

	result := &StockOperationResult{
		Item:     ToInventoryItemResponse(item),
		Movement: ToStockMovementResponse(movement),
	}
	s.storeResult(ctx, tctx, result)
	return result, nil
}

// mutateItem applies a small projection mutation (no ledger entry) under the
// item lock with optimistic persistence.
func (s *StockService) mutateItem(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID, warehouseID shared.WarehouseID, mutate func(item *inventory.InventoryItem) error) (*InventoryItemResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	if err := validateItemKey(variantID, warehouseID); err != nil {
		return nil, err
	}

	key := inventory.LockKey(tctx.TenantID, variantID, warehouseID)
	release, err := s.locks.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}

	var item *inventory.InventoryItem
	err = s.runTx(ctx, tctx, func(repos TransactionalRepositories) error {
		var err error
		item, err = repos.Items().FindByVariantAndWarehouse(ctx, tctx.TenantID, variantID, warehouseID)
		if err != nil {
			return err
		}
		if err := mutate(item); err != nil {
			return err
		}
		return repos.Items().SaveWithLock(ctx, item)
	})
	release()
	if err != nil {
		return nil, err
	}

	response := ToInventoryItemResponse(item)
	return &response, nil
}

// runTx executes the transactional section, retrying concurrency conflicts
// and, when the command carries a correlation ID, transport failures. The
// closure reloads all state on each attempt. Exhausted transport failures
// surface as INFRASTRUCTURE_FAILURE.
func (s *StockService) runTx(ctx context.Context, tctx shared.TenantContext, fn func(repos TransactionalRepositories) error) error {
	var err error
	for attempt := 1; attempt <= transientAttempts; attempt++ {
		err = s.scope.Execute(ctx, fn)
		if err == nil {
			return nil
		}
		conflict := errors.Is(err, shared.ErrConcurrencyConflict)
		if _, isDomain := shared.AsDomainError(err); isDomain && !conflict {
			return err
		}
		// A transport failure may have been a lost commit ack; replaying is
		// only safe when the command is idempotent by correlation ID.
		if !conflict && tctx.CorrelationID == "" {
			break
		}
		if attempt == transientAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * transientBackoff):
		}
	}
	if errors.Is(err, shared.ErrConcurrencyConflict) {
		return err
	}
	return shared.WrapInfrastructure(err)
}

// saveOutbox records the pending domain events in the command transaction.
func (s *StockService) saveOutbox(ctx context.Context, repos TransactionalRepositories, events []shared.DomainEvent) error {
	if s.outbox == nil || len(events) == 0 {
		return nil
	}
	return s.outbox.SaveEvents(ctx, repos.TxHandle(), events...)
}

// alertProbe pairs a committed post-state with the movement that produced it
// for the alert detector.
type alertProbe struct {
	item     *inventory.InventoryItem
	movement *inventory.StockMovement
}

// afterCommit fans out the post-commit effects: in-process event delivery,
// alert evaluation and metrics invalidation. Runs after the item lock is
// released; failures are logged, never surfaced into the command result.
func (s *StockService) afterCommit(ctx context.Context, tctx shared.TenantContext, events []shared.DomainEvent, probes []alertProbe, warehouseIDs ...shared.WarehouseID) {
	if s.publisher != nil && len(events) > 0 {
		if err := s.publisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("Failed to publish domain events",
				zap.Int("count", len(events)),
				zap.Error(err),
			)
		}
	}
	if s.alerts != nil {
		for _, p := range probes {
			s.alerts.EvaluateStockChange(ctx, p.item, p.movement)
		}
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateScopes(tctx.TenantID, warehouseIDs...)
	}
}

// replayResult loads a previously stored outcome for the command's
// correlation ID into out. Store failures are treated as a miss.
func (s *StockService) replayResult(ctx context.Context, tctx shared.TenantContext, out any) bool {
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
	s.logger.Debug("Replayed stored command result",
		zap.String("correlation_id", tctx.CorrelationID),
	)
	return true
}

// storeResult persists the command outcome for later replays.
func (s *StockService) storeResult(ctx context.Context, tctx shared.TenantContext, result any) {
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

func validateItemKey(variantID shared.VariantID, warehouseID shared.WarehouseID) error {
	if variantID.IsZero() {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Variant ID is required")
	}
	if warehouseID.IsZero() {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Warehouse ID is required")
	}
	return nil
}
