package warehouse

import (
	"context"

	"go.uber.org/zap"

	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
	"github.com/ims/engine/internal/domain/warehouse"
)

// Service manages the warehouse registry. Mutations run in a transaction
// scope so the row change and its outbox entries commit together. Deleting
// a warehouse is refused while live stock rows still reference it.
type Service struct {
	warehouses warehouse.Repository
	items      inventory.InventoryItemRepository
	scope      TransactionScope
	logger     *zap.Logger
	publisher  shared.EventPublisher
	outbox     shared.OutboxEventSaver
}

// NewService creates a new warehouse Service. The inventory item repository
// is optional; without it the delete guard is skipped.
func NewService(
	warehouses warehouse.Repository,
	items inventory.InventoryItemRepository,
	scope TransactionScope,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		warehouses: warehouses,
		items:      items,
		scope:      scope,
		logger:     logger,
	}
}

// SetEventPublisher sets the publisher for post-commit in-process delivery.
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetOutboxSaver sets the outbox saver recording events in the command
// transaction for durable external delivery.
func (s *Service) SetOutboxSaver(outbox shared.OutboxEventSaver) {
	s.outbox = outbox
}

// Create registers a new warehouse. The warehouse starts active.
func (s *Service) Create(ctx context.Context, tctx shared.TenantContext, req CreateWarehouseRequest) (*WarehouseResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}

	w, err := warehouse.NewWarehouse(tctx.TenantID, req.Code, req.Name)
	if err != nil {
		return nil, err
	}
	if req.Address != nil {
		address, err := valueobject.NewAddress(
			req.Address.Country, req.Address.Region, req.Address.City,
			req.Address.Street, req.Address.PostalCode,
		)
		if err != nil {
			return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, err.Error())
		}
		w.Address = address
	}

	var events []shared.DomainEvent
	err = s.runTx(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Warehouses().Save(ctx, w); err != nil {
			return err
		}
		events = w.GetDomainEvents()
		return s.saveOutbox(ctx, repos, events)
	})
	if err != nil {
		return nil, err
	}
	w.ClearDomainEvents()
	s.publish(ctx, events)

	response := ToWarehouseResponse(w)
	return &response, nil
}

// Rename replaces the warehouse's display name.
func (s *Service) Rename(ctx context.Context, tctx shared.TenantContext, warehouseID shared.WarehouseID, name string) (*WarehouseResponse, error) {
	return s.mutate(ctx, tctx, warehouseID, func(w *warehouse.Warehouse) error {
		return w.Rename(name)
	})
}

// SetAddress replaces the warehouse's postal address.
func (s *Service) SetAddress(ctx context.Context, tctx shared.TenantContext, warehouseID shared.WarehouseID, input AddressInput) (*WarehouseResponse, error) {
	address, err := valueobject.NewAddress(input.Country, input.Region, input.City, input.Street, input.PostalCode)
	if err != nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, err.Error())
	}
	return s.mutate(ctx, tctx, warehouseID, func(w *warehouse.Warehouse) error {
		w.SetAddress(address)
		return nil
	})
}

// SetStatus transitions the warehouse between active, inactive and closed.
func (s *Service) SetStatus(ctx context.Context, tctx shared.TenantContext, warehouseID shared.WarehouseID, status warehouse.WarehouseStatus) (*WarehouseResponse, error) {
	return s.mutate(ctx, tctx, warehouseID, func(w *warehouse.Warehouse) error {
		return w.SetStatus(status)
	})
}

// Delete soft-deletes the warehouse. Warehouses still holding live stock
// rows cannot be deleted; move or write off the stock first.
func (s *Service) Delete(ctx context.Context, tctx shared.TenantContext, warehouseID shared.WarehouseID) error {
	if err := tctx.Validate(); err != nil {
		return err
	}

	if s.items != nil {
		page, err := s.items.FindByWarehouse(ctx, tctx.TenantID, warehouseID, shared.Filter{Page: 1, PageSize: 1})
		if err != nil {
			return err
		}
		if page.Total > 0 {
			return shared.NewDomainError(shared.ErrInvalidState.Code, "Warehouse still holds inventory items")
		}
	}

	var events []shared.DomainEvent
	err := s.runTx(ctx, func(repos TransactionalRepositories) error {
		w, err := repos.Warehouses().FindByID(ctx, tctx.TenantID, warehouseID)
		if err != nil {
			return err
		}
		if err := w.Delete(tctx.ActorID); err != nil {
			return err
		}
		if err := repos.Warehouses().Save(ctx, w); err != nil {
			return err
		}
		events = w.GetDomainEvents()
		w.ClearDomainEvents()
		return s.saveOutbox(ctx, repos, events)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events)
	return nil
}

// Restore clears the warehouse's deletion marker.
func (s *Service) Restore(ctx context.Context, tctx shared.TenantContext, warehouseID shared.WarehouseID) (*WarehouseResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}

	var w *warehouse.Warehouse
	var events []shared.DomainEvent
	err := s.runTx(ctx, func(repos TransactionalRepositories) error {
		var err error
		w, err = repos.Warehouses().FindByIDIncludingDeleted(ctx, tctx.TenantID, warehouseID)
		if err != nil {
			return err
		}
		if err := w.Restore(); err != nil {
			return err
		}
		if err := repos.Warehouses().Save(ctx, w); err != nil {
			return err
		}
		events = w.GetDomainEvents()
		return s.saveOutbox(ctx, repos, events)
	})
	if err != nil {
		return nil, err
	}
	w.ClearDomainEvents()
	s.publish(ctx, events)

	response := ToWarehouseResponse(w)
	return &response, nil
}

// Get returns a live warehouse.
func (s *Service) Get(ctx context.Context, tctx shared.TenantContext, warehouseID shared.WarehouseID) (*WarehouseResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	w, err := s.warehouses.FindByID(ctx, tctx.TenantID, warehouseID)
	if err != nil {
		return nil, err
	}
	response := ToWarehouseResponse(w)
	return &response, nil
}

// GetByCode returns a live warehouse by its code.
func (s *Service) GetByCode(ctx context.Context, tctx shared.TenantContext, code string) (*WarehouseResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	w, err := s.warehouses.FindByCode(ctx, tctx.TenantID, code)
	if err != nil {
		return nil, err
	}
	response := ToWarehouseResponse(w)
	return &response, nil
}

// List returns the tenant's live warehouses.
func (s *Service) List(ctx context.Context, tctx shared.TenantContext, filter shared.Filter) (*shared.Paginated[WarehouseResponse], error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	page, err := s.warehouses.FindAll(ctx, tctx.TenantID, filter)
	if err != nil {
		return nil, err
	}
	return shared.NewPaginated(ToWarehouseResponses(page.Items), page.Total, page.Page, page.PageSize), nil
}

// mutate loads a live warehouse, applies the mutation and saves it,
// recording the resulting events in the same transaction.
func (s *Service) mutate(ctx context.Context, tctx shared.TenantContext, warehouseID shared.WarehouseID, fn func(w *warehouse.Warehouse) error) (*WarehouseResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}

	var w *warehouse.Warehouse
	var events []shared.DomainEvent
	err := s.runTx(ctx, func(repos TransactionalRepositories) error {
		var err error
		w, err = repos.Warehouses().FindByID(ctx, tctx.TenantID, warehouseID)
		if err != nil {
			return err
		}
		if err := fn(w); err != nil {
			return err
		}
		if err := repos.Warehouses().Save(ctx, w); err != nil {
			return err
		}
		events = w.GetDomainEvents()
		return s.saveOutbox(ctx, repos, events)
	})
	if err != nil {
		return nil, err
	}
	w.ClearDomainEvents()
	s.publish(ctx, events)

	response := ToWarehouseResponse(w)
	return &response, nil
}

// runTx executes the transactional section. Domain errors pass through
// unchanged; anything else surfaces as INFRASTRUCTURE_FAILURE.
func (s *Service) runTx(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	err := s.scope.Execute(ctx, fn)
	if err == nil {
		return nil
	}
	if _, ok := shared.AsDomainError(err); ok {
		return err
	}
	return shared.WrapInfrastructure(err)
}

// saveOutbox records the pending domain events in the command transaction.
func (s *Service) saveOutbox(ctx context.Context, repos TransactionalRepositories, events []shared.DomainEvent) error {
	if s.outbox == nil || len(events) == 0 {
		return nil
	}
	return s.outbox.SaveEvents(ctx, repos.TxHandle(), events...)
}

// publish delivers committed events in-process. Failures are logged, never
// surfaced into the command result.
func (s *Service) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish domain events",
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}
