package catalog

import (
	"context"
	"strings"

	"github.com/ims/engine/internal/domain/catalog"
	"github.com/ims/engine/internal/domain/shared"
	"go.uber.org/zap"
)

// ProductService manages the product registry. Every mutation runs in a
// transaction scope so the row change and its outbox entries commit
// together; deleting a product cascades the deletion marker to the
// product's live variants in the same transaction.
type ProductService struct {
	products  catalog.ProductRepository
	variants  catalog.VariantRepository
	scope     TransactionScope
	logger    *zap.Logger
	publisher shared.EventPublisher
	outbox    shared.OutboxEventSaver
}

// NewProductService creates a new ProductService.
func NewProductService(
	products catalog.ProductRepository,
	variants catalog.VariantRepository,
	scope TransactionScope,
	logger *zap.Logger,
) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		products: products,
		variants: variants,
		scope:    scope,
		logger:   logger,
	}
}

// SetEventPublisher sets the publisher for post-commit in-process delivery.
func (s *ProductService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetOutboxSaver sets the outbox saver recording events in the command
// transaction for durable external delivery.
func (s *ProductService) SetOutboxSaver(outbox shared.OutboxEventSaver) {
	s.outbox = outbox
}

// Create registers a new product. The product starts active.
func (s *ProductService) Create(ctx context.Context, tctx shared.TenantContext, req CreateProductRequest) (*ProductResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}

	product, err := catalog.NewProduct(tctx.TenantID, req.Name)
	if err != nil {
		return nil, err
	}
	product.Description = strings.TrimSpace(req.Description)

	var events []shared.DomainEvent
	err = s.runTx(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Products().Save(ctx, product); err != nil {
			return err
		}
		events = product.GetDomainEvents()
		return s.saveOutbox(ctx, repos, events)
	})
	if err != nil {
		return nil, err
	}
	product.ClearDomainEvents()
	s.publish(ctx, events)

	response := ToProductResponse(product)
	return &response, nil
}

// Update replaces the product's name and description.
func (s *ProductService) Update(ctx context.Context, tctx shared.TenantContext, productID shared.ProductID, req UpdateProductRequest) (*ProductResponse, error) {
	return s.mutateProduct(ctx, tctx, productID, func(p *catalog.Product) error {
		return p.Update(req.Name, req.Description)
	})
}

// SetStatus transitions the product between active, inactive and
// discontinued.
func (s *ProductService) SetStatus(ctx context.Context, tctx shared.TenantContext, productID shared.ProductID, status catalog.ProductStatus) (*ProductResponse, error) {
	return s.mutateProduct(ctx, tctx, productID, func(p *catalog.Product) error {
		return p.SetStatus(status)
	})
}

// Delete soft-deletes the product and all its live variants in one
// transaction. Stock rows are untouched; the ledger keeps its history.
func (s *ProductService) Delete(ctx context.Context, tctx shared.TenantContext, productID shared.ProductID) error {
	if err := tctx.Validate(); err != nil {
		return err
	}

	var events []shared.DomainEvent
	err := s.runTx(ctx, func(repos TransactionalRepositories) error {
		events = events[:0]

		product, err := repos.Products().FindByID(ctx, tctx.TenantID, productID)
		if err != nil {
			return err
		}
		if err := product.Delete(tctx.ActorID); err != nil {
			return err
		}

		variants, err := repos.Variants().FindByProduct(ctx, tctx.TenantID, productID)
		if err != nil {
			return err
		}
		for _, v := range variants {
			if err := v.Delete(tctx.ActorID); err != nil {
				return err
			}
		}

		if err := repos.Products().Save(ctx, product); err != nil {
			return err
		}
		if err := repos.Variants().SaveAll(ctx, variants); err != nil {
			return err
		}

		events = append(events, product.GetDomainEvents()...)
		product.ClearDomainEvents()
		for _, v := range variants {
			events = append(events, v.GetDomainEvents()...)
			v.ClearDomainEvents()
		}
		return s.saveOutbox(ctx, repos, events)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events)
	return nil
}

// Restore clears the product's deletion marker. Variants removed by the
// delete cascade stay deleted and are restored individually.
func (s *ProductService) Restore(ctx context.Context, tctx shared.TenantContext, productID shared.ProductID) (*ProductResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}

	var product *catalog.Product
	var events []shared.DomainEvent
	err := s.runTx(ctx, func(repos TransactionalRepositories) error {
		var err error
		product, err = repos.Products().FindByIDIncludingDeleted(ctx, tctx.TenantID, productID)
		if err != nil {
			return err
		}
		if err := product.Restore(); err != nil {
			return err
		}
		if err := repos.Products().Save(ctx, product); err != nil {
			return err
		}
		events = product.GetDomainEvents()
		return s.saveOutbox(ctx, repos, events)
	})
	if err != nil {
		return nil, err
	}
	product.ClearDomainEvents()
	s.publish(ctx, events)

	response := ToProductResponse(product)
	return &response, nil
}

// Get returns a live product.
func (s *ProductService) Get(ctx context.Context, tctx shared.TenantContext, productID shared.ProductID) (*ProductResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, tctx.TenantID, productID)
	if err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// List returns the tenant's live products.
func (s *ProductService) List(ctx context.Context, tctx shared.TenantContext, filter shared.Filter) (*shared.Paginated[ProductResponse], error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	page, err := s.products.FindAll(ctx, tctx.TenantID, filter)
	if err != nil {
		return nil, err
	}
	return shared.NewPaginated(ToProductResponses(page.Items), page.Total, page.Page, page.PageSize), nil
}

// mutateProduct loads a live product, applies the mutation and saves it,
// recording the resulting events in the same transaction.
func (s *ProductService) mutateProduct(ctx context.Context, tctx shared.TenantContext, productID shared.ProductID, mutate func(p *catalog.Product) error) (*ProductResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}

	var product *catalog.Product
	var events []shared.DomainEvent
	err := s.runTx(ctx, func(repos TransactionalRepositories) error {
		var err error
		product, err = repos.Products().FindByID(ctx, tctx.TenantID, productID)
		if err != nil {
			return err
		}
		if err := mutate(product); err != nil {
			return err
		}
		if err := repos.Products().Save(ctx, product); err != nil {
			return err
		}
		events = product.GetDomainEvents()
		return s.saveOutbox(ctx, repos, events)
	})
	if err != nil {
		return nil, err
	}
	product.ClearDomainEvents()
	s.publish(ctx, events)

	response := ToProductResponse(product)
	return &response, nil
}

// runTx executes the transactional section. Domain errors pass through
// unchanged; anything else surfaces as INFRASTRUCTURE_FAILURE.
func (s *ProductService) runTx(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
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
func (s *ProductService) saveOutbox(ctx context.Context, repos TransactionalRepositories, events []shared.DomainEvent) error {
	if s.outbox == nil || len(events) == 0 {
		return nil
	}
	return s.outbox.SaveEvents(ctx, repos.TxHandle(), events...)
}

// publish delivers committed events in-process. Failures are logged, never
// surfaced into the command result.
func (s *ProductService) publish(ctx context.Context, events []shared.DomainEvent) {
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
