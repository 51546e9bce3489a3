package catalog

import (
	"context"

	"github.com/ims/engine/internal/domain/catalog"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// VariantService manages the variant registry. SKU and base unit are fixed
// at creation; conversions, the display name and the low-stock threshold
// may change afterwards. SKU uniqueness per tenant is enforced by the
// repository on save and surfaces as DUPLICATE_SKU, on restore as well as
// on create.
type VariantService struct {
	variants  catalog.VariantRepository
	scope     TransactionScope
	logger    *zap.Logger
	publisher shared.EventPublisher
	outbox    shared.OutboxEventSaver
}

// NewVariantService creates a new VariantService.
func NewVariantService(variants catalog.VariantRepository, scope TransactionScope, logger *zap.Logger) *VariantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VariantService{
		variants: variants,
		scope:    scope,
		logger:   logger,
	}
}

// SetEventPublisher sets the publisher for post-commit in-process delivery.
func (s *VariantService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetOutboxSaver sets the outbox saver recording events in the command
// transaction for durable external delivery.
func (s *VariantService) SetOutboxSaver(outbox shared.OutboxEventSaver) {
	s.outbox = outbox
}

// Create registers a new variant under a live product.
func (s *VariantService) Create(ctx context.Context, tctx shared.TenantContext, req CreateVariantRequest) (*VariantResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}

	var variant *catalog.Variant
	var events []shared.DomainEvent
	err := s.runTx(ctx, func(repos TransactionalRepositories) error {
		product, err := repos.Products().FindByID(ctx, tctx.TenantID, req.ProductID)
		if err != nil {
			return err
		}

		v, err := catalog.NewVariant(tctx.TenantID, product.ID, req.SKU, req.Name, req.BaseUnit)
		if err != nil {
			return err
		}
		for _, conversion := range req.Conversions {
			if err := v.AddUnitConversion(conversion); err != nil {
				return err
			}
		}
		if req.LowStockThreshold != nil {
			if err := v.SetLowStockThreshold(req.LowStockThreshold); err != nil {
				return err
			}
		}

		if err := repos.Variants().Save(ctx, v); err != nil {
			return err
		}
		variant = v
		events = v.GetDomainEvents()
		return s.saveOutbox(ctx, repos, events)
	})
	if err != nil {
		return nil, err
	}
	variant.ClearDomainEvents()
	s.publish(ctx, events)

	response := ToVariantResponse(variant)
	return &response, nil
}

// Rename changes the variant's display name.
func (s *VariantService) Rename(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID, name string) (*VariantResponse, error) {
	return s.mutateVariant(ctx, tctx, variantID, func(v *catalog.Variant) error {
		return v.Rename(name)
	})
}

// SetLowStockThreshold updates the variant's alert boundary. Nil clears it.
func (s *VariantService) SetLowStockThreshold(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID, threshold *valueobject.Quantity) (*VariantResponse, error) {
	return s.mutateVariant(ctx, tctx, variantID, func(v *catalog.Variant) error {
		return v.SetLowStockThreshold(threshold)
	})
}

// AddConversion registers a unit conversion entry on the variant.
func (s *VariantService) AddConversion(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID, conversion valueobject.UnitConversion) (*VariantResponse, error) {
	return s.mutateVariant(ctx, tctx, variantID, func(v *catalog.Variant) error {
		return v.AddUnitConversion(conversion)
	})
}

// RemoveConversion drops the conversion registered between the two unit
// codes, in either direction.
func (s *VariantService) RemoveConversion(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID, fromCode, toCode string) (*VariantResponse, error) {
	return s.mutateVariant(ctx, tctx, variantID, func(v *catalog.Variant) error {
		return v.RemoveUnitConversion(fromCode, toCode)
	})
}

// Delete soft-deletes the variant. Stock rows are untouched.
func (s *VariantService) Delete(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID) error {
	_, err := s.mutateVariant(ctx, tctx, variantID, func(v *catalog.Variant) error {
		return v.Delete(tctx.ActorID)
	})
	return err
}

// Restore clears the variant's deletion marker. The save re-checks SKU
// uniqueness; a live variant holding the SKU surfaces as DUPLICATE_SKU.
func (s *VariantService) Restore(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID) (*VariantResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}

	var variant *catalog.Variant
	var events []shared.DomainEvent
	err := s.runTx(ctx, func(repos TransactionalRepositories) error {
		var err error
		variant, err = repos.Variants().FindByIDIncludingDeleted(ctx, tctx.TenantID, variantID)
		if err != nil {
			return err
		}
		if err := variant.Restore(); err != nil {
			return err
		}
		if err := repos.Variants().Save(ctx, variant); err != nil {
			return err
		}
		events = variant.GetDomainEvents()
		return s.saveOutbox(ctx, repos, events)
	})
	if err != nil {
		return nil, err
	}
	variant.ClearDomainEvents()
	s.publish(ctx, events)

	response := ToVariantResponse(variant)
	return &response, nil
}

// Get returns a live variant.
func (s *VariantService) Get(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID) (*VariantResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	variant, err := s.variants.FindByID(ctx, tctx.TenantID, variantID)
	if err != nil {
		return nil, err
	}
	response := ToVariantResponse(variant)
	return &response, nil
}

// GetBySKU returns a live variant by its SKU.
func (s *VariantService) GetBySKU(ctx context.Context, tctx shared.TenantContext, sku valueobject.SKU) (*VariantResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	if sku.IsZero() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "SKU is required")
	}
	variant, err := s.variants.FindBySKU(ctx, tctx.TenantID, sku)
	if err != nil {
		return nil, err
	}
	response := ToVariantResponse(variant)
	return &response, nil
}

// ListByProduct returns the product's live variants.
func (s *VariantService) ListByProduct(ctx context.Context, tctx shared.TenantContext, productID shared.ProductID) ([]VariantResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	if productID.IsZero() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Product ID is required")
	}
	variants, err := s.variants.FindByProduct(ctx, tctx.TenantID, productID)
	if err != nil {
		return nil, err
	}
	return ToVariantResponses(variants), nil
}

// List returns the tenant's live variants.
func (s *VariantService) List(ctx context.Context, tctx shared.TenantContext, filter shared.Filter) (*shared.Paginated[VariantResponse], error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	page, err := s.variants.FindAll(ctx, tctx.TenantID, filter)
	if err != nil {
		return nil, err
	}
	return shared.NewPaginated(ToVariantResponses(page.Items), page.Total, page.Page, page.PageSize), nil
}

// ConvertToBase expresses a quantity captured in the named unit in the
// variant's base unit. Ledger commands always take base-unit quantities;
// this is the helper boundaries use to get there.
func (s *VariantService) ConvertToBase(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID, quantity valueobject.Quantity, unitCode string) (*QuantityConversionResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	variant, err := s.variants.FindByID(ctx, tctx.TenantID, variantID)
	if err != nil {
		return nil, err
	}
	converted, err := variant.ConvertToBase(quantity, unitCode)
	if err != nil {
		return nil, err
	}
	return &QuantityConversionResponse{
		VariantID:      variant.ID,
		SKU:            variant.SKU.String(),
		SourceQuantity: quantity,
		SourceUnit:     unitCode,
		ResultQuantity: converted,
		ResultUnit:     variant.BaseUnit.Code(),
	}, nil
}

// ConvertFromBase expresses a base-unit quantity in the named unit.
func (s *VariantService) ConvertFromBase(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID, quantity valueobject.Quantity, unitCode string) (*QuantityConversionResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	variant, err := s.variants.FindByID(ctx, tctx.TenantID, variantID)
	if err != nil {
		return nil, err
	}
	converted, err := variant.ConvertFromBase(quantity, unitCode)
	if err != nil {
		return nil, err
	}
	return &QuantityConversionResponse{
		VariantID:      variant.ID,
		SKU:            variant.SKU.String(),
		SourceQuantity: quantity,
		SourceUnit:     variant.BaseUnit.Code(),
		ResultQuantity: converted,
		ResultUnit:     unitCode,
	}, nil
}

// mutateVariant loads a live variant, applies the mutation and saves it,
// recording the resulting events in the same transaction.
func (s *VariantService) mutateVariant(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID, mutate func(v *catalog.Variant) error) (*VariantResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}

	var variant *catalog.Variant
	var events []shared.DomainEvent
	err := s.runTx(ctx, func(repos TransactionalRepositories) error {
		var err error
		variant, err = repos.Variants().FindByID(ctx, tctx.TenantID, variantID)
		if err != nil {
			return err
		}
		if err := mutate(variant); err != nil {
			return err
		}
		if err := repos.Variants().Save(ctx, variant); err != nil {
			return err
		}
		events = variant.GetDomainEvents()
		return s.saveOutbox(ctx, repos, events)
	})
	if err != nil {
		return nil, err
	}
	variant.ClearDomainEvents()
	s.publish(ctx, events)

	response := ToVariantResponse(variant)
	return &response, nil
}

// runTx executes the transactional section. Domain errors pass through
// unchanged; anything else surfaces as INFRASTRUCTURE_FAILURE.
func (s *VariantService) runTx(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
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
func (s *VariantService) saveOutbox(ctx context.Context, repos TransactionalRepositories, events []shared.DomainEvent) error {
	if s.outbox == nil || len(events) == 0 {
		return nil
	}
	return s.outbox.SaveEvents(ctx, repos.TxHandle(), events...)
}

// publish delivers committed events in-process. Failures are logged, never
// surfaced into the command result.
func (s *VariantService) publish(ctx context.Context, events []shared.DomainEvent) {
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
