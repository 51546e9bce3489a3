package inventory

import (
	"context"
	"time"

	"github.com/ims/engine/internal/domain/catalog"
	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

// QueryService serves the inventory read side: projection lookups, ledger
// history and the derived low-stock and expiring listings. All reads come
// from committed state; no locks are taken.
type QueryService struct {
	items     inventory.InventoryItemRepository
	movements inventory.StockMovementRepository
	variants  catalog.VariantRepository
}

// NewQueryService creates a new QueryService. variants enriches low-stock
// rows with their thresholds and may be nil.
func NewQueryService(items inventory.InventoryItemRepository, movements inventory.StockMovementRepository, variants catalog.VariantRepository) *QueryService {
	return &QueryService{
		items:     items,
		movements: movements,
		variants:  variants,
	}
}

// GetItem returns the projection row of a (variant, warehouse) combination.
func (s *QueryService) GetItem(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID, warehouseID shared.WarehouseID) (*InventoryItemResponse, error) {
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
	response := ToInventoryItemResponse(item)
	return &response, nil
}

// ListByWarehouse pages through the projection rows of one warehouse.
func (s *QueryService) ListByWarehouse(ctx context.Context, tctx shared.TenantContext, warehouseID shared.WarehouseID, filter shared.Filter) (*shared.Paginated[InventoryItemResponse], error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	if warehouseID.IsZero() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Warehouse ID is required")
	}
	page, err := s.items.FindByWarehouse(ctx, tctx.TenantID, warehouseID, filter)
	if err != nil {
		return nil, err
	}
	responses := make([]InventoryItemResponse, 0, len(page.Items))
	for _, item := range page.Items {
		responses = append(responses, ToInventoryItemResponse(item))
	}
	return shared.NewPaginated(responses, page.Total, page.Page, page.PageSize), nil
}

// ListByVariant returns the projection rows of one variant across all
// warehouses.
func (s *QueryService) ListByVariant(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID) ([]InventoryItemResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	if variantID.IsZero() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Variant ID is required")
	}
	items, err := s.items.FindByVariant(ctx, tctx.TenantID, variantID)
	if err != nil {
		return nil, err
	}
	responses := make([]InventoryItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, ToInventoryItemResponse(item))
	}
	return responses, nil
}

// MovementHistory pages through one item's ledger, newest first, with
// optional kind, actor, reference and time-range filters.
func (s *QueryService) MovementHistory(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID, warehouseID shared.WarehouseID, filter MovementHistoryFilter) (*shared.Paginated[StockMovementResponse], error) {
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
	page, err := s.movements.FindByItem(ctx, tctx.TenantID, item.ID, filter.toDomain())
	if err != nil {
		return nil, err
	}
	return shared.NewPaginated(ToStockMovementResponses(page.Items), page.Total, page.Page, page.PageSize), nil
}

// MovementsByReference returns every ledger entry recorded under a reference
// number, for example both legs of a transfer.
func (s *QueryService) MovementsByReference(ctx context.Context, tctx shared.TenantContext, referenceNumber string) ([]StockMovementResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	if referenceNumber == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Reference number is required")
	}
	movements, err := s.movements.FindByReference(ctx, tctx.TenantID, referenceNumber)
	if err != nil {
		return nil, err
	}
	return ToStockMovementResponses(movements), nil
}

// LowStock lists items at or below their variant threshold, optionally
// limited to one warehouse.
func (s *QueryService) LowStock(ctx context.Context, tctx shared.TenantContext, warehouseID *shared.WarehouseID, limit int) ([]LowStockItem, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	items, err := s.items.FindLowStock(ctx, tctx.TenantID, warehouseID, limit)
	if err != nil {
		return nil, err
	}

	thresholds := make(map[shared.VariantID]valueobject.Quantity, len(items))
	result := make([]LowStockItem, 0, len(items))
	for _, item := range items {
		threshold, ok := thresholds[item.VariantID]
		if !ok {
			threshold = s.variantThreshold(ctx, tctx.TenantID, item.VariantID)
			thresholds[item.VariantID] = threshold
		}
		result = append(result, LowStockItem{
			Item:      ToInventoryItemResponse(item),
			Threshold: threshold,
		})
	}
	return result, nil
}

// ExpiringStock lists items whose expiry date falls within the window.
func (s *QueryService) ExpiringStock(ctx context.Context, tctx shared.TenantContext, window time.Duration, limit int) ([]InventoryItemResponse, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}
	if window <= 0 {
		window = DefaultItemExpiryWarnWindow
	}
	if limit <= 0 {
		limit = 50
	}
	items, err := s.items.FindExpiring(ctx, tctx.TenantID, time.Now().UTC(), window, limit)
	if err != nil {
		return nil, err
	}
	responses := make([]InventoryItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, ToInventoryItemResponse(item))
	}
	return responses, nil
}

// VerifyLedger replays the ledger sum of one item and compares it against
// the projection. The two agree on every committed state.
func (s *QueryService) VerifyLedger(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID, warehouseID shared.WarehouseID) (*LedgerVerification, error) {
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
	sum, err := s.movements.SumByItem(ctx, tctx.TenantID, item.ID)
	if err != nil {
		return nil, err
	}
	count, err := s.movements.CountByItem(ctx, tctx.TenantID, item.ID)
	if err != nil {
		return nil, err
	}
	return &LedgerVerification{
		VariantID:     variantID,
		WarehouseID:   warehouseID,
		TotalStock:    item.TotalStock,
		LedgerSum:     sum,
		MovementCount: count,
		Consistent:    item.TotalStock.Equal(sum),
	}, nil
}

func (s *QueryService) variantThreshold(ctx context.Context, tenantID shared.TenantID, variantID shared.VariantID) valueobject.Quantity {
	if s.variants == nil {
		return valueobject.ZeroQuantity()
	}
	variant, err := s.variants.FindByID(ctx, tenantID, variantID)
	if err != nil {
		return valueobject.ZeroQuantity()
	}
	return variant.EffectiveLowStockThreshold()
}
