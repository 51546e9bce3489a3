package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appinventory "github.com/ims/engine/internal/application/inventory"
	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
	"github.com/ims/engine/internal/infrastructure/lock"
	"github.com/ims/engine/internal/infrastructure/persistence"
)

// TestE2E_StockAndReservationFlow drives the full inventory lifecycle through
// the real services against PostgreSQL: receive stock, sell, reserve, fulfill,
// transfer, and finally verify the ledger replays to the projected balance.
func TestE2E_StockAndReservationFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	ctx := context.Background()

	itemRepo := persistence.NewGormInventoryItemRepository(testDB.DB)
	movementRepo := persistence.NewGormStockMovementRepository(testDB.DB)
	reservationRepo := persistence.NewGormReservationRepository(testDB.DB)
	variantRepo := persistence.NewGormVariantRepository(testDB.DB)
	scope := persistence.NewGormTransactionScope(testDB.DB)
	locks := lock.NewKeyedLocker()

	stockService := appinventory.NewStockService(itemRepo, movementRepo, scope, locks, zap.NewNop())
	reservationService := appinventory.NewReservationService(reservationRepo, itemRepo, scope, locks, zap.NewNop())
	queryService := appinventory.NewQueryService(itemRepo, movementRepo, variantRepo)

	tctx, err := shared.NewTenantContext(shared.NewTenantID(), shared.NewUserID())
	require.NoError(t, err)
	variantID := shared.NewVariantID()
	mainWarehouse := shared.NewWarehouseID()

	// Opening balance establishes the item at 100.
	opening, err := stockService.OpeningBalance(ctx, tctx, appinventory.StockOperationRequest{
		VariantID:       variantID,
		WarehouseID:     mainWarehouse,
		Quantity:        valueobject.NewQuantityFromInt(100),
		Reason:          "initial stocktake",
		ReferenceNumber: "ST-2026-001",
	})
	require.NoError(t, err)
	assert.True(t, opening.Item.TotalStock.Equal(valueobject.NewQuantityFromInt(100)))
	assert.Equal(t, inventory.MovementKindOpeningBalance, opening.Movement.Kind)

	// Purchase brings the total to 150.
	purchase, err := stockService.Purchase(ctx, tctx, appinventory.StockOperationRequest{
		VariantID:       variantID,
		WarehouseID:     mainWarehouse,
		Quantity:        valueobject.NewQuantityFromInt(50),
		Reason:          "restock",
		ReferenceNumber: "PO-2026-001",
	})
	require.NoError(t, err)
	assert.True(t, purchase.Item.TotalStock.Equal(valueobject.NewQuantityFromInt(150)))
	assert.True(t, purchase.Movement.RunningBalance.Equal(valueobject.NewQuantityFromInt(150)))

	// A sale of 30 leaves 120.
	sale, err := stockService.Sale(ctx, tctx, appinventory.StockOperationRequest{
		VariantID:       variantID,
		WarehouseID:     mainWarehouse,
		Quantity:        valueobject.NewQuantityFromInt(30),
		Reason:          "walk-in order",
		ReferenceNumber: "SO-2026-001",
	})
	require.NoError(t, err)
	assert.True(t, sale.Item.TotalStock.Equal(valueobject.NewQuantityFromInt(120)))

	// Reserve 20 for an order; available drops to 100 while total stays 120.
	reservationID := shared.NewReservationID()
	reservation, err := reservationService.Create(ctx, tctx, appinventory.CreateReservationRequest{
		ReservationID:   reservationID,
		VariantID:       variantID,
		WarehouseID:     mainWarehouse,
		Quantity:        valueobject.NewQuantityFromInt(20),
		ExpiresAtUTC:    time.Now().UTC().Add(time.Hour),
		ReferenceNumber: "SO-2026-002",
	})
	require.NoError(t, err)
	assert.Equal(t, inventory.ReservationStatusActive, reservation.Status)

	availability, err := stockService.CheckAvailability(ctx, tctx, variantID, mainWarehouse, valueobject.NewQuantityFromInt(110))
	require.NoError(t, err)
	assert.True(t, availability.AvailableStock.Equal(valueobject.NewQuantityFromInt(100)))
	assert.False(t, availability.CanFulfill)

	availability, err = stockService.CheckAvailability(ctx, tctx, variantID, mainWarehouse, valueobject.NewQuantityFromInt(100))
	require.NoError(t, err)
	assert.True(t, availability.CanFulfill)

	// Fulfillment releases the claim; the matching sale moves the stock.
	fulfilled, err := reservationService.Fulfill(ctx, tctx, reservationID, valueobject.NewQuantityFromInt(20))
	require.NoError(t, err)
	assert.Equal(t, inventory.ReservationStatusFulfilled, fulfilled.Status)
	assert.True(t, fulfilled.FulfilledQuantity.Equal(valueobject.NewQuantityFromInt(20)))

	afterFulfill, err := queryService.GetItem(ctx, tctx, variantID, mainWarehouse)
	require.NoError(t, err)
	assert.True(t, afterFulfill.ReservedStock.IsZero())
	assert.True(t, afterFulfill.TotalStock.Equal(valueobject.NewQuantityFromInt(120)))

	_, err = stockService.Sale(ctx, tctx, appinventory.StockOperationRequest{
		VariantID:       variantID,
		WarehouseID:     mainWarehouse,
		Quantity:        valueobject.NewQuantityFromInt(20),
		Reason:          "fulfilled reservation",
		ReferenceNumber: "SO-2026-002",
	})
	require.NoError(t, err)

	// Transfer 40 to a second warehouse the tenant has never stocked.
	secondWarehouse := shared.NewWarehouseID()
	transfer, err := stockService.Transfer(ctx, tctx, appinventory.TransferRequest{
		VariantID:              variantID,
		SourceWarehouseID:      mainWarehouse,
		DestinationWarehouseID: secondWarehouse,
		Quantity:               valueobject.NewQuantityFromInt(40),
		Reason:                 "rebalancing",
		ReferenceNumber:        "TR-2026-001",
	})
	require.NoError(t, err)
	assert.True(t, transfer.DestinationCreated)
	assert.True(t, transfer.Source.TotalStock.Equal(valueobject.NewQuantityFromInt(60)))
	assert.True(t, transfer.Destination.TotalStock.Equal(valueobject.NewQuantityFromInt(40)))
	assert.Equal(t, "TR-2026-001", transfer.OutboundMovement.ReferenceNumber)
	assert.Equal(t, "TR-2026-001", transfer.InboundMovement.ReferenceNumber)

	// Both transfer legs are retrievable by the shared reference.
	legs, err := queryService.MovementsByReference(ctx, tctx, "TR-2026-001")
	require.NoError(t, err)
	require.Len(t, legs, 2)

	// The ledger replays to the projected balance in both warehouses.
	sourceVerification, err := queryService.VerifyLedger(ctx, tctx, variantID, mainWarehouse)
	require.NoError(t, err)
	assert.True(t, sourceVerification.Consistent)
	assert.True(t, sourceVerification.LedgerSum.Equal(valueobject.NewQuantityFromInt(60)))
	assert.True(t, sourceVerification.LedgerSum.Equal(sourceVerification.TotalStock))

	destVerification, err := queryService.VerifyLedger(ctx, tctx, variantID, secondWarehouse)
	require.NoError(t, err)
	assert.True(t, destVerification.Consistent)
	assert.True(t, destVerification.LedgerSum.Equal(valueobject.NewQuantityFromInt(40)))
}

// TestE2E_RefundAndReservationExpiry covers the refund cap against the
// original sale and reservation expiry releasing reserved stock.
func TestE2E_RefundAndReservationExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	ctx := context.Background()

	itemRepo := persistence.NewGormInventoryItemRepository(testDB.DB)
	movementRepo := persistence.NewGormStockMovementRepository(testDB.DB)
	reservationRepo := persistence.NewGormReservationRepository(testDB.DB)
	variantRepo := persistence.NewGormVariantRepository(testDB.DB)
	scope := persistence.NewGormTransactionScope(testDB.DB)
	locks := lock.NewKeyedLocker()

	stockService := appinventory.NewStockService(itemRepo, movementRepo, scope, locks, zap.NewNop())
	reservationService := appinventory.NewReservationService(reservationRepo, itemRepo, scope, locks, zap.NewNop())
	queryService := appinventory.NewQueryService(itemRepo, movementRepo, variantRepo)

	tctx, err := shared.NewTenantContext(shared.NewTenantID(), shared.NewUserID())
	require.NoError(t, err)
	variantID := shared.NewVariantID()
	warehouseID := shared.NewWarehouseID()

	_, err = stockService.OpeningBalance(ctx, tctx, appinventory.StockOperationRequest{
		VariantID:   variantID,
		WarehouseID: warehouseID,
		Quantity:    valueobject.NewQuantityFromInt(50),
		Reason:      "initial stocktake",
	})
	require.NoError(t, err)

	_, err = stockService.Sale(ctx, tctx, appinventory.StockOperationRequest{
		VariantID:       variantID,
		WarehouseID:     warehouseID,
		Quantity:        valueobject.NewQuantityFromInt(10),
		Reason:          "order",
		ReferenceNumber: "SO-REFUND-1",
	})
	require.NoError(t, err)

	// Refunding part of the sale succeeds.
	refund, err := stockService.Refund(ctx, tctx, appinventory.RefundRequest{
		VariantID:             variantID,
		WarehouseID:           warehouseID,
		Quantity:              valueobject.NewQuantityFromInt(4),
		Reason:                "damaged on arrival",
		OriginalSaleReference: "SO-REFUND-1",
	})
	require.NoError(t, err)
	assert.True(t, refund.Item.TotalStock.Equal(valueobject.NewQuantityFromInt(44)))

	// A second refund that would exceed the sold quantity is rejected.
	_, err = stockService.Refund(ctx, tctx, appinventory.RefundRequest{
		VariantID:             variantID,
		WarehouseID:           warehouseID,
		Quantity:              valueobject.NewQuantityFromInt(7),
		Reason:                "change of mind",
		OriginalSaleReference: "SO-REFUND-1",
	})
	require.Error(t, err)

	// An expired reservation releases its claim without touching the total.
	reservationID := shared.NewReservationID()
	_, err = reservationService.Create(ctx, tctx, appinventory.CreateReservationRequest{
		ReservationID:   reservationID,
		VariantID:       variantID,
		WarehouseID:     warehouseID,
		Quantity:        valueobject.NewQuantityFromInt(5),
		ExpiresAtUTC:    time.Now().UTC().Add(100 * time.Millisecond),
		ReferenceNumber: "SO-EXPIRE-1",
	})
	require.NoError(t, err)

	reserved, err := queryService.GetItem(ctx, tctx, variantID, warehouseID)
	require.NoError(t, err)
	assert.True(t, reserved.ReservedStock.Equal(valueobject.NewQuantityFromInt(5)))

	time.Sleep(150 * time.Millisecond)

	expired, err := reservationService.Expire(ctx, tctx, reservationID)
	require.NoError(t, err)
	assert.Equal(t, inventory.ReservationStatusExpired, expired.Status)

	released, err := queryService.GetItem(ctx, tctx, variantID, warehouseID)
	require.NoError(t, err)
	assert.True(t, released.ReservedStock.IsZero())
	assert.True(t, released.TotalStock.Equal(valueobject.NewQuantityFromInt(44)))
}
