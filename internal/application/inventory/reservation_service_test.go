package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordWaker records every WakeUp instant handed to it.
type recordWaker struct {
	mu    sync.Mutex
	times []time.Time
}

func (w *recordWaker) WakeUp(before time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.times = append(w.times, before)
}

func (w *recordWaker) woken() []time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]time.Time, len(w.times))
	copy(out, w.times)
	return out
}

type reservationHarness struct {
	items        *memItemRepo
	movements    *memMovementRepo
	reservations *memReservationRepo
	locker       *recordLocker
	publisher    *capturePublisher
	outbox       *captureOutbox
	invalidator  *recordInvalidator
	waker        *recordWaker
	service      *ReservationService
	stock        *StockService
}

func newReservationHarness() *reservationHarness {
	h := &reservationHarness{
		items:        newMemItemRepo(),
		movements:    newMemMovementRepo(),
		reservations: newMemReservationRepo(),
		locker:       newRecordLocker(),
		publisher:    newCapturePublisher(),
		outbox:       newCaptureOutbox(),
		invalidator:  newRecordInvalidator(),
		waker:        &recordWaker{},
	}
	scope := NewNoOpTransactionScope(h.items, h.movements, h.reservations)
	h.service = NewReservationService(h.reservations, h.items, scope, h.locker, zap.NewNop())
	h.service.SetEventPublisher(h.publisher)
	h.service.SetOutboxSaver(h.outbox)
	h.service.SetMetricsInvalidator(h.invalidator)
	h.service.SetExpiryWaker(h.waker)
	h.stock = NewStockService(h.items, h.movements, scope, h.locker, zap.NewNop())
	return h
}

func (h *reservationHarness) stockOf(t *testing.T, tctx shared.TenantContext, variantID shared.VariantID, warehouseID shared.WarehouseID, quantity string) {
	t.Helper()
	_, err := h.stock.OpeningBalance(context.Background(), tctx, StockOperationRequest{
		VariantID:   variantID,
		WarehouseID: warehouseID,
		Quantity:    qty(quantity),
	})
	require.NoError(t, err)
}

func (h *reservationHarness) reserve(t *testing.T, tctx shared.TenantContext, variantID shared.VariantID, warehouseID shared.WarehouseID, quantity, reference string, expiresAt time.Time) *ReservationResponse {
	t.Helper()
	res, err := h.service.Create(context.Background(), tctx, CreateReservationRequest{
		ReservationID:   shared.NewReservationID(),
		VariantID:       variantID,
		WarehouseID:     warehouseID,
		Quantity:        qty(quantity),
		ExpiresAtUTC:    expiresAt,
		ReferenceNumber: reference,
	})
	require.NoError(t, err)
	return res
}

func TestReservationService_Create(t *testing.T) {
	ctx := context.Background()
	tctx := testTenantContext()
	variantID := shared.NewVariantID()
	warehouseID := shared.NewWarehouseID()
	expiry := time.Now().UTC().Add(time.Hour)

	t.Run("claims available stock", func(t *testing.T) {
		h := newReservationHarness()
		h.stockOf(t, tctx, variantID, warehouseID, "500")

		res := h.reserve(t, tctx, variantID, warehouseID, "100", "ORD-1", expiry)
		assert.Equal(t, inventory.ReservationStatusActive, res.Status)
		assert.True(t, res.CurrentQuantity.Equal(qty("100")))
		assert.True(t, res.RemainingQuantity.Equal(qty("100")))

		item, err := h.items.FindByVariantAndWarehouse(ctx, tctx.TenantID, variantID, warehouseID)
		require.NoError(t, err)
		assert.True(t, item.TotalStock.Equal(qty("500")), "reservations never move stock")
		assert.True(t, item.ReservedStock.Equal(qty("100")))
		assert.True(t, item.Available().Equal(qty("400")))

		assert.Len(t, h.publisher.GetEventsByType(inventory.EventTypeReservationCreated), 1)
		changed := h.publisher.GetEventsByType(inventory.EventTypeStockLevelChanged)
		require.NotEmpty(t, changed)
		last := changed[len(changed)-1].(*inventory.StockLevelChangedEvent)
		assert.True(t, last.AvailableStock.Equal(qty("400")))
		assert.Nil(t, last.LastMovement)

		woken := h.waker.woken()
		require.Len(t, woken, 1)
		assert.True(t, woken[0].Equal(res.ExpiresAtUTC))
	})

	t.Run("rejects a reused reservation ID", func(t *testing.T) {
		h := newReservationHarness()
		h.stockOf(t, tctx, variantID, warehouseID, "500")
		id := shared.NewReservationID()

		req := CreateReservationRequest{
			ReservationID: id, VariantID: variantID, WarehouseID: warehouseID,
			Quantity: qty("10"), ExpiresAtUTC: expiry, ReferenceNumber: "ORD-2",
		}
		_, err := h.service.Create(ctx, tctx, req)
		require.NoError(t, err)

		_, err = h.service.Create(ctx, tctx, req)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("rejects a claim beyond availability", func(t *testing.T) {
		h := newReservationHarness()
		h.stockOf(t, tctx, variantID, warehouseID, "100")
		h.reserve(t, tctx, variantID, warehouseID, "80", "ORD-3", expiry)

		_, err := h.service.Create(ctx, tctx, CreateReservationRequest{
			ReservationID: shared.NewReservationID(), VariantID: variantID, WarehouseID: warehouseID,
			Quantity: qty("30"), ExpiresAtUTC: expiry, ReferenceNumber: "ORD-4",
		})
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	})

	t.Run("requires an existing item", func(t *testing.T) {
		h := newReservationHarness()
		_, err := h.service.Create(ctx, tctx, CreateReservationRequest{
			ReservationID: shared.NewReservationID(), VariantID: shared.NewVariantID(), WarehouseID: warehouseID,
			Quantity: qty("1"), ExpiresAtUTC: expiry, ReferenceNumber: "ORD-5",
		})
		assert.ErrorIs(t, err, shared.ErrInventoryNotFound)
	})

	t.Run("rejects a past expiry", func(t *testing.T) {
		h := newReservationHarness()
		h.stockOf(t, tctx, variantID, warehouseID, "100")
		_, err := h.service.Create(ctx, tctx, CreateReservationRequest{
			ReservationID: shared.NewReservationID(), VariantID: variantID, WarehouseID: warehouseID,
			Quantity: qty("1"), ExpiresAtUTC: time.Now().UTC().Add(-time.Minute), ReferenceNumber: "ORD-6",
		})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestReservationService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	tctx := testTenantContext()
	variantID := shared.NewVariantID()
	warehouseID := shared.NewWarehouseID()
	expiry := time.Now().UTC().Add(time.Hour)

	available := func(t *testing.T, h *reservationHarness) string {
		t.Helper()
		item, err := h.items.FindByVariantAndWarehouse(ctx, tctx.TenantID, variantID, warehouseID)
		require.NoError(t, err)
		return item.Available().String()
	}

	t.Run("modify then cancel returns the claim", func(t *testing.T) {
		h := newReservationHarness()
		h.stockOf(t, tctx, variantID, warehouseID, "500")
		res := h.reserve(t, tctx, variantID, warehouseID, "100", "ORD-10", expiry)
		assert.Equal(t, "400", available(t, h))

		grown, err := h.service.ModifyQuantity(ctx, tctx, res.ID, qty("150"))
		require.NoError(t, err)
		assert.True(t, grown.CurrentQuantity.Equal(qty("150")))
		assert.Equal(t, "350", available(t, h))

		shrunk, err := h.service.ModifyQuantity(ctx, tctx, res.ID, qty("120"))
		require.NoError(t, err)
		assert.True(t, shrunk.CurrentQuantity.Equal(qty("120")))
		assert.Equal(t, "380", available(t, h))

		cancelled, err := h.service.Cancel(ctx, tctx, res.ID, "customer withdrew")
		require.NoError(t, err)
		assert.Equal(t, inventory.ReservationStatusCancelled, cancelled.Status)
		assert.Equal(t, "500", available(t, h))

		item, err := h.items.FindByVariantAndWarehouse(ctx, tctx.TenantID, variantID, warehouseID)
		require.NoError(t, err)
		assert.True(t, item.TotalStock.Equal(qty("500")))
	})

	t.Run("growth beyond availability is rejected atomically", func(t *testing.T) {
		h := newReservationHarness()
		h.stockOf(t, tctx, variantID, warehouseID, "100")
		res := h.reserve(t, tctx, variantID, warehouseID, "60", "ORD-11", expiry)

		_, err := h.service.ModifyQuantity(ctx, tctx, res.ID, qty("150"))
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)

		kept, err := h.service.GetReservation(ctx, tctx, res.ID)
		require.NoError(t, err)
		assert.True(t, kept.CurrentQuantity.Equal(qty("60")))
		assert.Equal(t, "40", available(t, h))
	})

	t.Run("fulfillment consumes the claim in slices", func(t *testing.T) {
		h := newReservationHarness()
		h.stockOf(t, tctx, variantID, warehouseID, "500")
		res := h.reserve(t, tctx, variantID, warehouseID, "100", "ORD-12", expiry)

		partial, err := h.service.Fulfill(ctx, tctx, res.ID, qty("40"))
		require.NoError(t, err)
		assert.Equal(t, inventory.ReservationStatusPartiallyFulfilled, partial.Status)
		assert.True(t, partial.FulfilledQuantity.Equal(qty("40")))
		assert.True(t, partial.RemainingQuantity.Equal(qty("60")))
		assert.Equal(t, "440", available(t, h))

		full, err := h.service.Fulfill(ctx, tctx, res.ID, qty("60"))
		require.NoError(t, err)
		assert.Equal(t, inventory.ReservationStatusFulfilled, full.Status)
		assert.Equal(t, "500", available(t, h))

		_, err = h.service.Fulfill(ctx, tctx, res.ID, qty("1"))
		assert.ErrorIs(t, err, shared.ErrReservationAlreadyUsed)
	})

	t.Run("over-fulfillment is rejected", func(t *testing.T) {
		h := newReservationHarness()
		h.stockOf(t, tctx, variantID, warehouseID, "500")
		res := h.reserve(t, tctx, variantID, warehouseID, "50", "ORD-13", expiry)

		_, err := h.service.Fulfill(ctx, tctx, res.ID, qty("51"))
		require.Error(t, err)
		assert.Equal(t, "450", available(t, h))
	})

	t.Run("extend expiry only moves forward", func(t *testing.T) {
		h := newReservationHarness()
		h.stockOf(t, tctx, variantID, warehouseID, "500")
		res := h.reserve(t, tctx, variantID, warehouseID, "10", "ORD-14", expiry)

		later := expiry.Add(2 * time.Hour)
		extended, err := h.service.ExtendExpiry(ctx, tctx, res.ID, later)
		require.NoError(t, err)
		assert.True(t, extended.ExpiresAtUTC.Equal(later))

		_, err = h.service.ExtendExpiry(ctx, tctx, res.ID, expiry)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("cancel of a terminal reservation fails", func(t *testing.T) {
		h := newReservationHarness()
		h.stockOf(t, tctx, variantID, warehouseID, "500")
		res := h.reserve(t, tctx, variantID, warehouseID, "10", "ORD-15", expiry)

		_, err := h.service.Cancel(ctx, tctx, res.ID, "first")
		require.NoError(t, err)
		_, err = h.service.Cancel(ctx, tctx, res.ID, "second")
		assert.ErrorIs(t, err, shared.ErrReservationAlreadyUsed)
	})

	t.Run("manual expire requires the deadline to have passed", func(t *testing.T) {
		h := newReservationHarness()
		h.stockOf(t, tctx, variantID, warehouseID, "500")
		res := h.reserve(t, tctx, variantID, warehouseID, "10", "ORD-16", expiry)

		_, err := h.service.Expire(ctx, tctx, res.ID)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("unknown reservation reported", func(t *testing.T) {
		h := newReservationHarness()
		_, err := h.service.Fulfill(ctx, tctx, shared.NewReservationID(), qty("1"))
		assert.ErrorIs(t, err, shared.ErrReservationNotFound)
	})
}

func TestReservationService_Queries(t *testing.T) {
	ctx := context.Background()
	tctx := testTenantContext()
	variantID := shared.NewVariantID()
	warehouseID := shared.NewWarehouseID()
	expiry := time.Now().UTC().Add(time.Hour)

	h := newReservationHarness()
	h.stockOf(t, tctx, variantID, warehouseID, "500")
	first := h.reserve(t, tctx, variantID, warehouseID, "10", "ORD-20", expiry)
	second := h.reserve(t, tctx, variantID, warehouseID, "20", "ORD-20", expiry)
	third := h.reserve(t, tctx, variantID, warehouseID, "30", "ORD-21", expiry)
	_, err := h.service.Cancel(ctx, tctx, third.ID, "released")
	require.NoError(t, err)

	t.Run("open claims by item exclude terminal ones", func(t *testing.T) {
		open, err := h.service.ListOpenByItem(ctx, tctx, variantID, warehouseID)
		require.NoError(t, err)
		ids := make([]shared.ReservationID, 0, len(open))
		for _, r := range open {
			ids = append(ids, r.ID)
		}
		assert.ElementsMatch(t, []shared.ReservationID{first.ID, second.ID}, ids)
	})

	t.Run("reference lookup returns every claim under the number", func(t *testing.T) {
		found, err := h.service.ListByReference(ctx, tctx, "ORD-20")
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("empty reference rejected", func(t *testing.T) {
		_, err := h.service.ListByReference(ctx, tctx, "")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("other tenants cannot see the reservation", func(t *testing.T) {
		other := testTenantContext()
		_, err := h.service.GetReservation(ctx, other, first.ID)
		assert.ErrorIs(t, err, shared.ErrReservationNotFound)
	})
}

func TestReservationService_SaleAfterFulfillment(t *testing.T) {
	ctx := context.Background()
	tctx := testTenantContext()
	variantID := shared.NewVariantID()
	warehouseID := shared.NewWarehouseID()
	expiry := time.Now().UTC().Add(time.Hour)

	h := newReservationHarness()
	h.stockOf(t, tctx, variantID, warehouseID, "100")
	res := h.reserve(t, tctx, variantID, warehouseID, "90", "ORD-30", expiry)

	// The claim shields the stock from other sales.
	_, err := h.stock.Sale(ctx, tctx, StockOperationRequest{
		VariantID: variantID, WarehouseID: warehouseID, Quantity: qty("20"), ReferenceNumber: "SO-X",
	})
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)

	_, err = h.service.Fulfill(ctx, tctx, res.ID, qty("90"))
	require.NoError(t, err)

	result, err := h.stock.Sale(ctx, tctx, StockOperationRequest{
		VariantID: variantID, WarehouseID: warehouseID, Quantity: qty("90"), ReferenceNumber: "ORD-30",
	})
	require.NoError(t, err)
	assert.True(t, result.Item.TotalStock.Equal(qty("10")))
	assert.True(t, result.Item.ReservedStock.IsZero())
}
