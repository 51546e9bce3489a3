package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	appinventory "github.com/ims/engine/internal/application/inventory"
	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
)

// StockHandler handles stock ledger API endpoints: the write operations that
// append movements and the reads over the balance projection.
type StockHandler struct {
	BaseHandler
	stockService *appinventory.StockService
	queryService *appinventory.QueryService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(stockService *appinventory.StockService, queryService *appinventory.QueryService) *StockHandler {
	return &StockHandler{
		stockService: stockService,
		queryService: queryService,
	}
}

// StockOperationRequestBody represents a single-item ledger operation
// @Description	Request body for a stock ledger operation; quantity is always positive, expressed in the variant's base unit
type StockOperationRequestBody struct {
	VariantID       string          `json:"variant_id" binding:"required,uuid" example:"7d9f28a1-93b4-4bb4-9a2e-1f0a4b7c3d21"`
	WarehouseID     string          `json:"warehouse_id" binding:"required,uuid" example:"b51d8c7e-2f64-4f0a-8c3d-9e1a2b3c4d5e"`
	Quantity        string          `json:"quantity" binding:"required" example:"25"`
	Reason          string          `json:"reason" binding:"max=500" example:"Weekly replenishment"`
	ReferenceNumber string          `json:"reference_number" binding:"max=100" example:"PO-2024-0042"`
	Metadata        shared.Metadata `json:"metadata"`
}

// RefundRequestBody represents a refund of previously sold stock
//
//	@Description	Request body for a refund; the original sale reference caps the refundable total
type RefundRequestBody struct {
	VariantID             string          `json:"variant_id" binding:"required,uuid" example:"7d9f28a1-93b4-4bb4-9a2e-1f0a4b7c3d21"`
	WarehouseID           string          `json:"warehouse_id" binding:"required,uuid" example:"b51d8c7e-2f64-4f0a-8c3d-9e1a2b3c4d5e"`
	Quantity              string          `json:"quantity" binding:"required" example:"2"`
	Reason                string          `json:"reason" binding:"max=500" example:"Customer return"`
	OriginalSaleReference string          `json:"original_sale_reference" binding:"required,max=100" example:"SO-2024-0917"`
	Metadata              shared.Metadata `json:"metadata"`
}

// TransferRequestBody represents a stock transfer between two warehouses
//
//	@Description	Request body for moving stock between two warehouses of the same tenant
type TransferRequestBody struct {
	VariantID              string `json:"variant_id" binding:"required,uuid" example:"7d9f28a1-93b4-4bb4-9a2e-1f0a4b7c3d21"`
	SourceWarehouseID      string `json:"source_warehouse_id" binding:"required,uuid" example:"b51d8c7e-2f64-4f0a-8c3d-9e1a2b3c4d5e"`
	DestinationWarehouseID string `json:"destination_warehouse_id" binding:"required,uuid" example:"c62e9d8f-3a75-4b1c-9d4e-0f2b3c4d5e6f"`
	Quantity               string `json:"quantity" binding:"required" example:"10"`
	Reason                 string `json:"reason" binding:"max=500" example:"Rebalancing"`
	ReferenceNumber        string `json:"reference_number" binding:"max=100" example:"TR-2024-0007"`
}

// NegativeStockPolicyRequest represents a request to toggle the negative stock policy
//
//	@Description	Request body for allowing or forbidding negative available stock on an item
type NegativeStockPolicyRequest struct {
	Allow bool `json:"allow" example:"true"`
}

// ExpiryDateRequest represents a request to set or clear an item's expiry date
//
//	@Description	Request body for setting an item's expiry date; null clears it
type ExpiryDateRequest struct {
	ExpiryDate *time.Time `json:"expiry_date" example:"2026-12-31T00:00:00Z"`
}

func (r *StockOperationRequestBody) toAppRequest() (appinventory.StockOperationRequest, error) {
	variantID, err := shared.ParseVariantID(r.VariantID)
	if err != nil {
		return appinventory.StockOperationRequest{}, err
	}
	warehouseID, err := shared.ParseWarehouseID(r.WarehouseID)
	if err != nil {
		return appinventory.StockOperationRequest{}, err
	}
	quantity, err := parseQuantity(r.Quantity)
	if err != nil {
		return appinventory.StockOperationRequest{}, err
	}
	return appinventory.StockOperationRequest{
		VariantID:       variantID,
		WarehouseID:     warehouseID,
		Quantity:        quantity,
		Reason:          r.Reason,
		ReferenceNumber: r.ReferenceNumber,
		Metadata:        r.Metadata,
	}, nil
}

type stockOperation func(ctx context.Context, tctx shared.TenantContext, req appinventory.StockOperationRequest) (*appinventory.StockOperationResult, error)

func (h *StockHandler) runOperation(c *gin.Context, op stockOperation) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var body StockOperationRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	req, err := body.toAppRequest()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := op(c.Request.Context(), tctx, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// OpeningBalance godoc
// @ID           recordOpeningBalance
//
//	@Summary		Record an opening balance
//	@Description	Seed an item's stock level; allowed only once, while the item has no movements
//	@Tags			stock
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID		header		string						false	"Tenant ID (optional for dev)"
//	@Param			Idempotency-Key	header		string						false	"Idempotent replay key"
//	@Param			request			body		StockOperationRequestBody	true	"Opening balance request"
//	@Success		201				{object}	APIResponse[StockOperationResult]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/stock/opening-balance [post]
func (h *StockHandler) OpeningBalance(c *gin.Context) {
	h.runOperation(c, h.stockService.OpeningBalance)
}

// Purchase godoc
// @ID           recordPurchase
//
//	@Summary		Record a purchase receipt
//	@Description	Append a purchase movement increasing the item's total stock
//	@Tags			stock
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID		header		string						false	"Tenant ID (optional for dev)"
//	@Param			Idempotency-Key	header		string						false	"Idempotent replay key"
//	@Param			request			body		StockOperationRequestBody	true	"Purchase request"
//	@Success		201				{object}	APIResponse[StockOperationResult]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/stock/purchases [post]
func (h *StockHandler) Purchase(c *gin.Context) {
	h.runOperation(c, h.stockService.Purchase)
}

// Sale godoc
// @ID           recordSale
//
//	@Summary		Record a sale
//	@Description	Append a sale movement decreasing available stock; rejected when availability is insufficient unless the item allows negative stock
//	@Tags			stock
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID		header		string						false	"Tenant ID (optional for dev)"
//	@Param			Idempotency-Key	header		string						false	"Idempotent replay key"
//	@Param			request			body		StockOperationRequestBody	true	"Sale request"
//	@Success		201				{object}	APIResponse[StockOperationResult]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/stock/sales [post]
func (h *StockHandler) Sale(c *gin.Context) {
	h.runOperation(c, h.stockService.Sale)
}

// WriteOff godoc
// @ID           recordWriteOff
//
//	@Summary		Record a write-off
//	@Description	Remove damaged or lost stock from the ledger
//	@Tags			stock
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID		header		string						false	"Tenant ID (optional for dev)"
//	@Param			Idempotency-Key	header		string						false	"Idempotent replay key"
//	@Param			request			body		StockOperationRequestBody	true	"Write-off request"
//	@Success		201				{object}	APIResponse[StockOperationResult]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/stock/write-offs [post]
func (h *StockHandler) WriteOff(c *gin.Context) {
	h.runOperation(c, h.stockService.WriteOff)
}

// Adjustment godoc
// @ID           recordAdjustment
//
//	@Summary		Record a stock adjustment
//	@Description	Append a signed correction movement after a physical count; the quantity may be negative
//	@Tags			stock
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID		header		string						false	"Tenant ID (optional for dev)"
//	@Param			Idempotency-Key	header		string						false	"Idempotent replay key"
//	@Param			request			body		StockOperationRequestBody	true	"Adjustment request; quantity carries its sign"
//	@Success		201				{object}	APIResponse[StockOperationResult]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/stock/adjustments [post]
func (h *StockHandler) Adjustment(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var body StockOperationRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	req, err := body.toAppRequest()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.stockService.Adjustment(c.Request.Context(), tctx, appinventory.AdjustmentRequest{
		VariantID:       req.VariantID,
		WarehouseID:     req.WarehouseID,
		Quantity:        req.Quantity,
		Reason:          req.Reason,
		ReferenceNumber: req.ReferenceNumber,
		Metadata:        req.Metadata,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// Refund godoc
// @ID           recordRefund
//
//	@Summary		Record a refund
//	@Description	Return previously sold stock; the refunded total for a sale reference may never exceed the quantity sold under it
//	@Tags			stock
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID		header		string				false	"Tenant ID (optional for dev)"
//	@Param			Idempotency-Key	header		string				false	"Idempotent replay key"
//	@Param			request			body		RefundRequestBody	true	"Refund request"
//	@Success		201				{object}	APIResponse[StockOperationResult]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/stock/refunds [post]
func (h *StockHandler) Refund(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var body RefundRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	variantID, err := shared.ParseVariantID(body.VariantID)
	if err != nil {
		h.BadRequest(c, "Invalid variant ID format")
		return
	}
	warehouseID, err := shared.ParseWarehouseID(body.WarehouseID)
	if err != nil {
		h.BadRequest(c, "Invalid warehouse ID format")
		return
	}
	quantity, err := parseQuantity(body.Quantity)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.stockService.Refund(c.Request.Context(), tctx, appinventory.RefundRequest{
		VariantID:             variantID,
		WarehouseID:           warehouseID,
		Quantity:              quantity,
		Reason:                body.Reason,
		OriginalSaleReference: body.OriginalSaleReference,
		Metadata:              body.Metadata,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// Transfer godoc
// @ID           recordTransfer
//
//	@Summary		Transfer stock between warehouses
//	@Description	Move stock from one warehouse to another atomically; both ledger legs share one reference number
//	@Tags			stock
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID		header		string				false	"Tenant ID (optional for dev)"
//	@Param			Idempotency-Key	header		string				false	"Idempotent replay key"
//	@Param			request			body		TransferRequestBody	true	"Transfer request"
//	@Success		201				{object}	APIResponse[TransferResult]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/stock/transfers [post]
func (h *StockHandler) Transfer(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var body TransferRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	variantID, err := shared.ParseVariantID(body.VariantID)
	if err != nil {
		h.BadRequest(c, "Invalid variant ID format")
		return
	}
	sourceID, err := shared.ParseWarehouseID(body.SourceWarehouseID)
	if err != nil {
		h.BadRequest(c, "Invalid source warehouse ID format")
		return
	}
	destinationID, err := shared.ParseWarehouseID(body.DestinationWarehouseID)
	if err != nil {
		h.BadRequest(c, "Invalid destination warehouse ID format")
		return
	}
	quantity, err := parseQuantity(body.Quantity)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.stockService.Transfer(c.Request.Context(), tctx, appinventory.TransferRequest{
		VariantID:              variantID,
		SourceWarehouseID:      sourceID,
		DestinationWarehouseID: destinationID,
		Quantity:               quantity,
		Reason:                 body.Reason,
		ReferenceNumber:        body.ReferenceNumber,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// CheckAvailability godoc
// @ID           checkAvailability
//
//	@Summary		Check stock availability
//	@Description	Report whether the requested quantity can currently be fulfilled from available stock
//	@Tags			stock
//	@Produce		json
//	@Param			X-Tenant-ID		header		string	false	"Tenant ID (optional for dev)"
//	@Param			variant_id		query		string	true	"Variant ID"	format(uuid)
//	@Param			warehouse_id	query		string	true	"Warehouse ID"	format(uuid)
//	@Param			quantity		query		string	true	"Requested quantity"
//	@Success		200				{object}	APIResponse[AvailabilityResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/stock/availability [get]
func (h *StockHandler) CheckAvailability(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	variantID, err := shared.ParseVariantID(c.Query("variant_id"))
	if err != nil {
		h.BadRequest(c, "Invalid variant ID format")
		return
	}
	warehouseID, err := shared.ParseWarehouseID(c.Query("warehouse_id"))
	if err != nil {
		h.BadRequest(c, "Invalid warehouse ID format")
		return
	}
	quantity, err := parseQuantity(c.Query("quantity"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	availability, err := h.stockService.CheckAvailability(c.Request.Context(), tctx, variantID, warehouseID, quantity)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, availability)
}

// SetNegativeStockPolicy godoc
// @ID           setNegativeStockPolicy
//
//	@Summary		Set negative stock policy
//	@Description	Allow or forbid the item's available stock to go negative on sales
//	@Tags			stock
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID		header		string						false	"Tenant ID (optional for dev)"
//	@Param			variant_id		path		string						true	"Variant ID"	format(uuid)
//	@Param			warehouse_id	path		string						true	"Warehouse ID"	format(uuid)
//	@Param			request			body		NegativeStockPolicyRequest	true	"Policy toggle"
//	@Success		200				{object}	APIResponse[InventoryItemResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/items/{variant_id}/{warehouse_id}/negative-stock-policy [put]
func (h *StockHandler) SetNegativeStockPolicy(c *gin.Context) {
	tctx, variantID, warehouseID, ok := h.bindItemKey(c)
	if !ok {
		return
	}

	var req NegativeStockPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	item, err := h.stockService.SetNegativeStockPolicy(c.Request.Context(), tctx, variantID, warehouseID, req.Allow)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, item)
}

// SetExpiryDate godoc
// @ID           setExpiryDate
//
//	@Summary		Set item expiry date
//	@Description	Set or clear the expiry date tracked on an inventory item
//	@Tags			stock
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID		header		string				false	"Tenant ID (optional for dev)"
//	@Param			variant_id		path		string				true	"Variant ID"	format(uuid)
//	@Param			warehouse_id	path		string				true	"Warehouse ID"	format(uuid)
//	@Param			request			body		ExpiryDateRequest	true	"Expiry date; null clears it"
//	@Success		200				{object}	APIResponse[InventoryItemResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/items/{variant_id}/{warehouse_id}/expiry-date [put]
func (h *StockHandler) SetExpiryDate(c *gin.Context) {
	tctx, variantID, warehouseID, ok := h.bindItemKey(c)
	if !ok {
		return
	}

	var req ExpiryDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	item, err := h.stockService.SetExpiryDate(c.Request.Context(), tctx, variantID, warehouseID, req.ExpiryDate)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, item)
}

// GetItem godoc
// @ID           getInventoryItem
//
//	@Summary		Get an inventory item
//	@Description	Retrieve the stock projection for one variant in one warehouse
//	@Tags			stock
//	@Produce		json
//	@Param			X-Tenant-ID		header		string	false	"Tenant ID (optional for dev)"
//	@Param			variant_id		path		string	true	"Variant ID"	format(uuid)
//	@Param			warehouse_id	path		string	true	"Warehouse ID"	format(uuid)
//	@Success		200				{object}	APIResponse[InventoryItemResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/items/{variant_id}/{warehouse_id} [get]
func (h *StockHandler) GetItem(c *gin.Context) {
	tctx, variantID, warehouseID, ok := h.bindItemKey(c)
	if !ok {
		return
	}

	item, err := h.queryService.GetItem(c.Request.Context(), tctx, variantID, warehouseID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, item)
}

// ListByWarehouse godoc
// @ID           listItemsByWarehouse
//
//	@Summary		List items in a warehouse
//	@Description	Retrieve a paginated list of the stock rows a warehouse holds
//	@Tags			stock
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			id			path		string	true	"Warehouse ID"	format(uuid)
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Page size"		default(20)	maximum(100)
//	@Success		200			{object}	APIResponse[[]InventoryItemResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/warehouses/{id}/items [get]
func (h *StockHandler) ListByWarehouse(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	warehouseID, err := shared.ParseWarehouseID(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid warehouse ID format")
		return
	}

	filter := bindFilter(c)

	page, err := h.queryService.ListByWarehouse(c.Request.Context(), tctx, warehouseID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ListByVariant godoc
// @ID           listItemsByVariant
//
//	@Summary		List a variant's stock across warehouses
//	@Description	Retrieve the stock rows of one variant in every warehouse that holds it
//	@Tags			stock
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			id			path		string	true	"Variant ID"	format(uuid)
//	@Success		200			{object}	APIResponse[[]InventoryItemResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/variants/{id}/items [get]
func (h *StockHandler) ListByVariant(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	variantID, err := shared.ParseVariantID(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid variant ID format")
		return
	}

	items, err := h.queryService.ListByVariant(c.Request.Context(), tctx, variantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, items)
}

// MovementHistory godoc
// @ID           getMovementHistory
//
//	@Summary		Get movement history
//	@Description	Retrieve an item's ledger entries, newest first, with optional kind, actor and time filters
//	@Tags			stock
//	@Produce		json
//	@Param			X-Tenant-ID		header		string	false	"Tenant ID (optional for dev)"
//	@Param			variant_id		path		string	true	"Variant ID"	format(uuid)
//	@Param			warehouse_id	path		string	true	"Warehouse ID"	format(uuid)
//	@Param			kind			query		string	false	"Movement kind"	Enums(OPENING_BALANCE, PURCHASE, SALE, REFUND, ADJUSTMENT, WRITE_OFF, TRANSFER_OUT, TRANSFER_IN)
//	@Param			actor_id		query		string	false	"Acting user ID"	format(uuid)
//	@Param			reference		query		string	false	"Reference number"
//	@Param			from			query		string	false	"Start of time range (RFC 3339)"
//	@Param			to				query		string	false	"End of time range (RFC 3339)"
//	@Param			page			query		int		false	"Page number"	default(1)
//	@Param			page_size		query		int		false	"Page size"		default(50)	maximum(200)
//	@Success		200				{object}	APIResponse[[]StockMovementResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/items/{variant_id}/{warehouse_id}/movements [get]
func (h *StockHandler) MovementHistory(c *gin.Context) {
	tctx, variantID, warehouseID, ok := h.bindItemKey(c)
	if !ok {
		return
	}

	filter, err := bindMovementFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.queryService.MovementHistory(c.Request.Context(), tctx, variantID, warehouseID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// MovementsByReference godoc
// @ID           getMovementsByReference
//
//	@Summary		Get movements by reference
//	@Description	Retrieve every ledger entry recorded under a reference number, across items
//	@Tags			stock
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			reference	path		string	true	"Reference number"
//	@Success		200			{object}	APIResponse[[]StockMovementResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/movements/reference/{reference} [get]
func (h *StockHandler) MovementsByReference(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	reference := c.Param("reference")
	if reference == "" {
		h.BadRequest(c, "Reference number is required")
		return
	}

	movements, err := h.queryService.MovementsByReference(c.Request.Context(), tctx, reference)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, movements)
}

// LowStock godoc
// @ID           listLowStock
//
//	@Summary		List low-stock items
//	@Description	Retrieve items whose available stock sits at or below the owning variant's threshold
//	@Tags			stock
//	@Produce		json
//	@Param			X-Tenant-ID		header		string	false	"Tenant ID (optional for dev)"
//	@Param			warehouse_id	query		string	false	"Restrict to one warehouse"	format(uuid)
//	@Param			limit			query		int		false	"Maximum rows"	default(50)	maximum(200)
//	@Success		200				{object}	APIResponse[[]LowStockItem]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/stock/low [get]
func (h *StockHandler) LowStock(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var warehouseID *shared.WarehouseID
	if raw := c.Query("warehouse_id"); raw != "" {
		parsed, err := shared.ParseWarehouseID(raw)
		if err != nil {
			h.BadRequest(c, "Invalid warehouse ID format")
			return
		}
		warehouseID = &parsed
	}

	limit := bindLimit(c, 50, 200)

	items, err := h.queryService.LowStock(c.Request.Context(), tctx, warehouseID, limit)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, items)
}

// ExpiringStock godoc
// @ID           listExpiringStock
//
//	@Summary		List expiring items
//	@Description	Retrieve items whose expiry date falls inside the given window from now
//	@Tags			stock
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			window_days	query		int		false	"Look-ahead window in days"	default(30)
//	@Param			limit		query		int		false	"Maximum rows"				default(50)	maximum(200)
//	@Success		200			{object}	APIResponse[[]InventoryItemResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/stock/expiring [get]
func (h *StockHandler) ExpiringStock(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	windowDays, err := strconv.Atoi(c.DefaultQuery("window_days", "30"))
	if err != nil || windowDays < 1 {
		h.BadRequest(c, "Invalid window_days")
		return
	}
	limit := bindLimit(c, 50, 200)

	items, err := h.queryService.ExpiringStock(c.Request.Context(), tctx, time.Duration(windowDays)*24*time.Hour, limit)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, items)
}

// VerifyLedger godoc
// @ID           verifyLedger
//
//	@Summary		Verify ledger consistency
//	@Description	Replay an item's full ledger and compare the sum against the stored projection
//	@Tags			stock
//	@Produce		json
//	@Param			X-Tenant-ID		header		string	false	"Tenant ID (optional for dev)"
//	@Param			variant_id		path		string	true	"Variant ID"	format(uuid)
//	@Param			warehouse_id	path		string	true	"Warehouse ID"	format(uuid)
//	@Success		200				{object}	APIResponse[LedgerVerification]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/items/{variant_id}/{warehouse_id}/verify [get]
func (h *StockHandler) VerifyLedger(c *gin.Context) {
	tctx, variantID, warehouseID, ok := h.bindItemKey(c)
	if !ok {
		return
	}

	verification, err := h.queryService.VerifyLedger(c.Request.Context(), tctx, variantID, warehouseID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, verification)
}

// bindItemKey reads the (variant, warehouse) pair that addresses one
// inventory item, along with the tenant binding.
func (h *StockHandler) bindItemKey(c *gin.Context) (shared.TenantContext, shared.VariantID, shared.WarehouseID, bool) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return shared.TenantContext{}, shared.VariantID{}, shared.WarehouseID{}, false
	}

	variantID, err := shared.ParseVariantID(c.Param("variant_id"))
	if err != nil {
		h.BadRequest(c, "Invalid variant ID format")
		return shared.TenantContext{}, shared.VariantID{}, shared.WarehouseID{}, false
	}

	warehouseID, err := shared.ParseWarehouseID(c.Param("warehouse_id"))
	if err != nil {
		h.BadRequest(c, "Invalid warehouse ID format")
		return shared.TenantContext{}, shared.VariantID{}, shared.WarehouseID{}, false
	}

	return tctx, variantID, warehouseID, true
}

var errInvalidMovementKind = errors.New("unknown movement kind")

// bindMovementFilter reads the movement history query parameters.
func bindMovementFilter(c *gin.Context) (appinventory.MovementHistoryFilter, error) {
	var filter appinventory.MovementHistoryFilter

	if raw := c.Query("kind"); raw != "" {
		kind := inventory.MovementKind(raw)
		if !kind.IsValid() {
			return filter, errInvalidMovementKind
		}
		filter.Kind = &kind
	}
	if raw := c.Query("actor_id"); raw != "" {
		actorID, err := shared.ParseUserID(raw)
		if err != nil {
			return filter, err
		}
		filter.ActorID = &actorID
	}
	filter.ReferenceNumber = c.Query("reference")

	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, err
		}
		filter.To = &to
	}

	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))
	return filter, nil
}

// bindLimit reads a bounded limit query parameter.
func bindLimit(c *gin.Context, def, max int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit < 1 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
