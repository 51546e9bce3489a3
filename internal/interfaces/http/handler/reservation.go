package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	appinventory "github.com/ims/engine/internal/application/inventory"
	"github.com/ims/engine/internal/domain/shared"
)

// ReservationHandler handles stock reservation API endpoints
type ReservationHandler struct {
	BaseHandler
	reservationService *appinventory.ReservationService
}

// NewReservationHandler creates a new ReservationHandler
func NewReservationHandler(reservationService *appinventory.ReservationService) *ReservationHandler {
	return &ReservationHandler{
		reservationService: reservationService,
	}
}

// CreateReservationRequestBody represents a request to reserve stock
// @Description	Request body for claiming stock for later fulfillment; the reservation ID is caller-supplied so order systems can correlate their own identifiers
type CreateReservationRequestBody struct {
	ReservationID   string    `json:"reservation_id" binding:"required,uuid" example:"e83fa2b4-5c16-4d2a-8e3f-1a2b3c4d5e6f"`
	VariantID       string    `json:"variant_id" binding:"required,uuid" example:"7d9f28a1-93b4-4bb4-9a2e-1f0a4b7c3d21"`
	WarehouseID     string    `json:"warehouse_id" binding:"required,uuid" example:"b51d8c7e-2f64-4f0a-8c3d-9e1a2b3c4d5e"`
	Quantity        string    `json:"quantity" binding:"required" example:"5"`
	ExpiresAtUTC    time.Time `json:"expires_at_utc" binding:"required" example:"2026-09-01T12:00:00Z"`
	ReferenceNumber string    `json:"reference_number" binding:"max=100" example:"SO-2024-0917"`
	Notes           string    `json:"notes" binding:"max=500" example:"Checkout hold"`
}

// ModifyReservationQuantityRequest represents a request to change a reservation's quantity
//
//	@Description	Request body for replacing an active reservation's quantity
type ModifyReservationQuantityRequest struct {
	Quantity string `json:"quantity" binding:"required" example:"3"`
}

// ExtendReservationRequest represents a request to push back a reservation's expiry
//
//	@Description	Request body for extending a reservation's expiry; the new time must be later than the current one
type ExtendReservationRequest struct {
	ExpiresAtUTC time.Time `json:"expires_at_utc" binding:"required" example:"2026-09-02T12:00:00Z"`
}

// FulfillReservationRequest represents a request to fulfill part or all of a reservation
//
//	@Description	Request body for converting reserved stock into a sale
type FulfillReservationRequest struct {
	Quantity string `json:"quantity" binding:"required" example:"5"`
}

// CancelReservationRequest represents a request to cancel a reservation
//
//	@Description	Request body for releasing a reservation's remaining stock
type CancelReservationRequest struct {
	Reason string `json:"reason" binding:"max=500" example:"Order abandoned"`
}

// Create godoc
// @ID           createReservation
//
//	@Summary		Reserve stock
//	@Description	Claim available stock for later fulfillment; the claim is released when it expires
//	@Tags			reservations
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID		header		string							false	"Tenant ID (optional for dev)"
//	@Param			Idempotency-Key	header		string							false	"Idempotent replay key"
//	@Param			request			body		CreateReservationRequestBody	true	"Reservation request"
//	@Success		201				{object}	APIResponse[ReservationResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		409				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/reservations [post]
func (h *ReservationHandler) Create(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var body CreateReservationRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	reservationID, err := shared.ParseReservationID(body.ReservationID)
	if err != nil {
		h.BadRequest(c, "Invalid reservation ID format")
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

	reservation, err := h.reservationService.Create(c.Request.Context(), tctx, appinventory.CreateReservationRequest{
		ReservationID:   reservationID,
		VariantID:       variantID,
		WarehouseID:     warehouseID,
		Quantity:        quantity,
		ExpiresAtUTC:    body.ExpiresAtUTC,
		ReferenceNumber: body.ReferenceNumber,
		Notes:           body.Notes,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, reservation)
}

// GetByID godoc
// @ID           getReservationById
//
//	@Summary		Get reservation by ID
//	@Description	Retrieve a reservation by its ID
//	@Tags			reservations
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			id			path		string	true	"Reservation ID"	format(uuid)
//	@Success		200			{object}	APIResponse[ReservationResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/reservations/{id} [get]
func (h *ReservationHandler) GetByID(c *gin.Context) {
	tctx, reservationID, ok := h.bindReservationID(c)
	if !ok {
		return
	}

	reservation, err := h.reservationService.GetReservation(c.Request.Context(), tctx, reservationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, reservation)
}

// ListOpenByItem godoc
// @ID           listOpenReservationsByItem
//
//	@Summary		List open reservations for an item
//	@Description	Retrieve the active and partially fulfilled reservations holding stock on one item
//	@Tags			reservations
//	@Produce		json
//	@Param			X-Tenant-ID		header		string	false	"Tenant ID (optional for dev)"
//	@Param			variant_id		query		string	true	"Variant ID"	format(uuid)
//	@Param			warehouse_id	query		string	true	"Warehouse ID"	format(uuid)
//	@Success		200				{object}	APIResponse[[]ReservationResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/reservations [get]
func (h *ReservationHandler) ListOpenByItem(c *gin.Context) {
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

	reservations, err := h.reservationService.ListOpenByItem(c.Request.Context(), tctx, variantID, warehouseID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, reservations)
}

// ListByReference godoc
// @ID           listReservationsByReference
//
//	@Summary		List reservations by reference
//	@Description	Retrieve every reservation recorded under a reference number
//	@Tags			reservations
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			reference	path		string	true	"Reference number"
//	@Success		200			{object}	APIResponse[[]ReservationResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/reservations/reference/{reference} [get]
func (h *ReservationHandler) ListByReference(c *gin.Context) {
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

	reservations, err := h.reservationService.ListByReference(c.Request.Context(), tctx, reference)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, reservations)
}

// ModifyQuantity godoc
// @ID           modifyReservationQuantity
//
//	@Summary		Modify reservation quantity
//	@Description	Replace an active reservation's quantity; increases must fit the item's available stock
//	@Tags			reservations
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string								false	"Tenant ID (optional for dev)"
//	@Param			id			path		string								true	"Reservation ID"	format(uuid)
//	@Param			request		body		ModifyReservationQuantityRequest	true	"New quantity"
//	@Success		200			{object}	APIResponse[ReservationResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/reservations/{id}/quantity [put]
func (h *ReservationHandler) ModifyQuantity(c *gin.Context) {
	tctx, reservationID, ok := h.bindReservationID(c)
	if !ok {
		return
	}

	var req ModifyReservationQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	quantity, err := parseQuantity(req.Quantity)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	reservation, err := h.reservationService.ModifyQuantity(c.Request.Context(), tctx, reservationID, quantity)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, reservation)
}

// Extend godoc
// @ID           extendReservation
//
//	@Summary		Extend reservation expiry
//	@Description	Push back an active reservation's expiry time
//	@Tags			reservations
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string						false	"Tenant ID (optional for dev)"
//	@Param			id			path		string						true	"Reservation ID"	format(uuid)
//	@Param			request		body		ExtendReservationRequest	true	"New expiry time"
//	@Success		200			{object}	APIResponse[ReservationResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/reservations/{id}/expiry [put]
func (h *ReservationHandler) Extend(c *gin.Context) {
	tctx, reservationID, ok := h.bindReservationID(c)
	if !ok {
		return
	}

	var req ExtendReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	reservation, err := h.reservationService.ExtendExpiry(c.Request.Context(), tctx, reservationID, req.ExpiresAtUTC)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, reservation)
}

// Fulfill godoc
// @ID           fulfillReservation
//
//	@Summary		Fulfill a reservation
//	@Description	Convert part or all of the reserved quantity into a recorded sale
//	@Tags			reservations
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID		header		string						false	"Tenant ID (optional for dev)"
//	@Param			Idempotency-Key	header		string						false	"Idempotent replay key"
//	@Param			id				path		string						true	"Reservation ID"	format(uuid)
//	@Param			request			body		FulfillReservationRequest	true	"Quantity to fulfill"
//	@Success		200				{object}	APIResponse[ReservationResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/reservations/{id}/fulfill [post]
func (h *ReservationHandler) Fulfill(c *gin.Context) {
	tctx, reservationID, ok := h.bindReservationID(c)
	if !ok {
		return
	}

	var req FulfillReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	quantity, err := parseQuantity(req.Quantity)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	reservation, err := h.reservationService.Fulfill(c.Request.Context(), tctx, reservationID, quantity)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, reservation)
}

// Cancel godoc
// @ID           cancelReservation
//
//	@Summary		Cancel a reservation
//	@Description	Release a reservation's remaining stock back to availability
//	@Tags			reservations
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string						false	"Tenant ID (optional for dev)"
//	@Param			id			path		string						true	"Reservation ID"	format(uuid)
//	@Param			request		body		CancelReservationRequest	true	"Cancellation reason"
//	@Success		200			{object}	APIResponse[ReservationResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c *gin.Context) {
	tctx, reservationID, ok := h.bindReservationID(c)
	if !ok {
		return
	}

	var req CancelReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	reservation, err := h.reservationService.Cancel(c.Request.Context(), tctx, reservationID, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, reservation)
}

func (h *ReservationHandler) bindReservationID(c *gin.Context) (shared.TenantContext, shared.ReservationID, bool) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return shared.TenantContext{}, shared.ReservationID{}, false
	}

	reservationID, err := shared.ParseReservationID(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid reservation ID format")
		return shared.TenantContext{}, shared.ReservationID{}, false
	}

	return tctx, reservationID, true
}
