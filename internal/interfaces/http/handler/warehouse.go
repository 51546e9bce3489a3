package handler

import (
	"github.com/gin-gonic/gin"

	appwarehouse "github.com/ims/engine/internal/application/warehouse"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/warehouse"
)

// WarehouseHandler handles warehouse registry API endpoints
type WarehouseHandler struct {
	BaseHandler
	warehouseService *appwarehouse.Service
}

// NewWarehouseHandler creates a new WarehouseHandler
func NewWarehouseHandler(warehouseService *appwarehouse.Service) *WarehouseHandler {
	return &WarehouseHandler{
		warehouseService: warehouseService,
	}
}

// CreateWarehouseRequest represents a request to register a new warehouse
// @Description	Request body for registering a new warehouse
type CreateWarehouseRequest struct {
	Code    string                   `json:"code" binding:"required,min=1,max=50" example:"WH-MAIN"`
	Name    string                   `json:"name" binding:"required,min=1,max=200" example:"Main Warehouse"`
	Address *WarehouseAddressRequest `json:"address"`
}

// WarehouseAddressRequest represents the postal address of a warehouse
//
//	@Description	Postal address of a physical warehouse
type WarehouseAddressRequest struct {
	Country    string `json:"country" binding:"required,max=100" example:"Germany"`
	Region     string `json:"region" binding:"max=100" example:"Hamburg"`
	City       string `json:"city" binding:"required,max=100" example:"Hamburg"`
	Street     string `json:"street" binding:"max=200" example:"Speicherstadt 12"`
	PostalCode string `json:"postal_code" binding:"max=20" example:"20457"`
}

// RenameWarehouseRequest represents a request to rename a warehouse
//
//	@Description	Request body for renaming a warehouse
type RenameWarehouseRequest struct {
	Name string `json:"name" binding:"required,min=1,max=200" example:"Main Distribution Center"`
}

// UpdateWarehouseStatusRequest represents a request to change a warehouse's status
//
//	@Description	Request body for changing a warehouse's operational status
type UpdateWarehouseStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive closed" example:"inactive"`
}

func (r *WarehouseAddressRequest) toInput() appwarehouse.AddressInput {
	return appwarehouse.AddressInput{
		Country:    r.Country,
		Region:     r.Region,
		City:       r.City,
		Street:     r.Street,
		PostalCode: r.PostalCode,
	}
}

// Create godoc
// @ID           createWarehouse
//
//	@Summary		Register a new warehouse
//	@Description	Register a new warehouse; the warehouse starts active
//	@Tags			warehouses
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string					false	"Tenant ID (optional for dev)"
//	@Param			request		body		CreateWarehouseRequest	true	"Warehouse registration request"
//	@Success		201			{object}	APIResponse[WarehouseResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/warehouses [post]
func (h *WarehouseHandler) Create(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req CreateWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := appwarehouse.CreateWarehouseRequest{
		Code: req.Code,
		Name: req.Name,
	}
	if req.Address != nil {
		address := req.Address.toInput()
		appReq.Address = &address
	}

	wh, err := h.warehouseService.Create(c.Request.Context(), tctx, appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, wh)
}

// GetByID godoc
// @ID           getWarehouseById
//
//	@Summary		Get warehouse by ID
//	@Description	Retrieve a warehouse by its ID
//	@Tags			warehouses
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			id			path		string	true	"Warehouse ID"	format(uuid)
//	@Success		200			{object}	APIResponse[WarehouseResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/warehouses/{id} [get]
func (h *WarehouseHandler) GetByID(c *gin.Context) {
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

	wh, err := h.warehouseService.Get(c.Request.Context(), tctx, warehouseID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, wh)
}

// GetByCode godoc
// @ID           getWarehouseByCode
//
//	@Summary		Get warehouse by code
//	@Description	Retrieve a warehouse by its code
//	@Tags			warehouses
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			code		path		string	true	"Warehouse Code"
//	@Success		200			{object}	APIResponse[WarehouseResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/warehouses/code/{code} [get]
func (h *WarehouseHandler) GetByCode(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	code := c.Param("code")
	if code == "" {
		h.BadRequest(c, "Warehouse code is required")
		return
	}

	wh, err := h.warehouseService.GetByCode(c.Request.Context(), tctx, code)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, wh)
}

// List godoc
// @ID           listWarehouses
//
//	@Summary		List warehouses
//	@Description	Retrieve a paginated list of the tenant's warehouses
//	@Tags			warehouses
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			search		query		string	false	"Search term (name, code)"
//	@Param			page		query		int		false	"Page number"		default(1)
//	@Param			page_size	query		int		false	"Page size"			default(20)	maximum(100)
//	@Param			order_by	query		string	false	"Order by field"	default(code)
//	@Param			order_dir	query		string	false	"Order direction"	Enums(asc, desc)	default(asc)
//	@Success		200			{object}	APIResponse[[]WarehouseResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/warehouses [get]
func (h *WarehouseHandler) List(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	filter := bindFilter(c)

	page, err := h.warehouseService.List(c.Request.Context(), tctx, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Rename godoc
// @ID           renameWarehouse
//
//	@Summary		Rename a warehouse
//	@Description	Replace a warehouse's display name
//	@Tags			warehouses
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string					false	"Tenant ID (optional for dev)"
//	@Param			id			path		string					true	"Warehouse ID"	format(uuid)
//	@Param			request		body		RenameWarehouseRequest	true	"New warehouse name"
//	@Success		200			{object}	APIResponse[WarehouseResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/warehouses/{id}/name [put]
func (h *WarehouseHandler) Rename(c *gin.Context) {
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

	var req RenameWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	wh, err := h.warehouseService.Rename(c.Request.Context(), tctx, warehouseID, req.Name)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, wh)
}

// SetAddress godoc
// @ID           setWarehouseAddress
//
//	@Summary		Set warehouse address
//	@Description	Replace a warehouse's postal address
//	@Tags			warehouses
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string					false	"Tenant ID (optional for dev)"
//	@Param			id			path		string					true	"Warehouse ID"	format(uuid)
//	@Param			request		body		WarehouseAddressRequest	true	"New warehouse address"
//	@Success		200			{object}	APIResponse[WarehouseResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/warehouses/{id}/address [put]
func (h *WarehouseHandler) SetAddress(c *gin.Context) {
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

	var req WarehouseAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	wh, err := h.warehouseService.SetAddress(c.Request.Context(), tctx, warehouseID, req.toInput())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, wh)
}

// SetStatus godoc
// @ID           setWarehouseStatus
//
//	@Summary		Change warehouse status
//	@Description	Transition a warehouse between active, inactive and closed; closed is terminal
//	@Tags			warehouses
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string							false	"Tenant ID (optional for dev)"
//	@Param			id			path		string							true	"Warehouse ID"	format(uuid)
//	@Param			request		body		UpdateWarehouseStatusRequest	true	"New warehouse status"
//	@Success		200			{object}	APIResponse[WarehouseResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/warehouses/{id}/status [put]
func (h *WarehouseHandler) SetStatus(c *gin.Context) {
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

	var req UpdateWarehouseStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	wh, err := h.warehouseService.SetStatus(c.Request.Context(), tctx, warehouseID, warehouse.WarehouseStatus(req.Status))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, wh)
}

// Delete godoc
// @ID           deleteWarehouse
//
//	@Summary		Delete a warehouse
//	@Description	Soft-delete a warehouse; refused while the warehouse still holds inventory items
//	@Tags			warehouses
//	@Produce		json
//	@Param			X-Tenant-ID	header	string	false	"Tenant ID (optional for dev)"
//	@Param			id			path	string	true	"Warehouse ID"	format(uuid)
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/warehouses/{id} [delete]
func (h *WarehouseHandler) Delete(c *gin.Context) {
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

	if err := h.warehouseService.Delete(c.Request.Context(), tctx, warehouseID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Restore godoc
// @ID           restoreWarehouse
//
//	@Summary		Restore a deleted warehouse
//	@Description	Clear a warehouse's deletion marker
//	@Tags			warehouses
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			id			path		string	true	"Warehouse ID"	format(uuid)
//	@Success		200			{object}	APIResponse[WarehouseResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/warehouses/{id}/restore [post]
func (h *WarehouseHandler) Restore(c *gin.Context) {
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

	wh, err := h.warehouseService.Restore(c.Request.Context(), tctx, warehouseID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, wh)
}
