package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	appcatalog "github.com/ims/engine/internal/application/catalog"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/domain/shared/valueobject"
)

// VariantHandler handles variant catalog API endpoints
type VariantHandler struct {
	BaseHandler
	variantService *appcatalog.VariantService
}

// NewVariantHandler creates a new VariantHandler
func NewVariantHandler(variantService *appcatalog.VariantService) *VariantHandler {
	return &VariantHandler{
		variantService: variantService,
	}
}

// UnitRequest represents a unit of measure in requests
//
//	@Description	A unit of measure: normalized code, display name and category
type UnitRequest struct {
	Code     string `json:"code" binding:"required,max=20" example:"PCS"`
	Name     string `json:"name" binding:"required,max=50" example:"Pieces"`
	Category string `json:"category" binding:"required,oneof=count weight volume length" example:"count"`
}

// UnitConversionRequest represents one conversion entry in requests
//
//	@Description	A directed unit conversion: quantity in From times Factor equals quantity in To
type UnitConversionRequest struct {
	From   UnitRequest `json:"from" binding:"required"`
	To     UnitRequest `json:"to" binding:"required"`
	Factor string      `json:"factor" binding:"required" example:"12"`
}

// CreateVariantRequest represents a request to create a new variant
// @Description	Request body for creating a new variant; SKU and base unit are immutable after creation
type CreateVariantRequest struct {
	ProductID         string                  `json:"product_id" binding:"required,uuid" example:"7d9f28a1-93b4-4bb4-9a2e-1f0a4b7c3d21"`
	SKU               string                  `json:"sku" binding:"required,min=1,max=64" example:"BEAN-1KG-DARK"`
	Name              string                  `json:"name" binding:"required,min=1,max=200" example:"1kg Dark Roast"`
	BaseUnit          *UnitRequest            `json:"base_unit"`
	Conversions       []UnitConversionRequest `json:"conversions"`
	LowStockThreshold *string                 `json:"low_stock_threshold" example:"10"`
}

// RenameVariantRequest represents a request to rename a variant
//
//	@Description	Request body for renaming a variant
type RenameVariantRequest struct {
	Name string `json:"name" binding:"required,min=1,max=200" example:"1kg Dark Roast Premium"`
}

// LowStockThresholdRequest represents a request to set a variant's low-stock threshold
//
//	@Description	Request body for setting or clearing a variant's low-stock threshold
type LowStockThresholdRequest struct {
	Threshold *string `json:"threshold" example:"25"`
}

// RemoveConversionRequest represents a request to remove a conversion entry
//
//	@Description	Request body for removing a unit conversion entry
type RemoveConversionRequest struct {
	FromCode string `json:"from_code" binding:"required,max=20" example:"BOX"`
	ToCode   string `json:"to_code" binding:"required,max=20" example:"PCS"`
}

// ConvertQuantityRequest represents a unit conversion query
//
//	@Description	Request body for converting a quantity between a variant's registered units
type ConvertQuantityRequest struct {
	Quantity string `json:"quantity" binding:"required" example:"3"`
	UnitCode string `json:"unit_code" binding:"required,max=20" example:"BOX"`
}

func (r *UnitRequest) toUnit() (valueobject.Unit, error) {
	return valueobject.NewUnit(r.Code, r.Name, valueobject.UnitCategory(r.Category))
}

func (r *UnitConversionRequest) toConversion() (valueobject.UnitConversion, error) {
	from, err := r.From.toUnit()
	if err != nil {
		return valueobject.UnitConversion{}, err
	}
	to, err := r.To.toUnit()
	if err != nil {
		return valueobject.UnitConversion{}, err
	}
	factor, err := toDecimalFromString(r.Factor)
	if err != nil {
		return valueobject.UnitConversion{}, err
	}
	return valueobject.NewUnitConversion(from, to, factor)
}

// Create godoc
// @ID           createVariant
//
//	@Summary		Create a new variant
//	@Description	Create a sellable variant under a product; the SKU must be unique per tenant
//	@Tags			variants
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string					false	"Tenant ID (optional for dev)"
//	@Param			request		body		CreateVariantRequest	true	"Variant creation request"
//	@Success		201			{object}	APIResponse[VariantResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/variants [post]
func (h *VariantHandler) Create(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req CreateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	productID, err := shared.ParseProductID(req.ProductID)
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	sku, err := valueobject.NewSKU(req.SKU)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := appcatalog.CreateVariantRequest{
		ProductID: productID,
		SKU:       sku,
		Name:      req.Name,
	}

	if req.BaseUnit != nil {
		unit, err := req.BaseUnit.toUnit()
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		appReq.BaseUnit = unit
	}

	for _, cr := range req.Conversions {
		conversion, err := cr.toConversion()
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		appReq.Conversions = append(appReq.Conversions, conversion)
	}

	if req.LowStockThreshold != nil {
		threshold, err := parseQuantity(*req.LowStockThreshold)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		appReq.LowStockThreshold = &threshold
	}

	variant, err := h.variantService.Create(c.Request.Context(), tctx, appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, variant)
}

// GetByID godoc
// @ID           getVariantById
//
//	@Summary		Get variant by ID
//	@Description	Retrieve a variant by its ID
//	@Tags			variants
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			id			path		string	true	"Variant ID"	format(uuid)
//	@Success		200			{object}	APIResponse[VariantResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/variants/{id} [get]
func (h *VariantHandler) GetByID(c *gin.Context) {
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

	variant, err := h.variantService.Get(c.Request.Context(), tctx, variantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, variant)
}

// GetBySKU godoc
// @ID           getVariantBySku
//
//	@Summary		Get variant by SKU
//	@Description	Retrieve a variant by its SKU
//	@Tags			variants
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			sku			path		string	true	"Variant SKU"
//	@Success		200			{object}	APIResponse[VariantResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/variants/sku/{sku} [get]
func (h *VariantHandler) GetBySKU(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	sku, err := valueobject.NewSKU(c.Param("sku"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	variant, err := h.variantService.GetBySKU(c.Request.Context(), tctx, sku)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, variant)
}

// List godoc
// @ID           listVariants
//
//	@Summary		List variants
//	@Description	Retrieve a paginated list of the tenant's variants
//	@Tags			variants
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			search		query		string	false	"Search term (name, SKU)"
//	@Param			page		query		int		false	"Page number"		default(1)
//	@Param			page_size	query		int		false	"Page size"			default(20)	maximum(100)
//	@Param			order_by	query		string	false	"Order by field"	default(sku)
//	@Param			order_dir	query		string	false	"Order direction"	Enums(asc, desc)	default(asc)
//	@Success		200			{object}	APIResponse[[]VariantResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/variants [get]
func (h *VariantHandler) List(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	filter := bindFilter(c)

	page, err := h.variantService.List(c.Request.Context(), tctx, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ListByProduct godoc
// @ID           listVariantsByProduct
//
//	@Summary		List variants of a product
//	@Description	Retrieve all variants belonging to a product
//	@Tags			variants
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			id			path		string	true	"Product ID"	format(uuid)
//	@Success		200			{object}	APIResponse[[]VariantResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/products/{id}/variants [get]
func (h *VariantHandler) ListByProduct(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	productID, err := shared.ParseProductID(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	variants, err := h.variantService.ListByProduct(c.Request.Context(), tctx, productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, variants)
}

// Rename godoc
// @ID           renameVariant
//
//	@Summary		Rename a variant
//	@Description	Replace a variant's display name
//	@Tags			variants
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string					false	"Tenant ID (optional for dev)"
//	@Param			id			path		string					true	"Variant ID"	format(uuid)
//	@Param			request		body		RenameVariantRequest	true	"New variant name"
//	@Success		200			{object}	APIResponse[VariantResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/variants/{id}/name [put]
func (h *VariantHandler) Rename(c *gin.Context) {
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

	var req RenameVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	variant, err := h.variantService.Rename(c.Request.Context(), tctx, variantID, req.Name)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, variant)
}

// SetLowStockThreshold godoc
// @ID           setVariantLowStockThreshold
//
//	@Summary		Set low-stock threshold
//	@Description	Set or clear the available-stock level below which the variant is reported as low
//	@Tags			variants
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string						false	"Tenant ID (optional for dev)"
//	@Param			id			path		string						true	"Variant ID"	format(uuid)
//	@Param			request		body		LowStockThresholdRequest	true	"Threshold; null clears it"
//	@Success		200			{object}	APIResponse[VariantResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/variants/{id}/low-stock-threshold [put]
func (h *VariantHandler) SetLowStockThreshold(c *gin.Context) {
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

	var req LowStockThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var threshold *valueobject.Quantity
	if req.Threshold != nil {
		parsed, err := parseQuantity(*req.Threshold)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		threshold = &parsed
	}

	variant, err := h.variantService.SetLowStockThreshold(c.Request.Context(), tctx, variantID, threshold)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, variant)
}

// AddConversion godoc
// @ID           addVariantConversion
//
//	@Summary		Add a unit conversion
//	@Description	Register a conversion entry between two units of the same category
//	@Tags			variants
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string					false	"Tenant ID (optional for dev)"
//	@Param			id			path		string					true	"Variant ID"	format(uuid)
//	@Param			request		body		UnitConversionRequest	true	"Conversion entry"
//	@Success		200			{object}	APIResponse[VariantResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/variants/{id}/conversions [post]
func (h *VariantHandler) AddConversion(c *gin.Context) {
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

	var req UnitConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	conversion, err := req.toConversion()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	variant, err := h.variantService.AddConversion(c.Request.Context(), tctx, variantID, conversion)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, variant)
}

// RemoveConversion godoc
// @ID           removeVariantConversion
//
//	@Summary		Remove a unit conversion
//	@Description	Remove a registered conversion entry by its unit codes
//	@Tags			variants
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string						false	"Tenant ID (optional for dev)"
//	@Param			id			path		string						true	"Variant ID"	format(uuid)
//	@Param			request		body		RemoveConversionRequest		true	"Conversion unit codes"
//	@Success		200			{object}	APIResponse[VariantResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/variants/{id}/conversions/remove [post]
func (h *VariantHandler) RemoveConversion(c *gin.Context) {
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

	var req RemoveConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	variant, err := h.variantService.RemoveConversion(c.Request.Context(), tctx, variantID, req.FromCode, req.ToCode)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, variant)
}

// Delete godoc
// @ID           deleteVariant
//
//	@Summary		Delete a variant
//	@Description	Soft-delete a variant; refused while the variant still holds stock
//	@Tags			variants
//	@Produce		json
//	@Param			X-Tenant-ID	header	string	false	"Tenant ID (optional for dev)"
//	@Param			id			path	string	true	"Variant ID"	format(uuid)
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/variants/{id} [delete]
func (h *VariantHandler) Delete(c *gin.Context) {
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

	if err := h.variantService.Delete(c.Request.Context(), tctx, variantID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Restore godoc
// @ID           restoreVariant
//
//	@Summary		Restore a deleted variant
//	@Description	Clear a variant's deletion marker; refused while the owning product is deleted
//	@Tags			variants
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			id			path		string	true	"Variant ID"	format(uuid)
//	@Success		200			{object}	APIResponse[VariantResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/variants/{id}/restore [post]
func (h *VariantHandler) Restore(c *gin.Context) {
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

	variant, err := h.variantService.Restore(c.Request.Context(), tctx, variantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, variant)
}

// ConvertToBase godoc
// @ID           convertVariantToBase
//
//	@Summary		Convert a quantity to the base unit
//	@Description	Express a quantity given in one of the variant's registered units in its base unit
//	@Tags			variants
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string					false	"Tenant ID (optional for dev)"
//	@Param			id			path		string					true	"Variant ID"	format(uuid)
//	@Param			request		body		ConvertQuantityRequest	true	"Quantity and source unit"
//	@Success		200			{object}	APIResponse[QuantityConversionResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/variants/{id}/convert/to-base [post]
func (h *VariantHandler) ConvertToBase(c *gin.Context) {
	h.convert(c, h.variantService.ConvertToBase)
}

// ConvertFromBase godoc
// @ID           convertVariantFromBase
//
//	@Summary		Convert a quantity from the base unit
//	@Description	Express a base-unit quantity in another of the variant's registered units
//	@Tags			variants
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string					false	"Tenant ID (optional for dev)"
//	@Param			id			path		string					true	"Variant ID"	format(uuid)
//	@Param			request		body		ConvertQuantityRequest	true	"Quantity and target unit"
//	@Success		200			{object}	APIResponse[QuantityConversionResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/variants/{id}/convert/from-base [post]
func (h *VariantHandler) ConvertFromBase(c *gin.Context) {
	h.convert(c, h.variantService.ConvertFromBase)
}

func (h *VariantHandler) convert(
	c *gin.Context,
	fn func(ctx context.Context, tctx shared.TenantContext, variantID shared.VariantID, quantity valueobject.Quantity, unitCode string) (*appcatalog.QuantityConversionResponse, error),
) {
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

	var req ConvertQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	quantity, err := parseQuantity(req.Quantity)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := fn(c.Request.Context(), tctx, variantID, quantity, req.UnitCode)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
