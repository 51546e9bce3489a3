package handler

import (
	"github.com/gin-gonic/gin"

	appcatalog "github.com/ims/engine/internal/application/catalog"
	"github.com/ims/engine/internal/domain/catalog"
	"github.com/ims/engine/internal/domain/shared"
)

// ProductHandler handles product catalog API endpoints
type ProductHandler struct {
	BaseHandler
	productService *appcatalog.ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService *appcatalog.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// CreateProductRequest represents a request to create a new product
// @Description	Request body for creating a new product
type CreateProductRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200" example:"Espresso Beans"`
	Description string `json:"description" binding:"max=2000" example:"Dark roast, 1kg bags"`
}

// UpdateProductRequest represents a request to update a product
//
//	@Description	Request body for updating a product's basic information
type UpdateProductRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200" example:"Espresso Beans Premium"`
	Description string `json:"description" binding:"max=2000" example:"Single origin dark roast"`
}

// UpdateProductStatusRequest represents a request to change a product's status
//
//	@Description	Request body for changing a product's status
type UpdateProductStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive discontinued" example:"inactive"`
}

// Create godoc
// @ID           createProduct
//
//	@Summary		Create a new product
//	@Description	Create a new product; the product starts active
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string					false	"Tenant ID (optional for dev)"
//	@Param			request		body		CreateProductRequest	true	"Product creation request"
//	@Success		201			{object}	APIResponse[ProductResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	product, err := h.productService.Create(c.Request.Context(), tctx, appcatalog.CreateProductRequest{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, product)
}

// GetByID godoc
// @ID           getProductById
//
//	@Summary		Get product by ID
//	@Description	Retrieve a product by its ID
//	@Tags			products
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			id			path		string	true	"Product ID"	format(uuid)
//	@Success		200			{object}	APIResponse[ProductResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/products/{id} [get]
func (h *ProductHandler) GetByID(c *gin.Context) {
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

	product, err := h.productService.Get(c.Request.Context(), tctx, productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, product)
}

// List godoc
// @ID           listProducts
//
//	@Summary		List products
//	@Description	Retrieve a paginated list of the tenant's products
//	@Tags			products
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			search		query		string	false	"Search term (name)"
//	@Param			page		query		int		false	"Page number"		default(1)
//	@Param			page_size	query		int		false	"Page size"			default(20)	maximum(100)
//	@Param			order_by	query		string	false	"Order by field"	default(name)
//	@Param			order_dir	query		string	false	"Order direction"	Enums(asc, desc)	default(asc)
//	@Success		200			{object}	APIResponse[[]ProductResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/products [get]
func (h *ProductHandler) List(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	filter := bindFilter(c)

	page, err := h.productService.List(c.Request.Context(), tctx, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Update godoc
// @ID           updateProduct
//
//	@Summary		Update a product
//	@Description	Replace a product's name and description
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string					false	"Tenant ID (optional for dev)"
//	@Param			id			path		string					true	"Product ID"	format(uuid)
//	@Param			request		body		UpdateProductRequest	true	"Product update request"
//	@Success		200			{object}	APIResponse[ProductResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
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

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	product, err := h.productService.Update(c.Request.Context(), tctx, productID, appcatalog.UpdateProductRequest{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, product)
}

// SetStatus godoc
// @ID           setProductStatus
//
//	@Summary		Change product status
//	@Description	Transition a product between active, inactive and discontinued
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string						false	"Tenant ID (optional for dev)"
//	@Param			id			path		string						true	"Product ID"	format(uuid)
//	@Param			request		body		UpdateProductStatusRequest	true	"New product status"
//	@Success		200			{object}	APIResponse[ProductResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/products/{id}/status [put]
func (h *ProductHandler) SetStatus(c *gin.Context) {
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

	var req UpdateProductStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	product, err := h.productService.SetStatus(c.Request.Context(), tctx, productID, catalog.ProductStatus(req.Status))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, product)
}

// Delete godoc
// @ID           deleteProduct
//
//	@Summary		Delete a product
//	@Description	Soft-delete a product and its variants; refused while any variant still holds stock
//	@Tags			products
//	@Produce		json
//	@Param			X-Tenant-ID	header	string	false	"Tenant ID (optional for dev)"
//	@Param			id			path	string	true	"Product ID"	format(uuid)
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
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

	if err := h.productService.Delete(c.Request.Context(), tctx, productID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Restore godoc
// @ID           restoreProduct
//
//	@Summary		Restore a deleted product
//	@Description	Clear a product's deletion marker
//	@Tags			products
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			id			path		string	true	"Product ID"	format(uuid)
//	@Success		200			{object}	APIResponse[ProductResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/catalog/products/{id}/restore [post]
func (h *ProductHandler) Restore(c *gin.Context) {
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

	product, err := h.productService.Restore(c.Request.Context(), tctx, productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, product)
}
