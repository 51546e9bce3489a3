package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	appinventory "github.com/ims/engine/internal/application/inventory"
	"github.com/ims/engine/internal/domain/inventory"
)

// MetricsHandler handles dashboard metrics API endpoints
type MetricsHandler struct {
	BaseHandler
	metricsService *appinventory.MetricsService
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(metricsService *appinventory.MetricsService) *MetricsHandler {
	return &MetricsHandler{
		metricsService: metricsService,
	}
}

// RefreshDashboardRequest represents a request to force a dashboard recomputation
//
//	@Description	Request body for recomputing a dashboard slice, bypassing the cache
type RefreshDashboardRequest struct {
	Scope  string `json:"scope" binding:"required" example:"global"`
	Period string `json:"period" binding:"required,oneof=hour day week month" example:"day"`
}

// GetDashboard godoc
// @ID           getDashboard
//
//	@Summary		Get dashboard metrics
//	@Description	Retrieve the aggregated dashboard for a scope and standard period, served from the two-level cache when fresh
//	@Tags			dashboard
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			scope		query		string	false	"Metrics scope: global or warehouse:<uuid>"	default(global)
//	@Param			period		query		string	false	"Period type"	Enums(hour, day, week, month)	default(day)
//	@Success		200			{object}	APIResponse[DashboardMetrics]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/dashboard [get]
func (h *MetricsHandler) GetDashboard(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	scope, err := inventory.ParseMetricsScope(c.DefaultQuery("scope", string(inventory.MetricsScopeGlobal)))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	periodType := inventory.MetricsPeriodType(c.DefaultQuery("period", string(inventory.MetricsPeriodDay)))
	if !periodType.IsValid() || periodType == inventory.MetricsPeriodCustom {
		h.BadRequest(c, "Invalid period type")
		return
	}

	metrics, err := h.metricsService.GetDashboard(c.Request.Context(), tctx, scope, periodType)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, metrics)
}

// GetDashboardForPeriod godoc
// @ID           getDashboardForPeriod
//
//	@Summary		Get dashboard metrics for a custom period
//	@Description	Retrieve the aggregated dashboard for an arbitrary time range
//	@Tags			dashboard
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			scope		query		string	false	"Metrics scope: global or warehouse:<uuid>"	default(global)
//	@Param			start		query		string	true	"Start of range (RFC 3339)"
//	@Param			end			query		string	true	"End of range (RFC 3339)"
//	@Success		200			{object}	APIResponse[DashboardMetrics]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/dashboard/custom [get]
func (h *MetricsHandler) GetDashboardForPeriod(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	scope, err := inventory.ParseMetricsScope(c.DefaultQuery("scope", string(inventory.MetricsScopeGlobal)))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		h.BadRequest(c, "Invalid start time")
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		h.BadRequest(c, "Invalid end time")
		return
	}

	metrics, err := h.metricsService.GetDashboardForPeriod(c.Request.Context(), tctx, scope, start, end)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, metrics)
}

// Refresh godoc
// @ID           refreshDashboard
//
//	@Summary		Refresh dashboard metrics
//	@Description	Recompute a dashboard slice immediately, bypassing both cache levels
//	@Tags			dashboard
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header	string					false	"Tenant ID (optional for dev)"
//	@Param			request		body	RefreshDashboardRequest	true	"Scope and period to recompute"
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/dashboard/refresh [post]
func (h *MetricsHandler) Refresh(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req RefreshDashboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	scope, err := inventory.ParseMetricsScope(req.Scope)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.metricsService.Refresh(c.Request.Context(), tctx.TenantID, scope, inventory.MetricsPeriodType(req.Period)); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
