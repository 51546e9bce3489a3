package handler

import (
	"github.com/gin-gonic/gin"

	appinventory "github.com/ims/engine/internal/application/inventory"
	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
)

// AlertHandler handles inventory alert API endpoints
type AlertHandler struct {
	BaseHandler
	alertService *appinventory.AlertService
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(alertService *appinventory.AlertService) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
	}
}

// ListOpen godoc
// @ID           listOpenAlerts
//
//	@Summary		List open alerts
//	@Description	Retrieve the tenant's unacknowledged alerts, newest first, optionally filtered by kind
//	@Tags			alerts
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			kind		query		string	false	"Alert kind"	Enums(LOW_STOCK, OUT_OF_STOCK, EXPIRING, EXPIRED, RESERVATION_EXPIRING, UNUSUAL_ADJUSTMENT)
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Page size"		default(20)	maximum(100)
//	@Success		200			{object}	APIResponse[[]AlertResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/alerts [get]
func (h *AlertHandler) ListOpen(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var kind *inventory.AlertKind
	if raw := c.Query("kind"); raw != "" {
		parsed := inventory.AlertKind(raw)
		if !parsed.IsValid() {
			h.BadRequest(c, "Unknown alert kind")
			return
		}
		kind = &parsed
	}

	filter := bindFilter(c)

	page, err := h.alertService.ListOpen(c.Request.Context(), tctx, kind, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Acknowledge godoc
// @ID           acknowledgeAlert
//
//	@Summary		Acknowledge an alert
//	@Description	Mark an alert as seen; acknowledged alerts leave the open list
//	@Tags			alerts
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			id			path		string	true	"Alert ID"	format(uuid)
//	@Success		200			{object}	APIResponse[AlertResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/alerts/{id}/acknowledge [post]
func (h *AlertHandler) Acknowledge(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	alertID, err := shared.ParseAlertID(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid alert ID format")
		return
	}

	alert, err := h.alertService.Acknowledge(c.Request.Context(), tctx, alertID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, alert)
}
