package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ims/engine/internal/domain/inventory"
	"github.com/ims/engine/internal/domain/shared"
	"github.com/ims/engine/internal/infrastructure/notification"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 54 * time.Second
)

// StreamHandler upgrades clients to a websocket and relays notification hub
// envelopes for the groups the client asked for.
type StreamHandler struct {
	BaseHandler
	hub      *notification.Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a new StreamHandler
func NewStreamHandler(hub *notification.Hub, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Token auth happens before the upgrade; cross-origin browser
			// clients are expected.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
}

// Stream godoc
// @ID           streamEvents
//
//	@Summary		Stream inventory events
//	@Description	Upgrade to a websocket delivering real-time inventory events for the requested groups. At least one of warehouse_id, variant_id, alert_kind or dashboard must be given. Slow consumers lose their oldest messages first.
//	@Tags			stream
//	@Param			X-Tenant-ID		header	string	false	"Tenant ID (optional for dev)"
//	@Param			warehouse_id	query	string	false	"Subscribe to one warehouse's stock and reservation events"	format(uuid)
//	@Param			variant_id		query	string	false	"Subscribe to one variant's events across warehouses"			format(uuid)
//	@Param			alert_kind		query	string	false	"Subscribe to alerts of one kind"	Enums(LOW_STOCK, OUT_OF_STOCK, EXPIRING, EXPIRED, RESERVATION_EXPIRING, UNUSUAL_ADJUSTMENT)
//	@Param			dashboard		query	boolean	false	"Subscribe to coalesced dashboard refreshes"
//	@Success		101
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/inventory/stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	tctx, err := getTenantContext(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	groups, err := h.buildGroups(c, tctx)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if len(groups) == 0 {
		h.BadRequest(c, "At least one subscription group is required")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response
		h.logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}

	sub := h.hub.Subscribe(groups...)

	h.logger.Info("Stream client connected",
		zap.String("tenant_id", tctx.TenantID.String()),
		zap.Strings("groups", groups),
	)

	go h.writeLoop(conn, sub)
	h.readLoop(conn, sub)
}

// buildGroups translates the query parameters into hub group keys.
func (h *StreamHandler) buildGroups(c *gin.Context, tctx shared.TenantContext) ([]string, error) {
	var groups []string
	tenantID := tctx.TenantID.UUID

	for _, raw := range c.QueryArray("warehouse_id") {
		warehouseID, err := shared.ParseWarehouseID(raw)
		if err != nil {
			return nil, err
		}
		groups = append(groups, notification.WarehouseGroup(tenantID, warehouseID))
	}

	for _, raw := range c.QueryArray("variant_id") {
		variantID, err := shared.ParseVariantID(raw)
		if err != nil {
			return nil, err
		}
		groups = append(groups, notification.VariantGroup(tenantID, variantID))
	}

	for _, raw := range c.QueryArray("alert_kind") {
		kind := inventory.AlertKind(raw)
		if !kind.IsValid() {
			return nil, errUnknownAlertKind
		}
		groups = append(groups, notification.AlertGroup(tenantID, kind))
	}

	if c.Query("dashboard") == "true" {
		groups = append(groups, notification.DashboardGroup(tenantID))
	}

	return groups, nil
}

// writeLoop relays hub envelopes to the websocket and keeps the connection
// alive with pings. It exits when the subscription channel closes or a write
// fails.
func (h *StreamHandler) writeLoop(conn *websocket.Conn, sub *notification.Subscription) {
	ticker := time.NewTicker(streamPingPeriod)
	defer func() {
		ticker.Stop()
		sub.Close()
		conn.Close()
	}()

	for {
		select {
		case env, ok := <-sub.Events():
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains client frames so pongs and close frames are processed. The
// stream is one-way; any payload the client sends is ignored.
func (h *StreamHandler) readLoop(conn *websocket.Conn, sub *notification.Subscription) {
	defer func() {
		sub.Close()
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

var errUnknownAlertKind = errors.New("unknown alert kind")
