package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	notificationapp "github.com/pharmapos/backend/internal/application/notification"
	"github.com/pharmapos/backend/internal/infrastructure/realtime"
	"github.com/pharmapos/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 4 * 1024
)

// NotificationHandler serves the notification center and its realtime streams
type NotificationHandler struct {
	BaseHandler
	service  *notificationapp.NotificationService
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NotificationHandlerConfig configures the realtime endpoints
type NotificationHandlerConfig struct {
	// AllowedOrigins restricts WebSocket upgrades; empty allows any origin
	AllowedOrigins []string
}

// NewNotificationHandler creates a new NotificationHandler. hub may be nil, which disables streaming.
func NewNotificationHandler(service *notificationapp.NotificationService, hub *realtime.Hub, config NotificationHandlerConfig, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &NotificationHandler{service: service, hub: hub, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if len(config.AllowedOrigins) == 0 || origin == "" {
				return true
			}
			return slices.Contains(config.AllowedOrigins, origin) || slices.Contains(config.AllowedOrigins, "*")
		},
	}
	return h
}

// List godoc
// @ID           listNotifications
// @Summary      List notifications
// @Description  Notifications addressed to the caller or broadcast to everyone, newest first
// @Tags         notifications
// @Produce      json
// @Param        type query string false "Type"
// @Param        priority query string false "Priority" Enums(low, normal, high, critical)
// @Param        is_read query bool false "Read filter"
// @Param        since query string false "Created after (RFC 3339)"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]notificationapp.NotificationResponse]
// @Security     BearerAuth
// @Router       /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var filter notificationapp.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	items, total, err := h.service.List(c.Request.Context(), userID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// Poll godoc
// @ID           pollNotifications
// @Summary      Poll notifications
// @Description  Returns notifications created after since (default: last 24 hours) with the unread count
// @Tags         notifications
// @Produce      json
// @Param        since query string false "Cursor (RFC 3339), usually the previous server_time"
// @Success      200 {object} APIResponse[notificationapp.PollResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notifications/poll [get]
func (h *NotificationHandler) Poll(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var since *time.Time
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.ValidationError(c, "Request validation failed", []dto.ValidationDetail{
				{Field: "since", Message: "Must be an RFC 3339 timestamp"},
			})
			return
		}
		since = &t
	}
	result, err := h.service.Poll(c.Request.Context(), userID, since)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// UnreadCount godoc
// @ID           unreadNotificationCount
// @Summary      Unread count
// @Tags         notifications
// @Produce      json
// @Success      200 {object} APIResponse[notificationapp.UnreadCountResponse]
// @Security     BearerAuth
// @Router       /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	count, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, notificationapp.UnreadCountResponse{Count: count})
}

// Create godoc
// @ID           createNotification
// @Summary      Create notification
// @Description  Sends a notification to one user, or to everyone when user_id is omitted
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        request body notificationapp.CreateNotificationRequest true "Notification"
// @Success      201 {object} APIResponse[notificationapp.NotificationResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notifications [post]
func (h *NotificationHandler) Create(c *gin.Context) {
	var req notificationapp.CreateNotificationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	n, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, n)
}

// MarkRead godoc
// @ID           markNotificationRead
// @Summary      Mark as read
// @Tags         notifications
// @Produce      json
// @Param        id path string true "Notification ID" format(uuid)
// @Success      200 {object} APIResponse[notificationapp.NotificationResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	n, err := h.service.MarkRead(c.Request.Context(), userID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, n)
}

// MarkAllRead godoc
// @ID           markAllNotificationsRead
// @Summary      Mark all as read
// @Tags         notifications
// @Produce      json
// @Success      200 {object} APIResponse[notificationapp.AffectedResponse]
// @Security     BearerAuth
// @Router       /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	affected, err := h.service.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, notificationapp.AffectedResponse{Affected: affected})
}

// Delete godoc
// @ID           deleteNotification
// @Summary      Delete notification
// @Tags         notifications
// @Param        id path string true "Notification ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notifications/{id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// DeleteAllRead godoc
// @ID           deleteReadNotifications
// @Summary      Delete read notifications
// @Tags         notifications
// @Produce      json
// @Success      200 {object} APIResponse[notificationapp.AffectedResponse]
// @Security     BearerAuth
// @Router       /notifications/read [delete]
func (h *NotificationHandler) DeleteAllRead(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	affected, err := h.service.DeleteAllRead(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, notificationapp.AffectedResponse{Affected: affected})
}

// register opens a hub subscription, writing the error response when none is available
func (h *NotificationHandler) register(c *gin.Context) (*realtime.Client, bool) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return nil, false
	}
	if h.hub == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeFeatureUnavailable, "Realtime notifications are not enabled")
		return nil, false
	}
	client, err := h.hub.Register(userID)
	if err != nil {
		if errors.Is(err, realtime.ErrTooManyClients) {
			h.Error(c, http.StatusServiceUnavailable, "ERR_MAX_CONNECTIONS_REACHED", "Maximum number of realtime connections reached")
			return nil, false
		}
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeFeatureUnavailable, err.Error())
		return nil, false
	}
	return client, true
}

// Stream godoc
// @ID           streamNotifications
// @Summary      Notification stream (SSE)
// @Description  Server-Sent Events: connected, notification and heartbeat events. EventSource clients may pass access_token as a query parameter.
// @Tags         notifications
// @Produce      text/event-stream
// @Param        access_token query string false "Access token for EventSource clients"
// @Success      200 {string} string "event stream"
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notifications/stream [get]
func (h *NotificationHandler) Stream(c *gin.Context) {
	client, ok := h.register(c)
	if !ok {
		return
	}
	defer h.hub.Unregister(client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	reqCtx := c.Request.Context()
	for {
		select {
		case <-reqCtx.Done():
			return
		case <-client.Done():
			return
		case msg := <-client.C():
			if err := writeSSE(c.Writer, msg); err != nil {
				h.logger.Debug("SSE write failed", zap.String("client_id", client.ID), zap.Error(err))
				return
			}
			c.Writer.Flush()
		}
	}
}

func writeSSE(w io.Writer, msg realtime.Message) error {
	if msg.ID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", msg.ID); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data)
	return err
}

// WebSocket godoc
// @ID           notificationWebSocket
// @Summary      Notification stream (WebSocket)
// @Description  Pushes the same events as the SSE stream as JSON text frames. Browsers pass access_token as a query parameter.
// @Tags         notifications
// @Param        access_token query string false "Access token"
// @Success      101 {string} string "switching protocols"
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notifications/ws [get]
func (h *NotificationHandler) WebSocket(c *gin.Context) {
	client, ok := h.register(c)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written the error response
		h.hub.Unregister(client)
		h.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}

	go h.wsReadPump(conn, client)
	h.wsWritePump(conn, client)
}

// wsReadPump discards inbound frames and keeps the read deadline fresh on pong
func (h *NotificationHandler) wsReadPump(conn *websocket.Conn, client *realtime.Client) {
	defer h.hub.Unregister(client)
	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("WebSocket closed unexpectedly", zap.String("client_id", client.ID), zap.Error(err))
			}
			return
		}
	}
}

func (h *NotificationHandler) wsWritePump(conn *websocket.Conn, client *realtime.Client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		h.hub.Unregister(client)
		_ = conn.Close()
	}()
	for {
		select {
		case <-client.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-client.C():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
