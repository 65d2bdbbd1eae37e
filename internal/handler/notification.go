package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/notification"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/api"
	"go.uber.org/zap"
)

// NotificationHandler exposes the signed-in user's in-memory notifications
type NotificationHandler struct {
	dispatcher *notification.Dispatcher
	logger     *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(dispatcher *notification.Dispatcher, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (h *NotificationHandler) store(c *gin.Context) *notification.Store {
	return h.dispatcher.Store(userID(c))
}

func (h *NotificationHandler) respondList(c *gin.Context, store *notification.Store) {
	c.JSON(http.StatusOK, api.NotificationListResponse{
		Notifications: store.List(),
		UnreadCount:   store.UnreadCount(),
	})
}

// ListNotifications handles GET /api/v1/notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	h.respondList(c, h.store(c))
}

// MarkRead handles POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	store := h.store(c)
	if !store.MarkRead(c.Param("id")) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Code: codeNotFound, Message: "Notification not found"})
		return
	}
	h.respondList(c, store)
}

// MarkAllRead handles POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	store := h.store(c)
	store.MarkAllRead()
	h.respondList(c, store)
}

// RemoveNotification handles DELETE /api/v1/notifications/:id
func (h *NotificationHandler) RemoveNotification(c *gin.Context) {
	if !h.store(c).Remove(c.Param("id")) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Code: codeNotFound, Message: "Notification not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearNotifications handles DELETE /api/v1/notifications
func (h *NotificationHandler) ClearNotifications(c *gin.Context) {
	h.store(c).Clear()
	c.Status(http.StatusNoContent)
}

// CompactNotifications handles POST /api/v1/notifications/compact
func (h *NotificationHandler) CompactNotifications(c *gin.Context) {
	store := h.store(c)
	removed := store.Compact()
	h.logger.Info("Notifications compacted",
		zap.String("user_id", userID(c)),
		zap.Int("removed", removed),
	)
	c.JSON(http.StatusOK, api.CompactResponse{Removed: removed, UnreadCount: store.UnreadCount()})
}
