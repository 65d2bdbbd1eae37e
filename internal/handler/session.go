package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/scheduler"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/api"
	"go.uber.org/zap"
)

// SessionHandler starts and stops the per-user notification scheduler
type SessionHandler struct {
	manager *scheduler.Manager
	logger  *zap.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(manager *scheduler.Manager, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		logger:  logger,
	}
}

// StartSession handles POST /api/v1/session/start. Signing in twice keeps the
// running scheduler; scheduler_active is false when scheduling is disabled.
func (h *SessionHandler) StartSession(c *gin.Context) {
	started := h.manager.SignIn(c.Request.Context(), userID(c))
	h.logger.Info("Session started",
		zap.String("user_id", userID(c)),
		zap.Bool("scheduler_started", started),
	)
	c.JSON(http.StatusOK, api.SessionResponse{SchedulerActive: h.manager.Running(userID(c))})
}

// EndSession handles POST /api/v1/session/end. The scheduler stops and the
// user's notifications are dropped.
func (h *SessionHandler) EndSession(c *gin.Context) {
	stopped := h.manager.SignOut(userID(c))
	h.logger.Info("Session ended",
		zap.String("user_id", userID(c)),
		zap.Bool("scheduler_stopped", stopped),
	)
	c.JSON(http.StatusOK, api.SessionResponse{SchedulerActive: false})
}
