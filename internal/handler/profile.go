package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/service"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/api"
	"go.uber.org/zap"
)

// ProfileHandler implements the profile endpoints
type ProfileHandler struct {
	service *service.ProfileService
	logger  *zap.Logger
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(service *service.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		service: service,
		logger:  logger,
	}
}

// GetProfile handles GET /api/v1/profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	profile, err := h.service.Get(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to retrieve profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/v1/profile
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req api.ProfileRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	profile, err := h.service.Update(c.Request.Context(), userID(c), req.DisplayName, req.HeightCM)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update profile")
		return
	}

	h.logger.Info("Profile updated", zap.String("user_id", userID(c)))
	c.JSON(http.StatusOK, profile)
}
