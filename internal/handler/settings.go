package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/service"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/api"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

// SettingsHandler implements the notification settings endpoints
type SettingsHandler struct {
	service *service.SettingsService
	logger  *zap.Logger
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(service *service.SettingsService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		logger:  logger,
	}
}

// ListSettings handles GET /api/v1/settings/notifications. A user without
// settings gets the defaults created on first read.
func (h *SettingsHandler) ListSettings(c *gin.Context) {
	settings, err := h.service.List(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to retrieve notification settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// SaveSetting handles PUT /api/v1/settings/notifications/:type
func (h *SettingsHandler) SaveSetting(c *gin.Context) {
	settingType := model.SettingType(c.Param("type"))
	if !settingType.Valid() {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Code:    codeNotFound,
			Message: "Unknown notification setting type",
		})
		return
	}

	var req api.NotificationSettingRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	in := service.SettingInput{
		IsEnabled: req.IsEnabled,
		Frequency: model.Frequency(req.Frequency),
		Time:      req.Time,
		Days:      req.Days,
	}
	for _, t := range req.MeasurementTypes {
		in.MeasurementTypes = append(in.MeasurementTypes, model.RecordType(t))
	}

	setting, err := h.service.Save(c.Request.Context(), userID(c), settingType, in)
	if err != nil {
		respondError(c, h.logger, err, "Failed to save notification setting")
		return
	}

	h.logger.Info("Notification setting saved",
		zap.String("user_id", userID(c)),
		zap.String("setting_type", string(settingType)),
		zap.Bool("enabled", setting.IsEnabled),
	)
	c.JSON(http.StatusOK, setting)
}
