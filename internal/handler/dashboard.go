package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/service"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/api"
	"go.uber.org/zap"
)

// DashboardHandler implements dashboard API endpoints
type DashboardHandler struct {
	service *service.DashboardService
	logger  *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(service *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  logger,
	}
}

// GetSummary handles GET /api/v1/dashboard/summary
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	var params api.DashboardSummaryParams
	if !bindQuery(c, "days", &params.Days) {
		return
	}

	// Default to 7 days if not specified
	days := 7
	if params.Days != nil {
		days = *params.Days
	}

	summary, err := h.service.GetSummary(c.Request.Context(), userID(c), days)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get dashboard summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}
