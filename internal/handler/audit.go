package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/audit"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/api"
	"go.uber.org/zap"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditLister reads a user's audit trail
type AuditLister interface {
	List(ctx context.Context, userID string, limit int) ([]audit.Entry, error)
}

// AuditHandler lets users read their own audit trail
type AuditHandler struct {
	audit  AuditLister
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(audit AuditLister, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  audit,
		logger: logger,
	}
}

// ListEntries handles GET /api/v1/audit
func (h *AuditHandler) ListEntries(c *gin.Context) {
	var params api.AuditLogParams
	if !bindQuery(c, "limit", &params.Limit) {
		return
	}

	limit := defaultAuditLimit
	if params.Limit != nil && *params.Limit > 0 {
		limit = min(*params.Limit, maxAuditLimit)
	}

	entries, err := h.audit.List(c.Request.Context(), userID(c), limit)
	if err != nil {
		respondError(c, h.logger, err, "Failed to retrieve audit log")
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
