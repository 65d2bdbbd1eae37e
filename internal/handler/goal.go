package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/service"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/api"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

// GoalHandler implements health goal API endpoints
type GoalHandler struct {
	service *service.GoalService
	logger  *zap.Logger
}

// NewGoalHandler creates a new GoalHandler
func NewGoalHandler(service *service.GoalService, logger *zap.Logger) *GoalHandler {
	return &GoalHandler{
		service: service,
		logger:  logger,
	}
}

func goalInput(req api.GoalRequest) service.GoalInput {
	return service.GoalInput{
		GoalType:     model.GoalType(req.GoalType),
		Direction:    model.GoalDirection(req.Direction),
		TargetValue:  req.TargetValue,
		CurrentValue: req.CurrentValue,
		Unit:         req.Unit,
		TargetDate:   req.TargetDate.Time,
		Notes:        req.Notes,
	}
}

// CreateGoal handles POST /api/v1/goals
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	var req api.GoalRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	goal, err := h.service.Create(c.Request.Context(), userID(c), goalInput(req))
	if err != nil {
		respondError(c, h.logger, err, "Failed to create goal")
		return
	}

	h.logger.Info("Goal created",
		zap.String("user_id", userID(c)),
		zap.String("goal_id", goal.ID),
		zap.String("goal_type", string(goal.GoalType)),
	)
	c.JSON(http.StatusCreated, goal)
}

// ListGoals handles GET /api/v1/goals
func (h *GoalHandler) ListGoals(c *gin.Context) {
	goals, err := h.service.List(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to retrieve goals")
		return
	}
	if goals == nil {
		goals = []service.GoalView{}
	}
	c.JSON(http.StatusOK, gin.H{"goals": goals})
}

// UpdateGoal handles PUT /api/v1/goals/:id
func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req api.GoalRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	goal, err := h.service.Update(c.Request.Context(), userID(c), id, goalInput(req))
	if err != nil {
		respondError(c, h.logger, err, "Failed to update goal")
		return
	}
	c.JSON(http.StatusOK, goal)
}

// UpdateProgress handles POST /api/v1/goals/:id/progress
func (h *GoalHandler) UpdateProgress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req api.GoalProgressRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	goal, err := h.service.UpdateProgress(c.Request.Context(), userID(c), id, *req.CurrentValue)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update goal progress")
		return
	}

	h.logger.Info("Goal progress updated",
		zap.String("user_id", userID(c)),
		zap.String("goal_id", id),
		zap.Float64("progress", goal.Progress),
		zap.Bool("achieved", goal.IsAchieved),
	)
	c.JSON(http.StatusOK, goal)
}

// DeleteGoal handles DELETE /api/v1/goals/:id
func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID(c), id); err != nil {
		respondError(c, h.logger, err, "Failed to delete goal")
		return
	}
	c.Status(http.StatusNoContent)
}
