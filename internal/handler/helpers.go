package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
	"github.com/oapi-codegen/runtime/types"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/middleware"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/repository"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/service"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/api"
	"go.uber.org/zap"
)

const (
	codeValidation = "VALIDATION_ERROR"
	codeNotFound   = "NOT_FOUND"
	codeInternal   = "INTERNAL_ERROR"
)

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// userID returns the authenticated user set by the auth middleware
func userID(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}

// respondError maps a service error onto the error envelope. message is
// what the client sees for unexpected failures.
func respondError(c *gin.Context, logger *zap.Logger, err error, message string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    codeValidation,
			Message: strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": "),
		})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Code:    codeNotFound,
			Message: "Resource not found",
		})
	default:
		logger.Error(strings.ToLower(message),
			zap.Error(err),
			zap.String("user_id", userID(c)),
			zap.String("path", c.Request.URL.Path),
		)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Code:    codeInternal,
			Message: message,
			Details: stringPtr(err.Error()),
		})
	}
}

// badRequest reports a malformed body or query
func badRequest(c *gin.Context, message string, err error) {
	resp := api.ErrorResponse{Code: codeValidation, Message: message}
	if err != nil {
		resp.Details = stringPtr(err.Error())
	}
	c.JSON(http.StatusBadRequest, resp)
}

// bindJSON decodes the body into dest or writes a 400 and returns false
func bindJSON(c *gin.Context, logger *zap.Logger, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		logger.Debug("invalid request body", zap.Error(err), zap.String("path", c.Request.URL.Path))
		badRequest(c, "Invalid request body", err)
		return false
	}
	return true
}

// bindQuery reads one optional form-style query parameter into dest
func bindQuery(c *gin.Context, name string, dest any) bool {
	if err := runtime.BindQueryParameter("form", true, false, name, c.Request.URL.Query(), dest); err != nil {
		badRequest(c, "Invalid format for parameter "+name, err)
		return false
	}
	return true
}

// pathID reads a UUID path parameter. Anything that is not a UUID cannot
// name a stored row, so it is answered with 404.
func pathID(c *gin.Context, name string) (string, bool) {
	var id types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, c.Param(name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Code:    codeNotFound,
			Message: "Resource not found",
		})
		return "", false
	}
	return id.String(), true
}
