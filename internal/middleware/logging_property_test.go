package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/audit"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Property: every request is logged once with method, path, user and status,
// at a level matching the status class
func TestProperty_RequestLogging(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("requests are logged with required fields", prop.ForAll(
		func(method, path, userID string, status int) bool {
			core, logs := observer.New(zapcore.InfoLevel)

			router := gin.New()
			router.Use(RequestLoggingMiddleware(zap.New(core)))
			router.Handle(method, path, func(c *gin.Context) {
				if userID != "" {
					c.Set(UserIDKey, userID)
				}
				c.Status(status)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(method, path, nil))

			entries := logs.All()
			if len(entries) != 1 {
				t.Logf("expected one log entry, got %d", len(entries))
				return false
			}
			entry := entries[0]
			fields := entry.ContextMap()

			expectedUser := userID
			if expectedUser == "" {
				expectedUser = "anonymous"
			}
			expectedLevel := zapcore.InfoLevel
			switch {
			case status >= 500:
				expectedLevel = zapcore.ErrorLevel
			case status >= 400:
				expectedLevel = zapcore.WarnLevel
			}

			return fields["method"] == method &&
				fields["path"] == path &&
				fields["user_id"] == expectedUser &&
				fields["status"] == int64(status) &&
				fields["timestamp"] != nil &&
				entry.Level == expectedLevel
		},
		gen.OneConstOf("GET", "POST", "PUT", "DELETE"),
		gen.OneConstOf("/api/v1/records", "/api/v1/goals", "/health"),
		gen.AlphaString(),
		gen.OneConstOf(200, 201, 204, 400, 404, 500, 503),
	))

	properties.TestingRun(t)
}

// Property: every c.Error is logged with its message and a stack trace
func TestProperty_ErrorLoggingDetail(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("handler errors are logged with context", prop.ForAll(
		func(message, path string) bool {
			core, logs := observer.New(zapcore.ErrorLevel)

			router := gin.New()
			router.Use(ErrorLoggingMiddleware(zap.New(core)))
			router.GET(path, func(c *gin.Context) {
				_ = c.Error(errors.New(message))
				c.Status(http.StatusInternalServerError)
			})

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))

			entries := logs.FilterMessage("Request error occurred").All()
			if len(entries) != 1 {
				return false
			}
			fields := entries[0].ContextMap()
			return fields["error"] == message &&
				fields["path"] == path &&
				fields["stack_trace"] != nil
		},
		gen.AlphaString(),
		gen.OneConstOf("/api/v1/records", "/api/v1/export", "/api/v1/fail"),
	))

	properties.TestingRun(t)
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	router := gin.New()
	router.Use(RecoveryMiddleware(zap.New(core)))
	router.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":"INTERNAL_ERROR","message":"Internal server error"}`, w.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestRequestIDMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	var seen string
	router.GET("/", func(c *gin.Context) {
		seen = c.GetString("request_id")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestClientContextMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(ClientContextMiddleware())
	var ip, agent string
	router.GET("/", func(c *gin.Context) {
		ip = audit.ClientIP(c.Request.Context())
		agent = audit.UserAgent(c.Request.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	req.Header.Set("User-Agent", "vitals-test")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "203.0.113.7", ip)
	assert.Equal(t, "vitals-test", agent)
}

func TestMetricsMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(MetricsMiddleware())
	router.GET("/api/v1/records/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/records/123", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
