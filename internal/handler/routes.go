package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups every endpoint implementation
type Handlers struct {
	Health        *HealthHandler
	Session       *SessionHandler
	Records       *HealthRecordHandler
	Dashboard     *DashboardHandler
	Settings      *SettingsHandler
	Goals         *GoalHandler
	Notifications *NotificationHandler
	Profile       *ProfileHandler
	Audit         *AuditHandler
}

// RegisterRoutes mounts the public probes and the authenticated /api/v1 tree
func RegisterRoutes(router gin.IRouter, h Handlers, requireAuth gin.HandlerFunc) {
	router.GET("/health", h.Health.GetHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1", requireAuth)

	v1.POST("/session/start", h.Session.StartSession)
	v1.POST("/session/end", h.Session.EndSession)

	records := v1.Group("/records")
	records.POST("", h.Records.CreateRecord)
	records.GET("", h.Records.ListRecords)
	records.POST("/bulk-delete", h.Records.BulkDeleteRecords)
	records.POST("/assess", h.Records.AssessRecord)
	records.GET("/import/template", h.Records.ImportTemplate)
	records.POST("/import/preview", h.Records.PreviewImport)
	records.POST("/import", h.Records.ImportRecords)
	records.GET("/export", h.Records.ExportRecords)
	records.GET("/export/archive", h.Records.ArchivedExport)
	records.GET("/:id", h.Records.GetRecord)
	records.PUT("/:id", h.Records.UpdateRecord)
	records.DELETE("/:id", h.Records.DeleteRecord)

	v1.GET("/dashboard/summary", h.Dashboard.GetSummary)

	v1.GET("/settings/notifications", h.Settings.ListSettings)
	v1.PUT("/settings/notifications/:type", h.Settings.SaveSetting)

	goals := v1.Group("/goals")
	goals.POST("", h.Goals.CreateGoal)
	goals.GET("", h.Goals.ListGoals)
	goals.PUT("/:id", h.Goals.UpdateGoal)
	goals.POST("/:id/progress", h.Goals.UpdateProgress)
	goals.DELETE("/:id", h.Goals.DeleteGoal)

	notifications := v1.Group("/notifications")
	notifications.GET("", h.Notifications.ListNotifications)
	notifications.DELETE("", h.Notifications.ClearNotifications)
	notifications.POST("/read-all", h.Notifications.MarkAllRead)
	notifications.POST("/compact", h.Notifications.CompactNotifications)
	notifications.POST("/:id/read", h.Notifications.MarkRead)
	notifications.DELETE("/:id", h.Notifications.RemoveNotification)

	v1.GET("/profile", h.Profile.GetProfile)
	v1.PUT("/profile", h.Profile.UpdateProfile)

	v1.GET("/audit", h.Audit.ListEntries)
}
