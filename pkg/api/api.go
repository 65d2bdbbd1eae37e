// Package api holds the JSON request and response bodies and the query
// parameter sets of the HTTP API.
package api

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// HealthRecordRequest creates, replaces or assesses a record
type HealthRecordRequest struct {
	RecordType        string     `json:"record_type" binding:"required"`
	SystolicPressure  *float64   `json:"systolic_pressure,omitempty"`
	DiastolicPressure *float64   `json:"diastolic_pressure,omitempty"`
	HeartRate         *float64   `json:"heart_rate,omitempty"`
	BloodSugar        *float64   `json:"blood_sugar,omitempty"`
	BloodSugarType    *string    `json:"blood_sugar_type,omitempty"`
	Weight            *float64   `json:"weight,omitempty"`
	Temperature       *float64   `json:"temperature,omitempty"`
	MeasurementTime   *time.Time `json:"measurement_time,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
}

// Record converts the request to a record. A missing measurement time is left zero.
func (r HealthRecordRequest) Record() *model.HealthRecord {
	rec := &model.HealthRecord{
		RecordType:        model.RecordType(r.RecordType),
		SystolicPressure:  r.SystolicPressure,
		DiastolicPressure: r.DiastolicPressure,
		HeartRate:         r.HeartRate,
		BloodSugar:        r.BloodSugar,
		Weight:            r.Weight,
		Temperature:       r.Temperature,
		Notes:             r.Notes,
	}
	if r.BloodSugarType != nil {
		ctx := model.BloodSugarContext(*r.BloodSugarType)
		rec.BloodSugarType = &ctx
	}
	if r.MeasurementTime != nil {
		rec.MeasurementTime = *r.MeasurementTime
	}
	return rec
}

// HealthRecordListResponse wraps a record listing
type HealthRecordListResponse struct {
	Records []model.HealthRecord `json:"records"`
	Count   int                  `json:"count"`
}

// BulkDeleteRequest names the records to delete
type BulkDeleteRequest struct {
	IDs []openapi_types.UUID `json:"ids" binding:"required"`
}

// BulkDeleteResponse reports how many records were removed
type BulkDeleteResponse struct {
	Deleted int `json:"deleted"`
}

// ImportRequest carries CSV text when it is not uploaded as a file
type ImportRequest struct {
	Content string `json:"content"`
}

// NotificationSettingRequest replaces one notification setting
type NotificationSettingRequest struct {
	IsEnabled        bool     `json:"is_enabled"`
	Frequency        string   `json:"frequency"`
	Time             string   `json:"time" binding:"required"`
	Days             []int    `json:"days"`
	MeasurementTypes []string `json:"measurement_types"`
}

// GoalRequest creates or updates a goal
type GoalRequest struct {
	GoalType     string             `json:"goal_type"`
	Direction    string             `json:"direction,omitempty"`
	TargetValue  float64            `json:"target_value" binding:"required"`
	CurrentValue *float64           `json:"current_value,omitempty"`
	Unit         string             `json:"unit"`
	TargetDate   openapi_types.Date `json:"target_date"`
	Notes        *string            `json:"notes,omitempty"`
}

// GoalProgressRequest records a new current value
type GoalProgressRequest struct {
	CurrentValue *float64 `json:"current_value" binding:"required"`
}

// ProfileRequest replaces the profile
type ProfileRequest struct {
	DisplayName string   `json:"display_name"`
	HeightCM    *float64 `json:"height_cm,omitempty"`
}

// NotificationListResponse is a user's notifications with the unread count
type NotificationListResponse struct {
	Notifications []model.Notification `json:"notifications"`
	UnreadCount   int                  `json:"unread_count"`
}

// CompactResponse reports how many notifications compaction removed
type CompactResponse struct {
	Removed     int `json:"removed"`
	UnreadCount int `json:"unread_count"`
}

// SessionResponse reports the scheduler state after a session event
type SessionResponse struct {
	SchedulerActive bool `json:"scheduler_active"`
}

// ListRecordsParams defines parameters for GET /api/v1/records
type ListRecordsParams struct {
	Type  *string    `form:"type" json:"type,omitempty"`
	From  *time.Time `form:"from" json:"from,omitempty"`
	To    *time.Time `form:"to" json:"to,omitempty"`
	Limit *int       `form:"limit" json:"limit,omitempty"`
}

// ExportRecordsParams defines parameters for GET /api/v1/records/export
type ExportRecordsParams struct {
	Format *string             `form:"format" json:"format,omitempty"`
	From   *openapi_types.Date `form:"from" json:"from,omitempty"`
	To     *openapi_types.Date `form:"to" json:"to,omitempty"`
}

// ArchivedExportParams defines parameters for GET /api/v1/records/export/archive
type ArchivedExportParams struct {
	Blob string `form:"blob" json:"blob"`
}

// DashboardSummaryParams defines parameters for GET /api/v1/dashboard/summary
type DashboardSummaryParams struct {
	Days *int `form:"days" json:"days,omitempty"`
}

// AuditLogParams defines parameters for GET /api/v1/audit
type AuditLogParams struct {
	Limit *int `form:"limit" json:"limit,omitempty"`
}
