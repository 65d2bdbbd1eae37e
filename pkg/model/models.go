package model

import (
	"time"
)

// RecordType identifies the kind of measurement held by a HealthRecord
type RecordType string

const (
	RecordTypeBloodPressure RecordType = "blood_pressure"
	RecordTypeBloodSugar    RecordType = "blood_sugar"
	RecordTypeWeight        RecordType = "weight"
	RecordTypeHeartRate     RecordType = "heart_rate"
	RecordTypeTemperature   RecordType = "temperature"
	RecordTypeExercise      RecordType = "exercise"
)

// RecordTypes lists every record type in display order
var RecordTypes = []RecordType{
	RecordTypeBloodPressure,
	RecordTypeBloodSugar,
	RecordTypeWeight,
	RecordTypeHeartRate,
	RecordTypeTemperature,
	RecordTypeExercise,
}

// Valid reports whether t is a known record type
func (t RecordType) Valid() bool {
	for _, known := range RecordTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Label returns the human readable name of the record type
func (t RecordType) Label() string {
	switch t {
	case RecordTypeBloodPressure:
		return "Blood pressure"
	case RecordTypeBloodSugar:
		return "Blood sugar"
	case RecordTypeWeight:
		return "Weight"
	case RecordTypeHeartRate:
		return "Heart rate"
	case RecordTypeTemperature:
		return "Temperature"
	case RecordTypeExercise:
		return "Exercise"
	default:
		return string(t)
	}
}

// BloodSugarContext tells whether a glucose reading was taken fasting or after a meal
type BloodSugarContext string

const (
	BloodSugarFasting  BloodSugarContext = "fasting"
	BloodSugarPostMeal BloodSugarContext = "post_meal"
)

// HealthRecord is a single user measurement
type HealthRecord struct {
	ID                string             `json:"id"`
	UserID            string             `json:"user_id"`
	RecordType        RecordType         `json:"record_type"`
	SystolicPressure  *float64           `json:"systolic_pressure,omitempty"`
	DiastolicPressure *float64           `json:"diastolic_pressure,omitempty"`
	HeartRate         *float64           `json:"heart_rate,omitempty"`
	BloodSugar        *float64           `json:"blood_sugar,omitempty"`
	BloodSugarType    *BloodSugarContext `json:"blood_sugar_type,omitempty"`
	Weight            *float64           `json:"weight,omitempty"`
	Temperature       *float64           `json:"temperature,omitempty"`
	MeasurementTime   time.Time          `json:"measurement_time"`
	Notes             *string            `json:"notes,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

// RecordFilter narrows a record listing
type RecordFilter struct {
	RecordType *RecordType
	From       *time.Time
	To         *time.Time
	Limit      int
}

// Profile holds per-user data used by the validator and report headers
type Profile struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	HeightCM    *float64  `json:"height_cm,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SettingType identifies a scheduled notification rule
type SettingType string

const (
	SettingMeasurementReminder SettingType = "measurement_reminder"
	SettingDangerAlert         SettingType = "danger_alert"
	SettingGoalAchievement     SettingType = "goal_achievement"
	SettingDailySummary        SettingType = "daily_summary"
)

// SettingTypes lists every setting type
var SettingTypes = []SettingType{
	SettingMeasurementReminder,
	SettingDangerAlert,
	SettingGoalAchievement,
	SettingDailySummary,
}

// Valid reports whether t is a known setting type
func (t SettingType) Valid() bool {
	for _, known := range SettingTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Frequency controls which days a setting fires on
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

// Valid reports whether f is a known frequency
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyCustom:
		return true
	}
	return false
}

// NotificationSetting is a per-user rule configuration.
// Time is local wall-clock "HH:MM"; Days uses 0=Sunday..6=Saturday.
type NotificationSetting struct {
	ID               string       `json:"id"`
	UserID           string       `json:"user_id"`
	SettingType      SettingType  `json:"setting_type"`
	IsEnabled        bool         `json:"is_enabled"`
	Frequency        Frequency    `json:"frequency"`
	Time             string       `json:"time"`
	Days             []int        `json:"days"`
	MeasurementTypes []RecordType `json:"measurement_types"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// NotificationKind is the category of an in-app notification
type NotificationKind string

const (
	NotificationReminder    NotificationKind = "reminder"
	NotificationAchievement NotificationKind = "achievement"
	NotificationWarning     NotificationKind = "warning"
	NotificationInfo        NotificationKind = "info"
)

// Priority orders notifications for display and fan-out
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Notification is an in-memory, per-session message shown to the user
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
	ActionURL string           `json:"action_url,omitempty"`
	Priority  Priority         `json:"priority"`
}

// GoalType identifies what a HealthGoal tracks
type GoalType string

const (
	GoalBloodPressure GoalType = "blood_pressure"
	GoalBloodSugar    GoalType = "blood_sugar"
	GoalWeight        GoalType = "weight"
	GoalExercise      GoalType = "exercise"
	GoalMedication    GoalType = "medication"
)

// Valid reports whether t is a known goal type
func (t GoalType) Valid() bool {
	switch t {
	case GoalBloodPressure, GoalBloodSugar, GoalWeight, GoalExercise, GoalMedication:
		return true
	}
	return false
}

// GoalDirection says whether progress means going up or coming down
type GoalDirection string

const (
	GoalIncrease GoalDirection = "increase"
	GoalDecrease GoalDirection = "decrease"
)

// DefaultDirection returns the direction used when a goal does not set one
func (t GoalType) DefaultDirection() GoalDirection {
	switch t {
	case GoalBloodPressure, GoalBloodSugar, GoalWeight:
		return GoalDecrease
	default:
		return GoalIncrease
	}
}

// HealthGoal is a user target with progress tracking
type HealthGoal struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	GoalType     GoalType      `json:"goal_type"`
	Direction    GoalDirection `json:"direction"`
	TargetValue  float64       `json:"target_value"`
	CurrentValue *float64      `json:"current_value,omitempty"`
	Unit         string        `json:"unit"`
	TargetDate   time.Time     `json:"target_date"`
	IsAchieved   bool          `json:"is_achieved"`
	Notes        *string       `json:"notes,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
