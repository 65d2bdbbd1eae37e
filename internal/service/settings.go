package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/audit"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

// NotificationSettingRepositoryInterface defines the interface for settings data access
type NotificationSettingRepositoryInterface interface {
	ListByUserID(ctx context.Context, userID string) ([]model.NotificationSetting, error)
	CreateDefaults(ctx context.Context, userID string, defaults []model.NotificationSetting) error
	Upsert(ctx context.Context, s *model.NotificationSetting) error
}

// SettingInput is the client-editable part of a notification setting
type SettingInput struct {
	IsEnabled        bool
	Frequency        model.Frequency
	Time             string
	Days             []int
	MeasurementTypes []model.RecordType
}

// DefaultSettings returns the settings a new user starts with
func DefaultSettings() []model.NotificationSetting {
	return []model.NotificationSetting{
		{
			SettingType:      model.SettingMeasurementReminder,
			IsEnabled:        true,
			Frequency:        model.FrequencyDaily,
			Time:             "09:00",
			Days:             []int{1, 2, 3, 4, 5},
			MeasurementTypes: []model.RecordType{model.RecordTypeBloodPressure, model.RecordTypeBloodSugar},
		},
		{
			SettingType:      model.SettingDangerAlert,
			IsEnabled:        true,
			Frequency:        model.FrequencyDaily,
			Time:             "00:00",
			Days:             []int{},
			MeasurementTypes: []model.RecordType{model.RecordTypeBloodPressure, model.RecordTypeBloodSugar},
		},
		{
			SettingType:      model.SettingGoalAchievement,
			IsEnabled:        true,
			Frequency:        model.FrequencyDaily,
			Time:             "00:00",
			Days:             []int{},
			MeasurementTypes: []model.RecordType{},
		},
		{
			SettingType:      model.SettingDailySummary,
			IsEnabled:        false,
			Frequency:        model.FrequencyDaily,
			Time:             "20:00",
			Days:             []int{1, 2, 3, 4, 5},
			MeasurementTypes: []model.RecordType{},
		},
	}
}

// SettingsService manages per-user notification settings
type SettingsService struct {
	repo   NotificationSettingRepositoryInterface
	audit  Auditor
	logger *zap.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(repo NotificationSettingRepositoryInterface, auditor Auditor, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		repo:   repo,
		audit:  auditor,
		logger: logger,
	}
}

// List returns the user's settings, creating the defaults on first use
func (s *SettingsService) List(ctx context.Context, userID string) ([]model.NotificationSetting, error) {
	settings, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification settings: %w", err)
	}
	if len(settings) >= len(model.SettingTypes) {
		return settings, nil
	}

	if err := s.repo.CreateDefaults(ctx, userID, DefaultSettings()); err != nil {
		return nil, fmt.Errorf("failed to create default notification settings: %w", err)
	}
	s.logger.Info("default notification settings created", zap.String("user_id", userID))

	settings, err = s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification settings: %w", err)
	}
	return settings, nil
}

// Enabled reports whether the user's setting of type t is switched on
func (s *SettingsService) Enabled(ctx context.Context, userID string, t model.SettingType) (bool, error) {
	settings, err := s.List(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, setting := range settings {
		if setting.SettingType == t {
			return setting.IsEnabled, nil
		}
	}
	return false, nil
}

// Save validates and stores one setting
func (s *SettingsService) Save(ctx context.Context, userID string, t model.SettingType, in SettingInput) (*model.NotificationSetting, error) {
	if !t.Valid() {
		return nil, invalid("unknown setting type %q", t)
	}
	if in.Frequency == "" {
		in.Frequency = model.FrequencyDaily
	}
	if !in.Frequency.Valid() {
		return nil, invalid("unknown frequency %q", in.Frequency)
	}
	if _, err := time.Parse("15:04", in.Time); err != nil {
		return nil, invalid("time must be HH:MM, got %q", in.Time)
	}

	days, err := normalizeDays(in.Days)
	if err != nil {
		return nil, err
	}
	if in.Frequency != model.FrequencyDaily && len(days) == 0 {
		return nil, invalid("at least one day is required for %s frequency", in.Frequency)
	}

	types := []model.RecordType{}
	seen := make(map[model.RecordType]bool)
	for _, mt := range in.MeasurementTypes {
		if !mt.Valid() {
			return nil, invalid("unknown measurement type %q", mt)
		}
		if !seen[mt] {
			seen[mt] = true
			types = append(types, mt)
		}
	}

	setting := &model.NotificationSetting{
		UserID:           userID,
		SettingType:      t,
		IsEnabled:        in.IsEnabled,
		Frequency:        in.Frequency,
		Time:             in.Time,
		Days:             days,
		MeasurementTypes: types,
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, fmt.Errorf("failed to save notification setting: %w", err)
	}

	s.audit.Record(ctx, userID, audit.OperationUpdate, audit.ResourceNotificationSetting, setting.ID,
		map[string]any{"setting_type": t, "is_enabled": in.IsEnabled})
	return setting, nil
}

func normalizeDays(days []int) ([]int, error) {
	seen := make(map[int]bool)
	out := []int{}
	for _, d := range days {
		if d < 0 || d > 6 {
			return nil, invalid("days must be between 0 (Sunday) and 6 (Saturday), got %d", d)
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out, nil
}
