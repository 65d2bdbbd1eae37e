package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

// NotificationSettingRepository manages notification_settings rows
type NotificationSettingRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewNotificationSettingRepository creates a new NotificationSettingRepository
func NewNotificationSettingRepository(db *pgxpool.Pool, logger *zap.Logger) *NotificationSettingRepository {
	return &NotificationSettingRepository{
		db:     db,
		logger: logger,
	}
}

// ListByUserID returns the user's settings ordered by type
func (r *NotificationSettingRepository) ListByUserID(ctx context.Context, userID string) ([]model.NotificationSetting, error) {
	query := `
		SELECT id, user_id, setting_type, is_enabled, frequency, time,
		       days, measurement_types, created_at, updated_at
		FROM notification_settings
		WHERE user_id = $1
		ORDER BY setting_type
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to list notification settings", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to list notification settings: %w", err)
	}
	defer rows.Close()

	settings := []model.NotificationSetting{}
	for rows.Next() {
		var (
			s           model.NotificationSetting
			settingType string
			frequency   string
			days        []int32
			types       []string
		)
		err := rows.Scan(
			&s.ID,
			&s.UserID,
			&settingType,
			&s.IsEnabled,
			&frequency,
			&s.Time,
			&days,
			&types,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan notification setting", zap.Error(err))
			continue
		}

		s.SettingType = model.SettingType(settingType)
		s.Frequency = model.Frequency(frequency)
		s.Days = make([]int, len(days))
		for i, d := range days {
			s.Days[i] = int(d)
		}
		s.MeasurementTypes = make([]model.RecordType, len(types))
		for i, t := range types {
			s.MeasurementTypes[i] = model.RecordType(t)
		}
		settings = append(settings, s)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating notification settings", zap.Error(err))
		return nil, fmt.Errorf("error iterating notification settings: %w", err)
	}

	return settings, nil
}

// CreateDefaults inserts the given settings, leaving any type the user
// already has untouched
func (r *NotificationSettingRepository) CreateDefaults(ctx context.Context, userID string, defaults []model.NotificationSetting) error {
	query := `
		INSERT INTO notification_settings (
			id, user_id, setting_type, is_enabled, frequency, time,
			days, measurement_types, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (user_id, setting_type) DO NOTHING
	`

	for _, s := range defaults {
		days, types := settingArrays(s)
		_, err := r.db.Exec(ctx, query,
			uuid.NewString(),
			userID,
			string(s.SettingType),
			s.IsEnabled,
			string(s.Frequency),
			s.Time,
			days,
			types,
		)
		if err != nil {
			r.logger.Error("failed to create default notification setting",
				zap.Error(err),
				zap.String("user_id", userID),
				zap.String("setting_type", string(s.SettingType)),
			)
			return fmt.Errorf("failed to create default notification settings: %w", err)
		}
	}

	return nil
}

// Upsert stores a setting keyed by (user, type), filling ID and timestamps
func (r *NotificationSettingRepository) Upsert(ctx context.Context, s *model.NotificationSetting) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	days, types := settingArrays(*s)

	query := `
		INSERT INTO notification_settings (
			id, user_id, setting_type, is_enabled, frequency, time,
			days, measurement_types, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (user_id, setting_type) DO UPDATE
		SET is_enabled = EXCLUDED.is_enabled,
		    frequency = EXCLUDED.frequency,
		    time = EXCLUDED.time,
		    days = EXCLUDED.days,
		    measurement_types = EXCLUDED.measurement_types,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		s.ID,
		s.UserID,
		string(s.SettingType),
		s.IsEnabled,
		string(s.Frequency),
		s.Time,
		days,
		types,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to upsert notification setting",
			zap.Error(err),
			zap.String("user_id", s.UserID),
			zap.String("setting_type", string(s.SettingType)),
		)
		return fmt.Errorf("failed to save notification setting: %w", err)
	}

	return nil
}

func settingArrays(s model.NotificationSetting) ([]int32, []string) {
	days := make([]int32, len(s.Days))
	for i, d := range s.Days {
		days[i] = int32(d)
	}
	types := make([]string, len(s.MeasurementTypes))
	for i, t := range s.MeasurementTypes {
		types[i] = string(t)
	}
	return days, types
}
