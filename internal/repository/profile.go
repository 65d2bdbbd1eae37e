package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

// ProfileRepository manages profiles rows
type ProfileRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *pgxpool.Pool, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

// Get returns the user's profile or ErrNotFound
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*model.Profile, error) {
	query := `
		SELECT user_id, display_name, height_cm, updated_at
		FROM profiles
		WHERE user_id = $1
	`

	var p model.Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.DisplayName,
		&p.HeightCM,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
		}
		r.logger.Error("failed to get profile", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &p, nil
}

// Upsert creates or replaces the user's profile
func (r *ProfileRepository) Upsert(ctx context.Context, p *model.Profile) error {
	query := `
		INSERT INTO profiles (user_id, display_name, height_cm, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    height_cm = EXCLUDED.height_cm,
		    updated_at = NOW()
		RETURNING updated_at
	`

	if err := r.db.QueryRow(ctx, query, p.UserID, p.DisplayName, p.HeightCM).Scan(&p.UpdatedAt); err != nil {
		r.logger.Error("failed to upsert profile", zap.Error(err), zap.String("user_id", p.UserID))
		return fmt.Errorf("failed to save profile: %w", err)
	}

	return nil
}
