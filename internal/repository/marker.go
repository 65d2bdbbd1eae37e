package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// MarkerRepository persists the once-per-day notification markers so a
// restart or a second session does not repeat a scheduled notification
type MarkerRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewMarkerRepository creates a new MarkerRepository
func NewMarkerRepository(db *pgxpool.Pool, logger *zap.Logger) *MarkerRepository {
	return &MarkerRepository{
		db:     db,
		logger: logger,
	}
}

// SetIfAbsent stores key and reports whether this call created it
func (r *MarkerRepository) SetIfAbsent(ctx context.Context, key string) (bool, error) {
	result, err := r.db.Exec(ctx,
		`INSERT INTO notification_markers (marker_key, created_at) VALUES ($1, NOW()) ON CONFLICT (marker_key) DO NOTHING`,
		key,
	)
	if err != nil {
		r.logger.Error("failed to set notification marker", zap.Error(err), zap.String("marker", key))
		return false, fmt.Errorf("failed to set notification marker: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// PurgeBefore deletes markers created before cutoff
func (r *MarkerRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM notification_markers WHERE created_at < $1`, cutoff)
	if err != nil {
		r.logger.Error("failed to purge notification markers", zap.Error(err))
		return 0, fmt.Errorf("failed to purge notification markers: %w", err)
	}

	return result.RowsAffected(), nil
}
