package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

// GoalRepository manages health_goals rows
type GoalRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewGoalRepository creates a new GoalRepository
func NewGoalRepository(db *pgxpool.Pool, logger *zap.Logger) *GoalRepository {
	return &GoalRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a goal
func (r *GoalRepository) Create(ctx context.Context, g *model.HealthGoal) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}

	query := `
		INSERT INTO health_goals (
			id, user_id, goal_type, direction, target_value, current_value,
			unit, target_date, is_achieved, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		g.ID,
		g.UserID,
		string(g.GoalType),
		string(g.Direction),
		g.TargetValue,
		g.CurrentValue,
		g.Unit,
		g.TargetDate,
		g.IsAchieved,
		g.Notes,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create goal", zap.Error(err), zap.String("user_id", g.UserID))
		return fmt.Errorf("failed to create goal: %w", err)
	}

	return nil
}

// GetByID returns one of the user's goals
func (r *GoalRepository) GetByID(ctx context.Context, userID, id string) (*model.HealthGoal, error) {
	query := `
		SELECT id, user_id, goal_type, direction, target_value, current_value,
		       unit, target_date, is_achieved, notes, created_at, updated_at
		FROM health_goals
		WHERE id = $1 AND user_id = $2
	`

	g, err := scanGoal(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("goal %s: %w", id, ErrNotFound)
		}
		r.logger.Error("failed to get goal", zap.Error(err), zap.String("goal_id", id))
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}

	return g, nil
}

// ListByUserID returns the user's goals, nearest target date first
func (r *GoalRepository) ListByUserID(ctx context.Context, userID string) ([]model.HealthGoal, error) {
	query := `
		SELECT id, user_id, goal_type, direction, target_value, current_value,
		       unit, target_date, is_achieved, notes, created_at, updated_at
		FROM health_goals
		WHERE user_id = $1
		ORDER BY target_date ASC, created_at ASC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to list goals", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	goals := []model.HealthGoal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			r.logger.Error("failed to scan goal", zap.Error(err))
			continue
		}
		goals = append(goals, *g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}

	return goals, nil
}

// Update stores the mutable goal fields
func (r *GoalRepository) Update(ctx context.Context, g *model.HealthGoal) error {
	query := `
		UPDATE health_goals
		SET direction = $1, target_value = $2, current_value = $3, unit = $4,
		    target_date = $5, is_achieved = $6, notes = $7, updated_at = NOW()
		WHERE id = $8 AND user_id = $9
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		string(g.Direction),
		g.TargetValue,
		g.CurrentValue,
		g.Unit,
		g.TargetDate,
		g.IsAchieved,
		g.Notes,
		g.ID,
		g.UserID,
	).Scan(&g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("goal %s: %w", g.ID, ErrNotFound)
		}
		r.logger.Error("failed to update goal", zap.Error(err), zap.String("goal_id", g.ID))
		return fmt.Errorf("failed to update goal: %w", err)
	}

	return nil
}

// Delete removes one of the user's goals
func (r *GoalRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM health_goals WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		r.logger.Error("failed to delete goal", zap.Error(err), zap.String("goal_id", id))
		return fmt.Errorf("failed to delete goal: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("goal %s: %w", id, ErrNotFound)
	}

	return nil
}

func scanGoal(row pgx.Row) (*model.HealthGoal, error) {
	var (
		g         model.HealthGoal
		goalType  string
		direction string
	)
	err := row.Scan(
		&g.ID,
		&g.UserID,
		&goalType,
		&direction,
		&g.TargetValue,
		&g.CurrentValue,
		&g.Unit,
		&g.TargetDate,
		&g.IsAchieved,
		&g.Notes,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	g.GoalType = model.GoalType(goalType)
	g.Direction = model.GoalDirection(direction)
	return &g, nil
}
