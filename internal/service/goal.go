package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/audit"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/notification"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

// AchievementRatio is the progress ratio at which a goal counts as achieved
const AchievementRatio = 0.8

// GoalRepositoryInterface defines the interface for goal data access
type GoalRepositoryInterface interface {
	Create(ctx context.Context, g *model.HealthGoal) error
	GetByID(ctx context.Context, userID, id string) (*model.HealthGoal, error)
	ListByUserID(ctx context.Context, userID string) ([]model.HealthGoal, error)
	Update(ctx context.Context, g *model.HealthGoal) error
	Delete(ctx context.Context, userID, id string) error
}

// SettingChecker reports whether a notification setting is enabled for a user
type SettingChecker interface {
	Enabled(ctx context.Context, userID string, t model.SettingType) (bool, error)
}

// NotificationEmitter delivers an in-app notification
type NotificationEmitter interface {
	Emit(ctx context.Context, userID string, d notification.Draft) model.Notification
}

// GoalInput is the client-editable part of a goal
type GoalInput struct {
	GoalType     model.GoalType
	Direction    model.GoalDirection
	TargetValue  float64
	CurrentValue *float64
	Unit         string
	TargetDate   time.Time
	Notes        *string
}

// GoalView is a goal with its computed progress
type GoalView struct {
	model.HealthGoal
	Progress float64 `json:"progress"`
}

// GoalService manages health goals and their progress
type GoalService struct {
	repo     GoalRepositoryInterface
	settings SettingChecker
	emitter  NotificationEmitter
	audit    Auditor
	logger   *zap.Logger
}

// NewGoalService creates a new GoalService
func NewGoalService(repo GoalRepositoryInterface, settings SettingChecker, emitter NotificationEmitter, auditor Auditor, logger *zap.Logger) *GoalService {
	return &GoalService{
		repo:     repo,
		settings: settings,
		emitter:  emitter,
		audit:    auditor,
		logger:   logger,
	}
}

// Progress returns the progress ratio of current towards target for the
// given direction. Increase goals use current/target, decrease goals
// target/current.
func Progress(direction model.GoalDirection, target float64, current *float64) float64 {
	if current == nil || target <= 0 || *current <= 0 {
		return 0
	}
	if direction == model.GoalDecrease {
		return target / *current
	}
	return *current / target
}

// ProgressPercent converts a ratio to a 0-100 percentage rounded to one decimal
func ProgressPercent(ratio float64) float64 {
	return math.Round(math.Min(ratio*100, 100)*10) / 10
}

// Create validates and stores a new goal
func (s *GoalService) Create(ctx context.Context, userID string, in GoalInput) (*GoalView, error) {
	g := &model.HealthGoal{UserID: userID}
	if err := applyGoalInput(g, in); err != nil {
		return nil, err
	}
	g.IsAchieved = Progress(g.Direction, g.TargetValue, g.CurrentValue) >= AchievementRatio

	if err := s.repo.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	s.logger.Info("goal created", zap.String("goal_id", g.ID), zap.String("user_id", userID))
	s.audit.Record(ctx, userID, audit.OperationCreate, audit.ResourceGoal, g.ID,
		map[string]any{"goal_type": g.GoalType})
	return view(*g), nil
}

// List returns the user's goals with progress
func (s *GoalService) List(ctx context.Context, userID string) ([]GoalView, error) {
	goals, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	out := make([]GoalView, 0, len(goals))
	for _, g := range goals {
		out = append(out, *view(g))
	}
	return out, nil
}

// Update replaces a goal's editable fields. The goal type cannot change.
func (s *GoalService) Update(ctx context.Context, userID, id string, in GoalInput) (*GoalView, error) {
	if err := checkID("goal", id); err != nil {
		return nil, err
	}
	g, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if in.GoalType == "" {
		in.GoalType = g.GoalType
	}
	if in.GoalType != g.GoalType {
		return nil, invalid("goal type cannot be changed")
	}
	if in.CurrentValue == nil {
		in.CurrentValue = g.CurrentValue
	}

	wasAchieved := g.IsAchieved
	if err := applyGoalInput(g, in); err != nil {
		return nil, err
	}
	return s.save(ctx, g, wasAchieved)
}

// UpdateProgress records a new current value and re-evaluates achievement.
// Reaching the goal emits an achievement notification when the user has
// that notification enabled.
func (s *GoalService) UpdateProgress(ctx context.Context, userID, id string, current float64) (*GoalView, error) {
	if err := checkID("goal", id); err != nil {
		return nil, err
	}
	if current < 0 || math.IsNaN(current) || math.IsInf(current, 0) {
		return nil, invalid("current value must be a non-negative number")
	}
	g, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	wasAchieved := g.IsAchieved
	g.CurrentValue = &current
	return s.save(ctx, g, wasAchieved)
}

// Delete removes a goal
func (s *GoalService) Delete(ctx context.Context, userID, id string) error {
	if err := checkID("goal", id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.audit.Record(ctx, userID, audit.OperationDelete, audit.ResourceGoal, id, nil)
	return nil
}

func (s *GoalService) save(ctx context.Context, g *model.HealthGoal, wasAchieved bool) (*GoalView, error) {
	g.IsAchieved = Progress(g.Direction, g.TargetValue, g.CurrentValue) >= AchievementRatio

	if err := s.repo.Update(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}
	s.audit.Record(ctx, g.UserID, audit.OperationUpdate, audit.ResourceGoal, g.ID,
		map[string]any{"is_achieved": g.IsAchieved})

	if g.IsAchieved && !wasAchieved {
		s.notifyAchieved(ctx, g)
	}
	return view(*g), nil
}

func (s *GoalService) notifyAchieved(ctx context.Context, g *model.HealthGoal) {
	enabled, err := s.settings.Enabled(ctx, g.UserID, model.SettingGoalAchievement)
	if err != nil {
		s.logger.Warn("failed to check goal achievement setting", zap.Error(err), zap.String("user_id", g.UserID))
		return
	}
	if !enabled {
		return
	}

	target := fmt.Sprintf("%g", g.TargetValue)
	if g.Unit != "" {
		target += " " + g.Unit
	}
	s.emitter.Emit(ctx, g.UserID, notification.GoalAchieved(goalLabel(g.GoalType), target))
	s.logger.Info("goal achieved", zap.String("goal_id", g.ID), zap.String("user_id", g.UserID))
}

func applyGoalInput(g *model.HealthGoal, in GoalInput) error {
	if !in.GoalType.Valid() {
		return invalid("unknown goal type %q", in.GoalType)
	}
	if in.Direction == "" {
		in.Direction = in.GoalType.DefaultDirection()
	}
	if in.Direction != model.GoalIncrease && in.Direction != model.GoalDecrease {
		return invalid("direction must be increase or decrease")
	}
	if in.TargetValue <= 0 || math.IsNaN(in.TargetValue) || math.IsInf(in.TargetValue, 0) {
		return invalid("target value must be a positive number")
	}
	if in.CurrentValue != nil && *in.CurrentValue < 0 {
		return invalid("current value must not be negative")
	}
	if in.TargetDate.IsZero() {
		return invalid("target date is required")
	}

	g.GoalType = in.GoalType
	g.Direction = in.Direction
	g.TargetValue = in.TargetValue
	g.CurrentValue = in.CurrentValue
	g.Unit = strings.TrimSpace(in.Unit)
	g.TargetDate = in.TargetDate
	g.Notes = in.Notes
	return nil
}

func view(g model.HealthGoal) *GoalView {
	return &GoalView{
		HealthGoal: g,
		Progress:   ProgressPercent(Progress(g.Direction, g.TargetValue, g.CurrentValue)),
	}
}

func goalLabel(t model.GoalType) string {
	switch t {
	case model.GoalBloodPressure:
		return "blood pressure"
	case model.GoalBloodSugar:
		return "blood sugar"
	case model.GoalWeight:
		return "weight"
	case model.GoalExercise:
		return "exercise"
	case model.GoalMedication:
		return "medication"
	}
	return string(t)
}
