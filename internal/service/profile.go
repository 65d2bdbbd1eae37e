package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/audit"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/repository"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

const (
	minHeightCM       = 50.0
	maxHeightCM       = 272.0
	maxDisplayNameLen = 100
)

// ProfileRepositoryInterface defines the interface for profile data access
type ProfileRepositoryInterface interface {
	Get(ctx context.Context, userID string) (*model.Profile, error)
	Upsert(ctx context.Context, p *model.Profile) error
}

// Auditor records data-changing operations
type Auditor interface {
	Record(ctx context.Context, userID string, op audit.Operation, resource audit.Resource, resourceID string, details map[string]any)
}

// ProfileService manages the per-user profile
type ProfileService struct {
	repo   ProfileRepositoryInterface
	audit  Auditor
	logger *zap.Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(repo ProfileRepositoryInterface, auditor Auditor, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		repo:   repo,
		audit:  auditor,
		logger: logger,
	}
}

// Get returns the user's profile, or an empty one if none was saved yet
func (s *ProfileService) Get(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.repo.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &model.Profile{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// Update replaces the user's display name and height
func (s *ProfileService) Update(ctx context.Context, userID, displayName string, heightCM *float64) (*model.Profile, error) {
	displayName = strings.TrimSpace(displayName)
	if len([]rune(displayName)) > maxDisplayNameLen {
		return nil, invalid("display name must be at most %d characters", maxDisplayNameLen)
	}
	if heightCM != nil && (*heightCM < minHeightCM || *heightCM > maxHeightCM) {
		return nil, invalid("height must be between %.0f and %.0f cm", minHeightCM, maxHeightCM)
	}

	p := &model.Profile{UserID: userID, DisplayName: displayName, HeightCM: heightCM}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.audit.Record(ctx, userID, audit.OperationUpdate, audit.ResourceProfile, userID, nil)
	return p, nil
}

// HeightCM returns the user's height for BMI assessment. Lookup failures are
// logged and treated as unknown height.
func (s *ProfileService) HeightCM(ctx context.Context, userID string) *float64 {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("failed to load height", zap.Error(err), zap.String("user_id", userID))
		}
		return nil
	}
	return p.HeightCM
}
