package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/audit"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/repository"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestProfileService_Get(t *testing.T) {
	repo := new(MockProfileRepository)
	svc := NewProfileService(repo, &recordingAuditor{}, zap.NewNop())
	repo.On("Get", mock.Anything, "new-user").Return(nil, repository.ErrNotFound)
	repo.On("Get", mock.Anything, "user-123").Return(&model.Profile{UserID: "user-123", DisplayName: "Alex"}, nil)

	p, err := svc.Get(context.Background(), "new-user")
	require.NoError(t, err)
	assert.Equal(t, &model.Profile{UserID: "new-user"}, p)

	p, err = svc.Get(context.Background(), "user-123")
	require.NoError(t, err)
	assert.Equal(t, "Alex", p.DisplayName)
}

func TestProfileService_Update(t *testing.T) {
	repo := new(MockProfileRepository)
	aud := &recordingAuditor{}
	svc := NewProfileService(repo, aud, zap.NewNop())
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(p *model.Profile) bool {
		return p.UserID == "user-123" && p.DisplayName == "Alex" && *p.HeightCM == 175
	})).Return(nil)

	p, err := svc.Update(context.Background(), "user-123", "  Alex ", fp(175))

	require.NoError(t, err)
	assert.Equal(t, "Alex", p.DisplayName)
	assert.Equal(t, []audit.Operation{audit.OperationUpdate}, aud.ops())
	repo.AssertExpectations(t)
}

func TestProfileService_Update_ValidationErrors(t *testing.T) {
	repo := new(MockProfileRepository)
	svc := NewProfileService(repo, &recordingAuditor{}, zap.NewNop())

	_, err := svc.Update(context.Background(), "user-123", "Alex", fp(20))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Update(context.Background(), "user-123", "Alex", fp(300))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Update(context.Background(), "user-123", strings.Repeat("a", maxDisplayNameLen+1), nil)
	assert.ErrorIs(t, err, ErrValidation)

	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestProfileService_HeightCM(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	repo := new(MockProfileRepository)
	svc := NewProfileService(repo, &recordingAuditor{}, zap.New(core))
	repo.On("Get", mock.Anything, "user-123").Return(&model.Profile{HeightCM: fp(168)}, nil)
	repo.On("Get", mock.Anything, "new-user").Return(nil, repository.ErrNotFound)
	repo.On("Get", mock.Anything, "broken").Return(nil, errors.New("database error"))

	assert.Equal(t, 168.0, *svc.HeightCM(context.Background(), "user-123"))
	assert.Nil(t, svc.HeightCM(context.Background(), "new-user"))
	assert.Nil(t, svc.HeightCM(context.Background(), "broken"))
	assert.Equal(t, 1, logs.FilterMessage("failed to load height").Len())
}
