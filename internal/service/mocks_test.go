package service

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/audit"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/notification"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/pdf"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
)

// MockHealthRecordRepository is a mock implementation of HealthRecordRepositoryInterface
type MockHealthRecordRepository struct {
	mock.Mock
}

func (m *MockHealthRecordRepository) Create(ctx context.Context, rec *model.HealthRecord) error {
	args := m.Called(ctx, rec)
	if rec.ID == "" {
		rec.ID = "00000000-0000-0000-0000-000000000001"
	}
	return args.Error(0)
}

func (m *MockHealthRecordRepository) CreateBatch(ctx context.Context, records []model.HealthRecord) (int, error) {
	args := m.Called(ctx, records)
	return args.Int(0), args.Error(1)
}

func (m *MockHealthRecordRepository) GetByID(ctx context.Context, userID, id string) (*model.HealthRecord, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.HealthRecord), args.Error(1)
}

func (m *MockHealthRecordRepository) ListByUserID(ctx context.Context, userID string, filter model.RecordFilter) ([]model.HealthRecord, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.HealthRecord), args.Error(1)
}

func (m *MockHealthRecordRepository) Update(ctx context.Context, rec *model.HealthRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockHealthRecordRepository) Delete(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockHealthRecordRepository) DeleteMany(ctx context.Context, userID string, ids []string) (int, error) {
	args := m.Called(ctx, userID, ids)
	return args.Int(0), args.Error(1)
}

// MockProfileRepository is a mock implementation of ProfileRepositoryInterface
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) Get(ctx context.Context, userID string) (*model.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *MockProfileRepository) Upsert(ctx context.Context, p *model.Profile) error {
	return m.Called(ctx, p).Error(0)
}

// MockSettingRepository is a mock implementation of NotificationSettingRepositoryInterface
type MockSettingRepository struct {
	mock.Mock
}

func (m *MockSettingRepository) ListByUserID(ctx context.Context, userID string) ([]model.NotificationSetting, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.NotificationSetting), args.Error(1)
}

func (m *MockSettingRepository) CreateDefaults(ctx context.Context, userID string, defaults []model.NotificationSetting) error {
	return m.Called(ctx, userID, defaults).Error(0)
}

func (m *MockSettingRepository) Upsert(ctx context.Context, s *model.NotificationSetting) error {
	return m.Called(ctx, s).Error(0)
}

// MockGoalRepository is a mock implementation of GoalRepositoryInterface
type MockGoalRepository struct {
	mock.Mock
}

func (m *MockGoalRepository) Create(ctx context.Context, g *model.HealthGoal) error {
	return m.Called(ctx, g).Error(0)
}

func (m *MockGoalRepository) GetByID(ctx context.Context, userID, id string) (*model.HealthGoal, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.HealthGoal), args.Error(1)
}

func (m *MockGoalRepository) ListByUserID(ctx context.Context, userID string) ([]model.HealthGoal, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.HealthGoal), args.Error(1)
}

func (m *MockGoalRepository) Update(ctx context.Context, g *model.HealthGoal) error {
	return m.Called(ctx, g).Error(0)
}

func (m *MockGoalRepository) Delete(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

// MockSettingChecker is a mock implementation of SettingChecker
type MockSettingChecker struct {
	mock.Mock
}

func (m *MockSettingChecker) Enabled(ctx context.Context, userID string, t model.SettingType) (bool, error) {
	args := m.Called(ctx, userID, t)
	return args.Bool(0), args.Error(1)
}

// MockRenderer is a mock implementation of ReportRenderer and WorkbookRenderer
type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Generate(data *pdf.ReportData) ([]byte, error) {
	args := m.Called(data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockRenderer) Export(records []model.HealthRecord) ([]byte, error) {
	args := m.Called(records)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type auditCall struct {
	UserID     string
	Operation  audit.Operation
	Resource   audit.Resource
	ResourceID string
	Details    map[string]any
}

// recordingAuditor keeps audit calls for assertions
type recordingAuditor struct {
	mu    sync.Mutex
	calls []auditCall
}

func (a *recordingAuditor) Record(_ context.Context, userID string, op audit.Operation, resource audit.Resource, resourceID string, details map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, auditCall{userID, op, resource, resourceID, details})
}

func (a *recordingAuditor) ops() []audit.Operation {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]audit.Operation, len(a.calls))
	for i, c := range a.calls {
		out[i] = c.Operation
	}
	return out
}

// fixedHeight is a HeightLookup returning the same height for everyone
type fixedHeight struct {
	cm *float64
}

func (f fixedHeight) HeightCM(context.Context, string) *float64 { return f.cm }

type observed struct {
	rec    model.HealthRecord
	height *float64
}

// recordingObserver captures records handed to the real-time check
type recordingObserver struct {
	seen []observed
}

func (o *recordingObserver) Observe(_ context.Context, rec model.HealthRecord, heightCM *float64) int {
	o.seen = append(o.seen, observed{rec, heightCM})
	return 0
}

// recordingEmitter captures emitted drafts
type recordingEmitter struct {
	drafts []notification.Draft
}

func (e *recordingEmitter) Emit(_ context.Context, _ string, d notification.Draft) model.Notification {
	e.drafts = append(e.drafts, d)
	return model.Notification{Title: d.Title, Message: d.Message, Kind: d.Kind, Priority: d.Priority}
}

func fp(v float64) *float64 { return &v }
