package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/audit"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/azure"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/csvimport"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/middleware"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/notification"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/pdf"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/repository"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/scheduler"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/service"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/spreadsheet"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

const testUser = "user-123"

func init() {
	gin.SetMode(gin.TestMode)
}

var errDatabase = errors.New("database connection lost")

type memRecords struct {
	mu      sync.Mutex
	records map[string]model.HealthRecord
	failAll bool
}

func newMemRecords() *memRecords {
	return &memRecords{records: make(map[string]model.HealthRecord)}
}

func (m *memRecords) Create(_ context.Context, rec *model.HealthRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errDatabase
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now()
	m.records[rec.ID] = *rec
	return nil
}

func (m *memRecords) CreateBatch(ctx context.Context, records []model.HealthRecord) (int, error) {
	for i := range records {
		if err := m.Create(ctx, &records[i]); err != nil {
			return 0, err
		}
	}
	return len(records), nil
}

func (m *memRecords) GetByID(_ context.Context, userID, id string) (*model.HealthRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok || rec.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &rec, nil
}

func (m *memRecords) ListByUserID(_ context.Context, userID string, filter model.RecordFilter) ([]model.HealthRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errDatabase
	}
	var out []model.HealthRecord
	for _, rec := range m.records {
		if rec.UserID != userID {
			continue
		}
		if filter.RecordType != nil && rec.RecordType != *filter.RecordType {
			continue
		}
		if filter.From != nil && rec.MeasurementTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !rec.MeasurementTime.Before(*filter.To) {
			continue
		}
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b model.HealthRecord) int {
		return b.MeasurementTime.Compare(a.MeasurementTime)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memRecords) Update(_ context.Context, rec *model.HealthRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; !ok {
		return repository.ErrNotFound
	}
	m.records[rec.ID] = *rec
	return nil
}

func (m *memRecords) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok || rec.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *memRecords) DeleteMany(ctx context.Context, userID string, ids []string) (int, error) {
	deleted := 0
	for _, id := range ids {
		if m.Delete(ctx, userID, id) == nil {
			deleted++
		}
	}
	return deleted, nil
}

type memProfiles struct {
	mu       sync.Mutex
	profiles map[string]model.Profile
}

func (m *memProfiles) Get(_ context.Context, userID string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (m *memProfiles) Upsert(_ context.Context, p *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profiles == nil {
		m.profiles = make(map[string]model.Profile)
	}
	p.UpdatedAt = time.Now()
	m.profiles[p.UserID] = *p
	return nil
}

type memSettings struct {
	mu       sync.Mutex
	settings map[string][]model.NotificationSetting
}

func (m *memSettings) ListByUserID(_ context.Context, userID string) ([]model.NotificationSetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.settings[userID]), nil
}

func (m *memSettings) CreateDefaults(_ context.Context, userID string, defaults []model.NotificationSetting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		m.settings = make(map[string][]model.NotificationSetting)
	}
	for _, d := range defaults {
		d.ID = uuid.NewString()
		d.UserID = userID
		m.settings[userID] = append(m.settings[userID], d)
	}
	return nil
}

func (m *memSettings) Upsert(_ context.Context, s *model.NotificationSetting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		m.settings = make(map[string][]model.NotificationSetting)
	}
	list := m.settings[s.UserID]
	for i := range list {
		if list[i].SettingType == s.SettingType {
			s.ID = list[i].ID
			list[i] = *s
			return nil
		}
	}
	s.ID = uuid.NewString()
	m.settings[s.UserID] = append(list, *s)
	return nil
}

type memGoals struct {
	mu    sync.Mutex
	goals map[string]model.HealthGoal
}

func (m *memGoals) Create(_ context.Context, g *model.HealthGoal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.goals == nil {
		m.goals = make(map[string]model.HealthGoal)
	}
	g.ID = uuid.NewString()
	m.goals[g.ID] = *g
	return nil
}

func (m *memGoals) GetByID(_ context.Context, userID, id string) (*model.HealthGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[id]
	if !ok || g.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &g, nil
}

func (m *memGoals) ListByUserID(_ context.Context, userID string) ([]model.HealthGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.HealthGoal
	for _, g := range m.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memGoals) Update(_ context.Context, g *model.HealthGoal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.goals[g.ID]; !ok {
		return repository.ErrNotFound
	}
	m.goals[g.ID] = *g
	return nil
}

func (m *memGoals) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[id]
	if !ok || g.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.goals, id)
	return nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (m *memAudit) Record(_ context.Context, userID string, op audit.Operation, resource audit.Resource, resourceID string, _ map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]audit.Entry{{
		UserID:     userID,
		Operation:  op,
		Resource:   resource,
		ResourceID: resourceID,
		CreatedAt:  time.Now(),
	}}, m.entries...)
}

func (m *memAudit) List(_ context.Context, userID string, limit int) ([]audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []audit.Entry{}
	for _, e := range m.entries {
		if e.UserID == userID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

// testApp is the full router wired to in-memory storage
type testApp struct {
	router     *gin.Engine
	records    *memRecords
	profiles   *memProfiles
	settings   *memSettings
	goals      *memGoals
	audit      *memAudit
	dispatcher *notification.Dispatcher
	manager    *scheduler.Manager
	pinger     *fakePinger
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := zap.NewNop()

	app := &testApp{
		records:  newMemRecords(),
		profiles: &memProfiles{},
		settings: &memSettings{},
		goals:    &memGoals{},
		audit:    &memAudit{},
		pinger:   &fakePinger{},
	}
	app.dispatcher = notification.NewDispatcher(notification.NewRegistry(time.Now), logger)
	// testUser starts signed in; only their notifications are kept in-app
	app.dispatcher.Open(testUser)

	profileService := service.NewProfileService(app.profiles, app.audit, logger)
	settingsService := service.NewSettingsService(app.settings, app.audit, logger)
	app.manager = scheduler.NewManager(scheduler.Deps{
		Markers: scheduler.NewMemoryMarkers(),
		Loader:  service.NewSchedulerStateLoader(settingsService, app.records, profileService),
		Emitter: app.dispatcher,
		Logger:  logger,
	}, scheduler.Options{Enabled: true, Interval: time.Hour}, app.dispatcher, logger)
	t.Cleanup(app.manager.StopAll)

	recordService := service.NewHealthRecordService(app.records, profileService, app.manager, app.audit, logger)
	importService := service.NewImportService(app.records,
		csvimport.NewParser(csvimport.DateBestEffort, time.UTC, nil, logger), profileService, app.manager, app.audit, logger)
	exportService := service.NewExportService(app.records, profileService, app.goals,
		pdf.NewPDFGenerator(logger), spreadsheet.NewExporter(logger),
		azure.NewMockBlobStorageClient(logger), app.audit, logger)
	goalService := service.NewGoalService(app.goals, settingsService, app.dispatcher, app.audit, logger)

	handlers := Handlers{
		Health:        NewHealthHandler(app.pinger, logger),
		Session:       NewSessionHandler(app.manager, logger),
		Records:       NewHealthRecordHandler(recordService, importService, exportService, 1024, logger),
		Dashboard:     NewDashboardHandler(service.NewDashboardService(app.records, profileService, time.UTC, logger), logger),
		Settings:      NewSettingsHandler(settingsService, logger),
		Goals:         NewGoalHandler(goalService, logger),
		Notifications: NewNotificationHandler(app.dispatcher, logger),
		Profile:       NewProfileHandler(profileService, logger),
		Audit:         NewAuditHandler(app.audit, logger),
	}

	app.router = gin.New()
	RegisterRoutes(app.router, handlers, func(c *gin.Context) {
		if user := c.GetHeader("X-Test-User"); user != "" {
			c.Set(middleware.UserIDKey, user)
			return
		}
		c.Set(middleware.UserIDKey, testUser)
	})
	return app
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}
