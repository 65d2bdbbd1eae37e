package scheduler

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "scheduler_active_sessions",
	Help: "Users with a running notification scheduler",
})

// SessionStores holds the per-session notification state
type SessionStores interface {
	Open(userID string)
	Forget(userID string)
}

// Manager keeps one Scheduler per signed-in user and follows session changes
type Manager struct {
	deps      Deps
	opts      Options
	sessions SessionStores
	logger   *zap.Logger

	mu         sync.Mutex
	schedulers map[string]*Scheduler
}

// NewManager creates a new Manager. sessions may be nil.
func NewManager(deps Deps, opts Options, sessions SessionStores, logger *zap.Logger) *Manager {
	return &Manager{
		deps:       deps,
		opts:       opts,
		sessions:   sessions,
		logger:     logger,
		schedulers: make(map[string]*Scheduler),
	}
}

// SignIn opens the user's notification store and starts their scheduler if
// it is not already running. It reports whether a scheduler was started; a
// disabled Manager never starts one.
// The scheduler outlives ctx's cancellation but keeps its values.
func (m *Manager) SignIn(ctx context.Context, userID string) bool {
	if m.sessions != nil {
		m.sessions.Open(userID)
	}
	if !m.opts.Enabled {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.schedulers[userID]; ok {
		return false
	}
	s := New(userID, m.deps, m.opts)
	s.Start(context.WithoutCancel(ctx))
	m.schedulers[userID] = s
	activeSessions.Inc()

	m.logger.Info("notification scheduler started", zap.String("user_id", userID))
	return true
}

// SignOut stops the user's scheduler and drops their notifications
func (m *Manager) SignOut(userID string) bool {
	m.mu.Lock()
	s, ok := m.schedulers[userID]
	delete(m.schedulers, userID)
	m.mu.Unlock()

	if ok {
		s.Stop()
		activeSessions.Dec()
	}
	if m.sessions != nil {
		m.sessions.Forget(userID)
	}
	if !ok {
		return false
	}

	m.logger.Info("notification scheduler stopped", zap.String("user_id", userID))
	return true
}

// Observe runs the real-time danger check for a freshly written record.
// Users without a session are checked by a scheduler that is never started.
func (m *Manager) Observe(ctx context.Context, rec model.HealthRecord, heightCM *float64) int {
	m.mu.Lock()
	s, ok := m.schedulers[rec.UserID]
	m.mu.Unlock()

	if !ok {
		s = New(rec.UserID, m.deps, m.opts)
	}
	return s.Observe(ctx, rec, heightCM)
}

// Running reports whether the user has a running scheduler
func (m *Manager) Running(userID string) bool {
	m.mu.Lock()
	s, ok := m.schedulers[userID]
	m.mu.Unlock()
	return ok && s.Running()
}

// Active returns the number of running schedulers
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.schedulers)
}

// StopAll stops every scheduler, used on shutdown
func (m *Manager) StopAll() {
	m.mu.Lock()
	schedulers := m.schedulers
	m.schedulers = make(map[string]*Scheduler)
	m.mu.Unlock()

	for _, s := range schedulers {
		s.Stop()
		activeSessions.Dec()
	}
	m.logger.Info("all notification schedulers stopped", zap.Int("count", len(schedulers)))
}
