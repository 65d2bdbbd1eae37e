// Package scheduler evaluates a user's notification settings once a minute
// and emits reminders, danger alerts and daily summaries at most once per
// setting per calendar day.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/notification"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_ticks_total",
		Help: "Scheduler evaluation passes",
	})

	ruleFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_rule_failures_total",
			Help: "Rule evaluations that returned an error or panicked",
		},
		[]string{"setting_type"},
	)
)

// StateLoader fetches the settings and records a tick works on.
// Records must include everything measured since dayStart and the most
// recent records regardless of date.
type StateLoader interface {
	LoadState(ctx context.Context, userID string, dayStart time.Time) (State, error)
}

// Emitter delivers notifications to the user
type Emitter interface {
	Emit(ctx context.Context, userID string, d notification.Draft) model.Notification
}

// Options tune a Scheduler
type Options struct {
	Enabled        bool
	Interval       time.Duration
	RealtimeWindow time.Duration
}

// DefaultOptions returns a one-minute polling interval and a five-minute real-time window
func DefaultOptions() Options {
	return Options{
		Enabled:        true,
		Interval:       time.Minute,
		RealtimeWindow: 5 * time.Minute,
	}
}

// Deps are the collaborators shared by all schedulers
type Deps struct {
	Clock   Clock
	Markers MarkerStore
	Loader  StateLoader
	Emitter Emitter
	Logger  *zap.Logger
}

// Scheduler runs the rules for one signed-in user
type Scheduler struct {
	userID string
	deps   Deps
	opts   Options
	rules  map[model.SettingType]rule

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New creates a stopped Scheduler for userID
func New(userID string, deps Deps, opts Options) *Scheduler {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.RealtimeWindow <= 0 {
		opts.RealtimeWindow = 5 * time.Minute
	}
	return &Scheduler{
		userID: userID,
		deps:   deps,
		opts:   opts,
		rules:  rules,
	}
}

// Start runs an immediate tick and then one per interval until Stop or ctx ends.
// Ticks never overlap. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx, s.done)
}

// Stop cancels the timer and waits for an in-flight tick to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.mu.Unlock()

	cancel()
	<-done
}

// Running reports whether the timer is active
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.tickLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickLogged(ctx)
		}
	}
}

func (s *Scheduler) tickLogged(ctx context.Context) {
	if err := s.Tick(ctx); err != nil && ctx.Err() == nil {
		s.deps.Logger.Error("scheduler tick failed", zap.Error(err), zap.String("user_id", s.userID))
	}
}

// Tick evaluates every due setting once. A failing rule is logged and
// skipped without affecting the others; its marker is not written.
func (s *Scheduler) Tick(ctx context.Context) error {
	if !s.opts.Enabled {
		return nil
	}
	ticksTotal.Inc()

	now := s.deps.Clock.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	state, err := s.deps.Loader.LoadState(ctx, s.userID, dayStart)
	if err != nil {
		return fmt.Errorf("failed to load scheduler state: %w", err)
	}
	if len(state.Settings) == 0 {
		return nil
	}

	for _, setting := range state.Settings {
		if !due(setting, now) {
			continue
		}
		evaluate, ok := s.rules[setting.SettingType]
		if !ok {
			continue
		}

		drafts, err := s.runRule(evaluate, setting, state, now)
		if err != nil {
			ruleFailures.WithLabelValues(string(setting.SettingType)).Inc()
			s.deps.Logger.Error("notification rule failed",
				zap.Error(err),
				zap.String("user_id", s.userID),
				zap.String("setting_type", string(setting.SettingType)),
			)
			continue
		}

		key := MarkerKey(now, s.userID, setting.SettingType)
		first, err := s.deps.Markers.SetIfAbsent(ctx, key)
		if err != nil {
			s.deps.Logger.Error("failed to write notification marker",
				zap.Error(err),
				zap.String("user_id", s.userID),
				zap.String("marker", key),
			)
			continue
		}
		if !first {
			continue
		}

		for _, d := range drafts {
			s.deps.Emitter.Emit(ctx, s.userID, d)
		}
		s.deps.Logger.Debug("notification rule fired",
			zap.String("user_id", s.userID),
			zap.String("setting_type", string(setting.SettingType)),
			zap.Int("notifications", len(drafts)),
		)
	}
	return nil
}

func (s *Scheduler) runRule(evaluate rule, setting model.NotificationSetting, state State, now time.Time) (drafts []notification.Draft, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule %s panicked: %v", setting.SettingType, r)
		}
	}()
	return evaluate(setting, state, now), nil
}

// Observe is the real-time path: a record created within the real-time
// window is checked against the danger thresholds immediately.
// It returns the number of warnings emitted.
func (s *Scheduler) Observe(ctx context.Context, rec model.HealthRecord, heightCM *float64) int {
	if !s.opts.Enabled {
		return 0
	}
	age := s.deps.Clock.Now().Sub(rec.CreatedAt)
	if age > s.opts.RealtimeWindow {
		return 0
	}

	drafts := dangerDrafts(rec, heightCM)
	for _, d := range drafts {
		s.deps.Emitter.Emit(ctx, s.userID, d)
	}
	return len(drafts)
}
