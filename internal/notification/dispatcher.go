package notification

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

var (
	notificationsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_emitted_total",
			Help: "Notifications emitted, by kind and whether they were new",
		},
		[]string{"kind", "created"},
	)

	alertPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_alert_publish_failures_total",
			Help: "Danger alerts that could not be delivered to an external publisher",
		},
	)
)

const publishTimeout = 15 * time.Second

// Publisher delivers high-priority warnings outside the app
type Publisher interface {
	Publish(ctx context.Context, userID string, n model.Notification) error
}

// Dispatcher adds notifications to the user's store and fans danger
// warnings out to the configured publishers in the background.
type Dispatcher struct {
	registry   *Registry
	publishers []Publisher
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(registry *Registry, logger *zap.Logger, publishers ...Publisher) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		publishers: publishers,
		logger:     logger,
	}
}

// Emit stores d in the user's session store and returns the notification.
// Users without an open session get nothing stored, but danger warnings are
// still published. Publishing never blocks the caller and never fails the
// emission.
func (d *Dispatcher) Emit(ctx context.Context, userID string, draft Draft) model.Notification {
	var (
		n       model.Notification
		created = true
	)
	if store, ok := d.registry.Lookup(userID); ok {
		n, created = store.Add(draft)
	} else {
		n = newNotification(draft, d.registry.now())
	}

	label := "false"
	if created {
		label = "true"
	}
	notificationsEmitted.WithLabelValues(string(n.Kind), label).Inc()

	if !created || n.Kind != model.NotificationWarning || n.Priority != model.PriorityHigh {
		return n
	}

	pubCtx := context.WithoutCancel(ctx)
	for _, p := range d.publishers {
		d.wg.Add(1)
		go func(p Publisher) {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(pubCtx, publishTimeout)
			defer cancel()
			if err := p.Publish(ctx, userID, n); err != nil {
				alertPublishFailures.Inc()
				d.logger.Warn("failed to publish danger alert",
					zap.Error(err),
					zap.String("user_id", userID),
					zap.String("notification_id", n.ID),
				)
			}
		}(p)
	}
	return n
}

// Open starts the user's session store
func (d *Dispatcher) Open(userID string) {
	d.registry.Open(userID)
}

// Store returns the user's session store, or an empty detached store when
// the user has no session
func (d *Dispatcher) Store(userID string) *Store {
	if store, ok := d.registry.Lookup(userID); ok {
		return store
	}
	return NewStore(d.registry.now)
}

// Forget drops the user's notifications
func (d *Dispatcher) Forget(userID string) {
	d.registry.Drop(userID)
}

// Wait blocks until in-flight publishes finish
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
