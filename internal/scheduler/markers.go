package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
)

// Clock supplies the current local time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location
type SystemClock struct {
	Location *time.Location
}

// Now returns the current time in c.Location, or local time when unset
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// MarkerStore records which (day, user, setting) combinations already fired.
// SetIfAbsent must be atomic: it reports true only for the caller that
// created the marker.
type MarkerStore interface {
	SetIfAbsent(ctx context.Context, key string) (bool, error)
}

// MarkerKey builds the idempotency key for a setting on a calendar day
func MarkerKey(day time.Time, userID string, settingType model.SettingType) string {
	return fmt.Sprintf("notifications_sent_%s_%s_%s", day.Format("2006-01-02"), userID, settingType)
}

// MemoryMarkers is a process-local MarkerStore
type MemoryMarkers struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewMemoryMarkers creates an empty MemoryMarkers
func NewMemoryMarkers() *MemoryMarkers {
	return &MemoryMarkers{keys: make(map[string]struct{})}
}

func (m *MemoryMarkers) SetIfAbsent(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = struct{}{}
	return true, nil
}

// Has reports whether key was set
func (m *MemoryMarkers) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[key]
	return ok
}
