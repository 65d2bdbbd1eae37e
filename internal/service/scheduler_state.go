package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/scheduler"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
)

// SettingsLister returns a user's notification settings
type SettingsLister interface {
	List(ctx context.Context, userID string) ([]model.NotificationSetting, error)
}

// SchedulerStateLoader feeds the notification scheduler from the database
type SchedulerStateLoader struct {
	settings SettingsLister
	records  RecordLister
	heights  HeightLookup
}

// NewSchedulerStateLoader creates a new SchedulerStateLoader
func NewSchedulerStateLoader(settings SettingsLister, records RecordLister, heights HeightLookup) *SchedulerStateLoader {
	return &SchedulerStateLoader{
		settings: settings,
		records:  records,
		heights:  heights,
	}
}

// LoadState returns the user's settings, everything measured since dayStart
// plus the most recent records, and the user's height
func (l *SchedulerStateLoader) LoadState(ctx context.Context, userID string, dayStart time.Time) (scheduler.State, error) {
	settings, err := l.settings.List(ctx, userID)
	if err != nil {
		return scheduler.State{}, fmt.Errorf("failed to load settings: %w", err)
	}
	if len(settings) == 0 {
		return scheduler.State{}, nil
	}

	today, err := l.records.ListByUserID(ctx, userID, model.RecordFilter{From: &dayStart})
	if err != nil {
		return scheduler.State{}, fmt.Errorf("failed to load today's records: %w", err)
	}
	recent, err := l.records.ListByUserID(ctx, userID, model.RecordFilter{Limit: scheduler.DangerWindow})
	if err != nil {
		return scheduler.State{}, fmt.Errorf("failed to load recent records: %w", err)
	}

	seen := make(map[string]bool, len(today))
	records := make([]model.HealthRecord, 0, len(today)+len(recent))
	for _, rec := range append(today, recent...) {
		if seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		records = append(records, rec)
	}

	return scheduler.State{
		Settings: settings,
		Records:  records,
		HeightCM: l.heights.HeightCM(ctx, userID),
	}, nil
}

var _ scheduler.StateLoader = (*SchedulerStateLoader)(nil)
