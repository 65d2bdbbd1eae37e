package scheduler

import (
	"sort"
	"time"

	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/notification"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/validation"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
)

// DangerWindow is how many of the most recent records the danger rule inspects
const DangerWindow = 3

// State is what one tick evaluates against
type State struct {
	Settings []model.NotificationSetting
	Records  []model.HealthRecord
	HeightCM *float64
}

// rule turns a due setting into zero or more notifications
type rule func(setting model.NotificationSetting, state State, now time.Time) []notification.Draft

var rules = map[model.SettingType]rule{
	model.SettingMeasurementReminder: reminderRule,
	model.SettingDangerAlert:         dangerRule,
	model.SettingDailySummary:        summaryRule,
}

// reminderRule lists the configured measurement types with no record today.
func reminderRule(setting model.NotificationSetting, state State, now time.Time) []notification.Draft {
	measured := make(map[model.RecordType]bool)
	for _, rec := range recordsOn(state.Records, now) {
		measured[rec.RecordType] = true
	}

	var missing []string
	for _, t := range setting.MeasurementTypes {
		if !measured[t] {
			missing = append(missing, t.Label())
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []notification.Draft{notification.MeasurementReminder(missing, clockTime(setting.Time))}
}

// dangerRule emits one warning per dangerous reading among the most recent records.
func dangerRule(_ model.NotificationSetting, state State, _ time.Time) []notification.Draft {
	var drafts []notification.Draft
	for _, rec := range mostRecent(state.Records, DangerWindow) {
		drafts = append(drafts, dangerDrafts(rec, state.HeightCM)...)
	}
	return drafts
}

// summaryRule lists the distinct categories measured today in order of first appearance.
func summaryRule(_ model.NotificationSetting, state State, now time.Time) []notification.Draft {
	today := recordsOn(state.Records, now)
	sort.SliceStable(today, func(i, j int) bool {
		return today[i].MeasurementTime.Before(today[j].MeasurementTime)
	})

	seen := make(map[model.RecordType]bool)
	var labels []string
	for _, rec := range today {
		if seen[rec.RecordType] {
			continue
		}
		seen[rec.RecordType] = true
		labels = append(labels, rec.RecordType.Label())
	}
	if len(labels) == 0 {
		return nil
	}
	return []notification.Draft{notification.DailySummary(labels)}
}

func dangerDrafts(rec model.HealthRecord, heightCM *float64) []notification.Draft {
	var drafts []notification.Draft
	for _, reading := range validation.Readings(rec, heightCM) {
		if reading.Assess().IsDanger {
			drafts = append(drafts, notification.DangerWarning(reading.Label(), reading.Value(), reading.NormalRange()))
		}
	}
	return drafts
}

func recordsOn(records []model.HealthRecord, day time.Time) []model.HealthRecord {
	y, m, d := day.Date()
	var out []model.HealthRecord
	for _, rec := range records {
		ry, rm, rd := rec.MeasurementTime.In(day.Location()).Date()
		if ry == y && rm == m && rd == d {
			out = append(out, rec)
		}
	}
	return out
}

func mostRecent(records []model.HealthRecord, n int) []model.HealthRecord {
	sorted := make([]model.HealthRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MeasurementTime.After(sorted[j].MeasurementTime)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// due reports whether setting fires at now: enabled, same HH:MM, and either
// daily or scheduled for today's weekday.
func due(setting model.NotificationSetting, now time.Time) bool {
	if !setting.IsEnabled || clockTime(setting.Time) != now.Format("15:04") {
		return false
	}
	if setting.Frequency == model.FrequencyDaily {
		return true
	}
	weekday := int(now.Weekday())
	for _, d := range setting.Days {
		if d == weekday {
			return true
		}
	}
	return false
}

// clockTime trims a stored "HH:MM:SS" to "HH:MM"
func clockTime(s string) string {
	if len(s) > 5 {
		return s[:5]
	}
	return s
}
