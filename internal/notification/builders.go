package notification

import (
	"fmt"
	"strings"

	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
)

// Action URLs the client routes to
const (
	ActionRecord    = "/record"
	ActionDashboard = "/dashboard"
)

// MeasurementReminder lists the measurement types still missing today
func MeasurementReminder(missing []string, at string) Draft {
	return Draft{
		Kind:      model.NotificationReminder,
		Title:     "Time to measure",
		Message:   fmt.Sprintf("%s measurement time. (%s)", strings.Join(missing, ", "), at),
		ActionURL: ActionRecord,
		Priority:  model.PriorityHigh,
	}
}

// DangerWarning reports a value outside its normal range
func DangerWarning(label, value, normalRange string) Draft {
	return Draft{
		Kind:      model.NotificationWarning,
		Title:     "Caution! Dangerous value detected",
		Message:   fmt.Sprintf("%s is %s, outside the normal range (%s)", label, value, normalRange),
		ActionURL: ActionRecord,
		Priority:  model.PriorityHigh,
	}
}

// DailySummary lists the categories measured today
func DailySummary(measured []string) Draft {
	return Info("Today's health summary",
		fmt.Sprintf("You measured %s today. Keep up the steady health management!", strings.Join(measured, ", ")))
}

// GoalAchieved congratulates the user on reaching a goal
func GoalAchieved(goalLabel string, target string) Draft {
	return Draft{
		Kind:      model.NotificationAchievement,
		Title:     "Goal achieved!",
		Message:   fmt.Sprintf("Congratulations! You reached your %s goal (%s).", goalLabel, target),
		ActionURL: ActionDashboard,
		Priority:  model.PriorityHigh,
	}
}

// Info is a plain medium-priority message
func Info(title, message string) Draft {
	return Draft{
		Kind:     model.NotificationInfo,
		Title:    title,
		Message:  message,
		Priority: model.PriorityMedium,
	}
}
