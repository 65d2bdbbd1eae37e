package validation

import (
	"sort"

	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
)

// OverallWindow is how many of the most recent records feed the overall score
const OverallWindow = 7

// Health levels of an overall evaluation
const (
	HealthGood = "good"
	HealthFair = "fair"
	HealthPoor = "poor"
)

// Overall is a coarse score over the most recent records
type Overall struct {
	Score          int    `json:"score"`
	Level          string `json:"level"`
	Warnings       int    `json:"warnings"`
	Dangers        int    `json:"dangers"`
	Recommendation string `json:"recommendation"`
}

// EvaluateOverall scores up to OverallWindow most recent records:
// 100 - 10 per warning - 30 per danger, floored at 0.
func EvaluateOverall(records []model.HealthRecord, heightCM *float64) Overall {
	recent := make([]model.HealthRecord, len(records))
	copy(recent, records)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].MeasurementTime.After(recent[j].MeasurementTime)
	})
	if len(recent) > OverallWindow {
		recent = recent[:OverallWindow]
	}

	var out Overall
	for _, rec := range recent {
		for _, reading := range Readings(rec, heightCM) {
			switch reading.Assess().Level {
			case LevelDanger:
				out.Dangers++
			case LevelWarning:
				out.Warnings++
			}
		}
	}

	out.Score = 100 - 10*out.Warnings - 30*out.Dangers
	if out.Score < 0 {
		out.Score = 0
	}

	switch {
	case out.Score >= 80:
		out.Level = HealthGood
		out.Recommendation = "Your recent measurements look healthy. Keep up your current routine."
	case out.Score >= 60:
		out.Level = HealthFair
		out.Recommendation = "Some measurements are outside the normal range. Keep measuring regularly."
	default:
		out.Level = HealthPoor
		out.Recommendation = "Several measurements are concerning. Consider consulting a medical professional."
	}
	return out
}
