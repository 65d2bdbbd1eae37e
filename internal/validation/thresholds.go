package validation

import (
	"fmt"
	"strconv"
)

// Limits describes the classification bands of a single metric.
// A value is dangerous when value >= DangerHigh or value <= DangerLow,
// a warning when value > Max or value < Min, otherwise normal.
type Limits struct {
	DangerLow  float64
	Min        float64
	Max        float64
	DangerHigh float64
	Unit       string
	// NormalText overrides the displayed normal range when it differs from Min..Max.
	NormalText string
}

// Range returns the displayed normal range, e.g. "90-140 mmHg"
func (l Limits) Range() string {
	if l.NormalText != "" {
		return l.NormalText
	}
	r := formatNumber(l.Min) + "-" + formatNumber(l.Max)
	if l.Unit != "" {
		r += " " + l.Unit
	}
	return r
}

type band int

const (
	bandNormal band = iota
	bandDangerHigh
	bandDangerLow
	bandWarnHigh
	bandWarnLow
)

func (l Limits) classify(v float64) band {
	switch {
	case v >= l.DangerHigh:
		return bandDangerHigh
	case v <= l.DangerLow:
		return bandDangerLow
	case v > l.Max:
		return bandWarnHigh
	case v < l.Min:
		return bandWarnLow
	default:
		return bandNormal
	}
}

// Thresholds is the one table every caller classifies against.
type Thresholds struct {
	Systolic  Limits
	Diastolic Limits
	Fasting   Limits
	PostMeal  Limits
	HeartRate Limits
	BMI       Limits
}

// Table holds the normal ranges and danger limits for all supported metrics.
var Table = Thresholds{
	Systolic:  Limits{DangerLow: 80, Min: 90, Max: 140, DangerHigh: 180, Unit: "mmHg"},
	Diastolic: Limits{DangerLow: 50, Min: 60, Max: 90, DangerHigh: 110, Unit: "mmHg"},
	Fasting:   Limits{DangerLow: 60, Min: 70, Max: 100, DangerHigh: 200, Unit: "mg/dL"},
	PostMeal:  Limits{DangerLow: 60, Min: 70, Max: 140, DangerHigh: 200, Unit: "mg/dL"},
	HeartRate: Limits{DangerLow: 40, Min: 60, Max: 100, DangerHigh: 120, Unit: "bpm"},
	BMI:       Limits{DangerLow: 18.5, Min: 20, Max: 25, DangerHigh: 30, NormalText: "18.5-24.9"},
}

// BloodPressureRange returns the combined "systolic/diastolic" normal range text
func (t Thresholds) BloodPressureRange() string {
	return fmt.Sprintf("%s/%s mmHg",
		formatNumber(t.Systolic.Min)+"-"+formatNumber(t.Systolic.Max),
		formatNumber(t.Diastolic.Min)+"-"+formatNumber(t.Diastolic.Max),
	)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
