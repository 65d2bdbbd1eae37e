// Package validation classifies measurements as normal, warning or danger.
//
// Every supported metric is its own Reading type; adding a metric means
// implementing the whole interface, so no classification can be forgotten.
// All functions are pure.
package validation

import (
	"math"

	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
)

// Level is the outcome of a classification
type Level string

const (
	LevelNormal  Level = "normal"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// Result is the classification of a single reading
type Result struct {
	Level    Level    `json:"level"`
	IsNormal bool     `json:"is_normal"`
	IsDanger bool     `json:"is_danger"`
	Warnings []string `json:"warnings"`
	// BMI is set for weight readings with a known height, rounded to one decimal.
	BMI *float64 `json:"bmi,omitempty"`
}

// Reading is a typed measurement that can classify itself
type Reading interface {
	// Kind is the record type the reading belongs to
	Kind() model.RecordType
	// Label names the metric in user-facing messages
	Label() string
	// Value formats the measured value with its unit
	Value() string
	// NormalRange formats the normal range with its unit
	NormalRange() string
	// Assess classifies the reading against Table
	Assess() Result
}

// BloodPressure is a systolic/diastolic pair in mmHg
type BloodPressure struct {
	Systolic  float64
	Diastolic float64
}

func (BloodPressure) Kind() model.RecordType { return model.RecordTypeBloodPressure }
func (BloodPressure) Label() string          { return "Blood pressure" }

func (b BloodPressure) Value() string {
	return formatNumber(b.Systolic) + "/" + formatNumber(b.Diastolic) + " mmHg"
}

func (BloodPressure) NormalRange() string { return Table.BloodPressureRange() }

// Assess checks both components together; the first matching branch wins:
// danger high, danger low, above range, below range.
func (b BloodPressure) Assess() Result {
	sys := Table.Systolic.classify(b.Systolic)
	dia := Table.Diastolic.classify(b.Diastolic)

	switch {
	case sys == bandDangerHigh || dia == bandDangerHigh:
		return danger("Blood pressure is dangerously high. Seek medical attention immediately.")
	case sys == bandDangerLow || dia == bandDangerLow:
		return danger("Blood pressure is dangerously low. Seek medical attention immediately.")
	case sys == bandWarnHigh || dia == bandWarnHigh:
		return warning("Blood pressure is above the normal range. Keep monitoring it.")
	case sys == bandWarnLow || dia == bandWarnLow:
		return warning("Blood pressure is below the normal range. Keep monitoring it.")
	default:
		return normal()
	}
}

// BloodSugar is a glucose reading in mg/dL. An empty Context means fasting.
type BloodSugar struct {
	MgDL    float64
	Context model.BloodSugarContext
}

func (BloodSugar) Kind() model.RecordType { return model.RecordTypeBloodSugar }

func (s BloodSugar) Label() string {
	if s.context() == model.BloodSugarPostMeal {
		return "Post-meal blood sugar"
	}
	return "Fasting blood sugar"
}

func (s BloodSugar) Value() string       { return formatNumber(s.MgDL) + " mg/dL" }
func (s BloodSugar) NormalRange() string { return s.limits().Range() }

func (s BloodSugar) Assess() Result {
	switch s.limits().classify(s.MgDL) {
	case bandDangerHigh:
		return danger("Blood sugar is dangerously high. Seek medical attention immediately.")
	case bandDangerLow:
		return danger("Blood sugar is dangerously low. Take fast-acting sugar and seek help.")
	case bandWarnHigh:
		return warning("Blood sugar is above the normal range. Watch your diet and keep monitoring.")
	case bandWarnLow:
		return warning("Blood sugar is below the normal range. Keep monitoring it.")
	default:
		return normal()
	}
}

func (s BloodSugar) context() model.BloodSugarContext {
	if s.Context == "" {
		return model.BloodSugarFasting
	}
	return s.Context
}

func (s BloodSugar) limits() Limits {
	if s.context() == model.BloodSugarPostMeal {
		return Table.PostMeal
	}
	return Table.Fasting
}

// HeartRate is a pulse in beats per minute
type HeartRate struct {
	BPM float64
}

func (HeartRate) Kind() model.RecordType { return model.RecordTypeHeartRate }
func (HeartRate) Label() string          { return "Heart rate" }
func (h HeartRate) Value() string        { return formatNumber(h.BPM) + " bpm" }
func (HeartRate) NormalRange() string    { return Table.HeartRate.Range() }

func (h HeartRate) Assess() Result {
	switch Table.HeartRate.classify(h.BPM) {
	case bandDangerHigh:
		return danger("Heart rate is dangerously high. Rest and seek medical attention if it persists.")
	case bandDangerLow:
		return danger("Heart rate is dangerously low. Seek medical attention immediately.")
	case bandWarnHigh:
		return warning("Heart rate is above the normal range. Rest and measure again.")
	case bandWarnLow:
		return warning("Heart rate is below the normal range. Keep monitoring it.")
	default:
		return normal()
	}
}

// Weight is a body weight in kg, classified through BMI with the user's height
type Weight struct {
	KG       float64
	HeightCM float64
}

func (Weight) Kind() model.RecordType { return model.RecordTypeWeight }
func (Weight) Label() string          { return "BMI" }

func (w Weight) Value() string {
	if bmi, ok := w.bmi(); ok {
		return formatNumber(roundOne(bmi))
	}
	return formatNumber(w.KG) + " kg"
}

func (Weight) NormalRange() string { return Table.BMI.Range() }

// Assess returns a normal result with a single warning when the height is unknown.
func (w Weight) Assess() Result {
	bmi, ok := w.bmi()
	if !ok {
		r := normal()
		r.Warnings = []string{"Height is required to assess weight. Add it to your profile."}
		return r
	}

	var r Result
	switch Table.BMI.classify(bmi) {
	case bandDangerHigh:
		r = danger("BMI indicates obesity. Consult a medical professional.")
	case bandDangerLow:
		r = danger("BMI indicates being underweight. Consult a medical professional.")
	case bandWarnHigh:
		r = warning("BMI is above the healthy range. Regular exercise is recommended.")
	case bandWarnLow:
		r = warning("BMI is below the healthy range. Balanced nutrition is recommended.")
	default:
		r = normal()
	}
	rounded := roundOne(bmi)
	r.BMI = &rounded
	return r
}

func (w Weight) bmi() (float64, bool) {
	if w.HeightCM <= 0 {
		return 0, false
	}
	m := w.HeightCM / 100
	return w.KG / (m * m), true
}

// Readings extracts every classifiable reading from a record.
// Blood pressure needs both components; blood sugar defaults to fasting;
// heart rate is read from any record carrying it; weight is always returned
// and reports a missing height itself.
func Readings(rec model.HealthRecord, heightCM *float64) []Reading {
	var out []Reading
	if rec.SystolicPressure != nil && rec.DiastolicPressure != nil {
		out = append(out, BloodPressure{Systolic: *rec.SystolicPressure, Diastolic: *rec.DiastolicPressure})
	}
	if rec.BloodSugar != nil {
		s := BloodSugar{MgDL: *rec.BloodSugar}
		if rec.BloodSugarType != nil {
			s.Context = *rec.BloodSugarType
		}
		out = append(out, s)
	}
	if rec.HeartRate != nil {
		out = append(out, HeartRate{BPM: *rec.HeartRate})
	}
	if rec.Weight != nil {
		w := Weight{KG: *rec.Weight}
		if heightCM != nil {
			w.HeightCM = *heightCM
		}
		out = append(out, w)
	}
	return out
}

func normal() Result {
	return Result{Level: LevelNormal, IsNormal: true, Warnings: []string{}}
}

func warning(msg string) Result {
	return Result{Level: LevelWarning, Warnings: []string{msg}}
}

func danger(msg string) Result {
	return Result{Level: LevelDanger, IsDanger: true, Warnings: []string{msg}}
}

func roundOne(v float64) float64 {
	return math.Round(v*10) / 10
}
