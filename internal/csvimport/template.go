package csvimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
)

// Header is the column header written by Template and WriteRecords
var Header = []string{
	"record_type",
	"systolic_pressure",
	"diastolic_pressure",
	"heart_rate",
	"blood_sugar",
	"blood_sugar_type",
	"weight",
	"measurement_time",
	"notes",
}

var templateRows = [][]string{
	{"blood_pressure", "120", "80", "72", "", "", "", "2024-01-15 09:00", "Morning blood pressure"},
	{"blood_pressure", "130", "85", "75", "", "", "", "2024-01-15 21:00", "Evening blood pressure"},
	{"blood_sugar", "", "", "", "85", "fasting", "", "2024-01-15 09:30", "Fasting blood sugar"},
	{"blood_sugar", "", "", "", "140", "post_meal", "", "2024-01-15 13:30", "Post-meal blood sugar"},
	{"weight", "", "", "", "", "", "70.5", "2024-01-15 10:00", "Weight check"},
	{"weight", "", "", "", "", "", "70.2", "2024-01-16 10:00", "Weight check"},
}

// Template returns a header plus one sample row per common record type
func Template() string {
	var b strings.Builder
	b.WriteString(strings.Join(Header, ","))
	b.WriteByte('\n')
	for _, row := range templateRows {
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteRecords writes records in the import format so an export can be re-imported.
// Quotes and line breaks inside notes are replaced since the import format cannot carry them.
func WriteRecords(w io.Writer, records []model.HealthRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, rec := range records {
		row := make([]string, columnCount)
		row[colRecordType] = string(rec.RecordType)
		row[colSystolic] = formatOptional(rec.SystolicPressure)
		row[colDiastolic] = formatOptional(rec.DiastolicPressure)
		row[colHeartRate] = formatOptional(rec.HeartRate)
		row[colBloodSugar] = formatOptional(rec.BloodSugar)
		if rec.BloodSugarType != nil {
			row[colBloodSugarType] = string(*rec.BloodSugarType)
		}
		row[colWeight] = formatOptional(rec.Weight)
		row[colMeasurementTime] = rec.MeasurementTime.Format("2006-01-02 15:04")
		if rec.Notes != nil {
			row[colNotes] = sanitizeNote(*rec.Notes)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

var noteReplacer = strings.NewReplacer(`"`, "'", "\r\n", " ", "\n", " ", "\r", " ")

func sanitizeNote(s string) string {
	return strings.TrimSpace(noteReplacer.Replace(s))
}
