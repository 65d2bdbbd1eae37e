package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/validation"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

// maxRowsPerSection caps the reading list printed under each measurement type
const maxRowsPerSection = 30

// PDFGenerator renders exported health records as a printable report
type PDFGenerator struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewPDFGenerator creates a new PDFGenerator
func NewPDFGenerator(logger *zap.Logger) *PDFGenerator {
	return &PDFGenerator{
		logger: logger,
		now:    time.Now,
	}
}

// ReportData contains all data needed for report generation
type ReportData struct {
	UserName  string
	DateRange string
	HeightCM  *float64
	Records   []model.HealthRecord
	Goals     []model.HealthGoal
}

// Generate creates a PDF report from the provided data
func (g *PDFGenerator) Generate(data *ReportData) ([]byte, error) {
	g.logger.Info("generating PDF report",
		zap.String("user_name", data.UserName),
		zap.String("date_range", data.DateRange),
		zap.Int("records", len(data.Records)),
	)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	g.addTitle(pdf, "Health Report", data.UserName, data.DateRange)
	g.addOverview(pdf, data)

	byType := groupByType(data.Records)
	for _, t := range model.RecordTypes {
		g.addRecordSection(pdf, t, byType[t], data.HeightCM)
	}
	g.addGoals(pdf, data.Goals)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		g.logger.Error("failed to generate PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	g.logger.Info("PDF report generated successfully",
		zap.Int("size_bytes", buf.Len()),
	)

	return buf.Bytes(), nil
}

func (g *PDFGenerator) addTitle(pdf *gofpdf.Fpdf, title, userName, dateRange string) {
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	if userName != "" {
		pdf.CellFormat(0, 8, fmt.Sprintf("Name: %s", userName), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 8, fmt.Sprintf("Period: %s", dateRange), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Generated: %s", g.now().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(10)
}

func (g *PDFGenerator) addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, 10, title, "", 1, "L", true, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Arial", "", 10)
}

// addOverview prints the overall health evaluation of the most recent records
func (g *PDFGenerator) addOverview(pdf *gofpdf.Fpdf, data *ReportData) {
	g.addSectionHeader(pdf, "Overview")

	if len(data.Records) == 0 {
		pdf.CellFormat(0, 8, "No measurements recorded during this period.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	overall := validation.EvaluateOverall(data.Records, data.HeightCM)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total measurements: %d", len(data.Records)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Health score: %d (%s)", overall.Score, overall.Level), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Warnings: %d, Dangers: %d", overall.Warnings, overall.Dangers), "", 1, "L", false, 0, "")
	pdf.MultiCell(0, 5, overall.Recommendation, "", "L", false)
	pdf.Ln(5)
}

func (g *PDFGenerator) addRecordSection(pdf *gofpdf.Fpdf, t model.RecordType, records []model.HealthRecord, heightCM *float64) {
	if len(records) == 0 {
		return
	}
	g.addSectionHeader(pdf, t.Label())

	if avg := averageLine(t, records); avg != "" {
		pdf.CellFormat(0, 6, avg, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("Total readings: %d", len(records)), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Time", "B", 0, "L", false, 0, "")
	pdf.CellFormat(60, 6, "Value", "B", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Assessment", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)

	n := len(records)
	if n > maxRowsPerSection {
		n = maxRowsPerSection
	}
	for _, rec := range records[:n] {
		pdf.CellFormat(40, 5, rec.MeasurementTime.Format("2006-01-02 15:04"), "", 0, "L", false, 0, "")
		pdf.CellFormat(60, 5, Describe(rec), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, assessment(rec, heightCM), "", 1, "L", false, 0, "")
		if rec.Notes != nil && *rec.Notes != "" {
			pdf.SetFont("Arial", "I", 9)
			pdf.CellFormat(0, 5, fmt.Sprintf("  Notes: %s", *rec.Notes), "", 1, "L", false, 0, "")
			pdf.SetFont("Arial", "", 10)
		}
	}
	if len(records) > n {
		pdf.CellFormat(0, 5, fmt.Sprintf("... and %d more", len(records)-n), "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addGoals(pdf *gofpdf.Fpdf, goals []model.HealthGoal) {
	if len(goals) == 0 {
		return
	}
	g.addSectionHeader(pdf, "Goals")

	for _, goal := range goals {
		status := "in progress"
		if goal.IsAchieved {
			status = "achieved"
		}
		current := "-"
		if goal.CurrentValue != nil {
			current = fmt.Sprintf("%g", *goal.CurrentValue)
		}
		pdf.CellFormat(0, 6, fmt.Sprintf("%s: target %g %s by %s, current %s (%s)",
			goal.GoalType, goal.TargetValue, goal.Unit, goal.TargetDate.Format("2006-01-02"), current, status),
			"", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}

// Describe renders the measured values of a record on one line
func Describe(rec model.HealthRecord) string {
	var parts []string
	switch rec.RecordType {
	case model.RecordTypeBloodPressure:
		if rec.SystolicPressure != nil && rec.DiastolicPressure != nil {
			parts = append(parts, fmt.Sprintf("%g/%g mmHg", *rec.SystolicPressure, *rec.DiastolicPressure))
		}
		if rec.HeartRate != nil {
			parts = append(parts, fmt.Sprintf("pulse %g bpm", *rec.HeartRate))
		}
	case model.RecordTypeBloodSugar:
		if rec.BloodSugar != nil {
			s := fmt.Sprintf("%g mg/dL", *rec.BloodSugar)
			if rec.BloodSugarType != nil {
				s += " (" + strings.ReplaceAll(string(*rec.BloodSugarType), "_", "-") + ")"
			}
			parts = append(parts, s)
		}
	case model.RecordTypeWeight:
		if rec.Weight != nil {
			parts = append(parts, fmt.Sprintf("%g kg", *rec.Weight))
		}
	case model.RecordTypeHeartRate:
		if rec.HeartRate != nil {
			parts = append(parts, fmt.Sprintf("%g bpm", *rec.HeartRate))
		}
	case model.RecordTypeTemperature:
		if rec.Temperature != nil {
			parts = append(parts, fmt.Sprintf("%g C", *rec.Temperature))
		}
	case model.RecordTypeExercise:
		parts = append(parts, "logged")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

// assessment returns the worst validator level over the record's readings
func assessment(rec model.HealthRecord, heightCM *float64) string {
	level := ""
	for _, r := range validation.Readings(rec, heightCM) {
		res := r.Assess()
		switch {
		case res.IsDanger:
			return string(validation.LevelDanger)
		case !res.IsNormal:
			level = string(validation.LevelWarning)
		case level == "":
			level = string(validation.LevelNormal)
		}
	}
	return level
}

func averageLine(t model.RecordType, records []model.HealthRecord) string {
	mean := func(get func(model.HealthRecord) *float64) (float64, bool) {
		var sum float64
		var n int
		for _, rec := range records {
			if v := get(rec); v != nil {
				sum += *v
				n++
			}
		}
		if n == 0 {
			return 0, false
		}
		return sum / float64(n), true
	}

	switch t {
	case model.RecordTypeBloodPressure:
		sys, ok1 := mean(func(r model.HealthRecord) *float64 { return r.SystolicPressure })
		dia, ok2 := mean(func(r model.HealthRecord) *float64 { return r.DiastolicPressure })
		if ok1 && ok2 {
			return fmt.Sprintf("Average: %.0f/%.0f mmHg", sys, dia)
		}
	case model.RecordTypeBloodSugar:
		if v, ok := mean(func(r model.HealthRecord) *float64 { return r.BloodSugar }); ok {
			return fmt.Sprintf("Average: %.0f mg/dL", v)
		}
	case model.RecordTypeWeight:
		if v, ok := mean(func(r model.HealthRecord) *float64 { return r.Weight }); ok {
			return fmt.Sprintf("Average: %.1f kg", v)
		}
	case model.RecordTypeHeartRate:
		if v, ok := mean(func(r model.HealthRecord) *float64 { return r.HeartRate }); ok {
			return fmt.Sprintf("Average: %.0f bpm", v)
		}
	case model.RecordTypeTemperature:
		if v, ok := mean(func(r model.HealthRecord) *float64 { return r.Temperature }); ok {
			return fmt.Sprintf("Average: %.1f C", v)
		}
	}
	return ""
}

func groupByType(records []model.HealthRecord) map[model.RecordType][]model.HealthRecord {
	out := make(map[model.RecordType][]model.HealthRecord)
	for _, rec := range records {
		out[rec.RecordType] = append(out[rec.RecordType], rec)
	}
	return out
}
