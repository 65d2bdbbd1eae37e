// Package spreadsheet renders health records as an Excel workbook.
package spreadsheet

import (
	"bytes"
	"fmt"

	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/csvimport"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	recordsSheet = "Records"
	summarySheet = "Summary"
)

// Exporter builds .xlsx files
type Exporter struct {
	logger *zap.Logger
}

// NewExporter creates a new Exporter
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// Export writes one row per record using the CSV column order, plus a
// per-type count sheet
func (e *Exporter) Export(records []model.HealthRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			e.logger.Warn("failed to close workbook", zap.Error(err))
		}
	}()

	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(csvimport.Header))
	for i, h := range csvimport.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(recordsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetCellStyle(recordsSheet, "A1", lastCol+"1", bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	counts := make(map[model.RecordType]int)
	for i, rec := range records {
		counts[rec.RecordType]++
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := recordRow(rec)
		if err := f.SetSheetRow(recordsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(recordsSheet, "A", lastCol, 16); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := f.SetSheetRow(summarySheet, "A1", &[]any{"record_type", "count"}); err != nil {
		return nil, fmt.Errorf("failed to write summary header: %w", err)
	}
	row := 2
	for _, t := range model.RecordTypes {
		if counts[t] == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(summarySheet, cell, &[]any{t.Label(), counts[t]}); err != nil {
			return nil, fmt.Errorf("failed to write summary row: %w", err)
		}
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		e.logger.Error("failed to write workbook", zap.Error(err))
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("spreadsheet export generated",
		zap.Int("records", len(records)),
		zap.Int("size_bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}

func recordRow(rec model.HealthRecord) []any {
	num := func(v *float64) any {
		if v == nil {
			return ""
		}
		return *v
	}
	sugarType := ""
	if rec.BloodSugarType != nil {
		sugarType = string(*rec.BloodSugarType)
	}
	notes := ""
	if rec.Notes != nil {
		notes = *rec.Notes
	}
	return []any{
		string(rec.RecordType),
		num(rec.SystolicPressure),
		num(rec.DiastolicPressure),
		num(rec.HeartRate),
		num(rec.BloodSugar),
		sugarType,
		num(rec.Weight),
		rec.MeasurementTime.Format("2006-01-02 15:04"),
		notes,
	}
}
