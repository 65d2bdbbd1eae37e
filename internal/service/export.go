package service

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/audit"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/azure"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/csvimport"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/pdf"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/repository"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

const (
	defaultExportDays = 30
	maxExportDays     = 366
)

// ExportFormat selects the export file type
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatPDF  ExportFormat = "pdf"
	FormatXLSX ExportFormat = "xlsx"
)

// ContentType returns the MIME type of the format
func (f ExportFormat) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// ReportRenderer renders a printable report
type ReportRenderer interface {
	Generate(data *pdf.ReportData) ([]byte, error)
}

// WorkbookRenderer renders a spreadsheet
type WorkbookRenderer interface {
	Export(records []model.HealthRecord) ([]byte, error)
}

// ProfileGetter returns a user's profile
type ProfileGetter interface {
	Get(ctx context.Context, userID string) (*model.Profile, error)
}

// GoalLister lists a user's goals
type GoalLister interface {
	ListByUserID(ctx context.Context, userID string) ([]model.HealthGoal, error)
}

// ExportFile is a generated download
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	// BlobName is set when the file was archived
	BlobName string
}

// ExportService renders a user's records as CSV, PDF or Excel
type ExportService struct {
	records  HealthRecordRepositoryInterface
	profiles ProfileGetter
	goals    GoalLister
	report   ReportRenderer
	workbook WorkbookRenderer
	archive  azure.ExportArchive
	audit    Auditor
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService creates a new ExportService. archive may be nil.
func NewExportService(
	records HealthRecordRepositoryInterface,
	profiles ProfileGetter,
	goals GoalLister,
	report ReportRenderer,
	workbook WorkbookRenderer,
	archive azure.ExportArchive,
	auditor Auditor,
	logger *zap.Logger,
) *ExportService {
	return &ExportService{
		records:  records,
		profiles: profiles,
		goals:    goals,
		report:   report,
		workbook: workbook,
		archive:  archive,
		audit:    auditor,
		logger:   logger,
		now:      time.Now,
	}
}

// ParseExportFormat validates a format name; empty means csv
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatPDF, FormatXLSX:
		return f, nil
	}
	return "", invalid("unknown export format %q (use csv, pdf or xlsx)", s)
}

// Export renders the user's records measured in [from, to). A missing to
// means now and a missing from means thirty days before to.
func (s *ExportService) Export(ctx context.Context, userID string, format ExportFormat, from, to *time.Time) (*ExportFile, error) {
	end := s.now()
	if to != nil {
		end = *to
	}
	start := end.AddDate(0, 0, -defaultExportDays)
	if from != nil {
		start = *from
	}
	if !start.Before(end) {
		return nil, invalid("from must be before to")
	}
	if end.Sub(start) > maxExportDays*24*time.Hour {
		return nil, invalid("export range must be at most %d days", maxExportDays)
	}

	records, err := s.records.ListByUserID(ctx, userID, model.RecordFilter{From: &start, To: &end})
	if err != nil {
		return nil, fmt.Errorf("failed to load records for export: %w", err)
	}
	slices.Reverse(records)

	var data []byte
	switch format {
	case FormatCSV:
		var buf bytes.Buffer
		if err := csvimport.WriteRecords(&buf, records); err != nil {
			return nil, fmt.Errorf("failed to write csv export: %w", err)
		}
		data = buf.Bytes()
	case FormatPDF:
		data, err = s.renderReport(ctx, userID, records, start, end)
	case FormatXLSX:
		data, err = s.workbook.Export(records)
	default:
		return nil, invalid("unknown export format %q", format)
	}
	if err != nil {
		s.logger.Error("failed to render export",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("format", string(format)),
		)
		return nil, fmt.Errorf("failed to render %s export: %w", format, err)
	}

	file := &ExportFile{
		Filename: fmt.Sprintf("health-records_%s_%s.%s",
			start.Format("2006-01-02"), end.Format("2006-01-02"), format),
		ContentType: format.ContentType(),
		Data:        data,
	}

	if s.archive != nil {
		blobName, err := s.archive.UploadExport(ctx, userID, file.Filename, file.ContentType, data)
		if err != nil {
			s.logger.Warn("failed to archive export", zap.Error(err), zap.String("user_id", userID))
		} else {
			file.BlobName = blobName
		}
	}

	s.audit.Record(ctx, userID, audit.OperationExport, audit.ResourceHealthRecord, "",
		map[string]any{"format": format, "records": len(records), "blob": file.BlobName})
	return file, nil
}

// Archived returns a previously archived export owned by the user
func (s *ExportService) Archived(ctx context.Context, userID, blobName string) ([]byte, error) {
	if s.archive == nil {
		return nil, fmt.Errorf("export archive: %w", repository.ErrNotFound)
	}
	if !strings.HasPrefix(blobName, azure.ExportPrefix(userID)) || strings.Contains(blobName, "..") {
		return nil, fmt.Errorf("export %s: %w", blobName, repository.ErrNotFound)
	}
	data, err := s.archive.DownloadExport(ctx, blobName)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", blobName, repository.ErrNotFound)
	}
	return data, nil
}

func (s *ExportService) renderReport(ctx context.Context, userID string, records []model.HealthRecord, start, end time.Time) ([]byte, error) {
	data := &pdf.ReportData{
		DateRange: fmt.Sprintf("%s to %s", start.Format("2006-01-02"), end.Format("2006-01-02")),
		Records:   records,
	}

	if p, err := s.profiles.Get(ctx, userID); err == nil {
		data.UserName = p.DisplayName
		data.HeightCM = p.HeightCM
	} else {
		s.logger.Warn("failed to load profile for report", zap.Error(err), zap.String("user_id", userID))
	}
	if goals, err := s.goals.ListByUserID(ctx, userID); err == nil {
		data.Goals = goals
	} else {
		s.logger.Warn("failed to load goals for report", zap.Error(err), zap.String("user_id", userID))
	}

	return s.report.Generate(data)
}
