package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/audit"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/csvimport"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

// PreviewRows is how many parsed rows a preview shows
const PreviewRows = 10

// RecordBatchWriter stores many records at once
type RecordBatchWriter interface {
	CreateBatch(ctx context.Context, records []model.HealthRecord) (int, error)
}

// ImportPreview summarizes a parsed upload without storing it
type ImportPreview struct {
	Total         int                   `json:"total"`
	Valid         int                   `json:"valid"`
	Invalid       int                   `json:"invalid"`
	Failed        int                   `json:"failed"`
	HeaderSkipped bool                  `json:"header_skipped"`
	Rows          []csvimport.Candidate `json:"rows"`
	Errors        []string              `json:"errors"`
}

// ImportResult reports what an import stored
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// ImportService runs CSV uploads through the pipeline and stores valid rows
type ImportService struct {
	repo     RecordBatchWriter
	parser   *csvimport.Parser
	heights  HeightLookup
	observer RecordObserver
	audit    Auditor
	logger   *zap.Logger
}

// NewImportService creates a new ImportService. observer may be nil.
func NewImportService(repo RecordBatchWriter, parser *csvimport.Parser, heights HeightLookup, observer RecordObserver, auditor Auditor, logger *zap.Logger) *ImportService {
	return &ImportService{
		repo:     repo,
		parser:   parser,
		heights:  heights,
		observer: observer,
		audit:    auditor,
		logger:   logger,
	}
}

// Preview parses content and returns counts plus the first valid rows
func (s *ImportService) Preview(ctx context.Context, userID string, content string) (*ImportPreview, error) {
	res, err := s.parse(content)
	if err != nil {
		return nil, err
	}

	s.logger.Info("csv import previewed",
		zap.String("user_id", userID),
		zap.Int("valid", len(res.Valid)),
		zap.Int("rejected", len(res.Invalid)+len(res.Failed)),
	)
	return &ImportPreview{
		Total:         res.Total(),
		Valid:         len(res.Valid),
		Invalid:       len(res.Invalid),
		Failed:        len(res.Failed),
		HeaderSkipped: res.HeaderSkipped,
		Rows:          res.Preview(PreviewRows),
		Errors:        res.Messages(),
	}, nil
}

// Import parses content and stores every valid row in one transaction
func (s *ImportService) Import(ctx context.Context, userID string, content string) (*ImportResult, error) {
	res, err := s.parse(content)
	if err != nil {
		return nil, err
	}

	records := make([]model.HealthRecord, 0, len(res.Valid))
	for _, c := range res.Valid {
		records = append(records, importedRecord(c, userID))
	}

	imported, err := s.repo.CreateBatch(ctx, records)
	if err != nil {
		s.logger.Error("failed to import health records",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.Int("count", len(records)),
		)
		return nil, fmt.Errorf("failed to import health records: %w", err)
	}

	skipped := len(res.Invalid) + len(res.Failed)
	s.logger.Info("csv import completed",
		zap.String("user_id", userID),
		zap.Int("imported", imported),
		zap.Int("skipped", skipped),
	)
	s.audit.Record(ctx, userID, audit.OperationImport, audit.ResourceHealthRecord, "",
		map[string]any{"imported": imported, "skipped": skipped})

	if s.observer != nil {
		if latest, ok := latestMeasured(records); ok {
			s.observer.Observe(ctx, latest, s.heights.HeightCM(ctx, userID))
		}
	}

	return &ImportResult{
		Imported: imported,
		Skipped:  skipped,
		Errors:   res.Messages(),
	}, nil
}

// Template returns the downloadable sample CSV
func (s *ImportService) Template() string {
	return csvimport.Template()
}

// parse runs the pipeline and moves implausible values to the invalid rows
func (s *ImportService) parse(content string) (*csvimport.Result, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: %w", ErrValidation, csvimport.ErrEmptyFile)
	}

	res := s.parser.Parse(content)
	valid := res.Valid[:0]
	for _, c := range res.Valid {
		if err := checkLimits(importedRecord(c, "")); err != nil {
			res.Invalid = append(res.Invalid, csvimport.Rejected{
				Candidate: c,
				Reason:    strings.TrimPrefix(err.Error(), ErrValidation.Error()+": "),
			})
			continue
		}
		valid = append(valid, c)
	}
	res.Valid = valid

	if err := res.Err(); err != nil {
		if errors.Is(err, csvimport.ErrEmptyFile) || errors.Is(err, csvimport.ErrNoValidRecords) {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return nil, err
	}
	return res, nil
}

// importedRecord converts a parsed row and drops values foreign to its type.
// Rows of an unrecognized type keep every value.
func importedRecord(c csvimport.Candidate, userID string) model.HealthRecord {
	rec := c.Record(userID)
	if rec.RecordType.Valid() {
		clearIrrelevant(&rec)
	}
	return rec
}

// latestMeasured returns the record with the newest measurement time
func latestMeasured(records []model.HealthRecord) (model.HealthRecord, bool) {
	if len(records) == 0 {
		return model.HealthRecord{}, false
	}
	latest := records[0]
	for _, rec := range records[1:] {
		if rec.MeasurementTime.After(latest.MeasurementTime) {
			latest = rec
		}
	}
	return latest, true
}
