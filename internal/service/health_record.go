package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/audit"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/validation"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	maxBulkDelete    = 500
	maxNotesLen      = 1000
)

// plausible value bounds accepted on write
var limits = struct {
	Systolic, Diastolic, HeartRate, BloodSugar, Weight, Temperature [2]float64
}{
	Systolic:    [2]float64{50, 300},
	Diastolic:   [2]float64{30, 200},
	HeartRate:   [2]float64{20, 250},
	BloodSugar:  [2]float64{10, 1000},
	Weight:      [2]float64{1, 500},
	Temperature: [2]float64{30, 45},
}

// HealthRecordRepositoryInterface defines the interface for record data access
type HealthRecordRepositoryInterface interface {
	Create(ctx context.Context, rec *model.HealthRecord) error
	CreateBatch(ctx context.Context, records []model.HealthRecord) (int, error)
	GetByID(ctx context.Context, userID, id string) (*model.HealthRecord, error)
	ListByUserID(ctx context.Context, userID string, filter model.RecordFilter) ([]model.HealthRecord, error)
	Update(ctx context.Context, rec *model.HealthRecord) error
	Delete(ctx context.Context, userID, id string) error
	DeleteMany(ctx context.Context, userID string, ids []string) (int, error)
}

// HeightLookup returns the user's height, or nil if unknown
type HeightLookup interface {
	HeightCM(ctx context.Context, userID string) *float64
}

// RecordObserver is told about stored or edited records
type RecordObserver interface {
	Observe(ctx context.Context, rec model.HealthRecord, heightCM *float64) int
}

// Assessment is the validator outcome for one reading of a record
type Assessment struct {
	Kind        model.RecordType  `json:"kind"`
	Label       string            `json:"label"`
	Value       string            `json:"value"`
	NormalRange string            `json:"normal_range"`
	Result      validation.Result `json:"result"`
}

// HealthRecordService handles measurement record business logic
type HealthRecordService struct {
	repo     HealthRecordRepositoryInterface
	heights  HeightLookup
	observer RecordObserver
	audit    Auditor
	logger   *zap.Logger
	now      func() time.Time
}

// NewHealthRecordService creates a new HealthRecordService. observer may be nil.
func NewHealthRecordService(repo HealthRecordRepositoryInterface, heights HeightLookup, observer RecordObserver, auditor Auditor, logger *zap.Logger) *HealthRecordService {
	return &HealthRecordService{
		repo:     repo,
		heights:  heights,
		observer: observer,
		audit:    auditor,
		logger:   logger,
		now:      time.Now,
	}
}

// Create validates and stores a record, then hands it to the real-time
// danger check
func (s *HealthRecordService) Create(ctx context.Context, userID string, rec *model.HealthRecord) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}
	if err := s.normalize(rec); err != nil {
		return err
	}
	rec.ID = ""
	rec.UserID = userID

	if err := s.repo.Create(ctx, rec); err != nil {
		s.logger.Error("failed to create health record",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return fmt.Errorf("failed to create health record: %w", err)
	}

	s.logger.Info("health record created",
		zap.String("record_id", rec.ID),
		zap.String("user_id", userID),
		zap.String("record_type", string(rec.RecordType)),
	)
	s.audit.Record(ctx, userID, audit.OperationCreate, audit.ResourceHealthRecord, rec.ID,
		map[string]any{"record_type": rec.RecordType})

	if s.observer != nil {
		s.observer.Observe(ctx, *rec, s.heights.HeightCM(ctx, userID))
	}
	return nil
}

// Get returns one of the user's records
func (s *HealthRecordService) Get(ctx context.Context, userID, id string) (*model.HealthRecord, error) {
	if err := checkID("health record", id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, userID, id)
}

// List returns the user's records, newest first
func (s *HealthRecordService) List(ctx context.Context, userID string, filter model.RecordFilter) ([]model.HealthRecord, error) {
	if filter.RecordType != nil && !filter.RecordType.Valid() {
		return nil, invalid("unknown record type %q", *filter.RecordType)
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, invalid("from must be before to")
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}

	records, err := s.repo.ListByUserID(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list health records: %w", err)
	}
	return records, nil
}

// Update overwrites an existing record's measurement fields
func (s *HealthRecordService) Update(ctx context.Context, userID, id string, rec *model.HealthRecord) error {
	if err := checkID("health record", id); err != nil {
		return err
	}
	if err := s.normalize(rec); err != nil {
		return err
	}

	existing, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	rec.ID = id
	rec.UserID = userID
	rec.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, rec); err != nil {
		return fmt.Errorf("failed to update health record: %w", err)
	}

	s.audit.Record(ctx, userID, audit.OperationUpdate, audit.ResourceHealthRecord, id,
		map[string]any{"record_type": rec.RecordType})

	if s.observer != nil {
		s.observer.Observe(ctx, *rec, s.heights.HeightCM(ctx, userID))
	}
	return nil
}

// Delete removes one record
func (s *HealthRecordService) Delete(ctx context.Context, userID, id string) error {
	if err := checkID("health record", id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.audit.Record(ctx, userID, audit.OperationDelete, audit.ResourceHealthRecord, id, nil)
	return nil
}

// DeleteMany removes the listed records owned by the user
func (s *HealthRecordService) DeleteMany(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, invalid("at least one record id is required")
	}
	if len(ids) > maxBulkDelete {
		return 0, invalid("at most %d records can be deleted at once", maxBulkDelete)
	}

	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if checkID("health record", id) == nil {
			valid = append(valid, id)
		}
	}

	deleted, err := s.repo.DeleteMany(ctx, userID, valid)
	if err != nil {
		return 0, fmt.Errorf("failed to delete health records: %w", err)
	}

	s.logger.Info("health records deleted",
		zap.String("user_id", userID),
		zap.Int("requested", len(ids)),
		zap.Int("deleted", deleted),
	)
	s.audit.Record(ctx, userID, audit.OperationDelete, audit.ResourceHealthRecord, "",
		map[string]any{"requested": len(ids), "deleted": deleted})
	return deleted, nil
}

// Assess classifies the readings of rec without storing it
func (s *HealthRecordService) Assess(ctx context.Context, userID string, rec *model.HealthRecord) ([]Assessment, error) {
	if err := s.normalize(rec); err != nil {
		return nil, err
	}

	out := []Assessment{}
	for _, r := range validation.Readings(*rec, s.heights.HeightCM(ctx, userID)) {
		out = append(out, Assessment{
			Kind:        r.Kind(),
			Label:       r.Label(),
			Value:       r.Value(),
			NormalRange: r.NormalRange(),
			Result:      r.Assess(),
		})
	}
	return out, nil
}

// normalize checks the type-specific required fields and bounds and clears
// fields that do not belong to the record type
func (s *HealthRecordService) normalize(rec *model.HealthRecord) error {
	if !rec.RecordType.Valid() {
		return invalid("unknown record type %q", rec.RecordType)
	}
	if rec.MeasurementTime.IsZero() {
		rec.MeasurementTime = s.now()
	}
	if rec.MeasurementTime.After(s.now().Add(24 * time.Hour)) {
		return invalid("measurement time is too far in the future")
	}
	if rec.Notes != nil && len([]rune(*rec.Notes)) > maxNotesLen {
		return invalid("notes must be at most %d characters", maxNotesLen)
	}

	clearIrrelevant(rec)

	switch rec.RecordType {
	case model.RecordTypeBloodPressure:
		if rec.SystolicPressure == nil || rec.DiastolicPressure == nil {
			return invalid("systolic and diastolic pressure are required")
		}
		if *rec.DiastolicPressure >= *rec.SystolicPressure {
			return invalid("diastolic pressure must be lower than systolic pressure")
		}
	case model.RecordTypeBloodSugar:
		if rec.BloodSugar == nil {
			return invalid("blood sugar is required")
		}
		if rec.BloodSugarType != nil &&
			*rec.BloodSugarType != model.BloodSugarFasting && *rec.BloodSugarType != model.BloodSugarPostMeal {
			return invalid("blood sugar type must be fasting or post_meal")
		}
	case model.RecordTypeWeight:
		if rec.Weight == nil {
			return invalid("weight is required")
		}
	case model.RecordTypeHeartRate:
		if rec.HeartRate == nil {
			return invalid("heart rate is required")
		}
	case model.RecordTypeTemperature:
		if rec.Temperature == nil {
			return invalid("temperature is required")
		}
	case model.RecordTypeExercise:
	}

	return checkLimits(*rec)
}

// clearIrrelevant drops values that do not belong to the record type
func clearIrrelevant(rec *model.HealthRecord) {
	keep := func(t model.RecordType, fields ...model.RecordType) bool {
		for _, f := range fields {
			if t == f {
				return true
			}
		}
		return false
	}
	t := rec.RecordType
	if !keep(t, model.RecordTypeBloodPressure) {
		rec.SystolicPressure, rec.DiastolicPressure = nil, nil
	}
	if !keep(t, model.RecordTypeBloodPressure, model.RecordTypeHeartRate) {
		rec.HeartRate = nil
	}
	if !keep(t, model.RecordTypeBloodSugar) {
		rec.BloodSugar, rec.BloodSugarType = nil, nil
	}
	if !keep(t, model.RecordTypeWeight) {
		rec.Weight = nil
	}
	if !keep(t, model.RecordTypeTemperature) {
		rec.Temperature = nil
	}
}

// checkLimits rejects physiologically implausible values
func checkLimits(rec model.HealthRecord) error {
	fields := []struct {
		name  string
		value *float64
		rng   [2]float64
	}{
		{"systolic pressure", rec.SystolicPressure, limits.Systolic},
		{"diastolic pressure", rec.DiastolicPressure, limits.Diastolic},
		{"heart rate", rec.HeartRate, limits.HeartRate},
		{"blood sugar", rec.BloodSugar, limits.BloodSugar},
		{"weight", rec.Weight, limits.Weight},
		{"temperature", rec.Temperature, limits.Temperature},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if *f.value < f.rng[0] || *f.value > f.rng[1] {
			return invalid("invalid %s value: must be between %g and %g", f.name, f.rng[0], f.rng[1])
		}
	}
	return nil
}
