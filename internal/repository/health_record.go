package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/security"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a row does not exist or belongs to another user
var ErrNotFound = errors.New("not found")

const recordColumns = `
	id, user_id, record_type,
	systolic_pressure, diastolic_pressure, heart_rate,
	blood_sugar, blood_sugar_type, weight, temperature,
	measurement_time, notes, created_at`

// HealthRecordRepository manages health_records rows
type HealthRecordRepository struct {
	db        *pgxpool.Pool
	encryptor *security.Encryptor
	logger    *zap.Logger
}

// NewHealthRecordRepository creates a new HealthRecordRepository.
// encryptor may be nil, in which case notes are stored as plaintext.
func NewHealthRecordRepository(db *pgxpool.Pool, encryptor *security.Encryptor, logger *zap.Logger) *HealthRecordRepository {
	return &HealthRecordRepository{
		db:        db,
		encryptor: encryptor,
		logger:    logger,
	}
}

// Create inserts a record, filling ID and CreatedAt
func (r *HealthRecordRepository) Create(ctx context.Context, rec *model.HealthRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	notes, err := r.sealNotes(rec.Notes)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO health_records (
			id, user_id, record_type,
			systolic_pressure, diastolic_pressure, heart_rate,
			blood_sugar, blood_sugar_type, weight, temperature,
			measurement_time, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		RETURNING created_at
	`

	err = r.db.QueryRow(ctx, query,
		rec.ID,
		rec.UserID,
		string(rec.RecordType),
		rec.SystolicPressure,
		rec.DiastolicPressure,
		rec.HeartRate,
		rec.BloodSugar,
		sugarContextParam(rec.BloodSugarType),
		rec.Weight,
		rec.Temperature,
		rec.MeasurementTime,
		notes,
	).Scan(&rec.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create health record",
			zap.Error(err),
			zap.String("user_id", rec.UserID),
			zap.String("record_type", string(rec.RecordType)),
		)
		return fmt.Errorf("failed to create health record: %w", err)
	}

	return nil
}

// CreateBatch inserts records in one transaction using COPY. Either all rows
// are stored or none are.
func (r *HealthRecordRepository) CreateBatch(ctx context.Context, records []model.HealthRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now()
	rows := make([][]any, 0, len(records))
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		rec.CreatedAt = now
		notes, err := r.sealNotes(rec.Notes)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{
			rec.ID,
			rec.UserID,
			string(rec.RecordType),
			rec.SystolicPressure,
			rec.DiastolicPressure,
			rec.HeartRate,
			rec.BloodSugar,
			sugarContextParam(rec.BloodSugarType),
			rec.Weight,
			rec.Temperature,
			rec.MeasurementTime,
			notes,
			rec.CreatedAt,
		})
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"health_records"},
		[]string{
			"id", "user_id", "record_type",
			"systolic_pressure", "diastolic_pressure", "heart_rate",
			"blood_sugar", "blood_sugar_type", "weight", "temperature",
			"measurement_time", "notes", "created_at",
		},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		r.logger.Error("failed to copy health records", zap.Error(err), zap.Int("count", len(records)))
		return 0, fmt.Errorf("failed to insert health records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit health records: %w", err)
	}

	return int(copied), nil
}

// GetByID returns one of the user's records
func (r *HealthRecordRepository) GetByID(ctx context.Context, userID, id string) (*model.HealthRecord, error) {
	query := `SELECT` + recordColumns + `
		FROM health_records
		WHERE id = $1 AND user_id = $2
	`

	rec, err := r.scanRecord(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("health record %s: %w", id, ErrNotFound)
		}
		r.logger.Error("failed to get health record", zap.Error(err), zap.String("record_id", id))
		return nil, fmt.Errorf("failed to get health record: %w", err)
	}

	return rec, nil
}

// ListByUserID returns the user's records, newest measurement first
func (r *HealthRecordRepository) ListByUserID(ctx context.Context, userID string, filter model.RecordFilter) ([]model.HealthRecord, error) {
	var (
		conds = []string{"user_id = $1"}
		args  = []any{userID}
	)
	if filter.RecordType != nil {
		args = append(args, string(*filter.RecordType))
		conds = append(conds, fmt.Sprintf("record_type = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conds = append(conds, fmt.Sprintf("measurement_time >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conds = append(conds, fmt.Sprintf("measurement_time < $%d", len(args)))
	}

	query := `SELECT` + recordColumns + `
		FROM health_records
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY measurement_time DESC, created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list health records", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to list health records: %w", err)
	}
	defer rows.Close()

	records := []model.HealthRecord{}
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			r.logger.Error("failed to scan health record", zap.Error(err))
			continue
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating health records", zap.Error(err))
		return nil, fmt.Errorf("error iterating health records: %w", err)
	}

	return records, nil
}

// Update replaces the measurement fields of an existing record
func (r *HealthRecordRepository) Update(ctx context.Context, rec *model.HealthRecord) error {
	notes, err := r.sealNotes(rec.Notes)
	if err != nil {
		return err
	}

	query := `
		UPDATE health_records
		SET record_type = $1, systolic_pressure = $2, diastolic_pressure = $3,
		    heart_rate = $4, blood_sugar = $5, blood_sugar_type = $6,
		    weight = $7, temperature = $8, measurement_time = $9, notes = $10
		WHERE id = $11 AND user_id = $12
	`

	result, err := r.db.Exec(ctx, query,
		string(rec.RecordType),
		rec.SystolicPressure,
		rec.DiastolicPressure,
		rec.HeartRate,
		rec.BloodSugar,
		sugarContextParam(rec.BloodSugarType),
		rec.Weight,
		rec.Temperature,
		rec.MeasurementTime,
		notes,
		rec.ID,
		rec.UserID,
	)
	if err != nil {
		r.logger.Error("failed to update health record", zap.Error(err), zap.String("record_id", rec.ID))
		return fmt.Errorf("failed to update health record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("health record %s: %w", rec.ID, ErrNotFound)
	}

	return nil
}

// Delete removes one of the user's records
func (r *HealthRecordRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM health_records WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		r.logger.Error("failed to delete health record", zap.Error(err), zap.String("record_id", id))
		return fmt.Errorf("failed to delete health record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("health record %s: %w", id, ErrNotFound)
	}

	return nil
}

// DeleteMany removes the listed records that belong to the user and
// reports how many were deleted
func (r *HealthRecordRepository) DeleteMany(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := r.db.Exec(ctx,
		`DELETE FROM health_records WHERE user_id = $1 AND id::text = ANY($2)`,
		userID, ids,
	)
	if err != nil {
		r.logger.Error("failed to delete health records", zap.Error(err), zap.Int("count", len(ids)))
		return 0, fmt.Errorf("failed to delete health records: %w", err)
	}

	return int(result.RowsAffected()), nil
}

func (r *HealthRecordRepository) scanRecord(row pgx.Row) (*model.HealthRecord, error) {
	var (
		rec        model.HealthRecord
		recordType string
		sugarType  *string
	)
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&recordType,
		&rec.SystolicPressure,
		&rec.DiastolicPressure,
		&rec.HeartRate,
		&rec.BloodSugar,
		&sugarType,
		&rec.Weight,
		&rec.Temperature,
		&rec.MeasurementTime,
		&rec.Notes,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.RecordType = model.RecordType(recordType)
	if sugarType != nil {
		ctx := model.BloodSugarContext(*sugarType)
		rec.BloodSugarType = &ctx
	}
	if r.encryptor != nil {
		notes, err := r.encryptor.OpenNote(rec.Notes)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt notes: %w", err)
		}
		rec.Notes = notes
	}

	return &rec, nil
}

func (r *HealthRecordRepository) sealNotes(notes *string) (*string, error) {
	if r.encryptor == nil {
		return notes, nil
	}
	sealed, err := r.encryptor.SealNote(notes)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt notes: %w", err)
	}
	return sealed, nil
}

func sugarContextParam(c *model.BloodSugarContext) *string {
	if c == nil {
		return nil
	}
	s := string(*c)
	return &s
}
