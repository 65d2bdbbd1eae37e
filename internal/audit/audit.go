package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Operation is what was done to a resource
type Operation string

const (
	OperationCreate Operation = "CREATE"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
	OperationImport Operation = "IMPORT"
	OperationExport Operation = "EXPORT"
)

// Resource is the kind of data an operation touched
type Resource string

const (
	ResourceHealthRecord        Resource = "health_record"
	ResourceGoal                Resource = "health_goal"
	ResourceNotificationSetting Resource = "notification_setting"
	ResourceProfile             Resource = "profile"
)

// Entry is one audit trail row
type Entry struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Operation  Operation      `json:"operation"`
	Resource   Resource       `json:"resource_type"`
	ResourceID string         `json:"resource_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Logger writes the audit trail to Postgres and mirrors it to zap
type Logger struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewLogger creates a new audit logger
func NewLogger(db *pgxpool.Pool, logger *zap.Logger) *Logger {
	return &Logger{
		db:     db,
		logger: logger,
	}
}

// Log stores an audit entry
func (l *Logger) Log(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	l.logger.Info("audit",
		zap.String("user_id", entry.UserID),
		zap.String("operation", string(entry.Operation)),
		zap.String("resource_type", string(entry.Resource)),
		zap.String("resource_id", entry.ResourceID),
		zap.Any("details", entry.Details),
	)

	query := `
		INSERT INTO audit_logs (
			id, user_id, operation, resource_type, resource_id,
			details, ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)
	`

	_, err := l.db.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Operation,
		entry.Resource,
		entry.ResourceID,
		entry.Details,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	)
	if err != nil {
		l.logger.Error("failed to write audit log",
			zap.Error(err),
			zap.String("user_id", entry.UserID),
			zap.String("operation", string(entry.Operation)),
		)
		return fmt.Errorf("failed to write audit log: %w", err)
	}

	return nil
}

// Record is the fire-and-forget form used by services: failures are only logged
func (l *Logger) Record(ctx context.Context, userID string, op Operation, resource Resource, resourceID string, details map[string]any) {
	_ = l.Log(ctx, Entry{
		UserID:     userID,
		Operation:  op,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		IPAddress:  ClientIP(ctx),
		UserAgent:  UserAgent(ctx),
	})
}

// List returns the user's most recent audit entries
func (l *Logger) List(ctx context.Context, userID string, limit int) ([]Entry, error) {
	query := `
		SELECT id, user_id, operation, resource_type, COALESCE(resource_id, ''),
		       details, COALESCE(ip_address, ''), COALESCE(user_agent, ''), created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := l.db.Query(ctx, query, userID, limit)
	if err != nil {
		l.logger.Error("failed to query audit logs", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.Operation,
			&e.Resource,
			&e.ResourceID,
			&e.Details,
			&e.IPAddress,
			&e.UserAgent,
			&e.CreatedAt,
		); err != nil {
			l.logger.Error("failed to scan audit log", zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", err)
	}
	return entries, nil
}

type ctxKey int

const (
	ipKey ctxKey = iota
	userAgentKey
)

// WithClient attaches request client details for later audit entries
func WithClient(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ipKey, ip)
	return context.WithValue(ctx, userAgentKey, userAgent)
}

// ClientIP returns the client address stored by WithClient
func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(ipKey).(string)
	return v
}

// UserAgent returns the user agent stored by WithClient
func UserAgent(ctx context.Context) string {
	v, _ := ctx.Value(userAgentKey).(string)
	return v
}
