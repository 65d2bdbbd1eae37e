package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/csvimport"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Scheduler SchedulerConfig
	Import    ImportConfig
	Storage   StorageConfig
	Messaging MessagingConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL           string
	MaxConns      int32
	RunMigrations bool
}

// AuthConfig holds the shared secret the auth provider signs session tokens with
type AuthConfig struct {
	JWTSecret string
}

// SchedulerConfig tunes the per-user notification scheduler
type SchedulerConfig struct {
	Enabled        bool
	Interval       time.Duration
	RealtimeWindow time.Duration
	// Timezone is the IANA zone used for wall-clock setting times and day boundaries
	Timezone string
}

// ImportConfig controls CSV uploads
type ImportConfig struct {
	DatePolicy     string
	MaxUploadBytes int64
}

// StorageConfig holds Azure Blob Storage configuration. Exports are only
// archived when an account is configured.
type StorageConfig struct {
	AccountName     string
	AccountKey      string
	ExportContainer string
}

// MessagingConfig holds the optional RabbitMQ alert fan-out
type MessagingConfig struct {
	RabbitMQURL string
	AlertQueue  string
}

// SecurityConfig holds at-rest encryption settings
type SecurityConfig struct {
	// NoteEncryptionKey is a base64 encoded 32-byte key; empty disables encryption
	NoteEncryptionKey string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)

	v.SetDefault("database.maxconns", 10)
	v.SetDefault("database.runmigrations", true)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", time.Minute)
	v.SetDefault("scheduler.realtimewindow", 5*time.Minute)
	v.SetDefault("scheduler.timezone", "UTC")

	v.SetDefault("import.datepolicy", string(csvimport.DateBestEffort))
	v.SetDefault("import.maxuploadbytes", 5<<20)

	v.SetDefault("storage.exportcontainer", "health-exports")

	v.SetDefault("messaging.alertqueue", "health_alerts")

	v.SetDefault("logging.level", "info")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")
	v.BindEnv("server.shutdowntimeout", "SHUTDOWN_TIMEOUT")

	// Database
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.maxconns", "DATABASE_MAX_CONNS")
	v.BindEnv("database.runmigrations", "DATABASE_RUN_MIGRATIONS")

	v.BindEnv("auth.jwtsecret", "AUTH_JWT_SECRET")

	// Scheduler
	v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	v.BindEnv("scheduler.interval", "SCHEDULER_INTERVAL")
	v.BindEnv("scheduler.realtimewindow", "SCHEDULER_REALTIME_WINDOW")
	v.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE", "TZ")

	// CSV import
	v.BindEnv("import.datepolicy", "IMPORT_DATE_POLICY")
	v.BindEnv("import.maxuploadbytes", "IMPORT_MAX_UPLOAD_BYTES")

	// Azure Storage
	v.BindEnv("storage.accountname", "AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("storage.accountkey", "AZURE_STORAGE_ACCOUNT_KEY")
	v.BindEnv("storage.exportcontainer", "AZURE_STORAGE_EXPORT_CONTAINER")

	// RabbitMQ
	v.BindEnv("messaging.rabbitmqurl", "RABBITMQ_URL")
	v.BindEnv("messaging.alertqueue", "RABBITMQ_ALERT_QUEUE")

	v.BindEnv("security.noteencryptionkey", "NOTE_ENCRYPTION_KEY")

	v.BindEnv("logging.level", "LOG_LEVEL")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwtsecret is required")
	}

	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive")
	}

	if c.Scheduler.RealtimeWindow <= 0 {
		return fmt.Errorf("scheduler.realtimewindow must be positive")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}

	if _, err := csvimport.ParseDatePolicy(c.Import.DatePolicy); err != nil {
		return fmt.Errorf("import.datepolicy: %w", err)
	}

	if c.Import.MaxUploadBytes <= 0 {
		return fmt.Errorf("import.maxuploadbytes must be positive")
	}

	if (c.Storage.AccountName == "") != (c.Storage.AccountKey == "") {
		return fmt.Errorf("azure storage requires both account name and account key")
	}

	return nil
}

// Location returns the scheduler time zone. Validate has already checked it.
func (c SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// StorageEnabled reports whether exports should be archived
func (c *Config) StorageEnabled() bool {
	return c.Storage.AccountName != "" && c.Storage.AccountKey != ""
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
