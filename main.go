package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/audit"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/azure"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/config"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/csvimport"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/handler"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/messaging"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/middleware"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/migration"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/notification"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/pdf"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/repository"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/scheduler"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/security"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/service"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/spreadsheet"
	"go.uber.org/zap"
)

const (
	markerRetention     = 48 * time.Hour
	markerPurgeInterval = time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("timezone", cfg.Scheduler.Timezone),
	)

	if cfg.Database.RunMigrations {
		if err := migration.Up(cfg.Database.URL, logger); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	// Initialize database connection pool with pgx
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Invalid database URL", zap.Error(err))
	}
	poolCfg.MaxConns = cfg.Database.MaxConns
	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Successfully connected to database")

	var encryptor *security.Encryptor
	if cfg.Security.NoteEncryptionKey != "" {
		encryptor, err = security.NewEncryptorFromBase64(cfg.Security.NoteEncryptionKey)
		if err != nil {
			logger.Fatal("Failed to initialize note encryption", zap.Error(err))
		}
		logger.Info("Note encryption enabled")
	}

	// Initialize repositories
	recordRepo := repository.NewHealthRecordRepository(pool, encryptor, logger)
	settingRepo := repository.NewNotificationSettingRepository(pool, logger)
	goalRepo := repository.NewGoalRepository(pool, logger)
	profileRepo := repository.NewProfileRepository(pool, logger)
	markerRepo := repository.NewMarkerRepository(pool, logger)
	auditLogger := audit.NewLogger(pool, logger)

	// Notifications fan out to RabbitMQ when configured
	var publishers []notification.Publisher
	var alertPublisher *messaging.RabbitMQPublisher
	if cfg.Messaging.RabbitMQURL != "" {
		alertPublisher, err = messaging.NewRabbitMQPublisher(cfg.Messaging.RabbitMQURL, cfg.Messaging.AlertQueue, logger)
		if err != nil {
			logger.Fatal("Failed to initialize RabbitMQ publisher", zap.Error(err))
		}
		publishers = append(publishers, alertPublisher)
	}
	dispatcher := notification.NewDispatcher(notification.NewRegistry(time.Now), logger, publishers...)

	// Initialize services
	location := cfg.Scheduler.Location()
	profileService := service.NewProfileService(profileRepo, auditLogger, logger)
	settingsService := service.NewSettingsService(settingRepo, auditLogger, logger)

	manager := scheduler.NewManager(scheduler.Deps{
		Clock:   scheduler.SystemClock{Location: location},
		Markers: markerRepo,
		Loader:  service.NewSchedulerStateLoader(settingsService, recordRepo, profileService),
		Emitter: dispatcher,
		Logger:  logger,
	}, scheduler.Options{
		Enabled:        cfg.Scheduler.Enabled,
		Interval:       cfg.Scheduler.Interval,
		RealtimeWindow: cfg.Scheduler.RealtimeWindow,
	}, dispatcher, logger)

	recordService := service.NewHealthRecordService(recordRepo, profileService, manager, auditLogger, logger)
	goalService := service.NewGoalService(goalRepo, settingsService, dispatcher, auditLogger, logger)
	dashboardService := service.NewDashboardService(recordRepo, profileService, location, logger)

	datePolicy, _ := csvimport.ParseDatePolicy(cfg.Import.DatePolicy)
	importService := service.NewImportService(recordRepo,
		csvimport.NewParser(datePolicy, location, time.Now, logger), profileService, manager, auditLogger, logger)

	var archive azure.ExportArchive
	if cfg.StorageEnabled() {
		blobClient, err := azure.NewBlobStorageClient(
			cfg.Storage.AccountName,
			cfg.Storage.AccountKey,
			cfg.Storage.ExportContainer,
			logger,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Azure Blob Storage client", zap.Error(err))
		}
		archive = blobClient
	}
	exportService := service.NewExportService(recordRepo, profileService, goalRepo,
		pdf.NewPDFGenerator(logger), spreadsheet.NewExporter(logger), archive, auditLogger, logger)

	handlers := handler.Handlers{
		Health:        handler.NewHealthHandler(pool, logger),
		Session:       handler.NewSessionHandler(manager, logger),
		Records:       handler.NewHealthRecordHandler(recordService, importService, exportService, cfg.Import.MaxUploadBytes, logger),
		Dashboard:     handler.NewDashboardHandler(dashboardService, logger),
		Settings:      handler.NewSettingsHandler(settingsService, logger),
		Goals:         handler.NewGoalHandler(goalService, logger),
		Notifications: handler.NewNotificationHandler(dispatcher, logger),
		Profile:       handler.NewProfileHandler(profileService, logger),
		Audit:         handler.NewAuditHandler(auditLogger, logger),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Add recovery middleware (must be first)
	r.Use(middleware.RecoveryMiddleware(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader, "X-Export-Blob"},
		MaxAge:        12 * time.Hour,
	}))

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ClientContextMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.RequestLoggingMiddleware(logger))
	r.Use(middleware.ErrorLoggingMiddleware(logger))

	auth := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, logger)
	handler.RegisterRoutes(r, handlers, auth.RequireAuth())

	purgeCtx, stopPurge := context.WithCancel(context.Background())
	go purgeMarkers(purgeCtx, markerRepo, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	stopPurge()
	manager.StopAll()
	dispatcher.Wait()
	if alertPublisher != nil {
		if err := alertPublisher.Close(); err != nil {
			logger.Warn("Failed to close RabbitMQ publisher", zap.Error(err))
		}
	}

	pool.Close()

	logger.Info("Server exited")
}

// newLogger builds the production or development zap logger at the configured level
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = level
	return zapCfg.Build()
}

// purgeMarkers drops notification markers for days that can no longer fire
func purgeMarkers(ctx context.Context, markers *repository.MarkerRepository, logger *zap.Logger) {
	ticker := time.NewTicker(markerPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := markers.PurgeBefore(ctx, now.Add(-markerRetention))
			if err != nil {
				logger.Warn("failed to purge notification markers", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("notification markers purged", zap.Int64("removed", removed))
			}
		}
	}
}
