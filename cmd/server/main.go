package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	notificationapp "github.com/salesops/backend/internal/application/notification"
	reportapp "github.com/salesops/backend/internal/application/report"
	"github.com/salesops/backend/internal/domain/access"
	"github.com/salesops/backend/internal/domain/fiscal"
	"github.com/salesops/backend/internal/domain/report"
	"github.com/salesops/backend/internal/infrastructure/auth"
	"github.com/salesops/backend/internal/infrastructure/cache"
	"github.com/salesops/backend/internal/infrastructure/config"
	"github.com/salesops/backend/internal/infrastructure/logger"
	"github.com/salesops/backend/internal/infrastructure/migration"
	"github.com/salesops/backend/internal/infrastructure/notify"
	"github.com/salesops/backend/internal/infrastructure/persistence"
	"github.com/salesops/backend/internal/infrastructure/scheduler"
	"github.com/salesops/backend/internal/infrastructure/storage"
	"github.com/salesops/backend/internal/infrastructure/telemetry"
	"github.com/salesops/backend/internal/interfaces/http/handler"
	"github.com/salesops/backend/internal/interfaces/http/middleware"
	"github.com/salesops/backend/internal/interfaces/http/router"
	"github.com/salesops/backend/migrations"
	"go.uber.org/zap"

	_ "github.com/salesops/backend/docs"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			SalesOps Backend API
//	@version		1.0
//	@description	Sales history reporting with owner-scoped access and agreement expiry notices

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// Telemetry: logs bridge first so everything after is exported
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.App.Name,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log := loggerProvider.Bridge(baseLog)
	defer func() { _ = log.Sync() }()

	log.Info("Starting SalesOps Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.App.Name,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		Exporter:          cfg.Telemetry.MetricsExporter,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.App.Name,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeAddress,
		ApplicationName: cfg.App.Name,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Telemetry.SpanProfiles && profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	meter := meterProvider.Meter(cfg.App.Name)
	reportMetrics, err := telemetry.NewReportMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create report metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThreshold)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThreshold,
		DBName:          cfg.Database.DBName,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	sources := make([]report.SourceID, len(cfg.Report.Sources))
	for i, s := range cfg.Report.Sources {
		sources[i] = report.SourceID(s)
	}
	if err := prepareSchema(cfg, db, sources, log); err != nil {
		log.Fatal("Failed to prepare database schema", zap.Error(err))
	}
	log.Info("Database ready", zap.String("driver", cfg.Database.Driver))

	// Redis is optional unless the dedup backend requires it
	var redisClient *redis.Client
	if client, err := cache.NewRedisClient(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}); err != nil {
		log.Warn("Redis unavailable; token revocations are process local", zap.Error(err))
	} else {
		redisClient = client
		defer func() { _ = redisClient.Close() }()
	}

	var revocations auth.RevocationList = auth.NewInMemoryRevocationList()
	if redisClient != nil {
		revocations = auth.NewRedisRevocationList(redisClient)
	}

	// Repositories
	salesSource, err := newSalesDataSource(cfg, db, sources, log)
	if err != nil {
		log.Fatal("Failed to initialize sales data source", zap.Error(err))
	}
	usageRepo := persistence.NewGormUsageRepository(db.DB)
	agreementRepo := persistence.NewGormAgreementRepository(db.DB)

	dedupFactory := cache.NewDedupStoreFactory(cfg.Redis, cfg.Notification.Retention,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	dedupStore, err := dedupFactory.CreateStore(cfg.Notification.DedupBackend, persistence.NewGormDedupStore(db.DB))
	if err != nil {
		log.Fatal("Failed to create notification dedup store", zap.Error(err))
	}

	snapshotStorage, err := newSnapshotStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize snapshot storage", zap.Error(err))
	}

	// Services
	resolver := access.NewResolver(
		cfg.Access.AdminCode,
		access.NewExceptionTable(cfg.Access.Exceptions),
		access.RegionPolicy{
			NarrowAllOwners: cfg.Access.NarrowAllOwners,
			Owners:          cfg.Access.RegionNarrowedOwners,
		},
	)
	reportOpts := []reportapp.Option{reportapp.WithMetrics(reportMetrics)}
	if snapshotStorage != nil {
		reportOpts = append(reportOpts, reportapp.WithSnapshotStorage(snapshotStorage))
	}
	reportService := reportapp.NewSalesHistoryService(
		resolver,
		fiscal.NewCalendar(time.Month(cfg.Fiscal.StartMonth)),
		salesSource,
		usageRepo,
		reportapp.Config{
			TrailingYears:  cfg.Fiscal.TrailingYears,
			DefaultSources: sources,
			MaxParallel:    cfg.Report.MaxParallel,
			QueryTimeout:   cfg.Report.QueryTimeout,
		},
		log,
		reportOpts...,
	)

	noticeService := notificationapp.NewService(
		dedupStore,
		notify.NewLogSender(log),
		agreementRepo,
		notificationapp.Config{
			From:       cfg.Notification.From,
			NoticeDays: cfg.Notification.NoticeDays,
		},
		log,
	)
	noticeService.SetMetrics(reportMetrics)

	// Daily expiry notices
	if cfg.Scheduler.Enabled {
		jobScheduler := scheduler.NewScheduler(scheduler.Config{
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
			JobTimeout:        cfg.Scheduler.JobTimeout,
			RetryAttempts:     cfg.Scheduler.RetryAttempts,
			RetryDelay:        cfg.Scheduler.RetryDelay,
		}, scheduler.NewExpiryNoticeExecutor(noticeService, log), reportMetrics, log)
		if err := jobScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			if err := jobScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()

		hour, minute, _ := cfg.Scheduler.DailyTime()
		triggerConfig := scheduler.DefaultCronTriggerConfig()
		triggerConfig.Hour = hour
		triggerConfig.Minute = minute
		trigger := scheduler.NewCronTrigger(triggerConfig, jobScheduler, log)
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start daily trigger", zap.Error(err))
		}
		defer func() {
			if err := trigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping daily trigger", zap.Error(err))
			}
		}()
		log.Info("Expiry notice scheduler started",
			zap.String("daily_run_time", cfg.Scheduler.DailyRunTime),
			zap.Int("max_concurrent_jobs", cfg.Scheduler.MaxConcurrentJobs),
		)
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version)
	systemHandler.AddCheck("database", func(ctx context.Context) error {
		sqlDB, err := db.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	if redisClient != nil {
		systemHandler.AddCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	engine, err := router.NewEngine(router.Deps{
		Config:      cfg,
		Logger:      log,
		JWT:         auth.NewJWTService(cfg.JWT),
		Revocations: revocations,
		Meter:       meter,
		Metrics:     meterProvider.Handler(),
		RateLimiter: middleware.NewRateLimiter(ctx, cfg.HTTP.RateLimit.RequestsPerSecond, cfg.HTTP.RateLimit.Burst, 0),
		Reports:     reportService,
		Notices:     noticeService,
		System:      systemHandler,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		baseLog.Error("Error shutting down log exporter", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// prepareSchema applies the embedded migrations on postgres and AutoMigrate
// on sqlite. The migrator closes its connection, so it gets its own.
func prepareSchema(cfg *config.Config, db *persistence.Database, sources []report.SourceID, log *zap.Logger) error {
	if cfg.Database.Driver == config.DriverSQLite {
		return db.AutoMigrate(sources)
	}

	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	m, err := migration.NewFromFS(sqlDB, migrations.FS, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}

// newSnapshotStorage returns nil when export is not configured. Development
// without S3 falls back to an in-process store.
// newSalesDataSource returns the GORM data source, or in memory mode the
// declared sources plus the optional seed file
func newSalesDataSource(cfg *config.Config, db *persistence.Database, sources []report.SourceID, log *zap.Logger) (report.DataSource, error) {
	if cfg.Report.DataSource != config.DataSourceMemory {
		return persistence.NewGormSalesDataSource(db.DB), nil
	}
	mem := report.NewMemoryDataSource()
	mem.Declare(sources...)
	if cfg.Report.SeedFile != "" {
		f, err := os.Open(cfg.Report.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("open seed file: %w", err)
		}
		defer func() { _ = f.Close() }()
		if err := mem.LoadJSON(f); err != nil {
			return nil, err
		}
	}
	log.Warn("Sales history served from memory", zap.String("seed_file", cfg.Report.SeedFile))
	return mem, nil
}

func newSnapshotStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (reportapp.SnapshotStorage, error) {
	if !cfg.Storage.Enabled {
		if cfg.App.Env == "development" {
			log.Info("Object storage disabled; report snapshots kept in memory")
			return storage.NewMemoryObjectStorage("http://localhost:" + cfg.App.Port + "/snapshots"), nil
		}
		return nil, nil
	}
	s3Storage, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := s3Storage.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s3Storage, nil
}
