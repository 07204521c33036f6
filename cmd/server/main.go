package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apptemplating "github.com/alexclassroom/woocommerce/internal/application/templating"
	domain "github.com/alexclassroom/woocommerce/internal/domain/templating"
	"github.com/alexclassroom/woocommerce/internal/infrastructure/cache"
	"github.com/alexclassroom/woocommerce/internal/infrastructure/config"
	"github.com/alexclassroom/woocommerce/internal/infrastructure/logger"
	"github.com/alexclassroom/woocommerce/internal/infrastructure/persistence"
	"github.com/alexclassroom/woocommerce/internal/infrastructure/scheduler"
	"github.com/alexclassroom/woocommerce/internal/infrastructure/telemetry"
	infratemplating "github.com/alexclassroom/woocommerce/internal/infrastructure/templating"
	"github.com/alexclassroom/woocommerce/internal/interfaces/http/handler"
	"github.com/alexclassroom/woocommerce/internal/interfaces/http/middleware"
	"github.com/alexclassroom/woocommerce/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//	@title			Templating API
//	@version		1.0
//	@description	Template rendering and rendered file registry

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting templating service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Tracing must be registered before the first span is started
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	loggerProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	if loggerProvider.IsEnabled() {
		// Everything created from here on also ships logs to the collector
		log = telemetry.BridgeLogger(log, telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Provider:    loggerProvider,
			Level:       log.Level(),
		}))
	}

	// Initialize database connection
	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// Postgres schemas are managed by cmd/migrate
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to create sqlite schema", zap.Error(err))
		}
	}

	dbSystem := "postgresql"
	if cfg.Database.Driver == "sqlite" {
		dbSystem = "sqlite"
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled,
		LogFullSQL:      cfg.App.Env != "production",
		SlowQueryThresh: cfg.Database.SlowThreshold,
		DBSystem:        dbSystem,
	}, log); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}

	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DBMetricsConfig{
		Enabled:            cfg.Telemetry.DBMetricsEnabled,
		SlowQueryThreshold: cfg.Database.SlowThreshold,
		PoolStatsInterval:  cfg.Telemetry.DBPoolStatsInterval,
	}, log)
	if err != nil {
		log.Warn("Failed to register database metrics", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(context.Background())
	}

	templatingMetrics, err := telemetry.NewTemplatingMetrics(meterProvider.Meter("templating"))
	if err != nil {
		log.Fatal("Failed to create templating metrics", zap.Error(err))
	}

	// Templating components
	hooks := domain.Hooks{}
	engine, err := infratemplating.NewEngine(infratemplating.EngineConfig{
		TemplatesDir:     cfg.Templating.TemplatesDir,
		DefaultExtension: cfg.Templating.DefaultExtension,
		CurrencySymbol:   cfg.Templating.CurrencySymbol,
		Logger:           log,
	}, hooks)
	if err != nil {
		log.Fatal("Failed to initialize template engine", zap.Error(err))
	}
	store := infratemplating.NewFileStore(infratemplating.FileStoreConfig{
		BasePath: cfg.Templating.RenderedDir,
		Logger:   log,
	}, hooks)
	if _, err := store.Root(); err != nil {
		log.Fatal("Rendered files directory is not usable",
			zap.String("dir", cfg.Templating.RenderedDir),
			zap.Error(err),
		)
	}

	repo := persistence.NewGormRenderedTemplateRepository(db.DB)
	templatingService := apptemplating.NewTemplatingService(engine, store, repo, hooks, log,
		apptemplating.WithMetrics(templatingMetrics),
	)

	var pdfConverter handler.PDFConverter
	if cfg.PDF.Enabled {
		converter := infratemplating.NewChromedpConverter(infratemplating.ChromedpConfig{
			Timeout:   cfg.PDF.Timeout,
			RemoteURL: cfg.PDF.RemoteURL,
			NoSandbox: cfg.PDF.NoSandbox,
			MarginMM:  cfg.PDF.MarginMM,
			Logger:    log,
		})
		defer func() {
			if err := converter.Close(); err != nil {
				log.Error("Error closing PDF converter", zap.Error(err))
			}
		}()
		pdfConverter = converter
		log.Info("PDF downloads enabled")
	}

	// Expired rendered file sweep
	var sweepScheduler *scheduler.SweepScheduler
	var sweepLock cache.Lock
	if cfg.Sweep.Enabled {
		sweepLock, err = cache.NewLockFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithInMemoryFallback(cfg.App.Env != "production"),
		).CreateLock()
		if err != nil {
			log.Fatal("Failed to create sweep lock", zap.Error(err))
		}

		sweepScheduler, err = scheduler.NewSweepScheduler(scheduler.SweepSchedulerConfig{
			Interval:   cfg.Sweep.Interval,
			BatchLimit: cfg.Sweep.BatchLimit,
			MaxBatches: cfg.Sweep.MaxBatches,
			LockTTL:    cfg.Sweep.LockTTL,
		}, templatingService, sweepLock, log)
		if err != nil {
			log.Fatal("Failed to create sweep scheduler", zap.Error(err))
		}
		if err := sweepScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sweep scheduler", zap.Error(err))
		}
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	r := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := r.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Tracing - Start the server span; SpanAttributes and SpanErrorMarker run inside it
	// 3. Recovery - Catch panics
	// 4. Logger - Log requests
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	r.Use(middleware.RequestID())
	r.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	r.Use(middleware.SpanAttributes())
	r.Use(middleware.SpanErrorMarker())
	r.Use(logger.Recovery(log))
	r.Use(logger.GinMiddleware(log))
	r.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	r.Use(middleware.CORSWithConfig(corsConfig))
	r.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check outside the versioned API
	var sweepStatus interface{ IsRunning() bool }
	if sweepScheduler != nil {
		sweepStatus = sweepScheduler
	}
	r.GET("/health", handler.NewHealthHandler(db, sweepStatus).Check)

	templatingHandler := handler.NewTemplatingHandler(templatingService, pdfConverter)
	router.NewRouter(r).
		Register(handler.TemplatingRoutes(templatingHandler)...).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        r,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if sweepScheduler != nil {
		if err := sweepScheduler.Stop(ctx); err != nil {
			log.Error("Error stopping sweep scheduler", zap.Error(err))
		}
		if err := sweepLock.Close(); err != nil {
			log.Error("Error closing sweep lock", zap.Error(err))
		}
	}

	if dbMetrics != nil {
		dbMetrics.Stop()
	}
	if err := meterProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	if err := loggerProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
}
