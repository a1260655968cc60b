package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dailyrent/service-booking/internal/adapter"
	"github.com/dailyrent/service-booking/internal/application"
	"github.com/dailyrent/service-booking/internal/catalog"
	"github.com/dailyrent/service-booking/internal/config"
	"github.com/dailyrent/service-booking/internal/events"
	"github.com/dailyrent/service-booking/internal/handler"
	"github.com/dailyrent/service-booking/internal/repository"
	"github.com/dailyrent/service-booking/internal/scheduler"
	"github.com/dailyrent/service-booking/pkg/auth"
	"github.com/dailyrent/service-booking/pkg/clock"
	"github.com/dailyrent/service-booking/pkg/database"
	"github.com/dailyrent/service-booking/pkg/kafka"
	"github.com/dailyrent/service-booking/pkg/logger"
	"github.com/dailyrent/service-booking/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const serviceName = "service-booking"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting "+serviceName, zap.String("port", cfg.Port))

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(repository.Models()...); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		zapLogger.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), cfg.MigrationsDir, zapLogger); err != nil {
			zapLogger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, 15*time.Minute)
	clk := clock.System{}
	tx := database.NewTransactor(db, sql.LevelSerializable)

	// Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, zapLogger)
	defer kafkaProducer.Close()
	publisher := events.NewPublisher(kafkaProducer, zapLogger)

	// Payment gateway (mock for development)
	var gateway adapter.PaymentGateway
	if cfg.Payment.Mock {
		gateway = adapter.NewMockPaymentGateway(zapLogger)
	} else {
		gateway = adapter.NewHTTPPaymentGateway(cfg.Payment.BaseURL, cfg.Payment.ShopID, cfg.Payment.SecretKey, zapLogger)
	}

	blobs, err := newBlobStore(cfg.Blob, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to initialize blob store", zap.Error(err))
	}

	// Repositories
	bookingRepo := repository.NewBookingRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	compensationRepo := repository.NewCompensationRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	propertyRepo := repository.NewPropertyRepository(db)

	propertyCatalog := catalog.NewPropertyCatalog(propertyRepo, cfg.Catalog.CacheSize, cfg.Catalog.CacheTTL, zapLogger)
	defer propertyCatalog.Stop()

	// Application services
	taskScheduler := scheduler.NewScheduler(db, clk)
	settlementService := application.NewSettlementService(paymentRepo, gateway, tx, taskScheduler, publisher, clk, application.SettlementConfig{
		Currency:     cfg.Payment.Currency,
		ReturnURL:    cfg.Payment.ReturnURL,
		InitialDelay: cfg.Payment.InitialDelay,
		PollInterval: cfg.Payment.PollInterval,
		MaxAttempts:  cfg.Payment.MaxAttempts,
	}, zapLogger)
	bookingService := application.NewBookingService(bookingRepo, paymentRepo, compensationRepo, propertyCatalog, settlementService, tx, publisher, clk, zapLogger)
	compensationService := application.NewCompensationService(compensationRepo, bookingRepo, paymentRepo, propertyCatalog, ledgerRepo, blobs, tx, publisher, clk, zapLogger)

	// Durable task dispatcher
	dispatcher := scheduler.NewDispatcher(db, clk, scheduler.DispatcherConfig{
		Tick:  cfg.Scheduler.Tick,
		Batch: cfg.Scheduler.Batch,
		Lease: cfg.Scheduler.Lease,
	}, zapLogger)
	dispatcher.Register(application.TaskPollPaymentStatus, settlementService.HandlePollTask)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	dispatcher.Start(bgCtx)

	// Kafka consumer for property events
	propertyConsumer := events.NewPropertyEventConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID("property-catalog"), propertyCatalog, zapLogger)
	defer propertyConsumer.Close()

	go func() {
		zapLogger.Info("starting property event consumer")
		if err := propertyConsumer.Start(bgCtx); err != nil && bgCtx.Err() == nil {
			zapLogger.Error("property event consumer failed", zap.Error(err))
		}
	}()

	// Setup Gin router
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(zapLogger))
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())

	handler.NewHealthHandler(db).RegisterRoutes(router)

	apiV1 := router.Group("/api/v1")
	handler.NewBookingHandler(bookingService).RegisterRoutes(apiV1, jwtManager)
	handler.NewCompensationHandler(compensationService).RegisterRoutes(apiV1, jwtManager)
	handler.NewPaymentHandler(bookingService).RegisterRoutes(apiV1, jwtManager)

	addr := ":" + strings.TrimPrefix(cfg.Port, ":")
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down " + serviceName)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	bgCancel()
	dispatcher.Stop()

	zapLogger.Info(serviceName + " stopped")
}

func newBlobStore(cfg config.BlobConfig, logger *zap.Logger) (adapter.BlobStore, error) {
	if cfg.Driver == "local" {
		logger.Info("using local blob store", zap.String("dir", cfg.LocalDir))
		return adapter.NewFSBlobStore(afero.NewOsFs(), cfg.LocalDir)
	}

	store, err := adapter.NewMinioBlobStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL, logger)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
