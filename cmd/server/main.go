package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/adapter"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/config"
	couponEvents "github.com/Kilat-Pet-Delivery/service-coupon/internal/events"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/handler"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/importer"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/database"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/health"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/kafka"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/logger"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/repository"
)

const serviceName = "service-coupon"

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

	zapLogger.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.Bool("kafka", cfg.KafkaConfig.Enabled()),
		zap.Bool("windows_auth", cfg.WindowsAuth.Enabled),
	)
	if cfg.WindowsAuth.Enabled {
		zapLogger.Warn("windows auth bridge trusts the forwarded user header; the front proxy must strip it from client requests",
			zap.String("header", cfg.WindowsAuth.Header),
		)
	}

	// Connect to database and apply embedded migrations
	db, err := database.Connect(cfg.DBConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), zapLogger); err != nil {
		zapLogger.Fatal("failed to run migrations", zap.Error(err))
	}

	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.AccessTTL)
	hasher := auth.NewPasswordHasher(0)

	// Event publisher: Kafka when brokers are configured, otherwise discard
	var publisher application.EventPublisher = application.NopPublisher{}
	if cfg.KafkaConfig.Enabled() {
		producer := kafka.NewProducer(cfg.KafkaConfig.Brokers, zapLogger)
		defer producer.Close()
		publisher = couponEvents.NewKafkaPublisher(producer, zapLogger)
	}

	// Initialize repositories
	campaignRepo := repository.NewGormCampaignRepository(db)
	couponRepo := repository.NewGormCouponRepository(db)
	userRepo := repository.NewGormUserRepository(db)

	// Initialize application services
	couponService := application.NewCouponService(couponRepo, campaignRepo, userRepo, publisher, zapLogger)
	assignmentService := application.NewAssignmentService(
		database.NewTransactor(db),
		couponService,
		couponRepo,
		campaignRepo,
		userRepo,
		cfg.AssignMaxRetries,
		zapLogger,
	)
	campaignService := application.NewCampaignService(campaignRepo, couponRepo, publisher, zapLogger)
	userService := application.NewUserService(userRepo, couponRepo, hasher, jwtManager, zapLogger)
	importService := application.NewImportService(importer.New(campaignService, zapLogger), couponService, publisher, zapLogger)

	directory := adapter.NewStaticDirectoryAdapter(cfg.WindowsAuth.EmailDomain, []string{"Domain Users"}, zapLogger)
	identityService := application.NewIdentityService(
		userRepo,
		directory,
		application.NewRoleMapper(cfg.WindowsAuth.AdminUsers, cfg.WindowsAuth.ManagerUsers),
		hasher,
		zapLogger,
	)

	// Start the assignment command consumer
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	if cfg.KafkaConfig.Enabled() {
		commandConsumer := couponEvents.NewAssignmentCommandConsumer(
			cfg.KafkaConfig.Brokers,
			cfg.KafkaConfig.GroupPrefix+serviceName,
			assignmentService,
			zapLogger,
		)
		defer commandConsumer.Close()

		go func() {
			zapLogger.Info("starting assignment command consumer")
			if err := commandConsumer.Start(consumerCtx); err != nil && consumerCtx.Err() == nil {
				zapLogger.Error("assignment command consumer failed", zap.Error(err))
			}
		}()
	}

	// Setup Gin router
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	health.NewHandler(db, serviceName).RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authn := middleware.NewAuthenticator(jwtManager, identityService, middleware.AuthOptions{
		WindowsAuthEnabled: cfg.WindowsAuth.Enabled,
		WindowsHeader:      cfg.WindowsAuth.Header,
	}, zapLogger)

	api := router.Group("")
	handler.NewCampaignHandler(campaignService, assignmentService, cfg.ListDefaultLimit).RegisterRoutes(api, authn)
	handler.NewCouponHandler(couponService, importService, cfg.ListDefaultLimit, cfg.UploadMaxBytes).RegisterRoutes(api, authn)
	handler.NewUserHandler(userService, cfg.ListDefaultLimit).RegisterRoutes(api, authn)
	handler.NewLoginHandler(userService, identityService).RegisterRoutes(api, authn)

	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down " + serviceName + "...")
	consumerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	zapLogger.Info(serviceName + " stopped")
}
