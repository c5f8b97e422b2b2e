package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/uae-home-services/service-booking/internal/application"
	"github.com/uae-home-services/service-booking/internal/common/auth"
	"github.com/uae-home-services/service-booking/internal/common/database"
	"github.com/uae-home-services/service-booking/internal/common/health"
	"github.com/uae-home-services/service-booking/internal/common/kafka"
	"github.com/uae-home-services/service-booking/internal/common/logger"
	"github.com/uae-home-services/service-booking/internal/common/middleware"
	"github.com/uae-home-services/service-booking/internal/config"
	bookingDomain "github.com/uae-home-services/service-booking/internal/domain/booking"
	bookingEvents "github.com/uae-home-services/service-booking/internal/events"
	"github.com/uae-home-services/service-booking/internal/handler"
	"github.com/uae-home-services/service-booking/internal/repository"
	"github.com/uae-home-services/service-booking/migrations"
)

const serviceName = "service-booking"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Options{
		Env:      cfg.AppEnv,
		Name:     serviceName,
		Level:    cfg.LogConfig.Level,
		FilePath: cfg.LogConfig.Path,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("env", cfg.AppEnv),
		zap.Bool("optimistic_locking", cfg.Policy.OptimisticLocking),
	)

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
		MaxConns: cfg.DBConfig.MaxConns,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.BookingModel{}, &repository.OfferingModel{}, &repository.PhotoModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), migrations.FS, ".", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.AccessTTL)

	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Repositories
	bookingRepo := repository.NewGormBookingRepository(db, cfg.Policy.OptimisticLocking)
	offeringRepo := repository.NewGormOfferingRepository(db)
	photoRepo := repository.NewGormPhotoRepository(db)

	// Services
	clock := bookingDomain.SystemClock{}
	pricingStrategy := bookingDomain.NewStandardPricingStrategy(bookingDomain.PricingPolicy{
		CommissionBPS:  cfg.Policy.CommissionBPS,
		PlatformFeeBPS: cfg.Policy.PlatformFeeBPS,
		VatBPS:         cfg.Policy.VatBPS,
	})
	bookingService := application.NewBookingService(
		bookingRepo,
		offeringRepo,
		pricingStrategy,
		bookingDomain.NewRandomNumberGenerator(cfg.Policy.Location),
		kafkaProducer,
		clock,
		cfg.Policy,
		log,
	)
	offeringService := application.NewOfferingService(offeringRepo, clock, log)
	photoService := application.NewPhotoService(photoRepo, bookingRepo, clock, log)

	// Payment event consumer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	groupID := cfg.KafkaConfig.GroupPrefix + "booking-service"
	paymentConsumer := bookingEvents.NewPaymentEventConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		bookingService,
		log,
	)
	defer func() { _ = paymentConsumer.Close() }()

	go func() {
		log.Info("starting payment event consumer")
		if err := paymentConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("payment event consumer error", zap.Error(err))
		}
	}()

	// Setup Gin router
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	readiness := []health.Check{
		{Name: "kafka", Probe: kafka.ReadyCheck(cfg.KafkaConfig.Brokers)},
	}

	if cfg.RedisConfig.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		defer func() { _ = rdb.Close() }()

		limiter := middleware.NewRedisRateLimiter(rdb, cfg.RateLimitConfig.Limit, cfg.RateLimitConfig.Window, "booking")
		router.Use(limiter.Middleware(log, true))
		readiness = append(readiness, health.Check{Name: "redis", Probe: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		log.Info("redis rate limiting enabled", zap.String("addr", cfg.RedisConfig.Addr))
	}

	healthHandler := health.NewHandler(db, serviceName, readiness...)
	healthHandler.RegisterRoutes(router)

	loc := cfg.Policy.Location
	handler.NewBookingHandler(bookingService, loc).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewPhotoHandler(photoService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewOfferingHandler(offeringService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewAdminBookingHandler(bookingService, loc).RegisterRoutes(&router.RouterGroup, jwtManager)

	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName)

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}
