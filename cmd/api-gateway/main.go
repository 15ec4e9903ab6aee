package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tuitron-api/api/swagger"
	"github.com/noah-isme/tuitron-api/internal/handler"
	"github.com/noah-isme/tuitron-api/internal/middleware"
	"github.com/noah-isme/tuitron-api/internal/repository"
	"github.com/noah-isme/tuitron-api/internal/service"
	"github.com/noah-isme/tuitron-api/pkg/cache"
	"github.com/noah-isme/tuitron-api/pkg/config"
	"github.com/noah-isme/tuitron-api/pkg/database"
	"github.com/noah-isme/tuitron-api/pkg/events"
	"github.com/noah-isme/tuitron-api/pkg/firebase"
	"github.com/noah-isme/tuitron-api/pkg/jobs"
	"github.com/noah-isme/tuitron-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tuitron-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tuitron-api/pkg/middleware/requestid"
	"github.com/noah-isme/tuitron-api/pkg/stripe"
)

// @title Tuitron API
// @version 1.0.0
// @description Tutoring marketplace backend
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	schemaCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = database.EnsureSchema(schemaCtx, db)
	cancel()
	if err != nil {
		logr.Fatal("failed to ensure schema", zap.Error(err))
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, signing certificates will not be cached", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	cacheRepo := repository.NewCacheRepository(redisClient, "tuitron")
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Identity.KeysCacheTTL, logr, redisClient != nil)
	verifier := firebase.NewVerifier(firebase.Config{
		ProjectID:    cfg.Identity.ProjectID,
		CertsURL:     cfg.Identity.CertsURL,
		Timeout:      cfg.Identity.Timeout,
		KeysCacheTTL: cfg.Identity.KeysCacheTTL,
	}, cacheSvc, logr)
	identitySvc := service.NewIdentityService(verifier, logr)

	stripeClient := stripe.NewClient(stripe.Config{
		SecretKey: cfg.Stripe.SecretKey,
		BaseURL:   cfg.Stripe.BaseURL,
		Timeout:   cfg.Stripe.Timeout,
	}, logr)

	publisher, closePublisher := newPublisher(cfg.Events, logr)
	defer closePublisher()

	accountRepo := repository.NewAccountRepository(db)
	tuitionRepo := repository.NewTuitionRepository(db)
	tutorRepo := repository.NewTutorRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	accountSvc := service.NewAccountService(accountRepo, publisher, validate, logr)
	tuitionSvc := service.NewTuitionService(tuitionRepo, accountRepo, validate, logr)
	tutorSvc := service.NewTutorService(tutorRepo, accountRepo, publisher, validate, logr)
	applicationSvc := service.NewApplicationService(applicationRepo, tutorRepo, tuitionRepo, accountRepo, publisher, cfg.Applications.StatusPolicy, validate, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, tuitionRepo, accountRepo, stripeClient, publisher, metrics, service.PaymentConfig{
		Currency:   cfg.Stripe.Currency,
		SuccessURL: cfg.Stripe.SuccessURL,
		CancelURL:  cfg.Stripe.CancelURL,
	}, validate, logr)

	sweep := service.NewRoleSweepService(accountRepo, metrics, logr)
	if cfg.RoleSweep.Schedule != "" {
		if err := sweep.Start(ctx, cfg.RoleSweep.Schedule); err != nil {
			logr.Fatal("invalid role sweep schedule", zap.String("schedule", cfg.RoleSweep.Schedule), zap.Error(err))
		}
		defer sweep.Stop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
		"redis":    cacheRepo.Ping,
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix, middleware.Timeout(cfg.Database.QueryTimeout))
	registerRoutes(api, middleware.Auth(identitySvc), handlers{
		accounts:     handler.NewAccountHandler(accountSvc),
		tuitions:     handler.NewTuitionHandler(tuitionSvc),
		tutors:       handler.NewTutorHandler(tutorSvc),
		applications: handler.NewApplicationHandler(applicationSvc),
		payments:     handler.NewPaymentHandler(paymentSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newPublisher returns the domain event publisher. Without a broker URL events are dropped.
// The queue outlives the signal context so events raised while requests drain are still delivered.
func newPublisher(cfg config.EventsConfig, logr *zap.Logger) (events.Publisher, func()) {
	if cfg.AMQPURL == "" {
		return events.NopPublisher{}, func() {}
	}

	broker, err := events.NewRabbitMQPublisher(cfg.AMQPURL, cfg.Exchange, logr)
	if err != nil {
		logr.Warn("rabbitmq unavailable, domain events disabled", zap.Error(err))
		return events.NopPublisher{}, func() {}
	}

	async := events.NewAsyncPublisher(broker, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Logger:     logr,
	})
	async.Start(context.Background())
	return async, func() {
		async.Stop()
		if err := broker.Close(); err != nil {
			logr.Warn("failed to close rabbitmq connection", zap.Error(err))
		}
	}
}
