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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/academy-program-api/api/swagger"
	"github.com/noah-isme/academy-program-api/internal/gateway"
	"github.com/noah-isme/academy-program-api/internal/handler"
	"github.com/noah-isme/academy-program-api/internal/middleware"
	"github.com/noah-isme/academy-program-api/internal/models"
	"github.com/noah-isme/academy-program-api/internal/repository"
	"github.com/noah-isme/academy-program-api/internal/service"
	"github.com/noah-isme/academy-program-api/pkg/cache"
	"github.com/noah-isme/academy-program-api/pkg/config"
	"github.com/noah-isme/academy-program-api/pkg/database"
	"github.com/noah-isme/academy-program-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/academy-program-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academy-program-api/pkg/middleware/requestid"
	"github.com/noah-isme/academy-program-api/pkg/storage"
)

// @title Academy Program API
// @version 1.0.0
// @description Subscription program administration: applications, payments, enrollments, schedules
// @BasePath /api/v1
// @schemes http
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	// Repositories
	applicationRepo := repository.NewApplicationRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	userRepo := repository.NewUserRepository(db)

	catalog := service.NewProgramCatalog()
	metricsSvc := service.NewMetricsService()

	// Cache is optional; the dashboard recomputes on every read when
	// redis is unreachable.
	var cacheSvc *service.CacheService
	if redisClient, redisErr := cache.NewRedis(cfg.Redis); redisErr != nil {
		logr.Warn("redis unavailable, dashboard cache disabled")
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.Enabled)
	}

	var dashboardSvc *service.DashboardService
	if cacheSvc != nil {
		dashboardSvc = service.NewDashboardService(applicationRepo, paymentRepo, enrollmentRepo, cacheSvc, cfg.Dashboard, logr)
	} else {
		dashboardSvc = service.NewDashboardService(applicationRepo, paymentRepo, enrollmentRepo, nil, cfg.Dashboard, logr)
	}

	notificationSvc := service.NewNotificationService(service.NewLogNotifier(logr), cfg.Notifications, logr)

	proofStore, err := storage.NewProofStore(cfg.Proofs.StorageDir, cfg.Proofs.MaxFileSizeBytes, cfg.Proofs.AllowedMIMEs)
	if err != nil {
		logr.Sugar().Fatalw("failed to init proof store", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Proofs.SignedURLSecret, cfg.Proofs.SignedURLTTL)

	gatewayClient := gateway.NewMidtrans(cfg.Gateway.ServerKey, cfg.Gateway.Production, logr)

	// Services
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	applicationSvc := service.NewApplicationService(applicationRepo, studentRepo, catalog, notificationSvc, dashboardSvc, nil, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, studentRepo, enrollmentRepo, catalog, notificationSvc, dashboardSvc, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, catalog, dashboardSvc, nil, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, enrollmentRepo, catalog, cfg.Schedule.BatchSize, nil, logr)
	checkoutSvc := service.NewCheckoutService(gatewayClient, studentRepo, catalog, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, logr)

	var statementSvc *service.StatementService
	if cfg.Statements.Enabled {
		statementSvc = service.NewStatementService(enrollmentRepo, paymentRepo, catalog, logr)
	}

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	programHandler := handler.NewProgramHandler(catalog)
	applicationHandler := handler.NewApplicationHandler(applicationSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, proofStore, signer, metricsSvc, cfg.Gateway.ServerKey)
	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, statementSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, metricsSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)

		api.GET("/programs", programHandler.List)
		api.GET("/programs/:id", programHandler.Get)

		api.POST("/applications", applicationHandler.Submit)

		api.POST("/checkout/session", checkoutHandler.CreateSession)
		api.POST("/payments/webhook", paymentHandler.Webhook)
		api.POST("/payments/manual", paymentHandler.SubmitManual)
		api.GET("/payments/proofs/:token", paymentHandler.DownloadProof)
	}

	admin := api.Group("")
	admin.Use(middleware.JWT(authSvc))
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/applications", applicationHandler.List)
		admin.GET("/applications/:id", applicationHandler.Get)
		admin.PUT("/applications/:id/approve",
			middleware.Audit(userRepo, "approve", "application"), applicationHandler.Approve)
		admin.PUT("/applications/:id/reject",
			middleware.Audit(userRepo, "reject", "application"), applicationHandler.Reject)

		admin.GET("/payments", paymentHandler.List)
		admin.GET("/payments/pending", paymentHandler.ListPending)
		admin.GET("/payments/:id", paymentHandler.Get)
		admin.GET("/payments/:id/proof-url", paymentHandler.ProofURL)
		admin.PUT("/payments/:id/verify",
			middleware.Audit(userRepo, "verify", "payment"), paymentHandler.Verify)
		admin.PUT("/payments/:id/reject",
			middleware.Audit(userRepo, "reject", "payment"), paymentHandler.Reject)

		admin.GET("/enrollments", enrollmentHandler.List)
		admin.POST("/enrollments",
			middleware.Audit(userRepo, "create", "enrollment"), enrollmentHandler.Create)
		admin.GET("/enrollments/:id", enrollmentHandler.Get)
		admin.PUT("/enrollments/:id/withdraw",
			middleware.Audit(userRepo, "withdraw", "enrollment"), enrollmentHandler.Withdraw)
		admin.PUT("/enrollments/:id/complete",
			middleware.Audit(userRepo, "complete", "enrollment"), enrollmentHandler.Complete)
		admin.GET("/enrollments/:id/statement", enrollmentHandler.Statement)

		admin.POST("/schedules/generate",
			middleware.Audit(userRepo, "generate", "schedule"), scheduleHandler.Generate)
		admin.PUT("/schedules/slot", scheduleHandler.UpsertSlot)
		admin.PUT("/schedules/:id/complete", scheduleHandler.CompleteSlot)

		admin.GET("/students", studentHandler.List)
		admin.GET("/students/:id", studentHandler.Get)
		admin.GET("/students/:id/programs/:programId/slots", scheduleHandler.ListSlots)
		admin.GET("/students/:id/programs/:programId/progress", scheduleHandler.Progress)

		admin.GET("/dashboard/summary", dashboardHandler.Summary)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
