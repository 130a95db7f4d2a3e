package main

import (
	"context"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"pgdesk/internal/caching"
	"pgdesk/internal/config"
	"pgdesk/internal/handlers"
	"pgdesk/internal/jobs"
	"pgdesk/internal/jobs/background"
	"pgdesk/internal/middleware"
	"pgdesk/internal/repositories"
	"pgdesk/internal/services"
	"pgdesk/pkg/database"
)

const version = "1.0.0"

func main() {
	// .env is optional, real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	pool, err := database.NewPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Cache service
	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)

	// Object storage for tenant KYC documents
	documentSvc, err := services.NewDocumentService(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("Failed to initialize document storage: %v", err)
	}
	if err := documentSvc.EnsureBucketExists(context.Background(), cfg.DocumentBucket); err != nil {
		log.Printf("WARN: document bucket check failed: %v", err)
	}

	// Best-effort notification channel
	notifier := services.NewAsynqNotifier(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	// Repositories
	tenantRepo := repositories.NewTenantRepo(pool)
	roomRepo := repositories.NewRoomRepo(pool)
	propertyRepo := repositories.NewPropertyRepo(pool)
	vacateRepo := repositories.NewVacateRepo(pool)

	// Services
	bedSvc := services.NewBedService(roomRepo, cacheSvc)
	registry := services.NewPropertyRegistry(propertyRepo, cacheSvc)
	codeSvc := services.NewTenantCodeService(tenantRepo)
	tenancySvc := services.NewTenancyService(tenantRepo, roomRepo, bedSvc, registry, codeSvc, cacheSvc, notifier)
	vacateSvc := services.NewVacateService(tenantRepo, vacateRepo, bedSvc, registry, cacheSvc, notifier)
	billingSvc := services.NewBillingService(tenantRepo, cacheSvc, notifier)

	// Asynq worker consuming the notification queue in-process
	asynqSrv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: 5,
			Queues:      map[string]int{jobs.NotificationQueue: 1},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(jobs.TypeNotifyEvent, jobs.NewNotificationHandler().HandleNotifyEvent)
	go func() {
		if err := asynqSrv.Run(mux); err != nil {
			log.Fatalf("Notification worker failed: %v", err)
		}
	}()

	// Background jobs: notice-period expiry sweep and rent-due reminders
	rentAlerts := jobs.NewRentDueAlertService(tenantRepo, notifier.Dispatch)
	scheduler := background.NewJobScheduler(vacateSvc, rentAlerts)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start job scheduler: %v", err)
	}
	defer scheduler.Stop()

	// Handlers
	tenantHandlers := handlers.NewTenantHandlers(tenancySvc)
	rentHandlers := handlers.NewRentHandlers(billingSvc)
	vacateHandlers := handlers.NewVacateHandlers(vacateSvc)
	documentHandlers := handlers.NewDocumentHandlers(documentSvc, tenancySvc, cfg.DocumentBucket)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc)

	authMiddleware, err := middleware.NewAuthMiddleware(cfg.JWTSecret, cfg.JWKSURL)
	if err != nil {
		log.Fatalf("Failed to initialize auth middleware: %v", err)
	}

	// Create Echo instance
	e := echo.New()

	// Global middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Pre(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/detailed", healthHandlers.DetailedHealthCheck)

	// API routes
	v1 := e.Group("/v1")
	v1.Use(authMiddleware.Require())

	// Tenancy lifecycle
	v1.POST("/tenants", tenantHandlers.OnboardTenant)
	v1.GET("/tenants", tenantHandlers.ListTenants)
	v1.GET("/tenants/defaulters", tenantHandlers.ListDefaulters)
	v1.GET("/tenants/:code", tenantHandlers.GetTenant)
	v1.GET("/tenants/:code/history", tenantHandlers.GetStayHistory)
	v1.GET("/tenants/:code/room", tenantHandlers.GetRoomByTenant)
	v1.PUT("/tenants/:code", tenantHandlers.UpdateTenant)
	v1.DELETE("/tenants/:code", tenantHandlers.DeleteTenant)

	// Billing
	v1.PUT("/tenants/:code/rent", rentHandlers.ApplyRent)
	v1.GET("/tenants/:code/rent/next", rentHandlers.PreviewNextCycle)

	// Vacate workflow
	v1.POST("/vacate", vacateHandlers.RaiseVacate)
	v1.POST("/vacate/withdraw", vacateHandlers.WithdrawVacate)
	v1.POST("/tenants/:code/remove", vacateHandlers.RemoveTenant)
	v1.POST("/tenants/:code/retain", vacateHandlers.RetainTenant)

	// KYC documents
	v1.POST("/tenants/:code/documents", documentHandlers.UploadDocument)
	v1.GET("/tenants/:code/documents/:type", documentHandlers.GetDocumentURL)
	v1.DELETE("/tenants/:code/documents/:type", documentHandlers.DeleteDocument)

	log.Printf("pgdesk server v%s starting on port %d", version, cfg.Port)
	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", cfg.Port)))
}
