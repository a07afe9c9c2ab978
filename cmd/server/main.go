package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/audit"
	"github.com/goldenbridgewomen/gbw-tracker/internal/config"
	"github.com/goldenbridgewomen/gbw-tracker/internal/database"
	"github.com/goldenbridgewomen/gbw-tracker/internal/handlers"
	"github.com/goldenbridgewomen/gbw-tracker/internal/hub"
	"github.com/goldenbridgewomen/gbw-tracker/internal/jobs"
	"github.com/goldenbridgewomen/gbw-tracker/internal/mq"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository/memory"
	cron "github.com/goldenbridgewomen/gbw-tracker/internal/scheduler"
	"github.com/goldenbridgewomen/gbw-tracker/internal/services"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/email"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/logger"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/metrics"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	// Load configuration from .env file
	cfg := config.LoadConfig()

	logger.InitLogger(cfg.LogLevel)
	logger.Log.Info("Logger initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectDB(cfg)
	if err != nil {
		logger.Log.Fatalf("Database connection error: %v", err)
	}

	// --- Repositories ---
	userRepo := repository.NewUserRepository(db)
	programRepo := repository.NewProgramRepository(db)
	milestoneRepo := repository.NewMilestoneRepository(db)
	cycleRepo := repository.NewCycleRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	inviteRepo := repository.NewInviteRepository(db)
	templateRepo := repository.NewTemplateRepository(db)

	if err := userRepo.EnsureIndexes(ctx); err != nil {
		logger.Log.Fatalf("Failed to create user indexes: %v", err)
	}
	if err := auditRepo.EnsureCollection(ctx); err != nil {
		logger.Log.Fatalf("Failed to prepare audit collection: %v", err)
	}

	// Reminder dedupe lives in redis when configured so it survives restarts.
	var tracker repository.DeadlineTracker = memory.NewDeadlineTracker()
	rdb, err := database.ConnectRedis(cfg)
	if err != nil {
		logger.Log.Fatalf("Redis connection error: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
		tracker = repository.NewRedisDeadlineTracker(rdb)
	}

	// Audit events go to the broker when configured and are persisted by cmd/audit-worker.
	asyncAudit := audit.NewAsyncLogger(auditRepo, 256)
	defer asyncAudit.Close()
	var auditLogger audit.Logger = asyncAudit
	if cfg.AMQPURL != "" {
		conn, err := mq.NewConnection(cfg.AMQPURL)
		if err != nil {
			logger.Log.Fatalf("RabbitMQ connection error: %v", err)
		}
		defer conn.Close()
		publisher, err := mq.NewAuditPublisher(conn, asyncAudit)
		if err != nil {
			logger.Log.Fatalf("Failed to create audit publisher: %v", err)
		}
		defer publisher.Close()
		auditLogger = publisher
	}

	sockets := hub.New()
	mailer := email.NewSender(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Sender:   cfg.SMTPSender,
		Password: cfg.SMTPPassword,
	})

	// --- Services ---
	programService := services.NewProgramService(programRepo, userRepo, inviteRepo, mailer, cfg.AppOrigin)
	userService := services.NewUserService(userRepo, programRepo, programService)
	notificationService := services.NewNotificationService(notificationRepo, milestoneRepo, userRepo, tracker, sockets)
	milestoneService := services.NewMilestoneService(milestoneRepo, templateRepo, programRepo, userRepo, notificationService, auditLogger)
	balanceService := services.NewBalanceService(cycleRepo, programRepo, auditLogger)
	templateService := services.NewTemplateService(templateRepo)
	auditService := services.NewAuditService(auditRepo)
	exportService := services.NewExportService(programRepo, userRepo, milestoneRepo, cycleRepo)

	scheduler, err := cron.StartDeadlineCron(cfg.DeadlineScanCron, jobs.NewDeadlineNotifier(notificationService))
	if err != nil {
		logger.Log.Fatalf("Invalid DEADLINE_SCAN_CRON: %v", err)
	}
	if scheduler != nil {
		defer scheduler.Stop()
	}

	// --- Handlers ---
	routes := &handlers.Routes{
		Users:         handlers.NewUserHandler(userService, cfg),
		Programs:      handlers.NewProgramHandler(programService, milestoneService),
		Milestones:    handlers.NewMilestoneHandler(milestoneService),
		Cycles:        handlers.NewCycleHandler(balanceService),
		Notifications: handlers.NewNotificationHandler(notificationService),
		Templates:     handlers.NewTemplateHandler(templateService),
		Audit:         handlers.NewAuditHandler(auditService),
		Export:        handlers.NewExportHandler(exportService),
		Receipts:      handlers.NewReceiptHandler(cfg.UploadDir),
		Stream:        handlers.NewStreamHandler(sockets, cfg.CORSOrigins),
		Uploads:       http.FileServer(http.Dir(cfg.UploadDir)),
		Authenticate: []mux.MiddlewareFunc{
			middleware.AuthMiddleware(cfg.JWTSecret),
			middleware.ActorMiddleware(userService),
		},
		LoginLimit: middleware.NewRateLimiter(cfg.LoginRatePerSec, cfg.LoginRateBurst).Middleware,
	}

	router := mux.NewRouter()
	router.Handle("/metrics", metrics.Handler()).Methods("GET")
	router.HandleFunc("/health", handlers.Health).Methods("GET")
	routes.Register(router)

	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware)
	router.Use(metrics.Instrument)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infof("Server running on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Graceful shutdown failed")
	}
	if err := db.Client().Disconnect(shutdownCtx); err != nil {
		logger.Log.WithError(err).Warn("MongoDB disconnect failed")
	}
}
