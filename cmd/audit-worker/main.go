// Command audit-worker persists audit events published by the server to RabbitMQ.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/goldenbridgewomen/gbw-tracker/internal/config"
	"github.com/goldenbridgewomen/gbw-tracker/internal/database"
	"github.com/goldenbridgewomen/gbw-tracker/internal/mq"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()
	logger.InitLogger(cfg.LogLevel)

	if cfg.AMQPURL == "" {
		logger.Log.Fatal("AMQP_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectDB(cfg)
	if err != nil {
		logger.Log.Fatalf("Database connection error: %v", err)
	}
	defer db.Client().Disconnect(context.Background())

	auditRepo := repository.NewAuditRepository(db)
	if err := auditRepo.EnsureCollection(ctx); err != nil {
		logger.Log.Fatalf("Failed to prepare audit collection: %v", err)
	}

	conn, err := mq.NewConnection(cfg.AMQPURL)
	if err != nil {
		logger.Log.Fatalf("RabbitMQ connection error: %v", err)
	}
	defer conn.Close()

	consumer, err := mq.NewConsumer(conn, mq.AuditRoutingKey, mq.AuditHandler(auditRepo))
	if err != nil {
		logger.Log.Fatalf("Failed to create consumer: %v", err)
	}
	defer consumer.Close()

	logger.Log.Info("Audit worker started")
	if err := consumer.Run(ctx); err != nil {
		logger.Log.WithError(err).Error("Audit worker stopped")
		return
	}
	logger.Log.Info("Audit worker stopped")
}
