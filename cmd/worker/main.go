// Package main is the entry point for the bottleworks background worker.
// It relays outbox events to notification dispatch and runs periodic
// cleanup jobs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"bottleworks/internal/infrastructure/storage/postgres"
	"bottleworks/internal/infrastructure/storage/postgres/auth_repo"
	"bottleworks/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting bottleworks worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	tokenRepo := auth_repo.NewTokenRepo(txManager)

	dispatcher := NewNotificationDispatcher(log)
	relay := postgres.NewOutboxRelay(pool.Pool, getEnvInt("OUTBOX_BATCH_SIZE", 100), dispatcher)

	worker := &Worker{
		relay:     relay,
		tokenRepo: tokenRepo,
		log:       log.WithComponent("worker"),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// TokenCleaner removes expired refresh tokens.
type TokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int, error)
}

// Worker drives the outbox relay and periodic maintenance.
type Worker struct {
	relay     *postgres.OutboxRelay
	tokenRepo TokenCleaner
	log       *logger.Logger
}

// Run polls the outbox until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	maintenanceTicker := time.NewTicker(1 * time.Hour)
	defer maintenanceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			processed, err := w.relay.ProcessBatch(ctx)
			if err != nil {
				w.log.Errorw("outbox batch failed", "error", err)
				continue
			}
			if processed > 0 {
				w.log.Debugw("processed outbox batch", "count", processed)
			}

		case <-maintenanceTicker.C:
			w.runMaintenance(ctx)
		}
	}
}

func (w *Worker) runMaintenance(ctx context.Context) {
	if moved, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("dlq sweep failed", "error", err)
	} else if moved > 0 {
		w.log.Infow("moved failed messages to dlq", "count", moved)
	}

	if removed, err := w.tokenRepo.CleanupExpiredTokens(ctx); err != nil {
		w.log.Errorw("token cleanup failed", "error", err)
	} else if removed > 0 {
		w.log.Infow("cleaned up refresh tokens", "count", removed)
	}
}

// NotificationDispatcher routes outbox events to customer notification
// channels. Wire formats for the email/SMS gateways live behind this
// seam; for now every event is logged with its routing decision.
type NotificationDispatcher struct {
	log *logger.Logger
}

// NewNotificationDispatcher creates a dispatcher.
func NewNotificationDispatcher(log *logger.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{log: log.WithComponent("notifications")}
}

// Handle implements postgres.OutboxHandler.
func (d *NotificationDispatcher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	var payload map[string]any
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
	}

	channel := channelFor(msg.EventType)

	d.log.WithContext(ctx).Infow("dispatching notification",
		"event_type", msg.EventType,
		"aggregate_type", msg.AggregateType,
		"aggregate_id", msg.AggregateID,
		"channel", channel,
	)

	return nil
}

// channelFor maps event types to notification channels.
func channelFor(eventType string) string {
	switch eventType {
	case "order.created", "order.status_changed", "order.addon_created":
		return "email"
	case "invoice.issued", "invoice.payment_recorded", "invoice.consolidation_synced":
		return "email"
	case "batch.planned", "batch.split", "batch.merged", "batch.step_completed":
		return "ops-feed"
	default:
		return "none"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
