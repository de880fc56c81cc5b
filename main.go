package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mpotapov/pocket-reminder-bot/environments"
	"github.com/mpotapov/pocket-reminder-bot/handlers"
	"github.com/mpotapov/pocket-reminder-bot/internal/domain"
	"github.com/mpotapov/pocket-reminder-bot/internal/recovery"
	"github.com/mpotapov/pocket-reminder-bot/internal/repository"
	"github.com/mpotapov/pocket-reminder-bot/internal/scheduler"
	"github.com/mpotapov/pocket-reminder-bot/internal/service"
	"github.com/mpotapov/pocket-reminder-bot/internal/session"
	"github.com/mpotapov/pocket-reminder-bot/pkg/database"
	"github.com/mpotapov/pocket-reminder-bot/pkg/logger"
	"github.com/mpotapov/pocket-reminder-bot/pkg/pocket"
	"github.com/mpotapov/pocket-reminder-bot/pkg/redis"
	"github.com/mpotapov/pocket-reminder-bot/pkg/telegram"
	"github.com/mpotapov/pocket-reminder-bot/pkg/validator"
	"github.com/mpotapov/pocket-reminder-bot/routes"

	_ "github.com/mpotapov/pocket-reminder-bot/docs" // swagger docs
)

// @title Pocket Reminder Bot API
// @version 1.0
// @description Telegram bot that periodically delivers one saved Pocket item per chat

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	logger.Init()

	// Load config
	cfg := environments.Load()

	// Hard-fail if required secrets are missing
	if cfg.Telegram.BotToken == "" {
		logger.Fatalf("TELEGRAM_BOT_TOKEN is required but not set")
	}
	if cfg.Pocket.ConsumerKey == "" {
		logger.Fatalf("POCKET_CONSUMER_KEY is required but not set")
	}

	defaultPeriod, err := domain.ParsePeriod(cfg.Bot.DefaultPeriod)
	if err != nil {
		logger.Fatalf("Invalid DELIVERY_PERIOD: %v", err)
	}

	logger.Infof("Starting Pocket Reminder Bot...")

	// Init DB (delivery history)
	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Init redis
	var redisClient *redis.Client
	redisClient, err = redis.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warnf("Redis not available, caching disabled: %v", err)
		redisClient = nil
	}

	// External API clients
	pocketClient := pocket.NewClient(cfg.Pocket)
	telegramClient := telegram.NewClient(cfg.Telegram)

	// Core components
	sessionLog := repository.NewSessionLog(cfg.Bot.SessionLogPath)
	deliveryRepo := repository.NewDeliveryRepository(db)
	registry := session.NewRegistry()
	sched := scheduler.New()

	var deliveryService *service.DeliveryService
	if redisClient != nil {
		deliveryService = service.NewDeliveryService(registry, pocketClient, telegramClient, deliveryRepo, redisClient)
	} else {
		deliveryService = service.NewDeliveryService(registry, pocketClient, telegramClient, deliveryRepo, nil)
	}

	machine := session.NewMachine(
		registry,
		pocketClient,
		telegramClient,
		sessionLog,
		sched,
		deliveryService,
		defaultPeriod,
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Replay the session log before consuming any inbound event. A
	// malformed record aborts startup rather than silently dropping a
	// user's schedule.
	recovered, err := recovery.Recover(ctx, sessionLog, registry, sched, machine.OnFire)
	if err != nil {
		logger.Fatalf("Recovery failed: %v", err)
	}
	logger.Infof("Recovered %d authorized session(s) from %s", recovered, cfg.Bot.SessionLogPath)

	// Inbound loop: one long-poll producer, exactly one consumer.
	inbound := telegramClient.Poll(ctx)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for msg := range inbound {
			machine.Handle(ctx, msg.ChatID, msg.Text)
		}
	}()

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisClient, sessionLog)
	sessionHandler := handlers.NewSessionHandler(registry)
	deliveryHandler := handlers.NewDeliveryHandler(deliveryService)
	schedulerHandler := handlers.NewSchedulerHandler(sched)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())

	// Setup routes
	routes.RegisterRoutes(e, healthHandler, sessionHandler, deliveryHandler, schedulerHandler, cfg)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Admin API starting on http://localhost%s", addr)
		logger.Infof("Swagger docs available at http://localhost%s/swagger/index.html", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	// Cancel context: stops the poller and unblocks timer goroutines
	cancel()

	// Wait for the inbound consumer to drain
	select {
	case <-consumerDone:
	case <-time.After(10 * time.Second):
		logger.Warnf("Inbound consumer drain timeout")
	}

	// Cancel all timers so no fire runs against a torn-down registry
	logger.Infof("Stopping scheduler...")
	sched.Stop()

	// Shutdown HTTP server (with timeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Infof("HTTP server stopped successfully")
	}

	// Close database connection
	logger.Infof("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	// Close Redis connection
	if redisClient != nil {
		logger.Infof("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			logger.Errorf("Error closing Redis: %v", err)
		}
	}

	logger.Infof("Graceful shutdown completed")
}
