package routes

import (
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/mpotapov/pocket-reminder-bot/environments"
	"github.com/mpotapov/pocket-reminder-bot/handlers"
	"github.com/mpotapov/pocket-reminder-bot/internal/middlewares"
)

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	sessionHandler *handlers.SessionHandler,
	deliveryHandler *handlers.DeliveryHandler,
	schedulerHandler *handlers.SchedulerHandler,
	cfg *environments.Config,
) {
	e.GET("/health", healthHandler.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 base group, guarded by the admin API key
	v1 := e.Group("/api/v1", middlewares.APIKeyAuth(cfg.Auth.AdminAPIKey))

	v1.GET("/sessions", sessionHandler.GetSessions)
	v1.GET("/sessions/:id", sessionHandler.GetSession)

	v1.GET("/deliveries", deliveryHandler.GetDeliveries)
	v1.GET("/deliveries/stats", deliveryHandler.GetStats)
	v1.GET("/deliveries/cached", deliveryHandler.GetCachedDeliveries)

	v1.GET("/scheduler/status", schedulerHandler.GetSchedulerStatus)
}
