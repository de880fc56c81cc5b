package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"

	"github.com/mpotapov/pocket-reminder-bot/pkg/redis"
)

type sessionLogInfo interface {
	Path() string
}

// HealthHandler handles health checks.
type HealthHandler struct {
	db           *sqlx.DB
	redis        *redis.Client
	sessionLog   sessionLogInfo
	checkTimeout time.Duration
}

func NewHealthHandler(db *sqlx.DB, redisClient *redis.Client, sessionLog sessionLogInfo) *HealthHandler {
	return &HealthHandler{
		db:           db,
		redis:        redisClient,
		sessionLog:   sessionLog,
		checkTimeout: 2 * time.Second,
	}
}

// Health returns overall status and basic component statuses
// (DB, Redis and the session log file).
// @Summary Health check
// @Description Returns overall status with DB, Redis and session log results
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.checkTimeout)
	defer cancel()

	overallStatus := "ok"

	dbStatus := "up"
	if h.db == nil {
		dbStatus = "disabled"
	} else if err := h.db.PingContext(ctx); err != nil {
		dbStatus = "down"
		overallStatus = "degraded"
	}

	redisStatus := "disabled"
	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			redisStatus = "down"
			overallStatus = "degraded"
		} else {
			redisStatus = "up"
		}
	}

	// The log is the source of truth for recovery; a missing file just
	// means no session has been authorized yet.
	logStatus := "up"
	if h.sessionLog == nil {
		logStatus = "disabled"
	} else if _, err := os.Stat(h.sessionLog.Path()); err != nil && !os.IsNotExist(err) {
		logStatus = "down"
		overallStatus = "down"
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().Format(time.RFC3339),
		"components": map[string]any{
			"database": map[string]any{
				"status": dbStatus,
			},
			"redis": map[string]any{
				"status": redisStatus,
			},
			"sessionLog": map[string]any{
				"status": logStatus,
			},
		},
	})
}
