package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/mpotapov/pocket-reminder-bot/internal/scheduler"
	"github.com/mpotapov/pocket-reminder-bot/pkg/response"
)

type SchedulerHandler struct {
	scheduler *scheduler.Scheduler
}

func NewSchedulerHandler(sched *scheduler.Scheduler) *SchedulerHandler {
	return &SchedulerHandler{scheduler: sched}
}

// GetSchedulerStatus godoc
// @Summary Get scheduler status
// @Description Returns the active timers and fire counters
// @Tags scheduler
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/scheduler/status [get]
func (h *SchedulerHandler) GetSchedulerStatus(c echo.Context) error {
	return response.Ok(c, h.scheduler.GetStatus())
}
