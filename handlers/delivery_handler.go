package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/mpotapov/pocket-reminder-bot/internal/service"
	"github.com/mpotapov/pocket-reminder-bot/pkg/response"
	"github.com/mpotapov/pocket-reminder-bot/pkg/validator"
)

type DeliveryHandler struct {
	service *service.DeliveryService
}

func NewDeliveryHandler(service *service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{service: service}
}

type ListDeliveriesRequest struct {
	Page     int    `query:"page" json:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"pageSize" json:"pageSize" validate:"omitempty,min=1,max=100"`
	ChatID   *int64 `query:"chatId" json:"chatId" validate:"omitempty"`
}

// GetDeliveries godoc
// @Summary Get delivery history
// @Description Retrieves a paginated list of delivery attempts with optional chat filter
// @Tags deliveries
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Param chatId query int false "Filter by chat id"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/deliveries [get]
func (h *DeliveryHandler) GetDeliveries(c echo.Context) error {
	var req ListDeliveriesRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	deliveries, totalCount, err := h.service.GetDeliveries(c.Request().Context(), req.ChatID, req.Page, req.PageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, deliveries, req.Page, req.PageSize, totalCount)
}

// GetStats godoc
// @Summary Get delivery statistics
// @Description Returns delivery counts by status
// @Tags deliveries
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/deliveries/stats [get]
func (h *DeliveryHandler) GetStats(c echo.Context) error {
	sent, failed, err := h.service.GetStats(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, map[string]any{
		"sent":   sent,
		"failed": failed,
		"total":  sent + failed,
	})
}

// GetCachedDeliveries godoc
// @Summary Get last deliveries from Redis
// @Description Returns the most recent delivery cached per chat
// @Tags deliveries
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/deliveries/cached [get]
func (h *DeliveryHandler) GetCachedDeliveries(c echo.Context) error {
	cached, err := h.service.GetCachedDeliveries(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, cached)
}
