package handlers

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mpotapov/pocket-reminder-bot/internal/domain"
	"github.com/mpotapov/pocket-reminder-bot/internal/session"
	"github.com/mpotapov/pocket-reminder-bot/pkg/response"
)

type SessionHandler struct {
	registry *session.Registry
}

func NewSessionHandler(registry *session.Registry) *SessionHandler {
	return &SessionHandler{registry: registry}
}

// GetSessions godoc
// @Summary List sessions
// @Description Returns every known session with its authorization status and schedule
// @Tags sessions
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/sessions [get]
func (h *SessionHandler) GetSessions(c echo.Context) error {
	sessions := h.registry.Snapshot()

	return response.Ok(c, map[string]any{
		"total":    len(sessions),
		"sessions": sessions,
	})
}

// GetSession godoc
// @Summary Get one session
// @Description Returns the session for a single chat id
// @Tags sessions
// @Accept json
// @Produce json
// @Param x-api-key header string true "Admin API key"
// @Param id path int true "Chat ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/sessions/{id} [get]
func (h *SessionHandler) GetSession(c echo.Context) error {
	chatID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.BadRequest(c, fmt.Errorf("invalid chat id"))
	}

	sess, ok := h.registry.Get(chatID)
	if !ok {
		return response.NotFound(c, fmt.Sprintf("no session for chat %d", chatID))
	}

	// Mirror the persisted projection: status and schedule, never the
	// credential itself.
	body := map[string]any{
		"chatId": sess.ChatID,
		"status": sess.Status,
	}
	if sess.Schedule != nil {
		body["schedule"] = sess.Schedule
		if sess.Status == domain.StatusAuthorized {
			body["hasCredential"] = sess.AccessToken != ""
		}
	}

	return response.Ok(c, body)
}
