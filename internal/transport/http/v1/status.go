package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/aquasense/orchestrator/internal/domain"
)

// Status returns the health monitor's last snapshot.
func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Health())
}

// Conversation returns the stored tail of one conversation.
func (h *Handler) Conversation(c echo.Context) error {
	id := c.Param("conversation_id")
	turns := h.service.ConversationHistory(id)
	return c.JSON(http.StatusOK, map[string]any{
		"conversation_id": id,
		"turns":           turns,
	})
}

// TurnEvents returns the diagnostic event log for one turn.
func (h *Handler) TurnEvents(c echo.Context) error {
	limit := 100
	if v := c.QueryParam("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	events, err := h.service.TurnEvents(c.Request().Context(), c.Param("turn_id"), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, events)
}

// Rescore recomputes one record's derived priority and invalidates cached
// answers that depended on it. Internal surface: callers are trusted.
func (h *Handler) Rescore(c echo.Context) error {
	entityID, err := strconv.ParseInt(c.Param("entity_id"), 10, 64)
	if err != nil || entityID <= 0 {
		return writeError(c, domain.NewValidationError("entity_id must be a positive integer"))
	}

	wb, removed, err := h.service.RescoreEntity(c.Request().Context(), entityID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"record":                wb,
		"cache_entries_removed": removed,
	})
}
