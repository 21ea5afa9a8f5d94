package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/aquasense/orchestrator/internal/domain"
)

type queryRequest struct {
	Query          string         `json:"query"`
	Language       string         `json:"language,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Filters        domain.Filters `json:"filters,omitempty"`
}

// Query answers a natural-language question.
func (h *Handler) Query(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.NewValidationError("invalid request body"))
	}

	if snap := h.service.Health(); snap.Status == domain.HealthUnavailable {
		return c.JSON(http.StatusServiceUnavailable, errorBody{
			Code:    string(domain.CodeDependencyUnavailable),
			Message: "orchestrator dependencies are unavailable; retry later",
		})
	}

	envelope, err := h.service.HandleQuery(c.Request().Context(), domain.Query{
		Text:           req.Query,
		Language:       req.Language,
		Role:           role(c),
		Filters:        req.Filters,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, envelope)
}

// Explain answers the canonical score-explanation question for one entity.
func (h *Handler) Explain(c echo.Context) error {
	entityID, err := strconv.ParseInt(c.Param("entity_id"), 10, 64)
	if err != nil || entityID <= 0 {
		return writeError(c, domain.NewValidationError("entity_id must be a positive integer"))
	}

	if snap := h.service.Health(); snap.Status == domain.HealthUnavailable {
		return c.JSON(http.StatusServiceUnavailable, errorBody{
			Code:    string(domain.CodeDependencyUnavailable),
			Message: "orchestrator dependencies are unavailable; retry later",
		})
	}

	envelope, err := h.service.ExplainEntity(c.Request().Context(), entityID, role(c), c.QueryParam("conversation_id"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, envelope)
}
