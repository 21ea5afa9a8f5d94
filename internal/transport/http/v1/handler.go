// Package v1 provides the HTTP handlers for the orchestrator API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aquasense/orchestrator/internal/domain"
	"github.com/aquasense/orchestrator/internal/service"
)

// RoleHeader carries the authenticated caller's role. Authentication itself
// happens upstream; only the role gate is enforced here.
const RoleHeader = "X-Role"

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// RegisterRoutes registers all routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/query", h.Query)
	e.POST("/v1/explain/:entity_id", h.Explain)
	e.GET("/v1/status", h.Status)
	e.GET("/v1/conversations/:conversation_id", h.Conversation)
	e.GET("/v1/turns/:turn_id/events", h.TurnEvents)

	e.POST("/internal/records/:entity_id/rescore", h.Rescore)

	e.GET("/health", h.Health)
}

// Health returns a liveness response.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps the error taxonomy to HTTP status codes with a structured
// body: stable code plus human-readable message.
func writeError(c echo.Context, err error) error {
	code := domain.CodeOf(err)
	status := http.StatusInternalServerError
	message := err.Error()

	switch code {
	case domain.CodeValidation:
		status = http.StatusBadRequest
	case domain.CodePermission:
		status = http.StatusForbidden
	case domain.CodeNotFound:
		status = http.StatusNotFound
	case domain.CodeDependencyUnavailable:
		status = http.StatusServiceUnavailable
		message += "; retry once the answer service is reachable"
	default:
		code = "internal_error"
	}

	return c.JSON(status, errorBody{Code: string(code), Message: message})
}

func role(c echo.Context) domain.Role {
	r := c.Request().Header.Get(RoleHeader)
	if r == "" {
		return domain.RoleGuest
	}
	return domain.Role(r)
}
