// Package server provides the HTTP surface of the pattern generation
// service.
package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"emojigen/internal/core"
	"emojigen/internal/orchestrator"
)

// Handler holds the HTTP handlers.
type Handler struct {
	orch *orchestrator.Orchestrator
}

// NewHandler creates a handler backed by the orchestrator.
func NewHandler(orch *orchestrator.Orchestrator) *Handler {
	return &Handler{orch: orch}
}

// generateBody is the request payload for POST /v1/patterns/generate.
// Both parts are optional; missing context fields take the documented
// defaults.
type generateBody struct {
	Request core.GenerationRequest `json:"request"`
	Context core.GenerationContext `json:"context"`
}

// Generate handles POST /v1/patterns/generate. The orchestrator never
// fails, so a parseable request always yields 200 with a FallbackResult.
func (h *Handler) Generate(c echo.Context) error {
	var body generateBody
	if err := c.Bind(&body); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}

	ctx := core.WithRequestID(c.Request().Context(), core.NewRequestID())
	res := h.orch.Generate(ctx, &body.Request, body.Context)
	return c.JSON(http.StatusOK, res)
}

// Health handles GET /health with the full system health snapshot.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, h.orch.SystemHealth())
}

// handleError maps service errors to HTTP status codes.
func handleError(c echo.Context, err error) error {
	var ge *core.GenerationError
	if errors.As(err, &ge) {
		return c.JSON(ge.HTTPStatusCode(), map[string]any{
			"error": map[string]any{
				"type":    string(ge.Kind),
				"message": ge.Message,
			},
		})
	}

	return c.JSON(http.StatusInternalServerError, map[string]any{
		"error": map[string]any{
			"type":    "internal_error",
			"message": err.Error(),
		},
	})
}
