package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vivulocal/marketplace-api/internal/api/metrics"
	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

type AssistantHandler struct {
	assistant ports.AssistantService
}

func NewAssistantHandler(assistant ports.AssistantService) *AssistantHandler {
	return &AssistantHandler{assistant: assistant}
}

// Chat answers a travel question.
//
// @Summary      Ask the travel assistant
// @Tags         assistant
// @Accept       json
// @Produce      json
// @Param        body  body      chatRequest  true  "Prompt"
// @Success      200   {object}  chatResponse
// @Failure      422   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /v1/assistant/chat [post]
func (h *AssistantHandler) Chat(c echo.Context) error {
	var req chatRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	out, err := h.assistant.Complete(c.Request().Context(), req.Prompt)
	if err != nil {
		return err
	}

	metrics.AssistantCompletionsTotal.WithLabelValues(out.Model).Inc()
	return c.JSON(http.StatusOK, chatResponse{Text: out.Text, Model: out.Model})
}
