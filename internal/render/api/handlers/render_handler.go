package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/internal/render/app"
	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/internal/render/domain"
)

// RenderHandler definition render job handler
type RenderHandler struct {
	Usecase app.RenderUseCase
}

// Health static service-status probe
func (h *RenderHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "render_service",
	})
}

// Render accept a render submission, run the job synchronously and answer
// with exactly one success or failure payload
func (h *RenderHandler) Render(c *fiber.Ctx) error {
	var req domain.RenderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(domain.RenderResponse{
			Success: false,
			Error:   "malformed request body",
		})
	}

	res, err := h.Usecase.Render(c.UserContext(), &req)
	if err != nil {
		jerr := domain.AsJobError(err)
		status := http.StatusInternalServerError
		if jerr.Kind == domain.ErrInvalidRequest {
			status = http.StatusBadRequest
		}
		// only the message leaves the service, engine detail stays in the logs
		return c.Status(status).JSON(domain.RenderResponse{
			Success: false,
			Error:   jerr.Message,
		})
	}

	return c.JSON(res)
}
