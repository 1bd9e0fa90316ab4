package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/internal/render/api/handlers"
	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/pkg/middlewares"
)

// RegisterRoutes register render service routes
func RegisterRoutes(app *fiber.App, renderHandler *handlers.RenderHandler, authToken string) {
	app.Get("/health", renderHandler.Health)
	app.Post("/render", middlewares.BearerAuth(authToken), renderHandler.Render)
}
