package router

import (
	"time"

	"github.com/claimpilot/ClaimPilot/app/controllers"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Provider webhooks. The limiter runs before any pipeline logic; a
	// limited request is answered by the limiter itself and never reaches
	// the handler.
	webhooks := app.Group("/webhooks", limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
	}))
	webhooks.Post("/:provider/:entity", controllers.HandleProviderWebhook)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
