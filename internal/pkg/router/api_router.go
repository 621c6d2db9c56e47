package router

import (
	"github.com/claimpilot/ClaimPilot/app/controllers"
	"github.com/claimpilot/ClaimPilot/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "ClaimPilot API",
		})
	})

	// API v1 routes, all tenant-scoped through API key auth
	v1 := api.Group("/v1", middleware.APIKeyAuthMiddleware())
	v1.Get("/claims", controllers.HandleListClaims)
	v1.Post("/claims", controllers.HandleCreateClaim)
	v1.Get("/claims/:id", controllers.HandleGetClaim)
	v1.Patch("/claims/:id/status", controllers.HandleUpdateClaimStatus)

	admin := v1.Group("/admin", middleware.RequireAdmin())
	admin.Get("/webhook-stats", controllers.HandleWebhookStats)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
