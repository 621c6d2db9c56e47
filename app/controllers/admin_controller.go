package controllers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/claimpilot/ClaimPilot/internal/pkg/metrics/counter"
)

// HandleWebhookStats exposes the per-entity webhook delivery counters to
// operators.
func HandleWebhookStats(c *fiber.Ctx) error {
	snapshot, err := counter.WebhookSnapshot()
	if err != nil {
		log.Printf("webhook stats snapshot failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	return c.JSON(fiber.Map{"webhooks": snapshot})
}
