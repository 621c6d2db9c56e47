package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/claimpilot/ClaimPilot/app/models"
	"github.com/claimpilot/ClaimPilot/internal/pkg/billing"
	"github.com/claimpilot/ClaimPilot/internal/pkg/database"
	"github.com/claimpilot/ClaimPilot/internal/pkg/metrics/counter"
)

// HandleProviderWebhook is the HTTP edge of the webhook ingestion pipeline:
// POST /webhooks/:provider/:entity. Everything interesting happens in the
// billing service; this handler only resolves routing, hands over the exact
// raw body bytes and maps pipeline errors onto the response contract.
func HandleProviderWebhook(c *fiber.Ctx) error {
	provider := strings.ToLower(strings.TrimSpace(c.Params("provider")))
	if provider != models.BillingProviderPaddle {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown webhook provider"})
	}

	entity, ok := billing.ResolveEntityFromPathSegment(c.Params("entity"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown billing entity"})
	}

	// Copy the body: the signature is over these exact bytes and fiber may
	// reuse its buffer after the handler returns.
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Paddle-Signature"))

	_ = counter.AddWebhookReceived(entity.Code)

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := svc.ProcessWebhook(ctx, entity, rawBody, signature)
	if err != nil {
		status, body := webhookErrorResponse(err)
		if status == fiber.StatusBadRequest || status == fiber.StatusUnauthorized {
			_ = counter.AddWebhookRejected(entity.Code)
		} else {
			_ = counter.AddWebhookFailed(entity.Code)
		}
		return c.Status(status).JSON(body)
	}

	if result.Duplicate {
		_ = counter.AddWebhookDuplicate(entity.Code)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "duplicate": true})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}

// webhookErrorResponse maps pipeline errors onto the HTTP contract:
// 400 missing credentials, 401 invalid signature or entity mismatch,
// 500 anything that failed after the event row was accepted.
func webhookErrorResponse(err error) (int, fiber.Map) {
	switch {
	case errors.Is(err, billing.ErrMissingCredentials):
		return fiber.StatusBadRequest, fiber.Map{"error": "Missing signature or secret"}
	case errors.Is(err, billing.ErrInvalidSignature):
		return fiber.StatusUnauthorized, fiber.Map{"error": "Invalid webhook signature"}
	case errors.Is(err, billing.ErrEntityMismatch):
		return fiber.StatusUnauthorized, fiber.Map{"error": "Webhook entity mismatch"}
	default:
		return fiber.StatusInternalServerError, fiber.Map{"error": "Webhook processing failed"}
	}
}
