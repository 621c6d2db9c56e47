package controllers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/claimpilot/ClaimPilot/internal/pkg/billing"
)

func TestWebhookErrorResponse(t *testing.T) {
	status, body := webhookErrorResponse(billing.ErrMissingCredentials)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Missing signature or secret", body["error"])

	status, body = webhookErrorResponse(billing.ErrInvalidSignature)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Invalid webhook signature", body["error"])

	status, body = webhookErrorResponse(billing.ErrEntityMismatch)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Webhook entity mismatch", body["error"])

	status, body = webhookErrorResponse(errors.New("handler blew up"))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "Webhook processing failed", body["error"])
}

func TestWebhookErrorResponseUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("process transaction.completed: %w", billing.ErrEntityMismatch)
	status, _ := webhookErrorResponse(wrapped)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}
