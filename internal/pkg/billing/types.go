package billing

import (
	"time"

	"github.com/claimpilot/ClaimPilot/app/models"
)

// NormalizedEvent is the provider-agnostic shape of an inbound webhook
// payload. Every field is best-effort: a field the payload does not carry,
// or a payload that is not even valid JSON, leaves the zero value.
type NormalizedEvent struct {
	EventID        string
	EventType      string
	OccurredAt     *time.Time
	Entity         string // entity code the payload claims to belong to, if any
	TenantCode     string
	UserID         string
	SubscriptionID string
	PriceRef       string
	Status         string
	Data           map[string]interface{}
}

// EventContext carries everything a business handler needs: the entity the
// delivery was addressed to, the normalized payload and the stored row.
type EventContext struct {
	Entity Entity
	Event  *NormalizedEvent
	Stored *models.BillingWebhookEvent
}

// ProcessResult reports the outcome of one accepted delivery.
type ProcessResult struct {
	Duplicate bool
	EventID   uint
}
