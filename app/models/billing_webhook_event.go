package models

import "time"

const (
	WebhookStatusPending   = "pending"
	WebhookStatusProcessed = "processed"
	WebhookStatusFailed    = "failed"
)

// BillingWebhookEvent stores exactly one row per logical provider webhook
// event. The unique index on DedupeKey is the idempotency boundary of the
// whole ingestion pipeline: concurrent duplicate deliveries race on the
// insert and only one wins. Rows are never deleted; they double as the
// permanent audit ledger of everything the provider ever sent us.
type BillingWebhookEvent struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	DedupeKey         string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_billing_webhook_events_dedupe_key" json:"dedupe_key"`
	Provider          string     `gorm:"type:varchar(20);not null;index" json:"provider"`
	ProviderEventID   string     `gorm:"type:varchar(191);not null;default:''" json:"provider_event_id"`
	EventType         string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	EntityCode        string     `gorm:"type:varchar(20);not null;index" json:"entity_code"`
	TenantCode        string     `gorm:"type:varchar(100);not null;default:''" json:"tenant_code"`
	SignatureValid    bool       `gorm:"default:false;index" json:"signature_valid"`
	SignatureBypassed bool       `gorm:"default:false" json:"signature_bypassed"`
	PayloadHash       string     `gorm:"type:varchar(64);not null" json:"payload_hash"`
	PayloadJSON       string     `gorm:"type:longtext;not null" json:"payload_json"`
	Status            string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	ProcessingError   string     `gorm:"type:text" json:"processing_error"`
	ReceivedAt        time.Time  `gorm:"autoCreateTime;index" json:"received_at"`
	ProcessedAt       *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	FailedAt          *time.Time `gorm:"type:timestamp;default:null" json:"failed_at,omitempty"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
