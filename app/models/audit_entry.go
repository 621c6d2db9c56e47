package models

import "time"

// Audit actions recorded by the webhook pipeline and the claims API.
const (
	AuditWebhookRejectedSignature   = "webhook.rejected.signature"
	AuditWebhookRejectedCredentials = "webhook.rejected.credentials"
	AuditWebhookRejectedMismatch    = "webhook.rejected.entity_mismatch"
	AuditWebhookDuplicate           = "webhook.duplicate"
	AuditWebhookProcessed           = "webhook.processed"
	AuditWebhookFailed              = "webhook.failed"
	AuditClaimStatusChanged         = "claim.status_changed"
)

// AuditEntry is an append-only record of security-relevant actions. Entries
// are only ever inserted, never updated or deleted.
type AuditEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Action     string    `gorm:"type:varchar(100);not null;index" json:"action"`
	Actor      string    `gorm:"type:varchar(100);not null;default:''" json:"actor"`
	EntityCode string    `gorm:"type:varchar(20);not null;default:'';index" json:"entity_code"`
	TenantCode string    `gorm:"type:varchar(100);not null;default:''" json:"tenant_code"`
	DedupeKey  string    `gorm:"type:varchar(191);not null;default:'';index" json:"dedupe_key"`
	Detail     string    `gorm:"type:text" json:"detail"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
