package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CLAIM_STATUS_SUBMITTED = "submitted"
	CLAIM_STATUS_IN_REVIEW = "in_review"
	CLAIM_STATUS_APPROVED  = "approved"
	CLAIM_STATUS_DENIED    = "denied"
	CLAIM_STATUS_PAID      = "paid"
)

// Claim is a tenant-scoped insurance claim. PublicID is the identifier
// exposed through the API; the numeric primary key never leaves the backend.
type Claim struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	PublicID      string         `gorm:"type:varchar(36);uniqueIndex" json:"public_id"`
	TenantID      uint           `gorm:"not null;index:idx_claims_tenant_status,priority:1" json:"tenant_id"`
	Tenant        Tenant         `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	ReporterID    uint           `gorm:"index" json:"reporter_id"`
	PolicyNumber  string         `gorm:"type:varchar(100);not null;index" json:"policy_number" validate:"required,max=100"`
	Title         string         `gorm:"type:varchar(200)" json:"title" validate:"required,min=3,max=200"`
	Description   string         `gorm:"type:text" json:"description" validate:"max=10000"`
	Status        string         `gorm:"type:varchar(32);not null;default:'submitted';index:idx_claims_tenant_status,priority:2" json:"status"`
	AmountCents   int64          `gorm:"not null;default:0" json:"amount_cents" validate:"gte=0"`
	Currency      string         `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency" validate:"len=3"`
	IncidentAt    *time.Time     `gorm:"type:timestamp;default:null" json:"incident_at,omitempty"`
	ClosedAt      *time.Time     `gorm:"type:timestamp;default:null" json:"closed_at,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Claim) Validate() error {
	v := validator.New()

	return v.Struct(c)
}

// BeforeCreate assigns the public identifier.
func (c *Claim) BeforeCreate(tx *gorm.DB) error {
	if c.PublicID == "" {
		c.PublicID = uuid.New().String()
	}
	return nil
}

// IsValidClaimTransition reports whether a claim may move from one lifecycle
// status to another. Terminal states (denied, paid) cannot be left.
func IsValidClaimTransition(from, to string) bool {
	switch from {
	case CLAIM_STATUS_SUBMITTED:
		return to == CLAIM_STATUS_IN_REVIEW || to == CLAIM_STATUS_DENIED
	case CLAIM_STATUS_IN_REVIEW:
		return to == CLAIM_STATUS_APPROVED || to == CLAIM_STATUS_DENIED
	case CLAIM_STATUS_APPROVED:
		return to == CLAIM_STATUS_PAID || to == CLAIM_STATUS_DENIED
	default:
		return false
	}
}
