package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	TENANT_STATUS_ACTIVE    = "active"
	TENANT_STATUS_SUSPENDED = "suspended"
)

// Tenant is an insurance business (agency, carrier or MGA) using the
// platform. Every tenant belongs to exactly one billing entity, selected by
// EntityCode; all claim and billing data is scoped by TenantID.
type Tenant struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Code         string         `gorm:"type:varchar(100);uniqueIndex" json:"code" validate:"required,min=2,max=100"`
	Name         string         `gorm:"type:varchar(200)" json:"name" validate:"required,min=2,max=200"`
	EntityCode   string         `gorm:"type:varchar(20);not null;index" json:"entity_code" validate:"required,min=2,max=20"`
	BillingEmail string         `gorm:"type:varchar(200);default:''" json:"billing_email" validate:"omitempty,email"`
	Plan         string         `gorm:"type:varchar(50);not null;default:'starter';index" json:"plan"`
	Status       string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active suspended"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Tenant) Validate() error {
	v := validator.New()

	return v.Struct(t)
}
