package repository

import (
	"github.com/claimpilot/ClaimPilot/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	ListByTenant(tenantID uint, offset, limit int) ([]models.User, error)
	CountByTenant(tenantID uint) (int64, error)
}

// TenantRepository defines the interface for tenant-related database operations
type TenantRepository interface {
	Create(tenant *models.Tenant) error
	GetByID(id uint) (*models.Tenant, error)
	GetByCode(code string) (*models.Tenant, error)
	Update(tenant *models.Tenant) error
	ListByEntity(entityCode string) ([]models.Tenant, error)
	Count() (int64, error)
}

// ClaimRepository defines the interface for claim-related database operations
type ClaimRepository interface {
	Create(claim *models.Claim) error
	GetByPublicID(tenantID uint, publicID string) (*models.Claim, error)
	ListByTenant(tenantID uint, offset, limit int) ([]models.Claim, error)
	ListByTenantAndStatus(tenantID uint, status string, offset, limit int) ([]models.Claim, error)
	UpdateStatus(claim *models.Claim, status string) error
	CountByTenant(tenantID uint) (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User   UserRepository
	Tenant TenantRepository
	Claim  ClaimRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:   NewUserRepository(db),
		Tenant: NewTenantRepository(db),
		Claim:  NewClaimRepository(db),
	}
}
