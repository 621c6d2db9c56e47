package repository

import (
	"strings"

	"github.com/claimpilot/ClaimPilot/app/models"
	"gorm.io/gorm"
)

// tenantRepository implements the TenantRepository interface
type tenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new tenant repository instance
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{db: db}
}

// Create creates a new tenant in the database
func (r *tenantRepository) Create(tenant *models.Tenant) error {
	return r.db.Create(tenant).Error
}

// GetByID retrieves a tenant by its ID
func (r *tenantRepository) GetByID(id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.First(&tenant, id).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GetByCode retrieves a tenant by its unique code
func (r *tenantRepository) GetByCode(code string) (*models.Tenant, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var tenant models.Tenant
	err := r.db.Where("code = ?", trimmed).First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// Update saves changes to an existing tenant
func (r *tenantRepository) Update(tenant *models.Tenant) error {
	return r.db.Save(tenant).Error
}

// ListByEntity returns all tenants billed through the given entity
func (r *tenantRepository) ListByEntity(entityCode string) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.Where("entity_code = ?", entityCode).Order("code ASC").Find(&tenants).Error
	return tenants, err
}

// Count counts all tenants
func (r *tenantRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Tenant{}).Count(&count).Error
	return count, err
}
