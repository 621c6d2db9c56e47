package repository

import (
	"time"

	"github.com/claimpilot/ClaimPilot/app/models"
	"gorm.io/gorm"
)

// claimRepository implements the ClaimRepository interface
type claimRepository struct {
	db *gorm.DB
}

// NewClaimRepository creates a new claim repository instance
func NewClaimRepository(db *gorm.DB) ClaimRepository {
	return &claimRepository{db: db}
}

// Create creates a new claim in the database
func (r *claimRepository) Create(claim *models.Claim) error {
	return r.db.Create(claim).Error
}

// GetByPublicID retrieves a claim by its public UUID, scoped to a tenant.
// The tenant scope is mandatory: a claim from another tenant is not found.
func (r *claimRepository) GetByPublicID(tenantID uint, publicID string) (*models.Claim, error) {
	var claim models.Claim
	err := r.db.Where("tenant_id = ? AND public_id = ?", tenantID, publicID).First(&claim).Error
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// ListByTenant returns a page of claims for a tenant, newest first
func (r *claimRepository) ListByTenant(tenantID uint, offset, limit int) ([]models.Claim, error) {
	var claims []models.Claim
	err := r.db.Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&claims).Error
	return claims, err
}

// ListByTenantAndStatus returns a page of claims filtered by status
func (r *claimRepository) ListByTenantAndStatus(tenantID uint, status string, offset, limit int) ([]models.Claim, error) {
	var claims []models.Claim
	err := r.db.Where("tenant_id = ? AND status = ?", tenantID, status).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&claims).Error
	return claims, err
}

// UpdateStatus moves a claim to a new lifecycle status. Terminal statuses
// also stamp ClosedAt.
func (r *claimRepository) UpdateStatus(claim *models.Claim, status string) error {
	updates := map[string]interface{}{"status": status}
	if status == models.CLAIM_STATUS_DENIED || status == models.CLAIM_STATUS_PAID {
		now := time.Now()
		updates["closed_at"] = &now
	}
	if err := r.db.Model(claim).Updates(updates).Error; err != nil {
		return err
	}
	claim.Status = status
	return nil
}

// CountByTenant counts the claims of a tenant
func (r *claimRepository) CountByTenant(tenantID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Claim{}).Where("tenant_id = ?", tenantID).Count(&count).Error
	return count, err
}
