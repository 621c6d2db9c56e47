package billing

import (
	"strconv"
	"time"

	"github.com/claimpilot/ClaimPilot/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations used by the webhook pipeline.
type Repository interface {
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint) error
	MarkWebhookFailed(id uint, processingError string) error

	GetTenantByCode(code string) (*models.Tenant, error)
	LookupTenantCodeForUser(userID string) (string, error)
	LookupTenantCodeForSubscription(provider, providerSubscriptionID string) (string, error)
	ResolveEntityForTenant(tenantCode string) (string, error)

	FindActivePlanMapping(provider, providerPlanRef string) (*models.BillingPlanMapping, error)
	UpsertSubscription(sub *models.BillingSubscription) error
	ListSubscriptionsByTenant(tenantID uint) ([]models.BillingSubscription, error)
	SaveTenant(tenant *models.Tenant) error
	CreateNotification(n *models.Notification) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// CreateWebhookEventIfNotExists inserts the event row unless a row with the
// same dedupe key already exists. The unique index resolves concurrent
// duplicate deliveries: exactly one caller sees created=true.
func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "dedupe_key"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("dedupe_key = ?", event.DedupeKey).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       models.WebhookStatusProcessed,
		"processed_at": &now,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) MarkWebhookFailed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":           models.WebhookStatusFailed,
		"failed_at":        &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) GetTenantByCode(code string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.Where("code = ?", code).First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// LookupTenantCodeForUser resolves a payload user reference (our numeric
// user id, placed into the provider's custom data at checkout) to the
// owning tenant's code.
func (r *gormRepository) LookupTenantCodeForUser(userID string) (string, error) {
	id, err := strconv.ParseUint(userID, 10, 64)
	if err != nil {
		return "", gorm.ErrRecordNotFound
	}

	var user models.User
	if err := r.db.First(&user, uint(id)).Error; err != nil {
		return "", err
	}
	var tenant models.Tenant
	if err := r.db.First(&tenant, user.TenantID).Error; err != nil {
		return "", err
	}
	return tenant.Code, nil
}

func (r *gormRepository) LookupTenantCodeForSubscription(provider, providerSubscriptionID string) (string, error) {
	var sub models.BillingSubscription
	err := r.db.Where("provider = ? AND provider_subscription_id = ?", provider, providerSubscriptionID).
		First(&sub).Error
	if err != nil {
		return "", err
	}
	var tenant models.Tenant
	if err := r.db.First(&tenant, sub.TenantID).Error; err != nil {
		return "", err
	}
	return tenant.Code, nil
}

func (r *gormRepository) ResolveEntityForTenant(tenantCode string) (string, error) {
	tenant, err := r.GetTenantByCode(tenantCode)
	if err != nil {
		return "", err
	}
	return tenant.EntityCode, nil
}

func (r *gormRepository) FindActivePlanMapping(provider, providerPlanRef string) (*models.BillingPlanMapping, error) {
	var m models.BillingPlanMapping
	err := r.db.
		Where("provider = ? AND provider_plan_ref = ? AND is_active = ?", provider, providerPlanRef, true).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *gormRepository) UpsertSubscription(sub *models.BillingSubscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_subscription_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"tenant_id",
			"provider_plan_ref",
			"internal_plan",
			"status",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"raw_payload_json",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("provider = ? AND provider_subscription_id = ?", sub.Provider, sub.ProviderSubscriptionID).
		First(sub).Error
}

func (r *gormRepository) ListSubscriptionsByTenant(tenantID uint) ([]models.BillingSubscription, error) {
	var subs []models.BillingSubscription
	err := r.db.Where("tenant_id = ?", tenantID).Find(&subs).Error
	return subs, err
}

func (r *gormRepository) SaveTenant(tenant *models.Tenant) error {
	return r.db.Save(tenant).Error
}

func (r *gormRepository) CreateNotification(n *models.Notification) error {
	return r.db.Create(n).Error
}
