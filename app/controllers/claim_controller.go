package controllers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/claimpilot/ClaimPilot/app/models"
	"github.com/claimpilot/ClaimPilot/app/repository"
	"github.com/claimpilot/ClaimPilot/internal/pkg/database"
	"github.com/claimpilot/ClaimPilot/internal/pkg/usercontext"
)

// HandleListClaims returns a page of the authenticated tenant's claims.
func HandleListClaims(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	offset, limit := parsePagination(c)

	repo := repository.GetGlobalFactory().GetClaimRepository()

	var claims []models.Claim
	var err error
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		claims, err = repo.ListByTenantAndStatus(userCtx.TenantID, status, offset, limit)
	} else {
		claims, err = repo.ListByTenant(userCtx.TenantID, offset, limit)
	}
	if err != nil {
		log.Printf("claim list failed for tenant %d: %v", userCtx.TenantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	total, err := repo.CountByTenant(userCtx.TenantID)
	if err != nil {
		log.Printf("claim count failed for tenant %d: %v", userCtx.TenantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	items := make([]fiber.Map, 0, len(claims))
	for i := range claims {
		items = append(items, claimResponse(&claims[i]))
	}
	return c.JSON(fiber.Map{"claims": items, "total": total})
}

// HandleGetClaim returns one claim by public id, scoped to the tenant.
func HandleGetClaim(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	claim, err := repository.GetGlobalFactory().GetClaimRepository().
		GetByPublicID(userCtx.TenantID, c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		log.Printf("claim lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	return c.JSON(claimResponse(claim))
}

// HandleCreateClaim opens a new claim for the tenant.
func HandleCreateClaim(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var in struct {
		PolicyNumber string `json:"policy_number"`
		Title        string `json:"title"`
		Description  string `json:"description"`
		AmountCents  int64  `json:"amount_cents"`
		Currency     string `json:"currency"`
	}
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	claim := &models.Claim{
		TenantID:     userCtx.TenantID,
		ReporterID:   userCtx.UserID,
		PolicyNumber: strings.TrimSpace(in.PolicyNumber),
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Status:       models.CLAIM_STATUS_SUBMITTED,
		AmountCents:  in.AmountCents,
		Currency:     strings.ToUpper(strings.TrimSpace(in.Currency)),
	}
	if claim.Currency == "" {
		claim.Currency = "EUR"
	}
	if err := claim.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	if err := repository.GetGlobalFactory().GetClaimRepository().Create(claim); err != nil {
		log.Printf("claim create failed for tenant %d: %v", userCtx.TenantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	return c.Status(fiber.StatusCreated).JSON(claimResponse(claim))
}

// HandleUpdateClaimStatus moves a claim through its lifecycle. Only
// managers and admins may decide claims.
func HandleUpdateClaimStatus(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if userCtx.Role != models.ROLE_MANAGER && userCtx.Role != models.ROLE_ADMIN {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	}

	var in struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	repo := repository.GetGlobalFactory().GetClaimRepository()
	claim, err := repo.GetByPublicID(userCtx.TenantID, c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		log.Printf("claim lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	target := strings.ToLower(strings.TrimSpace(in.Status))
	if !models.IsValidClaimTransition(claim.Status, target) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "invalid_transition",
			"message": claim.Status + " -> " + target + " is not allowed",
		})
	}

	previous := claim.Status
	if err := repo.UpdateStatus(claim, target); err != nil {
		log.Printf("claim status update failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	// Status changes are audit-relevant; best-effort like all audit writes.
	if db := database.GetDB(); db != nil {
		if err := db.Create(&models.AuditEntry{
			Action: models.AuditClaimStatusChanged,
			Actor:  userCtx.Username,
			Detail: claim.PublicID + ": " + previous + " -> " + target,
		}).Error; err != nil {
			log.Printf("audit write for claim %s failed: %v", claim.PublicID, err)
		}
	}

	return c.JSON(claimResponse(claim))
}

func claimResponse(claim *models.Claim) fiber.Map {
	return fiber.Map{
		"id":            claim.PublicID,
		"policy_number": claim.PolicyNumber,
		"title":         claim.Title,
		"description":   claim.Description,
		"status":        claim.Status,
		"amount_cents":  claim.AmountCents,
		"currency":      claim.Currency,
		"incident_at":   formatTimePtr(claim.IncidentAt),
		"closed_at":     formatTimePtr(claim.ClosedAt),
		"created_at":    claim.CreatedAt.UTC().Format(time.RFC3339),
	}
}
