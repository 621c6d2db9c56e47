package billing

import (
	"strings"

	"github.com/claimpilot/ClaimPilot/app/models"
)

func normalizeBillingStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.BillingStatusActive, models.BillingStatusTrialing,
		models.BillingStatusPastDue, models.BillingStatusCanceled,
		models.BillingStatusPaused, models.BillingStatusExpired:
		return strings.ToLower(strings.TrimSpace(status))
	case "":
		return models.BillingStatusActive
	default:
		return models.BillingStatusIncomplete
	}
}

func isEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.BillingStatusActive, models.BillingStatusTrialing, models.BillingStatusPastDue:
		return true
	default:
		return false
	}
}
