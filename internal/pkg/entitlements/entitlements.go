package entitlements

import "strings"

type Plan string

const (
	PlanStarter      Plan = "starter"
	PlanProfessional Plan = "professional"
	PlanEnterprise   Plan = "enterprise"
)

// MonthlyClaimAllowance returns how many new claims a tenant on the given
// plan may open per month. 0 means unlimited.
func MonthlyClaimAllowance(plan Plan) int {
	switch plan {
	case PlanEnterprise:
		return 0
	case PlanProfessional:
		return 2500
	default:
		return 100
	}
}

// SeatsAllowed returns the number of user seats included in a plan.
func SeatsAllowed(plan Plan) int {
	switch plan {
	case PlanEnterprise:
		return 250
	case PlanProfessional:
		return 25
	default:
		return 3
	}
}

// NormalizePlan maps arbitrary input to a known plan, defaulting to starter.
func NormalizePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanProfessional):
		return PlanProfessional
	case string(PlanEnterprise):
		return PlanEnterprise
	default:
		return PlanStarter
	}
}

// PlanRank orders plans so the best entitling subscription wins.
func PlanRank(plan Plan) int {
	switch plan {
	case PlanEnterprise:
		return 2
	case PlanProfessional:
		return 1
	default:
		return 0
	}
}
