package billing

import (
	"strings"

	"github.com/claimpilot/ClaimPilot/internal/pkg/env"
)

// Entity is an independently billed business unit. All entities share one
// webhook code path but each has its own provider secret, so a delivery for
// one entity can never be verified with another entity's credentials.
type Entity struct {
	Code          string
	Name          string
	WebhookSecret string
}

// ResolveEntityFromPathSegment resolves the {entity} path segment of the
// webhook endpoint against the configured entities (BILLING_ENTITIES, a
// comma separated list of codes). Secrets and display names are read per
// code, e.g. PADDLE_WEBHOOK_SECRET_KS and BILLING_ENTITY_NAME_KS for "ks".
func ResolveEntityFromPathSegment(segment string) (Entity, bool) {
	code := strings.ToLower(strings.TrimSpace(segment))
	if code == "" {
		return Entity{}, false
	}

	for _, configured := range strings.Split(env.GetEnv("BILLING_ENTITIES", ""), ",") {
		if strings.ToLower(strings.TrimSpace(configured)) != code {
			continue
		}
		suffix := strings.ToUpper(code)
		return Entity{
			Code:          code,
			Name:          env.GetEnv("BILLING_ENTITY_NAME_"+suffix, code),
			WebhookSecret: strings.TrimSpace(env.GetEnv("PADDLE_WEBHOOK_SECRET_"+suffix, "")),
		}, true
	}
	return Entity{}, false
}
