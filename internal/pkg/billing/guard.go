package billing

import "errors"

// ErrEntityMismatch is returned when a payload demonstrably belongs to a
// different billing entity than the one the delivery was addressed to.
var ErrEntityMismatch = errors.New("webhook entity mismatch")

// TenantLookup is the narrow datastore contract the mismatch guard needs.
type TenantLookup interface {
	LookupTenantCodeForUser(userID string) (string, error)
	LookupTenantCodeForSubscription(provider, providerSubscriptionID string) (string, error)
	ResolveEntityForTenant(tenantCode string) (string, error)
}

// CheckEntityMismatch is the preflight cross-entity guard. It rejects only
// on a positive contradiction between the path-declared entity and what the
// payload resolves to; lookup failures and unresolvable references let the
// event through. This is deliberate: the guard is defense-in-depth in front
// of the event store, while the authoritative fail-closed check runs in the
// business handlers after signature verification.
func CheckEntityMismatch(provider, expectedEntity string, ev *NormalizedEvent, lookup TenantLookup) error {
	if ev == nil {
		return nil
	}

	// 1. Explicit entity claim in the payload wins outright.
	if ev.Entity != "" {
		if ev.Entity != expectedEntity {
			return ErrEntityMismatch
		}
		return nil
	}

	// 2. Explicit tenant reference: resolve its owning entity.
	if ev.TenantCode != "" {
		entity, err := lookup.ResolveEntityForTenant(ev.TenantCode)
		if err == nil && entity != "" && entity != expectedEntity {
			return ErrEntityMismatch
		}
		return nil
	}

	// 3. Indirect references: resolve the tenant via user or subscription.
	tenantCode := ""
	if ev.UserID != "" {
		if code, err := lookup.LookupTenantCodeForUser(ev.UserID); err == nil {
			tenantCode = code
		}
	}
	if tenantCode == "" && ev.SubscriptionID != "" {
		if code, err := lookup.LookupTenantCodeForSubscription(provider, ev.SubscriptionID); err == nil {
			tenantCode = code
		}
	}
	if tenantCode != "" {
		entity, err := lookup.ResolveEntityForTenant(tenantCode)
		if err == nil && entity != "" && entity != expectedEntity {
			return ErrEntityMismatch
		}
	}

	// 4. No contradiction found.
	return nil
}
