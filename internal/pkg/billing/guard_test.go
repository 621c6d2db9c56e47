package billing

import (
	"errors"
	"testing"
)

type fakeTenantLookup struct {
	userTenant map[string]string
	subTenant  map[string]string
	entities   map[string]string
	lookupErr  error
}

func (f *fakeTenantLookup) LookupTenantCodeForUser(userID string) (string, error) {
	if f.lookupErr != nil {
		return "", f.lookupErr
	}
	if code, ok := f.userTenant[userID]; ok {
		return code, nil
	}
	return "", errors.New("not found")
}

func (f *fakeTenantLookup) LookupTenantCodeForSubscription(provider, subID string) (string, error) {
	if f.lookupErr != nil {
		return "", f.lookupErr
	}
	if code, ok := f.subTenant[subID]; ok {
		return code, nil
	}
	return "", errors.New("not found")
}

func (f *fakeTenantLookup) ResolveEntityForTenant(tenantCode string) (string, error) {
	if f.lookupErr != nil {
		return "", f.lookupErr
	}
	if entity, ok := f.entities[tenantCode]; ok {
		return entity, nil
	}
	return "", errors.New("not found")
}

func TestCheckEntityMismatch_ExplicitEntityClaim(t *testing.T) {
	lookup := &fakeTenantLookup{}

	ev := &NormalizedEvent{Entity: "ks", TenantCode: "acme"}
	if err := CheckEntityMismatch("paddle", "ks", ev, lookup); err != nil {
		t.Fatalf("matching explicit entity should pass, got %v", err)
	}

	ev = &NormalizedEvent{Entity: "other"}
	if err := CheckEntityMismatch("paddle", "ks", ev, lookup); !errors.Is(err, ErrEntityMismatch) {
		t.Fatalf("conflicting explicit entity should be rejected, got %v", err)
	}
}

func TestCheckEntityMismatch_TenantReference(t *testing.T) {
	lookup := &fakeTenantLookup{entities: map[string]string{"acme": "ks", "globex": "eu"}}

	ev := &NormalizedEvent{TenantCode: "acme"}
	if err := CheckEntityMismatch("paddle", "ks", ev, lookup); err != nil {
		t.Fatalf("tenant owned by addressed entity should pass, got %v", err)
	}

	ev = &NormalizedEvent{TenantCode: "globex"}
	if err := CheckEntityMismatch("paddle", "ks", ev, lookup); !errors.Is(err, ErrEntityMismatch) {
		t.Fatalf("tenant owned by another entity should be rejected, got %v", err)
	}
}

func TestCheckEntityMismatch_IndirectReferences(t *testing.T) {
	lookup := &fakeTenantLookup{
		userTenant: map[string]string{"42": "globex"},
		subTenant:  map[string]string{"sub_1": "globex"},
		entities:   map[string]string{"globex": "eu"},
	}

	ev := &NormalizedEvent{UserID: "42"}
	if err := CheckEntityMismatch("paddle", "ks", ev, lookup); !errors.Is(err, ErrEntityMismatch) {
		t.Fatalf("user resolving to foreign entity should be rejected, got %v", err)
	}

	ev = &NormalizedEvent{SubscriptionID: "sub_1"}
	if err := CheckEntityMismatch("paddle", "ks", ev, lookup); !errors.Is(err, ErrEntityMismatch) {
		t.Fatalf("subscription resolving to foreign entity should be rejected, got %v", err)
	}

	ev = &NormalizedEvent{SubscriptionID: "sub_1"}
	if err := CheckEntityMismatch("paddle", "eu", ev, lookup); err != nil {
		t.Fatalf("subscription resolving to addressed entity should pass, got %v", err)
	}
}

func TestCheckEntityMismatch_FailOpen(t *testing.T) {
	// Lookup errors must never reject: the authoritative fail-closed check
	// runs later in the business handlers.
	lookup := &fakeTenantLookup{lookupErr: errors.New("db down")}

	for _, ev := range []*NormalizedEvent{
		{TenantCode: "acme"},
		{UserID: "42"},
		{SubscriptionID: "sub_1"},
	} {
		if err := CheckEntityMismatch("paddle", "ks", ev, lookup); err != nil {
			t.Fatalf("lookup failure should fail open for %+v, got %v", ev, err)
		}
	}
}

func TestCheckEntityMismatch_NoReferences(t *testing.T) {
	lookup := &fakeTenantLookup{}
	if err := CheckEntityMismatch("paddle", "ks", &NormalizedEvent{}, lookup); err != nil {
		t.Fatalf("event without references should pass, got %v", err)
	}
	if err := CheckEntityMismatch("paddle", "ks", nil, lookup); err != nil {
		t.Fatalf("nil event should pass, got %v", err)
	}
}
