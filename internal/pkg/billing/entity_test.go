package billing

import "testing"

func TestResolveEntityFromPathSegment(t *testing.T) {
	t.Setenv("BILLING_ENTITIES", "ks, eu")
	t.Setenv("PADDLE_WEBHOOK_SECRET_KS", "whsec_ks")
	t.Setenv("BILLING_ENTITY_NAME_KS", "ClaimPilot KS")

	entity, ok := ResolveEntityFromPathSegment("ks")
	if !ok {
		t.Fatalf("expected configured entity to resolve")
	}
	if entity.Code != "ks" || entity.Name != "ClaimPilot KS" || entity.WebhookSecret != "whsec_ks" {
		t.Fatalf("unexpected entity: %+v", entity)
	}

	// Path segment matching is case-insensitive.
	if _, ok := ResolveEntityFromPathSegment("KS"); !ok {
		t.Fatalf("expected uppercase segment to resolve")
	}

	// Name falls back to the code, secret to empty.
	entity, ok = ResolveEntityFromPathSegment("eu")
	if !ok {
		t.Fatalf("expected second configured entity to resolve")
	}
	if entity.Name != "eu" || entity.WebhookSecret != "" {
		t.Fatalf("unexpected fallback entity: %+v", entity)
	}

	if _, ok := ResolveEntityFromPathSegment("unknown"); ok {
		t.Fatalf("unconfigured entity must not resolve")
	}
	if _, ok := ResolveEntityFromPathSegment(""); ok {
		t.Fatalf("empty segment must not resolve")
	}
}
