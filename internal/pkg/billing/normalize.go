package billing

import (
	"encoding/json"
	"strings"
	"time"
)

// NormalizeEvent parses a raw webhook body into the provider-agnostic event
// shape. It tolerates both snake_case and camelCase field names and never
// fails: a malformed body yields an event with empty fields, because the
// caller still needs a dedupe key and event type to audit the rejection.
func NormalizeEvent(payload []byte) *NormalizedEvent {
	ev := &NormalizedEvent{}

	var root map[string]interface{}
	if err := json.Unmarshal(payload, &root); err != nil || root == nil {
		return ev
	}

	ev.EventID = stringField(root, "event_id", "eventId", "id")
	ev.EventType = stringField(root, "event_type", "eventType", "type", "alert_name")
	if raw := stringField(root, "occurred_at", "occurredAt", "event_time", "eventTime"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			ev.OccurredAt = &t
		}
	}

	data := mapField(root, "data")
	ev.Data = data

	// Business references may live at several nesting levels depending on
	// how the provider was configured; scan them in a fixed priority order.
	scopes := []map[string]interface{}{
		mapField(data, "custom_data"),
		mapField(data, "customData"),
		mapField(root, "meta"),
		mapField(root, "metadata"),
		data,
		root,
	}

	ev.Entity = strings.ToLower(firstString(scopes, "entity", "billing_entity", "billingEntity"))
	ev.TenantCode = firstString(scopes, "tenant_id", "tenantId", "tenant_code", "tenantCode")
	ev.UserID = firstString(scopes, "user_id", "userId")
	ev.SubscriptionID = firstString(scopes, "subscription_id", "subscriptionId")
	ev.PriceRef = firstString(scopes, "price_id", "priceId", "plan_id", "planId")
	ev.Status = firstString(scopes, "status")

	if ev.SubscriptionID == "" && data != nil {
		// subscription events carry their own id inside data
		if strings.HasPrefix(ev.EventType, "subscription.") {
			ev.SubscriptionID = stringField(data, "id")
		}
	}

	return ev
}

func firstString(scopes []map[string]interface{}, keys ...string) string {
	for _, scope := range scopes {
		if scope == nil {
			continue
		}
		if v := stringField(scope, keys...); v != "" {
			return v
		}
	}
	return ""
}

func stringField(m map[string]interface{}, keys ...string) string {
	if m == nil {
		return ""
	}
	for _, key := range keys {
		raw, ok := m[key]
		if !ok {
			continue
		}
		if s, ok := raw.(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func mapField(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	if nested, ok := m[key].(map[string]interface{}); ok {
		return nested
	}
	return nil
}
