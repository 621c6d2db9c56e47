package billing

import "testing"

func TestPayloadHash(t *testing.T) {
	payload := []byte(`{"event_id":"evt_1"}`)

	h1 := PayloadHash(payload)
	h2 := PayloadHash(payload)
	if h1 != h2 {
		t.Fatalf("PayloadHash is not stable: %q != %q", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("PayloadHash length = %d, want 64 hex chars", len(h1))
	}
	if PayloadHash([]byte(`{"event_id":"evt_2"}`)) == h1 {
		t.Fatalf("different payloads produced the same hash")
	}
}

func TestResolveDedupeKey(t *testing.T) {
	hash := PayloadHash([]byte(`{}`))

	tests := []struct {
		name    string
		eventID string
		want    string
	}{
		{name: "with event id", eventID: "evt_1", want: "paddle:evt_1"},
		{name: "whitespace id falls back to hash", eventID: "   ", want: "paddle:sha256:" + hash},
		{name: "empty id falls back to hash", eventID: "", want: "paddle:sha256:" + hash},
	}

	for _, tt := range tests {
		if got := ResolveDedupeKey("paddle", tt.eventID, hash); got != tt.want {
			t.Fatalf("%s: ResolveDedupeKey = %q, want %q", tt.name, got, tt.want)
		}
	}
}
