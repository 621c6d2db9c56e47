package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// DefaultSignatureTolerance bounds how old a signed timestamp may be before
// the delivery is rejected as a possible replay.
const DefaultSignatureTolerance = 5 * time.Minute

// VerifyPaddleWebhookSignature verifies a Paddle-style signature header of
// the form "ts=<unix>;h1=<hex hmac>" against the exact raw body bytes. The
// HMAC-SHA256 is computed over "<ts>:<body>" with the entity's shared
// secret. Callers must treat an empty signature or secret as a credentials
// error before calling; here both simply fail verification.
func VerifyPaddleWebhookSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	return verifyPaddleSignatureAt(payload, signatureHeader, webhookSecret, DefaultSignatureTolerance, time.Now())
}

func verifyPaddleSignatureAt(payload []byte, signatureHeader, webhookSecret string, tolerance time.Duration, now time.Time) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}

	ts, sigs := parseSignatureHeader(sig)
	if ts == "" || len(sigs) == 0 {
		return false
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(unix, 0))
		if age > tolerance || age < -tolerance {
			return false
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte(":"))
	mac.Write(payload)
	expected := mac.Sum(nil)

	// The header may carry several h1 values during secret rotation.
	for _, candidate := range sigs {
		decoded, err := hex.DecodeString(strings.ToLower(candidate))
		if err != nil {
			continue
		}
		if hmac.Equal(expected, decoded) {
			return true
		}
	}
	return false
}

func parseSignatureHeader(header string) (ts string, sigs []string) {
	for _, part := range strings.Split(header, ";") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "h1":
			if v := strings.TrimSpace(value); v != "" {
				sigs = append(sigs, v)
			}
		}
	}
	return ts, sigs
}
