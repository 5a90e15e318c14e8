package webhook

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint derives a deterministic idempotency key for a notification
// that arrives without one. Only the tenant and the canonicalized payload
// feed the hash; the claimed timestamp does not, so a transport retry that
// re-stamps the same event still maps to the same key.
func Fingerprint(tenantID string, payload json.RawMessage) (string, error) {
	canon, err := canonicalJSON(payload)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s:", tenantID)
	h.Write(canon)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// canonicalJSON round-trips raw JSON through an untyped value; encoding/json
// emits map keys in sorted order, which is exactly the canonical form needed.
func canonicalJSON(raw json.RawMessage) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
