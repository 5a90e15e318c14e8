package webhook

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_Deterministic(t *testing.T) {
	payload := json.RawMessage(`{"order_id":"o-1","amount":42}`)

	a, err := Fingerprint("tenant-1", payload)
	require.NoError(t, err)
	b, err := Fingerprint("tenant-1", payload)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprint_KeyOrderDoesNotMatter(t *testing.T) {
	a, err := Fingerprint("tenant-1", json.RawMessage(`{"a":1,"b":{"x":true,"y":"z"}}`))
	require.NoError(t, err)
	b, err := Fingerprint("tenant-1", json.RawMessage(`{"b":{"y":"z","x":true},"a":1}`))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestFingerprint_DistinguishesInputs(t *testing.T) {
	base, err := Fingerprint("tenant-1", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)

	otherTenant, err := Fingerprint("tenant-2", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	otherPayload, err := Fingerprint("tenant-1", json.RawMessage(`{"a":2}`))
	require.NoError(t, err)

	assert.NotEqual(t, base, otherTenant)
	assert.NotEqual(t, base, otherPayload)
}

func TestFingerprint_RejectsInvalidJSON(t *testing.T) {
	_, err := Fingerprint("tenant-1", json.RawMessage(`{not json`))
	assert.Error(t, err)
}
