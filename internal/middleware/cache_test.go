package middleware

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachePayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}, "X-Custom": {"a", "b"}}
	body := []byte(`{"items":[]}`)

	payload, err := encodePayload(http.StatusOK, hdr, body)
	require.NoError(t, err)

	status, gotHdr, gotBody, ok := decodePayload(payload)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, gotHdr)
	assert.Equal(t, body, gotBody)
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	_, _, _, ok := decodePayload([]byte("short"))
	assert.False(t, ok)

	// Header length pointing past the end of the payload.
	payload, err := encodePayload(http.StatusOK, http.Header{}, nil)
	require.NoError(t, err)
	payload[7] = 0xFF
	_, _, _, ok = decodePayload(payload)
	assert.False(t, ok)
}
