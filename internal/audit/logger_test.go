package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = original })
	return &buf
}

func TestLog(t *testing.T) {
	buf := captureLogs(t)

	Log(context.Background(), Event{
		Type:             EventCodeIssue,
		Code:             "FCF-****",
		PaymentReference: "pi_123",
		Details:          map[string]interface{}{"max_uses": 3, "source": "api"},
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "unlock", entry["audit"])
	assert.Equal(t, "code_issue", entry["event_type"])
	assert.Equal(t, "FCF-****", entry["code"])
	assert.Equal(t, "pi_123", entry["payment_reference"])
	assert.Equal(t, float64(3), entry["max_uses"])
	assert.Equal(t, "api", entry["source"])
	assert.NotContains(t, entry, "device_id")
}

func TestClientIP(t *testing.T) {
	t.Run("uses first forwarded hop", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		assert.Equal(t, "203.0.113.7", ClientIP(r))
	})

	t.Run("falls back to X-Real-IP", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Real-IP", "198.51.100.2")
		assert.Equal(t, "198.51.100.2", ClientIP(r))
	})

	t.Run("falls back to remote address", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		assert.Equal(t, r.RemoteAddr, ClientIP(r))
	})
}
