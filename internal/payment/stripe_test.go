package payment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"

	apperrors "github.com/fcf-tessere/unlock-server-go/internal/errors"
	"github.com/fcf-tessere/unlock-server-go/internal/model"
	"github.com/fcf-tessere/unlock-server-go/internal/util"
)

const testWebhookSecret = "whsec_test"

func newTestProvider(t *testing.T, handler http.HandlerFunc) *StripeProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
	})
	return NewStripeProviderWithBackends("sk_test_123", testWebhookSecret, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})
}

func signPayload(secret string, payload []byte, ts time.Time) string {
	signed := fmt.Sprintf("%d.%s", ts.Unix(), payload)
	return "t=" + strconv.FormatInt(ts.Unix(), 10) + ",v1=" + util.HmacSHA256(secret, signed)
}

func TestStripeProvider_CreateIntent(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "100", r.PostForm.Get("amount"))
		assert.Equal(t, "eur", r.PostForm.Get("currency"))
		assert.Equal(t, "FCF Tessere Premium", r.PostForm.Get("description"))
		assert.Equal(t, "fcf-tessere", r.PostForm.Get("metadata[app]"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"pi_123","object":"payment_intent","amount":100,"currency":"eur",
			"status":"requires_payment_method","client_secret":"pi_123_secret_abc","created":1700000000}`)
	})

	pi, err := provider.CreateIntent(context.Background(), CreateIntentParams{
		Amount:      100,
		Currency:    "eur",
		Description: "FCF Tessere Premium",
		Metadata:    map[string]string{model.MetadataApp: "fcf-tessere"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", pi.ID)
	assert.Equal(t, "pi_123_secret_abc", pi.ClientSecret)
	assert.Equal(t, model.PaymentStatusRequiresPaymentMethod, pi.Status)
	assert.Equal(t, int64(100), pi.Amount)
	assert.Equal(t, "eur", pi.Currency)
}

func TestStripeProvider_RetrieveIntent(t *testing.T) {
	t.Run("maps succeeded intent", func(t *testing.T) {
		provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/v1/payment_intents/pi_123", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"pi_123","object":"payment_intent","amount":250,"currency":"eur",
				"status":"succeeded","created":1700000000,"customer":"cus_1","metadata":{"device_id":"device-1"}}`)
		})

		pi, err := provider.RetrieveIntent(context.Background(), "pi_123")
		require.NoError(t, err)
		assert.True(t, pi.Succeeded())
		assert.Equal(t, int64(250), pi.Amount)
		assert.Equal(t, int64(1700000000), pi.Created)
		assert.Equal(t, "cus_1", pi.CustomerID)
		assert.Equal(t, "device-1", pi.Metadata[model.MetadataDeviceID])
	})

	t.Run("maps missing intent to not found", func(t *testing.T) {
		provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such payment_intent"}}`)
		})

		_, err := provider.RetrieveIntent(context.Background(), "pi_missing")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})

	t.Run("maps server failure to external error", func(t *testing.T) {
		provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"type":"api_error","message":"Something went wrong"}}`)
		})

		_, err := provider.RetrieveIntent(context.Background(), "pi_123")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeExternal, apperrors.GetCode(err))
	})
}

func TestStripeProvider_ParseWebhook(t *testing.T) {
	provider := NewStripeProvider("sk_test_123", testWebhookSecret)

	t.Run("parses payment succeeded event", func(t *testing.T) {
		payload := []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":%q,"type":"payment_intent.succeeded",
			"data":{"object":{"id":"pi_123","object":"payment_intent","amount":100,"currency":"eur","status":"succeeded",
			"metadata":{"device_id":"device-1"}}}}`, stripe.APIVersion))

		event, err := provider.ParseWebhook(payload, signPayload(testWebhookSecret, payload, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, "evt_1", event.ID)
		assert.Equal(t, model.EventPaymentSucceeded, event.Type)
		assert.Equal(t, "pi_123", event.PaymentReference)
		require.NotNil(t, event.PaymentIntent)
		assert.Equal(t, "device-1", event.PaymentIntent.Metadata[model.MetadataDeviceID])
	})

	t.Run("parses charge refunded event", func(t *testing.T) {
		payload := []byte(fmt.Sprintf(`{"id":"evt_2","object":"event","api_version":%q,"type":"charge.refunded",
			"data":{"object":{"id":"ch_1","object":"charge","payment_intent":"pi_123","refunded":true}}}`, stripe.APIVersion))

		event, err := provider.ParseWebhook(payload, signPayload(testWebhookSecret, payload, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, model.EventChargeRefunded, event.Type)
		assert.Equal(t, "pi_123", event.PaymentReference)
		assert.Nil(t, event.PaymentIntent)
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		payload := []byte(fmt.Sprintf(`{"id":"evt_3","object":"event","api_version":%q,"type":"payment_intent.succeeded"}`, stripe.APIVersion))

		_, err := provider.ParseWebhook(payload, signPayload("whsec_other", payload, time.Now()))
		assert.Equal(t, apperrors.ErrCodeInvalidSignature, apperrors.GetCode(err))
	})

	t.Run("rejects stale timestamp", func(t *testing.T) {
		payload := []byte(fmt.Sprintf(`{"id":"evt_4","object":"event","api_version":%q,"type":"payment_intent.succeeded"}`, stripe.APIVersion))

		_, err := provider.ParseWebhook(payload, signPayload(testWebhookSecret, payload, time.Now().Add(-time.Hour)))
		assert.Equal(t, apperrors.ErrCodeInvalidSignature, apperrors.GetCode(err))
	})

	t.Run("rejects when secret not configured", func(t *testing.T) {
		unconfigured := NewStripeProvider("sk_test_123", "")
		_, err := unconfigured.ParseWebhook([]byte(`{}`), "t=1,v1=abc")
		assert.Equal(t, apperrors.ErrCodeInvalidSignature, apperrors.GetCode(err))
	})
}
