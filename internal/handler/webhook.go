package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/fcf-tessere/unlock-server-go/internal/audit"
	apperrors "github.com/fcf-tessere/unlock-server-go/internal/errors"
)

const stripeSignatureHeader = "Stripe-Signature"

type webhookProcessor interface {
	Handle(ctx context.Context, payload []byte, signatureHeader string) error
}

type WebhookHandler struct {
	webhooks webhookProcessor
}

func NewWebhookHandler(webhooks webhookProcessor) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// POST /webhook
//
// The raw body is needed for signature verification.
func (h *WebhookHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apperrors.InvalidInput("body", "unreadable request body").WithCause(err))
		return
	}

	if err := h.webhooks.Handle(r.Context(), payload, r.Header.Get(stripeSignatureHeader)); err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeInvalidSignature {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventWebhookRejected,
				Details: map[string]interface{}{"reason": err.Error()},
			})
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
