package payment

import (
	"context"

	"github.com/fcf-tessere/unlock-server-go/internal/model"
)

type CreateIntentParams struct {
	Amount      int64
	Currency    string
	Description string
	Metadata    map[string]string
}

// Provider is the payment collaborator the unlock flow depends on.
type Provider interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*model.PaymentIntent, error)
	RetrieveIntent(ctx context.Context, id string) (*model.PaymentIntent, error)
	// ParseWebhook verifies signatureHeader against the raw payload before
	// decoding it.
	ParseWebhook(payload []byte, signatureHeader string) (*model.WebhookEvent, error)
}
