package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"github.com/stripe/stripe-go/v72/webhook"

	apperrors "github.com/fcf-tessere/unlock-server-go/internal/errors"
	"github.com/fcf-tessere/unlock-server-go/internal/model"
)

const providerName = "Stripe"

type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

var _ Provider = (*StripeProvider)(nil)

// NewStripeProvider builds a provider with its own client; the package-level
// stripe.Key is never set.
func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	return NewStripeProviderWithBackends(secretKey, webhookSecret, nil)
}

// NewStripeProviderWithBackends allows pointing the client at a different API
// endpoint. A nil backends uses Stripe's defaults.
func NewStripeProviderWithBackends(secretKey, webhookSecret string, backends *stripe.Backends) *StripeProvider {
	return &StripeProvider{
		api:           client.New(secretKey, backends),
		webhookSecret: webhookSecret,
	}
}

func (p *StripeProvider) CreateIntent(ctx context.Context, params CreateIntentParams) (*model.PaymentIntent, error) {
	piParams := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(params.Amount),
		Currency: stripe.String(params.Currency),
	}
	if params.Description != "" {
		piParams.Description = stripe.String(params.Description)
	}
	for k, v := range params.Metadata {
		piParams.AddMetadata(k, v)
	}
	piParams.Context = ctx

	pi, err := p.api.PaymentIntents.New(piParams)
	if err != nil {
		return nil, translateStripeError(err)
	}

	log.Info().
		Str("paymentIntentId", pi.ID).
		Int64("amount", pi.Amount).
		Str("currency", string(pi.Currency)).
		Msg("payment intent created")

	return toPaymentIntent(pi), nil
}

func (p *StripeProvider) RetrieveIntent(ctx context.Context, id string) (*model.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, translateStripeError(err)
	}
	return toPaymentIntent(pi), nil
}

func (p *StripeProvider) ParseWebhook(payload []byte, signatureHeader string) (*model.WebhookEvent, error) {
	if p.webhookSecret == "" {
		return nil, apperrors.InvalidSignature(errors.New("webhook secret not configured"))
	}

	event, err := webhook.ConstructEvent(payload, signatureHeader, p.webhookSecret)
	if err != nil {
		return nil, apperrors.InvalidSignature(err)
	}

	result := &model.WebhookEvent{
		ID:   event.ID,
		Type: model.WebhookEventType(event.Type),
	}
	if event.Data == nil {
		return result, nil
	}

	switch result.Type {
	case model.EventPaymentSucceeded, model.EventPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, apperrors.ValidationError("Malformed payment intent event").WithCause(err)
		}
		result.PaymentIntent = toPaymentIntent(&pi)
		result.PaymentReference = pi.ID
	case model.EventChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return nil, apperrors.ValidationError("Malformed charge event").WithCause(err)
		}
		if charge.PaymentIntent != nil {
			result.PaymentReference = charge.PaymentIntent.ID
		}
	}

	return result, nil
}

func toPaymentIntent(pi *stripe.PaymentIntent) *model.PaymentIntent {
	out := &model.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       model.PaymentStatus(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Created:      pi.Created,
		Metadata:     pi.Metadata,
	}
	if pi.Customer != nil {
		out.CustomerID = pi.Customer.ID
	}
	return out
}

func translateStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode == http.StatusNotFound {
			return apperrors.NotFound("Payment intent").WithCause(err)
		}
		if stripeErr.Type == stripe.ErrorTypeInvalidRequest {
			return apperrors.ValidationError(stripeErr.Msg).WithCause(err)
		}
	}
	return apperrors.External(providerName, fmt.Errorf("stripe request: %w", err))
}
