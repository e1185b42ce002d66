package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fcf-tessere/unlock-server-go/internal/metrics"
	"github.com/fcf-tessere/unlock-server-go/internal/model"
	"github.com/fcf-tessere/unlock-server-go/internal/payment"
)

// EventStore records processed webhook event ids.
type EventStore interface {
	MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	ForgetEvent(ctx context.Context, eventID string) error
}

// PaymentEventHandler is the part of IssuanceService driven by webhooks.
type PaymentEventHandler interface {
	IssueFromEvent(ctx context.Context, event *model.WebhookEvent) (*IssueResult, error)
	HandleRefund(ctx context.Context, paymentReference string) (int64, error)
}

type WebhookService struct {
	provider payment.Provider
	handler  PaymentEventHandler
	events   EventStore
	eventTTL time.Duration
}

func NewWebhookService(
	provider payment.Provider,
	handler PaymentEventHandler,
	events EventStore,
	eventTTL time.Duration,
) *WebhookService {
	return &WebhookService{
		provider: provider,
		handler:  handler,
		events:   events,
		eventTTL: eventTTL,
	}
}

// Handle verifies and dispatches one delivery. Replays of an already handled
// event are acknowledged without side effects. When dispatch fails the event
// id is forgotten so the provider's retry is processed.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := s.provider.ParseWebhook(payload, signatureHeader)
	if err != nil {
		metrics.IncWebhookEvent("unknown", "rejected")
		return err
	}

	fresh, err := s.events.MarkEventProcessed(ctx, event.ID, s.eventTTL)
	if err != nil {
		// Handlers are idempotent, so a missing record only costs duplicate work.
		log.Warn().Err(err).Str("eventId", event.ID).Msg("webhook de-duplication unavailable")
		fresh = true
	}
	if !fresh {
		log.Info().Str("eventId", event.ID).Str("type", string(event.Type)).Msg("duplicate webhook event ignored")
		metrics.IncWebhookEvent(string(event.Type), "duplicate")
		return nil
	}

	if err := s.dispatch(ctx, event); err != nil {
		metrics.IncWebhookEvent(string(event.Type), "failed")
		if forgetErr := s.events.ForgetEvent(ctx, event.ID); forgetErr != nil {
			log.Warn().Err(forgetErr).Str("eventId", event.ID).Msg("failed to forget webhook event")
		}
		return err
	}

	metrics.IncWebhookEvent(string(event.Type), "handled")
	return nil
}

func (s *WebhookService) dispatch(ctx context.Context, event *model.WebhookEvent) error {
	logger := log.With().
		Str("eventId", event.ID).
		Str("type", string(event.Type)).
		Str("paymentIntentId", event.PaymentReference).
		Logger()

	switch event.Type {
	case model.EventPaymentSucceeded:
		result, err := s.handler.IssueFromEvent(ctx, event)
		if err != nil {
			return err
		}
		logger.Info().Bool("issued", result != nil).Msg("webhook: payment succeeded")

	case model.EventPaymentFailed:
		logger.Warn().Msg("webhook: payment failed")

	case model.EventChargeRefunded:
		if event.PaymentReference == "" {
			logger.Warn().Msg("webhook: refund without payment intent")
			return nil
		}
		count, err := s.handler.HandleRefund(ctx, event.PaymentReference)
		if err != nil {
			return err
		}
		logger.Info().Int64("deactivated", count).Msg("webhook: charge refunded")

	default:
		logger.Info().Msg("webhook: event ignored")
	}

	return nil
}

var _ PaymentEventHandler = (*IssuanceService)(nil)
